package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndRecent(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Add(KindUpload, "results.csv", 120, ""))
	require.NoError(t, s.Add(KindApplySQL, "SELECT * FROM current_df", 120, ""))
	require.NoError(t, s.Add(KindApplySQL, "SELECT nope FROM current_df", 0, "no such column: nope"))

	records, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// newest first
	assert.Equal(t, "no such column: nope", records[0].Error)
	assert.Equal(t, KindUpload, records[2].Kind)
	assert.Equal(t, "results.csv", records[2].Detail)
	assert.Equal(t, 120, records[2].RowCount)
	assert.NotEmpty(t, records[0].ID)
	assert.NotEqual(t, records[0].ID, records[1].ID)
	assert.WithinDuration(t, time.Now().UTC(), records[0].CreatedAt, time.Minute)
}

func TestRecentLimit(t *testing.T) {
	s := openStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Add(KindExport, "labeled_table.csv", i, ""))
	}
	records, err := s.Recent(2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// out-of-range limits fall back to the default
	records, err = s.Recent(-1)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Add(KindUpload, "a.csv", 1, ""))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	records, err := s.Recent(10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseTimestamp(t *testing.T) {
	got := parseTimestamp("2026-03-01T12:00:00.5Z")
	assert.Equal(t, 2026, got.Year())

	got = parseTimestamp("2026-03-01 12:00:00")
	assert.Equal(t, time.March, got.Month())

	assert.True(t, parseTimestamp("garbage").IsZero())
}
