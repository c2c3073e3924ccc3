// Package history records what happened during labeling sessions:
// uploads, executed SQL (including failures), and exports. The log lives
// in a small SQLite database so past sessions can be inspected, and the
// tailsql debug UI is mounted over the same database.
package history

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Record kinds.
const (
	KindUpload    = "upload"
	KindApplySQL  = "apply_sql"
	KindAddColumn = "add_column"
	KindExport    = "export"
)

// Record is one history entry.
type Record struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	RowCount  int       `json:"row_count"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and runs
// pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %v", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %v", err)
	}
	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrateUp applies the embedded migrations. No pending migrations is
// not an error.
func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %v", err)
	}
	drv, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to prepare migration driver: %v", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %v", err)
	}
	// Closing m would close the underlying DB connection, so we don't.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %v", err)
	}
	return nil
}

// DB exposes the underlying handle for the tailsql debug UI.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Add inserts a history entry. errText is empty for successful
// operations.
func (s *Store) Add(kind, detail string, rowCount int, errText string) error {
	_, err := s.db.Exec(
		"INSERT INTO history (id, kind, detail, row_count, error, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		uuid.NewString(), kind, detail, rowCount, errText, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record history: %v", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(
		"SELECT id, kind, detail, row_count, error, created_at FROM history ORDER BY created_at DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var created string
		if err := rows.Scan(&r.ID, &r.Kind, &r.Detail, &r.RowCount, &r.Error, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTimestamp(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// parseTimestamp handles both our RFC3339 inserts and SQLite's own
// CURRENT_TIMESTAMP format.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
