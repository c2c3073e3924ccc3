package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "imgs", "f1.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(inside), 0755))
	require.NoError(t, os.WriteFile(inside, []byte("x"), 0644))

	assert.NoError(t, ValidatePathWithinDirectory(inside, root))
	assert.NoError(t, ValidatePathWithinDirectory(root, root))

	// nonexistent leaf under the root is still valid
	assert.NoError(t, ValidatePathWithinDirectory(filepath.Join(root, "missing.png"), root))
}

func TestValidatePathTraversal(t *testing.T) {
	root := t.TempDir()
	assert.Error(t, ValidatePathWithinDirectory("/etc/passwd", root))
	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(root, "..", "escape.png"), root))
	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(root, "a", "..", "..", "escape.png"), root))
}

func TestValidatePathSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(link, "f.png"), root))
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	inB := filepath.Join(b, "f.png")
	require.NoError(t, os.WriteFile(inB, []byte("x"), 0644))

	assert.NoError(t, ValidatePathWithinAllowedDirs(inB, []string{a, b}))
	assert.Error(t, ValidatePathWithinAllowedDirs("/etc/passwd", []string{a, b}))
	assert.Error(t, ValidatePathWithinAllowedDirs(inB, nil))
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"labeled_table.csv", "labeled_table.csv"},
		{"run 1 (final)", "run_1_final"},
		{"../../etc/passwd", "etc_passwd"},
		{"a///b", "a_b"},
		{"", "unknown"},
		{"///", "unknown"},
		{"m1.2_vs_m1.3", "m1.2_vs_m1.3"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeFilename(tc.in), "input %q", tc.in)
	}
}
