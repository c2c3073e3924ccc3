// Package security validates filesystem paths before the server reads or
// writes them on a user's behalf. Image serving takes arbitrary paths out
// of uploaded CSV cells, so every path is checked against the configured
// roots before it is opened.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory checks that filePath resolves inside
// safeDir. It rejects traversal via . and .. components and symlinked
// parents.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	// Resolve symlinks where the paths exist; a nonexistent leaf falls
	// back to its nearest existing parent so symlinked intermediate
	// directories cannot smuggle the path outside the root.
	canonicalPath := resolveExisting(absPath)
	canonicalSafeDir := resolveExisting(absSafeDir)

	relPath, err := filepath.Rel(canonicalSafeDir, canonicalPath)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// resolveExisting resolves symlinks for path, walking up to the nearest
// existing ancestor when the path itself does not exist yet.
func resolveExisting(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	check := path
	for {
		parent := filepath.Dir(check)
		if parent == check {
			return path
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, relErr := filepath.Rel(parent, path)
			if relErr != nil {
				return path
			}
			return filepath.Join(resolved, rel)
		}
		check = parent
	}
}

// ValidatePathWithinAllowedDirs checks that filePath is inside at least
// one of the allowed directories.
func ValidatePathWithinAllowedDirs(filePath string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}
	for _, dir := range allowedDirs {
		if err := ValidatePathWithinDirectory(filePath, dir); err == nil {
			return nil
		}
	}
	return fmt.Errorf("path must be within one of the allowed directories: %v", allowedDirs)
}

// SanitizeFilename makes a safe filename from an arbitrary string. Any
// character that is not an ASCII letter, digit, dot, underscore or dash
// becomes an underscore; runs of underscores collapse and the result is
// length-limited. Used when a user-supplied export name becomes a file
// name under the artifacts directory.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
