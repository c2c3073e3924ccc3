// Package labelstore persists frame labels across sessions. The store is
// a flat CSV of (uuid, label) pairs: loaded wholesale when a table is
// uploaded and rewritten wholesale on every edit. Last writer wins; the
// tool assumes a single user and takes no locks.
package labelstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lanelab/frameview/internal/frame"
)

// Store is a CSV-backed mapping from frame key to label.
type Store struct {
	path   string
	labels map[string]string
}

// Open loads the store at path. A missing file yields an empty store;
// the file is created on first Set.
func Open(path string) (*Store, error) {
	s := &Store{path: path, labels: make(map[string]string)}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse label file: %v", err)
	}
	for i, rec := range records {
		if i == 0 && len(rec) >= 2 && rec[0] == "uuid" {
			continue // header
		}
		if len(rec) < 2 {
			continue
		}
		s.labels[rec[0]] = rec[1]
	}
	return s, nil
}

// Get returns the stored label for a frame key.
func (s *Store) Get(key string) (string, bool) {
	label, ok := s.labels[key]
	return label, ok
}

// Len returns the number of stored labels.
func (s *Store) Len() int { return len(s.labels) }

// Snapshot returns a copy of the key-to-label mapping.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string, len(s.labels))
	for k, v := range s.labels {
		out[k] = v
	}
	return out
}

// Set records a label for a frame key and rewrites the backing file.
func (s *Store) Set(key, label string) error {
	if key == "" {
		return fmt.Errorf("empty frame key")
	}
	if !frame.ValidLabel(label) {
		return fmt.Errorf("invalid label %q", label)
	}
	s.labels[key] = label
	return s.save()
}

// save writes the whole mapping back to disk, creating parent directories
// as needed. Keys are written in sorted order so the file diffs cleanly.
func (s *Store) save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create label directory: %v", err)
		}
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to write label file: %v", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"uuid", "label"}); err != nil {
		f.Close()
		return err
	}
	keys := make([]string, 0, len(s.labels))
	for k := range s.labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.Write([]string{k, s.labels[k]}); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
