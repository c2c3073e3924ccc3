// Package config loads the tool's configuration. Defaults suit a local
// single-user session; a JSON file can override any field and flags
// override the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Defaults used when neither the config file nor flags set a value.
const (
	DefaultListenAddr   = ":8080"
	DefaultDataDir      = "data"
	DefaultArtifactsDir = "artifacts"
	DefaultLabelFile    = "data/labels.csv"
	DefaultHistoryDB    = "data/history.db"
	DefaultRowsPerPage  = 10
)

// Config holds the application configuration. Fields are pointers so a
// partial config file only overrides what it names.
type Config struct {
	ListenAddr   *string `json:"listen_addr,omitempty"`
	DataDir      *string `json:"data_dir,omitempty"`
	ArtifactsDir *string `json:"artifacts_dir,omitempty"`
	LabelFile    *string `json:"label_file,omitempty"`
	HistoryDB    *string `json:"history_db,omitempty"`
	RowsPerPage  *int    `json:"rows_per_page,omitempty"`

	// ImageRoots are additional directories images may be served from.
	// The artifacts directory is always allowed.
	ImageRoots []string `json:"image_roots,omitempty"`
}

// Load reads a JSON config file. The file must have a .json extension and
// stay under 1MB. A missing path is not an error; it yields an empty
// config so every field falls back to its default.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.RowsPerPage != nil && (*c.RowsPerPage < 1 || *c.RowsPerPage > 100) {
		return fmt.Errorf("rows_per_page must be between 1 and 100, got %d", *c.RowsPerPage)
	}
	if c.ListenAddr != nil && *c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	return nil
}

func (c *Config) GetListenAddr() string {
	if c.ListenAddr != nil {
		return *c.ListenAddr
	}
	return DefaultListenAddr
}

func (c *Config) GetDataDir() string {
	if c.DataDir != nil {
		return *c.DataDir
	}
	return DefaultDataDir
}

func (c *Config) GetArtifactsDir() string {
	if c.ArtifactsDir != nil {
		return *c.ArtifactsDir
	}
	return DefaultArtifactsDir
}

func (c *Config) GetLabelFile() string {
	if c.LabelFile != nil {
		return *c.LabelFile
	}
	return DefaultLabelFile
}

func (c *Config) GetHistoryDB() string {
	if c.HistoryDB != nil {
		return *c.HistoryDB
	}
	return DefaultHistoryDB
}

func (c *Config) GetRowsPerPage() int {
	if c.RowsPerPage != nil {
		return *c.RowsPerPage
	}
	return DefaultRowsPerPage
}

// GetImageRoots returns the directories images may be served from,
// always including the artifacts directory.
func (c *Config) GetImageRoots() []string {
	roots := []string{c.GetArtifactsDir()}
	roots = append(roots, c.ImageRoots...)
	return roots
}
