// Package export writes the labeled working table to the artifacts
// directory and copies the referenced images alongside it. Missing source
// images are warned about and skipped; the export never aborts part way
// because one frame's image is gone.
package export

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/lanelab/frameview/internal/combine"
	"github.com/lanelab/frameview/internal/fsutil"
	"github.com/lanelab/frameview/internal/monitoring"
	"github.com/lanelab/frameview/internal/security"
	"github.com/lanelab/frameview/internal/table"
)

// CacheColumn is the image cache column of single-run tables;
// CombinedCacheColumn is its comma-joined diff-table counterpart.
const (
	CacheColumn         = "img_cache"
	CombinedCacheColumn = "img_cache_combined"
	imageExt            = ".png"
)

// ImageDir is the subdirectory of the artifacts folder that exported
// images are copied into.
const ImageDir = "important_imgs"

// Exporter writes labeled tables and their images.
type Exporter struct {
	FS           fsutil.FileSystem
	ArtifactsDir string
}

// New returns an Exporter over the real filesystem.
func New(artifactsDir string) *Exporter {
	return &Exporter{FS: fsutil.OSFileSystem{}, ArtifactsDir: artifactsDir}
}

// Result summarises one export run.
type Result struct {
	CSVPath       string `json:"csv_path"`
	ImgDir        string `json:"img_dir"`
	Copied        int    `json:"copied"`
	Skipped       int    `json:"skipped"`
	Missing       int    `json:"missing"`
	HistogramPath string `json:"histogram_path,omitempty"`
}

// Run exports t. The table is expanded with per-model img_cache_i,
// img_uuid_i and img_dst_i columns, images are copied to the destination
// folder, and the final CSV is written under fileName (sanitized) in the
// artifacts directory. The input table is not modified.
func (e *Exporter) Run(t *table.Table, modelVersions []string, fileName string) (*Result, error) {
	if len(modelVersions) == 0 {
		return nil, fmt.Errorf("no model versions")
	}
	if !t.HasColumn("frame_id") {
		return nil, fmt.Errorf("table has no frame_id column")
	}

	processed := t.Clone()
	if err := splitImagePaths(processed, len(modelVersions)); err != nil {
		return nil, err
	}

	dstDir := filepath.Join(e.ArtifactsDir, ImageDir)
	if err := addDestPaths(processed, modelVersions, dstDir); err != nil {
		return nil, err
	}

	res := &Result{ImgDir: dstDir}
	for i := range modelVersions {
		srcs, err := processed.Column(fmt.Sprintf("img_cache_%d", i))
		if err != nil {
			return nil, err
		}
		dsts, err := processed.Column(fmt.Sprintf("img_dst_%d", i))
		if err != nil {
			return nil, err
		}
		copied, skipped, missing := e.copyImages(srcs, dsts)
		res.Copied += copied
		res.Skipped += skipped
		res.Missing += missing
	}

	name := security.SanitizeFilename(fileName)
	if filepath.Ext(name) != ".csv" {
		name += ".csv"
	}
	res.CSVPath = filepath.Join(e.ArtifactsDir, name)
	if err := e.FS.MkdirAll(e.ArtifactsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts directory: %v", err)
	}
	data, err := marshalCSV(processed)
	if err != nil {
		return nil, err
	}
	if err := e.FS.WriteFile(res.CSVPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write labeled CSV: %v", err)
	}
	return res, nil
}

// splitImagePaths materialises img_cache_0..n-1 from either the single
// img_cache column or the combined diff column. Combined tables already
// carry the suffixed source columns, so the per-model columns are
// overwritten rather than added.
func splitImagePaths(t *table.Table, models int) error {
	if t.HasColumn(CacheColumn) {
		cells, err := t.Column(CacheColumn)
		if err != nil {
			return err
		}
		return t.SetColumn("img_cache_0", cells)
	}
	if !t.HasColumn(CombinedCacheColumn) {
		return fmt.Errorf("table has neither %s nor %s", CacheColumn, CombinedCacheColumn)
	}
	combined, err := t.Column(CombinedCacheColumn)
	if err != nil {
		return err
	}
	split := make([][]string, models)
	for i := range split {
		split[i] = make([]string, len(combined))
	}
	for r, cell := range combined {
		paths := combine.SplitCachePaths(cell)
		for i := 0; i < models; i++ {
			if i < len(paths) {
				split[i][r] = paths[i]
			}
		}
	}
	for i := 0; i < models; i++ {
		if err := t.SetColumn(fmt.Sprintf("img_cache_%d", i), split[i]); err != nil {
			return err
		}
	}
	return nil
}

// addDestPaths computes per-model image identities and destination paths.
// The image uuid reuses the model version + frame id scheme so exported
// files stay unique across models and frames.
func addDestPaths(t *table.Table, modelVersions []string, dstDir string) error {
	frames, err := t.Column("frame_id")
	if err != nil {
		return err
	}
	for i, mv := range modelVersions {
		uuids := make([]string, len(frames))
		dsts := make([]string, len(frames))
		for r, f := range frames {
			uuids[r] = mv + "_" + f
			dsts[r] = filepath.Join(dstDir, uuids[r]+imageExt)
		}
		if err := t.SetColumn(fmt.Sprintf("img_uuid_%d", i), uuids); err != nil {
			return err
		}
		if err := t.SetColumn(fmt.Sprintf("img_dst_%d", i), dsts); err != nil {
			return err
		}
	}
	return nil
}

// copyImages copies each src to its dst. Existing destinations are
// skipped; missing sources are warned about and counted, never fatal.
func (e *Exporter) copyImages(srcs, dsts []string) (copied, skipped, missing int) {
	for i := range srcs {
		src, dst := srcs[i], dsts[i]
		if src == "" || e.FS.Exists(dst) {
			skipped++
			continue
		}
		if !e.FS.Exists(src) {
			monitoring.Logf("warning: source image not found: %s", src)
			missing++
			continue
		}
		if err := fsutil.CopyFile(e.FS, src, dst); err != nil {
			monitoring.Logf("warning: failed to copy %s: %v", src, err)
			missing++
			continue
		}
		copied++
	}
	return copied, skipped, missing
}

func marshalCSV(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
