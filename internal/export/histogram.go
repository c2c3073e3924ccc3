package export

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/lanelab/frameview/internal/security"
	"github.com/lanelab/frameview/internal/table"
)

// DiffColumn returns the first *_diff numeric column of a table, or "".
func DiffColumn(t *table.Table) string {
	for _, c := range t.Columns {
		if strings.HasSuffix(c, "_diff") && t.IsNumeric(c) {
			return c
		}
	}
	return ""
}

// WriteDiffHistogram renders a histogram PNG of the table's metric-diff
// column next to the exported CSV. It is a no-op (empty path, nil error)
// when the table carries no diff column, so single-run exports skip it.
func (e *Exporter) WriteDiffHistogram(t *table.Table, baseName string) (string, error) {
	col := DiffColumn(t)
	if col == "" {
		return "", nil
	}
	vals, err := t.Floats(col)
	if err != nil {
		return "", err
	}
	var pts plotter.Values
	for _, v := range vals {
		if !math.IsNaN(v) {
			pts = append(pts, v)
		}
	}
	if len(pts) == 0 {
		return "", nil
	}

	p := plot.New()
	p.Title.Text = col + " distribution"
	p.X.Label.Text = col
	p.Y.Label.Text = "frames"
	h, err := plotter.NewHist(pts, 30)
	if err != nil {
		return "", fmt.Errorf("failed to build histogram: %v", err)
	}
	p.Add(h)

	base := strings.TrimSuffix(security.SanitizeFilename(baseName), ".csv")
	name := base + "_" + col + ".png"
	path := filepath.Join(e.ArtifactsDir, name)

	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return "", fmt.Errorf("failed to render histogram: %v", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to render histogram: %v", err)
	}
	if err := e.FS.MkdirAll(e.ArtifactsDir, 0755); err != nil {
		return "", err
	}
	if err := e.FS.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write histogram: %v", err)
	}
	return path, nil
}
