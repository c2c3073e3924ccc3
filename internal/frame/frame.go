// Package frame derives the stable per-frame identity used to attach
// persistent labels to evaluation rows, and defines the fixed label
// taxonomy for frame classification.
package frame

import (
	"fmt"
	"strings"

	"github.com/lanelab/frameview/internal/table"
)

// Labels is the fixed taxonomy for frame classification. Pred:* labels
// describe prediction failures, GT:* labels describe ground-truth defects.
var Labels = []string{
	"Pred:Bias",
	"Pred:FN",
	"Pred:FP",
	"Pred:Curve",
	"Pred:Occ",
	"Pred:Branch",
	"Pred:Merge",
	"GT:Bias",
	"GT:FN",
	"GT:FP",
	"GT:Elev",
	"GT:Incomp",
	"Normal",
}

// DefaultLabel is applied to rows with no stored label.
var DefaultLabel = Labels[0]

// LabelColumn is the working-table column holding the frame label.
const LabelColumn = "label"

var validLabels = func() map[string]bool {
	m := make(map[string]bool, len(Labels))
	for _, l := range Labels {
		m[l] = true
	}
	return m
}()

// ValidLabel checks a label against the taxonomy. Empty strings are not
// valid.
func ValidLabel(label string) bool {
	return validLabels[label]
}

// Frame id columns for single-run and diff tables, in lookup order.
var frameIDColumns = []string{"frame_id", "frame_id_0"}

// ModelVersions extracts the ordered model versions a table covers. A
// single-run table carries a model_version column; a diff table carries
// model_version_0 and model_version_1. The value of the first row is
// taken for each, matching how the per-run exports are produced.
func ModelVersions(t *table.Table) ([]string, error) {
	if t.Len() == 0 {
		return nil, fmt.Errorf("table is empty")
	}
	if v, ok := t.Cell(0, "model_version"); ok {
		return []string{v}, nil
	}
	v0, ok0 := t.Cell(0, "model_version_0")
	v1, ok1 := t.Cell(0, "model_version_1")
	if ok0 && ok1 {
		return []string{v0, v1}, nil
	}
	return nil, fmt.Errorf("table has no model_version or model_version_0/model_version_1 columns")
}

// ID returns the frame identifier for a row, from frame_id or the diff
// table's frame_id_0.
func ID(t *table.Table, row int) (string, error) {
	for _, col := range frameIDColumns {
		if v, ok := t.Cell(row, col); ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("no frame id column in table")
}

// Key builds the frame key: the ordered model versions joined with the
// frame id by underscores. It must be computed identically wherever
// labels are read or written, or labels silently detach from rows.
func Key(models []string, frameID string) string {
	parts := make([]string, 0, len(models)+1)
	parts = append(parts, models...)
	parts = append(parts, frameID)
	return strings.Join(parts, "_")
}

// RowKey derives the frame key for one row of a table.
func RowKey(t *table.Table, row int, models []string) (string, error) {
	id, err := ID(t, row)
	if err != nil {
		return "", err
	}
	return Key(models, id), nil
}
