// Package combine merges two single-model result tables into one diff
// table. Every source column is carried over with a _0 (first table) or
// _1 (second table) suffix; three unshared columns are added on top: the
// frame id, the comma-joined image cache paths, and the metric delta.
package combine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lanelab/frameview/internal/table"
)

// CachePathSeparator joins the two models' image cache paths in the
// combined column.
const CachePathSeparator = ","

// Combine builds the diff table from tables a and b. Requirements:
// equal row counts, a frame_id column in a, the cache column in both,
// and a numeric diffMetric column in both. The added columns are:
//
//	frame_id                  = a.frame_id
//	<cacheColumn>_combined    = a.<cacheColumn> "," b.<cacheColumn>
//	<diffMetric>_diff         = b.<diffMetric> - a.<diffMetric>
func Combine(a, b *table.Table, cacheColumn, diffMetric string) (*table.Table, error) {
	if a.Len() != b.Len() {
		return nil, fmt.Errorf("row count mismatch: %d vs %d", a.Len(), b.Len())
	}
	if !a.HasColumn("frame_id") {
		return nil, fmt.Errorf("first table has no frame_id column")
	}
	for i, t := range []*table.Table{a, b} {
		if !t.HasColumn(cacheColumn) {
			return nil, fmt.Errorf("table %d has no %q column", i, cacheColumn)
		}
		if !t.HasColumn(diffMetric) {
			return nil, fmt.Errorf("table %d has no %q column", i, diffMetric)
		}
		if !t.IsNumeric(diffMetric) {
			return nil, fmt.Errorf("metric column %q in table %d is not numeric", diffMetric, i)
		}
	}

	cols := make([]string, 0, len(a.Columns)+len(b.Columns)+3)
	for _, c := range a.Columns {
		cols = append(cols, c+"_0")
	}
	for _, c := range b.Columns {
		cols = append(cols, c+"_1")
	}
	cols = append(cols, "frame_id", cacheColumn+"_combined", diffMetric+"_diff")
	out := table.New(cols)

	frameIdx := a.ColumnIndex("frame_id")
	cacheA, cacheB := a.ColumnIndex(cacheColumn), b.ColumnIndex(cacheColumn)
	metricA, metricB := a.ColumnIndex(diffMetric), b.ColumnIndex(diffMetric)

	out.Rows = make([][]string, a.Len())
	for i := 0; i < a.Len(); i++ {
		ra, rb := a.Rows[i], b.Rows[i]
		row := make([]string, 0, len(cols))
		row = append(row, ra...)
		row = append(row, rb...)

		// an empty metric cell on either side yields an empty diff cell,
		// not an aborted combine
		diff := ""
		if ra[metricA] != "" && rb[metricB] != "" {
			va, err := strconv.ParseFloat(ra[metricA], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad %s in first table: %v", i, diffMetric, err)
			}
			vb, err := strconv.ParseFloat(rb[metricB], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad %s in second table: %v", i, diffMetric, err)
			}
			diff = strconv.FormatFloat(vb-va, 'g', -1, 64)
		}

		row = append(row,
			ra[frameIdx],
			ra[cacheA]+CachePathSeparator+rb[cacheB],
			diff,
		)
		out.Rows[i] = row
	}
	return out, nil
}

// SplitCachePaths recovers the per-model image paths from a combined
// cache cell, preserving order.
func SplitCachePaths(combined string) []string {
	if combined == "" {
		return nil
	}
	return strings.Split(combined, CachePathSeparator)
}
