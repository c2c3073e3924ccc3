package web

import (
	"fmt"
	"math"
	"net/http"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/lanelab/frameview/internal/export"
	"github.com/lanelab/frameview/internal/httputil"
)

// ColumnStats summarises a numeric column of the working table.
type ColumnStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	P10    float64 `json:"p10"`
	P90    float64 `json:"p90"`
}

// handleStats returns summary statistics for a numeric column. Without a
// column parameter it summarises the table's metric-diff column, which is
// the usual question asked of a diff table.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	t := s.session.Current()
	if t == nil {
		httputil.BadRequest(w, "no table loaded")
		return
	}
	column := r.URL.Query().Get("column")
	if column == "" {
		column = export.DiffColumn(t)
	}
	if column == "" {
		httputil.BadRequest(w, "no numeric diff column found; pass ?column=")
		return
	}
	if !t.IsNumeric(column) {
		httputil.BadRequest(w, fmt.Sprintf("column %q is not numeric", column))
		return
	}
	raw, err := t.Floats(column)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	vals := raw[:0:0]
	for _, v := range raw {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		httputil.BadRequest(w, fmt.Sprintf("column %q has no values", column))
		return
	}
	sort.Float64s(vals)

	httputil.WriteJSONOK(w, ColumnStats{
		Column: column,
		Count:  len(vals),
		Mean:   stat.Mean(vals, nil),
		StdDev: stat.StdDev(vals, nil),
		Min:    vals[0],
		Max:    vals[len(vals)-1],
		Median: stat.Quantile(0.5, stat.Empirical, vals, nil),
		P10:    stat.Quantile(0.1, stat.Empirical, vals, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, vals, nil),
	})
}
