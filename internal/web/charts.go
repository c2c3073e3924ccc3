package web

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/lanelab/frameview/internal/export"
	"github.com/lanelab/frameview/internal/httputil"
)

const histogramBins = 20

// handleDiffChart renders an HTML page with two charts over the diff
// table: a per-frame scatter of metric_0 against metric_1, and a
// histogram of the metric delta. Single-run tables have no diff column
// and get a 400.
func (s *Server) handleDiffChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	t := s.session.Current()
	if t == nil {
		httputil.BadRequest(w, "no table loaded")
		return
	}
	diffCol := export.DiffColumn(t)
	if diffCol == "" {
		httputil.BadRequest(w, "working table has no metric diff column")
		return
	}
	metric := strings.TrimSuffix(diffCol, "_diff")

	page := components.NewPage()
	page.PageTitle = "Metric diff"

	if t.HasColumn(metric+"_0") && t.HasColumn(metric+"_1") {
		m0, err0 := t.Floats(metric + "_0")
		m1, err1 := t.Floats(metric + "_1")
		if err0 == nil && err1 == nil {
			data := make([]opts.ScatterData, 0, len(m0))
			for i := range m0 {
				if math.IsNaN(m0[i]) || math.IsNaN(m1[i]) {
					continue
				}
				data = append(data, opts.ScatterData{Value: []interface{}{m0[i], m1[i]}})
			}
			scatter := charts.NewScatter()
			scatter.SetGlobalOptions(
				charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s per frame", metric), Subtitle: fmt.Sprintf("%d frames", len(data))}),
				charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
				charts.WithXAxisOpts(opts.XAxis{Name: metric + "_0"}),
				charts.WithYAxisOpts(opts.YAxis{Name: metric + "_1"}),
			)
			scatter.AddSeries("frames", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
			page.AddCharts(scatter)
		}
	}

	diffs, err := t.Floats(diffCol)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	labels, counts := histogram(diffs, histogramBins)
	barData := make([]opts.BarData, len(counts))
	for i, c := range counts {
		barData[i] = opts.BarData{Value: c}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: diffCol + " distribution"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: diffCol}),
		charts.WithYAxisOpts(opts.YAxis{Name: "frames"}),
	)
	bar.SetXAxis(labels).AddSeries("frames", barData)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// histogram buckets values into n equal-width bins, skipping NaNs.
// Labels are the bin lower bounds.
func histogram(values []float64, n int) ([]string, []int) {
	var clean []float64
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 || n < 1 {
		return nil, nil
	}
	lo, hi := clean[0], clean[0]
	for _, v := range clean {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	width := (hi - lo) / float64(n)
	if width == 0 {
		return []string{formatBound(lo)}, []int{len(clean)}
	}
	counts := make([]int, n)
	for _, v := range clean {
		bin := int((v - lo) / width)
		if bin >= n {
			bin = n - 1
		}
		counts[bin]++
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = formatBound(lo + float64(i)*width)
	}
	return labels, counts
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
