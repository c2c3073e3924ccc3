package query

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lanelab/frameview/internal/table"
)

const sampleCSV = `frame_id,model_version,mean_iou,img_cache
f1,m1,0.9,/cache/f1.png
f2,m1,0.5,/cache/f2.png
f3,m1,0.7,/cache/f3.png
`

func load(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.Read(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("table.Read: %v", err)
	}
	return tbl
}

func TestRunSelectsSubset(t *testing.T) {
	tbl := load(t)
	got, err := Run(context.Background(), tbl, "SELECT frame_id, mean_iou FROM current_df WHERE mean_iou > 0.6 ORDER BY frame_id")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := [][]string{{"f1", "0.9"}, {"f3", "0.7"}}
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"frame_id", "mean_iou"}, got.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestRunComputedColumn(t *testing.T) {
	tbl := load(t)
	got, err := Run(context.Background(), tbl, "SELECT *, mean_iou*2 AS doubled FROM current_df ORDER BY frame_id")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !got.HasColumn("doubled") {
		t.Fatalf("result missing computed column, got %v", got.Columns)
	}
	if v, _ := got.Cell(0, "doubled"); v != "1.8" {
		t.Errorf("doubled[0] = %q, want 1.8", v)
	}
}

func TestRunBadColumnLeavesInputUnchanged(t *testing.T) {
	tbl := load(t)
	before := tbl.Clone()
	_, err := Run(context.Background(), tbl, "SELECT no_such_column FROM current_df")
	if err == nil {
		t.Fatal("expected engine error for unknown column")
	}
	if diff := cmp.Diff(before, tbl); diff != "" {
		t.Errorf("input table changed on failed query (-before +after):\n%s", diff)
	}
}

func TestRunSyntaxErrorIsReported(t *testing.T) {
	tbl := load(t)
	_, err := Run(context.Background(), tbl, "SELEKT * FROM current_df")
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if err.Error() == "" {
		t.Error("engine error text should be passed through")
	}
}

func TestRunEmptyQuery(t *testing.T) {
	tbl := load(t)
	if _, err := Run(context.Background(), tbl, "   "); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestRunAggregates(t *testing.T) {
	tbl := load(t)
	got, err := Run(context.Background(), tbl, "SELECT COUNT(*) AS n, MIN(mean_iou) AS lo FROM current_df")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v, _ := got.Cell(0, "n"); v != "3" {
		t.Errorf("count = %q, want 3", v)
	}
	if v, _ := got.Cell(0, "lo"); v != "0.5" {
		t.Errorf("min = %q, want 0.5", v)
	}
}

func TestRunQuotedColumnNames(t *testing.T) {
	tbl := table.New([]string{"weird col", "x"})
	tbl.Rows = [][]string{{"a", "1"}}
	got, err := Run(context.Background(), tbl, `SELECT "weird col" FROM current_df`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v, _ := got.Cell(0, "weird col"); v != "a" {
		t.Errorf("cell = %q, want a", v)
	}
}
