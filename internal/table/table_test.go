package table

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleCSV = `frame_id,model_version,mean_iou,img_cache
f1,m1,0.91,/cache/f1.png
f2,m1,0.85,/cache/f2.png
f3,m1,0.99,/cache/f3.png
`

func mustRead(t *testing.T, csv string) *Table {
	t.Helper()
	tbl, err := Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return tbl
}

func TestReadParsesHeaderAndRows(t *testing.T) {
	tbl := mustRead(t, sampleCSV)
	wantCols := []string{"frame_id", "model_version", "mean_iou", "img_cache"}
	if diff := cmp.Diff(wantCols, tbl.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tbl.Len())
	}
	if v, _ := tbl.Cell(1, "mean_iou"); v != "0.85" {
		t.Errorf("Cell(1, mean_iou) = %q, want 0.85", v)
	}
}

func TestReadRejectsEmptyInput(t *testing.T) {
	if _, err := Read(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty CSV")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	tbl := mustRead(t, sampleCSV)
	var buf bytes.Buffer
	if err := tbl.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	back, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read back: %v", err)
	}
	if diff := cmp.Diff(tbl, back); diff != "" {
		t.Errorf("round trip mismatch (-orig +back):\n%s", diff)
	}
}

func TestFileRoundTrip(t *testing.T) {
	tbl := mustRead(t, sampleCSV)
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := tbl.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff(tbl, back); diff != "" {
		t.Errorf("file round trip mismatch (-orig +back):\n%s", diff)
	}
}

func TestIsNumeric(t *testing.T) {
	tbl := mustRead(t, sampleCSV)
	if !tbl.IsNumeric("mean_iou") {
		t.Error("mean_iou should be numeric")
	}
	if tbl.IsNumeric("frame_id") {
		t.Error("frame_id should not be numeric")
	}
	if tbl.IsNumeric("no_such_column") {
		t.Error("missing column should not be numeric")
	}
}

func TestSortNumericDescending(t *testing.T) {
	tbl := mustRead(t, sampleCSV)
	sorted, err := tbl.Sort("mean_iou", false)
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	got, _ := sorted.Column("frame_id")
	want := []string{"f3", "f1", "f2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sort order mismatch (-want +got):\n%s", diff)
	}
	// original untouched
	first, _ := tbl.Cell(0, "frame_id")
	if first != "f1" {
		t.Errorf("Sort mutated the receiver: first row %q", first)
	}
}

func TestSortNumericComparesAsFloats(t *testing.T) {
	tbl := mustRead(t, "id,v\na,9\nb,10\nc,2\n")
	sorted, err := tbl.Sort("v", true)
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	got, _ := sorted.Column("id")
	want := []string{"c", "a", "b"} // lexical sort would give b,c,a
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("numeric sort mismatch (-want +got):\n%s", diff)
	}
}

func TestSortUnknownColumn(t *testing.T) {
	tbl := mustRead(t, sampleCSV)
	if _, err := tbl.Sort("nope", true); err == nil {
		t.Fatal("expected error sorting by unknown column")
	}
}

func TestPagination(t *testing.T) {
	tbl := mustRead(t, sampleCSV)
	if got := tbl.PageCount(2); got != 2 {
		t.Errorf("PageCount(2) = %d, want 2", got)
	}
	if got := len(tbl.Page(1, 2)); got != 2 {
		t.Errorf("Page(1,2) has %d rows, want 2", got)
	}
	if got := len(tbl.Page(2, 2)); got != 1 {
		t.Errorf("Page(2,2) has %d rows, want 1", got)
	}
	if got := tbl.Page(3, 2); got != nil {
		t.Errorf("Page(3,2) = %v, want nil", got)
	}
}

func TestAddColumn(t *testing.T) {
	tbl := mustRead(t, sampleCSV)
	if err := tbl.AddColumn("label", []string{"a", "b", "c"}); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if v, _ := tbl.Cell(2, "label"); v != "c" {
		t.Errorf("Cell(2, label) = %q, want c", v)
	}
	if err := tbl.AddColumn("label", []string{"x", "y", "z"}); err == nil {
		t.Error("expected error adding duplicate column")
	}
	if err := tbl.AddColumn("short", []string{"only-one"}); err == nil {
		t.Error("expected error for cell count mismatch")
	}
}

func TestSetColumnOverwritesExisting(t *testing.T) {
	tbl := mustRead(t, sampleCSV)
	if err := tbl.SetColumn("img_cache", []string{"/a", "/b", "/c"}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if v, _ := tbl.Cell(1, "img_cache"); v != "/b" {
		t.Errorf("Cell(1, img_cache) = %q, want /b", v)
	}
	// no duplicate column was added
	wantCols := []string{"frame_id", "model_version", "mean_iou", "img_cache"}
	if diff := cmp.Diff(wantCols, tbl.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestSetColumnAppendsNew(t *testing.T) {
	tbl := mustRead(t, sampleCSV)
	if err := tbl.SetColumn("label", []string{"a", "b", "c"}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if v, _ := tbl.Cell(2, "label"); v != "c" {
		t.Errorf("Cell(2, label) = %q, want c", v)
	}
	if err := tbl.SetColumn("short", []string{"only-one"}); err == nil {
		t.Error("expected error for cell count mismatch")
	}
}

func TestCloneIsDeep(t *testing.T) {
	tbl := mustRead(t, sampleCSV)
	c := tbl.Clone()
	if err := c.SetCell(0, "frame_id", "changed"); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if v, _ := tbl.Cell(0, "frame_id"); v != "f1" {
		t.Errorf("clone write leaked into original: %q", v)
	}
}

func TestFloats(t *testing.T) {
	tbl := mustRead(t, sampleCSV)
	vals, err := tbl.Floats("mean_iou")
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	if len(vals) != 3 || vals[0] != 0.91 {
		t.Errorf("Floats = %v", vals)
	}
}
