package labelstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "labels.csv"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestSetAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "labels.csv")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set("m1_m2_f1", "Pred:FN"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("m1_m2_f2", "Normal"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// a fresh open must see exactly what was written
	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	want := map[string]string{"m1_m2_f1": "Pred:FN", "m1_m2_f2": "Normal"}
	if diff := cmp.Diff(want, reloaded.Snapshot()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSetOverwritesAndRewritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.csv")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set("k", "Pred:FP"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("k", "GT:Bias"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "Pred:FP") {
		t.Errorf("old label survived the rewrite:\n%s", content)
	}
	if !strings.Contains(content, "GT:Bias") {
		t.Errorf("new label missing:\n%s", content)
	}
	if !strings.HasPrefix(content, "uuid,label") {
		t.Errorf("missing header row:\n%s", content)
	}
}

func TestSetRejectsInvalidLabel(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "labels.csv"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set("k", "not-a-label"); err == nil {
		t.Error("expected error for invalid label")
	}
	if err := s.Set("", "Normal"); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestGet(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "labels.csv"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Get on missing key should report !ok")
	}
	if err := s.Set("k", "Normal"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if l, ok := s.Get("k"); !ok || l != "Normal" {
		t.Errorf("Get = %q, %v", l, ok)
	}
}
