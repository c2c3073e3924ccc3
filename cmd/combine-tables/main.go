// Command combine-tables merges two per-model evaluation CSV exports
// into one diff table suitable for the frameview UI. Columns from the
// first table get a _0 suffix and columns from the second a _1 suffix;
// the tool adds the shared frame_id, the comma-joined image cache column,
// and the metric delta.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/lanelab/frameview/internal/combine"
	"github.com/lanelab/frameview/internal/table"
)

// Config holds the combiner's flag values.
type Config struct {
	TableA      string
	TableB      string
	ModelA      string
	ModelB      string
	DiffMetric  string
	CacheColumn string
	Output      string
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.TableA, "a", "", "First model's CSV export (required)")
	flag.StringVar(&cfg.TableB, "b", "", "Second model's CSV export (required)")
	flag.StringVar(&cfg.ModelA, "model-a", "", "Model version for the first table (default: its model_version column)")
	flag.StringVar(&cfg.ModelB, "model-b", "", "Model version for the second table (default: its model_version column)")
	flag.StringVar(&cfg.DiffMetric, "d", "", "Metric column to diff (required)")
	flag.StringVar(&cfg.CacheColumn, "c", "img_cache", "Image cache path column")
	flag.StringVar(&cfg.Output, "o", "", "Output CSV path (default: <modelA>_<modelB>.csv)")
	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()
	if cfg.TableA == "" || cfg.TableB == "" || cfg.DiffMetric == "" {
		flag.Usage()
		os.Exit(2)
	}

	a, err := loadTable(cfg.TableA, cfg.ModelA)
	if err != nil {
		log.Fatalf("failed to load %s: %v", cfg.TableA, err)
	}
	b, err := loadTable(cfg.TableB, cfg.ModelB)
	if err != nil {
		log.Fatalf("failed to load %s: %v", cfg.TableB, err)
	}

	combined, err := combine.Combine(a, b, cfg.CacheColumn, cfg.DiffMetric)
	if err != nil {
		log.Fatalf("failed to combine tables: %v", err)
	}

	out := cfg.Output
	if out == "" {
		ma, _ := a.Cell(0, "model_version")
		mb, _ := b.Cell(0, "model_version")
		out = fmt.Sprintf("%s_%s.csv", ma, mb)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("failed to create output directory: %v", err)
		}
	}
	if err := combined.WriteFile(out); err != nil {
		log.Fatalf("failed to write combined table: %v", err)
	}
	log.Printf("wrote %d rows x %d columns to %s", combined.Len(), len(combined.Columns), out)
}

// loadTable reads a per-model CSV, ensuring it carries a model_version
// column. A missing column is filled from the -model-* flag so older
// exports still combine.
func loadTable(path, modelVersion string) (*table.Table, error) {
	t, err := table.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("table is empty")
	}
	if !t.HasColumn("model_version") {
		if modelVersion == "" {
			return nil, fmt.Errorf("no model_version column; pass the model version flag")
		}
		cells := make([]string, t.Len())
		for i := range cells {
			cells[i] = modelVersion
		}
		if err := t.AddColumn("model_version", cells); err != nil {
			return nil, err
		}
	}
	return t, nil
}
