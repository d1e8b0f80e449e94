package sizeopt

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
)

// Decision is the pipeline outcome for one asset.
type Decision struct {
	AssetName      string            `csv:"asset" json:"asset"`
	Kind           AssetKind         `csv:"kind" json:"kind"`
	Format         CompressionFormat `csv:"format" json:"format"`
	OriginalBytes  int64             `csv:"original_bytes" json:"original_bytes"`
	EstimatedBytes int64             `csv:"estimated_bytes" json:"estimated_bytes"`
	SavingsFrac    float64           `csv:"savings_frac" json:"savings_frac"`
	Accepted       bool              `csv:"accepted" json:"accepted"`
	Reason         string            `csv:"reason" json:"reason,omitempty"`
}

// SizeReport is the accumulated output of one pipeline run.
type SizeReport struct {
	RunID           string     `json:"run_id"`
	Timestamp       time.Time  `json:"timestamp"`
	Platform        string     `json:"platform"`
	Tier            string     `json:"tier"`
	Decisions       []Decision `json:"decisions"`
	TotalBefore     int64      `json:"total_before"`
	TotalAfter      int64      `json:"total_after"`
	TotalSavedBytes int64      `json:"total_saved_bytes"`
	SavingsPercent  float64    `json:"savings_percent"`
}

// AcceptedCount returns the number of accepted changes.
func (r *SizeReport) AcceptedCount() int {
	n := 0
	for _, d := range r.Decisions {
		if d.Accepted {
			n++
		}
	}
	return n
}

// WriteCSV writes the per-asset decisions as CSV.
func (r *SizeReport) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report csv: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&r.Decisions, f); err != nil {
		return fmt.Errorf("writing report csv: %w", err)
	}
	return nil
}

// WriteJSON writes the full report as indented JSON.
func (r *SizeReport) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report json: %w", err)
	}
	return nil
}
