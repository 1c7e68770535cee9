// Package reportio serializes pipeline results to JSON, compares two
// prior runs, and generates an LLM-facing summary of a run's findings.
// None of this is part of the core (spec.md §6 places report rendering
// with external collaborators); it exists purely as a caller of
// internal/pipeline.
package reportio

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/milhud/cachesight/internal/model"
	"github.com/milhud/cachesight/internal/pipeline"
)

// Report is the on-disk artifact produced from one pipeline.Result. Its
// field names are the external contract named in spec.md §6: changing
// them is a breaking change for any downstream emitter.
type Report struct {
	ReportID        string                     `json:"report_id"`
	GeneratedAt     string                     `json:"generated_at"`
	Hotspots        []*model.CacheHotspot      `json:"hotspots"`
	Classified      []*model.ClassifiedPattern `json:"classified_patterns"`
	Recommendations []*model.Recommendation    `json:"recommendations"`
	Timings         []pipeline.StageTiming     `json:"timings,omitempty"`
	CapacityReached bool                       `json:"hotspot_capacity_reached"`
}

// FromResult wraps a pipeline.Result with a fresh report identity and
// timestamp, ready for serialization.
func FromResult(r *pipeline.Result, generatedAt time.Time) *Report {
	return &Report{
		ReportID:        uuid.NewString(),
		GeneratedAt:     generatedAt.Format(time.RFC3339),
		Hotspots:        r.Hotspots,
		Classified:      r.Classified,
		Recommendations: r.Recommendations,
		Timings:         r.Timings,
		CapacityReached: r.CapacityReached,
	}
}

// WriteJSON writes a Report to path as indented JSON, in the style of
// the teacher's internal/output.WriteJSON.
func WriteJSON(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads and parses a Report previously written by WriteJSON.
func LoadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &report, nil
}
