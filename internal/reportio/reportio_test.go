package reportio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/milhud/cachesight/internal/model"
	"github.com/milhud/cachesight/internal/pipeline"
)

func sampleResult(severity float64, recCount int) *pipeline.Result {
	h := &model.CacheHotspot{Key: 1, Location: model.SourceLocation{File: "a.c", Line: 1, Function: "f"}}
	cp := &model.ClassifiedPattern{HotspotKey: 1, Hotspot: h, Antipattern: model.AntipatternThrashing, SeverityScore: severity}
	recs := make([]*model.Recommendation, recCount)
	for i := range recs {
		recs[i] = &model.Recommendation{RecType: model.RecLoopTiling, ExpectedImprovementPct: 40}
	}
	return &pipeline.Result{
		Hotspots:   []*model.CacheHotspot{h},
		Classified: []*model.ClassifiedPattern{cp},
		Recommendations: recs,
	}
}

func TestWriteAndLoadJSONRoundTrip(t *testing.T) {
	r := FromResult(sampleResult(80, 2), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	if err := WriteJSON(r, path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	loaded, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if loaded.ReportID != r.ReportID {
		t.Errorf("ReportID round-trip: got %q, want %q", loaded.ReportID, r.ReportID)
	}
	if len(loaded.Classified) != 1 {
		t.Errorf("Classified len = %d, want 1", len(loaded.Classified))
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected report file to exist: %v", err)
	}
}

func TestCompareDetectsRegression(t *testing.T) {
	baseline := FromResult(sampleResult(50, 1), time.Now())
	current := FromResult(sampleResult(90, 1), time.Now())

	d := Compare(baseline, current)
	if d.Regressions == 0 {
		t.Errorf("Compare: expected at least one regression for severity 50->90, got none: %+v", d.Changes)
	}
}

func TestGenerateAIPromptIncludesAntipatternMix(t *testing.T) {
	r := FromResult(sampleResult(85, 1), time.Now())
	ctx := GenerateAIPrompt(r)
	if ctx.Prompt == "" {
		t.Fatal("Prompt is empty")
	}
	if len(ctx.KnownPatterns) == 0 {
		t.Error("KnownPatterns is empty")
	}
}
