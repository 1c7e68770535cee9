package pipeline

import (
	"testing"

	"github.com/milhud/cachesight/internal/aggregator"
	"github.com/milhud/cachesight/internal/model"
)

func sampleCacheModel() *model.CacheModel {
	return &model.CacheModel{
		Levels: []model.CacheLevel{
			{Level: 1, Kind: model.KindData, SizeBytes: 4096, LineSizeBytes: 64},
			{Level: 2, Kind: model.KindUnified, SizeBytes: 256 * 1024, LineSizeBytes: 64},
		},
		NUMANodes: 1,
		PageSize:  4096,
	}
}

func thrashingSamples() []model.MissSample {
	var out []model.MissSample
	loc := model.SourceLocation{File: "matmul.c", Function: "multiply", Line: 42}
	for i := 0; i < 10; i++ {
		out = append(out, model.MissSample{
			InstructionAddr: 0x401000,
			MemoryAddr:      uint64(i * 1000),
			LatencyCycles:   200,
			MissedLevel:     model.MissL1,
			Location:        loc,
		})
	}
	return out
}

func TestAnalyzeNilCacheModelIsInvalidArgument(t *testing.T) {
	c := New(DefaultConfig())
	_, err := c.Analyze(thrashingSamples(), nil, nil)
	if !model.IsCode(err, model.CodeInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestAnalyzeInconsistentCacheModel(t *testing.T) {
	c := New(DefaultConfig())
	bad := &model.CacheModel{} // no levels
	_, err := c.Analyze(thrashingSamples(), nil, bad)
	if !model.IsCode(err, model.CodeInconsistentCacheModel) {
		t.Fatalf("expected InconsistentCacheModel, got %v", err)
	}
}

func TestAnalyzeNoDataIsEmptySuccessNotError(t *testing.T) {
	c := New(DefaultConfig())
	result, err := c.Analyze(nil, nil, sampleCacheModel())
	if err != nil {
		t.Fatalf("expected success for empty input, got error: %v", err)
	}
	if len(result.Hotspots) != 0 || len(result.Classified) != 0 || len(result.Recommendations) != 0 {
		t.Fatalf("expected a fully empty Result, got %+v", result)
	}
}

func TestAnalyzeHappyPathThrashing(t *testing.T) {
	c := New(DefaultConfig())
	result, err := c.Analyze(thrashingSamples(), nil, sampleCacheModel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Hotspots) != 1 {
		t.Fatalf("expected 1 hotspot, got %d", len(result.Hotspots))
	}
	if len(result.Classified) != 1 {
		t.Fatalf("expected 1 classified pattern, got %d", len(result.Classified))
	}
	if result.Classified[0].Antipattern != model.AntipatternThrashing {
		t.Errorf("expected THRASHING, got %s", result.Classified[0].Antipattern)
	}
	if len(result.Recommendations) == 0 {
		t.Fatal("expected at least one recommendation")
	}
	foundTiling := false
	for _, r := range result.Recommendations {
		if r.RecType == model.RecLoopTiling {
			foundTiling = true
		}
	}
	if !foundTiling {
		t.Error("expected a LOOP_TILING recommendation for a thrashing hotspot")
	}
	if len(result.Timings) == 0 {
		t.Error("expected stage timings to be recorded")
	}
}

func TestAnalyzeStaticSynthesisOnlyWhenNoSamples(t *testing.T) {
	staticPatterns := []model.StaticPattern{
		{Location: model.SourceLocation{File: "a.c", Line: 10}, PatternClass: model.PatternStrided, Stride: 4096},
	}
	c := New(DefaultConfig())

	// No dynamic samples: the static bridge should seed a synthetic hotspot.
	result, err := c.Analyze(nil, staticPatterns, sampleCacheModel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Hotspots) != 1 || len(result.Classified) != 1 {
		t.Fatalf("expected synthesis to seed exactly one hotspot/classification, got %d/%d",
			len(result.Hotspots), len(result.Classified))
	}

	// With dynamic samples present, static synthesis must not fire, and the
	// static pattern is only used for correlation.
	result2, err := c.Analyze(thrashingSamples(), staticPatterns, sampleCacheModel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result2.Hotspots) != 1 {
		t.Fatalf("expected only the dynamic hotspot, got %d hotspots", len(result2.Hotspots))
	}
}

func TestAnalyzeCapacityReachedPropagates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Aggregator = aggregator.Config{KeyPolicy: aggregator.ByInstruction, MaxHotspots: 1, SampleCap: 100}
	c := New(cfg)

	samples := []model.MissSample{
		{InstructionAddr: 0x1000, MemoryAddr: 0x1000, LatencyCycles: 100, MissedLevel: model.MissL1},
		{InstructionAddr: 0x2000, MemoryAddr: 0x2000, LatencyCycles: 100, MissedLevel: model.MissL1},
	}
	result, err := c.Analyze(samples, nil, sampleCacheModel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.CapacityReached {
		t.Error("expected CapacityReached to be true when max_hotspots is exceeded")
	}
}
