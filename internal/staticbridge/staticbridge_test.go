package staticbridge

import (
	"testing"

	"github.com/milhud/cachesight/internal/model"
)

func TestSynthesizeOneStaticPattern(t *testing.T) {
	patterns := []model.StaticPattern{
		{Location: model.SourceLocation{File: "mm.c", Function: "mmul", Line: 12}, PatternClass: model.PatternNestedLoop},
	}
	hotspots, classified := Synthesize(patterns)

	if len(hotspots) != 1 || len(classified) != 1 {
		t.Fatalf("Synthesize produced %d hotspots / %d classified, want 1/1", len(hotspots), len(classified))
	}
	cp := classified[0]
	if cp.Antipattern != model.AntipatternThrashing {
		t.Errorf("Antipattern = %v, want THRASHING", cp.Antipattern)
	}
	if cp.SeverityScore != 75 {
		t.Errorf("SeverityScore = %v, want 75", cp.SeverityScore)
	}
	if cp.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", cp.Confidence)
	}
	if cp.AffectedLevelsMask != 0b111 {
		t.Errorf("AffectedLevelsMask = %03b, want 111", cp.AffectedLevelsMask)
	}
}

func TestSynthesizeCapsAtTen(t *testing.T) {
	patterns := make([]model.StaticPattern, 25)
	for i := range patterns {
		patterns[i] = model.StaticPattern{Location: model.SourceLocation{File: "x.c", Line: i}}
	}
	hotspots, classified := Synthesize(patterns)
	if len(hotspots) != 10 || len(classified) != 10 {
		t.Errorf("Synthesize len = %d/%d, want 10/10", len(hotspots), len(classified))
	}
}

func TestCorrelateMatchesByFileLine(t *testing.T) {
	h := &model.CacheHotspot{Location: model.SourceLocation{File: "mm.c", Line: 12}}
	cp := &model.ClassifiedPattern{Hotspot: h}

	patterns := []model.StaticPattern{
		{Location: model.SourceLocation{File: "mm.c", Line: 12}, ArrayOrField: "a"},
		{Location: model.SourceLocation{File: "mm.c", Line: 99}, ArrayOrField: "b"},
	}
	Correlate([]*model.ClassifiedPattern{cp}, patterns)

	if len(cp.CorrelatedStatic) != 1 {
		t.Fatalf("CorrelatedStatic = %+v, want exactly one match", cp.CorrelatedStatic)
	}
	if cp.CorrelatedStatic[0].ArrayOrField != "a" {
		t.Errorf("CorrelatedStatic[0] = %+v, want the line-12 pattern", cp.CorrelatedStatic[0])
	}
}

func TestCorrelateSkipsAlreadyAttachedSyntheticSeed(t *testing.T) {
	patterns := []model.StaticPattern{
		{Location: model.SourceLocation{File: "mm.c", Function: "mmul", Line: 12}, PatternClass: model.PatternNestedLoop},
	}
	_, classified := Synthesize(patterns)

	// Re-running Correlate against the same pattern set a synthetic
	// hotspot was already seeded from must not duplicate the entry
	// Synthesize already attached.
	Correlate(classified, patterns)

	if len(classified[0].CorrelatedStatic) != 1 {
		t.Errorf("CorrelatedStatic = %+v, want exactly one entry (no duplicate of the seeding pattern)", classified[0].CorrelatedStatic)
	}
}
