package recommend

import (
	"testing"

	"github.com/milhud/cachesight/internal/model"
)

// TestLineWindowDedupCrossesBucketBoundary exercises the Dedup law from
// spec.md §8 against the case a naive line/5 bucket would miss: two
// ACCESS_REORDER candidates in the same function at lines 8 and 11 are
// within lineWindowRadius (5) of each other and must collapse to one
// survivor, even though floor(8/5)=1 and floor(11/5)=2 put them in
// different buckets.
func TestLineWindowDedupCrossesBucketBoundary(t *testing.T) {
	p1 := cp(model.PatternNestedLoop, model.AntipatternNone, model.SourceLocation{File: "mm.c", Function: "mmul", Line: 8})
	p2 := cp(model.PatternNestedLoop, model.AntipatternNone, model.SourceLocation{File: "mm.c", Function: "mmul", Line: 11})

	recs := New(DefaultConfig()).AnalyzeAll([]*model.ClassifiedPattern{p1, p2}, nil)

	count := 0
	for _, r := range recs {
		if r.RecType == model.RecAccessReorder {
			count++
		}
	}
	if count != 1 {
		t.Errorf("ACCESS_REORDER survivors = %d, want 1 (lines 8 and 11 are within the 5-line window)", count)
	}
}

// TestLineWindowDedupKeepsDistantLines checks the converse: candidates
// further apart than lineWindowRadius must not be merged.
func TestLineWindowDedupKeepsDistantLines(t *testing.T) {
	p1 := cp(model.PatternNestedLoop, model.AntipatternNone, model.SourceLocation{File: "mm.c", Function: "mmul", Line: 8})
	p2 := cp(model.PatternNestedLoop, model.AntipatternNone, model.SourceLocation{File: "mm.c", Function: "mmul", Line: 50})

	recs := New(DefaultConfig()).AnalyzeAll([]*model.ClassifiedPattern{p1, p2}, nil)

	count := 0
	for _, r := range recs {
		if r.RecType == model.RecAccessReorder {
			count++
		}
	}
	if count != 2 {
		t.Errorf("ACCESS_REORDER survivors = %d, want 2 (lines 8 and 50 are outside the 5-line window)", count)
	}
}
