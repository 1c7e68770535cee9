// Package recommend implements C5, the recommendation engine: per
// classified pattern it generates typed recommendations, then applies the
// two-phase dedup, conflict filter, global minimum-improvement filter and
// final ranking from spec.md §4.5.
package recommend

import (
	"sort"

	"github.com/milhud/cachesight/internal/model"
)

// Config carries the one engine-wide knob named in spec.md §4.5.
type Config struct {
	MinExpectedImprovement float64
}

// DefaultConfig returns the default floor.
func DefaultConfig() Config {
	return Config{MinExpectedImprovement: 10.0}
}

// Engine runs C5 over classified patterns.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// AnalyzeAll generates, filters, dedupes and ranks recommendations across
// every classified pattern.
func (e *Engine) AnalyzeAll(classified []*model.ClassifiedPattern, cm *model.CacheModel) []*model.Recommendation {
	var cands []candidate
	for _, cp := range classified {
		cands = append(cands, rulesFor(cp, cm)...)
	}

	sensible := cands[:0:0]
	for _, c := range cands {
		if phaseASensible(c) {
			sensible = append(sensible, c)
		}
	}

	deduped := dedupePhaseB(sensible)
	filtered := conflictFilter(deduped)

	final := filtered[:0:0]
	for _, c := range filtered {
		if c.ExpectedImprovementPct >= e.cfg.MinExpectedImprovement {
			final = append(final, c)
		}
	}

	rank(final)

	out := make([]*model.Recommendation, len(final))
	for i := range final {
		rec := final[i].Recommendation
		out[i] = &rec
	}
	return out
}

// rank implements spec.md §4.5's stable sort: priority ascending,
// expected_improvement descending, confidence descending, difficulty
// ascending.
func rank(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.ExpectedImprovementPct != b.ExpectedImprovementPct {
			return a.ExpectedImprovementPct > b.ExpectedImprovementPct
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.ImplementationDifficulty < b.ImplementationDifficulty
	})
}
