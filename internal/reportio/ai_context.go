package reportio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/milhud/cachesight/internal/model"
)

// AIContext is a methodology tag plus a generated natural-language prompt
// summarizing a report, adapted from the teacher's model.AIContext /
// output.GenerateAIPrompt shape.
type AIContext struct {
	Methodology   string   `json:"methodology"`
	KnownPatterns []string `json:"known_patterns"`
	Prompt        string   `json:"prompt"`
}

// GenerateAIPrompt builds a prompt summarizing a report's antipattern mix,
// top hotspots and top recommendations, for a downstream LLM agent.
func GenerateAIPrompt(report *Report) *AIContext {
	ctx := &AIContext{
		Methodology:   "Cache hierarchy + miss-sample fusion analysis",
		KnownPatterns: knownAntipatterns(),
	}

	var sb strings.Builder
	sb.WriteString("You are a systems-performance expert specializing in CPU cache behavior. ")
	sb.WriteString("Analyze the following CacheSight report and provide:\n")
	sb.WriteString("1. Root cause analysis for the dominant antipatterns\n")
	sb.WriteString("2. Which recommendations to apply first, and why\n")
	sb.WriteString("3. Risk assessment for applying the automatic recommendations\n\n")

	sb.WriteString(fmt.Sprintf("Hotspots analyzed: %d, Classified: %d, Recommendations: %d\n",
		len(report.Hotspots), len(report.Classified), len(report.Recommendations)))

	if len(report.Classified) > 0 {
		mix := make(map[string]int)
		for _, cp := range report.Classified {
			mix[cp.Antipattern.String()]++
		}
		sb.WriteString("\nAntipattern mix:\n")
		for name, count := range mix {
			sb.WriteString(fmt.Sprintf("  %s: %d\n", name, count))
		}
	}

	top := topSeverity(report.Classified, 5)
	if len(top) > 0 {
		sb.WriteString("\nHighest-severity hotspots:\n")
		for _, cp := range top {
			loc := cp.Hotspot.Location
			sb.WriteString(fmt.Sprintf("  [%s] %s:%d (%s) severity=%.0f confidence=%.2f\n",
				cp.Antipattern, loc.File, loc.Line, loc.Function, cp.SeverityScore, cp.Confidence))
		}
	}

	if len(report.Recommendations) > 0 {
		sb.WriteString("\nTop recommendations:\n")
		for i, r := range report.Recommendations {
			if i == 5 {
				break
			}
			loc := r.Location
			sb.WriteString(fmt.Sprintf("  [P%d] %s %s:%d (%s) expected_improvement=%.0f%%\n",
				r.Priority, r.RecType, loc.File, loc.Line, loc.Function, r.ExpectedImprovementPct))
		}
	}

	if report.CapacityReached {
		sb.WriteString("\nNOTE: the hotspot table hit its capacity limit during this run; ")
		sb.WriteString("some late-arriving instruction keys were dropped rather than tracked.\n")
	}

	sb.WriteString("\nCite the specific antipattern and source location backing each claim.\n")
	ctx.Prompt = sb.String()
	return ctx
}

// topSeverity returns the n most severe classified patterns, highest
// first, without mutating the caller's slice.
func topSeverity(classified []*model.ClassifiedPattern, n int) []*model.ClassifiedPattern {
	if len(classified) == 0 {
		return nil
	}
	sorted := make([]*model.ClassifiedPattern, len(classified))
	copy(sorted, classified)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SeverityScore > sorted[j].SeverityScore })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func knownAntipatterns() []string {
	return []string{
		"HOTSPOT_REUSE: small working set repeatedly evicted despite fitting in cache",
		"THRASHING: working set larger than the cache level scanning it",
		"FALSE_SHARING: independent data from different threads sharing one cache line",
		"IRREGULAR_GATHER_SCATTER: widely scattered, data-dependent addressing",
		"UNCOALESCED: per-element addressing that never batches into contiguous transfers",
		"LOOP_CARRIED_DEP: each iteration's access depends on the previous iteration's result",
		"STREAMING_EVICTION: large sequential scan evicting data before reuse",
		"BANK_CONFLICTS: repeated collisions on the same memory bank from a fixed stride",
	}
}
