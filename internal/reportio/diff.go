package reportio

import (
	"fmt"
	"math"
	"strings"

	"github.com/milhud/cachesight/internal/model"
)

// MetricChange is one comparison point between a baseline and a current
// report, adapted from the teacher's internal/diff.MetricChange shape.
type MetricChange struct {
	Metric       string  `json:"metric"`
	OldValue     float64 `json:"old_value"`
	NewValue     float64 `json:"new_value"`
	Delta        float64 `json:"delta"`
	DeltaPct     float64 `json:"delta_pct"`
	Direction    string  `json:"direction"`    // "regression", "improvement", "unchanged"
	Significance string  `json:"significance"` // "high", "medium", "low"
}

// Diff is the comparison between two CacheSight runs.
type Diff struct {
	Baseline     string         `json:"baseline"`
	Current      string         `json:"current"`
	Changes      []MetricChange `json:"changes"`
	Regressions  int            `json:"regressions"`
	Improvements int            `json:"improvements"`
	AntipatternMixDelta map[string]int `json:"antipattern_mix_delta"`
}

// Compare computes a Diff between two reports, the way
// internal/diff.Compare compares two sysdiag reports but retargeted at
// CacheSight's own severity/recommendation metrics instead of USE
// metrics.
func Compare(baseline, current *Report) *Diff {
	d := &Diff{
		Baseline:            baseline.ReportID,
		Current:             current.ReportID,
		AntipatternMixDelta: antipatternMixDelta(baseline.Classified, current.Classified),
	}

	addChange(d, "hotspot_count", float64(len(baseline.Hotspots)), float64(len(current.Hotspots)), true)
	addChange(d, "classified_count", float64(len(baseline.Classified)), float64(len(current.Classified)), true)
	addChange(d, "recommendation_count", float64(len(baseline.Recommendations)), float64(len(current.Recommendations)), false)
	addChange(d, "mean_severity", meanSeverity(baseline.Classified), meanSeverity(current.Classified), true)
	addChange(d, "mean_expected_improvement", meanImprovement(baseline.Recommendations), meanImprovement(current.Recommendations), false)

	for _, c := range d.Changes {
		switch c.Direction {
		case "regression":
			d.Regressions++
		case "improvement":
			d.Improvements++
		}
	}
	return d
}

func addChange(d *Diff, metric string, oldVal, newVal float64, higherIsWorse bool) {
	delta := newVal - oldVal
	deltaPct := 0.0
	if oldVal != 0 {
		deltaPct = (delta / math.Abs(oldVal)) * 100
	}
	if math.Abs(deltaPct) < 1.0 && math.Abs(delta) < 0.1 {
		return
	}

	direction := "unchanged"
	if higherIsWorse {
		if deltaPct > 5 {
			direction = "regression"
		} else if deltaPct < -5 {
			direction = "improvement"
		}
	} else {
		if deltaPct < -5 {
			direction = "regression"
		} else if deltaPct > 5 {
			direction = "improvement"
		}
	}

	significance := "low"
	switch {
	case math.Abs(deltaPct) >= 50:
		significance = "high"
	case math.Abs(deltaPct) >= 20:
		significance = "medium"
	}

	d.Changes = append(d.Changes, MetricChange{
		Metric:       metric,
		OldValue:     oldVal,
		NewValue:     newVal,
		Delta:        delta,
		DeltaPct:     deltaPct,
		Direction:    direction,
		Significance: significance,
	})
}

func meanSeverity(classified []*model.ClassifiedPattern) float64 {
	if len(classified) == 0 {
		return 0
	}
	var sum float64
	for _, cp := range classified {
		sum += cp.SeverityScore
	}
	return sum / float64(len(classified))
}

func meanImprovement(recs []*model.Recommendation) float64 {
	if len(recs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range recs {
		sum += r.ExpectedImprovementPct
	}
	return sum / float64(len(recs))
}

func antipatternMixDelta(baseline, current []*model.ClassifiedPattern) map[string]int {
	counts := func(patterns []*model.ClassifiedPattern) map[string]int {
		m := make(map[string]int)
		for _, cp := range patterns {
			m[cp.Antipattern.String()]++
		}
		return m
	}
	before, after := counts(baseline), counts(current)

	delta := make(map[string]int)
	for name, n := range after {
		delta[name] = n - before[name]
	}
	for name, n := range before {
		if _, ok := after[name]; !ok {
			delta[name] = -n
		}
	}
	return delta
}

// Format renders a Diff as a human-readable summary, in the style of the
// teacher's internal/diff.FormatDiff.
func Format(d *Diff) string {
	var sb strings.Builder
	sb.WriteString("=== CacheSight Report Diff ===\n")
	sb.WriteString(fmt.Sprintf("Baseline: %s\nCurrent:  %s\n\n", d.Baseline, d.Current))
	sb.WriteString(fmt.Sprintf("Regressions: %d, Improvements: %d\n\n", d.Regressions, d.Improvements))

	if d.Regressions > 0 {
		sb.WriteString("Regressions:\n")
		for _, c := range d.Changes {
			if c.Direction == "regression" {
				sb.WriteString(fmt.Sprintf("  [%s] %s: %.2f -> %.2f (%+.1f%%)\n",
					strings.ToUpper(c.Significance), c.Metric, c.OldValue, c.NewValue, c.DeltaPct))
			}
		}
		sb.WriteString("\n")
	}
	if d.Improvements > 0 {
		sb.WriteString("Improvements:\n")
		for _, c := range d.Changes {
			if c.Direction == "improvement" {
				sb.WriteString(fmt.Sprintf("  [%s] %s: %.2f -> %.2f (%+.1f%%)\n",
					strings.ToUpper(c.Significance), c.Metric, c.OldValue, c.NewValue, c.DeltaPct))
			}
		}
	}
	return sb.String()
}
