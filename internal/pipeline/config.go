package pipeline

import (
	"github.com/milhud/cachesight/internal/aggregator"
	"github.com/milhud/cachesight/internal/classifier"
	"github.com/milhud/cachesight/internal/pattern"
	"github.com/milhud/cachesight/internal/recommend"
)

// Config aggregates every sub-component's configuration plus the two
// get_hotspots thresholds from spec.md §4.2, so a caller can construct a
// complete Core from one value.
type Config struct {
	Aggregator aggregator.Config
	Pattern    pattern.Config
	Classifier classifier.Config
	Recommend  recommend.Config

	// Thresholds applied by GetHotspots after C3 enrichment and before
	// C4/C5 ever see a hotspot.
	MinSamplesForHotspot int
	MinMissRateForHotspot float64
}

// DefaultConfig returns the defaults named across spec.md §4.2-§4.5.
func DefaultConfig() Config {
	return Config{
		Aggregator:            aggregator.DefaultConfig(),
		Pattern:               pattern.DefaultConfig(),
		Classifier:            classifier.DefaultConfig(),
		Recommend:             recommend.DefaultConfig(),
		MinSamplesForHotspot:  0,
		MinMissRateForHotspot: 0,
	}
}

// Profile is a named configuration preset, in the style of the teacher's
// orchestrator profiles (internal/orchestrator/profiles.go): a
// "quick" profile biased toward fast, low-noise triage, and a
// "thorough" profile that surfaces more marginal hotspots.
type Profile string

const (
	ProfileStandard Profile = "standard"
	ProfileQuick    Profile = "quick"
	ProfileThorough Profile = "thorough"
)

// ConfigForProfile returns a Config tuned for the named profile. Unknown
// profile names fall back to ProfileStandard's settings.
func ConfigForProfile(p Profile) Config {
	cfg := DefaultConfig()
	switch p {
	case ProfileQuick:
		cfg.MinSamplesForHotspot = 10
		cfg.MinMissRateForHotspot = 0.2
		cfg.Recommend.MinExpectedImprovement = 20
	case ProfileThorough:
		cfg.MinSamplesForHotspot = 0
		cfg.MinMissRateForHotspot = 0
		cfg.Classifier.MinConfidenceThreshold = 0.3
		cfg.Recommend.MinExpectedImprovement = 5
	}
	return cfg
}
