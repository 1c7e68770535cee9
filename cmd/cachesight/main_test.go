package main

import (
	"testing"

	"github.com/milhud/cachesight/internal/pipeline"
)

// These mirror what the analyze command's RunE does to turn flags into
// a pipeline.Config, without invoking cobra or the pipeline itself.

func TestProfileFlagSelectsConfig(t *testing.T) {
	tests := []struct {
		profile               string
		wantMinSamples        int
		wantMinImprovement    float64
	}{
		{"quick", 10, 20},
		{"standard", 0, 10},
		{"thorough", 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			cfg := pipeline.ConfigForProfile(pipeline.Profile(tt.profile))
			if cfg.MinSamplesForHotspot != tt.wantMinSamples {
				t.Errorf("profile %q MinSamplesForHotspot = %d, want %d", tt.profile, cfg.MinSamplesForHotspot, tt.wantMinSamples)
			}
			if cfg.Recommend.MinExpectedImprovement != tt.wantMinImprovement {
				t.Errorf("profile %q MinExpectedImprovement = %v, want %v", tt.profile, cfg.Recommend.MinExpectedImprovement, tt.wantMinImprovement)
			}
		})
	}
}

func TestUnknownProfileFallsBackToStandard(t *testing.T) {
	cfg := pipeline.ConfigForProfile(pipeline.Profile("nonexistent"))
	standard := pipeline.ConfigForProfile(pipeline.ProfileStandard)
	if cfg.MinSamplesForHotspot != standard.MinSamplesForHotspot {
		t.Errorf("unknown profile should fall back to standard, got MinSamplesForHotspot=%d", cfg.MinSamplesForHotspot)
	}
}

func TestOutputPathDefaultsToStdoutSentinel(t *testing.T) {
	flag := newAnalyzeCmd().Flags().Lookup("output")
	if flag == nil || flag.DefValue != "-" {
		t.Errorf("default output path should be \"-\"")
	}
}

func TestProgressSilencedWhenQuiet(t *testing.T) {
	quiet := true
	p := newProgress(!quiet)
	if p.enabled {
		t.Error("progress should be disabled when --quiet is set")
	}
}

func TestProgressEnabledByDefault(t *testing.T) {
	quiet := false
	p := newProgress(!quiet)
	if !p.enabled {
		t.Error("progress should be enabled by default")
	}
}
