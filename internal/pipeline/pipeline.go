// Package pipeline implements C7, the pipeline orchestrator: it drives
// the sequence C2 -> C3 -> C6 -> C4 -> C5 behind a single analyze() entry
// point and owns the only stateful component in the core, the in-flight
// hotspot table.
package pipeline

import (
	"github.com/milhud/cachesight/internal/aggregator"
	"github.com/milhud/cachesight/internal/classifier"
	"github.com/milhud/cachesight/internal/model"
	"github.com/milhud/cachesight/internal/pattern"
	"github.com/milhud/cachesight/internal/recommend"
	"github.com/milhud/cachesight/internal/staticbridge"
)

// Result is analyze()'s output triple plus diagnostic timing.
type Result struct {
	Hotspots        []*model.CacheHotspot
	Classified      []*model.ClassifiedPattern
	Recommendations []*model.Recommendation
	Timings         []StageTiming
	CapacityReached bool
}

// Core is the explicit, caller-held value spec.md's Design Notes call
// for in place of any process-wide state: every analyze() call is a pure
// function of a Core's configuration plus its arguments.
type Core struct {
	cfg Config
}

// New constructs a Core from a Config. Callers who only need the
// defaults can pass pipeline.DefaultConfig().
func New(cfg Config) *Core {
	return &Core{cfg: cfg}
}

// Analyze runs samples, static_patterns and cache_model through C2 -> C3
// -> C6 -> C4 -> C5 and returns the ranked output triple. A malformed
// cache model fails fast with InconsistentCacheModel; zero samples and
// zero static patterns is not an error, it returns an empty Result.
func (c *Core) Analyze(samples []model.MissSample, staticPatterns []model.StaticPattern, cacheModel *model.CacheModel) (*Result, error) {
	if cacheModel == nil {
		return nil, model.InvalidArgument("cache model is required")
	}
	if err := cacheModel.Validate(); err != nil {
		return nil, err
	}
	if len(samples) == 0 && len(staticPatterns) == 0 {
		return &Result{}, nil
	}

	timer := NewStageTimer()
	agg, err := aggregator.New(c.cfg.Aggregator)
	if err != nil {
		return nil, err
	}

	if err := timer.Track("ingest", func() error {
		return agg.AddSamples(samples)
	}); err != nil {
		return nil, err
	}

	analyzer := pattern.New(c.cfg.Pattern)
	timer.Track("pattern_analysis", func() error {
		agg.Process(func(h *model.CacheHotspot) {
			analyzer.Enrich(h, cacheModel)
		})
		return nil
	})

	hotspots := agg.GetHotspots(c.cfg.MinSamplesForHotspot, c.cfg.MinMissRateForHotspot)

	var classified []*model.ClassifiedPattern
	if len(samples) == 0 && len(staticPatterns) > 0 {
		timer.Track("static_synthesis", func() error {
			synthHotspots, synthClassified := staticbridge.Synthesize(staticPatterns)
			hotspots = append(hotspots, synthHotspots...)
			classified = append(classified, synthClassified...)
			return nil
		})
	}

	clf := classifier.New(c.cfg.Classifier)
	timer.Track("classification", func() error {
		classified = append(classified, clf.ClassifyAll(dynamicOnly(hotspots, classified), cacheModel)...)
		return nil
	})

	if len(staticPatterns) > 0 {
		timer.Track("static_correlation", func() error {
			staticbridge.Correlate(classified, staticPatterns)
			return nil
		})
	}

	engine := recommend.New(c.cfg.Recommend)
	var recs []*model.Recommendation
	timer.Track("recommendation", func() error {
		recs = engine.AnalyzeAll(classified, cacheModel)
		return nil
	})

	return &Result{
		Hotspots:        hotspots,
		Classified:      classified,
		Recommendations: recs,
		Timings:         timer.Timings(),
		CapacityReached: agg.CapacityReached(),
	}, nil
}

// dynamicOnly returns the hotspots that do not already have a classified
// entry (i.e. excludes the synthetic hotspots C6 already pre-classified),
// so the classifier never re-evaluates a synthesized hotspot.
func dynamicOnly(hotspots []*model.CacheHotspot, alreadyClassified []*model.ClassifiedPattern) []*model.CacheHotspot {
	if len(alreadyClassified) == 0 {
		return hotspots
	}
	seen := make(map[uint64]bool, len(alreadyClassified))
	for _, cp := range alreadyClassified {
		seen[cp.HotspotKey] = true
	}
	out := make([]*model.CacheHotspot, 0, len(hotspots))
	for _, h := range hotspots {
		if !seen[h.Key] {
			out = append(out, h)
		}
	}
	return out
}
