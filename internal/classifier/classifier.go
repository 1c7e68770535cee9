// Package classifier implements C4, the antipattern classifier: it
// evaluates a fixed, ordered table of detectors against each hotspot and
// the cache model, and assigns exactly one antipattern per hotspot.
package classifier

import (
	"fmt"
	"math"

	"github.com/milhud/cachesight/internal/model"
)

// Config carries the one classifier-wide knob named in spec.md §4.4.
type Config struct {
	MinConfidenceThreshold float64
}

// DefaultConfig returns the default threshold.
func DefaultConfig() Config {
	return Config{MinConfidenceThreshold: 0.5}
}

// verdict is what a single detector returns: whether it fired, its
// severity, and (when it fired) the supporting description/root cause.
type verdict struct {
	fired       bool
	severity    float64
	description string
	rootCause   string
}

type detector struct {
	antipattern model.Antipattern
	confidence  float64
	evaluate    func(h *model.CacheHotspot, cm *model.CacheModel) verdict
}

// detectorTable is evaluated top-to-bottom; ties in severity are broken
// by this fixed order (spec.md §4.4): FALSE_SHARING > THRASHING >
// STREAMING_EVICTION > IRREGULAR_GATHER_SCATTER > HOTSPOT_REUSE >
// UNCOALESCED > LOOP_CARRIED_DEP. The table-of-closures shape mirrors the
// teacher's model.Threshold/executor.ToolSpec registries.
var detectorTable = []detector{
	{model.AntipatternFalseSharing, 0.95, detectFalseSharing},
	{model.AntipatternThrashing, 0.85, detectThrashing},
	{model.AntipatternStreamingEviction, 0.80, detectStreamingEviction},
	{model.AntipatternIrregularGatherScatter, 0.75, detectGatherScatter},
	{model.AntipatternHotspotReuse, 0.70, detectHotspotReuse},
	{model.AntipatternUncoalesced, 0.65, detectUncoalesced},
	{model.AntipatternLoopCarriedDep, 0.90, detectLoopCarriedDep},
}

// Classifier runs C4 over enriched hotspots.
type Classifier struct {
	cfg Config
}

func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// ClassifyAll evaluates every hotspot and returns one ClassifiedPattern
// per hotspot that clears a detector (or the confidence floor). Hotspots
// with no firing detector and insufficient confidence are dropped.
func (c *Classifier) ClassifyAll(hotspots []*model.CacheHotspot, cm *model.CacheModel) []*model.ClassifiedPattern {
	out := make([]*model.ClassifiedPattern, 0, len(hotspots))
	for _, h := range hotspots {
		if cp := c.classifyOne(h, cm); cp != nil {
			out = append(out, cp)
		}
	}
	return out
}

func (c *Classifier) classifyOne(h *model.CacheHotspot, cm *model.CacheModel) *model.ClassifiedPattern {
	var best *detector
	var bestVerdict verdict

	for i := range detectorTable {
		d := &detectorTable[i]
		v := d.evaluate(h, cm)
		if !v.fired {
			continue
		}
		if best == nil || v.severity > bestVerdict.severity {
			best = d
			bestVerdict = v
		}
	}

	if best == nil {
		// spec.md §4.4: "drop the hotspot unless confidence >=
		// min_confidence_threshold" — no detector fired, so there is no
		// detector-assigned confidence to compare. We resolve this the
		// way detectHotspotReuse already treats miss_rate as a severity
		// proxy: fall back to miss_rate itself as the confidence signal,
		// and classify as UNCOALESCED (the spec's catch-all bucket) when
		// it clears the floor.
		if mr := h.MissRate(); mr >= c.cfg.MinConfidenceThreshold {
			return &model.ClassifiedPattern{
				HotspotKey:         h.Key,
				Hotspot:            h,
				Antipattern:        model.AntipatternUncoalesced,
				SeverityScore:      clamp(mr*50, 0, 100),
				Confidence:         mr,
				PrimaryMissType:    primaryMissType(h, cm),
				AffectedLevelsMask: affectedLevelsMask(h),
				PerformanceImpact:  performanceImpact(h, model.AntipatternUncoalesced),
				Description:        "no specific antipattern detector fired, but the miss rate alone clears the confidence floor",
				RootCause:          "undifferentiated cache misses below the threshold for any specific detector",
			}
		}
		return nil
	}

	return &model.ClassifiedPattern{
		HotspotKey:         h.Key,
		Hotspot:            h,
		Antipattern:        best.antipattern,
		SeverityScore:      clamp(bestVerdict.severity, 0, 100),
		Confidence:         best.confidence,
		PrimaryMissType:    primaryMissType(h, cm),
		AffectedLevelsMask: affectedLevelsMask(h),
		PerformanceImpact:  performanceImpact(h, best.antipattern),
		Description:        bestVerdict.description,
		RootCause:          bestVerdict.rootCause,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func detectHotspotReuse(h *model.CacheHotspot, _ *model.CacheModel) verdict {
	if h.MissRate() > 0.5 && h.AddrRange() < 4096 {
		return verdict{
			fired:       true,
			severity:    h.MissRate() * 100,
			description: "hotspot's small working set is repeatedly evicted despite fitting cache capacity",
			rootCause:   "poor temporal locality within a tight address range",
		}
	}
	return verdict{}
}

func detectThrashing(h *model.CacheHotspot, cm *model.CacheModel) verdict {
	if cm != nil {
		numLevels := len(cm.Levels)
		for i, lvl := range cm.Levels {
			level := lvl.Level
			if level < 1 || level > 4 || h.LevelCounts[level] == 0 {
				continue
			}
			if int64(h.AddrRange()) > lvl.SizeBytes {
				severity := 80 + 20*float64(i+1)/float64(numLevels)
				return verdict{
					fired:       true,
					severity:    severity,
					description: fmt.Sprintf("working set of %d bytes exceeds L%d capacity of %d bytes", h.AddrRange(), level, lvl.SizeBytes),
					rootCause:   "working set larger than the cache level it's repeatedly scanning",
				}
			}
		}
	}
	if h.MissRate() > 0.7 && (h.DominantPattern == model.PatternSequential || h.DominantPattern == model.PatternStrided) {
		return verdict{
			fired:       true,
			severity:    h.MissRate() * 100,
			description: "regular access pattern with a persistently high miss rate",
			rootCause:   "repeated full-capacity scans evicting the working set between passes",
		}
	}
	return verdict{}
}

func detectFalseSharing(h *model.CacheHotspot, _ *model.CacheModel) verdict {
	if h.IsFalseSharing {
		return verdict{
			fired:       true,
			severity:    90,
			description: "multiple CPUs contend for a shared cache line",
			rootCause:   "distinct data from different threads co-located on one cache line",
		}
	}
	if h.AddrRange() <= 128 && h.MissRate() > 0.4 && len(h.Samples) > 100 {
		cpus := make(map[int]bool)
		limit := 100
		if len(h.Samples) < limit {
			limit = len(h.Samples)
		}
		for _, s := range h.Samples[:limit] {
			cpus[s.CPUID] = true
		}
		if len(cpus) >= 2 {
			return verdict{
				fired:       true,
				severity:    70 + 5*float64(len(cpus)),
				description: "heuristic false-sharing signature: narrow range, multiple CPUs, elevated miss rate",
				rootCause:   "likely coherence traffic from a shared cache line",
			}
		}
	}
	return verdict{}
}

func detectStreamingEviction(h *model.CacheHotspot, _ *model.CacheModel) verdict {
	if h.DominantPattern == model.PatternSequential && h.MissRate() > 0.6 {
		severity := 60 + (h.MissRate()-0.6)*100
		if h.AddrRange() > 1024*1024 {
			severity += 10
		}
		return verdict{
			fired:       true,
			severity:    severity,
			description: "large sequential scan evicts data before it can be reused",
			rootCause:   "streaming access pattern exceeding cache capacity, no reuse opportunity",
		}
	}
	return verdict{}
}

func detectGatherScatter(h *model.CacheHotspot, _ *model.CacheModel) verdict {
	isIrregular := h.DominantPattern == model.PatternRandom ||
		h.DominantPattern == model.PatternGatherScatter ||
		h.DominantPattern == model.PatternIndirect
	if !isIrregular || len(h.Samples) < 10 {
		return verdict{}
	}
	avgDistance := meanAdjacentDistance(h.Samples)
	if avgDistance <= 4096 {
		return verdict{}
	}
	severity := math.Min(50+10*math.Log2(avgDistance/4096), 90)
	return verdict{
		fired:       true,
		severity:    severity,
		description: "irregular, widely scattered accesses indicate gather/scatter or pointer-chasing traffic",
		rootCause:   "indirect or data-dependent addressing with no spatial locality",
	}
}

func meanAdjacentDistance(samples []model.MissSample) float64 {
	if len(samples) < 2 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(samples); i++ {
		d := int64(samples[i+1].MemoryAddr) - int64(samples[i].MemoryAddr)
		if d < 0 {
			d = -d
		}
		sum += float64(d)
	}
	return sum / float64(len(samples)-1)
}

func detectUncoalesced(h *model.CacheHotspot, _ *model.CacheModel) verdict {
	if h.DominantPattern == model.PatternIndirect || h.DominantPattern == model.PatternGatherScatter {
		return verdict{
			fired:       true,
			severity:    50,
			description: "accesses derived from the dominant pattern suggest uncoalesced memory traffic",
			rootCause:   "per-element addressing without batching into contiguous transfers",
		}
	}
	return verdict{}
}

func detectLoopCarriedDep(h *model.CacheHotspot, _ *model.CacheModel) verdict {
	if h.DominantPattern == model.PatternLoopCarriedDep {
		return verdict{
			fired:       true,
			severity:    55,
			description: "dominant pattern indicates a loop-carried dependency serializing iterations",
			rootCause:   "each iteration's memory access depends on the result of the previous one",
		}
	}
	return verdict{}
}

// primaryMissType implements spec.md §4.4's miss-type selection order.
func primaryMissType(h *model.CacheHotspot, cm *model.CacheModel) model.MissType {
	if h.TotalAccesses < 2*h.TotalMisses {
		return model.MissTypeCompulsory
	}
	if cm != nil {
		for _, lvl := range cm.Levels {
			if lvl.Level < 1 || lvl.Level > 4 || h.LevelCounts[lvl.Level] == 0 {
				continue
			}
			if int64(h.AddrRange()) > lvl.SizeBytes {
				return model.MissTypeCapacity
			}
		}
		l1 := cm.Level(1)
		if l1 != nil && int64(h.AddrRange()) < l1.SizeBytes && h.MissRate() > 0.3 {
			return model.MissTypeConflict
		}
	}
	if h.IsFalseSharing {
		return model.MissTypeCoherence
	}
	return model.MissTypeConflict
}

// affectedLevelsMask sets bit i iff level_counts[i+1] > 0.
func affectedLevelsMask(h *model.CacheHotspot) uint8 {
	var mask uint8
	for i := 0; i < 4; i++ {
		if h.LevelCounts[i+1] > 0 {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// performanceImpact implements spec.md §4.4's impact formula with its
// per-antipattern scaling and clamp.
func performanceImpact(h *model.CacheHotspot, ap model.Antipattern) float64 {
	latency := h.AvgLatencyCycles
	if latency < 10 {
		latency = 10
	}
	x := h.MissRate() * latency
	impact := (x / (1 + x)) * 100

	switch ap {
	case model.AntipatternFalseSharing:
		impact *= 1.5
	case model.AntipatternThrashing:
		impact *= 1.3
	case model.AntipatternStreamingEviction:
		impact *= 0.8
	}
	return clamp(impact, 0, 90)
}
