// Package pattern implements C3, the per-hotspot access-pattern analyzer:
// stride detection, pattern classification, entropy, autocorrelation,
// reuse-distance statistics and false-sharing detection.
package pattern

import (
	"math"
	"sort"

	"github.com/milhud/cachesight/internal/model"
)

// Config controls the per-hotspot analysis thresholds from spec.md §4.3.
type Config struct {
	MinSamplesForStride       int  // default 2
	MinSamplesForFalseSharing int  // default 10
	FalseSharingEnabled       bool // default true
	ReuseDistanceLookback     int  // default 1000
}

// DefaultConfig returns the thresholds named in spec.md §4.3.
func DefaultConfig() Config {
	return Config{
		MinSamplesForStride:       2,
		MinSamplesForFalseSharing: 10,
		FalseSharingEnabled:       true,
		ReuseDistanceLookback:     1000,
	}
}

const strideRejectThreshold = 4096
const stridedMaxDelta = 64
const falseSharingMaxCacheLines = 2
const falseSharingMinMissRate = 0.3
const cacheLineSize = 64

// Analyzer runs C3 over hotspots produced by the aggregator (C2). It holds
// no mutable state of its own; every method is a pure function of its
// arguments, matching the orchestrator's "only one stateful component"
// design (spec.md §2).
type Analyzer struct {
	cfg Config
}

// New constructs an Analyzer with the given configuration.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Enrich recomputes a hotspot's pattern-analysis fields in place: access
// stride, dominant pattern, entropy, autocorrelation, reuse-distance
// statistics, and (when enabled) the false-sharing flag. It is the
// function C2's Process() hooks in as the "pattern inference" step.
func (an *Analyzer) Enrich(h *model.CacheHotspot, cm *model.CacheModel) {
	if len(h.Samples) < an.cfg.MinSamplesForStride {
		h.DominantPattern = model.PatternRandom
		return
	}

	sorted := sortedByAddr(h.Samples)
	deltas := adjacentDeltas(sorted)
	stride, pattern := classifyStride(deltas)
	h.AccessStride = stride
	h.DominantPattern = pattern

	h.Entropy = bitEntropy(h.Samples)
	h.Autocorrelation = autocorrelationLag1(deltas)

	lineSize := int64(cacheLineSize)
	if cm != nil {
		lineSize = cm.LineSize()
	}
	mean, p50, p99 := reuseDistanceStats(h.Samples, an.cfg.ReuseDistanceLookback, lineSize)
	h.ReuseDistanceMean = mean
	h.ReuseDistanceP50 = p50
	h.ReuseDistanceP99 = p99

	if an.cfg.FalseSharingEnabled && len(h.Samples) >= an.cfg.MinSamplesForFalseSharing {
		h.IsFalseSharing = detectFalseSharing(h, lineSize)
	}
}

type indexedSample struct {
	model.MissSample
	idx int
}

// sortedByAddr sorts retained samples by memory_addr with a stable sort so
// ties break by original index, matching §4.3's determinism requirement.
func sortedByAddr(samples []model.MissSample) []indexedSample {
	out := make([]indexedSample, len(samples))
	for i, s := range samples {
		out[i] = indexedSample{MissSample: s, idx: i}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MemoryAddr < out[j].MemoryAddr
	})
	return out
}

func adjacentDeltas(sorted []indexedSample) []int64 {
	if len(sorted) < 2 {
		return nil
	}
	deltas := make([]int64, 0, len(sorted)-1)
	for i := 0; i+1 < len(sorted); i++ {
		deltas = append(deltas, int64(sorted[i+1].MemoryAddr)-int64(sorted[i].MemoryAddr))
	}
	return deltas
}

// classifyStride implements spec.md §4.3 steps 3-6.
func classifyStride(deltas []int64) (int64, model.AccessPattern) {
	if len(deltas) == 0 {
		return 0, model.PatternRandom
	}

	surviving := make([]int64, 0, len(deltas))
	for _, d := range deltas {
		if d == 0 || abs64(d) >= strideRejectThreshold {
			continue
		}
		surviving = append(surviving, d)
	}

	if len(surviving)*2 < len(deltas) {
		return 0, model.PatternRandom
	}

	var sum int64
	for _, d := range surviving {
		sum += d
	}
	stride := sum / int64(len(surviving))

	switch {
	case stride == 1:
		return stride, model.PatternSequential
	case abs64(stride) <= stridedMaxDelta:
		return stride, model.PatternStrided
	default:
		return stride, model.PatternRandom
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// bitEntropy computes bit-frequency (binary) entropy over the low 64 bits
// of memory_addr across all retained samples, normalized to [0,1] by
// dividing the 64-bit sum by 64.
func bitEntropy(samples []model.MissSample) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	var counts [64]int
	for _, s := range samples {
		addr := s.MemoryAddr
		for bit := 0; bit < 64; bit++ {
			if addr&(1<<uint(bit)) != 0 {
				counts[bit]++
			}
		}
	}
	var sum float64
	for _, c := range counts {
		p := float64(c) / float64(n)
		sum += binaryEntropy(p)
	}
	return sum / 64
}

func binaryEntropy(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return -(p*math.Log2(p) + (1-p)*math.Log2(1-p))
}

// autocorrelationLag1 computes the Pearson correlation between the delta
// sequence and itself shifted by one position.
func autocorrelationLag1(deltas []int64) float64 {
	n := len(deltas)
	if n < 2 {
		return 0
	}
	x := deltas[:n-1]
	y := deltas[1:]

	var meanX, meanY float64
	for i := range x {
		meanX += float64(x[i])
		meanY += float64(y[i])
	}
	meanX /= float64(len(x))
	meanY /= float64(len(y))

	var num, denomX, denomY float64
	for i := range x {
		dx := float64(x[i]) - meanX
		dy := float64(y[i]) - meanY
		num += dx * dy
		denomX += dx * dx
		denomY += dy * dy
	}
	if denomX == 0 || denomY == 0 {
		return 0
	}
	return num / math.Sqrt(denomX*denomY)
}

// reuseDistanceStats computes, for each sample in ingestion order, the
// index distance back to the most recent access to the same cache line
// (one more than the number of intervening accesses), bounded to a
// lookback window. It returns the mean,
// p50 and p99 of the resulting distance distribution.
func reuseDistanceStats(samples []model.MissSample, lookback int, lineSize int64) (mean, p50, p99 float64) {
	if lineSize <= 0 {
		lineSize = cacheLineSize
	}
	lastSeen := make(map[uint64]int)
	var distances []float64

	for i, s := range samples {
		line := s.MemoryAddr / uint64(lineSize)
		if last, ok := lastSeen[line]; ok {
			dist := i - last
			if dist <= lookback {
				distances = append(distances, float64(dist))
			}
		}
		lastSeen[line] = i
	}

	if len(distances) == 0 {
		return 0, 0, 0
	}
	sort.Float64s(distances)

	var sum float64
	for _, d := range distances {
		sum += d
	}
	mean = sum / float64(len(distances))
	p50 = percentile(distances, 0.50)
	p99 = percentile(distances, 0.99)
	return mean, p50, p99
}

// percentile assumes a sorted input and linearly interpolates between the
// two bracketing samples, in the style of the teacher's histogram
// percentile computation.
func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := pct * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// detectFalseSharing implements spec.md §4.3's false-sharing flag formula.
func detectFalseSharing(h *model.CacheHotspot, lineSize int64) bool {
	cpuMask := make(map[int]bool)
	for _, s := range h.Samples {
		cpuMask[s.CPUID] = true
	}

	cacheLines := int64(math.Ceil(float64(h.AddrRange())/float64(lineSize))) + 1

	return len(cpuMask) >= 2 && cacheLines <= falseSharingMaxCacheLines && h.MissRate() > falseSharingMinMissRate
}
