// Package aggregator implements C2, the sample-ingest and hotspot
// aggregator: it groups raw miss samples by instruction key, maintains
// per-hotspot running statistics, and enforces bounded sample retention
// and a bounded hotspot table.
package aggregator

import (
	"sort"
	"sync"

	"github.com/milhud/cachesight/internal/model"
)

// KeyPolicy selects how a MissSample's instruction address is reduced to
// a hotspot key.
type KeyPolicy int

const (
	// ByInstruction uses the raw instruction address as the key.
	ByInstruction KeyPolicy = iota
	// ByFunction masks the address to its containing 4 KiB page. This is
	// coarser than true symbol-based aggregation.
	ByFunction
)

const functionPageMask = ^uint64(0xFFF)

// Config controls aggregation behavior. Zero-value Config is invalid;
// use DefaultConfig.
type Config struct {
	KeyPolicy    KeyPolicy
	MaxHotspots  int // default 1000
	SampleCap    int // K, default 100
}

// DefaultConfig returns the aggregator defaults named in spec.md §4.2.
func DefaultConfig() Config {
	return Config{
		KeyPolicy:   ByInstruction,
		MaxHotspots: 1000,
		SampleCap:   100,
	}
}

func (c Config) validate() error {
	if c.MaxHotspots <= 0 {
		return model.InvalidArgument("max_hotspots must be positive, got %d", c.MaxHotspots)
	}
	if c.SampleCap <= 0 {
		return model.InvalidArgument("sample retention cap must be positive, got %d", c.SampleCap)
	}
	return nil
}

// Aggregator is C2. The hotspot table is guarded by a single mutex per
// the §5 single-writer discipline: AddSamples and Process are the only
// mutators, and GetHotspots takes a consistent snapshot under the same
// lock.
type Aggregator struct {
	cfg Config

	mu           sync.Mutex
	hotspots     map[uint64]*model.CacheHotspot
	order        []uint64 // key insertion order, for deterministic iteration
	capacityHit  bool
}

// New constructs an Aggregator. An invalid Config yields InvalidArgument.
func New(cfg Config) (*Aggregator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Aggregator{
		cfg:      cfg,
		hotspots: make(map[uint64]*model.CacheHotspot),
	}, nil
}

func (a *Aggregator) keyFor(s model.MissSample) uint64 {
	if a.cfg.KeyPolicy == ByFunction {
		return s.InstructionAddr & functionPageMask
	}
	return s.InstructionAddr
}

// AddSamples ingests a batch of samples. It is O(N) in batch size. A nil
// batch is not an error (zero samples ingested); malformed entries are
// not possible since MissSample has no required-pointer fields, so the
// only failure mode is exceeding max_hotspots on a brand-new key, which
// is a soft, per-sample failure: the sample is dropped and ingestion of
// the rest of the batch continues.
func (a *Aggregator) AddSamples(batch []model.MissSample) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range batch {
		key := a.keyFor(s)
		h, exists := a.hotspots[key]
		if !exists {
			if len(a.hotspots) >= a.cfg.MaxHotspots {
				a.capacityHit = true
				continue // soft failure: drop the sample, keep going
			}
			h = &model.CacheHotspot{
				Key:      key,
				Location: s.Location,
				AddrMin:  s.MemoryAddr,
				AddrMax:  s.MemoryAddr,
			}
			a.hotspots[key] = h
			a.order = append(a.order, key)
		}
		a.applySample(h, s)
	}
	return nil
}

func (a *Aggregator) applySample(h *model.CacheHotspot, s model.MissSample) {
	h.TotalAccesses++
	h.TotalMisses++ // simple model: every sampled access is a recorded miss

	if h.TotalAccesses == 1 {
		h.AddrMin = s.MemoryAddr
		h.AddrMax = s.MemoryAddr
	} else {
		if s.MemoryAddr < h.AddrMin {
			h.AddrMin = s.MemoryAddr
		}
		if s.MemoryAddr > h.AddrMax {
			h.AddrMax = s.MemoryAddr
		}
	}

	lvl := int(s.MissedLevel)
	if lvl >= 1 && lvl <= len(h.LevelCounts)-1 {
		h.LevelCounts[lvl]++
	}

	// Numerically stable running mean of latency cycles.
	n := float64(h.TotalMisses)
	h.AvgLatencyCycles += (float64(s.LatencyCycles) - h.AvgLatencyCycles) / n

	if len(h.Samples) < a.cfg.SampleCap {
		h.Samples = append(h.Samples, s)
	}
}

// CapacityReached reports whether max_hotspots has been hit at least once
// since construction. Per §7, this is not retried: the pipeline
// orchestrator reports it in Result.CapacityReached, and the analyze
// command logs it once.
func (a *Aggregator) CapacityReached() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.capacityHit
}

// Process finalizes aggregation: it recomputes each hotspot's derived
// fields via the supplied enrich function (the pattern analyzer, C3) and
// leaves total_misses/total_accesses/address_range untouched, since those
// are already maintained incrementally by AddSamples. Calling Process
// twice on the same ingested batch is idempotent: enrich is a pure
// function of a hotspot's retained samples.
func (a *Aggregator) Process(enrich func(*model.CacheHotspot)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, key := range a.order {
		h := a.hotspots[key]
		if enrich != nil {
			enrich(h)
		}
	}
}

// GetHotspots returns hotspots passing both thresholds, sorted by
// total_misses descending (ties broken by key for determinism).
func (a *Aggregator) GetHotspots(minSamples int, minMissRate float64) []*model.CacheHotspot {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*model.CacheHotspot, 0, len(a.hotspots))
	for _, key := range a.order {
		h := a.hotspots[key]
		if len(h.Samples) < minSamples {
			continue
		}
		if h.MissRate() < minMissRate {
			continue
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalMisses != out[j].TotalMisses {
			return out[i].TotalMisses > out[j].TotalMisses
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Len returns the number of distinct hotspot keys currently tracked.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.hotspots)
}

// InsertSynthetic registers a hotspot constructed outside the normal
// sampling path, such as a synthetic hotspot from the static-pattern
// bridge (C6). It respects max_hotspots. The pipeline orchestrator does
// not call it: it keeps C6's synthetic hotspots outside this table.
func (a *Aggregator) InsertSynthetic(h *model.CacheHotspot) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.hotspots[h.Key]; exists {
		return false
	}
	if len(a.hotspots) >= a.cfg.MaxHotspots {
		a.capacityHit = true
		return false
	}
	a.hotspots[h.Key] = h
	a.order = append(a.order, h.Key)
	return true
}
