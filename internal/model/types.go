// Package model defines the data types shared across the CacheSight
// analysis pipeline: source locations, miss samples, aggregated hotspots,
// static patterns, classified patterns and recommendations.
package model

// SourceLocation identifies a point in the analyzed program's source.
// Equality for aggregation and correlation purposes is (File, Line) only.
type SourceLocation struct {
	File     string `json:"file"`
	Function string `json:"function"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// SameLine reports whether two locations share the (File, Line) identity
// used throughout the pipeline for correlation and dedup-scope decisions.
func (s SourceLocation) SameLine(o SourceLocation) bool {
	return s.File == o.File && s.Line == o.Line
}

// MissedLevel identifies which cache level a sample missed in.
type MissedLevel int

const (
	MissL1 MissedLevel = iota + 1
	MissL2
	MissL3
	MissLLC
)

// MissSample is one raw observation fed into the aggregator. It is
// immutable after ingestion.
type MissSample struct {
	InstructionAddr uint64         `json:"instruction_addr"`
	MemoryAddr      uint64         `json:"memory_addr"`
	TimestampNS     int64          `json:"timestamp_ns"`
	CPUID           int            `json:"cpu_id"`
	ThreadID        int            `json:"thread_id"`
	AccessSize      int            `json:"access_size"`
	IsWrite         bool           `json:"is_write"`
	LatencyCycles   uint64         `json:"latency_cycles"`
	MissedLevel     MissedLevel    `json:"missed_level"`
	Location        SourceLocation `json:"location"`
}

// AccessPattern classifies the shape of memory accesses within a hotspot.
type AccessPattern int

const (
	PatternUnknown AccessPattern = iota
	PatternSequential
	PatternStrided
	PatternRandom
	PatternGatherScatter
	PatternIndirect
	PatternNestedLoop
	PatternLoopCarriedDep
)

func (p AccessPattern) String() string {
	switch p {
	case PatternSequential:
		return "SEQUENTIAL"
	case PatternStrided:
		return "STRIDED"
	case PatternRandom:
		return "RANDOM"
	case PatternGatherScatter:
		return "GATHER_SCATTER"
	case PatternIndirect:
		return "INDIRECT"
	case PatternNestedLoop:
		return "NESTED_LOOP"
	case PatternLoopCarriedDep:
		return "LOOP_CARRIED_DEP"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON renders the pattern as its string name.
func (p AccessPattern) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

const maxCacheLevels = 4 // index 0 unused; levels addressed 1..4 (L1,L2,L3,LLC)

// CacheHotspot is the aggregated per-instruction-key record maintained by
// the aggregator and enriched in place by the pattern analyzer.
type CacheHotspot struct {
	Key              uint64                     `json:"key"`
	Location         SourceLocation             `json:"location"`
	TotalAccesses    uint64                     `json:"total_accesses"`
	TotalMisses      uint64                     `json:"total_misses"`
	AddrMin          uint64                     `json:"addr_min"`
	AddrMax          uint64                     `json:"addr_max"`
	LevelCounts      [maxCacheLevels + 1]uint64 `json:"level_counts"`
	AvgLatencyCycles float64                    `json:"avg_latency_cycles"`
	AccessStride     int64                      `json:"access_stride"`
	DominantPattern  AccessPattern              `json:"dominant_pattern"`
	Samples          []MissSample               `json:"samples"`
	IsFalseSharing   bool                       `json:"is_false_sharing"`

	// Fields recomputed by the pattern analyzer (C3).
	Entropy           float64 `json:"entropy"`
	Autocorrelation   float64 `json:"autocorrelation"`
	ReuseDistanceMean float64 `json:"reuse_distance_mean"`
	ReuseDistanceP50  float64 `json:"reuse_distance_p50"`
	ReuseDistanceP99  float64 `json:"reuse_distance_p99"`
}

// MissRate returns total_misses / max(total_accesses, 1), matching the
// spec's guard against division by zero.
func (h *CacheHotspot) MissRate() float64 {
	denom := h.TotalAccesses
	if denom == 0 {
		denom = 1
	}
	return float64(h.TotalMisses) / float64(denom)
}

// AddrRange returns the working-set span in bytes.
func (h *CacheHotspot) AddrRange() uint64 {
	if h.AddrMax < h.AddrMin {
		return 0
	}
	return h.AddrMax - h.AddrMin
}

// StaticPattern is an external, read-only input derived from AST analysis.
type StaticPattern struct {
	Location       SourceLocation `json:"location"`
	ArrayOrField   string         `json:"array_or_field_name"`
	StructName     string         `json:"struct_name,omitempty"`
	PatternClass   AccessPattern  `json:"pattern_class"`
	Stride         int64          `json:"stride"`
	LoopDepth      int            `json:"loop_depth"`
	IsStructAccess bool           `json:"is_struct_access"`
}

// Antipattern enumerates the cache-hostile behaviors C4 can assign.
type Antipattern int

const (
	AntipatternNone Antipattern = iota
	AntipatternHotspotReuse
	AntipatternThrashing
	AntipatternFalseSharing
	AntipatternIrregularGatherScatter
	AntipatternUncoalesced
	AntipatternLoopCarriedDep
	AntipatternStreamingEviction
	AntipatternBankConflicts
)

func (a Antipattern) String() string {
	switch a {
	case AntipatternHotspotReuse:
		return "HOTSPOT_REUSE"
	case AntipatternThrashing:
		return "THRASHING"
	case AntipatternFalseSharing:
		return "FALSE_SHARING"
	case AntipatternIrregularGatherScatter:
		return "IRREGULAR_GATHER_SCATTER"
	case AntipatternUncoalesced:
		return "UNCOALESCED"
	case AntipatternLoopCarriedDep:
		return "LOOP_CARRIED_DEP"
	case AntipatternStreamingEviction:
		return "STREAMING_EVICTION"
	case AntipatternBankConflicts:
		return "BANK_CONFLICTS"
	default:
		return "NONE"
	}
}

func (a Antipattern) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// MissType is the primary cause assigned to a classified hotspot.
type MissType int

const (
	MissTypeUnknown MissType = iota
	MissTypeCompulsory
	MissTypeCapacity
	MissTypeConflict
	MissTypeCoherence
)

func (m MissType) String() string {
	switch m {
	case MissTypeCompulsory:
		return "COMPULSORY"
	case MissTypeCapacity:
		return "CAPACITY"
	case MissTypeConflict:
		return "CONFLICT"
	case MissTypeCoherence:
		return "COHERENCE"
	default:
		return "UNKNOWN"
	}
}

func (m MissType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// ClassifiedPattern is C4's output: exactly one antipattern per hotspot.
type ClassifiedPattern struct {
	HotspotKey         uint64          `json:"hotspot_key"`
	Hotspot            *CacheHotspot   `json:"-"`
	Antipattern        Antipattern     `json:"antipattern"`
	SeverityScore      float64         `json:"severity_score"`
	Confidence         float64         `json:"confidence"`
	PrimaryMissType    MissType        `json:"primary_miss_type"`
	AffectedLevelsMask uint8           `json:"affected_levels_bitmask"`
	PerformanceImpact  float64         `json:"performance_impact"`
	Description        string          `json:"description"`
	RootCause          string          `json:"root_cause"`
	CorrelatedStatic   []StaticPattern `json:"correlated_static,omitempty"`
}

// RecType enumerates recommendation kinds.
type RecType int

const (
	RecUnknown RecType = iota
	RecLoopTiling
	RecAccessReorder
	RecCacheBlocking
	RecLoopVectorize
	RecPrefetchHints
	RecDataLayoutChange
	RecMemoryPooling
	RecMemoryAlignment
	RecLoopUnroll
	RecNUMABinding
)

func (r RecType) String() string {
	switch r {
	case RecLoopTiling:
		return "LOOP_TILING"
	case RecAccessReorder:
		return "ACCESS_REORDER"
	case RecCacheBlocking:
		return "CACHE_BLOCKING"
	case RecLoopVectorize:
		return "LOOP_VECTORIZE"
	case RecPrefetchHints:
		return "PREFETCH_HINTS"
	case RecDataLayoutChange:
		return "DATA_LAYOUT_CHANGE"
	case RecMemoryPooling:
		return "MEMORY_POOLING"
	case RecMemoryAlignment:
		return "MEMORY_ALIGNMENT"
	case RecLoopUnroll:
		return "LOOP_UNROLL"
	case RecNUMABinding:
		return "NUMA_BINDING"
	default:
		return "UNKNOWN"
	}
}

func (r RecType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// Recommendation is a ranked, typed piece of optimization advice.
type Recommendation struct {
	RecType                  RecType            `json:"rec_type"`
	PatternRef               *ClassifiedPattern `json:"-"`
	HotspotKey               uint64             `json:"hotspot_key"`
	Location                 SourceLocation     `json:"location"`
	Priority                 int                `json:"priority"` // 1 highest, 3 lowest
	ExpectedImprovementPct   float64            `json:"expected_improvement_pct"`
	Confidence               float64            `json:"confidence"`
	ImplementationDifficulty int                `json:"implementation_difficulty"` // 1..10
	Rationale                string             `json:"rationale"`
	CodeTemplate             string             `json:"code_template"`
	ImplementationGuide      string             `json:"implementation_guide"`
	CompilerFlags            []string           `json:"compiler_flags,omitempty"`
	IsAutomatic              bool               `json:"is_automatic"`
}
