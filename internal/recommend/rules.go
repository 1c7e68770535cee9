package recommend

import (
	"fmt"
	"math"

	"github.com/milhud/cachesight/internal/model"
)

// candidate is an intermediate recommendation before dedup/filter/rank;
// priority is filled in once expected_improvement is finalized.
type candidate struct {
	model.Recommendation
}

func newCandidate(cp *model.ClassifiedPattern, recType model.RecType, improvement, confidence float64, difficulty int, rationale, template, guide string, automatic bool) candidate {
	return candidate{model.Recommendation{
		RecType:                  recType,
		PatternRef:               cp,
		HotspotKey:               cp.HotspotKey,
		Location:                 cp.Hotspot.Location,
		ExpectedImprovementPct:   improvement,
		Confidence:               confidence,
		ImplementationDifficulty: difficulty,
		Rationale:                rationale,
		CodeTemplate:             template,
		ImplementationGuide:      guide,
		IsAutomatic:              automatic,
	}}
}

// tileSizes implements spec.md §4.5's LOOP_TILING formula.
func tileSizes(cm *model.CacheModel) (l1Tile, l2Tile int) {
	l1Tile, l2Tile = 32, 128
	if cm == nil {
		return l1Tile, l2Tile
	}
	if l1 := cm.Level(1); l1 != nil && l1.SizeBytes > 0 {
		l1Tile = minInt(32, int(math.Floor(math.Sqrt(float64(l1.SizeBytes)/(3*8)))))
	}
	if l2 := cm.Level(2); l2 != nil && l2.SizeBytes > 0 {
		l2Tile = minInt(128, int(math.Floor(math.Sqrt(float64(l2.SizeBytes)/(3*8)))))
	}
	return l1Tile, l2Tile
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// prefetchDistance implements spec.md §4.5's distance table.
func prefetchDistance(pattern model.AccessPattern) int {
	switch pattern {
	case model.PatternStrided:
		return 16
	case model.PatternSequential:
		return 4
	default:
		return 8
	}
}

// rulesFor generates the candidate recommendations for one classified
// pattern, following spec.md §4.5's per-access-pattern and
// per-antipattern rule sets in their documented order.
func rulesFor(cp *model.ClassifiedPattern, cm *model.CacheModel) []candidate {
	h := cp.Hotspot
	var out []candidate

	switch h.DominantPattern {
	case model.PatternSequential:
		out = append(out, newCandidate(cp, model.RecLoopVectorize, 40, 0.9, 3,
			"sequential access across contiguous memory vectorizes cleanly",
			"#pragma omp simd\nfor (...) { ... }",
			"enable SIMD codegen for the loop body at this location", true))
		out = append(out, newCandidate(cp, model.RecPrefetchHints, 15, 0.85, 3,
			"sequential stream benefits from software prefetch ahead of the access",
			prefetchTemplate(prefetchDistance(model.PatternSequential)),
			fmt.Sprintf("insert __builtin_prefetch with distance %d", prefetchDistance(model.PatternSequential)), true))

	case model.PatternStrided:
		if h.AccessStride > 8 {
			l1, l2 := tileSizes(cm)
			out = append(out, newCandidate(cp, model.RecLoopTiling, 30, 0.8, 5,
				"stride exceeds a cache line, tiling restores locality within each block",
				"for (ii = 0; ii < N; ii += T) for (i = ii; i < min(ii+T,N); i++) ...",
				fmt.Sprintf("tile with l1_tile=%d, l2_tile=%d", l1, l2), false))
			out = append(out, newCandidate(cp, model.RecLoopVectorize, 25, 0.75, 4,
				"strided gather can still vectorize with gather/scatter instructions",
				"#pragma omp simd\nfor (...) { a[i*stride] ... }",
				"vectorize with explicit gather addressing", false))
		}

	case model.PatternRandom:
		out = append(out, newCandidate(cp, model.RecDataLayoutChange, 35, 0.7, 6,
			"random access defeats spatial locality regardless of layout tricks short of restructuring the data",
			"struct SoA { float *x, *y, *z; };",
			"convert the touched structure to a layout matching access order", false))
		out = append(out, newCandidate(cp, model.RecMemoryPooling, 20, 0.65, 4,
			"pooled allocation keeps randomly-indexed elements physically closer",
			"Pool<T> pool(capacity);",
			"allocate the hot elements from a dedicated pool instead of scattered heap allocations", false))

	case model.PatternGatherScatter:
		out = append(out, newCandidate(cp, model.RecDataLayoutChange, 50, 0.8, 7,
			"gather/scatter traffic is eliminated when the touched fields are stored contiguously",
			"struct SoA { float *x, *y, *z; }; // AoS -> SoA",
			"restructure the array-of-structures into a structure-of-arrays", false))
		out = append(out, newCandidate(cp, model.RecPrefetchHints, 18, 0.6, 3,
			"gather pattern can be softened with indexed prefetch ahead of the gather",
			prefetchTemplate(prefetchDistance(model.PatternGatherScatter)),
			fmt.Sprintf("prefetch indices[i+%d] before using indices[i]", prefetchDistance(model.PatternGatherScatter)), false))

	case model.PatternNestedLoop:
		out = append(out, newCandidate(cp, model.RecAccessReorder, 60, 0.85, 2,
			"inner loop strides across the outer dimension; swapping loop order restores unit-stride access",
			"for (j...) for (i...) a[i][j] -> for (i...) for (j...) a[i][j]",
			"reorder the nested loop so the innermost index matches the array's contiguous dimension", true))

	case model.PatternIndirect:
		out = append(out, newCandidate(cp, model.RecCacheBlocking, 30, 0.7, 5,
			"indirection through an index array benefits from blocking the outer traversal",
			"for (bb = 0; bb < N; bb += B) for (i = bb; i < bb+B; i++) a[idx[i]] ...",
			"block the traversal so index lookups reuse cache lines within a block", false))

	case model.PatternLoopCarriedDep:
		out = append(out, newCandidate(cp, model.RecLoopUnroll, 25, 0.75, 4,
			"unrolling exposes independent work between dependent iterations",
			"for (i = 0; i < N; i += 4) { ... unrolled body ... }",
			"unroll the loop to overlap the latency of the carried dependency", false))
	}

	switch cp.Antipattern {
	case model.AntipatternThrashing:
		l1, l2 := tileSizes(cm)
		out = append(out, newCandidate(cp, model.RecLoopTiling, 45, 0.85, 5,
			"working set exceeds cache capacity; tiling bounds each pass to what fits",
			"for (ii = 0; ii < N; ii += T) ...",
			fmt.Sprintf("tile with l1_tile=%d, l2_tile=%d", l1, l2), false))
		out = append(out, newCandidate(cp, model.RecCacheBlocking, 45, 0.85, 6,
			"blocking limits the footprint of each inner pass to the target cache level",
			"block both loop dimensions to fit the working set in L2",
			"choose a block size so the blocked working set fits the target cache level", false))

	case model.AntipatternFalseSharing:
		out = append(out, newCandidate(cp, model.RecMemoryAlignment, 30, 0.9, 3,
			"padding separates contended fields onto distinct cache lines",
			"struct alignas(64) Counter { long value; char pad[56]; };",
			"pad or align the contended fields to the cache line size", true))
		out = append(out, newCandidate(cp, model.RecAccessReorder, 40, 0.85, 4,
			"thread-local accumulation removes the shared line from the hot path entirely",
			"thread_local long local_counter; // merge into shared total at the end",
			"accumulate into thread-local storage and reduce once at the end", false))

	case model.AntipatternStreamingEviction:
		out = append(out, newCandidate(cp, model.RecPrefetchHints, 20, 0.75, 3,
			"non-temporal hints avoid polluting the cache with data that won't be reused",
			"_mm_prefetch(ptr, _MM_HINT_NTA);",
			"use a non-temporal prefetch/store hint for this streaming pass", false))

	case model.AntipatternBankConflicts:
		out = append(out, newCandidate(cp, model.RecMemoryAlignment, 25, 0.7, 4,
			"padding the stride avoids repeated collisions on the same bank",
			"float buf[ROWS][COLS + PAD];",
			"add padding columns so the stride no longer aliases the same bank", false))
	}

	if cm != nil && cm.NUMANodes > 1 {
		out = append(out, newCandidate(cp, model.RecNUMABinding, 25, 0.8, 2,
			"cross-node access costs 2-3x local latency on this machine",
			"numa_alloc_onnode(size, node); / numactl --membind=<node>",
			"bind the hot allocation to the NUMA node of the thread that uses it", false))
	}

	finalizePriorities(out)
	return out
}

func prefetchTemplate(distance int) string {
	return fmt.Sprintf("__builtin_prefetch(&a[i + %d], 0, 1);", distance)
}

// finalizePriorities sets each candidate's priority from its expected
// improvement, per spec.md §4.5, and attaches the compiler flags (if any)
// that make the recommendation's code template actually take effect.
func finalizePriorities(cands []candidate) {
	for i := range cands {
		imp := cands[i].ExpectedImprovementPct
		switch {
		case imp > 50:
			cands[i].Priority = 1
		case imp > 30:
			cands[i].Priority = 2
		default:
			cands[i].Priority = 3
		}
		cands[i].CompilerFlags = compilerFlagsFor(cands[i].RecType)
	}
}

// compilerFlagsFor returns the flags a build would need for a
// recommendation's code template to be honored, where the template isn't
// self-sufficient source. Recommendations that are pure source-level
// restructuring (layout changes, pooling, reordering) need none.
func compilerFlagsFor(t model.RecType) []string {
	switch t {
	case model.RecLoopVectorize:
		return []string{"-O3", "-ftree-vectorize", "-fopenmp-simd"}
	case model.RecPrefetchHints:
		return []string{"-O2"}
	case model.RecLoopUnroll:
		return []string{"-funroll-loops"}
	case model.RecLoopTiling, model.RecCacheBlocking:
		return []string{"-O3"}
	case model.RecNUMABinding:
		return []string{"-lnuma"}
	default:
		return nil
	}
}
