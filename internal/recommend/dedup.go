package recommend

import (
	"fmt"
	"strings"

	"github.com/milhud/cachesight/internal/model"
)

// wholeFunctionScopeTypes dedupe across an entire function: only the best
// survives regardless of which line within the function it anchors to.
var wholeFunctionScopeTypes = map[model.RecType]bool{
	model.RecLoopVectorize:  true,
	model.RecPrefetchHints:  true,
	model.RecCacheBlocking:  true,
	model.RecLoopTiling:     true,
	model.RecMemoryPooling:  true,
}

// lineWindowScopeTypes dedupe within the same function when their lines
// fall within 5 of each other.
var lineWindowScopeTypes = map[model.RecType]bool{
	model.RecAccessReorder:    true,
	model.RecDataLayoutChange: true,
}

const lineWindowRadius = 5

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// phaseASensible implements spec.md §4.5's Phase A filter.
func phaseASensible(c candidate) bool {
	if c.Confidence < 0.5 || c.ExpectedImprovementPct < 15 {
		return false
	}
	fn := c.Location.Function

	loopBody := c.RecType == model.RecLoopVectorize || c.RecType == model.RecPrefetchHints ||
		c.RecType == model.RecLoopTiling || c.RecType == model.RecCacheBlocking
	if loopBody && fn == "main" {
		return false
	}
	if containsAny(fn, "printf", "malloc", "free", "init") {
		return false
	}
	if c.RecType == model.RecLoopVectorize && c.Location.Line < 30 && c.Confidence < 0.8 {
		return false
	}
	return true
}

// scopeKey returns the logical-scope identity used by Phase B for scope
// types that don't need proximity merging: two recommendations share a
// scope only when they have matching scopeKey values. lineWindowScopeTypes
// are handled separately by dedupePhaseB, since their scope isn't a
// single key but a transitive within-radius relation.
func scopeKey(c candidate) string {
	if wholeFunctionScopeTypes[c.RecType] {
		return fmt.Sprintf("%s|%s", c.RecType, c.Location.Function)
	}
	return fmt.Sprintf("%s|hotspot:%d", c.RecType, c.HotspotKey)
}

func lineDistance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// betterOf returns whichever candidate should survive a shared scope:
// lower priority number wins, ties broken by higher improvement.
func betterOf(a, b candidate) candidate {
	if a.Priority != b.Priority {
		if a.Priority < b.Priority {
			return a
		}
		return b
	}
	if a.ExpectedImprovementPct >= b.ExpectedImprovementPct {
		return a
	}
	return b
}

// dedupePhaseB collapses candidates that share a logical scope, keeping
// only the best survivor per scope. Whole-function-scope and hotspot-
// scoped types dedupe by an exact scopeKey. lineWindowScopeTypes
// (ACCESS_REORDER, DATA_LAYOUT_CHANGE) dedupe by transitive proximity:
// two candidates of the same type and function merge into one scope
// whenever their lines are within lineWindowRadius of each other, and
// merging is transitive via union-find, so a chain of candidates each
// within radius of the next collapses into a single scope even when its
// endpoints are further apart than the radius — a plain line/radius
// bucket would miss the case where two in-range candidates straddle a
// bucket boundary.
func dedupePhaseB(cands []candidate) []candidate {
	n := len(cands)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	exactGroups := make(map[string][]int)
	for i, c := range cands {
		if lineWindowScopeTypes[c.RecType] {
			continue
		}
		key := scopeKey(c)
		exactGroups[key] = append(exactGroups[key], i)
	}
	for _, idxs := range exactGroups {
		for k := 1; k < len(idxs); k++ {
			union(idxs[0], idxs[k])
		}
	}

	for i := 0; i < n; i++ {
		if !lineWindowScopeTypes[cands[i].RecType] {
			continue
		}
		for j := i + 1; j < n; j++ {
			if cands[i].RecType != cands[j].RecType {
				continue
			}
			if cands[i].Location.Function != cands[j].Location.Function {
				continue
			}
			if lineDistance(cands[i].Location.Line, cands[j].Location.Line) <= lineWindowRadius {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	var order []int
	for i := range cands {
		root := find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], i)
	}

	out := make([]candidate, 0, len(order))
	for _, root := range order {
		idxs := groups[root]
		best := cands[idxs[0]]
		for _, i := range idxs[1:] {
			best = betterOf(best, cands[i])
		}
		out = append(out, best)
	}
	return out
}

// conflictFilter implements spec.md §4.5's LOOP_VECTORIZE vs
// DATA_LAYOUT_CHANGE conflict rule: at the same (file,line), only the
// higher-improvement recommendation survives.
func conflictFilter(cands []candidate) []candidate {
	type key struct {
		file string
		line int
	}
	byLoc := make(map[key][]int)
	for i, c := range cands {
		if c.RecType == model.RecLoopVectorize || c.RecType == model.RecDataLayoutChange {
			k := key{c.Location.File, c.Location.Line}
			byLoc[k] = append(byLoc[k], i)
		}
	}

	drop := make(map[int]bool)
	for _, idxs := range byLoc {
		var vecIdx, layoutIdx = -1, -1
		for _, i := range idxs {
			if cands[i].RecType == model.RecLoopVectorize {
				vecIdx = i
			} else {
				layoutIdx = i
			}
		}
		if vecIdx == -1 || layoutIdx == -1 {
			continue
		}
		if cands[vecIdx].ExpectedImprovementPct >= cands[layoutIdx].ExpectedImprovementPct {
			drop[layoutIdx] = true
		} else {
			drop[vecIdx] = true
		}
	}

	out := make([]candidate, 0, len(cands))
	for i, c := range cands {
		if !drop[i] {
			out = append(out, c)
		}
	}
	return out
}
