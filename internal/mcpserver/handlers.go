package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/milhud/cachesight/internal/model"
	"github.com/milhud/cachesight/internal/pipeline"
	"github.com/milhud/cachesight/internal/reportio"
)

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	var cacheModel model.CacheModel
	modelPath := stringArg(args, "cache_model_path", "")
	if modelPath == "" {
		return errResult("cache_model_path is required"), nil
	}
	if err := readJSONFile(modelPath, &cacheModel); err != nil {
		return errResult(fmt.Sprintf("cache_model_path: %v", err)), nil
	}

	var samples []model.MissSample
	if p := stringArg(args, "samples_path", ""); p != "" {
		if err := readJSONFile(p, &samples); err != nil {
			return errResult(fmt.Sprintf("samples_path: %v", err)), nil
		}
	}

	var staticPatterns []model.StaticPattern
	if p := stringArg(args, "static_patterns_path", ""); p != "" {
		if err := readJSONFile(p, &staticPatterns); err != nil {
			return errResult(fmt.Sprintf("static_patterns_path: %v", err)), nil
		}
	}

	core := s.core
	if p := stringArg(args, "profile", ""); p != "" {
		core = pipeline.New(pipeline.ConfigForProfile(pipeline.Profile(p)))
	}

	result, err := core.Analyze(samples, staticPatterns, &cacheModel)
	if err != nil {
		return errResult(err.Error()), nil
	}

	report := reportio.FromResult(result, time.Now())
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("marshal report: %v", err)), nil
	}
	return newTextResult(string(data)), nil
}

func (s *Server) handleExplainAntipattern(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	id := stringArg(args, "antipattern", "")
	if id == "" {
		return errResult("antipattern is required"), nil
	}

	desc, ok := antipatternExplanations[id]
	if !ok {
		return newTextResult(fmt.Sprintf(
			"No specific explanation for antipattern '%s'. "+
				"Run list_antipatterns to see the recognized IDs.",
			id,
		)), nil
	}
	return newTextResult(desc), nil
}

func (s *Server) handleListAntipatterns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type entry struct {
		ID    string `json:"id"`
		Brief string `json:"brief"`
	}
	entries := make([]entry, 0, len(antipatternExplanations))
	for id, desc := range antipatternExplanations {
		entries = append(entries, entry{ID: id, Brief: firstLine(desc)})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("marshal: %v", err)), nil
	}
	return newTextResult(string(data)), nil
}

func (s *Server) handleDiffReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	baselinePath := stringArg(args, "baseline_path", "")
	currentPath := stringArg(args, "current_path", "")
	if baselinePath == "" || currentPath == "" {
		return errResult("baseline_path and current_path are required"), nil
	}

	baseline, err := reportio.LoadJSON(baselinePath)
	if err != nil {
		return errResult(err.Error()), nil
	}
	current, err := reportio.LoadJSON(currentPath)
	if err != nil {
		return errResult(err.Error()), nil
	}

	d := reportio.Compare(baseline, current)
	return newTextResult(reportio.Format(d)), nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

// getArgs extracts the tool call's argument map.
func getArgs(request mcp.CallToolRequest) map[string]interface{} {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

// stringArg extracts a string argument with a default value.
func stringArg(args map[string]interface{}, key, defaultVal string) string {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultVal
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return defaultVal
	}
	return s
}

// newTextResult creates a successful MCP tool result with text content.
func newTextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}

// errResult creates an MCP tool error result (IsError=true). This is
// returned as a tool-level error, not a transport-level JSON-RPC error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: msg,
			},
		},
	}
}

var antipatternExplanations = map[string]string{
	"HOTSPOT_REUSE": `**Hotspot Reuse**
A small working set is accessed repeatedly but keeps getting evicted despite fitting comfortably in cache.
**Root Causes:**
- Interleaved unrelated accesses thrashing the same lines
- Working set slightly larger than effective associativity
**Recommendations:**
- Apply cache blocking/tiling to shrink the live working set per pass.
- Consider memory pooling to keep hot allocations contiguous.`,

	"THRASHING": `**Thrashing**
The accessed range exceeds the capacity of the cache level scanning it, so most accesses miss.
**Root Causes:**
- Working set sized for a larger cache level than what's available
- Streaming through data much larger than L2/L3
**Recommendations:**
- Tile loops so each block fits in the target cache level.
- Add explicit cache blocking around the hot loop.`,

	"FALSE_SHARING": `**False Sharing**
Independent data written by different threads lands on the same cache line, causing coherence traffic on every write.
**Root Causes:**
- Per-thread counters or flags packed into a shared struct
- Undersized padding between thread-local fields
**Recommendations:**
- Align/pad hot fields to their own cache line.
- Reorder access so per-thread state stays thread-local.`,

	"IRREGULAR_GATHER_SCATTER": `**Irregular Gather/Scatter**
Addressing is widely scattered and data-dependent, defeating prefetching.
**Root Causes:**
- Pointer-chasing or index-indirection-heavy data structures
**Recommendations:**
- Restructure data layout to group related fields contiguously.
- Add software prefetch hints ahead of the indirection.`,

	"UNCOALESCED": `**Uncoalesced Access**
Per-element addressing never batches into a contiguous transfer.
**Root Causes:**
- Struct-of-arrays accessed in array-of-structs order, or vice versa
**Recommendations:**
- Change the data layout so consecutive iterations touch consecutive memory.`,

	"LOOP_CARRIED_DEP": `**Loop-Carried Dependency**
Each iteration's access depends on the result of the previous iteration, serializing memory latency.
**Root Causes:**
- Linked-list-style traversal inside a hot loop
- Accumulator patterns with pointer indirection
**Recommendations:**
- Unroll the loop to expose independent work between dependent steps.
- Consider restructuring to remove the indirection entirely.`,

	"STREAMING_EVICTION": `**Streaming Eviction**
A large sequential scan evicts data before it can be reused.
**Root Causes:**
- Single-pass scan over a dataset larger than the cache, interleaved with reused state
**Recommendations:**
- Add non-temporal prefetch hints so the streamed data bypasses the reused working set.`,

	"BANK_CONFLICTS": `**Bank Conflicts**
A fixed stride repeatedly collides on the same memory bank/cache set.
**Root Causes:**
- Power-of-two strides aligned with the cache's set-indexing
**Recommendations:**
- Pad the stride to break the alignment with cache set boundaries.`,
}
