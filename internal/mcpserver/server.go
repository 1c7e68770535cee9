// Package mcpserver exposes the CacheSight pipeline over MCP so an
// agent can drive analysis, look up antipattern explanations, and diff
// reports without shelling out to the CLI. It is a caller of
// internal/pipeline and internal/reportio, never the other way around.
package mcpserver

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/milhud/cachesight/internal/pipeline"
)

// Server wraps the MCP server instance.
type Server struct {
	mcpServer *server.MCPServer
	core      *pipeline.Core
}

// NewServer creates an MCP server backed by a pipeline.Core built from
// cfg, with all four tools registered.
func NewServer(version string, cfg pipeline.Config) *Server {
	s := server.NewMCPServer("cachesight", version, server.WithLogging())
	srv := &Server{
		mcpServer: s,
		core:      pipeline.New(cfg),
	}
	srv.registerTools()
	return srv
}

// Start runs the server in stdio mode (blocking).
func (s *Server) Start(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.mcpServer)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) registerTools() {
	analyzeTool := mcp.NewTool("analyze",
		mcp.WithDescription("Run the CacheSight pipeline over a JSON-encoded batch of miss samples and/or static access patterns plus a cache model, and return the resulting report."),
		mcp.WithString("samples_path",
			mcp.Description("Path to a JSON file containing a []model.MissSample array"),
		),
		mcp.WithString("static_patterns_path",
			mcp.Description("Path to a JSON file containing a []model.StaticPattern array"),
		),
		mcp.WithString("cache_model_path",
			mcp.Required(),
			mcp.Description("Path to a JSON file describing the target cache_model"),
		),
		mcp.WithString("profile",
			mcp.Description("Analysis profile: quick, standard, thorough"),
			mcp.DefaultString("standard"),
			mcp.Enum("quick", "standard", "thorough"),
		),
	)
	s.mcpServer.AddTool(analyzeTool, s.handleAnalyze)

	explainTool := mcp.NewTool("explain_antipattern",
		mcp.WithDescription("Get a detailed explanation, root causes, and recommended fixes for a specific cache antipattern. Use list_antipatterns to discover available IDs."),
		mcp.WithString("antipattern",
			mcp.Required(),
			mcp.Description("Antipattern ID, e.g. 'THRASHING' or 'FALSE_SHARING'. Use list_antipatterns to see all."),
		),
	)
	s.mcpServer.AddTool(explainTool, s.handleExplainAntipattern)

	listTool := mcp.NewTool("list_antipatterns",
		mcp.WithDescription("List all antipattern IDs CacheSight can classify, with a one-line description of each."),
	)
	s.mcpServer.AddTool(listTool, s.handleListAntipatterns)

	diffTool := mcp.NewTool("diff_reports",
		mcp.WithDescription("Compare two previously written CacheSight reports and summarize regressions/improvements."),
		mcp.WithString("baseline_path",
			mcp.Required(),
			mcp.Description("Path to the baseline report JSON"),
		),
		mcp.WithString("current_path",
			mcp.Required(),
			mcp.Description("Path to the current report JSON"),
		),
	)
	s.mcpServer.AddTool(diffTool, s.handleDiffReports)
}
