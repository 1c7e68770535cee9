package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/milhud/cachesight/internal/mcpserver"
	"github.com/milhud/cachesight/internal/pipeline"
)

func newMCPCmd() *cobra.Command {
	var profileName string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start a Model Context Protocol server exposing analyze/diff/explain tools",
		Long: `Starts a JSON-RPC server implementing the Model Context Protocol (MCP)
over stdio, so an agent (Claude Desktop, Cursor, etc.) can drive the
cachesight pipeline interactively instead of shelling out to analyze/diff.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := pipeline.ConfigForProfile(pipeline.Profile(profileName))
			srv := mcpserver.NewServer(version, cfg)
			return srv.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&profileName, "profile", "standard", "Default analysis profile for the analyze tool")
	return cmd
}
