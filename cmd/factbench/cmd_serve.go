package main

import (
	"context"

	"github.com/spf13/cobra"

	"factbench/internal/config"
	"factbench/internal/demo"
	"factbench/internal/logging"
	mcpserver "factbench/internal/mcp"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP tool server over stdio",
	Long: `Serve exposes check_triplets, segment_triplets and compute_metrics as MCP
tools over stdin/stdout. The model-backed checkers use the configured model;
exact_match and partial_match need no model.

The server watches its parent process and exits when the parent goes away.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, config.Overrides{})
	if err != nil {
		return err
	}
	bank, err := loadBank(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := newStack(ctx, cfg, bank, nil)
	if err != nil {
		return err
	}
	srv := mcpserver.NewServer(mcpserver.Options{
		Client: st.model(demo.TaskFactChecker),
		Bank:   bank,
		Logger: logging.New("mcp"),
	})

	mcpserver.WatchParent(ctx, logging.New("mcp"), cancel)

	logging.New("mcp").Info("starting factbench MCP server over stdio", "session", srv.ID)
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
