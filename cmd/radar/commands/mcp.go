// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Exposes classification, example search, and index stats to LLM agents via stdio
package commands

import (
	"fmt"

	"github.com/harper/feedback-radar/internal/mcp"
	"github.com/harper/feedback-radar/internal/stack"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs the radar as an MCP (Model Context Protocol) server over stdio with
the classify_text, search_examples, and collection_stats tools. The index
must already be seeded.`,
		Args: cobra.NoArgs,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  radar mcp

  # Configure in an MCP client config:
  # {
  #   "mcpServers": {
  #     "radar": {
  #       "command": "radar",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, stack.Options{Classifiers: true})
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.NewMCPServer("Feedback Radar", versionInfo.Version)

	deps := mcp.Deps{
		Classifier: a.KNN,
		Store:      a.Store,
		Logger:     logger,
	}
	if a.Ensemble != nil {
		deps.Ensemble = a.Ensemble
	}
	mcp.RegisterTools(server, deps)

	logger.Info("MCP server starting on stdio", "collection", a.Store.Name())

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	if usage := a.Usage(); usage.Calls > 0 {
		logger.Info("LLM usage", "calls", usage.Calls, "failures", usage.Failures, "tokens", usage.TotalTokens())
	}
	return nil
}
