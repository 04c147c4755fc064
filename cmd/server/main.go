// ABOUTME: Standalone Feedback Radar MCP server with stdio transport
// ABOUTME: Loads config, opens the seeded index and classifiers, and serves the MCP tools
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/config"
	"github.com/harper/feedback-radar/internal/mcp"
	"github.com/harper/feedback-radar/internal/stack"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func main() {
	// stdout carries the protocol, so logs go to stderr
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "radar-mcp"})

	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}
	if !cfg.LLMEnabled {
		logger.Warn("LLM disabled - low-confidence items will not be escalated")
	}

	app, err := stack.Open(ctx, cfg, stack.Options{Classifiers: true, Logger: logger})
	if err != nil {
		logger.Fatal("failed to open index (run `radar seed` first)", "err", err)
	}
	defer app.Close()

	server := mcpserver.NewMCPServer("Feedback Radar", "0.1.0")

	deps := mcp.Deps{
		Classifier: app.KNN,
		Store:      app.Store,
		Logger:     logger,
	}
	if app.Ensemble != nil {
		deps.Ensemble = app.Ensemble
	}
	mcp.RegisterTools(server, deps)

	logger.Info("MCP server starting on stdio", "collection", app.Store.Name())

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "err", err)
			stop()
			app.Close()
			os.Exit(1)
		}
	}
}
