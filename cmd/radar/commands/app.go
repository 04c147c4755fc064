// ABOUTME: Loads configuration and opens the component stack for a command
// ABOUTME: Shares the CLI logger so --verbose and --quiet apply to every component
package commands

import (
	"context"
	"fmt"

	"github.com/harper/feedback-radar/internal/config"
	"github.com/harper/feedback-radar/internal/stack"
)

func openApp(ctx context.Context, opts stack.Options) (*stack.Stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	opts.Logger = logger
	return stack.Open(ctx, cfg, opts)
}
