package cmd

import (
	"context"
	"fmt"

	"github.com/compozy/basic-cleaning/cli/helpers"
	"github.com/compozy/basic-cleaning/pkg/config"
	"github.com/compozy/basic-cleaning/pkg/logger"
	"github.com/spf13/cobra"
)

// CommandExecutor carries the output mode and, when requested, the opened
// artifact store for one command invocation.
type CommandExecutor struct {
	mode helpers.Mode
	deps *Deps
}

// HandlerFunc defines the signature for mode-specific command handlers
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, executor *CommandExecutor, args []string) error

// ModeHandlers contains handlers for the output modes
type ModeHandlers struct {
	JSON HandlerFunc
	Text HandlerFunc
}

// ExecutorOptions configures command executor behavior
type ExecutorOptions struct {
	RequireStore bool
}

// NewCommandExecutor creates a new command executor with common setup
func NewCommandExecutor(cmd *cobra.Command, opts ExecutorOptions) (*CommandExecutor, error) {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	mode := helpers.DetectMode(cmd)
	log.Debug("detected execution mode", "mode", mode)
	executor := &CommandExecutor{mode: mode}
	if opts.RequireStore {
		deps, err := OpenDeps(ctx, config.FromContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to open artifact store: %w", err)
		}
		executor.deps = deps
	}
	return executor, nil
}

// Execute runs the handler matching the detected mode
func (e *CommandExecutor) Execute(ctx context.Context, cmd *cobra.Command, handlers ModeHandlers, args []string) error {
	switch e.mode {
	case helpers.ModeJSON:
		if handlers.JSON == nil {
			return fmt.Errorf("JSON mode handler not implemented")
		}
		return handlers.JSON(ctx, cmd, e, args)
	case helpers.ModeText:
		if handlers.Text == nil {
			return fmt.Errorf("text mode handler not implemented")
		}
		return handlers.Text(ctx, cmd, e, args)
	default:
		return fmt.Errorf("unsupported mode: %s", e.mode)
	}
}

// Close releases the store opened for the command.
func (e *CommandExecutor) Close(ctx context.Context) error {
	if e.deps == nil {
		return nil
	}
	return e.deps.Close(ctx)
}

func (e *CommandExecutor) Deps() *Deps {
	return e.deps
}

func (e *CommandExecutor) GetMode() helpers.Mode {
	return e.mode
}

// ExecuteCommand is a convenience function that creates an executor and
// runs the command. Returned errors are categorized for rendering and exit
// codes.
func ExecuteCommand(cmd *cobra.Command, opts ExecutorOptions, handlers ModeHandlers, args []string) (err error) {
	ctx := cmd.Context()
	executor, err := NewCommandExecutor(cmd, opts)
	if err != nil {
		return helpers.CategorizeError(err)
	}
	defer func() {
		if cerr := executor.Close(ctx); cerr != nil {
			logger.FromContext(ctx).Warn("Failed to close artifact store", "error", cerr)
		}
	}()
	return helpers.CategorizeError(executor.Execute(ctx, cmd, handlers, args))
}
