package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/graphlab/pkg/domain"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	GraphPath string
	Algorithm string
	Start     string

	// Server is the base URL of a graphlab server. Empty runs in-process.
	Server string
	// HTTPOnly skips the streaming channel and steps over plain HTTP.
	HTTPOnly bool
	// Keep leaves the remote session in place after the run.
	Keep bool

	Interval    time.Duration
	Interactive bool
	JSON        bool
	Mermaid     string // file to write the final graph to, "-" for stdout
	NoBanner    bool
	Watch       bool
	Debug       bool

	Logger *slog.Logger
	Stdin  io.Reader
	Stdout io.Writer
}

func (o *RunOptions) defaults() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
}

// Execute handles the 'run' command logic, dispatching to Session or Watch mode.
func Execute(ctx context.Context, opts RunOptions) error {
	opts.defaults()
	if opts.GraphPath == "" {
		return errNoGraph
	}
	if _, err := domain.ParseAlgorithm(opts.Algorithm); opts.Algorithm != "" && err != nil {
		return err
	}

	if opts.Watch {
		if opts.Interactive || opts.JSON {
			return fmt.Errorf("--watch cannot be combined with --interactive or --json")
		}
		return RunWatch(ctx, opts)
	}

	_, err := RunSession(ctx, opts)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
