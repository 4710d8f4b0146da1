package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/graphlab/internal/presentation/graph"
	"github.com/aretw0/graphlab/internal/presentation/tui"
	"github.com/aretw0/graphlab/pkg/client"
	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/aretw0/graphlab/pkg/session"
)

// backend is one session together with the transports that step it.
type backend struct {
	sessionID string
	primary   client.Transport
	fallback  client.Transport
	cleanup   func()
}

// RunSession traverses the graph at opts.GraphPath once and returns the final
// client state.
func RunSession(ctx context.Context, opts RunOptions) (client.State, error) {
	opts.defaults()
	logger := createLogger(opts)

	g, err := LoadGraph(opts.GraphPath)
	if err != nil {
		return client.State{}, err
	}
	req := client.CreateRequest{
		Graph:     g,
		Algorithm: domain.Algorithm(opts.Algorithm),
		Start:     domain.NodeID(opts.Start),
	}

	be, err := openBackend(ctx, opts, req, logger)
	if err != nil {
		return client.State{}, err
	}
	defer be.cleanup()

	quiet := opts.JSON
	if !quiet && !opts.NoBanner {
		tui.PrintBanner(opts.Stdout)
	}
	if !quiet {
		printSystemMessage(opts.Stdout, "Session '%s' on %s.", be.sessionID, describeGraph(g))
	}

	driverOpts := []client.DriverOption{
		client.WithInterval(opts.Interval),
		client.WithLogger(logger),
		client.WithObserver(observer(opts)),
	}
	if be.fallback != nil {
		driverOpts = append(driverOpts, client.WithFallback(be.fallback))
	}
	d := client.NewDriver(be.primary, driverOpts...)
	d.Start(be.sessionID)

	if opts.Interactive {
		err = stepInteractively(ctx, d, opts)
	} else {
		err = d.AutoPlay(ctx)
	}
	state := d.State()
	if err != nil {
		return state, err
	}

	if !quiet {
		if err := printSummary(opts.Stdout, state); err != nil {
			logger.Warn("rendering summary", "err", err)
		}
	}
	if opts.Mermaid != "" {
		if err := writeMermaid(opts, g, state); err != nil {
			return state, err
		}
	}
	return state, nil
}

// openBackend creates the session in-process or on opts.Server.
func openBackend(ctx context.Context, opts RunOptions, req client.CreateRequest, logger *slog.Logger) (*backend, error) {
	if opts.Server == "" {
		m := session.NewManager(session.WithLogger(logger))
		id, err := m.Create(ctx, session.CreateRequest{Graph: req.Graph, Algorithm: req.Algorithm, Start: req.Start})
		if err != nil {
			return nil, err
		}
		return &backend{sessionID: id, primary: client.NewLocalTransport(m), cleanup: func() {}}, nil
	}

	ht := client.NewHTTPTransport(opts.Server)
	id, err := ht.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create session on %s: %w", opts.Server, err)
	}
	be := &backend{sessionID: id, primary: ht}
	if !opts.HTTPOnly {
		st, err := client.DialStream(ctx, opts.Server, id)
		if err != nil {
			logger.Warn("streaming channel unavailable, using HTTP", "err", err)
		} else {
			be.primary, be.fallback = st, ht
		}
	}
	be.cleanup = func() {
		_ = be.primary.Close()
		if opts.Keep {
			return
		}
		if err := ht.Delete(context.WithoutCancel(ctx), id); err != nil {
			logger.Debug("deleting session", "session_id", id, "err", err)
		}
	}
	return be, nil
}

func observer(opts RunOptions) client.Observer {
	if opts.JSON {
		enc := json.NewEncoder(opts.Stdout)
		return func(_ client.State, ev domain.Event) {
			_ = enc.Encode(ev)
		}
	}
	return tui.NewPrinter(opts.Stdout).Print
}

// stepInteractively steps once per input line until the end or "q".
func stepInteractively(ctx context.Context, d *client.Driver, opts RunOptions) error {
	scanner := bufio.NewScanner(opts.Stdin)
	if !opts.JSON {
		printSystemMessage(opts.Stdout, "Press Enter to step, 'q' to quit.")
	}
	for !d.State().Ended {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if cmd := strings.TrimSpace(scanner.Text()); cmd == "q" || cmd == "quit" {
			return nil
		}
		_, err := d.Step(ctx)
		switch {
		case err == nil, errors.Is(err, domain.ErrMalformedEvent):
		case errors.Is(err, domain.ErrSessionEnded):
			return nil
		default:
			return err
		}
	}
	return nil
}

func printSummary(w io.Writer, s client.State) error {
	md := tui.Summary(s)
	if !tui.IsTerminal(w) {
		_, err := io.WriteString(w, md)
		return err
	}
	render, err := tui.NewRenderer(0)
	if err != nil {
		return err
	}
	out, err := render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func writeMermaid(opts RunOptions, g domain.Graph, s client.State) error {
	overlay := &graph.Overlay{Visited: s.Visited, Frontier: s.Frontier, Current: s.Current}
	for _, e := range s.PriorityFrontier {
		overlay.Frontier = append(overlay.Frontier, e.Node)
	}
	chart := graph.GenerateMermaid(g, overlay)
	if opts.Mermaid == "-" {
		_, err := io.WriteString(opts.Stdout, chart)
		return err
	}
	if err := os.WriteFile(opts.Mermaid, []byte(chart), 0o644); err != nil {
		return fmt.Errorf("write mermaid: %w", err)
	}
	return nil
}

func describeGraph(g domain.Graph) string {
	kind := "undirected"
	if g.Directed {
		kind = "directed"
	}
	if g.Weighted {
		kind += " weighted"
	}
	return fmt.Sprintf("%s graph, %d nodes, %d edges", kind, len(g.Nodes), len(g.Edges))
}
