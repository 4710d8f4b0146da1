package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/graphlab/pkg/client"
	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var eventColors = map[domain.EventType]string{
	domain.EventStart:        "#a78bfa",
	domain.EventEnd:          "#a78bfa",
	domain.EventMarkVisited:  "#22c55e",
	domain.EventQueuePush:    "#38bdf8",
	domain.EventQueuePop:     "#0ea5e9",
	domain.EventPQPush:       "#38bdf8",
	domain.EventPQPop:        "#0ea5e9",
	domain.EventDiscoverEdge: "#f59e0b",
	domain.EventDistUpdate:   "#f472b6",
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Printer writes one line per step event. Colors are used only on terminals.
type Printer struct {
	out *termenv.Output
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	profile := termenv.Ascii
	if IsTerminal(w) {
		profile = termenv.EnvColorProfile()
	}
	return &Printer{out: termenv.NewOutput(w, termenv.WithProfile(profile))}
}

// Print renders ev against the state it produced.
func (p *Printer) Print(s client.State, ev domain.Event) {
	label := fmt.Sprintf("%-13s", ev.Type)
	styled := p.out.String(label).Bold()
	if c, ok := eventColors[ev.Type]; ok {
		styled = styled.Foreground(p.out.Color(c))
	}
	fmt.Fprintf(p.out, "%4d  %s  %s\n", ev.Seq, styled, Describe(s, ev))
}

// Describe summarizes what ev changed in s, without colors.
func Describe(s client.State, ev domain.Event) string {
	switch ev.Type {
	case domain.EventMarkVisited:
		return fmt.Sprintf("visit %s  visited=%s", current(s), joinIDs(s.Visited))
	case domain.EventQueuePush, domain.EventQueuePop:
		kind := s.FrontierKind
		if kind == "" {
			kind = client.FrontierQueue
		}
		verb := "push"
		if ev.Type == domain.EventQueuePop {
			verb = "pop " + current(s)
		}
		return fmt.Sprintf("%s  %s=%s", verb, kind, joinIDs(s.Frontier))
	case domain.EventPQPush, domain.EventPQPop:
		entries := make([]string, len(s.PriorityFrontier))
		for i, e := range s.PriorityFrontier {
			entries[i] = fmt.Sprintf("%s:%s", e.Node, formatDist(e.Dist))
		}
		verb := "push"
		if ev.Type == domain.EventPQPop {
			verb = "pop " + current(s)
		}
		return fmt.Sprintf("%s  pq=[%s]", verb, strings.Join(entries, " "))
	case domain.EventDiscoverEdge:
		var p domain.EdgePayload
		if err := ev.Decode(&p); err != nil {
			return ""
		}
		return fmt.Sprintf("%s -> %s", p.U, p.V)
	case domain.EventDistUpdate:
		return "dist=" + formatDistTable(s)
	case domain.EventEnd:
		return fmt.Sprintf("visited %d nodes", len(s.Visited))
	}
	return ""
}

func current(s client.State) string {
	if s.Current == nil {
		return "-"
	}
	return string(*s.Current)
}

func joinIDs(ids []domain.NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
