package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/graphlab/pkg/domain"
)

// Overlay contains traversal state to visualize on the graph.
type Overlay struct {
	Visited  []domain.NodeID
	Frontier []domain.NodeID
	Current  *domain.NodeID
}

// GenerateMermaid produces a Mermaid flowchart for g.
// Directed edges are drawn as arrows, undirected ones as plain links, and
// weights of weighted graphs as edge labels. Overlay classes mark visited,
// frontier and current nodes; a node is styled by its most recent role only.
func GenerateMermaid(g domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, n := range g.Nodes {
		sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", sanitizeMermaidID(n), escapeLabel(string(n))))
	}

	link := "---"
	if g.Directed {
		link = "-->"
	}
	for _, e := range g.Edges {
		arrow := link
		if g.Weighted && e.W != nil {
			w := strconv.FormatFloat(*e.W, 'g', -1, 64)
			if g.Directed {
				arrow = fmt.Sprintf("-- \"%s\" -->", w)
			} else {
				arrow = fmt.Sprintf("-- \"%s\" ---", w)
			}
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(e.U), arrow, sanitizeMermaidID(e.V)))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#dcfce7,stroke:#16a34a,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef frontier fill:#e0f2fe,stroke:#0284c7,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#fef08a,stroke:#ca8a04,stroke-width:4px,color:#000;\n")

		styled := make(map[string]bool)
		mark := func(id domain.NodeID, class string) {
			safeID := sanitizeMermaidID(id)
			if safeID == "" || styled[safeID] {
				return
			}
			styled[safeID] = true
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", safeID, class))
		}

		if overlay.Current != nil {
			mark(*overlay.Current, "current")
		}
		for _, id := range overlay.Frontier {
			mark(id, "frontier")
		}
		for _, id := range overlay.Visited {
			mark(id, "visited")
		}
	}

	return sb.String()
}

// sanitizeMermaidID maps a node id to a Mermaid identifier. The prefix keeps
// numeric ids and reserved words like "end" valid.
func sanitizeMermaidID(id domain.NodeID) string {
	if id == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("n_")
	for _, r := range string(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
