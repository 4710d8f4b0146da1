package tui

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/graphlab/pkg/client"
	"github.com/aretw0/graphlab/pkg/domain"
)

// Summary renders the final traversal state as markdown. Nodes are listed in
// visit order; distance columns appear only when distances were reported.
func Summary(s client.State) string {
	var sb strings.Builder
	sb.WriteString("# Traversal\n\n")
	fmt.Fprintf(&sb, "- **Events:** %d\n", len(s.EventLog))
	fmt.Fprintf(&sb, "- **Visited:** %d\n", len(s.Visited))
	fmt.Fprintf(&sb, "- **Finished:** %t\n\n", s.Ended)

	if len(s.Dist) == 0 {
		sb.WriteString("| # | Node |\n|---|---|\n")
		for i, n := range s.Visited {
			fmt.Fprintf(&sb, "| %d | %s |\n", i+1, n)
		}
		return sb.String()
	}

	sb.WriteString("| Node | Dist | Prev | Path |\n|---|---|---|---|\n")
	for _, n := range distOrder(s) {
		prev := "-"
		if p, ok := s.Prev[n]; ok {
			prev = string(p)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", n, formatDist(s.Dist[n]), prev, path(s, n))
	}
	return sb.String()
}

// distOrder lists visited nodes first, then the rest sorted by id.
func distOrder(s client.State) []domain.NodeID {
	seen := make(map[domain.NodeID]bool, len(s.Dist))
	order := make([]domain.NodeID, 0, len(s.Dist))
	for _, n := range s.Visited {
		if _, ok := s.Dist[n]; ok && !seen[n] {
			seen[n] = true
			order = append(order, n)
		}
	}
	var rest []domain.NodeID
	for n := range s.Dist {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	slices.Sort(rest)
	return append(order, rest...)
}

// path follows Prev back to the source. Unreachable nodes have no path.
func path(s client.State, n domain.NodeID) string {
	if math.IsInf(s.Dist[n], 1) {
		return "-"
	}
	hops := []string{string(n)}
	for cur := n; len(hops) <= len(s.Dist); {
		p, ok := s.Prev[cur]
		if !ok {
			break
		}
		hops = append(hops, string(p))
		cur = p
	}
	slices.Reverse(hops)
	return strings.Join(hops, " → ")
}

func formatDist(d float64) string {
	if math.IsInf(d, 1) {
		return "∞"
	}
	return strconv.FormatFloat(d, 'g', -1, 64)
}

func formatDistTable(s client.State) string {
	parts := make([]string, 0, len(s.Dist))
	for _, n := range distOrder(s) {
		parts = append(parts, fmt.Sprintf("%s:%s", n, formatDist(s.Dist[n])))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
