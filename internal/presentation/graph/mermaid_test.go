package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/graphlab/internal/presentation/graph"
	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	w := 2.5
	tests := []struct {
		name     string
		graph    domain.Graph
		contains []string
		excludes []string
	}{
		{
			name: "Undirected",
			graph: domain.Graph{
				Nodes: []domain.NodeID{"1", "2"},
				Edges: []domain.Edge{{U: "1", V: "2"}},
			},
			contains: []string{`n_1(("1"))`, "n_1 --- n_2"},
			excludes: []string{"-->"},
		},
		{
			name: "Directed Weighted",
			graph: domain.Graph{
				Directed: true,
				Weighted: true,
				Nodes:    []domain.NodeID{"a", "b"},
				Edges:    []domain.Edge{{U: "a", V: "b", W: &w}},
			},
			contains: []string{`n_a -- "2.5" --> n_b`},
		},
		{
			name: "Sanitized IDs",
			graph: domain.Graph{
				Nodes: []domain.NodeID{"end", "x-y"},
				Edges: []domain.Edge{{U: "end", V: "x-y"}},
			},
			contains: []string{`n_end(("end"))`, "n_end --- n_x_y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.graph, nil)
			assert.True(t, strings.HasPrefix(got, "graph LR\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	g := domain.Graph{Nodes: []domain.NodeID{"1", "2", "3"}}
	current := domain.NodeID("2")

	got := graph.GenerateMermaid(g, &graph.Overlay{
		Visited:  []domain.NodeID{"1", "2"},
		Frontier: []domain.NodeID{"3"},
		Current:  &current,
	})

	assert.Contains(t, got, "class n_2 current;")
	assert.Contains(t, got, "class n_3 frontier;")
	assert.Contains(t, got, "class n_1 visited;")
	assert.NotContains(t, got, "class n_2 visited;", "current wins over visited")
}
