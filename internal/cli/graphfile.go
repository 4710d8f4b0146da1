package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/graphlab/pkg/domain"
	"gopkg.in/yaml.v3"
)

// graphFile is the on-disk graph format. JSON files parse as YAML.
type graphFile struct {
	Directed bool            `yaml:"directed"`
	Weighted *bool           `yaml:"weighted"`
	Nodes    []domain.NodeID `yaml:"nodes"`
	Edges    []fileEdge      `yaml:"edges"`
}

// fileEdge accepts `[u, v]`, `[u, v, w]` or `{u: .., v: .., w: ..}`.
type fileEdge domain.Edge

func (e *fileEdge) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		if n := len(value.Content); n < 2 || n > 3 {
			return fmt.Errorf("line %d: edge must have 2 or 3 elements, got %d", value.Line, n)
		}
		if err := value.Content[0].Decode(&e.U); err != nil {
			return err
		}
		if err := value.Content[1].Decode(&e.V); err != nil {
			return err
		}
		if len(value.Content) == 3 {
			var w float64
			if err := value.Content[2].Decode(&w); err != nil {
				return fmt.Errorf("line %d: edge weight: %w", value.Line, err)
			}
			e.W = &w
		}
		return nil
	case yaml.MappingNode:
		var plain domain.Edge
		if err := value.Decode(&plain); err != nil {
			return err
		}
		*e = fileEdge(plain)
		return nil
	}
	return fmt.Errorf("line %d: edge must be a list or a mapping", value.Line)
}

// LoadGraph reads a graph file.
func LoadGraph(path string) (domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Graph{}, fmt.Errorf("read graph file: %w", err)
	}
	g, err := ParseGraph(data)
	if err != nil {
		return domain.Graph{}, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// ParseGraph decodes a YAML or JSON graph document. When `weighted` is
// omitted, the graph is weighted if any edge carries a weight.
func ParseGraph(data []byte) (domain.Graph, error) {
	var f graphFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Graph{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if len(f.Nodes) == 0 {
		return domain.Graph{}, fmt.Errorf("%w: graph has no nodes", domain.ErrInvalidInput)
	}

	g := domain.Graph{Directed: f.Directed, Nodes: f.Nodes, Edges: make([]domain.Edge, len(f.Edges))}
	for i, e := range f.Edges {
		g.Edges[i] = domain.Edge(e)
		if f.Weighted == nil && e.W != nil {
			g.Weighted = true
		}
	}
	if f.Weighted != nil {
		g.Weighted = *f.Weighted
	}

	g = g.Normalize()
	if err := g.Validate(); err != nil {
		return domain.Graph{}, err
	}
	return g, nil
}

// errNoGraph is returned when run is called without a graph file.
var errNoGraph = errors.New("a graph file is required")
