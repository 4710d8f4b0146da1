package runtime

import (
	"fmt"

	"github.com/aretw0/graphlab/pkg/domain"
)

// Validate checks that algorithm can run on graph from start. It rejects unknown
// algorithms, unknown start nodes and, for Dijkstra, negative edge weights.
func Validate(graph domain.Graph, algorithm domain.Algorithm, start domain.NodeID) error {
	if _, err := domain.ParseAlgorithm(string(algorithm)); err != nil {
		return err
	}
	if err := graph.Validate(); err != nil {
		return err
	}
	if !graph.HasNode(start) {
		return fmt.Errorf("%w: start node %q not in graph", domain.ErrInvalidInput, start)
	}
	if algorithm == domain.AlgorithmDijkstra {
		for i, e := range graph.Edges {
			if w := graph.EdgeWeight(e); w < 0 {
				return fmt.Errorf("%w: edge %d (%s→%s) has negative weight %g", domain.ErrInvalidInput, i, e.U, e.V, w)
			}
		}
	}
	return nil
}
