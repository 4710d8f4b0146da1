package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// NodeID identifies a vertex. Integer ids in JSON input are normalized to their
// decimal string so ids always compare by value.
type NodeID string

// UnmarshalJSON accepts both `"a"` and `7`.
func (n *NodeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NodeID(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("node id must be a string or an integer: %w", err)
	}
	i, err := num.Int64()
	if err != nil {
		return fmt.Errorf("node id must be a string or an integer, got %s", num)
	}
	*n = NodeID(strconv.FormatInt(i, 10))
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for graph files.
func (n *NodeID) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*n = NodeID(v)
	case int:
		*n = NodeID(strconv.Itoa(v))
	case int64:
		*n = NodeID(strconv.FormatInt(v, 10))
	default:
		return fmt.Errorf("node id must be a string or an integer, got %T", raw)
	}
	return nil
}

// Edge is a single input edge. W is nil when the edge carries no weight.
type Edge struct {
	U NodeID   `json:"u" yaml:"u"`
	V NodeID   `json:"v" yaml:"v"`
	W *float64 `json:"w,omitempty" yaml:"w,omitempty"`
}

// Graph is the immutable input graph of a session.
type Graph struct {
	Directed bool     `json:"directed" yaml:"directed"`
	Weighted bool     `json:"weighted" yaml:"weighted"`
	Nodes    []NodeID `json:"nodes" yaml:"nodes"`
	Edges    []Edge   `json:"edges" yaml:"edges"`
}

// Neighbor is one traversable arc out of a node.
type Neighbor struct {
	To     NodeID  `json:"to"`
	Weight float64 `json:"w"`
}

// Adjacency is the traversal view of a Graph. Neighbor order follows edge input
// order; an undirected edge (u,v) appears as u→v and v→u.
type Adjacency struct {
	order map[NodeID]int
	nodes []NodeID
	out   map[NodeID][]Neighbor
}

// Normalize returns a copy of g with duplicate nodes collapsed (first occurrence wins).
func (g Graph) Normalize() Graph {
	seen := make(map[NodeID]struct{}, len(g.Nodes))
	nodes := make([]NodeID, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		nodes = append(nodes, n)
	}
	edges := make([]Edge, len(g.Edges))
	copy(edges, g.Edges)
	return Graph{Directed: g.Directed, Weighted: g.Weighted, Nodes: nodes, Edges: edges}
}

// Validate checks the structural invariants of the graph.
func (g Graph) Validate() error {
	index := make(map[NodeID]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n == "" {
			return fmt.Errorf("%w: empty node id", ErrInvalidInput)
		}
		index[n] = struct{}{}
	}
	for i, e := range g.Edges {
		if _, ok := index[e.U]; !ok {
			return fmt.Errorf("%w: edge %d references unknown node %q", ErrInvalidInput, i, e.U)
		}
		if _, ok := index[e.V]; !ok {
			return fmt.Errorf("%w: edge %d references unknown node %q", ErrInvalidInput, i, e.V)
		}
		if e.W != nil && (math.IsNaN(*e.W) || math.IsInf(*e.W, 0)) {
			return fmt.Errorf("%w: edge %d has a non-finite weight", ErrInvalidInput, i)
		}
	}
	return nil
}

// HasNode reports whether id is one of the graph's nodes.
func (g Graph) HasNode(id NodeID) bool {
	for _, n := range g.Nodes {
		if n == id {
			return true
		}
	}
	return false
}

// EdgeWeight returns the weight the algorithms use for e.
func (g Graph) EdgeWeight(e Edge) float64 {
	if !g.Weighted || e.W == nil {
		return 1
	}
	return *e.W
}

// Adjacency builds the traversal view. The graph itself is not modified.
func (g Graph) Adjacency() *Adjacency {
	a := &Adjacency{
		order: make(map[NodeID]int, len(g.Nodes)),
		nodes: g.Nodes,
		out:   make(map[NodeID][]Neighbor, len(g.Nodes)),
	}
	for i, n := range g.Nodes {
		if _, ok := a.order[n]; !ok {
			a.order[n] = i
		}
		if _, ok := a.out[n]; !ok {
			a.out[n] = []Neighbor{}
		}
	}
	for _, e := range g.Edges {
		w := g.EdgeWeight(e)
		a.out[e.U] = append(a.out[e.U], Neighbor{To: e.V, Weight: w})
		if !g.Directed {
			a.out[e.V] = append(a.out[e.V], Neighbor{To: e.U, Weight: w})
		}
	}
	return a
}

// Neighbors returns the arcs leaving id, in input order.
func (a *Adjacency) Neighbors(id NodeID) []Neighbor {
	return a.out[id]
}

// Order returns the input position of id, used for deterministic tie-breaks.
func (a *Adjacency) Order(id NodeID) int {
	if i, ok := a.order[id]; ok {
		return i
	}
	return len(a.nodes)
}

// Nodes returns the node ids in input order.
func (a *Adjacency) Nodes() []NodeID {
	return a.nodes
}

// Map returns the adjacency as a plain map, for debug views.
func (a *Adjacency) Map() map[NodeID][]Neighbor {
	out := make(map[NodeID][]Neighbor, len(a.out))
	for k, v := range a.out {
		out[k] = append([]Neighbor(nil), v...)
	}
	return out
}
