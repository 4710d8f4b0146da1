package runtime

import (
	"fmt"
	"slices"

	"github.com/aretw0/graphlab/pkg/domain"
)

// Program counters. A traversal is always suspended at one of these.
const (
	pcNotStarted = "not_started"
	pcSeed       = "seed"
	pcInitDist   = "init_dist"
	pcPop        = "pop"
	pcMark       = "mark"
	pcScan       = "scan"
	pcPush       = "push"
	pcRelax      = "relax"
	pcRelaxDist  = "relax_dist"
	pcEnded      = "ended"
)

// transition performs one internal move. It reports whether the move produced
// an event; moves that do not are followed immediately by the next one.
type transition func() (domain.Event, bool, error)

// Engine advances one traversal by one primitive action per call.
// It is not safe for concurrent use; callers serialize Advance.
type Engine struct {
	graph domain.Graph
	adj   *domain.Adjacency
	state domain.EngineState

	visited    map[domain.NodeID]bool
	inFrontier map[domain.NodeID]bool
	pq         *pqueue

	next transition
}

// New creates an engine for algorithm on graph, starting at start.
func New(graph domain.Graph, algorithm domain.Algorithm, start domain.NodeID) (*Engine, error) {
	algorithm, err := domain.ParseAlgorithm(string(algorithm))
	if err != nil {
		return nil, err
	}
	graph = graph.Normalize()
	if err := Validate(graph, algorithm, start); err != nil {
		return nil, err
	}
	return build(graph, domain.EngineState{
		Algorithm: algorithm,
		Start:     start,
		PC:        pcNotStarted,
		Visited:   []domain.NodeID{},
	})
}

// Restore resumes an engine from a state previously returned by Snapshot.
func Restore(graph domain.Graph, state domain.EngineState) (*Engine, error) {
	graph = graph.Normalize()
	if err := Validate(graph, state.Algorithm, state.Start); err != nil {
		return nil, err
	}
	return build(graph, cloneState(state))
}

func build(graph domain.Graph, state domain.EngineState) (*Engine, error) {
	e := &Engine{
		graph:      graph,
		adj:        graph.Adjacency(),
		state:      state,
		visited:    make(map[domain.NodeID]bool, len(graph.Nodes)),
		inFrontier: make(map[domain.NodeID]bool, len(graph.Nodes)),
	}
	if e.state.Visited == nil {
		e.state.Visited = []domain.NodeID{}
	}
	for _, n := range e.state.Visited {
		e.visited[n] = true
	}
	for _, n := range e.state.Frontier {
		e.inFrontier[n] = true
	}

	switch state.Algorithm {
	case domain.AlgorithmBFS, domain.AlgorithmDFS:
		e.next = e.walk
	case domain.AlgorithmDijkstra:
		e.pq = newPQueue(e.adj.Order, e.state.PQ)
		e.state.PQ = nil
		e.next = e.dijkstra
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", domain.ErrInvalidInput, state.Algorithm)
	}
	return e, nil
}

// Advance performs exactly one primitive action and returns its event.
// After the end event it fails with domain.ErrSessionEnded.
func (e *Engine) Advance() (domain.Event, error) {
	if e.state.PC == pcEnded {
		return domain.Event{}, domain.ErrSessionEnded
	}
	for {
		ev, emitted, err := e.next()
		if err != nil {
			return domain.Event{}, err
		}
		if emitted {
			return ev, nil
		}
	}
}

// Ended reports whether the end event has been produced.
func (e *Engine) Ended() bool {
	return e.state.PC == pcEnded
}

// Algorithm returns the traversal discipline.
func (e *Engine) Algorithm() domain.Algorithm {
	return e.state.Algorithm
}

// Graph returns the (normalized) input graph.
func (e *Engine) Graph() domain.Graph {
	return e.graph
}

// Adjacency returns the traversal view of the graph.
func (e *Engine) Adjacency() *domain.Adjacency {
	return e.adj
}

// Snapshot returns a deep copy of the suspended state.
func (e *Engine) Snapshot() domain.EngineState {
	s := cloneState(e.state)
	if e.pq != nil {
		s.PQ = slices.Clone(e.pq.items)
	}
	return s
}

func (e *Engine) markVisited(n domain.NodeID) {
	e.visited[n] = true
	e.state.Visited = append(e.state.Visited, n)
}

func (e *Engine) end() (domain.Event, bool, error) {
	e.state.PC = pcEnded
	e.state.Current = nil
	ev, err := domain.NewEvent(domain.EventEnd, nil)
	return ev, true, err
}

func (e *Engine) emit(t domain.EventType, payload any) (domain.Event, bool, error) {
	ev, err := domain.NewEvent(t, payload)
	return ev, err == nil, err
}

func (e *Engine) badPC() (domain.Event, bool, error) {
	return domain.Event{}, false, fmt.Errorf("%w: unknown program counter %q", domain.ErrInvalidState, e.state.PC)
}

func ptr[T any](v T) *T {
	return &v
}

func cloneState(s domain.EngineState) domain.EngineState {
	out := s
	out.Visited = slices.Clone(s.Visited)
	out.Frontier = slices.Clone(s.Frontier)
	out.PQ = slices.Clone(s.PQ)
	if s.Current != nil {
		out.Current = ptr(*s.Current)
	}
	if s.Pending != nil {
		out.Pending = ptr(*s.Pending)
	}
	if s.Dist != nil {
		out.Dist = make(map[domain.NodeID]*float64, len(s.Dist))
		for k, v := range s.Dist {
			if v != nil {
				v = ptr(*v)
			}
			out.Dist[k] = v
		}
	}
	if s.Prev != nil {
		out.Prev = make(map[domain.NodeID]*domain.NodeID, len(s.Prev))
		for k, v := range s.Prev {
			if v != nil {
				v = ptr(*v)
			}
			out.Prev[k] = v
		}
	}
	return out
}
