package runtime

import (
	"maps"
	"math"

	"github.com/aretw0/graphlab/pkg/domain"
)

// dijkstra is the transition function for shortest paths. Each relaxation is
// two actions: pq_push for the frontier change, then dist_update for the tables.
func (e *Engine) dijkstra() (domain.Event, bool, error) {
	switch e.state.PC {
	case pcNotStarted:
		e.state.PC = pcSeed
		return e.emit(domain.EventStart, nil)

	case pcSeed:
		e.state.Dist = make(map[domain.NodeID]*float64, len(e.adj.Nodes()))
		e.state.Prev = make(map[domain.NodeID]*domain.NodeID, len(e.adj.Nodes()))
		for _, n := range e.adj.Nodes() {
			e.state.Dist[n] = nil
			e.state.Prev[n] = nil
		}
		e.state.Dist[e.state.Start] = ptr(0.0)
		e.pq.upsert(e.state.Start, 0)
		e.state.PC = pcInitDist
		return e.emit(domain.EventPQPush, domain.PQPayload{PQ: e.pq.snapshot(), Node: ptr(e.state.Start)})

	case pcInitDist:
		e.state.PC = pcPop
		return e.emit(domain.EventDistUpdate, e.distPayload())

	case pcPop:
		if e.pq.Len() == 0 {
			return e.end()
		}
		entry := e.pq.popMin()
		e.state.Current = ptr(entry.Node)
		if !e.visited[entry.Node] {
			e.state.PC = pcMark
		}
		return e.emit(domain.EventPQPop, domain.PQPayload{PQ: e.pq.snapshot(), Node: ptr(entry.Node)})

	case pcMark:
		node := *e.state.Current
		e.markVisited(node)
		e.state.PC = pcRelax
		e.state.Cursor = 0
		return e.emit(domain.EventMarkVisited, domain.VisitedPayload{
			Visited: append([]domain.NodeID(nil), e.state.Visited...),
			Node:    node,
		})

	case pcRelax:
		u := *e.state.Current
		du := e.dist(u)
		neighbors := e.adj.Neighbors(u)
		for e.state.Cursor < len(neighbors) {
			nb := neighbors[e.state.Cursor]
			e.state.Cursor++
			if e.visited[nb.To] {
				continue
			}
			alt := du + nb.Weight
			if alt >= e.dist(nb.To) {
				continue
			}
			e.state.Dist[nb.To] = ptr(alt)
			e.state.Prev[nb.To] = ptr(u)
			e.pq.upsert(nb.To, alt)
			e.state.Pending = ptr(nb.To)
			e.state.PC = pcRelaxDist
			return e.emit(domain.EventPQPush, domain.PQPayload{PQ: e.pq.snapshot(), Node: ptr(nb.To)})
		}
		e.state.PC = pcPop
		return domain.Event{}, false, nil

	case pcRelaxDist:
		e.state.Pending = nil
		e.state.PC = pcRelax
		return e.emit(domain.EventDistUpdate, e.distPayload())
	}
	return e.badPC()
}

func (e *Engine) dist(n domain.NodeID) float64 {
	if d := e.state.Dist[n]; d != nil {
		return *d
	}
	return math.Inf(1)
}

func (e *Engine) distPayload() domain.DistPayload {
	return domain.DistPayload{
		Dist: maps.Clone(e.state.Dist),
		Prev: maps.Clone(e.state.Prev),
	}
}
