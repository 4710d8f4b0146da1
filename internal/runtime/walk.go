package runtime

import (
	"slices"

	"github.com/aretw0/graphlab/pkg/domain"
)

// walk is the transition function shared by BFS and DFS. They differ only in
// which end of the frontier is popped and in the payload key (queue/stack).
func (e *Engine) walk() (domain.Event, bool, error) {
	switch e.state.PC {
	case pcNotStarted:
		e.state.PC = pcSeed
		return e.emit(domain.EventStart, nil)

	case pcSeed:
		e.pushFrontier(e.state.Start)
		e.state.PC = pcPop
		return e.emit(domain.EventQueuePush, e.frontierPayload(nil))

	case pcPop:
		if len(e.state.Frontier) == 0 {
			return e.end()
		}
		node := e.popFrontier()
		e.state.Current = ptr(node)
		// An already visited node is skipped: the next call pops again.
		if !e.visited[node] {
			e.state.PC = pcMark
		}
		return e.emit(domain.EventQueuePop, e.frontierPayload(&node))

	case pcMark:
		node := *e.state.Current
		e.markVisited(node)
		e.state.PC = pcScan
		e.state.Cursor = 0
		return e.emit(domain.EventMarkVisited, domain.VisitedPayload{
			Visited: slices.Clone(e.state.Visited),
			Node:    node,
		})

	case pcScan:
		u := *e.state.Current
		neighbors := e.adj.Neighbors(u)
		for e.state.Cursor < len(neighbors) {
			v := neighbors[e.state.Cursor].To
			e.state.Cursor++
			if e.visited[v] || e.inFrontier[v] {
				continue
			}
			e.state.Pending = ptr(v)
			e.state.PC = pcPush
			return e.emit(domain.EventDiscoverEdge, domain.EdgePayload{U: u, V: v})
		}
		e.state.PC = pcPop
		return domain.Event{}, false, nil

	case pcPush:
		v := *e.state.Pending
		e.state.Pending = nil
		e.pushFrontier(v)
		e.state.PC = pcScan
		return e.emit(domain.EventQueuePush, e.frontierPayload(nil))
	}
	return e.badPC()
}

func (e *Engine) pushFrontier(n domain.NodeID) {
	e.state.Frontier = append(e.state.Frontier, n)
	e.inFrontier[n] = true
}

// popFrontier takes the front for BFS (FIFO) and the top for DFS (LIFO).
func (e *Engine) popFrontier() domain.NodeID {
	var n domain.NodeID
	if e.state.Algorithm == domain.AlgorithmDFS {
		last := len(e.state.Frontier) - 1
		n = e.state.Frontier[last]
		e.state.Frontier = e.state.Frontier[:last]
	} else {
		n = e.state.Frontier[0]
		e.state.Frontier = e.state.Frontier[1:]
	}
	delete(e.inFrontier, n)
	return n
}

func (e *Engine) frontierPayload(node *domain.NodeID) any {
	snapshot := make([]domain.NodeID, len(e.state.Frontier))
	copy(snapshot, e.state.Frontier)
	if e.state.Algorithm == domain.AlgorithmDFS {
		return domain.StackPayload{Stack: snapshot, Node: node}
	}
	return domain.QueuePayload{Queue: snapshot, Node: node}
}
