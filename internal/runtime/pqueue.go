package runtime

import (
	"container/heap"
	"slices"

	"github.com/aretw0/graphlab/pkg/domain"
)

// pqueue is a min-heap of (distance, node) keyed by distance, then by the
// node's input position. It holds at most one entry per node.
type pqueue struct {
	items []domain.PQEntry
	rank  func(domain.NodeID) int
}

func newPQueue(rank func(domain.NodeID) int, items []domain.PQEntry) *pqueue {
	q := &pqueue{items: slices.Clone(items), rank: rank}
	heap.Init(q)
	return q
}

func (q *pqueue) Len() int           { return len(q.items) }
func (q *pqueue) Less(i, j int) bool { return q.before(q.items[i], q.items[j]) }
func (q *pqueue) Swap(i, j int)      { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *pqueue) Push(x any) {
	q.items = append(q.items, x.(domain.PQEntry))
}

func (q *pqueue) Pop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	q.items = old[:n-1]
	return it
}

func (q *pqueue) before(a, b domain.PQEntry) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return q.rank(a.Node) < q.rank(b.Node)
}

// upsert inserts node or lowers its key in place.
func (q *pqueue) upsert(node domain.NodeID, dist float64) {
	for i := range q.items {
		if q.items[i].Node == node {
			q.items[i].Dist = dist
			heap.Fix(q, i)
			return
		}
	}
	heap.Push(q, domain.PQEntry{Dist: dist, Node: node})
}

func (q *pqueue) popMin() domain.PQEntry {
	return heap.Pop(q).(domain.PQEntry)
}

// snapshot returns the entries in priority order.
func (q *pqueue) snapshot() []domain.PQEntry {
	out := make([]domain.PQEntry, len(q.items))
	copy(out, q.items)
	slices.SortFunc(out, func(a, b domain.PQEntry) int {
		switch {
		case q.before(a, b):
			return -1
		case q.before(b, a):
			return 1
		}
		return 0
	})
	return out
}
