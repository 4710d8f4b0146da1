package client

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/aretw0/graphlab/pkg/domain"
)

// FrontierKind tells how Frontier is consumed.
type FrontierKind string

const (
	FrontierQueue FrontierKind = "queue"
	FrontierStack FrontierKind = "stack"
)

// State is the visualization state derived from an event prefix.
// It is a pure function of EventLog: Replay(s.EventLog) equals s.
type State struct {
	Visited          []domain.NodeID
	Frontier         []domain.NodeID
	FrontierKind     FrontierKind
	PriorityFrontier []domain.PQEntry
	// Dist holds +Inf for unreachable nodes.
	Dist map[domain.NodeID]float64
	// Prev omits nodes without a predecessor.
	Prev     map[domain.NodeID]domain.NodeID
	Current  *domain.NodeID
	Ended    bool
	EventLog []domain.Event
}

// frontierPayload accepts either key; which one is present decides the kind.
type frontierPayload struct {
	Queue *[]domain.NodeID `json:"queue"`
	Stack *[]domain.NodeID `json:"stack"`
	Node  *domain.NodeID   `json:"node"`
}

// Apply returns the state after ev. Only the fields ev's type addresses change,
// and ev is appended to the log. Event types the reducer does not know are
// logged without touching any other field.
//
// A payload that cannot be decoded yields domain.ErrMalformedEvent and s
// unchanged: the event is dropped, not logged.
func Apply(s State, ev domain.Event) (State, error) {
	next := s

	switch ev.Type {
	case domain.EventStart:
		next.Current = nil

	case domain.EventMarkVisited:
		var p domain.VisitedPayload
		if err := ev.Decode(&p); err != nil {
			return s, err
		}
		next.Visited = nonNil(p.Visited)
		if p.Node != "" {
			next.Current = ptr(p.Node)
		}

	case domain.EventQueuePush, domain.EventQueuePop:
		var p frontierPayload
		if err := ev.Decode(&p); err != nil {
			return s, err
		}
		switch {
		case p.Queue != nil:
			next.Frontier = nonNil(*p.Queue)
			next.FrontierKind = FrontierQueue
		case p.Stack != nil:
			next.Frontier = nonNil(*p.Stack)
			next.FrontierKind = FrontierStack
		default:
			return s, fmt.Errorf("%w: %s without queue or stack", domain.ErrMalformedEvent, ev.Type)
		}
		if ev.Type == domain.EventQueuePop && p.Node != nil {
			next.Current = ptr(*p.Node)
		}

	case domain.EventDiscoverEdge:
		var p domain.EdgePayload
		if err := ev.Decode(&p); err != nil {
			return s, err
		}

	case domain.EventPQPush, domain.EventPQPop:
		var p domain.PQPayload
		if err := ev.Decode(&p); err != nil {
			return s, err
		}
		if p.PQ == nil {
			return s, fmt.Errorf("%w: %s without pq", domain.ErrMalformedEvent, ev.Type)
		}
		next.PriorityFrontier = p.PQ
		if ev.Type == domain.EventPQPop && p.Node != nil {
			next.Current = ptr(*p.Node)
		}

	case domain.EventDistUpdate:
		var p domain.DistPayload
		if err := ev.Decode(&p); err != nil {
			return s, err
		}
		next.Dist = make(map[domain.NodeID]float64, len(p.Dist))
		for n, d := range p.Dist {
			if d == nil {
				next.Dist[n] = math.Inf(1)
				continue
			}
			next.Dist[n] = *d
		}
		next.Prev = make(map[domain.NodeID]domain.NodeID, len(p.Prev))
		for n, pr := range p.Prev {
			if pr != nil {
				next.Prev[n] = *pr
			}
		}

	case domain.EventEnd:
		next.Ended = true
		next.Current = nil
	}

	next.EventLog = append(slices.Clip(s.EventLog), ev)
	return next, nil
}

// Replay folds events from the empty state. Malformed events are skipped.
func Replay(events []domain.Event) State {
	var s State
	for _, ev := range events {
		if next, err := Apply(s, ev); err == nil {
			s = next
		}
	}
	return s
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Visited = slices.Clone(s.Visited)
	out.Frontier = slices.Clone(s.Frontier)
	out.PriorityFrontier = slices.Clone(s.PriorityFrontier)
	out.Dist = maps.Clone(s.Dist)
	out.Prev = maps.Clone(s.Prev)
	out.EventLog = slices.Clone(s.EventLog)
	if s.Current != nil {
		out.Current = ptr(*s.Current)
	}
	return out
}

// LastSeq returns the seq of the last applied event, or 0.
func (s State) LastSeq() int64 {
	if len(s.EventLog) == 0 {
		return 0
	}
	return s.EventLog[len(s.EventLog)-1].Seq
}

// DecodeEvent parses one event frame.
func DecodeEvent(frame []byte) (domain.Event, error) {
	var ev domain.Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	if ev.Type == "" {
		return domain.Event{}, fmt.Errorf("%w: frame without type", domain.ErrMalformedEvent)
	}
	return ev, nil
}

func nonNil(ids []domain.NodeID) []domain.NodeID {
	if ids == nil {
		return []domain.NodeID{}
	}
	return ids
}

func ptr[T any](v T) *T {
	return &v
}
