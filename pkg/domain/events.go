package domain

import (
	"encoding/json"
	"fmt"
)

// EventType tags a step event.
type EventType string

const (
	EventStart        EventType = "start"
	EventMarkVisited  EventType = "mark_visited"
	EventQueuePush    EventType = "queue_push"
	EventQueuePop     EventType = "queue_pop"
	EventDiscoverEdge EventType = "discover_edge"
	EventPQPush       EventType = "pq_push"
	EventPQPop        EventType = "pq_pop"
	EventDistUpdate   EventType = "dist_update"
	EventEnd          EventType = "end"
)

// Event is the only channel through which engine state becomes visible.
// Data holds the type-specific payload, already encoded, so every transport
// ships the same bytes.
type Event struct {
	Seq  int64           `json:"seq"`
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEvent encodes payload as the event data.
func NewEvent(t EventType, payload any) (Event, error) {
	if payload == nil {
		payload = struct{}{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return Event{Type: t, Data: data}, nil
}

// Terminal reports whether this is the end event.
func (e Event) Terminal() bool {
	return e.Type == EventEnd
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%w: %s event without data", ErrMalformedEvent, e.Type)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, e.Type, err)
	}
	return nil
}

// VisitedPayload is carried by mark_visited.
type VisitedPayload struct {
	Visited []NodeID `json:"visited"`
	Node    NodeID   `json:"node"`
}

// QueuePayload is carried by queue_push/queue_pop in BFS.
type QueuePayload struct {
	Queue []NodeID `json:"queue"`
	Node  *NodeID  `json:"node,omitempty"`
}

// StackPayload is carried by queue_push/queue_pop in DFS.
type StackPayload struct {
	Stack []NodeID `json:"stack"`
	Node  *NodeID  `json:"node,omitempty"`
}

// EdgePayload is carried by discover_edge.
type EdgePayload struct {
	U NodeID `json:"u"`
	V NodeID `json:"v"`
}

// PQPayload is carried by pq_push/pq_pop.
type PQPayload struct {
	PQ   []PQEntry `json:"pq"`
	Node *NodeID   `json:"node,omitempty"`
}

// DistPayload is carried by dist_update. A nil distance is infinity, a nil
// predecessor means none.
type DistPayload struct {
	Dist map[NodeID]*float64 `json:"dist"`
	Prev map[NodeID]*NodeID  `json:"prev"`
}

// PQEntry is one priority-frontier entry, encoded as a `[distance, node]` pair.
type PQEntry struct {
	Dist float64
	Node NodeID
}

// MarshalJSON encodes the entry as a two-element array.
func (p PQEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Dist, p.Node})
}

// UnmarshalJSON decodes a `[distance, node]` pair.
func (p *PQEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("pq entry must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &p.Dist); err != nil {
		return fmt.Errorf("pq entry distance: %w", err)
	}
	if err := json.Unmarshal(pair[1], &p.Node); err != nil {
		return fmt.Errorf("pq entry node: %w", err)
	}
	return nil
}
