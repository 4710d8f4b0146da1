package domain

import (
	"fmt"
	"time"
)

// Algorithm names a traversal discipline.
type Algorithm string

const (
	AlgorithmBFS      Algorithm = "bfs"
	AlgorithmDFS      Algorithm = "dfs"
	AlgorithmDijkstra Algorithm = "dijkstra"
)

// ParseAlgorithm validates an algorithm name. An empty name selects BFS.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return AlgorithmBFS, nil
	case AlgorithmBFS, AlgorithmDFS, AlgorithmDijkstra:
		return a, nil
	default:
		return "", fmt.Errorf("%w: unknown algorithm %q", ErrInvalidInput, s)
	}
}

// SessionStatus is the lifecycle of a session.
type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusEnded  SessionStatus = "ended"
)

// EngineState is the suspended position of a traversal: everything needed to
// resume it is here, so it can be persisted between steps.
type EngineState struct {
	Algorithm Algorithm           `json:"algorithm"`
	Start     NodeID              `json:"start"`
	PC        string              `json:"pc"`
	Visited   []NodeID            `json:"visited"`
	Frontier  []NodeID            `json:"frontier,omitempty"`
	Current   *NodeID             `json:"current,omitempty"`
	Cursor    int                 `json:"cursor"`
	Pending   *NodeID             `json:"pending,omitempty"`
	Dist      map[NodeID]*float64 `json:"dist,omitempty"`
	Prev      map[NodeID]*NodeID  `json:"prev,omitempty"`
	PQ        []PQEntry           `json:"pq,omitempty"`
}

// SessionInfo is the externally visible description of a session.
type SessionInfo struct {
	ID        string        `json:"session_id"`
	Algorithm Algorithm     `json:"algorithm"`
	Start     NodeID        `json:"start"`
	Status    SessionStatus `json:"status"`
	LastSeq   int64         `json:"last_seq"`
	Graph     Graph         `json:"graph"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Checkpoint is the persisted form of a session.
type Checkpoint struct {
	SessionInfo
	Journal []Event     `json:"journal"`
	Engine  EngineState `json:"engine"`
}
