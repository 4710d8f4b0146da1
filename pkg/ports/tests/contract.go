package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/aretw0/graphlab/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewCheckpoint builds a small, valid checkpoint for contract tests.
func NewCheckpoint(id string) *domain.Checkpoint {
	start := domain.NodeID("1")
	ev, _ := domain.NewEvent(domain.EventStart, nil)
	ev.Seq = 1
	return &domain.Checkpoint{
		SessionInfo: domain.SessionInfo{
			ID:        id,
			Algorithm: domain.AlgorithmBFS,
			Start:     start,
			Status:    domain.StatusActive,
			LastSeq:   1,
			Graph: domain.Graph{
				Nodes: []domain.NodeID{"1", "2"},
				Edges: []domain.Edge{{U: "1", V: "2"}},
			},
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
			UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
		},
		Journal: []domain.Event{ev},
		Engine: domain.EngineState{
			Algorithm: domain.AlgorithmBFS,
			Start:     start,
			PC:        "seed",
			Visited:   []domain.NodeID{},
		},
	}
}

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the interface contract.
func RunSessionStoreContract(t *testing.T, store ports.SessionStore) {
	t.Helper()
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		cp := NewCheckpoint(sessionID)

		require.NoError(t, store.Save(ctx, sessionID, cp))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, cp.ID, loaded.ID)
		assert.Equal(t, cp.Algorithm, loaded.Algorithm)
		assert.Equal(t, cp.LastSeq, loaded.LastSeq)
		assert.Equal(t, cp.Graph.Nodes, loaded.Graph.Nodes)
		assert.Equal(t, cp.Engine.PC, loaded.Engine.PC)
		require.Len(t, loaded.Journal, 1)
		assert.JSONEq(t, string(cp.Journal[0].Data), string(loaded.Journal[0].Data))
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Engine.Visited = append(loaded.Engine.Visited, "mutated")

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotContains(t, again.Engine.Visited, domain.NodeID("mutated"))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, NewCheckpoint(sessionID)))
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, NewCheckpoint(id1))
		_ = store.Save(ctx, id2, NewCheckpoint(id2))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
