package client

import (
	"context"

	"github.com/aretw0/graphlab/pkg/domain"
)

// Stepper is the in-process session manager as seen by LocalTransport.
type Stepper interface {
	Step(ctx context.Context, sessionID string) (domain.Event, error)
	Events(ctx context.Context, sessionID string, after int64) ([]domain.Event, error)
}

// LocalTransport steps sessions of an in-process manager.
type LocalTransport struct {
	sessions Stepper
}

// NewLocalTransport wraps sessions.
func NewLocalTransport(sessions Stepper) *LocalTransport {
	return &LocalTransport{sessions: sessions}
}

// Step advances the session directly.
func (t *LocalTransport) Step(ctx context.Context, sessionID string) (domain.Event, error) {
	return t.sessions.Step(ctx, sessionID)
}

// Events returns the session journal.
func (t *LocalTransport) Events(ctx context.Context, sessionID string, after int64) ([]domain.Event, error) {
	return t.sessions.Events(ctx, sessionID, after)
}

// Close is a no-op.
func (t *LocalTransport) Close() error {
	return nil
}
