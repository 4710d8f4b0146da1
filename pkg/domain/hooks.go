package domain

import (
	"context"
	"time"
)

// StepRecord describes one served step.
type StepRecord struct {
	SessionID string
	Algorithm Algorithm
	Event     Event
	Duration  time.Duration
}

// SessionHooks defines callbacks for session observability.
type SessionHooks struct {
	OnCreate func(context.Context, *SessionInfo)
	OnStep   func(context.Context, *StepRecord)
	OnEnd    func(context.Context, *SessionInfo)
	OnDelete func(context.Context, string)
}
