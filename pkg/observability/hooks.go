package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/graphlab/pkg/domain"
)

// Hooks returns session callbacks that log each lifecycle event and, when
// metrics is non-nil, record it.
func Hooks(logger *slog.Logger, metrics *Metrics) domain.SessionHooks {
	return domain.SessionHooks{
		OnCreate: func(ctx context.Context, info *domain.SessionInfo) {
			logger.InfoContext(ctx, "session_create",
				"session_id", info.ID,
				"algorithm", info.Algorithm,
				"start", info.Start,
			)
			if metrics != nil {
				metrics.SessionsCreated.Inc()
				metrics.SessionsActive.Inc()
			}
		},
		OnStep: func(ctx context.Context, rec *domain.StepRecord) {
			logger.DebugContext(ctx, "session_step",
				"session_id", rec.SessionID,
				"seq", rec.Event.Seq,
				"type", rec.Event.Type,
				"duration", rec.Duration,
			)
			if metrics != nil {
				metrics.Steps.WithLabelValues(string(rec.Algorithm), string(rec.Event.Type)).Inc()
				metrics.StepDuration.WithLabelValues(string(rec.Algorithm)).Observe(rec.Duration.Seconds())
			}
		},
		OnEnd: func(ctx context.Context, info *domain.SessionInfo) {
			logger.InfoContext(ctx, "session_end",
				"session_id", info.ID,
				"steps", info.LastSeq,
			)
		},
		OnDelete: func(ctx context.Context, sessionID string) {
			logger.InfoContext(ctx, "session_delete", "session_id", sessionID)
			if metrics != nil {
				metrics.SessionsActive.Dec()
			}
		},
	}
}
