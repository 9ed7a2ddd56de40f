package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/firestream/pkg/domain"
)

// Logging returns hooks writing every action and source transition to logger.
func Logging(logger *slog.Logger) domain.Hooks {
	return domain.Hooks{
		OnActionStart: func(ctx context.Context, e *domain.ActionEvent) {
			logger.InfoContext(ctx, "action_start", "kind", e.Kind, "key", e.Key)
		},
		OnActionDone: func(ctx context.Context, e *domain.ActionEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "action_done", "kind", e.Kind, "key", e.Key, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "action_done", "kind", e.Kind, "key", e.Key, "duration", e.Duration)
		},
		OnSourceStart: func(e *domain.SourceEvent) {
			logger.Info("source_start", "source", e.Source)
		},
		OnSourceStop: func(e *domain.SourceEvent) {
			logger.Info("source_stop", "source", e.Source)
		},
	}
}
