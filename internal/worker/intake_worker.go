package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/dca-case-service/internal/events"
	"github.com/spec-kit/dca-case-service/internal/service"
)

// StartIntakeWorker chains scoring and allocation behind case creation.
// Intake responds before either runs; failures are logged and left for a
// manual re-score or re-allocate call.
func StartIntakeWorker(dispatcher events.Dispatcher, scorer *service.ScoringService, allocator *service.AllocationService, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dispatcher.Subscribe(events.EventCaseCreated, func(ctx context.Context, event events.Event) error {
		if _, err := scorer.ScoreCase(ctx, event.CaseID); err != nil {
			logger.Warn("intake scoring failed",
				zap.String("case_id", event.CaseID),
				zap.Error(err))
			return err
		}
		if _, err := allocator.Allocate(ctx, event.CaseID); err != nil {
			logger.Warn("intake allocation failed",
				zap.String("case_id", event.CaseID),
				zap.Error(err))
			return err
		}
		return nil
	})
}
