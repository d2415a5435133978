package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dca-case-service/internal/observability"
	"github.com/spec-kit/dca-case-service/internal/persistence"
	"github.com/spec-kit/dca-case-service/internal/service"
)

const sweepLockKey = "dca-case-service:sla-sweep-lock"

// SLAWorker runs the breach sweep on a fixed cadence. A redis advisory
// lock keeps concurrent replicas from sweeping at the same time; the
// sweep itself is idempotent, so a lost lock only costs duplicate work.
type SLAWorker struct {
	sla      *service.SLAService
	redis    *persistence.Redis
	metrics  *observability.Metrics
	logger   *zap.Logger
	interval time.Duration
	lockTTL  time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewSLAWorker constructs the worker.
func NewSLAWorker(sla *service.SLAService, redis *persistence.Redis, metrics *observability.Metrics, logger *zap.Logger, interval, lockTTL time.Duration) *SLAWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &SLAWorker{
		sla:      sla,
		redis:    redis,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		lockTTL:  lockTTL,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker loop.
func (w *SLAWorker) Start() {
	go w.run()
}

// Stop requests shutdown and waits for the loop to exit.
func (w *SLAWorker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *SLAWorker) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.sweepOnce()
		}
	}
}

func (w *SLAWorker) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.lockTTL)
	defer cancel()

	acquired, err := w.redis.AcquireLock(ctx, sweepLockKey, w.lockTTL)
	if err != nil {
		w.logger.Warn("sweep lock unavailable", zap.Error(err))
		return
	}
	if !acquired {
		return
	}
	defer w.redis.ReleaseLock(ctx, sweepLockKey)

	result, err := w.sla.RunSweep(ctx)
	if err != nil {
		w.logger.Error("sla sweep failed", zap.Error(err))
		return
	}
	w.metrics.RecordSweep(len(result.ProcessedCaseIDs), len(result.Errors))
}
