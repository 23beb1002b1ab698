package store

import (
	"context"

	"github.com/svcgate/svcgate/src/internal/domain/entity"
	"github.com/svcgate/svcgate/src/internal/infrastructure/logger"
	"github.com/svcgate/svcgate/src/internal/infrastructure/worker"
)

// AsyncRecorder writes decision records to a DecisionLog through a
// worker pool so the request hot path never blocks on audit writes.
// Records are dropped with a warning when the pool backlog is full.
type AsyncRecorder struct {
	log  *DecisionLog
	pool *worker.Pool
}

// NewAsyncRecorder creates a recorder feeding the given log.
func NewAsyncRecorder(log *DecisionLog, pool *worker.Pool) *AsyncRecorder {
	return &AsyncRecorder{log: log, pool: pool}
}

// Record submits a decision record for asynchronous storage.
func (r *AsyncRecorder) Record(rec entity.DecisionRecord) {
	err := r.pool.Submit(func(context.Context) {
		r.log.Append(rec)
	})
	if err != nil {
		logger.WithField("path", rec.Path).
			WithField("error", err).
			Warn("Dropping audit record, worker pool saturated")
	}
}
