package ingest

import (
	"context"
	"time"

	"github.com/krobus00/tick-ingestor/internal/config"
	"github.com/krobus00/tick-ingestor/internal/entity"
	"github.com/krobus00/tick-ingestor/internal/queue"
	"github.com/sirupsen/logrus"
)

const (
	defaultBatchSize    = 100
	defaultRetryBackoff = 1 * time.Second
)

// BatchApplier applies one batch atomically: either every operation is
// durable or none is.
type BatchApplier interface {
	Apply(ctx context.Context, ops []entity.WriteOp) error
}

// PostCommitHook observes a durably applied batch. Hook failures are the
// hook's problem; the batch is already committed.
type PostCommitHook interface {
	BatchApplied(ctx context.Context, ops []entity.WriteOp)
}

// Writer is the single consumer draining the write queue in bounded batches.
// Exactly one Writer runs per process; the database transaction is
// single-owner so no write-side locking is needed beyond the database's own
// isolation.
type Writer struct {
	queue     *queue.WriteQueue
	applier   BatchApplier
	batchSize int
	backoff   time.Duration
	hooks     []PostCommitHook
}

func NewWriter(q *queue.WriteQueue, applier BatchApplier, cfg config.IngestConfig, hooks ...PostCommitHook) *Writer {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	return &Writer{
		queue:     q,
		applier:   applier,
		batchSize: batchSize,
		backoff:   backoff,
		hooks:     hooks,
	}
}

// Run loops until the queue is closed and drained. Each iteration blocks for
// one operation, opportunistically takes whatever else is already queued up
// to the batch cap, and applies the batch in one transaction. A failed batch
// is rolled back by the applier, re-enqueued whole and retried after a fixed
// backoff; nothing is ever dropped on the write path.
func (w *Writer) Run(ctx context.Context) {
	logrus.WithField("batch_size", w.batchSize).Info("batch writer started")

	consecutiveFailures := 0

	for {
		op, ok := w.queue.PopWait()
		if !ok {
			logrus.Info("batch writer stopped: queue closed and drained")
			return
		}

		batch := make([]entity.WriteOp, 1, w.batchSize)
		batch[0] = op
		for len(batch) < w.batchSize {
			next, ok := w.queue.TryPop()
			if !ok {
				break
			}
			batch = append(batch, next)
		}

		if err := w.applier.Apply(ctx, batch); err != nil {
			consecutiveFailures++
			logrus.WithFields(logrus.Fields{
				"batch_size":           len(batch),
				"consecutive_failures": consecutiveFailures,
				"queue_depth":          w.queue.Len(),
			}).Errorf("batch write failed, re-enqueueing: %v", err)

			w.queue.PushAll(batch)

			// Fixed retry cadence even after the context is canceled; a
			// failing batch must not spin hot during shutdown.
			time.Sleep(w.backoff)
			continue
		}

		if consecutiveFailures > 0 {
			logrus.WithField("consecutive_failures", consecutiveFailures).Info("batch write recovered")
			consecutiveFailures = 0
		}

		for _, hook := range w.hooks {
			hook.BatchApplied(ctx, batch)
		}
	}
}
