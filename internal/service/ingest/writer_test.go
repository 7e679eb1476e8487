package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/krobus00/tick-ingestor/internal/config"
	"github.com/krobus00/tick-ingestor/internal/entity"
	"github.com/krobus00/tick-ingestor/internal/queue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApplier struct {
	mu       sync.Mutex
	batches  [][]entity.WriteOp
	failures int
	attempts int
}

func (a *fakeApplier) Apply(_ context.Context, ops []entity.WriteOp) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.attempts++
	if a.failures > 0 {
		a.failures--
		return errors.New("connection refused")
	}

	batch := make([]entity.WriteOp, len(ops))
	copy(batch, ops)
	a.batches = append(a.batches, batch)
	return nil
}

func (a *fakeApplier) appliedBatches() [][]entity.WriteOp {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([][]entity.WriteOp, len(a.batches))
	copy(out, a.batches)
	return out
}

func (a *fakeApplier) attemptCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempts
}

func (a *fakeApplier) setFailures(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = n
}

func (a *fakeApplier) appliedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := 0
	for _, b := range a.batches {
		total += len(b)
	}
	return total
}

type recordingHook struct {
	mu    sync.Mutex
	calls int
}

func (h *recordingHook) BatchApplied(context.Context, []entity.WriteOp) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
}

func (h *recordingHook) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func rawOp(i int) entity.WriteOp {
	return entity.NewRawWriteOp(&entity.RawContract{
		ContractID: fmt.Sprintf("ESH24-%d", i),
		Symbol:     "ES",
		Datetime:   time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC).Add(time.Duration(i) * time.Second),
		Price:      decimal.NewFromFloat(5210.25),
	})
}

func waitForApplied(t *testing.T, a *fakeApplier, want int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if a.appliedCount() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("applier never reached %d ops (got %d)", want, a.appliedCount())
}

func TestWriterBatchBound(t *testing.T) {
	q := queue.NewWriteQueue()
	applier := &fakeApplier{}
	writer := NewWriter(q, applier, config.IngestConfig{BatchSize: 100, RetryBackoff: 10 * time.Millisecond})

	for i := 0; i < 250; i++ {
		q.Push(rawOp(i))
	}

	done := make(chan struct{})
	go func() {
		writer.Run(context.Background())
		close(done)
	}()

	waitForApplied(t, applier, 250)
	q.Close()
	<-done

	batches := applier.appliedBatches()
	require.GreaterOrEqual(t, len(batches), 3, "250 ops with a cap of 100 need at least 3 transactions")
	for _, batch := range batches {
		assert.LessOrEqual(t, len(batch), 100)
	}
	assert.Equal(t, 250, applier.appliedCount())
}

func TestWriterRequeuesFailedBatch(t *testing.T) {
	q := queue.NewWriteQueue()
	applier := &fakeApplier{failures: 2}
	writer := NewWriter(q, applier, config.IngestConfig{BatchSize: 10, RetryBackoff: 5 * time.Millisecond})

	for i := 0; i < 10; i++ {
		q.Push(rawOp(i))
	}

	done := make(chan struct{})
	go func() {
		writer.Run(context.Background())
		close(done)
	}()

	waitForApplied(t, applier, 10)
	q.Close()
	<-done

	// The set of ops survives the retries, no drops and no duplicates.
	seen := map[string]int{}
	for _, batch := range applier.appliedBatches() {
		for _, op := range batch {
			seen[op.Raw.ContractID]++
		}
	}
	require.Len(t, seen, 10)
	for contractID, count := range seen {
		assert.Equal(t, 1, count, "op %s applied more than once", contractID)
	}
}

func TestWriterHooksRunOnlyAfterCommit(t *testing.T) {
	q := queue.NewWriteQueue()
	applier := &fakeApplier{failures: 1}
	hook := &recordingHook{}
	writer := NewWriter(q, applier, config.IngestConfig{BatchSize: 5, RetryBackoff: 5 * time.Millisecond}, hook)

	q.Push(rawOp(0))

	done := make(chan struct{})
	go func() {
		writer.Run(context.Background())
		close(done)
	}()

	waitForApplied(t, applier, 1)
	q.Close()
	<-done

	assert.Equal(t, 1, hook.callCount(), "hook must fire once, only for the committed attempt")
}

func TestWriterKeepsRetryCadenceAfterContextCancel(t *testing.T) {
	q := queue.NewWriteQueue()
	applier := &fakeApplier{failures: 1 << 30}
	writer := NewWriter(q, applier, config.IngestConfig{BatchSize: 10, RetryBackoff: 20 * time.Millisecond})

	q.Push(rawOp(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		writer.Run(ctx)
		close(done)
	}()

	// A canceled context must not collapse the backoff into a hot loop:
	// ~100ms at a 20ms cadence allows only a handful of attempts.
	time.Sleep(100 * time.Millisecond)
	attempts := applier.attemptCount()
	require.GreaterOrEqual(t, attempts, 1)
	assert.LessOrEqual(t, attempts, 10, "retry loop must keep the configured backoff after cancellation")

	applier.setFailures(0)
	waitForApplied(t, applier, 1)
	q.Close()
	<-done
}

func TestWriterStopsWhenQueueClosedAndDrained(t *testing.T) {
	q := queue.NewWriteQueue()
	applier := &fakeApplier{}
	writer := NewWriter(q, applier, config.IngestConfig{})

	for i := 0; i < 3; i++ {
		q.Push(rawOp(i))
	}
	q.Close()

	done := make(chan struct{})
	go func() {
		writer.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not stop after queue close")
	}

	assert.Equal(t, 3, applier.appliedCount(), "queued ops must drain before stopping")
}
