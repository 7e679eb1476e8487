package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/krobus00/tick-ingestor/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawOp(contractID string) entity.WriteOp {
	return entity.NewRawWriteOp(&entity.RawContract{
		ContractID: contractID,
		Symbol:     "ES",
		Datetime:   time.Now().UTC(),
		Price:      decimal.NewFromFloat(100.25),
	})
}

func TestWriteQueueFIFO(t *testing.T) {
	q := NewWriteQueue()

	q.Push(rawOp("ESH24"))
	q.Push(rawOp("ESM24"))
	require.Equal(t, 2, q.Len())

	op, ok := q.PopWait()
	require.True(t, ok)
	assert.Equal(t, "ESH24", op.Raw.ContractID)

	op, ok = q.TryPop()
	require.True(t, ok)
	assert.Equal(t, "ESM24", op.Raw.ContractID)

	_, ok = q.TryPop()
	assert.False(t, ok, "empty queue must not block TryPop")
}

func TestWriteQueuePopWaitBlocksUntilPush(t *testing.T) {
	q := NewWriteQueue()

	done := make(chan entity.WriteOp, 1)
	go func() {
		op, ok := q.PopWait()
		if ok {
			done <- op
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(rawOp("CLK24"))

	select {
	case op := <-done:
		assert.Equal(t, "CLK24", op.Raw.ContractID)
	case <-time.After(time.Second):
		t.Fatal("PopWait did not wake after Push")
	}
}

func TestWriteQueueConcurrentProducers(t *testing.T) {
	q := NewWriteQueue()

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(rawOp("ESH24"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())

	seen := 0
	for {
		_, ok := q.TryPop()
		if !ok {
			break
		}
		seen++
	}
	assert.Equal(t, producers*perProducer, seen)
}

func TestWriteQueueCloseWakesConsumer(t *testing.T) {
	q := NewWriteQueue()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.PopWait()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok, "PopWait must report closed on empty queue")
	case <-time.After(time.Second):
		t.Fatal("PopWait did not wake after Close")
	}

	q.Push(rawOp("ESH24"))
	assert.Equal(t, 0, q.Len(), "push after close is dropped")
}
