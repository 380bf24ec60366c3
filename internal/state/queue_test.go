package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modpack/internal/model"
)

func TestWriteQueue_FIFO(t *testing.T) {
	q := newWriteQueue()

	for _, id := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(write{kind: writeDelete, table: model.Resources, id: id}))
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.id)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestWriteQueue_Enqueue_AfterClose(t *testing.T) {
	q := newWriteQueue()
	q.Close()
	q.Close() // idempotent

	ok := q.Enqueue(write{kind: writeDelete, id: "late"})
	assert.False(t, ok, "enqueue after close should return false")
	assert.Equal(t, 0, q.Len())
}

func TestWriteQueue_CloseKeepsPending(t *testing.T) {
	q := newWriteQueue()
	q.Enqueue(write{kind: writeDelete, id: "1"})
	q.Close()

	assert.Equal(t, 1, q.Len())
	_, open := <-q.Wait()
	assert.True(t, open, "buffered signal is delivered before close is observed")
	_, open = <-q.Wait()
	assert.False(t, open)
}

func TestWriteQueue_Len(t *testing.T) {
	q := newWriteQueue()
	assert.Equal(t, 0, q.Len())

	q.Enqueue(write{kind: writeDelete, id: "1"})
	q.Enqueue(write{kind: writeDelete, id: "2"})
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
}

func TestWriteQueue_ThreadSafe(t *testing.T) {
	q := newWriteQueue()

	const producers = 10
	const writesPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < writesPerProducer; i++ {
				q.Enqueue(write{kind: writeDelete, id: "x"})
			}
		}()
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, producers*writesPerProducer, count)
}

func TestWriteKind_String(t *testing.T) {
	assert.Equal(t, "put", writePut.String())
	assert.Equal(t, "delete", writeDelete.String())
	assert.Equal(t, "replace", writeReplace.String())
	assert.Equal(t, "barrier", writeBarrier.String())
	assert.Equal(t, "unknown", writeKind(0).String())
}
