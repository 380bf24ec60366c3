package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFixedClock_DoesNotMoveOnItsOwn(t *testing.T) {
	clock := NewFixedClock(epoch)
	assert.Equal(t, epoch, clock.Now())
	time.Sleep(time.Millisecond)
	assert.Equal(t, epoch, clock.Now())
}

func TestFixedClock_AdvanceAndReset(t *testing.T) {
	clock := NewFixedClock(epoch)

	clock.Advance(time.Minute)
	clock.Advance(time.Second)
	assert.Equal(t, epoch.Add(61*time.Second), clock.Now())

	clock.Reset()
	assert.Equal(t, epoch, clock.Now())
}

func TestFixedClock_ThreadSafe(t *testing.T) {
	clock := NewFixedClock(epoch)

	const goroutines = 10
	const advancesPerGoroutine = 100

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < advancesPerGoroutine; i++ {
				clock.Advance(time.Millisecond)
				_ = clock.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, epoch.Add(goroutines*advancesPerGoroutine*time.Millisecond), clock.Now())
}

func TestSequence(t *testing.T) {
	s := NewSequence("peer")
	assert.Equal(t, "peer-1", s.Next())
	assert.Equal(t, "peer-2", s.Next())

	assert.Equal(t, "id-1", NewSequence("").Next())
}
