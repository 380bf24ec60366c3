package state

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultSettleDelay is how long broadcasts stay suppressed after an
// inbound snapshot is applied.
const DefaultSettleDelay = 100 * time.Millisecond

// guard suppresses outbound broadcasts while an inbound snapshot settles.
//
// It is one coarse flag for the whole Manager: a local edit made inside
// the settle window is not broadcast. Each hold restarts the window.
type guard struct {
	delay  time.Duration
	active atomic.Bool

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

func (g *guard) hold() {
	g.active.Store(true)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
	}
	g.gen++
	gen := g.gen
	g.timer = time.AfterFunc(g.delay, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		// A later hold owns the flag now.
		if gen == g.gen {
			g.active.Store(false)
		}
	})
}

func (g *guard) isActive() bool {
	return g.active.Load()
}

func (g *guard) stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
	}
	g.gen++
	g.active.Store(false)
}
