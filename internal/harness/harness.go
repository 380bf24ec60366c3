package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/modpack/internal/config"
	"github.com/roach88/modpack/internal/livesync"
	"github.com/roach88/modpack/internal/plugin"
	"github.com/roach88/modpack/internal/relay"
	"github.com/roach88/modpack/internal/state"
	"github.com/roach88/modpack/internal/store"
	"github.com/roach88/modpack/internal/testutil"
)

// scenarioEpoch is the fixed wall clock every scenario's frames carry.
var scenarioEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// pollInterval is how often waits re-check their condition.
const pollInterval = 5 * time.Millisecond

// Harness executes one scenario against an in-process relay.
type Harness struct {
	relay   *relay.Server
	url     string
	clients map[string]*client
	order   []string
	clock   *testutil.FixedClock
	loader  *plugin.Loader
	settle  time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each client gets a fresh in-memory database seeded with the built-in
// defaults and starts connected. Clients share one plugin loader, so a
// script broadcast to every peer is evaluated once. Peer ids on the relay are sequential so
// relay logs are reproducible.
//
// Execution flow:
// 1. Start the relay on a loopback port
// 2. Start and connect every client
// 3. Execute steps, waiting for delivery after each
// 4. Evaluate assertions against the final snapshots
//
// Step and assertion failures are recorded in the result; the returned
// error is reserved for infrastructure failures.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for relay: %w", err)
	}

	h := &Harness{
		relay:   relay.New(relay.WithPeerIDs(testutil.NewSequence("peer").Next)),
		url:     "http://" + ln.Addr().String(),
		clients: make(map[string]*client, len(scenario.Clients)),
		clock:   testutil.NewFixedClock(scenarioEpoch),
		loader:  plugin.NewLoader(),
		settle:  scenario.SettleDelay,
		timeout: scenario.Timeout,
		logger:  slog.Default().With("scenario", scenario.Name),
	}
	if h.settle <= 0 {
		h.settle = DefaultSettleDelay
	}
	if h.timeout <= 0 {
		h.timeout = DefaultTimeout
	}

	srv := &http.Server{Handler: h.relay, ReadHeaderTimeout: h.timeout}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay: %w", err)
		}
		return nil
	})

	result := NewResult()
	result.Clients = append(result.Clients, scenario.Clients...)

	runErr := h.run(gctx, g, scenario, result)

	for _, name := range h.order {
		c := h.clients[name]
		c.channel.Close()
		c.manager.Close()
	}
	h.relay.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		h.logger.Warn("relay shutdown", "error", err)
	}
	waitErr := g.Wait()

	for _, name := range h.order {
		if err := h.clients[name].store.Close(); err != nil {
			h.logger.Warn("close client store", "client", name, "error", err)
		}
	}

	if runErr != nil {
		return nil, runErr
	}
	if waitErr != nil {
		return nil, waitErr
	}
	return result, nil
}

func (h *Harness) run(ctx context.Context, g *errgroup.Group, scenario *Scenario, result *Result) error {
	for _, name := range scenario.Clients {
		if err := h.startClient(ctx, g, name); err != nil {
			return err
		}
	}
	for _, name := range h.order {
		if err := h.connect(ctx, h.clients[name]); err != nil {
			return err
		}
	}

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			result.AddError(fmt.Sprintf("step[%d] %s: %v", i, step.Action, err))
			h.capture(result)
			return nil
		}
	}

	h.capture(result)
	for _, msg := range h.evaluateAssertions(ctx, scenario.Assertions, result) {
		result.AddError(msg)
	}
	return nil
}

// startClient opens a fresh store, loads it and starts the persister.
func (h *Harness) startClient(ctx context.Context, g *errgroup.Group, name string) error {
	st, err := store.Open(":memory:")
	if err != nil {
		return fmt.Errorf("failed to create in-memory store for %s: %w", name, err)
	}

	c := &client{name: name, store: st, loader: h.loader}
	c.manager = state.New(st, state.WithSettleDelay(h.settle), state.WithLoader(h.loader))
	c.channel = livesync.New(c, livesync.WithClock(h.clock.Now))
	c.manager.SetBroadcaster(c)

	h.clients[name] = c
	h.order = append(h.order, name)

	if err := c.manager.Load(ctx); err != nil {
		return fmt.Errorf("load client %s: %w", name, err)
	}
	g.Go(func() error {
		if err := c.manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("client %s persister: %w", name, err)
		}
		return nil
	})
	return nil
}

// execute performs one step and waits for its effects to land.
func (h *Harness) execute(ctx context.Context, step Step) error {
	switch step.Action {
	case ActionSettle:
		return h.settleAll(ctx)
	case ActionConnect:
		return h.connect(ctx, h.clients[step.Client])
	case ActionDisconnect:
		return h.disconnect(ctx, h.clients[step.Client])
	}

	c := h.clients[step.Client]
	baseline := make(map[string]int64, len(h.clients))
	for name, other := range h.clients {
		baseline[name] = other.applied.Load()
	}
	sentBefore := c.sent.Load()

	err := c.mutate(step)
	switch {
	case step.ExpectError && err == nil:
		return fmt.Errorf("expected an error")
	case step.ExpectError:
		h.logger.Debug("step failed as expected", "client", c.name, "error", err)
	case err != nil:
		return err
	}

	sent := c.sent.Load() - sentBefore
	h.logger.Debug("step applied", "client", c.name, "action", step.Action, "broadcasts", sent)

	if sent > 0 && c.online {
		for _, name := range h.order {
			other := h.clients[name]
			if other == c || !other.online {
				continue
			}
			want := baseline[name] + sent
			what := fmt.Sprintf("%s to apply %d snapshot(s) from %s", name, sent, c.name)
			if err := h.waitFor(ctx, what, func() bool { return other.applied.Load() >= want }); err != nil {
				return err
			}
		}
	}

	if step.NoSettle {
		return nil
	}
	return h.settleAll(ctx)
}

func (h *Harness) connect(ctx context.Context, c *client) error {
	if c.online {
		return fmt.Errorf("client %s is already connected", c.name)
	}
	c.channel.Configure(config.Sync{Enabled: true, APIURL: h.url, Username: c.name})
	c.online = true

	want := h.onlineCount()
	return h.waitFor(ctx, c.name+" to connect", func() bool {
		return c.channel.Status() == livesync.StatusSuccess && h.relay.Peers() == want
	})
}

func (h *Harness) disconnect(ctx context.Context, c *client) error {
	if !c.online {
		return fmt.Errorf("client %s is not connected", c.name)
	}
	c.channel.Close()
	c.online = false

	want := h.onlineCount()
	return h.waitFor(ctx, c.name+" to leave the relay", func() bool {
		return h.relay.Peers() == want
	})
}

// settleAll waits until no client is inside its echo guard window.
func (h *Harness) settleAll(ctx context.Context) error {
	return h.waitFor(ctx, "echo guards to settle", func() bool {
		for _, c := range h.clients {
			if c.manager.Suppressed() {
				return false
			}
		}
		return true
	})
}

func (h *Harness) onlineCount() int {
	n := 0
	for _, c := range h.clients {
		if c.online {
			n++
		}
	}
	return n
}

// waitFor polls cond until it holds or the scenario timeout passes.
func (h *Harness) waitFor(ctx context.Context, what string, cond func() bool) error {
	deadline := time.Now().Add(h.timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for !cond() {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for %s", h.timeout, what)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (h *Harness) capture(result *Result) {
	for _, name := range h.order {
		result.Snapshots[name] = h.clients[name].manager.Snapshot()
	}
}
