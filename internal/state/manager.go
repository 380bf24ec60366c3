package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/modpack/internal/model"
	"github.com/roach88/modpack/internal/plugin"
	"github.com/roach88/modpack/internal/store"
)

// Durable is the persistence the Manager writes through to.
// Implemented by *store.Store.
type Durable interface {
	GetAll(ctx context.Context, table model.Collection) ([]json.RawMessage, error)
	Put(ctx context.Context, table model.Collection, record model.Record) error
	Delete(ctx context.Context, table model.Collection, id string) error
	Replace(ctx context.Context, table model.Collection, records []model.Record) error
}

var _ Durable = (*store.Store)(nil)

// Broadcaster publishes a full snapshot to peers.
// Implemented by *livesync.Channel.
type Broadcaster interface {
	Broadcast(snap model.Snapshot)
}

// Manager owns the modpack collections.
type Manager struct {
	mu         sync.RWMutex
	categories *collection[model.Category]
	resources  *collection[model.Resource]
	recipes    *collection[model.Recipe]
	machines   *collection[model.MachineDefinition]
	plugins    *collection[model.Plugin]

	durable Durable // nil keeps the Manager memory-only
	queue   *writeQueue
	loader  *plugin.Loader
	guard   *guard

	bmu         sync.RWMutex
	broadcaster Broadcaster
}

// Option configures a Manager.
type Option func(*Manager)

// WithSettleDelay sets how long broadcasts stay suppressed after
// ApplyInbound. Default: DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.guard.delay = d
	}
}

// WithLoader shares a plugin loader (and its cache) between managers.
func WithLoader(l *plugin.Loader) Option {
	return func(m *Manager) {
		m.loader = l
	}
}

// New creates an empty Manager writing through to durable.
// durable may be nil for a memory-only Manager.
func New(durable Durable, opts ...Option) *Manager {
	plugins := newCollection[model.Plugin](model.Plugins)
	plugins.record = func(p model.Plugin) model.Record { return p.Record() }

	m := &Manager{
		categories: newCollection[model.Category](model.Categories),
		resources:  newCollection[model.Resource](model.Resources),
		recipes:    newCollection[model.Recipe](model.Recipes),
		machines:   newCollection[model.MachineDefinition](model.Machines),
		plugins:    plugins,
		durable:    durable,
		queue:      newWriteQueue(),
		loader:     plugin.NewLoader(),
		guard:      &guard{delay: DefaultSettleDelay},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetBroadcaster installs (or, with nil, removes) the broadcast target.
func (m *Manager) SetBroadcaster(b Broadcaster) {
	m.bmu.Lock()
	defer m.bmu.Unlock()
	m.broadcaster = b
}

// Suppressed reports whether an inbound snapshot is still settling.
func (m *Manager) Suppressed() bool {
	return m.guard.isActive()
}

// broadcast sends the current snapshot unless the guard is held.
// Must be called without m.mu held.
func (m *Manager) broadcast() {
	if m.guard.isActive() {
		slog.Debug("broadcast suppressed: inbound snapshot settling")
		return
	}

	m.bmu.RLock()
	b := m.broadcaster
	m.bmu.RUnlock()
	if b == nil {
		return
	}
	b.Broadcast(m.Snapshot())
}

// enqueue queues a durable write. Caller holds m.mu.
func (m *Manager) enqueue(w write) {
	if m.durable == nil {
		return
	}
	if !m.queue.Enqueue(w) {
		slog.Warn("write dropped: manager closed",
			"op", w.kind.String(),
			"table", string(w.table),
			"id", w.id)
	}
}

// Run drains the write queue until ctx is cancelled or Close is called.
// Writes still queued at Close are applied before Run returns.
func (m *Manager) Run(ctx context.Context) error {
	slog.Debug("persister starting")

	for {
		for {
			w, ok := m.queue.TryDequeue()
			if !ok {
				break
			}
			m.apply(ctx, w)
		}

		select {
		case <-ctx.Done():
			slog.Debug("persister stopping: context cancelled")
			return ctx.Err()
		case _, open := <-m.queue.Wait():
			if !open && m.queue.Len() == 0 {
				slog.Debug("persister stopping: queue closed")
				return nil
			}
		}
	}
}

func (m *Manager) apply(ctx context.Context, w write) {
	var err error
	switch w.kind {
	case writePut:
		err = m.durable.Put(ctx, w.table, w.record)
	case writeDelete:
		err = m.durable.Delete(ctx, w.table, w.id)
	case writeReplace:
		err = m.durable.Replace(ctx, w.table, w.records)
	case writeBarrier:
		close(w.done)
		return
	}
	if err != nil {
		slog.Error("durable write failed",
			"op", w.kind.String(),
			"table", string(w.table),
			"id", w.id,
			"error", err)
	}
}

// Flush blocks until every write queued before the call has been applied
// by Run, or ctx is done.
func (m *Manager) Flush(ctx context.Context) error {
	if m.durable == nil {
		return nil
	}
	done := make(chan struct{})
	if !m.queue.Enqueue(write{kind: writeBarrier, done: done}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush writes: %w", ctx.Err())
	}
}

// Close stops accepting writes and releases the guard timer. Run returns
// once the remaining queue is drained.
func (m *Manager) Close() {
	m.queue.Close()
	m.guard.stop()
}

// Pending returns the number of queued writes.
func (m *Manager) Pending() int {
	return m.queue.Len()
}

// Load reads every table from the durable store into memory.
//
// Empty categories, resources and machines tables are seeded from the
// built-in defaults and persisted immediately. Plugin rows are
// re-evaluated from their scripts; a script that no longer evaluates is
// logged and skipped. Load never broadcasts.
func (m *Manager) Load(ctx context.Context) error {
	if m.durable == nil {
		return nil
	}

	categories, err := loadOrSeed(ctx, m.durable, model.Categories, model.DefaultCategories())
	if err != nil {
		return err
	}
	resources, err := loadOrSeed(ctx, m.durable, model.Resources, model.DefaultResources())
	if err != nil {
		return err
	}
	machines, err := loadOrSeed(ctx, m.durable, model.Machines, model.DefaultMachines())
	if err != nil {
		return err
	}
	recipes, err := loadTable[model.Recipe](ctx, m.durable, model.Recipes)
	if err != nil {
		return err
	}
	records, err := loadTable[model.PluginRecord](ctx, m.durable, model.Plugins)
	if err != nil {
		return err
	}

	plugins := make([]model.Plugin, 0, len(records))
	for _, rec := range records {
		p, err := m.loader.Evaluate(rec.ScriptContent)
		if err != nil {
			slog.Warn("stored plugin skipped", "plugin", rec.ID, "error", err)
			continue
		}
		plugins = append(plugins, *p)
	}

	m.mu.Lock()
	m.categories.replace(categories)
	m.resources.replace(resources)
	m.machines.replace(machines)
	m.recipes.replace(recipes)
	m.plugins.replace(plugins)
	m.mu.Unlock()

	slog.Info("state loaded",
		"categories", len(categories),
		"resources", len(resources),
		"recipes", len(recipes),
		"machines", len(machines),
		"plugins", len(plugins))
	return nil
}

func loadTable[T any](ctx context.Context, d Durable, table model.Collection) ([]T, error) {
	raw, err := d.GetAll(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	items, err := store.Decode[T](raw)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	return items, nil
}

func loadOrSeed[T model.Record](ctx context.Context, d Durable, table model.Collection, defaults []T) ([]T, error) {
	items, err := loadTable[T](ctx, d, table)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return items, nil
	}

	if err := d.Replace(ctx, table, toRecords(defaults)); err != nil {
		return nil, fmt.Errorf("seed %s: %w", table, err)
	}
	slog.Info("seeded defaults", "table", string(table), "count", len(defaults))
	return defaults, nil
}

func toRecords[T model.Record](items []T) []model.Record {
	out := make([]model.Record, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
