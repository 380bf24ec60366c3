package state

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/modpack/internal/model"
	"github.com/roach88/modpack/internal/store"
)

const furnace2Script = `
id:      "steam_age"
name:    "Steam Age"
version: "1.0.0"
machines: [{
	id:          "furnace2"
	name:        "Blast Furnace"
	description: "Hotter smelting."
	inputs: [{type: "item", label: "Ore"}]
	outputs: [{type: "item", label: "Ingot"}]
}]
processors: [{
	id:       "kubejs"
	name:     "KubeJS"
	template: "{{recipe_name}} uses {{inputs}}"
}]
`

// recorder is a Broadcaster that keeps every snapshot it receives.
type recorder struct {
	mu    sync.Mutex
	snaps []model.Snapshot
}

func (r *recorder) Broadcast(snap model.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) last() model.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

func openStore(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// startManager loads a store-backed Manager and runs its persister until
// the test ends.
func startManager(t *testing.T, s *store.Store, opts ...Option) *Manager {
	t.Helper()
	m := New(s, opts...)
	require.NoError(t, m.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m
}

func flush(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Flush(ctx))
}

func tempDB(t *testing.T) string {
	return filepath.Join(t.TempDir(), "modpack.db")
}

func ids[T model.Record](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Key()
	}
	return out
}
