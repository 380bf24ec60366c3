package state

import (
	"fmt"
	"log/slog"

	"github.com/roach88/modpack/internal/model"
)

// Snapshot returns a copy of the full state. Every collection is present.
func (m *Manager) Snapshot() model.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return model.Snapshot{
		Categories: m.categories.all(),
		Resources:  m.resources.all(),
		Recipes:    m.recipes.all(),
		Machines:   m.machines.all(),
		Plugins:    m.plugins.all(),
	}
}

// ReplaceSnapshot replaces every collection present in snap, as a file
// import does, and broadcasts once. Absent (nil) collections are left
// untouched; present ones are replaced, never merged.
func (m *Manager) ReplaceSnapshot(snap model.Snapshot) {
	m.replaceSnapshot(snap)
	m.broadcast()
}

// ApplyInbound replaces every collection present in a snapshot received
// from a peer. It never broadcasts: the guard is held for the settle
// delay so that mutations triggered by applying the snapshot are not
// echoed back.
//
// Plugins are rebuilt from their scripts; their machines are not
// re-injected, since the sender's machine collection already holds them.
func (m *Manager) ApplyInbound(snap model.Snapshot) {
	m.guard.hold()
	counts := m.replaceSnapshot(snap)
	slog.Info("inbound snapshot applied",
		"categories", counts[model.Categories],
		"resources", counts[model.Resources],
		"recipes", counts[model.Recipes],
		"machines", counts[model.Machines],
		"plugins", counts[model.Plugins])
}

// replaceSnapshot returns the size of each replaced collection, or -1
// for collections that were absent.
func (m *Manager) replaceSnapshot(snap model.Snapshot) map[model.Collection]int {
	var plugins []model.Plugin
	if snap.Plugins != nil {
		plugins = m.evaluatePlugins(snap.Plugins)
	}

	counts := map[model.Collection]int{
		model.Categories: -1,
		model.Resources:  -1,
		model.Recipes:    -1,
		model.Machines:   -1,
		model.Plugins:    -1,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.Categories != nil {
		if err := validIDs(snap.Categories); err != nil {
			slog.Warn("categories not replaced", "error", err)
		} else {
			replaceLocked(m, m.categories, snap.Categories)
			counts[model.Categories] = m.categories.len()
		}
	}
	if snap.Resources != nil {
		if err := validIDs(snap.Resources); err != nil {
			slog.Warn("resources not replaced", "error", err)
		} else {
			replaceLocked(m, m.resources, snap.Resources)
			counts[model.Resources] = m.resources.len()
		}
	}
	if snap.Recipes != nil {
		if err := validIDs(snap.Recipes); err != nil {
			slog.Warn("recipes not replaced", "error", err)
		} else {
			replaceLocked(m, m.recipes, snap.Recipes)
			counts[model.Recipes] = m.recipes.len()
		}
	}
	if snap.Machines != nil {
		if err := validIDs(snap.Machines); err != nil {
			slog.Warn("machines not replaced", "error", err)
		} else {
			replaceLocked(m, m.machines, snap.Machines)
			counts[model.Machines] = m.machines.len()
		}
	}
	if plugins != nil {
		replaceLocked(m, m.plugins, plugins)
		counts[model.Plugins] = m.plugins.len()
	}
	return counts
}

func validIDs[T model.Record](items []T) error {
	for i, item := range items {
		if item.Key() == "" {
			return fmt.Errorf("record %d: %w", i, ErrEmptyID)
		}
	}
	return nil
}
