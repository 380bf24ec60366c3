package state

import (
	"fmt"
	"log/slog"

	"github.com/roach88/modpack/internal/model"
	"github.com/roach88/modpack/internal/plugin"
)

// InstallPlugin evaluates a plugin script and installs the result.
// A script that fails to evaluate changes nothing; the error is a
// *plugin.LoadError.
func (m *Manager) InstallPlugin(script string) (*model.Plugin, error) {
	p, err := m.loader.Evaluate(script)
	if err != nil {
		return nil, fmt.Errorf("install plugin: %w", err)
	}
	if err := m.Install(*p); err != nil {
		return nil, err
	}
	return p, nil
}

// Install upserts an evaluated plugin and upserts every machine it
// declares. Reinstalling the same plugin replaces it in place and does
// not duplicate its machines. One broadcast covers the whole install.
func (m *Manager) Install(p model.Plugin) error {
	if p.ID == "" {
		return fmt.Errorf("install plugin: %w", ErrEmptyID)
	}
	for i, md := range p.Machines {
		if md.ID == "" {
			return fmt.Errorf("install plugin %q: machine %d: %w", p.ID, i, ErrEmptyID)
		}
	}

	m.mu.Lock()
	m.plugins.put(p)
	m.enqueue(write{kind: writePut, table: model.Plugins, id: p.ID, record: p.Record()})
	for _, md := range p.Machines {
		m.machines.put(md)
		m.enqueue(write{kind: writePut, table: model.Machines, id: md.ID, record: md})
	}
	m.mu.Unlock()

	slog.Info("plugin installed",
		"plugin", p.ID,
		"version", p.Version,
		"machines", len(p.Machines),
		"processors", len(p.Processors))

	m.broadcast()
	return nil
}

// RemovePlugin deletes a plugin. Machines it injected stay in the
// machine catalog.
func (m *Manager) RemovePlugin(id string) bool {
	return remove(m, m.plugins, id)
}

func (m *Manager) Plugins() []model.Plugin {
	return list(m, m.plugins)
}

func (m *Manager) Plugin(id string) (model.Plugin, bool) {
	return lookup(m, m.plugins, id)
}

// RenderRecipe renders a recipe with one plugin processor.
//
// The recipe's machine is resolved from the catalog; an unknown machine
// renders with the recipe's machine id only. Render failures inside the
// processor are part of the returned text, not an error.
func (m *Manager) RenderRecipe(recipeID, pluginID, processorID string) (string, error) {
	m.mu.RLock()
	recipe, ok := m.recipes.get(recipeID)
	if !ok {
		m.mu.RUnlock()
		return "", fmt.Errorf("render recipe %q: %w", recipeID, ErrNotFound)
	}
	p, ok := m.plugins.get(pluginID)
	if !ok {
		m.mu.RUnlock()
		return "", fmt.Errorf("render with plugin %q: %w", pluginID, ErrNotFound)
	}
	machine, _ := m.machines.get(recipe.MachineID)
	resources := m.resources.all()
	m.mu.RUnlock()

	proc, ok := p.Processor(processorID)
	if !ok {
		return "", fmt.Errorf("render with processor %q of plugin %q: %w", processorID, pluginID, ErrNotFound)
	}
	return plugin.Render(proc, recipe, machine, resources), nil
}

// evaluatePlugins rebuilds plugins from their scripts. Entries whose
// script does not evaluate are logged and skipped.
func (m *Manager) evaluatePlugins(in []model.Plugin) []model.Plugin {
	out := make([]model.Plugin, 0, len(in))
	for _, rec := range in {
		p, err := m.loader.Evaluate(rec.ScriptContent)
		if err != nil {
			slog.Warn("plugin skipped: script does not evaluate",
				"plugin", rec.ID,
				"error", err)
			continue
		}
		out = append(out, *p)
	}
	return out
}
