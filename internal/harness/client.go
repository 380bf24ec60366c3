package harness

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/roach88/modpack/internal/livesync"
	"github.com/roach88/modpack/internal/model"
	"github.com/roach88/modpack/internal/plugin"
	"github.com/roach88/modpack/internal/state"
	"github.com/roach88/modpack/internal/store"
)

// client is one scenario participant. It sits between its manager and
// its channel in both directions so the harness can count broadcasts
// sent and snapshots applied.
type client struct {
	name    string
	store   *store.Store
	manager *state.Manager
	channel *livesync.Channel
	loader  *plugin.Loader
	online  bool

	sent    atomic.Int64
	applied atomic.Int64
}

// Broadcast is called by the manager for every unsuppressed mutation.
func (c *client) Broadcast(snap model.Snapshot) {
	c.sent.Add(1)
	c.channel.Broadcast(snap)
}

func (c *client) Snapshot() model.Snapshot {
	return c.manager.Snapshot()
}

// ApplyInbound is called by the channel for every SYNC_STATE frame.
func (c *client) ApplyInbound(snap model.Snapshot) {
	c.manager.ApplyInbound(snap)
	c.applied.Add(1)
}

// mutate performs a record, plugin or import step against the manager.
func (c *client) mutate(step Step) error {
	switch step.Action {
	case ActionAdd, ActionPut:
		coll, err := recordCollection(step.Collection)
		if err != nil {
			return err
		}
		return writeRecord(c.manager, coll, step.Action == ActionPut, step.Record)
	case ActionDelete:
		coll, _ := model.ParseCollection(step.Collection)
		found, err := c.manager.Delete(coll, step.ID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s %q: %w", coll, step.ID, state.ErrNotFound)
		}
		return nil
	case ActionInstall:
		_, err := c.manager.InstallPlugin(step.Script)
		return err
	case ActionImport:
		snap, err := decodeSnapshot(step.Snapshot)
		if err != nil {
			return err
		}
		c.manager.ReplaceSnapshot(snap)
		return nil
	case ActionForceSync:
		c.Broadcast(c.manager.Snapshot())
		return nil
	}
	return fmt.Errorf("unknown action %q", step.Action)
}

// reload reads the client's store into a fresh manager.
func (c *client) reload(ctx context.Context) (model.Snapshot, error) {
	if err := c.manager.Flush(ctx); err != nil {
		return model.Snapshot{}, fmt.Errorf("flush %s: %w", c.name, err)
	}
	fresh := state.New(c.store, state.WithLoader(c.loader))
	if err := fresh.Load(ctx); err != nil {
		return model.Snapshot{}, fmt.Errorf("reload %s: %w", c.name, err)
	}
	return fresh.Snapshot(), nil
}

// writeRecord decodes fields into the collection's record type and adds
// or upserts it.
func writeRecord(m *state.Manager, coll model.Collection, upsert bool, fields map[string]any) error {
	switch coll {
	case model.Categories:
		rec, err := decodeRecord[model.Category](fields)
		if err != nil {
			return err
		}
		if upsert {
			return m.UpdateCategory(rec)
		}
		return m.AddCategory(rec)
	case model.Resources:
		rec, err := decodeRecord[model.Resource](fields)
		if err != nil {
			return err
		}
		if upsert {
			return m.UpdateResource(rec)
		}
		return m.AddResource(rec)
	case model.Recipes:
		rec, err := decodeRecord[model.Recipe](fields)
		if err != nil {
			return err
		}
		if upsert {
			return m.UpdateRecipe(rec)
		}
		return m.AddRecipe(rec)
	case model.Machines:
		rec, err := decodeRecord[model.MachineDefinition](fields)
		if err != nil {
			return err
		}
		if upsert {
			return m.UpdateMachine(rec)
		}
		return m.AddMachine(rec)
	}
	return fmt.Errorf("cannot write records to %s", coll)
}

// decodeRecord converts a YAML mapping into a typed record, rejecting
// unknown fields.
func decodeRecord[T any](fields map[string]any) (T, error) {
	var out T
	data, err := yaml.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("encode record: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

func decodeSnapshot(doc map[string]any) (model.Snapshot, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	return state.Import(bytes.NewReader(data), state.FormatYAML)
}
