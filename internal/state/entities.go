package state

import (
	"fmt"

	"github.com/roach88/modpack/internal/model"
)

// add inserts a new record; an existing id is rejected.
func add[T model.Record](m *Manager, c *collection[T], item T) error {
	id := item.Key()
	if id == "" {
		return fmt.Errorf("add %s: %w", c.table, ErrEmptyID)
	}

	m.mu.Lock()
	if c.has(id) {
		m.mu.Unlock()
		return fmt.Errorf("add %s %q: %w", c.table, id, ErrDuplicateID)
	}
	c.put(item)
	m.enqueue(write{kind: writePut, table: c.table, id: id, record: c.persisted(item)})
	m.mu.Unlock()

	m.broadcast()
	return nil
}

// upsert inserts or replaces a record by id.
func upsert[T model.Record](m *Manager, c *collection[T], item T) error {
	id := item.Key()
	if id == "" {
		return fmt.Errorf("update %s: %w", c.table, ErrEmptyID)
	}

	m.mu.Lock()
	c.put(item)
	m.enqueue(write{kind: writePut, table: c.table, id: id, record: c.persisted(item)})
	m.mu.Unlock()

	m.broadcast()
	return nil
}

// remove deletes a record. An unknown id is a no-op and reports false.
func remove[T model.Record](m *Manager, c *collection[T], id string) bool {
	m.mu.Lock()
	if !c.remove(id) {
		m.mu.Unlock()
		return false
	}
	m.enqueue(write{kind: writeDelete, table: c.table, id: id})
	m.mu.Unlock()

	m.broadcast()
	return true
}

// replaceAll swaps the whole collection. Duplicate ids collapse to the
// last occurrence at the first occurrence's position.
func replaceAll[T model.Record](m *Manager, c *collection[T], items []T) error {
	for i, item := range items {
		if item.Key() == "" {
			return fmt.Errorf("replace %s: record %d: %w", c.table, i, ErrEmptyID)
		}
	}

	m.mu.Lock()
	replaceLocked(m, c, items)
	m.mu.Unlock()

	m.broadcast()
	return nil
}

// replaceLocked replaces memory and queues the durable replace.
// Caller holds m.mu.
func replaceLocked[T model.Record](m *Manager, c *collection[T], items []T) {
	c.replace(items)
	m.enqueue(write{kind: writeReplace, table: c.table, records: c.records()})
}

func lookup[T model.Record](m *Manager, c *collection[T], id string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return c.get(id)
}

func list[T model.Record](m *Manager, c *collection[T]) []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return c.all()
}

// AddCategory inserts a new category. An existing id returns ErrDuplicateID.
func (m *Manager) AddCategory(c model.Category) error {
	return add(m, m.categories, c)
}

// UpdateCategory inserts or replaces a category by id.
func (m *Manager) UpdateCategory(c model.Category) error {
	return upsert(m, m.categories, c)
}

// DeleteCategory removes a category; it reports false for an unknown id.
func (m *Manager) DeleteCategory(id string) bool {
	return remove(m, m.categories, id)
}

// ReplaceCategories swaps the whole collection.
func (m *Manager) ReplaceCategories(cs []model.Category) error {
	return replaceAll(m, m.categories, cs)
}

func (m *Manager) Categories() []model.Category {
	return list(m, m.categories)
}

func (m *Manager) Category(id string) (model.Category, bool) {
	return lookup(m, m.categories, id)
}

// AddResource inserts a new resource. An existing id returns ErrDuplicateID.
func (m *Manager) AddResource(r model.Resource) error {
	return add(m, m.resources, r)
}

// UpdateResource inserts or replaces a resource by id.
func (m *Manager) UpdateResource(r model.Resource) error {
	return upsert(m, m.resources, r)
}

// DeleteResource removes a resource; it reports false for an unknown id.
func (m *Manager) DeleteResource(id string) bool {
	return remove(m, m.resources, id)
}

// ReplaceResources swaps the whole collection.
func (m *Manager) ReplaceResources(rs []model.Resource) error {
	return replaceAll(m, m.resources, rs)
}

func (m *Manager) Resources() []model.Resource {
	return list(m, m.resources)
}

func (m *Manager) Resource(id string) (model.Resource, bool) {
	return lookup(m, m.resources, id)
}

// AddRecipe inserts a new recipe. An existing id returns ErrDuplicateID.
func (m *Manager) AddRecipe(r model.Recipe) error {
	return add(m, m.recipes, r)
}

// UpdateRecipe inserts or replaces a recipe by id.
func (m *Manager) UpdateRecipe(r model.Recipe) error {
	return upsert(m, m.recipes, r)
}

// DeleteRecipe removes a recipe; it reports false for an unknown id.
func (m *Manager) DeleteRecipe(id string) bool {
	return remove(m, m.recipes, id)
}

// ReplaceRecipes swaps the whole collection.
func (m *Manager) ReplaceRecipes(rs []model.Recipe) error {
	return replaceAll(m, m.recipes, rs)
}

func (m *Manager) Recipes() []model.Recipe {
	return list(m, m.recipes)
}

func (m *Manager) Recipe(id string) (model.Recipe, bool) {
	return lookup(m, m.recipes, id)
}

// AddMachine inserts a new machine. An existing id returns ErrDuplicateID.
func (m *Manager) AddMachine(d model.MachineDefinition) error {
	return add(m, m.machines, d)
}

// UpdateMachine inserts or replaces a machine by id.
func (m *Manager) UpdateMachine(d model.MachineDefinition) error {
	return upsert(m, m.machines, d)
}

// DeleteMachine removes a machine; it reports false for an unknown id.
func (m *Manager) DeleteMachine(id string) bool {
	return remove(m, m.machines, id)
}

// ReplaceMachines swaps the whole collection.
func (m *Manager) ReplaceMachines(ds []model.MachineDefinition) error {
	return replaceAll(m, m.machines, ds)
}

func (m *Manager) Machines() []model.MachineDefinition {
	return list(m, m.machines)
}

func (m *Manager) Machine(id string) (model.MachineDefinition, bool) {
	return lookup(m, m.machines, id)
}

// Delete removes a record from any collection by name.
func (m *Manager) Delete(coll model.Collection, id string) (bool, error) {
	switch coll {
	case model.Categories:
		return m.DeleteCategory(id), nil
	case model.Resources:
		return m.DeleteResource(id), nil
	case model.Recipes:
		return m.DeleteRecipe(id), nil
	case model.Machines:
		return m.DeleteMachine(id), nil
	case model.Plugins:
		return m.RemovePlugin(id), nil
	default:
		return false, fmt.Errorf("delete from %q: unknown collection", coll)
	}
}

// RecipesUsingResource returns recipes that consume or produce id.
func (m *Manager) RecipesUsingResource(id string) []model.Recipe {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Recipe
	for _, r := range m.recipes.items {
		if stacksReference(r.Inputs, id) || stacksReference(r.Outputs, id) {
			out = append(out, r)
		}
	}
	return out
}

// RecipesUsingMachine returns recipes that run in machine id.
func (m *Manager) RecipesUsingMachine(id string) []model.Recipe {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Recipe
	for _, r := range m.recipes.items {
		if r.MachineID == id {
			out = append(out, r)
		}
	}
	return out
}

// ResourcesOfCategory returns resources whose type is category id.
func (m *Manager) ResourcesOfCategory(id string) []model.Resource {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Resource
	for _, r := range m.resources.items {
		if r.Type == id {
			out = append(out, r)
		}
	}
	return out
}

func stacksReference(stacks []model.ResourceStack, id string) bool {
	for _, s := range stacks {
		if s.ResourceID == id {
			return true
		}
	}
	return false
}
