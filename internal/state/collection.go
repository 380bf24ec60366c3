package state

import "github.com/roach88/modpack/internal/model"

// collection is an insertion-ordered set of records keyed by id.
// Not safe for concurrent use; the Manager's mutex guards it.
type collection[T model.Record] struct {
	table  model.Collection
	items  []T
	index  map[string]int
	record func(T) model.Record // persisted form; nil means the item itself
}

func newCollection[T model.Record](table model.Collection) *collection[T] {
	return &collection[T]{table: table, index: make(map[string]int)}
}

func (c *collection[T]) persisted(item T) model.Record {
	if c.record != nil {
		return c.record(item)
	}
	return item
}

func (c *collection[T]) get(id string) (T, bool) {
	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

func (c *collection[T]) has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// put inserts or replaces in place. Replacing keeps the position.
func (c *collection[T]) put(item T) {
	if i, ok := c.index[item.Key()]; ok {
		c.items[i] = item
		return
	}
	c.index[item.Key()] = len(c.items)
	c.items = append(c.items, item)
}

func (c *collection[T]) remove(id string) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].Key()] = j
	}
	return true
}

func (c *collection[T]) replace(items []T) {
	c.items = nil
	c.index = make(map[string]int, len(items))
	for _, item := range items {
		c.put(item)
	}
}

// all returns a copy of the items in order, never nil.
func (c *collection[T]) all() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *collection[T]) records() []model.Record {
	out := make([]model.Record, len(c.items))
	for i, item := range c.items {
		out[i] = c.persisted(item)
	}
	return out
}

func (c *collection[T]) len() int { return len(c.items) }
