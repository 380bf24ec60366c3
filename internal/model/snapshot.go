package model

// Collection names a keyed collection. They double as Durable Store table
// names and as the top-level keys of a Snapshot document.
type Collection string

const (
	Categories Collection = "categories"
	Resources  Collection = "resources"
	Recipes    Collection = "recipes"
	Machines   Collection = "machines"
	Plugins    Collection = "plugins"
)

// AllCollections lists every collection in load order.
var AllCollections = []Collection{Categories, Resources, Recipes, Machines, Plugins}

// ParseCollection resolves a collection name.
func ParseCollection(name string) (Collection, bool) {
	for _, c := range AllCollections {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// Snapshot is the full modpack state: the unit of durable save, file
// export/import and network broadcast.
//
// A nil slice means "absent" (the collection was not part of the document);
// an empty slice means "present and empty". Consumers that replace state
// from a Snapshot leave absent collections untouched.
type Snapshot struct {
	Categories []Category          `json:"categories" yaml:"categories"`
	Resources  []Resource          `json:"resources" yaml:"resources"`
	Recipes    []Recipe            `json:"recipes" yaml:"recipes"`
	Machines   []MachineDefinition `json:"machines" yaml:"machines"`
	Plugins    []Plugin            `json:"plugins" yaml:"plugins"`
}

// Normalize returns a copy with every absent collection made present and
// empty, so that it encodes as [] rather than null.
func (s Snapshot) Normalize() Snapshot {
	if s.Categories == nil {
		s.Categories = []Category{}
	}
	if s.Resources == nil {
		s.Resources = []Resource{}
	}
	if s.Recipes == nil {
		s.Recipes = []Recipe{}
	}
	if s.Machines == nil {
		s.Machines = []MachineDefinition{}
	}
	if s.Plugins == nil {
		s.Plugins = []Plugin{}
	}
	return s
}

// IsZero reports whether every collection is absent.
func (s Snapshot) IsZero() bool {
	return s.Categories == nil && s.Resources == nil && s.Recipes == nil &&
		s.Machines == nil && s.Plugins == nil
}

// Counts returns the number of records per collection.
func (s Snapshot) Counts() map[Collection]int {
	return map[Collection]int{
		Categories: len(s.Categories),
		Resources:  len(s.Resources),
		Recipes:    len(s.Recipes),
		Machines:   len(s.Machines),
		Plugins:    len(s.Plugins),
	}
}

// FindResource returns the resource with the given ID.
func (s Snapshot) FindResource(id string) (Resource, bool) {
	for _, r := range s.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

// FindMachine returns the machine with the given ID.
func (s Snapshot) FindMachine(id string) (MachineDefinition, bool) {
	for _, m := range s.Machines {
		if m.ID == id {
			return m, true
		}
	}
	return MachineDefinition{}, false
}
