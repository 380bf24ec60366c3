package model

// Record is implemented by every entity stored in a keyed collection.
type Record interface {
	Key() string
}

// IconType selects the glyph a category is drawn with.
type IconType string

const (
	IconBox     IconType = "box"
	IconDroplet IconType = "droplet"
	IconZap     IconType = "zap"
	IconWind    IconType = "wind"
	IconStar    IconType = "star"
)

// ValidIconTypes defines allowed category icons.
var ValidIconTypes = map[IconType]bool{
	IconBox:     true,
	IconDroplet: true,
	IconZap:     true,
	IconWind:    true,
	IconStar:    true,
}

// Category identifies a resource kind (item, fluid, energy, custom).
type Category struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Color    string   `json:"color" yaml:"color"`
	IconType IconType `json:"iconType" yaml:"iconType"`
}

func (c Category) Key() string { return c.ID }

// Resource is anything a recipe consumes or produces.
// Hidden resources (e.g. abstract energy) stay usable in recipes but are
// left out of the visual graph.
type Resource struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"` // Category ID
	Hidden bool   `json:"hidden" yaml:"hidden"`
}

func (r Resource) Key() string { return r.ID }

// MachineSlot is a typed, ordered input or output position of a machine.
type MachineSlot struct {
	Type     string `json:"type" yaml:"type"` // Category ID
	Label    string `json:"label" yaml:"label"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// MetadataFieldType is the advisory value type of a MetadataField.
type MetadataFieldType string

const (
	MetadataString  MetadataFieldType = "string"
	MetadataNumber  MetadataFieldType = "number"
	MetadataBoolean MetadataFieldType = "boolean"
	MetadataColor   MetadataFieldType = "color"
)

// MetadataField is a user-defined schema entry a machine can declare.
type MetadataField struct {
	Key   string            `json:"key" yaml:"key"`
	Label string            `json:"label" yaml:"label"`
	Type  MetadataFieldType `json:"type" yaml:"type"`
}

// MachineDefinition describes a machine and its positional slots.
type MachineDefinition struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Description    string          `json:"description" yaml:"description"`
	Icon           string          `json:"icon,omitempty" yaml:"icon,omitempty"`
	Inputs         []MachineSlot   `json:"inputs" yaml:"inputs"`
	Outputs        []MachineSlot   `json:"outputs" yaml:"outputs"`
	MetadataSchema []MetadataField `json:"metadataSchema,omitempty" yaml:"metadataSchema,omitempty"`
}

func (m MachineDefinition) Key() string { return m.ID }

// ResourceStack is an amount of one resource in a recipe input or output.
type ResourceStack struct {
	ResourceID string  `json:"resourceId" yaml:"resourceId"`
	Amount     float64 `json:"amount" yaml:"amount"`
}

// Recipe turns input stacks into output stacks on a machine.
// Inputs and Outputs are expected to line up with the machine's slots by
// position; nothing enforces it at write time (see package check).
type Recipe struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	MachineID string          `json:"machineId" yaml:"machineId"`
	Duration  float64         `json:"duration,omitempty" yaml:"duration,omitempty"` // ticks
	Inputs    []ResourceStack `json:"inputs" yaml:"inputs"`
	Outputs   []ResourceStack `json:"outputs" yaml:"outputs"`
	Note      string          `json:"note,omitempty" yaml:"note,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func (r Recipe) Key() string { return r.ID }

// RecipeHandler generates export text for a recipe.
// Built by the plugin loader; never serialized.
type RecipeHandler func(recipe Recipe, machine MachineDefinition, resources []Resource) (string, error)

// RecipeProcessor is a plugin-declared recipe-to-text generator.
// Either Handler or Template is used; Handler wins when both are set.
type RecipeProcessor struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Template    string        `json:"template,omitempty" yaml:"template,omitempty"`
	Handler     RecipeHandler `json:"-" yaml:"-"`
}

// Plugin is an evaluated plugin script.
// ScriptContent is the source of truth: everything else is derived from it
// and re-derived on load and on inbound sync.
type Plugin struct {
	ID            string              `json:"id" yaml:"id"`
	Name          string              `json:"name" yaml:"name"`
	Description   string              `json:"description,omitempty" yaml:"description,omitempty"`
	Version       string              `json:"version,omitempty" yaml:"version,omitempty"`
	ScriptContent string              `json:"scriptContent" yaml:"scriptContent"`
	Machines      []MachineDefinition `json:"machines" yaml:"machines"`
	Processors    []RecipeProcessor   `json:"processors" yaml:"processors"`
}

func (p Plugin) Key() string { return p.ID }

// Processor returns the processor with the given ID.
func (p Plugin) Processor(id string) (RecipeProcessor, bool) {
	for _, proc := range p.Processors {
		if proc.ID == id {
			return proc, true
		}
	}
	return RecipeProcessor{}, false
}

// PluginRecord is the persisted form of a plugin.
type PluginRecord struct {
	ID            string `json:"id"`
	ScriptContent string `json:"scriptContent"`
}

func (p PluginRecord) Key() string { return p.ID }

// Record returns the persisted form of the plugin.
func (p Plugin) Record() PluginRecord {
	return PluginRecord{ID: p.ID, ScriptContent: p.ScriptContent}
}
