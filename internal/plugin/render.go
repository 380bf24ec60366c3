package plugin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/modpack/internal/model"
)

// Template placeholders substituted by Render.
const (
	PlaceholderMachine    = "{{machine}}"
	PlaceholderRecipeName = "{{recipe_name}}"
	PlaceholderDuration   = "{{duration}}"
	PlaceholderInputs     = "{{inputs}}"
	PlaceholderOutputs    = "{{outputs}}"
	PlaceholderInputIDs   = "{{input_ids}}"
	PlaceholderOutputIDs  = "{{output_ids}}"
)

// Render generates the export text for a recipe with one processor.
//
// A handler's result is returned verbatim; a handler error (or panic) is
// rendered inline as a comment instead of being returned, so one broken
// processor cannot abort an export. Without a handler the template is
// expanded by literal, single-pass placeholder replacement. machine may be
// the zero value when the recipe references an unknown machine.
func Render(proc model.RecipeProcessor, recipe model.Recipe, machine model.MachineDefinition, resources []model.Resource) string {
	if proc.Handler != nil {
		out, err := callHandler(proc.Handler, normalizeRecipe(recipe), normalizeMachine(machine, recipe), nonNil(resources))
		if err != nil {
			return fmt.Sprintf("/* processor %s failed: %v */", proc.ID, err)
		}
		return out
	}

	machineID := machine.ID
	if machineID == "" {
		machineID = recipe.MachineID
	}

	names := make(map[string]string, len(resources))
	for _, r := range resources {
		names[r.ID] = r.Name
	}

	replacer := strings.NewReplacer(
		PlaceholderMachine, machineID,
		PlaceholderRecipeName, recipe.Name,
		PlaceholderDuration, strconv.FormatFloat(recipe.Duration, 'f', -1, 64),
		PlaceholderInputs, quoteList(recipe.Inputs, func(id string) string { return nameOf(names, id) }),
		PlaceholderOutputs, quoteList(recipe.Outputs, func(id string) string { return nameOf(names, id) }),
		PlaceholderInputIDs, quoteList(recipe.Inputs, func(id string) string { return id }),
		PlaceholderOutputIDs, quoteList(recipe.Outputs, func(id string) string { return id }),
	)
	return replacer.Replace(proc.Template)
}

func callHandler(h model.RecipeHandler, recipe model.Recipe, machine model.MachineDefinition, resources []model.Resource) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(recipe, machine, resources)
}

// nameOf resolves a resource ID to its display name, falling back to the
// ID itself for unknown resources.
func nameOf(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id
}

// quoteList renders stacks as ["a", "b"].
func quoteList(stacks []model.ResourceStack, label func(string) string) string {
	parts := make([]string, len(stacks))
	for i, s := range stacks {
		parts[i] = `"` + label(s.ResourceID) + `"`
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Handlers see [] rather than null for empty lists.
func normalizeRecipe(r model.Recipe) model.Recipe {
	if r.Inputs == nil {
		r.Inputs = []model.ResourceStack{}
	}
	if r.Outputs == nil {
		r.Outputs = []model.ResourceStack{}
	}
	return r
}

func normalizeMachine(m model.MachineDefinition, r model.Recipe) model.MachineDefinition {
	if m.ID == "" {
		m.ID = r.MachineID
	}
	if m.Inputs == nil {
		m.Inputs = []model.MachineSlot{}
	}
	if m.Outputs == nil {
		m.Outputs = []model.MachineSlot{}
	}
	return m
}

func nonNil(resources []model.Resource) []model.Resource {
	if resources == nil {
		return []model.Resource{}
	}
	return resources
}
