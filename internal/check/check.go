// Package check lints a snapshot for references and slot layouts the
// editor accepted without complaint.
//
// Writes are never blocked on these findings; Check only reports them.
package check

import (
	"fmt"

	"github.com/roach88/modpack/internal/model"
)

// Issue codes (E200-E299)
const (
	ErrStackBeyondSlots = "E201" // more stacks than the machine has slots
	ErrSlotTypeMismatch = "E202" // stack resource type differs from slot type
	ErrUnknownMachine   = "E203" // recipe names a machine that does not exist
	ErrUnknownResource  = "E204" // stack names a resource that does not exist
	ErrUnknownCategory  = "E205" // resource type is not a category
	ErrDuplicateID      = "E206" // id repeated within a collection
	ErrInvalidIconType  = "E207" // category icon is not a known glyph
)

// Issue is one finding.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("[%s] %s: %s", i.Code, i.Field, i.Message)
}

// Check returns every issue found in snap, in collection order.
// Returns all issues (does not fail-fast).
func Check(snap model.Snapshot) []Issue {
	var issues []Issue

	issues = append(issues, duplicates(model.Categories, snap.Categories)...)
	issues = append(issues, duplicates(model.Resources, snap.Resources)...)
	issues = append(issues, duplicates(model.Recipes, snap.Recipes)...)
	issues = append(issues, duplicates(model.Machines, snap.Machines)...)
	issues = append(issues, duplicates(model.Plugins, snap.Plugins)...)

	issues = append(issues, checkCategories(snap.Categories)...)
	issues = append(issues, checkResources(snap)...)
	issues = append(issues, checkRecipes(snap)...)

	return issues
}

// E206
func duplicates[T model.Record](coll model.Collection, items []T) []Issue {
	var issues []Issue
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if seen[item.Key()] {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("%s[%d].id", coll, i),
				Message: fmt.Sprintf("duplicate id %q", item.Key()),
				Code:    ErrDuplicateID,
			})
		}
		seen[item.Key()] = true
	}
	return issues
}

// E207
func checkCategories(categories []model.Category) []Issue {
	var issues []Issue
	for i, c := range categories {
		if !model.ValidIconTypes[c.IconType] {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("categories[%d].iconType", i),
				Message: fmt.Sprintf("category %q has unknown icon %q", c.ID, c.IconType),
				Code:    ErrInvalidIconType,
			})
		}
	}
	return issues
}

// E205
func checkResources(snap model.Snapshot) []Issue {
	categories := make(map[string]bool, len(snap.Categories))
	for _, c := range snap.Categories {
		categories[c.ID] = true
	}

	var issues []Issue
	for i, r := range snap.Resources {
		if !categories[r.Type] {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("resources[%d].type", i),
				Message: fmt.Sprintf("resource %q has unknown category %q", r.ID, r.Type),
				Code:    ErrUnknownCategory,
			})
		}
	}
	return issues
}

// E201-E204
func checkRecipes(snap model.Snapshot) []Issue {
	resources := make(map[string]model.Resource, len(snap.Resources))
	for _, r := range snap.Resources {
		resources[r.ID] = r
	}
	machines := make(map[string]model.MachineDefinition, len(snap.Machines))
	for _, m := range snap.Machines {
		machines[m.ID] = m
	}

	var issues []Issue
	for i, recipe := range snap.Recipes {
		field := fmt.Sprintf("recipes[%d]", i)

		machine, ok := machines[recipe.MachineID]
		if !ok {
			issues = append(issues, Issue{
				Field:   field + ".machineId",
				Message: fmt.Sprintf("recipe %q uses unknown machine %q", recipe.ID, recipe.MachineID),
				Code:    ErrUnknownMachine,
			})
		}

		issues = append(issues, checkStacks(field+".inputs", recipe.Inputs, machine.Inputs, ok, resources)...)
		issues = append(issues, checkStacks(field+".outputs", recipe.Outputs, machine.Outputs, ok, resources)...)
	}
	return issues
}

// checkStacks compares stacks against slots by position. Slot checks are
// skipped when the machine is unknown.
func checkStacks(field string, stacks []model.ResourceStack, slots []model.MachineSlot, haveMachine bool, resources map[string]model.Resource) []Issue {
	var issues []Issue

	if haveMachine && len(stacks) > len(slots) {
		issues = append(issues, Issue{
			Field:   field,
			Message: fmt.Sprintf("%d stacks but the machine has %d slots", len(stacks), len(slots)),
			Code:    ErrStackBeyondSlots,
		})
	}

	for j, stack := range stacks {
		stackField := fmt.Sprintf("%s[%d]", field, j)

		res, ok := resources[stack.ResourceID]
		if !ok {
			issues = append(issues, Issue{
				Field:   stackField + ".resourceId",
				Message: fmt.Sprintf("unknown resource %q", stack.ResourceID),
				Code:    ErrUnknownResource,
			})
			continue
		}

		if haveMachine && j < len(slots) && slots[j].Type != res.Type {
			issues = append(issues, Issue{
				Field:   stackField,
				Message: fmt.Sprintf("resource %q is %s but slot %q takes %s", res.ID, res.Type, slots[j].Label, slots[j].Type),
				Code:    ErrSlotTypeMismatch,
			})
		}
	}
	return issues
}
