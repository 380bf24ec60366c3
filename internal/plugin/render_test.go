package plugin

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modpack/internal/model"
)

var testResources = []model.Resource{
	{ID: "iron_ore", Name: "Iron Ore", Type: "item"},
	{ID: "iron_ingot", Name: "Iron Ingot", Type: "item"},
}

func smeltIron() model.Recipe {
	return model.Recipe{
		ID:        "smelt_iron",
		Name:      "Smelt Iron",
		MachineID: "furnace2",
		Duration:  200,
		Inputs: []model.ResourceStack{
			{ResourceID: "iron_ore", Amount: 2},
			{ResourceID: "coal", Amount: 1},
		},
		Outputs: []model.ResourceStack{{ResourceID: "iron_ingot", Amount: 2}},
	}
}

func TestRender_TemplateSubstitution(t *testing.T) {
	proc := model.RecipeProcessor{ID: "t", Template: "{{recipe_name}} uses {{inputs}}"}
	recipe := model.Recipe{
		Name:   "Smelt Iron",
		Inputs: []model.ResourceStack{{ResourceID: "iron_ore", Amount: 1}},
	}

	got := Render(proc, recipe, model.MachineDefinition{}, testResources)
	assert.Equal(t, `Smelt Iron uses ["Iron Ore"]`, got)
}

func TestRender_AllPlaceholders(t *testing.T) {
	proc := model.RecipeProcessor{
		ID:       "all",
		Template: "{{machine}}|{{recipe_name}}|{{duration}}|{{inputs}}|{{outputs}}|{{input_ids}}|{{output_ids}}|{{unknown}}",
	}
	machine := model.MachineDefinition{ID: "furnace2", Name: "Blast Furnace"}

	got := Render(proc, smeltIron(), machine, testResources)
	assert.Equal(t,
		`furnace2|Smelt Iron|200|["Iron Ore", "coal"]|["Iron Ingot"]|["iron_ore", "coal"]|["iron_ingot"]|{{unknown}}`,
		got)
}

func TestRender_UnknownMachineFallsBackToRecipeMachineID(t *testing.T) {
	proc := model.RecipeProcessor{ID: "m", Template: "{{machine}}"}
	assert.Equal(t, "furnace2", Render(proc, smeltIron(), model.MachineDefinition{}, nil))
}

func TestRender_SinglePass(t *testing.T) {
	proc := model.RecipeProcessor{ID: "p", Template: "{{recipe_name}}"}
	recipe := model.Recipe{Name: "{{duration}}", Duration: 5}
	assert.Equal(t, "{{duration}}", Render(proc, recipe, model.MachineDefinition{}, nil))
}

func TestRender_EmptyStacks(t *testing.T) {
	proc := model.RecipeProcessor{ID: "p", Template: "{{inputs}}"}
	assert.Equal(t, "[]", Render(proc, model.Recipe{}, model.MachineDefinition{}, nil))
}

func TestRender_HandlerErrorRenderedInline(t *testing.T) {
	p, err := Evaluate(`
id: "broken"
name: "Broken"
machines: []
processors: [{
	id: "bad"
	handler: {
		recipe: _
		machine: _
		resources: _
		out: recipe.no_such_field
	}
}]
`)
	require.NoError(t, err, "a handler that only fails when called must still load")

	got := Render(p.Processors[0], smeltIron(), model.MachineDefinition{}, testResources)
	assert.Contains(t, got, "/* processor bad failed:")
	assert.Contains(t, got, "*/")
}

func TestRender_HandlerPanicRenderedInline(t *testing.T) {
	proc := model.RecipeProcessor{
		ID: "boom",
		Handler: func(model.Recipe, model.MachineDefinition, []model.Resource) (string, error) {
			panic("kaboom")
		},
	}
	got := Render(proc, smeltIron(), model.MachineDefinition{}, nil)
	assert.Equal(t, "/* processor boom failed: panic: kaboom */", got)
}

func TestRender_HandlerWinsOverTemplate(t *testing.T) {
	proc := model.RecipeProcessor{
		ID:       "both",
		Template: "template",
		Handler: func(model.Recipe, model.MachineDefinition, []model.Resource) (string, error) {
			return "handler", nil
		},
	}
	assert.Equal(t, "handler", Render(proc, model.Recipe{}, model.MachineDefinition{}, nil))
}

func TestRender_HandlerSeesResources(t *testing.T) {
	p, err := Evaluate(`
id: "res"
name: "Res"
machines: []
processors: [{
	id: "n"
	handler: {
		recipe: _
		machine: _
		resources: _
		out: "\(len(resources)) known, first \(resources[0].name)"
	}
}]
`)
	require.NoError(t, err)
	got := Render(p.Processors[0], smeltIron(), model.MachineDefinition{}, testResources)
	assert.Equal(t, "2 known, first Iron Ore", got)
}

func TestRender_GoldenSteamAge(t *testing.T) {
	p, err := Evaluate(readScript(t, "steam.cue"))
	require.NoError(t, err)

	var buf bytes.Buffer
	for _, proc := range p.Processors {
		fmt.Fprintf(&buf, "%s: %s\n", proc.ID, Render(proc, smeltIron(), p.Machines[1], testResources))
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, p.ID, buf.Bytes())
}

func TestRender_FractionalNumbers(t *testing.T) {
	recipe := smeltIron()
	recipe.Duration = 12.5
	recipe.Inputs[0].Amount = 0.5

	proc := model.RecipeProcessor{ID: "d", Template: "{{duration}}"}
	assert.Equal(t, "12.5", Render(proc, recipe, model.MachineDefinition{}, nil))

	p, err := Evaluate(`
id: "nums"
name: "Nums"
machines: []
processors: [{
	id: "n"
	handler: {
		recipe: _
		machine: _
		resources: _
		out: "\(recipe.duration) ticks, \(recipe.inputs[0].amount)x first, \(recipe.outputs[0].amount)x out"
	}
}]
`)
	require.NoError(t, err)
	got := Render(p.Processors[0], recipe, model.MachineDefinition{}, nil)
	assert.Equal(t, "12.5 ticks, 0.5x first, 2x out", got)
}
