package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_AbsentVersusEmpty(t *testing.T) {
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"categories":[],"resources":[{"id":"a","name":"A","type":"item","hidden":false}]}`), &snap))

	assert.NotNil(t, snap.Categories, "present empty array must decode as empty slice")
	assert.Len(t, snap.Categories, 0)
	assert.Len(t, snap.Resources, 1)
	assert.Nil(t, snap.Recipes, "absent collection must decode as nil")
	assert.Nil(t, snap.Plugins)
	assert.False(t, snap.IsZero())
}

func TestSnapshot_NormalizeEncodesEmptyArrays(t *testing.T) {
	data, err := json.Marshal(Snapshot{}.Normalize())
	require.NoError(t, err)
	assert.JSONEq(t, `{"categories":[],"resources":[],"recipes":[],"machines":[],"plugins":[]}`, string(data))
}

func TestProcessorHandlerNotSerialized(t *testing.T) {
	p := Plugin{
		ID:   "p",
		Name: "P",
		Processors: []RecipeProcessor{{
			ID:      "x",
			Name:    "X",
			Handler: func(Recipe, MachineDefinition, []Resource) (string, error) { return "", nil },
		}},
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "handler")
	assert.NotContains(t, string(data), "Handler")
}

func TestParseCollection(t *testing.T) {
	c, ok := ParseCollection("recipes")
	require.True(t, ok)
	assert.Equal(t, Recipes, c)

	_, ok = ParseCollection("widgets")
	assert.False(t, ok)
}

func TestDefaults(t *testing.T) {
	assert.Len(t, DefaultCategories(), 3)
	assert.Len(t, DefaultMachines(), 4)

	var hidden []string
	for _, r := range DefaultResources() {
		if r.Hidden {
			hidden = append(hidden, r.ID)
		}
	}
	assert.Equal(t, []string{"energy"}, hidden)
}
