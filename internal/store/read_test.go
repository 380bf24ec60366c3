package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modpack/internal/model"
)

func TestGetAll_EmptyTableReturnsEmptySlice(t *testing.T) {
	s := createTestStore(t)

	raw, err := s.GetAll(context.Background(), model.Recipes)
	require.NoError(t, err)
	assert.NotNil(t, raw)
	assert.Empty(t, raw)
}

func TestGetAll_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/test.db"
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	recipe := model.Recipe{
		ID:        "smelt_iron",
		Name:      "Smelt Iron",
		MachineID: "furnace",
		Duration:  200,
		Inputs:    []model.ResourceStack{{ResourceID: "iron_ore", Amount: 1}},
		Outputs:   []model.ResourceStack{{ResourceID: "iron_ingot", Amount: 1}},
		Metadata:  map[string]any{"xp": 0.7},
	}
	require.NoError(t, s1.Put(ctx, model.Recipes, recipe))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	raw, err := s2.GetAll(ctx, model.Recipes)
	require.NoError(t, err)
	got, err := Decode[model.Recipe](raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, recipe, got[0])
}

func TestDecode_BadRecord(t *testing.T) {
	_, err := Decode[model.Resource]([]json.RawMessage{json.RawMessage(`{"id":`)})
	assert.Error(t, err)
}
