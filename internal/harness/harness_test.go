package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRun_FailedAssertionIsReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_expectation",
		Description: "asserts a record that was never written",
		Clients:     []string{"a", "b"},
		Steps: []Step{{
			Client:     "a",
			Action:     ActionAdd,
			Collection: "resources",
			Record:     map[string]any{"id": "gold_ingot", "name": "Gold Ingot", "type": "item"},
		}},
		Assertions: []Assertion{
			{Type: AssertHas, Client: "b", Collection: "resources", ID: "silver_ingot"},
			{Type: AssertDiverged},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "assertion[0]")
	assert.Contains(t, result.Errors[0], `resources "silver_ingot" present`)
	assert.Contains(t, result.Errors[1], "at least two clients differ")
}

func TestRun_StepFailureStopsScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing_record",
		Description: "deleting an unknown record fails the step",
		Clients:     []string{"a"},
		Steps: []Step{
			{Client: "a", Action: ActionDelete, Collection: "recipes", ID: "ghost"},
			{Client: "a", Action: ActionAdd, Collection: "resources",
				Record: map[string]any{"id": "never", "name": "Never", "type": "item"}},
		},
		Assertions: []Assertion{{Type: AssertConverged}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step[0] delete")
	assert.Contains(t, result.Errors[0], "not found")

	_, written := findRecord(result.Snapshots["a"], "resources", "never")
	assert.False(t, written, "steps after a failure must not run")
}

func TestRun_ExpectErrorWithoutError(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected_success",
		Description: "a step marked expect_error that succeeds",
		Clients:     []string{"a"},
		Steps: []Step{{
			Client:      "a",
			Action:      ActionPut,
			Collection:  "resources",
			Record:      map[string]any{"id": "fine", "name": "Fine", "type": "item"},
			ExpectError: true,
		}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected an error")
}

func TestRun_RecordWithUnknownFieldFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "typo_record",
		Description: "record fields are decoded strictly",
		Clients:     []string{"a"},
		Steps: []Step{{
			Client:     "a",
			Action:     ActionPut,
			Collection: "resources",
			Record:     map[string]any{"id": "x", "nmae": "X"},
		}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "decode record")
}
