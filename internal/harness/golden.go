package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/modpack/internal/model"
)

// Summary renders the final state of every client as stable text: one
// line per collection listing ids in collection order. Summaries are
// what golden files hold.
func Summary(name string, result *Result) []byte {
	var buf bytes.Buffer

	converged, _ := isConverged(result)
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	fmt.Fprintf(&buf, "converged: %t\n", converged)

	for _, client := range result.Clients {
		snap := result.Snapshots[client]
		fmt.Fprintf(&buf, "client %s\n", client)
		for _, coll := range model.AllCollections {
			ids := recordIDs(snap, coll)
			if len(ids) == 0 {
				fmt.Fprintf(&buf, "  %s:\n", coll)
				continue
			}
			fmt.Fprintf(&buf, "  %s: %s\n", coll, strings.Join(ids, " "))
		}
	}

	return buf.Bytes()
}

// RunWithGolden executes a scenario and compares its summary against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Failed steps or assertions
// and golden mismatches fail t.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result's summary against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Summary(scenarioName, result))

	return nil
}
