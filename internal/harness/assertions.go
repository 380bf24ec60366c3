package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/modpack/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Client   string // Client the assertion inspected, if any
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	if e.Client != "" {
		fmt.Fprintf(&buf, "Assertion failed: %s (client %s)\n", e.Type, e.Client)
	} else {
		fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	}
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	return buf.String()
}

// evaluateAssertions evaluates all assertions against the captured
// snapshots. Returns a slice of error messages for failed assertions.
func (h *Harness) evaluateAssertions(ctx context.Context, assertions []Assertion, result *Result) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertHas:
			err = assertHas(result.Snapshots[a.Client], a)
		case AssertMissing:
			err = assertMissing(result.Snapshots[a.Client], a)
		case AssertCount:
			err = assertCount(result.Snapshots[a.Client], a)
		case AssertConverged:
			err = assertConverged(result, true)
		case AssertDiverged:
			err = assertConverged(result, false)
		case AssertPersisted:
			err = h.assertPersisted(ctx, result.Snapshots[a.Client], a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}

		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}

	return errors
}

// assertHas checks that a record exists and carries every expected field.
func assertHas(snap model.Snapshot, a Assertion) error {
	coll, _ := model.ParseCollection(a.Collection)
	rec, ok := findRecord(snap, coll, a.ID)
	if !ok {
		return &AssertionError{
			Type:     AssertHas,
			Client:   a.Client,
			Expected: fmt.Sprintf("%s %q present", coll, a.ID),
			Actual:   fmt.Sprintf("not found among %v", recordIDs(snap, coll)),
		}
	}
	if len(a.Expect) == 0 {
		return nil
	}

	actual, err := toFields(rec)
	if err != nil {
		return err
	}
	expected, err := toFields(a.Expect)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		got, exists := actual[k]
		if !exists || !reflect.DeepEqual(got, expected[k]) {
			return &AssertionError{
				Type:     AssertHas,
				Client:   a.Client,
				Expected: fmt.Sprintf("%s %q field %s = %v", coll, a.ID, k, expected[k]),
				Actual:   fmt.Sprintf("%v", got),
			}
		}
	}
	return nil
}

func assertMissing(snap model.Snapshot, a Assertion) error {
	coll, _ := model.ParseCollection(a.Collection)
	if _, ok := findRecord(snap, coll, a.ID); ok {
		return &AssertionError{
			Type:     AssertMissing,
			Client:   a.Client,
			Expected: fmt.Sprintf("%s %q absent", coll, a.ID),
			Actual:   "present",
		}
	}
	return nil
}

func assertCount(snap model.Snapshot, a Assertion) error {
	coll, _ := model.ParseCollection(a.Collection)
	if got := snap.Counts()[coll]; got != a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Client:   a.Client,
			Expected: fmt.Sprintf("%d %s", a.Count, coll),
			Actual:   fmt.Sprintf("%d %v", got, recordIDs(snap, coll)),
		}
	}
	return nil
}

// assertConverged compares every client's snapshot with the first
// client's. want selects converged (true) or diverged (false).
func assertConverged(result *Result, want bool) error {
	converged, odd := isConverged(result)
	if converged == want {
		return nil
	}
	if want {
		return &AssertionError{
			Type:     AssertConverged,
			Expected: "all clients hold identical snapshots",
			Actual:   fmt.Sprintf("%s differs from %s", odd, result.Clients[0]),
		}
	}
	return &AssertionError{
		Type:     AssertDiverged,
		Expected: "at least two clients differ",
		Actual:   "all clients hold identical snapshots",
	}
}

// isConverged reports whether all snapshots match, and otherwise names
// the first client that differs from the first.
func isConverged(result *Result) (bool, string) {
	if len(result.Clients) == 0 {
		return true, ""
	}
	first := canonical(result.Snapshots[result.Clients[0]])
	for _, name := range result.Clients[1:] {
		if canonical(result.Snapshots[name]) != first {
			return false, name
		}
	}
	return true, ""
}

// assertPersisted checks that the client's store reloads to the snapshot
// it holds in memory.
func (h *Harness) assertPersisted(ctx context.Context, snap model.Snapshot, a Assertion) error {
	reloaded, err := h.clients[a.Client].reload(ctx)
	if err != nil {
		return err
	}
	if got, want := canonical(reloaded), canonical(snap); got != want {
		return &AssertionError{
			Type:     AssertPersisted,
			Client:   a.Client,
			Expected: want,
			Actual:   got,
		}
	}
	return nil
}

// canonical renders a snapshot as JSON for comparison. Plugin handlers
// are not serialized; plugins compare by their evaluated declarations.
func canonical(snap model.Snapshot) string {
	data, err := json.Marshal(snap.Normalize())
	if err != nil {
		return fmt.Sprintf("<unencodable: %v>", err)
	}
	return string(data)
}

// toFields converts a record or YAML mapping to its JSON field form so
// that numbers and nested values compare uniformly.
func toFields(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return out, nil
}

func findRecord(snap model.Snapshot, coll model.Collection, id string) (any, bool) {
	switch coll {
	case model.Categories:
		return find(snap.Categories, id)
	case model.Resources:
		return find(snap.Resources, id)
	case model.Recipes:
		return find(snap.Recipes, id)
	case model.Machines:
		return find(snap.Machines, id)
	case model.Plugins:
		return find(snap.Plugins, id)
	}
	return nil, false
}

func find[T model.Record](items []T, id string) (any, bool) {
	for _, item := range items {
		if item.Key() == id {
			return item, true
		}
	}
	return nil, false
}

// recordIDs lists ids in collection order.
func recordIDs(snap model.Snapshot, coll model.Collection) []string {
	switch coll {
	case model.Categories:
		return keys(snap.Categories)
	case model.Resources:
		return keys(snap.Resources)
	case model.Recipes:
		return keys(snap.Recipes)
	case model.Machines:
		return keys(snap.Machines)
	case model.Plugins:
		return keys(snap.Plugins)
	}
	return nil
}

func keys[T model.Record](items []T) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.Key()
	}
	return ids
}
