package harness

import "github.com/roach88/modpack/internal/model"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: no step or assertion failed.
	Pass bool `json:"pass"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Clients lists client names in scenario order.
	Clients []string `json:"clients"`

	// Snapshots holds each client's final in-memory state.
	Snapshots map[string]model.Snapshot `json:"snapshots"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Errors:    []string{},
		Snapshots: make(map[string]model.Snapshot),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
