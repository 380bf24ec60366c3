package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/modpack/internal/model"
)

// Default timings when a scenario leaves them unset.
const (
	DefaultSettleDelay = 50 * time.Millisecond
	DefaultTimeout     = 5 * time.Second
)

// Scenario defines a multi-client sync scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clients names every client. All start online with the built-in
	// defaults seeded.
	Clients []string `yaml:"clients"`

	// SettleDelay is the echo guard window of every client.
	SettleDelay time.Duration `yaml:"settle_delay,omitempty"`

	// Timeout bounds each wait for delivery, settling or connection.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one action performed by one client.
type Step struct {
	Client string `yaml:"client,omitempty"`
	Action string `yaml:"action"`

	// Collection and ID address a record (add, put, delete).
	Collection string         `yaml:"collection,omitempty"`
	ID         string         `yaml:"id,omitempty"`
	Record     map[string]any `yaml:"record,omitempty"`

	// Script is an inline plugin script; ScriptFile is resolved relative
	// to the scenario file and read at load time.
	Script     string `yaml:"script,omitempty"`
	ScriptFile string `yaml:"script_file,omitempty"`

	// Snapshot is the document applied by import.
	Snapshot map[string]any `yaml:"snapshot,omitempty"`

	// ExpectError marks a step that must fail.
	ExpectError bool `yaml:"expect_error,omitempty"`

	// NoSettle skips waiting for echo guards after delivery, leaving the
	// receivers inside their suppression window for the next step.
	NoSettle bool `yaml:"no_settle,omitempty"`
}

// Step action constants.
const (
	ActionAdd        = "add"
	ActionPut        = "put"
	ActionDelete     = "delete"
	ActionInstall    = "install"
	ActionImport     = "import"
	ActionForceSync  = "force_sync"
	ActionConnect    = "connect"
	ActionDisconnect = "disconnect"
	ActionSettle     = "settle"
)

// Assertion validates final client state.
type Assertion struct {
	// Type is one of has, missing, count, converged, diverged, persisted.
	Type string `yaml:"type"`

	Client     string `yaml:"client,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	ID         string `yaml:"id,omitempty"`

	// Expect holds field values the record must carry (has only).
	// Subset match: only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected collection size (count only).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertHas       = "has"
	AssertMissing   = "missing"
	AssertCount     = "count"
	AssertConverged = "converged"
	AssertDiverged  = "diverged"
	AssertPersisted = "persisted"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Script files are read relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i := range scenario.Steps {
		step := &scenario.Steps[i]
		if step.ScriptFile == "" {
			continue
		}
		scriptPath := step.ScriptFile
		if !filepath.IsAbs(scriptPath) {
			scriptPath = filepath.Join(base, scriptPath)
		}
		script, err := os.ReadFile(scriptPath)
		if err != nil {
			return nil, fmt.Errorf("step[%d]: read script: %w", i, err)
		}
		step.Script = string(script)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Clients) == 0 {
		return fmt.Errorf("clients list is required and must be non-empty")
	}

	clients := make(map[string]bool, len(s.Clients))
	for i, name := range s.Clients {
		if name == "" {
			return fmt.Errorf("clients[%d]: name is required", i)
		}
		if clients[name] {
			return fmt.Errorf("clients[%d]: duplicate client %q", i, name)
		}
		clients[name] = true
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(step, clients); err != nil {
			return fmt.Errorf("step[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, clients); err != nil {
			return fmt.Errorf("assertion[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(step Step, clients map[string]bool) error {
	if step.Action == ActionSettle {
		if step.Client != "" {
			return fmt.Errorf("settle takes no client")
		}
		return nil
	}

	if !clients[step.Client] {
		return fmt.Errorf("unknown client %q", step.Client)
	}

	switch step.Action {
	case ActionAdd, ActionPut:
		if _, err := recordCollection(step.Collection); err != nil {
			return err
		}
		if len(step.Record) == 0 {
			return fmt.Errorf("%s requires a record", step.Action)
		}
	case ActionDelete:
		if _, ok := model.ParseCollection(step.Collection); !ok {
			return fmt.Errorf("unknown collection %q", step.Collection)
		}
		if step.ID == "" {
			return fmt.Errorf("delete requires an id")
		}
	case ActionInstall:
		if step.Script == "" {
			return fmt.Errorf("install requires script or script_file")
		}
	case ActionImport:
		if len(step.Snapshot) == 0 {
			return fmt.Errorf("import requires a snapshot")
		}
	case ActionForceSync, ActionConnect, ActionDisconnect:
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

func validateAssertion(a Assertion, clients map[string]bool) error {
	switch a.Type {
	case AssertConverged, AssertDiverged:
		return nil
	case AssertHas, AssertMissing, AssertCount, AssertPersisted:
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}

	if !clients[a.Client] {
		return fmt.Errorf("unknown client %q", a.Client)
	}
	if a.Type == AssertPersisted {
		return nil
	}
	if _, ok := model.ParseCollection(a.Collection); !ok {
		return fmt.Errorf("unknown collection %q", a.Collection)
	}
	if a.Type != AssertCount && a.ID == "" {
		return fmt.Errorf("%s requires an id", a.Type)
	}
	return nil
}

// recordCollection accepts the collections a step can write records to.
// Plugins are written through install.
func recordCollection(name string) (model.Collection, error) {
	c, ok := model.ParseCollection(name)
	if !ok {
		return "", fmt.Errorf("unknown collection %q", name)
	}
	if c == model.Plugins {
		return "", fmt.Errorf("plugins are written with install")
	}
	return c, nil
}
