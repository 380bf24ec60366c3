package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modpack/internal/check"
	"github.com/roach88/modpack/internal/model"
)

// lockedBuffer is a bytes.Buffer safe for the log and notifier
// goroutines to write while a command runs.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newCLI builds a root command wired to in-memory stdio.
func newCLI(stdin string, args ...string) (*cobra.Command, *bytes.Buffer, *lockedBuffer) {
	cmd := NewRootCommand()
	stdout := &bytes.Buffer{}
	stderr := &lockedBuffer{}
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	return cmd, stdout, stderr
}

// runCLI executes args and returns stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd, stdout, _ := newCLI(stdin, args...)
	err := cmd.Execute()
	return stdout.String(), err
}

// testDB returns a fresh database path and a runner bound to it.
func testDB(t *testing.T) func(stdin string, args ...string) (string, error) {
	t.Helper()
	db := filepath.Join(t.TempDir(), "pack.db")
	return func(stdin string, args ...string) (string, error) {
		return runCLI(t, stdin, append([]string{"--db", db}, args...)...)
	}
}

func decodeData[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	return resp.Data
}

func decodeError(t *testing.T, out string) *CLIError {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "error", resp.Status, out)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func resourceIDs(items []model.Resource) []string {
	ids := make([]string, len(items))
	for i, r := range items {
		ids[i] = r.ID
	}
	return ids
}

func TestGet_DefaultsSeeded(t *testing.T) {
	run := testDB(t)

	out, err := run("", "--format", "json", "get", "resources")
	require.NoError(t, err)
	resources := decodeData[[]model.Resource](t, out)
	assert.Equal(t, []string{"iron_ore", "iron_ingot", "energy"}, resourceIDs(resources))

	out, err = run("", "--format", "json", "get", "categories")
	require.NoError(t, err)
	assert.Len(t, decodeData[[]model.Category](t, out), 3)
}

func TestGet_Text(t *testing.T) {
	run := testDB(t)

	out, err := run("", "get", "machines")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "chemical_reactor")
	assert.Contains(t, out, "Reagent Fluid (fluid)")
}

func TestGet_OneRecord(t *testing.T) {
	run := testDB(t)

	out, err := run("", "--format", "json", "get", "machines", "furnace")
	require.NoError(t, err)
	machines := decodeData[[]model.MachineDefinition](t, out)
	require.Len(t, machines, 1)
	assert.Equal(t, "Standard Furnace", machines[0].Name)
}

func TestGet_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantCode string
	}{
		{"unknown id", []string{"get", "resources", "tin"}, ExitFailure, ErrCodeNotFound},
		{"unknown collection", []string{"get", "gadgets"}, ExitCommandError, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := testDB(t)
			out, err := run("", append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Equal(t, tt.wantCode, decodeError(t, out).Code)
		})
	}
}

func TestPut_List(t *testing.T) {
	run := testDB(t)

	out, err := run("", "--format", "json", "put", "resources", "testdata/records/resources.yaml")
	require.NoError(t, err)
	result := decodeData[PutResult](t, out)
	assert.Equal(t, "resources", result.Collection)
	assert.Equal(t, []string{"copper_ore", "copper_ingot"}, result.IDs)

	out, err = run("", "--format", "json", "get", "resources")
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"iron_ore", "iron_ingot", "energy", "copper_ore", "copper_ingot"},
		resourceIDs(decodeData[[]model.Resource](t, out)))
}

func TestPut_StdinReplacesInPlace(t *testing.T) {
	run := testDB(t)

	out, err := run(`{"id":"iron_ore","name":"Raw Iron","type":"item"}`, "put", "resources", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Put 1 record(s) into resources")

	out, err = run("", "--format", "json", "get", "resources")
	require.NoError(t, err)
	resources := decodeData[[]model.Resource](t, out)
	require.Len(t, resources, 3)
	assert.Equal(t, model.Resource{ID: "iron_ore", Name: "Raw Iron", Type: "item"}, resources[0])
}

func TestPut_Errors(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		wantCode string
	}{
		{"plugins", "", []string{"put", "plugins", "-"}, ErrCodeGeneric},
		{"empty input", "", []string{"put", "resources", "-"}, ErrCodeEmpty},
		{"empty list", "[]", []string{"put", "resources", "-"}, ErrCodeEmpty},
		{"missing id", "name: Tin\ntype: item\n", []string{"put", "resources", "-"}, ErrCodeParse},
		{"malformed", "[{", []string{"put", "resources", "-"}, ErrCodeParse},
		{"missing file", "", []string{"put", "resources", "testdata/records/nope.yaml"}, ErrCodeNotFound},
		{"unknown collection", "", []string{"put", "gadgets", "-"}, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := testDB(t)
			out, err := run(tt.stdin, append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Equal(t, tt.wantCode, decodeError(t, out).Code)
		})
	}
}

func TestRm_ReferencedResource(t *testing.T) {
	run := testDB(t)
	_, err := run("", "put", "recipes", "testdata/records/smelt_iron.yaml")
	require.NoError(t, err)

	out, err := run("", "--format", "json", "rm", "resources", "iron_ore")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	cliErr := decodeError(t, out)
	assert.Equal(t, ErrCodeReferenced, cliErr.Code)
	assert.Contains(t, cliErr.Message, "recipe smelt_iron")

	out, err = run("", "--format", "json", "rm", "resources", "iron_ore", "--force")
	require.NoError(t, err)
	removed := decodeData[map[string]any](t, out)
	assert.Equal(t, []any{"recipe smelt_iron"}, removed["dangling"])

	// The recipe now points at a missing resource.
	out, err = run("", "--format", "json", "check")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var resp struct {
		Data CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Issues)
	assert.Equal(t, check.ErrUnknownResource, resp.Data.Issues[0].Code)
}

func TestRm_Recipe(t *testing.T) {
	run := testDB(t)
	_, err := run("", "put", "recipes", "testdata/records/smelt_iron.yaml")
	require.NoError(t, err)

	out, err := run("", "rm", "recipes", "smelt_iron")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Removed recipes smelt_iron")

	out, err = run("", "--format", "json", "rm", "recipes", "smelt_iron")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, ErrCodeNotFound, decodeError(t, out).Code)
}

func TestRm_CategoryInUse(t *testing.T) {
	run := testDB(t)

	out, err := run("", "--format", "json", "rm", "categories", "fluid")
	require.NoError(t, err, "no resource has type fluid")
	assert.Equal(t, "fluid", decodeData[map[string]any](t, out)["id"])

	_, err = run("", "rm", "categories", "item")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "resource iron_ore")
}

func TestNew_Resource(t *testing.T) {
	run := testDB(t)

	out, err := run("", "new", "resource", "Copper Ingot")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Created resource copper_ingot")

	out, err = run("", "--format", "json", "get", "resources", "copper_ingot")
	require.NoError(t, err)
	assert.Equal(t,
		[]model.Resource{{ID: "copper_ingot", Name: "Copper Ingot", Type: "item"}},
		decodeData[[]model.Resource](t, out))

	out, err = run("", "--format", "json", "new", "resource", "copper ingot")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, ErrCodeDuplicate, decodeError(t, out).Code)
}

func TestNew_Category(t *testing.T) {
	run := testDB(t)

	out, err := run("", "--format", "json", "new", "category", "Gases", "--color", "#a3e635", "--icon", "wind")
	require.NoError(t, err)
	assert.Equal(t,
		model.Category{ID: "gases", Name: "Gases", Color: "#a3e635", IconType: model.IconWind},
		decodeData[model.Category](t, out))

	_, err = run("", "new", "category", "Plasma", "--icon", "flame")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run("", "new", "machine", "Press")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestExportImport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	doc := filepath.Join(dir, "pack.yaml")

	_, err := runCLI(t, "", "--db", src, "put", "resources", "testdata/records/resources.yaml")
	require.NoError(t, err)
	_, err = runCLI(t, "", "--db", src, "put", "recipes", "testdata/records/smelt_iron.yaml")
	require.NoError(t, err)

	out, err := runCLI(t, "", "--db", src, "--format", "json", "export", "-o", doc)
	require.NoError(t, err)
	summary := decodeData[map[string]any](t, out)
	assert.Equal(t, "yaml", summary["format"])
	assert.FileExists(t, doc)

	_, err = runCLI(t, "", "--db", dst, "new", "resource", "Tin")
	require.NoError(t, err)

	out, err = runCLI(t, "", "--db", dst, "import", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "(3 categories, 5 resources, 1 recipes, 4 machines, 0 plugins)")

	want, err := runCLI(t, "", "--db", src, "export")
	require.NoError(t, err)
	got, err := runCLI(t, "", "--db", dst, "export")
	require.NoError(t, err)
	assert.JSONEq(t, want, got)
}

func TestImport_PartialDocumentKeepsOtherCollections(t *testing.T) {
	run := testDB(t)
	doc := "categories:\n  - id: metal\n    name: Metals\n    color: \"#999999\"\n    iconType: box\n"

	_, err := run(doc, "import", "-", "--as", "yaml")
	require.NoError(t, err)

	out, err := run("", "--format", "json", "get", "categories")
	require.NoError(t, err)
	categories := decodeData[[]model.Category](t, out)
	require.Len(t, categories, 1)
	assert.Equal(t, "metal", categories[0].ID)

	out, err = run("", "--format", "json", "get", "resources")
	require.NoError(t, err)
	assert.Len(t, decodeData[[]model.Resource](t, out), 3)
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		wantCode string
	}{
		{"empty document", "{}", []string{"import", "-"}, ErrCodeEmpty},
		{"malformed", "{", []string{"import", "-"}, ErrCodeParse},
		{"unknown format", "{}", []string{"import", "-", "--as", "toml"}, ErrCodeGeneric},
		{"missing file", "", []string{"import", "testdata/records/nope.json"}, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := testDB(t)
			out, err := run(tt.stdin, append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Equal(t, tt.wantCode, decodeError(t, out).Code)
		})
	}
}

func TestPlugin_InstallRenderRemove(t *testing.T) {
	run := testDB(t)

	out, err := run("", "plugin", "install", "testdata/plugins/steam_age.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Installed steam_age 1.2.0 (2 machine(s), 3 processor(s))")

	out, err = run("", "--format", "json", "plugin", "ls")
	require.NoError(t, err)
	plugins := decodeData[[]model.Plugin](t, out)
	require.Len(t, plugins, 1)
	assert.Equal(t, "Steam Age", plugins[0].Name)

	_, err = run("", "put", "recipes", "testdata/records/make_steam.json")
	require.NoError(t, err)

	out, err = run("", "render", "make_steam", "--plugin", "steam_age", "--processor", "summary")
	require.NoError(t, err)
	assert.Equal(t, "Make Steam runs in Boiler for 100 ticks\n", out)

	out, err = run("", "render", "make_steam", "--plugin", "steam_age")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "kubejs: event.custom('boiler'"), lines[0])
	assert.Equal(t, "counts: 1 in, 1 out", lines[2])

	out, err = run("", "plugin", "rm", "steam_age")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Removed plugin steam_age")

	// Machines installed by the plugin stay.
	out, err = run("", "--format", "json", "get", "machines", "boiler")
	require.NoError(t, err)
	assert.Len(t, decodeData[[]model.MachineDefinition](t, out), 1)

	out, err = run("", "--format", "json", "render", "make_steam", "--plugin", "steam_age")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, ErrCodeNotFound, decodeError(t, out).Code)
}

func TestPlugin_InstallRejected(t *testing.T) {
	run := testDB(t)

	out, err := run("", "--format", "json", "plugin", "install", "testdata/plugins/broken.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodePlugin, decodeError(t, out).Code)

	out, err = run("", "--format", "json", "plugin", "ls")
	require.NoError(t, err)
	assert.Empty(t, decodeData[[]model.Plugin](t, out))
}

func TestPlugin_RemoveUnknown(t *testing.T) {
	run := testDB(t)

	_, err := run("", "plugin", "rm", "steam_age")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCheck_Clean(t *testing.T) {
	run := testDB(t)

	out, err := run("", "check")
	require.NoError(t, err)
	assert.Equal(t, "✓ No issues found\n", out)

	out, err = run("", "--format", "json", "check")
	require.NoError(t, err)
	assert.True(t, decodeData[CheckResult](t, out).Valid)
}

func TestCheck_TextIssues(t *testing.T) {
	run := testDB(t)
	_, err := run(`{"id":"tin","name":"Tin","type":"metal"}`, "put", "resources", "-")
	require.NoError(t, err)

	out, err := run("", "check")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ 1 issue(s) found")
	assert.Contains(t, out, check.ErrUnknownCategory)
}

func TestConfig_SetAndShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "sync.yaml")

	out, err := runCLI(t, "", "--config", cfgPath, "--format", "json",
		"config", "set", "--enabled", "--url", "http://localhost:8787", "--username", "alice", "--password", "hunter2")
	require.NoError(t, err)
	view := decodeData[ConfigView](t, out)
	assert.True(t, view.Enabled)
	assert.Equal(t, "****", view.Password)

	raw, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "hunter2")

	_, err = runCLI(t, "", "--config", cfgPath, "config", "set", "--interval", "60")
	require.NoError(t, err)

	out, err = runCLI(t, "", "--config", cfgPath, "--format", "json", "config", "show")
	require.NoError(t, err)
	assert.Equal(t, ConfigView{
		Path:         cfgPath,
		Enabled:      true,
		APIURL:       "http://localhost:8787",
		Username:     "alice",
		Password:     "****",
		SyncInterval: 60,
	}, decodeData[ConfigView](t, out))

	out, err = runCLI(t, "", "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "api_url:       http://localhost:8787")
}

func TestConfig_SetNothing(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "sync.yaml")

	_, err := runCLI(t, "", "--config", cfgPath, "config", "set")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NoFileExists(t, cfgPath)
}

func TestConfig_SetRejectsNegativeInterval(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "sync.yaml")

	out, err := runCLI(t, "", "--config", cfgPath, "--format", "json", "config", "set", "--interval=-5")
	require.Error(t, err)
	assert.Equal(t, ErrCodeWriteFailed, decodeError(t, out).Code)
}
