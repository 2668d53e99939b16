package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wrongCountScenario = `name: wrong_count
description: asserts the wrong number of arguments
specs:
  - math.cue
contract: abs
assertions:
  - type: arg_count
    count: 3
`

const stepScenario = `name: steps
description: scripted protocol with one named argument
steps:
  - {op: add_arg, type: int32, value: 1, name: n}
  - {op: assume, term: {op: gt, args: [n, 0]}}
  - op: gather_assumes
  - {op: set_return, type: int32, value: 2}
  - op: gather_asserts
  - op: finish
assertions:
  - type: pretty_contains
    text: "requires n > 0"
`

// writeScenarioDir lays out a scenarios directory whose spec paths
// resolve against the contracts directory.
func writeScenarioDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range scenarios {
		writeFile(t, dir, name, content)
	}
	return dir
}

func TestTestCommandTooManyArgs(t *testing.T) {
	_, _, err := execute(t, "test", "a", "b", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 2 arg")
}

func TestTestCommandNonExistentContractsDir(t *testing.T) {
	_, _, err := execute(t, "test", "/nonexistent/contracts")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "contracts directory not found")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	dir := writeContracts(t)

	_, _, err := execute(t, "test", dir, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandBadJobs(t *testing.T) {
	dir := writeContracts(t)

	_, _, err := execute(t, "test", dir, "--jobs", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--jobs must be at least 1")
}

func TestTestCommandDeclaredScenarios(t *testing.T) {
	dir := writeContracts(t)

	out, _, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ abs")
	assert.Contains(t, out, "Results: 1 passed, 0 failed, 1 total")
}

func TestTestCommandMissingDeclaredScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "math.cue", mathContracts)

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "which does not exist")
}

func TestTestCommandScenarioDirectory(t *testing.T) {
	contracts := writeContracts(t)
	scenarios := writeScenarioDir(t, map[string]string{
		"steps.yaml":       stepScenario,
		"wrong_count.yaml": wrongCountScenario,
		"notes.txt":        "ignored",
	})

	out, _, err := execute(t, "test", contracts, scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ steps")
	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "Assertion failed: arg_count")
	assert.Contains(t, out, "Results: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	contracts := writeContracts(t)
	scenarios := writeScenarioDir(t, map[string]string{
		"steps.yaml":       stepScenario,
		"wrong_count.yaml": wrongCountScenario,
	})

	out, _, err := execute(t, "test", contracts, scenarios, "--filter", "step*")
	require.NoError(t, err)
	assert.Contains(t, out, "Results: 1 passed, 0 failed, 1 total")

	nested := writeScenarioDir(t, map[string]string{
		"unit/steps.yaml":       stepScenario,
		"slow/wrong_count.yaml": wrongCountScenario,
	})
	out, _, err = execute(t, "test", contracts, nested, "--filter", "unit/**")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ steps")
	assert.Contains(t, out, "Results: 1 passed, 0 failed, 1 total")

	out, _, err = execute(t, "test", contracts, scenarios, "--filter", "nothing*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	_, _, err = execute(t, "test", contracts, scenarios, "--filter", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestTestCommandJSON(t *testing.T) {
	contracts := writeContracts(t)
	scenarios := writeScenarioDir(t, map[string]string{
		"steps.yaml":       stepScenario,
		"wrong_count.yaml": wrongCountScenario,
	})

	out, _, err := execute(t, "--format", "json", "test", contracts, scenarios, "--jobs", "1")
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Failed)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "1 scenario(s) failed", resp.Error.Message)

	// Results keep discovery order regardless of scheduling.
	require.Len(t, resp.Data.Scenarios, 2)
	assert.Equal(t, "steps", resp.Data.Scenarios[0].Name)
	assert.Equal(t, "wrong_count", resp.Data.Scenarios[1].Name)
}

func TestTestCommandGoldenFiles(t *testing.T) {
	dir := writeContracts(t)
	goldenPath := filepath.Join(dir, "scenarios", "golden", "abs.golden")

	out, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ abs (golden updated)")

	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Equal(t, absGolden, string(data))

	_, _, err = execute(t, "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte("stale\n"), 0o644))
	out, _, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "snapshot does not match golden file")
}

func TestRunScenariosKeepsJobOrder(t *testing.T) {
	contracts := writeContracts(t)
	scenarios := writeScenarioDir(t, map[string]string{
		"steps.yaml":       stepScenario,
		"wrong_count.yaml": wrongCountScenario,
	})
	jobs := []scenarioJob{
		{path: filepath.Join(scenarios, "wrong_count.yaml"), base: contracts},
		{path: filepath.Join(scenarios, "steps.yaml"), base: contracts},
		{path: filepath.Join(contracts, "scenarios", "abs.yaml"), base: filepath.Join(contracts, "scenarios"), contract: "abs"},
	}

	results, err := runScenarios(context.Background(), jobs, 2, false)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "wrong_count", results[0].Name)
	assert.False(t, results[0].Pass)
	assert.Equal(t, "steps", results[1].Name)
	assert.True(t, results[1].Pass, results[1].Errors)
	assert.Equal(t, "abs", results[2].Contract)
	assert.True(t, results[2].Pass, results[2].Errors)
}

func TestRunScenariosCanceled(t *testing.T) {
	dir := writeContracts(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(dir, "scenarios", "abs.yaml")
	results, err := runScenarios(ctx, []scenarioJob{{path: path, base: filepath.Dir(path)}}, 1, false)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestGoldenFilePath(t *testing.T) {
	got := goldenFilePath(filepath.Join("a", "scenarios", "abs.yaml"))
	assert.Equal(t, filepath.Join("a", "scenarios", "golden", "abs.golden"), got)
}
