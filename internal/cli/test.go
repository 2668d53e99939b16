package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/specbuilder/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
	Jobs   int
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Contract string   `json:"contract,omitempty"`
	Pass     bool     `json:"pass"`
	Updated  bool     `json:"updated,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// scenarioJob is one scenario file to run. base is the directory spec
// paths resolve against.
type scenarioJob struct {
	path     string
	base     string
	contract string
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test [contracts-dir] [scenarios-dir]",
		Short: "Run conformance scenarios",
		Long: `Run scenario files through the builder protocol and check their
assertions and golden snapshots.

With only a contracts directory, runs the scenarios each contract lists
in its scenarios field. With a scenarios directory too, runs every YAML
file under it and resolves spec paths against the contracts directory.
Golden snapshots live in a golden/ directory next to each scenario.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  specbuilder test ./contracts
  specbuilder test ./contracts ./scenarios --filter "clamp*"
  specbuilder test ./contracts ./scenarios --update
  specbuilder test ./contracts --format json`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := rootOpts.contractsDir(args)
			if err != nil {
				return err
			}
			scenariosDir := ""
			if len(args) == 2 {
				scenariosDir = args[1]
			}
			return runTests(opts, dir, scenariosDir, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", runtime.NumCPU(), "scenarios to run in parallel")

	return cmd
}

func runTests(opts *TestOptions, contractsDir, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if opts.Jobs < 1 {
		return NewExitError(ExitCommandError, "--jobs must be at least 1")
	}
	if _, err := os.Stat(contractsDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("contracts directory not found: %s", contractsDir))
	}

	var (
		jobs []scenarioJob
		err  error
	)
	if scenariosDir != "" {
		if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
			return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
		}
		jobs, err = findScenarioFiles(scenariosDir, contractsDir, opts.Filter)
	} else {
		jobs, err = declaredScenarios(formatter, contractsDir, opts.Filter)
	}
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		if opts.Format == "json" {
			return formatter.Success(TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	results, err := runScenarios(cmd.Context(), jobs, opts.Jobs, opts.Update)
	if err != nil {
		return WrapExitError(ExitFailure, "test run interrupted", err)
	}

	result := TestResult{Scenarios: results, Total: len(results)}
	for _, r := range results {
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// runScenarios runs up to limit jobs at a time. Results keep the order of
// jobs. Once ctx is done no further scenario starts and its error is
// returned.
func runScenarios(ctx context.Context, jobs []scenarioJob, limit int, update bool) ([]ScenarioResult, error) {
	results := make([]ScenarioResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(limit, len(jobs)))
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = runScenario(job, update)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// findScenarioFiles finds all YAML scenario files under dir.
func findScenarioFiles(dir, base, filter string) ([]scenarioJob, error) {
	var jobs []scenarioJob
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		ok, err := matchFilter(filter, dir, path)
		if err != nil || !ok {
			return err
		}
		jobs = append(jobs, scenarioJob{path: path, base: base})
		return nil
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	return jobs, nil
}

// declaredScenarios collects the scenario files listed by the contracts
// in dir. Spec paths resolve against each scenario file.
func declaredScenarios(formatter *OutputFormatter, dir, filter string) ([]scenarioJob, error) {
	loadResult, loadErrors := LoadContracts(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, loadError(formatter, loadErrors)
	}

	var jobs []scenarioJob
	for _, c := range loadResult.Contracts {
		paths, err := harness.ExtractScenarios(c, dir)
		if err != nil {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return nil, WrapExitError(ExitCommandError, "missing scenario", err)
		}
		for _, p := range paths {
			ok, err := matchFilter(filter, dir, p)
			if err != nil {
				return nil, err
			}
			if ok {
				jobs = append(jobs, scenarioJob{path: p, base: filepath.Dir(p), contract: c.Name})
			}
		}
	}
	return jobs, nil
}

// matchFilter matches filter against the scenario's file name without
// its extension, or against its slash path under root when filter
// contains a slash.
func matchFilter(filter, root, path string) (bool, error) {
	if filter == "" {
		return true, nil
	}
	if !doublestar.ValidatePattern(filter) {
		return false, NewExitError(ExitCommandError, fmt.Sprintf("invalid filter pattern: %q", filter))
	}
	name := filepath.Base(path)
	if strings.Contains(filter, "/") {
		if rel, err := filepath.Rel(root, path); err == nil {
			name = filepath.ToSlash(rel)
		}
	}
	return doublestar.Match(filter, strings.TrimSuffix(name, filepath.Ext(name)))
}

// runScenario executes a single scenario and checks its golden snapshot.
func runScenario(job scenarioJob, update bool) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(job.path), Path: job.path, Contract: job.contract}

	scenario, err := harness.LoadScenarioWithBasePath(job.path, job.base)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}

	snapshot := harness.Snapshot(scenario, result)
	goldenPath := goldenFilePath(job.path)
	if update {
		if err := writeGolden(goldenPath, snapshot); err != nil {
			sr.Errors = []string{fmt.Sprintf("failed to update golden file: %v", err)}
			return sr
		}
		sr.Updated = true
	} else if want, err := os.ReadFile(goldenPath); err == nil {
		if !bytes.Equal(want, snapshot) {
			sr.Errors = append(sr.Errors, "snapshot does not match golden file (run with --update to regenerate)")
		}
	} else if !os.IsNotExist(err) {
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
	}

	sr.Errors = append(sr.Errors, result.Errors...)
	sr.Pass = len(sr.Errors) == 0
	return sr
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	if result.Failed == 0 {
		return formatter.Success(result)
	}
	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	response := CLIResponse{
		Status: "error",
		Data:   result,
		Error:  &CLIError{Code: ErrCodeGeneric, Message: msg},
	}
	if err := json.NewEncoder(formatter.Writer).Encode(response); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

// outputTestText outputs the test result as human-readable text.
func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer
	for _, r := range result.Scenarios {
		switch {
		case r.Pass && r.Updated:
			fmt.Fprintf(w, "%s %s (golden updated)\n", passMark(), r.Name)
		case r.Pass:
			fmt.Fprintf(w, "%s %s\n", passMark(), r.Name)
		default:
			fmt.Fprintf(w, "%s %s\n", failMark(), r.Name)
			for _, e := range r.Errors {
				fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Results: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}
