package harness

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/specbuilder/internal/compiler"
)

// ScenarioNotFoundError is returned when a contract references a scenario
// file that doesn't exist.
type ScenarioNotFoundError struct {
	Contract     string
	ScenarioPath string
	ResolvedPath string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf(
		"contract %q references scenario file %q which does not exist (resolved to: %s)",
		e.Contract,
		e.ScenarioPath,
		e.ResolvedPath,
	)
}

// ExtractScenarios resolves the scenario files a contract declares,
// relative to contractDir, and checks that they exist.
func ExtractScenarios(c *compiler.Contract, contractDir string) ([]string, error) {
	paths := make([]string, 0, len(c.Scenarios))
	for _, p := range c.Scenarios {
		resolved := p
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(contractDir, resolved)
		}
		if _, err := os.Stat(resolved); os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{
				Contract:     c.Name,
				ScenarioPath: p,
				ResolvedPath: resolved,
			}
		}
		paths = append(paths, resolved)
	}
	return paths, nil
}

// ConformanceResult summarizes running the scenarios contracts declare.
type ConformanceResult struct {
	TotalContracts int                  `json:"total_contracts"`
	TotalScenarios int                  `json:"total_scenarios"`
	Passed         int                  `json:"passed"`
	Failed         int                  `json:"failed"`
	Skipped        int                  `json:"skipped"` // contracts without scenarios
	Failures       []ConformanceFailure `json:"failures,omitempty"`
}

// ConformanceFailure is one failed scenario.
type ConformanceFailure struct {
	Contract     string `json:"contract"`
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

func (r *ConformanceResult) fail(contract, path, msg string) {
	r.Failed++
	r.Failures = append(r.Failures, ConformanceFailure{
		Contract:     contract,
		ScenarioPath: path,
		Error:        msg,
	})
}

// ValidateContracts runs every scenario the contracts declare. A scenario
// that fails to load or run counts as failed.
func ValidateContracts(contracts []*compiler.Contract, contractDir string) *ConformanceResult {
	result := &ConformanceResult{}

	for _, c := range contracts {
		result.TotalContracts++

		paths, err := ExtractScenarios(c, contractDir)
		if err != nil {
			result.fail(c.Name, "", err.Error())
			continue
		}
		if len(paths) == 0 {
			result.Skipped++
			continue
		}

		for _, path := range paths {
			result.TotalScenarios++

			scenario, err := LoadScenario(path)
			if err != nil {
				result.fail(c.Name, path, fmt.Sprintf("failed to load scenario: %v", err))
				continue
			}
			runResult, err := Run(scenario)
			if err != nil {
				result.fail(c.Name, path, fmt.Sprintf("scenario execution failed: %v", err))
				continue
			}
			if !runResult.Pass {
				result.fail(c.Name, path, fmt.Sprintf("scenario assertions failed: %v", runResult.Errors))
				continue
			}
			result.Passed++
		}
	}

	return result
}
