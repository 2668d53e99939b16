package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/specbuilder/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Contracts int                        `json:"contracts"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [contracts-dir]",
		Short: "Validate method contracts",
		Long: `Compile and check every contract in a CUE directory.

Reports structural problems (missing names or types, malformed terms)
and semantic ones (non-scalar types, duplicate parameters, clauses that
reference unknown variables, preconditions that mention the return
value). The directory defaults to contracts in specbuilder.toml.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := rootOpts.contractsDir(args)
			if err != nil {
				return err
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}
	return cmd
}

// contractsDir resolves the optional directory argument against the
// config file.
func (o *RootOptions) contractsDir(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if o.Config.Contracts != "" {
		return o.Config.Contracts, nil
	}
	return "", NewExitError(ExitCommandError, "contracts directory is required (argument or contracts in specbuilder.toml)")
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := LoadContracts(dir, LoadModeCollectAll)
	if loadResult == nil {
		return loadError(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		ve := compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			ve.Code = loadErr.Code
			ve.Message = loadErr.Message
			ve.Line = lineOf(loadErr.Pos)
		}
		validationErrors = append(validationErrors, ve)
	}
	for _, c := range loadResult.Contracts {
		formatter.VerboseLog("Validating contract: %s", c.Name)
		for _, ve := range compiler.Validate(c) {
			ve.Field = fmt.Sprintf("contract.%s.%s", c.Name, ve.Field)
			validationErrors = append(validationErrors, ve)
		}
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, len(loadResult.Contracts), validationErrors)
	}
	return outputValidateSuccess(formatter, len(loadResult.Contracts))
}

func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, contracts int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Contracts: contracts})
	}
	fmt.Fprintf(formatter.Writer, "%s All %d contract(s) valid\n", passMark(), contracts)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, contracts int, errs []compiler.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Contracts: contracts, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintf(formatter.Writer, "%s Validation failed\n\n", failMark())
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return failure
}
