package cli

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// checkTimeout bounds how long the backend may take to report its version.
const checkTimeout = 10 * time.Second

// CheckOptions holds flags for the check-backend command.
type CheckOptions struct {
	*RootOptions
	Command string
}

// CheckResult reports whether the backend tool could be run.
type CheckResult struct {
	Command string `json:"command"`
	Found   bool   `json:"found"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewCheckBackendCommand creates the check-backend command.
func NewCheckBackendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check-backend",
		Short: "Check that the symbolic execution tool is installed",
		Long: `Run the backend tool with --version and report what it prints.

The command defaults to backend_command in specbuilder.toml, then crux-mir.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckBackend(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Command, "command", "", "backend executable (default from config or crux-mir)")
	return cmd
}

func (o *CheckOptions) backendCommand() string {
	switch {
	case o.Command != "":
		return o.Command
	case o.Config.BackendCommand != "":
		return o.Config.BackendCommand
	default:
		return DefaultBackendCommand
	}
}

func runCheckBackend(opts *CheckOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	result := CheckBackend(ctx, opts.backendCommand())
	formatter.VerboseLog("Checked %s: found=%t", result.Command, result.Found)

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if result.Found {
		fmt.Fprintf(formatter.Writer, "%s %s: %s\n", passMark(), result.Command, result.Version)
	} else {
		fmt.Fprintf(formatter.Writer, "%s %s\n", failMark(), result.Error)
	}

	if !result.Found {
		return NewExitError(ExitFailure, result.Error)
	}
	return nil
}

// CheckBackend runs name --version and reports the first line of output.
func CheckBackend(ctx context.Context, name string) CheckResult {
	result := CheckResult{Command: name}

	out, err := exec.CommandContext(ctx, name, "--version").CombinedOutput()
	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound):
		result.Error = fmt.Sprintf("%s could not be found; install it or set backend_command", name)
		return result
	case errors.As(err, &exitErr):
		result.Error = fmt.Sprintf("%s --version failed: %v: %s", name, err, firstLine(out))
		return result
	case err != nil:
		result.Error = fmt.Sprintf("%s could not be run: %v", name, err)
		return result
	}

	result.Found = true
	result.Version = firstLine(out)
	return result
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
