package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/specbuilder/internal/store"
)

// BundleOptions holds flags for the export and import commands.
type BundleOptions struct {
	*RootOptions
	Database string
	Out      string
	Function string
}

// BundleResult reports how many specs moved.
type BundleResult struct {
	Count int    `json:"count"`
	Path  string `json:"path,omitempty"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BundleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored specs as a msgpack bundle",
		Long: `Write stored specs to a bundle file that import can load into
another catalog. Without --out the bundle goes to stdout.

Examples:
  specbuilder export --db ./specs.db --out specs.bundle
  specbuilder export --db ./specs.db --function math::abs --out abs.bundle`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "bundle file to write (default stdout)")
	cmd.Flags().StringVar(&opts.Function, "function", "", "only specs of this function")
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BundleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <bundle>",
		Short: "Import specs from a msgpack bundle",
		Long: `Load a bundle written by export. Every record is checked against
its content-addressed id before anything is written; specs already in
the catalog are skipped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	return cmd
}

func runExport(opts *BundleOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	db, err := opts.database(opts.Database)
	if err != nil {
		return err
	}
	if opts.Out == "" && opts.Format == "json" {
		return NewExitError(ExitCommandError, "--out is required with --format json")
	}

	st, err := store.Open(db)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var w io.Writer = cmd.OutOrStdout()
	if opts.Out != "" {
		f, err := os.Create(opts.Out)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to create bundle", err)
		}
		defer f.Close()
		w = f
	}

	n, err := st.Export(context.Background(), w, opts.Function)
	if err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "export failed", err)
	}
	formatter.VerboseLog("Exported %d spec(s)", n)

	if opts.Out == "" {
		return nil
	}
	if opts.Format == "json" {
		return formatter.Success(BundleResult{Count: n, Path: opts.Out})
	}
	fmt.Fprintf(formatter.Writer, "%s Exported %d spec(s) to %s\n", passMark(), n, opts.Out)
	return nil
}

func runImport(opts *BundleOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	db, err := opts.database(opts.Database)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open bundle", err)
	}
	defer f.Close()

	st, err := store.Open(db)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	n, err := st.Import(context.Background(), f)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "import failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(BundleResult{Count: n, Path: path})
	}
	fmt.Fprintf(formatter.Writer, "%s Imported %d spec(s) from %s\n", passMark(), n, path)
	return nil
}
