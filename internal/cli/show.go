package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/specbuilder/internal/backend"
	"github.com/roach88/specbuilder/internal/ir"
	"github.com/roach88/specbuilder/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// ShowResult is the JSON payload of show.
type ShowResult struct {
	Record ir.SpecRecord `json:"record"`
	Pretty string        `json:"pretty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <spec-id>",
		Short: "Show a stored method spec",
		Long: `Print a stored spec with its placeholders and clauses.

Examples:
  specbuilder show --db ./specs.db 3f2a...
  specbuilder show --db ./specs.db 3f2a... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	db, err := opts.database(opts.Database)
	if err != nil {
		return err
	}

	st, err := store.Open(db)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rec, err := st.ReadSpec(context.Background(), id)
	if errors.Is(err, sql.ErrNoRows) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("spec %s not found", id), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("spec %s not found", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read spec", err)
	}

	result := ShowResult{Record: rec, Pretty: backend.Render(rec)}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	writeRecord(formatter.Writer, result)
	return nil
}

func writeRecord(w io.Writer, r ShowResult) {
	rec := r.Record
	fmt.Fprintln(w, r.Pretty)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "id:       %s\n", rec.ID)
	fmt.Fprintf(w, "session:  %s\n", rec.Session)
	fmt.Fprintf(w, "seq:      %d\n", rec.Seq)
	fmt.Fprintf(w, "ir:       %s\n", rec.IRVersion)
	if len(rec.Args) > 0 {
		fmt.Fprintln(w, "args:")
		for _, p := range rec.Args {
			fmt.Fprintf(w, "  [%d] %s: %s = %s (seq %d)\n", p.Slot, p.Name, p.Type, formatValue(p.Value), p.Seq)
		}
	}
	if p := rec.Return; p != nil {
		fmt.Fprintf(w, "return:   %s: %s = %s (seq %d)\n", p.Name, p.Type, formatValue(p.Value), p.Seq)
	}
}
