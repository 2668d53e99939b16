package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/specbuilder/internal/ir"
	"github.com/roach88/specbuilder/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
	Function string
	Clause   string // substring of a rendered clause
	Sessions bool
}

// SpecSummary is one row of list output.
type SpecSummary struct {
	ID       string `json:"id"`
	Function string `json:"function"`
	Session  string `json:"session"`
	Seq      int64  `json:"seq"`
	Args     int    `json:"args"`
	Assumes  int    `json:"assumes"`
	Asserts  int    `json:"asserts"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored method specs",
		Long: `List the specs in a catalog, oldest first.

Examples:
  specbuilder list --db ./specs.db
  specbuilder list --db ./specs.db --function math::abs
  specbuilder list --db ./specs.db --clause "x >= 0"
  specbuilder list --db ./specs.db --sessions`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Function, "function", "", "only specs of this function")
	cmd.Flags().StringVar(&opts.Clause, "clause", "", "only specs with a clause containing this text")
	cmd.Flags().BoolVar(&opts.Sessions, "sessions", false, "list sessions instead of specs")
	cmd.MarkFlagsMutuallyExclusive("function", "clause", "sessions")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	ctx := context.Background()
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

	if opts.Sessions {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		if opts.Format == "json" {
			return formatter.Success(sessions)
		}
		for _, s := range sessions {
			fmt.Fprintln(formatter.Writer, s)
		}
		return nil
	}

	var recs []ir.SpecRecord
	if opts.Clause != "" {
		recs, err = st.FindSpecsByClause(ctx, opts.Clause)
	} else {
		recs, err = st.ListSpecs(ctx, opts.Function)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list specs", err)
	}

	rows := make([]SpecSummary, len(recs))
	for i, rec := range recs {
		rows[i] = SpecSummary{
			ID:       rec.ID,
			Function: rec.Function,
			Session:  rec.Session,
			Seq:      rec.Seq,
			Args:     len(rec.Args),
			Assumes:  len(rec.Assumes),
			Asserts:  len(rec.Asserts),
		}
	}

	if opts.Format == "json" {
		return formatter.Success(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(formatter.Writer, "No specs found.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tFUNCTION\tID\tARGS\tASSUMES\tASSERTS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\n", r.Seq, r.Function, shortID(r.ID), r.Args, r.Assumes, r.Asserts)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
