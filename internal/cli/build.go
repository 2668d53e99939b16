package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/specbuilder/internal/backend"
	"github.com/roach88/specbuilder/internal/compiler"
	"github.com/roach88/specbuilder/internal/ir"
	"github.com/roach88/specbuilder/internal/store"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Args       []string // name=value pairs
	Return     string
	Database   string
	MaxObjects int
	Session    string // fixed session id, for reproducible ids
}

// BuildResult is the JSON payload of a successful build.
type BuildResult struct {
	ID       string `json:"id"`
	Function string `json:"function"`
	Session  string `json:"session"`
	Seq      int64  `json:"seq"`
	Pretty   string `json:"pretty"`
	Stored   bool   `json:"stored"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build [contracts-dir] <contract>",
		Short: "Build a method spec from a contract",
		Long: `Replay a contract through the staged builder and print the finished
spec. Concrete values for arguments are given with --arg name=value and
for the return value with --return; anything omitted takes its type's
zero value. With --db the spec is stored in the catalog and the logical
clock resumes after the newest stored spec.

Examples:
  specbuilder build ./contracts abs --arg x=5 --return 5
  specbuilder build ./contracts clamp --arg v=50 --arg lo=0 --arg hi=10 --db ./specs.db
  specbuilder build abs --arg x=5 --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := rootOpts.contractsDir(args[:len(args)-1])
			if err != nil {
				return err
			}
			return runBuild(opts, dir, args[len(args)-1], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "argument value as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Return, "return", "", "return value")
	cmd.Flags().StringVar(&opts.Database, "db", "", "store the spec in this SQLite database")
	cmd.Flags().IntVar(&opts.MaxObjects, "max-objects", 0, "builder budget for the session (default from config, else 4096)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "fixed session id (default: new UUIDv7)")

	return cmd
}

type fixedSession string

func (s fixedSession) Generate() string { return string(s) }

func runBuild(opts *BuildOptions, dir, name string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := LoadContracts(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return loadError(formatter, loadErrors)
	}
	c, ok := loadResult.Find(name)
	if !ok {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("contract %q not found in %s", name, dir), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("contract %q not found", name))
	}
	if errs := compiler.Validate(c); len(errs) > 0 {
		return outputValidationErrors(formatter, 1, errs)
	}

	values, err := buildValues(c, opts.Args, opts.Return, flagChanged(cmd, "return"))
	if err != nil {
		_ = formatter.Error(ErrCodeBadArgument, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid values", err)
	}

	var st *store.Store
	clock := backend.NewClock()
	if db := opts.Database; db != "" || opts.Config.DB != "" {
		if db == "" {
			db = opts.Config.DB
		}
		st, err = store.Open(db)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		last, err := st.GetLastSeq(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read catalog", err)
		}
		clock = backend.NewClockAt(last)
		formatter.VerboseLog("Resuming clock after seq %d", last)
	}

	arena := backend.NewArena(opts.arenaOptions(clock, cmd.ErrOrStderr())...)
	spec, err := arena.BuildContract(c, values)
	if _, resolved := spec.Resolve(arena); !resolved && err != nil {
		_ = formatter.Error(ErrCodeBadArgument, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid values", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "build reported diagnostics", err)
	}
	rec, ok := arena.Record(spec)
	if !ok {
		_ = formatter.Error(ErrCodeGeneric, "builder produced no spec", nil)
		return NewExitError(ExitFailure, "builder produced no spec")
	}

	result := BuildResult{
		ID:       rec.ID,
		Function: rec.Function,
		Session:  rec.Session,
		Seq:      rec.Seq,
		Pretty:   backend.Render(rec),
	}
	if st != nil {
		if err := st.WriteSpec(ctx, rec); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to store spec", err)
		}
		result.Stored = true
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	w := formatter.Writer
	fmt.Fprintln(w, result.Pretty)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "id: %s\n", result.ID)
	if result.Stored {
		fmt.Fprintf(w, "%s stored (seq %d)\n", passMark(), result.Seq)
	}
	return nil
}

func (o *BuildOptions) arenaOptions(clock backend.Sequencer, logTo io.Writer) []backend.ArenaOption {
	arenaOpts := []backend.ArenaOption{
		backend.WithClock(clock),
		backend.WithLogger(o.newLogger(logTo)),
	}
	switch {
	case o.MaxObjects > 0:
		arenaOpts = append(arenaOpts, backend.WithMaxObjects(o.MaxObjects))
	case o.Config.MaxObjects > 0:
		arenaOpts = append(arenaOpts, backend.WithMaxObjects(o.Config.MaxObjects))
	}
	if o.Session != "" {
		arenaOpts = append(arenaOpts, backend.WithSession(fixedSession(o.Session)))
	}
	return arenaOpts
}

// flagChanged reports whether the named flag was set on cmd.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// buildValues turns name=value pairs and the return value into the map
// BuildContract takes.
func buildValues(c *compiler.Contract, pairs []string, ret string, hasReturn bool) (map[string]string, error) {
	values := make(map[string]string, len(pairs)+1)
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--arg %q: expected name=value", pair)
		}
		if _, dup := values[name]; dup {
			return nil, fmt.Errorf("--arg %s given twice", name)
		}
		if c.Return != nil && name == c.Return.Name {
			return nil, fmt.Errorf("--arg %s names the return value; use --return", name)
		}
		values[name] = value
	}
	if hasReturn {
		if c.Return == nil {
			return nil, fmt.Errorf("contract %s has no return value", c.Name)
		}
		values[c.Return.Name] = ret
	}
	return values, nil
}

// formatValue renders a placeholder snapshot for text output.
func formatValue(v ir.Value) string {
	if v == nil {
		return "<none>"
	}
	return ir.Text(v)
}
