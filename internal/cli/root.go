package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/store"
)

var (
	errNotFound     = errors.New("record not found")
	errInvalidInput = errors.New("invalid input")
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Schema   string
	Driver   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the docsql CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docsql",
		Short: "docsql - records on SQLite",
		Long: `Store schema-described records in SQLite.

Each store in the schema file becomes a table holding the full JSON record
plus typed columns for its declared indexes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", "", "path to schema file (.yaml, .yml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", store.DriverCGO, "SQLite driver (sqlite3|sqlite)")

	// Add subcommands
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Run executes the CLI with args and returns the process exit code. Errors
// are reported through the selected output format.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	format := opts.Format
	if !slices.Contains(ValidFormats, format) {
		format = "text"
	}
	formatter := &OutputFormatter{Format: format, Writer: stdout, ErrWriter: stderr, Verbose: opts.Verbose}
	_ = formatter.Error(ErrorCode(err), err.Error(), nil)
	return GetExitCode(err)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Diagnostics go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// newLogger writes warnings and errors to w, or everything down to debug
// when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openStore opens the database named by --db for the schema named by
// --schema. Callers close the store.
func openStore(cmd *cobra.Command, opts *RootOptions) (*store.Store, error) {
	if opts.Schema == "" {
		return nil, NewExitError(ExitCommandError, "--schema is required")
	}
	if opts.Database == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}

	cfg := store.DefaultConfig(opts.Database)
	cfg.Driver = opts.Driver
	cfg.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)

	st, err := store.OpenFile(commandContext(cmd), opts.Schema, cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// withStore opens the store, runs fn and closes the store.
func withStore(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, st *store.Store) error) error {
	st, err := openStore(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error closing database: %v\n", closeErr)
		}
	}()
	return fn(commandContext(cmd), st)
}

// parseKey converts a command-line key to the key type of the named store.
func parseKey(cat schema.Catalog, storeName, arg string) (any, error) {
	s, err := cat.Lookup(storeName)
	if err != nil {
		return nil, err
	}
	if s.HasKeyPath() {
		return arg, nil
	}
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: store %q uses integer keys, got %q", errInvalidInput, storeName, arg)
	}
	return n, nil
}
