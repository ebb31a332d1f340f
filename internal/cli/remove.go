package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/store"
)

// RemoveOptions holds flags for the remove command.
type RemoveOptions struct {
	*RootOptions
	All bool
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemoveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "remove <store> [key]",
		Short: "Delete a record, or drop a store's table",
		Long: `Delete the record under key, or drop the store's table when no key is
given. --all drops every table. Dropping resets the recorded schema version,
so the next command re-creates the tables.

Example:
  docsql remove note a --db notes.db --schema notes.yaml
  docsql remove note --db notes.db --schema notes.yaml
  docsql remove --all --db notes.db --schema notes.yaml`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "drop every table")

	return cmd
}

func runRemove(opts *RemoveOptions, args []string, cmd *cobra.Command) error {
	if opts.All && len(args) > 0 {
		return NewExitError(ExitCommandError, "--all takes no arguments")
	}
	if !opts.All && len(args) == 0 {
		return NewExitError(ExitCommandError, "remove needs a store, or --all")
	}

	formatter := newFormatter(opts.RootOptions, cmd)
	return withStore(cmd, opts.RootOptions, func(ctx context.Context, st *store.Store) error {
		switch {
		case opts.All:
			if err := st.DropAll(ctx); err != nil {
				return WrapExitError(ExitFailure, "remove failed", err)
			}
			return formatter.Success("dropped all stores")
		case len(args) == 1:
			if err := st.Remove(ctx, args[0], nil); err != nil {
				return WrapExitError(ExitFailure, "remove failed", err)
			}
			return formatter.Success(fmt.Sprintf("dropped %s", args[0]))
		default:
			key, err := parseKey(st.Catalog(), args[0], args[1])
			if err != nil {
				return WrapExitError(ExitFailure, "remove failed", err)
			}
			if err := st.Remove(ctx, args[0], key); err != nil {
				return WrapExitError(ExitFailure, "remove failed", err)
			}
			return formatter.Success(fmt.Sprintf("removed %s %s", args[0], args[1]))
		}
	})
}
