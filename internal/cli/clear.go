package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/store"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear [store]",
		Short: "Delete every record of one store or of all stores",
		Long: `Delete every record of one store, or of every store when none is named.
Tables are kept.

Example:
  docsql clear note --db notes.db --schema notes.yaml
  docsql clear --db notes.db --schema notes.yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runClear(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	return withStore(cmd, opts, func(ctx context.Context, st *store.Store) error {
		if len(args) == 0 {
			if err := st.Clear(ctx); err != nil {
				return WrapExitError(ExitFailure, "clear failed", err)
			}
			return formatter.Success("cleared all stores")
		}
		if err := st.ClearStore(ctx, args[0]); err != nil {
			return WrapExitError(ExitFailure, "clear failed", err)
		}
		return formatter.Success(fmt.Sprintf("cleared %s", args[0]))
	})
}
