package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/store"
)

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "count <store>",
		Short:         "Print the number of records in a store",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCount(opts *RootOptions, storeName string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	return withStore(cmd, opts, func(ctx context.Context, st *store.Store) error {
		n, err := st.Count(ctx, storeName)
		if err != nil {
			return WrapExitError(ExitFailure, "count failed", err)
		}
		return formatter.Success(countResult{Store: storeName, Count: n})
	})
}
