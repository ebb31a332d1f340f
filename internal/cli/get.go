package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/codec"
	"github.com/roach88/docsql/internal/store"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <store> <key>",
		Short: "Print the record stored under a key",
		Long: `Print the record stored under a key as JSON.

Exits with status 1 when the key is absent.

Example:
  docsql get note a --db notes.db --schema notes.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runGet(opts *RootOptions, storeName, keyArg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	return withStore(cmd, opts, func(ctx context.Context, st *store.Store) error {
		key, err := parseKey(st.Catalog(), storeName, keyArg)
		if err != nil {
			return WrapExitError(ExitFailure, "get failed", err)
		}
		rec, found, err := st.Get(ctx, storeName, key)
		if err != nil {
			return WrapExitError(ExitFailure, "get failed", err)
		}
		if !found {
			return WrapExitError(ExitFailure, fmt.Sprintf("%s %q", storeName, keyArg), errNotFound)
		}
		return formatter.Success(recordsResult{Records: []codec.Record{rec}})
	})
}
