package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/codec"
	"github.com/roach88/docsql/internal/store"
	"github.com/roach88/docsql/internal/value"
)

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	Key string
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <store> [record-json...]",
		Short: "Insert or replace records",
		Long: `Insert or replace records in a store.

Records are JSON objects given as arguments, or read from stdin when no
record argument is present. Every record is written in one transaction;
a failing record does not undo the others.

Example:
  docsql put note '{"id":"a","tag":"x","body":"hi"}' --db notes.db --schema notes.yaml
  docsql put reading '{"celsius":21.5}' --key 7 --db notes.db --schema notes.yaml
  cat notes.jsonl | docsql put note --db notes.db --schema notes.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "primary key for a single record")

	return cmd
}

func runPut(opts *PutOptions, storeName string, args []string, cmd *cobra.Command) error {
	var recs []codec.Record
	var err error
	if len(args) > 0 {
		recs, err = parseRecordArgs(args)
	} else {
		recs, err = readRecords(cmd.InOrStdin())
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read records", err)
	}
	if opts.Key != "" && len(recs) != 1 {
		return NewExitError(ExitCommandError, "--key requires exactly one record")
	}

	formatter := newFormatter(opts.RootOptions, cmd)
	return withStore(cmd, opts.RootOptions, func(ctx context.Context, st *store.Store) error {
		formatter.VerboseLog("Writing %d record(s) to %s", len(recs), storeName)

		var keys []value.Value
		if opts.Key != "" {
			key, err := parseKey(st.Catalog(), storeName, opts.Key)
			if err != nil {
				return WrapExitError(ExitFailure, "put failed", err)
			}
			k, err := st.PutWithKey(ctx, storeName, key, recs[0])
			if err != nil {
				return WrapExitError(ExitFailure, "put failed", err)
			}
			keys = []value.Value{k}
		} else {
			keys, err = st.Put(ctx, storeName, recs...)
			if err != nil {
				return WrapExitError(ExitFailure, "put failed", err)
			}
		}
		return formatter.Success(newKeysResult(keys))
	})
}

func parseRecordArgs(args []string) ([]codec.Record, error) {
	recs := make([]codec.Record, 0, len(args))
	for i, arg := range args {
		var rec codec.Record
		if err := json.Unmarshal([]byte(arg), &rec); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", errInvalidInput, i+1, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("%w: record %d is not an object", errInvalidInput, i+1)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// readRecords decodes a stream of JSON objects.
func readRecords(r io.Reader) ([]codec.Record, error) {
	dec := json.NewDecoder(r)
	var recs []codec.Record
	for {
		var rec codec.Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", errInvalidInput, len(recs)+1, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("%w: record %d is not an object", errInvalidInput, len(recs)+1)
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: no records on stdin", errInvalidInput)
	}
	return recs, nil
}
