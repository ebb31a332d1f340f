package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/codec"
	"github.com/roach88/docsql/internal/query"
	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	From     string
	To       string
	FromOpen bool
	ToOpen   bool
	Limit    int
	Offset   int
	Where    []string
	Count    bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <store>",
		Short: "Scan a store by key range",
		Long: `Scan a store, optionally restricted to a primary key range.

--limit caps the number of rows scanned, not the number printed: rows
rejected by --where still count toward it. --offset skips fetched rows
before the scan starts.

Example:
  docsql query note --from b --to d --to-open --db notes.db --schema notes.yaml
  docsql query note --where tag=x --limit 10 --db notes.db --schema notes.yaml
  docsql query reading --count --db notes.db --schema notes.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "lower key bound")
	cmd.Flags().StringVar(&opts.To, "to", "", "upper key bound")
	cmd.Flags().BoolVar(&opts.FromOpen, "from-open", false, "exclude the lower bound")
	cmd.Flags().BoolVar(&opts.ToOpen, "to-open", false, "exclude the upper bound")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows to scan (0 = all)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "fetched rows to skip")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "field=value equality filter (repeatable)")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the number of matching rows instead of the rows")

	return cmd
}

func runQuery(opts *QueryOptions, storeName string, cmd *cobra.Command) error {
	filter, err := parseWhere(opts.Where)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --where", err)
	}

	formatter := newFormatter(opts.RootOptions, cmd)
	return withStore(cmd, opts.RootOptions, func(ctx context.Context, st *store.Store) error {
		q := query.Query{
			Store:  storeName,
			Filter: filter,
			Limit:  opts.Limit,
			Offset: opts.Offset,
		}
		r, err := keyRange(st.Catalog(), storeName, opts)
		if err != nil {
			return WrapExitError(ExitFailure, "query failed", err)
		}
		q.Range = r
		if opts.Count {
			q.Reduce = func(acc any, _ codec.Record) any { return acc.(int) + 1 }
			q.Initial = 0
		}

		res, err := st.Query(ctx, q)
		if err != nil {
			return WrapExitError(ExitFailure, "query failed", err)
		}
		formatter.VerboseLog("Scanned %s", storeName)
		if res.Reduced {
			return formatter.Success(foldResult{Value: res.Value})
		}
		return formatter.Success(recordsResult{Records: res.Records})
	})
}

func keyRange(cat schema.Catalog, storeName string, opts *QueryOptions) (*query.KeyRange, error) {
	if opts.From == "" && opts.To == "" {
		return nil, nil
	}
	r := &query.KeyRange{LowerOpen: opts.FromOpen, UpperOpen: opts.ToOpen}
	if opts.From != "" {
		k, err := parseKey(cat, storeName, opts.From)
		if err != nil {
			return nil, err
		}
		r.Lower = k
	}
	if opts.To != "" {
		k, err := parseKey(cat, storeName, opts.To)
		if err != nil {
			return nil, err
		}
		r.Upper = k
	}
	return r, nil
}

// parseWhere builds a filter matching every field=value clause against the
// record field's printed form.
func parseWhere(clauses []string) (func(codec.Record) bool, error) {
	if len(clauses) == 0 {
		return nil, nil
	}
	type match struct{ field, want string }
	matches := make([]match, 0, len(clauses))
	for _, c := range clauses {
		field, want, ok := strings.Cut(c, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("%w: %q is not field=value", errInvalidInput, c)
		}
		matches = append(matches, match{field, want})
	}
	return func(rec codec.Record) bool {
		for _, m := range matches {
			v, ok := rec[m.field]
			if !ok || fmt.Sprint(v) != m.want {
				return false
			}
		}
		return true
	}, nil
}
