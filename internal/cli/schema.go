package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/migrate"
	"github.com/roach88/docsql/internal/schema"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the table DDL generated for a schema file",
		Long: `Print the CREATE TABLE statements generated for the schema file.
No database is opened.

Example:
  docsql schema --schema notes.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, cmd)
		},
	}

	return cmd
}

func runSchema(opts *RootOptions, cmd *cobra.Command) error {
	if opts.Schema == "" {
		return NewExitError(ExitCommandError, "--schema is required")
	}
	cat, err := schema.Load(opts.Schema, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	return newFormatter(opts, cmd).Success(statementsResult{Statements: migrate.Statements(cat)})
}
