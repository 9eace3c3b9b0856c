package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// newRootCmd builds the cyql command tree: translate (pure compile) and
// exec (compile + run against Postgres).
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cyql",
		Short: "cyql compiles Cypher queries to parameterized PostgreSQL",
		Long: `cyql is a command-line front end for the Cypher-to-SQL
translation pipeline: it turns a Cypher query into one parameterized
PostgreSQL SELECT statement over a property-graph-on-relational schema.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file (schema, max_variable_path_depth, dsn)")

	cmd.AddCommand(newTranslateCmd())
	cmd.AddCommand(newExecCmd())

	return cmd
}
