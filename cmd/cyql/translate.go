package main

import (
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cypherql/cypherql"
)

var (
	translateSchema string
	translateDepth  int
)

// newTranslateCmd builds the `translate` subcommand: read a Cypher query
// (argument or stdin) and print the compiled SQL plus its ordered
// parameter names. It performs no I/O against a database.
func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [query]",
		Short: "Compile a Cypher query to parameterized SQL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("schema") {
				cfg.Schema = translateSchema
			}
			if cmd.Flags().Changed("max-depth") {
				cfg.MaxVariablePathDepth = translateDepth
			}

			source, err := readQuery(cmd, args)
			if err != nil {
				return err
			}

			res, err := cypherql.Translate(source, cfg.translateOptions())
			if err != nil {
				return err
			}

			cmd.Println(res.SQL)
			for i, name := range res.Params {
				cmd.Println("-- $" + strconv.Itoa(i+1) + " = $" + name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&translateSchema, "schema", "", "Postgres schema nodes/edges live under (default pgraf)")
	cmd.Flags().IntVar(&translateDepth, "max-depth", 0, "recursion bound for unbounded variable-length relationships")

	return cmd
}

// readQuery returns the Cypher source: args[0] if given, else all of stdin.
func readQuery(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", errors.Wrap(err, "reading query from stdin")
	}
	return string(data), nil
}
