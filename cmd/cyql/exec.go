package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/cypherql/cypherql/driver"
)

var (
	execSchema string
	execDepth  int
	execDSN    string
	execBinds  []string
)

// newExecCmd builds the `exec` subcommand: compile a Cypher query and
// stream its rows back from a live Postgres database.
func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [query]",
		Short: "Compile a Cypher query and run it against Postgres",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("schema") {
				cfg.Schema = execSchema
			}
			if cmd.Flags().Changed("max-depth") {
				cfg.MaxVariablePathDepth = execDepth
			}
			if cmd.Flags().Changed("dsn") {
				cfg.DSN = execDSN
			}
			if cfg.DSN == "" {
				return errors.New("no DSN configured: pass --dsn or set dsn in --config")
			}

			source, err := readQuery(cmd, args)
			if err != nil {
				return err
			}

			bindings, err := parseBindings(execBinds)
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := pgxpool.New(ctx, cfg.DSN)
			if err != nil {
				return errors.Wrap(err, "connecting to postgres")
			}
			defer pool.Close()

			rows, err := driver.Stream(ctx, pool, source, bindings, cfg.translateOptions())
			if err != nil {
				return err
			}
			defer rows.Close()

			fields := rows.FieldDescriptions()
			names := make([]string, len(fields))
			for i, f := range fields {
				names[i] = f.Name
			}
			cmd.Println(strings.Join(names, "\t"))

			for rows.Next() {
				values, err := rows.Values()
				if err != nil {
					return err
				}
				cells := make([]string, len(values))
				for i, v := range values {
					cells[i] = fmt.Sprintf("%v", v)
				}
				cmd.Println(strings.Join(cells, "\t"))
			}
			return rows.Err()
		},
	}

	cmd.Flags().StringVar(&execSchema, "schema", "", "Postgres schema nodes/edges live under (default pgraf)")
	cmd.Flags().IntVar(&execDepth, "max-depth", 0, "recursion bound for unbounded variable-length relationships")
	cmd.Flags().StringVar(&execDSN, "dsn", "", "Postgres connection string")
	cmd.Flags().StringArrayVar(&execBinds, "param", nil, "a name=value query parameter binding, repeatable")

	return cmd
}

// parseBindings coerces each "name=value" flag into the narrowest type the
// raw string plausibly represents (int, then float, then bool, else
// string) so CLI-supplied bindings reach pgx with a concrete Go type
// instead of always landing as text.
func parseBindings(raw []string) (map[string]interface{}, error) {
	bindings := make(map[string]interface{}, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, errors.Errorf("invalid --param %q: expected name=value", kv)
		}
		bindings[name] = coerce(value)
	}
	return bindings, nil
}

func coerce(value string) interface{} {
	if n, err := cast.ToInt64E(value); err == nil {
		return n
	}
	if f, err := cast.ToFloat64E(value); err == nil {
		return f
	}
	if b, err := cast.ToBoolE(value); err == nil {
		return b
	}
	return value
}
