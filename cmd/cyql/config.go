package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/cypherql/cypherql"
	"github.com/cypherql/cypherql/internal/emit"
	"github.com/cypherql/cypherql/internal/lower"
)

// fileConfig is the shape of the optional YAML config file: schema prefix,
// variable-length path depth bound, and the Postgres DSN used by the exec
// subcommand. Flags passed on the command line override whatever a loaded
// config file sets.
type fileConfig struct {
	Schema               string `yaml:"schema"`
	MaxVariablePathDepth int    `yaml:"max_variable_path_depth"`
	DSN                  string `yaml:"dsn"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{
		Schema:               emit.DefaultSchema,
		MaxVariablePathDepth: lower.DefaultMaxVariablePathDepth,
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %q", path)
	}
	return cfg, nil
}

func (c *fileConfig) translateOptions() cypherql.Options {
	return cypherql.Options{
		Schema:               c.Schema,
		MaxVariablePathDepth: c.MaxVariablePathDepth,
	}
}
