// Package cypherql is the public entry point for the translation pipeline:
// lexer -> internal/parser -> internal/lower -> internal/emit. Translate is
// the whole of the core contract (spec.md §6.3); everything else in this
// module (driver, cmd/cyql) is built on top of it.
package cypherql

import (
	"github.com/cypherql/cypherql/diagnostics"
	"github.com/cypherql/cypherql/internal/emit"
	"github.com/cypherql/cypherql/internal/lower"
	"github.com/cypherql/cypherql/internal/parser"
)

// Options configures translation. A zero Options is valid: Schema defaults
// to emit.DefaultSchema and MaxVariablePathDepth to
// lower.DefaultMaxVariablePathDepth.
type Options struct {
	// Schema is the Postgres schema the nodes/edges tables live under.
	Schema string

	// MaxVariablePathDepth bounds an unbounded `*` relationship's recursive
	// CTE depth.
	MaxVariablePathDepth int
}

// Result is a successful translation: one parameterized SQL statement plus
// the parameter names in the order their $N placeholders were assigned.
type Result struct {
	SQL    string
	Params []string
}

// Translate compiles a Cypher query into a single parameterized PostgreSQL
// statement. Every failure at every stage (lex, parse, lower, emit)
// surfaces as a *diagnostics.Diagnostic, never a panic.
func Translate(source string, opts Options) (*Result, error) {
	p, err := parser.New(source)
	if err != nil {
		return nil, err
	}
	q, err := p.Parse()
	if err != nil {
		return nil, err
	}
	q, err = lower.Lower(q, lower.Options{MaxVariablePathDepth: opts.MaxVariablePathDepth})
	if err != nil {
		return nil, err
	}
	res, err := emit.Emit(q, emit.Options{
		Schema:               opts.Schema,
		MaxVariablePathDepth: opts.MaxVariablePathDepth,
	})
	if err != nil {
		return nil, err
	}
	return &Result{SQL: res.SQL, Params: res.ParamNames}, nil
}

// MustTranslate is Translate with a Diagnostic-asserting panic, for
// call sites (tests, one-off tooling) that have already validated input
// and don't want to thread the error through.
func MustTranslate(source string, opts Options) *Result {
	res, err := Translate(source, opts)
	if err != nil {
		if diag, ok := err.(*diagnostics.Diagnostic); ok {
			panic(diag)
		}
		panic(err)
	}
	return res
}
