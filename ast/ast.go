// Package ast defines the typed abstract syntax tree produced by the
// lowering stage (internal/lower) from the parser's provisional tree
// (internal/parser) and consumed by the SQL emitter (internal/emit).
//
// The parser and the lowerer share this package's types for engineering
// economy: the parser builds a *Query directly (its "parse tree" in
// spec terms), but that value is provisional — variable scoping, call
// resolution, the default variable-length bound, and parameter collection
// have not happened yet (anonymous pattern variables are already
// fresh-named by the parser). Only the *Query returned by
// internal/lower.Lower is the typed AST contract described by the
// specification; nothing outside internal/parser and internal/lower
// should observe a pre-lowering Query.
//
// All values here are plain data: the lowerer and emitter build and walk
// them but never mutate a node after it is attached to its parent.
package ast

import "github.com/cypherql/cypherql/token"

// Query is an ordered list of clauses. A well-formed query (post-lowering)
// has at least one MATCH and exactly one terminal RETURN.
type Query struct {
	Clauses []Clause
	// Params is the set of parameter names referenced anywhere in the
	// query, in first-occurrence order. Populated by the lowerer.
	Params []string
}

// Clause is implemented by MatchClause, WithClause, ReturnClause, and
// UnwindClause.
type Clause interface {
	clauseNode()
	Position() token.Span
}

// EntityKind is the logical kind a bound variable denotes.
type EntityKind int

const (
	KindNode EntityKind = iota
	KindRelationship
	KindPath // a variable bound to a variable-length relationship pattern
	KindScalar
)

func (k EntityKind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindRelationship:
		return "relationship"
	case KindPath:
		return "path"
	case KindScalar:
		return "scalar value"
	default:
		return "unknown"
	}
}

// Direction is the orientation of a relationship pattern.
type Direction int

const (
	DirOut Direction = iota
	DirIn
	DirUndirected
)

// Length describes a relationship's hop count: either a single edge, or a
// variable-length range (an unbounded `*` is Range with both bounds nil
// until the lowerer applies the configured default maximum).
type Length struct {
	Variable bool // false => a single edge (ordinary relationship)
	Min      *int
	Max      *int
}

// Pattern is an alternating chain of node and relationship segments:
// len(Nodes) == len(Rels)+1.
type Pattern struct {
	Nodes []*NodePattern
	Rels  []*RelPattern
}

// PropertyEquality is one `key: value` entry of a pattern's property map,
// always compiled to an equality predicate.
type PropertyEquality struct {
	Name  string
	Value Expression
}

// NodePattern is `(v:L1:L2 {k: val, …})`.
type NodePattern struct {
	Variable   string // resolved name; fresh-named if the source left it anonymous
	UserNamed  bool
	Labels     []string
	Properties []PropertyEquality
	Span       token.Span
}

// RelPattern is `-[v:T1|T2 {…}]->`. Direction keeps the orientation as
// written (DirIn for `<-`); the emitter picks the edge columns from it.
type RelPattern struct {
	Variable   string
	UserNamed  bool
	Labels     []string
	Direction  Direction
	Properties []PropertyEquality
	Length     Length
	Span       token.Span
}

// Projection is one `expression [AS alias]` item of a RETURN/WITH clause.
type Projection struct {
	Expression Expression
	Alias      string
	Star       bool // this item is the explicit expansion of a `*` projection
}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expression Expression
	Descending bool
}

// MatchClause: `MATCH pattern[, pattern...] [WHERE ...]`, or `OPTIONAL MATCH ...`.
type MatchClause struct {
	Patterns []*Pattern
	Optional bool
	Where    Expression
	Span     token.Span
}

func (*MatchClause) clauseNode()            {}
func (m *MatchClause) Position() token.Span { return m.Span }

// WithClause projects a new scope; after it, only its items are in scope.
type WithClause struct {
	Items    []Projection
	Distinct bool
	Where    Expression
	OrderBy  []OrderItem
	Skip     Expression
	Limit    Expression
	Span     token.Span
}

func (*WithClause) clauseNode()            {}
func (w *WithClause) Position() token.Span { return w.Span }

// ReturnClause is the terminal clause of a well-formed query.
type ReturnClause struct {
	Items    []Projection
	Distinct bool
	OrderBy  []OrderItem
	Skip     Expression
	Limit    Expression
	Span     token.Span
}

func (*ReturnClause) clauseNode()            {}
func (r *ReturnClause) Position() token.Span { return r.Span }

// UnwindClause expands a list expression into one row per element.
type UnwindClause struct {
	Expression Expression
	As         string
	Span       token.Span
}

func (*UnwindClause) clauseNode()            {}
func (u *UnwindClause) Position() token.Span { return u.Span }
