// Package diagnostics defines the error taxonomy shared by every stage of
// the translation pipeline (lexer, parser, lowerer, emitter). Every
// reachable failure in the pipeline surfaces as a *Diagnostic; the
// pipeline never panics on malformed input.
package diagnostics

import (
	"fmt"

	errors "gopkg.in/src-d/go-errors.v1"
)

// Span is a source location: a byte range plus the line/column of its start.
type Span struct {
	StartOffset int
	EndOffset   int
	Line        int
	Column      int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// Stage identifies which pipeline stage raised a Diagnostic.
type Stage int

const (
	StageLex Stage = iota
	StageParse
	StageLower
	StageEmit
)

func (s Stage) String() string {
	switch s {
	case StageLex:
		return "lex"
	case StageParse:
		return "parse"
	case StageLower:
		return "lower"
	case StageEmit:
		return "emit"
	default:
		return "unknown"
	}
}

// Closed set of error kinds, one *errors.Kind per stage plus the finer
// LowerError kinds enumerated in spec.md §4.3/§7.
var (
	ErrLex = errors.NewKind("%s")

	ErrParse = errors.NewKind("%s")

	ErrUnknownVariable       = errors.NewKind("unknown variable %q")
	ErrVariableKindConflict  = errors.NewKind("variable %q is already bound as %s, cannot rebind as %s")
	ErrInvalidPropertyAccess = errors.NewKind("invalid property access: %s")
	ErrNestedAggregate       = errors.NewKind("aggregate functions cannot be nested")
	ErrUnsupportedConstruct  = errors.NewKind("unsupported construct: %s")

	ErrEmit = errors.NewKind("%s")
)

// LowerKind names the closed set of semantic-fault kinds a LowerError can carry.
type LowerKind string

const (
	UnknownVariable       LowerKind = "UnknownVariable"
	VariableKindConflict  LowerKind = "VariableKindConflict"
	InvalidPropertyAccess LowerKind = "InvalidPropertyAccess"
	NestedAggregate       LowerKind = "NestedAggregate"
	UnsupportedConstruct  LowerKind = "UnsupportedConstruct"
)

// Diagnostic is the single error value surfaced at every stage boundary.
// It carries enough information for the public wire format (§6.4):
// kind, message, line, column, start_offset, end_offset.
type Diagnostic struct {
	Stage         Stage
	LowerKind     LowerKind // only set when Stage == StageLower
	Err           error     // the underlying *errors.Kind instance
	Span          Span
	SecondarySpan *Span // optional: points at a conflicting earlier construct
}

func (d *Diagnostic) Error() string {
	if d.SecondarySpan != nil {
		return fmt.Sprintf("%s error at %s (see also %s): %s", d.Stage, d.Span, *d.SecondarySpan, d.Err)
	}
	return fmt.Sprintf("%s error at %s: %s", d.Stage, d.Span, d.Err)
}

func (d *Diagnostic) Unwrap() error { return d.Err }

// Lex builds a LexError diagnostic (unterminated string/comment, disallowed
// code point).
func Lex(span Span, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Stage: StageLex, Err: ErrLex.New(fmt.Sprintf(format, args...)), Span: span}
}

// Parse builds a ParseError diagnostic (grammar violation).
func Parse(span Span, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Stage: StageParse, Err: ErrParse.New(fmt.Sprintf(format, args...)), Span: span}
}

// Lower builds a LowerError diagnostic with one of the closed LowerKind values.
func Lower(kind LowerKind, span Span, err error) *Diagnostic {
	return &Diagnostic{Stage: StageLower, LowerKind: kind, Err: err, Span: span}
}

// LowerWithSecondary attaches a secondary span pointing at a conflicting
// earlier construct (e.g. the clause that first bound a variable).
func LowerWithSecondary(kind LowerKind, span Span, secondary Span, err error) *Diagnostic {
	d := Lower(kind, span, err)
	d.SecondarySpan = &secondary
	return d
}

// Emit builds an EmitError diagnostic: the AST allows the construct but the
// emitter cannot lower it. These are never retried.
func Emit(span Span, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Stage: StageEmit, Err: ErrEmit.New(fmt.Sprintf(format, args...)), Span: span}
}

// Wire is the JSON-friendly shape described in spec.md §6.4. The exact
// textual wire format is an adapter concern; this struct is the
// adapter-neutral field set.
type Wire struct {
	Kind        string `json:"kind"`
	Message     string `json:"message"`
	Line        int    `json:"line"`
	Column      int    `json:"column"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// ToWire renders the diagnostic into the public wire shape.
func (d *Diagnostic) ToWire() Wire {
	kind := d.Stage.String()
	if d.Stage == StageLower && d.LowerKind != "" {
		kind = string(d.LowerKind)
	}
	return Wire{
		Kind:        kind,
		Message:     d.Err.Error(),
		Line:        d.Span.Line,
		Column:      d.Span.Column,
		StartOffset: d.Span.StartOffset,
		EndOffset:   d.Span.EndOffset,
	}
}
