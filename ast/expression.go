package ast

import "github.com/cypherql/cypherql/token"

// Expression is implemented by every expression node kind named in
// spec.md §3.2: variable reference, property access, label test, literal,
// parameter reference, binary/unary operators, IS (NOT) NULL, function and
// aggregate calls, EXISTS subqueries, CASE, and list/map constructors.
type Expression interface {
	exprNode()
	Position() token.Span
}

// Variable is a reference to a bound name.
type Variable struct {
	Name string
	Span token.Span
}

func (*Variable) exprNode()             {}
func (v *Variable) Position() token.Span { return v.Span }

// PropertyAccess is `expr.prop`.
type PropertyAccess struct {
	Target   Expression
	Property string
	Span     token.Span
}

func (*PropertyAccess) exprNode()             {}
func (p *PropertyAccess) Position() token.Span { return p.Span }

// LabelTest is `expr:Label`.
type LabelTest struct {
	Target Expression
	Label  string
	Span   token.Span
}

func (*LabelTest) exprNode()             {}
func (l *LabelTest) Position() token.Span { return l.Span }

// LiteralKind tags the dynamic type carried by a Literal.
type LiteralKind int

const (
	LitString LiteralKind = iota
	LitInt
	LitFloat
	LitBool
	LitNull
	LitList
	LitMap
)

// MapEntry is one `key: value` pair of a map constructor or property map.
type MapEntry struct {
	Key   string
	Value Expression
}

// Literal is a constant value: string, int, float, bool, null, list, or map.
type Literal struct {
	Kind  LiteralKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
	List  []Expression
	Map   []MapEntry
	Span  token.Span
}

func (*Literal) exprNode()             {}
func (l *Literal) Position() token.Span { return l.Span }

// Parameter is a reference to `$name`.
type Parameter struct {
	Name string
	Span token.Span
}

func (*Parameter) exprNode()             {}
func (p *Parameter) Position() token.Span { return p.Span }

// BinaryOp enumerates the binary operators of spec.md §6.1.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpIn
	OpContains
	OpStartsWith
	OpEndsWith
)

// BinaryExpr is a two-operand expression.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
	Span  token.Span
}

func (*BinaryExpr) exprNode()             {}
func (b *BinaryExpr) Position() token.Span { return b.Span }

// NotExpr is unary NOT.
type NotExpr struct {
	Operand Expression
	Span    token.Span
}

func (*NotExpr) exprNode()             {}
func (n *NotExpr) Position() token.Span { return n.Span }

// IsNullExpr is `expr IS NULL` / `expr IS NOT NULL`.
type IsNullExpr struct {
	Operand Expression
	Negated bool
	Span    token.Span
}

func (*IsNullExpr) exprNode()             {}
func (i *IsNullExpr) Position() token.Span { return i.Span }

// FunctionCall is a scalar function invocation `f(args…)`.
type FunctionCall struct {
	Name string
	Args []Expression
	Span token.Span
}

func (*FunctionCall) exprNode()             {}
func (f *FunctionCall) Position() token.Span { return f.Span }

// Call is the parser's provisional representation of any `name(args…)`
// invocation. The lowerer resolves it to either a FunctionCall or an
// AggregateCall once it knows whether Name is a registered aggregate.
type Call struct {
	Name     string
	Args     []Expression
	Distinct bool
	Star     bool // COUNT(*)
	Span     token.Span
}

func (*Call) exprNode()             {}
func (c *Call) Position() token.Span { return c.Span }

// AggregateCall is `agg(DISTINCT? expr)`, or `COUNT(*)` when Star is set.
type AggregateCall struct {
	Name     string
	Distinct bool
	Arg      Expression
	Star     bool
	Span     token.Span
}

func (*AggregateCall) exprNode()             {}
func (a *AggregateCall) Position() token.Span { return a.Span }

// ExistsSubquery is `EXISTS { MATCH pattern WHERE? }`.
type ExistsSubquery struct {
	Patterns []*Pattern
	Where    Expression
	Span     token.Span
}

func (*ExistsSubquery) exprNode()             {}
func (e *ExistsSubquery) Position() token.Span { return e.Span }

// CaseWhen is one `WHEN cond THEN result` arm.
type CaseWhen struct {
	Condition Expression
	Result    Expression
}

// CaseExpr is a CASE expression; Operand is non-nil only for the simple
// `CASE expr WHEN val THEN … END` form.
type CaseExpr struct {
	Operand Expression
	Whens   []CaseWhen
	Else    Expression
	Span    token.Span
}

func (*CaseExpr) exprNode()             {}
func (c *CaseExpr) Position() token.Span { return c.Span }

// ListExpr is a list constructor `[a, b, c]`.
type ListExpr struct {
	Items []Expression
	Span  token.Span
}

func (*ListExpr) exprNode()             {}
func (l *ListExpr) Position() token.Span { return l.Span }

// MapExpr is a map constructor `{a: 1, b: 2}`.
type MapExpr struct {
	Entries []MapEntry
	Span    token.Span
}

func (*MapExpr) exprNode()             {}
func (m *MapExpr) Position() token.Span { return m.Span }
