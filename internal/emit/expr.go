package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cypherql/cypherql/ast"
	"github.com/cypherql/cypherql/diagnostics"
)

// aggregateSQL maps a resolved aggregate's Cypher name to the Postgres
// function that implements it. collect is the one case where the names
// diverge: Cypher collects into a list, Postgres calls that array_agg.
var aggregateSQL = map[string]string{
	"count":   "COUNT",
	"sum":     "SUM",
	"avg":     "AVG",
	"min":     "MIN",
	"max":     "MAX",
	"collect": "array_agg",
}

// compileExpr turns one lowered expression into inline SQL text. Entity
// variables (nodes and relationships) compile to whatever value currently
// denotes them — a bare table alias while still in the pattern that
// introduced them, or a parenthesized composite column once they have
// crossed a WITH boundary — so a bare reference is always a valid
// composite-row SELECT item, and PropertyAccess/LabelTest can always reach
// into it with `.properties`/`.labels` regardless of which form it is.
func (b *builder) compileExpr(e ast.Expression) (string, error) {
	switch v := e.(type) {
	case *ast.Variable:
		ref, ok := b.aliasOf[v.Name]
		if !ok {
			return "", diagnostics.Emit(diagnostics.Span{}, "unknown variable %q", v.Name)
		}
		return ref, nil

	case *ast.PropertyAccess:
		return b.compilePropertyAccess(v)

	case *ast.LabelTest:
		target, err := b.entityRef(v.Target)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s = ANY(%s.labels))", quoteLiteral(v.Label), target), nil

	case *ast.Literal:
		return b.compileLiteral(v)

	case *ast.Parameter:
		return b.paramPlaceholder(v.Name)

	case *ast.BinaryExpr:
		return b.compileBinary(v)

	case *ast.NotExpr:
		operand, err := b.compileExpr(v.Operand)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(NOT %s)", operand), nil

	case *ast.IsNullExpr:
		operand, err := b.compileExpr(v.Operand)
		if err != nil {
			return "", err
		}
		if v.Negated {
			return fmt.Sprintf("(%s IS NOT NULL)", operand), nil
		}
		return fmt.Sprintf("(%s IS NULL)", operand), nil

	case *ast.FunctionCall:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			sql, err := b.compileExpr(a)
			if err != nil {
				return "", err
			}
			args[i] = sql
		}
		return fmt.Sprintf("%s(%s)", v.Name, strings.Join(args, ", ")), nil

	case *ast.AggregateCall:
		return b.compileAggregate(v)

	case *ast.ListExpr:
		if len(v.Items) == 0 {
			return "ARRAY[]::text[]", nil
		}
		items := make([]string, len(v.Items))
		for i, it := range v.Items {
			sql, err := b.compileExpr(it)
			if err != nil {
				return "", err
			}
			items[i] = sql
		}
		return fmt.Sprintf("ARRAY[%s]", strings.Join(items, ", ")), nil

	case *ast.MapExpr:
		return b.compileMapEntries(v.Entries)

	case *ast.CaseExpr:
		return b.compileCase(v)

	case *ast.ExistsSubquery:
		return b.compileExistsSubquery(v)

	default:
		return "", diagnostics.Emit(diagnostics.Span{}, "cannot emit SQL for expression of type %T", e)
	}
}

// entityRef compiles an expression expected to denote a node or
// relationship row (the target of a LabelTest, or a bare Variable used as
// a PropertyAccess target) and returns the SQL naming that row.
func (b *builder) entityRef(e ast.Expression) (string, error) {
	if v, ok := e.(*ast.Variable); ok {
		ref, ok := b.aliasOf[v.Name]
		if !ok {
			return "", diagnostics.Emit(diagnostics.Span{}, "unknown variable %q", v.Name)
		}
		return ref, nil
	}
	return b.compileExpr(e)
}

func (b *builder) compilePropertyAccess(p *ast.PropertyAccess) (string, error) {
	target, err := b.entityRef(p.Target)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s.properties ->> %s)", target, quoteLiteral(p.Property)), nil
}

func (b *builder) compileLiteral(lit *ast.Literal) (string, error) {
	switch lit.Kind {
	case ast.LitString:
		return quoteLiteral(lit.Str), nil
	case ast.LitInt:
		return strconv.FormatInt(lit.Int, 10), nil
	case ast.LitFloat:
		return strconv.FormatFloat(lit.Float, 'g', -1, 64), nil
	case ast.LitBool:
		if lit.Bool {
			return "TRUE", nil
		}
		return "FALSE", nil
	case ast.LitNull:
		return "NULL", nil
	case ast.LitList:
		if len(lit.List) == 0 {
			return "ARRAY[]::text[]", nil
		}
		items := make([]string, len(lit.List))
		for i, it := range lit.List {
			sql, err := b.compileExpr(it)
			if err != nil {
				return "", err
			}
			items[i] = sql
		}
		return fmt.Sprintf("ARRAY[%s]", strings.Join(items, ", ")), nil
	case ast.LitMap:
		return b.compileMapEntries(lit.Map)
	default:
		return "", diagnostics.Emit(diagnostics.Span{}, "unsupported literal kind %d", lit.Kind)
	}
}

func (b *builder) compileMapEntries(entries []ast.MapEntry) (string, error) {
	if len(entries) == 0 {
		return "'{}'::jsonb", nil
	}
	args := make([]string, 0, len(entries)*2)
	for _, ent := range entries {
		valSQL, err := b.compileExpr(ent.Value)
		if err != nil {
			return "", err
		}
		args = append(args, quoteLiteral(ent.Key), valSQL)
	}
	return fmt.Sprintf("jsonb_build_object(%s)", strings.Join(args, ", ")), nil
}

var binaryOpSQL = map[ast.BinaryOp]string{
	ast.OpEq:  "=",
	ast.OpNeq: "<>",
	ast.OpLt:  "<",
	ast.OpLte: "<=",
	ast.OpGt:  ">",
	ast.OpGte: ">=",
	ast.OpAdd: "+",
	ast.OpSub: "-",
	ast.OpMul: "*",
	ast.OpDiv: "/",
}

var comparisonOps = map[ast.BinaryOp]bool{
	ast.OpEq: true, ast.OpNeq: true, ast.OpLt: true,
	ast.OpLte: true, ast.OpGt: true, ast.OpGte: true,
}

func (b *builder) compileBinary(e *ast.BinaryExpr) (string, error) {
	switch e.Op {
	case ast.OpAnd:
		return b.compileJoinedBinary(e, "AND")
	case ast.OpOr:
		return b.compileJoinedBinary(e, "OR")
	case ast.OpIn:
		left, err := b.compileExpr(e.Left)
		if err != nil {
			return "", err
		}
		right, err := b.compileExpr(e.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s = ANY(%s))", left, right), nil
	case ast.OpContains:
		left, right, err := b.compileLikeOperands(e)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s LIKE '%%' || %s || '%%')", left, right), nil
	case ast.OpStartsWith:
		left, right, err := b.compileLikeOperands(e)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s LIKE %s || '%%')", left, right), nil
	case ast.OpEndsWith:
		left, right, err := b.compileLikeOperands(e)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s LIKE '%%' || %s)", left, right), nil
	}

	leftSQL, err := b.compileExpr(e.Left)
	if err != nil {
		return "", err
	}
	rightSQL, err := b.compileExpr(e.Right)
	if err != nil {
		return "", err
	}

	if comparisonOps[e.Op] {
		if _, ok := e.Left.(*ast.PropertyAccess); ok {
			leftSQL, rightSQL = applyCoercion(leftSQL, e.Right, rightSQL)
		} else if _, ok := e.Right.(*ast.PropertyAccess); ok {
			rightSQL, leftSQL = applyCoercion(rightSQL, e.Left, leftSQL)
		}
	}

	op, ok := binaryOpSQL[e.Op]
	if !ok {
		return "", diagnostics.Emit(diagnostics.Span{}, "unsupported binary operator %d", e.Op)
	}
	return fmt.Sprintf("(%s %s %s)", leftSQL, op, rightSQL), nil
}

func (b *builder) compileJoinedBinary(e *ast.BinaryExpr, sqlOp string) (string, error) {
	left, err := b.compileExpr(e.Left)
	if err != nil {
		return "", err
	}
	right, err := b.compileExpr(e.Right)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s %s)", left, sqlOp, right), nil
}

func (b *builder) compileLikeOperands(e *ast.BinaryExpr) (string, string, error) {
	left, err := b.compileExpr(e.Left)
	if err != nil {
		return "", "", err
	}
	right, err := b.compileExpr(e.Right)
	if err != nil {
		return "", "", err
	}
	return left, right, nil
}

func (b *builder) compileAggregate(a *ast.AggregateCall) (string, error) {
	fn, ok := aggregateSQL[strings.ToLower(a.Name)]
	if !ok {
		return "", diagnostics.Emit(diagnostics.Span{}, "unknown aggregate function %q", a.Name)
	}
	if a.Star {
		return "COUNT(*)", nil
	}
	argSQL, err := b.compileExpr(a.Arg)
	if err != nil {
		return "", err
	}
	distinct := ""
	if a.Distinct {
		distinct = "DISTINCT "
	}
	return fmt.Sprintf("%s(%s%s)", fn, distinct, argSQL), nil
}

func (b *builder) compileCase(c *ast.CaseExpr) (string, error) {
	var sb strings.Builder
	sb.WriteString("CASE")
	if c.Operand != nil {
		opSQL, err := b.compileExpr(c.Operand)
		if err != nil {
			return "", err
		}
		sb.WriteString(" " + opSQL)
	}
	for _, w := range c.Whens {
		condSQL, err := b.compileExpr(w.Condition)
		if err != nil {
			return "", err
		}
		resSQL, err := b.compileExpr(w.Result)
		if err != nil {
			return "", err
		}
		sb.WriteString(fmt.Sprintf(" WHEN %s THEN %s", condSQL, resSQL))
	}
	if c.Else != nil {
		elseSQL, err := b.compileExpr(c.Else)
		if err != nil {
			return "", err
		}
		sb.WriteString(" ELSE " + elseSQL)
	}
	sb.WriteString(" END")
	return sb.String(), nil
}

// compileExistsSubquery compiles an EXISTS { MATCH ... } predicate into a
// correlated `EXISTS (SELECT 1 FROM ...)`. The nested join graph starts
// from a copy of the outer builder's alias table so its patterns can reuse
// already-bound outer variables as correlation points, but accumulates its
// own FROM/WHERE so it never mutates the outer query being built.
func (b *builder) compileExistsSubquery(e *ast.ExistsSubquery) (string, error) {
	sub := &builder{
		schema:     b.schema,
		aliasOf:    cloneAliasOf(b.aliasOf),
		varCounter: b.varCounter,
		pathSeq:    b.pathSeq,
		paramIndex: b.paramIndex,
	}
	for _, pat := range e.Patterns {
		if err := sub.addPattern(pat, false); err != nil {
			return "", err
		}
	}
	if e.Where != nil {
		where, err := sub.compileExpr(e.Where)
		if err != nil {
			return "", err
		}
		sub.whereParts = append(sub.whereParts, where)
	}
	b.varCounter = sub.varCounter
	b.pathSeq = sub.pathSeq
	b.ctes = append(b.ctes, sub.ctes...)

	var sb strings.Builder
	sb.WriteString("EXISTS (SELECT 1 FROM ")
	sb.WriteString(strings.Join(sub.fromParts, " "))
	if len(sub.whereParts) > 0 {
		sb.WriteString(" WHERE " + strings.Join(sub.whereParts, " AND "))
	}
	sb.WriteString(")")
	return sb.String(), nil
}

func cloneAliasOf(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
