// Package lower validates a parser's provisional *ast.Query and turns it
// into the typed AST contract described by spec.md §3.2: every variable
// resolved to an EntityKind, every relationship direction classified,
// every anonymous pattern variable already fresh-named by the parser,
// every ambiguous function call resolved to either a scalar FunctionCall
// or an AggregateCall, and every parameter reference collected in
// first-occurrence order.
//
// The lowerer does not touch the wire SQL at all; that is internal/emit's
// job. Its only output is a validated *ast.Query or a *diagnostics.Diagnostic
// describing exactly which invariant the source query violated.
package lower

import (
	"fmt"
	"strings"

	"github.com/cypherql/cypherql/ast"
	"github.com/cypherql/cypherql/diagnostics"
	"github.com/cypherql/cypherql/token"
)

// DefaultMaxVariablePathDepth bounds an unbounded `*` relationship (no
// explicit upper hop count) so the emitter's recursive CTE always
// terminates.
const DefaultMaxVariablePathDepth = 10

// Options configures lowering. A zero Options is valid: MaxVariablePathDepth
// defaults to DefaultMaxVariablePathDepth.
type Options struct {
	MaxVariablePathDepth int
}

func (o Options) maxDepth() int {
	if o.MaxVariablePathDepth > 0 {
		return o.MaxVariablePathDepth
	}
	return DefaultMaxVariablePathDepth
}

// aggregateNames is the closed set of function names the lowerer resolves
// to AggregateCall instead of FunctionCall.
var aggregateNames = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true, "collect": true,
}

type binding struct {
	name string
	kind ast.EntityKind
}

// scope tracks bound variables in first-occurrence order so Star-projection
// expansion is deterministic.
type scope struct {
	order []string
	kinds map[string]ast.EntityKind
}

func newScope() *scope {
	return &scope{kinds: map[string]ast.EntityKind{}}
}

func (s *scope) bind(name string, kind ast.EntityKind, span token.Span) *diagnostics.Diagnostic {
	if existing, ok := s.kinds[name]; ok {
		if existing != kind {
			return diagnostics.Lower(diagnostics.VariableKindConflict, diagSpan(span),
				diagnostics.ErrVariableKindConflict.New(name, existing, kind))
		}
		return nil
	}
	s.order = append(s.order, name)
	s.kinds[name] = kind
	return nil
}

func (s *scope) replace(names []string, kinds []ast.EntityKind) {
	s.order = append([]string(nil), names...)
	s.kinds = make(map[string]ast.EntityKind, len(names))
	for i, n := range names {
		s.kinds[n] = kinds[i]
	}
}

func (s *scope) lookup(name string) (ast.EntityKind, bool) {
	k, ok := s.kinds[name]
	return k, ok
}

type lowerer struct {
	opts   Options
	scope  *scope
	params []string
	seen   map[string]bool
}

// Lower validates q in place and returns it; on success q.Params is
// populated and every ast.Call node has been resolved to a FunctionCall
// or AggregateCall.
func Lower(q *ast.Query, opts Options) (*ast.Query, error) {
	if len(q.Clauses) == 0 {
		return nil, diagnostics.Lower(diagnostics.UnsupportedConstruct, diagnostics.Span{},
			diagnostics.ErrUnsupportedConstruct.New("empty query"))
	}
	if _, ok := q.Clauses[len(q.Clauses)-1].(*ast.ReturnClause); !ok {
		return nil, diagnostics.Lower(diagnostics.UnsupportedConstruct, diagSpan(q.Clauses[len(q.Clauses)-1].Position()),
			diagnostics.ErrUnsupportedConstruct.New("query must end with a RETURN clause"))
	}
	hasMatch := false
	for _, c := range q.Clauses {
		if _, ok := c.(*ast.MatchClause); ok {
			hasMatch = true
			break
		}
	}
	if !hasMatch {
		return nil, diagnostics.Lower(diagnostics.UnsupportedConstruct, diagSpan(q.Clauses[0].Position()),
			diagnostics.ErrUnsupportedConstruct.New("query must contain at least one MATCH clause"))
	}

	lw := &lowerer{opts: opts, scope: newScope(), seen: map[string]bool{}}
	for _, c := range q.Clauses {
		if err := lw.lowerClause(c); err != nil {
			return nil, err
		}
	}
	q.Params = lw.params
	return q, nil
}

func diagSpan(sp token.Span) diagnostics.Span {
	return diagnostics.Span{
		StartOffset: sp.StartOffset,
		EndOffset:   sp.EndOffset,
		Line:        sp.Line,
		Column:      sp.Column,
	}
}

func (lw *lowerer) lowerClause(c ast.Clause) error {
	switch cl := c.(type) {
	case *ast.MatchClause:
		return lw.lowerMatch(cl)
	case *ast.WithClause:
		return lw.lowerWith(cl)
	case *ast.ReturnClause:
		return lw.lowerReturn(cl)
	case *ast.UnwindClause:
		return lw.lowerUnwind(cl)
	default:
		return diagnostics.Lower(diagnostics.UnsupportedConstruct, diagnostics.Span{},
			diagnostics.ErrUnsupportedConstruct.New("unknown clause type"))
	}
}

func (lw *lowerer) lowerMatch(m *ast.MatchClause) error {
	for _, pat := range m.Patterns {
		if err := lw.lowerPattern(pat); err != nil {
			return err
		}
	}
	if m.Where != nil {
		resolved, err := lw.resolveExpr(m.Where, 0)
		if err != nil {
			return err
		}
		m.Where = resolved
	}
	return nil
}

func (lw *lowerer) lowerPattern(pat *ast.Pattern) error {
	for _, n := range pat.Nodes {
		if err := lw.scope.bind(n.Variable, ast.KindNode, n.Span); err != nil {
			return err
		}
		if err := lw.resolvePropertyEqualities(n.Properties); err != nil {
			return err
		}
	}
	for _, r := range pat.Rels {
		kind := ast.KindRelationship
		if r.Length.Variable {
			kind = ast.KindPath
			if r.Length.Min != nil && r.Length.Max != nil && *r.Length.Min > *r.Length.Max {
				return diagnostics.Lower(diagnostics.UnsupportedConstruct, diagSpan(r.Span),
					diagnostics.ErrUnsupportedConstruct.New("variable-length relationship has min greater than max"))
			}
			if r.Length.Max == nil {
				max := lw.opts.maxDepth()
				r.Length.Max = &max
			}
		}
		if err := lw.scope.bind(r.Variable, kind, r.Span); err != nil {
			return err
		}
		if err := lw.resolvePropertyEqualities(r.Properties); err != nil {
			return err
		}
	}
	return nil
}

func (lw *lowerer) resolvePropertyEqualities(props []ast.PropertyEquality) error {
	for i := range props {
		resolved, err := lw.resolveExpr(props[i].Value, 0)
		if err != nil {
			return err
		}
		props[i].Value = resolved
	}
	return nil
}

func (lw *lowerer) lowerWith(w *ast.WithClause) error {
	if err := lw.lowerProjections(w.Items); err != nil {
		return err
	}
	if err := lw.lowerOrderBy(w.OrderBy); err != nil {
		return err
	}
	if w.Skip != nil {
		if _, err := lw.resolveExpr(w.Skip, 0); err != nil {
			return err
		}
	}
	if w.Limit != nil {
		if _, err := lw.resolveExpr(w.Limit, 0); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(w.Items))
	kinds := make([]ast.EntityKind, 0, len(w.Items))
	for i := range w.Items {
		item := &w.Items[i]
		name, kind, err := lw.projectionBinding(item)
		if err != nil {
			return err
		}
		names = append(names, name)
		kinds = append(kinds, kind)
	}
	lw.scope.replace(names, kinds)

	// WITH ... WHERE filters the projected rows, so it sees the new scope.
	if w.Where != nil {
		resolved, err := lw.resolveExpr(w.Where, 0)
		if err != nil {
			return err
		}
		w.Where = resolved
	}
	return nil
}

func (lw *lowerer) lowerReturn(r *ast.ReturnClause) error {
	lw.expandStar(&r.Items)
	if err := lw.lowerProjections(r.Items); err != nil {
		return err
	}
	return lw.lowerOrderAndBounds(r)
}

func (lw *lowerer) lowerOrderAndBounds(r *ast.ReturnClause) error {
	if err := lw.lowerOrderBy(r.OrderBy); err != nil {
		return err
	}
	if r.Skip != nil {
		if _, err := lw.resolveExpr(r.Skip, 0); err != nil {
			return err
		}
	}
	if r.Limit != nil {
		if _, err := lw.resolveExpr(r.Limit, 0); err != nil {
			return err
		}
	}
	return nil
}

// expandStar replaces a single `*` projection with one explicit Variable
// projection per variable currently in scope, in binding order.
func (lw *lowerer) expandStar(items *[]ast.Projection) {
	var expanded []ast.Projection
	for _, item := range *items {
		if !item.Star {
			expanded = append(expanded, item)
			continue
		}
		for _, name := range lw.scope.order {
			expanded = append(expanded, ast.Projection{
				Expression: &ast.Variable{Name: name},
				Alias:      name,
				Star:       true,
			})
		}
	}
	*items = expanded
}

func (lw *lowerer) lowerProjections(items []ast.Projection) error {
	seenAlias := map[string]bool{}
	for i := range items {
		item := &items[i]
		resolved, err := lw.resolveExpr(item.Expression, 0)
		if err != nil {
			return err
		}
		item.Expression = resolved

		explicit := item.Alias != ""
		if !explicit {
			item.Alias = defaultProjectionAlias(item.Expression, i)
			for seenAlias[item.Alias] {
				item.Alias = fmt.Sprintf("%s_%d", item.Alias, i+1)
			}
		} else if seenAlias[item.Alias] {
			return diagnostics.Lower(diagnostics.UnsupportedConstruct, diagSpan(item.Expression.Position()),
				diagnostics.ErrUnsupportedConstruct.New(fmt.Sprintf("duplicate projection alias %q", item.Alias)))
		}
		seenAlias[item.Alias] = true
	}
	return nil
}

// defaultProjectionAlias derives the column name Postgres itself would
// pick for an unaliased target-list entry: the bare variable or property
// name when there is one, the function name for a call (matching Postgres's
// own `count`/`sum`/… default), and a positional fallback for anything
// else (arithmetic, literals, CASE, …), matching spec §3.2's "alias is
// optional" and §4.4.5's "full expression otherwise" by still giving the
// projection a name that duplicate-detection and the SELECT list use.
// ORDER BY does not resolve projection aliases, synthesized or explicit:
// its expressions see only the variables in scope.
func defaultProjectionAlias(expr ast.Expression, pos int) string {
	switch e := expr.(type) {
	case *ast.Variable:
		return e.Name
	case *ast.PropertyAccess:
		return e.Property
	case *ast.AggregateCall:
		return strings.ToLower(e.Name)
	case *ast.FunctionCall:
		return strings.ToLower(e.Name)
	default:
		return fmt.Sprintf("col_%d", pos+1)
	}
}

func (lw *lowerer) projectionBinding(item *ast.Projection) (string, ast.EntityKind, error) {
	if v, ok := item.Expression.(*ast.Variable); ok {
		kind, bound := lw.scope.lookup(v.Name)
		if !bound {
			return "", 0, diagnostics.Lower(diagnostics.UnknownVariable, diagSpan(v.Span),
				diagnostics.ErrUnknownVariable.New(v.Name))
		}
		return item.Alias, kind, nil
	}
	return item.Alias, ast.KindScalar, nil
}

func (lw *lowerer) lowerOrderBy(items []ast.OrderItem) error {
	for i := range items {
		resolved, err := lw.resolveExpr(items[i].Expression, 0)
		if err != nil {
			return err
		}
		items[i].Expression = resolved
	}
	return nil
}

func (lw *lowerer) lowerUnwind(u *ast.UnwindClause) error {
	resolved, err := lw.resolveExpr(u.Expression, 0)
	if err != nil {
		return err
	}
	u.Expression = resolved
	return lw.scope.bind(u.As, ast.KindScalar, u.Span)
}

// resolveExpr walks expr, resolving ast.Call nodes to FunctionCall or
// AggregateCall, validating variable references and property access, and
// recording parameter occurrences. aggDepth counts enclosing aggregate
// calls so nested aggregates can be rejected.
func (lw *lowerer) resolveExpr(expr ast.Expression, aggDepth int) (ast.Expression, error) {
	if expr == nil {
		return nil, nil
	}
	switch e := expr.(type) {
	case *ast.Variable:
		if _, ok := lw.scope.lookup(e.Name); !ok {
			return nil, diagnostics.Lower(diagnostics.UnknownVariable, diagSpan(e.Span),
				diagnostics.ErrUnknownVariable.New(e.Name))
		}
		return e, nil

	case *ast.Parameter:
		if !lw.seen[e.Name] {
			lw.seen[e.Name] = true
			lw.params = append(lw.params, e.Name)
		}
		return e, nil

	case *ast.Literal:
		if e.Kind == ast.LitList {
			for i, item := range e.List {
				r, err := lw.resolveExpr(item, aggDepth)
				if err != nil {
					return nil, err
				}
				e.List[i] = r
			}
		}
		return e, nil

	case *ast.PropertyAccess:
		target, err := lw.resolveExpr(e.Target, aggDepth)
		if err != nil {
			return nil, err
		}
		e.Target = target
		if v, ok := target.(*ast.Variable); ok {
			kind, _ := lw.scope.lookup(v.Name)
			if kind == ast.KindPath {
				return nil, diagnostics.Lower(diagnostics.InvalidPropertyAccess, diagSpan(e.Span),
					diagnostics.ErrInvalidPropertyAccess.New("variable "+v.Name+" is a variable-length path, not an entity"))
			}
		}
		return e, nil

	case *ast.LabelTest:
		target, err := lw.resolveExpr(e.Target, aggDepth)
		if err != nil {
			return nil, err
		}
		e.Target = target
		return e, nil

	case *ast.BinaryExpr:
		left, err := lw.resolveExpr(e.Left, aggDepth)
		if err != nil {
			return nil, err
		}
		right, err := lw.resolveExpr(e.Right, aggDepth)
		if err != nil {
			return nil, err
		}
		e.Left, e.Right = left, right
		return e, nil

	case *ast.NotExpr:
		operand, err := lw.resolveExpr(e.Operand, aggDepth)
		if err != nil {
			return nil, err
		}
		e.Operand = operand
		return e, nil

	case *ast.IsNullExpr:
		operand, err := lw.resolveExpr(e.Operand, aggDepth)
		if err != nil {
			return nil, err
		}
		e.Operand = operand
		return e, nil

	case *ast.ListExpr:
		for i, item := range e.Items {
			r, err := lw.resolveExpr(item, aggDepth)
			if err != nil {
				return nil, err
			}
			e.Items[i] = r
		}
		return e, nil

	case *ast.MapExpr:
		for i, entry := range e.Entries {
			r, err := lw.resolveExpr(entry.Value, aggDepth)
			if err != nil {
				return nil, err
			}
			e.Entries[i].Value = r
		}
		return e, nil

	case *ast.CaseExpr:
		if e.Operand != nil {
			r, err := lw.resolveExpr(e.Operand, aggDepth)
			if err != nil {
				return nil, err
			}
			e.Operand = r
		}
		for i := range e.Whens {
			cond, err := lw.resolveExpr(e.Whens[i].Condition, aggDepth)
			if err != nil {
				return nil, err
			}
			result, err := lw.resolveExpr(e.Whens[i].Result, aggDepth)
			if err != nil {
				return nil, err
			}
			e.Whens[i].Condition, e.Whens[i].Result = cond, result
		}
		if e.Else != nil {
			r, err := lw.resolveExpr(e.Else, aggDepth)
			if err != nil {
				return nil, err
			}
			e.Else = r
		}
		return e, nil

	case *ast.ExistsSubquery:
		// The subquery has its own nested pattern scope, seeded with the
		// enclosing scope so correlated references resolve.
		saved := lw.scope
		nested := newScope()
		nested.order = append([]string(nil), saved.order...)
		nested.kinds = make(map[string]ast.EntityKind, len(saved.kinds))
		for k, v := range saved.kinds {
			nested.kinds[k] = v
		}
		lw.scope = nested
		for _, pat := range e.Patterns {
			if err := lw.lowerPattern(pat); err != nil {
				lw.scope = saved
				return nil, err
			}
		}
		if e.Where != nil {
			resolved, err := lw.resolveExpr(e.Where, aggDepth)
			if err != nil {
				lw.scope = saved
				return nil, err
			}
			e.Where = resolved
		}
		lw.scope = saved
		return e, nil

	case *ast.Call:
		isAgg := aggregateNames[strings.ToLower(e.Name)]
		if isAgg {
			if aggDepth > 0 {
				return nil, diagnostics.Lower(diagnostics.NestedAggregate, diagSpan(e.Span),
					diagnostics.ErrNestedAggregate.New())
			}
			if e.Star {
				return &ast.AggregateCall{Name: e.Name, Distinct: e.Distinct, Star: true, Span: e.Span}, nil
			}
			if len(e.Args) != 1 {
				return nil, diagnostics.Lower(diagnostics.UnsupportedConstruct, diagSpan(e.Span),
					diagnostics.ErrUnsupportedConstruct.New(fmt.Sprintf("aggregate %s takes exactly one argument", e.Name)))
			}
			arg, err := lw.resolveExpr(e.Args[0], aggDepth+1)
			if err != nil {
				return nil, err
			}
			return &ast.AggregateCall{Name: e.Name, Distinct: e.Distinct, Arg: arg, Span: e.Span}, nil
		}
		args := make([]ast.Expression, len(e.Args))
		for i, a := range e.Args {
			r, err := lw.resolveExpr(a, aggDepth)
			if err != nil {
				return nil, err
			}
			args[i] = r
		}
		return &ast.FunctionCall{Name: e.Name, Args: args, Span: e.Span}, nil

	case *ast.FunctionCall, *ast.AggregateCall:
		// Already resolved (e.g. re-lowering); nothing to do.
		return e, nil

	default:
		return nil, diagnostics.Lower(diagnostics.UnsupportedConstruct, diagSpan(expr.Position()),
			diagnostics.ErrUnsupportedConstruct.New("unsupported expression type"))
	}
}
