// Package emit lowers a validated *ast.Query (internal/lower's output) into
// a parameterized PostgreSQL statement over a property-graph-on-relational
// schema: nodes(id, labels text[], properties jsonb) and
// edges(id, source, target, labels text[], properties jsonb).
//
// Each WITH clause closes the query built so far into its own named CTE and
// starts a fresh join graph reading from it; a relationship pattern with a
// variable-length range compiles to its own `WITH RECURSIVE` CTE, grounded
// on the same depth-column / UNION ALL shape used by hand-written Cypher-to-
// SQL transpilers in the wild.
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cypherql/cypherql/ast"
	"github.com/cypherql/cypherql/diagnostics"
	"github.com/cypherql/cypherql/internal/lower"
)

// DefaultSchema is the nodes/edges table schema used when Options.Schema
// is left empty, matching spec.md's normative default.
const DefaultSchema = "pgraf"

// Options configures emission.
type Options struct {
	// MaxVariablePathDepth mirrors lower.Options so a caller driving the
	// pipeline end to end only has to set it once. Emit does not read it:
	// lower.Lower has already given every variable-length relationship an
	// upper bound by the time a query reaches this package, and one that
	// still has none is bounded by lower.DefaultMaxVariablePathDepth.
	MaxVariablePathDepth int

	// Schema is the Postgres schema the nodes/edges tables live under.
	// Defaults to DefaultSchema when empty.
	Schema string
}

// Result is the emitter's output: the statement text plus the parameter
// names in the order their $N placeholders were assigned.
type Result struct {
	SQL        string
	ParamNames []string
}

// Emit compiles a lowered query into a single parameterized SQL statement.
func Emit(q *ast.Query, opts Options) (*Result, error) {
	schema := opts.Schema
	if schema == "" {
		schema = DefaultSchema
	}
	b := newBuilder(q.Params, schema)
	if err := b.run(q); err != nil {
		return nil, err
	}
	return &Result{SQL: b.finish(), ParamNames: q.Params}, nil
}

type builder struct {
	schema     string
	aliasOf    map[string]string
	varCounter int
	fromParts  []string
	whereParts []string
	ctes       []string
	stageSeq   int
	pathSeq    int
	paramIndex map[string]int
	finalSQL   string
}

func newBuilder(paramNames []string, schema string) *builder {
	idx := make(map[string]int, len(paramNames))
	for i, n := range paramNames {
		idx[n] = i + 1
	}
	return &builder{schema: schema, aliasOf: map[string]string{}, paramIndex: idx}
}

func (b *builder) nodesTable() string { return b.schema + ".nodes" }
func (b *builder) edgesTable() string { return b.schema + ".edges" }

func (b *builder) newAlias(varName string) string {
	b.varCounter++
	alias := fmt.Sprintf("%s_%d", varName, b.varCounter)
	b.aliasOf[varName] = alias
	return alias
}

func (b *builder) resetStage() {
	b.aliasOf = map[string]string{}
	b.fromParts = nil
	b.whereParts = nil
}

// run walks the query's clauses, closing a CTE at each WithClause and
// emitting the final SELECT at the terminal ReturnClause.
func (b *builder) run(q *ast.Query) error {
	var finalSelect string
	for i, c := range q.Clauses {
		switch cl := c.(type) {
		case *ast.MatchClause:
			for _, pat := range cl.Patterns {
				if err := b.addPattern(pat, cl.Optional); err != nil {
					return err
				}
			}
			if cl.Where != nil {
				where, err := b.compileExpr(cl.Where)
				if err != nil {
					return err
				}
				b.whereParts = append(b.whereParts, where)
			}
		case *ast.UnwindClause:
			if err := b.addUnwind(cl); err != nil {
				return err
			}
		case *ast.WithClause:
			if err := b.closeStage(cl); err != nil {
				return err
			}
		case *ast.ReturnClause:
			sel, err := b.buildSelect(cl.Items, cl.Distinct, cl.OrderBy, cl.Skip, cl.Limit)
			if err != nil {
				return err
			}
			finalSelect = sel
			if i != len(q.Clauses)-1 {
				return diagnostics.Emit(diagnostics.Span{}, "RETURN must be the final clause")
			}
		}
	}
	if finalSelect == "" {
		return diagnostics.Emit(diagnostics.Span{}, "query has no RETURN clause to emit")
	}
	b.finalSQL = finalSelect
	return nil
}

// finish assembles any accumulated CTEs (path CTEs and stage CTEs, in the
// order they were produced) in front of the final SELECT. A path CTE refers
// to itself, so when one is present the list is introduced by WITH RECURSIVE.
func (b *builder) finish() string {
	if len(b.ctes) == 0 {
		return b.finalSQL
	}
	with := "WITH "
	if b.pathSeq > 0 {
		with = "WITH RECURSIVE "
	}
	return with + strings.Join(b.ctes, ",\n") + "\n" + b.finalSQL
}

func (b *builder) addUnwind(u *ast.UnwindClause) error {
	listSQL, err := b.compileExpr(u.Expression)
	if err != nil {
		return err
	}
	b.varCounter++
	alias := fmt.Sprintf("%s_%d", u.As, b.varCounter)
	b.fromParts = append(b.fromParts, fmt.Sprintf("CROSS JOIN LATERAL unnest(%s) AS %s(value)", listSQL, alias))
	b.aliasOf[u.As] = alias + ".value"
	return nil
}

// addPattern walks one alternating node/relationship chain, allocating
// aliases and FROM/JOIN fragments as it goes.
func (b *builder) addPattern(pat *ast.Pattern, optional bool) error {
	if len(pat.Nodes) == 0 {
		return nil
	}
	if err := b.ensureNodeFrom(pat.Nodes[0], optional); err != nil {
		return err
	}
	for i, rel := range pat.Rels {
		left := pat.Nodes[i]
		right := pat.Nodes[i+1]
		if err := b.joinRelAndNode(left, rel, right, optional); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) ensureNodeFrom(n *ast.NodePattern, optional bool) error {
	if alias, ok := b.aliasOf[n.Variable]; ok {
		pred, err := b.nodePredicate(alias, n)
		if err != nil {
			return err
		}
		if pred != "" {
			b.whereParts = append(b.whereParts, pred)
		}
		return nil
	}
	alias := b.newAlias(n.Variable)
	pred, err := b.nodePredicate(alias, n)
	if err != nil {
		return err
	}
	switch {
	case len(b.fromParts) == 0:
		b.fromParts = append(b.fromParts, fmt.Sprintf("%s AS %s", b.nodesTable(), alias))
		if pred != "" {
			b.whereParts = append(b.whereParts, pred)
		}
	case optional:
		on := pred
		if on == "" {
			on = "TRUE"
		}
		b.fromParts = append(b.fromParts, fmt.Sprintf("LEFT JOIN %s AS %s ON %s", b.nodesTable(), alias, on))
	default:
		b.fromParts = append(b.fromParts, fmt.Sprintf("CROSS JOIN %s AS %s", b.nodesTable(), alias))
		if pred != "" {
			b.whereParts = append(b.whereParts, pred)
		}
	}
	return nil
}

func (b *builder) joinRelAndNode(left *ast.NodePattern, rel *ast.RelPattern, right *ast.NodePattern, optional bool) error {
	joinType := "JOIN"
	if optional {
		joinType = "LEFT JOIN"
	}
	leftAlias := b.aliasOf[left.Variable]

	if rel.Length.Variable {
		return b.joinVariableLengthRel(leftAlias, left, rel, right, joinType)
	}

	relAlias := b.newAlias(rel.Variable)
	relLabelPred := labelPredicate(relAlias, rel.Labels)
	propPred, err := b.propertyPredicates(relAlias, rel.Properties)
	if err != nil {
		return err
	}

	// srcCol/dstCol name which edges column the left node matches on; the
	// right node always matches the other one. Undirected patterns instead
	// accept either orientation via an OR'd pair of conditions.
	var srcCol, dstCol string
	switch rel.Direction {
	case ast.DirOut:
		srcCol, dstCol = "source", "target"
	case ast.DirIn:
		srcCol, dstCol = "target", "source"
	}

	// For an undirected pattern the left endpoint alone does not pin down
	// which edges column it matches; that is only decidable once the right
	// node's alias is known too, so the endpoint correlation for the
	// undirected case is built after rightAlias is allocated below.
	var relOn string
	if rel.Direction == ast.DirUndirected {
		relOn = "TRUE"
	} else {
		relOn = fmt.Sprintf("%s.id = %s.%s", leftAlias, relAlias, srcCol)
	}
	for _, extra := range []string{relLabelPred, propPred} {
		if extra != "" {
			relOn = relOn + " AND " + extra
		}
	}
	if len(b.fromParts) == 0 {
		// The left endpoint is a variable correlated from an enclosing
		// query (EXISTS{} referencing an outer-bound node) rather than one
		// introduced in this join graph, so there is no preceding FROM item
		// to JOIN against yet; the edge becomes the base relation and its
		// endpoint condition moves to WHERE.
		b.fromParts = append(b.fromParts, fmt.Sprintf("%s AS %s", b.edgesTable(), relAlias))
		b.whereParts = append(b.whereParts, relOn)
	} else {
		b.fromParts = append(b.fromParts, fmt.Sprintf("%s %s AS %s ON %s", joinType, b.edgesTable(), relAlias, relOn))
	}

	rightAlias, rightKnown := b.aliasOf[right.Variable]
	if !rightKnown {
		rightAlias = b.newAlias(right.Variable)
	}
	var rightOn string
	if rel.Direction == ast.DirUndirected {
		rightOn = fmt.Sprintf(
			"((%s.id = %s.source AND %s.id = %s.target) OR (%s.id = %s.target AND %s.id = %s.source))",
			leftAlias, relAlias, rightAlias, relAlias,
			leftAlias, relAlias, rightAlias, relAlias,
		)
	} else {
		rightOn = fmt.Sprintf("%s.id = %s.%s", rightAlias, relAlias, dstCol)
	}
	nodePred, err := b.nodePredicate(rightAlias, right)
	if err != nil {
		return err
	}
	if nodePred != "" {
		if optional {
			rightOn = rightOn + " AND " + nodePred
		} else {
			b.whereParts = append(b.whereParts, nodePred)
		}
	}
	b.fromParts = append(b.fromParts, fmt.Sprintf("%s %s AS %s ON %s", joinType, b.nodesTable(), rightAlias, rightOn))
	return nil
}

// joinVariableLengthRel compiles a `*min..max` relationship into its own
// recursive CTE (base case: direct edges; recursive case: extend by one
// hop, capped at Length.Max) and joins it the same way an ordinary
// relationship edge is joined.
func (b *builder) joinVariableLengthRel(leftAlias string, left *ast.NodePattern, rel *ast.RelPattern, right *ast.NodePattern, joinType string) error {
	if rel.Direction == ast.DirUndirected {
		return diagnostics.Emit(diagnostics.Span{}, "undirected variable-length relationships are not supported")
	}
	b.pathSeq++
	cte := fmt.Sprintf("path_%d", b.pathSeq)
	labelPred := labelPredicate("e", rel.Labels)
	labelCond := ""
	if labelPred != "" {
		labelCond = " AND " + labelPred
	}
	maxDepth := lower.DefaultMaxVariablePathDepth
	if rel.Length.Max != nil {
		maxDepth = *rel.Length.Max
	}

	var srcCol, dstCol string
	if rel.Direction == ast.DirOut {
		srcCol, dstCol = "source", "target"
	} else {
		srcCol, dstCol = "target", "source"
	}

	def := fmt.Sprintf(
		"%s(source, target, depth) AS (\n"+
			"  SELECT e.%s, e.%s, 1 FROM %s e WHERE TRUE%s\n"+
			"  UNION ALL\n"+
			"  SELECT p.source, e.%s, p.depth + 1 FROM %s p JOIN %s e ON p.target = e.%s WHERE p.depth < %d%s\n"+
			")",
		cte, srcCol, dstCol, b.edgesTable(), labelCond,
		dstCol, cte, b.edgesTable(), srcCol, maxDepth, labelCond,
	)
	b.ctes = append(b.ctes, def)

	pathAlias := fmt.Sprintf("%s_p", cte)
	pathOn := fmt.Sprintf("%s.id = %s.source", leftAlias, pathAlias)
	if len(b.fromParts) == 0 {
		b.fromParts = append(b.fromParts, fmt.Sprintf("%s AS %s", cte, pathAlias))
		b.whereParts = append(b.whereParts, pathOn)
	} else {
		b.fromParts = append(b.fromParts, fmt.Sprintf("%s %s AS %s ON %s", joinType, cte, pathAlias, pathOn))
	}
	if rel.Length.Min != nil {
		b.whereParts = append(b.whereParts, fmt.Sprintf("%s.depth >= %d", pathAlias, *rel.Length.Min))
	}
	b.aliasOf[rel.Variable] = pathAlias

	rightAlias, rightKnown := b.aliasOf[right.Variable]
	if !rightKnown {
		rightAlias = b.newAlias(right.Variable)
	}
	on := fmt.Sprintf("%s.id = %s.target", rightAlias, pathAlias)
	nodePred, err := b.nodePredicate(rightAlias, right)
	if err != nil {
		return err
	}
	if nodePred != "" {
		b.whereParts = append(b.whereParts, nodePred)
	}
	b.fromParts = append(b.fromParts, fmt.Sprintf("%s %s AS %s ON %s", joinType, b.nodesTable(), rightAlias, on))
	return nil
}

func (b *builder) nodePredicate(alias string, n *ast.NodePattern) (string, error) {
	var parts []string
	if lp := labelPredicate(alias, n.Labels); lp != "" {
		parts = append(parts, lp)
	}
	pp, err := b.propertyPredicates(alias, n.Properties)
	if err != nil {
		return "", err
	}
	if pp != "" {
		parts = append(parts, pp)
	}
	return strings.Join(parts, " AND "), nil
}

func labelPredicate(alias string, labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s = ANY(%s.labels)", quoteLiteral(l), alias)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (b *builder) propertyPredicates(alias string, props []ast.PropertyEquality) (string, error) {
	if len(props) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(props))
	for _, p := range props {
		col := fmt.Sprintf("(%s.properties ->> %s)", alias, quoteLiteral(p.Name))
		valSQL, err := b.compileExpr(p.Value)
		if err != nil {
			return "", err
		}
		col, valSQL = applyCoercion(col, p.Value, valSQL)
		parts = append(parts, fmt.Sprintf("%s = %s", col, valSQL))
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

// applyCoercion casts a jsonb text extraction to the type implied by the
// literal it is compared against (spec.md's coercion rule): numeric and
// boolean property values must be cast out of their default text form;
// strings and parameters are compared as text.
func applyCoercion(col string, valueExpr ast.Expression, valSQL string) (string, string) {
	if lit, ok := valueExpr.(*ast.Literal); ok {
		switch lit.Kind {
		case ast.LitInt, ast.LitFloat:
			return col + "::numeric", valSQL
		case ast.LitBool:
			return col + "::boolean", valSQL
		}
	}
	return col, valSQL
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (b *builder) paramPlaceholder(name string) (string, error) {
	idx, ok := b.paramIndex[name]
	if !ok {
		return "", diagnostics.Emit(diagnostics.Span{}, "reference to unbound parameter $%s", name)
	}
	return "$" + strconv.Itoa(idx), nil
}
