package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherql/cypherql/ast"
	"github.com/cypherql/cypherql/diagnostics"
)

func parse(t *testing.T, src string) *ast.Query {
	t.Helper()
	p, err := New(src)
	require.NoError(t, err)
	q, err := p.Parse()
	require.NoError(t, err)
	return q
}

func TestParseMatchReturn(t *testing.T) {
	q := parse(t, `MATCH (a:User)-[:FOLLOWS]->(b:User) RETURN a.name, b.name`)
	require.Len(t, q.Clauses, 2)

	match, ok := q.Clauses[0].(*ast.MatchClause)
	require.True(t, ok)
	require.Len(t, match.Patterns, 1)
	pat := match.Patterns[0]
	require.Len(t, pat.Nodes, 2)
	require.Len(t, pat.Rels, 1)
	assert.Equal(t, "a", pat.Nodes[0].Variable)
	assert.Equal(t, []string{"User"}, pat.Nodes[0].Labels)
	assert.Equal(t, ast.DirOut, pat.Rels[0].Direction)
	assert.Equal(t, []string{"FOLLOWS"}, pat.Rels[0].Labels)
	assert.False(t, pat.Rels[0].UserNamed)

	ret, ok := q.Clauses[1].(*ast.ReturnClause)
	require.True(t, ok)
	require.Len(t, ret.Items, 2)
}

func TestParseWhereClause(t *testing.T) {
	q := parse(t, `MATCH (n:Person) WHERE n.age >= 21 AND n.name <> 'bob' RETURN n`)
	match := q.Clauses[0].(*ast.MatchClause)
	require.NotNil(t, match.Where)

	and, ok := match.Where.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAnd, and.Op)

	left, ok := and.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpGte, left.Op)

	right, ok := and.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpNeq, right.Op)
}

func TestParseUndirectedAndIncoming(t *testing.T) {
	q := parse(t, `MATCH (a)--(b) RETURN a`)
	pat := q.Clauses[0].(*ast.MatchClause).Patterns[0]
	assert.Equal(t, ast.DirUndirected, pat.Rels[0].Direction)

	q2 := parse(t, `MATCH (a)<-[:OWNS]-(b) RETURN a`)
	pat2 := q2.Clauses[0].(*ast.MatchClause).Patterns[0]
	assert.Equal(t, ast.DirIn, pat2.Rels[0].Direction)
}

func TestParseVariableLength(t *testing.T) {
	cases := []struct {
		src      string
		min, max *int
	}{
		{`MATCH (a)-[*]-(b) RETURN a`, nil, nil},
		{`MATCH (a)-[*3]-(b) RETURN a`, intp(3), intp(3)},
		{`MATCH (a)-[*1..3]-(b) RETURN a`, intp(1), intp(3)},
		{`MATCH (a)-[*..3]-(b) RETURN a`, nil, intp(3)},
		{`MATCH (a)-[*1..]-(b) RETURN a`, intp(1), nil},
	}
	for _, c := range cases {
		q := parse(t, c.src)
		rel := q.Clauses[0].(*ast.MatchClause).Patterns[0].Rels[0]
		require.True(t, rel.Length.Variable, c.src)
		assertIntPtrEqual(t, c.min, rel.Length.Min, c.src)
		assertIntPtrEqual(t, c.max, rel.Length.Max, c.src)
	}
}

func TestParseMultiTypeRelationship(t *testing.T) {
	q := parse(t, `MATCH (a)-[:LIKES|FOLLOWS]->(b) RETURN a`)
	rel := q.Clauses[0].(*ast.MatchClause).Patterns[0].Rels[0]
	assert.Equal(t, []string{"LIKES", "FOLLOWS"}, rel.Labels)
}

func TestParseWithAggregateAndOrderLimit(t *testing.T) {
	q := parse(t, `MATCH (n:Person)-[:POSTED]->(p:Post)
WITH n, count(p) AS postCount
WHERE postCount > 2
RETURN n.name, postCount ORDER BY postCount DESC LIMIT 10`)
	require.Len(t, q.Clauses, 3)

	with := q.Clauses[1].(*ast.WithClause)
	require.Len(t, with.Items, 2)
	call, ok := with.Items[1].Expression.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "count", call.Name)
	assert.Equal(t, "postCount", with.Items[1].Alias)
	require.NotNil(t, with.Where)

	ret := q.Clauses[2].(*ast.ReturnClause)
	require.Len(t, ret.OrderBy, 1)
	assert.True(t, ret.OrderBy[0].Descending)
	require.NotNil(t, ret.Limit)
}

func TestParseUnwind(t *testing.T) {
	q := parse(t, `UNWIND [1, 2, 3] AS x RETURN x`)
	unwind := q.Clauses[0].(*ast.UnwindClause)
	assert.Equal(t, "x", unwind.As)
	list, ok := unwind.Expression.(*ast.ListExpr)
	require.True(t, ok)
	assert.Len(t, list.Items, 3)
}

func TestParseCaseExpr(t *testing.T) {
	q := parse(t, `RETURN CASE WHEN n.age < 18 THEN 'minor' ELSE 'adult' END`)
	ret := q.Clauses[0].(*ast.ReturnClause)
	c, ok := ret.Items[0].Expression.(*ast.CaseExpr)
	require.True(t, ok)
	require.Nil(t, c.Operand)
	require.Len(t, c.Whens, 1)
	require.NotNil(t, c.Else)
}

func TestParseExistsSubquery(t *testing.T) {
	q := parse(t, `MATCH (u:User) WHERE EXISTS { MATCH (u)-[:POSTED]->(:Post) } RETURN u`)
	match := q.Clauses[0].(*ast.MatchClause)
	exists, ok := match.Where.(*ast.ExistsSubquery)
	require.True(t, ok)
	require.Len(t, exists.Patterns, 1)
}

func TestParseStarProjection(t *testing.T) {
	q := parse(t, `MATCH (n) RETURN *`)
	ret := q.Clauses[1].(*ast.ReturnClause)
	require.Len(t, ret.Items, 1)
	assert.True(t, ret.Items[0].Star)
}

func TestParsePropertyMap(t *testing.T) {
	q := parse(t, `MATCH (n:Person {name: 'bob', age: 21}) RETURN n`)
	node := q.Clauses[0].(*ast.MatchClause).Patterns[0].Nodes[0]
	require.Len(t, node.Properties, 2)
	assert.Equal(t, "name", node.Properties[0].Name)
}

func TestParseAnonymousVariablesGetFreshNames(t *testing.T) {
	q := parse(t, `MATCH (a)-->() RETURN a`)
	pat := q.Clauses[0].(*ast.MatchClause).Patterns[0]
	assert.NotEmpty(t, pat.Nodes[1].Variable)
	assert.False(t, pat.Nodes[1].UserNamed)
}

func TestParseRejectsUnsupportedConstructs(t *testing.T) {
	for _, src := range []string{
		`CREATE (n:Person) RETURN n`,
		`MATCH (n) SET n.age = 1 RETURN n`,
		`MATCH (n) DELETE n`,
		`CALL db.labels()`,
	} {
		p, err := New(src)
		require.NoError(t, err)
		_, err = p.Parse()
		require.Error(t, err, src)
		assert.Contains(t, err.Error(), "unsupported construct", src)

		diag, ok := err.(*diagnostics.Diagnostic)
		require.True(t, ok, src)
		assert.Equal(t, diagnostics.StageLower, diag.Stage, src)
		assert.Equal(t, diagnostics.UnsupportedConstruct, diag.LowerKind, src)
	}
}

func TestParseRejectsTrailingInput(t *testing.T) {
	p, err := New(`MATCH (n) RETURN n RETURN n`)
	require.NoError(t, err)
	_, err = p.Parse()
	require.Error(t, err)
}

func TestParseRejectsEmptyQuery(t *testing.T) {
	p, err := New(``)
	require.NoError(t, err)
	_, err = p.Parse()
	require.Error(t, err)
}

func intp(v int) *int { return &v }

func assertIntPtrEqual(t *testing.T, want, got *int, msg string) {
	t.Helper()
	if want == nil || got == nil {
		assert.Equal(t, want, got, msg)
		return
	}
	assert.Equal(t, *want, *got, msg)
}
