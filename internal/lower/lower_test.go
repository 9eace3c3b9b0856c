package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherql/cypherql/ast"
	"github.com/cypherql/cypherql/internal/parser"
)

func lowerSrc(t *testing.T, src string, opts Options) (*ast.Query, error) {
	t.Helper()
	p, err := parser.New(src)
	require.NoError(t, err)
	q, err := p.Parse()
	require.NoError(t, err)
	return Lower(q, opts)
}

func TestLowerBindsNodeAndRelationshipKinds(t *testing.T) {
	q, err := lowerSrc(t, `MATCH (a:User)-[r:FOLLOWS]->(b:User) RETURN a, r, b`, Options{})
	require.NoError(t, err)
	ret := q.Clauses[1].(*ast.ReturnClause)
	require.Len(t, ret.Items, 3)
}

func TestLowerRejectsVariableKindConflict(t *testing.T) {
	_, err := lowerSrc(t, `MATCH (a:User), (a)-[a:FOLLOWS]->(b) RETURN a`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already bound as")
}

func TestLowerRejectsUnknownVariable(t *testing.T) {
	_, err := lowerSrc(t, `MATCH (a:User) RETURN b`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown variable")
}

func TestLowerAppliesDefaultMaxDepth(t *testing.T) {
	q, err := lowerSrc(t, `MATCH (a)-[*]-(b) RETURN a`, Options{})
	require.NoError(t, err)
	match := q.Clauses[0].(*ast.MatchClause)
	rel := match.Patterns[0].Rels[0]
	require.NotNil(t, rel.Length.Max)
	assert.Equal(t, DefaultMaxVariablePathDepth, *rel.Length.Max)
}

func TestLowerHonorsConfiguredMaxDepth(t *testing.T) {
	q, err := lowerSrc(t, `MATCH (a)-[*]-(b) RETURN a`, Options{MaxVariablePathDepth: 4})
	require.NoError(t, err)
	rel := q.Clauses[0].(*ast.MatchClause).Patterns[0].Rels[0]
	assert.Equal(t, 4, *rel.Length.Max)
}

func TestLowerRejectsInvertedVariableLengthRange(t *testing.T) {
	_, err := lowerSrc(t, `MATCH (a)-[*5..2]-(b) RETURN a`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min greater than max")
}

func TestLowerResolvesAggregateCalls(t *testing.T) {
	q, err := lowerSrc(t, `MATCH (n:Person)-[:POSTED]->(p:Post) RETURN n.name, count(p) AS postCount`, Options{})
	require.NoError(t, err)
	ret := q.Clauses[1].(*ast.ReturnClause)
	agg, ok := ret.Items[1].Expression.(*ast.AggregateCall)
	require.True(t, ok)
	assert.Equal(t, "count", agg.Name)
}

func TestLowerRejectsNestedAggregates(t *testing.T) {
	_, err := lowerSrc(t, `MATCH (n:Person)-[:POSTED]->(p:Post) RETURN count(count(p)) AS x`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nested")
}

func TestLowerRejectsPropertyAccessOnPath(t *testing.T) {
	_, err := lowerSrc(t, `MATCH (a)-[r*1..3]-(b) RETURN r.name`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid property access")
}

func TestLowerWithNarrowsScope(t *testing.T) {
	_, err := lowerSrc(t, `MATCH (a:User)-[:FOLLOWS]->(b:User) WITH a RETURN b`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown variable")
}

func TestLowerStarExpandsToScopedVariables(t *testing.T) {
	q, err := lowerSrc(t, `MATCH (a:User)-[:FOLLOWS]->(b:User) RETURN *`, Options{})
	require.NoError(t, err)
	ret := q.Clauses[1].(*ast.ReturnClause)
	require.Len(t, ret.Items, 3)
	assert.Equal(t, "a", ret.Items[0].Alias)
}

func TestLowerCollectsParametersInOrder(t *testing.T) {
	q, err := lowerSrc(t, `MATCH (n:Person) WHERE n.age > $minAge AND n.age < $maxAge RETURN n.name, $minAge AS m`, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"minAge", "maxAge"}, q.Params)
}

func TestLowerRejectsQueryWithoutMatch(t *testing.T) {
	_, err := lowerSrc(t, `UNWIND [1,2] AS x RETURN x`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one MATCH")
}

func TestLowerSynthesizesAliasForComplexProjection(t *testing.T) {
	q, err := lowerSrc(t, `MATCH (n:Person) RETURN n.age + 1`, Options{})
	require.NoError(t, err)
	ret := q.Clauses[1].(*ast.ReturnClause)
	assert.Equal(t, "col_1", ret.Items[0].Alias)
}

func TestLowerSynthesizesAliasFromAggregateName(t *testing.T) {
	q, err := lowerSrc(t, `MATCH (u:User) WHERE u.age > 25 RETURN COUNT(u)`, Options{})
	require.NoError(t, err)
	ret := q.Clauses[1].(*ast.ReturnClause)
	assert.Equal(t, "count", ret.Items[0].Alias)
}

func TestLowerDisambiguatesRepeatedSynthesizedAliases(t *testing.T) {
	q, err := lowerSrc(t, `MATCH (n:Person) RETURN count(n), count(n)`, Options{})
	require.NoError(t, err)
	ret := q.Clauses[1].(*ast.ReturnClause)
	assert.Equal(t, "count", ret.Items[0].Alias)
	assert.Equal(t, "count_2", ret.Items[1].Alias)
}

func TestLowerStillRejectsDuplicateExplicitAliases(t *testing.T) {
	_, err := lowerSrc(t, `MATCH (n:Person) RETURN n.age AS x, n.name AS x`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate projection alias")
}
