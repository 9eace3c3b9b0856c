package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherql/cypherql/internal/lower"
	"github.com/cypherql/cypherql/internal/parser"
)

func compile(t *testing.T, src string, opts lower.Options) (*Result, error) {
	t.Helper()
	p, err := parser.New(src)
	require.NoError(t, err)
	q, err := p.Parse()
	require.NoError(t, err)
	q, err = lower.Lower(q, opts)
	if err != nil {
		return nil, err
	}
	return Emit(q, Options{MaxVariablePathDepth: opts.MaxVariablePathDepth})
}

func TestEmitSimpleMatchReturn(t *testing.T) {
	res, err := compile(t, `MATCH (n:Person) RETURN n.name AS name`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "FROM pgraf.nodes AS n_1")
	assert.Contains(t, res.SQL, "'Person' = ANY(n_1.labels)")
	assert.Contains(t, res.SQL, "(n_1.properties ->> 'name') AS name")
}

func TestEmitRelationshipJoin(t *testing.T) {
	res, err := compile(t, `MATCH (a:User)-[r:FOLLOWS]->(b:User) RETURN a, b`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "JOIN pgraf.edges AS r_")
	assert.Contains(t, res.SQL, "a_1.id = r_")
	assert.Contains(t, res.SQL, "'FOLLOWS' = ANY(r_")
	assert.Contains(t, res.SQL, "JOIN pgraf.nodes AS b_")
}

func TestEmitIncomingDirectionSwapsEdgeColumns(t *testing.T) {
	res, err := compile(t, `MATCH (a)<-[r:OWNS]-(b) RETURN a`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, ".target")
	assert.Contains(t, res.SQL, ".source")
}

func TestEmitUndirectedRelationshipCorrelatesBothOrientations(t *testing.T) {
	res, err := compile(t, `MATCH (a)-[r:KNOWS]-(b) RETURN a, b`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "OR")
	assert.Contains(t, res.SQL, "source AND")
}

func TestEmitOptionalMatchUsesLeftJoin(t *testing.T) {
	res, err := compile(t, `OPTIONAL MATCH (a:User)-[:FOLLOWS]->(b:User) RETURN a, b`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "LEFT JOIN pgraf.edges")
	assert.Contains(t, res.SQL, "LEFT JOIN pgraf.nodes")
}

func TestEmitWherePredicateCoercesNumericComparison(t *testing.T) {
	res, err := compile(t, `MATCH (n:Person) WHERE n.age > 21 RETURN n.name AS name`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "::numeric > 21")
}

func TestEmitParameterPlaceholdersAreOrdered(t *testing.T) {
	res, err := compile(t, `MATCH (n:Person) WHERE n.age > $min AND n.age < $max RETURN n.name AS name, $min AS m`, lower.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"min", "max"}, res.ParamNames)
	assert.Contains(t, res.SQL, "$1")
	assert.Contains(t, res.SQL, "$2")
}

func TestEmitVariableLengthRelationshipProducesRecursiveCTE(t *testing.T) {
	res, err := compile(t, `MATCH (a:User)-[:FOLLOWS*1..3]->(b:User) RETURN a, b`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "WITH RECURSIVE path_1")
	assert.Contains(t, res.SQL, "UNION ALL")
	assert.Contains(t, res.SQL, "depth < 3")
	assert.Contains(t, res.SQL, "depth >= 1")
}

func TestEmitRejectsUndirectedVariableLengthRelationship(t *testing.T) {
	_, err := compile(t, `MATCH (a)-[*1..3]-(b) RETURN a`, lower.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undirected variable-length")
}

func TestEmitWithClauseStagesAggregateAndFiltersLikeHaving(t *testing.T) {
	res, err := compile(t, `MATCH (n:Person)-[:POSTED]->(p:Post)
WITH n, count(p) AS postCount
WHERE postCount > 2
RETURN n.name AS name, postCount ORDER BY postCount DESC LIMIT 10`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "WITH stage_1 AS (")
	assert.Contains(t, res.SQL, "COUNT(p_")
	assert.Contains(t, res.SQL, "GROUP BY")
	assert.Contains(t, res.SQL, "stage_1.postCount > 2")
	assert.Contains(t, res.SQL, "ORDER BY stage_1.postCount DESC")
	assert.Contains(t, res.SQL, "LIMIT 10")
}

func TestEmitWithClauseCarriesEntityAsCompositeColumn(t *testing.T) {
	res, err := compile(t, `MATCH (n:Person) WITH n RETURN n.name AS name`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "SELECT n_1 AS n")
	assert.Contains(t, res.SQL, "(stage_1.n).properties ->> 'name'")
}

func TestEmitUnwindCompilesToLateralUnnest(t *testing.T) {
	res, err := compile(t, `MATCH (n:Person) UNWIND [1, 2, 3] AS x RETURN x`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "CROSS JOIN LATERAL unnest(ARRAY[1, 2, 3]) AS x_")
	assert.Contains(t, res.SQL, ".value AS x")
}

func TestEmitDistinctAndStarProjection(t *testing.T) {
	res, err := compile(t, `MATCH (n:Person) RETURN DISTINCT *`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "SELECT DISTINCT n_1 AS n")
}

func TestEmitExistsSubqueryCorrelatesOnOuterAlias(t *testing.T) {
	res, err := compile(t, `MATCH (u:User) WHERE EXISTS { MATCH (u)-[r:POSTED]->(:Post) } RETURN u`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "EXISTS (SELECT 1 FROM")
	assert.Contains(t, res.SQL, "u_1.id = r_")
}

func TestEmitLabelTestCompilesToAnyLabels(t *testing.T) {
	res, err := compile(t, `MATCH (n) WHERE n:Person RETURN n`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "'Person' = ANY(n_1.labels)")
}

func TestEmitCaseExpression(t *testing.T) {
	res, err := compile(t, `MATCH (n:Person) RETURN CASE WHEN n.age < 18 THEN 'minor' ELSE 'adult' END AS bucket`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "CASE WHEN")
	assert.Contains(t, res.SQL, "THEN 'minor'")
	assert.Contains(t, res.SQL, "ELSE 'adult'")
}

func TestEmitPatternPropertyEqualityUsesParameterPlaceholder(t *testing.T) {
	res, err := compile(t, `MATCH (n:Person {name: $name}) RETURN n.age AS age`, lower.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "(n_1.properties ->> 'name') = $1")
}
