package cypherql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherql/cypherql/diagnostics"
)

func TestTranslateProducesParameterizedSQL(t *testing.T) {
	res, err := Translate(`MATCH (n:Person) WHERE n.age > $min RETURN n.name AS name`, Options{})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "FROM pgraf.nodes AS n_1")
	assert.Equal(t, []string{"min"}, res.Params)
}

func TestTranslateHonorsCustomSchema(t *testing.T) {
	res, err := Translate(`MATCH (n:Person) RETURN n.name AS name`, Options{Schema: "graph"})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "FROM graph.nodes AS n_1")
}

func TestTranslateSurfacesParseErrors(t *testing.T) {
	_, err := Translate(`MATCH (n:Person RETURN n`, Options{})
	require.Error(t, err)
}

func TestTranslateSurfacesUnsupportedConstructAsLowerError(t *testing.T) {
	_, err := Translate(`CREATE (n:Person)`, Options{})
	require.Error(t, err)
	diag, ok := err.(*diagnostics.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, diagnostics.StageLower, diag.Stage)
	assert.Equal(t, diagnostics.UnsupportedConstruct, diag.LowerKind)
}

func TestTranslateSurfacesLowerErrors(t *testing.T) {
	_, err := Translate(`MATCH (a:User) RETURN b`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown variable")
}

func TestMustTranslatePanicsOnInvalidSource(t *testing.T) {
	assert.Panics(t, func() {
		MustTranslate(`CREATE (n:Person)`, Options{})
	})
}
