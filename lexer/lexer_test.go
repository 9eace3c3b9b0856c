package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherql/cypherql/token"
)

func TestLexNumber(t *testing.T) {
	cases := []lexCase{
		{"12", "12", token.Int},
		{"12.45", "12.45", token.Float},
		{"12.45.", "", token.Error},
		{"1dkejrw", "", token.Error},
	}

	testLex(t, cases, lexNumber)
}

func TestLexIdentifier(t *testing.T) {
	cases := []lexCase{
		{"match n", "MATCH", token.Keyword},
		{"n.name", "n", token.Ident},
	}

	testLex(t, cases, lexIdentifier)
}

func TestLexOp(t *testing.T) {
	cases := []lexCase{
		{"= 5", "=", token.Eq},
		{">= foo", ">=", token.Gte},
		{"<> foo", "<>", token.Neq},
	}

	testLex(t, cases, lexOp)
}

func TestLexQuote(t *testing.T) {
	cases := []lexCase{
		{`"foo bar", `, `"foo bar"`, token.String},
		{`"foo \tar", `, `"foo \tar"`, token.String},
	}

	testLex(t, cases, lexQuote)
}

func TestLexSingleQuote(t *testing.T) {
	cases := []lexCase{
		{`'foo bar', `, `'foo bar'`, token.String},
		{`'foo \'\'bar', `, `'foo \'\'bar'`, token.String},
	}

	testLex(t, cases, lexSingleQuote)
}

const line = `
MATCH (b:User)-[:FOLLOWS]->(c:User)
WHERE (b.a = 'foo') AND (b.c > 1)
RETURN b.name ORDER BY id DESC;
`

func TestLexLine(t *testing.T) {
	expected := []struct {
		kind token.Kind
		val  string
	}{
		{token.Keyword, "MATCH"},
		{token.LParen, "("},
		{token.Ident, "b"},
		{token.Colon, ":"},
		{token.Ident, "User"},
		{token.RParen, ")"},
		{token.Minus, "-"},
		{token.LBracket, "["},
		{token.Colon, ":"},
		{token.Ident, "FOLLOWS"},
		{token.RBracket, "]"},
		{token.Minus, "-"},
		{token.Gt, ">"},
		{token.LParen, "("},
		{token.Ident, "c"},
		{token.Colon, ":"},
		{token.Ident, "User"},
		{token.RParen, ")"},
		{token.Keyword, "WHERE"},
		{token.LParen, "("},
		{token.Ident, "b"},
		{token.Dot, "."},
		{token.Ident, "a"},
		{token.Eq, "="},
		{token.String, "'foo'"},
		{token.RParen, ")"},
		{token.Keyword, "AND"},
		{token.LParen, "("},
		{token.Ident, "b"},
		{token.Dot, "."},
		{token.Ident, "c"},
		{token.Gt, ">"},
		{token.Int, "1"},
		{token.RParen, ")"},
		{token.Keyword, "RETURN"},
		{token.Ident, "b"},
		{token.Dot, "."},
		{token.Ident, "name"},
		{token.Keyword, "ORDER"},
		{token.Keyword, "BY"},
		{token.Ident, "id"},
		{token.Keyword, "DESC"},
		{token.Semicolon, ";"},
	}

	l := NewLexer(strings.NewReader(line))
	require.NoError(t, l.Run())

	for _, e := range expected {
		tk := l.Next()
		require.NotNil(t, tk)
		assert.Equal(t, e.kind, tk.Kind)
		assert.Equal(t, e.val, tk.Value)
	}
}

func TestLexUnterminatedString(t *testing.T) {
	l := NewLexer(strings.NewReader(`"unterminated`))
	err := l.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated string literal")
}

func TestLexUnterminatedBlockComment(t *testing.T) {
	l := NewLexer(strings.NewReader(`/* never closes`))
	err := l.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated block comment")
}

func TestLexParameter(t *testing.T) {
	l := NewLexer(strings.NewReader(`$minAge`))
	require.NoError(t, l.Run())
	tk := l.Next()
	require.NotNil(t, tk)
	assert.Equal(t, token.Param, tk.Kind)
	assert.Equal(t, "minAge", tk.Value)
}

type lexCase struct {
	input    string
	expected string
	kind     token.Kind
}

func testLex(t *testing.T, cases []lexCase, fn stateFunc) {
	for _, c := range cases {
		l := NewLexer(strings.NewReader(c.input + " "))
		_, err := fn(l)

		if c.kind == token.Error {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, 1, len(l.tokens))
		tk := l.Next()
		require.NotNil(t, tk)
		assert.Equal(t, c.kind, tk.Kind)
		assert.Equal(t, c.expected, tk.Value)
	}
}
