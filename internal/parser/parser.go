// Package parser implements a hand-written recursive-descent parser over
// the lexer's token stream, producing a provisional *ast.Query. It follows
// the classic "current/peek token" shape: no lookahead beyond one token is
// ever required because every construct in the grammar is distinguished by
// its leading keyword or punctuation.
//
// The parser recognizes the unsupported clause keywords (CREATE, MERGE,
// SET, DELETE, DETACH, REMOVE, CALL, UNION) and refuses such a clause
// immediately rather than trying to parse and discard it, since silently
// accepting and dropping a write clause would be worse than refusing it
// outright. These clause keywords are rejected as a LowerError of kind
// UnsupportedConstruct, not a ParseError, since the construct is
// syntactically well-formed Cypher that this pipeline simply declines to
// lower. shortestPath, path variables, map projections and list
// comprehensions are not recognized by name: they fail as ordinary
// ParseErrors at the first token the grammar does not accept.
package parser

import (
	"strconv"
	"strings"

	"github.com/cypherql/cypherql/ast"
	"github.com/cypherql/cypherql/diagnostics"
	"github.com/cypherql/cypherql/lexer"
	"github.com/cypherql/cypherql/token"
)

// Parser consumes a token stream and builds a provisional *ast.Query.
type Parser struct {
	lex     *lexer.Lexer
	cur     *token.Token
	anonSeq int
}

// New runs the lexer to completion and returns a Parser positioned before
// the first token.
func New(src string) (*Parser, error) {
	l := lexer.NewLexer(strings.NewReader(src))
	if err := l.Run(); err != nil {
		return nil, err
	}
	p := &Parser{lex: l}
	p.advance()
	return p, nil
}

// Parse consumes the entire token stream and returns the top-level query.
// A trailing Semicolon is permitted and consumed; anything after it is a
// ParseError, since this package only ever translates a single statement.
func (p *Parser) Parse() (*ast.Query, error) {
	q := &ast.Query{}
	for p.cur != nil {
		clause, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, clause)
		if _, terminal := clause.(*ast.ReturnClause); terminal {
			break
		}
		if p.curIs(token.Semicolon) {
			p.advance()
			break
		}
	}
	if p.curIs(token.Semicolon) {
		p.advance()
	}
	if p.cur != nil {
		return nil, p.errf("unexpected trailing input after the query's final clause: %q", p.cur.Value)
	}
	if len(q.Clauses) == 0 {
		return nil, p.errf("empty query")
	}
	return q, nil
}

// --- token plumbing -------------------------------------------------------

func (p *Parser) advance() {
	p.cur = p.lex.Next()
}

func (p *Parser) curIs(k token.Kind) bool {
	return p.cur != nil && p.cur.Kind == k
}

func (p *Parser) curIsKeyword(kw string) bool {
	return p.cur != nil && p.cur.Kind == token.Keyword && p.cur.Value == kw
}

func (p *Parser) span() token.Span {
	if p.cur != nil {
		return p.cur.Span
	}
	return token.Span{}
}

func diagSpan(sp token.Span) diagnostics.Span {
	return diagnostics.Span{
		StartOffset: sp.StartOffset,
		EndOffset:   sp.EndOffset,
		Line:        sp.Line,
		Column:      sp.Column,
	}
}

func (p *Parser) errf(format string, args ...interface{}) error {
	return diagnostics.Parse(diagSpan(p.span()), format, args...)
}

func (p *Parser) expect(k token.Kind) (*token.Token, error) {
	if p.cur == nil || p.cur.Kind != k {
		return nil, p.errf("expected %s, got %s", k, p.curDesc())
	}
	t := p.cur
	p.advance()
	return t, nil
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.curIsKeyword(kw) {
		return p.errf("expected keyword %s, got %s", kw, p.curDesc())
	}
	p.advance()
	return nil
}

func (p *Parser) curDesc() string {
	if p.cur == nil {
		return "end of input"
	}
	return p.cur.String()
}

func (p *Parser) freshVariable() string {
	p.anonSeq++
	return "__anon" + strconv.Itoa(p.anonSeq)
}

// --- clauses ---------------------------------------------------------------

var unsupportedClauseKeywords = map[string]bool{
	"CREATE": true, "MERGE": true, "SET": true, "DELETE": true,
	"DETACH": true, "REMOVE": true, "CALL": true, "UNION": true,
}

func (p *Parser) parseClause() (ast.Clause, error) {
	if p.cur == nil {
		return nil, p.errf("expected a clause, got end of input")
	}
	if p.cur.Kind != token.Keyword {
		return nil, p.errf("expected a clause keyword, got %s", p.curDesc())
	}
	if unsupportedClauseKeywords[p.cur.Value] {
		return nil, diagnostics.Lower(diagnostics.UnsupportedConstruct, diagSpan(p.span()),
			diagnostics.ErrUnsupportedConstruct.New(p.cur.Value))
	}
	switch p.cur.Value {
	case "MATCH", "OPTIONAL":
		return p.parseMatchClause()
	case "WITH":
		return p.parseWithClause()
	case "RETURN":
		return p.parseReturnClause()
	case "UNWIND":
		return p.parseUnwindClause()
	default:
		return nil, p.errf("unexpected clause keyword %s", p.cur.Value)
	}
}

func (p *Parser) parseMatchClause() (*ast.MatchClause, error) {
	start := p.span()
	optional := false
	if p.curIsKeyword("OPTIONAL") {
		optional = true
		p.advance()
	}
	if err := p.expectKeyword("MATCH"); err != nil {
		return nil, err
	}
	patterns, err := p.parsePatternList()
	if err != nil {
		return nil, err
	}
	clause := &ast.MatchClause{Patterns: patterns, Optional: optional, Span: start}
	if p.curIsKeyword("WHERE") {
		p.advance()
		where, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		clause.Where = where
	}
	return clause, nil
}

func (p *Parser) parseWithClause() (*ast.WithClause, error) {
	start := p.span()
	p.advance() // WITH
	clause := &ast.WithClause{Span: start}
	if p.curIsKeyword("DISTINCT") {
		clause.Distinct = true
		p.advance()
	}
	items, err := p.parseProjectionList()
	if err != nil {
		return nil, err
	}
	clause.Items = items
	if p.curIsKeyword("WHERE") {
		p.advance()
		where, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		clause.Where = where
	}
	if err := p.parseOrderSkipLimit(&clause.OrderBy, &clause.Skip, &clause.Limit); err != nil {
		return nil, err
	}
	return clause, nil
}

func (p *Parser) parseReturnClause() (*ast.ReturnClause, error) {
	start := p.span()
	p.advance() // RETURN
	clause := &ast.ReturnClause{Span: start}
	if p.curIsKeyword("DISTINCT") {
		clause.Distinct = true
		p.advance()
	}
	items, err := p.parseProjectionList()
	if err != nil {
		return nil, err
	}
	clause.Items = items
	if err := p.parseOrderSkipLimit(&clause.OrderBy, &clause.Skip, &clause.Limit); err != nil {
		return nil, err
	}
	return clause, nil
}

func (p *Parser) parseUnwindClause() (*ast.UnwindClause, error) {
	start := p.span()
	p.advance() // UNWIND
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	return &ast.UnwindClause{Expression: expr, As: name.Value, Span: start}, nil
}

func (p *Parser) parseOrderSkipLimit(order *[]ast.OrderItem, skip, limit *ast.Expression) error {
	if p.curIsKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return err
			}
			item := ast.OrderItem{Expression: expr}
			if p.curIsKeyword("ASC") {
				p.advance()
			} else if p.curIsKeyword("DESC") {
				item.Descending = true
				p.advance()
			}
			*order = append(*order, item)
			if p.curIs(token.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	if p.curIsKeyword("SKIP") {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return err
		}
		*skip = expr
	}
	if p.curIsKeyword("LIMIT") {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return err
		}
		*limit = expr
	}
	return nil
}

func (p *Parser) parseProjectionList() ([]ast.Projection, error) {
	var items []ast.Projection
	for {
		if p.curIs(token.Star) {
			items = append(items, ast.Projection{Star: true})
			p.advance()
		} else {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			proj := ast.Projection{Expression: expr}
			if p.curIsKeyword("AS") {
				p.advance()
				name, err := p.expect(token.Ident)
				if err != nil {
					return nil, err
				}
				proj.Alias = name.Value
			}
			items = append(items, proj)
		}
		if p.curIs(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

// --- patterns ---------------------------------------------------------------

func (p *Parser) parsePatternList() ([]*ast.Pattern, error) {
	var patterns []*ast.Pattern
	for {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pat)
		if p.curIs(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	return patterns, nil
}

func (p *Parser) parsePattern() (*ast.Pattern, error) {
	pat := &ast.Pattern{}
	node, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	pat.Nodes = append(pat.Nodes, node)

	for p.curIs(token.Minus) || p.curIs(token.Lt) {
		rel, err := p.parseRelPattern()
		if err != nil {
			return nil, err
		}
		next, err := p.parseNodePattern()
		if err != nil {
			return nil, err
		}
		pat.Rels = append(pat.Rels, rel)
		pat.Nodes = append(pat.Nodes, next)
	}
	return pat, nil
}

func (p *Parser) parseNodePattern() (*ast.NodePattern, error) {
	start := p.span()
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	n := &ast.NodePattern{Span: start}
	if p.curIs(token.Ident) {
		n.Variable = p.cur.Value
		n.UserNamed = true
		p.advance()
	}
	labels, err := p.parseLabelList()
	if err != nil {
		return nil, err
	}
	n.Labels = labels
	props, err := p.parsePropertyMap()
	if err != nil {
		return nil, err
	}
	n.Properties = props
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if !n.UserNamed {
		n.Variable = p.freshVariable()
	}
	return n, nil
}

func (p *Parser) parseLabelList() ([]string, error) {
	var labels []string
	for p.curIs(token.Colon) {
		p.advance()
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		labels = append(labels, name.Value)
	}
	return labels, nil
}

func (p *Parser) parsePropertyMap() ([]ast.PropertyEquality, error) {
	if !p.curIs(token.LBrace) {
		return nil, nil
	}
	p.advance()
	var props []ast.PropertyEquality
	if p.curIs(token.RBrace) {
		p.advance()
		return props, nil
	}
	for {
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		val, err := p.parsePatternPropertyValue()
		if err != nil {
			return nil, err
		}
		props = append(props, ast.PropertyEquality{Name: name.Value, Value: val})
		if p.curIs(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return props, nil
}

// parsePatternPropertyValue restricts pattern property values to literals
// and parameter references: a pattern's property map is an equality
// predicate (spec.md §3.2's PropertyEquality), never an arbitrary
// subexpression.
func (p *Parser) parsePatternPropertyValue() (ast.Expression, error) {
	if p.curIs(token.Param) {
		return p.parsePrimary()
	}
	if p.cur == nil {
		return nil, p.errf("expected a literal or parameter in property map, got end of input")
	}
	switch p.cur.Kind {
	case token.String, token.Int, token.Float:
		return p.parsePrimary()
	case token.Keyword:
		if p.cur.Value == "TRUE" || p.cur.Value == "FALSE" || p.cur.Value == "NULL" {
			return p.parsePrimary()
		}
	}
	return nil, p.errf("expected a literal or parameter in property map, got %s", p.curDesc())
}

// parseRelPattern parses one relationship segment:
//
//	('<')? '-' ('[' relDetail ']')? '-' ('>')?
//
// An optLt and optGt both present is a malformed pattern (a relationship
// cannot point both ways); spec.md's undirected form is plain `--`.
func (p *Parser) parseRelPattern() (*ast.RelPattern, error) {
	start := p.span()
	hasLt := false
	if p.curIs(token.Lt) {
		hasLt = true
		p.advance()
	}
	if _, err := p.expect(token.Minus); err != nil {
		return nil, err
	}

	rel := &ast.RelPattern{Span: start}
	if p.curIs(token.LBracket) {
		if err := p.parseRelDetail(rel); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(token.Minus); err != nil {
		return nil, err
	}
	hasGt := false
	if p.curIs(token.Gt) {
		hasGt = true
		p.advance()
	}

	if hasLt && hasGt {
		return nil, p.errf("relationship pattern cannot point both directions")
	}
	switch {
	case hasGt:
		rel.Direction = ast.DirOut
	case hasLt:
		rel.Direction = ast.DirIn
	default:
		rel.Direction = ast.DirUndirected
	}
	if !rel.UserNamed {
		rel.Variable = p.freshVariable()
	}
	return rel, nil
}

func (p *Parser) parseRelDetail(rel *ast.RelPattern) error {
	p.advance() // [
	if p.curIs(token.Ident) {
		rel.Variable = p.cur.Value
		rel.UserNamed = true
		p.advance()
	}
	if p.curIs(token.Colon) {
		p.advance()
		name, err := p.expect(token.Ident)
		if err != nil {
			return err
		}
		rel.Labels = append(rel.Labels, name.Value)
		for p.curIs(token.Pipe) {
			p.advance()
			name, err := p.expect(token.Ident)
			if err != nil {
				return err
			}
			rel.Labels = append(rel.Labels, name.Value)
		}
	}
	if p.curIs(token.Star) {
		length, err := p.parseVariableLength()
		if err != nil {
			return err
		}
		rel.Length = length
	} else {
		rel.Length = ast.Length{Variable: false}
	}
	props, err := p.parsePropertyMap()
	if err != nil {
		return err
	}
	rel.Properties = props
	if _, err := p.expect(token.RBracket); err != nil {
		return err
	}
	return nil
}

// parseVariableLength parses `*`, `*n`, `*n..m`, `*..m`, `*n..` following
// the opening '*' which the caller has confirmed is current.
func (p *Parser) parseVariableLength() (ast.Length, error) {
	p.advance() // *
	length := ast.Length{Variable: true}

	var minVal int
	hasMin := false
	if p.curIs(token.Int) {
		v, err := strconv.Atoi(p.cur.Value)
		if err != nil {
			return length, p.errf("malformed variable-length bound %q", p.cur.Value)
		}
		minVal, hasMin = v, true
		p.advance()
	}

	isRange := false
	if p.curIs(token.Dot) {
		// ".." is two consecutive Dot tokens with no space between them.
		p.advance()
		if !p.curIs(token.Dot) {
			return length, p.errf("expected '..' in variable-length range, found a single '.'")
		}
		p.advance()
		isRange = true
	}

	var maxVal int
	hasMax := false
	if isRange && p.curIs(token.Int) {
		v, err := strconv.Atoi(p.cur.Value)
		if err != nil {
			return length, p.errf("malformed variable-length bound %q", p.cur.Value)
		}
		maxVal, hasMax = v, true
		p.advance()
	}

	switch {
	case !isRange && hasMin:
		length.Min, length.Max = &minVal, &minVal
	case !isRange && !hasMin:
		// bare '*': fully unbounded, the lowerer applies the configured default.
	case isRange:
		if hasMin {
			length.Min = &minVal
		}
		if hasMax {
			length.Max = &maxVal
		}
	}
	return length, nil
}

// --- expressions -------------------------------------------------------

// parseExpression is the entry point; precedence from loosest to tightest:
// OR < AND < NOT < comparison < additive < multiplicative < unary < postfix.
func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.curIsKeyword("OR") {
		span := p.span()
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: ast.OpOr, Left: left, Right: right, Span: span}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.curIsKeyword("AND") {
		span := p.span()
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: ast.OpAnd, Left: left, Right: right, Span: span}
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expression, error) {
	if p.curIsKeyword("NOT") {
		span := p.span()
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.NotExpr{Operand: operand, Span: span}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		if p.cur == nil {
			break
		}
		span := p.span()

		switch p.cur.Kind {
		case token.Eq, token.Neq, token.Lt, token.Lte, token.Gt, token.Gte:
			op := binaryOpFor(p.cur.Kind)
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Span: span}
			continue
		case token.Keyword:
			switch p.cur.Value {
			case "IN":
				p.advance()
				right, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = &ast.BinaryExpr{Op: ast.OpIn, Left: left, Right: right, Span: span}
				continue
			case "CONTAINS":
				p.advance()
				right, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = &ast.BinaryExpr{Op: ast.OpContains, Left: left, Right: right, Span: span}
				continue
			case "STARTS":
				p.advance()
				if err := p.expectKeyword("WITH"); err != nil {
					return nil, err
				}
				right, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = &ast.BinaryExpr{Op: ast.OpStartsWith, Left: left, Right: right, Span: span}
				continue
			case "ENDS":
				p.advance()
				if err := p.expectKeyword("WITH"); err != nil {
					return nil, err
				}
				right, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = &ast.BinaryExpr{Op: ast.OpEndsWith, Left: left, Right: right, Span: span}
				continue
			case "IS":
				p.advance()
				negated := false
				if p.curIsKeyword("NOT") {
					negated = true
					p.advance()
				}
				if err := p.expectKeyword("NULL"); err != nil {
					return nil, err
				}
				left = &ast.IsNullExpr{Operand: left, Negated: negated, Span: span}
				continue
			}
		}
		break
	}
	return left, nil
}

func binaryOpFor(k token.Kind) ast.BinaryOp {
	switch k {
	case token.Eq:
		return ast.OpEq
	case token.Neq:
		return ast.OpNeq
	case token.Lt:
		return ast.OpLt
	case token.Lte:
		return ast.OpLte
	case token.Gt:
		return ast.OpGt
	case token.Gte:
		return ast.OpGte
	default:
		return ast.OpEq
	}
}

func (p *Parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.Plus) || p.curIs(token.Minus) {
		op := ast.OpAdd
		if p.curIs(token.Minus) {
			op = ast.OpSub
		}
		span := p.span()
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Span: span}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.Star) || p.curIs(token.Slash) {
		op := ast.OpMul
		if p.curIs(token.Slash) {
			op = ast.OpDiv
		}
		span := p.span()
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Span: span}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	if p.curIs(token.Minus) {
		span := p.span()
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		zero := &ast.Literal{Kind: ast.LitInt, Int: 0, Span: span}
		return &ast.BinaryExpr{Op: ast.OpSub, Left: zero, Right: operand, Span: span}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.curIs(token.Dot):
			span := p.span()
			p.advance()
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			expr = &ast.PropertyAccess{Target: expr, Property: name.Value, Span: span}
		case p.curIs(token.Colon):
			span := p.span()
			p.advance()
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			expr = &ast.LabelTest{Target: expr, Label: name.Value, Span: span}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	if p.cur == nil {
		return nil, p.errf("expected an expression, got end of input")
	}
	span := p.span()

	switch p.cur.Kind {
	case token.Int:
		v, err := strconv.ParseInt(p.cur.Value, 10, 64)
		if err != nil {
			return nil, p.errf("malformed integer literal %q", p.cur.Value)
		}
		p.advance()
		return &ast.Literal{Kind: ast.LitInt, Int: v, Span: span}, nil
	case token.Float:
		v, err := strconv.ParseFloat(p.cur.Value, 64)
		if err != nil {
			return nil, p.errf("malformed float literal %q", p.cur.Value)
		}
		p.advance()
		return &ast.Literal{Kind: ast.LitFloat, Float: v, Span: span}, nil
	case token.String:
		v := unquote(p.cur.Value)
		p.advance()
		return &ast.Literal{Kind: ast.LitString, Str: v, Span: span}, nil
	case token.Param:
		name := p.cur.Value
		p.advance()
		return &ast.Parameter{Name: name, Span: span}, nil
	case token.LParen:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return inner, nil
	case token.LBracket:
		return p.parseListExpr()
	case token.LBrace:
		return p.parseMapExpr()
	case token.Keyword:
		switch p.cur.Value {
		case "TRUE":
			p.advance()
			return &ast.Literal{Kind: ast.LitBool, Bool: true, Span: span}, nil
		case "FALSE":
			p.advance()
			return &ast.Literal{Kind: ast.LitBool, Bool: false, Span: span}, nil
		case "NULL":
			p.advance()
			return &ast.Literal{Kind: ast.LitNull, Span: span}, nil
		case "CASE":
			return p.parseCaseExpr()
		case "EXISTS":
			return p.parseExistsSubquery()
		}
		return nil, p.errf("unexpected keyword %s in expression", p.cur.Value)
	case token.Ident:
		return p.parseIdentOrCall()
	default:
		return nil, p.errf("unexpected token %s in expression", p.curDesc())
	}
}

func (p *Parser) parseIdentOrCall() (ast.Expression, error) {
	span := p.span()
	name := p.cur.Value
	p.advance()
	if !p.curIs(token.LParen) {
		return &ast.Variable{Name: name, Span: span}, nil
	}
	p.advance() // (
	call := &ast.Call{Name: name, Span: span}
	if p.curIsKeyword("DISTINCT") {
		call.Distinct = true
		p.advance()
	}
	if strings.EqualFold(name, "count") && p.curIs(token.Star) {
		call.Star = true
		p.advance()
	} else if !p.curIs(token.RParen) {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.curIs(token.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parseListExpr() (ast.Expression, error) {
	span := p.span()
	p.advance() // [
	list := &ast.ListExpr{Span: span}
	if p.curIs(token.RBracket) {
		p.advance()
		return list, nil
	}
	for {
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
		if p.curIs(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBracket); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *Parser) parseMapExpr() (ast.Expression, error) {
	span := p.span()
	p.advance() // {
	m := &ast.MapExpr{Span: span}
	if p.curIs(token.RBrace) {
		p.advance()
		return m, nil
	}
	for {
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, ast.MapEntry{Key: name.Value, Value: val})
		if p.curIs(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *Parser) parseCaseExpr() (ast.Expression, error) {
	span := p.span()
	p.advance() // CASE
	c := &ast.CaseExpr{Span: span}
	if !p.curIsKeyword("WHEN") {
		operand, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Operand = operand
	}
	for p.curIsKeyword("WHEN") {
		p.advance()
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		result, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Whens = append(c.Whens, ast.CaseWhen{Condition: cond, Result: result})
	}
	if len(c.Whens) == 0 {
		return nil, p.errf("CASE requires at least one WHEN arm")
	}
	if p.curIsKeyword("ELSE") {
		p.advance()
		elseExpr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Else = elseExpr
	}
	if err := p.expectKeyword("END"); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Parser) parseExistsSubquery() (ast.Expression, error) {
	span := p.span()
	p.advance() // EXISTS
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("MATCH"); err != nil {
		return nil, err
	}
	patterns, err := p.parsePatternList()
	if err != nil {
		return nil, err
	}
	e := &ast.ExistsSubquery{Patterns: patterns, Span: span}
	if p.curIsKeyword("WHERE") {
		p.advance()
		where, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		e.Where = where
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return e, nil
}

// unquote strips the surrounding quote characters the lexer preserved on a
// String token's Value and resolves backslash escapes.
func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	inner := raw[1 : len(raw)-1]
	var sb strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(inner[i])
			}
			continue
		}
		sb.WriteByte(inner[i])
	}
	return sb.String()
}
