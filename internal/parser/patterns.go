package parser

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

// parsePattern parses a match pattern, including `|` alternation at the
// top level.
func (p *Parser) parsePattern() ast.Pattern {
	left := p.parsePrimaryPattern()
	for p.curTokenIs(token.PIPE) {
		tok := p.curToken()
		p.nextToken()
		right := p.parsePrimaryPattern()
		left = &ast.OrPattern{Token: tok, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parsePrimaryPattern() ast.Pattern {
	tok := p.curToken()
	switch tok.Type {
	case token.INT, token.FLOAT32, token.FLOAT64, token.STRING,
		token.TRUE, token.FALSE, token.NIL, token.MINUS:
		return p.parseLiteralOrRangePattern()

	case token.LPAREN:
		return p.parseTuplePattern()

	case token.IDENT:
		name := tok.Lexeme
		if name == "_" {
			p.nextToken()
			return &ast.WildcardPattern{Token: tok}
		}
		switch p.peekToken().Type {
		case token.LPAREN:
			return p.parseConstructorPattern()
		case token.LBRACE:
			return p.parseStructPattern()
		case token.IS:
			p.nextToken() // name
			p.nextToken() // is
			return &ast.TypeTestPattern{Token: tok, Name: name, TypeAnn: p.parseTypeExpr()}
		case token.RANGE, token.ELLIPSIS:
			return p.parseLiteralOrRangePattern()
		}
		p.nextToken()
		// Bare names that resolve to nullary enum variants are promoted to
		// constructor patterns by the checker.
		return &ast.BindingPattern{Token: tok, Name: name}
	}

	p.addError(report.S009InvalidMatch,
		"unexpected token '"+tok.Type.String()+"' in pattern")
	p.nextToken()
	return &ast.WildcardPattern{Token: tok}
}

// parseLiteralOrRangePattern parses a literal pattern, promoted to a range
// pattern when followed by `..` or `...`.
func (p *Parser) parseLiteralOrRangePattern() ast.Pattern {
	tok := p.curToken()
	low := p.parsePatternOperand()
	if p.curTokenIs(token.RANGE) || p.curTokenIs(token.ELLIPSIS) {
		rangeTok := p.curToken()
		p.nextToken()
		high := p.parsePatternOperand()
		return &ast.RangePattern{
			Token:     rangeTok,
			Low:       low,
			High:      high,
			Inclusive: rangeTok.Type == token.ELLIPSIS,
		}
	}
	return &ast.LiteralPattern{Token: tok, Value: low}
}

// parsePatternOperand parses the literal (possibly negated) or identifier
// endpoint of a literal/range pattern.
func (p *Parser) parsePatternOperand() ast.Expression {
	tok := p.curToken()
	switch tok.Type {
	case token.MINUS:
		p.nextToken()
		operand := p.parsePatternOperand()
		return &ast.UnaryExpression{Token: tok, Operator: "-", Operand: operand}
	case token.INT:
		return p.parseIntegerLiteral()
	case token.FLOAT32, token.FLOAT64:
		return p.parseFloatLiteral()
	case token.STRING:
		return p.parseStringLiteral()
	case token.TRUE, token.FALSE:
		return p.parseBooleanLiteral()
	case token.NIL:
		return p.parseNilLiteral()
	case token.IDENT:
		return p.parseIdentifier()
	}
	p.addError(report.S009InvalidMatch, "expected a literal in pattern")
	p.nextToken()
	return &ast.BadExpression{Token: tok}
}

// parseConstructorPattern parses `Name(p1, ..., pn)`.
func (p *Parser) parseConstructorPattern() ast.Pattern {
	pat := &ast.ConstructorPattern{Token: p.curToken(), Name: p.curToken().Lexeme}
	p.nextToken() // name
	p.nextToken() // '('
	for !p.curTokenIs(token.RPAREN) && !p.curTokenIs(token.EOF) {
		pat.Args = append(pat.Args, p.parsePattern())
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expect(token.RPAREN, "to close constructor pattern") {
		p.synchronizeTo(token.RPAREN)
	}
	return pat
}

// parseTuplePattern parses `(p1, p2, ...)`.
func (p *Parser) parseTuplePattern() ast.Pattern {
	pat := &ast.TuplePattern{Token: p.curToken()}
	p.nextToken() // '('
	for !p.curTokenIs(token.RPAREN) && !p.curTokenIs(token.EOF) {
		pat.Elements = append(pat.Elements, p.parsePattern())
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expect(token.RPAREN, "to close tuple pattern") {
		p.synchronizeTo(token.RPAREN)
	}
	return pat
}

// parseStructPattern parses `Name{field: pat, ..., [..]}`.
func (p *Parser) parseStructPattern() ast.Pattern {
	pat := &ast.StructPattern{Token: p.curToken(), Name: p.curToken().Lexeme}
	p.nextToken() // name
	p.nextToken() // '{'
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.RANGE) {
			pat.HasRest = true
			p.nextToken()
			break
		}
		if !p.curTokenIs(token.IDENT) {
			p.errorExpected("as field name in struct pattern", token.IDENT)
			p.synchronizeTo(token.RBRACE)
			return pat
		}
		field := &ast.StructPatternField{Name: p.curToken().Lexeme}
		fieldTok := p.curToken()
		p.nextToken()
		if p.curTokenIs(token.COLON) {
			p.nextToken()
			field.Pattern = p.parsePattern()
		} else {
			// Shorthand: `Point{x, y}` binds fields to same-named variables.
			field.Pattern = &ast.BindingPattern{Token: fieldTok, Name: field.Name}
		}
		pat.Fields = append(pat.Fields, field)
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expect(token.RBRACE, "to close struct pattern") {
		p.synchronizeTo(token.RBRACE)
	}
	return pat
}
