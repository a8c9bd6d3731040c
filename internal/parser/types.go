package parser

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

// parseTypeExpr parses the full type syntax: names, generic applications,
// function types, nullable suffixes, and unions.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	first := p.parseNullableType()
	if !p.curTokenIs(token.PIPE) {
		return first
	}
	union := &ast.UnionTypeExpr{Token: p.curToken(), Alts: []ast.TypeExpr{first}}
	for p.curTokenIs(token.PIPE) {
		p.nextToken()
		union.Alts = append(union.Alts, p.parseNullableType())
	}
	return union
}

// parseNullableType parses a primary type with any number of `?` suffixes.
func (p *Parser) parseNullableType() ast.TypeExpr {
	base := p.parsePrimaryType()
	for p.curTokenIs(token.QUESTION) {
		base = &ast.NullableTypeExpr{Token: p.curToken(), Base: base}
		p.nextToken()
	}
	return base
}

// parsePrimaryType parses a named/generic type or a function type.
func (p *Parser) parsePrimaryType() ast.TypeExpr {
	switch p.curToken().Type {
	case token.VOID:
		t := &ast.NamedTypeExpr{Token: p.curToken(), Name: "void"}
		p.nextToken()
		return t
	case token.IDENT:
		return p.parseNamedType()
	case token.LPAREN:
		return p.parseFunctionType()
	}
	p.addError(report.S003InvalidExpression,
		"expected a type, got '"+p.curToken().Type.String()+"'")
	t := &ast.NamedTypeExpr{Token: p.curToken(), Name: "<error>"}
	p.nextToken()
	return t
}

// parseNamedType parses `[Module::]Name[<T1, ...>]`.
func (p *Parser) parseNamedType() ast.TypeExpr {
	t := &ast.NamedTypeExpr{Token: p.curToken(), Name: p.curToken().Lexeme}
	p.nextToken()

	if p.curTokenIs(token.SCOPE) {
		p.nextToken()
		if !p.curTokenIs(token.IDENT) {
			p.errorExpected("after '::'", token.IDENT)
			return t
		}
		t.Module = t.Name
		t.Name = p.curToken().Lexeme
		p.nextToken()
	}

	if p.curTokenIs(token.LESS) {
		p.nextToken()
		for {
			t.Args = append(t.Args, p.parseTypeExpr())
			if p.curTokenIs(token.COMMA) {
				p.nextToken()
				continue
			}
			break
		}
		p.closeTypeArgs()
	}
	return t
}

// closeTypeArgs consumes the closing '>' of a generic argument list. A '>>'
// produced by maximal munch on nested generics is split in place.
func (p *Parser) closeTypeArgs() {
	switch p.curToken().Type {
	case token.GREATER:
		p.nextToken()
	case token.SHR:
		tok := p.curToken()
		tok.Type = token.GREATER
		tok.Lexeme = ">"
		tok.Pos.Column++
		p.tokens[p.pos] = tok
	case token.GREATER_EQ:
		// `>=` at the end of `<...>` followed by `=`: split likewise.
		tok := p.curToken()
		tok.Type = token.ASSIGN
		tok.Lexeme = "="
		tok.Pos.Column++
		p.tokens[p.pos] = tok
	default:
		p.errorExpected("to close type argument list", token.GREATER)
	}
}

// parseFunctionType parses `(T1, ..., Tn) -> R`; a parenthesized single
// type without an arrow is returned unwrapped.
func (p *Parser) parseFunctionType() ast.TypeExpr {
	tok := p.curToken()
	p.nextToken() // '('

	var params []ast.TypeExpr
	for !p.curTokenIs(token.RPAREN) && !p.curTokenIs(token.EOF) {
		params = append(params, p.parseTypeExpr())
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expect(token.RPAREN, "to close function type") {
		p.synchronizeTo(token.RPAREN)
	}

	if !p.curTokenIs(token.ARROW) {
		if len(params) == 1 {
			return params[0]
		}
		p.errorExpected("after function type parameters", token.ARROW)
		return &ast.NamedTypeExpr{Token: tok, Name: "<error>"}
	}
	p.nextToken()
	ret := p.parseTypeExpr()
	return &ast.FunctionTypeExpr{Token: tok, Params: params, Return: ret}
}
