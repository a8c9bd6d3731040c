package parser

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

// parseLambdaExpression parses `lambda (params) [-> R]: body`. An inline
// body is a single expression wrapped in an implicit return; an indented
// body is a full block.
func (p *Parser) parseLambdaExpression() ast.Expression {
	expr := &ast.LambdaExpression{Token: p.curToken()}
	p.nextToken()

	if p.curTokenIs(token.LPAREN) {
		expr.Params = p.parseParameterList()
	} else if p.curTokenIs(token.IDENT) {
		// Single bare parameter: `lambda x: x + 1`.
		expr.Params = append(expr.Params, &ast.Parameter{
			Token: p.curToken(),
			Name:  p.curToken().Lexeme,
		})
		p.nextToken()
	}

	if p.curTokenIs(token.ARROW) {
		p.nextToken()
		expr.ReturnAnn = p.parseTypeExpr()
	}

	if !p.expect(token.COLON, "after lambda signature") {
		p.synchronize()
		expr.Body = &ast.BlockStatement{Token: expr.Token}
		return expr
	}

	if !p.curTokenIs(token.NEWLINE) {
		value := p.parseExpression(LOWEST)
		expr.Body = &ast.BlockStatement{
			Token: expr.Token,
			Statements: []ast.Statement{
				&ast.ReturnStatement{Token: expr.Token, Value: value},
			},
		}
		return expr
	}

	p.nextToken() // NEWLINE
	if !p.curTokenIs(token.INDENT) {
		p.addError(report.S002MissingToken, "expected an indented lambda body")
		expr.Body = &ast.BlockStatement{Token: expr.Token}
		return expr
	}
	p.nextToken() // INDENT

	body := &ast.BlockStatement{Token: expr.Token}
	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) && !p.halted {
		stmt := p.parseStatement()
		if stmt != nil {
			body.Statements = append(body.Statements, stmt)
		}
		p.skipLayout()
	}
	if p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
	expr.Body = body
	return expr
}
