package parser

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

// parseStatement dispatches on the leading token. Returns nil when recovery
// consumed the input without producing a node.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken().Type {
	case token.MODULE:
		return p.parseModuleDeclaration()
	case token.IMPORT, token.FROM:
		return p.parseImportStatement()
	case token.EXPORT:
		return p.parseExportStatement()
	case token.LET, token.CONST:
		return p.parseVariableDeclaration()
	case token.DEF:
		return p.parseFunctionDeclaration(false, false)
	case token.ASYNC:
		if p.peekTokenIs(token.DEF) {
			p.nextToken()
			return p.parseFunctionDeclaration(true, false)
		}
		p.addError(report.S004InvalidStatement, "'async' must be followed by 'def'")
		p.synchronize()
		return &ast.BadStatement{Token: p.curToken()}
	case token.EXTEND:
		return p.parseExtensionDeclaration()
	case token.CLASS, token.STRUCT:
		return p.parseClassDeclaration(false)
	case token.ENUM:
		return p.parseEnumDeclaration(false)
	case token.TRAIT, token.INTERFACE:
		return p.parseTraitDeclaration(false)
	case token.IMPL:
		return p.parseImplDeclaration()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOR:
		return p.parseForInStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.MATCH:
		return p.parseMatchStatement()
	case token.TRY:
		return p.parseTryStatement()
	case token.THROW:
		return p.parseThrowStatement()
	case token.BREAK:
		tok := p.curToken()
		p.nextToken()
		return &ast.BreakStatement{Token: tok}
	case token.CONTINUE:
		tok := p.curToken()
		p.nextToken()
		return &ast.ContinueStatement{Token: tok}
	case token.DEFER:
		return p.parseDeferStatement()
	case token.SELECT:
		return p.parseSelectStatement()
	case token.GO:
		return p.parseGoStatement()
	case token.INDENT:
		// An unexpected indent is a syntax error; skip the whole block.
		p.addError(report.S001UnexpectedToken, "unexpected indentation")
		p.skipIndentedBlock()
		return &ast.BadStatement{Token: p.curToken()}
	case token.DEDENT:
		p.nextToken()
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

// parseExpressionStatement parses an expression in statement position and
// validates that it can have an effect.
func (p *Parser) parseExpressionStatement() ast.Statement {
	tok := p.curToken()
	expr := p.parseExpression(LOWEST)
	if !isSideEffectful(expr) {
		p.addErrorAt(report.S004InvalidStatement, "expression statement has no effect", tok.Pos)
	}
	return &ast.ExpressionStatement{Token: tok, Expression: expr}
}

// isSideEffectful reports whether an expression is allowed in statement
// position: calls, assignments, await, channel operations, increments, and
// allocation/deallocation.
func isSideEffectful(expr ast.Expression) bool {
	switch e := expr.(type) {
	case *ast.CallExpression, *ast.AssignExpression, *ast.AwaitExpression,
		*ast.ChannelSendExpression, *ast.ChannelReceiveExpression,
		*ast.NewExpression, *ast.DeleteExpression, *ast.MatchExpression,
		*ast.BadExpression:
		return true
	case *ast.UnaryExpression:
		return e.Operator == "++" || e.Operator == "--"
	}
	return false
}

// parseBlock parses `: NEWLINE INDENT stmts DEDENT`, or an inline single
// statement after the colon.
func (p *Parser) parseBlock(context string) *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken()}
	if !p.expect(token.COLON, context) {
		p.synchronize()
		return block
	}

	// Inline form: `if x: return 0`
	if !p.curTokenIs(token.NEWLINE) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		return block
	}

	p.nextToken() // NEWLINE
	if !p.curTokenIs(token.INDENT) {
		p.addError(report.S002MissingToken, "expected an indented block "+context)
		return block
	}
	p.nextToken() // INDENT

	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) && !p.halted {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.skipLayout()
	}
	if p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
	return block
}

// skipIndentedBlock consumes a balanced INDENT...DEDENT region.
func (p *Parser) skipIndentedBlock() {
	if !p.curTokenIs(token.INDENT) {
		return
	}
	depth := 0
	for !p.curTokenIs(token.EOF) {
		switch p.curToken().Type {
		case token.INDENT:
			depth++
		case token.DEDENT:
			depth--
			if depth == 0 {
				p.nextToken()
				return
			}
		}
		p.nextToken()
	}
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken()}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	stmt.Then = p.parseBlock("after if condition")

	p.skipNewlines()
	for p.curTokenIs(token.ELIF) {
		clause := &ast.ElifClause{Token: p.curToken()}
		p.nextToken()
		clause.Condition = p.parseExpression(LOWEST)
		clause.Body = p.parseBlock("after elif condition")
		stmt.Elifs = append(stmt.Elifs, clause)
		p.skipNewlines()
	}
	if p.curTokenIs(token.ELSE) {
		p.nextToken()
		stmt.Else = p.parseBlock("after else")
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken()}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	stmt.Body = p.parseBlock("after while condition")
	return stmt
}

func (p *Parser) parseForInStatement() ast.Statement {
	stmt := &ast.ForInStatement{Token: p.curToken()}
	p.nextToken()
	if !p.curTokenIs(token.IDENT) {
		p.errorExpected("as loop variable", token.IDENT)
		p.synchronize()
		return &ast.BadStatement{Token: stmt.Token}
	}
	stmt.Variable = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()
	if !p.expect(token.IN, "in for statement") {
		p.synchronize()
		return &ast.BadStatement{Token: stmt.Token}
	}
	stmt.Iterable = p.parseExpression(LOWEST)
	stmt.Body = p.parseBlock("after for header")
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken()}
	p.nextToken()
	if !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.SEMICOLON) &&
		!p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) {
		stmt.Value = p.parseExpression(LOWEST)
	}
	return stmt
}

func (p *Parser) parseThrowStatement() ast.Statement {
	stmt := &ast.ThrowStatement{Token: p.curToken()}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	return stmt
}

func (p *Parser) parseDeferStatement() ast.Statement {
	stmt := &ast.DeferStatement{Token: p.curToken()}
	p.nextToken()
	inner := p.parseStatement()
	if inner == nil {
		p.addErrorAt(report.S020InvalidDefer, "defer requires a statement", stmt.Token.Pos)
		return &ast.BadStatement{Token: stmt.Token}
	}
	switch inner.(type) {
	case *ast.ExpressionStatement, *ast.BadStatement:
	default:
		p.addErrorAt(report.S020InvalidDefer, "defer requires a call or assignment", stmt.Token.Pos)
	}
	stmt.Call = inner
	return stmt
}

func (p *Parser) parseGoStatement() ast.Statement {
	stmt := &ast.GoStatement{Token: p.curToken()}
	p.nextToken()
	stmt.Call = p.parseExpression(LOWEST)
	if _, ok := stmt.Call.(*ast.CallExpression); !ok {
		if _, bad := stmt.Call.(*ast.BadExpression); !bad {
			p.addErrorAt(report.S004InvalidStatement, "go requires a call expression", stmt.Token.Pos)
		}
	}
	return stmt
}

func (p *Parser) parseTryStatement() ast.Statement {
	stmt := &ast.TryStatement{Token: p.curToken()}
	p.nextToken()
	stmt.Body = p.parseBlock("after try")

	p.skipNewlines()
	for p.curTokenIs(token.CATCH) {
		clause := &ast.CatchClause{Token: p.curToken()}
		p.nextToken()
		if p.curTokenIs(token.LPAREN) {
			p.nextToken()
			if !p.curTokenIs(token.IDENT) {
				p.errorExpected("as catch binding", token.IDENT)
				p.synchronizeTo(token.RPAREN)
			} else {
				clause.Name = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
				p.nextToken()
				if p.curTokenIs(token.COLON) {
					p.nextToken()
					clause.TypeAnn = p.parseTypeExpr()
				}
				if !p.expect(token.RPAREN, "to close catch clause") {
					p.synchronizeTo(token.RPAREN)
				}
			}
		}
		clause.Body = p.parseBlock("after catch")
		stmt.Catches = append(stmt.Catches, clause)
		p.skipNewlines()
	}
	if p.curTokenIs(token.FINALLY) {
		p.nextToken()
		stmt.Finally = p.parseBlock("after finally")
	}
	if len(stmt.Catches) == 0 && stmt.Finally == nil {
		p.addErrorAt(report.S010InvalidTryCatch, "try requires at least one catch or finally", stmt.Token.Pos)
	}
	return stmt
}

func (p *Parser) parseSelectStatement() ast.Statement {
	stmt := &ast.SelectStatement{Token: p.curToken()}
	p.nextToken()
	if !p.expect(token.COLON, "after select") {
		p.synchronize()
		return stmt
	}
	if !p.curTokenIs(token.NEWLINE) || !p.peekTokenIs(token.INDENT) {
		p.addError(report.S002MissingToken, "expected an indented block after select")
		p.synchronize()
		return stmt
	}
	p.nextToken() // NEWLINE
	p.nextToken() // INDENT

	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) && !p.halted {
		switch p.curToken().Type {
		case token.CASE:
			sc := &ast.SelectCase{Token: p.curToken()}
			p.nextToken()
			// `case v = <-ch:` binds the received value.
			if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN) {
				sc.Bind = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
				p.nextToken()
				p.nextToken()
			}
			sc.Comm = p.parseExpression(LOWEST)
			switch sc.Comm.(type) {
			case *ast.ChannelSendExpression, *ast.ChannelReceiveExpression, *ast.BadExpression:
			default:
				p.addErrorAt(report.S004InvalidStatement, "select case requires a channel operation", sc.Token.Pos)
			}
			sc.Body = p.parseBlock("after select case")
			stmt.Cases = append(stmt.Cases, sc)
		case token.DEFAULT:
			p.nextToken()
			stmt.Default = p.parseBlock("after default")
		default:
			p.addError(report.S001UnexpectedToken, "expected 'case' or 'default' in select")
			p.synchronize()
		}
		p.skipLayout()
	}
	if p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
	return stmt
}

// parseMatchStatement parses `match expr:` with indented case arms.
func (p *Parser) parseMatchStatement() ast.Statement {
	stmt := &ast.MatchStatement{Token: p.curToken()}
	p.nextToken()
	stmt.Scrutinee = p.parseExpression(LOWEST)
	stmt.Arms = p.parseMatchArms(false)
	return stmt
}

// parseMatchExpression parses match in value position; arm bodies are
// single expressions.
func (p *Parser) parseMatchExpression() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	expr := &ast.MatchExpression{Token: tok}
	expr.Scrutinee = p.parseExpression(LOWEST)
	expr.Arms = p.parseMatchArms(true)
	return expr
}

// parseMatchArms parses the indented arm list shared by match statements
// and match expressions.
func (p *Parser) parseMatchArms(exprForm bool) []*ast.MatchArm {
	var arms []*ast.MatchArm
	if !p.expect(token.COLON, "after match scrutinee") {
		p.synchronize()
		return arms
	}
	if !p.curTokenIs(token.NEWLINE) || !p.peekTokenIs(token.INDENT) {
		p.addError(report.S009InvalidMatch, "expected an indented arm list after match")
		p.synchronize()
		return arms
	}
	p.nextToken() // NEWLINE
	p.nextToken() // INDENT

	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) && !p.halted {
		switch p.curToken().Type {
		case token.CASE:
			arm := &ast.MatchArm{Token: p.curToken()}
			p.nextToken()
			arm.Pattern = p.parsePattern()
			if p.curTokenIs(token.IF) {
				p.nextToken()
				arm.Guard = p.parseExpression(LOWEST)
			}
			p.finishMatchArm(arm, exprForm)
			arms = append(arms, arm)
		case token.DEFAULT:
			arm := &ast.MatchArm{
				Token:   p.curToken(),
				Pattern: &ast.WildcardPattern{Token: p.curToken()},
			}
			p.nextToken()
			p.finishMatchArm(arm, exprForm)
			arms = append(arms, arm)
		default:
			p.addError(report.S009InvalidMatch, "expected 'case' or 'default' in match")
			p.synchronize()
		}
		p.skipLayout()
	}
	if p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
	if len(arms) == 0 {
		p.addError(report.S009InvalidMatch, "match requires at least one arm")
	}
	return arms
}

func (p *Parser) finishMatchArm(arm *ast.MatchArm, exprForm bool) {
	if exprForm {
		if !p.expect(token.COLON, "after match arm pattern") {
			p.synchronize()
			return
		}
		arm.Value = p.parseExpression(LOWEST)
		return
	}
	arm.Body = p.parseBlock("after match arm pattern")
}
