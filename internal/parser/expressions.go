package parser

import (
	"strconv"
	"strings"

	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/lexer"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

func (p *Parser) registerParseFns() {
	p.prefixParseFns = map[token.Type]prefixParseFn{
		token.IDENT:          p.parseIdentifier,
		token.INT:            p.parseIntegerLiteral,
		token.FLOAT32:        p.parseFloatLiteral,
		token.FLOAT64:        p.parseFloatLiteral,
		token.STRING:         p.parseStringLiteral,
		token.TEMPLATE_START: p.parseTemplateLiteral,
		token.TRUE:           p.parseBooleanLiteral,
		token.FALSE:          p.parseBooleanLiteral,
		token.NIL:            p.parseNilLiteral,
		token.SELF:           p.parseSelfExpression,
		token.LPAREN:         p.parseGroupedExpression,
		token.LBRACKET:       p.parseListLiteral,
		token.LBRACE:         p.parseMapLiteral,
		token.MINUS:          p.parsePrefixExpression,
		token.BANG:           p.parsePrefixExpression,
		token.TILDE:          p.parsePrefixExpression,
		token.INCREMENT:      p.parsePrefixExpression,
		token.DECREMENT:      p.parsePrefixExpression,
		token.AWAIT:          p.parseAwaitExpression,
		token.MOVE:           p.parseMoveExpression,
		token.NEW:            p.parseNewExpression,
		token.DELETE:         p.parseDeleteExpression,
		token.LAMBDA:         p.parseLambdaExpression,
		token.MATCH:          p.parseMatchExpression,
		token.CHAN_OP:        p.parseChannelReceive,
		token.PRINT:          p.parsePrintIdentifier,
		token.ERROR:          p.parseBadToken,
	}
	p.infixParseFns = map[token.Type]infixParseFn{
		token.PLUS:       p.parseBinaryExpression,
		token.MINUS:      p.parseBinaryExpression,
		token.STAR:       p.parseBinaryExpression,
		token.SLASH:      p.parseBinaryExpression,
		token.PERCENT:    p.parseBinaryExpression,
		token.POWER:      p.parseRightAssocBinary,
		token.EQ:         p.parseBinaryExpression,
		token.NOT_EQ:     p.parseBinaryExpression,
		token.STRICT_EQ:  p.parseBinaryExpression,
		token.STRICT_NEQ: p.parseBinaryExpression,
		token.LESS:       p.parseBinaryExpression,
		token.LESS_EQ:    p.parseBinaryExpression,
		token.GREATER:    p.parseBinaryExpression,
		token.GREATER_EQ: p.parseBinaryExpression,
		token.SHL:        p.parseBinaryExpression,
		token.SHR:        p.parseBinaryExpression,
		token.AMP:        p.parseBinaryExpression,
		token.PIPE:       p.parseBinaryExpression,
		token.CARET:      p.parseBinaryExpression,
		token.IS:         p.parseBinaryExpression,
		token.AS:         p.parseBinaryExpression,
		token.INSTANCEOF: p.parseBinaryExpression,
		token.IN:         p.parseBinaryExpression,
		token.AND_AND:    p.parseLogicalExpression,
		token.OR_OR:      p.parseLogicalExpression,
		token.ELVIS:      p.parseElvisExpression,
		token.COALESCE:   p.parseCoalesceExpression,
		token.RANGE:      p.parseRangeExpression,
		token.ELLIPSIS:   p.parseRangeExpression,
		token.ASSIGN:     p.parseAssignExpression,
		token.PLUS_EQ:    p.parseAssignExpression,
		token.MINUS_EQ:   p.parseAssignExpression,
		token.STAR_EQ:    p.parseAssignExpression,
		token.SLASH_EQ:   p.parseAssignExpression,
		token.PERCENT_EQ: p.parseAssignExpression,
		token.POWER_EQ:   p.parseAssignExpression,
		token.AMP_EQ:     p.parseAssignExpression,
		token.PIPE_EQ:    p.parseAssignExpression,
		token.CARET_EQ:   p.parseAssignExpression,
		token.SHL_EQ:     p.parseAssignExpression,
		token.SHR_EQ:     p.parseAssignExpression,
		token.CHAN_OP:    p.parseChannelSend,
		token.LPAREN:     p.parseCallExpression,
		token.LBRACKET:   p.parseIndexExpression,
		token.DOT:        p.parseMemberExpression,
		token.SCOPE:      p.parseMemberExpression,
		token.SAFE_DOT:   p.parseMemberExpression,
		token.BANG:       p.parseNotNullExpression,
		token.INCREMENT:  p.parsePostfixExpression,
		token.DECREMENT:  p.parsePostfixExpression,
	}
}

// parseExpression is the Pratt core: parse a prefix expression, then fold
// infix operators while their precedence exceeds the caller's.
func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken().Type]
	if prefix == nil {
		p.addError(report.S003InvalidExpression,
			"unexpected token '"+p.curToken().Type.String()+"' in expression")
		bad := &ast.BadExpression{Token: p.curToken()}
		p.nextToken()
		return bad
	}
	left := prefix()

	for !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.EOF) && precedence < p.curPrecedence() {
		infix := p.infixParseFns[p.curToken().Type]
		if infix == nil {
			return left
		}
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	expr := &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()
	return expr
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	lexeme := strings.TrimRight(tok.Lexeme, "lLuU")
	var value int64
	var err error
	switch {
	case strings.HasPrefix(lexeme, "0x"), strings.HasPrefix(lexeme, "0X"):
		value, err = strconv.ParseInt(lexeme[2:], 16, 64)
	case strings.HasPrefix(lexeme, "0b"), strings.HasPrefix(lexeme, "0B"):
		value, err = strconv.ParseInt(lexeme[2:], 2, 64)
	case len(lexeme) > 1 && lexeme[0] == '0':
		value, err = strconv.ParseInt(lexeme[1:], 8, 64)
	default:
		value, err = strconv.ParseInt(lexeme, 10, 64)
	}
	if err != nil {
		p.addErrorAt(report.S003InvalidExpression, "malformed integer literal: "+tok.Lexeme, tok.Pos)
		return &ast.BadExpression{Token: tok}
	}
	return &ast.IntegerLiteral{Token: tok, Value: value}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	lexeme := strings.TrimRight(tok.Lexeme, "fFlLuU")
	value, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		p.addErrorAt(report.S003InvalidExpression, "malformed float literal: "+tok.Lexeme, tok.Pos)
		return &ast.BadExpression{Token: tok}
	}
	return &ast.FloatLiteral{Token: tok, Value: value, Is32: tok.Type == token.FLOAT32}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	expr := &ast.StringLiteral{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()
	return expr
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	expr := &ast.BooleanLiteral{Token: p.curToken(), Value: p.curTokenIs(token.TRUE)}
	p.nextToken()
	return expr
}

func (p *Parser) parseNilLiteral() ast.Expression {
	expr := &ast.NilLiteral{Token: p.curToken()}
	p.nextToken()
	return expr
}

func (p *Parser) parseSelfExpression() ast.Expression {
	expr := &ast.SelfExpression{Token: p.curToken()}
	p.nextToken()
	return expr
}

// parsePrintIdentifier treats the print keyword as a reference to the
// built-in print function.
func (p *Parser) parsePrintIdentifier() ast.Expression {
	expr := &ast.Identifier{Token: p.curToken(), Value: "print"}
	p.nextToken()
	return expr
}

func (p *Parser) parseBadToken() ast.Expression {
	bad := &ast.BadExpression{Token: p.curToken()}
	p.nextToken()
	return bad
}

// parseTemplateLiteral assembles an interpolation from the lexer's
// TEMPLATE_START / TEMPLATE_EXPR / STRING / TEMPLATE_END sequence. Each
// substitution's source is parsed by a nested parser sharing the reporter.
func (p *Parser) parseTemplateLiteral() ast.Expression {
	start := p.curToken()
	expr := &ast.InterpolationExpression{Token: start}
	if start.Lexeme != "" {
		expr.Parts = append(expr.Parts, &ast.StringLiteral{Token: start, Value: start.Lexeme})
	}
	p.nextToken()

	for {
		switch p.curToken().Type {
		case token.TEMPLATE_EXPR:
			tok := p.curToken()
			p.nextToken()
			expr.Parts = append(expr.Parts, p.parseEmbedded(tok))
		case token.STRING:
			if p.curToken().Lexeme != "" {
				expr.Parts = append(expr.Parts, &ast.StringLiteral{Token: p.curToken(), Value: p.curToken().Lexeme})
			}
			p.nextToken()
		case token.TEMPLATE_END:
			if p.curToken().Lexeme != "" {
				expr.Parts = append(expr.Parts, &ast.StringLiteral{Token: p.curToken(), Value: p.curToken().Lexeme})
			}
			p.nextToken()
			return expr
		default:
			p.addError(report.S003InvalidExpression, "malformed template literal")
			return expr
		}
	}
}

// parseEmbedded parses the source text of one ${...} substitution.
func (p *Parser) parseEmbedded(tok token.Token) ast.Expression {
	l := lexer.New(tok.Lexeme, tok.Pos.Filename, p.reporter)
	sub := NewFromTokens(l.Tokenize(), p.reporter)
	embedded := sub.parseExpression(LOWEST)
	if !sub.curTokenIs(token.EOF) && !sub.curTokenIs(token.NEWLINE) {
		p.addErrorAt(report.S003InvalidExpression, "trailing tokens in template substitution", tok.Pos)
	}
	return embedded
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	return &ast.UnaryExpression{Token: tok, Operator: tok.Lexeme, Operand: operand}
}

func (p *Parser) parsePostfixExpression(left ast.Expression) ast.Expression {
	tok := p.curToken()
	p.nextToken()
	return &ast.UnaryExpression{Token: tok, Operator: tok.Lexeme, Operand: left, Postfix: true}
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	tok := p.curToken()
	prec := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(prec)
	return &ast.BinaryExpression{Token: tok, Left: left, Operator: tok.Lexeme, Right: right}
}

// parseRightAssocBinary parses right-associative operators (**).
func (p *Parser) parseRightAssocBinary(left ast.Expression) ast.Expression {
	tok := p.curToken()
	prec := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(prec - 1)
	return &ast.BinaryExpression{Token: tok, Left: left, Operator: tok.Lexeme, Right: right}
}

func (p *Parser) parseLogicalExpression(left ast.Expression) ast.Expression {
	tok := p.curToken()
	prec := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(prec)
	return &ast.LogicalExpression{Token: tok, Left: left, Operator: tok.Lexeme, Right: right}
}

func (p *Parser) parseElvisExpression(left ast.Expression) ast.Expression {
	tok := p.curToken()
	p.nextToken()
	right := p.parseExpression(ELVIS - 1) // right-assoc
	return &ast.ElvisExpression{Token: tok, Left: left, Right: right}
}

// parseCoalesceExpression parses `??`, one tier tighter than Elvis, so
// `a ?? b ?: c` associates as `(a ?? b) ?: c`.
func (p *Parser) parseCoalesceExpression(left ast.Expression) ast.Expression {
	tok := p.curToken()
	p.nextToken()
	right := p.parseExpression(COALESCE - 1) // right-assoc
	return &ast.ElvisExpression{Token: tok, Left: left, Right: right}
}

func (p *Parser) parseRangeExpression(left ast.Expression) ast.Expression {
	tok := p.curToken()
	prec := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(prec)
	return &ast.RangeExpression{
		Token:     tok,
		Low:       left,
		High:      right,
		Inclusive: tok.Type == token.ELLIPSIS,
	}
}

// parseAssignExpression parses simple and compound assignment. Assignment
// is right-associative and validates the target shape (S005).
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	tok := p.curToken()
	switch left.(type) {
	case *ast.Identifier, *ast.MemberExpression, *ast.IndexExpression:
	default:
		p.addErrorAt(report.S005InvalidAssignTarget, "invalid assignment target", left.Pos())
	}
	p.nextToken()
	value := p.parseExpression(ASSIGNMENT - 1)
	return &ast.AssignExpression{Token: tok, Target: left, Operator: tok.Lexeme, Value: value}
}

func (p *Parser) parseChannelSend(left ast.Expression) ast.Expression {
	tok := p.curToken()
	p.nextToken()
	value := p.parseExpression(ASSIGNMENT)
	return &ast.ChannelSendExpression{Token: tok, Channel: left, Value: value}
}

func (p *Parser) parseChannelReceive() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	channel := p.parseExpression(PREFIX)
	return &ast.ChannelReceiveExpression{Token: tok, Channel: channel}
}

func (p *Parser) parseAwaitExpression() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	return &ast.AwaitExpression{Token: tok, Operand: operand}
}

func (p *Parser) parseMoveExpression() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	return &ast.MoveExpression{Token: tok, Operand: operand}
}

func (p *Parser) parseNewExpression() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	typeAnn := p.parseTypeExpr()
	expr := &ast.NewExpression{Token: tok, TypeAnn: typeAnn}
	if p.curTokenIs(token.LPAREN) {
		expr.Args = p.parseArgumentList()
	}
	return expr
}

func (p *Parser) parseDeleteExpression() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	return &ast.DeleteExpression{Token: tok, Operand: operand}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	p.skipNewlines()
	inner := p.parseExpression(LOWEST)
	p.skipNewlines()
	if !p.expect(token.RPAREN, "to close grouping") {
		p.synchronizeTo(token.RPAREN)
	}
	return &ast.GroupedExpression{Token: tok, Inner: inner}
}

func (p *Parser) parseListLiteral() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	lit := &ast.ListLiteral{Token: tok}
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACKET) && !p.curTokenIs(token.EOF) {
		lit.Elements = append(lit.Elements, p.parseExpression(LOWEST))
		p.skipNewlines()
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		p.skipNewlines()
	}
	if !p.expect(token.RBRACKET, "to close list literal") {
		p.synchronizeTo(token.RBRACKET)
	}
	return lit
}

func (p *Parser) parseMapLiteral() ast.Expression {
	tok := p.curToken()
	p.nextToken()
	lit := &ast.MapLiteral{Token: tok}
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		key := p.parseExpression(LOWEST)
		if !p.expect(token.COLON, "between map key and value") {
			p.synchronizeTo(token.RBRACE)
			return lit
		}
		value := p.parseExpression(LOWEST)
		lit.Keys = append(lit.Keys, key)
		lit.Values = append(lit.Values, value)
		p.skipNewlines()
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		p.skipNewlines()
	}
	if !p.expect(token.RBRACE, "to close map literal") {
		p.synchronizeTo(token.RBRACE)
	}
	return lit
}

func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	tok := p.curToken()
	args := p.parseArgumentList()
	return &ast.CallExpression{Token: tok, Callee: callee, Args: args}
}

// parseArgumentList parses a parenthesized, comma-separated argument list.
func (p *Parser) parseArgumentList() []ast.Expression {
	var args []ast.Expression
	p.nextToken() // '('
	p.skipNewlines()
	for !p.curTokenIs(token.RPAREN) && !p.curTokenIs(token.EOF) {
		args = append(args, p.parseExpression(LOWEST))
		p.skipNewlines()
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		p.skipNewlines()
	}
	if !p.expect(token.RPAREN, "to close argument list") {
		p.synchronizeTo(token.RPAREN)
	}
	return args
}

func (p *Parser) parseIndexExpression(object ast.Expression) ast.Expression {
	tok := p.curToken()
	p.nextToken()
	index := p.parseExpression(LOWEST)
	if !p.expect(token.RBRACKET, "to close index") {
		p.synchronizeTo(token.RBRACKET)
	}
	return &ast.IndexExpression{Token: tok, Object: object, Index: index}
}

func (p *Parser) parseMemberExpression(object ast.Expression) ast.Expression {
	tok := p.curToken()
	safe := tok.Type == token.SAFE_DOT
	p.nextToken()
	if !p.curTokenIs(token.IDENT) {
		p.errorExpected("after '.'", token.IDENT)
		return &ast.BadExpression{Token: tok}
	}
	member := p.curToken().Lexeme
	p.nextToken()
	return &ast.MemberExpression{Token: tok, Object: object, Member: member, Safe: safe}
}

func (p *Parser) parseNotNullExpression(left ast.Expression) ast.Expression {
	tok := p.curToken()
	p.nextToken()
	return &ast.NotNullExpression{Token: tok, Operand: left}
}
