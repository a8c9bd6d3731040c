package parser

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

func (p *Parser) parseModuleDeclaration() ast.Statement {
	stmt := &ast.ModuleDeclaration{Token: p.curToken()}
	p.nextToken()
	if !p.curTokenIs(token.IDENT) {
		p.addErrorAt(report.S018InvalidModuleDecl, "module requires a name", stmt.Token.Pos)
		p.synchronize()
		return &ast.BadStatement{Token: stmt.Token}
	}
	stmt.Name = p.curToken().Lexeme
	p.nextToken()
	return stmt
}

// parseImportStatement parses `import M` and `from M import a [as b], ...`.
func (p *Parser) parseImportStatement() ast.Statement {
	stmt := &ast.ImportStatement{Token: p.curToken()}
	from := p.curTokenIs(token.FROM)
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		p.addErrorAt(report.S008InvalidImport, "expected a module name", stmt.Token.Pos)
		p.synchronize()
		return &ast.BadStatement{Token: stmt.Token}
	}
	stmt.Module = p.curToken().Lexeme
	p.nextToken()

	if !from {
		return stmt
	}
	if !p.expect(token.IMPORT, "in from-import") {
		p.synchronize()
		return &ast.BadStatement{Token: stmt.Token}
	}
	for {
		if !p.curTokenIs(token.IDENT) {
			p.addError(report.S008InvalidImport, "expected a symbol name in import list")
			p.synchronize()
			return stmt
		}
		sym := ast.ImportSymbol{Name: p.curToken().Lexeme}
		p.nextToken()
		if p.curTokenIs(token.AS) {
			p.nextToken()
			if !p.curTokenIs(token.IDENT) {
				p.addError(report.S008InvalidImport, "expected an alias after 'as'")
				p.synchronize()
				return stmt
			}
			sym.Alias = p.curToken().Lexeme
			p.nextToken()
		}
		stmt.Symbols = append(stmt.Symbols, sym)
		if !p.curTokenIs(token.COMMA) {
			return stmt
		}
		p.nextToken()
	}
}

// parseExportStatement parses `export name` or an exported declaration
// (`export def f...`).
func (p *Parser) parseExportStatement() ast.Statement {
	tok := p.curToken()
	p.nextToken()

	switch p.curToken().Type {
	case token.IDENT:
		stmt := &ast.ExportStatement{Token: tok, Name: p.curToken().Lexeme}
		p.nextToken()
		return stmt
	case token.DEF:
		return p.parseFunctionDeclaration(false, true)
	case token.ASYNC:
		if p.peekTokenIs(token.DEF) {
			p.nextToken()
			return p.parseFunctionDeclaration(true, true)
		}
	case token.CLASS, token.STRUCT:
		return p.parseClassDeclaration(true)
	case token.ENUM:
		return p.parseEnumDeclaration(true)
	case token.TRAIT, token.INTERFACE:
		return p.parseTraitDeclaration(true)
	}
	p.addErrorAt(report.M010InvalidExport, "export requires a name or declaration", tok.Pos)
	p.synchronize()
	return &ast.BadStatement{Token: tok}
}

func (p *Parser) parseVariableDeclaration() ast.Statement {
	stmt := &ast.VariableDeclaration{Token: p.curToken(), Mutable: p.curTokenIs(token.LET)}
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		p.errorExpected("as variable name", token.IDENT)
		p.synchronize()
		return &ast.BadStatement{Token: stmt.Token}
	}
	stmt.Name = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()

	if p.curTokenIs(token.COLON) {
		p.nextToken()
		stmt.TypeAnn = p.parseTypeExpr()
	}
	if p.curTokenIs(token.ASSIGN) {
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
	}
	if stmt.TypeAnn == nil && stmt.Value == nil {
		p.addErrorAt(report.S004InvalidStatement,
			"variable declaration requires a type annotation or an initializer", stmt.Token.Pos)
	}
	return stmt
}

// parseFunctionDeclaration parses `def name<T>(params) -> R:` plus body.
func (p *Parser) parseFunctionDeclaration(isAsync, exported bool) ast.Statement {
	stmt := &ast.FunctionDeclaration{Token: p.curToken(), IsAsync: isAsync, Exported: exported}
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		p.addErrorAt(report.S006InvalidFunctionDecl, "expected a function name", stmt.Token.Pos)
		p.synchronize()
		return &ast.BadStatement{Token: stmt.Token}
	}
	stmt.Name = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()

	if p.curTokenIs(token.LESS) {
		stmt.TypeParams = p.parseTypeParams()
	}
	stmt.Params = p.parseParameterList()
	if p.curTokenIs(token.ARROW) {
		p.nextToken()
		stmt.ReturnAnn = p.parseTypeExpr()
	}
	stmt.Body = p.parseBlock("after function signature")
	return stmt
}

// parseExtensionDeclaration parses `extend Type def name(params) -> R:`.
func (p *Parser) parseExtensionDeclaration() ast.Statement {
	tok := p.curToken()
	p.nextToken()
	receiver := p.parseTypeExpr()
	if !p.curTokenIs(token.DEF) {
		p.addErrorAt(report.S006InvalidFunctionDecl, "extend requires a function declaration", tok.Pos)
		p.synchronize()
		return &ast.BadStatement{Token: tok}
	}
	stmt := p.parseFunctionDeclaration(false, false)
	if fd, ok := stmt.(*ast.FunctionDeclaration); ok {
		fd.Receiver = receiver
	}
	return stmt
}

// parseTypeParams parses `<T, U: Bound>`.
func (p *Parser) parseTypeParams() []*ast.TypeParam {
	var params []*ast.TypeParam
	p.nextToken() // '<'
	for !p.curTokenIs(token.GREATER) && !p.curTokenIs(token.EOF) {
		if !p.curTokenIs(token.IDENT) {
			p.errorExpected("as type parameter", token.IDENT)
			p.synchronizeTo(token.GREATER)
			return params
		}
		tp := &ast.TypeParam{Token: p.curToken(), Name: p.curToken().Lexeme}
		p.nextToken()
		if p.curTokenIs(token.COLON) {
			p.nextToken()
			tp.Bounds = append(tp.Bounds, p.parseTypeExpr())
			for p.curTokenIs(token.PLUS) {
				p.nextToken()
				tp.Bounds = append(tp.Bounds, p.parseTypeExpr())
			}
		}
		params = append(params, tp)
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	p.expect(token.GREATER, "to close type parameter list")
	return params
}

// parseParameterList parses `(name[: T[&&]][= default], ...)`.
func (p *Parser) parseParameterList() []*ast.Parameter {
	var params []*ast.Parameter
	if !p.expect(token.LPAREN, "to open parameter list") {
		p.synchronize()
		return params
	}
	for !p.curTokenIs(token.RPAREN) && !p.curTokenIs(token.EOF) {
		if !p.curTokenIs(token.IDENT) && !p.curTokenIs(token.SELF) {
			p.errorExpected("as parameter name", token.IDENT)
			p.synchronizeTo(token.RPAREN)
			return params
		}
		param := &ast.Parameter{Token: p.curToken(), Name: p.curToken().Lexeme}
		p.nextToken()
		if p.curTokenIs(token.COLON) {
			p.nextToken()
			param.TypeAnn = p.parseTypeExpr()
			if p.curTokenIs(token.AND_AND) {
				param.Moved = true
				p.nextToken()
			}
		}
		if p.curTokenIs(token.ASSIGN) {
			p.nextToken()
			param.Default = p.parseExpression(LOWEST)
		}
		params = append(params, param)
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expect(token.RPAREN, "to close parameter list") {
		p.synchronizeTo(token.RPAREN)
	}
	return params
}

// parseClassDeclaration parses class and struct declarations:
//
//	class Name<T>(Superclass, TraitA):
//	    field: T
//	    def method(self) -> int: ...
func (p *Parser) parseClassDeclaration(exported bool) ast.Statement {
	stmt := &ast.ClassDeclaration{
		Token:    p.curToken(),
		IsStruct: p.curTokenIs(token.STRUCT),
		Exported: exported,
	}
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		code := report.S007InvalidClassDecl
		if stmt.IsStruct {
			code = report.S014InvalidStructDecl
		}
		p.addErrorAt(code, "expected a type name", stmt.Token.Pos)
		p.synchronize()
		return &ast.BadStatement{Token: stmt.Token}
	}
	stmt.Name = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()

	if p.curTokenIs(token.LESS) {
		stmt.TypeParams = p.parseTypeParams()
	}

	// Optional bases: first a superclass (classes only), rest traits.
	if p.curTokenIs(token.LPAREN) {
		p.nextToken()
		first := true
		for !p.curTokenIs(token.RPAREN) && !p.curTokenIs(token.EOF) {
			base := p.parseTypeExpr()
			if first && !stmt.IsStruct {
				stmt.Superclass = base
			} else {
				stmt.Traits = append(stmt.Traits, base)
			}
			first = false
			if !p.curTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
		if !p.expect(token.RPAREN, "to close base list") {
			p.synchronizeTo(token.RPAREN)
		}
	}

	if !p.expect(token.COLON, "after class header") {
		p.synchronize()
		return stmt
	}
	if !p.curTokenIs(token.NEWLINE) || !p.peekTokenIs(token.INDENT) {
		p.addError(report.S002MissingToken, "expected an indented class body")
		return stmt
	}
	p.nextToken() // NEWLINE
	p.nextToken() // INDENT

	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) && !p.halted {
		public := true
		switch p.curToken().Type {
		case token.PUB:
			p.nextToken()
		case token.PRIV:
			public = false
			p.nextToken()
		}

		switch p.curToken().Type {
		case token.DEF:
			if fd, ok := p.parseFunctionDeclaration(false, false).(*ast.FunctionDeclaration); ok {
				stmt.Methods = append(stmt.Methods, fd)
			}
		case token.ASYNC:
			if p.peekTokenIs(token.DEF) {
				p.nextToken()
				if fd, ok := p.parseFunctionDeclaration(true, false).(*ast.FunctionDeclaration); ok {
					stmt.Methods = append(stmt.Methods, fd)
				}
			} else {
				p.addError(report.S004InvalidStatement, "'async' must be followed by 'def'")
				p.synchronize()
			}
		case token.IDENT:
			field := &ast.FieldDeclaration{Token: p.curToken(), Name: p.curToken().Lexeme, Public: public}
			p.nextToken()
			if !p.expect(token.COLON, "after field name") {
				p.synchronize()
				break
			}
			field.TypeAnn = p.parseTypeExpr()
			if p.curTokenIs(token.ASSIGN) {
				p.nextToken()
				field.Default = p.parseExpression(LOWEST)
			}
			stmt.Fields = append(stmt.Fields, field)
		default:
			p.addError(report.S001UnexpectedToken,
				"unexpected token '"+p.curToken().Type.String()+"' in class body")
			p.synchronize()
		}
		p.skipLayout()
	}
	if p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
	return stmt
}

// parseEnumDeclaration parses `enum Name<T>:` with variant lines
// `Name` or `Name(T1, T2)`.
func (p *Parser) parseEnumDeclaration(exported bool) ast.Statement {
	stmt := &ast.EnumDeclaration{Token: p.curToken(), Exported: exported}
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		p.addErrorAt(report.S013InvalidEnumDecl, "expected an enum name", stmt.Token.Pos)
		p.synchronize()
		return &ast.BadStatement{Token: stmt.Token}
	}
	stmt.Name = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()

	if p.curTokenIs(token.LESS) {
		stmt.TypeParams = p.parseTypeParams()
	}
	if !p.expect(token.COLON, "after enum header") {
		p.synchronize()
		return stmt
	}
	if !p.curTokenIs(token.NEWLINE) || !p.peekTokenIs(token.INDENT) {
		p.addError(report.S013InvalidEnumDecl, "expected an indented variant list")
		return stmt
	}
	p.nextToken() // NEWLINE
	p.nextToken() // INDENT

	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) && !p.halted {
		if !p.curTokenIs(token.IDENT) {
			p.addError(report.S013InvalidEnumDecl, "expected a variant name")
			p.synchronize()
			p.skipLayout()
			continue
		}
		variant := &ast.EnumVariant{Token: p.curToken(), Name: p.curToken().Lexeme}
		p.nextToken()
		if p.curTokenIs(token.LPAREN) {
			p.nextToken()
			for !p.curTokenIs(token.RPAREN) && !p.curTokenIs(token.EOF) {
				variant.Payload = append(variant.Payload, p.parseTypeExpr())
				if !p.curTokenIs(token.COMMA) {
					break
				}
				p.nextToken()
			}
			if !p.expect(token.RPAREN, "to close variant payload") {
				p.synchronizeTo(token.RPAREN)
			}
		}
		stmt.Variants = append(stmt.Variants, variant)
		p.skipLayout()
	}
	if p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
	if len(stmt.Variants) == 0 {
		p.addErrorAt(report.S013InvalidEnumDecl, "enum requires at least one variant", stmt.Token.Pos)
	}
	return stmt
}

// parseTraitDeclaration parses trait and interface declarations. A method
// line with a body (colon) becomes a default method; a bare signature ends
// at the newline.
func (p *Parser) parseTraitDeclaration(exported bool) ast.Statement {
	stmt := &ast.TraitDeclaration{
		Token:       p.curToken(),
		IsInterface: p.curTokenIs(token.INTERFACE),
		Exported:    exported,
	}
	p.nextToken()

	if !p.curTokenIs(token.IDENT) {
		p.addErrorAt(report.S016InvalidTraitDecl, "expected a trait name", stmt.Token.Pos)
		p.synchronize()
		return &ast.BadStatement{Token: stmt.Token}
	}
	stmt.Name = &ast.Identifier{Token: p.curToken(), Value: p.curToken().Lexeme}
	p.nextToken()

	if p.curTokenIs(token.LESS) {
		stmt.TypeParams = p.parseTypeParams()
	}
	if !p.expect(token.COLON, "after trait header") {
		p.synchronize()
		return stmt
	}
	if !p.curTokenIs(token.NEWLINE) || !p.peekTokenIs(token.INDENT) {
		p.addError(report.S016InvalidTraitDecl, "expected an indented trait body")
		return stmt
	}
	p.nextToken() // NEWLINE
	p.nextToken() // INDENT

	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) && !p.halted {
		if !p.curTokenIs(token.DEF) {
			p.addError(report.S016InvalidTraitDecl, "expected a method declaration in trait body")
			p.synchronize()
			p.skipLayout()
			continue
		}
		tok := p.curToken()
		p.nextToken()
		if !p.curTokenIs(token.IDENT) {
			p.addErrorAt(report.S006InvalidFunctionDecl, "expected a method name", tok.Pos)
			p.synchronize()
			p.skipLayout()
			continue
		}
		name := p.curToken()
		p.nextToken()
		params := p.parseParameterList()
		var ret ast.TypeExpr
		if p.curTokenIs(token.ARROW) {
			p.nextToken()
			ret = p.parseTypeExpr()
		}
		if p.curTokenIs(token.COLON) {
			// Default method with a body.
			fd := &ast.FunctionDeclaration{
				Token:     tok,
				Name:      &ast.Identifier{Token: name, Value: name.Lexeme},
				Params:    params,
				ReturnAnn: ret,
			}
			fd.Body = p.parseBlock("after method signature")
			stmt.Defaults = append(stmt.Defaults, fd)
		} else {
			stmt.Signatures = append(stmt.Signatures, &ast.MethodSignature{
				Token:     tok,
				Name:      name.Lexeme,
				Params:    params,
				ReturnAnn: ret,
			})
		}
		p.skipLayout()
	}
	if p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
	return stmt
}

// parseImplDeclaration parses `impl Trait for Type:` with method bodies.
func (p *Parser) parseImplDeclaration() ast.Statement {
	stmt := &ast.ImplDeclaration{Token: p.curToken()}
	p.nextToken()

	stmt.Trait = p.parseTypeExpr()
	if !p.curTokenIs(token.FOR) {
		p.addErrorAt(report.S017InvalidImplBlock, "expected 'for' in impl block", stmt.Token.Pos)
		p.synchronize()
		return &ast.BadStatement{Token: stmt.Token}
	}
	p.nextToken()
	stmt.Target = p.parseTypeExpr()

	if !p.expect(token.COLON, "after impl header") {
		p.synchronize()
		return stmt
	}
	if !p.curTokenIs(token.NEWLINE) || !p.peekTokenIs(token.INDENT) {
		p.addError(report.S017InvalidImplBlock, "expected an indented impl body")
		return stmt
	}
	p.nextToken() // NEWLINE
	p.nextToken() // INDENT

	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) && !p.halted {
		if !p.curTokenIs(token.DEF) {
			p.addError(report.S017InvalidImplBlock, "expected a method declaration in impl body")
			p.synchronize()
			p.skipLayout()
			continue
		}
		if fd, ok := p.parseFunctionDeclaration(false, false).(*ast.FunctionDeclaration); ok {
			stmt.Methods = append(stmt.Methods, fd)
		}
		p.skipLayout()
	}
	if p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
	return stmt
}
