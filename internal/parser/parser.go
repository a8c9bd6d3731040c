// Package parser implements the Tocin parser: recursive descent for
// statements, Pratt precedence climbing for expressions, and panic-mode
// error recovery that resynchronizes at statement boundaries.
package parser

import (
	"strings"

	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/lexer"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

// Precedence levels, lowest to highest.
const (
	_ int = iota
	LOWEST
	ASSIGNMENT // = += -= ... and channel send
	ELVIS      // ?:
	COALESCE   // ??
	RANGE      // .. ...
	OR         // ||
	AND        // &&
	BITOR      // |
	BITXOR     // ^
	BITAND     // &
	EQUALITY   // == != === !==
	RELATIONAL // < <= > >= is as instanceof in
	SHIFT      // << >>
	SUM        // + -
	PRODUCT    // * / %
	EXPONENT   // ** (right-assoc)
	PREFIX     // -x !x ~x ++x --x await move new delete <-ch
	POSTFIX    // call, index, member, ?. , !, x++ x--
)

var precedences = map[token.Type]int{
	token.ASSIGN:     ASSIGNMENT,
	token.PLUS_EQ:    ASSIGNMENT,
	token.MINUS_EQ:   ASSIGNMENT,
	token.STAR_EQ:    ASSIGNMENT,
	token.SLASH_EQ:   ASSIGNMENT,
	token.PERCENT_EQ: ASSIGNMENT,
	token.POWER_EQ:   ASSIGNMENT,
	token.AMP_EQ:     ASSIGNMENT,
	token.PIPE_EQ:    ASSIGNMENT,
	token.CARET_EQ:   ASSIGNMENT,
	token.SHL_EQ:     ASSIGNMENT,
	token.SHR_EQ:     ASSIGNMENT,
	token.CHAN_OP:    ASSIGNMENT,

	token.ELVIS:    ELVIS,
	token.COALESCE: COALESCE,

	token.RANGE:    RANGE,
	token.ELLIPSIS: RANGE,

	token.OR_OR:   OR,
	token.AND_AND: AND,

	token.PIPE:  BITOR,
	token.CARET: BITXOR,
	token.AMP:   BITAND,

	token.EQ:         EQUALITY,
	token.NOT_EQ:     EQUALITY,
	token.STRICT_EQ:  EQUALITY,
	token.STRICT_NEQ: EQUALITY,

	token.LESS:       RELATIONAL,
	token.LESS_EQ:    RELATIONAL,
	token.GREATER:    RELATIONAL,
	token.GREATER_EQ: RELATIONAL,
	token.IS:         RELATIONAL,
	token.AS:         RELATIONAL,
	token.INSTANCEOF: RELATIONAL,
	token.IN:         RELATIONAL,

	token.SHL: SHIFT,
	token.SHR: SHIFT,

	token.PLUS:  SUM,
	token.MINUS: SUM,

	token.STAR:    PRODUCT,
	token.SLASH:   PRODUCT,
	token.PERCENT: PRODUCT,

	token.POWER: EXPONENT,

	token.LPAREN:    POSTFIX,
	token.LBRACKET:  POSTFIX,
	token.DOT:       POSTFIX,
	token.SCOPE:     POSTFIX,
	token.SAFE_DOT:  POSTFIX,
	token.BANG:      POSTFIX,
	token.INCREMENT: POSTFIX,
	token.DECREMENT: POSTFIX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

const defaultMaxErrors = 100

// Parser parses one token stream into an ast.Module.
type Parser struct {
	tokens   []token.Token
	pos      int
	reporter *report.Reporter

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn

	errorCount int
	maxErrors  int
	halted     bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxErrors sets the syntax-error circuit breaker. Reaching the limit
// records a fatal S021 diagnostic and abandons the parse.
func WithMaxErrors(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxErrors = n
		}
	}
}

// New creates a Parser over a lexer's full token stream.
func New(l *lexer.Lexer, reporter *report.Reporter, opts ...Option) *Parser {
	return NewFromTokens(l.Tokenize(), reporter, opts...)
}

// NewFromTokens creates a Parser over an existing token slice. The slice
// must be terminated by EOF.
func NewFromTokens(tokens []token.Token, reporter *report.Reporter, opts ...Option) *Parser {
	p := &Parser{
		tokens:    tokens,
		reporter:  reporter,
		maxErrors: defaultMaxErrors,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.registerParseFns()
	return p
}

// ParseModule parses the whole unit and returns the (possibly partial) AST.
func (p *Parser) ParseModule() *ast.Module {
	mod := &ast.Module{}
	p.skipLayout()
	for !p.curTokenIs(token.EOF) && !p.halted {
		stmt := p.parseStatement()
		if stmt != nil {
			if md, ok := stmt.(*ast.ModuleDeclaration); ok && mod.Name == "" {
				mod.Name = md.Name
			}
			mod.Statements = append(mod.Statements, stmt)
		}
		p.skipLayout()
	}
	return mod
}

// curToken returns the token at the cursor.
func (p *Parser) curToken() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

// peekToken returns the token after the cursor.
func (p *Parser) peekToken() token.Token {
	if p.pos+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken().Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken().Type == t }

// expect consumes the current token if it has the wanted type; otherwise it
// reports S002 and returns false without consuming.
func (p *Parser) expect(t token.Type, context string) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorExpected(context, t)
	return false
}

// skipLayout consumes NEWLINE and stray SEMICOLON tokens between
// statements.
func (p *Parser) skipLayout() {
	for p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
}

// skipNewlines consumes NEWLINE tokens only.
func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken().Type]; ok {
		return prec
	}
	return LOWEST
}

// addError reports a syntax diagnostic and enforces the circuit breaker.
func (p *Parser) addError(code report.Code, msg string) {
	p.addErrorAt(code, msg, p.curToken().Pos)
}

func (p *Parser) addErrorAt(code report.Code, msg string, pos token.Position) {
	if p.halted {
		return
	}
	p.errorCount++
	if p.errorCount >= p.maxErrors {
		p.reporter.Report(report.S021TooManyErrors, "too many syntax errors; giving up", pos, report.Fatal)
		p.halted = true
		return
	}
	p.reporter.Report(code, msg, pos, report.Error)
}

// errorExpected reports a missing-token error naming the expected kinds.
func (p *Parser) errorExpected(context string, expected ...token.Type) {
	names := make([]string, len(expected))
	for i, e := range expected {
		names[i] = "'" + e.String() + "'"
	}
	msg := "expected " + strings.Join(names, " or ")
	if context != "" {
		msg += " " + context
	}
	msg += ", got '" + p.curToken().Type.String() + "'"
	p.addError(report.S002MissingToken, msg)
}

// Tokens that can begin a top-level statement; used as the synchronization
// set for panic-mode recovery.
var statementStarters = map[token.Type]bool{
	token.DEF:       true,
	token.CLASS:     true,
	token.STRUCT:    true,
	token.ENUM:      true,
	token.TRAIT:     true,
	token.INTERFACE: true,
	token.ASYNC:     true,
	token.IMPL:      true,
	token.LET:       true,
	token.CONST:     true,
	token.IF:        true,
	token.WHILE:     true,
	token.FOR:       true,
	token.RETURN:    true,
	token.MATCH:     true,
	token.IMPORT:    true,
	token.FROM:      true,
	token.EXPORT:    true,
	token.MODULE:    true,
	token.EXTEND:    true,
}

// synchronize consumes tokens until the next statement boundary. A NEWLINE
// or semicolon is consumed and ends the scan; a statement-starting keyword,
// a DEDENT exiting the enclosing block, or EOF ends it without being
// consumed.
func (p *Parser) synchronize() {
	for !p.curTokenIs(token.EOF) && !p.halted {
		switch p.curToken().Type {
		case token.NEWLINE, token.SEMICOLON:
			p.nextToken()
			return
		case token.DEDENT:
			return
		}
		if statementStarters[p.curToken().Type] {
			return
		}
		p.nextToken()
	}
}

// synchronizeTo consumes tokens until the given kind is current, then
// consumes it. Used after missing-delimiter recoveries.
func (p *Parser) synchronizeTo(t token.Type) {
	for !p.curTokenIs(token.EOF) && !p.curTokenIs(t) && !p.halted {
		p.nextToken()
	}
	if p.curTokenIs(t) {
		p.nextToken()
	}
}
