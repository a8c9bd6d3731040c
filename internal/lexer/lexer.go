// Package lexer converts Tocin source text into a token stream.
//
// The lexer synthesizes layout tokens from significant indentation: on the
// first non-whitespace character of a line the indent prefix is measured and
// INDENT/DEDENT tokens are emitted for each unit of change. Blank lines and
// comment-only lines do not affect indentation, and at end of input DEDENTs
// are emitted until the level returns to zero, so the INDENT and DEDENT
// counts over a full stream always balance.
//
// Columns count runes from the start of the line, not bytes. Multi-byte
// UTF-8 sequences count as one column.
package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

const (
	defaultIndentWidth = 4
	defaultMaxErrors   = 100
)

// Lexer is a streaming tokenizer for a single source file.
type Lexer struct {
	input    string
	filename string
	reporter *report.Reporter

	position     int  // byte offset of ch
	readPosition int  // byte offset after ch
	ch           rune // current character, 0 at EOF
	line         int
	column       int

	atLineStart bool
	indentLevel int
	indentWidth int
	parenDepth  int // suppresses NEWLINE inside (...) [...] {...}
	lastEmitted token.Type

	pending []token.Token // queued layout and template tokens

	errorCount int
	maxErrors  int
	halted     bool
}

// Option configures a Lexer.
type Option func(*Lexer)

// WithIndentWidth sets the number of spaces per indentation unit.
// A tab counts as one full unit.
func WithIndentWidth(w int) Option {
	return func(l *Lexer) {
		if w > 0 {
			l.indentWidth = w
		}
	}
}

// WithMaxErrors sets the lexical error threshold. Reaching it records a
// fatal L004 diagnostic and halts tokenization.
func WithMaxErrors(n int) Option {
	return func(l *Lexer) {
		if n > 0 {
			l.maxErrors = n
		}
	}
}

// New creates a Lexer for the given source. A UTF-8 BOM is stripped if
// present. The filename is interned before being placed on positions.
func New(input, filename string, reporter *report.Reporter, opts ...Option) *Lexer {
	if len(input) >= 3 && input[0] == 0xEF && input[1] == 0xBB && input[2] == 0xBF {
		input = input[3:]
	}
	l := &Lexer{
		input:       input,
		filename:    token.Intern(filename),
		reporter:    reporter,
		line:        1,
		column:      0,
		atLineStart: true,
		indentWidth: defaultIndentWidth,
		maxErrors:   defaultMaxErrors,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.readChar()
	return l
}

// Tokenize consumes the whole input and returns the token sequence,
// terminated by a single EOF token.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

// NextToken returns the next token in the stream. After the input is
// exhausted it keeps returning EOF.
func (l *Lexer) NextToken() token.Token {
	for {
		if len(l.pending) > 0 {
			tok := l.pending[0]
			l.pending = l.pending[1:]
			l.lastEmitted = tok.Type
			return tok
		}
		if l.halted {
			return l.makeToken(token.EOF, "")
		}

		if l.atLineStart {
			if l.parenDepth > 0 {
				l.skipSpaces() // layout is suspended inside brackets
			} else {
				l.handleIndentation()
			}
			l.atLineStart = false
			continue
		}

		l.skipSpaces()

		if l.ch == 0 {
			l.emitTrailingDedents()
			continue
		}
		if l.ch == '\n' {
			l.consumeNewline()
			continue
		}
		if l.ch == '#' {
			l.skipComment()
			continue
		}

		tok := l.scanToken()
		if tok.Type == token.ILLEGAL {
			continue // error already reported, token synthesized via pending
		}
		l.lastEmitted = tok.Type
		return tok
	}
}

// Errors returns the number of lexical errors reported so far.
func (l *Lexer) Errors() int { return l.errorCount }

// readChar advances to the next character, decoding UTF-8.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.column++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
	l.column++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// match consumes the current character if it equals expected.
func (l *Lexer) match(expected rune) bool {
	if l.ch != expected {
		return false
	}
	l.readChar()
	return true
}

func (l *Lexer) pos() token.Position {
	return token.Position{Filename: l.filename, Line: l.line, Column: l.column}
}

func (l *Lexer) makeToken(t token.Type, lexeme string) token.Token {
	return token.Token{Type: t, Lexeme: lexeme, Pos: l.pos()}
}

func (l *Lexer) makeTokenAt(t token.Type, lexeme string, pos token.Position) token.Token {
	return token.Token{Type: t, Lexeme: lexeme, Pos: pos}
}

// addError reports a lexical diagnostic and enforces the error threshold.
func (l *Lexer) addError(code report.Code, msg string, pos token.Position) {
	l.errorCount++
	if l.errorCount > l.maxErrors {
		return
	}
	l.reporter.Report(code, msg, pos, report.Error)
	if l.errorCount == l.maxErrors {
		l.reporter.Report(report.L004TooManyErrors, "too many lexical errors; giving up", pos, report.Fatal)
		l.halted = true
		l.emitTrailingDedentsInto()
	}
}

// skipSpaces consumes spaces, tabs and carriage returns inside a line.
func (l *Lexer) skipSpaces() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

// consumeNewline advances past '\n', emitting a NEWLINE token when the line
// produced content and we are not inside brackets.
func (l *Lexer) consumeNewline() {
	emit := l.parenDepth == 0 && l.significantLast()
	pos := l.pos()
	l.line++
	l.column = 0
	l.readChar()
	l.atLineStart = true
	if emit {
		l.pending = append(l.pending, l.makeTokenAt(token.NEWLINE, "\\n", pos))
	}
}

// significantLast reports whether the previously emitted token ends a
// logical line. Blank lines and layout tokens never produce NEWLINE.
func (l *Lexer) significantLast() bool {
	switch l.lastEmitted {
	case token.ILLEGAL, token.NEWLINE, token.INDENT, token.DEDENT, token.EOF:
		return false
	}
	return true
}

// skipComment consumes a '#' line comment or a '##'-delimited block comment.
// Block comments may span lines; the line counter still advances.
func (l *Lexer) skipComment() {
	l.readChar() // first '#'
	if l.ch == '#' {
		l.readChar()
		for {
			if l.ch == 0 {
				return
			}
			if l.ch == '#' && l.peekChar() == '#' {
				l.readChar()
				l.readChar()
				return
			}
			if l.ch == '\n' {
				l.line++
				l.column = 0
			}
			l.readChar()
		}
	}
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// handleIndentation measures the indent prefix of a fresh line and queues
// INDENT/DEDENT tokens for the level change. Blank and comment-only lines
// are ignored.
func (l *Lexer) handleIndentation() {
	spaces := 0
	usedTab, usedSpace := false, false
	for l.ch == ' ' || l.ch == '\t' {
		if l.ch == ' ' {
			spaces++
			usedSpace = true
		} else {
			spaces += l.indentWidth
			usedTab = true
		}
		l.readChar()
	}

	if usedTab && usedSpace {
		l.addError(report.L001InvalidCharacter, "mixed tabs and spaces in indentation", l.pos())
		return
	}

	// Blank or comment-only lines do not affect indentation.
	if l.ch == '\n' || l.ch == '\r' || l.ch == 0 || l.ch == '#' {
		return
	}

	level := spaces / l.indentWidth
	pos := l.pos()
	for level > l.indentLevel {
		l.indentLevel++
		l.pending = append(l.pending, l.makeTokenAt(token.INDENT, "", pos))
	}
	for level < l.indentLevel {
		l.indentLevel--
		l.pending = append(l.pending, l.makeTokenAt(token.DEDENT, "", pos))
	}
}

// emitTrailingDedents queues the NEWLINE/DEDENT/EOF sequence at end of input.
func (l *Lexer) emitTrailingDedents() {
	if l.parenDepth == 0 && l.significantLast() {
		l.pending = append(l.pending, l.makeToken(token.NEWLINE, "\\n"))
	}
	l.emitTrailingDedentsInto()
	l.pending = append(l.pending, l.makeToken(token.EOF, ""))
	l.halted = true
}

func (l *Lexer) emitTrailingDedentsInto() {
	for l.indentLevel > 0 {
		l.indentLevel--
		l.pending = append(l.pending, l.makeToken(token.DEDENT, ""))
	}
}

// scanToken scans a single non-layout token starting at the current
// character. Returns an ILLEGAL-typed token when the input was consumed as
// an error (the ERROR token is queued instead).
func (l *Lexer) scanToken() token.Token {
	if isIdentStart(l.ch) {
		return l.scanIdentifier()
	}
	if isDigit(l.ch) {
		return l.scanNumber()
	}

	pos := l.pos()
	ch := l.ch

	switch ch {
	case '"', '\'':
		return l.scanString(ch)
	case '`':
		return l.scanTemplate()
	}

	l.readChar()

	switch ch {
	case '(':
		l.parenDepth++
		return l.makeTokenAt(token.LPAREN, "(", pos)
	case ')':
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		return l.makeTokenAt(token.RPAREN, ")", pos)
	case '{':
		l.parenDepth++
		return l.makeTokenAt(token.LBRACE, "{", pos)
	case '}':
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		return l.makeTokenAt(token.RBRACE, "}", pos)
	case '[':
		l.parenDepth++
		return l.makeTokenAt(token.LBRACKET, "[", pos)
	case ']':
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		return l.makeTokenAt(token.RBRACKET, "]", pos)
	case ',':
		return l.makeTokenAt(token.COMMA, ",", pos)
	case ';':
		return l.makeTokenAt(token.SEMICOLON, ";", pos)
	case '@':
		return l.makeTokenAt(token.AT, "@", pos)
	case '~':
		return l.makeTokenAt(token.TILDE, "~", pos)
	case '.':
		if l.match('.') {
			if l.match('.') {
				return l.makeTokenAt(token.ELLIPSIS, "...", pos)
			}
			return l.makeTokenAt(token.RANGE, "..", pos)
		}
		return l.makeTokenAt(token.DOT, ".", pos)
	case ':':
		if l.match(':') {
			return l.makeTokenAt(token.SCOPE, "::", pos)
		}
		return l.makeTokenAt(token.COLON, ":", pos)
	case '+':
		if l.match('=') {
			return l.makeTokenAt(token.PLUS_EQ, "+=", pos)
		}
		if l.match('+') {
			return l.makeTokenAt(token.INCREMENT, "++", pos)
		}
		return l.makeTokenAt(token.PLUS, "+", pos)
	case '-':
		if l.match('=') {
			return l.makeTokenAt(token.MINUS_EQ, "-=", pos)
		}
		if l.match('-') {
			return l.makeTokenAt(token.DECREMENT, "--", pos)
		}
		if l.match('>') {
			return l.makeTokenAt(token.ARROW, "->", pos)
		}
		if l.match('<') {
			return l.makeTokenAt(token.PIPE_TO, "-<", pos)
		}
		return l.makeTokenAt(token.MINUS, "-", pos)
	case '*':
		if l.match('*') {
			if l.match('=') {
				return l.makeTokenAt(token.POWER_EQ, "**=", pos)
			}
			return l.makeTokenAt(token.POWER, "**", pos)
		}
		if l.match('=') {
			return l.makeTokenAt(token.STAR_EQ, "*=", pos)
		}
		return l.makeTokenAt(token.STAR, "*", pos)
	case '/':
		if l.match('=') {
			return l.makeTokenAt(token.SLASH_EQ, "/=", pos)
		}
		return l.makeTokenAt(token.SLASH, "/", pos)
	case '%':
		if l.match('=') {
			return l.makeTokenAt(token.PERCENT_EQ, "%=", pos)
		}
		return l.makeTokenAt(token.PERCENT, "%", pos)
	case '=':
		if l.match('=') {
			if l.match('=') {
				return l.makeTokenAt(token.STRICT_EQ, "===", pos)
			}
			return l.makeTokenAt(token.EQ, "==", pos)
		}
		return l.makeTokenAt(token.ASSIGN, "=", pos)
	case '!':
		if l.match('=') {
			if l.match('=') {
				return l.makeTokenAt(token.STRICT_NEQ, "!==", pos)
			}
			return l.makeTokenAt(token.NOT_EQ, "!=", pos)
		}
		return l.makeTokenAt(token.BANG, "!", pos)
	case '<':
		if l.match('=') {
			return l.makeTokenAt(token.LESS_EQ, "<=", pos)
		}
		if l.match('<') {
			if l.match('=') {
				return l.makeTokenAt(token.SHL_EQ, "<<=", pos)
			}
			return l.makeTokenAt(token.SHL, "<<", pos)
		}
		if l.match('-') {
			return l.makeTokenAt(token.CHAN_OP, "<-", pos)
		}
		return l.makeTokenAt(token.LESS, "<", pos)
	case '>':
		if l.match('=') {
			return l.makeTokenAt(token.GREATER_EQ, ">=", pos)
		}
		if l.match('>') {
			if l.match('=') {
				return l.makeTokenAt(token.SHR_EQ, ">>=", pos)
			}
			return l.makeTokenAt(token.SHR, ">>", pos)
		}
		return l.makeTokenAt(token.GREATER, ">", pos)
	case '&':
		if l.match('&') {
			return l.makeTokenAt(token.AND_AND, "&&", pos)
		}
		if l.match('=') {
			return l.makeTokenAt(token.AMP_EQ, "&=", pos)
		}
		return l.makeTokenAt(token.AMP, "&", pos)
	case '|':
		if l.match('|') {
			return l.makeTokenAt(token.OR_OR, "||", pos)
		}
		if l.match('=') {
			return l.makeTokenAt(token.PIPE_EQ, "|=", pos)
		}
		return l.makeTokenAt(token.PIPE, "|", pos)
	case '^':
		if l.match('=') {
			return l.makeTokenAt(token.CARET_EQ, "^=", pos)
		}
		return l.makeTokenAt(token.CARET, "^", pos)
	case '?':
		if l.match('.') {
			return l.makeTokenAt(token.SAFE_DOT, "?.", pos)
		}
		if l.match('?') {
			return l.makeTokenAt(token.COALESCE, "??", pos)
		}
		if l.match(':') {
			return l.makeTokenAt(token.ELVIS, "?:", pos)
		}
		return l.makeTokenAt(token.QUESTION, "?", pos)
	}

	l.addError(report.L001InvalidCharacter, "unexpected character: "+string(ch), pos)
	l.pending = append(l.pending, l.makeTokenAt(token.ERROR, string(ch), pos))
	return token.Token{Type: token.ILLEGAL}
}

// scanIdentifier scans an identifier or keyword.
func (l *Lexer) scanIdentifier() token.Token {
	pos := l.pos()
	start := l.position
	for isIdentPart(l.ch) {
		l.readChar()
	}
	lexeme := l.input[start:l.position]
	return l.makeTokenAt(token.LookupIdent(lexeme), lexeme, pos)
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }
