package lexer

import (
	"strings"

	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

// scanTemplate scans a backtick-delimited template literal. The emission
// sequence is:
//
//	TEMPLATE_START(text0)
//	TEMPLATE_EXPR(expr-source) [STRING(fragment)] ...
//	TEMPLATE_END(textN)
//
// Intermediate text between two substitutions is emitted as a STRING token;
// the fragment after the final substitution (possibly empty) is the
// TEMPLATE_END lexeme. Brace nesting inside ${...} is tracked; a newline
// inside a substitution reports L007.
func (l *Lexer) scanTemplate() token.Token {
	pos := l.pos()
	l.readChar() // opening backtick

	first := true
	var frag strings.Builder
	var queued []token.Token

	flush := func(final bool) {
		text := frag.String()
		frag.Reset()
		switch {
		case first:
			queued = append(queued, l.makeTokenAt(token.TEMPLATE_START, text, pos))
			first = false
			if final {
				queued = append(queued, l.makeToken(token.TEMPLATE_END, ""))
			}
		case final:
			queued = append(queued, l.makeToken(token.TEMPLATE_END, text))
		default:
			queued = append(queued, l.makeToken(token.STRING, text))
		}
	}

	for {
		switch {
		case l.ch == '`':
			l.readChar()
			flush(true)
			return l.deliver(queued)
		case l.ch == 0:
			l.addError(report.L007InvalidTemplate, "unterminated template literal", pos)
			queued = append(queued, l.makeTokenAt(token.ERROR, frag.String(), pos))
			return l.deliver(queued)
		case l.ch == '\n':
			// Templates may span lines in the text part.
			frag.WriteRune('\n')
			l.line++
			l.column = 0
			l.readChar()
		case l.ch == '\\':
			l.readChar()
			if r, ok := l.scanEscape(); ok {
				frag.WriteRune(r)
			}
		case l.ch == '$' && l.peekChar() == '{':
			flush(false)
			l.readChar() // '$'
			l.readChar() // '{'
			src, ok := l.scanTemplateExpr(pos)
			if !ok {
				queued = append(queued, l.makeTokenAt(token.ERROR, src, pos))
				return l.deliver(queued)
			}
			queued = append(queued, l.makeToken(token.TEMPLATE_EXPR, src))
		default:
			frag.WriteRune(l.ch)
			l.readChar()
		}
	}
}

// scanTemplateExpr captures the raw source of one ${...} substitution,
// tracking nested braces. The closing brace is consumed.
func (l *Lexer) scanTemplateExpr(start token.Position) (string, bool) {
	var sb strings.Builder
	depth := 1
	for {
		switch l.ch {
		case 0:
			l.addError(report.L007InvalidTemplate, "unterminated template substitution", start)
			return sb.String(), false
		case '\n':
			l.addError(report.L007InvalidTemplate, "newline in template substitution", start)
			l.line++
			l.column = 0
			l.readChar()
			return sb.String(), false
		case '{':
			depth++
			sb.WriteRune('{')
			l.readChar()
		case '}':
			depth--
			if depth == 0 {
				l.readChar()
				return sb.String(), true
			}
			sb.WriteRune('}')
			l.readChar()
		default:
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
}

// deliver returns the first queued token and defers the rest.
func (l *Lexer) deliver(queued []token.Token) token.Token {
	if len(queued) == 0 {
		return token.Token{Type: token.ILLEGAL}
	}
	l.pending = append(l.pending, queued[1:]...)
	return queued[0]
}
