package lexer

import (
	"strconv"
	"strings"

	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

// scanNumber scans integer and floating-point literals.
//
// Supported forms: decimal, 0x/0X hex, 0b/0B binary, leading-0 octal, a
// fractional part and an e|E exponent (either forces float). Suffixes:
// f|F selects float32, l|L and u|U are recorded in the lexeme. Out-of-range
// integers report L003.
func (l *Lexer) scanNumber() token.Token {
	pos := l.pos()
	start := l.position

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		return l.scanRadix(pos, start, 16, isHexDigit)
	}
	if l.ch == '0' && (l.peekChar() == 'b' || l.peekChar() == 'B') {
		l.readChar()
		l.readChar()
		return l.scanRadix(pos, start, 2, isBinaryDigit)
	}
	if l.ch == '0' && isOctalDigit(l.peekChar()) {
		l.readChar()
		return l.scanRadix(pos, start, 8, isOctalDigit)
	}

	for isDigit(l.ch) {
		l.readChar()
	}

	isFloat := false
	// A fractional part; '..' is the range operator, not a fraction.
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			isFloat = true
			l.readChar() // e
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			if !isDigit(l.ch) {
				l.addError(report.L003InvalidNumber, "exponent has no digits", pos)
				return l.makeTokenAt(token.ERROR, l.input[start:l.position], pos)
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	lexeme := l.input[start:l.position]
	typ := token.INT
	if isFloat {
		typ = token.FLOAT64
	}

	// Suffixes: f/F force float32; l/L and u/U stay in the lexeme.
	for {
		switch l.ch {
		case 'f', 'F':
			typ = token.FLOAT32
			l.readChar()
			lexeme = l.input[start:l.position]
			continue
		case 'l', 'L', 'u', 'U':
			l.readChar()
			lexeme = l.input[start:l.position]
			continue
		}
		break
	}

	if typ == token.INT {
		digits := strings.TrimRight(lexeme, "lLuU")
		if _, err := strconv.ParseInt(digits, 10, 64); err != nil {
			l.addError(report.L003InvalidNumber, "integer literal out of range: "+lexeme, pos)
			return l.makeTokenAt(token.ERROR, lexeme, pos)
		}
	}
	return l.makeTokenAt(typ, lexeme, pos)
}

// scanRadix scans the digits of a hex/binary/octal literal after its prefix.
func (l *Lexer) scanRadix(pos token.Position, start int, base int, valid func(rune) bool) token.Token {
	digits := 0
	for valid(l.ch) {
		digits++
		l.readChar()
	}
	lexeme := l.input[start:l.position]
	if digits == 0 {
		l.addError(report.L003InvalidNumber, "number literal has no digits: "+lexeme, pos)
		return l.makeTokenAt(token.ERROR, lexeme, pos)
	}
	for l.ch == 'l' || l.ch == 'L' || l.ch == 'u' || l.ch == 'U' {
		l.readChar()
		lexeme = l.input[start:l.position]
	}
	body := strings.TrimRight(lexeme, "lLuU")
	switch base {
	case 16:
		body = body[2:]
	case 2:
		body = body[2:]
	case 8:
		body = body[1:]
	}
	if _, err := strconv.ParseUint(body, base, 64); err != nil {
		l.addError(report.L003InvalidNumber, "integer literal out of range: "+lexeme, pos)
		return l.makeTokenAt(token.ERROR, lexeme, pos)
	}
	return l.makeTokenAt(token.INT, lexeme, pos)
}

func isHexDigit(ch rune) bool {
	_, ok := hexValue(ch)
	return ok
}

func isBinaryDigit(ch rune) bool { return ch == '0' || ch == '1' }

func isOctalDigit(ch rune) bool { return ch >= '0' && ch <= '7' }
