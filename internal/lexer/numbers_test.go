package lexer

import (
	"testing"

	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected token.Type
		lexeme   string
	}{
		{"0", token.INT, "0"},
		{"42", token.INT, "42"},
		{"0x1F", token.INT, "0x1F"},
		{"0XFF", token.INT, "0XFF"},
		{"0b1010", token.INT, "0b1010"},
		{"0B11", token.INT, "0B11"},
		{"0755", token.INT, "0755"},
		{"3.14", token.FLOAT64, "3.14"},
		{"1e10", token.FLOAT64, "1e10"},
		{"1.5e-3", token.FLOAT64, "1.5e-3"},
		{"2E+4", token.FLOAT64, "2E+4"},
		{"1.5f", token.FLOAT32, "1.5f"},
		{"2F", token.FLOAT32, "2F"},
		{"10l", token.INT, "10l"},
		{"10u", token.INT, "10u"},
		{"10UL", token.INT, "10UL"},
		{"9223372036854775807", token.INT, "9223372036854775807"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks, reporter := tokenize(t, tt.input)
			if reporter.HasErrors() {
				t.Fatalf("unexpected diagnostics:\n%s", reporter.Dump())
			}
			if toks[0].Type != tt.expected {
				t.Errorf("type = %v, want %v", toks[0].Type, tt.expected)
			}
			if toks[0].Lexeme != tt.lexeme {
				t.Errorf("lexeme = %q, want %q", toks[0].Lexeme, tt.lexeme)
			}
		})
	}
}

func TestIntegerOverflow(t *testing.T) {
	// One past the maximum int64.
	_, reporter := tokenize(t, "9223372036854775808")
	if !hasCode(reporter, report.L003InvalidNumber) {
		t.Errorf("expected L003 for overflow, got:\n%s", reporter.Dump())
	}
}

func TestMalformedNumbers(t *testing.T) {
	tests := []string{"0x", "0b", "1e"}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			toks, reporter := tokenize(t, input)
			if input == "1e" {
				// A bare trailing e is an identifier continuation, not an
				// exponent; "1e" lexes as INT then IDENT.
				if reporter.HasErrors() {
					t.Errorf("unexpected diagnostics for %q:\n%s", input, reporter.Dump())
				}
				return
			}
			if !hasCode(reporter, report.L003InvalidNumber) {
				t.Errorf("expected L003 for %q, tokens %v", input, toks)
			}
		})
	}
}

func TestRangeIsNotAFraction(t *testing.T) {
	toks, reporter := tokenize(t, "0..10")
	if reporter.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", reporter.Dump())
	}
	expectKinds(t, toks, []token.Type{token.INT, token.RANGE, token.INT, token.NEWLINE, token.EOF})
}
