package lexer

import (
	"testing"

	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

func tokenize(t *testing.T, input string) ([]token.Token, *report.Reporter) {
	t.Helper()
	reporter := report.New()
	l := New(input, "test.to", reporter)
	return l.Tokenize(), reporter
}

// kinds strips positions and lexemes for compact comparisons.
func kinds(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func expectKinds(t *testing.T, got []token.Token, want []token.Type) {
	t.Helper()
	gotKinds := kinds(got)
	if len(gotKinds) != len(want) {
		t.Fatalf("token count = %d, want %d\ngot: %v", len(gotKinds), len(want), gotKinds)
	}
	for i := range want {
		if gotKinds[i] != want[i] {
			t.Fatalf("token %d = %v, want %v\ngot: %v", i, gotKinds[i], want[i], gotKinds)
		}
	}
}

func TestEmptySource(t *testing.T) {
	toks, reporter := tokenize(t, "")
	expectKinds(t, toks, []token.Type{token.EOF})
	if reporter.HasErrors() {
		t.Errorf("unexpected diagnostics:\n%s", reporter.Dump())
	}
}

func TestSimpleStatement(t *testing.T) {
	toks, reporter := tokenize(t, "let x = 42\n")
	expectKinds(t, toks, []token.Type{
		token.LET, token.IDENT, token.ASSIGN, token.INT, token.NEWLINE, token.EOF,
	})
	if reporter.HasErrors() {
		t.Errorf("unexpected diagnostics:\n%s", reporter.Dump())
	}
	if toks[1].Lexeme != "x" || toks[3].Lexeme != "42" {
		t.Errorf("unexpected lexemes: %v", toks)
	}
}

func TestOperatorsMaximalMunch(t *testing.T) {
	tests := []struct {
		input    string
		expected token.Type
	}{
		{"==", token.EQ},
		{"===", token.STRICT_EQ},
		{"!=", token.NOT_EQ},
		{"!==", token.STRICT_NEQ},
		{"<=", token.LESS_EQ},
		{">=", token.GREATER_EQ},
		{"<<", token.SHL},
		{">>", token.SHR},
		{"<<=", token.SHL_EQ},
		{">>=", token.SHR_EQ},
		{"&&", token.AND_AND},
		{"||", token.OR_OR},
		{"**", token.POWER},
		{"**=", token.POWER_EQ},
		{"+=", token.PLUS_EQ},
		{"-=", token.MINUS_EQ},
		{"*=", token.STAR_EQ},
		{"/=", token.SLASH_EQ},
		{"%=", token.PERCENT_EQ},
		{"&=", token.AMP_EQ},
		{"|=", token.PIPE_EQ},
		{"^=", token.CARET_EQ},
		{"?.", token.SAFE_DOT},
		{"??", token.COALESCE},
		{"?:", token.ELVIS},
		{"->", token.ARROW},
		{"<-", token.CHAN_OP},
		{"-<", token.PIPE_TO},
		{"::", token.SCOPE},
		{"++", token.INCREMENT},
		{"--", token.DECREMENT},
		{"...", token.ELLIPSIS},
		{"..", token.RANGE},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks, _ := tokenize(t, tt.input)
			if toks[0].Type != tt.expected {
				t.Errorf("first token = %v, want %v", toks[0].Type, tt.expected)
			}
		})
	}
}

func TestPositions(t *testing.T) {
	toks, _ := tokenize(t, "let x\nlet y\n")
	// let at 1:1, x at 1:5, y at 2:5
	if toks[0].Pos.Line != 1 || toks[0].Pos.Column != 1 {
		t.Errorf("let position = %v", toks[0].Pos)
	}
	if toks[1].Pos.Line != 1 || toks[1].Pos.Column != 5 {
		t.Errorf("x position = %v", toks[1].Pos)
	}
	var y token.Token
	for _, tok := range toks {
		if tok.Lexeme == "y" {
			y = tok
		}
	}
	if y.Pos.Line != 2 || y.Pos.Column != 5 {
		t.Errorf("y position = %v", y.Pos)
	}
}

func TestUnicodeColumns(t *testing.T) {
	// Multi-byte runes count as one column.
	toks, _ := tokenize(t, "Δ x")
	if toks[0].Lexeme != "Δ" {
		t.Fatalf("first token lexeme = %q", toks[0].Lexeme)
	}
	if toks[1].Pos.Column != 3 {
		t.Errorf("x column = %d, want 3", toks[1].Pos.Column)
	}
}

func TestComments(t *testing.T) {
	input := "# full line comment\nlet x = 1 # trailing\n## block\nstill block ##\nlet y = 2\n"
	toks, reporter := tokenize(t, input)
	if reporter.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", reporter.Dump())
	}
	var names []string
	for _, tok := range toks {
		if tok.Type == token.IDENT {
			names = append(names, tok.Lexeme)
		}
	}
	if len(names) != 2 || names[0] != "x" || names[1] != "y" {
		t.Errorf("identifiers = %v, want [x y]", names)
	}
}

func TestInvalidCharacter(t *testing.T) {
	toks, reporter := tokenize(t, "let x = $\n")
	if !hasCode(reporter, report.L001InvalidCharacter) {
		t.Fatalf("expected L001, got:\n%s", reporter.Dump())
	}
	found := false
	for _, tok := range toks {
		if tok.Type == token.ERROR {
			found = true
		}
	}
	if !found {
		t.Error("expected an ERROR token in the stream")
	}
	if toks[len(toks)-1].Type != token.EOF {
		t.Error("lexing should recover to EOF")
	}
}

func TestDeterministic(t *testing.T) {
	input := "def f(a: int) -> int:\n    return a * 2\n"
	first, _ := tokenize(t, input)
	second, _ := tokenize(t, input)
	if len(first) != len(second) {
		t.Fatalf("re-lexing changed token count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("token %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func hasCode(r *report.Reporter, code report.Code) bool {
	for _, d := range r.All() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func countCode(r *report.Reporter, code report.Code) int {
	n := 0
	for _, d := range r.All() {
		if d.Code == code {
			n++
		}
	}
	return n
}
