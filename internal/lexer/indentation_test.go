package lexer

import (
	"testing"

	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

func TestIndentDedentBasic(t *testing.T) {
	input := "if x:\n    print(x)\nprint(y)\n"
	toks, reporter := tokenize(t, input)
	if reporter.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", reporter.Dump())
	}
	var layout []token.Type
	for _, tok := range toks {
		if tok.Type == token.INDENT || tok.Type == token.DEDENT {
			layout = append(layout, tok.Type)
		}
	}
	if len(layout) != 2 || layout[0] != token.INDENT || layout[1] != token.DEDENT {
		t.Errorf("layout tokens = %v, want [INDENT DEDENT]", layout)
	}
}

func TestIndentMultipleLevels(t *testing.T) {
	input := "a:\n    b:\n        c\n"
	toks, _ := tokenize(t, input)
	indents, dedents := 0, 0
	for _, tok := range toks {
		switch tok.Type {
		case token.INDENT:
			indents++
		case token.DEDENT:
			dedents++
		}
	}
	if indents != 2 {
		t.Errorf("INDENT count = %d, want 2", indents)
	}
	if dedents != 2 {
		t.Errorf("DEDENT count = %d, want 2 (trailing dedents at EOF)", dedents)
	}
}

// The balance invariant: over a full token stream, INDENT and DEDENT
// counts are equal for any input and any indent width.
func TestIndentDedentBalance(t *testing.T) {
	inputs := []string{
		"",
		"x\n",
		"a:\n    b\n",
		"a:\n    b:\n        c\n",
		"a:\n    b:\n        c\nd\n",
		"a:\n    b\n\n\n    c\n",
		"a:\n    # comment only\n    b\n",
		"a:\n        overdented\n",
		"a:\n    b\n        c\n    d\n",
		"deep:\n    l1:\n        l2:\n            l3:\n                l4\n",
	}
	widths := []int{2, 4, 8}

	for _, input := range inputs {
		for _, w := range widths {
			reporter := report.New()
			l := New(input, "balance.to", reporter, WithIndentWidth(w))
			indents, dedents := 0, 0
			for _, tok := range l.Tokenize() {
				switch tok.Type {
				case token.INDENT:
					indents++
				case token.DEDENT:
					dedents++
				}
			}
			if indents != dedents {
				t.Errorf("input %q width %d: INDENT=%d DEDENT=%d", input, w, indents, dedents)
			}
		}
	}
}

func TestBlankAndCommentLinesDoNotAffectIndentation(t *testing.T) {
	input := "a:\n    b\n\n    # note\n    c\n"
	toks, _ := tokenize(t, input)
	indents := 0
	for _, tok := range toks {
		if tok.Type == token.INDENT {
			indents++
		}
	}
	if indents != 1 {
		t.Errorf("INDENT count = %d, want 1", indents)
	}
}

func TestMixedTabsAndSpaces(t *testing.T) {
	_, reporter := tokenize(t, "a:\n \tb\n")
	if !hasCode(reporter, report.L001InvalidCharacter) {
		t.Errorf("expected L001 for mixed tabs and spaces, got:\n%s", reporter.Dump())
	}
}

func TestTabsAsIndentation(t *testing.T) {
	// One tab equals one indent unit.
	input := "a:\n\tb\n"
	toks, reporter := tokenize(t, input)
	if reporter.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", reporter.Dump())
	}
	found := false
	for _, tok := range toks {
		if tok.Type == token.INDENT {
			found = true
		}
	}
	if !found {
		t.Error("expected an INDENT for a tab-indented line")
	}
}

func TestCustomIndentWidth(t *testing.T) {
	reporter := report.New()
	l := New("a:\n  b\n", "two.to", reporter, WithIndentWidth(2))
	indents := 0
	for _, tok := range l.Tokenize() {
		if tok.Type == token.INDENT {
			indents++
		}
	}
	if indents != 1 {
		t.Errorf("INDENT count with width 2 = %d, want 1", indents)
	}
}

func TestNoLayoutInsideBrackets(t *testing.T) {
	input := "f(a,\n    b,\n    c)\n"
	toks, reporter := tokenize(t, input)
	if reporter.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", reporter.Dump())
	}
	for _, tok := range toks {
		if tok.Type == token.INDENT || tok.Type == token.DEDENT {
			t.Errorf("layout token %v inside brackets", tok.Type)
		}
	}
}
