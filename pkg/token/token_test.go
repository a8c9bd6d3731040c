package token

import "testing"

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected Type
	}{
		{"def", DEF},
		{"let", LET},
		{"const", CONST},
		{"class", CLASS},
		{"match", MATCH},
		{"async", ASYNC},
		{"await", AWAIT},
		{"move", MOVE},
		{"select", SELECT},
		{"go", GO},
		{"defer", DEFER},
		{"lambda", LAMBDA},
		{"nil", NIL},
		{"true", TRUE},
		{"false", FALSE},
		{"x", IDENT},
		{"myVar", IDENT},
		{"Def", IDENT}, // keywords are case-sensitive
		{"awaited", IDENT},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LookupIdent(tt.input); got != tt.expected {
				t.Errorf("LookupIdent(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ      Type
		expected string
	}{
		{EOF, "EOF"},
		{INDENT, "INDENT"},
		{DEDENT, "DEDENT"},
		{ARROW, "->"},
		{CHAN_OP, "<-"},
		{SAFE_DOT, "?."},
		{COALESCE, "??"},
		{ELVIS, "?:"},
		{SCOPE, "::"},
		{ELLIPSIS, "..."},
		{RANGE, ".."},
		{POWER_EQ, "**="},
		{STRICT_EQ, "==="},
		{DEF, "def"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPositionString(t *testing.T) {
	pos := Position{Filename: "main.to", Line: 3, Column: 7}
	if got := pos.String(); got != "main.to:3:7" {
		t.Errorf("Position.String() = %q", got)
	}
	anon := Position{Line: 1, Column: 1}
	if got := anon.String(); got != "1:1" {
		t.Errorf("Position.String() without filename = %q", got)
	}
}

func TestIntern(t *testing.T) {
	a := Intern("lib/utils.to")
	b := Intern("lib/utils.to")
	if a != b {
		t.Error("interning the same filename twice should return equal strings")
	}
}

func TestIsKeyword(t *testing.T) {
	if !DEF.IsKeyword() {
		t.Error("DEF should be a keyword")
	}
	if IDENT.IsKeyword() {
		t.Error("IDENT should not be a keyword")
	}
	if PLUS.IsKeyword() {
		t.Error("PLUS should not be a keyword")
	}
}
