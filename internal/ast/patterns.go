package ast

import (
	"strings"

	"github.com/tocinlang/tocin/pkg/token"
)

// WildcardPattern matches anything without binding: _.
type WildcardPattern struct {
	Token token.Token
}

func (wp *WildcardPattern) patternNode()         {}
func (wp *WildcardPattern) TokenLiteral() string { return wp.Token.Lexeme }
func (wp *WildcardPattern) String() string       { return "_" }
func (wp *WildcardPattern) Pos() token.Position  { return wp.Token.Pos }

// LiteralPattern matches a literal value.
type LiteralPattern struct {
	Token token.Token
	Value Expression // IntegerLiteral, FloatLiteral, StringLiteral, BooleanLiteral, NilLiteral
}

func (lp *LiteralPattern) patternNode()         {}
func (lp *LiteralPattern) TokenLiteral() string { return lp.Token.Lexeme }
func (lp *LiteralPattern) String() string       { return lp.Value.String() }
func (lp *LiteralPattern) Pos() token.Position  { return lp.Token.Pos }

// BindingPattern binds the scrutinee to a fresh name.
type BindingPattern struct {
	Token token.Token
	Name  string
}

func (bp *BindingPattern) patternNode()         {}
func (bp *BindingPattern) TokenLiteral() string { return bp.Token.Lexeme }
func (bp *BindingPattern) String() string       { return bp.Name }
func (bp *BindingPattern) Pos() token.Position  { return bp.Token.Pos }

// ConstructorPattern matches an enum variant or class by name with
// sub-patterns for the payload: Some(x), Point(x, y).
type ConstructorPattern struct {
	Token token.Token
	Name  string
	Args  []Pattern
}

func (cp *ConstructorPattern) patternNode()         {}
func (cp *ConstructorPattern) TokenLiteral() string { return cp.Token.Lexeme }
func (cp *ConstructorPattern) Pos() token.Position  { return cp.Token.Pos }

func (cp *ConstructorPattern) String() string {
	if len(cp.Args) == 0 {
		return cp.Name
	}
	parts := make([]string, len(cp.Args))
	for i, a := range cp.Args {
		parts[i] = a.String()
	}
	return cp.Name + "(" + strings.Join(parts, ", ") + ")"
}

// TuplePattern decomposes a tuple positionally: (a, b, _).
type TuplePattern struct {
	Token    token.Token
	Elements []Pattern
}

func (tp *TuplePattern) patternNode()         {}
func (tp *TuplePattern) TokenLiteral() string { return tp.Token.Lexeme }
func (tp *TuplePattern) Pos() token.Position  { return tp.Token.Pos }

func (tp *TuplePattern) String() string {
	parts := make([]string, len(tp.Elements))
	for i, e := range tp.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// StructPatternField is one named field sub-pattern.
type StructPatternField struct {
	Name    string
	Pattern Pattern
}

// StructPattern decomposes by field name: Point{x: a, y: _} or with `..`
// rest to skip the remaining fields.
type StructPattern struct {
	Token   token.Token
	Name    string
	Fields  []*StructPatternField
	HasRest bool
}

func (sp *StructPattern) patternNode()         {}
func (sp *StructPattern) TokenLiteral() string { return sp.Token.Lexeme }
func (sp *StructPattern) Pos() token.Position  { return sp.Token.Pos }

func (sp *StructPattern) String() string {
	parts := make([]string, 0, len(sp.Fields)+1)
	for _, f := range sp.Fields {
		parts = append(parts, f.Name+": "+f.Pattern.String())
	}
	if sp.HasRest {
		parts = append(parts, "..")
	}
	return sp.Name + "{" + strings.Join(parts, ", ") + "}"
}

// OrPattern matches either side; both sides must produce identical binding
// sets with identical types.
type OrPattern struct {
	Token token.Token
	Left  Pattern
	Right Pattern
}

func (op *OrPattern) patternNode()         {}
func (op *OrPattern) TokenLiteral() string { return op.Token.Lexeme }
func (op *OrPattern) String() string       { return op.Left.String() + " | " + op.Right.String() }
func (op *OrPattern) Pos() token.Position  { return op.Token.Pos }

// RangePattern matches an ordered primitive range: 1..10 or 'a'...'z'.
type RangePattern struct {
	Token     token.Token
	Low       Expression
	High      Expression
	Inclusive bool
}

func (rp *RangePattern) patternNode()         {}
func (rp *RangePattern) TokenLiteral() string { return rp.Token.Lexeme }
func (rp *RangePattern) Pos() token.Position  { return rp.Token.Pos }

func (rp *RangePattern) String() string {
	op := ".."
	if rp.Inclusive {
		op = "..."
	}
	return rp.Low.String() + op + rp.High.String()
}

// TypeTestPattern refines the scrutinee to a subtype: name is T.
type TypeTestPattern struct {
	Token   token.Token
	Name    string // binding name, "_" to discard
	TypeAnn TypeExpr
}

func (tp *TypeTestPattern) patternNode()         {}
func (tp *TypeTestPattern) TokenLiteral() string { return tp.Token.Lexeme }
func (tp *TypeTestPattern) String() string       { return tp.Name + " is " + tp.TypeAnn.String() }
func (tp *TypeTestPattern) Pos() token.Position  { return tp.Token.Pos }
