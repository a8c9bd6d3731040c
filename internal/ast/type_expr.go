package ast

import (
	"strings"

	"github.com/tocinlang/tocin/pkg/token"
)

// NamedTypeExpr is a primitive, user, or generic type reference, possibly
// module-qualified: int, Point, List<int>, collections::Map<string, int>.
type NamedTypeExpr struct {
	Token  token.Token
	Module string // qualifier before :: or "", resolved by the checker
	Name   string
	Args   []TypeExpr // generic arguments, empty for plain names
}

func (n *NamedTypeExpr) typeExprNode()        {}
func (n *NamedTypeExpr) TokenLiteral() string { return n.Token.Lexeme }
func (n *NamedTypeExpr) Pos() token.Position  { return n.Token.Pos }

func (n *NamedTypeExpr) String() string {
	var sb strings.Builder
	if n.Module != "" {
		sb.WriteString(n.Module)
		sb.WriteString("::")
	}
	sb.WriteString(n.Name)
	if len(n.Args) > 0 {
		sb.WriteString("<")
		sb.WriteString(joinStrings(n.Args, ", "))
		sb.WriteString(">")
	}
	return sb.String()
}

// FunctionTypeExpr is a function type: (T1, T2) -> R.
type FunctionTypeExpr struct {
	Token  token.Token
	Params []TypeExpr
	Return TypeExpr
}

func (f *FunctionTypeExpr) typeExprNode()        {}
func (f *FunctionTypeExpr) TokenLiteral() string { return f.Token.Lexeme }
func (f *FunctionTypeExpr) Pos() token.Position  { return f.Token.Pos }

func (f *FunctionTypeExpr) String() string {
	return "(" + joinStrings(f.Params, ", ") + ") -> " + f.Return.String()
}

// NullableTypeExpr is a nullable suffix: T?.
type NullableTypeExpr struct {
	Token token.Token
	Base  TypeExpr
}

func (n *NullableTypeExpr) typeExprNode()        {}
func (n *NullableTypeExpr) TokenLiteral() string { return n.Token.Lexeme }
func (n *NullableTypeExpr) Pos() token.Position  { return n.Token.Pos }
func (n *NullableTypeExpr) String() string       { return n.Base.String() + "?" }

// UnionTypeExpr is a union: A | B | C.
type UnionTypeExpr struct {
	Token token.Token
	Alts  []TypeExpr
}

func (u *UnionTypeExpr) typeExprNode()        {}
func (u *UnionTypeExpr) TokenLiteral() string { return u.Token.Lexeme }
func (u *UnionTypeExpr) Pos() token.Position  { return u.Token.Pos }
func (u *UnionTypeExpr) String() string       { return joinStrings(u.Alts, " | ") }

// RefTypeExpr is an rvalue-reference parameter type: T&&.
type RefTypeExpr struct {
	Token token.Token
	Base  TypeExpr
}

func (r *RefTypeExpr) typeExprNode()        {}
func (r *RefTypeExpr) TokenLiteral() string { return r.Token.Lexeme }
func (r *RefTypeExpr) Pos() token.Position  { return r.Token.Pos }
func (r *RefTypeExpr) String() string       { return r.Base.String() + "&&" }
