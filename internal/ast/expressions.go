package ast

import (
	"strings"

	"github.com/tocinlang/tocin/pkg/token"
)

// Identifier is a variable or function reference.
type Identifier struct {
	typed
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Lexeme }
func (i *Identifier) String() string       { return i.Value }
func (i *Identifier) Pos() token.Position  { return i.Token.Pos }

// IntegerLiteral is an integer literal.
type IntegerLiteral struct {
	typed
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Lexeme }
func (il *IntegerLiteral) String() string       { return il.Token.Lexeme }
func (il *IntegerLiteral) Pos() token.Position  { return il.Token.Pos }

// FloatLiteral is a floating-point literal. Is32 is set by the f suffix.
type FloatLiteral struct {
	typed
	Token token.Token
	Value float64
	Is32  bool
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Lexeme }
func (fl *FloatLiteral) String() string       { return fl.Token.Lexeme }
func (fl *FloatLiteral) Pos() token.Position  { return fl.Token.Pos }

// StringLiteral is a quoted string literal; Value holds the decoded text.
type StringLiteral struct {
	typed
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Lexeme }
func (sl *StringLiteral) String() string       { return "\"" + sl.Value + "\"" }
func (sl *StringLiteral) Pos() token.Position  { return sl.Token.Pos }

// BooleanLiteral is true or false.
type BooleanLiteral struct {
	typed
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Lexeme }
func (bl *BooleanLiteral) String() string       { return bl.Token.Lexeme }
func (bl *BooleanLiteral) Pos() token.Position  { return bl.Token.Pos }

// NilLiteral is the nil literal.
type NilLiteral struct {
	typed
	Token token.Token
}

func (nl *NilLiteral) expressionNode()      {}
func (nl *NilLiteral) TokenLiteral() string { return nl.Token.Lexeme }
func (nl *NilLiteral) String() string       { return "nil" }
func (nl *NilLiteral) Pos() token.Position  { return nl.Token.Pos }

// UnaryExpression is a prefix (-x, !x, ~x, ++x) or postfix (x++) operation.
type UnaryExpression struct {
	typed
	Token    token.Token
	Operator string
	Operand  Expression
	Postfix  bool
}

func (ue *UnaryExpression) expressionNode()      {}
func (ue *UnaryExpression) TokenLiteral() string { return ue.Token.Lexeme }
func (ue *UnaryExpression) Pos() token.Position  { return ue.Token.Pos }

func (ue *UnaryExpression) String() string {
	if ue.Postfix {
		return "(" + ue.Operand.String() + ue.Operator + ")"
	}
	return "(" + ue.Operator + ue.Operand.String() + ")"
}

// BinaryExpression is an arithmetic, comparison, bitwise, or type-test
// binary operation.
type BinaryExpression struct {
	typed
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (be *BinaryExpression) expressionNode()      {}
func (be *BinaryExpression) TokenLiteral() string { return be.Token.Lexeme }
func (be *BinaryExpression) Pos() token.Position  { return be.Token.Pos }

func (be *BinaryExpression) String() string {
	return "(" + be.Left.String() + " " + be.Operator + " " + be.Right.String() + ")"
}

// LogicalExpression is && or || with short-circuit evaluation.
type LogicalExpression struct {
	typed
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (le *LogicalExpression) expressionNode()      {}
func (le *LogicalExpression) TokenLiteral() string { return le.Token.Lexeme }
func (le *LogicalExpression) Pos() token.Position  { return le.Token.Pos }

func (le *LogicalExpression) String() string {
	return "(" + le.Left.String() + " " + le.Operator + " " + le.Right.String() + ")"
}

// GroupedExpression is a parenthesized expression.
type GroupedExpression struct {
	typed
	Token token.Token
	Inner Expression
}

func (ge *GroupedExpression) expressionNode()      {}
func (ge *GroupedExpression) TokenLiteral() string { return ge.Token.Lexeme }
func (ge *GroupedExpression) String() string       { return "(" + ge.Inner.String() + ")" }
func (ge *GroupedExpression) Pos() token.Position  { return ge.Token.Pos }

// AssignExpression is a simple or compound assignment. Target is an
// identifier, member access, or index expression.
type AssignExpression struct {
	typed
	Token    token.Token
	Target   Expression
	Operator string // =, +=, -=, ...
	Value    Expression
}

func (ae *AssignExpression) expressionNode()      {}
func (ae *AssignExpression) TokenLiteral() string { return ae.Token.Lexeme }
func (ae *AssignExpression) Pos() token.Position  { return ae.Token.Pos }

func (ae *AssignExpression) String() string {
	return ae.Target.String() + " " + ae.Operator + " " + ae.Value.String()
}

// CallExpression is a function or method invocation.
type CallExpression struct {
	typed
	Token    token.Token
	Callee   Expression
	TypeArgs []TypeExpr // explicit generic arguments, usually empty
	Args     []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Lexeme }
func (ce *CallExpression) Pos() token.Position  { return ce.Token.Pos }

func (ce *CallExpression) String() string {
	var sb strings.Builder
	sb.WriteString(ce.Callee.String())
	if len(ce.TypeArgs) > 0 {
		sb.WriteString("<")
		sb.WriteString(joinStrings(ce.TypeArgs, ", "))
		sb.WriteString(">")
	}
	sb.WriteString("(")
	sb.WriteString(joinStrings(ce.Args, ", "))
	sb.WriteString(")")
	return sb.String()
}

// MemberExpression is a field or method access: obj.member or obj?.member.
type MemberExpression struct {
	typed
	Token  token.Token
	Object Expression
	Member string
	Safe   bool // ?. access
}

func (me *MemberExpression) expressionNode()      {}
func (me *MemberExpression) TokenLiteral() string { return me.Token.Lexeme }
func (me *MemberExpression) Pos() token.Position  { return me.Token.Pos }

func (me *MemberExpression) String() string {
	op := "."
	if me.Safe {
		op = "?."
	}
	return me.Object.String() + op + me.Member
}

// IndexExpression is a subscript: coll[index].
type IndexExpression struct {
	typed
	Token  token.Token
	Object Expression
	Index  Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Lexeme }
func (ie *IndexExpression) Pos() token.Position  { return ie.Token.Pos }

func (ie *IndexExpression) String() string {
	return ie.Object.String() + "[" + ie.Index.String() + "]"
}

// ListLiteral is [e1, e2, ...].
type ListLiteral struct {
	typed
	Token    token.Token
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()      {}
func (ll *ListLiteral) TokenLiteral() string { return ll.Token.Lexeme }
func (ll *ListLiteral) String() string       { return "[" + joinStrings(ll.Elements, ", ") + "]" }
func (ll *ListLiteral) Pos() token.Position  { return ll.Token.Pos }

// MapLiteral is {k1: v1, k2: v2}.
type MapLiteral struct {
	typed
	Token  token.Token
	Keys   []Expression
	Values []Expression
}

func (ml *MapLiteral) expressionNode()      {}
func (ml *MapLiteral) TokenLiteral() string { return ml.Token.Lexeme }
func (ml *MapLiteral) Pos() token.Position  { return ml.Token.Pos }

func (ml *MapLiteral) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i := range ml.Keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(ml.Keys[i].String())
		sb.WriteString(": ")
		sb.WriteString(ml.Values[i].String())
	}
	sb.WriteString("}")
	return sb.String()
}

// LambdaExpression is an anonymous function. Body is a block; expression
// bodies are wrapped in an implicit return.
type LambdaExpression struct {
	typed
	Token     token.Token
	Params    []*Parameter
	ReturnAnn TypeExpr // nil when inferred
	Body      *BlockStatement
}

func (le *LambdaExpression) expressionNode()      {}
func (le *LambdaExpression) TokenLiteral() string { return le.Token.Lexeme }
func (le *LambdaExpression) Pos() token.Position  { return le.Token.Pos }

func (le *LambdaExpression) String() string {
	parts := make([]string, len(le.Params))
	for i, p := range le.Params {
		parts[i] = p.String()
	}
	return "lambda (" + strings.Join(parts, ", ") + ") ..."
}

// AwaitExpression suspends on a future: await e.
type AwaitExpression struct {
	typed
	Token   token.Token
	Operand Expression
}

func (ae *AwaitExpression) expressionNode()      {}
func (ae *AwaitExpression) TokenLiteral() string { return ae.Token.Lexeme }
func (ae *AwaitExpression) String() string       { return "await " + ae.Operand.String() }
func (ae *AwaitExpression) Pos() token.Position  { return ae.Token.Pos }

// NewExpression is a heap allocation with constructor call: new T(args).
type NewExpression struct {
	typed
	Token   token.Token
	TypeAnn TypeExpr
	Args    []Expression
}

func (ne *NewExpression) expressionNode()      {}
func (ne *NewExpression) TokenLiteral() string { return ne.Token.Lexeme }
func (ne *NewExpression) Pos() token.Position  { return ne.Token.Pos }

func (ne *NewExpression) String() string {
	return "new " + ne.TypeAnn.String() + "(" + joinStrings(ne.Args, ", ") + ")"
}

// DeleteExpression frees a heap allocation: delete e.
type DeleteExpression struct {
	typed
	Token   token.Token
	Operand Expression
}

func (de *DeleteExpression) expressionNode()      {}
func (de *DeleteExpression) TokenLiteral() string { return de.Token.Lexeme }
func (de *DeleteExpression) String() string       { return "delete " + de.Operand.String() }
func (de *DeleteExpression) Pos() token.Position  { return de.Token.Pos }

// InterpolationExpression is a template literal. Parts alternates string
// fragments and embedded expressions in source order.
type InterpolationExpression struct {
	typed
	Token token.Token
	Parts []Expression
}

func (ie *InterpolationExpression) expressionNode()      {}
func (ie *InterpolationExpression) TokenLiteral() string { return ie.Token.Lexeme }
func (ie *InterpolationExpression) Pos() token.Position  { return ie.Token.Pos }

func (ie *InterpolationExpression) String() string {
	var sb strings.Builder
	sb.WriteString("`")
	for _, p := range ie.Parts {
		if s, ok := p.(*StringLiteral); ok {
			sb.WriteString(s.Value)
		} else {
			sb.WriteString("${")
			sb.WriteString(p.String())
			sb.WriteString("}")
		}
	}
	sb.WriteString("`")
	return sb.String()
}

// NotNullExpression strips nullability: e!.
type NotNullExpression struct {
	typed
	Token   token.Token
	Operand Expression
}

func (ne *NotNullExpression) expressionNode()      {}
func (ne *NotNullExpression) TokenLiteral() string { return ne.Token.Lexeme }
func (ne *NotNullExpression) String() string       { return ne.Operand.String() + "!" }
func (ne *NotNullExpression) Pos() token.Position  { return ne.Token.Pos }

// ElvisExpression is null-coalescing selection: a ?: b (also ??).
type ElvisExpression struct {
	typed
	Token token.Token
	Left  Expression
	Right Expression
}

func (ee *ElvisExpression) expressionNode()      {}
func (ee *ElvisExpression) TokenLiteral() string { return ee.Token.Lexeme }
func (ee *ElvisExpression) Pos() token.Position  { return ee.Token.Pos }

func (ee *ElvisExpression) String() string {
	return "(" + ee.Left.String() + " ?: " + ee.Right.String() + ")"
}

// MoveExpression transfers ownership explicitly: move e.
type MoveExpression struct {
	typed
	Token   token.Token
	Operand Expression
}

func (me *MoveExpression) expressionNode()      {}
func (me *MoveExpression) TokenLiteral() string { return me.Token.Lexeme }
func (me *MoveExpression) String() string       { return "move " + me.Operand.String() }
func (me *MoveExpression) Pos() token.Position  { return me.Token.Pos }

// ChannelSendExpression is ch <- value.
type ChannelSendExpression struct {
	typed
	Token   token.Token
	Channel Expression
	Value   Expression
}

func (cs *ChannelSendExpression) expressionNode()      {}
func (cs *ChannelSendExpression) TokenLiteral() string { return cs.Token.Lexeme }
func (cs *ChannelSendExpression) Pos() token.Position  { return cs.Token.Pos }

func (cs *ChannelSendExpression) String() string {
	return cs.Channel.String() + " <- " + cs.Value.String()
}

// ChannelReceiveExpression is <- ch.
type ChannelReceiveExpression struct {
	typed
	Token   token.Token
	Channel Expression
}

func (cr *ChannelReceiveExpression) expressionNode()      {}
func (cr *ChannelReceiveExpression) TokenLiteral() string { return cr.Token.Lexeme }
func (cr *ChannelReceiveExpression) String() string       { return "<-" + cr.Channel.String() }
func (cr *ChannelReceiveExpression) Pos() token.Position  { return cr.Token.Pos }

// SelfExpression is the implicit receiver inside methods.
type SelfExpression struct {
	typed
	Token token.Token
}

func (se *SelfExpression) expressionNode()      {}
func (se *SelfExpression) TokenLiteral() string { return se.Token.Lexeme }
func (se *SelfExpression) String() string       { return "self" }
func (se *SelfExpression) Pos() token.Position  { return se.Token.Pos }

// RangeExpression is lo..hi (exclusive) or lo...hi (inclusive), used in
// for-in headers and range patterns.
type RangeExpression struct {
	typed
	Token     token.Token
	Low       Expression
	High      Expression
	Inclusive bool
}

func (re *RangeExpression) expressionNode()      {}
func (re *RangeExpression) TokenLiteral() string { return re.Token.Lexeme }
func (re *RangeExpression) Pos() token.Position  { return re.Token.Pos }

func (re *RangeExpression) String() string {
	op := ".."
	if re.Inclusive {
		op = "..."
	}
	return re.Low.String() + op + re.High.String()
}

// MatchExpression is a match used in value position; each arm body is a
// single expression.
type MatchExpression struct {
	typed
	Token     token.Token
	Scrutinee Expression
	Arms      []*MatchArm
}

func (me *MatchExpression) expressionNode()      {}
func (me *MatchExpression) TokenLiteral() string { return me.Token.Lexeme }
func (me *MatchExpression) Pos() token.Position  { return me.Token.Pos }

func (me *MatchExpression) String() string {
	return "match " + me.Scrutinee.String() + " { ... }"
}

// MatchArm is one arm of a match expression or statement. Exactly one of
// Value (expression form) and Body (statement form) is set.
type MatchArm struct {
	Token   token.Token
	Pattern Pattern
	Guard   Expression // optional `if` guard
	Value   Expression
	Body    *BlockStatement
}

func (ma *MatchArm) TokenLiteral() string { return ma.Token.Lexeme }
func (ma *MatchArm) Pos() token.Position  { return ma.Token.Pos }

func (ma *MatchArm) String() string {
	s := "case " + ma.Pattern.String()
	if ma.Guard != nil {
		s += " if " + ma.Guard.String()
	}
	return s
}

// BadExpression is a placeholder produced by parser error recovery. The
// checker types it as the error type, which unifies with anything.
type BadExpression struct {
	typed
	Token token.Token
}

func (be *BadExpression) expressionNode()      {}
func (be *BadExpression) TokenLiteral() string { return be.Token.Lexeme }
func (be *BadExpression) String() string       { return "<error>" }
func (be *BadExpression) Pos() token.Position  { return be.Token.Pos }
