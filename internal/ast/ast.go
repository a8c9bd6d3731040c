// Package ast defines the abstract syntax tree node types for Tocin.
//
// Every node carries its defining token for diagnostics. Expression nodes
// carry a resolved-type slot populated by the semantic analyzer; the slot is
// single-assignment.
package ast

import (
	"strings"

	"github.com/tocinlang/tocin/internal/types"
	"github.com/tocinlang/tocin/pkg/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	// TokenLiteral returns the literal of the node's defining token.
	TokenLiteral() string

	// String returns a source-like rendering for debugging and tests.
	String() string

	// Pos returns the node's position for error reporting.
	Pos() token.Position
}

// Expression is a node that produces a value.
type Expression interface {
	Node
	expressionNode()

	// Type returns the resolved type, nil before type checking.
	Type() types.Type

	// SetType populates the resolved type. The first assignment wins;
	// later calls are ignored so checker recovery paths cannot rewrite
	// an already-resolved node.
	SetType(types.Type)
}

// Statement is a node that performs an action.
type Statement interface {
	Node
	statementNode()
}

// Pattern is a node that appears on the left of a match arm.
type Pattern interface {
	Node
	patternNode()
}

// TypeExpr is the syntactic form of a type annotation. It is resolved to a
// types.Type by the semantic analyzer.
type TypeExpr interface {
	Node
	typeExprNode()
}

// typed is the embedded resolved-type slot shared by all expressions.
type typed struct {
	typ types.Type
}

func (t *typed) Type() types.Type { return t.typ }

func (t *typed) SetType(typ types.Type) {
	if t.typ == nil {
		t.typ = typ
	}
}

// Module is the root node of one parsed compilation unit.
type Module struct {
	Name       string // declared module name, or "" for the main unit
	Statements []Statement
}

func (m *Module) TokenLiteral() string {
	if len(m.Statements) > 0 {
		return m.Statements[0].TokenLiteral()
	}
	return ""
}

func (m *Module) String() string {
	var sb strings.Builder
	for _, stmt := range m.Statements {
		sb.WriteString(stmt.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (m *Module) Pos() token.Position {
	if len(m.Statements) > 0 {
		return m.Statements[0].Pos()
	}
	return token.Position{Line: 1, Column: 1}
}

// Parameter is a function or lambda parameter.
type Parameter struct {
	Token   token.Token
	Name    string
	TypeAnn TypeExpr   // nil when inferred from context
	Default Expression // nil when required
	Moved   bool       // declared as an rvalue reference (T&&)
}

func (p *Parameter) String() string {
	var sb strings.Builder
	sb.WriteString(p.Name)
	if p.TypeAnn != nil {
		sb.WriteString(": ")
		sb.WriteString(p.TypeAnn.String())
		if p.Moved {
			sb.WriteString("&&")
		}
	}
	if p.Default != nil {
		sb.WriteString(" = ")
		sb.WriteString(p.Default.String())
	}
	return sb.String()
}

func joinStrings[T Node](nodes []T, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}
