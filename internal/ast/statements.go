package ast

import (
	"strings"

	"github.com/tocinlang/tocin/pkg/token"
)

// ExpressionStatement wraps an expression in statement position.
type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Lexeme }
func (es *ExpressionStatement) Pos() token.Position  { return es.Token.Pos }

func (es *ExpressionStatement) String() string {
	if es.Expression == nil {
		return ""
	}
	return es.Expression.String()
}

// VariableDeclaration is `let name[: T] = value` or `const name ...`.
type VariableDeclaration struct {
	Token   token.Token
	Name    *Identifier
	TypeAnn TypeExpr   // nil when inferred
	Value   Expression // nil when only annotated
	Mutable bool       // let is mutable, const is not
}

func (vd *VariableDeclaration) statementNode()       {}
func (vd *VariableDeclaration) TokenLiteral() string { return vd.Token.Lexeme }
func (vd *VariableDeclaration) Pos() token.Position  { return vd.Token.Pos }

func (vd *VariableDeclaration) String() string {
	var sb strings.Builder
	if vd.Mutable {
		sb.WriteString("let ")
	} else {
		sb.WriteString("const ")
	}
	sb.WriteString(vd.Name.Value)
	if vd.TypeAnn != nil {
		sb.WriteString(": ")
		sb.WriteString(vd.TypeAnn.String())
	}
	if vd.Value != nil {
		sb.WriteString(" = ")
		sb.WriteString(vd.Value.String())
	}
	return sb.String()
}

// BlockStatement is an INDENT-delimited statement sequence.
type BlockStatement struct {
	Token      token.Token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BlockStatement) Pos() token.Position  { return bs.Token.Pos }

func (bs *BlockStatement) String() string {
	var sb strings.Builder
	for _, s := range bs.Statements {
		sb.WriteString("    ")
		sb.WriteString(s.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ElifClause is one `elif cond:` branch of an if statement.
type ElifClause struct {
	Token     token.Token
	Condition Expression
	Body      *BlockStatement
}

// IfStatement is if/elif/else.
type IfStatement struct {
	Token     token.Token
	Condition Expression
	Then      *BlockStatement
	Elifs     []*ElifClause
	Else      *BlockStatement // nil when absent
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Lexeme }
func (is *IfStatement) Pos() token.Position  { return is.Token.Pos }

func (is *IfStatement) String() string {
	return "if " + is.Condition.String() + ": ..."
}

// WhileStatement is a while loop.
type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      *BlockStatement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Lexeme }
func (ws *WhileStatement) String() string       { return "while " + ws.Condition.String() + ": ..." }
func (ws *WhileStatement) Pos() token.Position  { return ws.Token.Pos }

// ForInStatement is `for name in iterable:`.
type ForInStatement struct {
	Token    token.Token
	Variable *Identifier
	Iterable Expression
	Body     *BlockStatement
}

func (fs *ForInStatement) statementNode()       {}
func (fs *ForInStatement) TokenLiteral() string { return fs.Token.Lexeme }
func (fs *ForInStatement) Pos() token.Position  { return fs.Token.Pos }

func (fs *ForInStatement) String() string {
	return "for " + fs.Variable.Value + " in " + fs.Iterable.String() + ": ..."
}

// ReturnStatement returns from the enclosing function.
type ReturnStatement struct {
	Token token.Token
	Value Expression // nil for bare return
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Lexeme }
func (rs *ReturnStatement) Pos() token.Position  { return rs.Token.Pos }

func (rs *ReturnStatement) String() string {
	if rs.Value == nil {
		return "return"
	}
	return "return " + rs.Value.String()
}

// TypeParam is one generic parameter with optional trait bounds.
type TypeParam struct {
	Token  token.Token
	Name   string
	Bounds []TypeExpr
}

// FunctionDeclaration is `def name<T>(params) -> R:` at any scope. Receiver
// is non-nil for extension functions (`extend Type def name(...)`).
type FunctionDeclaration struct {
	Token      token.Token
	Name       *Identifier
	TypeParams []*TypeParam
	Receiver   TypeExpr // extension receiver type, nil otherwise
	Params     []*Parameter
	ReturnAnn  TypeExpr // nil means void
	Body       *BlockStatement
	IsAsync    bool
	Exported   bool
}

func (fd *FunctionDeclaration) statementNode()       {}
func (fd *FunctionDeclaration) TokenLiteral() string { return fd.Token.Lexeme }
func (fd *FunctionDeclaration) Pos() token.Position  { return fd.Token.Pos }

func (fd *FunctionDeclaration) String() string {
	var sb strings.Builder
	if fd.IsAsync {
		sb.WriteString("async ")
	}
	sb.WriteString("def ")
	if fd.Receiver != nil {
		sb.WriteString(fd.Receiver.String())
		sb.WriteString(".")
	}
	sb.WriteString(fd.Name.Value)
	if len(fd.TypeParams) > 0 {
		names := make([]string, len(fd.TypeParams))
		for i, tp := range fd.TypeParams {
			names[i] = tp.Name
		}
		sb.WriteString("<" + strings.Join(names, ", ") + ">")
	}
	sb.WriteString("(")
	parts := make([]string, len(fd.Params))
	for i, p := range fd.Params {
		parts[i] = p.String()
	}
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString(")")
	if fd.ReturnAnn != nil {
		sb.WriteString(" -> ")
		sb.WriteString(fd.ReturnAnn.String())
	}
	return sb.String()
}

// FieldDeclaration is one field of a class or struct.
type FieldDeclaration struct {
	Token   token.Token
	Name    string
	TypeAnn TypeExpr
	Default Expression // nil when none
	Public  bool
}

// ClassDeclaration declares a class or struct type with fields and methods.
type ClassDeclaration struct {
	Token      token.Token
	Name       *Identifier
	TypeParams []*TypeParam
	Superclass TypeExpr   // nil when none
	Traits     []TypeExpr // implemented traits
	Fields     []*FieldDeclaration
	Methods    []*FunctionDeclaration
	IsStruct   bool
	Exported   bool
}

func (cd *ClassDeclaration) statementNode()       {}
func (cd *ClassDeclaration) TokenLiteral() string { return cd.Token.Lexeme }
func (cd *ClassDeclaration) Pos() token.Position  { return cd.Token.Pos }

func (cd *ClassDeclaration) String() string {
	kw := "class"
	if cd.IsStruct {
		kw = "struct"
	}
	return kw + " " + cd.Name.Value + ": ..."
}

// EnumVariant is one variant of an enum, with optional payload types.
type EnumVariant struct {
	Token   token.Token
	Name    string
	Payload []TypeExpr
}

// EnumDeclaration declares a sum type.
type EnumDeclaration struct {
	Token      token.Token
	Name       *Identifier
	TypeParams []*TypeParam
	Variants   []*EnumVariant
	Exported   bool
}

func (ed *EnumDeclaration) statementNode()       {}
func (ed *EnumDeclaration) TokenLiteral() string { return ed.Token.Lexeme }
func (ed *EnumDeclaration) String() string       { return "enum " + ed.Name.Value + ": ..." }
func (ed *EnumDeclaration) Pos() token.Position  { return ed.Token.Pos }

// MethodSignature is an unimplemented method in a trait or interface.
type MethodSignature struct {
	Token     token.Token
	Name      string
	Params    []*Parameter
	ReturnAnn TypeExpr
}

// TraitDeclaration declares a trait (or interface: IsInterface).
type TraitDeclaration struct {
	Token       token.Token
	Name        *Identifier
	TypeParams  []*TypeParam
	Signatures  []*MethodSignature
	Defaults    []*FunctionDeclaration // trait methods with default bodies
	IsInterface bool
	Exported    bool
}

func (td *TraitDeclaration) statementNode()       {}
func (td *TraitDeclaration) TokenLiteral() string { return td.Token.Lexeme }
func (td *TraitDeclaration) Pos() token.Position  { return td.Token.Pos }

func (td *TraitDeclaration) String() string {
	kw := "trait"
	if td.IsInterface {
		kw = "interface"
	}
	return kw + " " + td.Name.Value + ": ..."
}

// ImplDeclaration is `impl Trait for Type:` supplying trait methods.
type ImplDeclaration struct {
	Token   token.Token
	Trait   TypeExpr
	Target  TypeExpr
	Methods []*FunctionDeclaration
}

func (id *ImplDeclaration) statementNode()       {}
func (id *ImplDeclaration) TokenLiteral() string { return id.Token.Lexeme }
func (id *ImplDeclaration) Pos() token.Position  { return id.Token.Pos }

func (id *ImplDeclaration) String() string {
	return "impl " + id.Trait.String() + " for " + id.Target.String() + ": ..."
}

// ModuleDeclaration names the enclosing compilation unit.
type ModuleDeclaration struct {
	Token token.Token
	Name  string
}

func (md *ModuleDeclaration) statementNode()       {}
func (md *ModuleDeclaration) TokenLiteral() string { return md.Token.Lexeme }
func (md *ModuleDeclaration) String() string       { return "module " + md.Name }
func (md *ModuleDeclaration) Pos() token.Position  { return md.Token.Pos }

// ImportSymbol is one name in a `from M import a, b as c` list.
type ImportSymbol struct {
	Name  string
	Alias string // "" when not aliased
}

// ImportStatement is `import M` or `from M import x [as y], ...`.
type ImportStatement struct {
	Token   token.Token
	Module  string
	Symbols []ImportSymbol // empty for plain `import M`
}

func (is *ImportStatement) statementNode()       {}
func (is *ImportStatement) TokenLiteral() string { return is.Token.Lexeme }
func (is *ImportStatement) Pos() token.Position  { return is.Token.Pos }

func (is *ImportStatement) String() string {
	if len(is.Symbols) == 0 {
		return "import " + is.Module
	}
	parts := make([]string, len(is.Symbols))
	for i, s := range is.Symbols {
		if s.Alias != "" {
			parts[i] = s.Name + " as " + s.Alias
		} else {
			parts[i] = s.Name
		}
	}
	return "from " + is.Module + " import " + strings.Join(parts, ", ")
}

// ExportStatement marks a top-level name as exported: `export x`.
type ExportStatement struct {
	Token token.Token
	Name  string
}

func (es *ExportStatement) statementNode()       {}
func (es *ExportStatement) TokenLiteral() string { return es.Token.Lexeme }
func (es *ExportStatement) String() string       { return "export " + es.Name }
func (es *ExportStatement) Pos() token.Position  { return es.Token.Pos }

// MatchStatement dispatches on the scrutinee over pattern arms.
type MatchStatement struct {
	Token     token.Token
	Scrutinee Expression
	Arms      []*MatchArm
}

func (ms *MatchStatement) statementNode()       {}
func (ms *MatchStatement) TokenLiteral() string { return ms.Token.Lexeme }
func (ms *MatchStatement) Pos() token.Position  { return ms.Token.Pos }

func (ms *MatchStatement) String() string {
	return "match " + ms.Scrutinee.String() + ": ..."
}

// CatchClause is one `catch name: T` handler.
type CatchClause struct {
	Token   token.Token
	Name    *Identifier // nil for catch-all
	TypeAnn TypeExpr    // nil for untyped catch
	Body    *BlockStatement
}

// TryStatement is try/catch/finally.
type TryStatement struct {
	Token   token.Token
	Body    *BlockStatement
	Catches []*CatchClause
	Finally *BlockStatement // nil when absent
}

func (ts *TryStatement) statementNode()       {}
func (ts *TryStatement) TokenLiteral() string { return ts.Token.Lexeme }
func (ts *TryStatement) String() string       { return "try: ..." }
func (ts *TryStatement) Pos() token.Position  { return ts.Token.Pos }

// ThrowStatement raises a throwable value.
type ThrowStatement struct {
	Token token.Token
	Value Expression
}

func (ts *ThrowStatement) statementNode()       {}
func (ts *ThrowStatement) TokenLiteral() string { return ts.Token.Lexeme }
func (ts *ThrowStatement) String() string       { return "throw " + ts.Value.String() }
func (ts *ThrowStatement) Pos() token.Position  { return ts.Token.Pos }

// BreakStatement exits the innermost loop.
type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BreakStatement) String() string       { return "break" }
func (bs *BreakStatement) Pos() token.Position  { return bs.Token.Pos }

// ContinueStatement resumes the innermost loop.
type ContinueStatement struct {
	Token token.Token
}

func (cs *ContinueStatement) statementNode()       {}
func (cs *ContinueStatement) TokenLiteral() string { return cs.Token.Lexeme }
func (cs *ContinueStatement) String() string       { return "continue" }
func (cs *ContinueStatement) Pos() token.Position  { return cs.Token.Pos }

// DeferStatement enqueues a statement to run at function exit, in reverse
// registration order.
type DeferStatement struct {
	Token token.Token
	Call  Statement
}

func (ds *DeferStatement) statementNode()       {}
func (ds *DeferStatement) TokenLiteral() string { return ds.Token.Lexeme }
func (ds *DeferStatement) String() string       { return "defer " + ds.Call.String() }
func (ds *DeferStatement) Pos() token.Position  { return ds.Token.Pos }

// SelectCase is one communication arm of a select statement.
type SelectCase struct {
	Token token.Token
	Comm  Expression // ChannelSendExpression or ChannelReceiveExpression
	Bind  *Identifier
	Body  *BlockStatement
}

// SelectStatement waits on multiple channel operations and commits to the
// first ready one.
type SelectStatement struct {
	Token   token.Token
	Cases   []*SelectCase
	Default *BlockStatement // nil when absent
}

func (ss *SelectStatement) statementNode()       {}
func (ss *SelectStatement) TokenLiteral() string { return ss.Token.Lexeme }
func (ss *SelectStatement) String() string       { return "select: ..." }
func (ss *SelectStatement) Pos() token.Position  { return ss.Token.Pos }

// GoStatement launches a goroutine: `go expr`.
type GoStatement struct {
	Token token.Token
	Call  Expression
}

func (gs *GoStatement) statementNode()       {}
func (gs *GoStatement) TokenLiteral() string { return gs.Token.Lexeme }
func (gs *GoStatement) String() string       { return "go " + gs.Call.String() }
func (gs *GoStatement) Pos() token.Position  { return gs.Token.Pos }

// BadStatement is a placeholder produced by parser error recovery.
type BadStatement struct {
	Token token.Token
}

func (bs *BadStatement) statementNode()       {}
func (bs *BadStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BadStatement) String() string       { return "<error>" }
func (bs *BadStatement) Pos() token.Position  { return bs.Token.Pos }
