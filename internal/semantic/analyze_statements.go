package semantic

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/internal/types"
)

// checkBodies resolves member signatures, then checks every statement and
// function body in the module.
func (a *Analyzer) checkBodies(mod *ast.Module) {
	for _, stmt := range mod.Statements {
		switch d := stmt.(type) {
		case *ast.ClassDeclaration:
			a.resolveClassMembers(d)
		case *ast.EnumDeclaration:
			a.resolveEnumVariants(d)
		case *ast.TraitDeclaration:
			a.resolveTraitSignatures(d)
		}
	}
	for _, stmt := range mod.Statements {
		a.analyzeStatement(stmt)
	}
}

func (a *Analyzer) resolveClassMembers(d *ast.ClassDeclaration) {
	info := a.classes[d.Name.Value]
	if info == nil {
		return
	}
	a.withTypeParams(info.TypeParams, func() {
		if d.Superclass != nil {
			superType := a.resolveTypeExpr(d.Superclass)
			if name, ok := typeName(superType); ok {
				if super := a.classes[name]; super != nil {
					info.Super = super
				} else if !types.IsError(superType) {
					a.reporter.Reportf(report.T019InvalidInherit, d.Superclass.Pos(), report.Error,
						"superclass %s is not a class", superType)
				}
			}
		}
		for _, tr := range d.Traits {
			traitType := a.resolveTypeExpr(tr)
			if name, ok := typeName(traitType); ok {
				info.Traits = append(info.Traits, name)
				if _, isTrait := a.traits[name]; !isTrait && !types.IsError(traitType) {
					a.reporter.Reportf(report.T017TraitUnsatisfied, tr.Pos(), report.Error,
						"%s is not a trait", traitType)
				}
			}
		}
		for _, f := range d.Fields {
			if _, dup := info.Fields[f.Name]; dup {
				a.declareDuplicate(f.Name, f.Token.Pos)
				continue
			}
			info.Fields[f.Name] = a.resolveTypeExpr(f.TypeAnn)
			info.FieldOrder = append(info.FieldOrder, f.Name)
		}
		for _, m := range d.Methods {
			if _, dup := info.Methods[m.Name.Value]; dup {
				a.declareDuplicate(m.Name.Value, m.Pos())
				continue
			}
			info.Methods[m.Name.Value] = a.functionType(m)
			info.MethodDecls[m.Name.Value] = m
		}
	})
	a.synthesizeMoveMembers(info)
}

func (a *Analyzer) resolveEnumVariants(d *ast.EnumDeclaration) {
	info := a.enums[d.Name.Value]
	if info == nil {
		return
	}
	a.withTypeParams(info.TypeParams, func() {
		for _, v := range d.Variants {
			if _, dup := info.Variants[v.Name]; dup {
				a.declareDuplicate(v.Name, v.Token.Pos)
				continue
			}
			payload := make([]types.Type, len(v.Payload))
			for i, p := range v.Payload {
				payload[i] = a.resolveTypeExpr(p)
			}
			info.Variants[v.Name] = payload
			info.VariantOrder = append(info.VariantOrder, v.Name)
			if owner, taken := a.variantOwners[v.Name]; taken && owner != info {
				a.reporter.Reportf(report.M001DuplicateDefinition, v.Token.Pos, report.Error,
					"variant %q is already defined by enum %s", v.Name, owner.Name)
				continue
			}
			a.variantOwners[v.Name] = info
		}
	})
}

func (a *Analyzer) resolveTraitSignatures(d *ast.TraitDeclaration) {
	info := a.traits[d.Name.Value]
	if info == nil {
		return
	}
	for _, sig := range d.Signatures {
		var params []types.Type
		for _, p := range sig.Params {
			if p.Name == "self" {
				continue
			}
			params = append(params, a.resolveTypeExpr(p.TypeAnn))
		}
		var ret types.Type = types.VOID
		if sig.ReturnAnn != nil {
			ret = a.resolveTypeExpr(sig.ReturnAnn)
		}
		info.Signatures[sig.Name] = types.NewFunction(params, ret)
	}
	for _, m := range d.Defaults {
		info.Signatures[m.Name.Value] = a.functionType(m)
	}
}

// withTypeParams runs fn with the named type parameters in scope.
func (a *Analyzer) withTypeParams(names []string, fn func()) {
	if len(names) == 0 {
		fn()
		return
	}
	a.pushScope()
	for _, name := range names {
		a.scope.Declare(&SymbolInfo{Name: name, Kind: TypeParamSymbol, Type: types.NewParam(name)})
	}
	fn()
	a.popScope()
}

func (a *Analyzer) pushScope() { a.scope = NewScope(a.scope) }

// popScope exits the current frame: owned bindings are dropped in reverse
// declaration order and outstanding borrows originating here are returned.
func (a *Analyzer) popScope() {
	frame := a.scope
	owned := frame.Owned()
	for i := len(owned) - 1; i >= 0; i-- {
		sym := owned[i]
		if sym.Own != nil && (sym.Own.State == Borrowed || sym.Own.State == MutableBorrowed) {
			sym.Own.Return(sym.Name)
		}
	}
	a.scope = frame.Parent()
}

// analyzeStatement checks one statement. Each statement is checked
// independently so one failure does not short-circuit the list.
func (a *Analyzer) analyzeStatement(stmt ast.Statement) {
	// First violation per binding per statement.
	a.movedReported = map[*SymbolInfo]bool{}

	switch s := stmt.(type) {
	case nil, *ast.BadStatement, *ast.ModuleDeclaration, *ast.ImportStatement, *ast.ExportStatement:
		return
	case *ast.ExpressionStatement:
		a.analyzeExpression(s.Expression)
	case *ast.VariableDeclaration:
		a.analyzeVariableDeclaration(s)
	case *ast.BlockStatement:
		a.analyzeBlock(s)
	case *ast.IfStatement:
		a.analyzeIf(s)
	case *ast.WhileStatement:
		a.analyzeCondition(s.Condition, "while condition")
		a.loopDepth++
		a.analyzeBlock(s.Body)
		a.loopDepth--
	case *ast.ForInStatement:
		a.analyzeForIn(s)
	case *ast.ReturnStatement:
		a.analyzeReturn(s)
	case *ast.FunctionDeclaration:
		a.analyzeFunctionDeclaration(s)
	case *ast.ClassDeclaration:
		a.analyzeClassBodies(s)
	case *ast.EnumDeclaration, *ast.TraitDeclaration:
		a.analyzeTraitDefaults(stmt)
	case *ast.ImplDeclaration:
		a.analyzeImpl(s)
	case *ast.MatchStatement:
		a.analyzeMatchStatement(s)
	case *ast.TryStatement:
		a.analyzeTry(s)
	case *ast.ThrowStatement:
		t := a.analyzeExpression(s.Value)
		if t == types.VOID {
			a.reporter.Report(report.T001TypeMismatch, "cannot throw a void value", s.Pos(), report.Error)
		}
	case *ast.BreakStatement:
		if a.loopDepth == 0 {
			a.reporter.Report(report.S011InvalidLoop, "break outside of a loop", s.Pos(), report.Error)
		}
	case *ast.ContinueStatement:
		if a.loopDepth == 0 {
			a.reporter.Report(report.S011InvalidLoop, "continue outside of a loop", s.Pos(), report.Error)
		}
	case *ast.DeferStatement:
		a.analyzeStatement(s.Call)
	case *ast.SelectStatement:
		a.analyzeSelect(s)
	case *ast.GoStatement:
		a.analyzeExpression(s.Call)
	default:
		a.reporter.Reportf(report.G001Internal, stmt.Pos(), report.Error,
			"unhandled statement %T", stmt)
	}
}

func (a *Analyzer) analyzeBlock(block *ast.BlockStatement) {
	if block == nil {
		return
	}
	a.pushScope()
	for _, stmt := range block.Statements {
		a.analyzeStatement(stmt)
	}
	a.popScope()
}

func (a *Analyzer) analyzeVariableDeclaration(s *ast.VariableDeclaration) {
	var declared types.Type
	if s.TypeAnn != nil {
		declared = a.resolveTypeExpr(s.TypeAnn)
	}

	var actual types.Type
	if s.Value != nil {
		actual = a.analyzeExpressionExpect(s.Value, declared)
	}

	t := declared
	switch {
	case declared != nil && actual != nil:
		if !a.assignable(actual, declared) {
			a.reporter.Reportf(report.T001TypeMismatch, s.Value.Pos(), report.Error,
				"cannot assign %s to %s", actual, declared)
		}
	case declared == nil && actual != nil:
		t = actual
		if actual == types.NIL {
			t = types.NewNullable(types.ERROR)
			a.reporter.Report(report.T009UntypedLiteral,
				"cannot infer a type from nil; add a type annotation", s.Pos(), report.Error)
		}
	case declared == nil && actual == nil:
		t = types.ERROR
	}

	if s.Value != nil && actual != nil {
		a.maybeMoveFrom(s.Value, actual)
	}

	sym := &SymbolInfo{
		Name:    s.Name.Value,
		Kind:    VarSymbol,
		Type:    t,
		Mutable: s.Mutable,
		Decl:    s,
	}
	if !a.scope.Declare(sym) {
		a.declareDuplicate(s.Name.Value, s.Pos())
	}
	s.Name.SetType(t)
}

func (a *Analyzer) analyzeCondition(cond ast.Expression, context string) {
	t := a.analyzeExpression(cond)
	if t != nil && !types.TruthConvertible(t) {
		a.reporter.Reportf(report.T001TypeMismatch, cond.Pos(), report.Error,
			"%s of type %s is not convertible to bool", context, t)
	}
}

func (a *Analyzer) analyzeIf(s *ast.IfStatement) {
	a.analyzeCondition(s.Condition, "if condition")
	a.analyzeBlock(s.Then)
	for _, e := range s.Elifs {
		a.analyzeCondition(e.Condition, "elif condition")
		a.analyzeBlock(e.Body)
	}
	a.analyzeBlock(s.Else)
}

// analyzeForIn types the loop variable from the iterable: List<T> yields T,
// Map<K, V> yields K, string yields string, and int ranges yield int.
func (a *Analyzer) analyzeForIn(s *ast.ForInStatement) {
	iterType := a.analyzeExpression(s.Iterable)
	elem := a.elementType(iterType)
	if elem == nil {
		a.reporter.Reportf(report.T001TypeMismatch, s.Iterable.Pos(), report.Error,
			"type %s is not iterable", iterType)
		elem = types.ERROR
	}

	a.pushScope()
	a.scope.Declare(&SymbolInfo{
		Name:    s.Variable.Value,
		Kind:    VarSymbol,
		Type:    elem,
		Mutable: false,
		Decl:    s,
	})
	s.Variable.SetType(elem)
	a.loopDepth++
	for _, stmt := range s.Body.Statements {
		a.analyzeStatement(stmt)
	}
	a.loopDepth--
	a.popScope()
}

// elementType returns the element type an iterable produces, or nil.
func (a *Analyzer) elementType(t types.Type) types.Type {
	switch {
	case t == nil:
		return nil
	case types.IsError(t):
		return types.ERROR
	}
	if elem := types.ListElem(t); elem != nil {
		return elem
	}
	if g, ok := t.(*types.GenericType); ok {
		switch g.Name {
		case types.MapName:
			if len(g.Args) == 2 {
				return g.Args[0]
			}
		case "Range":
			if len(g.Args) == 1 {
				return g.Args[0]
			}
		}
	}
	if b, ok := t.(*types.BasicType); ok && b.Kind() == types.KindString {
		return types.STRING
	}
	return nil
}

func (a *Analyzer) analyzeReturn(s *ast.ReturnStatement) {
	expected := a.currentReturn
	if expected == nil {
		expected = types.VOID
	}
	if s.Value == nil {
		if expected != types.VOID && !types.IsError(expected) {
			a.reporter.Reportf(report.T014InvalidReturn, s.Pos(), report.Error,
				"bare return in a function returning %s", expected)
		}
		return
	}
	actual := a.analyzeExpression(s.Value)
	if expected == types.VOID {
		a.reporter.Report(report.T014InvalidReturn,
			"cannot return a value from a void function", s.Pos(), report.Error)
		return
	}
	if actual != nil && !a.assignable(actual, expected) {
		a.reporter.Reportf(report.T001TypeMismatch, s.Value.Pos(), report.Error,
			"cannot return %s from a function returning %s", actual, expected)
	}
	if actual != nil {
		a.maybeMoveFrom(s.Value, actual) // returning moves to the caller
	}
}

// analyzeFunctionDeclaration checks a function body with its parameters,
// type parameters, and expected return type in scope.
func (a *Analyzer) analyzeFunctionDeclaration(d *ast.FunctionDeclaration) {
	// Nested functions declare into the enclosing scope.
	if a.scope != a.moduleScope && d.Receiver == nil {
		sym := &SymbolInfo{Name: d.Name.Value, Kind: FuncSymbol, Type: a.functionType(d), Decl: d}
		if !a.scope.Declare(sym) {
			a.declareDuplicate(d.Name.Value, d.Pos())
		}
	}

	var tpNames []string
	for _, tp := range d.TypeParams {
		tpNames = append(tpNames, tp.Name)
	}

	a.withTypeParams(tpNames, func() {
		a.pushScope()

		if d.Receiver != nil {
			recv := a.resolveTypeExpr(d.Receiver)
			a.scope.Declare(&SymbolInfo{Name: "self", Kind: VarSymbol, Type: recv, Decl: d})
		}
		for _, p := range d.Params {
			if p.Name == "self" {
				continue
			}
			var t types.Type = types.ERROR
			if p.TypeAnn != nil {
				t = a.resolveTypeExpr(p.TypeAnn)
			}
			if p.Default != nil {
				dt := a.analyzeExpressionExpect(p.Default, t)
				if p.TypeAnn == nil {
					t = dt
				} else if dt != nil && !a.assignable(dt, t) {
					a.reporter.Reportf(report.T001TypeMismatch, p.Default.Pos(), report.Error,
						"default value of type %s is not assignable to parameter type %s", dt, t)
				}
			}
			sym := &SymbolInfo{Name: p.Name, Kind: VarSymbol, Type: t, Mutable: true, Decl: d}
			if !a.scope.Declare(sym) {
				a.declareDuplicate(p.Name, p.Token.Pos)
			}
		}

		savedReturn, savedAsync := a.currentReturn, a.inAsync
		a.currentReturn = types.VOID
		if d.ReturnAnn != nil {
			a.currentReturn = a.resolveTypeExpr(d.ReturnAnn)
		}
		a.inAsync = d.IsAsync

		if d.Body != nil {
			for _, stmt := range d.Body.Statements {
				a.analyzeStatement(stmt)
			}
		}

		a.currentReturn, a.inAsync = savedReturn, savedAsync
		a.popScope()
	})
}

// analyzeClassBodies checks every method with self bound to the class.
func (a *Analyzer) analyzeClassBodies(d *ast.ClassDeclaration) {
	info := a.classes[d.Name.Value]
	if info == nil {
		return
	}
	savedClass := a.currentClass
	a.currentClass = info

	a.withTypeParams(info.TypeParams, func() {
		for _, f := range d.Fields {
			if f.Default != nil {
				ft := info.Fields[f.Name]
				dt := a.analyzeExpressionExpect(f.Default, ft)
				if dt != nil && ft != nil && !a.assignable(dt, ft) {
					a.reporter.Reportf(report.T001TypeMismatch, f.Default.Pos(), report.Error,
						"field default of type %s is not assignable to %s", dt, ft)
				}
			}
		}
		for _, m := range d.Methods {
			a.analyzeMethod(info, m)
		}
	})
	a.currentClass = savedClass
}

func (a *Analyzer) analyzeMethod(info *ClassInfo, m *ast.FunctionDeclaration) {
	a.pushScope()
	a.scope.Declare(&SymbolInfo{Name: "self", Kind: VarSymbol, Type: info.Type(), Decl: m})
	a.popAfter(func() {
		a.analyzeFunctionDeclaration(m)
	})
}

// popAfter runs fn, then pops the scope pushed by the caller.
func (a *Analyzer) popAfter(fn func()) {
	fn()
	a.popScope()
}

// analyzeTraitDefaults checks default method bodies of traits.
func (a *Analyzer) analyzeTraitDefaults(stmt ast.Statement) {
	td, ok := stmt.(*ast.TraitDeclaration)
	if !ok {
		return
	}
	for _, m := range td.Defaults {
		a.analyzeFunctionDeclaration(m)
	}
}

// analyzeImpl checks that an impl block supplies every trait signature with
// a compatible type (T017) and checks the method bodies.
func (a *Analyzer) analyzeImpl(d *ast.ImplDeclaration) {
	traitType := a.resolveTypeExpr(d.Trait)
	targetType := a.resolveTypeExpr(d.Target)

	traitName, _ := typeName(traitType)
	info := a.traits[traitName]
	if info == nil && !types.IsError(traitType) {
		a.reporter.Reportf(report.T017TraitUnsatisfied, d.Trait.Pos(), report.Error,
			"%s is not a trait", traitType)
	}

	supplied := map[string]*types.FunctionType{}
	for _, m := range d.Methods {
		supplied[m.Name.Value] = a.functionType(m)

		a.pushScope()
		a.scope.Declare(&SymbolInfo{Name: "self", Kind: VarSymbol, Type: targetType, Decl: m})
		a.popAfter(func() {
			a.analyzeFunctionDeclaration(m)
		})
	}

	if info != nil {
		for name, want := range info.Signatures {
			got, ok := supplied[name]
			if !ok {
				if _, hasDefault := defaultMethod(info, name); hasDefault {
					continue
				}
				a.reporter.Reportf(report.T017TraitUnsatisfied, d.Pos(), report.Error,
					"impl of %s for %s is missing method %q", traitName, targetType, name)
				continue
			}
			if !types.AlphaEquivalent(got, want) {
				a.reporter.Reportf(report.T017TraitUnsatisfied, d.Pos(), report.Error,
					"method %q has type %s, trait requires %s", name, got, want)
			}
		}
	}
}

func defaultMethod(info *TraitInfo, name string) (*ast.FunctionDeclaration, bool) {
	if info.Decl == nil {
		return nil, false
	}
	for _, m := range info.Decl.Defaults {
		if m.Name.Value == name {
			return m, true
		}
	}
	return nil, false
}

func (a *Analyzer) analyzeTry(s *ast.TryStatement) {
	a.analyzeBlock(s.Body)
	for _, c := range s.Catches {
		a.pushScope()
		if c.Name != nil {
			var t types.Type = types.ERROR
			if c.TypeAnn != nil {
				t = a.resolveTypeExpr(c.TypeAnn)
			}
			a.scope.Declare(&SymbolInfo{Name: c.Name.Value, Kind: VarSymbol, Type: t, Decl: s})
			c.Name.SetType(t)
		}
		for _, stmt := range c.Body.Statements {
			a.analyzeStatement(stmt)
		}
		a.popScope()
	}
	a.analyzeBlock(s.Finally)
}

func (a *Analyzer) analyzeSelect(s *ast.SelectStatement) {
	for _, c := range s.Cases {
		a.pushScope()
		commType := a.analyzeExpression(c.Comm)
		if c.Bind != nil {
			elem := commType
			if elem == nil {
				elem = types.ERROR
			}
			a.scope.Declare(&SymbolInfo{Name: c.Bind.Value, Kind: VarSymbol, Type: elem, Decl: s})
			c.Bind.SetType(elem)
		}
		for _, stmt := range c.Body.Statements {
			a.analyzeStatement(stmt)
		}
		a.popScope()
	}
	a.analyzeBlock(s.Default)
}
