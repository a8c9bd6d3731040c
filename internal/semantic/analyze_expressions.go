package semantic

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/internal/types"
)

// analyzeExpression checks an expression and returns its type. The resolved
// type is stored on the node; recovery paths store the error type.
func (a *Analyzer) analyzeExpression(expr ast.Expression) types.Type {
	return a.analyzeExpressionExpect(expr, nil)
}

// analyzeExpressionExpect threads an optional expected type into
// context-sensitive literals and lambdas.
func (a *Analyzer) analyzeExpressionExpect(expr ast.Expression, expected types.Type) types.Type {
	if expr == nil {
		return nil
	}
	t := a.typeOf(expr, expected)
	if t == nil {
		t = types.ERROR
	}
	expr.SetType(t)
	return t
}

func (a *Analyzer) typeOf(expr ast.Expression, expected types.Type) types.Type {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return types.INT
	case *ast.FloatLiteral:
		if e.Is32 {
			return types.FLOAT32
		}
		return types.FLOAT64
	case *ast.StringLiteral:
		return types.STRING
	case *ast.BooleanLiteral:
		return types.BOOL
	case *ast.NilLiteral:
		return types.NIL
	case *ast.BadExpression:
		return types.ERROR
	case *ast.Identifier:
		return a.analyzeIdentifier(e)
	case *ast.SelfExpression:
		if sym := a.scope.Resolve("self"); sym != nil {
			return sym.Type
		}
		if a.currentClass == nil {
			a.reporter.Report(report.T002UndefinedVariable,
				"self used outside of a method", e.Pos(), report.Error)
			return types.ERROR
		}
		return a.currentClass.Type()
	case *ast.GroupedExpression:
		return a.analyzeExpressionExpect(e.Inner, expected)
	case *ast.UnaryExpression:
		return a.analyzeUnary(e)
	case *ast.BinaryExpression:
		return a.analyzeBinary(e)
	case *ast.LogicalExpression:
		return a.analyzeLogical(e)
	case *ast.AssignExpression:
		return a.analyzeAssign(e)
	case *ast.CallExpression:
		return a.analyzeCall(e)
	case *ast.MemberExpression:
		return a.analyzeMember(e)
	case *ast.IndexExpression:
		return a.analyzeIndex(e)
	case *ast.ListLiteral:
		return a.analyzeListLiteral(e, expected)
	case *ast.MapLiteral:
		return a.analyzeMapLiteral(e, expected)
	case *ast.LambdaExpression:
		return a.analyzeLambda(e, expected)
	case *ast.AwaitExpression:
		return a.analyzeAwait(e)
	case *ast.NewExpression:
		return a.analyzeNew(e)
	case *ast.DeleteExpression:
		return a.analyzeDelete(e)
	case *ast.InterpolationExpression:
		return a.analyzeInterpolation(e)
	case *ast.NotNullExpression:
		return a.analyzeNotNull(e)
	case *ast.ElvisExpression:
		return a.analyzeElvis(e)
	case *ast.MoveExpression:
		return a.analyzeMove(e)
	case *ast.ChannelSendExpression:
		return a.analyzeChannelSend(e)
	case *ast.ChannelReceiveExpression:
		return a.analyzeChannelReceive(e)
	case *ast.RangeExpression:
		return a.analyzeRange(e)
	case *ast.MatchExpression:
		return a.analyzeMatchExpression(e)
	}
	a.reporter.Reportf(report.G001Internal, expr.Pos(), report.Error,
		"unhandled expression %T", expr)
	return types.ERROR
}

func (a *Analyzer) analyzeIdentifier(e *ast.Identifier) types.Type {
	// Nullary enum variants read as values: None, or an unqualified
	// payload-free user variant such as Red of enum Color.
	if enum := a.variantOwners[e.Value]; enum != nil {
		if payload := enum.Variants[e.Value]; len(payload) == 0 {
			return enum.Type()
		}
	}

	sym := a.resolveName(e.Value)
	if sym == nil {
		a.reporter.Reportf(report.T002UndefinedVariable, e.Pos(), report.Error,
			"undefined name %q", e.Value)
		return types.ERROR
	}
	if sym.Kind == VarSymbol {
		a.checkUse(sym, e.Pos())
	}
	return sym.Type
}

func (a *Analyzer) analyzeUnary(e *ast.UnaryExpression) types.Type {
	t := a.analyzeExpression(e.Operand)
	switch e.Operator {
	case "-":
		if types.IsNumeric(t) || types.IsError(t) {
			return t
		}
	case "!":
		if types.TruthConvertible(t) {
			return types.BOOL
		}
	case "~":
		if t == types.INT || types.IsError(t) {
			return types.INT
		}
	case "++", "--":
		if id, ok := e.Operand.(*ast.Identifier); ok {
			if sym := a.scope.Resolve(id.Value); sym != nil {
				a.checkMutate(sym, e.Pos())
			}
		}
		if types.IsNumeric(t) || types.IsError(t) {
			return t
		}
	}
	a.reporter.Reportf(report.T006InvalidOperator, e.Pos(), report.Error,
		"operator %q is not defined for %s", e.Operator, t)
	return types.ERROR
}

func (a *Analyzer) analyzeBinary(e *ast.BinaryExpression) types.Type {
	switch e.Operator {
	case "is", "instanceof":
		a.analyzeExpression(e.Left)
		a.resolveTypeOperand(e.Right)
		return types.BOOL
	case "as":
		return a.analyzeCast(e)
	}

	lt := a.analyzeExpression(e.Left)
	rt := a.analyzeExpression(e.Right)
	if types.IsError(lt) || types.IsError(rt) {
		return types.ERROR
	}

	switch e.Operator {
	case "+":
		if lt == types.STRING && rt == types.STRING {
			return types.STRING
		}
		fallthrough
	case "-", "*", "/", "%", "**":
		if promoted := promote(lt, rt); promoted != nil {
			return promoted
		}
		// Operators on user types dispatch to declared operator methods
		// or extension functions.
		if dispatched := a.operatorDispatch(e.Operator, lt, rt); dispatched != nil {
			return dispatched
		}
	case "<", "<=", ">", ">=":
		if promote(lt, rt) != nil || (lt == types.STRING && rt == types.STRING) {
			return types.BOOL
		}
	case "==", "!=", "===", "!==":
		if a.assignable(lt, rt) || a.assignable(rt, lt) ||
			lt == types.NIL || rt == types.NIL {
			return types.BOOL
		}
	case "<<", ">>", "&", "|", "^":
		if lt == types.INT && rt == types.INT {
			return types.INT
		}
	case "in":
		if elem := a.elementType(rt); elem != nil {
			return types.BOOL
		}
		if g, ok := rt.(*types.GenericType); ok && g.Name == types.MapName {
			return types.BOOL
		}
	}

	a.reporter.Reportf(report.T006InvalidOperator, e.Pos(), report.Error,
		"operator %q is not defined for %s and %s", e.Operator, lt, rt)
	return types.ERROR
}

// promote applies the arithmetic promotion table to a numeric pair.
func promote(lt, rt types.Type) types.Type {
	if !types.IsNumeric(lt) || !types.IsNumeric(rt) {
		return nil
	}
	if lt == types.FLOAT64 || rt == types.FLOAT64 {
		return types.FLOAT64
	}
	if lt == types.FLOAT32 || rt == types.FLOAT32 {
		if lt == types.INT || rt == types.INT {
			return types.FLOAT64
		}
		return types.FLOAT32
	}
	return types.INT
}

// operatorDispatch resolves an operator on user types to a declared
// operator method or an extension function (strict fallback). Returns the
// result type, or nil when nothing matched (T006 at the caller).
func (a *Analyzer) operatorDispatch(op string, lt, rt types.Type) types.Type {
	name := operatorMethodName(op)
	if name == "" {
		return nil
	}
	if clsName, ok := typeName(lt); ok {
		if info := a.classes[clsName]; info != nil {
			if ft, ok := a.lookupMethod(info, name); ok {
				if len(ft.Params) == 1 && a.assignable(rt, ft.Params[0]) {
					return ft.Return
				}
			}
		}
	}
	if ext := a.extensions.Lookup(lt, name); ext != nil {
		if len(ext.Type.Params) == 1 && a.assignable(rt, ext.Type.Params[0]) {
			return ext.Type.Return
		}
	}
	return nil
}

func operatorMethodName(op string) string {
	switch op {
	case "+":
		return "op_add"
	case "-":
		return "op_sub"
	case "*":
		return "op_mul"
	case "/":
		return "op_div"
	case "%":
		return "op_mod"
	case "**":
		return "op_pow"
	}
	return ""
}

// resolveTypeOperand types the right operand of is/instanceof, which names
// a type rather than a value.
func (a *Analyzer) resolveTypeOperand(expr ast.Expression) types.Type {
	id, ok := expr.(*ast.Identifier)
	if !ok {
		a.reporter.Report(report.T004UndefinedType,
			"expected a type name", expr.Pos(), report.Error)
		expr.SetType(types.ERROR)
		return types.ERROR
	}
	t := a.resolveNamedType(&ast.NamedTypeExpr{Token: id.Token, Name: id.Value})
	expr.SetType(t)
	return t
}

// analyzeCast checks `e as T`. Numeric conversions are always explicit
// casts; unrelated class casts report T011.
func (a *Analyzer) analyzeCast(e *ast.BinaryExpression) types.Type {
	lt := a.analyzeExpression(e.Left)
	target := a.resolveTypeOperand(e.Right)
	if types.IsError(lt) || types.IsError(target) {
		return types.ERROR
	}
	if types.IsNumeric(lt) && types.IsNumeric(target) {
		return target
	}
	if lt == types.STRING && target == types.STRING {
		return target
	}
	if a.assignable(lt, target) || a.assignable(target, lt) {
		return target // up- or downcast within a hierarchy
	}
	a.reporter.Reportf(report.T011InvalidCast, e.Pos(), report.Error,
		"cannot cast %s to %s", lt, target)
	return types.ERROR
}

func (a *Analyzer) analyzeLogical(e *ast.LogicalExpression) types.Type {
	lt := a.analyzeExpression(e.Left)
	rt := a.analyzeExpression(e.Right)
	for _, pair := range []struct {
		t   types.Type
		pos ast.Expression
	}{{lt, e.Left}, {rt, e.Right}} {
		if pair.t != nil && !types.TruthConvertible(pair.t) {
			a.reporter.Reportf(report.T001TypeMismatch, pair.pos.Pos(), report.Error,
				"operand of %q has type %s, which is not convertible to bool", e.Operator, pair.t)
		}
	}
	return types.BOOL
}

func (a *Analyzer) analyzeAssign(e *ast.AssignExpression) types.Type {
	targetType := a.analyzeAssignTarget(e.Target)
	valueType := a.analyzeExpressionExpect(e.Value, targetType)

	if e.Operator == "=" {
		if targetType != nil && valueType != nil && !a.assignable(valueType, targetType) {
			a.reporter.Reportf(report.T001TypeMismatch, e.Value.Pos(), report.Error,
				"cannot assign %s to %s", valueType, targetType)
		}
		if valueType != nil {
			a.maybeMoveFrom(e.Value, valueType)
		}
		return targetType
	}

	// Compound assignment: the underlying binary operator must apply.
	op := e.Operator[:len(e.Operator)-1]
	switch op {
	case "+", "-", "*", "/", "%", "**":
		if promote(targetType, valueType) == nil &&
			!(op == "+" && targetType == types.STRING && valueType == types.STRING) &&
			!types.IsError(targetType) && !types.IsError(valueType) {
			a.reporter.Reportf(report.T006InvalidOperator, e.Pos(), report.Error,
				"operator %q is not defined for %s and %s", e.Operator, targetType, valueType)
		}
	case "&", "|", "^", "<<", ">>":
		if (targetType != types.INT || valueType != types.INT) &&
			!types.IsError(targetType) && !types.IsError(valueType) {
			a.reporter.Reportf(report.T006InvalidOperator, e.Pos(), report.Error,
				"operator %q requires int operands", e.Operator)
		}
	}
	return targetType
}

// analyzeAssignTarget types the left side of an assignment and runs the
// mutation checks.
func (a *Analyzer) analyzeAssignTarget(target ast.Expression) types.Type {
	switch t := target.(type) {
	case *ast.Identifier:
		sym := a.resolveName(t.Value)
		if sym == nil {
			a.reporter.Reportf(report.T002UndefinedVariable, t.Pos(), report.Error,
				"undefined name %q", t.Value)
			target.SetType(types.ERROR)
			return types.ERROR
		}
		if sym.Kind != VarSymbol {
			a.reporter.Reportf(report.T013InvalidAssignment, t.Pos(), report.Error,
				"cannot assign to %s %q", sym.Kind, t.Value)
			target.SetType(types.ERROR)
			return types.ERROR
		}
		a.checkMutate(sym, t.Pos())
		target.SetType(sym.Type)
		return sym.Type
	case *ast.MemberExpression, *ast.IndexExpression:
		return a.analyzeExpression(target)
	}
	a.reporter.Report(report.T013InvalidAssignment,
		"invalid assignment target", target.Pos(), report.Error)
	target.SetType(types.ERROR)
	return types.ERROR
}

// analyzeCall checks calls: arity (T007), argument assignability (T001),
// generic inference, variant constructors, and the && move-at-call-site
// rule. Plain parameters borrow their argument for the duration of the
// call; rvalue-reference parameters take ownership.
func (a *Analyzer) analyzeCall(e *ast.CallExpression) types.Type {
	// Enum variant constructor: Some(x), Ok(v), user variants.
	if id, ok := e.Callee.(*ast.Identifier); ok {
		if enum := a.variantOwners[id.Value]; enum != nil {
			return a.analyzeVariantCall(e, id, enum)
		}
	}

	calleeType := a.analyzeExpression(e.Callee)
	ft, ok := calleeType.(*types.FunctionType)
	if !ok {
		if !types.IsError(calleeType) {
			a.reporter.Reportf(report.T003UndefinedFunction, e.Callee.Pos(), report.Error,
				"%s is not callable", calleeType)
		}
		for _, arg := range e.Args {
			a.analyzeExpression(arg)
		}
		return types.ERROR
	}

	// Variadic-tolerant builtins keep their declared unary shape; print
	// accepts any single value convertible to string.
	if id, ok := e.Callee.(*ast.Identifier); ok {
		if special := a.analyzeBuiltinCall(e, id.Value); special != nil {
			return special
		}
	}

	if len(e.Args) != len(ft.Params) {
		a.reporter.Reportf(report.T007ArgumentCount, e.Pos(), report.Error,
			"call expects %d arguments, got %d", len(ft.Params), len(e.Args))
	}

	// Generic declaration: infer the substitution from the arguments.
	var sub types.Substitution
	decl := a.genericDecl(e.Callee)
	if decl != nil {
		sub = types.Substitution{}
	}

	n := len(e.Args)
	if len(ft.Params) < n {
		n = len(ft.Params)
	}
	for i := 0; i < n; i++ {
		param := ft.Params[i]
		argType := a.analyzeExpressionExpect(e.Args[i], types.Substitute(param, sub))
		if argType == nil {
			continue
		}
		if sub != nil {
			unify(param, argType, sub)
		}
		want := types.Substitute(param, sub)
		if ref, isRef := want.(*types.RefType); isRef {
			// The callee takes ownership; the move happens at the call site.
			if !a.assignable(argType, ref.Base) && !types.IsError(argType) {
				a.reporter.Reportf(report.T001TypeMismatch, e.Args[i].Pos(), report.Error,
					"argument %d has type %s, parameter requires %s", i+1, argType, ref.Base)
			}
			a.maybeMoveFrom(e.Args[i], argType)
			continue
		}
		if !a.assignable(argType, want) && !types.IsError(argType) {
			a.reporter.Reportf(report.T001TypeMismatch, e.Args[i].Pos(), report.Error,
				"argument %d has type %s, parameter requires %s", i+1, argType, want)
		}
		a.borrowForCall(e.Args[i])
	}

	ret := ft.Return
	if sub != nil {
		ret = types.Substitute(ret, sub)
		a.callSubs[e] = sub
		a.callTargets[e] = decl
	}
	return ret
}

// borrowForCall registers the transient immutable borrow of an identifier
// argument and returns it at the end of the call.
func (a *Analyzer) borrowForCall(arg ast.Expression) {
	id, ok := arg.(*ast.Identifier)
	if !ok {
		return
	}
	sym := a.scope.Resolve(id.Value)
	if sym == nil || sym.Kind != VarSymbol || sym.Own == nil {
		return
	}
	if !sym.Own.Borrow("call") {
		a.reporter.Reportf(report.B002BorrowConflict, arg.Pos(), report.Error,
			"cannot borrow %q while it is mutably borrowed", sym.Name)
		return
	}
	sym.Own.Return("call")
}

// genericDecl returns the generic declaration a callee resolves to, or nil.
func (a *Analyzer) genericDecl(callee ast.Expression) *ast.FunctionDeclaration {
	id, ok := callee.(*ast.Identifier)
	if !ok {
		return nil
	}
	sym := a.resolveName(id.Value)
	if sym == nil {
		return nil
	}
	decl, ok := sym.Decl.(*ast.FunctionDeclaration)
	if !ok || len(decl.TypeParams) == 0 {
		return nil
	}
	return decl
}

// unify matches a parameter type against an argument type, recording
// type-parameter bindings. First binding wins; later mismatches surface as
// assignability errors.
func unify(param, arg types.Type, sub types.Substitution) {
	switch p := param.(type) {
	case *types.ParamType:
		if _, bound := sub[p.Name]; !bound {
			sub[p.Name] = arg
		}
	case *types.GenericType:
		if g, ok := arg.(*types.GenericType); ok && p.Name == g.Name && len(p.Args) == len(g.Args) {
			for i := range p.Args {
				unify(p.Args[i], g.Args[i], sub)
			}
		}
	case *types.FunctionType:
		if f, ok := arg.(*types.FunctionType); ok && len(p.Params) == len(f.Params) {
			for i := range p.Params {
				unify(p.Params[i], f.Params[i], sub)
			}
			unify(p.Return, f.Return, sub)
		}
	case *types.NullableType:
		if n, ok := arg.(*types.NullableType); ok {
			unify(p.Base, n.Base, sub)
		} else {
			unify(p.Base, arg, sub)
		}
	case *types.RefType:
		unify(p.Base, arg, sub)
	}
}

// analyzeBuiltinCall special-cases builtins whose checking is not captured
// by their declared type. Returns nil to fall through to normal checking.
func (a *Analyzer) analyzeBuiltinCall(e *ast.CallExpression, name string) types.Type {
	if a.scope.Resolve(name) != nil {
		return nil // shadowed by a user declaration
	}
	switch name {
	case "print":
		if len(e.Args) == 0 {
			a.reporter.Report(report.T007ArgumentCount,
				"print expects at least one argument", e.Pos(), report.Error)
			return types.VOID
		}
		for _, arg := range e.Args {
			t := a.analyzeExpression(arg)
			if t != nil && !types.StringConvertible(t) {
				a.reporter.Reportf(report.T001TypeMismatch, arg.Pos(), report.Error,
					"value of type %s is not convertible to string", t)
			}
			a.borrowForCall(arg)
		}
		return types.VOID
	case "to_string":
		if len(e.Args) != 1 {
			a.reporter.Report(report.T007ArgumentCount,
				"to_string expects one argument", e.Pos(), report.Error)
			return types.STRING
		}
		a.analyzeExpression(e.Args[0])
		return types.STRING
	case "len":
		if len(e.Args) != 1 {
			a.reporter.Report(report.T007ArgumentCount,
				"len expects one argument", e.Pos(), report.Error)
			return types.INT
		}
		t := a.analyzeExpression(e.Args[0])
		if t != nil && a.elementType(t) == nil && !types.IsError(t) {
			a.reporter.Reportf(report.T001TypeMismatch, e.Args[0].Pos(), report.Error,
				"len is not defined for %s", t)
		}
		return types.INT
	}
	return nil
}

// analyzeVariantCall types an enum variant constructor application.
func (a *Analyzer) analyzeVariantCall(e *ast.CallExpression, id *ast.Identifier, enum *EnumInfo) types.Type {
	payload := enum.Variants[id.Value]
	if len(e.Args) != len(payload) {
		a.reporter.Reportf(report.T007ArgumentCount, e.Pos(), report.Error,
			"variant %s expects %d arguments, got %d", id.Value, len(payload), len(e.Args))
	}

	sub := types.Substitution{}
	n := len(e.Args)
	if len(payload) < n {
		n = len(payload)
	}
	for i := 0; i < n; i++ {
		argType := a.analyzeExpression(e.Args[i])
		if argType == nil {
			continue
		}
		unify(payload[i], argType, sub)
		want := types.Substitute(payload[i], sub)
		if !a.assignable(argType, want) && !types.IsError(argType) {
			a.reporter.Reportf(report.T001TypeMismatch, e.Args[i].Pos(), report.Error,
				"variant argument %d has type %s, expected %s", i+1, argType, want)
		}
	}

	id.SetType(types.NewFunction(payload, enum.Type()))
	result := types.Substitute(enum.Type(), sub)
	a.callSubs[e] = sub
	return result
}

// analyzeMember types member access: inherent members first, then
// supertypes, then extension functions; ?. propagates nullability; module
// members resolve through export sets.
func (a *Analyzer) analyzeMember(e *ast.MemberExpression) types.Type {
	// Module-qualified access: M.x or M::x.
	if id, ok := e.Object.(*ast.Identifier); ok {
		if sym := a.scope.Resolve(id.Value); sym != nil && sym.Kind == ModuleSymbol {
			id.SetType(types.VOID)
			return a.analyzeModuleMember(e, id.Value)
		}
		// Enum member access: Color.Red.
		if enum, ok := a.enums[id.Value]; ok {
			id.SetType(enum.Type())
			return a.analyzeEnumMember(e, enum)
		}
	}

	recvType := a.analyzeExpression(e.Object)
	if recvType == nil || types.IsError(recvType) {
		return types.ERROR
	}

	if e.Safe {
		if !types.IsNullable(recvType) {
			a.reporter.Reportf(report.T027NullableDeref, e.Pos(), report.Warning,
				"?. on non-nullable receiver of type %s", recvType)
		}
		inner := a.lookupMember(types.StripNullable(recvType), e.Member, e)
		if inner == nil {
			return types.ERROR
		}
		return types.NewNullable(inner)
	}

	if types.IsNullable(recvType) {
		a.reporter.Reportf(report.T027NullableDeref, e.Pos(), report.Error,
			"cannot access member %q on nullable type %s without ?. or !", e.Member, recvType)
		return types.ERROR
	}

	t := a.lookupMember(recvType, e.Member, e)
	if t == nil {
		return types.ERROR
	}
	return t
}

// lookupMember searches the receiver's declared type, its supertypes, and
// finally the extension registry. Reports T005 and returns nil on failure.
func (a *Analyzer) lookupMember(recvType types.Type, member string, e *ast.MemberExpression) types.Type {
	name, ok := typeName(recvType)
	if ok {
		var sub types.Substitution
		if g, isGeneric := recvType.(*types.GenericType); isGeneric {
			if info := a.classes[name]; info != nil && len(info.TypeParams) == len(g.Args) {
				sub = types.Substitution{}
				for i, p := range info.TypeParams {
					sub[p] = g.Args[i]
				}
			}
		}
		for info := a.classes[name]; info != nil; info = info.Super {
			if ft, found := info.Fields[member]; found {
				return types.Substitute(ft, sub)
			}
			if mt, found := info.Methods[member]; found {
				return types.Substitute(mt, sub).(*types.FunctionType)
			}
		}
		if trait := a.traits[name]; trait != nil {
			if mt, found := trait.Signatures[member]; found {
				return mt
			}
		}
	}

	// Strict fallback: extensions on the static type.
	if ext := a.extensions.Lookup(recvType, member); ext != nil {
		return ext.Type
	}

	a.reporter.Reportf(report.T005UndefinedMember, e.Pos(), report.Error,
		"type %s has no member %q", recvType, member)
	return nil
}

// lookupMethod finds a method on a class or its supertypes.
func (a *Analyzer) lookupMethod(info *ClassInfo, name string) (*types.FunctionType, bool) {
	for ; info != nil; info = info.Super {
		if ft, ok := info.Methods[name]; ok {
			return ft, true
		}
	}
	return nil, false
}

func (a *Analyzer) analyzeModuleMember(e *ast.MemberExpression, moduleName string) types.Type {
	if a.loader == nil {
		return types.ERROR
	}
	rec := a.loader.Table(moduleName)
	if rec == nil {
		return types.ERROR
	}
	if _, exported := rec.Exports[e.Member]; !exported {
		a.reporter.Reportf(report.T005UndefinedMember, e.Pos(), report.Error,
			"module %q does not export %q", moduleName, e.Member)
		return types.ERROR
	}
	if depScope := a.moduleScopes[moduleName]; depScope != nil {
		if sym := depScope.ResolveLocal(e.Member); sym != nil {
			return sym.Type
		}
	}
	return types.ERROR
}

func (a *Analyzer) analyzeEnumMember(e *ast.MemberExpression, enum *EnumInfo) types.Type {
	payload, ok := enum.Variants[e.Member]
	if !ok {
		a.reporter.Reportf(report.T005UndefinedMember, e.Pos(), report.Error,
			"enum %s has no variant %q", enum.Name, e.Member)
		return types.ERROR
	}
	if len(payload) == 0 {
		return enum.Type()
	}
	return types.NewFunction(payload, enum.Type())
}

func (a *Analyzer) analyzeIndex(e *ast.IndexExpression) types.Type {
	objType := a.analyzeExpression(e.Object)
	idxType := a.analyzeExpression(e.Index)
	if types.IsError(objType) {
		return types.ERROR
	}

	if elem := types.ListElem(objType); elem != nil {
		if idxType != types.INT && !types.IsError(idxType) {
			a.reporter.Reportf(report.T001TypeMismatch, e.Index.Pos(), report.Error,
				"list index has type %s, expected int", idxType)
		}
		return elem
	}
	if g, ok := objType.(*types.GenericType); ok && g.Name == types.MapName && len(g.Args) == 2 {
		if !a.assignable(idxType, g.Args[0]) && !types.IsError(idxType) {
			a.reporter.Reportf(report.T001TypeMismatch, e.Index.Pos(), report.Error,
				"map key has type %s, expected %s", idxType, g.Args[0])
		}
		return g.Args[1]
	}
	if b, ok := objType.(*types.BasicType); ok && b.Kind() == types.KindString {
		if idxType != types.INT && !types.IsError(idxType) {
			a.reporter.Reportf(report.T001TypeMismatch, e.Index.Pos(), report.Error,
				"string index has type %s, expected int", idxType)
		}
		return types.STRING
	}

	a.reporter.Reportf(report.T006InvalidOperator, e.Pos(), report.Error,
		"type %s is not indexable", objType)
	return types.ERROR
}

// analyzeListLiteral unifies element types; an empty literal takes its type
// from context or reports T009.
func (a *Analyzer) analyzeListLiteral(e *ast.ListLiteral, expected types.Type) types.Type {
	if len(e.Elements) == 0 {
		if expected != nil {
			if elem := types.ListElem(expected); elem != nil {
				return expected
			}
		}
		a.reporter.Report(report.T009UntypedLiteral,
			"empty list literal requires a type annotation", e.Pos(), report.Error)
		return types.ERROR
	}

	var expectedElem types.Type
	if expected != nil {
		expectedElem = types.ListElem(expected)
	}
	elem := a.analyzeExpressionExpect(e.Elements[0], expectedElem)
	for _, el := range e.Elements[1:] {
		t := a.analyzeExpressionExpect(el, elem)
		if t == nil || types.IsError(t) {
			continue
		}
		switch {
		case a.assignable(t, elem):
		case a.assignable(elem, t):
			elem = t
		default:
			a.reporter.Reportf(report.T001TypeMismatch, el.Pos(), report.Error,
				"list element has type %s, expected %s", t, elem)
		}
	}
	return types.NewList(elem)
}

func (a *Analyzer) analyzeMapLiteral(e *ast.MapLiteral, expected types.Type) types.Type {
	if len(e.Keys) == 0 {
		if g, ok := expected.(*types.GenericType); ok && g.Name == types.MapName {
			return expected
		}
		a.reporter.Report(report.T009UntypedLiteral,
			"empty map literal requires a type annotation", e.Pos(), report.Error)
		return types.ERROR
	}

	key := a.analyzeExpression(e.Keys[0])
	val := a.analyzeExpression(e.Values[0])
	for i := 1; i < len(e.Keys); i++ {
		kt := a.analyzeExpressionExpect(e.Keys[i], key)
		vt := a.analyzeExpressionExpect(e.Values[i], val)
		if kt != nil && !types.IsError(kt) && !a.assignable(kt, key) {
			a.reporter.Reportf(report.T001TypeMismatch, e.Keys[i].Pos(), report.Error,
				"map key has type %s, expected %s", kt, key)
		}
		if vt != nil && !types.IsError(vt) && !a.assignable(vt, val) {
			a.reporter.Reportf(report.T001TypeMismatch, e.Values[i].Pos(), report.Error,
				"map value has type %s, expected %s", vt, val)
		}
	}
	return types.NewMap(key, val)
}

// analyzeLambda infers parameter types from context when absent; the body's
// synthesized type becomes the return type.
func (a *Analyzer) analyzeLambda(e *ast.LambdaExpression, expected types.Type) types.Type {
	var expectedFn *types.FunctionType
	if ft, ok := expected.(*types.FunctionType); ok {
		expectedFn = ft
	}

	a.pushScope()
	var params []types.Type
	for i, p := range e.Params {
		var t types.Type
		if p.TypeAnn != nil {
			t = a.resolveTypeExpr(p.TypeAnn)
		} else if expectedFn != nil && i < len(expectedFn.Params) {
			t = expectedFn.Params[i]
		} else {
			a.reporter.Reportf(report.T001TypeMismatch, p.Token.Pos, report.Error,
				"lambda parameter %q needs a type annotation here", p.Name)
			t = types.ERROR
		}
		params = append(params, t)
		if !a.scope.Declare(&SymbolInfo{Name: p.Name, Kind: VarSymbol, Type: t, Mutable: true, Decl: e}) {
			a.declareDuplicate(p.Name, p.Token.Pos)
		}
	}

	var declaredRet types.Type
	if e.ReturnAnn != nil {
		declaredRet = a.resolveTypeExpr(e.ReturnAnn)
	} else if expectedFn != nil {
		declaredRet = expectedFn.Return
	}

	savedReturn, savedAsync := a.currentReturn, a.inAsync
	a.currentReturn = declaredRet
	if declaredRet == nil {
		a.currentReturn = types.ERROR // placeholder; inferred below
	}
	a.inAsync = false

	inferred := a.analyzeLambdaBody(e.Body, declaredRet)

	a.currentReturn, a.inAsync = savedReturn, savedAsync
	a.popScope()

	ret := declaredRet
	if ret == nil {
		ret = inferred
	}
	if ret == nil {
		ret = types.VOID
	}
	return types.NewFunction(params, ret)
}

// analyzeLambdaBody checks the body and synthesizes a return type from its
// return statements (or the trailing expression of a single-expression
// body).
func (a *Analyzer) analyzeLambdaBody(body *ast.BlockStatement, declared types.Type) types.Type {
	if body == nil {
		return types.VOID
	}
	// Single-expression body: `lambda (x: int): x * 2`.
	if len(body.Statements) == 1 {
		if rs, ok := body.Statements[0].(*ast.ReturnStatement); ok && rs.Value != nil {
			t := a.analyzeExpressionExpect(rs.Value, declared)
			if declared != nil && t != nil && !a.assignable(t, declared) {
				a.reporter.Reportf(report.T001TypeMismatch, rs.Value.Pos(), report.Error,
					"lambda body has type %s, expected %s", t, declared)
			}
			return t
		}
	}

	var inferred types.Type
	for _, stmt := range body.Statements {
		if rs, ok := stmt.(*ast.ReturnStatement); ok && rs.Value != nil {
			t := a.analyzeExpressionExpect(rs.Value, declared)
			if inferred == nil {
				inferred = t
			}
			continue
		}
		a.analyzeStatement(stmt)
	}
	if inferred == nil {
		inferred = types.VOID
	}
	return inferred
}

func (a *Analyzer) analyzeAwait(e *ast.AwaitExpression) types.Type {
	if !a.inAsync {
		a.reporter.Report(report.T026AwaitOutsideAsync,
			"await is only allowed inside async functions", e.Pos(), report.Error)
	}
	t := a.analyzeExpression(e.Operand)
	if types.IsError(t) {
		return types.ERROR
	}
	if inner := types.FutureValue(t); inner != nil {
		return inner
	}
	a.reporter.Reportf(report.T001TypeMismatch, e.Operand.Pos(), report.Error,
		"await requires a Future, got %s", t)
	return types.ERROR
}

// analyzeNew checks heap allocation with constructor call. A class with an
// `init` method uses its signature; otherwise struct fields are positional
// constructor parameters.
func (a *Analyzer) analyzeNew(e *ast.NewExpression) types.Type {
	t := a.resolveTypeExpr(e.TypeAnn)
	if types.IsError(t) {
		for _, arg := range e.Args {
			a.analyzeExpression(arg)
		}
		return types.ERROR
	}

	// Channel allocation: new Chan<T>().
	if elem := types.ChanElem(t); elem != nil {
		if len(e.Args) != 0 {
			a.reporter.Report(report.T007ArgumentCount,
				"channel constructor takes no arguments", e.Pos(), report.Error)
		}
		return t
	}

	name, ok := typeName(t)
	if !ok {
		a.reporter.Reportf(report.T001TypeMismatch, e.Pos(), report.Error,
			"cannot allocate values of type %s with new", t)
		return types.ERROR
	}
	info := a.classes[name]
	if info == nil {
		a.reporter.Reportf(report.T004UndefinedType, e.Pos(), report.Error,
			"unknown class %q", name)
		return types.ERROR
	}

	var sub types.Substitution
	if g, isGeneric := t.(*types.GenericType); isGeneric && len(info.TypeParams) == len(g.Args) {
		sub = types.Substitution{}
		for i, p := range info.TypeParams {
			sub[p] = g.Args[i]
		}
	}

	var ctorParams []types.Type
	if initFt, hasInit := a.lookupMethod(info, "init"); hasInit {
		ctorParams = initFt.Params
	} else {
		for _, fname := range info.FieldOrder {
			ctorParams = append(ctorParams, info.Fields[fname])
		}
		if len(e.Args) == 0 {
			return t // default construction
		}
	}

	if len(e.Args) != len(ctorParams) {
		a.reporter.Reportf(report.T007ArgumentCount, e.Pos(), report.Error,
			"constructor of %s expects %d arguments, got %d", name, len(ctorParams), len(e.Args))
	}
	n := len(e.Args)
	if len(ctorParams) < n {
		n = len(ctorParams)
	}
	for i := 0; i < n; i++ {
		want := types.Substitute(ctorParams[i], sub)
		argType := a.analyzeExpressionExpect(e.Args[i], want)
		if argType != nil && !a.assignable(argType, want) && !types.IsError(argType) {
			a.reporter.Reportf(report.T001TypeMismatch, e.Args[i].Pos(), report.Error,
				"constructor argument %d has type %s, expected %s", i+1, argType, want)
		}
	}
	return t
}

func (a *Analyzer) analyzeDelete(e *ast.DeleteExpression) types.Type {
	t := a.analyzeExpression(e.Operand)
	if t != nil && !types.IsError(t) {
		if _, ok := typeName(types.StripNullable(t)); !ok {
			a.reporter.Reportf(report.T001TypeMismatch, e.Pos(), report.Error,
				"delete requires a class instance, got %s", t)
		}
	}
	return types.VOID
}

func (a *Analyzer) analyzeInterpolation(e *ast.InterpolationExpression) types.Type {
	for _, part := range e.Parts {
		t := a.analyzeExpression(part)
		if t != nil && !types.StringConvertible(t) {
			a.reporter.Reportf(report.T001TypeMismatch, part.Pos(), report.Error,
				"value of type %s is not convertible to string", t)
		}
	}
	return types.STRING
}

func (a *Analyzer) analyzeNotNull(e *ast.NotNullExpression) types.Type {
	t := a.analyzeExpression(e.Operand)
	if types.IsError(t) {
		return types.ERROR
	}
	if !types.IsNullable(t) {
		a.reporter.Reportf(report.T027NullableDeref, e.Pos(), report.Warning,
			"! applied to non-nullable type %s", t)
		return t
	}
	return types.StripNullable(t)
}

// analyzeElvis types `a ?: b`: the result is the non-null left type unified
// with the right.
func (a *Analyzer) analyzeElvis(e *ast.ElvisExpression) types.Type {
	lt := a.analyzeExpression(e.Left)
	base := types.StripNullable(lt)
	rt := a.analyzeExpressionExpect(e.Right, base)
	if types.IsError(lt) || types.IsError(rt) {
		return types.ERROR
	}
	if !types.IsNullable(lt) {
		a.reporter.Reportf(report.T027NullableDeref, e.Pos(), report.Warning,
			"?: on non-nullable type %s", lt)
	}
	if lt == types.NIL {
		return rt
	}
	switch {
	case a.assignable(rt, base):
		return base
	case a.assignable(base, rt):
		return rt
	}
	a.reporter.Reportf(report.T001TypeMismatch, e.Right.Pos(), report.Error,
		"?: alternatives have incompatible types %s and %s", base, rt)
	return types.ERROR
}

func (a *Analyzer) analyzeMove(e *ast.MoveExpression) types.Type {
	t := a.analyzeExpression(e.Operand)
	if types.IsError(t) {
		return types.ERROR
	}
	if sym := a.canBeMovedFrom(e.Operand, t, e.Pos()); sym != nil {
		a.recordMove(sym, e.Pos())
	}
	return t
}

func (a *Analyzer) analyzeChannelSend(e *ast.ChannelSendExpression) types.Type {
	chType := a.analyzeExpression(e.Channel)
	valType := a.analyzeExpression(e.Value)
	elem := types.ChanElem(chType)
	if elem == nil {
		if !types.IsError(chType) {
			a.reporter.Reportf(report.T001TypeMismatch, e.Channel.Pos(), report.Error,
				"send requires a channel, got %s", chType)
		}
		return types.VOID
	}
	if valType != nil && !a.assignable(valType, elem) && !types.IsError(valType) {
		a.reporter.Reportf(report.T001TypeMismatch, e.Value.Pos(), report.Error,
			"cannot send %s on a channel of %s", valType, elem)
	}
	return types.VOID
}

func (a *Analyzer) analyzeChannelReceive(e *ast.ChannelReceiveExpression) types.Type {
	chType := a.analyzeExpression(e.Channel)
	elem := types.ChanElem(chType)
	if elem == nil {
		if !types.IsError(chType) {
			a.reporter.Reportf(report.T001TypeMismatch, e.Channel.Pos(), report.Error,
				"receive requires a channel, got %s", chType)
		}
		return types.ERROR
	}
	return elem
}

func (a *Analyzer) analyzeRange(e *ast.RangeExpression) types.Type {
	lt := a.analyzeExpression(e.Low)
	ht := a.analyzeExpression(e.High)
	for _, pair := range []struct {
		t    types.Type
		node ast.Expression
	}{{lt, e.Low}, {ht, e.High}} {
		if pair.t != nil && pair.t != types.INT && !types.IsError(pair.t) {
			a.reporter.Reportf(report.T001TypeMismatch, pair.node.Pos(), report.Error,
				"range endpoint has type %s, expected int", pair.t)
		}
	}
	return types.NewGeneric("Range", types.INT)
}
