package irgen

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/ir"
	"github.com/tocinlang/tocin/internal/semantic"
	"github.com/tocinlang/tocin/internal/types"
)

// binding is one name produced by a pattern test.
type binding struct {
	name    string
	value   ir.Value
	irType  ir.Type
	srcType types.Type
}

// lowerMatch lowers a match: the scrutinee is evaluated once into a stack
// slot; each arm gets a test block branching to its body on success or to
// the next arm on failure. The trailing unmatched block ends in an
// unreachable terminator: the checker guarantees exhaustiveness, so it is
// never reached at run time.
//
// resultStore, when non-nil, receives each arm's value (match expression
// form).
func (g *Generator) lowerMatch(scrutinee ast.Expression, arms []*ast.MatchArm, resultStore ir.Value) {
	scrutVal := g.lowerExpression(scrutinee)
	if scrutVal == nil {
		return
	}
	scrutT := scrutVal.Type()
	slotAddr := g.emitAlloca(scrutT)
	g.emitStore(scrutVal, slotAddr)

	mergeB := g.fn.NewBlock("match.merge")

	for _, arm := range arms {
		bodyB := g.fn.NewBlock("arm.body")
		nextB := g.fn.NewBlock("arm.next")

		scrut := g.emitLoad(scrutT, slotAddr)
		cond, bindings := g.patternTest(arm.Pattern, scrut, scrutinee.Type())
		if arm.Guard != nil {
			// Bindings must be visible to the guard; materialize them
			// before evaluating it.
			g.pushScope()
			g.bindPatternResults(bindings)
			guard := g.lowerCondition(arm.Guard)
			g.popScope()
			cond = g.emit(&ir.Instr{Op: ir.OpAnd, Typ: ir.I1Type, Args: []ir.Value{cond, guard}})
		}
		if !g.bb.Terminated() {
			g.bb.Term = &ir.CondBr{Cond: cond, Then: bodyB.BlockName, Else: nextB.BlockName}
		}

		g.bb = bodyB
		g.pushScope()
		g.bindPatternResults(bindings)
		if arm.Body != nil {
			for _, stmt := range arm.Body.Statements {
				g.lowerStatement(stmt)
			}
		}
		if arm.Value != nil && resultStore != nil {
			if v := g.lowerExpression(arm.Value); v != nil {
				g.emitStore(v, resultStore)
			}
		}
		g.popScope()
		if !g.bb.Terminated() {
			g.bb.Term = &ir.Br{Dest: mergeB.BlockName}
		}
		g.bb = nextB
	}

	// Unmatched: cannot happen on a checked program.
	if !g.bb.Terminated() {
		g.bb.Term = &ir.Unreachable{}
	}
	g.bb = mergeB
}

// lowerMatchExpression lowers a match in value position through a result
// slot.
func (g *Generator) lowerMatchExpression(e *ast.MatchExpression) ir.Value {
	resT := exprIRType(e)
	if resT.Kind == ir.Void {
		g.lowerMatch(e.Scrutinee, e.Arms, nil)
		return nil
	}
	resultAddr := g.emitAlloca(resT)
	g.emitStore(zeroValue(resT), resultAddr)
	g.lowerMatch(e.Scrutinee, e.Arms, resultAddr)
	return g.emitLoad(resT, resultAddr)
}

func (g *Generator) bindPatternResults(bindings []binding) {
	for _, b := range bindings {
		addr := g.emitAlloca(b.irType)
		g.emitStore(b.value, addr)
		g.declareSlot(b.name, addr, b.irType, b.srcType)
	}
}

// patternTest emits the test for one pattern against a scrutinee value,
// returning the i1 condition and the bindings the pattern produces.
func (g *Generator) patternTest(p ast.Pattern, scrut ir.Value, srcType types.Type) (ir.Value, []binding) {
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		return ir.BoolConst(true), nil

	case *ast.BindingPattern:
		if enum := g.enumOf(srcType); enum != nil {
			if payload, isVariant := enum.Variants[pat.Name]; isVariant && len(payload) == 0 {
				return g.tagTest(enum, pat.Name, scrut), nil
			}
		}
		return ir.BoolConst(true), []binding{{
			name: pat.Name, value: scrut, irType: scrut.Type(), srcType: srcType,
		}}

	case *ast.ConstructorPattern:
		return g.constructorTest(pat, scrut, srcType)

	case *ast.LiteralPattern:
		return g.literalTest(pat.Value, scrut), nil

	case *ast.OrPattern:
		lc, lb := g.patternTest(pat.Left, scrut, srcType)
		rc, _ := g.patternTest(pat.Right, scrut, srcType)
		cond := g.emit(&ir.Instr{Op: ir.OpOr, Typ: ir.I1Type, Args: []ir.Value{lc, rc}})
		return cond, lb

	case *ast.RangePattern:
		lo := g.lowerExpression(pat.Low)
		hi := g.lowerExpression(pat.High)
		if lo == nil || hi == nil {
			return ir.BoolConst(false), nil
		}
		op := ir.OpICmp
		if scrut.Type().IsFloat() {
			op = ir.OpFCmp
		}
		geLo := g.emit(&ir.Instr{Op: op, Typ: ir.I1Type, Cond: "ge", Args: []ir.Value{scrut, lo}})
		hiCond := "lt"
		if pat.Inclusive {
			hiCond = "le"
		}
		leHi := g.emit(&ir.Instr{Op: op, Typ: ir.I1Type, Cond: hiCond, Args: []ir.Value{scrut, hi}})
		return g.emit(&ir.Instr{Op: ir.OpAnd, Typ: ir.I1Type, Args: []ir.Value{geLo, leHi}}), nil

	case *ast.TypeTestPattern:
		// Under the opaque layout a type test is a non-null check; the
		// refined binding reuses the scrutinee value.
		cond := g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: "ne",
			Args: []ir.Value{scrut, ir.NullConst()}})
		var binds []binding
		if pat.Name != "_" {
			binds = append(binds, binding{name: pat.Name, value: scrut, irType: scrut.Type(), srcType: srcType})
		}
		return cond, binds

	case *ast.StructPattern:
		return g.structTest(pat, scrut)

	case *ast.TuplePattern:
		return ir.BoolConst(true), nil
	}
	return ir.BoolConst(false), nil
}

// constructorTest checks the variant tag and recurses into the payload.
func (g *Generator) constructorTest(pat *ast.ConstructorPattern, scrut ir.Value, srcType types.Type) (ir.Value, []binding) {
	enum := g.enumOf(srcType)
	if enum == nil {
		return ir.BoolConst(false), nil
	}
	cond := g.tagTest(enum, pat.Name, scrut)

	payload := enum.Variants[pat.Name]
	sub := enumSubstitution(srcType, enum)

	var binds []binding
	n := len(pat.Args)
	if len(payload) < n {
		n = len(payload)
	}
	fields := make([]ir.Type, len(payload)+1)
	fields[0] = ir.I32Type
	for i, pt := range payload {
		fields[i+1] = irType(types.Substitute(pt, sub))
	}
	st := ir.StructType(enum.Name, fields...)

	for i := 0; i < n; i++ {
		fieldSrc := types.Substitute(payload[i], sub)
		fieldT := irType(fieldSrc)
		addr := g.emitFieldAddr(scrut, st, i+1)
		val := g.emitLoad(fieldT, addr)
		subCond, subBinds := g.patternTest(pat.Args[i], val, fieldSrc)
		cond = g.emit(&ir.Instr{Op: ir.OpAnd, Typ: ir.I1Type, Args: []ir.Value{cond, subCond}})
		binds = append(binds, subBinds...)
	}
	return cond, binds
}

// tagTest compares the enum tag field with a variant's index.
func (g *Generator) tagTest(enum *semantic.EnumInfo, variant string, scrut ir.Value) ir.Value {
	st := ir.StructType(enum.Name, ir.I32Type)
	tagAddr := g.emitFieldAddr(scrut, st, 0)
	tag := g.emitLoad(ir.I32Type, tagAddr)
	return g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: "eq",
		Args: []ir.Value{tag, ir.I32Const(int64(variantTag(enum, variant)))}})
}

func (g *Generator) literalTest(lit ast.Expression, scrut ir.Value) ir.Value {
	val := g.lowerExpression(lit)
	if val == nil {
		return ir.BoolConst(false)
	}
	t := scrut.Type()
	switch {
	case t.IsFloat():
		return g.emit(&ir.Instr{Op: ir.OpFCmp, Typ: ir.I1Type, Cond: "eq",
			Args: []ir.Value{scrut, val}})
	case t.Kind == ir.Ptr:
		if _, isNil := lit.(*ast.NilLiteral); isNil {
			return g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: "eq",
				Args: []ir.Value{scrut, ir.NullConst()}})
		}
		g.mod.Extern("string_eq", []ir.Type{ir.PtrType, ir.PtrType}, ir.I1Type)
		return g.emitCall("string_eq", ir.I1Type, scrut, val)
	default:
		return g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: "eq",
			Args: []ir.Value{scrut, val}})
	}
}

// structTest decomposes a class value by field.
func (g *Generator) structTest(pat *ast.StructPattern, scrut ir.Value) (ir.Value, []binding) {
	info := g.sema.Class(pat.Name)
	if info == nil {
		return ir.BoolConst(false), nil
	}
	st := g.classStruct(info)
	var cond ir.Value = g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: "ne",
		Args: []ir.Value{scrut, ir.NullConst()}})
	var binds []binding

	for _, f := range pat.Fields {
		idx := -1
		for i, name := range info.FieldOrder {
			if name == f.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		fieldSrc := info.Fields[f.Name]
		fieldT := irType(fieldSrc)
		addr := g.emitFieldAddr(scrut, st, idx)
		val := g.emitLoad(fieldT, addr)
		subCond, subBinds := g.patternTest(f.Pattern, val, fieldSrc)
		cond = g.emit(&ir.Instr{Op: ir.OpAnd, Typ: ir.I1Type, Args: []ir.Value{cond, subCond}})
		binds = append(binds, subBinds...)
	}
	return cond, binds
}

// enumOf resolves the enum record behind a scrutinee type.
func (g *Generator) enumOf(t types.Type) *semantic.EnumInfo {
	name, ok := receiverTypeName(t)
	if !ok {
		return nil
	}
	return g.sema.Enum(name)
}

func enumSubstitution(t types.Type, enum *semantic.EnumInfo) types.Substitution {
	gt, ok := types.StripNullable(t).(*types.GenericType)
	if !ok || len(enum.TypeParams) != len(gt.Args) {
		return nil
	}
	sub := types.Substitution{}
	for i, p := range enum.TypeParams {
		sub[p] = gt.Args[i]
	}
	return sub
}

// variantTag is a variant's stable index within its enum declaration.
func variantTag(enum *semantic.EnumInfo, variant string) int {
	for i, name := range enum.VariantOrder {
		if name == variant {
			return i
		}
	}
	return -1
}
