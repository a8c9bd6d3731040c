package irgen

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/ir"
	"github.com/tocinlang/tocin/internal/semantic"
	"github.com/tocinlang/tocin/internal/types"
)

// lowerExpression reduces an expression to an IR value. Void expressions
// and failed lowerings return nil.
func (g *Generator) lowerExpression(expr ast.Expression) ir.Value {
	if g.failed || expr == nil {
		return nil
	}
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return ir.IntConst(e.Value)
	case *ast.FloatLiteral:
		t := ir.F64Type
		if e.Is32 {
			t = ir.F32Type
		}
		return ir.FloatConst(t, e.Value)
	case *ast.BooleanLiteral:
		return ir.BoolConst(e.Value)
	case *ast.StringLiteral:
		return g.stringGlobal(e.Value)
	case *ast.NilLiteral:
		return ir.NullConst()
	case *ast.BadExpression:
		return nil
	case *ast.Identifier:
		return g.lowerIdentifier(e)
	case *ast.SelfExpression:
		if s := g.lookupSlot("self"); s != nil {
			return g.emitLoad(ir.PtrType, s.addr)
		}
		return ir.NullConst()
	case *ast.GroupedExpression:
		return g.lowerExpression(e.Inner)
	case *ast.UnaryExpression:
		return g.lowerUnary(e)
	case *ast.BinaryExpression:
		return g.lowerBinary(e)
	case *ast.LogicalExpression:
		return g.lowerLogical(e)
	case *ast.AssignExpression:
		return g.lowerAssign(e)
	case *ast.CallExpression:
		return g.lowerCall(e)
	case *ast.MemberExpression:
		return g.lowerMember(e)
	case *ast.IndexExpression:
		return g.lowerIndex(e)
	case *ast.ListLiteral:
		return g.lowerListLiteral(e)
	case *ast.MapLiteral:
		return g.lowerMapLiteral(e)
	case *ast.LambdaExpression:
		return g.lowerLambda(e)
	case *ast.AwaitExpression:
		return g.lowerAwait(e)
	case *ast.NewExpression:
		return g.lowerNew(e)
	case *ast.DeleteExpression:
		ptr := g.lowerExpression(e.Operand)
		if ptr != nil {
			g.emit(&ir.Instr{Op: ir.OpFree, Typ: ir.VoidType, Args: []ir.Value{ptr}})
		}
		return nil
	case *ast.InterpolationExpression:
		return g.lowerInterpolation(e)
	case *ast.NotNullExpression:
		return g.lowerNotNull(e)
	case *ast.ElvisExpression:
		return g.lowerElvis(e)
	case *ast.MoveExpression:
		return g.lowerExpression(e.Operand)
	case *ast.ChannelSendExpression:
		g.lowerChannelSend(e)
		return nil
	case *ast.ChannelReceiveExpression:
		return g.lowerChannelReceive(e)
	case *ast.RangeExpression:
		// Ranges only appear in for-in headers and patterns; a first-class
		// range value is a (lo, hi) pair on the heap.
		pair := g.emitMalloc(16)
		s := ir.StructType("range", ir.I64Type, ir.I64Type)
		lo := g.lowerExpression(e.Low)
		hi := g.lowerExpression(e.High)
		if lo != nil {
			g.emitStore(lo, g.emitFieldAddr(pair, s, 0))
		}
		if hi != nil {
			g.emitStore(hi, g.emitFieldAddr(pair, s, 1))
		}
		return pair
	case *ast.MatchExpression:
		return g.lowerMatchExpression(e)
	}
	g.fail(expr.Pos(), "unhandled expression %T", expr)
	return nil
}

func (g *Generator) lowerIdentifier(e *ast.Identifier) ir.Value {
	if s := g.lookupSlot(e.Value); s != nil {
		return g.emitLoad(s.irType, s.addr)
	}
	// Nullary enum variant in value position allocates the tagged value.
	if enum := g.sema.VariantOwner(e.Value); enum != nil {
		if len(enum.Variants[e.Value]) == 0 {
			return g.allocVariant(enum, e.Value, nil)
		}
	}
	// A module-level function referenced as a value.
	return &ir.Const{Typ: ir.PtrType, Lit: "@" + e.Value}
}

// allocVariant heap-allocates an enum value {i32 tag, payload...}.
func (g *Generator) allocVariant(enum *semantic.EnumInfo, variant string, payload []ir.Value) ir.Value {
	tag := variantTag(enum, variant)
	box := g.emitMalloc(structSize(len(payload) + 1))
	fields := make([]ir.Type, len(payload)+1)
	fields[0] = ir.I32Type
	for i, v := range payload {
		fields[i+1] = v.Type()
	}
	st := ir.StructType(enum.Name, fields...)
	g.emitStore(ir.I32Const(int64(tag)), g.emitFieldAddr(box, st, 0))
	for i, v := range payload {
		g.emitStore(v, g.emitFieldAddr(box, st, i+1))
	}
	return box
}

func (g *Generator) lowerUnary(e *ast.UnaryExpression) ir.Value {
	switch e.Operator {
	case "-":
		val := g.lowerExpression(e.Operand)
		if val == nil {
			return nil
		}
		return g.emit(&ir.Instr{Op: ir.OpNeg, Typ: val.Type(), Args: []ir.Value{val}})
	case "!":
		cond := g.lowerCondition(e.Operand)
		return g.emit(&ir.Instr{Op: ir.OpNot, Typ: ir.I1Type, Args: []ir.Value{cond}})
	case "~":
		val := g.lowerExpression(e.Operand)
		if val == nil {
			return nil
		}
		return g.emit(&ir.Instr{Op: ir.OpXor, Typ: ir.I64Type,
			Args: []ir.Value{val, ir.IntConst(-1)}})
	case "++", "--":
		return g.lowerIncDec(e)
	}
	g.fail(e.Pos(), "unhandled unary operator %q", e.Operator)
	return nil
}

// lowerIncDec updates the operand in place. Prefix yields the new value,
// postfix the old one.
func (g *Generator) lowerIncDec(e *ast.UnaryExpression) ir.Value {
	id, ok := e.Operand.(*ast.Identifier)
	if !ok {
		g.fail(e.Pos(), "%s requires a variable operand", e.Operator)
		return nil
	}
	s := g.lookupSlot(id.Value)
	if s == nil {
		return nil
	}
	old := g.emitLoad(s.irType, s.addr)
	op := ir.OpAdd
	if e.Operator == "--" {
		op = ir.OpSub
	}
	if s.irType.IsFloat() {
		if op == ir.OpAdd {
			op = ir.OpFAdd
		} else {
			op = ir.OpFSub
		}
	}
	one := ir.IntConst(1)
	if s.irType.IsFloat() {
		one = ir.FloatConst(s.irType, 1)
	}
	updated := g.emit(&ir.Instr{Op: op, Typ: s.irType, Args: []ir.Value{old, one}})
	g.emitStore(updated, s.addr)
	if e.Postfix {
		return old
	}
	return updated
}

func (g *Generator) lowerBinary(e *ast.BinaryExpression) ir.Value {
	switch e.Operator {
	case "as":
		return g.lowerCast(e)
	case "is", "instanceof":
		// The checker proved the test well-formed; at runtime a reference
		// test degenerates to a non-null check under the opaque layout.
		val := g.lowerExpression(e.Left)
		if val == nil {
			return ir.BoolConst(false)
		}
		if val.Type().Kind != ir.Ptr {
			return ir.BoolConst(true)
		}
		return g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: "ne",
			Args: []ir.Value{val, ir.NullConst()}})
	}

	left := g.lowerExpression(e.Left)
	right := g.lowerExpression(e.Right)
	if left == nil || right == nil {
		return nil
	}
	left, right = g.promotePair(left, right)
	t := left.Type()

	switch e.Operator {
	case "+":
		if t.Kind == ir.Ptr {
			return g.emitCall("string_concat", ir.PtrType, left, right)
		}
		return g.arith(ir.OpAdd, ir.OpFAdd, t, left, right)
	case "-":
		return g.arith(ir.OpSub, ir.OpFSub, t, left, right)
	case "*":
		return g.arith(ir.OpMul, ir.OpFMul, t, left, right)
	case "/":
		return g.arith(ir.OpDiv, ir.OpFDiv, t, left, right)
	case "%":
		return g.emit(&ir.Instr{Op: ir.OpRem, Typ: t, Args: []ir.Value{left, right}})
	case "**":
		return g.emit(&ir.Instr{Op: ir.OpPow, Typ: t, Args: []ir.Value{left, right}})
	case "<", "<=", ">", ">=", "==", "!=", "===", "!==":
		return g.compare(e.Operator, t, left, right)
	case "&":
		return g.emit(&ir.Instr{Op: ir.OpAnd, Typ: t, Args: []ir.Value{left, right}})
	case "|":
		return g.emit(&ir.Instr{Op: ir.OpOr, Typ: t, Args: []ir.Value{left, right}})
	case "^":
		return g.emit(&ir.Instr{Op: ir.OpXor, Typ: t, Args: []ir.Value{left, right}})
	case "<<":
		return g.emit(&ir.Instr{Op: ir.OpShl, Typ: t, Args: []ir.Value{left, right}})
	case ">>":
		return g.emit(&ir.Instr{Op: ir.OpShr, Typ: t, Args: []ir.Value{left, right}})
	case "in":
		// Membership lowers to a runtime helper.
		g.mod.Extern("contains", []ir.Type{ir.PtrType, ir.PtrType}, ir.I1Type)
		return g.emitCall("contains", ir.I1Type, g.asPtr(right), g.asPtr(left))
	}
	g.fail(e.Pos(), "unhandled binary operator %q", e.Operator)
	return nil
}

// promotePair widens mixed int/float operand pairs.
func (g *Generator) promotePair(left, right ir.Value) (ir.Value, ir.Value) {
	lt, rt := left.Type(), right.Type()
	if lt.Kind == rt.Kind {
		return left, right
	}
	if lt.IsFloat() && rt.IsInt() {
		right = g.emit(&ir.Instr{Op: ir.OpIntToFP, Typ: lt, Args: []ir.Value{right}})
		return left, right
	}
	if lt.IsInt() && rt.IsFloat() {
		left = g.emit(&ir.Instr{Op: ir.OpIntToFP, Typ: rt, Args: []ir.Value{left}})
		return left, right
	}
	if lt.Kind == ir.F32 && rt.Kind == ir.F64 {
		left = g.emit(&ir.Instr{Op: ir.OpFPCast, Typ: ir.F64Type, Args: []ir.Value{left}})
		return left, right
	}
	if lt.Kind == ir.F64 && rt.Kind == ir.F32 {
		right = g.emit(&ir.Instr{Op: ir.OpFPCast, Typ: ir.F64Type, Args: []ir.Value{right}})
		return left, right
	}
	return left, right
}

func (g *Generator) arith(intOp, floatOp ir.Op, t ir.Type, left, right ir.Value) ir.Value {
	op := intOp
	if t.IsFloat() {
		op = floatOp
	}
	return g.emit(&ir.Instr{Op: op, Typ: t, Args: []ir.Value{left, right}})
}

func (g *Generator) compare(operator string, t ir.Type, left, right ir.Value) ir.Value {
	cond := map[string]string{
		"<": "lt", "<=": "le", ">": "gt", ">=": "ge",
		"==": "eq", "!=": "ne", "===": "eq", "!==": "ne",
	}[operator]
	op := ir.OpICmp
	if t.IsFloat() {
		op = ir.OpFCmp
	}
	return g.emit(&ir.Instr{Op: op, Typ: ir.I1Type, Cond: cond, Args: []ir.Value{left, right}})
}

// lowerCast emits the explicit int/float casts mandated by the type rules.
func (g *Generator) lowerCast(e *ast.BinaryExpression) ir.Value {
	val := g.lowerExpression(e.Left)
	if val == nil {
		return nil
	}
	target := irType(e.Type())
	from := val.Type()
	switch {
	case from.Kind == target.Kind:
		return val
	case from.IsInt() && target.IsFloat():
		return g.emit(&ir.Instr{Op: ir.OpIntToFP, Typ: target, Args: []ir.Value{val}})
	case from.IsFloat() && target.IsInt():
		return g.emit(&ir.Instr{Op: ir.OpFPToInt, Typ: target, Args: []ir.Value{val}})
	case from.IsInt() && target.IsInt():
		return g.emit(&ir.Instr{Op: ir.OpIntCast, Typ: target, Args: []ir.Value{val}})
	case from.IsFloat() && target.IsFloat():
		return g.emit(&ir.Instr{Op: ir.OpFPCast, Typ: target, Args: []ir.Value{val}})
	}
	return g.emitBitcast(val, target)
}

// lowerLogical short-circuits: the right operand only evaluates when
// needed, and a phi joins the two paths.
func (g *Generator) lowerLogical(e *ast.LogicalExpression) ir.Value {
	left := g.lowerCondition(e.Left)
	leftBlock := g.bb.BlockName

	rightB := g.fn.NewBlock("logic.rhs")
	mergeB := g.fn.NewBlock("logic.merge")

	if e.Operator == "&&" {
		g.bb.Term = &ir.CondBr{Cond: left, Then: rightB.BlockName, Else: mergeB.BlockName}
	} else {
		g.bb.Term = &ir.CondBr{Cond: left, Then: mergeB.BlockName, Else: rightB.BlockName}
	}

	g.bb = rightB
	right := g.lowerCondition(e.Right)
	rightBlock := g.bb.BlockName
	g.bb.Term = &ir.Br{Dest: mergeB.BlockName}

	g.bb = mergeB
	return g.emit(&ir.Instr{
		Op: ir.OpPhi, Typ: ir.I1Type,
		Args:      []ir.Value{left, right},
		PhiBlocks: []string{leftBlock, rightBlock},
	})
}

func (g *Generator) lowerAssign(e *ast.AssignExpression) ir.Value {
	addr, elemT := g.lowerAddress(e.Target)
	if addr == nil {
		return nil
	}

	if e.Operator == "=" {
		val := g.lowerExpression(e.Value)
		if val == nil {
			return nil
		}
		val = g.coerce(val, e.Value.Type(), e.Target.Type())
		g.emitStore(val, addr)
		return val
	}

	// Compound assignment: load, apply, store.
	old := g.emitLoad(elemT, addr)
	val := g.lowerExpression(e.Value)
	if val == nil {
		return nil
	}
	old, val = g.promotePair(old, val)
	var result ir.Value
	switch e.Operator {
	case "+=":
		if elemT.Kind == ir.Ptr {
			result = g.emitCall("string_concat", ir.PtrType, old, val)
		} else {
			result = g.arith(ir.OpAdd, ir.OpFAdd, old.Type(), old, val)
		}
	case "-=":
		result = g.arith(ir.OpSub, ir.OpFSub, old.Type(), old, val)
	case "*=":
		result = g.arith(ir.OpMul, ir.OpFMul, old.Type(), old, val)
	case "/=":
		result = g.arith(ir.OpDiv, ir.OpFDiv, old.Type(), old, val)
	case "%=":
		result = g.emit(&ir.Instr{Op: ir.OpRem, Typ: old.Type(), Args: []ir.Value{old, val}})
	case "**=":
		result = g.emit(&ir.Instr{Op: ir.OpPow, Typ: old.Type(), Args: []ir.Value{old, val}})
	case "&=":
		result = g.emit(&ir.Instr{Op: ir.OpAnd, Typ: old.Type(), Args: []ir.Value{old, val}})
	case "|=":
		result = g.emit(&ir.Instr{Op: ir.OpOr, Typ: old.Type(), Args: []ir.Value{old, val}})
	case "^=":
		result = g.emit(&ir.Instr{Op: ir.OpXor, Typ: old.Type(), Args: []ir.Value{old, val}})
	case "<<=":
		result = g.emit(&ir.Instr{Op: ir.OpShl, Typ: old.Type(), Args: []ir.Value{old, val}})
	case ">>=":
		result = g.emit(&ir.Instr{Op: ir.OpShr, Typ: old.Type(), Args: []ir.Value{old, val}})
	default:
		g.fail(e.Pos(), "unhandled compound assignment %q", e.Operator)
		return nil
	}
	g.emitStore(result, addr)
	return result
}

// lowerAddress computes the address and element type of an assignable
// location.
func (g *Generator) lowerAddress(target ast.Expression) (ir.Value, ir.Type) {
	switch t := target.(type) {
	case *ast.Identifier:
		if s := g.lookupSlot(t.Value); s != nil {
			return s.addr, s.irType
		}
		g.fail(t.Pos(), "no storage for %q", t.Value)
		return nil, ir.VoidType
	case *ast.MemberExpression:
		return g.lowerFieldAddress(t)
	case *ast.IndexExpression:
		obj := g.lowerExpression(t.Object)
		idx := g.lowerExpression(t.Index)
		if obj == nil || idx == nil {
			return nil, ir.VoidType
		}
		elemT := exprIRType(t)
		header := ir.StructType("list", ir.I64Type, ir.PtrType)
		dataAddr := g.emitFieldAddr(obj, header, 1)
		data := g.emitLoad(ir.PtrType, dataAddr)
		addr := g.emit(&ir.Instr{Op: ir.OpIndex, Typ: ir.PtrType, Elem: elemT,
			Args: []ir.Value{data, idx}})
		return addr, elemT
	}
	g.fail(target.Pos(), "unassignable target %T", target)
	return nil, ir.VoidType
}

// lowerFieldAddress resolves obj.field to a field address using the class
// layout recorded by the analyzer.
func (g *Generator) lowerFieldAddress(e *ast.MemberExpression) (ir.Value, ir.Type) {
	obj := g.lowerExpression(e.Object)
	if obj == nil {
		return nil, ir.VoidType
	}
	info, index, fieldType := g.fieldInfo(e)
	if info == nil {
		g.fail(e.Pos(), "no layout for member %q", e.Member)
		return nil, ir.VoidType
	}
	addr := g.emitFieldAddr(obj, g.classStruct(info), index)
	return addr, fieldType
}

func (g *Generator) lowerMember(e *ast.MemberExpression) ir.Value {
	// Enum variant via qualified name: Color.Red.
	if id, ok := e.Object.(*ast.Identifier); ok {
		if enum := g.sema.Enum(id.Value); enum != nil {
			if payload := enum.Variants[e.Member]; payload != nil && len(payload) == 0 {
				return g.allocVariant(enum, e.Member, nil)
			}
			return &ir.Const{Typ: ir.PtrType, Lit: "@" + id.Value + "_" + e.Member}
		}
	}

	if e.Safe {
		return g.lowerSafeMember(e)
	}

	info, index, fieldType := g.fieldInfo(e)
	if info != nil {
		obj := g.lowerExpression(e.Object)
		if obj == nil {
			return nil
		}
		addr := g.emitFieldAddr(obj, g.classStruct(info), index)
		return g.emitLoad(fieldType, addr)
	}

	// Method or extension referenced as a value: a code pointer.
	if recvName, ok := receiverTypeName(e.Object.Type()); ok {
		return &ir.Const{Typ: ir.PtrType, Lit: "@" + recvName + "_" + e.Member}
	}
	return &ir.Const{Typ: ir.PtrType, Lit: "@" + e.Member}
}

// lowerSafeMember lowers obj?.field: null receivers produce null without
// touching the field.
func (g *Generator) lowerSafeMember(e *ast.MemberExpression) ir.Value {
	obj := g.lowerExpression(e.Object)
	if obj == nil {
		return nil
	}
	entryBlock := g.bb.BlockName
	loadB := g.fn.NewBlock("safe.load")
	mergeB := g.fn.NewBlock("safe.merge")

	isNonNull := g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: "ne",
		Args: []ir.Value{obj, ir.NullConst()}})
	g.bb.Term = &ir.CondBr{Cond: isNonNull, Then: loadB.BlockName, Else: mergeB.BlockName}

	g.bb = loadB
	var loaded ir.Value = ir.NullConst()
	if info, index, fieldType := g.fieldInfo(e); info != nil {
		addr := g.emitFieldAddr(obj, g.classStruct(info), index)
		val := g.emitLoad(fieldType, addr)
		loaded = g.boxIfScalar(val)
	}
	loadBlock := g.bb.BlockName
	g.bb.Term = &ir.Br{Dest: mergeB.BlockName}

	g.bb = mergeB
	return g.emit(&ir.Instr{
		Op: ir.OpPhi, Typ: ir.PtrType,
		Args:      []ir.Value{ir.NullConst(), loaded},
		PhiBlocks: []string{entryBlock, loadBlock},
	})
}

// boxIfScalar boxes a scalar into a heap cell so it can flow through a
// nullable (pointer) result.
func (g *Generator) boxIfScalar(val ir.Value) ir.Value {
	if val.Type().Kind == ir.Ptr {
		return val
	}
	box := g.emitMalloc(sizeOf(val.Type()))
	g.emitStore(val, box)
	return box
}

// fieldInfo resolves a member access to (class, field index, field IR
// type), or nils for non-field members.
func (g *Generator) fieldInfo(e *ast.MemberExpression) (*semantic.ClassInfo, int, ir.Type) {
	recvType := e.Object.Type()
	name, ok := receiverTypeName(recvType)
	if !ok {
		return nil, 0, ir.VoidType
	}
	for info := g.sema.Class(name); info != nil; {
		for i, fname := range info.FieldOrder {
			if fname == e.Member {
				return info, i, irType(info.Fields[fname])
			}
		}
		info = info.Super
	}
	return nil, 0, ir.VoidType
}

func receiverTypeName(t types.Type) (string, bool) {
	switch tt := types.StripNullable(t).(type) {
	case *types.NamedType:
		return tt.Name, true
	case *types.GenericType:
		return tt.Name, true
	}
	return "", false
}

// classStruct renders a class layout as an IR struct type.
func (g *Generator) classStruct(info *semantic.ClassInfo) ir.Type {
	fields := make([]ir.Type, len(info.FieldOrder))
	for i, name := range info.FieldOrder {
		fields[i] = irType(info.Fields[name])
	}
	return ir.StructType(info.Name, fields...)
}

func (g *Generator) lowerIndex(e *ast.IndexExpression) ir.Value {
	obj := g.lowerExpression(e.Object)
	idx := g.lowerExpression(e.Index)
	if obj == nil || idx == nil {
		return nil
	}
	objType := e.Object.Type()

	// Maps go through the runtime; lists and strings use the element array.
	if gt, isMap := objType.(*types.GenericType); isMap && gt.Name == types.MapName {
		g.mod.Extern("map_get", []ir.Type{ir.PtrType, ir.PtrType}, ir.PtrType)
		return g.emitCall("map_get", ir.PtrType, obj, g.asPtr(idx))
	}

	elemT := exprIRType(e)
	header := ir.StructType("list", ir.I64Type, ir.PtrType)
	dataAddr := g.emitFieldAddr(obj, header, 1)
	data := g.emitLoad(ir.PtrType, dataAddr)
	addr := g.emit(&ir.Instr{Op: ir.OpIndex, Typ: ir.PtrType, Elem: elemT,
		Args: []ir.Value{data, idx}})
	return g.emitLoad(elemT, addr)
}

// asPtr boxes scalar values for runtime calls taking opaque pointers.
func (g *Generator) asPtr(v ir.Value) ir.Value {
	if v.Type().Kind == ir.Ptr {
		return v
	}
	return g.boxIfScalar(v)
}

// lowerListLiteral allocates the {len, data} header plus the element
// array.
func (g *Generator) lowerListLiteral(e *ast.ListLiteral) ir.Value {
	elemSrc := types.ListElem(e.Type())
	elemT := irType(elemSrc)

	header := ir.StructType("list", ir.I64Type, ir.PtrType)
	listPtr := g.emitMalloc(16)
	data := g.emitMalloc(int64(len(e.Elements)) * sizeOf(elemT))

	g.emitStore(ir.IntConst(int64(len(e.Elements))), g.emitFieldAddr(listPtr, header, 0))
	g.emitStore(data, g.emitFieldAddr(listPtr, header, 1))

	for i, el := range e.Elements {
		val := g.lowerExpression(el)
		if val == nil {
			continue
		}
		addr := g.emit(&ir.Instr{Op: ir.OpIndex, Typ: ir.PtrType, Elem: elemT,
			Args: []ir.Value{data, ir.IntConst(int64(i))}})
		g.emitStore(val, addr)
	}
	return listPtr
}

func (g *Generator) lowerMapLiteral(e *ast.MapLiteral) ir.Value {
	g.mod.Extern("map_create", nil, ir.PtrType)
	g.mod.Extern("map_set", []ir.Type{ir.PtrType, ir.PtrType, ir.PtrType}, ir.VoidType)
	m := g.emitCall("map_create", ir.PtrType)
	for i := range e.Keys {
		k := g.lowerExpression(e.Keys[i])
		v := g.lowerExpression(e.Values[i])
		if k == nil || v == nil {
			continue
		}
		g.emitCall("map_set", ir.VoidType, m, g.asPtr(k), g.asPtr(v))
	}
	return m
}

// lowerAwait suspends on a future: inside an async driver the next state
// is recorded first, then Future_get yields the boxed result; scalar
// results are unboxed.
func (g *Generator) lowerAwait(e *ast.AwaitExpression) ir.Value {
	fut := g.lowerExpression(e.Operand)
	if fut == nil {
		return nil
	}
	g.recordSuspension()
	raw := g.emitCall("Future_get", ir.PtrType, fut)
	resT := exprIRType(e)
	if resT.Kind == ir.Ptr || resT.Kind == ir.Void {
		return raw
	}
	return g.emitLoad(resT, raw)
}

// lowerNew emits malloc plus the constructor call.
func (g *Generator) lowerNew(e *ast.NewExpression) ir.Value {
	t := e.Type()

	// new Chan<T>() allocates a channel sized for its element.
	if elem := types.ChanElem(t); elem != nil {
		return g.emitCall("chan_create", ir.PtrType, ir.IntConst(sizeOf(irType(elem))))
	}

	name, ok := receiverTypeName(t)
	if !ok {
		g.fail(e.Pos(), "cannot allocate %s", t)
		return nil
	}
	info := g.sema.Class(name)
	if info == nil {
		g.fail(e.Pos(), "no layout for class %q", name)
		return nil
	}

	obj := g.emitMalloc(structSize(len(info.FieldOrder)))
	st := g.classStruct(info)

	// Zero-initialize fields.
	for i, fname := range info.FieldOrder {
		g.emitStore(zeroValue(irType(info.Fields[fname])), g.emitFieldAddr(obj, st, i))
	}

	var args []ir.Value
	for _, arg := range e.Args {
		if v := g.lowerExpression(arg); v != nil {
			args = append(args, v)
		}
	}

	if _, hasInit := info.MethodDecls["init"]; hasInit {
		g.emitCall(methodSymbol(info.Name, "init"), ir.VoidType,
			append([]ir.Value{obj}, args...)...)
		return obj
	}
	// Positional field construction.
	for i, v := range args {
		if i < len(info.FieldOrder) {
			g.emitStore(v, g.emitFieldAddr(obj, st, i))
		}
	}
	return obj
}

// lowerInterpolation folds template parts into a string_concat chain,
// converting non-string parts first.
func (g *Generator) lowerInterpolation(e *ast.InterpolationExpression) ir.Value {
	var acc ir.Value
	for _, part := range e.Parts {
		val := g.lowerExpression(part)
		if val == nil {
			continue
		}
		str := g.toStringValue(val, part.Type())
		if acc == nil {
			acc = str
			continue
		}
		acc = g.emitCall("string_concat", ir.PtrType, acc, str)
	}
	if acc == nil {
		return g.stringGlobal("")
	}
	return acc
}

// toStringValue converts a lowered value to a string pointer using the
// runtime conversion helpers.
func (g *Generator) toStringValue(val ir.Value, src types.Type) ir.Value {
	if src == types.STRING {
		return val
	}
	t := val.Type()
	switch {
	case t.Kind == ir.I64:
		return g.emitCall("int_to_string", ir.PtrType, val)
	case t.Kind == ir.I32:
		wide := g.emit(&ir.Instr{Op: ir.OpIntCast, Typ: ir.I64Type, Args: []ir.Value{val}})
		return g.emitCall("int_to_string", ir.PtrType, wide)
	case t.Kind == ir.I1:
		wide := g.emit(&ir.Instr{Op: ir.OpIntCast, Typ: ir.I64Type, Args: []ir.Value{val}})
		return g.emitCall("int_to_string", ir.PtrType, wide)
	case t.Kind == ir.F32:
		wide := g.emit(&ir.Instr{Op: ir.OpFPCast, Typ: ir.F64Type, Args: []ir.Value{val}})
		return g.emitCall("float_to_string", ir.PtrType, wide)
	case t.Kind == ir.F64:
		return g.emitCall("float_to_string", ir.PtrType, val)
	}
	return g.emitCall("to_string", ir.PtrType, val)
}

// lowerNotNull strips nullability: boxed scalars load their payload,
// pointer types pass through.
func (g *Generator) lowerNotNull(e *ast.NotNullExpression) ir.Value {
	val := g.lowerExpression(e.Operand)
	if val == nil {
		return nil
	}
	resT := exprIRType(e)
	if resT.Kind == ir.Ptr || resT.Kind == ir.Void || val.Type().Kind != ir.Ptr {
		return val
	}
	return g.emitLoad(resT, val)
}

// lowerElvis selects the left value when non-null, unboxing scalars, and
// otherwise the right.
func (g *Generator) lowerElvis(e *ast.ElvisExpression) ir.Value {
	left := g.lowerExpression(e.Left)
	if left == nil {
		return g.lowerExpression(e.Right)
	}
	resT := exprIRType(e)

	// A non-pointer left (non-null scalar with a ?: warning) is already
	// the answer.
	if left.Type().Kind != ir.Ptr {
		return left
	}

	unboxB := g.fn.NewBlock("elvis.some")
	elseB := g.fn.NewBlock("elvis.none")
	mergeB := g.fn.NewBlock("elvis.merge")

	isNonNull := g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: "ne",
		Args: []ir.Value{left, ir.NullConst()}})
	g.bb.Term = &ir.CondBr{Cond: isNonNull, Then: unboxB.BlockName, Else: elseB.BlockName}

	g.bb = unboxB
	var some ir.Value = left
	if resT.Kind != ir.Ptr && resT.Kind != ir.Void {
		some = g.emitLoad(resT, left)
	}
	someBlock := g.bb.BlockName
	g.bb.Term = &ir.Br{Dest: mergeB.BlockName}

	g.bb = elseB
	other := g.lowerExpression(e.Right)
	if other == nil {
		other = zeroValue(resT)
	}
	otherBlock := g.bb.BlockName
	g.bb.Term = &ir.Br{Dest: mergeB.BlockName}

	g.bb = mergeB
	return g.emit(&ir.Instr{
		Op: ir.OpPhi, Typ: resT,
		Args:      []ir.Value{some, other},
		PhiBlocks: []string{someBlock, otherBlock},
	})
}

// lowerChannelSend stores the value into a buffer and calls chan_send with
// its address.
func (g *Generator) lowerChannelSend(e *ast.ChannelSendExpression) {
	ch := g.lowerExpression(e.Channel)
	val := g.lowerExpression(e.Value)
	if ch == nil || val == nil {
		return
	}
	buf := g.emitAlloca(val.Type())
	g.emitStore(val, buf)
	g.emitCall("chan_send", ir.VoidType, ch, buf)
}

// lowerChannelReceive calls chan_recv into a buffer and loads the result.
func (g *Generator) lowerChannelReceive(e *ast.ChannelReceiveExpression) ir.Value {
	ch := g.lowerExpression(e.Channel)
	if ch == nil {
		return nil
	}
	elemT := exprIRType(e)
	buf := g.emitAlloca(elemT)
	g.emitCall("chan_recv", ir.VoidType, ch, buf)
	return g.emitLoad(elemT, buf)
}
