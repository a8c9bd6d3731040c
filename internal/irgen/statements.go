package irgen

import (
	"strconv"

	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/ir"
	"github.com/tocinlang/tocin/internal/types"
)

// lowerStatement appends the instructions for one statement to the current
// block.
func (g *Generator) lowerStatement(stmt ast.Statement) {
	if g.failed || stmt == nil {
		return
	}
	switch s := stmt.(type) {
	case *ast.BadStatement, *ast.ModuleDeclaration, *ast.ImportStatement,
		*ast.ExportStatement, *ast.EnumDeclaration, *ast.TraitDeclaration,
		*ast.ClassDeclaration, *ast.ImplDeclaration:
		// Declarations produce no inline code; class/impl methods are
		// lowered at module level.
	case *ast.ExpressionStatement:
		g.lowerExpression(s.Expression)
	case *ast.VariableDeclaration:
		g.lowerVariableDeclaration(s)
	case *ast.BlockStatement:
		g.pushScope()
		for _, inner := range s.Statements {
			g.lowerStatement(inner)
		}
		g.popScope()
	case *ast.IfStatement:
		g.lowerIf(s)
	case *ast.WhileStatement:
		g.lowerWhile(s)
	case *ast.ForInStatement:
		g.lowerForIn(s)
	case *ast.ReturnStatement:
		g.lowerReturn(s)
	case *ast.FunctionDeclaration:
		if len(s.TypeParams) == 0 {
			g.lowerNestedFunction(s)
		}
	case *ast.MatchStatement:
		g.lowerMatch(s.Scrutinee, s.Arms, nil)
	case *ast.ThrowStatement:
		g.lowerThrow(s)
	case *ast.TryStatement:
		g.lowerTry(s)
	case *ast.BreakStatement:
		if len(g.loops) > 0 && !g.bb.Terminated() {
			g.bb.Term = &ir.Br{Dest: g.loops[len(g.loops)-1].breakDest}
		}
	case *ast.ContinueStatement:
		if len(g.loops) > 0 && !g.bb.Terminated() {
			g.bb.Term = &ir.Br{Dest: g.loops[len(g.loops)-1].continueDest}
		}
	case *ast.DeferStatement:
		// Deferred statements run in reverse registration order on every
		// function exit path.
		g.deferred = append(g.deferred, s.Call)
	case *ast.SelectStatement:
		g.lowerSelect(s)
	case *ast.GoStatement:
		g.lowerGo(s)
	default:
		g.fail(stmt.Pos(), "unhandled statement %T", stmt)
	}
}

// lowerNestedFunction lowers a nested function under its own symbol,
// preserving the surrounding cursor.
func (g *Generator) lowerNestedFunction(d *ast.FunctionDeclaration) {
	savedFn, savedBB := g.fn, g.bb
	savedScopes := g.scopes
	savedDefers := g.deferred
	g.scopes = nil
	g.lowerFunction(d, functionSymbol(d), nil)
	g.fn, g.bb = savedFn, savedBB
	g.scopes = savedScopes
	g.deferred = savedDefers
}

func (g *Generator) lowerVariableDeclaration(s *ast.VariableDeclaration) {
	srcType := s.Name.Type()
	t := irType(srcType)
	addr := g.emitAlloca(t)
	g.declareSlot(s.Name.Value, addr, t, srcType)

	if s.Value != nil {
		val := g.lowerExpression(s.Value)
		if val == nil && t.Kind != ir.Void {
			val = zeroValue(t)
		}
		val = g.coerce(val, s.Value.Type(), srcType)
		g.emitStore(val, addr)
		return
	}
	// Only annotated: the back-end contract requires a default value.
	g.emitStore(zeroValue(t), addr)
}

// coerce adapts a lowered value to a target source type: float widening,
// boxing scalars into nullable slots, and nil into null pointers.
func (g *Generator) coerce(val ir.Value, from, to types.Type) ir.Value {
	if val == nil || from == nil || to == nil {
		return val
	}
	// float32 -> float64 widening.
	if from == types.FLOAT32 && to == types.FLOAT64 {
		return g.emit(&ir.Instr{Op: ir.OpFPCast, Typ: ir.F64Type, Args: []ir.Value{val}})
	}
	// Scalars assigned into a nullable slot are boxed; the box pointer is
	// the nullable representation.
	if types.IsNullable(to) && !types.IsNullable(from) && from != types.NIL {
		inner := irType(types.StripNullable(to))
		if inner.Kind != ir.Ptr && inner.Kind != ir.Void {
			box := g.emitMalloc(sizeOf(inner))
			g.emitStore(val, box)
			return box
		}
	}
	return val
}

func (g *Generator) lowerIf(s *ast.IfStatement) {
	g.lowerCondChain(s.Condition, s.Then, s.Elifs, s.Else)
}

// lowerCondChain lowers if/elif/else recursively: each elif becomes the
// else-branch of its predecessor.
func (g *Generator) lowerCondChain(cond ast.Expression, then *ast.BlockStatement, elifs []*ast.ElifClause, final *ast.BlockStatement) {
	condVal := g.lowerCondition(cond)
	thenB := g.fn.NewBlock("then")
	mergeB := g.fn.NewBlock("merge")

	elseDest := mergeB
	hasElse := len(elifs) > 0 || final != nil
	var elseB *ir.Block
	if hasElse {
		elseB = g.fn.NewBlock("else")
		elseDest = elseB
	}

	if !g.bb.Terminated() {
		g.bb.Term = &ir.CondBr{Cond: condVal, Then: thenB.BlockName, Else: elseDest.BlockName}
	}

	g.bb = thenB
	g.lowerStatement(then)
	g.switchTo(mergeB)

	if hasElse {
		g.bb = elseB
		if len(elifs) > 0 {
			g.lowerCondChain(elifs[0].Condition, elifs[0].Body, elifs[1:], final)
		} else {
			g.lowerStatement(final)
		}
		g.switchTo(mergeB)
	}
	g.bb = mergeB
}

// lowerCondition lowers an expression used as a branch condition into i1:
// bool stays, nonzero numerics and non-null pointers are true.
func (g *Generator) lowerCondition(cond ast.Expression) ir.Value {
	val := g.lowerExpression(cond)
	if val == nil {
		return ir.BoolConst(false)
	}
	t := val.Type()
	switch {
	case t.Kind == ir.I1:
		return val
	case t.IsInt():
		return g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: "ne",
			Args: []ir.Value{val, zeroValue(t)}})
	case t.IsFloat():
		return g.emit(&ir.Instr{Op: ir.OpFCmp, Typ: ir.I1Type, Cond: "ne",
			Args: []ir.Value{val, zeroValue(t)}})
	default:
		return g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: "ne",
			Args: []ir.Value{val, ir.NullConst()}})
	}
}

func (g *Generator) lowerWhile(s *ast.WhileStatement) {
	condB := g.fn.NewBlock("cond")
	bodyB := g.fn.NewBlock("body")
	afterB := g.fn.NewBlock("after")

	g.switchTo(condB)
	condVal := g.lowerCondition(s.Condition)
	if !g.bb.Terminated() {
		g.bb.Term = &ir.CondBr{Cond: condVal, Then: bodyB.BlockName, Else: afterB.BlockName}
	}

	g.bb = bodyB
	g.loops = append(g.loops, loopContext{breakDest: afterB.BlockName, continueDest: condB.BlockName})
	g.lowerStatement(s.Body)
	g.loops = g.loops[:len(g.loops)-1]
	if !g.bb.Terminated() {
		g.bb.Term = &ir.Br{Dest: condB.BlockName}
	}
	g.bb = afterB
}

// lowerForIn synthesizes an index counter over the iterable: ranges loop
// lo..hi, lists load length and data pointer from the list header.
func (g *Generator) lowerForIn(s *ast.ForInStatement) {
	iterType := s.Iterable.Type()

	if r, ok := s.Iterable.(*ast.RangeExpression); ok {
		g.lowerForRange(s, r)
		return
	}

	var elemSrc types.Type = types.ERROR
	if e := types.ListElem(iterType); e != nil {
		elemSrc = e
	}
	elemT := irType(elemSrc)

	listPtr := g.lowerExpression(s.Iterable)
	if listPtr == nil {
		return
	}
	// List header {i64 len, ptr data}.
	header := ir.StructType("list", ir.I64Type, ir.PtrType)
	lenAddr := g.emitFieldAddr(listPtr, header, 0)
	length := g.emitLoad(ir.I64Type, lenAddr)
	dataAddr := g.emitFieldAddr(listPtr, header, 1)
	data := g.emitLoad(ir.PtrType, dataAddr)

	idxAddr := g.emitAlloca(ir.I64Type)
	g.emitStore(ir.IntConst(0), idxAddr)

	condB := g.fn.NewBlock("cond")
	bodyB := g.fn.NewBlock("body")
	stepB := g.fn.NewBlock("step")
	afterB := g.fn.NewBlock("after")

	g.switchTo(condB)
	idx := g.emitLoad(ir.I64Type, idxAddr)
	inBounds := g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: "lt",
		Args: []ir.Value{idx, length}})
	g.bb.Term = &ir.CondBr{Cond: inBounds, Then: bodyB.BlockName, Else: afterB.BlockName}

	g.bb = bodyB
	g.pushScope()
	elemAddr := g.emit(&ir.Instr{Op: ir.OpIndex, Typ: ir.PtrType, Elem: elemT,
		Args: []ir.Value{data, idx}})
	elem := g.emitLoad(elemT, elemAddr)
	varAddr := g.emitAlloca(elemT)
	g.emitStore(elem, varAddr)
	g.declareSlot(s.Variable.Value, varAddr, elemT, elemSrc)

	g.loops = append(g.loops, loopContext{breakDest: afterB.BlockName, continueDest: stepB.BlockName})
	for _, stmt := range s.Body.Statements {
		g.lowerStatement(stmt)
	}
	g.loops = g.loops[:len(g.loops)-1]
	g.popScope()
	g.switchTo(stepB)

	idx2 := g.emitLoad(ir.I64Type, idxAddr)
	next := g.emit(&ir.Instr{Op: ir.OpAdd, Typ: ir.I64Type, Args: []ir.Value{idx2, ir.IntConst(1)}})
	g.emitStore(next, idxAddr)
	g.bb.Term = &ir.Br{Dest: condB.BlockName}

	g.bb = afterB
}

func (g *Generator) lowerForRange(s *ast.ForInStatement, r *ast.RangeExpression) {
	low := g.lowerExpression(r.Low)
	high := g.lowerExpression(r.High)
	if low == nil || high == nil {
		return
	}

	idxAddr := g.emitAlloca(ir.I64Type)
	g.emitStore(low, idxAddr)

	condB := g.fn.NewBlock("cond")
	bodyB := g.fn.NewBlock("body")
	stepB := g.fn.NewBlock("step")
	afterB := g.fn.NewBlock("after")

	g.switchTo(condB)
	idx := g.emitLoad(ir.I64Type, idxAddr)
	cmp := "lt"
	if r.Inclusive {
		cmp = "le"
	}
	inBounds := g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: cmp,
		Args: []ir.Value{idx, high}})
	g.bb.Term = &ir.CondBr{Cond: inBounds, Then: bodyB.BlockName, Else: afterB.BlockName}

	g.bb = bodyB
	g.pushScope()
	varAddr := g.emitAlloca(ir.I64Type)
	cur := g.emitLoad(ir.I64Type, idxAddr)
	g.emitStore(cur, varAddr)
	g.declareSlot(s.Variable.Value, varAddr, ir.I64Type, types.INT)

	g.loops = append(g.loops, loopContext{breakDest: afterB.BlockName, continueDest: stepB.BlockName})
	for _, stmt := range s.Body.Statements {
		g.lowerStatement(stmt)
	}
	g.loops = g.loops[:len(g.loops)-1]
	g.popScope()
	g.switchTo(stepB)

	idx2 := g.emitLoad(ir.I64Type, idxAddr)
	next := g.emit(&ir.Instr{Op: ir.OpAdd, Typ: ir.I64Type, Args: []ir.Value{idx2, ir.IntConst(1)}})
	g.emitStore(next, idxAddr)
	g.bb.Term = &ir.Br{Dest: condB.BlockName}

	g.bb = afterB
}

// lowerReturn runs deferred statements, then returns. Inside main, int
// results are narrowed to the i32 exit-code convention.
func (g *Generator) lowerReturn(s *ast.ReturnStatement) {
	var val ir.Value
	if s.Value != nil {
		val = g.lowerExpression(s.Value)
	}
	g.runDefers()
	if g.bb.Terminated() {
		return
	}
	// Async drivers complete their promise instead of returning a value.
	if g.async != nil {
		g.completePromise(val)
		g.bb.Term = &ir.Ret{}
		return
	}
	if g.inMain {
		switch {
		case val == nil:
			val = ir.I32Const(0)
		case val.Type().Kind == ir.I64:
			if c, isConst := val.(*ir.Const); isConst {
				val = &ir.Const{Typ: ir.I32Type, Lit: c.Lit}
			} else {
				val = g.emit(&ir.Instr{Op: ir.OpIntCast, Typ: ir.I32Type, Args: []ir.Value{val}})
			}
		}
		g.bb.Term = &ir.Ret{Value: val}
		return
	}
	if g.fn.RetType.Kind == ir.Void {
		g.bb.Term = &ir.Ret{}
		return
	}
	if val == nil {
		val = zeroValue(g.fn.RetType)
	}
	g.bb.Term = &ir.Ret{Value: val}
}

// runDefers emits the deferred statements in reverse registration order.
func (g *Generator) runDefers() {
	for i := len(g.deferred) - 1; i >= 0; i-- {
		g.lowerStatement(g.deferred[i])
	}
}

// lowerThrow runs defers (they run on propagating throw, not on panic) and
// aborts through the runtime.
func (g *Generator) lowerThrow(s *ast.ThrowStatement) {
	val := g.lowerExpression(s.Value)
	g.runDefers()
	if g.bb.Terminated() {
		return
	}
	msg := val
	if msg == nil || msg.Type().Kind != ir.Ptr {
		msg = g.stringGlobal("uncaught exception")
	}
	g.emitCall("runtime_panic", ir.VoidType, msg)
	g.bb.Term = &ir.Unreachable{}
}

// lowerTry lowers the body and finally inline. Catch bodies are emitted as
// separate blocks for the back-end's unwinder to target; without an
// in-flight exception they are skipped.
func (g *Generator) lowerTry(s *ast.TryStatement) {
	afterB := g.fn.NewBlock("try.after")

	g.lowerStatement(s.Body)
	if s.Finally != nil {
		g.lowerStatement(s.Finally)
	}
	g.switchTo(afterB)

	for _, c := range s.Catches {
		catchB := g.fn.NewBlock("catch")
		g.bb = catchB
		g.pushScope()
		if c.Name != nil {
			addr := g.emitAlloca(ir.PtrType)
			g.emitStore(ir.NullConst(), addr)
			g.declareSlot(c.Name.Value, addr, ir.PtrType, c.Name.Type())
		}
		for _, stmt := range c.Body.Statements {
			g.lowerStatement(stmt)
		}
		if s.Finally != nil {
			g.lowerStatement(s.Finally)
		}
		g.popScope()
		if !g.bb.Terminated() {
			g.bb.Term = &ir.Br{Dest: afterB.BlockName}
		}
	}
	g.bb = afterB
}

// lowerGo lowers `go f(args)` to runtime_spawn(code, env): the arguments
// are packed into a heap environment consumed by a synthesized thunk.
func (g *Generator) lowerGo(s *ast.GoStatement) {
	call, ok := s.Call.(*ast.CallExpression)
	if !ok {
		return
	}

	var argVals []ir.Value
	for _, arg := range call.Args {
		if v := g.lowerExpression(arg); v != nil {
			argVals = append(argVals, v)
		}
	}

	env := g.emitMalloc(structSize(len(argVals)))
	envStruct := envStructType(len(argVals))
	for i, v := range argVals {
		fieldAddr := g.emitFieldAddr(env, envStruct, i)
		g.emitStore(v, fieldAddr)
	}

	thunk := g.spawnThunk(call, argVals)
	g.emitCall("runtime_spawn", ir.VoidType, &ir.Const{Typ: ir.PtrType, Lit: "@" + thunk}, env)
}

func envStructType(n int) ir.Type {
	fields := make([]ir.Type, n)
	for i := range fields {
		fields[i] = ir.PtrType
	}
	return ir.StructType("env", fields...)
}

// spawnThunk synthesizes `go_thunkN(env)` that unpacks the environment and
// performs the original call.
func (g *Generator) spawnThunk(call *ast.CallExpression, argVals []ir.Value) string {
	g.thunks++
	name := "go_thunk" + strconv.Itoa(g.thunks)

	savedFn, savedBB := g.fn, g.bb
	savedScopes, savedDefers := g.scopes, g.deferred

	fn := &ir.Function{
		FuncName: name,
		Params:   []*ir.Param{{ParamName: "env", Typ: ir.PtrType}},
		RetType:  ir.VoidType,
	}
	g.startFunction(fn)
	g.scopes = nil
	g.pushScope()

	env := fn.Params[0]
	envStruct := envStructType(len(argVals))
	var args []ir.Value
	for i, v := range argVals {
		fieldAddr := g.emitFieldAddr(env, envStruct, i)
		args = append(args, g.emitLoad(v.Type(), fieldAddr))
	}

	callee := g.directCallee(call)
	if callee != "" {
		g.emitCall(callee, ir.VoidType, args...)
	}
	g.bb.Term = &ir.Ret{}
	g.finishFunction()

	g.fn, g.bb = savedFn, savedBB
	g.scopes, g.deferred = savedScopes, savedDefers
	return name
}

// directCallee resolves a call's target symbol when it is a plain function
// reference.
func (g *Generator) directCallee(call *ast.CallExpression) string {
	if id, ok := call.Callee.(*ast.Identifier); ok {
		return id.Value
	}
	return ""
}

// lowerSelect builds the runtime table of (op, channel, buffer) entries,
// calls select_execute, and dispatches on the returned index.
func (g *Generator) lowerSelect(s *ast.SelectStatement) {
	n := len(s.Cases)
	entry := ir.StructType("selectcase", ir.I32Type, ir.PtrType, ir.PtrType)
	table := g.emitMalloc(int64(n) * 24)

	type caseInfo struct {
		buf ir.Value
	}
	infos := make([]caseInfo, n)

	for i, c := range s.Cases {
		slotAddr := g.emit(&ir.Instr{Op: ir.OpIndex, Typ: ir.PtrType, Elem: entry,
			Args: []ir.Value{table, ir.IntConst(int64(i))}})

		var op int64
		var chVal, buf ir.Value
		switch comm := c.Comm.(type) {
		case *ast.ChannelSendExpression:
			op = 0
			chVal = g.lowerExpression(comm.Channel)
			v := g.lowerExpression(comm.Value)
			buf = g.emitAlloca(exprIRType(comm.Value))
			if v != nil {
				g.emitStore(v, buf)
			}
		case *ast.ChannelReceiveExpression:
			op = 1
			chVal = g.lowerExpression(comm.Channel)
			buf = g.emitAlloca(exprIRType(comm))
		default:
			continue
		}
		infos[i] = caseInfo{buf: buf}

		opAddr := g.emitFieldAddr(slotAddr, entry, 0)
		g.emitStore(ir.I32Const(op), opAddr)
		chAddr := g.emitFieldAddr(slotAddr, entry, 1)
		if chVal != nil {
			g.emitStore(chVal, chAddr)
		}
		bufAddr := g.emitFieldAddr(slotAddr, entry, 2)
		g.emitStore(buf, bufAddr)
	}

	chosen := g.emitCall("select_execute", ir.I32Type, table, ir.I32Const(int64(n)))

	afterB := g.fn.NewBlock("select.after")
	for i, c := range s.Cases {
		caseB := g.fn.NewBlock("select.case")
		nextB := g.fn.NewBlock("select.next")
		isCase := g.emit(&ir.Instr{Op: ir.OpICmp, Typ: ir.I1Type, Cond: "eq",
			Args: []ir.Value{chosen, ir.I32Const(int64(i))}})
		g.bb.Term = &ir.CondBr{Cond: isCase, Then: caseB.BlockName, Else: nextB.BlockName}

		g.bb = caseB
		g.pushScope()
		if c.Bind != nil && infos[i].buf != nil {
			t := exprIRType(c.Comm)
			addr := g.emitAlloca(t)
			val := g.emitLoad(t, infos[i].buf)
			g.emitStore(val, addr)
			g.declareSlot(c.Bind.Value, addr, t, c.Comm.Type())
		}
		for _, stmt := range c.Body.Statements {
			g.lowerStatement(stmt)
		}
		g.popScope()
		if !g.bb.Terminated() {
			g.bb.Term = &ir.Br{Dest: afterB.BlockName}
		}
		g.bb = nextB
	}
	if s.Default != nil {
		g.lowerStatement(s.Default)
	}
	g.switchTo(afterB)
}
