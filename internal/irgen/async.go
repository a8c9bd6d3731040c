package irgen

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/ir"
	"github.com/tocinlang/tocin/internal/types"
)

// asyncCtx is the lowering context of an async driver: the state-machine
// struct pointer and the suspension-point counter.
type asyncCtx struct {
	statePtr  ir.Value
	stateType ir.Type
	nextState int64
}

// lowerAsync lowers `async def f(...) -> T` into three artifacts:
//
//   - f: creates a Promise, packs the arguments and promise into a heap
//     state-machine struct, runs the driver, and returns the Future.
//   - f_driver: the body. Each await records the next state in the state
//     struct before suspending on Future_get; returns complete the
//     promise instead of returning a value.
//   - f_sync: the synchronous wrapper, calling f and Future_get.
func (g *Generator) lowerAsync(d *ast.FunctionDeclaration, name string, receiver ast.TypeExpr) {
	g.mod.Extern("Promise_complete", []ir.Type{ir.PtrType, ir.PtrType}, ir.VoidType)

	var paramTypes []ir.Type
	var paramNames []string
	if receiver != nil {
		paramTypes = append(paramTypes, ir.PtrType)
		paramNames = append(paramNames, "self")
	}
	for _, p := range d.Params {
		if p.Name == "self" {
			continue
		}
		paramTypes = append(paramTypes, g.irTypeOfAnn(p.TypeAnn))
		paramNames = append(paramNames, p.Name)
	}

	// State struct: {i32 state, ptr promise, params...}.
	stateFields := append([]ir.Type{ir.I32Type, ir.PtrType}, paramTypes...)
	stateType := ir.StructType(name+"_state", stateFields...)
	driverName := name + "_driver"

	g.emitAsyncEntry(name, driverName, paramTypes, paramNames, stateType)
	g.emitAsyncDriver(d, driverName, paramTypes, paramNames, stateType)
	g.emitSyncWrapper(d, name, paramTypes, paramNames)
}

// emitAsyncEntry emits f: promise + state + driver launch, returning the
// future.
func (g *Generator) emitAsyncEntry(name, driverName string, paramTypes []ir.Type, paramNames []string, stateType ir.Type) {
	fn := &ir.Function{FuncName: name, RetType: ir.PtrType}
	for i, t := range paramTypes {
		fn.Params = append(fn.Params, &ir.Param{ParamName: paramNames[i], Typ: t})
	}

	savedFn, savedBB := g.fn, g.bb
	savedScopes, savedDefers := g.scopes, g.deferred
	g.startFunction(fn)
	g.scopes = nil

	promise := g.emitCall("Promise_create", ir.PtrType)
	state := g.emitMalloc(structSize(len(paramTypes) + 2))
	g.emitStore(ir.I32Const(0), g.emitFieldAddr(state, stateType, 0))
	g.emitStore(promise, g.emitFieldAddr(state, stateType, 1))
	for i, p := range fn.Params {
		g.emitStore(p, g.emitFieldAddr(state, stateType, i+2))
	}

	future := g.emitCall("Promise_getFuture", ir.PtrType, promise)
	g.emitCall(driverName, ir.VoidType, state)
	g.bb.Term = &ir.Ret{Value: future}
	g.finishFunction()

	g.fn, g.bb = savedFn, savedBB
	g.scopes, g.deferred = savedScopes, savedDefers
}

// emitAsyncDriver emits f_driver: the original body with awaits as
// suspension points and returns routed through Promise_complete.
func (g *Generator) emitAsyncDriver(d *ast.FunctionDeclaration, driverName string, paramTypes []ir.Type, paramNames []string, stateType ir.Type) {
	fn := &ir.Function{
		FuncName: driverName,
		Params:   []*ir.Param{{ParamName: "state", Typ: ir.PtrType}},
		RetType:  ir.VoidType,
	}

	savedFn, savedBB := g.fn, g.bb
	savedScopes, savedDefers := g.scopes, g.deferred
	savedAsync := g.async
	g.startFunction(fn)
	g.scopes = nil
	g.pushScope()

	state := fn.Params[0]
	g.async = &asyncCtx{statePtr: state, stateType: stateType}

	// Unpack the promise and the live arguments from the state struct.
	promiseAddr := g.emitFieldAddr(state, stateType, 1)
	promise := g.emitLoad(ir.PtrType, promiseAddr)
	promiseSlot := g.emitAlloca(ir.PtrType)
	g.emitStore(promise, promiseSlot)
	g.declareSlot("__promise", promiseSlot, ir.PtrType, nil)

	for i, pname := range paramNames {
		t := paramTypes[i]
		fieldAddr := g.emitFieldAddr(state, stateType, i+2)
		val := g.emitLoad(t, fieldAddr)
		addr := g.emitAlloca(t)
		g.emitStore(val, addr)
		g.declareSlot(pname, addr, t, g.paramSrcType(d, pname))
	}

	if d.Body != nil {
		for _, stmt := range d.Body.Statements {
			g.lowerStatement(stmt)
		}
	}
	if !g.bb.Terminated() {
		g.runDefers()
		g.completePromise(nil)
		g.bb.Term = &ir.Ret{}
	}
	g.finishFunction()

	g.async = savedAsync
	g.fn, g.bb = savedFn, savedBB
	g.scopes, g.deferred = savedScopes, savedDefers
}

func (g *Generator) paramSrcType(d *ast.FunctionDeclaration, name string) types.Type {
	for _, p := range d.Params {
		if p.Name == name && p.TypeAnn != nil {
			return g.resolveType(p.TypeAnn)
		}
	}
	return nil
}

// completePromise fulfills the driver's promise with a boxed result (null
// for void).
func (g *Generator) completePromise(result ir.Value) {
	s := g.lookupSlot("__promise")
	if s == nil {
		return
	}
	promise := g.emitLoad(ir.PtrType, s.addr)
	var payload ir.Value = ir.NullConst()
	if result != nil {
		payload = g.boxIfScalar(result)
	}
	g.emitCall("Promise_complete", ir.VoidType, promise, payload)
}

// recordSuspension advances the state counter ahead of an await. The
// resumption callback scheduled by the runtime re-enters the driver at
// this state.
func (g *Generator) recordSuspension() {
	if g.async == nil {
		return
	}
	g.async.nextState++
	addr := g.emitFieldAddr(g.async.statePtr, g.async.stateType, 0)
	g.emitStore(ir.I32Const(g.async.nextState), addr)
}

// emitSyncWrapper emits f_sync: call f, then Future_get on the result.
func (g *Generator) emitSyncWrapper(d *ast.FunctionDeclaration, asyncName string, paramTypes []ir.Type, paramNames []string) {
	retT := g.irReturnType(d)
	fn := &ir.Function{FuncName: asyncName + "_sync", RetType: retT}
	for i, t := range paramTypes {
		fn.Params = append(fn.Params, &ir.Param{ParamName: paramNames[i], Typ: t})
	}

	savedFn, savedBB := g.fn, g.bb
	savedScopes, savedDefers := g.scopes, g.deferred
	g.startFunction(fn)
	g.scopes = nil

	var args []ir.Value
	for _, p := range fn.Params {
		args = append(args, p)
	}
	future := g.emitCall(asyncName, ir.PtrType, args...)
	raw := g.emitCall("Future_get", ir.PtrType, future)

	if retT.Kind == ir.Void {
		g.bb.Term = &ir.Ret{}
	} else if retT.Kind == ir.Ptr {
		g.bb.Term = &ir.Ret{Value: raw}
	} else {
		val := g.emitLoad(retT, raw)
		g.bb.Term = &ir.Ret{Value: val}
	}
	g.finishFunction()

	g.fn, g.bb = savedFn, savedBB
	g.scopes, g.deferred = savedScopes, savedDefers
}
