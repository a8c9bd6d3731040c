package irgen

import (
	"sort"
	"strconv"

	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/ir"
	"github.com/tocinlang/tocin/internal/types"
)

// lowerLambda converts a lambda to a closure: a synthesized code function
// taking the environment pointer first, plus a heap pair {code, env}
// holding the captured bindings by value.
func (g *Generator) lowerLambda(e *ast.LambdaExpression) ir.Value {
	g.lambdas++
	name := "lambda" + strconv.Itoa(g.lambdas)

	captures := g.freeVariables(e)

	// Build the environment: one pointer-sized field per capture.
	envStruct := envStructType(len(captures))
	env := g.emitMalloc(structSize(len(captures)))
	for i, cap := range captures {
		s := g.lookupSlot(cap)
		if s == nil {
			continue
		}
		val := g.emitLoad(s.irType, s.addr)
		g.emitStore(val, g.emitFieldAddr(env, envStruct, i))
	}

	g.emitLambdaBody(e, name, captures)

	// The closure value: heap pair {code, env}.
	pair := ir.StructType("closure", ir.PtrType, ir.PtrType)
	closure := g.emitMalloc(16)
	g.emitStore(&ir.Const{Typ: ir.PtrType, Lit: "@" + name}, g.emitFieldAddr(closure, pair, 0))
	g.emitStore(env, g.emitFieldAddr(closure, pair, 1))
	return closure
}

// emitLambdaBody synthesizes the code function: parameters are (env,
// declared params); captured bindings are re-materialized from the
// environment into local slots.
func (g *Generator) emitLambdaBody(e *ast.LambdaExpression, name string, captures []string) {
	captureSlots := make([]*slot, len(captures))
	for i, cap := range captures {
		captureSlots[i] = g.lookupSlot(cap)
	}

	savedFn, savedBB := g.fn, g.bb
	savedScopes, savedDefers := g.scopes, g.deferred
	savedMain := g.inMain

	retSrc := lambdaReturnType(e)
	fn := &ir.Function{FuncName: name, RetType: irType(retSrc)}
	fn.Params = append(fn.Params, &ir.Param{ParamName: "env", Typ: ir.PtrType})
	for _, p := range e.Params {
		fn.Params = append(fn.Params, &ir.Param{ParamName: p.Name, Typ: g.irTypeOfAnn(p.TypeAnn)})
	}

	g.startFunction(fn)
	g.scopes = nil
	g.inMain = false
	g.pushScope()

	// Unpack captures.
	envStruct := envStructType(len(captures))
	for i, cap := range captures {
		src := captureSlots[i]
		if src == nil {
			continue
		}
		fieldAddr := g.emitFieldAddr(fn.Params[0], envStruct, i)
		val := g.emitLoad(src.irType, fieldAddr)
		addr := g.emitAlloca(src.irType)
		g.emitStore(val, addr)
		g.declareSlot(cap, addr, src.irType, src.srcType)
	}

	// Bind parameters.
	for i, p := range e.Params {
		param := fn.Params[i+1]
		addr := g.emitAlloca(param.Typ)
		g.emitStore(param, addr)
		var srcType types.Type
		if p.TypeAnn != nil {
			srcType = g.resolveType(p.TypeAnn)
		}
		g.declareSlot(p.Name, addr, param.Typ, srcType)
	}

	if e.Body != nil {
		for _, stmt := range e.Body.Statements {
			g.lowerStatement(stmt)
		}
	}
	if !g.bb.Terminated() {
		if fn.RetType.Kind == ir.Void {
			g.bb.Term = &ir.Ret{}
		} else {
			g.bb.Term = &ir.Ret{Value: zeroValue(fn.RetType)}
		}
	}
	g.finishFunction()

	g.fn, g.bb = savedFn, savedBB
	g.scopes, g.deferred = savedScopes, savedDefers
	g.inMain = savedMain
}

// lambdaReturnType reads the resolved lambda type's return component.
func lambdaReturnType(e *ast.LambdaExpression) types.Type {
	if ft, ok := e.Type().(*types.FunctionType); ok {
		return ft.Return
	}
	return types.VOID
}

// freeVariables collects the lambda's captured names: identifiers that
// resolve to enclosing slots and are neither parameters nor local
// declarations of the lambda body.
func (g *Generator) freeVariables(e *ast.LambdaExpression) []string {
	local := map[string]bool{"self": false}
	for _, p := range e.Params {
		local[p.Name] = true
	}
	// Locals declared inside the body shadow captures.
	ast.Inspect(e.Body, func(n ast.Node) bool {
		switch d := n.(type) {
		case *ast.VariableDeclaration:
			local[d.Name.Value] = true
		case *ast.ForInStatement:
			local[d.Variable.Value] = true
		case *ast.LambdaExpression:
			if d != e {
				for _, p := range d.Params {
					local[p.Name] = true
				}
			}
		}
		return true
	})

	seen := map[string]bool{}
	var captures []string
	ast.Inspect(e.Body, func(n ast.Node) bool {
		id, ok := n.(*ast.Identifier)
		if !ok || local[id.Value] || seen[id.Value] {
			return true
		}
		if g.lookupSlot(id.Value) != nil {
			seen[id.Value] = true
			captures = append(captures, id.Value)
		}
		return true
	})
	sort.Strings(captures)
	return captures
}
