// Package irgen lowers the checked AST to the IR of package ir: structured
// control flow becomes basic blocks, lambdas become (code, env) closures,
// generic calls are monomorphized, async functions become promise-driven
// state machines, and concurrency primitives become runtime calls.
//
// Lowering is a reducer over the AST: expression visits return IR values,
// statement visits append instructions to the current block. Codegen
// failures report C002 and discard the offending function; other functions
// proceed.
package irgen

import (
	"fmt"

	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/ir"
	"github.com/tocinlang/tocin/internal/modules"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/internal/semantic"
	"github.com/tocinlang/tocin/internal/types"
	"github.com/tocinlang/tocin/pkg/token"
)

// slot is one stack allocation backing a named binding.
type slot struct {
	addr    ir.Value
	irType  ir.Type
	srcType types.Type
}

// frame is one lexical scope: slots in declaration order, so destructors
// can run in reverse of it on scope exit.
type frame struct {
	names map[string]*slot
	order []string
}

// loopContext carries break/continue targets.
type loopContext struct {
	breakDest    string
	continueDest string
}

// Generator lowers one program to an ir.Module.
type Generator struct {
	reporter *report.Reporter
	sema     *semantic.Analyzer
	mod      *ir.Module

	fn     *ir.Function
	bb     *ir.Block
	scopes []*frame
	loops  []loopContext

	// deferred statements of the current function, run in reverse order on
	// every exit path.
	deferred []ast.Statement

	// Monomorphization cache keyed structurally: the declaration plus its
	// canonical type-argument tuple. The mangled name is a pure projection
	// for IR emission; monoNames keeps emitted names unique when distinct
	// declarations share a base name.
	mono      map[*ast.FunctionDeclaration][]monoInstance
	monoNames map[string]bool

	strings  map[string]*ir.Global
	strCount int
	lambdas  int
	thunks   int

	// curSub substitutes type parameters while emitting a specialized body.
	curSub types.Substitution

	// async is non-nil while emitting an async driver body.
	async *asyncCtx

	inMain bool
	failed bool
}

// New creates a Generator backed by the analyzer's resolved information.
func New(reporter *report.Reporter, sema *semantic.Analyzer) *Generator {
	return &Generator{
		reporter:  reporter,
		sema:      sema,
		mono:      map[*ast.FunctionDeclaration][]monoInstance{},
		monoNames: map[string]bool{},
		strings:   map[string]*ir.Global{},
	}
}

// Generate lowers a single module. The returned ir.Module is the
// pipeline's sole exit artifact.
func (g *Generator) Generate(name string, mod *ast.Module) *ir.Module {
	return g.GenerateProgram(name, []*modules.Record{{Name: name, Module: mod}})
}

// GenerateProgram lowers every module of a program, in the loader's
// dependency order, into one IR module. Only the root module's top-level
// statements and main contribute to the synthesized main.
func (g *Generator) GenerateProgram(rootName string, order []*modules.Record) *ir.Module {
	g.mod = &ir.Module{Name: rootName}
	g.declareRuntime()

	var topLevel []ast.Statement
	var userMain *ast.FunctionDeclaration

	for _, rec := range order {
		isRoot := rec.Name == rootName
		tl, um := g.lowerModuleDecls(rec.Module, isRoot)
		if isRoot {
			topLevel, userMain = tl, um
		}
	}

	g.lowerMain(userMain, topLevel)
	return g.mod
}

// lowerModuleDecls lowers one module's declarations and, for the root
// module, collects its top-level statements and user main.
func (g *Generator) lowerModuleDecls(mod *ast.Module, isRoot bool) ([]ast.Statement, *ast.FunctionDeclaration) {
	var topLevel []ast.Statement
	var userMain *ast.FunctionDeclaration

	for _, stmt := range mod.Statements {
		switch d := stmt.(type) {
		case *ast.FunctionDeclaration:
			if isRoot && d.Name != nil && d.Name.Value == "main" && d.Receiver == nil {
				userMain = d
				continue
			}
			if len(d.TypeParams) > 0 {
				continue // monomorphized on demand
			}
			if g.mod.Lookup(functionSymbol(d)) != nil {
				continue
			}
			g.lowerFunction(d, functionSymbol(d), nil)
		case *ast.ClassDeclaration:
			g.lowerClassMethods(d)
		case *ast.ImplDeclaration:
			for _, m := range d.Methods {
				g.lowerFunction(m, implMethodSymbol(d, m), d.Target)
			}
		case *ast.ModuleDeclaration, *ast.ImportStatement, *ast.ExportStatement,
			*ast.EnumDeclaration, *ast.TraitDeclaration:
			// No code of their own.
		default:
			if isRoot {
				topLevel = append(topLevel, stmt)
			}
		}
	}
	return topLevel, userMain
}

// declareRuntime pre-declares the external runtime surface.
func (g *Generator) declareRuntime() {
	p := ir.PtrType
	g.mod.Extern("malloc", []ir.Type{ir.I64Type}, p)
	g.mod.Extern("free", []ir.Type{p}, ir.VoidType)
	g.mod.Extern("printf", []ir.Type{p}, ir.I32Type)
	g.mod.Extern("print", []ir.Type{p}, ir.VoidType)
	g.mod.Extern("string_concat", []ir.Type{p, p}, p)
	g.mod.Extern("int_to_string", []ir.Type{ir.I64Type}, p)
	g.mod.Extern("float_to_string", []ir.Type{ir.F64Type}, p)
	g.mod.Extern("to_string", []ir.Type{p}, p)
	g.mod.Extern("Promise_create", nil, p)
	g.mod.Extern("Promise_getFuture", []ir.Type{p}, p)
	g.mod.Extern("Future_get", []ir.Type{p}, p)
	g.mod.Extern("runtime_spawn", []ir.Type{p, p}, ir.VoidType)
	g.mod.Extern("chan_send", []ir.Type{p, p}, ir.VoidType)
	g.mod.Extern("chan_recv", []ir.Type{p, p}, ir.VoidType)
	g.mod.Extern("chan_create", []ir.Type{ir.I64Type}, p)
	g.mod.Extern("select_execute", []ir.Type{p, ir.I32Type}, ir.I32Type)
	g.mod.Extern("runtime_panic", []ir.Type{p}, ir.VoidType)
}

// lowerMain synthesizes main(argc, argv) -> i32: top-level statements run
// first, then the user main body when present.
func (g *Generator) lowerMain(userMain *ast.FunctionDeclaration, topLevel []ast.Statement) {
	fn := &ir.Function{
		FuncName: "main",
		Params: []*ir.Param{
			{ParamName: "argc", Typ: ir.I32Type},
			{ParamName: "argv", Typ: ir.PtrType},
		},
		RetType: ir.I32Type,
	}
	g.startFunction(fn)
	g.inMain = true

	for _, stmt := range topLevel {
		g.lowerStatement(stmt)
	}
	if userMain != nil && userMain.Body != nil {
		g.pushScope()
		for _, stmt := range userMain.Body.Statements {
			g.lowerStatement(stmt)
		}
		g.popScope()
	}
	if !g.bb.Terminated() {
		g.runDefers()
		g.bb.Term = &ir.Ret{Value: ir.I32Const(0)}
	}
	g.finishFunction()
	g.inMain = false
}

// lowerClassMethods emits Class_method functions with an explicit self
// pointer, for non-generic classes.
func (g *Generator) lowerClassMethods(d *ast.ClassDeclaration) {
	if len(d.TypeParams) > 0 {
		return
	}
	for _, m := range d.Methods {
		g.lowerFunction(m, methodSymbol(d.Name.Value, m.Name.Value), &ast.NamedTypeExpr{
			Token: d.Token, Name: d.Name.Value,
		})
	}
}

// lowerFunction emits one function. receiver, when non-nil, becomes the
// leading self parameter. Async functions route through lowerAsync.
func (g *Generator) lowerFunction(d *ast.FunctionDeclaration, name string, receiver ast.TypeExpr) {
	if d.Body == nil {
		return
	}
	if d.IsAsync {
		g.lowerAsync(d, name, receiver)
		return
	}

	fn := &ir.Function{FuncName: name, RetType: g.irReturnType(d)}
	recv := receiver
	if recv == nil && d.Receiver != nil {
		recv = d.Receiver
	}
	if recv != nil {
		fn.Params = append(fn.Params, &ir.Param{ParamName: "self", Typ: ir.PtrType})
	}
	for _, p := range d.Params {
		if p.Name == "self" {
			continue
		}
		fn.Params = append(fn.Params, &ir.Param{
			ParamName: p.Name,
			Typ:       g.irTypeOfAnn(p.TypeAnn),
		})
	}

	g.startFunction(fn)
	g.bindParams(d, recv)
	for _, stmt := range d.Body.Statements {
		g.lowerStatement(stmt)
	}
	if !g.bb.Terminated() {
		g.runDefers()
		if fn.RetType.Kind == ir.Void {
			g.bb.Term = &ir.Ret{}
		} else {
			g.bb.Term = &ir.Ret{Value: zeroValue(fn.RetType)}
		}
	}
	g.finishFunction()
}

// bindParams spills parameters into entry-block stack slots so they are
// addressable like locals.
func (g *Generator) bindParams(d *ast.FunctionDeclaration, receiver ast.TypeExpr) {
	g.pushScope()
	idx := 0
	if receiver != nil {
		p := g.fn.Params[0]
		addr := g.emitAlloca(ir.PtrType)
		g.emitStore(p, addr)
		g.declareSlot("self", addr, ir.PtrType, nil)
		idx = 1
	}
	for _, param := range d.Params {
		if param.Name == "self" {
			continue
		}
		if idx >= len(g.fn.Params) {
			break
		}
		p := g.fn.Params[idx]
		idx++
		addr := g.emitAlloca(p.Typ)
		g.emitStore(p, addr)
		var srcType types.Type
		if param.TypeAnn != nil {
			srcType = g.resolveType(param.TypeAnn)
		}
		g.declareSlot(param.Name, addr, p.Typ, srcType)
	}
}

func (g *Generator) startFunction(fn *ir.Function) {
	g.fn = fn
	g.bb = fn.NewBlock("entry")
	g.deferred = nil
	g.failed = false
}

func (g *Generator) finishFunction() {
	if g.failed {
		return // C002: the function is discarded, others proceed
	}
	g.mod.Functions = append(g.mod.Functions, g.fn)
	g.pruneScopesTo(0)
}

func (g *Generator) pushScope() {
	g.scopes = append(g.scopes, &frame{names: map[string]*slot{}})
}

// popScope exits one lexical scope, running destructors for owned class
// bindings in reverse declaration order. Drops are skipped when the block
// already terminated; a return runs the defer chain but no destructors, so
// owned bindings still in scope at a return are not dropped.
func (g *Generator) popScope() {
	if len(g.scopes) == 0 {
		return
	}
	f := g.scopes[len(g.scopes)-1]
	g.scopes = g.scopes[:len(g.scopes)-1]
	if g.bb == nil || g.bb.Terminated() || g.failed {
		return
	}
	for i := len(f.order) - 1; i >= 0; i-- {
		s := f.names[f.order[i]]
		dtor := g.destructorSymbol(s.srcType)
		if dtor == "" {
			continue
		}
		val := g.emitLoad(s.irType, s.addr)
		g.emitCall(dtor, ir.VoidType, val)
	}
}

// destructorSymbol names the deinit method for a class type with a
// non-trivial destructor, or "".
func (g *Generator) destructorSymbol(src types.Type) string {
	if src == nil {
		return ""
	}
	name, ok := receiverTypeName(src)
	if !ok {
		return ""
	}
	if info := g.sema.Class(name); info != nil {
		if owner := findMethodOwner(info, "deinit"); owner != nil {
			return methodSymbol(owner.Name, "deinit")
		}
	}
	return ""
}

func (g *Generator) pruneScopesTo(n int) {
	if len(g.scopes) > n {
		g.scopes = g.scopes[:n]
	}
}

func (g *Generator) declareSlot(name string, addr ir.Value, t ir.Type, src types.Type) *slot {
	if len(g.scopes) == 0 {
		g.pushScope()
	}
	f := g.scopes[len(g.scopes)-1]
	s := &slot{addr: addr, irType: t, srcType: src}
	if _, exists := f.names[name]; !exists {
		f.order = append(f.order, name)
	}
	f.names[name] = s
	return s
}

func (g *Generator) lookupSlot(name string) *slot {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if s, ok := g.scopes[i].names[name]; ok {
			return s
		}
	}
	return nil
}

// fail reports C002 for the current function and poisons it.
func (g *Generator) fail(pos token.Position, format string, args ...any) {
	if !g.failed {
		g.reporter.Reportf(report.C002LoweringFailed, pos, report.Fatal,
			"lowering %s: "+format, append([]any{g.fn.FuncName}, args...)...)
	}
	g.failed = true
}

// --- emit helpers -------------------------------------------------------

func (g *Generator) emit(ins *ir.Instr) ir.Value {
	if ins.Typ.Kind != ir.Void {
		ins.ID = g.fn.NextReg()
	} else {
		ins.ID = -1
	}
	g.bb.Instrs = append(g.bb.Instrs, ins)
	return ins
}

func (g *Generator) emitAlloca(elem ir.Type) ir.Value {
	return g.emit(&ir.Instr{Op: ir.OpAlloca, Typ: ir.PtrType, Elem: elem})
}

func (g *Generator) emitLoad(elem ir.Type, addr ir.Value) ir.Value {
	return g.emit(&ir.Instr{Op: ir.OpLoad, Typ: elem, Elem: elem, Args: []ir.Value{addr}})
}

func (g *Generator) emitStore(val, addr ir.Value) {
	g.emit(&ir.Instr{Op: ir.OpStore, Typ: ir.VoidType, Args: []ir.Value{val, addr}})
}

func (g *Generator) emitCall(callee string, ret ir.Type, args ...ir.Value) ir.Value {
	return g.emit(&ir.Instr{Op: ir.OpCall, Typ: ret, Callee: callee, Args: args})
}

// emitCallIndirect calls through a code pointer: the pointer is the first
// argument, per the closure calling convention.
func (g *Generator) emitCallIndirect(code ir.Value, ret ir.Type, args ...ir.Value) ir.Value {
	all := append([]ir.Value{code}, args...)
	return g.emit(&ir.Instr{Op: ir.OpCall, Typ: ret, Callee: "", Args: all})
}

func (g *Generator) emitMalloc(size int64) ir.Value {
	return g.emit(&ir.Instr{Op: ir.OpMalloc, Typ: ir.PtrType, Args: []ir.Value{ir.IntConst(size)}})
}

func (g *Generator) emitFieldAddr(base ir.Value, structType ir.Type, index int) ir.Value {
	return g.emit(&ir.Instr{
		Op: ir.OpField, Typ: ir.PtrType, Elem: structType, FieldIndex: index,
		Args: []ir.Value{base},
	})
}

func (g *Generator) emitBitcast(v ir.Value, to ir.Type) ir.Value {
	return g.emit(&ir.Instr{Op: ir.OpBitcast, Typ: to, Args: []ir.Value{v}})
}

// switchTo seals the current block with a branch and moves the cursor.
func (g *Generator) switchTo(b *ir.Block) {
	if !g.bb.Terminated() {
		g.bb.Term = &ir.Br{Dest: b.BlockName}
	}
	g.bb = b
}

// stringGlobal interns one string constant.
func (g *Generator) stringGlobal(s string) ir.Value {
	if gl, ok := g.strings[s]; ok {
		return gl
	}
	gl := &ir.Global{GlobalName: fmt.Sprintf("str%d", g.strCount), Init: s, Typ: ir.PtrType}
	g.strCount++
	g.strings[s] = gl
	return g.mod.AddGlobal(gl)
}

// --- type mapping -------------------------------------------------------

// irType maps a source type to its IR representation. Aggregates, strings,
// nullables, closures, and all user types are opaque pointers; the element
// types travel with each operation.
func irType(t types.Type) ir.Type {
	switch tt := t.(type) {
	case nil:
		return ir.PtrType
	case *types.BasicType:
		switch tt.Kind() {
		case types.KindInt:
			return ir.I64Type
		case types.KindFloat32:
			return ir.F32Type
		case types.KindFloat64:
			return ir.F64Type
		case types.KindBool:
			return ir.I1Type
		case types.KindString, types.KindNil:
			return ir.PtrType
		case types.KindVoid:
			return ir.VoidType
		}
		return ir.I64Type
	case *types.RefType:
		return irType(tt.Base)
	}
	return ir.PtrType
}

func (g *Generator) resolveType(ann ast.TypeExpr) types.Type {
	// Annotation resolution mirrors the analyzer but without diagnostics;
	// unknown names degrade to opaque pointers.
	switch t := ann.(type) {
	case nil:
		return types.VOID
	case *ast.NamedTypeExpr:
		if basic := types.LookupBasic(t.Name); basic != nil && len(t.Args) == 0 {
			return basic
		}
		if len(t.Args) > 0 {
			args := make([]types.Type, len(t.Args))
			for i, arg := range t.Args {
				args[i] = g.resolveType(arg)
			}
			return types.Substitute(types.NewGeneric(t.Name, args...), g.curSub)
		}
		return types.Substitute(types.NewParam(t.Name), g.curSub)
	case *ast.NullableTypeExpr:
		return types.NewNullable(g.resolveType(t.Base))
	case *ast.RefTypeExpr:
		return types.NewRef(g.resolveType(t.Base))
	case *ast.FunctionTypeExpr:
		params := make([]types.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = g.resolveType(p)
		}
		return types.NewFunction(params, g.resolveType(t.Return))
	case *ast.UnionTypeExpr:
		alts := make([]types.Type, len(t.Alts))
		for i, alt := range t.Alts {
			alts[i] = g.resolveType(alt)
		}
		return types.NewUnion(alts...)
	}
	return types.ERROR
}

func (g *Generator) irTypeOfAnn(ann ast.TypeExpr) ir.Type {
	if ann == nil {
		return ir.PtrType
	}
	return irType(g.resolveType(ann))
}

func (g *Generator) irReturnType(d *ast.FunctionDeclaration) ir.Type {
	if d.ReturnAnn == nil {
		return ir.VoidType
	}
	return irType(g.resolveType(d.ReturnAnn))
}

// exprIRType maps a checked expression to its IR type.
func exprIRType(e ast.Expression) ir.Type {
	if e == nil {
		return ir.PtrType
	}
	return irType(e.Type())
}

func zeroValue(t ir.Type) ir.Value {
	switch t.Kind {
	case ir.I1:
		return ir.BoolConst(false)
	case ir.I32:
		return ir.I32Const(0)
	case ir.I64:
		return ir.IntConst(0)
	case ir.F32, ir.F64:
		return ir.FloatConst(t, 0)
	}
	return ir.NullConst()
}

// sizeOf gives the byte size used for malloc of one IR scalar.
func sizeOf(t ir.Type) int64 {
	switch t.Kind {
	case ir.I1:
		return 1
	case ir.I32, ir.F32:
		return 4
	}
	return 8
}

// structSize computes the malloc size of an aggregate, 8 bytes per field.
func structSize(fieldCount int) int64 { return int64(fieldCount) * 8 }

// --- naming -------------------------------------------------------------

func functionSymbol(d *ast.FunctionDeclaration) string {
	if d.Receiver != nil {
		return extensionSymbol(d)
	}
	return d.Name.Value
}

func methodSymbol(class, method string) string { return class + "_" + method }

func implMethodSymbol(d *ast.ImplDeclaration, m *ast.FunctionDeclaration) string {
	target := "impl"
	if nt, ok := d.Target.(*ast.NamedTypeExpr); ok {
		target = nt.Name
	}
	return methodSymbol(target, m.Name.Value)
}

func extensionSymbol(d *ast.FunctionDeclaration) string {
	recv := "ext"
	if nt, ok := d.Receiver.(*ast.NamedTypeExpr); ok {
		recv = nt.Name
	}
	return "ext_" + recv + "_" + d.Name.Value
}
