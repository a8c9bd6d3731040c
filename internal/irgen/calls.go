package irgen

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/ir"
	"github.com/tocinlang/tocin/internal/semantic"
	"github.com/tocinlang/tocin/internal/types"
)

// lowerCall dispatches a call expression: builtins, enum variant
// constructors, monomorphized generics, methods, extensions, and closure
// values.
func (g *Generator) lowerCall(e *ast.CallExpression) ir.Value {
	if id, ok := e.Callee.(*ast.Identifier); ok {
		// Variant constructor: Some(x).
		if enum := g.sema.VariantOwner(id.Value); enum != nil {
			if _, isVariant := enum.Variants[id.Value]; isVariant {
				var payload []ir.Value
				for _, arg := range e.Args {
					if v := g.lowerExpression(arg); v != nil {
						payload = append(payload, v)
					}
				}
				return g.allocVariant(enum, id.Value, payload)
			}
		}

		// Builtin print: convert each argument to string.
		if id.Value == "print" && g.lookupSlot("print") == nil {
			for _, arg := range e.Args {
				v := g.lowerExpression(arg)
				if v == nil {
					continue
				}
				g.emitCall("print", ir.VoidType, g.toStringValue(v, arg.Type()))
			}
			return nil
		}
		if special := g.lowerBuiltin(e, id.Value); special != nil {
			return special
		}

		// Generic call: monomorphize on demand and call the specialization.
		if decl := g.sema.CallTarget(e); decl != nil {
			return g.lowerGenericCall(e, decl)
		}

		// Local closure value shadows a global function name.
		if s := g.lookupSlot(id.Value); s != nil {
			return g.lowerClosureCall(e, g.emitLoad(s.irType, s.addr))
		}

		// Direct call by symbol.
		return g.callDirect(e, id.Value)
	}

	// Method or extension call: obj.m(args).
	if member, ok := e.Callee.(*ast.MemberExpression); ok {
		return g.lowerMethodCall(e, member)
	}

	// Anything else evaluates to a closure value.
	code := g.lowerExpression(e.Callee)
	if code == nil {
		return nil
	}
	return g.lowerClosureCall(e, code)
}

// lowerBuiltin lowers the remaining builtin calls; returns nil to fall
// through.
func (g *Generator) lowerBuiltin(e *ast.CallExpression, name string) ir.Value {
	if g.lookupSlot(name) != nil {
		return nil
	}
	switch name {
	case "len":
		if len(e.Args) != 1 {
			return nil
		}
		obj := g.lowerExpression(e.Args[0])
		if obj == nil {
			return ir.IntConst(0)
		}
		header := ir.StructType("list", ir.I64Type, ir.PtrType)
		lenAddr := g.emitFieldAddr(obj, header, 0)
		return g.emitLoad(ir.I64Type, lenAddr)
	case "to_string":
		if len(e.Args) != 1 {
			return nil
		}
		v := g.lowerExpression(e.Args[0])
		if v == nil {
			return g.stringGlobal("")
		}
		return g.toStringValue(v, e.Args[0].Type())
	case "int_to_string", "float_to_string", "string_concat":
		args := g.lowerArgs(e.Args)
		return g.emitCall(name, ir.PtrType, args...)
	case "panic":
		args := g.lowerArgs(e.Args)
		msg := g.stringGlobal("panic")
		if len(args) > 0 {
			msg = args[0]
		}
		// Panic is a fatal runtime abort; defers do not run.
		g.emitCall("runtime_panic", ir.VoidType, msg)
		if !g.bb.Terminated() {
			g.bb.Term = &ir.Unreachable{}
			g.bb = g.fn.NewBlock("dead")
		}
		return nil
	}
	return nil
}

func (g *Generator) lowerArgs(args []ast.Expression) []ir.Value {
	var vals []ir.Value
	for _, arg := range args {
		if v := g.lowerExpression(arg); v != nil {
			vals = append(vals, v)
		}
	}
	return vals
}

// callDirect lowers a call to a known symbol.
func (g *Generator) callDirect(e *ast.CallExpression, symbol string) ir.Value {
	args := g.lowerArgs(e.Args)
	ret := irType(e.Type())
	return g.resultOrNil(g.emitCall(symbol, ret, args...), ret)
}

func (g *Generator) resultOrNil(v ir.Value, ret ir.Type) ir.Value {
	if ret.Kind == ir.Void {
		return nil
	}
	return v
}

// lowerGenericCall monomorphizes the declaration for the call's inferred
// type arguments and calls the specialization.
func (g *Generator) lowerGenericCall(e *ast.CallExpression, decl *ast.FunctionDeclaration) ir.Value {
	sub := g.sema.CallSubstitution(e)
	name := g.monomorphize(decl, sub)
	args := g.lowerArgs(e.Args)
	ret := irType(e.Type())
	return g.resultOrNil(g.emitCall(name, ret, args...), ret)
}

// lowerMethodCall lowers obj.m(args) to Class_m(obj, args), falling back
// to the extension symbol when the member is not an inherent method.
func (g *Generator) lowerMethodCall(e *ast.CallExpression, member *ast.MemberExpression) ir.Value {
	if id, ok := member.Object.(*ast.Identifier); ok {
		// Variant constructor via qualified name: Option.Some(x).
		if enum := g.sema.Enum(id.Value); enum != nil {
			if _, isVariant := enum.Variants[member.Member]; isVariant {
				payload := g.lowerArgs(e.Args)
				return g.allocVariant(enum, member.Member, payload)
			}
		}
		// Module-qualified function call: M.f(args) / M::f(args). Module
		// names carry the void type in the checked AST.
		if id.Type() == types.VOID && g.lookupSlot(id.Value) == nil {
			return g.callDirect(e, member.Member)
		}
	}

	recv := g.lowerExpression(member.Object)
	if recv == nil {
		return nil
	}
	args := append([]ir.Value{recv}, g.lowerArgs(e.Args)...)
	ret := irType(e.Type())

	name, _ := receiverTypeName(member.Object.Type())
	if info := g.sema.Class(name); info != nil {
		if owner := findMethodOwner(info, member.Member); owner != nil {
			return g.resultOrNil(g.emitCall(methodSymbol(owner.Name, member.Member), ret, args...), ret)
		}
	}
	// Strict fallback: extension function.
	if ext := g.sema.Extensions().Lookup(types.StripNullable(member.Object.Type()), member.Member); ext != nil {
		return g.resultOrNil(g.emitCall(extensionSymbol(ext.Decl), ret, args...), ret)
	}
	return g.resultOrNil(g.emitCall(name+"_"+member.Member, ret, args...), ret)
}

func findMethodOwner(info *semantic.ClassInfo, method string) *semantic.ClassInfo {
	for ; info != nil; info = info.Super {
		if _, ok := info.MethodDecls[method]; ok {
			return info
		}
	}
	return nil
}

// lowerClosureCall invokes a closure value: a heap pair {code, env}. The
// code pointer receives the environment as its first argument, per the
// (code, env) calling convention.
func (g *Generator) lowerClosureCall(e *ast.CallExpression, closure ir.Value) ir.Value {
	pair := ir.StructType("closure", ir.PtrType, ir.PtrType)
	codeAddr := g.emitFieldAddr(closure, pair, 0)
	code := g.emitLoad(ir.PtrType, codeAddr)
	envAddr := g.emitFieldAddr(closure, pair, 1)
	env := g.emitLoad(ir.PtrType, envAddr)

	args := append([]ir.Value{env}, g.lowerArgs(e.Args)...)
	ret := irType(e.Type())
	return g.resultOrNil(g.emitCallIndirect(code, ret, args...), ret)
}
