// Package semantic implements name resolution, type checking, null-safety,
// ownership/borrow checking, and pattern-match exhaustiveness for Tocin.
//
// Analysis runs per module, in the dependency order computed by the module
// loader. Declarations are collected in a first pass so bodies can refer
// forward; bodies are checked in a second pass. Every expression node gets
// its resolved type populated; recovery paths use the internal error type,
// which unifies with anything and suppresses cascade diagnostics.
package semantic

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/modules"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/internal/types"
	"github.com/tocinlang/tocin/pkg/token"
)

// ClassInfo is the analyzer's record of a class or struct declaration.
type ClassInfo struct {
	Name           string
	Module         string
	Decl           *ast.ClassDeclaration
	Super          *ClassInfo
	Traits         []string
	TypeParams     []string
	Fields         map[string]types.Type
	FieldOrder     []string
	Methods        map[string]*types.FunctionType
	MethodDecls    map[string]*ast.FunctionDeclaration
	IsStruct       bool
	HasMoveMembers bool
}

// Type returns the canonical type for the class, applying its own type
// parameters for generic classes.
func (c *ClassInfo) Type() types.Type {
	if len(c.TypeParams) == 0 {
		return types.NewNamed(c.Module, c.Name)
	}
	args := make([]types.Type, len(c.TypeParams))
	for i, p := range c.TypeParams {
		args[i] = types.NewParam(p)
	}
	return types.NewGeneric(c.Name, args...)
}

// EnumInfo is the analyzer's record of an enum declaration.
type EnumInfo struct {
	Name         string
	Module       string
	Decl         *ast.EnumDeclaration
	TypeParams   []string
	Variants     map[string][]types.Type
	VariantOrder []string
}

// Type returns the canonical type for the enum.
func (e *EnumInfo) Type() types.Type {
	if len(e.TypeParams) == 0 {
		return types.NewNamed(e.Module, e.Name)
	}
	args := make([]types.Type, len(e.TypeParams))
	for i, p := range e.TypeParams {
		args[i] = types.NewParam(p)
	}
	return types.NewGeneric(e.Name, args...)
}

// TraitInfo is the analyzer's record of a trait or interface declaration.
type TraitInfo struct {
	Name        string
	Module      string
	Decl        *ast.TraitDeclaration
	Signatures  map[string]*types.FunctionType
	IsInterface bool
}

// Analyzer threads the checking state through the AST traversal.
type Analyzer struct {
	reporter *report.Reporter
	loader   *modules.Loader

	scope         *Scope // current frame; parent chain reaches module scope
	moduleScope   *Scope
	currentModule string
	moduleScopes  map[string]*Scope // finished module scopes, for M::x lookup

	classes       map[string]*ClassInfo
	enums         map[string]*EnumInfo
	traits        map[string]*TraitInfo
	variantOwners map[string]*EnumInfo      // variant name -> defining enum
	impls         map[string]map[string]bool // type name -> implemented traits
	extensions    *ExtensionRegistry

	currentReturn types.Type
	currentClass  *ClassInfo
	inAsync       bool
	loopDepth     int

	movedReported map[*SymbolInfo]bool
	builtins      map[string]*SymbolInfo

	// callSubs records the inferred generic substitution at each call
	// site; lowering uses it to drive monomorphization.
	callSubs map[*ast.CallExpression]types.Substitution
	// callTargets records the resolved generic declaration per call site.
	callTargets map[*ast.CallExpression]*ast.FunctionDeclaration
}

// New creates an Analyzer. The loader may be nil for single-unit analysis.
func New(reporter *report.Reporter, loader *modules.Loader) *Analyzer {
	a := &Analyzer{
		reporter:      reporter,
		loader:        loader,
		moduleScopes:  map[string]*Scope{},
		classes:       map[string]*ClassInfo{},
		enums:         map[string]*EnumInfo{},
		traits:        map[string]*TraitInfo{},
		variantOwners: map[string]*EnumInfo{},
		impls:         map[string]map[string]bool{},
		extensions:    NewExtensionRegistry(),
		movedReported: map[*SymbolInfo]bool{},
		callSubs:      map[*ast.CallExpression]types.Substitution{},
		callTargets:   map[*ast.CallExpression]*ast.FunctionDeclaration{},
	}
	a.declareBuiltins()
	return a
}

// CallSubstitution returns the generic substitution inferred for a call
// site, or nil.
func (a *Analyzer) CallSubstitution(call *ast.CallExpression) types.Substitution {
	return a.callSubs[call]
}

// CallTarget returns the generic declaration a call site resolved to, or
// nil for non-generic calls.
func (a *Analyzer) CallTarget(call *ast.CallExpression) *ast.FunctionDeclaration {
	return a.callTargets[call]
}

// Class returns the class record for a name, or nil.
func (a *Analyzer) Class(name string) *ClassInfo { return a.classes[name] }

// Enum returns the enum record for a name, or nil.
func (a *Analyzer) Enum(name string) *EnumInfo { return a.enums[name] }

// VariantOwner returns the enum defining a variant name, or nil.
func (a *Analyzer) VariantOwner(variant string) *EnumInfo { return a.variantOwners[variant] }

// Extensions returns the extension-function registry.
func (a *Analyzer) Extensions() *ExtensionRegistry { return a.extensions }

// Analyze checks one module. Call in dependency order; later modules see
// the exports of earlier ones.
func (a *Analyzer) Analyze(name string, mod *ast.Module) {
	a.currentModule = name
	a.moduleScope = NewScope(nil)
	a.scope = a.moduleScope
	a.moduleScopes[name] = a.moduleScope

	a.collectDeclarations(mod)
	a.bindImports(mod)
	a.checkBodies(mod)
}

// AnalyzeProgram checks every module in the loader's dependency order,
// rooted at the named main module.
func (a *Analyzer) AnalyzeProgram(root string) {
	if a.loader == nil {
		return
	}
	for _, rec := range a.loader.CheckOrder(root) {
		a.Analyze(rec.Name, rec.Module)
		rec.Compiled = true
	}
}

// collectDeclarations registers top-level names so bodies can refer
// forward. Duplicate names in the module scope report M001.
func (a *Analyzer) collectDeclarations(mod *ast.Module) {
	for _, stmt := range mod.Statements {
		switch d := stmt.(type) {
		case *ast.ClassDeclaration:
			a.collectClass(d)
		case *ast.EnumDeclaration:
			a.collectEnum(d)
		case *ast.TraitDeclaration:
			a.collectTrait(d)
		}
	}
	// Functions second: signatures may reference the types above.
	for _, stmt := range mod.Statements {
		if d, ok := stmt.(*ast.FunctionDeclaration); ok {
			if d.Receiver != nil {
				a.collectExtension(d)
				continue
			}
			a.collectFunction(d)
		}
	}
	for _, stmt := range mod.Statements {
		if d, ok := stmt.(*ast.ImplDeclaration); ok {
			a.collectImpl(d)
		}
	}
}

func (a *Analyzer) declareDuplicate(name string, pos token.Position) {
	a.reporter.Reportf(report.M001DuplicateDefinition, pos, report.Error,
		"%q is already declared in this scope", name)
}

func (a *Analyzer) collectClass(d *ast.ClassDeclaration) {
	info := &ClassInfo{
		Name:        d.Name.Value,
		Module:      a.currentModule,
		Decl:        d,
		Fields:      map[string]types.Type{},
		Methods:     map[string]*types.FunctionType{},
		MethodDecls: map[string]*ast.FunctionDeclaration{},
		IsStruct:    d.IsStruct,
	}
	for _, tp := range d.TypeParams {
		info.TypeParams = append(info.TypeParams, tp.Name)
	}
	a.classes[d.Name.Value] = info

	sym := &SymbolInfo{Name: d.Name.Value, Kind: ClassSymbol, Type: info.Type(), Decl: d}
	if !a.moduleScope.Declare(sym) {
		a.declareDuplicate(d.Name.Value, d.Pos())
	}
}

func (a *Analyzer) collectEnum(d *ast.EnumDeclaration) {
	info := &EnumInfo{
		Name:     d.Name.Value,
		Module:   a.currentModule,
		Decl:     d,
		Variants: map[string][]types.Type{},
	}
	for _, tp := range d.TypeParams {
		info.TypeParams = append(info.TypeParams, tp.Name)
	}
	a.enums[d.Name.Value] = info

	sym := &SymbolInfo{Name: d.Name.Value, Kind: EnumSymbol, Type: info.Type(), Decl: d}
	if !a.moduleScope.Declare(sym) {
		a.declareDuplicate(d.Name.Value, d.Pos())
	}
}

func (a *Analyzer) collectTrait(d *ast.TraitDeclaration) {
	info := &TraitInfo{
		Name:        d.Name.Value,
		Module:      a.currentModule,
		Decl:        d,
		Signatures:  map[string]*types.FunctionType{},
		IsInterface: d.IsInterface,
	}
	a.traits[d.Name.Value] = info

	sym := &SymbolInfo{Name: d.Name.Value, Kind: TraitSymbol, Type: types.NewNamed(a.currentModule, d.Name.Value), Decl: d}
	if !a.moduleScope.Declare(sym) {
		a.declareDuplicate(d.Name.Value, d.Pos())
	}
}

func (a *Analyzer) collectFunction(d *ast.FunctionDeclaration) {
	ft := a.functionType(d)
	sym := &SymbolInfo{Name: d.Name.Value, Kind: FuncSymbol, Type: ft, Decl: d}
	if !a.moduleScope.Declare(sym) {
		a.declareDuplicate(d.Name.Value, d.Pos())
	}
}

func (a *Analyzer) collectExtension(d *ast.FunctionDeclaration) {
	recv := a.resolveTypeExpr(d.Receiver)
	ft := a.functionType(d)
	if !a.extensions.Register(recv, d.Name.Value, d, ft) {
		a.reporter.Reportf(report.M001DuplicateDefinition, d.Pos(), report.Error,
			"extension function %q already defined for type %s", d.Name.Value, recv)
	}
}

func (a *Analyzer) collectImpl(d *ast.ImplDeclaration) {
	traitType := a.resolveTypeExpr(d.Trait)
	targetType := a.resolveTypeExpr(d.Target)
	traitName := traitType.String()
	targetName := targetType.String()

	if a.impls[targetName] == nil {
		a.impls[targetName] = map[string]bool{}
	}
	a.impls[targetName][traitName] = true
}

// functionType computes a declaration's type with the declaration's own
// type parameters in scope. Async functions expose Future<R> to callers.
func (a *Analyzer) functionType(d *ast.FunctionDeclaration) *types.FunctionType {
	if len(d.TypeParams) > 0 {
		names := make([]string, len(d.TypeParams))
		for i, tp := range d.TypeParams {
			names[i] = tp.Name
		}
		var ft *types.FunctionType
		a.withTypeParams(names, func() {
			ft = a.signatureType(d)
		})
		return ft
	}
	return a.signatureType(d)
}

func (a *Analyzer) signatureType(d *ast.FunctionDeclaration) *types.FunctionType {
	var params []types.Type
	for _, p := range d.Params {
		if p.Name == "self" {
			continue
		}
		var t types.Type = types.ERROR
		if p.TypeAnn != nil {
			t = a.resolveTypeExpr(p.TypeAnn)
		}
		if p.Moved {
			t = types.NewRef(t)
		}
		params = append(params, t)
	}
	var ret types.Type = types.VOID
	if d.ReturnAnn != nil {
		ret = a.resolveTypeExpr(d.ReturnAnn)
	}
	if d.IsAsync {
		ret = types.NewFuture(ret)
	}
	return types.NewFunction(params, ret)
}

// resolveTypeExpr converts syntactic type annotations into canonical types.
// Unknown names report T004.
func (a *Analyzer) resolveTypeExpr(te ast.TypeExpr) types.Type {
	switch t := te.(type) {
	case nil:
		return types.ERROR
	case *ast.NamedTypeExpr:
		return a.resolveNamedType(t)
	case *ast.FunctionTypeExpr:
		params := make([]types.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = a.resolveTypeExpr(p)
		}
		return types.NewFunction(params, a.resolveTypeExpr(t.Return))
	case *ast.NullableTypeExpr:
		return types.NewNullable(a.resolveTypeExpr(t.Base))
	case *ast.UnionTypeExpr:
		alts := make([]types.Type, len(t.Alts))
		for i, alt := range t.Alts {
			alts[i] = a.resolveTypeExpr(alt)
		}
		return types.NewUnion(alts...)
	case *ast.RefTypeExpr:
		return types.NewRef(a.resolveTypeExpr(t.Base))
	}
	return types.ERROR
}

func (a *Analyzer) resolveNamedType(t *ast.NamedTypeExpr) types.Type {
	if t.Name == "<error>" {
		return types.ERROR
	}

	// Qualified reference: resolve through the module's export set.
	if t.Module != "" {
		if a.loader != nil {
			rec := a.loader.Table(t.Module)
			if rec == nil {
				a.reporter.Reportf(report.T004UndefinedType, t.Pos(), report.Error,
					"unknown module %q", t.Module)
				return types.ERROR
			}
			if _, ok := rec.Exports[t.Name]; !ok {
				a.reporter.Reportf(report.T004UndefinedType, t.Pos(), report.Error,
					"module %q does not export %q", t.Module, t.Name)
				return types.ERROR
			}
		}
		return types.NewNamed(t.Module, t.Name)
	}

	if len(t.Args) > 0 {
		args := make([]types.Type, len(t.Args))
		for i, arg := range t.Args {
			args[i] = a.resolveTypeExpr(arg)
		}
		return types.NewGeneric(t.Name, args...)
	}

	if basic := types.LookupBasic(t.Name); basic != nil {
		return basic
	}

	if sym := a.scope.Resolve(t.Name); sym != nil {
		switch sym.Kind {
		case ClassSymbol, EnumSymbol, TraitSymbol:
			return types.NewNamed("", t.Name)
		case TypeParamSymbol:
			return types.NewParam(t.Name)
		}
	}

	// Library generics used without arguments still name real types.
	switch t.Name {
	case types.OptionName, types.ResultName, types.FutureName,
		types.ListName, types.MapName, types.ChanName:
		return types.NewNamed("", t.Name)
	}

	a.reporter.Reportf(report.T004UndefinedType, t.Pos(), report.Error,
		"unknown type %q", t.Name)
	return types.ERROR
}

// bindImports brings imported names into the module scope and makes module
// names available for qualified access.
func (a *Analyzer) bindImports(mod *ast.Module) {
	if a.loader == nil {
		return
	}
	for _, stmt := range mod.Statements {
		imp, ok := stmt.(*ast.ImportStatement)
		if !ok {
			continue
		}
		rec := a.loader.Table(imp.Module)
		if rec == nil || a.loader.Failed(imp.Module) {
			continue // loader already reported M002/M004
		}

		if len(imp.Symbols) == 0 {
			sym := &SymbolInfo{Name: imp.Module, Kind: ModuleSymbol, Type: types.VOID, Decl: imp}
			if !a.moduleScope.Declare(sym) {
				a.declareDuplicate(imp.Module, imp.Pos())
			}
			continue
		}

		depScope := a.moduleScopes[imp.Module]
		for _, s := range imp.Symbols {
			if _, exported := rec.Exports[s.Name]; !exported {
				a.reporter.Reportf(report.M009InvalidImportPath, imp.Pos(), report.Error,
					"module %q does not export %q", imp.Module, s.Name)
				continue
			}
			local := s.Name
			if s.Alias != "" {
				local = s.Alias
			}
			var imported *SymbolInfo
			if depScope != nil {
				imported = depScope.ResolveLocal(s.Name)
			}
			if imported == nil {
				continue
			}
			clone := *imported
			clone.Name = local
			clone.Own = NewOwnershipInfo(local)
			if !a.moduleScope.Declare(&clone) {
				a.declareDuplicate(local, imp.Pos())
			}
		}
	}
}

// oracle adapts the analyzer's declaration tables to the types package.
type oracle struct{ a *Analyzer }

func (o oracle) IsSubtype(sub, super types.Type) bool {
	subName, ok := typeName(sub)
	if !ok {
		return false
	}
	superName, ok := typeName(super)
	if !ok {
		return false
	}
	for info := o.a.classes[subName]; info != nil; info = info.Super {
		if info.Name == superName {
			return true
		}
	}
	return false
}

func (o oracle) Implements(t, trait types.Type) bool {
	traitName, ok := typeName(trait)
	if !ok {
		return false
	}
	if _, isTrait := o.a.traits[traitName]; !isTrait {
		return false
	}
	name, ok := typeName(t)
	if !ok {
		return false
	}
	// Declared impl blocks, then traits named on the class header, then
	// supertypes.
	for info := o.a.classes[name]; info != nil; info = info.Super {
		if o.a.impls[info.Name][traitName] {
			return true
		}
		for _, tr := range info.Traits {
			if tr == traitName {
				return true
			}
		}
	}
	return o.a.impls[name][traitName]
}

func typeName(t types.Type) (string, bool) {
	switch tt := t.(type) {
	case *types.NamedType:
		return tt.Name, true
	case *types.GenericType:
		return tt.Name, true
	}
	return "", false
}

// assignable wraps types.AssignableTo with the analyzer's oracle.
func (a *Analyzer) assignable(from, to types.Type) bool {
	return types.AssignableTo(from, to, oracle{a})
}

// declareBuiltins seeds the runtime surface the compiler pre-declares.
func (a *Analyzer) declareBuiltins() {
	a.builtin("print", types.NewFunction([]types.Type{types.STRING}, types.VOID))
	a.builtin("to_string", types.NewFunction([]types.Type{types.NewParam("T")}, types.STRING))
	a.builtin("int_to_string", types.NewFunction([]types.Type{types.INT}, types.STRING))
	a.builtin("float_to_string", types.NewFunction([]types.Type{types.FLOAT64}, types.STRING))
	a.builtin("string_concat", types.NewFunction([]types.Type{types.STRING, types.STRING}, types.STRING))
	a.builtin("len", types.NewFunction([]types.Type{types.NewParam("T")}, types.INT))
	a.builtin("panic", types.NewFunction([]types.Type{types.STRING}, types.VOID))

	// Option/Result constructors.
	a.builtinVariants()
}

func (a *Analyzer) builtin(name string, ft *types.FunctionType) {
	if a.builtins == nil {
		a.builtins = map[string]*SymbolInfo{}
	}
	a.builtins[name] = &SymbolInfo{Name: name, Kind: FuncSymbol, Type: ft}
}

func (a *Analyzer) builtinVariants() {
	option := &EnumInfo{
		Name:       types.OptionName,
		TypeParams: []string{"T"},
		Variants: map[string][]types.Type{
			"Some": {types.NewParam("T")},
			"None": {},
		},
		VariantOrder: []string{"Some", "None"},
	}
	result := &EnumInfo{
		Name:       types.ResultName,
		TypeParams: []string{"T", "E"},
		Variants: map[string][]types.Type{
			"Ok":  {types.NewParam("T")},
			"Err": {types.NewParam("E")},
		},
		VariantOrder: []string{"Ok", "Err"},
	}
	a.enums[types.OptionName] = option
	a.enums[types.ResultName] = result
	for _, v := range option.VariantOrder {
		a.variantOwners[v] = option
	}
	for _, v := range result.VariantOrder {
		a.variantOwners[v] = result
	}
}

// resolveName looks a name up in the scope chain, falling back to the
// builtin table.
func (a *Analyzer) resolveName(name string) *SymbolInfo {
	if sym := a.scope.Resolve(name); sym != nil {
		return sym
	}
	return a.builtins[name]
}
