// Package types defines the Tocin type representation: a structural sum
// with canonicalizing factories, substitution for generic instantiation,
// and the assignability relation.
package types

import (
	"strings"
	"sync"
)

// Type is the interface implemented by all type representations.
type Type interface {
	// String returns the canonical source-level rendering of the type.
	String() string

	// TypeKind returns the coarse kind tag for diagnostics and dispatch.
	TypeKind() string

	// Equals reports structural equality modulo type-parameter renaming.
	Equals(other Type) bool
}

// BasicKind enumerates the primitive types.
type BasicKind int

const (
	KindInt BasicKind = iota
	KindFloat32
	KindFloat64
	KindBool
	KindString
	KindVoid
	KindNil
	KindError // internal recovery type; unifies with anything
)

// BasicType is a primitive type. The package-level singletons are the only
// instances; compare by pointer or Equals.
type BasicType struct {
	kind BasicKind
	name string
}

// Canonical primitive singletons.
var (
	INT     = &BasicType{KindInt, "int"}
	FLOAT32 = &BasicType{KindFloat32, "float32"}
	FLOAT64 = &BasicType{KindFloat64, "float64"}
	BOOL    = &BasicType{KindBool, "bool"}
	STRING  = &BasicType{KindString, "string"}
	VOID    = &BasicType{KindVoid, "void"}
	NIL     = &BasicType{KindNil, "nil"}
	ERROR   = &BasicType{KindError, "<error>"}
)

func (b *BasicType) String() string  { return b.name }
func (b *BasicType) Kind() BasicKind { return b.kind }

func (b *BasicType) TypeKind() string {
	switch b.kind {
	case KindInt:
		return "INT"
	case KindFloat32:
		return "FLOAT32"
	case KindFloat64:
		return "FLOAT64"
	case KindBool:
		return "BOOL"
	case KindString:
		return "STRING"
	case KindVoid:
		return "VOID"
	case KindNil:
		return "NIL"
	}
	return "ERROR"
}

func (b *BasicType) Equals(other Type) bool { return equals(b, other, nil) }

// LookupBasic resolves a primitive type name, or nil.
func LookupBasic(name string) *BasicType {
	switch name {
	case "int":
		return INT
	case "float32":
		return FLOAT32
	case "float64", "float":
		return FLOAT64
	case "bool":
		return BOOL
	case "string":
		return STRING
	case "void":
		return VOID
	case "nil":
		return NIL
	}
	return nil
}

// NamedType references a user declaration (class, struct, enum, trait) by
// qualified name.
type NamedType struct {
	Module string // defining module, "" for the current unit
	Name   string
}

func (n *NamedType) String() string {
	if n.Module != "" {
		return n.Module + "::" + n.Name
	}
	return n.Name
}

func (n *NamedType) TypeKind() string        { return "NAMED" }
func (n *NamedType) Equals(other Type) bool  { return equals(n, other, nil) }
func (n *NamedType) Qualified() string       { return n.String() }

// GenericType is a generic application Name<T1, ..., Tn>.
type GenericType struct {
	Name string
	Args []Type
}

func (g *GenericType) String() string {
	parts := make([]string, len(g.Args))
	for i, a := range g.Args {
		parts[i] = a.String()
	}
	return g.Name + "<" + strings.Join(parts, ", ") + ">"
}

func (g *GenericType) TypeKind() string       { return "GENERIC" }
func (g *GenericType) Equals(other Type) bool { return equals(g, other, nil) }

// FunctionType is (P1, ..., Pn) -> R.
type FunctionType struct {
	Params []Type
	Return Type
}

func (f *FunctionType) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, ", ") + ") -> " + f.Return.String()
}

func (f *FunctionType) TypeKind() string       { return "FUNCTION" }
func (f *FunctionType) Equals(other Type) bool { return equals(f, other, nil) }

// UnionType is an unordered set of alternatives. Construction sorts and
// flattens, so equal sets render identically.
type UnionType struct {
	Alts []Type
}

func (u *UnionType) String() string {
	parts := make([]string, len(u.Alts))
	for i, a := range u.Alts {
		parts[i] = a.String()
	}
	return strings.Join(parts, " | ")
}

func (u *UnionType) TypeKind() string       { return "UNION" }
func (u *UnionType) Equals(other Type) bool { return equals(u, other, nil) }

// NullableType wraps a base type: T?.
type NullableType struct {
	Base Type
}

func (n *NullableType) String() string        { return n.Base.String() + "?" }
func (n *NullableType) TypeKind() string      { return "NULLABLE" }
func (n *NullableType) Equals(other Type) bool { return equals(n, other, nil) }

// RefType is an rvalue reference T&&: the callee takes ownership of a
// movable temporary.
type RefType struct {
	Base Type
}

func (r *RefType) String() string        { return r.Base.String() + "&&" }
func (r *RefType) TypeKind() string      { return "RVALUE_REF" }
func (r *RefType) Equals(other Type) bool { return equals(r, other, nil) }

// ParamType is a type parameter bound to a named slot in a generic scope.
type ParamType struct {
	Name string
}

func (p *ParamType) String() string        { return p.Name }
func (p *ParamType) TypeKind() string      { return "PARAM" }
func (p *ParamType) Equals(other Type) bool { return equals(p, other, nil) }

// equals implements structural equality. env maps type-parameter names on
// the left to the names they must correspond to on the right, making
// equality hold modulo parameter renaming.
func equals(a, b Type, env map[string]string) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch at := a.(type) {
	case *BasicType:
		bt, ok := b.(*BasicType)
		return ok && at.kind == bt.kind
	case *NamedType:
		bt, ok := b.(*NamedType)
		return ok && at.Module == bt.Module && at.Name == bt.Name
	case *GenericType:
		bt, ok := b.(*GenericType)
		if !ok || at.Name != bt.Name || len(at.Args) != len(bt.Args) {
			return false
		}
		for i := range at.Args {
			if !equals(at.Args[i], bt.Args[i], env) {
				return false
			}
		}
		return true
	case *FunctionType:
		bt, ok := b.(*FunctionType)
		if !ok || len(at.Params) != len(bt.Params) {
			return false
		}
		for i := range at.Params {
			if !equals(at.Params[i], bt.Params[i], env) {
				return false
			}
		}
		return equals(at.Return, bt.Return, env)
	case *UnionType:
		bt, ok := b.(*UnionType)
		if !ok || len(at.Alts) != len(bt.Alts) {
			return false
		}
		// Alternatives are canonically ordered by construction.
		for i := range at.Alts {
			if !equals(at.Alts[i], bt.Alts[i], env) {
				return false
			}
		}
		return true
	case *NullableType:
		bt, ok := b.(*NullableType)
		return ok && equals(at.Base, bt.Base, env)
	case *RefType:
		bt, ok := b.(*RefType)
		return ok && equals(at.Base, bt.Base, env)
	case *ParamType:
		bt, ok := b.(*ParamType)
		if !ok {
			return false
		}
		if env == nil {
			return at.Name == bt.Name
		}
		if mapped, seen := env[at.Name]; seen {
			return mapped == bt.Name
		}
		env[at.Name] = bt.Name
		return true
	}
	return false
}

// AlphaEquivalent reports equality treating type parameters as renameable:
// <T>(T) -> T equals <U>(U) -> U.
func AlphaEquivalent(a, b Type) bool {
	return equals(a, b, map[string]string{})
}

// Compound-type memoization. Structural identity is keyed by the canonical
// rendering, so repeated constructions share one value.
var (
	internMu sync.Mutex
	interned = map[string]Type{}
)

func canon(key string, build func() Type) Type {
	internMu.Lock()
	defer internMu.Unlock()
	if t, ok := interned[key]; ok {
		return t
	}
	t := build()
	interned[key] = t
	return t
}

// NewNamed returns the canonical named type for a qualified name.
func NewNamed(module, name string) *NamedType {
	t := canon("named:"+module+"::"+name, func() Type {
		return &NamedType{Module: module, Name: name}
	})
	return t.(*NamedType)
}

// NewGeneric returns the canonical generic application Name<args...>.
func NewGeneric(name string, args ...Type) *GenericType {
	g := &GenericType{Name: name, Args: args}
	return canon("generic:"+g.String(), func() Type { return g }).(*GenericType)
}

// NewFunction returns the canonical function type.
func NewFunction(params []Type, ret Type) *FunctionType {
	if ret == nil {
		ret = VOID
	}
	f := &FunctionType{Params: params, Return: ret}
	return canon("func:"+f.String(), func() Type { return f }).(*FunctionType)
}

// NewUnion returns the canonical union of the alternatives: flattened,
// deduplicated, and sorted. A single remaining alternative is returned
// unwrapped.
func NewUnion(alts ...Type) Type {
	flat := make([]Type, 0, len(alts))
	var flatten func(ts []Type)
	flatten = func(ts []Type) {
		for _, t := range ts {
			if u, ok := t.(*UnionType); ok {
				flatten(u.Alts)
				continue
			}
			flat = append(flat, t)
		}
	}
	flatten(alts)

	seen := map[string]bool{}
	uniq := flat[:0]
	for _, t := range flat {
		if !seen[t.String()] {
			seen[t.String()] = true
			uniq = append(uniq, t)
		}
	}
	if len(uniq) == 1 {
		return uniq[0]
	}
	sortTypes(uniq)
	u := &UnionType{Alts: uniq}
	return canon("union:"+u.String(), func() Type { return u })
}

// NewNullable wraps base in a nullable; already-nullable types and nil are
// returned unchanged.
func NewNullable(base Type) Type {
	if _, ok := base.(*NullableType); ok {
		return base
	}
	if base == NIL {
		return base
	}
	n := &NullableType{Base: base}
	return canon("nullable:"+n.String(), func() Type { return n })
}

// NewRef wraps base in an rvalue reference.
func NewRef(base Type) *RefType {
	r := &RefType{Base: base}
	return canon("ref:"+r.String(), func() Type { return r }).(*RefType)
}

// NewParam returns the canonical type parameter for a name.
func NewParam(name string) *ParamType {
	return canon("param:"+name, func() Type { return &ParamType{Name: name} }).(*ParamType)
}

func sortTypes(ts []Type) {
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].String() < ts[j-1].String(); j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}

// IsError reports whether t is the internal recovery type.
func IsError(t Type) bool {
	b, ok := t.(*BasicType)
	return ok && b.kind == KindError
}

// IsNullable reports whether t admits nil.
func IsNullable(t Type) bool {
	if t == NIL {
		return true
	}
	_, ok := t.(*NullableType)
	return ok
}

// StripNullable removes one level of nullability.
func StripNullable(t Type) Type {
	if n, ok := t.(*NullableType); ok {
		return n.Base
	}
	return t
}

// IsNumeric reports whether t is int, float32, or float64.
func IsNumeric(t Type) bool {
	b, ok := t.(*BasicType)
	if !ok {
		return false
	}
	return b.kind == KindInt || b.kind == KindFloat32 || b.kind == KindFloat64
}
