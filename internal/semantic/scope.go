package semantic

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/types"
)

// SymbolKind classifies a scope entry.
type SymbolKind int

const (
	VarSymbol SymbolKind = iota
	FuncSymbol
	ClassSymbol
	EnumSymbol
	TraitSymbol
	ModuleSymbol
	TypeParamSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case VarSymbol:
		return "variable"
	case FuncSymbol:
		return "function"
	case ClassSymbol:
		return "class"
	case EnumSymbol:
		return "enum"
	case TraitSymbol:
		return "trait"
	case ModuleSymbol:
		return "module"
	}
	return "type parameter"
}

// SymbolInfo is one scope entry: the declaration, its type, mutability, and
// the ownership record tracked by the borrow checker.
type SymbolInfo struct {
	Name    string
	Kind    SymbolKind
	Type    types.Type
	Mutable bool
	Decl    ast.Node
	Own     *OwnershipInfo
}

// Scope is one frame of the lexical scope stack.
type Scope struct {
	parent  *Scope
	names   map[string]*SymbolInfo
	ordered []*SymbolInfo // declaration order, for drop sequencing
}

// NewScope creates a frame nested in parent (nil for the module scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, names: map[string]*SymbolInfo{}}
}

// Declare adds a name to this frame. Returns false when the name is
// already declared in the same frame.
func (s *Scope) Declare(sym *SymbolInfo) bool {
	if _, exists := s.names[sym.Name]; exists {
		return false
	}
	if sym.Own == nil {
		sym.Own = NewOwnershipInfo(sym.Name)
	}
	s.names[sym.Name] = sym
	s.ordered = append(s.ordered, sym)
	return true
}

// Resolve walks frames outward looking for a name.
func (s *Scope) Resolve(name string) *SymbolInfo {
	for frame := s; frame != nil; frame = frame.parent {
		if sym, ok := frame.names[name]; ok {
			return sym
		}
	}
	return nil
}

// ResolveLocal looks only in this frame.
func (s *Scope) ResolveLocal(name string) *SymbolInfo {
	return s.names[name]
}

// Owned returns this frame's symbols in declaration order; drops run in
// reverse of this.
func (s *Scope) Owned() []*SymbolInfo { return s.ordered }

// Parent returns the enclosing frame.
func (s *Scope) Parent() *Scope { return s.parent }
