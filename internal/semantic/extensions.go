package semantic

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/types"
)

// ExtensionRegistry tracks extension functions by receiver type. Lookup is
// a strict fallback: inherent members and supertype members are searched
// first, extensions only when that lookup fails.
type ExtensionRegistry struct {
	byType map[string]map[string]*Extension
}

// Extension is one registered extension function.
type Extension struct {
	Receiver types.Type
	Name     string
	Decl     *ast.FunctionDeclaration
	Type     *types.FunctionType
}

// NewExtensionRegistry creates an empty registry.
func NewExtensionRegistry() *ExtensionRegistry {
	return &ExtensionRegistry{byType: map[string]map[string]*Extension{}}
}

// Register adds an extension function for a receiver type. Returns false
// when the (type, name) pair is already taken.
func (r *ExtensionRegistry) Register(recv types.Type, name string, decl *ast.FunctionDeclaration, ft *types.FunctionType) bool {
	key := recv.String()
	if r.byType[key] == nil {
		r.byType[key] = map[string]*Extension{}
	}
	if _, exists := r.byType[key][name]; exists {
		return false
	}
	r.byType[key][name] = &Extension{Receiver: recv, Name: name, Decl: decl, Type: ft}
	return true
}

// Lookup finds an extension function for the static type of a receiver.
// The receiver's nullability is not stripped: extensions on T? and T are
// distinct.
func (r *ExtensionRegistry) Lookup(recv types.Type, name string) *Extension {
	if recv == nil {
		return nil
	}
	if exts, ok := r.byType[recv.String()]; ok {
		if ext, ok := exts[name]; ok {
			return ext
		}
	}
	// Generic receivers also match their base name: List<int> falls back
	// to an extension registered on List<T>.
	if g, ok := recv.(*types.GenericType); ok {
		for _, exts := range r.byType {
			if ext, ok := exts[name]; ok {
				if base, isGeneric := ext.Receiver.(*types.GenericType); isGeneric && base.Name == g.Name {
					return ext
				}
			}
		}
	}
	return nil
}

// ForType returns all extensions registered for a type rendering.
func (r *ExtensionRegistry) ForType(key string) map[string]*Extension {
	return r.byType[key]
}
