package types

// Option<T> and Result<T, E> are library sum types the checker knows about:
// match exhaustiveness requires Some/None and Ok/Err respectively.

const (
	OptionName = "Option"
	ResultName = "Result"
	FutureName = "Future"
	ListName   = "List"
	MapName    = "Map"
	ChanName   = "Chan"
)

// NewOption builds Option<value>.
func NewOption(value Type) *GenericType { return NewGeneric(OptionName, value) }

// IsOption reports whether t is an Option application.
func IsOption(t Type) bool {
	g, ok := t.(*GenericType)
	return ok && g.Name == OptionName && len(g.Args) == 1
}

// OptionValue returns T in Option<T>, or nil.
func OptionValue(t Type) Type {
	if g, ok := t.(*GenericType); ok && g.Name == OptionName && len(g.Args) == 1 {
		return g.Args[0]
	}
	return nil
}

// NewResult builds Result<value, err>.
func NewResult(value, err Type) *GenericType { return NewGeneric(ResultName, value, err) }

// IsResult reports whether t is a Result application.
func IsResult(t Type) bool {
	g, ok := t.(*GenericType)
	return ok && g.Name == ResultName && len(g.Args) == 2
}

// NewFuture builds Future<value>, the type of async function results.
func NewFuture(value Type) *GenericType { return NewGeneric(FutureName, value) }

// FutureValue returns T in Future<T>, or nil.
func FutureValue(t Type) Type {
	if g, ok := t.(*GenericType); ok && g.Name == FutureName && len(g.Args) == 1 {
		return g.Args[0]
	}
	return nil
}

// NewList builds List<elem>.
func NewList(elem Type) *GenericType { return NewGeneric(ListName, elem) }

// ListElem returns T in List<T>, or nil.
func ListElem(t Type) Type {
	if g, ok := t.(*GenericType); ok && g.Name == ListName && len(g.Args) == 1 {
		return g.Args[0]
	}
	return nil
}

// NewMap builds Map<key, value>.
func NewMap(key, value Type) *GenericType { return NewGeneric(MapName, key, value) }

// NewChan builds Chan<elem>, the channel type.
func NewChan(elem Type) *GenericType { return NewGeneric(ChanName, elem) }

// ChanElem returns T in Chan<T>, or nil.
func ChanElem(t Type) Type {
	if g, ok := t.(*GenericType); ok && g.Name == ChanName && len(g.Args) == 1 {
		return g.Args[0]
	}
	return nil
}
