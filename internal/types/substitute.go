package types

// Substitution maps type-parameter names to concrete types. It is the sole
// mechanism for generic instantiation.
type Substitution map[string]Type

// Substitute rewrites type-parameter leaves of t according to the map. The
// function is pure; unmapped parameters are left in place, so substitution
// is idempotent on closed types.
func Substitute(t Type, sub Substitution) Type {
	if t == nil || len(sub) == 0 {
		return t
	}
	switch tt := t.(type) {
	case *BasicType, *NamedType:
		return t
	case *ParamType:
		if mapped, ok := sub[tt.Name]; ok {
			return mapped
		}
		return t
	case *GenericType:
		args := make([]Type, len(tt.Args))
		changed := false
		for i, a := range tt.Args {
			args[i] = Substitute(a, sub)
			changed = changed || args[i] != a
		}
		if !changed {
			return t
		}
		return NewGeneric(tt.Name, args...)
	case *FunctionType:
		params := make([]Type, len(tt.Params))
		changed := false
		for i, p := range tt.Params {
			params[i] = Substitute(p, sub)
			changed = changed || params[i] != p
		}
		ret := Substitute(tt.Return, sub)
		if !changed && ret == tt.Return {
			return t
		}
		return NewFunction(params, ret)
	case *UnionType:
		alts := make([]Type, len(tt.Alts))
		changed := false
		for i, a := range tt.Alts {
			alts[i] = Substitute(a, sub)
			changed = changed || alts[i] != a
		}
		if !changed {
			return t
		}
		return NewUnion(alts...)
	case *NullableType:
		base := Substitute(tt.Base, sub)
		if base == tt.Base {
			return t
		}
		return NewNullable(base)
	case *RefType:
		base := Substitute(tt.Base, sub)
		if base == tt.Base {
			return t
		}
		return NewRef(base)
	}
	return t
}

// FreeParams collects the names of unbound type parameters in t.
func FreeParams(t Type) []string {
	seen := map[string]bool{}
	var names []string
	var walk func(Type)
	walk = func(t Type) {
		switch tt := t.(type) {
		case *ParamType:
			if !seen[tt.Name] {
				seen[tt.Name] = true
				names = append(names, tt.Name)
			}
		case *GenericType:
			for _, a := range tt.Args {
				walk(a)
			}
		case *FunctionType:
			for _, p := range tt.Params {
				walk(p)
			}
			walk(tt.Return)
		case *UnionType:
			for _, a := range tt.Alts {
				walk(a)
			}
		case *NullableType:
			walk(tt.Base)
		case *RefType:
			walk(tt.Base)
		}
	}
	if t != nil {
		walk(t)
	}
	return names
}

// IsClosed reports whether t contains no free type parameters.
func IsClosed(t Type) bool { return len(FreeParams(t)) == 0 }
