package types

// SubtypeOracle answers declaration-level questions the structural rules
// cannot: user-type inheritance and trait implementation. The semantic
// analyzer supplies one backed by its class and impl tables; a nil oracle
// makes those rules answer false.
type SubtypeOracle interface {
	// IsSubtype reports whether sub inherits (transitively) from super.
	IsSubtype(sub, super Type) bool

	// Implements reports whether t implements the named trait.
	Implements(t Type, trait Type) bool
}

// AssignableTo reports whether a value of type from may be assigned to a
// location of type to. The oracle may be nil.
//
// Rules, in order: identical canonical types; error-type recovery; nil into
// nullable; T into T?; float32 into float64 (the only implicit numeric
// widening: int↔float conversions are always explicit); union on the right;
// generic applications with equal base and pairwise-assignable arguments;
// function types (contravariant parameters, covariant return); declared
// inheritance or trait bounds via the oracle.
func AssignableTo(from, to Type, oracle SubtypeOracle) bool {
	if from == nil || to == nil {
		return false
	}
	if IsError(from) || IsError(to) {
		return true
	}
	if from.Equals(to) {
		return true
	}

	// Rvalue references are assignment-transparent.
	if r, ok := from.(*RefType); ok {
		return AssignableTo(r.Base, to, oracle)
	}
	if r, ok := to.(*RefType); ok {
		return AssignableTo(from, r.Base, oracle)
	}

	// nil into any nullable.
	if from == NIL {
		return IsNullable(to)
	}

	// T into T?. The reverse requires a not-null assertion.
	if nt, ok := to.(*NullableType); ok {
		return AssignableTo(from, nt.Base, oracle)
	}

	// float32 widens to float64.
	if from == FLOAT32 && to == FLOAT64 {
		return true
	}

	// Union on the right: assignable to any alternative.
	if ut, ok := to.(*UnionType); ok {
		for _, alt := range ut.Alts {
			if AssignableTo(from, alt, oracle) {
				return true
			}
		}
		return false
	}
	// Union on the left: every alternative must be assignable.
	if ut, ok := from.(*UnionType); ok {
		for _, alt := range ut.Alts {
			if !AssignableTo(alt, to, oracle) {
				return false
			}
		}
		return true
	}

	// Generic applications are invariant in their arguments unless the
	// arguments themselves are assignable pairwise.
	if gf, ok := from.(*GenericType); ok {
		if gt, ok := to.(*GenericType); ok && gf.Name == gt.Name && len(gf.Args) == len(gt.Args) {
			for i := range gf.Args {
				if !AssignableTo(gf.Args[i], gt.Args[i], oracle) {
					return false
				}
			}
			return true
		}
	}

	// Function types: contravariant parameters, covariant return.
	if ff, ok := from.(*FunctionType); ok {
		if ft, ok := to.(*FunctionType); ok {
			if len(ff.Params) != len(ft.Params) {
				return false
			}
			for i := range ff.Params {
				if !AssignableTo(ft.Params[i], ff.Params[i], oracle) {
					return false
				}
			}
			return AssignableTo(ff.Return, ft.Return, oracle)
		}
	}

	// Declared inheritance and trait bounds.
	if oracle != nil {
		if oracle.IsSubtype(from, to) {
			return true
		}
		if oracle.Implements(from, to) {
			return true
		}
	}
	return false
}

// TruthConvertible reports whether t can appear as a condition: bool,
// numeric (nonzero is true), or nullable/pointer-like (non-null is true).
func TruthConvertible(t Type) bool {
	if t == nil {
		return false
	}
	if IsError(t) {
		return true
	}
	if b, ok := t.(*BasicType); ok {
		switch b.kind {
		case KindBool, KindInt, KindFloat32, KindFloat64, KindNil:
			return true
		}
		return false
	}
	if IsNullable(t) {
		return true
	}
	switch t.(type) {
	case *NamedType, *GenericType:
		return true // class references compare against nil
	}
	return false
}

// StringConvertible reports whether t can be embedded in a template
// literal.
func StringConvertible(t Type) bool {
	if t == nil {
		return false
	}
	if IsError(t) {
		return true
	}
	if b, ok := t.(*BasicType); ok {
		return b.kind != KindVoid
	}
	return true // user types go through to_string
}
