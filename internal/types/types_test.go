package types

import (
	"testing"
)

func TestBasicTypes(t *testing.T) {
	tests := []struct {
		name     string
		typ      Type
		expected string
		kind     string
	}{
		{"Int", INT, "int", "INT"},
		{"Float32", FLOAT32, "float32", "FLOAT32"},
		{"Float64", FLOAT64, "float64", "FLOAT64"},
		{"Bool", BOOL, "bool", "BOOL"},
		{"String", STRING, "string", "STRING"},
		{"Void", VOID, "void", "VOID"},
		{"Nil", NIL, "nil", "NIL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.typ.String() != tt.expected {
				t.Errorf("String() = %v, want %v", tt.typ.String(), tt.expected)
			}
			if tt.typ.TypeKind() != tt.kind {
				t.Errorf("TypeKind() = %v, want %v", tt.typ.TypeKind(), tt.kind)
			}
		})
	}
}

func TestEquality(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Type
		expected bool
	}{
		{"int equals int", INT, INT, true},
		{"int not float", INT, FLOAT64, false},
		{"named equal", NewNamed("", "Point"), NewNamed("", "Point"), true},
		{"named module distinct", NewNamed("a", "P"), NewNamed("b", "P"), false},
		{"generic equal", NewList(INT), NewList(INT), true},
		{"generic arg differs", NewList(INT), NewList(STRING), false},
		{"nullable equal", NewNullable(INT), NewNullable(INT), true},
		{"nullable vs base", NewNullable(INT), INT, false},
		{"function equal",
			NewFunction([]Type{INT, STRING}, BOOL),
			NewFunction([]Type{INT, STRING}, BOOL), true},
		{"function arity differs",
			NewFunction([]Type{INT}, BOOL),
			NewFunction([]Type{INT, INT}, BOOL), false},
		{"union order irrelevant",
			NewUnion(INT, STRING),
			NewUnion(STRING, INT), true},
		{"ref equal", NewRef(STRING), NewRef(STRING), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equals(tt.b); got != tt.expected {
				t.Errorf("Equals() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAlphaEquivalence(t *testing.T) {
	// <T>(T) -> T equals <U>(U) -> U modulo parameter renaming.
	f1 := NewFunction([]Type{NewParam("T")}, NewParam("T"))
	f2 := NewFunction([]Type{NewParam("U")}, NewParam("U"))
	if !AlphaEquivalent(f1, f2) {
		t.Error("expected alpha-equivalent function types to compare equal")
	}

	// (T) -> U is not (T) -> T.
	f3 := NewFunction([]Type{NewParam("T")}, NewParam("U"))
	if AlphaEquivalent(f1, f3) {
		t.Error("(T) -> T should not equal (T) -> U")
	}
}

func TestCanonicalInterning(t *testing.T) {
	if NewNamed("", "X") != NewNamed("", "X") {
		t.Error("named types should be interned")
	}
	if NewGeneric("List", INT) != NewGeneric("List", INT) {
		t.Error("generic applications should be interned")
	}
	if NewParam("T") != NewParam("T") {
		t.Error("type parameters should be interned")
	}
}

func TestUnionCanonicalization(t *testing.T) {
	u := NewUnion(STRING, INT, INT)
	ut, ok := u.(*UnionType)
	if !ok {
		t.Fatalf("NewUnion returned %T", u)
	}
	if len(ut.Alts) != 2 {
		t.Errorf("union alts = %d, want 2 after dedup", len(ut.Alts))
	}
	if single := NewUnion(INT, INT); single != INT {
		t.Errorf("single-alternative union should unwrap, got %v", single)
	}
	// Nested unions flatten.
	nested := NewUnion(INT, NewUnion(STRING, BOOL))
	if nt, ok := nested.(*UnionType); !ok || len(nt.Alts) != 3 {
		t.Errorf("nested union should flatten to 3 alts, got %v", nested)
	}
}

func TestSubstitution(t *testing.T) {
	sub := Substitution{"T": INT}

	tests := []struct {
		name     string
		input    Type
		expected Type
	}{
		{"param leaf", NewParam("T"), INT},
		{"unmapped param", NewParam("U"), NewParam("U")},
		{"generic", NewList(NewParam("T")), NewList(INT)},
		{"function",
			NewFunction([]Type{NewParam("T")}, NewParam("T")),
			NewFunction([]Type{INT}, INT)},
		{"nullable", NewNullable(NewParam("T")), NewNullable(INT)},
		{"closed untouched", NewList(STRING), NewList(STRING)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Substitute(tt.input, sub)
			if !got.Equals(tt.expected) {
				t.Errorf("Substitute() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// Substitution is idempotent on closed types.
func TestSubstitutionIdempotent(t *testing.T) {
	sub := Substitution{"T": INT, "U": STRING}
	closed := []Type{
		INT,
		NewList(STRING),
		NewFunction([]Type{BOOL}, NewNullable(INT)),
		NewMap(STRING, NewList(FLOAT64)),
	}
	for _, c := range closed {
		once := Substitute(c, sub)
		twice := Substitute(once, sub)
		if !once.Equals(twice) || !once.Equals(c) {
			t.Errorf("substitution not idempotent on closed type %v", c)
		}
	}
}

func TestFreeParams(t *testing.T) {
	open := NewFunction([]Type{NewParam("T")}, NewList(NewParam("U")))
	free := FreeParams(open)
	if len(free) != 2 {
		t.Errorf("FreeParams = %v, want [T U]", free)
	}
	if !IsClosed(NewList(INT)) {
		t.Error("List<int> should be closed")
	}
	if IsClosed(open) {
		t.Error("open type should not be closed")
	}
}

func TestAssignability(t *testing.T) {
	tests := []struct {
		name     string
		from, to Type
		expected bool
	}{
		{"identical", INT, INT, true},
		{"nil to nullable", NIL, NewNullable(INT), true},
		{"nil to non-nullable", NIL, INT, false},
		{"base to nullable", INT, NewNullable(INT), true},
		{"nullable to base", NewNullable(INT), INT, false},
		{"float widening", FLOAT32, FLOAT64, true},
		{"no float narrowing", FLOAT64, FLOAT32, false},
		{"int to float is explicit", INT, FLOAT64, false},
		{"float to int is explicit", FLOAT64, INT, false},
		{"union right", INT, NewUnion(INT, STRING), true},
		{"union right miss", BOOL, NewUnion(INT, STRING), false},
		{"union left", NewUnion(INT, FLOAT32), FLOAT64, false},
		{"generic same args", NewList(INT), NewList(INT), true},
		{"generic arg mismatch", NewList(INT), NewList(STRING), false},
		{"generic nullable arg", NewList(INT), NewList(NewNullable(INT)), true},
		{"function covariant return",
			NewFunction([]Type{INT}, FLOAT32),
			NewFunction([]Type{INT}, FLOAT64), true},
		{"function contravariant param",
			NewFunction([]Type{NewNullable(INT)}, BOOL),
			NewFunction([]Type{INT}, BOOL), true},
		{"function param not covariant",
			NewFunction([]Type{INT}, BOOL),
			NewFunction([]Type{NewNullable(INT)}, BOOL), false},
		{"error unifies", ERROR, INT, true},
		{"error unifies right", INT, ERROR, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AssignableTo(tt.from, tt.to, nil); got != tt.expected {
				t.Errorf("AssignableTo(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestTruthConvertible(t *testing.T) {
	truthy := []Type{BOOL, INT, FLOAT64, NewNullable(STRING), NewNamed("", "C"), NIL}
	for _, typ := range truthy {
		if !TruthConvertible(typ) {
			t.Errorf("%v should be truth-convertible", typ)
		}
	}
	if TruthConvertible(VOID) {
		t.Error("void should not be truth-convertible")
	}
}

func TestOptionResultHelpers(t *testing.T) {
	opt := NewOption(INT)
	if !IsOption(opt) {
		t.Error("Option<int> should satisfy IsOption")
	}
	if OptionValue(opt) != INT {
		t.Errorf("OptionValue = %v", OptionValue(opt))
	}
	if IsOption(NewList(INT)) {
		t.Error("List<int> is not an Option")
	}

	res := NewResult(INT, STRING)
	if !IsResult(res) {
		t.Error("Result<int, string> should satisfy IsResult")
	}

	fut := NewFuture(BOOL)
	if FutureValue(fut) != BOOL {
		t.Errorf("FutureValue = %v", FutureValue(fut))
	}
	if ChanElem(NewChan(INT)) != INT {
		t.Error("ChanElem should recover the element type")
	}
}

func TestNullableHelpers(t *testing.T) {
	n := NewNullable(INT)
	if !IsNullable(n) {
		t.Error("int? should be nullable")
	}
	if StripNullable(n) != INT {
		t.Error("StripNullable should unwrap one level")
	}
	if NewNullable(n) != n {
		t.Error("nullable wrapping should be idempotent")
	}
	if !IsNullable(NIL) {
		t.Error("nil is nullable")
	}
}
