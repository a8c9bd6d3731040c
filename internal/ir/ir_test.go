package ir

import (
	"reflect"
	"strings"
	"testing"
)

func TestTypeStrings(t *testing.T) {
	tests := []struct {
		typ      Type
		expected string
	}{
		{VoidType, "void"},
		{I1Type, "i1"},
		{I32Type, "i32"},
		{I64Type, "i64"},
		{F32Type, "f32"},
		{F64Type, "f64"},
		{PtrType, "ptr"},
		{StructType("", I64Type, PtrType), "{i64, ptr}"},
		{StructType("list", I64Type, PtrType), "%list"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestInstrRendering(t *testing.T) {
	a := IntConst(1)
	b := IntConst(2)
	add := &Instr{ID: 0, Op: OpAdd, Typ: I64Type, Args: []Value{a, b}}
	if got := add.String(); got != "%0 = add 1, 2" {
		t.Errorf("add = %q", got)
	}

	cmp := &Instr{ID: 1, Op: OpICmp, Typ: I1Type, Cond: "lt", Args: []Value{add, b}}
	if got := cmp.String(); got != "%1 = icmp lt %0, 2" {
		t.Errorf("icmp = %q", got)
	}

	store := &Instr{ID: -1, Op: OpStore, Typ: VoidType, Args: []Value{a, add}}
	if got := store.String(); got != "store 1, %0" {
		t.Errorf("store = %q", got)
	}

	call := &Instr{ID: 2, Op: OpCall, Typ: PtrType, Callee: "malloc", Args: []Value{IntConst(8)}}
	if got := call.String(); got != "%2 = call ptr @malloc 8" {
		t.Errorf("call = %q", got)
	}
}

// Element types travel on the operations, never on pointer operands.
func TestOpaquePointerContract(t *testing.T) {
	alloca := &Instr{ID: 0, Op: OpAlloca, Typ: PtrType, Elem: I64Type}
	if !reflect.DeepEqual(alloca.Type(), PtrType) {
		t.Error("alloca result must be an opaque ptr")
	}
	if !strings.Contains(alloca.String(), "i64") {
		t.Error("alloca must carry its element type")
	}

	load := &Instr{ID: 1, Op: OpLoad, Typ: I64Type, Elem: I64Type, Args: []Value{alloca}}
	if !strings.Contains(load.String(), "i64") {
		t.Error("load must carry its element type")
	}

	field := &Instr{ID: 2, Op: OpField, Typ: PtrType, Elem: StructType("list", I64Type, PtrType), FieldIndex: 1, Args: []Value{alloca}}
	if !strings.Contains(field.String(), "#1") {
		t.Errorf("fieldaddr must carry the field index: %s", field)
	}
}

func TestFunctionBlocksAndDump(t *testing.T) {
	m := &Module{Name: "test"}
	m.Extern("print", []Type{PtrType}, VoidType)
	g := m.AddGlobal(&Global{GlobalName: "str0", Init: "hello", Typ: PtrType})

	fn := &Function{FuncName: "main", RetType: I32Type}
	entry := fn.NewBlock("entry")
	call := &Instr{ID: fn.NextReg(), Op: OpCall, Typ: VoidType, Callee: "print", Args: []Value{g}}
	entry.Instrs = append(entry.Instrs, call)
	entry.Term = &Ret{Value: I32Const(0)}
	m.Functions = append(m.Functions, fn)

	dump := m.Dump()
	for _, want := range []string{
		"module test",
		`global @str0 = "hello"`,
		"declare void @print(ptr %a0)",
		"define i32 @main()",
		"call void @print @str0",
		"ret i32 0",
	} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump missing %q:\n%s", want, dump)
		}
	}
}

func TestExternDeclaredOnce(t *testing.T) {
	m := &Module{}
	m.Extern("malloc", []Type{I64Type}, PtrType)
	m.Extern("malloc", []Type{I64Type}, PtrType)
	if len(m.Externs) != 1 {
		t.Errorf("extern declared %d times, want 1", len(m.Externs))
	}
}

func TestBlockNamesUnique(t *testing.T) {
	fn := &Function{FuncName: "f"}
	a := fn.NewBlock("then")
	b := fn.NewBlock("then")
	if a.BlockName == b.BlockName {
		t.Errorf("block names collide: %q", a.BlockName)
	}
}

func TestTerminators(t *testing.T) {
	tests := []struct {
		term     Terminator
		expected string
	}{
		{&Br{Dest: "cond0"}, "br %cond0"},
		{&CondBr{Cond: BoolConst(true), Then: "a", Else: "b"}, "condbr 1, %a, %b"},
		{&Ret{}, "ret void"},
		{&Ret{Value: IntConst(3)}, "ret i64 3"},
		{&Unreachable{}, "unreachable"},
	}
	for _, tt := range tests {
		if got := tt.term.termString(); got != tt.expected {
			t.Errorf("termString() = %q, want %q", got, tt.expected)
		}
	}
}
