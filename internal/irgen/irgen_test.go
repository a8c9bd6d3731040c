package irgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tocinlang/tocin/internal/ir"
	"github.com/tocinlang/tocin/internal/lexer"
	"github.com/tocinlang/tocin/internal/parser"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/internal/semantic"
	"github.com/tocinlang/tocin/internal/types"
)

// lower runs the full pipeline over one unit and returns the IR module.
func lower(t *testing.T, input string) *ir.Module {
	t.Helper()
	reporter := report.New()
	l := lexer.New(input, "test.to", reporter)
	mod := parser.New(l, reporter).ParseModule()
	require.False(t, reporter.HasErrors(), "parse:\n%s", reporter.Dump())

	sema := semantic.New(reporter, nil)
	sema.Analyze("test", mod)
	require.False(t, reporter.HasErrors(), "check:\n%s", reporter.Dump())

	gen := New(reporter, sema)
	irMod := gen.Generate("test", mod)
	require.False(t, reporter.HasErrors(), "lower:\n%s", reporter.Dump())
	return irMod
}

// Spec scenario: hello world produces a main that calls print with the
// global string and returns a 32-bit zero.
func TestHelloWorld(t *testing.T) {
	input := `def main() -> int:
    print("hello")
    return 0
`
	m := lower(t, input)
	main := m.Lookup("main")
	require.NotNil(t, main, "IR must contain main")
	assert.Equal(t, ir.I32, main.RetType.Kind, "main returns the i32 exit code")

	dump := m.Dump()
	assert.Contains(t, dump, `"hello"`)
	assert.Contains(t, dump, "@print")
	assert.Contains(t, dump, "ret i32 0")
}

func TestSynthesizedMainWithoutUserMain(t *testing.T) {
	m := lower(t, "let x = 1\nprint(\"hi\")\n")
	main := m.Lookup("main")
	require.NotNil(t, main, "a main must be synthesized when absent")
	assert.Equal(t, ir.I32, main.RetType.Kind)
	assert.Contains(t, m.Dump(), "ret i32 0")
}

func TestRuntimeSurfaceDeclared(t *testing.T) {
	m := lower(t, "def main() -> int:\n    return 0\n")
	for _, name := range []string{
		"malloc", "free", "printf", "print", "string_concat",
		"int_to_string", "float_to_string", "to_string",
		"Promise_create", "Promise_getFuture", "Future_get",
		"runtime_spawn", "chan_send", "chan_recv", "select_execute",
	} {
		found := false
		for _, ext := range m.Externs {
			if ext.FuncName == name {
				found = true
			}
		}
		assert.True(t, found, "extern %s must be pre-declared", name)
	}
}

func TestIfLowering(t *testing.T) {
	input := `def main() -> int:
    let x = 1
    if x > 0:
        print("pos")
    else:
        print("neg")
    return 0
`
	dump := lower(t, input).Dump()
	assert.Contains(t, dump, "condbr")
	assert.Contains(t, dump, "then")
	assert.Contains(t, dump, "else")
	assert.Contains(t, dump, "merge")
}

func TestWhileLowering(t *testing.T) {
	input := `def main() -> int:
    let i = 0
    while i < 10:
        i = i + 1
    return i
`
	dump := lower(t, input).Dump()
	assert.Contains(t, dump, "cond")
	assert.Contains(t, dump, "body")
	assert.Contains(t, dump, "after")
	assert.Contains(t, dump, "icmp lt")
}

func TestForRangeLowering(t *testing.T) {
	input := `def main() -> int:
    let sum = 0
    for i in 0..10:
        sum = sum + i
    return sum
`
	dump := lower(t, input).Dump()
	assert.Contains(t, dump, "icmp lt", "exclusive range compares with lt")
	assert.Contains(t, dump, "add")
}

// Spec scenario: two instantiations produce two specialized functions and
// no un-specialized generic.
func TestMonomorphization(t *testing.T) {
	input := `def id<T>(x: T) -> T:
    return x
def main() -> int:
    id(1)
    id("s")
    return 0
`
	m := lower(t, input)
	assert.NotNil(t, m.Lookup("id_int"), "missing id_int specialization")
	assert.NotNil(t, m.Lookup("id_string"), "missing id_string specialization")
	assert.Nil(t, m.Lookup("id"), "the generic declaration itself must not be lowered")
}

func TestMonomorphizationDeduplicates(t *testing.T) {
	input := `def id<T>(x: T) -> T:
    return x
def main() -> int:
    id(1)
    id(2)
    id(3)
    return 0
`
	m := lower(t, input)
	count := 0
	for _, f := range m.Functions {
		if f.FuncName == "id_int" {
			count++
		}
	}
	assert.Equal(t, 1, count, "identical type-argument tuples share one specialization")
}

func TestMatchLowering(t *testing.T) {
	input := `def main() -> int:
    let v = Some(1)
    match v:
        case Some(x): print(x)
        case None: print(0)
    return 0
`
	m := lower(t, input)
	dump := m.Dump()
	assert.Contains(t, dump, "arm.body")
	assert.Contains(t, dump, "icmp eq", "variant dispatch compares tags")

	// Every arm-test chain ends in an unreachable unmatched block.
	main := m.Lookup("main")
	require.NotNil(t, main)
	unreachable := false
	for _, b := range main.Blocks {
		if _, ok := b.Term.(*ir.Unreachable); ok {
			unreachable = true
		}
	}
	assert.True(t, unreachable, "the unmatched block is unreachable")
}

func TestClosureLowering(t *testing.T) {
	input := `def main() -> int:
    let n = 10
    let f = lambda (x: int) -> int: x + n
    return f(1)
`
	m := lower(t, input)
	dump := m.Dump()
	var lambdaFn *ir.Function
	for _, f := range m.Functions {
		if strings.HasPrefix(f.FuncName, "lambda") {
			lambdaFn = f
		}
	}
	require.NotNil(t, lambdaFn, "the lambda body must be emitted as a function")
	require.NotEmpty(t, lambdaFn.Params)
	assert.Equal(t, "env", lambdaFn.Params[0].ParamName,
		"closures receive the environment pointer first")
	assert.Contains(t, dump, "malloc", "the environment is heap-allocated")
}

func TestChannelLowering(t *testing.T) {
	input := `def main() -> int:
    let ch = new Chan<int>()
    ch <- 1
    let v = <-ch
    return v
`
	dump := lower(t, input).Dump()
	assert.Contains(t, dump, "@chan_create")
	assert.Contains(t, dump, "@chan_send")
	assert.Contains(t, dump, "@chan_recv")
}

func TestGoLowering(t *testing.T) {
	input := `def worker(n: int):
    print(n)
def main() -> int:
    go worker(1)
    return 0
`
	dump := lower(t, input).Dump()
	assert.Contains(t, dump, "@runtime_spawn")
	assert.Contains(t, dump, "go_thunk")
}

func TestSelectLowering(t *testing.T) {
	input := `def main() -> int:
    let ch = new Chan<int>()
    select:
        case v = <-ch:
            print(v)
        default:
            print(0)
    return 0
`
	dump := lower(t, input).Dump()
	assert.Contains(t, dump, "@select_execute")
	assert.Contains(t, dump, "select.case")
}

func TestAsyncLowering(t *testing.T) {
	input := `async def fetch() -> int:
    return 1
def main() -> int:
    return 0
`
	m := lower(t, input)
	assert.NotNil(t, m.Lookup("fetch"), "async entry emitted")
	assert.NotNil(t, m.Lookup("fetch_driver"), "driver emitted")
	assert.NotNil(t, m.Lookup("fetch_sync"), "synchronous wrapper emitted")

	dump := m.Dump()
	assert.Contains(t, dump, "@Promise_create")
	assert.Contains(t, dump, "@Promise_getFuture")
	assert.Contains(t, dump, "@Future_get")
}

func TestNewAndDeleteLowering(t *testing.T) {
	input := `class Point:
    x: int
    y: int
def main() -> int:
    let p = new Point(1, 2)
    let v = p.x
    delete p
    return v
`
	dump := lower(t, input).Dump()
	assert.Contains(t, dump, "malloc")
	assert.Contains(t, dump, "free")
	assert.Contains(t, dump, "fieldaddr")
}

func TestDeferLowering(t *testing.T) {
	input := `def main() -> int:
    defer print("last")
    print("first")
    return 0
`
	m := lower(t, input)
	main := m.Lookup("main")
	require.NotNil(t, main)

	// Both print calls are lowered, the deferred one included, each with
	// its own string argument.
	var order []string
	for _, b := range main.Blocks {
		for _, ins := range b.Instrs {
			if ins.Op == ir.OpCall && ins.Callee == "print" {
				order = append(order, ins.Args[0].Name())
			}
		}
	}
	require.Len(t, order, 2)
	assert.NotEqual(t, order[0], order[1], "both strings lowered")
}

func TestStringInterpolationLowering(t *testing.T) {
	input := "def main() -> int:\n    print(`n = ${42}`)\n    return 0\n"
	dump := lower(t, input).Dump()
	assert.Contains(t, dump, "@int_to_string")
	assert.Contains(t, dump, "@string_concat")
}

func TestDestructorRunsOnScopeExit(t *testing.T) {
	input := `class File:
    fd: int
    def deinit(self):
        print("closing")
def main() -> int:
    if true:
        let f = new File(1)
        print("open")
    return 0
`
	m := lower(t, input)
	dump := m.Dump()
	assert.Contains(t, dump, "@File_deinit", "owned bindings drop through deinit on scope exit")
}

func TestMangling(t *testing.T) {
	tests := []struct {
		typ      types.Type
		expected string
	}{
		{types.INT, "int"},
		{types.STRING, "string"},
		{types.NewList(types.INT), "List_int"},
		{types.NewNullable(types.INT), "int_opt"},
		{types.NewMap(types.STRING, types.INT), "Map_string_int"},
	}
	for _, tt := range tests {
		if got := mangleType(tt.typ); got != tt.expected {
			t.Errorf("mangleType(%v) = %q, want %q", tt.typ, got, tt.expected)
		}
	}
}
