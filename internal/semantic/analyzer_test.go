package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/lexer"
	"github.com/tocinlang/tocin/internal/parser"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/internal/types"
)

// analyze runs the full front half (lex, parse, check) over one unit.
func analyze(t *testing.T, input string) (*ast.Module, *report.Reporter, *Analyzer) {
	t.Helper()
	reporter := report.New()
	l := lexer.New(input, "test.to", reporter)
	mod := parser.New(l, reporter).ParseModule()
	require.False(t, reporter.HasErrors(), "parse should be clean:\n%s", reporter.Dump())

	a := New(reporter, nil)
	a.Analyze("test", mod)
	return mod, reporter, a
}

func codes(r *report.Reporter, code report.Code) int {
	n := 0
	for _, d := range r.All() {
		if d.Code == code {
			n++
		}
	}
	return n
}

func TestCleanProgramHasAllTypesResolved(t *testing.T) {
	input := `def add(a: int, b: int) -> int:
    return a + b
def main() -> int:
    let x = add(1, 2)
    let s = "hi" + "!"
    let f = 1.5 * 2.0
    if x > 0:
        print(s)
    return x
`
	mod, reporter, _ := analyze(t, input)
	require.False(t, reporter.HasErrors(), "expected clean analysis:\n%s", reporter.Dump())

	// Every expression node carries a resolved type after a clean check.
	ast.Inspect(mod, func(n ast.Node) bool {
		if expr, ok := n.(ast.Expression); ok {
			assert.NotNil(t, expr.Type(), "expression %T %q has no resolved type", expr, expr.String())
		}
		return true
	})
}

func TestLiteralTypes(t *testing.T) {
	input := "let a = 1\nlet b = 1.5\nlet c = 1.5f\nlet d = true\nlet e = \"s\"\n"
	mod, reporter, _ := analyze(t, input)
	require.False(t, reporter.HasErrors(), reporter.Dump())

	wants := []types.Type{types.INT, types.FLOAT64, types.FLOAT32, types.BOOL, types.STRING}
	for i, stmt := range mod.Statements {
		decl := stmt.(*ast.VariableDeclaration)
		assert.True(t, decl.Value.Type().Equals(wants[i]),
			"decl %d type = %v, want %v", i, decl.Value.Type(), wants[i])
	}
}

func TestUndefinedVariable(t *testing.T) {
	_, reporter, _ := analyze(t, "let x = missing\n")
	assert.Equal(t, 1, codes(reporter, report.T002UndefinedVariable), reporter.Dump())
}

func TestRedeclarationInSameScope(t *testing.T) {
	_, reporter, _ := analyze(t, "def f():\n    let x = 1\n    let x = 2\n")
	assert.Equal(t, 1, codes(reporter, report.M001DuplicateDefinition), reporter.Dump())
}

func TestShadowingInNestedScopeIsAllowed(t *testing.T) {
	input := "def f():\n    let x = 1\n    if true:\n        let x = 2\n        print(x)\n"
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

// Spec scenario: nullable propagation.
func TestNullableAssignmentRejected(t *testing.T) {
	input := "let x: int? = nil\nlet y: int = x\n"
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.T001TypeMismatch),
		"want exactly one T001:\n%s", reporter.Dump())
}

func TestNullableElvisAccepted(t *testing.T) {
	input := "let x: int? = nil\nlet y: int = x ?: 0\n"
	mod, reporter, _ := analyze(t, input)
	require.False(t, reporter.HasErrors(), reporter.Dump())

	decl := mod.Statements[1].(*ast.VariableDeclaration)
	assert.True(t, decl.Value.Type().Equals(types.INT),
		"y initializer resolved to %v", decl.Value.Type())
}

func TestNullableMemberAccessRequiresOperator(t *testing.T) {
	input := `class Box:
    v: int
def f(b: Box?):
    print(b.v)
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.T027NullableDeref), reporter.Dump())
}

func TestSafeAccessPropagatesNullability(t *testing.T) {
	input := `class Box:
    v: int
def f(b: Box?) -> int:
    return b?.v ?: 0
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestNotNullAssertStripsNullability(t *testing.T) {
	input := "def f(x: int?) -> int:\n    return x!\n"
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestNotNullOnNonNullableWarns(t *testing.T) {
	input := "def f(x: int) -> int:\n    return x!\n"
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), "a warning must not block compilation")
	warned := false
	for _, d := range reporter.All() {
		if d.Severity == report.Warning && d.Code == report.T027NullableDeref {
			warned = true
		}
	}
	assert.True(t, warned, "expected an unchecked-! warning:\n%s", reporter.Dump())
}

func TestCallArityAndTypes(t *testing.T) {
	base := "def f(a: int, b: string) -> int:\n    return a\n"
	t.Run("arity", func(t *testing.T) {
		_, reporter, _ := analyze(t, base+"f(1)\n")
		assert.Equal(t, 1, codes(reporter, report.T007ArgumentCount), reporter.Dump())
	})
	t.Run("argument type", func(t *testing.T) {
		_, reporter, _ := analyze(t, base+"f(1, 2)\n")
		assert.Equal(t, 1, codes(reporter, report.T001TypeMismatch), reporter.Dump())
	})
	t.Run("not callable", func(t *testing.T) {
		_, reporter, _ := analyze(t, "let x = 1\nx(2)\n")
		assert.Equal(t, 1, codes(reporter, report.T003UndefinedFunction), reporter.Dump())
	})
}

func TestReturnChecking(t *testing.T) {
	t.Run("value from void", func(t *testing.T) {
		_, reporter, _ := analyze(t, "def f():\n    return 1\n")
		assert.Equal(t, 1, codes(reporter, report.T014InvalidReturn), reporter.Dump())
	})
	t.Run("bare from typed", func(t *testing.T) {
		_, reporter, _ := analyze(t, "def f() -> int:\n    return\n")
		assert.Equal(t, 1, codes(reporter, report.T014InvalidReturn), reporter.Dump())
	})
	t.Run("wrong type", func(t *testing.T) {
		_, reporter, _ := analyze(t, "def f() -> int:\n    return \"s\"\n")
		assert.Equal(t, 1, codes(reporter, report.T001TypeMismatch), reporter.Dump())
	})
}

func TestConditionMustBeTruthConvertible(t *testing.T) {
	input := "def g():\n    return\nif g():\n    print(1)\n"
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.T001TypeMismatch), reporter.Dump())
}

func TestAwaitOnlyInAsync(t *testing.T) {
	input := `async def g() -> int:
    return 1
def f() -> int:
    return await g()
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.T026AwaitOutsideAsync), reporter.Dump())
}

func TestAwaitInAsync(t *testing.T) {
	input := `async def g() -> int:
    return 1
async def f() -> int:
    return await g()
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestAsyncFunctionTypeWrapsFuture(t *testing.T) {
	input := `async def g() -> int:
    return 1
def f():
    let fut = g()
    print(1)
`
	mod, reporter, _ := analyze(t, input)
	require.False(t, reporter.HasErrors(), reporter.Dump())

	fn := mod.Statements[1].(*ast.FunctionDeclaration)
	decl := fn.Body.Statements[0].(*ast.VariableDeclaration)
	assert.NotNil(t, types.FutureValue(decl.Value.Type()),
		"calling an async function should yield a Future, got %v", decl.Value.Type())
}

func TestBreakOutsideLoop(t *testing.T) {
	_, reporter, _ := analyze(t, "break\n")
	assert.Equal(t, 1, codes(reporter, report.S011InvalidLoop), reporter.Dump())
}

func TestForInTypesLoopVariable(t *testing.T) {
	input := `def f(items: List<string>):
    for item in items:
        print(item)
    for i in 0..10:
        print(i)
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestGenericCallInference(t *testing.T) {
	input := `def id<T>(x: T) -> T:
    return x
let a: int = id(1)
let b: string = id("s")
`
	mod, reporter, a := analyze(t, input)
	require.False(t, reporter.HasErrors(), reporter.Dump())

	declA := mod.Statements[1].(*ast.VariableDeclaration)
	callA := declA.Value.(*ast.CallExpression)
	subA := a.CallSubstitution(callA)
	require.NotNil(t, subA)
	assert.True(t, subA["T"].Equals(types.INT), "inferred T = %v", subA["T"])

	declB := mod.Statements[2].(*ast.VariableDeclaration)
	callB := declB.Value.(*ast.CallExpression)
	subB := a.CallSubstitution(callB)
	require.NotNil(t, subB)
	assert.True(t, subB["T"].Equals(types.STRING), "inferred T = %v", subB["T"])
}

func TestClassMembersAndMethods(t *testing.T) {
	input := `class Point:
    x: int
    y: int
    def sum(self) -> int:
        return self.x + self.y
def f() -> int:
    let p = new Point(1, 2)
    return p.sum() + p.x
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestUnknownMember(t *testing.T) {
	input := `class Point:
    x: int
def f(p: Point) -> int:
    return p.z
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.T005UndefinedMember), reporter.Dump())
}

func TestInheritanceAssignability(t *testing.T) {
	input := `class Base:
    v: int
class Child(Base):
    w: int
def f(c: Child):
    let b: Base = c
    print(b.v)
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestExtensionFunctionFallback(t *testing.T) {
	input := `class Point:
    x: int
extend Point def doubled(self) -> int:
    return self.x * 2
def f(p: Point) -> int:
    return p.doubled()
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestEmptyListNeedsAnnotation(t *testing.T) {
	_, reporter, _ := analyze(t, "let xs = []\n")
	assert.Equal(t, 1, codes(reporter, report.T009UntypedLiteral), reporter.Dump())
}

func TestEmptyListWithAnnotation(t *testing.T) {
	_, reporter, _ := analyze(t, "let xs: List<int> = []\n")
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestListElementUnification(t *testing.T) {
	_, reporter, _ := analyze(t, "let xs = [1, 2, \"three\"]\n")
	assert.Equal(t, 1, codes(reporter, report.T001TypeMismatch), reporter.Dump())
}

func TestInterpolationRequiresStringConvertible(t *testing.T) {
	input := "def f(n: int) -> string:\n    return `n is ${n}`\n"
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestLambdaInference(t *testing.T) {
	input := `def apply(f: (int) -> int, v: int) -> int:
    return f(v)
let r = apply(lambda (x: int) -> int: x * 2, 3)
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestOperatorOnWrongTypes(t *testing.T) {
	_, reporter, _ := analyze(t, "let v = true + 1\n")
	assert.Equal(t, 1, codes(reporter, report.T006InvalidOperator), reporter.Dump())
}

func TestChannelOps(t *testing.T) {
	input := `def f():
    let ch = new Chan<int>()
    ch <- 1
    let v = <-ch
    print(v)
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestChannelSendTypeMismatch(t *testing.T) {
	input := "def f():\n    let ch = new Chan<int>()\n    ch <- \"s\"\n"
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.T001TypeMismatch), reporter.Dump())
}
