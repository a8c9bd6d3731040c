package semantic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tocinlang/tocin/internal/report"
)

// Spec scenario: non-exhaustive Option match names the missing witness.
func TestNonExhaustiveOptionMatch(t *testing.T) {
	input := `def f(v: Option<int>):
    match v:
        case Some(x): print(x)
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.P001NonExhaustiveMatch), reporter.Dump())

	found := false
	for _, d := range reporter.All() {
		if d.Code == report.P001NonExhaustiveMatch && strings.Contains(d.Message, "None") {
			found = true
		}
	}
	assert.True(t, found, "P001 should name the witness None:\n%s", reporter.Dump())
}

func TestExhaustiveOptionMatch(t *testing.T) {
	input := `def f(v: Option<int>):
    match v:
        case Some(x): print(x)
        case None: print(0)
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestResultRequiresOkAndErr(t *testing.T) {
	input := `def f(v: Result<int, string>):
    match v:
        case Ok(x): print(x)
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.P001NonExhaustiveMatch), reporter.Dump())
}

func TestWildcardMakesExhaustive(t *testing.T) {
	input := `def f(v: Option<int>):
    match v:
        case Some(x): print(x)
        default: print(0)
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestUserEnumExhaustiveness(t *testing.T) {
	base := `enum Color:
    Red
    Green
    Blue
`
	t.Run("missing variant", func(t *testing.T) {
		input := base + `def f(c: Color):
    match c:
        case Red: print(1)
        case Green: print(2)
`
		_, reporter, _ := analyze(t, input)
		assert.Equal(t, 1, codes(reporter, report.P001NonExhaustiveMatch), reporter.Dump())
	})
	t.Run("all variants", func(t *testing.T) {
		input := base + `def f(c: Color):
    match c:
        case Red: print(1)
        case Green: print(2)
        case Blue: print(3)
`
		_, reporter, _ := analyze(t, input)
		assert.False(t, reporter.HasErrors(), reporter.Dump())
	})
}

func TestUnreachableArmWarns(t *testing.T) {
	input := `def f(v: Option<int>):
    match v:
        case Some(x): print(x)
        default: print(0)
        case None: print(1)
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.P002UnreachableArm), reporter.Dump())
	assert.False(t, reporter.HasErrors(), "P002 is a warning, not an error")
}

func TestDuplicateVariantArmWarns(t *testing.T) {
	input := `def f(v: Option<int>):
    match v:
        case Some(x): print(x)
        case Some(y): print(y)
        case None: print(0)
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.P002UnreachableArm), reporter.Dump())
}

func TestBoolExhaustiveness(t *testing.T) {
	t.Run("both literals", func(t *testing.T) {
		input := `def f(b: bool):
    match b:
        case true: print(1)
        case false: print(0)
`
		_, reporter, _ := analyze(t, input)
		assert.False(t, reporter.HasErrors(), reporter.Dump())
	})
	t.Run("missing false", func(t *testing.T) {
		input := `def f(b: bool):
    match b:
        case true: print(1)
`
		_, reporter, _ := analyze(t, input)
		assert.Equal(t, 1, codes(reporter, report.P001NonExhaustiveMatch), reporter.Dump())
	})
}

func TestIntMatchNeedsWildcard(t *testing.T) {
	input := `def f(n: int):
    match n:
        case 1: print(1)
        case 2: print(2)
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.P001NonExhaustiveMatch), reporter.Dump())
}

func TestGuardedArmDoesNotCover(t *testing.T) {
	input := `def f(v: Option<int>):
    match v:
        case Some(x) if x > 0: print(x)
        case Some(x): print(0)
        case None: print(1)
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestConstructorPatternArity(t *testing.T) {
	input := `def f(v: Option<int>):
    match v:
        case Some(a, b): print(a)
        case None: print(0)
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.T007ArgumentCount), reporter.Dump())
}

func TestPatternBindingsTyped(t *testing.T) {
	input := `def f(v: Option<string>):
    match v:
        case Some(s): print(s + "!")
        case None: print("none")
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestOrPatternBindingsMustAgree(t *testing.T) {
	input := `enum E:
    A(int)
    B(string)
def f(v: E):
    match v:
        case A(x) | B(x): print(1)
        default: print(0)
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.T001TypeMismatch), reporter.Dump())
}

func TestRangePattern(t *testing.T) {
	input := `def f(n: int):
    match n:
        case 0..10: print(1)
        default: print(0)
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestNilLiteralPatternOnNullable(t *testing.T) {
	input := `def f(v: int?):
    match v:
        case nil: print(0)
        default: print(1)
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestMatchExpressionUnifiesArms(t *testing.T) {
	input := `def f(v: Option<int>) -> int:
    let r = match v:
        case Some(x): x
        case None: 0
    return r
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}
