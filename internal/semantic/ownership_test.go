package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tocinlang/tocin/internal/report"
)

// Spec scenario: move-then-use yields exactly one B001 and the checker
// still processes the statement list to completion.
func TestMoveThenUse(t *testing.T) {
	input := `def make_string() -> string:
    return "s"
def main() -> int:
    let a = make_string()
    let b = a
    print(a)
    return 0
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.B001UseAfterMove),
		"want exactly one B001:\n%s", reporter.Dump())
}

func TestExplicitMove(t *testing.T) {
	input := `def f():
    let a = "s"
    let b = move a
    print(a)
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.B001UseAfterMove), reporter.Dump())
}

func TestMoveOfCopyableIsRejected(t *testing.T) {
	input := "def f():\n    let a = 1\n    let b = move a\n    print(b)\n"
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.B006InvalidMoveSource), reporter.Dump())
}

func TestScalarsCopyInsteadOfMove(t *testing.T) {
	input := `def f():
    let a = 1
    let b = a
    print(a)
    print(b)
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestReassignmentRestoresOwnership(t *testing.T) {
	input := `def f():
    let a = "one"
    let b = a
    a = "two"
    print(a)
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestConstCannotBeAssigned(t *testing.T) {
	input := "const c = 1\nc = 2\n"
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.B005ImmutableMutation), reporter.Dump())
}

func TestRvalueRefParameterMovesAtCallSite(t *testing.T) {
	input := `def take(s: string&&):
    print(s)
def f():
    let a = "s"
    take(a)
    print(a)
`
	_, reporter, _ := analyze(t, input)
	assert.Equal(t, 1, codes(reporter, report.B001UseAfterMove),
		"passing to a T&& parameter moves the argument:\n%s", reporter.Dump())
}

func TestPlainParameterBorrows(t *testing.T) {
	input := `def show(s: string):
    print(s)
def f():
    let a = "s"
    show(a)
    show(a)
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(),
		"plain parameters borrow; repeated use is fine:\n%s", reporter.Dump())
}

func TestReturnMovesToCaller(t *testing.T) {
	input := `def pass(s: string) -> string:
    return s
def f():
    let a = "s"
    print(pass(a))
`
	_, reporter, _ := analyze(t, input)
	assert.False(t, reporter.HasErrors(), reporter.Dump())
}

func TestOwnershipInfoTransitions(t *testing.T) {
	o := NewOwnershipInfo("x")
	require.Equal(t, Owned, o.State)

	// Many immutable borrows coexist.
	assert.True(t, o.Borrow("a"))
	assert.True(t, o.Borrow("b"))
	assert.Equal(t, Borrowed, o.State)
	assert.Equal(t, 2, o.BorrowCount)

	// A mutable borrow is exclusive.
	assert.False(t, o.BorrowMut("c"))

	o.Return("a")
	o.Return("b")
	assert.Equal(t, Owned, o.State)

	assert.True(t, o.BorrowMut("c"))
	assert.Equal(t, MutableBorrowed, o.State)
	assert.False(t, o.Borrow("d"), "immutable borrow denied while mutably borrowed")

	o.Return("c")
	assert.Equal(t, Owned, o.State)
}

func TestGeneratedMoveMembers(t *testing.T) {
	input := `class Holder:
    name: string
    count: int
class Plain:
    count: int
`
	_, reporter, a := analyze(t, input)
	require.False(t, reporter.HasErrors(), reporter.Dump())
	assert.True(t, a.Class("Holder").HasMoveMembers,
		"a class with a movable field synthesizes move members")
	assert.False(t, a.Class("Plain").HasMoveMembers,
		"all-scalar classes copy")
}
