package parser

import (
	"strings"
	"testing"

	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/lexer"
	"github.com/tocinlang/tocin/internal/report"
)

func TestRecoveryContinuesPastBadStatement(t *testing.T) {
	input := "let = 1\nlet y = 2\n"
	mod, reporter := parse(t, input)
	if !reporter.HasErrors() {
		t.Fatal("expected a syntax error")
	}
	// The second declaration must survive recovery.
	found := false
	for _, stmt := range mod.Statements {
		if d, ok := stmt.(*ast.VariableDeclaration); ok && d.Name != nil && d.Name.Value == "y" {
			found = true
		}
	}
	if !found {
		t.Errorf("recovery lost the following statement; got %v", mod.Statements)
	}
}

func TestRecoveryAccumulatesMultipleErrors(t *testing.T) {
	input := "let = 1\nlet = 2\nlet ok = 3\n"
	_, reporter := parse(t, input)
	errs := 0
	for _, d := range reporter.All() {
		if d.Severity >= report.Error {
			errs++
		}
	}
	if errs < 2 {
		t.Errorf("expected at least two accumulated errors, got %d:\n%s", errs, reporter.Dump())
	}
}

func TestMissingParenRecovery(t *testing.T) {
	input := "let v = f(1, 2\nlet w = 3\n"
	mod, reporter := parse(t, input)
	if !reporter.HasErrors() {
		t.Fatal("expected a missing-paren diagnostic")
	}
	if len(mod.Statements) == 0 {
		t.Error("partial AST should still be produced")
	}
}

func TestExpressionStatementValidation(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"f(x)\n", true},
		{"x = 1\n", true},
		{"x += 1\n", true},
		{"x++\n", true},
		{"ch <- 1\n", true},
		{"1 + 2\n", false},
		{"x\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, reporter := parse(t, tt.input)
			hasS004 := false
			for _, d := range reporter.All() {
				if d.Code == report.S004InvalidStatement {
					hasS004 = true
				}
			}
			if hasS004 == tt.valid {
				t.Errorf("S004 reported = %v for %q", hasS004, tt.input)
			}
		})
	}
}

func TestInvalidAssignTarget(t *testing.T) {
	_, reporter := parse(t, "1 = 2\n")
	found := false
	for _, d := range reporter.All() {
		if d.Code == report.S005InvalidAssignTarget {
			found = true
		}
	}
	if !found {
		t.Errorf("expected S005, got:\n%s", reporter.Dump())
	}
}

func TestErrorCircuitBreaker(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("let = 1\n")
	}
	reporter := report.New()
	l := lexer.New(sb.String(), "breaker.to", reporter)
	p := New(l, reporter, WithMaxErrors(10))
	p.ParseModule()
	if !reporter.HasFatal() {
		t.Errorf("expected the circuit breaker to go fatal:\n%s", reporter.Dump())
	}
	hasS021 := false
	for _, d := range reporter.All() {
		if d.Code == report.S021TooManyErrors {
			hasS021 = true
		}
	}
	if !hasS021 {
		t.Error("expected S021 from the circuit breaker")
	}
}

// Every parsed node carries a real source position.
func TestAllNodesHavePositions(t *testing.T) {
	input := `def f(a: int) -> int:
    let x = a * 2
    if x > 1:
        return x
    return 0
class C:
    v: int
match y:
    case 1: f(1)
    default: f(0)
`
	mod, _ := parse(t, input)
	ast.Inspect(mod, func(n ast.Node) bool {
		if _, isModule := n.(*ast.Module); isModule {
			return true
		}
		if !n.Pos().IsValid() {
			t.Errorf("node %T has no position", n)
		}
		return true
	})
}
