package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/lexer"
	"github.com/tocinlang/tocin/internal/report"
)

func parse(t *testing.T, input string) (*ast.Module, *report.Reporter) {
	t.Helper()
	reporter := report.New()
	l := lexer.New(input, "test.to", reporter)
	p := New(l, reporter)
	return p.ParseModule(), reporter
}

func parseClean(t *testing.T, input string) *ast.Module {
	t.Helper()
	mod, reporter := parse(t, input)
	if reporter.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", reporter.Dump())
	}
	return mod
}

func firstStatement[T ast.Statement](t *testing.T, mod *ast.Module) T {
	t.Helper()
	if len(mod.Statements) == 0 {
		t.Fatal("module has no statements")
	}
	stmt, ok := mod.Statements[0].(T)
	if !ok {
		t.Fatalf("first statement is %T", mod.Statements[0])
	}
	return stmt
}

func TestEmptyModule(t *testing.T) {
	mod := parseClean(t, "")
	if len(mod.Statements) != 0 {
		t.Errorf("empty source should yield an empty module, got %d statements", len(mod.Statements))
	}
}

func TestVariableDeclarations(t *testing.T) {
	tests := []struct {
		input    string
		name     string
		mutable  bool
		hasType  bool
		hasValue bool
	}{
		{"let x = 1\n", "x", true, false, true},
		{"const pi = 3.14\n", "pi", false, false, true},
		{"let y: int = 2\n", "y", true, true, true},
		{"let z: string\n", "z", true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mod := parseClean(t, tt.input)
			decl := firstStatement[*ast.VariableDeclaration](t, mod)
			if decl.Name.Value != tt.name {
				t.Errorf("name = %q, want %q", decl.Name.Value, tt.name)
			}
			if decl.Mutable != tt.mutable {
				t.Errorf("mutable = %v", decl.Mutable)
			}
			if (decl.TypeAnn != nil) != tt.hasType {
				t.Errorf("hasType = %v", decl.TypeAnn != nil)
			}
			if (decl.Value != nil) != tt.hasValue {
				t.Errorf("hasValue = %v", decl.Value != nil)
			}
		})
	}
}

// Precedence is checked through the parenthesized String rendering.
func TestExpressionPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let v = 1 + 2 * 3\n", "(1 + (2 * 3))"},
		{"let v = (1 + 2) * 3\n", "(((1 + 2)) * 3)"},
		{"let v = a + b - c\n", "((a + b) - c)"},
		{"let v = 2 ** 3 ** 2\n", "(2 ** (3 ** 2))"},
		{"let v = -a * b\n", "((-a) * b)"},
		{"let v = !a && b\n", "((!a) && b)"},
		{"let v = a && b || c\n", "((a && b) || c)"},
		{"let v = a == b != c\n", "((a == b) != c)"},
		{"let v = a < b == c > d\n", "((a < b) == (c > d))"},
		{"let v = a | b ^ c & d\n", "(a | (b ^ (c & d)))"},
		{"let v = a << 2 + 1\n", "(a << (2 + 1))"},
		{"let v = a ?? b ?? c\n", "(a ?: (b ?: c))"},
		{"let v = a ?? b ?: c\n", "((a ?: b) ?: c)"},
		{"let v = x ?: 0\n", "(x ?: 0)"},
		{"let v = a.b.c\n", "a.b.c"},
		{"let v = a?.b\n", "a?.b"},
		{"let v = f(x)[0].y\n", "f(x)[0].y"},
		{"let v = a is Foo\n", "(a is Foo)"},
		{"let v = await f()\n", "await f()"},
		{"let v = move a\n", "move a"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mod := parseClean(t, tt.input)
			decl := firstStatement[*ast.VariableDeclaration](t, mod)
			if got := decl.Value.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFunctionDeclaration(t *testing.T) {
	input := "def add(a: int, b: int = 0) -> int:\n    return a + b\n"
	mod := parseClean(t, input)
	fn := firstStatement[*ast.FunctionDeclaration](t, mod)
	if fn.Name.Value != "add" {
		t.Errorf("name = %q", fn.Name.Value)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("params = %d", len(fn.Params))
	}
	if fn.Params[1].Default == nil {
		t.Error("second parameter should carry a default")
	}
	if fn.ReturnAnn == nil || fn.ReturnAnn.String() != "int" {
		t.Errorf("return annotation = %v", fn.ReturnAnn)
	}
	if len(fn.Body.Statements) != 1 {
		t.Errorf("body statements = %d", len(fn.Body.Statements))
	}
}

func TestGenericFunction(t *testing.T) {
	mod := parseClean(t, "def id<T>(x: T) -> T:\n    return x\n")
	fn := firstStatement[*ast.FunctionDeclaration](t, mod)
	if len(fn.TypeParams) != 1 || fn.TypeParams[0].Name != "T" {
		t.Fatalf("type params = %v", fn.TypeParams)
	}
}

func TestAsyncFunction(t *testing.T) {
	mod := parseClean(t, "async def fetch(url: string) -> string:\n    return await get(url)\n")
	fn := firstStatement[*ast.FunctionDeclaration](t, mod)
	if !fn.IsAsync {
		t.Error("IsAsync should be set")
	}
}

func TestMovedParameter(t *testing.T) {
	mod := parseClean(t, "def take(s: string&&):\n    return\n")
	fn := firstStatement[*ast.FunctionDeclaration](t, mod)
	if !fn.Params[0].Moved {
		t.Error("parameter declared T&& should be marked Moved")
	}
}

func TestClassDeclaration(t *testing.T) {
	input := `class Point(Base, Printable):
    x: int
    y: int = 0
    def norm(self) -> int:
        return self.x
`
	mod := parseClean(t, input)
	cls := firstStatement[*ast.ClassDeclaration](t, mod)
	if cls.Name.Value != "Point" {
		t.Errorf("name = %q", cls.Name.Value)
	}
	if cls.Superclass == nil || cls.Superclass.String() != "Base" {
		t.Errorf("superclass = %v", cls.Superclass)
	}
	if len(cls.Traits) != 1 {
		t.Errorf("traits = %d", len(cls.Traits))
	}
	if len(cls.Fields) != 2 || len(cls.Methods) != 1 {
		t.Errorf("fields = %d methods = %d", len(cls.Fields), len(cls.Methods))
	}
	if cls.Fields[1].Default == nil {
		t.Error("field y should carry a default")
	}
}

func TestEnumDeclaration(t *testing.T) {
	input := "enum Shape:\n    Circle(float64)\n    Rect(float64, float64)\n    Empty\n"
	mod := parseClean(t, input)
	en := firstStatement[*ast.EnumDeclaration](t, mod)
	if len(en.Variants) != 3 {
		t.Fatalf("variants = %d", len(en.Variants))
	}
	if len(en.Variants[1].Payload) != 2 {
		t.Errorf("Rect payload = %d", len(en.Variants[1].Payload))
	}
	if len(en.Variants[2].Payload) != 0 {
		t.Errorf("Empty payload = %d", len(en.Variants[2].Payload))
	}
}

func TestTraitAndImpl(t *testing.T) {
	input := `trait Greet:
    def hello(self) -> string
impl Greet for Point:
    def hello(self) -> string:
        return "hi"
`
	mod := parseClean(t, input)
	if len(mod.Statements) != 2 {
		t.Fatalf("statements = %d", len(mod.Statements))
	}
	tr, ok := mod.Statements[0].(*ast.TraitDeclaration)
	if !ok || len(tr.Signatures) != 1 {
		t.Errorf("trait = %v", mod.Statements[0])
	}
	im, ok := mod.Statements[1].(*ast.ImplDeclaration)
	if !ok || len(im.Methods) != 1 {
		t.Errorf("impl = %v", mod.Statements[1])
	}
}

func TestImports(t *testing.T) {
	mod := parseClean(t, "import math\nfrom collections import map_of as mk, set_of\n")
	imp1 := mod.Statements[0].(*ast.ImportStatement)
	if imp1.Module != "math" || len(imp1.Symbols) != 0 {
		t.Errorf("plain import = %v", imp1)
	}
	imp2 := mod.Statements[1].(*ast.ImportStatement)
	want := []ast.ImportSymbol{{Name: "map_of", Alias: "mk"}, {Name: "set_of"}}
	if diff := cmp.Diff(want, imp2.Symbols); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchStatement(t *testing.T) {
	input := `match v:
    case Some(x): print(x)
    case None: print(0)
    default: print(1)
`
	mod := parseClean(t, input)
	m := firstStatement[*ast.MatchStatement](t, mod)
	if len(m.Arms) != 3 {
		t.Fatalf("arms = %d", len(m.Arms))
	}
	if _, ok := m.Arms[0].Pattern.(*ast.ConstructorPattern); !ok {
		t.Errorf("first pattern = %T", m.Arms[0].Pattern)
	}
	if _, ok := m.Arms[2].Pattern.(*ast.WildcardPattern); !ok {
		t.Errorf("default pattern = %T", m.Arms[2].Pattern)
	}
}

func TestConcurrencyStatements(t *testing.T) {
	input := `go worker(1)
ch <- 5
let v = <-ch
select:
    case x = <-ch:
        print(x)
    default:
        print(0)
`
	mod := parseClean(t, input)
	if len(mod.Statements) != 4 {
		t.Fatalf("statements = %d: %v", len(mod.Statements), mod.Statements)
	}
	if _, ok := mod.Statements[0].(*ast.GoStatement); !ok {
		t.Errorf("statement 0 = %T", mod.Statements[0])
	}
	es, ok := mod.Statements[1].(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("statement 1 = %T", mod.Statements[1])
	}
	if _, ok := es.Expression.(*ast.ChannelSendExpression); !ok {
		t.Errorf("statement 1 expression = %T", es.Expression)
	}
	sel, ok := mod.Statements[3].(*ast.SelectStatement)
	if !ok || len(sel.Cases) != 1 || sel.Default == nil {
		t.Errorf("select = %v", mod.Statements[3])
	}
	if sel.Cases[0].Bind == nil || sel.Cases[0].Bind.Value != "x" {
		t.Errorf("select bind = %v", sel.Cases[0].Bind)
	}
}

func TestDeferStatement(t *testing.T) {
	mod := parseClean(t, "defer close(f)\n")
	d := firstStatement[*ast.DeferStatement](t, mod)
	if d.Call == nil {
		t.Error("defer should carry its statement")
	}
}

func TestTryCatchFinally(t *testing.T) {
	input := `try:
    risky()
catch (e: Error):
    print(e)
finally:
    cleanup()
`
	mod := parseClean(t, input)
	tr := firstStatement[*ast.TryStatement](t, mod)
	if len(tr.Catches) != 1 || tr.Finally == nil {
		t.Errorf("catches = %d finally = %v", len(tr.Catches), tr.Finally)
	}
	if tr.Catches[0].Name.Value != "e" {
		t.Errorf("catch binding = %v", tr.Catches[0].Name)
	}
}

func TestTemplateLiteralExpression(t *testing.T) {
	mod := parseClean(t, "let s = `n = ${1 + 2}`\n")
	decl := firstStatement[*ast.VariableDeclaration](t, mod)
	interp, ok := decl.Value.(*ast.InterpolationExpression)
	if !ok {
		t.Fatalf("value = %T", decl.Value)
	}
	if len(interp.Parts) != 2 {
		t.Fatalf("parts = %d", len(interp.Parts))
	}
	if interp.Parts[1].String() != "(1 + 2)" {
		t.Errorf("embedded expression = %q", interp.Parts[1].String())
	}
}

func TestLambdaExpressions(t *testing.T) {
	mod := parseClean(t, "let f = lambda (x: int) -> int: x * 2\n")
	decl := firstStatement[*ast.VariableDeclaration](t, mod)
	lam, ok := decl.Value.(*ast.LambdaExpression)
	if !ok {
		t.Fatalf("value = %T", decl.Value)
	}
	if len(lam.Params) != 1 || lam.Params[0].Name != "x" {
		t.Errorf("params = %v", lam.Params)
	}
	ret, ok := lam.Body.Statements[0].(*ast.ReturnStatement)
	if !ok || ret.Value == nil {
		t.Errorf("inline body should become an implicit return, got %v", lam.Body.Statements[0])
	}
}

func TestNestedGenericTypeAnnotation(t *testing.T) {
	// The >> of List<List<int>> must split into two closing angles.
	mod := parseClean(t, "let m: Map<string, List<int>> = make()\n")
	decl := firstStatement[*ast.VariableDeclaration](t, mod)
	if got := decl.TypeAnn.String(); got != "Map<string, List<int>>" {
		t.Errorf("type = %q", got)
	}
}

func TestTypeSyntax(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let a: int? = nil\n", "int?"},
		{"let b: int | string = 1\n", "int | string"},
		{"let c: (int, string) -> bool = f\n", "(int, string) -> bool"},
		{"let d: math::Vec = v\n", "math::Vec"},
		{"let e: List<int?> = []\n", "List<int?>"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			mod := parseClean(t, tt.input)
			decl := firstStatement[*ast.VariableDeclaration](t, mod)
			if got := decl.TypeAnn.String(); got != tt.expected {
				t.Errorf("type = %q, want %q", got, tt.expected)
			}
		})
	}
}
