package tocin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/tocinlang/tocin/internal/report"
)

func TestMain(m *testing.M) {
	code := m.Run()
	snaps.Clean(m)
	os.Exit(code)
}

func compileString(t *testing.T, source string) *Result {
	t.Helper()
	return Compile(source, "main.to", Options{})
}

func countCode(r *report.Reporter, code report.Code) int {
	n := 0
	for _, d := range r.All() {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Spec scenario 1: hello world compiles clean and produces IR.
func TestHelloWorldEndToEnd(t *testing.T) {
	result := compileString(t, `def main() -> int:
    print("hello")
    return 0
`)
	if result.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", result.Reporter.Dump())
	}
	if result.IR == nil {
		t.Fatal("expected an IR module")
	}
	snaps.MatchSnapshot(t, result.IR.Dump())
}

// Spec scenario 2: nullable propagation.
func TestNullablePropagationEndToEnd(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		result := compileString(t, "let x: int? = nil\nlet y: int = x\n")
		if got := countCode(result.Reporter, report.T001TypeMismatch); got != 1 {
			t.Fatalf("T001 count = %d, want 1:\n%s", got, result.Reporter.Dump())
		}
		if result.IR != nil {
			t.Error("a run with errors must produce no IR")
		}
	})
	t.Run("elvis accepted", func(t *testing.T) {
		result := compileString(t, "let x: int? = nil\nlet y: int = x ?: 0\n")
		if result.HasErrors() {
			t.Fatalf("unexpected diagnostics:\n%s", result.Reporter.Dump())
		}
		if result.IR == nil {
			t.Fatal("expected an IR module")
		}
	})
}

// Spec scenario 3: move-then-use.
func TestMoveThenUseEndToEnd(t *testing.T) {
	result := compileString(t, `def make_string() -> string:
    return "s"
def main() -> int:
    let a = make_string()
    let b = a
    print(a)
    return 0
`)
	if got := countCode(result.Reporter, report.B001UseAfterMove); got != 1 {
		t.Fatalf("B001 count = %d, want 1:\n%s", got, result.Reporter.Dump())
	}
	if result.IR != nil {
		t.Error("a run with errors must produce no IR")
	}
}

// Spec scenario 4: non-exhaustive match.
func TestNonExhaustiveMatchEndToEnd(t *testing.T) {
	result := compileString(t, `def main() -> int:
    let v = Some(1)
    match v:
        case Some(x): print(x)
    return 0
`)
	if got := countCode(result.Reporter, report.P001NonExhaustiveMatch); got != 1 {
		t.Fatalf("P001 count = %d, want 1:\n%s", got, result.Reporter.Dump())
	}
	snaps.MatchSnapshot(t, result.Reporter.Dump())
}

// Spec scenario 5: cyclic import.
func TestCyclicImportEndToEnd(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.to", "import b\n")
	write("b.to", "import a\n")

	result := Compile("import a\n", "main.to", Options{ModulePaths: []string{dir}})
	if got := countCode(result.Reporter, report.M002CircularDependency); got != 1 {
		t.Fatalf("M002 count = %d, want 1:\n%s", got, result.Reporter.Dump())
	}
	if result.IR != nil {
		t.Error("a cyclic program must produce no IR")
	}
}

// Spec scenario 6: generic monomorphization.
func TestGenericMonomorphizationEndToEnd(t *testing.T) {
	result := compileString(t, `def id<T>(x: T) -> T:
    return x
def main() -> int:
    id(1)
    id("s")
    return 0
`)
	if result.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", result.Reporter.Dump())
	}
	intCount, strCount, generic := 0, 0, 0
	for _, f := range result.IR.Functions {
		switch f.FuncName {
		case "id_int":
			intCount++
		case "id_string":
			strCount++
		case "id":
			generic++
		}
	}
	if intCount != 1 || strCount != 1 {
		t.Errorf("specializations: id_int=%d id_string=%d, want 1 each", intCount, strCount)
	}
	if generic != 0 {
		t.Error("the generic declaration must not appear in the IR")
	}
}

func TestWarningsDoNotSuppressIR(t *testing.T) {
	// The unchecked ! on a non-nullable type is a warning only.
	result := compileString(t, `def f(x: int) -> int:
    return x!
def main() -> int:
    return f(1)
`)
	if result.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", result.Reporter.Dump())
	}
	if len(result.Reporter.All()) == 0 {
		t.Fatal("expected a warning diagnostic")
	}
	if result.IR == nil {
		t.Error("warnings alone must not suppress IR output")
	}
}

func TestCrossModuleCompilation(t *testing.T) {
	dir := t.TempDir()
	lib := `export def double(n: int) -> int:
    return n * 2
`
	if err := os.WriteFile(filepath.Join(dir, "mathx.to"), []byte(lib), 0o644); err != nil {
		t.Fatal(err)
	}

	main := `from mathx import double
def main() -> int:
    return double(21)
`
	result := Compile(main, "main.to", Options{ModulePaths: []string{dir}})
	if result.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", result.Reporter.Dump())
	}
	if result.IR == nil {
		t.Fatal("expected an IR module")
	}
}

func TestImportOfUnexportedSymbol(t *testing.T) {
	dir := t.TempDir()
	lib := "def hidden() -> int:\n    return 1\n"
	if err := os.WriteFile(filepath.Join(dir, "libm.to"), []byte(lib), 0o644); err != nil {
		t.Fatal(err)
	}
	result := Compile("from libm import hidden\n", "main.to", Options{ModulePaths: []string{dir}})
	if got := countCode(result.Reporter, report.M009InvalidImportPath); got != 1 {
		t.Fatalf("M009 count = %d, want 1:\n%s", got, result.Reporter.Dump())
	}
}

func TestDiagnosticFormat(t *testing.T) {
	result := compileString(t, "let x: int = \"s\"\n")
	diags := result.Reporter.Sorted()
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic")
	}
	snaps.MatchSnapshot(t, diags[0].String())
}

func TestEmptySourceCompiles(t *testing.T) {
	result := compileString(t, "")
	if result.HasErrors() {
		t.Fatalf("empty source should compile clean:\n%s", result.Reporter.Dump())
	}
	if result.IR == nil {
		t.Fatal("empty source still yields a module with a synthesized main")
	}
	if result.IR.Lookup("main") == nil {
		t.Error("synthesized main missing")
	}
}
