package modules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

func writeModule(t *testing.T, dir, name, source string) {
	t.Helper()
	path := filepath.Join(dir, name+SourceExt)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
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

func TestLoadSourceCollectsExports(t *testing.T) {
	source := `export def pub_fn() -> int:
    return 1
def private_fn() -> int:
    return 2
export class PubClass:
    v: int
enum Hidden:
    A
export shared
let shared = 3
`
	reporter := report.New()
	loader := NewLoader(nil, reporter)
	rec := loader.LoadSource("lib", source, "lib.to")
	require.NotNil(t, rec)
	require.False(t, reporter.HasErrors(), reporter.Dump())

	assert.Equal(t, SymbolFunction, rec.Exports["pub_fn"])
	assert.Equal(t, SymbolClass, rec.Exports["PubClass"])
	assert.Equal(t, SymbolVariable, rec.Exports["shared"])
	_, hasPrivate := rec.Exports["private_fn"]
	assert.False(t, hasPrivate, "unexported functions must not be in the export set")
	_, hasHidden := rec.Exports["Hidden"]
	assert.False(t, hasHidden)
}

func TestExportOfUnknownNameFails(t *testing.T) {
	reporter := report.New()
	loader := NewLoader(nil, reporter)
	loader.LoadSource("lib", "export missing\n", "lib.to")
	assert.Equal(t, 1, countCode(reporter, report.M010InvalidExport), reporter.Dump())
}

func TestLoadResolvesOnSearchPath(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "util", "export def helper() -> int:\n    return 1\n")

	reporter := report.New()
	loader := NewLoader([]string{dir}, reporter)
	rec := loader.Load("util", token.Position{Filename: "main.to", Line: 1, Column: 1})
	require.NotNil(t, rec)
	assert.Equal(t, "util", rec.Name)
	assert.Contains(t, rec.Path, "util"+SourceExt)
}

func TestFirstSearchPathWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeModule(t, first, "m", "export def from_first() -> int:\n    return 1\n")
	writeModule(t, second, "m", "export def from_second() -> int:\n    return 2\n")

	reporter := report.New()
	loader := NewLoader([]string{first, second}, reporter)
	rec := loader.Load("m", token.Position{})
	require.NotNil(t, rec)
	_, ok := rec.Exports["from_first"]
	assert.True(t, ok, "the first matching path must win")
}

func TestMissingModule(t *testing.T) {
	reporter := report.New()
	loader := NewLoader([]string{t.TempDir()}, reporter)
	rec := loader.Load("ghost", token.Position{Filename: "main.to", Line: 2, Column: 1})
	assert.Nil(t, rec)
	assert.Equal(t, 1, countCode(reporter, report.M004ModuleNotFound), reporter.Dump())
	assert.True(t, reporter.HasFatal(), "missing module is fatal for the importer")
}

// Spec scenario: a cyclic import reports exactly one M002 naming the
// chain, and both modules are excluded from checking.
func TestCyclicImport(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "a", "import b\n")
	writeModule(t, dir, "b", "import a\n")

	reporter := report.New()
	loader := NewLoader([]string{dir}, reporter)
	loader.LoadSource("main", "import a\n", filepath.Join(dir, "main.to"))

	require.Equal(t, 1, countCode(reporter, report.M002CircularDependency), reporter.Dump())
	found := false
	for _, d := range reporter.All() {
		if d.Code == report.M002CircularDependency {
			assert.Contains(t, d.Message, "a -> b -> a")
			found = true
		}
	}
	require.True(t, found)
	assert.True(t, loader.Failed("a"))
	assert.True(t, loader.Failed("b"))
}

func TestCheckOrderIsDependencyFirst(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "leaf", "export def l() -> int:\n    return 1\n")
	writeModule(t, dir, "mid", "import leaf\nexport def m() -> int:\n    return 2\n")

	reporter := report.New()
	loader := NewLoader([]string{dir}, reporter)
	loader.LoadSource("main", "import mid\n", filepath.Join(dir, "main.to"))
	require.False(t, reporter.HasErrors(), reporter.Dump())

	order := loader.CheckOrder("main")
	names := make([]string, len(order))
	for i, rec := range order {
		names[i] = rec.Name
	}
	assert.Equal(t, []string{"leaf", "mid", "main"}, names)
}

func TestSharedDependencyLoadedOnce(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "shared", "export def s() -> int:\n    return 1\n")
	writeModule(t, dir, "x", "import shared\n")
	writeModule(t, dir, "y", "import shared\n")

	reporter := report.New()
	loader := NewLoader([]string{dir}, reporter)
	loader.LoadSource("main", "import x\nimport y\n", filepath.Join(dir, "main.to"))
	require.False(t, reporter.HasErrors(), reporter.Dump())

	order := loader.CheckOrder("main")
	sharedCount := 0
	for _, rec := range order {
		if rec.Name == "shared" {
			sharedCount++
		}
	}
	assert.Equal(t, 1, sharedCount, "a shared dependency appears once in the order")
}
