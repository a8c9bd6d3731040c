// Package modules maintains the module graph: locating sources on the
// search path, parsing them once, collecting export sets, detecting import
// cycles, and computing the order in which modules are type checked.
package modules

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/lexer"
	"github.com/tocinlang/tocin/internal/parser"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/pkg/token"
)

// SourceExt is the Tocin source file extension.
const SourceExt = ".to"

// SymbolKind partitions a module's exports.
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolClass
	SymbolVariable
	SymbolType
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolClass:
		return "class"
	case SymbolVariable:
		return "variable"
	}
	return "type"
}

// Record is one loaded module.
type Record struct {
	Name     string
	Path     string
	PathKey  uint64 // hash of the resolved path; identity across aliases
	Module   *ast.Module
	Exports  map[string]SymbolKind
	Deps     []string
	Compiled bool
}

// Loader resolves module names to files, parses them, and tracks the
// dependency graph.
type Loader struct {
	searchPaths []string
	reporter    *report.Reporter
	lexOpts     []lexer.Option

	table      map[string]*Record // by module name
	byPath     map[uint64]*Record // by resolved path hash
	inProgress map[string]bool    // cycle detection
	stack      []string           // current import chain for M002 messages
	failed     map[string]bool    // modules that failed to load or cycled
}

// NewLoader creates a Loader with the given ordered search paths.
func NewLoader(searchPaths []string, reporter *report.Reporter, lexOpts ...lexer.Option) *Loader {
	return &Loader{
		searchPaths: searchPaths,
		reporter:    reporter,
		lexOpts:     lexOpts,
		table:       map[string]*Record{},
		byPath:      map[uint64]*Record{},
		inProgress:  map[string]bool{},
		failed:      map[string]bool{},
	}
}

// Table returns the record for a module name, or nil.
func (l *Loader) Table(name string) *Record { return l.table[name] }

// Records returns all loaded records.
func (l *Loader) Records() map[string]*Record { return l.table }

// Failed reports whether a module failed to load or participated in a
// cycle; such modules are excluded from type checking.
func (l *Loader) Failed(name string) bool { return l.failed[name] }

// LoadSource registers source text under a module name (used for the main
// unit and by tests) and loads its dependency closure.
func (l *Loader) LoadSource(name, source, filename string) *Record {
	if rec, ok := l.table[name]; ok {
		return rec
	}
	return l.load(name, source, filename)
}

// Load resolves a module name on the search path and loads it with its
// dependency closure. Missing modules report M004 (fatal for the importing
// module only).
func (l *Loader) Load(name string, importPos token.Position) *Record {
	if rec, ok := l.table[name]; ok {
		return rec
	}
	if l.failed[name] {
		return nil
	}

	path, ok := l.resolve(name)
	if !ok {
		l.reporter.Reportf(report.M004ModuleNotFound, importPos, report.Fatal,
			"module %q not found on the module path", name)
		l.failed[name] = true
		return nil
	}

	key := hashPath(path)
	if rec, ok := l.byPath[key]; ok {
		// Same file reached under a different name; reuse the record.
		l.table[name] = rec
		return rec
	}

	data, err := os.ReadFile(path)
	if err != nil {
		l.reporter.Reportf(report.I001ReadFailed, importPos, report.Fatal,
			"reading module %q: %v", name, err)
		l.failed[name] = true
		return nil
	}
	return l.loadAt(name, string(data), path, key)
}

func (l *Loader) load(name, source, filename string) *Record {
	return l.loadAt(name, source, filename, hashPath(filename))
}

func (l *Loader) loadAt(name, source, path string, key uint64) *Record {
	l.inProgress[name] = true
	l.stack = append(l.stack, name)
	defer func() {
		delete(l.inProgress, name)
		l.stack = l.stack[:len(l.stack)-1]
	}()

	lx := lexer.New(source, path, l.reporter, l.lexOpts...)
	mod := parser.New(lx, l.reporter).ParseModule()

	rec := &Record{
		Name:    name,
		Path:    path,
		PathKey: key,
		Module:  mod,
		Exports: collectExports(mod, l.reporter),
	}
	l.table[name] = rec
	l.byPath[key] = rec

	for _, stmt := range mod.Statements {
		imp, ok := stmt.(*ast.ImportStatement)
		if !ok {
			continue
		}
		dep := imp.Module
		if l.inProgress[dep] {
			l.reporter.Reportf(report.M002CircularDependency, imp.Pos(), report.Fatal,
				"circular import: %s", formatCycle(l.stack, dep))
			l.failed[name] = true
			l.failed[dep] = true
			continue
		}
		rec.Deps = append(rec.Deps, dep)
		if sub := l.Load(dep, imp.Pos()); sub == nil {
			l.failed[name] = true
		}
	}
	return rec
}

// resolve searches the configured module paths in order; first match wins.
func (l *Loader) resolve(name string) (string, bool) {
	for _, dir := range l.searchPaths {
		path := filepath.Join(dir, name+SourceExt)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// CheckOrder returns the loaded modules in reverse postorder of the
// dependency DAG: every module appears after its dependencies. Modules that
// failed to load are skipped.
func (l *Loader) CheckOrder(root string) []*Record {
	var order []*Record
	visited := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if visited[name] || l.failed[name] {
			return
		}
		visited[name] = true
		rec := l.table[name]
		if rec == nil {
			return
		}
		for _, dep := range rec.Deps {
			visit(dep)
		}
		order = append(order, rec)
	}
	visit(root)
	return order
}

// collectExports builds the export set from a module's top-level
// declarations: exported declarations, plus `export name` statements that
// must refer to a top-level declaration (M010 otherwise).
func collectExports(mod *ast.Module, reporter *report.Reporter) map[string]SymbolKind {
	exports := map[string]SymbolKind{}
	declared := map[string]SymbolKind{}

	for _, stmt := range mod.Statements {
		switch d := stmt.(type) {
		case *ast.FunctionDeclaration:
			if d.Receiver != nil {
				continue
			}
			declared[d.Name.Value] = SymbolFunction
			if d.Exported {
				exports[d.Name.Value] = SymbolFunction
			}
		case *ast.ClassDeclaration:
			declared[d.Name.Value] = SymbolClass
			if d.Exported {
				exports[d.Name.Value] = SymbolClass
			}
		case *ast.EnumDeclaration:
			declared[d.Name.Value] = SymbolType
			if d.Exported {
				exports[d.Name.Value] = SymbolType
			}
		case *ast.TraitDeclaration:
			declared[d.Name.Value] = SymbolType
			if d.Exported {
				exports[d.Name.Value] = SymbolType
			}
		case *ast.VariableDeclaration:
			declared[d.Name.Value] = SymbolVariable
		}
	}

	for _, stmt := range mod.Statements {
		es, ok := stmt.(*ast.ExportStatement)
		if !ok {
			continue
		}
		kind, ok := declared[es.Name]
		if !ok {
			reporter.Reportf(report.M010InvalidExport, es.Pos(), report.Error,
				"exported name %q is not a top-level declaration", es.Name)
			continue
		}
		exports[es.Name] = kind
	}
	return exports
}

func formatCycle(stack []string, repeat string) string {
	start := 0
	for i, name := range stack {
		if name == repeat {
			start = i
			break
		}
	}
	return strings.Join(append(append([]string{}, stack[start:]...), repeat), " -> ")
}

func hashPath(path string) uint64 {
	h := fnv.New64a()
	fmt.Fprint(h, path)
	return h.Sum64()
}
