// Package tocin is the embedding surface of the compiler: one call runs
// the full pipeline (lex, parse, load modules, check, lower) over a source
// unit and returns the IR module plus the accumulated diagnostics.
package tocin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tocinlang/tocin/internal/irgen"
	"github.com/tocinlang/tocin/internal/lexer"
	"github.com/tocinlang/tocin/internal/modules"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/internal/semantic"

	"github.com/tocinlang/tocin/internal/ir"
)

// Options configures a compilation.
type Options struct {
	// IndentWidth is the spaces-per-indent unit (default 4).
	IndentWidth int

	// MaxErrors caps lexer and parser diagnostics before a fatal stop
	// (default 100).
	MaxErrors int

	// ModulePaths is the ordered module search path.
	ModulePaths []string

	// ModuleName names the root compilation unit (default "main").
	ModuleName string
}

func (o Options) lexOpts() []lexer.Option {
	var opts []lexer.Option
	if o.IndentWidth > 0 {
		opts = append(opts, lexer.WithIndentWidth(o.IndentWidth))
	}
	if o.MaxErrors > 0 {
		opts = append(opts, lexer.WithMaxErrors(o.MaxErrors))
	}
	return opts
}

func (o Options) rootName() string {
	if o.ModuleName != "" {
		return o.ModuleName
	}
	return "main"
}

// Result is the outcome of one compilation.
type Result struct {
	// IR is the verified module, nil when any error was recorded.
	IR *ir.Module

	// Reporter holds every diagnostic of the run.
	Reporter *report.Reporter
}

// HasErrors reports whether the run recorded error or fatal diagnostics.
func (r *Result) HasErrors() bool { return r.Reporter.HasErrors() }

// Compile runs the pipeline over source text. Errors at any stage are
// accumulated; the pipeline continues past non-fatal errors to surface
// more diagnostics, and a run with any error severity produces no IR.
func Compile(source, filename string, opts Options) *Result {
	reporter := report.New()
	root := opts.rootName()

	loader := modules.NewLoader(opts.ModulePaths, reporter, opts.lexOpts()...)
	loader.LoadSource(root, source, filename)
	if reporter.HasFatal() {
		return &Result{Reporter: reporter}
	}

	analyzer := semantic.New(reporter, loader)
	analyzer.AnalyzeProgram(root)
	if reporter.HasErrors() {
		return &Result{Reporter: reporter}
	}

	order := loader.CheckOrder(root)
	if len(order) == 0 {
		return &Result{Reporter: reporter}
	}
	gen := irgen.New(reporter, analyzer)
	mod := gen.GenerateProgram(root, order)
	if reporter.HasErrors() {
		return &Result{Reporter: reporter}
	}
	return &Result{IR: mod, Reporter: reporter}
}

// CompileFile reads and compiles one file; the module name defaults to the
// file's base name.
func CompileFile(path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if opts.ModuleName == "" {
		opts.ModuleName = strings.TrimSuffix(filepath.Base(path), modules.SourceExt)
	}
	if len(opts.ModulePaths) == 0 {
		opts.ModulePaths = []string{filepath.Dir(path)}
	}
	return Compile(string(data), path, opts), nil
}
