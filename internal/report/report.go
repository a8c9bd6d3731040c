// Package report collects compiler diagnostics across all pipeline stages.
// Each diagnostic carries a stable code, a message, a source position, and a
// severity. The reporter is safe for concurrent use; the pipeline itself is
// single-threaded per compilation unit, but embedding front-ends may report
// from auxiliary threads.
package report

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tocinlang/tocin/pkg/token"
)

// Severity grades a diagnostic.
type Severity int

const (
	Warning Severity = iota
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	Code     Code
	Message  string
	Pos      token.Position
	Severity Severity
}

// String renders the diagnostic in the canonical
// "<file>:<line>:<col>: <severity> [<code>]: <message>" format.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s [%s]: %s", d.Pos, d.Severity, d.Code, d.Message)
}

// Reporter accumulates diagnostics. The zero value is not usable; use New.
type Reporter struct {
	mu    sync.Mutex
	diags []Diagnostic
	fatal bool
}

// New creates an empty reporter.
func New() *Reporter {
	return &Reporter{}
}

// Report records a diagnostic. Fatal severity latches HasFatal.
func (r *Reporter) Report(code Code, msg string, pos token.Position, sev Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, Diagnostic{Code: code, Message: msg, Pos: pos, Severity: sev})
	if sev == Fatal {
		r.fatal = true
	}
}

// Reportf records a diagnostic with a formatted message.
func (r *Reporter) Reportf(code Code, pos token.Position, sev Severity, format string, args ...any) {
	r.Report(code, fmt.Sprintf(format, args...), pos, sev)
}

// HasErrors reports whether any error or fatal diagnostic was recorded.
func (r *Reporter) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.diags {
		if d.Severity >= Error {
			return true
		}
	}
	return false
}

// HasFatal reports whether a fatal diagnostic latched the reporter.
func (r *Reporter) HasFatal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal
}

// ErrorCount returns the number of error and fatal diagnostics.
func (r *Reporter) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.diags {
		if d.Severity >= Error {
			n++
		}
	}
	return n
}

// Clear discards all recorded diagnostics and resets the fatal latch.
func (r *Reporter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = nil
	r.fatal = false
}

// All returns a copy of the recorded diagnostics in report order.
func (r *Reporter) All() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

// Sorted returns diagnostics ordered by file, line, column, then code.
// Report order is kept for diagnostics at the same position.
func (r *Reporter) Sorted() []Diagnostic {
	out := r.All()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return out
}

// Dump renders all diagnostics, one per line.
func (r *Reporter) Dump() string {
	var sb strings.Builder
	for _, d := range r.Sorted() {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
