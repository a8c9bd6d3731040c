package report

import (
	"strings"
	"sync"
	"testing"

	"github.com/tocinlang/tocin/pkg/token"
)

func pos(line, col int) token.Position {
	return token.Position{Filename: "test.to", Line: line, Column: col}
}

func TestReportAndQuery(t *testing.T) {
	r := New()
	if r.HasErrors() || r.HasFatal() {
		t.Fatal("fresh reporter should be clean")
	}

	r.Report(T001TypeMismatch, "mismatch", pos(1, 1), Error)
	r.Report(P002UnreachableArm, "unreachable", pos(2, 1), Warning)

	if !r.HasErrors() {
		t.Error("HasErrors should be true after an error")
	}
	if r.HasFatal() {
		t.Error("HasFatal should be false without a fatal")
	}
	if r.ErrorCount() != 1 {
		t.Errorf("ErrorCount = %d, want 1 (warnings excluded)", r.ErrorCount())
	}

	r.Report(L004TooManyErrors, "too many", pos(3, 1), Fatal)
	if !r.HasFatal() {
		t.Error("HasFatal should latch on fatal")
	}

	r.Clear()
	if r.HasErrors() || r.HasFatal() || len(r.All()) != 0 {
		t.Error("Clear should reset all state")
	}
}

func TestDiagnosticFormat(t *testing.T) {
	d := Diagnostic{
		Code:     T001TypeMismatch,
		Message:  "cannot assign int? to int",
		Pos:      pos(2, 14),
		Severity: Error,
	}
	want := "test.to:2:14: error [T001]: cannot assign int? to int"
	if got := d.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSortedOrder(t *testing.T) {
	r := New()
	r.Report(T001TypeMismatch, "later", pos(5, 1), Error)
	r.Report(L001InvalidCharacter, "earlier", pos(1, 3), Error)
	r.Report(S001UnexpectedToken, "same line earlier col", pos(5, 1), Warning)

	sorted := r.Sorted()
	if sorted[0].Message != "earlier" {
		t.Errorf("first sorted = %q", sorted[0].Message)
	}
	// Stable: report order kept at equal positions.
	if sorted[1].Message != "later" || sorted[2].Message != "same line earlier col" {
		t.Errorf("unexpected order: %v", sorted)
	}
}

func TestConcurrentReporting(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Report(G001Internal, "concurrent", pos(1, 1), Error)
		}()
	}
	wg.Wait()
	if got := len(r.All()); got != 50 {
		t.Errorf("recorded %d diagnostics, want 50", got)
	}
}

func TestRenderContext(t *testing.T) {
	source := "let x = 1\nlet y: int = x\n"
	d := Diagnostic{Code: T001TypeMismatch, Message: "boom", Pos: pos(2, 14), Severity: Error}
	out := RenderContext(d, source)
	if !strings.Contains(out, "let y: int = x") {
		t.Errorf("missing source line:\n%s", out)
	}
	if !strings.Contains(out, "^") {
		t.Errorf("missing caret:\n%s", out)
	}
}
