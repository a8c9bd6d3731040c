package report

import (
	"fmt"
	"strings"
)

// RenderContext formats a diagnostic with the offending source line and a
// caret under the reported column. The caret offset counts runes, matching
// the lexer's column convention.
func RenderContext(d Diagnostic, source string) string {
	var sb strings.Builder
	sb.WriteString(d.String())
	sb.WriteByte('\n')

	line := sourceLine(source, d.Pos.Line)
	if line == "" {
		return sb.String()
	}

	prefix := fmt.Sprintf("%4d | ", d.Pos.Line)
	sb.WriteString(prefix)
	sb.WriteString(line)
	sb.WriteByte('\n')

	col := d.Pos.Column
	if col < 1 {
		col = 1
	}
	sb.WriteString(strings.Repeat(" ", len(prefix)+col-1))
	sb.WriteString("^\n")
	return sb.String()
}

// sourceLine extracts a 1-indexed line from the source text.
func sourceLine(source string, n int) string {
	if source == "" || n < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if n > len(lines) {
		return ""
	}
	return lines[n-1]
}
