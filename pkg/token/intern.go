package token

import "sync"

// Filename interning. Positions are copied onto every token and AST node, so
// sharing one string per file keeps them cheap. Interned names live for the
// process lifetime.
var (
	internMu sync.Mutex
	interned = map[string]string{}
)

// Intern returns a canonical copy of the filename. Two calls with equal
// content return the identical string value.
func Intern(filename string) string {
	internMu.Lock()
	defer internMu.Unlock()
	if s, ok := interned[filename]; ok {
		return s
	}
	interned[filename] = filename
	return filename
}
