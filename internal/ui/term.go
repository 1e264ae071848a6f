// File: internal/ui/term.go
// Brief: Terminal capability probes.

package ui

import (
	"io"

	"golang.org/x/term"
)

// TerminalWidth reports the column count of w when it is a terminal. Piped
// output reports false and callers fall back to a fixed width.
func TerminalWidth(w io.Writer) (int, bool) {
	type fdProvider interface {
		Fd() uintptr
	}
	if v, ok := w.(fdProvider); ok {
		if cols, _, err := term.GetSize(int(v.Fd())); err == nil {
			return cols, true
		}
	}
	return 0, false
}

