// Package console renders the human-facing run output: progress lines,
// the coverage summary, and the warnings report. Structured diagnostics
// go through slog; this package is only for text meant to be read.
package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	dimStyle    = lipgloss.NewStyle().Faint(true)
	brightStyle = lipgloss.NewStyle().Bold(true)
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Writer emits styled lines to a terminal (or plain lines to a pipe;
// lipgloss degrades on non-TTY writers).
type Writer struct {
	out     io.Writer
	verbose bool
}

// New creates a Writer. Verbose enables the chattier progress lines.
func New(out io.Writer, verbose bool) *Writer {
	return &Writer{out: out, verbose: verbose}
}

// Printf writes one output line.
func (w *Writer) Printf(format string, args ...any) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Verbosef writes one output line only in verbose mode.
func (w *Writer) Verbosef(format string, args ...any) {
	if w.verbose {
		w.Printf(format, args...)
	}
}

// Warnf writes a warning line.
func (w *Writer) Warnf(format string, args ...any) {
	fmt.Fprintf(w.out, "%s %s\n", warnStyle.Render("warning:"), fmt.Sprintf(format, args...))
}

// Dim renders de-emphasized text (addresses, cached counts).
func Dim(s string) string { return dimStyle.Render(s) }

// Bright renders emphasized text (segment names).
func Bright(s string) string { return brightStyle.Render(s) }

// Green renders positive counters (split counts).
func Green(s string) string { return greenStyle.Render(s) }
