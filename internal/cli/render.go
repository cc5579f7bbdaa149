package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Color palette shared by every command.
const (
	colorOK      = lipgloss.Color("42")
	colorWarning = lipgloss.Color("214")
	colorError   = lipgloss.Color("196")
	colorMuted   = lipgloss.Color("245")
	colorHeader  = lipgloss.Color("39")
)

const (
	symbolOK      = "✓"
	symbolFailed  = "✗"
	symbolWarning = "!"
)

// renderer writes human output, styled only when the writer is a terminal.
type renderer struct {
	w       io.Writer
	styled  bool
	printer *message.Printer

	ok      lipgloss.Style
	warning lipgloss.Style
	failed  lipgloss.Style
	muted   lipgloss.Style
	header  lipgloss.Style
}

func newRenderer(w io.Writer) *renderer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = isTerminal(f)
	}
	return newRendererWithStyle(w, styled)
}

func newRendererWithStyle(w io.Writer, styled bool) *renderer {
	r := &renderer{
		w:       w,
		styled:  styled,
		printer: message.NewPrinter(language.English),
	}
	r.ok = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	r.warning = lipgloss.NewStyle().Foreground(colorWarning)
	r.failed = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	r.muted = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	r.header = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	return r
}

func (r *renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

// Header prints a section title.
func (r *renderer) Header(title string) {
	fmt.Fprintln(r.w, r.style(r.header, title))
}

// Success prints a line prefixed with the OK symbol.
func (r *renderer) Success(format string, args ...any) {
	fmt.Fprintln(r.w, r.style(r.ok, symbolOK)+" "+r.printer.Sprintf(format, args...))
}

// Warn prints a line prefixed with the warning symbol.
func (r *renderer) Warn(format string, args ...any) {
	fmt.Fprintln(r.w, r.style(r.warning, symbolWarning+" "+r.printer.Sprintf(format, args...)))
}

// Failure prints a line prefixed with the failure symbol.
func (r *renderer) Failure(format string, args ...any) {
	fmt.Fprintln(r.w, r.style(r.failed, symbolFailed)+" "+r.printer.Sprintf(format, args...))
}

// Note prints a muted line.
func (r *renderer) Note(format string, args ...any) {
	fmt.Fprintln(r.w, r.style(r.muted, r.printer.Sprintf(format, args...)))
}

// Status returns the styled OK or failure symbol.
func (r *renderer) Status(ok bool) string {
	if ok {
		return r.style(r.ok, symbolOK)
	}
	return r.style(r.failed, symbolFailed)
}

// Count formats n with locale digit grouping.
func (r *renderer) Count(n int) string {
	return r.printer.Sprintf("%d", n)
}
