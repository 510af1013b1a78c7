// Package style centralizes terminal styling for CLI output.
package style

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Styles for CLI output. Render with e.g. style.Bold.Render("text").
// Lipgloss downgrades them automatically when the output is not a
// color terminal.
var (
	Bold    = lipgloss.NewStyle().Bold(true)
	Dim     = lipgloss.NewStyle().Faint(true)
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	Info    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

// Status prefixes for check-style output lines.
var (
	SuccessPrefix = Success.Render("✓")
	WarningPrefix = Warning.Render("!")
	ErrorPrefix   = Error.Render("✗")
	ArrowPrefix   = Dim.Render("→")
)

// PrintWarning prints a warning line to stderr, styled when stderr is
// a terminal and prefixed plainly when it is a pipe or file.
func PrintWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		fmt.Fprintf(os.Stderr, "%s %s\n", WarningPrefix, msg)
		return
	}
	fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
}

// PrintError prints an error line to stderr, styled like PrintWarning.
func PrintError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		fmt.Fprintf(os.Stderr, "%s %s\n", ErrorPrefix, msg)
		return
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", msg)
}
