package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for command output
var (
	SuccessColor = lipgloss.Color("#43BF6D") // Green - success, checkmarks
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors, X marks
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 40
	MaxContentWidth  = 80
	fieldKeyWidth    = 12
)

// Shared styles
var (
	// titleStyle is for section titles (e.g., "Found 2 server(s):")
	titleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	// successStyle is for the OK marker
	successStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	// failureStyle is for error markers
	failureStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// fieldKeyStyle is for summary keys (e.g., "Devices:")
	fieldKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(fieldKeyWidth)

	// fieldValueStyle is for summary values
	fieldValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// dividerStyle is for horizontal rules between entries
	dividerStyle = lipgloss.NewStyle().
			Foreground(MutedColor)
)

// Status markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
)

// field renders one "key value" summary line, indented by two spaces.
func field(key, value string) string {
	return "  " + fieldKeyStyle.Render(key) + fieldValueStyle.Render(value) + "\n"
}

// terminalWidth returns the width of stdout, clamped to the content limits.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
