package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/muurk/yeesearch/internal/light"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - online
	ErrorColor   = lipgloss.Color("#FF5555") // Red - offline, errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - discovering
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth  = 60  // Minimum supported terminal width
	MaxContentWidth   = 120 // Maximum content width before capping
	MinTerminalHeight = 12
)

var (
	// HeaderTitleStyle is for the command title (e.g., "LIGHT SCAN")
	HeaderTitleStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true).
				PaddingLeft(2)

	// HeaderCommandStyle is for the command path (e.g., "yeesearch scan")
	HeaderCommandStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	// HeaderParamKeyStyle is for parameter keys (e.g., "Transport:")
	HeaderParamKeyStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	HeaderParamValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	// TitleStyle is the watch view title line
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			PaddingLeft(1)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// StatusLineStyle is for the one-line activity summary under the table
	StatusLineStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(1)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	HelpStyle = lipgloss.NewStyle().
			PaddingLeft(1)
)

// StatusStyle colours a light status
func StatusStyle(s light.Status) lipgloss.Style {
	switch s {
	case light.StatusOnline:
		return lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	case light.StatusOffline:
		return lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(WarningColor)
	}
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _ := GetTerminalSize()
	return width
}

// GetTerminalSize returns the current terminal width and height
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth + 20, 24 // Default fallback
	}
	return clampWidth(width), max(height, MinTerminalHeight)
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// RenderHorizontalDivider creates a horizontal line of the specified width
func RenderHorizontalDivider(width int, char string) string {
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat(char, width))
}
