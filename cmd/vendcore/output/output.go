// Package output renders the CLI's status lines with lipgloss styling.
package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// Success prints a styled confirmation line.
func Success(format string, args ...any) {
	statusLine(successStyle, "✓", format, args...)
}

// Warning prints a styled warning line.
func Warning(format string, args ...any) {
	statusLine(warningStyle, "⚠", format, args...)
}

// Error prints a styled failure line.
func Error(format string, args ...any) {
	statusLine(errorStyle, "✗", format, args...)
}

// Muted prints a dimmed line for secondary detail.
func Muted(format string, args ...any) {
	fmt.Println(mutedStyle.Render(fmt.Sprintf(format, args...)))
}

func statusLine(style lipgloss.Style, marker, format string, args ...any) {
	fmt.Print(style.Render(marker + " "))
	fmt.Printf(format+"\n", args...)
}
