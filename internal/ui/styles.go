package ui

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#6B7280") // Gray
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorDanger    = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#9CA3AF") // Light gray
	ColorBlue      = lipgloss.Color("#3B82F6") // Blue
)

// Text styles
var (
	Title   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	Muted   = lipgloss.NewStyle().Foreground(ColorMuted)
	Success = lipgloss.NewStyle().Foreground(ColorSuccess)
	Warning = lipgloss.NewStyle().Foreground(ColorWarning)
	Danger  = lipgloss.NewStyle().Foreground(ColorDanger).Bold(true)
	URL     = lipgloss.NewStyle().Foreground(ColorBlue).Underline(true)
)

// StatusStyle returns the style for an HTTP status code class.
func StatusStyle(code int) lipgloss.Style {
	switch {
	case code >= 500:
		return Danger
	case code >= 400:
		return Warning
	case code >= 200 && code < 300:
		return Success
	default:
		return Muted
	}
}

// RenderStatus renders a status line such as "200 OK".
func RenderStatus(code int) string {
	text := fmt.Sprintf("%d %s", code, http.StatusText(code))
	return StatusStyle(code).Render(text)
}
