package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds all lipgloss styles for text output
var Styles = struct {
	Timestamp lipgloss.Style
	Shot      lipgloss.Style
	Heartbeat lipgloss.Style
	Response  lipgloss.Style
	Player    lipgloss.Style

	Header  lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style
}{
	Timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),            // Gray
	Shot:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),  // Green
	Heartbeat: lipgloss.NewStyle().Foreground(lipgloss.Color("243")),            // Dim gray
	Response:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),             // Cyan
	Player:    lipgloss.NewStyle().Foreground(lipgloss.Color("142")),            // Yellow-green

	Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("239")),
	Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Value:   lipgloss.NewStyle().Bold(true),
	Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),  // Green
	Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true), // Orange
	Danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true), // Red
}

// CodeStyle picks the style for a simulator response code.
func CodeStyle(code int) lipgloss.Style {
	switch {
	case code >= 500:
		return Styles.Danger
	case code >= 300:
		return Styles.Warning
	default:
		return Styles.Response
	}
}

// ScoreStyle renders a chart score band on its legend color. An empty color
// leaves the text unstyled.
func ScoreStyle(hex string) lipgloss.Style {
	if hex == "" {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Foreground(lipgloss.Color("#000000"))
}

// DeltaStyle colors a deviation from the chart: small is good, large is bad.
func DeltaStyle(delta, tolerance float64) lipgloss.Style {
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= tolerance:
		return Styles.Success
	case delta <= 2*tolerance:
		return Styles.Warning
	default:
		return Styles.Danger
	}
}
