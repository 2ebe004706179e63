// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/avocado-linux/avocadoctl/internal/status"

	"github.com/charmbracelet/lipgloss"
)

// Color palette - shared hex colors for consistent theming across all CLI output.
// These colors are designed for dark terminal backgrounds with good contrast.
const (
	// ColorPrimary is purple - used for titles, headers, and primary emphasis.
	ColorPrimary = lipgloss.Color("#7C3AED")

	// ColorMuted is gray - used for subtitles, secondary text, and de-emphasized content.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is green - used for success states and merged extensions.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is red - used for errors and failures.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is amber - used for warnings and partial failures.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is blue - used for commands, keys and paths.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

// Base styles - reusable lipgloss styles built from the color palette.
var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success messages and positive indicators.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages and failure indicators.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warning messages and caution indicators.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// CmdStyle is for command names, config keys and paths.
	CmdStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)
)

// statusStyles maps the palette onto the status table.
func statusStyles() status.Styles {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return status.Styles{
		Title:   TitleStyle,
		Header:  TitleStyle.Padding(0, 1),
		Cell:    cell,
		Border:  SubtitleStyle,
		Merged:  SuccessStyle,
		Muted:   SubtitleStyle,
		Warning: WarningStyle,
	}
}
