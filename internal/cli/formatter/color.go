package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/smeta/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// LabelStyle colors a classification label.
func LabelStyle(label domain.Label) lipgloss.Style {
	switch label {
	case domain.LabelWork:
		return StyleBlue
	case domain.LabelMaterial:
		return StyleGreen
	case domain.LabelEquipment:
		return StylePurple
	case domain.LabelLabor:
		return StyleYellow
	default:
		return StyleDim
	}
}

// ClassificationBadge renders "label 0.90 regex_strict", or a red marker for
// rows awaiting review.
func ClassificationBadge(label domain.Label, confidence float64, source domain.Source) string {
	if source == domain.SourceUnclassified {
		return StyleRed.Render("? unclassified")
	}
	return LabelStyle(label).Render(string(label)) + Dim(fmt.Sprintf(" %.2f %s", confidence, source))
}

// ImportStatusPill renders an import session status.
func ImportStatusPill(status domain.ImportStatus) string {
	switch status {
	case domain.ImportPending:
		return StyleBlue.Render("○ Pending")
	case domain.ImportRunning:
		return StyleYellow.Render("▶ Running")
	case domain.ImportCompleted:
		return StyleGreen.Render("✔ Completed")
	case domain.ImportFailed:
		return StyleRed.Render("✖ Failed")
	default:
		return StyleDim.Render(string(status))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
