package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		titleRendered := StyleHeader.Render(strings.ToUpper(title))
		return boxStyle.Render(titleRendered + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// HumanTimestamp returns a human-friendly relative timestamp.
func HumanTimestamp(t time.Time) string {
	return HumanTimestampFrom(t, time.Now())
}

func HumanTimestampFrom(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < 0:
		return t.Format("Jan 2, 2006 15:04")
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return t.Format("Jan 2, 2006")
	}
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// FormatQuantity renders a quantity without trailing zeros, followed by its unit.
func FormatQuantity(q float64, unit string) string {
	s := strconv.FormatFloat(q, 'f', -1, 64)
	if unit == "" {
		return s
	}
	return s + " " + unit
}

// FormatPrice renders an optional price with two decimals.
func FormatPrice(p *float64) string {
	if p == nil {
		return Dim("--")
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}
