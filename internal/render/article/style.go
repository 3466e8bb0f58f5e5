package article

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	cpMauve    = lipgloss.Color("#cba6f7")
	cpPeach    = lipgloss.Color("#fab387")
	cpYellow   = lipgloss.Color("#f9e2af")
	cpGreen    = lipgloss.Color("#a6e3a1")
	cpTeal     = lipgloss.Color("#94e2d5")
	cpBlue     = lipgloss.Color("#89b4fa")
	cpLavender = lipgloss.Color("#b4befe")
	cpSubtext0 = lipgloss.Color("#a6adc8")
	cpSubtext1 = lipgloss.Color("#bac2de")
	cpOverlay0 = lipgloss.Color("#6c7086")
	cpOverlay1 = lipgloss.Color("#7f849c")

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(cpLavender)
	headingBars  = []lipgloss.Style{
		lipgloss.NewStyle().Bold(true).Foreground(cpBlue),
		lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		lipgloss.NewStyle().Bold(true).Foreground(cpTeal),
		lipgloss.NewStyle().Bold(true).Foreground(cpGreen),
		lipgloss.NewStyle().Bold(true).Foreground(cpYellow),
		lipgloss.NewStyle().Bold(true).Foreground(cpPeach),
	}
	linkURLStyle     = lipgloss.NewStyle().Foreground(cpBlue).Faint(true)
	quotePrefix      = lipgloss.NewStyle().Foreground(cpOverlay1).Render("│ ")
	quoteStyle       = lipgloss.NewStyle().Italic(true).Foreground(cpSubtext0)
	captionStyle     = lipgloss.NewStyle().Italic(true).Foreground(cpOverlay0).Faint(true)
	codeStyle        = lipgloss.NewStyle().Foreground(cpPeach)
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(cpYellow)
	imageLabelStyle  = lipgloss.NewStyle().Foreground(cpMauve).Faint(true).Italic(true)
	imageAltStyle    = lipgloss.NewStyle().Foreground(cpSubtext1).Italic(true)
)

func headingBar(level int) string {
	if level < 1 {
		level = 1
	}
	if level > len(headingBars) {
		level = len(headingBars)
	}
	return headingBars[level-1].Render("▌") + strings.Repeat(" ", max(1, level-1))
}

func styleLines(lines []string, style lipgloss.Style) []string {
	if len(lines) == 0 {
		return nil
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = line
			continue
		}
		out[i] = style.Render(line)
	}
	return out
}
