package tui

import (
	"strings"

	tuistate "github.com/lumen-reader/lumen/internal/tui/state"
	tuiview "github.com/lumen-reader/lumen/internal/tui/view"
)

func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	if m.showHelp {
		return m.helpView()
	}

	var b strings.Builder
	b.WriteString(m.headerLine())
	b.WriteString("\n")

	if m.detail.open {
		b.WriteString(m.detailBody())
	} else {
		b.WriteString(m.listBody())
	}
	b.WriteString("\n")

	if m.searching {
		b.WriteString("/" + m.searchInput.View())
	} else {
		b.WriteString(truncateLine(tuiview.Footer(m.scopeLabel, m.list.Len(), m.total, m.scope.Search, m.th), m.width))
	}
	b.WriteString("\n")
	b.WriteString(truncateLine(tuiview.Message(m.loading || m.detail.summarizing || m.detail.translating, m.warningText(), m.status, m.th), m.width))
	b.WriteString("\n")
	b.WriteString(truncateLine(tuiview.Toolbar(m.detail.open), m.width))
	return b.String()
}

func (m Model) headerLine() string {
	title := m.th.Title.Render("lumen")
	pill := m.th.ModePill.Render(m.scopeLabel)
	line := title + " " + pill
	if m.loading || m.detail.summarizing || m.detail.translating {
		line += " " + m.spinner.View()
	}
	return truncateLine(line, m.width)
}

func (m Model) warningText() string {
	if m.loadErr != nil {
		return m.loadErr.Error()
	}
	return ""
}

// listBody renders the sidebar column next to the article list, both clipped
// to the body height.
func (m Model) listBody() string {
	height := m.bodyHeight()

	start, end := tuistate.CenteredWindow(len(m.rows), m.sidebarCursor, height)
	cursor := m.sidebarCursor
	if m.focus != focusSidebar {
		cursor = -1
	}
	sidebar := padLines(strings.Split(
		strings.TrimRight(tuiview.RenderSidebar(m.rows, cursor, start, end, sidebarWidth-2, m.th), "\n"), "\n"), height)

	var listLines []string
	switch {
	case m.loadErr != nil && m.list.Len() == 0:
		listLines = strings.Split(tuiview.ErrorCard(m.loadErr.Error(), m.listWidth(), m.th), "\n")
	case m.loading && m.list.Len() == 0:
		listLines = tuiview.SkeletonLines(m.listWidth(), height/3+1, m.th)
	default:
		listLines = strings.Split(m.list.View(), "\n")
		if m.list.Len() == 0 {
			listLines = []string{"", "  no articles in this scope"}
		}
	}
	listLines = padLines(listLines, height)

	var b strings.Builder
	for i := 0; i < height; i++ {
		b.WriteString(padRight(sidebar[i], sidebarWidth-1))
		b.WriteString("│")
		b.WriteString(listLines[i])
		if i < height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) detailBody() string {
	lines := m.detailLines()
	height := m.bodyHeight()
	top := m.detail.top
	if top > len(lines) {
		top = len(lines)
	}
	endIdx := top + height
	if endIdx > len(lines) {
		endIdx = len(lines)
	}
	window := padLines(append([]string(nil), lines[top:endIdx]...), height)
	return strings.Join(window, "\n")
}

func (m Model) detailLines() []string {
	width := m.detailWidth()
	lines := make([]string, 0, 256)

	if m.detail.thumbnail != "" {
		lines = append(lines, strings.Split(m.detail.thumbnail, "\n")...)
		lines = append(lines, "")
	}

	lines = append(lines, tuiview.DetailMetaLines(m.detail.article, width, tuiview.WrapPlain)...)
	lines = append(lines, "")

	if panel := tuiview.SummaryPanel(m.detail.summaryRendered, m.detail.summarizing, width, m.th); len(panel) > 0 {
		lines = append(lines, panel...)
		lines = append(lines, "")
	}

	if m.detail.showTranslation && len(m.detail.blocks) > 0 {
		texts := make([]string, len(m.detail.blocks))
		for i, block := range m.detail.blocks {
			texts[i] = block.Text
		}
		lines = append(lines, tuiview.InterleaveTranslation(texts, m.detail.translations, width, tuiview.WrapPlain, m.th)...)
	} else {
		lines = append(lines, m.detail.contentLines...)
	}
	return lines
}

func (m Model) helpView() string {
	sections := []string{
		m.th.Title.Render("lumen") + "  keyboard reference",
		"",
		m.th.Section.Render("List"),
		"  j/k        move cursor",
		"  space/b    page down / up",
		"  g/G        top / bottom",
		"  enter      open article",
		"  tab        focus sidebar",
		"  /          search in scope",
		"  u          toggle unread-only",
		"  r          reload",
		"  S          toggle star",
		"  o          open in browser",
		"  m          toggle scroll mark-as-read",
		"  t          toggle thumbnails",
		"",
		m.th.Section.Render("Sidebar"),
		"  j/k        move, enter select",
		"  c          collapse group",
		"  p          pin group",
		"  d          toggle daily digest for group",
		"",
		m.th.Section.Render("Detail"),
		"  j/k        scroll",
		"  s          summarize",
		"  T          translate / toggle bilingual view",
		"  y          copy URL",
		"  esc        back",
		"",
		"  ?          close help",
	}
	return strings.Join(sections, "\n")
}

func padLines(lines []string, height int) []string {
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines[:height]
}

func padRight(s string, width int) string {
	gap := width - lineWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

// truncateLine hard-clips a styled line, keeping escape sequences intact.
func truncateLine(s string, width int) string {
	if width < 1 || lineWidth(s) <= width {
		return s
	}
	var b strings.Builder
	n := 0
	inEscape := false
	for _, r := range s {
		if inEscape {
			b.WriteRune(r)
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		if r == '\x1b' {
			b.WriteRune(r)
			inEscape = true
			continue
		}
		if n >= width {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

func lineWidth(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		if r == '\x1b' {
			inEscape = true
			continue
		}
		n++
	}
	return n
}
