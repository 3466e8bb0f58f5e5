package view

import (
	"fmt"
	"strings"

	tuitheme "github.com/lumen-reader/lumen/internal/tui/theme"
	tuitree "github.com/lumen-reader/lumen/internal/tui/tree"
)

// RenderSidebar draws the window of sidebar rows between start and end.
func RenderSidebar(rows []tuitree.Row, cursor, start, end, width int, th tuitheme.Theme) string {
	if len(rows) == 0 || start >= end || start < 0 {
		return ""
	}
	if end > len(rows) {
		end = len(rows)
	}
	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(RenderSidebarLine(rows[i], width, i == cursor, th))
		b.WriteString("\n")
	}
	return b.String()
}

func RenderSidebarLine(row tuitree.Row, width int, active bool, th tuitheme.Theme) string {
	switch row.Kind {
	case tuitree.RowSection:
		return th.Section.Render("■ " + row.Label)
	case tuitree.RowScope:
		return nodeLine("◉ "+row.Label, row.Unread, width, active, th)
	case tuitree.RowGroup:
		prefix := "▾ "
		if row.Collapsed {
			prefix = "▸ "
		}
		return nodeLine(prefix+row.Label, row.Unread, width, active, th)
	case tuitree.RowFeed:
		return nodeLine("    "+row.Label, row.Unread, width, active, th)
	default:
		return ""
	}
}

// nodeLine right-aligns the unread count against the label.
func nodeLine(left string, unread, width int, active bool, th tuitheme.Theme) string {
	if unread <= 0 {
		return th.RenderActiveLine(active, truncateRunes(left, max(1, width)))
	}
	right := th.UnreadCount.Render(fmt.Sprintf("%d", unread))
	available := width - visibleLen(right) - 1
	if available < 1 {
		available = 1
	}
	left = truncateRunes(left, available)
	gap := width - visibleLen(left) - visibleLen(right)
	if gap < 1 {
		gap = 1
	}
	return th.RenderActiveLine(active, left+strings.Repeat(" ", gap)+right)
}
