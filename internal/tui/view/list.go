package view

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lumen-reader/lumen/internal/miniflux"
	tuitheme "github.com/lumen-reader/lumen/internal/tui/theme"
)

var reANSICodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type ArticleLineParams struct {
	Article       miniflux.Article
	Now           time.Time
	Width         int
	Active        bool
	ShowThumbnail bool
}

// RenderArticleLines renders one list row as two lines: the title row with a
// relative timestamp on the right, and a meta row with the feed name and
// badges. The line count feeds the list's height measurements, so both lines
// are always emitted.
func RenderArticleLines(p ArticleLineParams, th tuitheme.Theme) []string {
	a := p.Article

	marker := " "
	if p.Active {
		marker = ">"
	}
	dot := " "
	if !a.IsRead {
		dot = "●"
	}
	prefix := fmt.Sprintf("%s %s ", marker, dot)

	timeLabel := RelativeTimeLabel(p.Now, a.PublishedAt)
	available := p.Width - visibleLen(prefix) - 1 - visibleLen(timeLabel)
	if available < 1 {
		available = 1
	}
	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = "(untitled)"
	}
	title = truncateRunes(title, available)
	styled := th.StyleArticleTitle(a, title)
	gap := p.Width - visibleLen(prefix) - visibleLen(title) - visibleLen(timeLabel)
	if gap < 1 {
		gap = 1
	}
	titleLine := prefix + styled + strings.Repeat(" ", gap) + th.MetaValue.Render(timeLabel)

	metaLine := "    " + th.MetaValue.Render(metaLabel(a, p.ShowThumbnail, th))

	return []string{
		th.RenderActiveLine(p.Active, titleLine),
		th.RenderActiveLine(p.Active, metaLine),
	}
}

func metaLabel(a miniflux.Article, showThumbnail bool, th tuitheme.Theme) string {
	parts := make([]string, 0, 4)
	if a.IsDigest() {
		parts = append(parts, th.DigestBadge.Render("◈ digest"))
	}
	if feed := strings.TrimSpace(a.FeedTitle); feed != "" {
		parts = append(parts, feed)
	}
	if a.Starred {
		parts = append(parts, "★")
	}
	if showThumbnail && a.ThumbnailURL != "" {
		parts = append(parts, "▣")
	}
	if len(parts) == 0 {
		return "—"
	}
	return strings.Join(parts, " · ")
}

// SkeletonLines renders placeholder rows shown while the first page loads.
func SkeletonLines(width, rows int, th tuitheme.Theme) []string {
	if width < 8 {
		width = 8
	}
	out := make([]string, 0, rows*3)
	for i := 0; i < rows; i++ {
		long := strings.Repeat("░", max(4, width*2/3))
		short := strings.Repeat("░", max(3, width/3))
		out = append(out,
			"  "+th.Skeleton.Render(long),
			"    "+th.Skeleton.Render(short),
			"",
		)
	}
	return out
}

// ErrorCard renders the load-failure card shown in place of the list.
func ErrorCard(message string, width int, th tuitheme.Theme) string {
	body := strings.TrimSpace(message)
	if body == "" {
		body = "something went wrong"
	}
	lines := []string{"Failed to load articles", body, "", "press r to retry"}
	inner := max(10, width-4)
	for i, line := range lines {
		lines[i] = truncateRunes(line, inner)
	}
	return th.ErrorCard.Render(strings.Join(lines, "\n"))
}

func RelativeTimeLabel(now, then time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	if then.IsZero() {
		return "unknown"
	}
	if then.After(now) {
		return "just now"
	}
	d := now.Sub(then)
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		n := int(d / time.Minute)
		if n == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", n)
	}
	if d < 24*time.Hour {
		n := int(d / time.Hour)
		if n == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", n)
	}
	n := int(d / (24 * time.Hour))
	if n == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", n)
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return strings.Repeat(".", maxLen)
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(stripANSIText(s))
}

func stripANSIText(s string) string {
	return reANSICodes.ReplaceAllString(s, "")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
