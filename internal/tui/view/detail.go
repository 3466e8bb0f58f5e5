package view

import (
	"strings"
	"time"

	"github.com/lumen-reader/lumen/internal/miniflux"
	tuitheme "github.com/lumen-reader/lumen/internal/tui/theme"
)

type WrapFunc func(string, int) []string

func DetailMetaLines(a miniflux.Article, width int, wrap WrapFunc) []string {
	lines := make([]string, 0, 16)
	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = "(untitled)"
	}
	lines = append(lines, wrap(title, width)...)
	lines = append(lines, strings.Repeat("=", max(1, min(width, utf8Len(title)))))
	lines = append(lines, "")

	if a.IsDigest() {
		lines = append(lines, "Type: digest")
	}
	if a.FeedTitle != "" {
		lines = append(lines, wrap("Feed: "+a.FeedTitle, width)...)
	}
	lines = append(lines, "Date: "+a.PublishedAt.UTC().Format(time.RFC3339))
	if a.IsRead {
		lines = append(lines, "Read: yes")
	} else {
		lines = append(lines, "Read: no")
	}
	if a.Starred {
		lines = append(lines, "Starred: yes")
	}
	if a.Author != "" {
		lines = append(lines, wrap("Author: "+a.Author, width)...)
	}
	if a.URL != "" {
		lines = append(lines, wrap("URL: "+a.URL, width)...)
	}

	return lines
}

// SummaryPanel frames the streamed summary. Rendered is the
// markdown-formatted body; a trailing cursor block marks an in-flight stream.
func SummaryPanel(rendered string, streaming bool, width int, th tuitheme.Theme) []string {
	body := strings.TrimRight(rendered, "\n")
	if body == "" && !streaming {
		return nil
	}
	if streaming {
		if body == "" {
			body = "▍"
		} else {
			body += " ▍"
		}
	}
	panel := th.AIPanel.Width(max(10, min(width, 100))).Render("AI Summary\n\n" + body)
	return strings.Split(panel, "\n")
}

// InterleaveTranslation pairs each original block with its translated line.
// Blocks without a translation yet are shown alone.
func InterleaveTranslation(blocks []string, translations map[int]string, width int, wrap WrapFunc, th tuitheme.Theme) []string {
	lines := make([]string, 0, len(blocks)*4)
	for i, block := range blocks {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, wrap(block, width)...)
		if tr, ok := translations[i]; ok && strings.TrimSpace(tr) != "" {
			for _, l := range wrap(tr, width) {
				lines = append(lines, th.Translation.Render(l))
			}
		}
	}
	return lines
}

func utf8Len(s string) int {
	return visibleLen(s)
}

// WrapPlain is a greedy word wrap for unstyled text. Words longer than the
// width are hard-broken.
func WrapPlain(s string, width int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if width < 1 {
		return []string{s}
	}
	var out []string
	line := ""
	for _, word := range strings.Fields(s) {
		for utf8Len(word) > width {
			if line != "" {
				out = append(out, line)
				line = ""
			}
			runes := []rune(word)
			out = append(out, string(runes[:width]))
			word = string(runes[width:])
		}
		switch {
		case line == "":
			line = word
		case utf8Len(line)+1+utf8Len(word) <= width:
			line += " " + word
		default:
			out = append(out, line)
			line = word
		}
	}
	if line != "" {
		out = append(out, line)
	}
	return out
}
