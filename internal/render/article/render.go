package article

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	nethtml "golang.org/x/net/html"

	"github.com/lumen-reader/lumen/internal/miniflux"
)

var (
	reANSICodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	reHTTPURL   = regexp.MustCompile(`https?://[^\s)]+`)
	reImgSrc    = regexp.MustCompile(`(?is)<img[^>]+src\s*=\s*["']?([^"'\s>]+)`)
)

type Options struct {
	// ShowImages controls whether image placeholders appear in the output.
	ShowImages bool
	// StyleLinks dims bare URLs. Off for plain-text extraction.
	StyleLinks bool
}

var DefaultOptions = Options{ShowImages: true, StyleLinks: true}

// ContentLines renders the article body as wrapped terminal lines. Falls
// back to the server summary when the body is empty or unparseable.
func ContentLines(a miniflux.Article, width int) []string {
	return ContentLinesWithOptions(a, width, DefaultOptions)
}

func ContentLinesWithOptions(a miniflux.Article, width int, opts Options) []string {
	content := strings.TrimSpace(a.Content)
	if content == "" {
		summary := strings.TrimSpace(a.Summary)
		if summary == "" {
			return nil
		}
		return wrapText(summary, width)
	}
	lines := renderFragment(content, width, opts)
	if len(lines) == 0 {
		summary := strings.TrimSpace(a.Summary)
		if summary == "" {
			return nil
		}
		lines = wrapText(summary, width)
	}
	if opts.StyleLinks {
		lines = styleBareURLs(lines)
	}
	return lines
}

// PlainText flattens the article body for AI input: no ANSI, no link
// decoration, paragraphs separated by blank lines.
func PlainText(a miniflux.Article) string {
	lines := ContentLinesWithOptions(a, 200, Options{ShowImages: false, StyleLinks: false})
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, stripANSI(line))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// ImageURLs lists the http(s) image sources in document order, deduplicated.
func ImageURLs(content string) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	matches := reImgSrc.FindAllStringSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		raw := strings.TrimSpace(html.UnescapeString(m[1]))
		parsed, err := url.Parse(raw)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		out = append(out, raw)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func renderFragment(raw string, width int, opts Options) []string {
	doc, err := nethtml.Parse(strings.NewReader("<html><body>" + raw + "</body></html>"))
	if err != nil {
		return wrapText(strings.TrimSpace(html.UnescapeString(raw)), width)
	}
	body := findBody(doc)
	if body == nil {
		return wrapText(strings.TrimSpace(html.UnescapeString(raw)), width)
	}
	r := renderer{width: max(1, width), opts: opts}
	return trimBlankLines(r.blockChildren(body, 0))
}

func styleBareURLs(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = reHTTPURL.ReplaceAllStringFunc(line, func(m string) string {
			return linkURLStyle.Render(m)
		})
	}
	return out
}

func findBody(node *nethtml.Node) *nethtml.Node {
	if node == nil {
		return nil
	}
	if node.Type == nethtml.ElementNode && strings.EqualFold(node.Data, "body") {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findBody(child); found != nil {
			return found
		}
	}
	return nil
}

func trimBlankLines(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines) - 1
	for end >= start && strings.TrimSpace(lines[end]) == "" {
		end--
	}
	if end < start {
		return nil
	}
	out := make([]string, 0, end-start+1)
	prevBlank := false
	for i := start; i <= end; i++ {
		blank := strings.TrimSpace(lines[i]) == ""
		if blank && prevBlank {
			continue
		}
		out = append(out, lines[i])
		prevBlank = blank
	}
	return out
}

func wrapText(text string, width int) []string {
	if width < 1 {
		return []string{text}
	}
	paragraphs := strings.Split(text, "\n")
	out := make([]string, 0, len(paragraphs))

	for _, p := range paragraphs {
		words := strings.Fields(p)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, word := range words {
			for utf8.RuneCountInString(word) > width {
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
			case visibleLen(line)+1+utf8.RuneCountInString(word) <= width:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(stripANSI(s))
}

func stripANSI(s string) string {
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
