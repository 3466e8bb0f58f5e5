package article

import (
	"fmt"
	"html"
	"strings"

	nethtml "golang.org/x/net/html"
)

type renderer struct {
	width int
	opts  Options
}

// blockChildren walks the element's children, collecting inline runs into
// paragraphs and rendering block elements recursively.
func (r renderer) blockChildren(node *nethtml.Node, depth int) []string {
	lines := make([]string, 0, 8)
	inline := make([]string, 0, 4)

	flush := func() {
		text := normalizeInline(strings.Join(inline, " "))
		inline = inline[:0]
		if text == "" {
			return
		}
		lines = appendBlock(lines, wrapText(text, r.width))
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case nethtml.TextNode:
			inline = append(inline, child.Data)
		case nethtml.ElementNode:
			if isBlockTag(child.Data) {
				flush()
				lines = appendBlock(lines, r.block(child, depth))
			} else {
				inline = append(inline, r.inline(child))
			}
		}
	}
	flush()
	return trimBlankLines(lines)
}

func (r renderer) block(node *nethtml.Node, depth int) []string {
	switch strings.ToLower(node.Data) {
	case "script", "style", "noscript", "iframe", "svg":
		return nil
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text := normalizeInline(r.inlineChildren(node))
		if text == "" {
			return nil
		}
		level := int(node.Data[1] - '0')
		return styleLines(wrapPrefixed(text, r.width, headingBar(level), "  "), headingStyle)
	case "blockquote":
		inner := r.blockChildren(node, depth)
		out := make([]string, 0, len(inner))
		for _, line := range inner {
			if strings.TrimSpace(line) == "" {
				out = append(out, "")
				continue
			}
			out = append(out, quotePrefix+quoteStyle.Render(line))
		}
		return out
	case "ul":
		return r.list(node, false, depth+1)
	case "ol":
		return r.list(node, true, depth+1)
	case "li":
		return r.listItem(node, depth, "- ")
	case "pre":
		return renderPre(node)
	case "table":
		return r.table(node)
	case "img":
		return r.image(node)
	case "figcaption", "caption":
		text := normalizeInline(r.inlineChildren(node))
		return styleLines(wrapPrefixed(text, r.width, "— ", "  "), captionStyle)
	case "hr":
		return []string{strings.Repeat("-", min(max(r.width, 3), 24))}
	default:
		// p, div, section, figure and the rest: paragraph when the content
		// is inline, otherwise recurse.
		if hasBlockChild(node) {
			return r.blockChildren(node, depth)
		}
		text := normalizeInline(r.inlineChildren(node))
		if text == "" {
			return nil
		}
		return wrapText(text, r.width)
	}
}

func (r renderer) list(node *nethtml.Node, ordered bool, depth int) []string {
	lines := make([]string, 0, 16)
	index := 0
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != nethtml.ElementNode || !strings.EqualFold(child.Data, "li") {
			continue
		}
		index++
		marker := bulletMarker(depth)
		if ordered {
			marker = fmt.Sprintf("%d. ", index)
		}
		lines = appendBlock(lines, r.listItem(child, depth, marker))
	}
	return trimBlankLines(lines)
}

func (r renderer) listItem(node *nethtml.Node, depth int, marker string) []string {
	indent := strings.Repeat("  ", max(0, depth-1))
	lines := make([]string, 0, 4)

	parts := make([]string, 0, 4)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == nethtml.ElementNode && (strings.EqualFold(child.Data, "ul") || strings.EqualFold(child.Data, "ol")) {
			continue
		}
		parts = append(parts, r.inline(child))
	}
	if text := normalizeInline(strings.Join(parts, " ")); text != "" {
		lines = append(lines, wrapPrefixed(text, r.width, indent+marker, indent+strings.Repeat(" ", visibleLen(marker)))...)
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != nethtml.ElementNode {
			continue
		}
		switch strings.ToLower(child.Data) {
		case "ul":
			lines = appendBlock(lines, r.list(child, false, depth+1))
		case "ol":
			lines = appendBlock(lines, r.list(child, true, depth+1))
		}
	}
	return trimBlankLines(lines)
}

// table flattens rows to "cell | cell" lines; the first row is styled as a
// header when the table has one.
func (r renderer) table(node *nethtml.Node) []string {
	var rows []string
	var headerRows int
	var walk func(n *nethtml.Node, inHead bool)
	walk = func(n *nethtml.Node, inHead bool) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != nethtml.ElementNode {
				continue
			}
			switch strings.ToLower(child.Data) {
			case "thead":
				walk(child, true)
			case "tbody", "tfoot":
				walk(child, false)
			case "tr":
				var cells []string
				header := inHead
				for cell := child.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type != nethtml.ElementNode {
						continue
					}
					tag := strings.ToLower(cell.Data)
					if tag != "td" && tag != "th" {
						continue
					}
					if tag == "th" {
						header = true
					}
					if text := normalizeInline(r.inlineChildren(cell)); text != "" {
						cells = append(cells, text)
					}
				}
				if len(cells) == 0 {
					continue
				}
				row := strings.Join(cells, " | ")
				if header && len(rows) == headerRows {
					row = tableHeaderStyle.Render(row)
					headerRows++
				}
				rows = append(rows, row)
			}
		}
	}
	walk(node, false)
	return rows
}

func (r renderer) image(node *nethtml.Node) []string {
	if !r.opts.ShowImages {
		return nil
	}
	alt := normalizeInline(nodeAttr(node, "alt"))
	label := imageLabelStyle.Render("[image]")
	if alt != "" {
		label += " " + imageAltStyle.Render(alt)
	}
	return []string{label}
}

func renderPre(node *nethtml.Node) []string {
	text := strings.ReplaceAll(rawText(node), "\r\n", "\n")
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			out = append(out, "")
			continue
		}
		out = append(out, "    "+line)
	}
	return trimBlankLines(out)
}

func (r renderer) inlineChildren(node *nethtml.Node) string {
	parts := make([]string, 0, 4)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		parts = append(parts, r.inline(child))
	}
	return strings.Join(parts, " ")
}

func (r renderer) inline(node *nethtml.Node) string {
	if node == nil {
		return ""
	}
	switch node.Type {
	case nethtml.TextNode:
		return node.Data
	case nethtml.ElementNode:
		switch strings.ToLower(node.Data) {
		case "script", "style", "noscript", "img", "svg":
			return ""
		case "br":
			return "\n"
		case "a":
			text := normalizeInline(r.inlineChildren(node))
			href := strings.TrimSpace(nodeAttr(node, "href"))
			switch {
			case href == "" || !r.opts.StyleLinks:
				if text != "" {
					return text
				}
				return href
			case text == "" || strings.EqualFold(text, href):
				return href
			default:
				return text + " (" + href + ")"
			}
		case "code", "kbd", "samp":
			text := normalizeInline(r.inlineChildren(node))
			if text == "" {
				return ""
			}
			return codeStyle.Render("`" + text + "`")
		case "q":
			text := normalizeInline(r.inlineChildren(node))
			if text == "" {
				return ""
			}
			return `"` + text + `"`
		default:
			return r.inlineChildren(node)
		}
	default:
		return ""
	}
}

var inlinePunctFix = strings.NewReplacer(
	" .", ".", " ,", ",", " ;", ";", " :", ":",
	" !", "!", " ?", "?", " )", ")", "( ", "(",
)

func normalizeInline(s string) string {
	s = html.UnescapeString(s)
	parts := strings.Split(s, "\n")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Join(strings.Fields(part), " ")
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return inlinePunctFix.Replace(strings.Join(out, "\n"))
}

func wrapPrefixed(text string, width int, firstPrefix, restPrefix string) []string {
	text = normalizeInline(text)
	if text == "" {
		return nil
	}
	if width < 1 {
		return []string{firstPrefix + text}
	}
	first := true
	out := make([]string, 0, 4)
	for _, p := range strings.Split(text, "\n") {
		prefix := restPrefix
		w := max(1, width-visibleLen(restPrefix))
		if first {
			prefix = firstPrefix
			w = max(1, width-visibleLen(firstPrefix))
		}
		for i, line := range wrapText(p, w) {
			if first && i == 0 {
				out = append(out, prefix+line)
				continue
			}
			out = append(out, restPrefix+line)
		}
		first = false
	}
	return trimBlankLines(out)
}

func appendBlock(lines, block []string) []string {
	if len(block) == 0 {
		return lines
	}
	if len(lines) > 0 && lines[len(lines)-1] != "" {
		lines = append(lines, "")
	}
	return append(lines, block...)
}

func bulletMarker(depth int) string {
	switch depth {
	case 1:
		return "• "
	case 2:
		return "◦ "
	default:
		return "▪ "
	}
}

func isBlockTag(tag string) bool {
	switch strings.ToLower(tag) {
	case "h1", "h2", "h3", "h4", "h5", "h6",
		"p", "div", "section", "article", "main", "header", "footer", "aside", "nav",
		"blockquote", "ul", "ol", "li", "table", "thead", "tbody", "tfoot", "tr", "td", "th",
		"img", "dl", "dt", "dd", "pre", "figure", "figcaption", "caption", "hr", "iframe", "svg",
		"script", "style", "noscript":
		return true
	default:
		return false
	}
}

func hasBlockChild(node *nethtml.Node) bool {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == nethtml.ElementNode && isBlockTag(child.Data) {
			return true
		}
	}
	return false
}

func nodeAttr(node *nethtml.Node, name string) string {
	for _, attr := range node.Attr {
		if strings.EqualFold(attr.Key, name) {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

func rawText(node *nethtml.Node) string {
	if node == nil {
		return ""
	}
	if node.Type == nethtml.TextNode {
		return node.Data
	}
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(rawText(child))
	}
	return b.String()
}
