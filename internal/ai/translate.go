package ai

import (
	"context"
	"html"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	nethtml "golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// DefaultTranslateWorkers bounds how many translate requests are in flight
// for one bilingual session.
const DefaultTranslateWorkers = 5

// Block is one translatable unit of an article: the text of a block-level
// element, or an accumulated run of inline content between block elements.
type Block struct {
	Text  string
	Title bool
}

// BlockResult reports one finished block. Err marks only that block as
// failed; the session continues.
type BlockResult struct {
	Index      int
	Translated string
	Err        error
}

var skipTags = map[string]bool{
	"script": true,
	"style":  true,
	"svg":    true,
	"iframe": true,
	"button": true,
	"code":   true,
}

// Opaque content would be mangled by sentence-level translation, so these
// blocks are left untouched.
var opaqueTags = map[string]bool{
	"math":  true,
	"pre":   true,
	"table": true,
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "blockquote": true,
	"figure": true, "figcaption": true, "header": true, "footer": true,
	"aside": true, "main": true,
}

// ExtractBlocks walks the article body's direct children and collects the
// translatable blocks in document order. Inline runs between block elements
// are flushed as one virtual block.
func ExtractBlocks(title, content string) []Block {
	blocks := make([]Block, 0, 16)
	if t := strings.TrimSpace(title); t != "" && meaningfulText(t) {
		blocks = append(blocks, Block{Text: t, Title: true})
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return blocks
	}
	doc, err := nethtml.Parse(strings.NewReader("<html><body>" + content + "</body></html>"))
	if err != nil {
		return blocks
	}
	body := findBody(doc)
	if body == nil {
		return blocks
	}

	var inline []string
	flush := func() {
		text := normalizeText(strings.Join(inline, " "))
		inline = inline[:0]
		if meaningfulText(text) {
			blocks = append(blocks, Block{Text: text})
		}
	}

	for node := body.FirstChild; node != nil; node = node.NextSibling {
		switch node.Type {
		case nethtml.TextNode:
			inline = append(inline, node.Data)
		case nethtml.ElementNode:
			tag := strings.ToLower(node.Data)
			if skipTags[tag] {
				continue
			}
			if !blockTags[tag] {
				inline = append(inline, inlineText(node))
				continue
			}
			flush()
			if containsOpaque(node) {
				continue
			}
			switch tag {
			case "ul", "ol":
				for item := node.FirstChild; item != nil; item = item.NextSibling {
					if item.Type == nethtml.ElementNode && strings.ToLower(item.Data) == "li" {
						if text := normalizeText(collectText(item)); meaningfulText(text) {
							blocks = append(blocks, Block{Text: text})
						}
					}
				}
			default:
				if text := normalizeText(collectText(node)); meaningfulText(text) {
					blocks = append(blocks, Block{Text: text})
				}
			}
		}
	}
	flush()
	return blocks
}

// meaningfulText strips punctuation, symbols, digits and whitespace and
// requires at least one letter to remain. Very short fragments are dropped,
// except single CJK runes, which can be a whole word on their own.
func meaningfulText(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	letters := 0
	cjk := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
				cjk = true
			}
		}
	}
	if letters == 0 {
		return false
	}
	if utf8.RuneCountInString(s) < 2 && !cjk {
		return false
	}
	return true
}

// TranslateBlocks runs a bounded worker pool over the blocks. Workers pull
// indices from a shared counter, so at most `workers` requests are in flight
// at once. onResult is invoked from worker goroutines; the caller is
// responsible for serializing what it does with results. The context is
// checked both before dispatching and after receiving each response, so no
// result is delivered after cancellation.
func TranslateBlocks(ctx context.Context, blocks []Block, targetLang string, workers int, translate func(ctx context.Context, text, lang string) (string, error), onResult func(BlockResult)) error {
	if len(blocks) == 0 {
		return nil
	}
	if workers < 1 {
		workers = DefaultTranslateWorkers
	}

	var next atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				i := int(next.Add(1)) - 1
				if i >= len(blocks) {
					return nil
				}
				translated, err := translate(ctx, blocks[i].Text, targetLang)
				if cerr := ctx.Err(); cerr != nil {
					return cerr
				}
				onResult(BlockResult{Index: i, Translated: translated, Err: err})
			}
		})
	}
	return g.Wait()
}

func findBody(doc *nethtml.Node) *nethtml.Node {
	var body *nethtml.Node
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		if body != nil {
			return
		}
		if n.Type == nethtml.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return body
}

func containsOpaque(node *nethtml.Node) bool {
	if node.Type == nethtml.ElementNode && opaqueTags[strings.ToLower(node.Data)] {
		return true
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if containsOpaque(c) {
			return true
		}
	}
	return false
}

func inlineText(node *nethtml.Node) string {
	if node.Type == nethtml.ElementNode && skipTags[strings.ToLower(node.Data)] {
		return ""
	}
	return collectText(node)
}

func collectText(node *nethtml.Node) string {
	if node.Type == nethtml.TextNode {
		return node.Data
	}
	if node.Type == nethtml.ElementNode && skipTags[strings.ToLower(node.Data)] {
		return ""
	}
	var b strings.Builder
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(collectText(c))
	}
	return b.String()
}

func normalizeText(s string) string {
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
