package session

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lumen-reader/lumen/internal/miniflux"
)

// minDeclaredWidth rejects decorative icons when the markup declares a size.
// Images without a declared width are accepted.
const minDeclaredWidth = 100

// ExtractThumbnail finds the first usable image URL in article HTML.
// Data URIs, SVGs and tracking pixels are skipped; <picture><source srcset>
// serves as a fallback when no <img> qualifies. Returns "" when nothing
// qualifies.
func ExtractThumbnail(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if !ok {
			src, ok = sel.Attr("data-src")
		}
		if !ok || !usableImageURL(src) {
			return true
		}
		if tooSmall(sel) {
			return true
		}
		found = src
		return false
	})
	if found != "" {
		return found
	}

	doc.Find("picture source").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		srcset, ok := sel.Attr("srcset")
		if !ok {
			return true
		}
		src := firstSrcsetURL(srcset)
		if !usableImageURL(src) {
			return true
		}
		found = src
		return false
	})
	return found
}

// resolveThumbnails fills in a thumbnail for articles the backend sent
// without one. Runs once per article, before the sequence reaches the UI.
func resolveThumbnails(articles []miniflux.Article) {
	for i := range articles {
		if articles[i].ThumbnailURL != "" || articles[i].Content == "" {
			continue
		}
		articles[i].ThumbnailURL = ExtractThumbnail(articles[i].Content)
	}
}

func usableImageURL(src string) bool {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "data:") {
		return false
	}
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") && !strings.HasPrefix(src, "//") {
		return false
	}
	path := src
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return !strings.HasSuffix(strings.ToLower(path), ".svg")
}

// tooSmall rejects tracking pixels and declared-tiny images. Undeclared
// dimensions pass.
func tooSmall(sel *goquery.Selection) bool {
	w, hasW := sel.Attr("width")
	h, hasH := sel.Attr("height")
	if hasH {
		if n, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && n <= 1 {
			return true
		}
	}
	if hasW {
		n, err := strconv.Atoi(strings.TrimSpace(w))
		if err == nil && n < minDeclaredWidth {
			return true
		}
	}
	return false
}

// firstSrcsetURL takes the URL of the first srcset candidate, dropping the
// width or density descriptor.
func firstSrcsetURL(srcset string) string {
	first := srcset
	if i := strings.IndexByte(first, ','); i >= 0 {
		first = first[:i]
	}
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
