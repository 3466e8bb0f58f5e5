package theme

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/lumen-reader/lumen/internal/miniflux"
)

func TestStyleArticleTitle_ByState(t *testing.T) {
	lipgloss.SetColorProfile(termenv.ANSI)
	th := Default()

	unread := th.StyleArticleTitle(miniflux.Article{}, "Unread")
	if !strings.Contains(unread, "\x1b[") {
		t.Fatalf("expected styled unread title, got %q", unread)
	}

	starredRead := th.StyleArticleTitle(miniflux.Article{IsRead: true, Starred: true}, "Starred")
	if !strings.Contains(starredRead, "\x1b[") {
		t.Fatalf("expected styled starred title, got %q", starredRead)
	}

	read := th.StyleArticleTitle(miniflux.Article{IsRead: true}, "Read")
	if !strings.Contains(read, "\x1b[") {
		t.Fatalf("expected styled read title, got %q", read)
	}

	unreadStarred := th.StyleArticleTitle(miniflux.Article{Starred: true}, "Both")
	if !strings.Contains(unreadStarred, "\x1b[") {
		t.Fatalf("expected styled unread+starred title, got %q", unreadStarred)
	}

	// The four states render distinctly.
	seen := map[string]bool{unread: true, starredRead: true, read: true, unreadStarred: true}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct renderings, got %d", len(seen))
	}
}

func TestRenderActiveLine(t *testing.T) {
	lipgloss.SetColorProfile(termenv.ANSI)
	th := Default()
	if got := th.RenderActiveLine(false, "plain"); got != "plain" {
		t.Fatalf("inactive line should pass through, got %q", got)
	}
	if got := th.RenderActiveLine(true, "active"); !strings.Contains(got, "\x1b[") {
		t.Fatalf("active line should be styled, got %q", got)
	}
}
