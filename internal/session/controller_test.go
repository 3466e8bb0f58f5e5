package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lumen-reader/lumen/internal/miniflux"
)

type fakeSource struct {
	mu      sync.Mutex
	pages   map[int]miniflux.ArticlesPage
	digests miniflux.DigestList
	err     error
	gate    chan struct{} // when set, ListArticles waits for it to close
	calls   map[int]int
	queries []miniflux.ArticleQuery
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages: make(map[int]miniflux.ArticlesPage),
		calls: make(map[int]int),
	}
}

func (f *fakeSource) setPage(page int, hasMore bool, ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page] = miniflux.ArticlesPage{
		Articles:   arts(ids...),
		Pagination: miniflux.Pagination{Page: page, HasMore: hasMore},
	}
}

func (f *fakeSource) callCount(page int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[page]
}

func (f *fakeSource) lastQuery() miniflux.ArticleQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return miniflux.ArticleQuery{}
	}
	return f.queries[len(f.queries)-1]
}

func (f *fakeSource) ListArticles(ctx context.Context, q miniflux.ArticleQuery) (miniflux.ArticlesPage, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return miniflux.ArticlesPage{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[q.Page]++
	f.queries = append(f.queries, q)
	if f.err != nil {
		return miniflux.ArticlesPage{}, f.err
	}
	page, ok := f.pages[q.Page]
	if !ok {
		return miniflux.ArticlesPage{Pagination: miniflux.Pagination{Page: q.Page}}, nil
	}
	return page, nil
}

func (f *fakeSource) ListDigests(ctx context.Context, unreadOnly bool) (miniflux.DigestList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.digests, nil
}

func arts(ids ...int64) []miniflux.Article {
	out := make([]miniflux.Article, len(ids))
	for i, id := range ids {
		out[i] = miniflux.Article{ID: id}
	}
	return out
}

func artIDs(articles []miniflux.Article) []int64 {
	out := make([]int64, len(articles))
	for i, a := range articles {
		out[i] = a.ID
	}
	return out
}

func waitEvent(t *testing.T, c *Controller) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func expectNoEvent(t *testing.T, c *Controller, d time.Duration) {
	t.Helper()
	select {
	case ev := <-c.Events():
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(d):
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestSetScopeDeliversFirstPage(t *testing.T) {
	fs := newFakeSource()
	fs.setPage(1, true, 1, 2, 3)
	c := NewController(fs, Config{})
	defer c.Close()

	c.SetScope(Scope{FeedID: 7, UnreadOnly: true})
	ev := waitEvent(t, c)
	if ev.Kind != KindReset {
		t.Fatalf("expected reset, got %+v", ev)
	}
	if got := artIDs(ev.Articles); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("unexpected articles: %v", got)
	}
	if !ev.HasMore || ev.Page != 1 {
		t.Fatalf("unexpected pagination: page=%d hasMore=%v", ev.Page, ev.HasMore)
	}
}

func TestEventCarriesBackendTotal(t *testing.T) {
	fs := newFakeSource()
	fs.mu.Lock()
	fs.pages[1] = miniflux.ArticlesPage{
		Articles:   arts(1, 2),
		Pagination: miniflux.Pagination{Page: 1, HasMore: true, Total: 42},
	}
	fs.mu.Unlock()
	c := NewController(fs, Config{})
	defer c.Close()

	c.SetScope(Scope{})
	ev := waitEvent(t, c)
	if ev.Total != 42 {
		t.Fatalf("total = %d, want 42", ev.Total)
	}
}

func TestLoadMoreUsesPrefetchedPage(t *testing.T) {
	fs := newFakeSource()
	fs.setPage(1, true, 1, 2)
	fs.setPage(2, false, 3, 4)
	c := NewController(fs, Config{})
	defer c.Close()

	c.SetScope(Scope{})
	waitEvent(t, c) // reset

	// The prefetch for page 2 runs right after the first page lands.
	waitFor(t, func() bool { return fs.callCount(2) == 1 })

	c.LoadMore()
	ev := waitEvent(t, c)
	if ev.Kind != KindAppend {
		t.Fatalf("expected append, got %+v", ev)
	}
	if got := artIDs(ev.Articles); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("unexpected articles: %v", got)
	}
	if ev.HasMore {
		t.Fatal("expected hasMore=false from page 2")
	}
	if fs.callCount(2) != 1 {
		t.Fatalf("page 2 fetched %d times, want 1 (prefetch only)", fs.callCount(2))
	}

	// Sequence exhausted: further calls are no-ops.
	c.LoadMore()
	expectNoEvent(t, c, 50*time.Millisecond)
	if fs.callCount(3) != 0 {
		t.Fatal("load-more fetched past the end")
	}
}

func TestAppendDeduplicatesAcrossPages(t *testing.T) {
	fs := newFakeSource()
	fs.setPage(1, true, 1, 2, 3)
	// Page boundary drifted; ids 2 and 3 show up again.
	fs.setPage(2, false, 2, 3, 4)
	c := NewController(fs, Config{})
	defer c.Close()

	c.SetScope(Scope{})
	waitEvent(t, c)
	waitFor(t, func() bool { return fs.callCount(2) == 1 })

	c.LoadMore()
	ev := waitEvent(t, c)
	if got := artIDs(ev.Articles); len(got) != 1 || got[0] != 4 {
		t.Fatalf("expected only id 4 after dedup, got %v", got)
	}
}

func TestStaleResponsesAreDropped(t *testing.T) {
	fs := newFakeSource()
	fs.setPage(1, false, 1, 2)
	fs.digests = miniflux.DigestList{Pinned: arts(90), Normal: arts(91, 92)}
	fs.gate = make(chan struct{})
	c := NewController(fs, Config{})
	defer c.Close()

	c.SetScope(Scope{FeedID: 1}) // blocked on the gate
	c.SetScope(Scope{Digests: true})

	ev := waitEvent(t, c)
	if ev.Kind != KindReset {
		t.Fatalf("expected reset, got %+v", ev)
	}
	if got := artIDs(ev.Articles); len(got) != 3 || got[0] != 90 || got[1] != 91 {
		t.Fatalf("expected digest articles, got %v", got)
	}

	close(fs.gate)
	expectNoEvent(t, c, 100*time.Millisecond)
}

func TestDigestScopeConcatenatesPinnedAndNormal(t *testing.T) {
	fs := newFakeSource()
	fs.digests = miniflux.DigestList{Pinned: arts(5), Normal: arts(6, 7)}
	c := NewController(fs, Config{})
	defer c.Close()

	c.SetScope(Scope{Digests: true, UnreadOnly: true})
	ev := waitEvent(t, c)
	if got := artIDs(ev.Articles); len(got) != 3 || got[0] != 5 || got[2] != 7 {
		t.Fatalf("unexpected digest order: %v", got)
	}
	if ev.HasMore {
		t.Fatal("digest list should never paginate")
	}
}

func TestErrorEventAndReload(t *testing.T) {
	fs := newFakeSource()
	fs.mu.Lock()
	fs.err = errors.New("backend down")
	fs.mu.Unlock()
	c := NewController(fs, Config{})
	defer c.Close()

	c.SetScope(Scope{})
	ev := waitEvent(t, c)
	if ev.Kind != KindError || ev.Err == nil {
		t.Fatalf("expected error event, got %+v", ev)
	}

	fs.mu.Lock()
	fs.err = nil
	fs.mu.Unlock()
	fs.setPage(1, false, 1)

	c.Reload()
	ev = waitEvent(t, c)
	if ev.Kind != KindReset || len(ev.Articles) != 1 {
		t.Fatalf("expected reset after reload, got %+v", ev)
	}
}

func TestPollerPrependsOnlyNewItems(t *testing.T) {
	fs := newFakeSource()
	fs.setPage(1, false, 10, 11)
	c := NewController(fs, Config{PollInterval: 20 * time.Millisecond})
	defer c.Close()

	c.SetScope(Scope{})
	waitEvent(t, c)

	// A new item lands at the head of page 1.
	fs.setPage(1, false, 12, 10, 11)
	ev := waitEvent(t, c)
	if ev.Kind != KindPrepend {
		t.Fatalf("expected prepend, got %+v", ev)
	}
	if got := artIDs(ev.Articles); len(got) != 1 || got[0] != 12 {
		t.Fatalf("expected only id 12, got %v", got)
	}
}

func TestPollerFetchesUnreadAndSkipsOlderIds(t *testing.T) {
	fs := newFakeSource()
	fs.setPage(1, false, 100, 90)
	c := NewController(fs, Config{PollInterval: 20 * time.Millisecond})
	defer c.Close()

	c.SetScope(Scope{})
	waitEvent(t, c)

	// An older, never-seen article drifts into page 1 as items around it
	// get read. It must not be prepended above newer articles.
	fs.setPage(1, false, 100, 90, 50)
	expectNoEvent(t, c, 100*time.Millisecond)

	fs.setPage(1, false, 120, 100, 90, 50)
	ev := waitEvent(t, c)
	if ev.Kind != KindPrepend {
		t.Fatalf("expected prepend, got %+v", ev)
	}
	if got := artIDs(ev.Articles); len(got) != 1 || got[0] != 120 {
		t.Fatalf("expected only id 120, got %v", got)
	}

	q := fs.lastQuery()
	if q.Page != 1 || !q.UnreadOnly {
		t.Fatalf("poll query = %+v, want page 1 unread-only", q)
	}
}

func TestPollerSkipsNonPollableScopes(t *testing.T) {
	fs := newFakeSource()
	fs.setPage(1, false, 1, 2)
	c := NewController(fs, Config{PollInterval: 15 * time.Millisecond})
	defer c.Close()

	c.SetScope(Scope{Favorites: true})
	waitEvent(t, c)

	fs.setPage(1, false, 3, 1, 2)
	expectNoEvent(t, c, 100*time.Millisecond)
}

func TestPollerHoldsOffRightAfterScrolling(t *testing.T) {
	fs := newFakeSource()
	fs.setPage(1, false, 1)
	c := NewController(fs, Config{PollInterval: 15 * time.Millisecond})
	defer c.Close()

	c.SetScope(Scope{})
	waitEvent(t, c)

	fs.setPage(1, false, 2, 1)
	c.NoteScrolled()
	expectNoEvent(t, c, 100*time.Millisecond)
}

func TestPollerPausesWhileHidden(t *testing.T) {
	fs := newFakeSource()
	fs.setPage(1, false, 1)
	c := NewController(fs, Config{PollInterval: 15 * time.Millisecond})
	defer c.Close()

	c.SetScope(Scope{})
	waitEvent(t, c)

	c.SetHidden(true)
	fs.setPage(1, false, 2, 1)
	expectNoEvent(t, c, 100*time.Millisecond)

	c.SetHidden(false)
	ev := waitEvent(t, c)
	if ev.Kind != KindPrepend || len(ev.Articles) != 1 || ev.Articles[0].ID != 2 {
		t.Fatalf("expected prepend of id 2 after unhide, got %+v", ev)
	}
}

func TestDedupNew(t *testing.T) {
	known := map[int64]struct{}{1: {}, 2: {}}
	fresh := dedupNew(known, arts(2, 3, 3, 4, 1))
	if got := artIDs(fresh); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("unexpected dedup result: %v", got)
	}
	if len(known) != 2 {
		t.Fatal("dedupNew must not mutate the known set")
	}
}
