package session

import (
	"context"
	"sync"
	"time"

	"github.com/lumen-reader/lumen/internal/logging"
	"github.com/lumen-reader/lumen/internal/miniflux"
)

// Source is the slice of the backend API the controller needs.
type Source interface {
	ListArticles(ctx context.Context, q miniflux.ArticleQuery) (miniflux.ArticlesPage, error)
	ListDigests(ctx context.Context, unreadOnly bool) (miniflux.DigestList, error)
}

// Scope selects which article sequence is being browsed. The zero value is
// the all-articles timeline.
type Scope struct {
	FeedID     int64
	GroupID    int64
	Favorites  bool
	Digests    bool
	Search     string
	UnreadOnly bool
}

// Pollable reports whether background polling makes sense for this scope.
// Favorites and search results do not gain new items on their own, and the
// digest list is refreshed explicitly.
func (s Scope) Pollable() bool {
	return !s.Favorites && !s.Digests && s.Search == ""
}

type EventKind int

const (
	// KindReset carries the first page of a fresh scope; the previous
	// sequence is discarded.
	KindReset EventKind = iota
	// KindAppend carries the next page, already deduplicated.
	KindAppend
	// KindPrepend carries newly arrived items found by the poller.
	KindPrepend
	// KindError reports a failed load. Articles is nil.
	KindError
)

// Event is one state transition for the article sequence. Token identifies
// the scope generation the event belongs to; the subscriber drops events
// whose token no longer matches. Total is the backend's count for the whole
// scope; zero on prepends, which carry only the delta.
type Event struct {
	Token    int64
	Kind     EventKind
	Articles []miniflux.Article
	Page     int
	HasMore  bool
	Total    int
	Err      error
}

type prefetched struct {
	token    int64
	page     int
	articles []miniflux.Article
	hasMore  bool
	total    int
}

// Controller owns pagination, polling, prefetch and deduplication for one
// article list. It never touches the rendered sequence directly: every
// mutation travels through the event channel and is applied by whoever
// drains it, so the sequence has a single writer.
type Controller struct {
	src       Source
	limit     int
	pollEvery time.Duration
	events    chan Event

	baseCtx context.Context
	cancel  context.CancelFunc

	mu         sync.Mutex
	scope      Scope
	token      int64
	genCtx     context.Context
	genCancel  context.CancelFunc
	page       int
	hasMore    bool
	loading    bool
	known      map[int64]struct{}
	maxKnown   int64
	prefetch   *prefetched
	lastScroll time.Time
	hidden     bool
}

type Config struct {
	PageLimit    int           // items per page, default 50
	PollInterval time.Duration // 0 disables polling
}

func NewController(src Source, cfg Config) *Controller {
	if cfg.PageLimit < 1 {
		cfg.PageLimit = 50
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		src:       src,
		limit:     cfg.PageLimit,
		pollEvery: cfg.PollInterval,
		events:    make(chan Event, 16),
		baseCtx:   ctx,
		cancel:    cancel,
		known:     make(map[int64]struct{}),
	}
	if c.pollEvery > 0 {
		go c.pollLoop()
	}
	return c
}

// Events is drained by the UI loop. After Close no further events arrive;
// the channel stays open so a late reader never sees phantom zero values.
func (c *Controller) Events() <-chan Event { return c.events }

// Close cancels every in-flight request and stops the poller.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.genCancel != nil {
		c.genCancel()
	}
	c.mu.Unlock()
	c.cancel()
}

// SetScope switches to a new sequence. The token advances immediately, so
// responses for the previous scope are dropped no matter when they land.
func (c *Controller) SetScope(scope Scope) {
	c.mu.Lock()
	if c.genCancel != nil {
		c.genCancel()
	}
	c.token++
	token := c.token
	c.scope = scope
	c.genCtx, c.genCancel = context.WithCancel(c.baseCtx)
	ctx := c.genCtx
	c.page = 0
	c.hasMore = false
	c.loading = true
	c.known = make(map[int64]struct{})
	c.maxKnown = 0
	c.prefetch = nil
	c.mu.Unlock()

	go c.loadFirst(ctx, token, scope)
}

// Reload refetches the current scope from the top, e.g. after a failed
// first page.
func (c *Controller) Reload() {
	c.mu.Lock()
	scope := c.scope
	c.mu.Unlock()
	c.SetScope(scope)
}

// LoadMore fetches the next page. Calls while a load is running or when the
// sequence is exhausted are no-ops, so the scroll engine may signal freely.
func (c *Controller) LoadMore() {
	c.mu.Lock()
	if c.loading || !c.hasMore {
		c.mu.Unlock()
		return
	}
	c.loading = true
	token := c.token
	scope := c.scope
	next := c.page + 1
	ctx := c.genCtx
	pf := c.prefetch
	c.prefetch = nil
	c.mu.Unlock()

	if pf != nil && pf.token == token && pf.page == next {
		go func() {
			c.deliverPage(token, next, pf.articles, pf.hasMore, pf.total, KindAppend)
			c.prefetchNext(ctx, token, scope, next)
		}()
		return
	}

	go func() {
		page, err := c.src.ListArticles(ctx, c.query(scope, next))
		if err != nil {
			c.deliverError(token, err)
			return
		}
		c.deliverPage(token, next, page.Articles, page.Pagination.HasMore, page.Pagination.Total, KindAppend)
		c.prefetchNext(ctx, token, scope, next)
	}()
}

// NoteScrolled suppresses the next poll tick; refreshing under the user's
// thumb causes anchor jumps.
func (c *Controller) NoteScrolled() {
	c.mu.Lock()
	c.lastScroll = time.Now()
	c.mu.Unlock()
}

// SetHidden pauses polling while the list is not on screen.
func (c *Controller) SetHidden(hidden bool) {
	c.mu.Lock()
	c.hidden = hidden
	c.mu.Unlock()
}

// Forget removes ids from the dedup set, e.g. when the UI drops items.
func (c *Controller) Forget(ids []int64) {
	c.mu.Lock()
	for _, id := range ids {
		delete(c.known, id)
	}
	c.mu.Unlock()
}

func (c *Controller) loadFirst(ctx context.Context, token int64, scope Scope) {
	if scope.Digests {
		list, err := c.src.ListDigests(ctx, scope.UnreadOnly)
		if err != nil {
			c.deliverError(token, err)
			return
		}
		articles := append(append([]miniflux.Article(nil), list.Pinned...), list.Normal...)
		c.deliverPage(token, 1, articles, false, len(articles), KindReset)
		return
	}

	page, err := c.src.ListArticles(ctx, c.query(scope, 1))
	if err != nil {
		c.deliverError(token, err)
		return
	}
	c.deliverPage(token, 1, page.Articles, page.Pagination.HasMore, page.Pagination.Total, KindReset)
	c.prefetchNext(ctx, token, scope, 1)
}

// prefetchNext warms the following page so LoadMore usually resolves
// without a round trip. Errors are dropped; the real fetch will retry.
func (c *Controller) prefetchNext(ctx context.Context, token int64, scope Scope, current int) {
	c.mu.Lock()
	ok := c.token == token && c.hasMore
	c.mu.Unlock()
	if !ok {
		return
	}

	page, err := c.src.ListArticles(ctx, c.query(scope, current+1))
	if err != nil {
		logging.Debug("prefetch failed", "page", current+1, "error", err)
		return
	}

	c.mu.Lock()
	if c.token == token && c.page == current {
		c.prefetch = &prefetched{
			token:    token,
			page:     current + 1,
			articles: page.Articles,
			hasMore:  page.Pagination.HasMore,
			total:    page.Pagination.Total,
		}
	}
	c.mu.Unlock()
}

// deliverPage records the page under the lock, then emits the deduplicated
// slice. Stale tokens are dropped here, so a late response from an abandoned
// scope can never reach the sequence.
func (c *Controller) deliverPage(token int64, page int, articles []miniflux.Article, hasMore bool, total int, kind EventKind) {
	c.mu.Lock()
	if c.token != token {
		c.mu.Unlock()
		return
	}
	fresh := dedupNew(c.known, articles)
	for _, a := range fresh {
		c.known[a.ID] = struct{}{}
		if a.ID > c.maxKnown {
			c.maxKnown = a.ID
		}
	}
	resolveThumbnails(fresh)
	if kind != KindPrepend {
		c.page = page
		c.hasMore = hasMore
		c.loading = false
	}
	c.mu.Unlock()

	if kind == KindPrepend && len(fresh) == 0 {
		return
	}
	c.emit(Event{Token: token, Kind: kind, Articles: fresh, Page: page, HasMore: hasMore, Total: total})
}

func (c *Controller) deliverError(token int64, err error) {
	c.mu.Lock()
	if c.token != token {
		c.mu.Unlock()
		return
	}
	c.loading = false
	c.mu.Unlock()

	logging.Warn("article load failed", "error", err)
	c.emit(Event{Token: token, Kind: KindError, Err: err})
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.baseCtx.Done():
	}
}

// pollLoop refetches the first unread page on a timer and prepends what is
// strictly newer than anything already delivered. The id cutoff keeps an old
// article that drifted back into page 1 (items ahead of it got read) from
// landing above newer ones. Ticks are skipped while the conditions make a
// refresh useless or harmful.
func (c *Controller) pollLoop() {
	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-c.baseCtx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		skip := c.hidden ||
			len(c.known) == 0 ||
			!c.scope.Pollable() ||
			time.Since(c.lastScroll) < time.Second
		token := c.token
		scope := c.scope
		ctx := c.genCtx
		maxKnown := c.maxKnown
		c.mu.Unlock()
		if skip || ctx == nil {
			continue
		}

		q := c.query(scope, 1)
		q.UnreadOnly = true
		page, err := c.src.ListArticles(ctx, q)
		if err != nil {
			logging.Debug("poll failed", "error", err)
			continue
		}
		fresh := newerThan(page.Articles, maxKnown)
		if len(fresh) == 0 {
			continue
		}
		c.deliverPage(token, 1, fresh, page.Pagination.HasMore, 0, KindPrepend)
	}
}

// newerThan keeps the articles with ids above the cutoff, preserving order.
func newerThan(articles []miniflux.Article, cutoff int64) []miniflux.Article {
	fresh := make([]miniflux.Article, 0, len(articles))
	for _, a := range articles {
		if a.ID > cutoff {
			fresh = append(fresh, a)
		}
	}
	return fresh
}

func (c *Controller) query(scope Scope, page int) miniflux.ArticleQuery {
	return miniflux.ArticleQuery{
		Page:       page,
		Limit:      c.limit,
		UnreadOnly: scope.UnreadOnly,
		FeedID:     scope.FeedID,
		GroupID:    scope.GroupID,
		Favorites:  scope.Favorites,
		Search:     scope.Search,
	}
}

// dedupNew returns the articles not yet present in known, preserving order.
// Pure over its inputs; the caller updates the set.
func dedupNew(known map[int64]struct{}, incoming []miniflux.Article) []miniflux.Article {
	fresh := make([]miniflux.Article, 0, len(incoming))
	seen := make(map[int64]struct{}, len(incoming))
	for _, a := range incoming {
		if _, dup := known[a.ID]; dup {
			continue
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		fresh = append(fresh, a)
	}
	return fresh
}
