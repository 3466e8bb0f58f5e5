package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/lumen-reader/lumen/internal/ai"
	"github.com/lumen-reader/lumen/internal/miniflux"
	"github.com/lumen-reader/lumen/internal/render/article"
	"github.com/lumen-reader/lumen/internal/session"
	tuiplatform "github.com/lumen-reader/lumen/internal/tui/platform"
	tuistate "github.com/lumen-reader/lumen/internal/tui/state"
	tuitree "github.com/lumen-reader/lumen/internal/tui/tree"
	"github.com/lumen-reader/lumen/internal/tui/vlist"
)

const statusLifetime = 4 * time.Second

func (m *Model) replaceArticles(articles []miniflux.Article) {
	m.data.articles = append(m.data.articles[:0:0], articles...)
	m.data.index = make(map[int64]int, len(articles))
	for i, a := range m.data.articles {
		m.data.index[a.ID] = i
	}
	m.list.SetItems(toItems(m.data.articles))
	if len(m.data.articles) > 0 {
		m.setActive(m.data.articles[0].ID)
	} else {
		m.activeID = 0
	}
}

func (m *Model) appendArticles(articles []miniflux.Article) {
	for _, a := range articles {
		m.data.articles = append(m.data.articles, a)
		m.data.index[a.ID] = len(m.data.articles) - 1
	}
	m.list.AppendItems(toItems(articles))
}

func (m *Model) prependArticles(articles []miniflux.Article) {
	m.data.articles = append(append([]miniflux.Article(nil), articles...), m.data.articles...)
	m.data.index = make(map[int64]int, len(m.data.articles))
	for i, a := range m.data.articles {
		m.data.index[a.ID] = i
	}
	m.list.PrependItems(toItems(articles))
}

func toItems(articles []miniflux.Article) []vlist.Item {
	items := make([]vlist.Item, len(articles))
	for i, a := range articles {
		items[i] = vlist.Item{ID: a.ID, Unread: !a.IsRead, Digest: a.IsDigest()}
	}
	return items
}

func (m Model) applySessionEvent(ev session.Event) Model {
	switch ev.Kind {
	case session.KindReset:
		m.loading = false
		m.loadErr = nil
		m.hasMore = ev.HasMore
		m.total = ev.Total
		m.replaceArticles(ev.Articles)
	case session.KindAppend:
		m.hasMore = ev.HasMore
		m.total = ev.Total
		m.appendArticles(ev.Articles)
	case session.KindPrepend:
		if len(ev.Articles) > 0 {
			m.prependArticles(ev.Articles)
			m.status = newItemsLabel(len(ev.Articles))
			// Prepends carry only the delta, not a fresh backend total.
			if m.total > 0 {
				m.total += len(ev.Articles)
			}
		}
	case session.KindError:
		m.loading = false
		if len(m.data.articles) == 0 {
			m.loadErr = ev.Err
		} else if ev.Err != nil {
			m.status = "Load failed: " + ev.Err.Error()
		}
	}
	return m
}

func newItemsLabel(n int) string {
	if n == 1 {
		return "1 new article"
	}
	return fmt.Sprintf("%d new articles", n)
}

// cacheCmd persists freshly fetched pages of the default timeline so the next
// launch has something to show offline.
func (m Model) cacheCmd(ev session.Event) tea.Cmd {
	if m.svc == nil || len(ev.Articles) == 0 {
		return nil
	}
	if ev.Kind != session.KindReset && ev.Kind != session.KindPrepend {
		return nil
	}
	if m.scope != (session.Scope{}) {
		return nil
	}
	return cacheArticlesCmd(m.svc, ev.Articles)
}

// groupsRefreshCmd reloads the sidebar after the poller found new articles,
// so the unread counts track the prepended items.
func (m Model) groupsRefreshCmd(ev session.Event) tea.Cmd {
	if m.svc == nil || ev.Kind != session.KindPrepend || len(ev.Articles) == 0 {
		return nil
	}
	return loadGroupsCmd(m.svc)
}

func (m Model) applyMarkedRead(ids []int64) (tea.Model, tea.Cmd) {
	for _, id := range ids {
		if idx, ok := m.data.index[id]; ok {
			m.data.articles[idx].IsRead = true
		}
		m.list.UpdateItem(id, func(it *vlist.Item) { it.Unread = false })
	}
	if m.svc == nil {
		return m, nil
	}
	return m, markReadLocalCmd(m.svc, ids)
}

func (m *Model) flipStar(id int64) {
	idx, ok := m.data.index[id]
	if !ok {
		return
	}
	m.data.articles[idx].Starred = !m.data.articles[idx].Starred
	m.list.UpdateItem(id, func(*vlist.Item) {})
	if m.detail.article.ID == id {
		m.detail.article.Starred = m.data.articles[idx].Starred
	}
}

func (m Model) toggleStar(id int64) (tea.Model, tea.Cmd) {
	if id == 0 || m.svc == nil {
		return m, nil
	}
	if _, ok := m.data.index[id]; !ok {
		return m, nil
	}
	m.flipStar(id)
	return m, toggleStarCmd(m.svc, id)
}

func (m *Model) rebuildSidebar() {
	m.rows = tuitree.BuildRows(m.groups, m.buildOptions())
	m.sidebarCursor = tuistate.ClampCursor(m.sidebarCursor, len(m.rows))
	if len(m.rows) > 0 && !m.rows[m.sidebarCursor].Selectable() {
		m.sidebarCursor = tuistate.NextSelectable(m.rows, m.sidebarCursor, 1)
	}
}

func (m Model) buildOptions() tuitree.BuildOptions {
	collapsed := make(map[int64]bool, len(m.prefs.CollapsedGroups))
	for _, id := range m.prefs.CollapsedGroups {
		collapsed[id] = true
	}
	return tuitree.BuildOptions{Collapsed: collapsed, Pinned: m.prefs.PinnedGroups}
}

func (m Model) toggleCollapsed() (tea.Model, tea.Cmd) {
	if m.sidebarCursor >= len(m.rows) {
		return m, nil
	}
	row := m.rows[m.sidebarCursor]
	if row.Kind != tuitree.RowGroup {
		return m, nil
	}
	m.prefs.CollapsedGroups = toggleID(m.prefs.CollapsedGroups, row.GroupID)
	m.rebuildSidebar()
	// Keep the cursor on the toggled group.
	if idx := tuistate.CursorForScope(m.rows, func(r tuitree.Row) bool {
		return r.Kind == tuitree.RowGroup && r.GroupID == row.GroupID
	}); idx >= 0 {
		m.sidebarCursor = idx
	}
	return m, savePreferencesCmd(m.svc, m.prefs)
}

func (m Model) togglePinned() (tea.Model, tea.Cmd) {
	if m.sidebarCursor >= len(m.rows) {
		return m, nil
	}
	row := m.rows[m.sidebarCursor]
	if row.Kind != tuitree.RowGroup {
		return m, nil
	}
	m.prefs.PinnedGroups = toggleID(m.prefs.PinnedGroups, row.GroupID)
	m.rebuildSidebar()
	if idx := tuistate.CursorForScope(m.rows, func(r tuitree.Row) bool {
		return r.Kind == tuitree.RowGroup && r.GroupID == row.GroupID
	}); idx >= 0 {
		m.sidebarCursor = idx
	}
	return m, savePreferencesCmd(m.svc, m.prefs)
}

func toggleID(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids)+1)
	removed := false
	for _, v := range ids {
		if v == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	if !removed {
		out = append(out, id)
	}
	return out
}

func (m Model) applyScope(scope session.Scope, label string) (tea.Model, tea.Cmd) {
	m.scope = scope
	m.scopeLabel = label
	m.loading = true
	m.loadErr = nil
	m.status = ""
	if m.tracker != nil {
		m.tracker.Reset()
	}
	if m.sess != nil {
		m.sess.SetScope(scope)
	}
	return m, m.spinner.Tick
}

func (m *Model) moveActive(delta int) {
	if len(m.data.articles) == 0 {
		return
	}
	idx, ok := m.data.index[m.activeID]
	if !ok {
		idx = 0
	} else {
		idx += delta
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.data.articles) {
		idx = len(m.data.articles) - 1
	}
	m.setActive(m.data.articles[idx].ID)
	m.list.ScrollToItem(m.activeID)
	if m.sess != nil && delta != 0 {
		m.sess.NoteScrolled()
	}
}

func (m *Model) setActive(id int64) {
	m.activeID = id
	m.list.SetActive(id)
}

// syncActiveToViewport snaps the cursor to the first fully visible item after
// a page jump.
func (m *Model) syncActiveToViewport() {
	start, end := m.list.Window()
	for i := start; i < end; i++ {
		it, ok := m.list.ItemAt(i)
		if !ok {
			continue
		}
		m.setActive(it.ID)
		return
	}
}

func (m Model) openDetail() (tea.Model, tea.Cmd) {
	idx, ok := m.data.index[m.activeID]
	if !ok {
		return m, nil
	}
	a := m.data.articles[idx]
	m.detail = detailState{
		open:    true,
		article: a,
		contentLines: article.ContentLinesWithOptions(a, m.detailWidth(), article.Options{
			ShowImages: m.prefs.ShowThumbnails,
			StyleLinks: true,
		}),
	}
	// Opening counts as reading.
	if m.tracker != nil && !a.IsRead {
		m.tracker.Observe([]int64{a.ID})
	}
	// The list is off screen now; polling into it would be wasted work.
	if m.sess != nil {
		m.sess.SetHidden(true)
	}
	if m.prefs.ShowThumbnails && a.ThumbnailURL != "" {
		return m, thumbnailCmd(m.renderThumbFn, a.ID, a.ThumbnailURL, m.detailWidth())
	}
	return m, nil
}

func (m Model) closeDetail() (tea.Model, tea.Cmd) {
	id := m.detail.article.ID
	m.registry.Cancel(id, ai.OpSummarize)
	m.registry.Cancel(id, ai.OpTranslate)
	m.detail = detailState{}
	if m.sess != nil {
		m.sess.SetHidden(false)
	}
	return m, nil
}

func (m Model) startSummary() (tea.Model, tea.Cmd) {
	if m.assistant == nil || m.detail.summarizing {
		return m, nil
	}
	a := m.detail.article
	ctx, done, ok := m.registry.Begin(context.Background(), a.ID, ai.OpSummarize)
	if !ok {
		m.status = "Summary already running"
		return m, m.clearStatusLater()
	}
	m.detail.summarizing = true
	m.detail.summary = ""
	m.detail.summaryRendered = ""

	notifier := m.notifier
	assistant := m.assistant
	lang := m.prefs.Language
	text := article.PlainText(a)
	go func() {
		defer done()
		final, err := assistant.Summarize(ctx, text, lang, func(markdown string) {
			notifier.push(summaryDeltaMsg{articleID: a.ID, markdown: markdown})
		})
		if err != nil {
			notifier.send(summaryErrorMsg{articleID: a.ID, err: err})
			return
		}
		notifier.send(summaryDoneMsg{articleID: a.ID, markdown: final})
	}()
	return m, m.spinner.Tick
}

func (m Model) startOrToggleTranslation() (tea.Model, tea.Cmd) {
	if len(m.detail.translations) > 0 || m.detail.translating {
		m.detail.showTranslation = !m.detail.showTranslation
		return m, nil
	}
	if m.assistant == nil {
		return m, nil
	}
	a := m.detail.article
	blocks := ai.ExtractBlocks(a.Title, a.Content)
	if len(blocks) == 0 {
		m.status = "Nothing to translate"
		return m, m.clearStatusLater()
	}
	ctx, done, ok := m.registry.Begin(context.Background(), a.ID, ai.OpTranslate)
	if !ok {
		m.status = "Translation already running"
		return m, m.clearStatusLater()
	}
	m.detail.translating = true
	m.detail.showTranslation = true
	m.detail.blocks = blocks
	m.detail.translations = make(map[int]string)

	notifier := m.notifier
	assistant := m.assistant
	lang := m.prefs.Language
	go func() {
		defer done()
		err := ai.TranslateBlocks(ctx, blocks, lang, ai.DefaultTranslateWorkers,
			assistant.Translate,
			func(res ai.BlockResult) {
				notifier.send(translationResultMsg{articleID: a.ID, result: res})
			})
		notifier.send(translationDoneMsg{articleID: a.ID, err: err})
	}()
	return m, m.spinner.Tick
}

func (m Model) openActiveURL() (tea.Model, tea.Cmd) {
	idx, ok := m.data.index[m.activeID]
	if !ok {
		return m, nil
	}
	return m.openArticleURL(m.data.articles[idx])
}

func (m Model) openArticleURL(a miniflux.Article) (tea.Model, tea.Cmd) {
	url, err := tuiplatform.ValidateArticleURL(a.URL)
	if err != nil {
		m.status = err.Error()
		return m, m.clearStatusLater()
	}
	if err := m.openURLFn(url); err != nil {
		m.status = "Open URL: " + err.Error()
		return m, m.clearStatusLater()
	}
	m.status = "Opened in browser"
	return m, m.clearStatusLater()
}

func (m Model) copyArticleURL(a miniflux.Article) (tea.Model, tea.Cmd) {
	url, err := tuiplatform.ValidateArticleURL(a.URL)
	if err != nil {
		m.status = err.Error()
		return m, m.clearStatusLater()
	}
	if err := m.copyURLFn(url); err != nil {
		m.status = "Copy URL: " + err.Error()
		return m, m.clearStatusLater()
	}
	m.status = "URL copied"
	return m, m.clearStatusLater()
}

func (m *Model) renderMarkdown(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(minInt(m.detailWidth(), 96)),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n")
}

func (m *Model) clearStatusLater() tea.Cmd {
	m.statusID++
	id := m.statusID
	return tea.Tick(statusLifetime, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

func (m Model) listWidth() int {
	w := m.width - sidebarWidth - 1
	if w < 20 {
		w = maxInt(20, m.width-1)
	}
	return w
}

func (m Model) detailWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 76
	}
	if w > 110 {
		w = 110
	}
	return w
}

func (m Model) bodyHeight() int {
	h := m.height - 4
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) clampDetailTop() {
	total := len(m.detailLines())
	maxTop := total - m.bodyHeight()
	if maxTop < 0 {
		maxTop = 0
	}
	if m.detail.top > maxTop {
		m.detail.top = maxTop
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
