package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumen-reader/lumen/internal/ai"
	"github.com/lumen-reader/lumen/internal/app"
	"github.com/lumen-reader/lumen/internal/miniflux"
	"github.com/lumen-reader/lumen/internal/session"
	tuiplatform "github.com/lumen-reader/lumen/internal/tui/platform"
	tuistate "github.com/lumen-reader/lumen/internal/tui/state"
	tuitheme "github.com/lumen-reader/lumen/internal/tui/theme"
	tuitree "github.com/lumen-reader/lumen/internal/tui/tree"
	tuiview "github.com/lumen-reader/lumen/internal/tui/view"
	"github.com/lumen-reader/lumen/internal/tui/vlist"
)

// Service is the slice of the application layer the model consumes.
type Service interface {
	CacheArticles(ctx context.Context, articles []miniflux.Article) error
	MarkReadLocal(ctx context.Context, ids []int64) error
	LoadGroups(ctx context.Context) ([]miniflux.Group, error)
	ToggleStarred(ctx context.Context, id int64) error
	SavePreferences(ctx context.Context, prefs app.Preferences) error
	ToggleDailyDigest(ctx context.Context, groupID int64) (bool, error)
}

// ListSession is the scope-driven article sequence behind the list pane.
type ListSession interface {
	Events() <-chan session.Event
	SetScope(scope session.Scope)
	Reload()
	LoadMore()
	NoteScrolled()
	SetHidden(hidden bool)
}

// ReadMarker receives the ids the reader scrolled past.
type ReadMarker interface {
	Observe(ids []int64)
	SetEnabled(enabled bool)
	Reset()
	Flush()
}

// Assistant is the streaming AI surface used by the detail pane.
type Assistant interface {
	Summarize(ctx context.Context, text, targetLang string, onUpdate func(markdown string)) (string, error)
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

type focusArea int

const (
	focusSidebar focusArea = iota
	focusList
)

const sidebarWidth = 30

// listData is shared with the list engine's render callback by pointer, so
// the callback sees the current sequence even though bubbletea copies the
// model between updates.
type listData struct {
	articles       []miniflux.Article
	index          map[int64]int
	showThumbnails bool
	now            func() time.Time
	theme          tuitheme.Theme
}

type detailState struct {
	open            bool
	article         miniflux.Article
	contentLines    []string
	top             int
	summary         string
	summaryRendered string
	summarizing     bool
	blocks          []ai.Block
	translations    map[int]string
	translating     bool
	showTranslation bool
	thumbnail       string
	thumbnailErr    string
}

type Model struct {
	svc       Service
	sess      ListSession
	tracker   ReadMarker
	assistant Assistant
	registry  *ai.Registry
	notifier  *Notifier
	th        tuitheme.Theme

	width  int
	height int

	focus    focusArea
	showHelp bool

	groups        []miniflux.Group
	rows          []tuitree.Row
	sidebarCursor int
	scope         session.Scope
	scopeLabel    string

	list     *vlist.List
	data     *listData
	activeID int64
	hasMore  bool
	total    int
	loading  bool
	loadErr  error

	searching   bool
	searchInput textinput.Model
	spinner     spinner.Model

	detail detailState

	prefs    app.Preferences
	status   string
	statusID int

	openURLFn     func(string) error
	copyURLFn     func(string) error
	renderThumbFn func(string, int) (string, error)
}

type Options struct {
	Service   Service
	Session   ListSession
	Tracker   ReadMarker
	Assistant Assistant
	Notifier  *Notifier
	Prefs     app.Preferences
	// Seed is shown until the first page arrives, typically the local cache.
	Seed []miniflux.Article
}

func NewModel(opts Options) Model {
	input := textinput.New()
	input.Placeholder = "search articles"
	input.CharLimit = 120

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		svc:           opts.Service,
		sess:          opts.Session,
		tracker:       opts.Tracker,
		assistant:     opts.Assistant,
		registry:      ai.NewRegistry(),
		notifier:      opts.Notifier,
		th:            tuitheme.Default(),
		prefs:         opts.Prefs,
		scopeLabel:    "All Articles",
		searchInput:   input,
		spinner:       sp,
		loading:       true,
		openURLFn:     tuiplatform.OpenURLInBrowser,
		copyURLFn:     tuiplatform.CopyURLToClipboard,
		renderThumbFn: tuiview.RenderThumbnailPreview,
	}
	if m.notifier == nil {
		m.notifier = NewNotifier()
	}

	m.data = &listData{
		index:          make(map[int64]int),
		showThumbnails: m.prefs.ShowThumbnails,
		now:            time.Now,
		theme:          m.th,
	}
	data := m.data
	m.list = vlist.New(vlist.Config{
		EstimatedHeight: 3,
		Buffer:          5,
		PreloadRows:     30,
		RenderItem: func(id int64, width int, active bool) []string {
			idx, ok := data.index[id]
			if !ok {
				return nil
			}
			return tuiview.RenderArticleLines(tuiview.ArticleLineParams{
				Article:       data.articles[idx],
				Now:           data.now(),
				Width:         width,
				Active:        active,
				ShowThumbnail: data.showThumbnails,
			}, data.theme)
		},
		OnLoadMore: func() {
			if opts.Session != nil {
				opts.Session.LoadMore()
			}
		},
		OnScrolledPast: func(ids []int64) {
			if opts.Tracker != nil {
				opts.Tracker.Observe(ids)
			}
		},
	})

	if len(opts.Seed) > 0 {
		m.replaceArticles(opts.Seed)
		m.loading = false
	}

	m.rows = tuitree.BuildRows(nil, m.buildOptions())
	m.sidebarCursor = tuitree.FirstSelectable(m.rows)
	m.focus = focusList
	if m.tracker != nil {
		m.tracker.SetEnabled(m.prefs.ScrollMarkAsRead)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.notifier.wait(), m.spinner.Tick}
	if m.sess != nil {
		cmds = append(cmds, listenSessionCmd(m.sess))
	}
	if m.svc != nil {
		cmds = append(cmds, loadGroupsCmd(m.svc))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.listWidth(), m.bodyHeight())
		return m, nil

	case spinner.TickMsg:
		if !m.loading && !m.detail.summarizing && !m.detail.translating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionEventMsg:
		if msg.event.Kind == session.KindError && errors.Is(msg.event.Err, miniflux.ErrUnauthorized) {
			// The token is bad; nothing recoverable from inside the UI.
			return m, tea.Quit
		}
		next := m.applySessionEvent(msg.event)
		cmds := []tea.Cmd{listenSessionCmd(next.sess), next.cacheCmd(msg.event), next.groupsRefreshCmd(msg.event)}
		if next.status != "" && next.status != m.status {
			cmds = append(cmds, next.clearStatusLater())
		}
		return next, tea.Batch(cmds...)

	case notification:
		next, cmd := m.Update(msg.msg)
		return next, tea.Batch(next.(Model).notifier.wait(), cmd)

	case markedReadMsg:
		return m.applyMarkedRead(msg.ids)

	case digestReadyMsg:
		m.status = "Digest generated"
		if m.scope.Digests && m.sess != nil {
			m.sess.Reload()
		}
		return m, m.clearStatusLater()

	case groupsLoadedMsg:
		m.groups = msg.groups
		m.rebuildSidebar()
		return m, nil

	case groupsErrorMsg:
		m.status = "Load groups: " + msg.err.Error()
		return m, m.clearStatusLater()

	case digestScheduleMsg:
		switch {
		case msg.err != nil:
			m.status = "Digest schedule: " + msg.err.Error()
		case msg.scheduled:
			m.status = fmt.Sprintf("Daily digest scheduled for %02d:00", app.DefaultDigestHour)
		default:
			m.status = "Daily digest unscheduled"
		}
		return m, m.clearStatusLater()

	case starToggledMsg:
		if msg.err != nil {
			// Roll the optimistic flip back.
			m.flipStar(msg.id)
			m.status = "Toggle star failed: " + msg.err.Error()
			return m, m.clearStatusLater()
		}
		return m, nil

	case preferenceSaveErrorMsg:
		m.status = "Save preferences: " + msg.err.Error()
		return m, m.clearStatusLater()

	case localMarkErrorMsg:
		// Cache write failures are not user-actionable; surface quietly.
		m.status = "Local cache: " + msg.err.Error()
		return m, m.clearStatusLater()

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil

	case summaryDeltaMsg:
		if m.detail.open && m.detail.article.ID == msg.articleID {
			m.detail.summary = msg.markdown
			m.detail.summaryRendered = m.renderMarkdown(msg.markdown)
		}
		return m, nil

	case summaryDoneMsg:
		if m.detail.article.ID == msg.articleID {
			m.detail.summarizing = false
			m.detail.summary = msg.markdown
			m.detail.summaryRendered = m.renderMarkdown(msg.markdown)
		}
		return m, nil

	case summaryErrorMsg:
		if m.detail.article.ID == msg.articleID {
			m.detail.summarizing = false
			if msg.err != nil && msg.err != context.Canceled {
				m.status = "Summarize: " + msg.err.Error()
				return m, m.clearStatusLater()
			}
		}
		return m, nil

	case translationResultMsg:
		if m.detail.article.ID == msg.articleID && msg.result.Err == nil {
			if m.detail.translations == nil {
				m.detail.translations = make(map[int]string)
			}
			m.detail.translations[msg.result.Index] = msg.result.Translated
		}
		return m, nil

	case translationDoneMsg:
		if m.detail.article.ID == msg.articleID {
			m.detail.translating = false
			if msg.err != nil && msg.err != context.Canceled {
				m.status = "Translate: " + msg.err.Error()
				return m, m.clearStatusLater()
			}
		}
		return m, nil

	case thumbnailMsg:
		if m.detail.open && m.detail.article.ID == msg.articleID {
			if msg.err != nil {
				m.detail.thumbnailErr = msg.err.Error()
			} else {
				m.detail.thumbnail = msg.preview
			}
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	}

	if m.showHelp {
		switch msg.String() {
		case "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	if m.detail.open {
		return m.handleDetailKey(msg)
	}

	switch msg.String() {
	case "q":
		return m.quit()
	case "tab":
		if m.focus == focusSidebar {
			m.focus = focusList
		} else {
			m.focus = focusSidebar
		}
		return m, nil
	case "/":
		m.searching = true
		m.searchInput.SetValue(m.scope.Search)
		m.searchInput.Focus()
		return m, textinput.Blink
	case "r":
		m.loadErr = nil
		m.loading = true
		if m.sess != nil {
			m.sess.Reload()
		}
		return m, m.spinner.Tick
	case "u":
		scope := m.scope
		scope.UnreadOnly = !scope.UnreadOnly
		return m.applyScope(scope, m.scopeLabel)
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleListKey(msg)
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		scope := m.scope
		scope.Search = m.searchInput.Value()
		label := m.scopeLabel
		if scope.Search != "" {
			label = "Search"
		}
		return m.applyScope(scope, label)
	case "ctrl+c":
		return m.quit()
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.sidebarCursor = tuistate.NextSelectable(m.rows, m.sidebarCursor, 1)
		return m, nil
	case "k", "up":
		m.sidebarCursor = tuistate.NextSelectable(m.rows, m.sidebarCursor, -1)
		return m, nil
	case "g":
		m.sidebarCursor = tuitree.FirstSelectable(m.rows)
		return m, nil
	case "G":
		m.sidebarCursor = tuistate.NextSelectable(m.rows, len(m.rows)-1, 0)
		return m, nil
	case "enter", "l":
		if m.sidebarCursor >= len(m.rows) {
			return m, nil
		}
		row := m.rows[m.sidebarCursor]
		if !row.Selectable() {
			return m, nil
		}
		scope := row.Scope
		scope.UnreadOnly = m.scope.UnreadOnly
		scope.Search = ""
		m.focus = focusList
		return m.applyScope(scope, row.Label)
	case "c":
		return m.toggleCollapsed()
	case "p":
		return m.togglePinned()
	case "d":
		if m.sidebarCursor >= len(m.rows) || m.svc == nil {
			return m, nil
		}
		if row := m.rows[m.sidebarCursor]; row.Kind == tuitree.RowGroup {
			return m, toggleDigestScheduleCmd(m.svc, row.GroupID)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.moveActive(1)
		return m, nil
	case "k", "up":
		m.moveActive(-1)
		return m, nil
	case "g":
		if len(m.data.articles) > 0 {
			m.setActive(m.data.articles[0].ID)
			m.list.SetScrollTop(0)
		}
		return m, nil
	case "G":
		if n := len(m.data.articles); n > 0 {
			m.setActive(m.data.articles[n-1].ID)
			m.list.ScrollToItem(m.activeID)
			m.sess.NoteScrolled()
		}
		return m, nil
	case " ", "pgdown", "f":
		m.list.ScrollBy(m.bodyHeight())
		m.sess.NoteScrolled()
		m.syncActiveToViewport()
		return m, nil
	case "pgup", "b":
		m.list.ScrollBy(-m.bodyHeight())
		m.sess.NoteScrolled()
		m.syncActiveToViewport()
		return m, nil
	case "enter":
		return m.openDetail()
	case "S":
		return m.toggleStar(m.activeID)
	case "o":
		return m.openActiveURL()
	case "m":
		m.prefs.ScrollMarkAsRead = !m.prefs.ScrollMarkAsRead
		m.tracker.SetEnabled(m.prefs.ScrollMarkAsRead)
		if m.prefs.ScrollMarkAsRead {
			m.status = "Scroll mark-as-read on"
		} else {
			m.status = "Scroll mark-as-read off"
		}
		return m, tea.Batch(savePreferencesCmd(m.svc, m.prefs), m.clearStatusLater())
	case "t":
		m.prefs.ShowThumbnails = !m.prefs.ShowThumbnails
		m.data.showThumbnails = m.prefs.ShowThumbnails
		// Re-render windowed rows so the thumbnail markers update.
		for _, a := range m.data.articles {
			m.list.UpdateItem(a.ID, func(*vlist.Item) {})
		}
		return m, savePreferencesCmd(m.svc, m.prefs)
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		return m.closeDetail()
	case "q":
		return m.quit()
	case "j", "down":
		m.detail.top++
		m.clampDetailTop()
		return m, nil
	case "k", "up":
		if m.detail.top > 0 {
			m.detail.top--
		}
		return m, nil
	case " ", "pgdown":
		m.detail.top += m.bodyHeight()
		m.clampDetailTop()
		return m, nil
	case "pgup", "b":
		m.detail.top -= m.bodyHeight()
		if m.detail.top < 0 {
			m.detail.top = 0
		}
		return m, nil
	case "g":
		m.detail.top = 0
		return m, nil
	case "G":
		m.detail.top = 1 << 30
		m.clampDetailTop()
		return m, nil
	case "o":
		return m.openArticleURL(m.detail.article)
	case "y":
		return m.copyArticleURL(m.detail.article)
	case "S":
		return m.toggleStar(m.detail.article.ID)
	case "s":
		return m.startSummary()
	case "T":
		return m.startOrToggleTranslation()
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.tracker != nil {
		m.tracker.Flush()
	}
	m.registry.CancelAll()
	return m, tea.Quit
}
