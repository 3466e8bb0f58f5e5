package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumen-reader/lumen/internal/ai"
	"github.com/lumen-reader/lumen/internal/miniflux"
	"github.com/lumen-reader/lumen/internal/session"
)

type sessionEventMsg struct {
	event session.Event
}

// notification wraps messages pushed from background goroutines through the
// Notifier so the update loop can re-arm its listener before handling them.
type notification struct {
	msg tea.Msg
}

type markedReadMsg struct {
	ids []int64
}

type digestReadyMsg struct{}

type groupsLoadedMsg struct {
	groups []miniflux.Group
}

type groupsErrorMsg struct {
	err error
}

type digestScheduleMsg struct {
	groupID   int64
	scheduled bool
	err       error
}

type starToggledMsg struct {
	id  int64
	err error
}

type preferenceSaveErrorMsg struct {
	err error
}

type localMarkErrorMsg struct {
	err error
}

type clearStatusMsg struct {
	id int
}

type summaryDeltaMsg struct {
	articleID int64
	markdown  string
}

type summaryDoneMsg struct {
	articleID int64
	markdown  string
}

type summaryErrorMsg struct {
	articleID int64
	err       error
}

type translationResultMsg struct {
	articleID int64
	result    ai.BlockResult
}

type translationDoneMsg struct {
	articleID int64
	err       error
}

type thumbnailMsg struct {
	articleID int64
	preview   string
	err       error
}

// Notifier bridges callbacks that fire on background goroutines, the read
// tracker's optimistic marks, streamed AI deltas, the digest scheduler, into
// the single-threaded update loop.
type Notifier struct {
	ch chan tea.Msg
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan tea.Msg, 64)}
}

// MarkedRead is wired as the read tracker's OnMarked callback.
func (n *Notifier) MarkedRead(ids []int64) {
	n.send(markedReadMsg{ids: ids})
}

// DigestGenerated is wired as the scheduler's OnGenerated callback.
func (n *Notifier) DigestGenerated() {
	n.send(digestReadyMsg{})
}

// push drops on a full buffer. Only intermediate stream deltas go through
// here; a dropped delta is superseded by the next one.
func (n *Notifier) push(msg tea.Msg) {
	select {
	case n.ch <- msg:
	default:
	}
}

// send blocks until delivered. Terminal messages must not be dropped.
func (n *Notifier) send(msg tea.Msg) {
	n.ch <- msg
}

func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		return notification{msg: <-n.ch}
	}
}
