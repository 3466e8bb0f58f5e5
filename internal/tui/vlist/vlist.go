package vlist

import (
	"sort"
	"strings"
)

// Item is the typed view-state the engine keeps per entry. The engine never
// looks at article content; rendering is delegated to the callback.
type Item struct {
	ID     int64
	Unread bool
	Digest bool
}

type Config struct {
	// EstimatedHeight is the assumed row count (including the separator
	// row) for items that have not been rendered yet.
	EstimatedHeight int
	// Buffer is how many extra items are kept rendered on each side of the
	// visible range.
	Buffer int
	// PreloadRows is the distance from the bottom, in rows, at which the
	// load-more signal fires. The effective trigger is at least two
	// viewport heights.
	PreloadRows int

	// RenderItem returns the lines of one item at the given width, without
	// the separator row. Must not be nil.
	RenderItem func(id int64, width int, active bool) []string
	// OnLoadMore fires when the scroll position nears the bottom. It may
	// fire repeatedly; deduplication is the subscriber's job.
	OnLoadMore func()
	// OnScrolledPast receives the unread ids whose bottom edge moved above
	// the top of the viewport during a downward scroll.
	OnScrolledPast func(ids []int64)
}

// List renders a windowed view over a dynamic-height item sequence. Heights
// are measured by rendering; a position index of cumulative row offsets maps
// the scroll position onto the sequence.
type List struct {
	cfg    Config
	width  int
	height int

	items     []Item
	heights   map[int64]int
	positions []int // len(items)+1; positions[i] is the top row of item i
	rendered  map[int64][]string
	start     int // rendered window [start, end)
	end       int
	scrollTop int
	active    int64
	hasActive bool
}

func New(cfg Config) *List {
	if cfg.EstimatedHeight < 1 {
		cfg.EstimatedHeight = 3
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 5
	}
	return &List{
		cfg:       cfg,
		heights:   make(map[int64]int),
		positions: []int{0},
		rendered:  make(map[int64][]string),
	}
}

// SetSize updates the viewport. A width change invalidates every measured
// height; the next refresh re-measures whatever is windowed.
func (l *List) SetSize(width, height int) {
	if width != l.width {
		l.heights = make(map[int64]int, len(l.items))
		l.rendered = make(map[int64][]string)
		l.start, l.end = 0, 0
	}
	l.width = width
	l.height = height
	l.recompute()
	l.clampScroll()
	l.refresh()
}

// SetItems replaces the sequence. Heights survive for ids still present;
// the scroll position resets to the top.
func (l *List) SetItems(items []Item) {
	keep := make(map[int64]struct{}, len(items))
	for _, it := range items {
		keep[it.ID] = struct{}{}
	}
	for id := range l.heights {
		if _, ok := keep[id]; !ok {
			delete(l.heights, id)
		}
	}
	l.items = append(l.items[:0:0], items...)
	l.rendered = make(map[int64][]string)
	l.start, l.end = 0, 0
	l.scrollTop = 0
	l.recompute()
	l.refresh()
}

func (l *List) AppendItems(items []Item) {
	if len(items) == 0 {
		return
	}
	l.items = append(l.items, items...)
	l.recompute()
	l.refresh()
}

// PrependItems inserts at the head while keeping the first visible item at
// the same screen offset. At the very top no anchoring is needed.
func (l *List) PrependItems(items []Item) {
	if len(items) == 0 {
		return
	}
	if l.scrollTop == 0 {
		l.items = append(append([]Item(nil), items...), l.items...)
		l.start, l.end = 0, 0
		l.rendered = make(map[int64][]string)
		l.recompute()
		l.refresh()
		return
	}

	anchorIdx := l.firstVisible()
	anchorID := l.items[anchorIdx].ID
	delta := l.scrollTop - l.positions[anchorIdx]

	l.items = append(append([]Item(nil), items...), l.items...)
	l.recompute()
	l.reanchor(anchorID, delta)
	l.refresh()
	// Rendering the new head items may have corrected their estimated
	// heights, which shifts the anchor again.
	l.reanchor(anchorID, delta)
	l.refresh()
}

// UpdateItem patches the view-state of one item and re-renders just that
// item; the rest of the window is untouched. Reports whether the id was
// found.
func (l *List) UpdateItem(id int64, fn func(*Item)) bool {
	i := l.IndexOf(id)
	if i < 0 {
		return false
	}
	fn(&l.items[i])
	delete(l.rendered, id)
	l.refresh()
	return true
}

// SetActive marks exactly one item as active; any previous marker is
// dropped.
func (l *List) SetActive(id int64) {
	if l.hasActive {
		delete(l.rendered, l.active)
	}
	l.active = id
	l.hasActive = true
	delete(l.rendered, id)
	l.refresh()
}

func (l *List) SetScrollTop(y int) {
	prev := l.scrollTop
	l.scrollTop = y
	l.clampScroll()
	l.refresh()
	if l.scrollTop > prev {
		l.reportScrolledPast()
	}
}

func (l *List) ScrollBy(delta int) {
	l.SetScrollTop(l.scrollTop + delta)
}

// ScrollToItem brings the item fully into view with minimal movement.
func (l *List) ScrollToItem(id int64) {
	i := l.IndexOf(id)
	if i < 0 || l.height <= 0 {
		return
	}
	top := l.positions[i]
	bottom := l.positions[i+1]
	switch {
	case top < l.scrollTop:
		l.SetScrollTop(top)
	case bottom > l.scrollTop+l.height:
		l.SetScrollTop(bottom - l.height)
	}
}

func (l *List) ScrollTop() int    { return l.scrollTop }
func (l *List) TotalHeight() int  { return l.positions[len(l.items)] }
func (l *List) Len() int          { return len(l.items) }
func (l *List) Window() (int, int) { return l.start, l.end }

func (l *List) IndexOf(id int64) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *List) ItemAt(i int) (Item, bool) {
	if i < 0 || i >= len(l.items) {
		return Item{}, false
	}
	return l.items[i], true
}

// View emits the visible rows. Offscreen space above and below the window is
// collapsed, so the output is at most height lines.
func (l *List) View() string {
	if l.height <= 0 || len(l.items) == 0 {
		return ""
	}
	var b strings.Builder
	emitted := 0
	skip := 0
	first := l.firstVisible()
	if first < len(l.items) {
		skip = l.scrollTop - l.positions[first]
	}
	for i := first; i < len(l.items) && emitted < l.height; i++ {
		lines, ok := l.rendered[l.items[i].ID]
		if !ok {
			// Buffer miss; estimated blanks hold the layout steady.
			lines = make([]string, l.itemHeight(l.items[i].ID)-1)
		}
		lines = append(lines, "") // separator row
		for _, line := range lines {
			if skip > 0 {
				skip--
				continue
			}
			if emitted > 0 {
				b.WriteString("\n")
			}
			b.WriteString(line)
			emitted++
			if emitted >= l.height {
				break
			}
		}
	}
	return b.String()
}

// refresh recomputes the rendered window and performs the differential
// update: unmount what left, render what entered, re-measure until heights
// settle.
func (l *List) refresh() {
	if l.height <= 0 || l.width <= 0 || len(l.items) == 0 {
		l.start, l.end = 0, 0
		if len(l.items) == 0 {
			l.rendered = make(map[int64][]string)
		}
		return
	}

	for pass := 0; pass < 4; pass++ {
		start, end := l.computeWindow()
		l.unmountOutside(start, end)
		dirty := false
		for i := start; i < end; i++ {
			id := l.items[i].ID
			if _, ok := l.rendered[id]; ok {
				continue
			}
			lines := l.cfg.RenderItem(id, l.width, l.hasActive && id == l.active)
			l.rendered[id] = lines
			h := len(lines) + 1
			if l.heights[id] != h {
				l.heights[id] = h
				dirty = true
			}
		}
		l.start, l.end = start, end
		if !dirty {
			break
		}
		l.recompute()
		l.clampScroll()
	}
	l.maybeLoadMore()
}

func (l *List) computeWindow() (int, int) {
	rawStart := l.firstVisible()
	start := rawStart - l.cfg.Buffer
	if start < 0 {
		start = 0
	}
	j := rawStart
	bottom := l.scrollTop + l.height
	for j < len(l.items) && l.positions[j] < bottom {
		j++
	}
	end := j + l.cfg.Buffer
	if end > len(l.items) {
		end = len(l.items)
	}
	return start, end
}

func (l *List) unmountOutside(start, end int) {
	inWindow := make(map[int64]struct{}, end-start)
	for i := start; i < end; i++ {
		inWindow[l.items[i].ID] = struct{}{}
	}
	for id := range l.rendered {
		if _, ok := inWindow[id]; !ok {
			delete(l.rendered, id)
		}
	}
}

// firstVisible is the largest index whose top is at or above the scroll
// position.
func (l *List) firstVisible() int {
	n := len(l.items)
	if n == 0 {
		return 0
	}
	i := sort.Search(n, func(i int) bool {
		return l.positions[i+1] > l.scrollTop
	})
	if i >= n {
		return n - 1
	}
	return i
}

func (l *List) recompute() {
	l.positions = make([]int, len(l.items)+1)
	for i := range l.items {
		l.positions[i+1] = l.positions[i] + l.itemHeight(l.items[i].ID)
	}
}

func (l *List) itemHeight(id int64) int {
	if h, ok := l.heights[id]; ok {
		return h
	}
	return l.cfg.EstimatedHeight
}

func (l *List) clampScroll() {
	max := l.TotalHeight() - l.height
	if max < 0 {
		max = 0
	}
	if l.scrollTop > max {
		l.scrollTop = max
	}
	if l.scrollTop < 0 {
		l.scrollTop = 0
	}
}

func (l *List) reanchor(anchorID int64, delta int) {
	i := l.IndexOf(anchorID)
	if i < 0 {
		return
	}
	l.scrollTop = l.positions[i] + delta
	l.clampScroll()
}

func (l *List) maybeLoadMore() {
	if l.cfg.OnLoadMore == nil || len(l.items) == 0 {
		return
	}
	trigger := l.cfg.PreloadRows
	if t := 2 * l.height; t > trigger {
		trigger = t
	}
	remaining := l.TotalHeight() - l.scrollTop - l.height
	if remaining < trigger {
		l.cfg.OnLoadMore()
	}
}

func (l *List) reportScrolledPast() {
	if l.cfg.OnScrolledPast == nil {
		return
	}
	var ids []int64
	for i := 0; i < len(l.items); i++ {
		if l.positions[i+1] > l.scrollTop {
			break
		}
		if l.items[i].Unread {
			ids = append(ids, l.items[i].ID)
		}
	}
	if len(ids) > 0 {
		l.cfg.OnScrolledPast(ids)
	}
}
