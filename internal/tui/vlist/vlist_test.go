package vlist

import (
	"fmt"
	"strings"
	"testing"
)

// testRender gives item n a body of (n%4)+1 lines so heights vary, which is
// what the position index exists for.
func testRender(id int64, width int, active bool) []string {
	n := int(id%4) + 1
	lines := make([]string, n)
	for i := range lines {
		marker := " "
		if active {
			marker = ">"
		}
		lines[i] = fmt.Sprintf("%s item %d line %d", marker, id, i)
	}
	return lines
}

// fixedRender keeps every item at the estimated height so position
// arithmetic in trigger tests stays exact.
func fixedRender(id int64, width int, active bool) []string {
	return []string{"a", "b"}
}

func makeItems(ids ...int64) []Item {
	items := make([]Item, len(ids))
	for i, id := range ids {
		items[i] = Item{ID: id, Unread: true}
	}
	return items
}

func seqItems(from, to int64) []Item {
	var ids []int64
	for id := from; id <= to; id++ {
		ids = append(ids, id)
	}
	return makeItems(ids...)
}

func newTestList(cfg Config) *List {
	if cfg.RenderItem == nil {
		cfg.RenderItem = testRender
	}
	if cfg.EstimatedHeight == 0 {
		cfg.EstimatedHeight = 3
	}
	l := New(cfg)
	l.SetSize(80, 10)
	return l
}

func TestPositionsAreStrictlyIncreasing(t *testing.T) {
	l := newTestList(Config{Buffer: 2})
	l.SetItems(seqItems(1, 40))
	for y := 0; y < l.TotalHeight(); y += 7 {
		l.SetScrollTop(y)
		for i := 0; i < l.Len(); i++ {
			if l.positions[i+1] <= l.positions[i] {
				t.Fatalf("positions not strictly increasing at %d: %v", i, l.positions[i:i+2])
			}
		}
	}
}

func TestWindowCoversVisibleRangePlusBuffer(t *testing.T) {
	l := newTestList(Config{Buffer: 3})
	l.SetItems(seqItems(1, 50))

	for y := 0; y < l.TotalHeight()-l.height; y += 5 {
		l.SetScrollTop(y)
		start, end := l.Window()
		first := l.firstVisible()
		if start > first {
			t.Fatalf("scrollTop %d: window start %d is below first visible %d", y, start, first)
		}
		// Last visible item: the one containing the bottom row.
		bottom := y + l.height - 1
		last := first
		for last < l.Len()-1 && l.positions[last+1] <= bottom {
			last++
		}
		if end <= last {
			t.Fatalf("scrollTop %d: window end %d does not cover last visible %d", y, end, last)
		}
	}
}

func TestRenderCacheHoldsOnlyWindowedItems(t *testing.T) {
	l := newTestList(Config{Buffer: 2})
	l.SetItems(seqItems(1, 100))

	l.SetScrollTop(l.TotalHeight() / 2)
	start, end := l.Window()
	if got, want := len(l.rendered), end-start; got != want {
		t.Fatalf("rendered cache has %d entries, window holds %d items", got, want)
	}
	for i := start; i < end; i++ {
		if _, ok := l.rendered[l.items[i].ID]; !ok {
			t.Fatalf("windowed item %d not rendered", l.items[i].ID)
		}
	}
	if end-start > l.height+2*l.cfg.Buffer+2 {
		t.Fatalf("window unexpectedly large: %d items for height %d", end-start, l.height)
	}
}

func TestMeasuredHeightsMatchRenderedLines(t *testing.T) {
	l := newTestList(Config{Buffer: 2})
	l.SetItems(seqItems(1, 30))
	l.SetScrollTop(12)

	start, end := l.Window()
	for i := start; i < end; i++ {
		id := l.items[i].ID
		want := len(testRender(id, 80, false)) + 1
		if got := l.heights[id]; got != want {
			t.Fatalf("item %d: measured height %d, rendered lines+separator %d", id, got, want)
		}
		if got := l.positions[i+1] - l.positions[i]; got != want {
			t.Fatalf("item %d: position span %d, want %d", id, got, want)
		}
	}
}

func TestViewEmitsAtMostHeightLines(t *testing.T) {
	l := newTestList(Config{Buffer: 2})
	l.SetItems(seqItems(1, 40))

	for y := 0; y <= l.TotalHeight()-l.height; y += 3 {
		l.SetScrollTop(y)
		lines := strings.Split(l.View(), "\n")
		if len(lines) != l.height {
			t.Fatalf("scrollTop %d: view has %d lines, want %d", y, len(lines), l.height)
		}
	}
}

func TestViewStartsMidItemWhenScrolledIntoIt(t *testing.T) {
	l := newTestList(Config{Buffer: 2})
	l.SetItems(seqItems(1, 20))

	// Item 3 renders 4 body lines; scroll one row into it.
	i := l.IndexOf(3)
	l.SetScrollTop(l.positions[i] + 1)
	first := strings.Split(l.View(), "\n")[0]
	if !strings.Contains(first, "item 3 line 1") {
		t.Fatalf("expected view to open mid-item, got %q", first)
	}
}

func TestScrollClampsToContentBounds(t *testing.T) {
	l := newTestList(Config{Buffer: 2})
	l.SetItems(seqItems(1, 10))

	l.SetScrollTop(-5)
	if l.ScrollTop() != 0 {
		t.Fatalf("expected clamp to 0, got %d", l.ScrollTop())
	}
	l.SetScrollTop(1_000_000)
	if want := l.TotalHeight() - l.height; l.ScrollTop() != want {
		t.Fatalf("expected clamp to %d, got %d", want, l.ScrollTop())
	}
}

func TestPrependAtTopStaysAtTop(t *testing.T) {
	l := newTestList(Config{Buffer: 2})
	l.SetItems(seqItems(10, 30))

	l.PrependItems(makeItems(1, 2, 3))
	if l.ScrollTop() != 0 {
		t.Fatalf("expected scrollTop to remain 0, got %d", l.ScrollTop())
	}
	if l.items[0].ID != 1 || l.Len() != 24 {
		t.Fatalf("unexpected sequence after prepend: len=%d head=%d", l.Len(), l.items[0].ID)
	}
}

func TestPrependKeepsAnchorOffsetStable(t *testing.T) {
	l := newTestList(Config{Buffer: 2, EstimatedHeight: 3})
	l.SetItems(seqItems(10, 60))

	l.SetScrollTop(37)
	anchorIdx := l.firstVisible()
	anchorID := l.items[anchorIdx].ID
	offset := l.ScrollTop() - l.positions[anchorIdx]

	// The new items render taller and shorter than the estimate, so both
	// anchoring passes have to do real work.
	l.PrependItems(makeItems(1, 2, 3, 4, 5))

	i := l.IndexOf(anchorID)
	if i < 0 {
		t.Fatalf("anchor item %d vanished", anchorID)
	}
	if got := l.ScrollTop() - l.positions[i]; got != offset {
		t.Fatalf("anchor offset drifted: got %d, want %d", got, offset)
	}
}

func TestPrependAnchorSurvivesWrongEstimates(t *testing.T) {
	// Estimate of 2 while real heights run 2..5 rows, forcing a large
	// correction between the first and second anchoring pass.
	l := newTestList(Config{Buffer: 2, EstimatedHeight: 2})
	l.SetItems(seqItems(100, 140))

	l.SetScrollTop(25)
	anchorIdx := l.firstVisible()
	anchorID := l.items[anchorIdx].ID
	offset := l.ScrollTop() - l.positions[anchorIdx]

	l.PrependItems(seqItems(1, 20))

	i := l.IndexOf(anchorID)
	if got := l.ScrollTop() - l.positions[i]; got != offset {
		t.Fatalf("anchor offset drifted: got %d, want %d", got, offset)
	}
}

func TestLoadMoreFiresNearBottomOnly(t *testing.T) {
	calls := 0
	l := newTestList(Config{Buffer: 2, RenderItem: fixedRender, OnLoadMore: func() { calls++ }})
	l.SetItems(seqItems(1, 100)) // 100 items of 3 rows each

	calls = 0
	l.SetScrollTop(5)
	if calls != 0 {
		t.Fatalf("load-more fired far from the bottom")
	}

	// Just outside two viewport heights of the end, then one row inside.
	l.SetScrollTop(300 - 10 - 20)
	if calls != 0 {
		t.Fatal("load-more fired exactly at the trigger boundary")
	}
	l.SetScrollTop(300 - 10 - 19)
	if calls == 0 {
		t.Fatal("load-more did not fire near the bottom")
	}
}

func TestLoadMoreHonoursPreloadRows(t *testing.T) {
	calls := 0
	l := newTestList(Config{Buffer: 2, RenderItem: fixedRender, PreloadRows: 60, OnLoadMore: func() { calls++ }})
	l.SetItems(seqItems(1, 100))

	calls = 0
	l.SetScrollTop(300 - 10 - 60)
	if calls != 0 {
		t.Fatal("load-more fired outside the preload distance")
	}
	l.SetScrollTop(300 - 10 - 59)
	if calls == 0 {
		t.Fatal("load-more did not fire within the preload distance")
	}
}

func TestScrolledPastReportsUnreadAboveViewport(t *testing.T) {
	var reported [][]int64
	l := newTestList(Config{Buffer: 2, OnScrolledPast: func(ids []int64) {
		reported = append(reported, append([]int64(nil), ids...))
	}})
	items := seqItems(1, 30)
	items[1].Unread = false // id 2 already read
	l.SetItems(items)

	// Scroll until items 1..3 are fully above the top.
	target := l.positions[3]
	reported = nil
	l.SetScrollTop(target)
	if len(reported) != 1 {
		t.Fatalf("expected one report, got %d", len(reported))
	}
	got := reported[0]
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("expected unread ids [1 3], got %v", got)
	}
}

func TestScrollingUpReportsNothing(t *testing.T) {
	calls := 0
	l := newTestList(Config{Buffer: 2, OnScrolledPast: func([]int64) { calls++ }})
	l.SetItems(seqItems(1, 30))

	l.SetScrollTop(20)
	calls = 0
	l.SetScrollTop(10)
	if calls != 0 {
		t.Fatalf("scrolled-past fired on upward scroll")
	}
}

func TestUpdateItemLeavesNeighboursAlone(t *testing.T) {
	renders := make(map[int64]int)
	l := newTestList(Config{Buffer: 2, RenderItem: func(id int64, width int, active bool) []string {
		renders[id]++
		return testRender(id, width, active)
	}})
	l.SetItems(seqItems(1, 10))

	before := make(map[int64]int, len(renders))
	for id, n := range renders {
		before[id] = n
	}
	if !l.UpdateItem(2, func(it *Item) { it.Unread = false }) {
		t.Fatal("UpdateItem did not find item 2")
	}
	if renders[2] != before[2]+1 {
		t.Fatalf("item 2 rendered %d times, want %d", renders[2], before[2]+1)
	}
	for id, n := range before {
		if id != 2 && renders[id] != n {
			t.Fatalf("item %d re-rendered by an unrelated update", id)
		}
	}
	if it, _ := l.ItemAt(l.IndexOf(2)); it.Unread {
		t.Fatal("update did not stick")
	}
}

func TestUpdateItemUnknownIDIsNoop(t *testing.T) {
	l := newTestList(Config{Buffer: 2})
	l.SetItems(seqItems(1, 5))
	if l.UpdateItem(999, func(it *Item) { it.Unread = false }) {
		t.Fatal("expected UpdateItem to report missing id")
	}
}

func TestSetActiveMovesTheMarker(t *testing.T) {
	l := newTestList(Config{Buffer: 2})
	l.SetItems(seqItems(1, 10))

	l.SetActive(2)
	if !strings.Contains(l.View(), "> item 2") {
		t.Fatal("active marker missing after SetActive(2)")
	}
	l.SetActive(3)
	view := l.View()
	if strings.Contains(view, "> item 2 ") {
		t.Fatal("stale active marker on item 2")
	}
	if !strings.Contains(view, "> item 3") {
		t.Fatal("active marker missing on item 3")
	}
}

func TestSetItemsKeepsHeightsForSurvivingIDs(t *testing.T) {
	l := newTestList(Config{Buffer: 2})
	l.SetItems(seqItems(1, 10))

	h3 := l.heights[3]
	if h3 == 0 {
		t.Fatal("expected item 3 to be measured")
	}
	l.SetItems(makeItems(3, 4, 200))
	if l.heights[3] != h3 {
		t.Fatalf("height for surviving id changed: %d -> %d", h3, l.heights[3])
	}
	if _, ok := l.heights[1]; ok {
		t.Fatal("height for dropped id retained")
	}
	if l.ScrollTop() != 0 {
		t.Fatal("SetItems should reset the scroll position")
	}
}

func TestWidthChangeInvalidatesMeasurements(t *testing.T) {
	l := newTestList(Config{Buffer: 2, RenderItem: func(id int64, width int, active bool) []string {
		if width < 40 {
			return []string{"a", "b", "c"}
		}
		return []string{"a"}
	}})
	l.SetItems(seqItems(1, 10))
	if l.heights[1] != 2 {
		t.Fatalf("expected wide height 2, got %d", l.heights[1])
	}

	l.SetSize(30, 10)
	if l.heights[1] != 4 {
		t.Fatalf("expected narrow height 4 after resize, got %d", l.heights[1])
	}
}

func TestScrollToItemMinimalMovement(t *testing.T) {
	l := newTestList(Config{Buffer: 2, RenderItem: fixedRender})
	l.SetItems(seqItems(1, 40))

	// Below the viewport: bottom edge lands on the last row.
	l.ScrollToItem(15)
	i := l.IndexOf(15)
	if got, want := l.ScrollTop(), l.positions[i+1]-l.height; got != want {
		t.Fatalf("scroll to below item: got %d, want %d", got, want)
	}

	// Above the viewport: top edge lands on the first row.
	l.ScrollToItem(2)
	i = l.IndexOf(2)
	if got, want := l.ScrollTop(), l.positions[i]; got != want {
		t.Fatalf("scroll to above item: got %d, want %d", got, want)
	}

	// Already visible: no movement.
	before := l.ScrollTop()
	l.ScrollToItem(3)
	if l.ScrollTop() != before {
		t.Fatal("scroll moved for an already visible item")
	}
}

func TestEmptyAndUnsizedListsAreInert(t *testing.T) {
	l := New(Config{RenderItem: testRender})
	l.SetItems(nil)
	if l.View() != "" {
		t.Fatal("empty list should render nothing")
	}
	l.SetScrollTop(10)
	if l.ScrollTop() != 0 {
		t.Fatal("empty list should not scroll")
	}

	// Items before the first size report: nothing renders until sized.
	l.SetItems(seqItems(1, 5))
	if l.View() != "" {
		t.Fatal("unsized list should render nothing")
	}
	l.SetSize(80, 10)
	if l.View() == "" {
		t.Fatal("sized list should render")
	}
}
