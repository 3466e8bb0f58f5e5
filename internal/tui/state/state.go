// Package state holds the cursor arithmetic for the sidebar. It is kept free
// of bubbletea so the navigation rules stay unit-testable.
package state

import (
	tuitree "github.com/lumen-reader/lumen/internal/tui/tree"
)

func ClampCursor(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	if cursor >= size {
		return size - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

func PageStep(height int, hasStatus bool) int {
	if height <= 0 {
		return 10
	}
	headerLines := 4
	if hasStatus {
		headerLines += 2
	}
	step := height - headerLines
	if step < 3 {
		step = 3
	}
	return step
}

func CenteredWindow(totalRows, cursor, height int) (int, int) {
	if totalRows <= 0 {
		return 0, 0
	}
	if height <= 0 || totalRows <= height {
		return 0, totalRows
	}
	cursor = ClampCursor(cursor, totalRows)
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	maxStart := totalRows - height
	if start > maxStart {
		start = maxStart
	}
	return start, start + height
}

// NextSelectable moves the cursor by delta, skipping section rows. The cursor
// stays put when no selectable row exists in that direction.
func NextSelectable(rows []tuitree.Row, cursor, delta int) int {
	if len(rows) == 0 || delta == 0 {
		return ClampCursor(cursor, len(rows))
	}
	step := 1
	if delta < 0 {
		step = -1
		delta = -delta
	}
	pos := ClampCursor(cursor, len(rows))
	for moved := 0; moved < delta; moved++ {
		next := pos
		for {
			next += step
			if next < 0 || next >= len(rows) {
				return pos
			}
			if rows[next].Selectable() {
				break
			}
		}
		pos = next
	}
	return pos
}

// CursorForScope finds the row whose scope matches, or -1.
func CursorForScope(rows []tuitree.Row, scope func(tuitree.Row) bool) int {
	for i, row := range rows {
		if row.Selectable() && scope(row) {
			return i
		}
	}
	return -1
}
