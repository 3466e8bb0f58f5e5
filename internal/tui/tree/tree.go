// Package tree builds the sidebar rows: the fixed scope entries first, then
// feed groups with their feeds. Collapsed groups hide their feed rows; pinned
// groups float to the top in the order they were pinned.
package tree

import (
	"sort"
	"strings"

	"github.com/lumen-reader/lumen/internal/miniflux"
	"github.com/lumen-reader/lumen/internal/session"
)

type RowKind string

const (
	RowSection RowKind = "section"
	RowScope   RowKind = "scope"
	RowGroup   RowKind = "group"
	RowFeed    RowKind = "feed"
)

type Row struct {
	Kind      RowKind
	Label     string
	Unread    int
	GroupID   int64
	FeedID    int64
	Collapsed bool
	Scope     session.Scope
}

// Selectable reports whether the row maps to a scope the list can show.
func (r Row) Selectable() bool {
	return r.Kind != RowSection
}

type BuildOptions struct {
	Collapsed map[int64]bool
	Pinned    []int64
}

func BuildRows(groups []miniflux.Group, opts BuildOptions) []Row {
	rows := make([]Row, 0, len(groups)*4+6)

	total := 0
	for _, g := range groups {
		total += g.UnreadCount
	}
	rows = append(rows,
		Row{Kind: RowScope, Label: "All Articles", Unread: total, Scope: session.Scope{}},
		Row{Kind: RowScope, Label: "Favorites", Scope: session.Scope{Favorites: true}},
		Row{Kind: RowScope, Label: "Digests", Scope: session.Scope{Digests: true}},
	)

	ordered := orderGroups(groups, opts.Pinned)
	if len(ordered) > 0 {
		rows = append(rows, Row{Kind: RowSection, Label: "Groups"})
	}
	for _, g := range ordered {
		collapsed := opts.Collapsed[g.ID]
		rows = append(rows, Row{
			Kind:      RowGroup,
			Label:     groupLabel(g),
			Unread:    g.UnreadCount,
			GroupID:   g.ID,
			Collapsed: collapsed,
			Scope:     session.Scope{GroupID: g.ID},
		})
		if collapsed {
			continue
		}
		feeds := append([]miniflux.Feed(nil), g.Feeds...)
		sort.SliceStable(feeds, func(i, j int) bool {
			return strings.ToLower(feeds[i].Title) < strings.ToLower(feeds[j].Title)
		})
		for _, f := range feeds {
			rows = append(rows, Row{
				Kind:    RowFeed,
				Label:   feedLabel(f),
				Unread:  f.UnreadCount,
				GroupID: g.ID,
				FeedID:  f.ID,
				Scope:   session.Scope{FeedID: f.ID},
			})
		}
	}
	return rows
}

// FirstSelectable returns the index of the first row that carries a scope.
func FirstSelectable(rows []Row) int {
	for i, row := range rows {
		if row.Selectable() {
			return i
		}
	}
	return 0
}

// orderGroups puts pinned groups first, keeping the pin order, then the rest
// sorted by title.
func orderGroups(groups []miniflux.Group, pinned []int64) []miniflux.Group {
	byID := make(map[int64]miniflux.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	out := make([]miniflux.Group, 0, len(groups))
	taken := make(map[int64]bool, len(pinned))
	for _, id := range pinned {
		g, ok := byID[id]
		if !ok || taken[id] {
			continue
		}
		taken[id] = true
		out = append(out, g)
	}

	rest := make([]miniflux.Group, 0, len(groups))
	for _, g := range groups {
		if !taken[g.ID] {
			rest = append(rest, g)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		ti := strings.ToLower(strings.TrimSpace(rest[i].Title))
		tj := strings.ToLower(strings.TrimSpace(rest[j].Title))
		if ti != tj {
			return ti < tj
		}
		return rest[i].ID < rest[j].ID
	})
	return append(out, rest...)
}

func groupLabel(g miniflux.Group) string {
	title := strings.TrimSpace(g.Title)
	if title == "" {
		return "untitled group"
	}
	return title
}

func feedLabel(f miniflux.Feed) string {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return "untitled feed"
	}
	return title
}
