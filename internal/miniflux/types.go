package miniflux

import "time"

// Article is the subset of backend fields required by the app. Digests are
// server-generated synthetic articles and arrive through the same shape with
// Type set to "digest".
type Article struct {
	ID           int64     `json:"id"`
	FeedID       int64     `json:"feed_id"`
	GroupID      int64     `json:"group_id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Author       string    `json:"author"`
	Content      string    `json:"content"`
	Summary      string    `json:"summary"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Type         string    `json:"type,omitempty"`
	IsRead       bool      `json:"is_read"`
	Starred      bool      `json:"starred"`
	FeedTitle    string    `json:"feed_title"`
	PublishedAt  time.Time `json:"published_at"`
}

func (a Article) IsDigest() bool {
	return a.Type == "digest"
}

// Pagination mirrors the backend's cursor block. Page is overridden locally
// by the session controller for continuity; everything else is accepted as
// sent.
type Pagination struct {
	Page       int  `json:"page"`
	HasMore    bool `json:"hasMore"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
}

type ArticlesPage struct {
	Articles   []Article  `json:"articles"`
	Pagination Pagination `json:"pagination"`
}

// ArticleQuery selects one page of one scope.
type ArticleQuery struct {
	Page       int
	Limit      int
	UnreadOnly bool
	FeedID     int64
	GroupID    int64
	Favorites  bool
	Search     string
}

type DigestList struct {
	Pinned []Article `json:"pinned"`
	Normal []Article `json:"normal"`
}

// Feed and Group carry the sidebar metadata and unread counters.
type Feed struct {
	ID          int64  `json:"id"`
	GroupID     int64  `json:"group_id"`
	Title       string `json:"title"`
	SiteURL     string `json:"site_url"`
	UnreadCount int    `json:"unread_count"`
}

type Group struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	UnreadCount int    `json:"unread_count"`
	Feeds       []Feed `json:"feeds"`
}
