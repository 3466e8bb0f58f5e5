package miniflux

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListArticles_SendsQueryAndParsesResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/articles" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("page") != "3" || q.Get("limit") != "25" {
			t.Fatalf("unexpected pagination query: %s", r.URL.RawQuery)
		}
		if q.Get("unread_only") != "true" {
			t.Fatalf("expected unread_only, got %s", r.URL.RawQuery)
		}
		if q.Get("feed_id") != "7" {
			t.Fatalf("expected feed_id=7, got %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Fatalf("unexpected auth header: %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"articles": [
				{"id": 42, "feed_id": 7, "title": "First", "content": "<p>body</p>", "is_read": false, "published_at": "2026-02-01T00:00:00Z"},
				{"id": 41, "feed_id": 7, "title": "Digest", "type": "digest", "is_read": true, "published_at": "2026-01-31T00:00:00Z"}
			],
			"pagination": {"page": 3, "hasMore": true, "total": 120, "totalPages": 5}
		}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "tok123", ts.Client())
	page, err := c.ListArticles(context.Background(), ArticleQuery{Page: 3, Limit: 25, UnreadOnly: true, FeedID: 7})
	if err != nil {
		t.Fatalf("ListArticles returned error: %v", err)
	}
	if len(page.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(page.Articles))
	}
	if page.Articles[0].Title != "First" || page.Articles[0].IsDigest() {
		t.Fatalf("unexpected first article: %+v", page.Articles[0])
	}
	if !page.Articles[1].IsDigest() {
		t.Fatal("expected second article to be a digest")
	}
	if !page.Pagination.HasMore || page.Pagination.Total != 120 {
		t.Fatalf("unexpected pagination: %+v", page.Pagination)
	}
}

func TestListArticles_DefaultsPageWhenBackendOmitsIt(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"articles": [], "pagination": {"hasMore": false}}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "tok", ts.Client())
	page, err := c.ListArticles(context.Background(), ArticleQuery{Page: 4})
	if err != nil {
		t.Fatalf("ListArticles returned error: %v", err)
	}
	if page.Pagination.Page != 4 {
		t.Fatalf("expected requested page carried over, got %d", page.Pagination.Page)
	}
}

func TestListArticles_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "expired", ts.Client())
	_, err := c.ListArticles(context.Background(), ArticleQuery{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestMarkReadBatch_SendsIDs(t *testing.T) {
	var got struct {
		IDs []int64 `json:"ids"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/articles/batch-read" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "tok", ts.Client())
	if err := c.MarkReadBatch(context.Background(), []int64{1, 2, 3}); err != nil {
		t.Fatalf("MarkReadBatch returned error: %v", err)
	}
	if len(got.IDs) != 3 || got.IDs[0] != 1 || got.IDs[2] != 3 {
		t.Fatalf("unexpected ids payload: %v", got.IDs)
	}
}

func TestMarkReadBatch_EmptyIsNoop(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "tok", nil)
	if err := c.MarkReadBatch(context.Background(), nil); err != nil {
		t.Fatalf("expected no request for empty batch, got %v", err)
	}
}

func TestMarkReadBatch_NotFoundSignalsFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "tok", ts.Client())
	err := c.MarkReadBatch(context.Background(), []int64{9})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListDigests_ParsesPinnedAndNormal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/digest/list" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("unreadOnly") != "true" {
			t.Fatalf("expected unreadOnly query, got %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"digests": {"pinned": [{"id": 1, "type": "digest"}], "normal": [{"id": 2, "type": "digest"}, {"id": 3, "type": "digest"}]}}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "tok", ts.Client())
	digests, err := c.ListDigests(context.Background(), true)
	if err != nil {
		t.Fatalf("ListDigests returned error: %v", err)
	}
	if len(digests.Pinned) != 1 || len(digests.Normal) != 2 {
		t.Fatalf("unexpected digest counts: %d pinned, %d normal", len(digests.Pinned), len(digests.Normal))
	}
}

func TestListGroups_ParsesCounts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"groups": [{"id": 1, "title": "Tech", "unread_count": 12, "feeds": [{"id": 7, "group_id": 1, "title": "Blog", "unread_count": 5}]}]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "tok", ts.Client())
	groups, err := c.ListGroups(context.Background())
	if err != nil {
		t.Fatalf("ListGroups returned error: %v", err)
	}
	if len(groups) != 1 || groups[0].UnreadCount != 12 {
		t.Fatalf("unexpected groups: %+v", groups)
	}
	if len(groups[0].Feeds) != 1 || groups[0].Feeds[0].UnreadCount != 5 {
		t.Fatalf("unexpected feeds: %+v", groups[0].Feeds)
	}
}
