package miniflux

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnauthorized means the token was rejected. There is no recovery path in
// the client; the host logs the user out.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound is returned for 404 responses so callers can fall back, e.g.
// from the batch read endpoint to per-article calls.
var ErrNotFound = errors.New("not found")

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

func (c *Client) ListArticles(ctx context.Context, q ArticleQuery) (ArticlesPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 50
	}

	vals := make(url.Values)
	vals.Set("page", strconv.Itoa(q.Page))
	vals.Set("limit", strconv.Itoa(q.Limit))
	if q.UnreadOnly {
		vals.Set("unread_only", "true")
	}
	if q.FeedID != 0 {
		vals.Set("feed_id", strconv.FormatInt(q.FeedID, 10))
	}
	if q.GroupID != 0 {
		vals.Set("group_id", strconv.FormatInt(q.GroupID, 10))
	}
	if q.Favorites {
		vals.Set("favorites", "true")
	}
	if q.Search != "" {
		vals.Set("search", q.Search)
	}

	var page ArticlesPage
	if err := c.getJSON(ctx, "/api/articles?"+vals.Encode(), "list articles", &page); err != nil {
		return ArticlesPage{}, err
	}
	if page.Pagination.Page == 0 {
		page.Pagination.Page = q.Page
	}
	return page, nil
}

func (c *Client) ListDigests(ctx context.Context, unreadOnly bool) (DigestList, error) {
	path := "/api/digest/list"
	if unreadOnly {
		path += "?unreadOnly=true"
	}
	var out struct {
		Digests DigestList `json:"digests"`
	}
	if err := c.getJSON(ctx, path, "list digests", &out); err != nil {
		return DigestList{}, err
	}
	return out.Digests, nil
}

func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var out struct {
		Groups []Group `json:"groups"`
	}
	if err := c.getJSON(ctx, "/api/groups", "list groups", &out); err != nil {
		return nil, err
	}
	return out.Groups, nil
}

// MarkReadBatch marks every id read in one request. A backend without the
// batch endpoint yields ErrNotFound; the caller falls back to MarkRead.
func (c *Client) MarkReadBatch(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	body, err := json.Marshal(map[string][]int64{"ids": ids})
	if err != nil {
		return fmt.Errorf("marshal batch read body: %w", err)
	}
	return c.postNoContent(ctx, "/api/articles/batch-read", "batch mark read", body)
}

func (c *Client) MarkRead(ctx context.Context, id int64) error {
	return c.postNoContent(ctx, fmt.Sprintf("/api/articles/%d/read", id), "mark read", nil)
}

func (c *Client) ToggleStarred(ctx context.Context, id int64) error {
	return c.postNoContent(ctx, fmt.Sprintf("/api/articles/%d/star", id), "toggle starred", nil)
}

func (c *Client) getJSON(ctx context.Context, path, action string, dst any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, action); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", action, err)
	}
	return nil
}

func (c *Client) postNoContent(ctx context.Context, path, action string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	return checkStatus(resp, action)
}

func checkStatus(resp *http.Response, action string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", action, ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", action, ErrNotFound)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s failed with status %d: %s", action, resp.StatusCode, strings.TrimSpace(string(body)))
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}
