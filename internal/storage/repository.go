package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lumen-reader/lumen/internal/miniflux"
)

// Repository caches articles and holds local state (preferences and digest
// schedules) in a sqlite file under the user's home directory.
type Repository struct {
	db *sql.DB
}

func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS articles (
  id INTEGER PRIMARY KEY,
  feed_id INTEGER NOT NULL,
  group_id INTEGER NOT NULL,
  title TEXT NOT NULL,
  url TEXT NOT NULL,
  author TEXT,
  content TEXT,
  summary TEXT,
  thumbnail_url TEXT,
  type TEXT NOT NULL DEFAULT '',
  is_read INTEGER NOT NULL DEFAULT 0,
  starred INTEGER NOT NULL DEFAULT 0,
  feed_title TEXT,
  published_at TEXT NOT NULL,
  fetched_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS preferences (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS digest_schedules (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  group_id INTEGER NOT NULL,
  hour INTEGER NOT NULL,
  minute INTEGER NOT NULL,
  enabled INTEGER NOT NULL DEFAULT 1,
  last_run_at TEXT
);
`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *Repository) SaveArticles(ctx context.Context, articles []miniflux.Article) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO articles (id, feed_id, group_id, title, url, author, content, summary,
  thumbnail_url, type, is_read, starred, feed_title, published_at, fetched_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  feed_id=excluded.feed_id,
  group_id=excluded.group_id,
  title=excluded.title,
  url=excluded.url,
  author=excluded.author,
  content=excluded.content,
  summary=excluded.summary,
  thumbnail_url=excluded.thumbnail_url,
  type=excluded.type,
  is_read=excluded.is_read,
  starred=excluded.starred,
  feed_title=excluded.feed_title,
  published_at=excluded.published_at,
  fetched_at=excluded.fetched_at
`)
	if err != nil {
		return fmt.Errorf("prepare save statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, a := range articles {
		_, err := stmt.ExecContext(
			ctx,
			a.ID,
			a.FeedID,
			a.GroupID,
			a.Title,
			a.URL,
			a.Author,
			a.Content,
			a.Summary,
			a.ThumbnailURL,
			a.Type,
			boolToInt(a.IsRead),
			boolToInt(a.Starred),
			a.FeedTitle,
			a.PublishedAt.UTC().Format(time.RFC3339Nano),
			now,
		)
		if err != nil {
			return fmt.Errorf("save article %d: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListArticles returns the freshest cached articles, used as the offline
// starting sequence before the first network page lands.
func (r *Repository) ListArticles(ctx context.Context, limit int) ([]miniflux.Article, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, feed_id, group_id, title, url, author, content, summary,
  thumbnail_url, type, is_read, starred, feed_title, published_at
FROM articles
ORDER BY published_at DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles := make([]miniflux.Article, 0, limit)
	for rows.Next() {
		var a miniflux.Article
		var isRead, starred int
		var publishedAt string
		if err := rows.Scan(
			&a.ID,
			&a.FeedID,
			&a.GroupID,
			&a.Title,
			&a.URL,
			&a.Author,
			&a.Content,
			&a.Summary,
			&a.ThumbnailURL,
			&a.Type,
			&isRead,
			&starred,
			&a.FeedTitle,
			&publishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}

		a.IsRead = isRead != 0
		a.Starred = starred != 0
		a.PublishedAt, err = time.Parse(time.RFC3339Nano, publishedAt)
		if err != nil {
			return nil, fmt.Errorf("parse article published_at %q: %w", publishedAt, err)
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return articles, nil
}

// MarkArticlesRead flips the cached read flag so the offline view agrees
// with what the tracker already sent upstream.
func (r *Repository) MarkArticlesRead(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	stmt, err := r.db.PrepareContext(ctx, `UPDATE articles SET is_read = 1 WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare mark read: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("mark article %d read: %w", id, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
