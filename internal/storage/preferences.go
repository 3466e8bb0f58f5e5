package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Preference keys. Values are stored as strings; typed accessors below do
// the conversion.
const (
	PrefScrollMarkAsRead = "scroll_mark_as_read"
	PrefShowThumbnails   = "show_thumbnails"
	PrefLanguage         = "language"
	PrefCollapsedGroups  = "collapsed_groups"
	PrefPinnedGroups     = "pinned_groups"
)

func (r *Repository) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %q: %w", key, err)
	}
	return value, true, nil
}

func (r *Repository) SetPreference(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO preferences (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value
`, key, value)
	if err != nil {
		return fmt.Errorf("set preference %q: %w", key, err)
	}
	return nil
}

func (r *Repository) GetBoolPreference(ctx context.Context, key string, fallback bool) (bool, error) {
	value, ok, err := r.GetPreference(ctx, key)
	if err != nil || !ok {
		return fallback, err
	}
	return value == "true" || value == "1", nil
}

func (r *Repository) SetBoolPreference(ctx context.Context, key string, value bool) error {
	return r.SetPreference(ctx, key, strconv.FormatBool(value))
}

// GetIDListPreference reads a comma separated id list, used for the
// collapsed and pinned group sets.
func (r *Repository) GetIDListPreference(ctx context.Context, key string) ([]int64, error) {
	value, ok, err := r.GetPreference(ctx, key)
	if err != nil || !ok || value == "" {
		return nil, err
	}
	parts := strings.Split(value, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse preference %q entry %q: %w", key, p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Repository) SetIDListPreference(ctx context.Context, key string, ids []int64) error {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return r.SetPreference(ctx, key, strings.Join(parts, ","))
}
