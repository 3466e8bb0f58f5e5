package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DigestSchedule is one recurring digest job: generate a digest for a group
// at the given local time every day.
type DigestSchedule struct {
	ID        int64
	GroupID   int64
	Hour      int
	Minute    int
	Enabled   bool
	LastRunAt time.Time // zero when the job never ran
}

func (r *Repository) ListSchedules(ctx context.Context) ([]DigestSchedule, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, group_id, hour, minute, enabled, last_run_at
FROM digest_schedules
ORDER BY hour, minute, id
`)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []DigestSchedule
	for rows.Next() {
		var s DigestSchedule
		var enabled int
		var lastRun sql.NullString
		if err := rows.Scan(&s.ID, &s.GroupID, &s.Hour, &s.Minute, &enabled, &lastRun); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		s.Enabled = enabled != 0
		if lastRun.Valid && lastRun.String != "" {
			s.LastRunAt, err = time.Parse(time.RFC3339Nano, lastRun.String)
			if err != nil {
				return nil, fmt.Errorf("parse schedule last_run_at %q: %w", lastRun.String, err)
			}
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return schedules, nil
}

func (r *Repository) AddSchedule(ctx context.Context, s DigestSchedule) (int64, error) {
	if s.Hour < 0 || s.Hour > 23 || s.Minute < 0 || s.Minute > 59 {
		return 0, fmt.Errorf("invalid schedule time %02d:%02d", s.Hour, s.Minute)
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO digest_schedules (group_id, hour, minute, enabled) VALUES (?, ?, ?, ?)
`, s.GroupID, s.Hour, s.Minute, boolToInt(s.Enabled))
	if err != nil {
		return 0, fmt.Errorf("add schedule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("schedule insert id: %w", err)
	}
	return id, nil
}

func (r *Repository) SetScheduleEnabled(ctx context.Context, id int64, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE digest_schedules SET enabled = ? WHERE id = ?`, boolToInt(enabled), id)
	if err != nil {
		return fmt.Errorf("toggle schedule %d: %w", id, err)
	}
	return nil
}

func (r *Repository) DeleteSchedule(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM digest_schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
	}
	return nil
}

func (r *Repository) TouchSchedule(ctx context.Context, id int64, ranAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE digest_schedules SET last_run_at = ? WHERE id = ?`,
		ranAt.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("touch schedule %d: %w", id, err)
	}
	return nil
}
