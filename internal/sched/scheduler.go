package sched

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/time/rate"

	"github.com/lumen-reader/lumen/internal/logging"
	"github.com/lumen-reader/lumen/internal/storage"
)

// Generator produces one digest. Satisfied by the AI client.
type Generator interface {
	GenerateDigest(ctx context.Context, params map[string]any) (json.RawMessage, error)
}

// Store is the schedule slice of the repository.
type Store interface {
	ListSchedules(ctx context.Context) ([]storage.DigestSchedule, error)
	TouchSchedule(ctx context.Context, id int64, ranAt time.Time) error
}

const defaultTick = 30 * time.Second

// Scheduler fires digest generation at the configured daily times. Each
// schedule runs at most once per day; generation is rate limited so a batch
// of due schedules after a long sleep does not hammer the backend.
type Scheduler struct {
	store   Store
	gen     Generator
	limiter *rate.Limiter
	tick    time.Duration
	now     func() time.Time

	// OnGenerated receives the raw digest payload, e.g. to refresh the
	// digest list in the UI.
	OnGenerated func(raw json.RawMessage)
}

func New(store Store, gen Generator) *Scheduler {
	return &Scheduler{
		store:   store,
		gen:     gen,
		limiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
		tick:    defaultTick,
		now:     time.Now,
	}
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()
	schedules, err := s.store.ListSchedules(ctx)
	if err != nil {
		logging.Warn("list digest schedules failed", "error", err)
		return
	}

	for _, sched := range schedules {
		if !due(sched, now) {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		raw, err := s.gen.GenerateDigest(ctx, map[string]any{"group_id": sched.GroupID})
		if err != nil {
			logging.Warn("scheduled digest failed", "schedule", sched.ID, "group", sched.GroupID, "error", err)
			continue
		}
		if err := s.store.TouchSchedule(ctx, sched.ID, now); err != nil {
			logging.Warn("touch schedule failed", "schedule", sched.ID, "error", err)
		}
		logging.Info("scheduled digest generated", "schedule", sched.ID, "group", sched.GroupID)
		if s.OnGenerated != nil {
			s.OnGenerated(raw)
		}
	}
}

// due reports whether the schedule's daily slot has passed without a run.
// A job missed while the process was down fires on the next tick of the
// same day, never retroactively for earlier days.
func due(s storage.DigestSchedule, now time.Time) bool {
	if !s.Enabled {
		return false
	}
	slot := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())
	if now.Before(slot) {
		return false
	}
	return s.LastRunAt.Before(slot)
}
