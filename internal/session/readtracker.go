package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lumen-reader/lumen/internal/logging"
	"github.com/lumen-reader/lumen/internal/miniflux"
)

// Marker is the slice of the backend API the tracker needs.
type Marker interface {
	MarkReadBatch(ctx context.Context, ids []int64) error
	MarkRead(ctx context.Context, id int64) error
}

const (
	defaultFlushDelay   = 600 * time.Millisecond
	fallbackConcurrency = 10
)

// ReadTracker turns scrolled-past signals into mark-read calls. Ids are
// collected for a short window and sent as one batch; each id is submitted
// at most once for the tracker's lifetime, so repeated scrolling over the
// same rows costs nothing.
type ReadTracker struct {
	marker Marker
	delay  time.Duration

	// OnMarked runs as soon as ids are accepted, before the backend call.
	// The read state flips optimistically; a failed request only logs.
	OnMarked func(ids []int64)

	mu      sync.Mutex
	enabled bool
	pending []int64
	seen    map[int64]struct{}
	timer   *time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewReadTracker(marker Marker) *ReadTracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReadTracker{
		marker:  marker,
		delay:   defaultFlushDelay,
		enabled: true,
		seen:    make(map[int64]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetEnabled reflects the scroll-to-mark-read preference. Disabling drops
// anything still pending.
func (t *ReadTracker) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if !enabled {
		t.pending = nil
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
	}
}

// Reset forgets the seen set, e.g. when the scope changes and ids may
// legitimately reappear unread.
func (t *ReadTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = nil
	t.seen = make(map[int64]struct{})
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Observe queues unseen ids and arms the flush timer. Safe to call on every
// scroll event.
func (t *ReadTracker) Observe(ids []int64) {
	t.mu.Lock()
	if !t.enabled {
		t.mu.Unlock()
		return
	}
	var added []int64
	for _, id := range ids {
		if _, ok := t.seen[id]; ok {
			continue
		}
		t.seen[id] = struct{}{}
		added = append(added, id)
	}
	if len(added) == 0 {
		t.mu.Unlock()
		return
	}
	t.pending = append(t.pending, added...)
	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, t.flushTimer)
	}
	t.mu.Unlock()

	if t.OnMarked != nil {
		t.OnMarked(added)
	}
}

// Flush sends whatever is pending right now, e.g. before the scope changes
// or on shutdown.
func (t *ReadTracker) Flush() {
	t.mu.Lock()
	ids := t.takePending()
	t.mu.Unlock()
	t.send(ids)
}

// Close flushes and cancels any in-flight fallback calls.
func (t *ReadTracker) Close() {
	t.Flush()
	t.cancel()
}

func (t *ReadTracker) flushTimer() {
	t.mu.Lock()
	ids := t.takePending()
	t.mu.Unlock()
	t.send(ids)
}

// takePending is called under the lock.
func (t *ReadTracker) takePending() []int64 {
	ids := t.pending
	t.pending = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	return ids
}

// send tries the batch endpoint first. A 404 means the backend predates it;
// per-article calls with bounded concurrency cover that case.
func (t *ReadTracker) send(ids []int64) {
	if len(ids) == 0 {
		return
	}
	err := t.marker.MarkReadBatch(t.ctx, ids)
	if err == nil {
		return
	}
	if !errors.Is(err, miniflux.ErrNotFound) {
		logging.Warn("batch mark read failed", "count", len(ids), "error", err)
		return
	}

	g, ctx := errgroup.WithContext(t.ctx)
	g.SetLimit(fallbackConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := t.marker.MarkRead(ctx, id); err != nil {
				logging.Warn("mark read failed", "id", id, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
