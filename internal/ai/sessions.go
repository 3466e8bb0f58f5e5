package ai

import (
	"context"
	"sync"
)

// Operation kinds tracked by the registry.
const (
	OpSummarize = "summarize"
	OpTranslate = "translate"
)

type sessionKey struct {
	articleID int64
	op        string
}

// Registry tracks at most one in-flight AI operation per article and kind,
// keyed by article id rather than stored on the article itself. Begin
// refuses a second concurrent start; Cancel aborts a running one.
type Registry struct {
	mu       sync.Mutex
	sessions map[sessionKey]context.CancelFunc
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[sessionKey]context.CancelFunc)}
}

// Begin registers a new operation and returns its context. ok is false if
// the same operation is already running for this article.
func (r *Registry) Begin(parent context.Context, articleID int64, op string) (ctx context.Context, done func(), ok bool) {
	key := sessionKey{articleID: articleID, op: op}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, running := r.sessions[key]; running {
		return nil, nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	r.sessions[key] = cancel

	done = func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if stored, exists := r.sessions[key]; exists {
			stored()
			delete(r.sessions, key)
		}
	}
	return ctx, done, true
}

func (r *Registry) Running(articleID int64, op string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, running := r.sessions[sessionKey{articleID: articleID, op: op}]
	return running
}

// Cancel aborts a running operation. Reports whether one was running.
func (r *Registry) Cancel(articleID int64, op string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sessionKey{articleID: articleID, op: op}
	cancel, running := r.sessions[key]
	if running {
		cancel()
		delete(r.sessions, key)
	}
	return running
}

// CancelAll aborts everything, e.g. when the viewed article changes.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, cancel := range r.sessions {
		cancel()
		delete(r.sessions, key)
	}
}
