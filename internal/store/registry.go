package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vegasarees/storefront/internal/storage"
)

// OpenHook runs once for every store the registry opens, before the store
// is handed to any caller.
type OpenHook func(sessionID string, s *Store)

// Registry owns one Store per shopper session, opened lazily under the
// session's key namespace.
type Registry struct {
	kv     storage.KV
	logger *slog.Logger
	opts   []Option
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	hooks    []OpenHook
	closed   bool
}

type session struct {
	ready    chan struct{}
	store    *Store
	err      error
	lastUsed time.Time
}

// NewRegistry creates a registry over kv. opts apply to every store.
func NewRegistry(kv storage.KV, logger *slog.Logger, opts ...Option) *Registry {
	return &Registry{
		kv:       kv,
		logger:   logger,
		opts:     append([]Option{WithLogger(logger)}, opts...),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// OnOpen registers a hook for stores opened from now on.
func (r *Registry) OnOpen(h OpenHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// Get returns the store for sessionID, opening and rehydrating it on first
// use. Concurrent callers for one session share a single instance.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Store, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if sess, ok := r.sessions[sessionID]; ok {
		sess.lastUsed = r.now()
		r.mu.Unlock()
		select {
		case <-sess.ready:
			return sess.store, sess.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	sess := &session{ready: make(chan struct{}), lastUsed: r.now()}
	r.sessions[sessionID] = sess
	hooks := append([]OpenHook(nil), r.hooks...)
	r.mu.Unlock()

	kv := storage.WithPrefix(r.kv, storage.SessionPrefix(sessionID))
	s, err := Open(ctx, kv, r.opts...)
	if err == nil {
		for _, h := range hooks {
			h(sessionID, s)
		}
		openSessions.Inc()
		r.logger.DebugContext(ctx, "session store opened", slog.String("session_id", sessionID))
	}

	r.mu.Lock()
	sess.store, sess.err = s, err
	if err != nil && r.sessions[sessionID] == sess {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()
	close(sess.ready)

	return s, err
}

// evict closes and forgets the store of sessionID. Its snapshots stay in
// storage and are rehydrated on the next Get.
func (r *Registry) evict(sessionID string) {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()
	if ok {
		r.closeSession(sess)
	}
}

func (r *Registry) closeSession(sess *session) {
	<-sess.ready
	if sess.store != nil {
		sess.store.Close()
		openSessions.Dec()
	}
}

// CloseAll closes every store. Later calls to Get return ErrClosed.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, sess := range sessions {
		r.closeSession(sess)
	}
}

// Sweep closes stores not requested for idle and returns how many it closed.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []*session
	for id, sess := range r.sessions {
		select {
		case <-sess.ready:
		default:
			continue
		}
		if sess.lastUsed.Before(cutoff) {
			stale = append(stale, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, sess := range stale {
		r.closeSession(sess)
	}
	return len(stale)
}

// Len returns the number of open or opening sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
