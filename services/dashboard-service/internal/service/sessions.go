package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/grigta/covid-tracker/pkg/logger"
	gocache "github.com/patrickmn/go-cache"
)

var ErrInvalidSession = errors.New("invalid session id")

// ListenerFactory builds a per-session listener, e.g. RedisSnapshotStore.Listener.
type ListenerFactory func(sessionID string) Listener

type session struct {
	controller  *Controller
	unsubscribe []func()
}

func (s *session) close() {
	for _, u := range s.unsubscribe {
		u()
	}
}

// SessionRegistry maps browser sessions to controllers. Sessions idle for
// longer than the TTL are dropped.
type SessionRegistry struct {
	sessions  *gocache.Cache
	source    StatsSource
	defaults  MapDefaults
	store     SnapshotStore
	factories []ListenerFactory
	logger    logger.Logger
	mu        sync.Mutex
}

// NewSessionRegistry creates a registry. store may be nil.
func NewSessionRegistry(source StatsSource, defaults MapDefaults, ttl time.Duration, store SnapshotStore, log logger.Logger, factories ...ListenerFactory) *SessionRegistry {
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}

	r := &SessionRegistry{
		sessions:  gocache.New(ttl, cleanup),
		source:    source,
		defaults:  defaults,
		store:     store,
		factories: factories,
		logger:    log.WithField("component", "sessions"),
	}

	r.sessions.OnEvicted(func(id string, v interface{}) {
		if s, ok := v.(*session); ok {
			s.close()
		}
		r.updateGauge()
		r.logger.Debug("Session expired", logger.Field{Key: "session_id", Value: id})
	})

	return r
}

// Get returns the controller for id, creating and initializing it on first use.
// Initialization failures are visible in the controller state and do not fail Get.
func (r *SessionRegistry) Get(ctx context.Context, id string) (*Controller, error) {
	if id == "" {
		return nil, ErrInvalidSession
	}

	if c, ok := r.lookup(id); ok {
		return c, nil
	}

	s := r.newSession(ctx, id)

	r.mu.Lock()
	if v, ok := r.sessions.Get(id); ok {
		r.sessions.SetDefault(id, v)
		r.mu.Unlock()
		s.close()
		return v.(*session).controller, nil
	}
	// An expired entry for id may still be waiting on the janitor. Purging
	// first runs OnEvicted for it so its listeners are released.
	r.sessions.DeleteExpired()
	r.sessions.SetDefault(id, s)
	r.mu.Unlock()
	r.updateGauge()

	r.logger.Debug("Session created", logger.Field{Key: "session_id", Value: id})

	if err := s.controller.Initialize(context.WithoutCancel(ctx)); err != nil {
		r.logger.WithError(err).Warn("Session initialized with errors",
			logger.Field{Key: "session_id", Value: id},
		)
	}

	return s.controller, nil
}

// lookup refreshes the idle deadline of a live session.
func (r *SessionRegistry) lookup(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, false
	}
	r.sessions.SetDefault(id, v)
	return v.(*session).controller, true
}

func (r *SessionRegistry) newSession(ctx context.Context, id string) *session {
	c := NewController(r.source, r.defaults, r.logger.WithField("session_id", id))

	if r.store != nil {
		prefs, found, err := r.store.Load(ctx, id)
		switch {
		case err != nil:
			r.logger.WithError(err).Warn("Failed to restore session", logger.Field{Key: "session_id", Value: id})
		case found:
			c.Restore(prefs)
		}
	}

	s := &session{controller: c}
	for _, factory := range r.factories {
		s.unsubscribe = append(s.unsubscribe, c.Subscribe(factory(id)))
	}
	return s
}

// Remove drops a session immediately.
func (r *SessionRegistry) Remove(id string) {
	r.sessions.Delete(id)
}

// Count returns the number of unexpired sessions.
func (r *SessionRegistry) Count() int {
	return len(r.sessions.Items())
}

func (r *SessionRegistry) updateGauge() {
	activeSessions.Set(float64(r.Count()))
}
