package shell

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/profile-support/internal/observability"
)

// Factory builds the shell of a new session. ctx lives as long as the registry.
type Factory func(ctx context.Context) *Index

type session struct {
	index    *Index
	lastSeen time.Time
}

// Registry keeps one shell per browser session and evicts idle ones.
type Registry struct {
	ctx     context.Context
	factory Factory
	ttl     time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewRegistry creates an empty registry.
func NewRegistry(ctx context.Context, factory Factory, ttl time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		ctx:      ctx,
		factory:  factory,
		ttl:      ttl,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Get returns the shell of id and marks it as used.
func (r *Registry) Get(id string) (*Index, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = r.now()
	return s.index, true
}

// Create starts a new session.
func (r *Registry) Create() (string, *Index) {
	id := uuid.NewString()
	index := r.factory(r.ctx)

	r.mu.Lock()
	r.sessions[id] = &session{index: index, lastSeen: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetSessions(n)
	r.logger.Debug("session created", zap.String("session_id", id))
	return id, index
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Index
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s.index)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, index := range expired {
		index.Close()
	}
	if len(expired) > 0 {
		r.metrics.SetSessions(n)
		r.logger.Info("sessions evicted", zap.Int("count", len(expired)), zap.Int("remaining", n))
	}
	return len(expired)
}

// Run sweeps periodically until ctx ends.
func (r *Registry) Run(ctx context.Context) {
	every := r.ttl / 4
	if every < time.Minute {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close shuts every session down.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.index.Close()
	}
	r.metrics.SetSessions(0)
}
