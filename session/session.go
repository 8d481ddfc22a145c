// Package session keeps exactly one playback coordinator per auth session,
// so every surface of a session observes the same playback state.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/erikbos/wavesync/auth"
	"github.com/erikbos/wavesync/player"
)

// Factory creates the coordinator of a signed in user.
type Factory func(userID string) *player.Coordinator

type entry struct {
	coordinator *player.Coordinator
	lastUsed    time.Time
}

type Registry struct {
	factory Factory
	now     func() time.Time

	mu           sync.Mutex
	coordinators map[string]*entry
}

func New(factory Factory) *Registry {
	return &Registry{
		factory:      factory,
		now:          time.Now,
		coordinators: make(map[string]*entry),
	}
}

// Get returns the coordinator of a session, creating it on first use.
func (r *Registry) Get(s *auth.Session) *player.Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.coordinators[s.AccessToken]; ok {
		e.lastUsed = r.now()
		return e.coordinator
	}
	c := r.factory(s.UserID)
	r.coordinators[s.AccessToken] = &entry{coordinator: c, lastUsed: r.now()}
	logrus.WithField("user", s.UserID).Debug("Created playback coordinator")
	return c
}

// Lookup returns the coordinator of a session if it exists.
func (r *Registry) Lookup(token string) (*player.Coordinator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.coordinators[token]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.coordinator, true
}

// Remove closes and forgets the coordinator of a session.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	e, ok := r.coordinators[token]
	delete(r.coordinators, token)
	r.mu.Unlock()
	if ok {
		e.coordinator.Close()
	}
}

// HandleSessionChange drops the coordinator of a session that signed out.
func (r *Registry) HandleSessionChange(event auth.Event, s *auth.Session) {
	if event == auth.SignedOut && s != nil {
		r.Remove(s.AccessToken)
	}
}

// Evict closes coordinators that have no subscriber and no widget and
// were not used for idle. It returns the number evicted.
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var evicted []*player.Coordinator
	for token, e := range r.coordinators {
		if e.lastUsed.Before(cutoff) && e.coordinator.Idle() {
			evicted = append(evicted, e.coordinator)
			delete(r.coordinators, token)
		}
	}
	r.mu.Unlock()

	for _, c := range evicted {
		c.Close()
	}
	return len(evicted)
}

// EvictionJob runs Evict every interval until ctx is done.
func (r *Registry) EvictionJob(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(idle); n > 0 {
				logrus.WithField("count", n).Debug("Evicted idle playback coordinators")
			}
		}
	}
}

// Len returns the number of live coordinators.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.coordinators)
}

// Close closes all coordinators.
func (r *Registry) Close() {
	r.mu.Lock()
	coordinators := r.coordinators
	r.coordinators = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range coordinators {
		e.coordinator.Close()
	}
}
