package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrNotFound is returned for an unknown session ID.
var ErrNotFound = errors.New("session not found")

// DefaultMaxSessions bounds a Registry when no size is given.
const DefaultMaxSessions = 256

// Registry holds sessions keyed by UUID. When full, the least recently used
// session is reset and dropped.
type Registry struct {
	opts     Options
	sessions *lru.Cache[string, *Session]
}

// NewRegistry creates a registry whose sessions share opts.
func NewRegistry(opts Options, maxSessions int) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	cache, _ := lru.NewWithEvict[string, *Session](maxSessions, func(_ string, s *Session) {
		s.Reset()
	})
	return &Registry{opts: opts, sessions: cache}
}

// Create starts a new idle session.
func (r *Registry) Create() *Session {
	s := New(uuid.NewString(), r.opts)
	r.sessions.Add(s.ID(), s)
	return s
}

// Get returns the session with the given ID.
func (r *Registry) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete resets and removes a session.
func (r *Registry) Delete(id string) error {
	if _, err := r.Get(id); err != nil {
		return err
	}
	// Remove runs the eviction callback, which resets the session.
	r.sessions.Remove(id)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int { return r.sessions.Len() }
