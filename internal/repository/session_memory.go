package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/quocanhngo/devicelink/internal/model"
)

// SessionRepository is the in-process table of pairing sessions. Sessions are
// never persisted; a restart drops every pending handshake.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*model.PairingSession
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*model.PairingSession)}
}

// Create stores a new session
func (r *SessionRepository) Create(session *model.PairingSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.SessionID] = cloneSession(session)
}

// FindByID returns a copy of the session
func (r *SessionRepository) FindByID(sessionID string) (*model.PairingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

// Update applies fn to a copy of the session and stores the copy only if fn
// succeeds. The read, check and write happen under one lock, so fn can act as a
// compare-and-set guard.
func (r *SessionRepository) Update(sessionID string, fn func(s *model.PairingSession) error) (*model.PairingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[sessionID]
	if !ok {
		return nil, model.ErrSessionNotFound
	}

	next := cloneSession(current)
	if err := fn(next); err != nil {
		return nil, err
	}
	r.sessions[sessionID] = next
	return cloneSession(next), nil
}

// UpdateWhere applies fn to every session matching the predicate. Sessions for
// which fn fails are left untouched.
func (r *SessionRepository) UpdateWhere(match func(s *model.PairingSession) bool, fn func(s *model.PairingSession) error) []*model.PairingSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated []*model.PairingSession
	for id, current := range r.sessions {
		if !match(current) {
			continue
		}
		next := cloneSession(current)
		if err := fn(next); err != nil {
			continue
		}
		r.sessions[id] = next
		updated = append(updated, cloneSession(next))
	}
	return updated
}

// DeleteIfExpired removes the session when it has expired at now
func (r *SessionRepository) DeleteIfExpired(sessionID string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || !s.IsExpiredAt(now) {
		return false
	}
	delete(r.sessions, sessionID)
	return true
}

// DeleteExpired removes every session expired at now and returns how many went
func (r *SessionRepository) DeleteExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.IsExpiredAt(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// List returns copies of the sessions matching the predicate, oldest first
func (r *SessionRepository) List(match func(s *model.PairingSession) bool) []*model.PairingSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*model.PairingSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		if match == nil || match(s) {
			result = append(result, cloneSession(s))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func cloneSession(s *model.PairingSession) *model.PairingSession {
	c := *s
	if s.PairedDevice != nil {
		pd := *s.PairedDevice
		c.PairedDevice = &pd
	}
	return &c
}
