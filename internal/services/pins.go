package services

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"roehampton-community-directory/internal/models"
)

// defaultPinSessionTTL is how long an idle pin session survives, overridable
// in minutes via PIN_SESSION_TTL
const defaultPinSessionTTL = 12 * time.Hour

// TogglePin returns a pin set with the id removed if present, else added.
// Pure and total: the input set is never modified.
func TogglePin(set models.PinSet, id int) models.PinSet {
	next := make(models.PinSet, len(set)+1)
	for pinned := range set {
		next[pinned] = struct{}{}
	}
	if next.Contains(id) {
		delete(next, id)
	} else {
		next[id] = struct{}{}
	}
	return next
}

// ClearPins returns an empty pin set
func ClearPins(set models.PinSet) models.PinSet {
	return models.NewPinSet()
}

// IsPinned reports whether the activity id is in the pin set
func IsPinned(set models.PinSet, id int) bool {
	return set.Contains(id)
}

// PinnedActivities slices the canonical activity list down to the pinned
// entries, preserving input order
func PinnedActivities(activities []models.Activity, set models.PinSet) []models.Activity {
	pinned := make([]models.Activity, 0, len(set))
	for _, activity := range activities {
		if set.Contains(activity.ID) {
			pinned = append(pinned, activity)
		}
	}
	return pinned
}

// PinSessionStore holds per-browser-session pin sets in memory. Sessions are
// keyed by opaque ids and expire after an idle TTL; there are no durability
// guarantees of any kind.
type PinSessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*pinSession
}

type pinSession struct {
	pins    models.PinSet
	touched time.Time
}

// NewPinSessionStore creates a store with the idle TTL from the environment
func NewPinSessionStore() *PinSessionStore {
	ttl := defaultPinSessionTTL
	if raw := os.Getenv("PIN_SESSION_TTL"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			ttl = time.Duration(minutes) * time.Minute
		}
	}
	return NewPinSessionStoreWithTTL(ttl)
}

// NewPinSessionStoreWithTTL creates a store with an explicit idle TTL
func NewPinSessionStoreWithTTL(ttl time.Duration) *PinSessionStore {
	return &PinSessionStore{
		ttl:      ttl,
		sessions: make(map[string]*pinSession),
	}
}

// NewSession mints a fresh session id with an empty pin set
func (s *PinSessionStore) NewSession() string {
	id := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(time.Now())
	s.sessions[id] = &pinSession{pins: models.NewPinSet(), touched: time.Now()}
	return id
}

// Pins returns the session's current pin set. An unknown or expired session
// yields an empty set.
func (s *PinSessionStore) Pins(sessionID string) models.PinSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.session(sessionID)
	if !ok {
		return models.NewPinSet()
	}
	return session.pins
}

// Toggle flips one activity id in the session's pin set and returns the new
// set. Toggling on an unknown session lazily creates it.
func (s *PinSessionStore) Toggle(sessionID string, activityID int) models.PinSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.session(sessionID)
	if !ok {
		session = &pinSession{pins: models.NewPinSet()}
		s.sessions[sessionID] = session
	}
	session.pins = TogglePin(session.pins, activityID)
	session.touched = time.Now()
	return session.pins
}

// Clear empties the session's pin set
func (s *PinSessionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.session(sessionID); ok {
		session.pins = models.NewPinSet()
		session.touched = time.Now()
	}
}

// session looks up a live session and refreshes its idle timer, expiring
// stale sessions as a side effect. Caller holds the lock.
func (s *PinSessionStore) session(sessionID string) (*pinSession, bool) {
	now := time.Now()
	s.sweep(now)
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	session.touched = now
	return session, true
}

func (s *PinSessionStore) sweep(now time.Time) {
	for id, session := range s.sessions {
		if now.Sub(session.touched) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
