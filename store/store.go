// Package store holds conversation sessions in memory with TTL-based
// expiration. The store exclusively owns all session state; callers refer to
// sessions by id only and never hold a session reference across calls.
package store

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/adimpact/chatbot/domain"
)

// DefaultTTL is the idle duration after which a session expires.
const DefaultTTL = 30 * time.Minute

type session struct {
	id           string
	turns        []domain.Turn
	createdAt    time.Time
	lastAccessed time.Time
}

// Store is an in-memory session store. All methods are safe for concurrent
// use; operations on different session ids never lose updates because every
// mutation happens under the store lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session

	// now is swapped out by tests to control expiration.
	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Create registers a new session with an empty turn sequence. An empty id
// generates a fresh UUID. Returns ErrSessionConflict when the id is already
// in use.
func (s *Store) Create(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.New().String()
	} else if _, ok := s.sessions[id]; ok {
		return "", domain.ErrSessionConflict
	}

	now := s.now()
	s.sessions[id] = &session{id: id, createdAt: now, lastAccessed: now}
	return id, nil
}

// GetOrCreate resolves a session id for a chat turn, creating the session
// when it is unknown. A caller-supplied id that does not exist is re-created
// under that exact id (stale clients keep their id rather than getting an
// error); an empty id creates a session under a generated UUID. The second
// return value reports whether a new session was created.
func (s *Store) GetOrCreate(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			sess.lastAccessed = s.now()
			return id, false
		}
	} else {
		id = uuid.New().String()
	}

	now := s.now()
	s.sessions[id] = &session{id: id, createdAt: now, lastAccessed: now}
	return id, true
}

// AppendTurn appends one turn to the session's history and refreshes its
// last-accessed time. The content is trimmed of surrounding whitespace.
func (s *Store) AppendTurn(id string, role domain.Role, content string) error {
	content = strings.TrimSpace(content)
	if !role.Valid() || content == "" {
		return domain.ErrInvalidTurn
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.turns = append(sess.turns, domain.Turn{Role: role, Content: content})
	sess.lastAccessed = s.now()
	return nil
}

// History returns a copy of the session's turns in conversation order.
func (s *Store) History(id string) ([]domain.Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	turns := make([]domain.Turn, len(sess.turns))
	copy(turns, sess.turns)
	return turns, true
}

// Delete removes a session. It reports whether a session existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// SweepExpired removes every session idle for longer than ttl and returns
// the number removed. It runs opportunistically before each chat turn so
// memory stays bounded by call volume.
func (s *Store) SweepExpired(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastAccessed) > ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// statsSampleSize bounds the per-session detail returned by Stats.
const statsSampleSize = 10

// Stats returns a summary of active sessions for the stats endpoint.
// Session ids are shortened so the endpoint never leaks full identifiers.
func (s *Store) Stats() *domain.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	stats := &domain.StoreStats{TotalSessions: len(s.sessions)}
	for _, sess := range s.sessions {
		if len(stats.Sessions) >= statsSampleSize {
			break
		}
		id := sess.id
		if utf8.RuneCountInString(id) > 20 {
			id = string([]rune(id)[:20]) + "..."
		}
		stats.Sessions = append(stats.Sessions, domain.SessionStat{
			ID:         id,
			Messages:   len(sess.turns),
			AgeSeconds: now.Sub(sess.createdAt).Seconds(),
		})
	}
	return stats
}
