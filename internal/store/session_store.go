// Package store holds the in-memory session and profile stores with JSON
// snapshot persistence. Writes to disk are best effort: a failed flush is
// logged and never fails the request.
//
// The stores guard their own maps, but sessions are handed out by pointer
// and mutated by request handlers without further locking. Two simultaneous
// requests against the same session id can interleave updates to the image
// counter and message history; that is an accepted limitation of the
// single-process design.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/deckoviz/vizzy-backend/internal/models"
)

// ErrNotFound is returned when a session or profile id is unknown.
var ErrNotFound = errors.New("not found")

// SessionStore owns every chat session for the process lifetime.
type SessionStore struct {
	mu       sync.Mutex
	path     string
	log      *slog.Logger
	sessions map[string]*models.Session
}

// NewSessionStore loads the persisted snapshot when one exists. A corrupt or
// missing snapshot starts the store empty.
func NewSessionStore(path string, log *slog.Logger) *SessionStore {
	s := &SessionStore{
		path:     path,
		log:      log,
		sessions: make(map[string]*models.Session),
	}
	if err := loadSnapshot(path, &s.sessions); err != nil {
		log.Warn("failed to load sessions file", "path", path, "err", err)
		s.sessions = make(map[string]*models.Session)
	} else if len(s.sessions) > 0 {
		log.Info("loaded sessions from disk", "count", len(s.sessions))
	}
	return s
}

// Get returns the session for id.
func (s *SessionStore) Get(id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// GetOrCreate returns the session for id, creating it on first reference.
// The second return value reports whether the session is new.
func (s *SessionStore) GetOrCreate(id string, now time.Time) (*models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, false
	}
	sess := &models.Session{
		ID:             id,
		CreatedAt:      now,
		Messages:       []models.ChatMessage{},
		ImageCount:     0,
		QuotaResetDate: now.Format("2006-01-02"),
	}
	s.sessions[id] = sess
	return sess, true
}

// Save persists the current state. The session is assumed to already be in
// the map; this flushes the snapshot after a mutation.
func (s *SessionStore) Save(sess *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	if err := writeSnapshot(s.path, s.sessions); err != nil {
		s.log.Warn("failed to write sessions file", "path", s.path, "err", err)
	}
}

// Len reports how many sessions the store holds.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func loadSnapshot(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return nil
}

func writeSnapshot(path string, src any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
