package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cmaxbonds/internal/domain"
)

// ResetMemoryStore keeps reset sessions in process memory
type ResetMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.ResetSession
	now      func() time.Time
}

// NewResetMemoryStore creates an empty store; now defaults to time.Now
func NewResetMemoryStore(now func() time.Time) *ResetMemoryStore {
	if now == nil {
		now = time.Now
	}
	return &ResetMemoryStore{
		sessions: make(map[string]domain.ResetSession),
		now:      now,
	}
}

func (s *ResetMemoryStore) Save(_ context.Context, session *domain.ResetSession) error {
	s.mu.Lock()
	s.sessions[session.ID] = *session
	s.mu.Unlock()
	return nil
}

func (s *ResetMemoryStore) Get(_ context.Context, id string) (*domain.ResetSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("reset session %s: %w", id, domain.ErrResetNotFound)
	}
	return &session, nil
}

func (s *ResetMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *ResetMemoryStore) PurgeExpired(_ context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged, nil
}

// Len returns the number of stored sessions
func (s *ResetMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
