package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the credential in process memory.
type MemoryStore struct {
	mu sync.RWMutex

	token      string
	tokenExp   time.Time
	profile    []byte
	profileExp time.Time

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) LoadCredential(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" || expired(s.tokenExp, s.now()) {
		return "", ErrNotFound
	}
	return s.token, nil
}

func (s *MemoryStore) SaveCredential(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl < 0 {
		s.token, s.tokenExp = "", time.Time{}
		s.profile, s.profileExp = nil, time.Time{}
		return nil
	}
	s.token = token
	s.tokenExp = expiry(s.now(), ttl)
	return nil
}

func (s *MemoryStore) LoadProfile(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.profile) == 0 || expired(s.profileExp, s.now()) {
		return nil, ErrNotFound
	}
	return cloneBytes(s.profile), nil
}

func (s *MemoryStore) SaveProfile(ctx context.Context, profile []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl < 0 {
		s.profile, s.profileExp = nil, time.Time{}
		return nil
	}
	s.profile = cloneBytes(profile)
	s.profileExp = expiry(s.now(), ttl)
	return nil
}

// Clear drops both the credential and the profile.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.tokenExp = time.Time{}
	s.profile = nil
	s.profileExp = time.Time{}
	return nil
}
