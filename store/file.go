package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileRecord struct {
	AccessToken      string          `json:"access_token,omitempty"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	Profile          json.RawMessage `json:"profile,omitempty"`
	ProfileExpiresAt *time.Time      `json:"profile_expires_at,omitempty"`
}

// FileStore persists the credential to a single JSON file readable only by
// the current user.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore returns a store writing to path. Parent directories are
// created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// DefaultFilePath returns ~/.config/hrclient/credentials.json, or the
// equivalent under the user's config directory.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(dir, "hrclient", "credentials.json"), nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) LoadCredential(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read()
	if err != nil {
		return "", err
	}
	if rec.AccessToken == "" || expired(derefTime(rec.ExpiresAt), s.now()) {
		return "", ErrNotFound
	}
	return rec.AccessToken, nil
}

func (s *FileStore) SaveCredential(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if ttl < 0 {
		return s.removeLocked()
	}
	rec.AccessToken = token
	rec.ExpiresAt = timePtr(expiry(s.now(), ttl))
	return s.write(rec)
}

func (s *FileStore) LoadProfile(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read()
	if err != nil {
		return nil, err
	}
	if len(rec.Profile) == 0 || expired(derefTime(rec.ProfileExpiresAt), s.now()) {
		return nil, ErrNotFound
	}
	return cloneBytes(rec.Profile), nil
}

func (s *FileStore) SaveProfile(ctx context.Context, profile []byte, ttl time.Duration) error {
	if len(profile) > 0 && !json.Valid(profile) {
		return fmt.Errorf("profile is not valid JSON")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if ttl < 0 {
		rec.Profile, rec.ProfileExpiresAt = nil, nil
		if rec.AccessToken == "" {
			return s.removeLocked()
		}
		return s.write(rec)
	}
	rec.Profile = cloneBytes(profile)
	rec.ProfileExpiresAt = timePtr(expiry(s.now(), ttl))
	return s.write(rec)
}

// Clear removes the credentials file. A missing file is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked()
}

func (s *FileStore) removeLocked() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *FileStore) read() (fileRecord, error) {
	var rec fileRecord

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return fileRecord{}, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return rec, nil
}

// write replaces the file atomically through a temp file in the same directory.
func (s *FileStore) write(rec fileRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
