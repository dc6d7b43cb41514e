package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Credentials is one access/refresh pair as held by a client. The zero
// value is unusable; a pair always comes from a login or refresh response.
type Credentials struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// AccessValid reports whether the access token is still usable at now,
// treating tokens within skew of expiry as already expired so a request
// does not leave with a token that dies in flight.
func (c *Credentials) AccessValid(now time.Time, skew time.Duration) bool {
	return c != nil && c.AccessToken != "" && now.Add(skew).Before(c.AccessExpiresAt)
}

// RefreshValid reports whether the refresh token can still be redeemed.
func (c *Credentials) RefreshValid(now time.Time) bool {
	return c != nil && c.RefreshToken != "" && now.Before(c.RefreshExpiresAt)
}

// Store persists credentials across client restarts.
type Store interface {
	// Load returns the stored credentials, or nil when none are stored.
	Load() (*Credentials, error)
	Save(creds *Credentials) error
	Clear() error
}

// MemoryStore keeps credentials in process memory only.
type MemoryStore struct {
	mu    sync.Mutex
	creds *Credentials
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil, nil
	}
	copied := *s.creds
	return &copied, nil
}

func (s *MemoryStore) Save(creds *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *creds
	s.creds = &copied
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}

// FileStore persists credentials as a JSON file readable only by the
// owning user.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (s *FileStore) Save(creds *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
