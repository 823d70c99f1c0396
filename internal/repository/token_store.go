package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"golang-autotrade/internal/dto"
	"os"
	"sync"
	"time"
)

var ErrTokenExpired = errors.New("access token expired")

// TokenStore caches the broker bearer token between process restarts.
type TokenStore interface {
	Load() (*dto.AccessToken, error)
	Save(token *dto.AccessToken) error
}

type fileTokenStore struct {
	path string
	mu   sync.Mutex
}

func NewFileTokenStore(path string) TokenStore {
	return &fileTokenStore{path: path}
}

// Load returns os.ErrNotExist when nothing is cached yet.
func (s *fileTokenStore) Load() (*dto.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var token dto.AccessToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token cache %s: %w", s.path, err)
	}
	return &token, nil
}

func (s *fileTokenStore) Save(token *dto.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return writeFileAtomic(s.path, data, 0o600)
}

// checkToken reports ErrTokenExpired once now is within buffer of expiry.
func checkToken(token *dto.AccessToken, now time.Time, buffer time.Duration) error {
	if token == nil || token.AccessToken == "" {
		return ErrTokenExpired
	}
	if now.Add(buffer).Unix() >= token.ExpiresAt {
		return ErrTokenExpired
	}
	return nil
}
