package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Credentials is the access/refresh token pair. A successful refresh replaces
// both fields in the store.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenStore abstracts where the token pair lives so the dispatcher never
// touches ambient storage directly. The CLI uses a file store; tests use the
// in-memory one.
type TokenStore interface {
	Get() (Credentials, error)
	Set(Credentials) error
}

// MemTokenStore holds credentials in memory.
type MemTokenStore struct {
	mu    sync.Mutex
	creds Credentials
}

func NewMemTokenStore(creds Credentials) *MemTokenStore {
	return &MemTokenStore{creds: creds}
}

func (s *MemTokenStore) Get() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, nil
}

func (s *MemTokenStore) Set(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}

// FileTokenStore persists the token pair as JSON on disk, the CLI analog of
// the dashboard's local storage.
type FileTokenStore struct {
	Path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		path = filepath.Join(dir, "mailscout", "tokens.json")
	}
	return &FileTokenStore{Path: path}
}

func (s *FileTokenStore) Get() (Credentials, error) {
	var creds Credentials
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return creds, fmt.Errorf("read token file: %w", err)
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse token file: %w", err)
	}
	return creds, nil
}

func (s *FileTokenStore) Set(creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0600)
}
