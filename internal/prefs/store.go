// Package prefs persists the user's camera and language selection between
// launches as a small JSON document in the platform config directory.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

type preferences struct {
	DeviceID string `json:"deviceId,omitempty"`
	Language string `json:"language,omitempty"`
}

// Store is safe for concurrent use. Reads serve from memory; writes rewrite
// the whole file.
type Store struct {
	mu   sync.Mutex
	path string
	data preferences
}

// NewStore opens the store in the user config directory, creating it on
// first use.
func NewStore(appName string) (*Store, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	return NewStoreAt(filepath.Join(base, appName, "preferences.json"))
}

// NewStoreAt opens the store backed by an explicit file path.
func NewStoreAt(path string) (*Store, error) {
	store := &Store{path: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	if err := json.Unmarshal(raw, &store.data); err != nil {
		// A corrupt file resets to defaults rather than blocking startup.
		store.data = preferences{}
	}
	return store, nil
}

func (s *Store) SelectedDevice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeviceID
}

func (s *Store) SetSelectedDevice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.DeviceID = id
	return s.flush()
}

func (s *Store) SelectedLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Language
}

func (s *Store) SetSelectedLanguage(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Language = code
	return s.flush()
}

func (s *Store) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}
