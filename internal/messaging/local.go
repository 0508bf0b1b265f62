package messaging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// LocalStore keeps watermarks in a YAML file on the user's machine. Nothing
// is synchronized across devices.
type LocalStore struct {
	Path   string
	Prefix string

	mu sync.Mutex
}

func NewLocalStore(path, prefix string) *LocalStore {
	return &LocalStore{Path: path, Prefix: prefix}
}

func (s *LocalStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	marks := map[string]string{}
	if err := yaml.Unmarshal(data, &marks); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return marks, nil
}

func (s *LocalStore) LastSeen(_ context.Context, userID, projectID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	marks, err := s.load()
	if err != nil {
		return "", false, err
	}
	ts, ok := marks[watermarkKey(s.Prefix, userID, projectID)]
	return ts, ok, nil
}

func (s *LocalStore) SetLastSeen(_ context.Context, userID, projectID, ts string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	marks, err := s.load()
	if err != nil {
		return err
	}
	marks[watermarkKey(s.Prefix, userID, projectID)] = ts
	data, err := yaml.Marshal(marks)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}
