package state

import (
	"context"
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore keeps alert keys as a JSON object of key -> true in a single file.
// Every write rewrites the whole file through a temp file and rename.
type FileStore struct {
	mu     sync.Mutex
	path   string
	alerts map[string]bool
}

// NewFileStore returns a store backed by path. Nothing is read until first use.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Has(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	return s.alerts[key], nil
}

func (s *FileStore) Put(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	next := maps.Clone(s.alerts)
	next[key] = true
	return s.commit(next)
}

func (s *FileStore) Keys(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(s.alerts))
	for k, v := range s.alerts {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	next := maps.Clone(s.alerts)
	for _, k := range keys {
		delete(next, k)
	}
	return s.commit(next)
}

// commit writes next and adopts it only once it is on disk, so memory never
// runs ahead of the file.
func (s *FileStore) commit(next map[string]bool) error {
	if err := saveAlerts(s.path, next); err != nil {
		return persistErr("file", "write", err)
	}
	s.alerts = next
	return nil
}

func (s *FileStore) Close() error { return nil }

// ensureLoaded reads the file once. A missing file is initialized to {} on disk.
func (s *FileStore) ensureLoaded() error {
	if s.alerts != nil {
		return nil
	}
	alerts, existed, err := loadAlerts(s.path)
	if err != nil {
		return persistErr("file", "read", err)
	}
	if !existed {
		if err := saveAlerts(s.path, alerts); err != nil {
			return persistErr("file", "init", err)
		}
	}
	s.alerts = alerts
	return nil
}

// loadAlerts reads the alert map. A missing file yields an empty map.
func loadAlerts(path string) (map[string]bool, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, false, nil
		}
		return nil, false, err
	}
	alerts := map[string]bool{}
	if len(data) == 0 {
		return alerts, true, nil
	}
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, true, err
	}
	return alerts, true, nil
}

func saveAlerts(path string, alerts map[string]bool) error {
	data, err := json.MarshalIndent(alerts, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
