package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync"
)

// VersionKey marks the layout of the settings file.
const VersionKey = "configVersion"

// CurrentVersion is written into files this build saves.
const CurrentVersion = 1

// Store is a flat key/value settings file. It is read once on Open and
// rewritten whenever Set changes a value.
type Store struct {
	path string

	mu     sync.Mutex
	values map[string]any
}

// Open loads the file at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("settings path is empty")
	}
	s := &Store{path: path, values: map[string]any{}}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.values); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if s.values == nil {
		s.values = map[string]any{}
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Version returns the configVersion marker, 0 when absent.
func (s *Store) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v := s.values[VersionKey].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Get returns the raw value stored under key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Decode unmarshals the value under key into dest. ok is false when the key is absent.
func (s *Store) Decode(key string, dest any) (bool, error) {
	s.mu.Lock()
	v, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return true, fmt.Errorf("encode setting %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key and saves the file when the value changed.
// The returned flag reports whether a save happened.
func (s *Store) Set(key string, value any) (bool, error) {
	normalized, err := normalize(value)
	if err != nil {
		return false, fmt.Errorf("encode setting %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	previous, had := s.values[key]
	if had && reflect.DeepEqual(previous, normalized) {
		return false, nil
	}
	s.values[key] = normalized
	if err := s.saveLocked(); err != nil {
		s.restoreLocked(key, previous, had)
		return false, err
	}
	return true, nil
}

// Delete removes key and saves the file when it was present.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, ok := s.values[key]
	if !ok {
		return nil
	}
	delete(s.values, key)
	if err := s.saveLocked(); err != nil {
		s.restoreLocked(key, previous, true)
		return err
	}
	return nil
}

// Snapshot returns a copy of all values.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// restoreLocked puts key back to what it held before a failed save, so the
// next Set with the same value is seen as a change.
func (s *Store) restoreLocked(key string, previous any, had bool) {
	if had {
		s.values[key] = previous
		return
	}
	delete(s.values, key)
}

func (s *Store) saveLocked() error {
	version, hadVersion := s.values[VersionKey]
	s.values[VersionKey] = float64(CurrentVersion)
	if err := s.writeLocked(); err != nil {
		s.restoreLocked(VersionKey, version, hadVersion)
		return err
	}
	return nil
}

func (s *Store) writeLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("prepare settings directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// normalize round-trips value through JSON so stored values compare equal
// to what a reload from disk would produce.
func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
