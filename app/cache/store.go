package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Store reads and writes the cache and run state documents. Writes replace
// the whole file through a temporary file and a rename.
type Store struct {
	cachePath string
	statePath string
}

func NewStore(dir, cacheFile, stateFile string) *Store {
	return &Store{
		cachePath: filepath.Join(dir, cacheFile),
		statePath: filepath.Join(dir, stateFile),
	}
}

func (s *Store) CachePath() string {
	return s.cachePath
}

func (s *Store) StatePath() string {
	return s.statePath
}

// LoadCache returns the stored cache. exists is false when there is no cache
// file yet, which is what marks a first run.
func (s *Store) LoadCache() (c Cache, exists bool, err error) {
	c = make(Cache)

	found, err := readJSON(s.cachePath, &c)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load cache: %w", err)
	}
	if c == nil {
		c = make(Cache)
	}

	slog.Debug("Cache loaded", "path", s.cachePath, "exists", found, "entries", len(c))
	return c, found, nil
}

func (s *Store) LoadState() (RunState, error) {
	var state RunState
	if _, err := readJSON(s.statePath, &state); err != nil {
		return RunState{}, fmt.Errorf("failed to load run state: %w", err)
	}
	return state, nil
}

func (s *Store) SaveCache(c Cache) error {
	if err := writeJSON(s.cachePath, c); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	return nil
}

func (s *Store) SaveState(state RunState) error {
	if err := writeJSON(s.statePath, state); err != nil {
		return fmt.Errorf("failed to save run state: %w", err)
	}
	return nil
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
