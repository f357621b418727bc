package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore persists run records as one JSON file per run under a directory.
// Suitable for single-process deployments and local development.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("run store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Create allocates a new run record with the given topic.
func (s *FileStore) Create(_ context.Context, id, topic string) (*RunState, error) {
	if id == "" {
		return nil, fmt.Errorf("run id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(id)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("run %s already exists", id)
	}

	now := time.Now()
	run := &RunState{
		ID:        id,
		Topic:     topic,
		Status:    "created",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(path, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Get returns the run record, or ErrNotFound.
func (s *FileStore) Get(_ context.Context, id string) (*RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(s.path(id))
}

// Update applies mutate to the current record and persists the result.
func (s *FileStore) Update(_ context.Context, id string, mutate func(*RunState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(id)
	run, err := s.read(path)
	if err != nil {
		return err
	}

	mutate(run)
	run.UpdatedAt = time.Now()
	return s.write(path, run)
}

// List returns all runs ordered most-recently-updated first.
func (s *FileStore) List(_ context.Context) ([]*RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read run store directory: %w", err)
	}

	runs := make([]*RunState, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		run, err := s.read(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].UpdatedAt.After(runs[j].UpdatedAt)
	})
	return runs, nil
}

func (s *FileStore) path(id string) string {
	// Run ids are UUIDs; replace separators defensively anyway.
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '.' {
			return '-'
		}
		return r
	}, id)
	return filepath.Join(s.dir, safe+".json")
}

func (s *FileStore) read(path string) (*RunState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read run: %w", err)
	}

	var run RunState
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &run, nil
}

// write persists via a temp file and atomic rename so a crash mid-write
// never leaves a truncated record behind.
func (s *FileStore) write(path string, run *RunState) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename run: %w", err)
	}
	return nil
}
