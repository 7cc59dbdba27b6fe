// Package workspace keeps the working files a task accumulates while its
// plan executes: the live plan checklist, gathered research, and the final
// deliverable.
package workspace

import (
	"context"
	"fmt"
	"sort"
	"sync"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
)

// MemoryStore is the in-process WorkspaceStore used in tests and in
// single-node deployments without Postgres.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string]map[string]string
}

var _ contractx.WorkspaceStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]map[string]string)}
}

func (s *MemoryStore) Create(_ context.Context, taskID, name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.files[taskID]
	if !ok {
		task = make(map[string]string)
		s.files[taskID] = task
	}
	task[name] = content
	return nil
}

func (s *MemoryStore) Read(_ context.Context, taskID, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.files[taskID][name]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", contractx.ErrFileNotFound, taskID, name)
	}
	return content, nil
}

func (s *MemoryStore) Update(_ context.Context, taskID, name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[taskID][name]; !ok {
		return fmt.Errorf("%w: %s/%s", contractx.ErrFileNotFound, taskID, name)
	}
	s.files[taskID][name] = content
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, taskID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[taskID][name]; !ok {
		return fmt.Errorf("%w: %s/%s", contractx.ErrFileNotFound, taskID, name)
	}
	delete(s.files[taskID], name)
	return nil
}

func (s *MemoryStore) List(_ context.Context, taskID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.files[taskID]))
	for name := range s.files[taskID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
