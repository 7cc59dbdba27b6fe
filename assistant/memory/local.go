package memory

import (
	"context"
	"fmt"
	"sync"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
)

// LocalBlobStore keeps snapshots in process memory. Sessions do not survive
// a restart; use UpstashRedisStore when persistence matters.
type LocalBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewLocalBlobStore() *LocalBlobStore {
	return &LocalBlobStore{blobs: make(map[string][]byte)}
}

func (s *LocalBlobStore) Get(_ context.Context, sessionID string) ([]byte, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", contractx.ErrBlobNotFound, sessionID)
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

func (s *LocalBlobStore) Put(_ context.Context, sessionID string, blob []byte) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(blob))
	copy(stored, blob)
	s.blobs[sessionID] = stored
	return nil
}

func (s *LocalBlobStore) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, sessionID)
	return nil
}
