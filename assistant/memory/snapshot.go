package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wilfredeveloper/mypa/assistant/contract"
)

// snapshot is the persisted wire form of a Store. Timestamps are truncated
// to whole seconds so round-trips are stable across encoders.
type snapshot struct {
	SessionID     string                          `json:"session_id"`
	Capacity      int                             `json:"capacity"`
	TTLSeconds    int64                           `json:"ttl_seconds"`
	CreatedAt     time.Time                       `json:"created_at"`
	LastCleanup   time.Time                       `json:"last_cleanup"`
	Entities      map[string]*Entity              `json:"entities"`
	ByType        map[EntityType][]string         `json:"entities_by_type"`
	Executions    map[string]*ToolExecutionRecord `json:"executions"`
	ByTool        map[string][]string             `json:"executions_by_tool"`
	Chronological []string                        `json:"chronological"`
}

// Snapshot serializes the full store state to JSON.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		SessionID:     s.sessionID,
		Capacity:      s.capacity,
		TTLSeconds:    int64(s.ttl.Seconds()),
		CreatedAt:     s.createdAt.Truncate(time.Second),
		LastCleanup:   s.lastCleanup.Truncate(time.Second),
		Entities:      make(map[string]*Entity, len(s.entities)),
		ByType:        s.byType,
		Executions:    make(map[string]*ToolExecutionRecord, len(s.executions)),
		ByTool:        s.byTool,
		Chronological: s.chronological,
	}
	for key, entity := range s.entities {
		e := *entity
		e.CreatedAt = e.CreatedAt.Truncate(time.Second)
		e.LastAccessed = e.LastAccessed.Truncate(time.Second)
		snap.Entities[key] = &e
	}
	for id, record := range s.executions {
		r := *record
		r.Timestamp = r.Timestamp.Truncate(time.Second)
		snap.Executions[id] = &r
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal memory snapshot: %w", err)
	}
	return payload, nil
}

// RestoreStore rebuilds a store from snapshot bytes. A corrupt payload is
// treated like a missing one: the session starts over with empty memory
// rather than failing the orchestration.
func RestoreStore(sessionID string, payload []byte, opts ...StoreOption) *Store {
	store := NewStore(sessionID, opts...)

	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("memory snapshot corrupt, starting with empty store")
		return store
	}
	if snap.SessionID != "" && snap.SessionID != sessionID {
		log.Warn().Str("session_id", sessionID).Str("snapshot_session", snap.SessionID).Msg("memory snapshot belongs to another session, starting with empty store")
		return store
	}

	if snap.Capacity > 0 {
		store.capacity = snap.Capacity
	}
	if snap.TTLSeconds > 0 {
		store.ttl = time.Duration(snap.TTLSeconds) * time.Second
	}
	if !snap.CreatedAt.IsZero() {
		store.createdAt = snap.CreatedAt
	}
	if !snap.LastCleanup.IsZero() {
		store.lastCleanup = snap.LastCleanup
	}
	if snap.Entities != nil {
		store.entities = snap.Entities
	}
	if snap.Executions != nil {
		store.executions = snap.Executions
	}

	// Indexes are rebuilt from the primary maps so a truncated or
	// hand-edited snapshot cannot leave dangling keys.
	store.byType = make(map[EntityType][]string)
	for key, entity := range store.entities {
		store.byType[entity.Type] = append(store.byType[entity.Type], key)
	}
	store.byTool = make(map[string][]string)
	store.chronological = store.chronological[:0]
	for _, id := range snap.Chronological {
		record, ok := store.executions[id]
		if !ok {
			continue
		}
		store.byTool[record.Tool] = append(store.byTool[record.Tool], id)
		store.chronological = append(store.chronological, id)
	}

	return store
}

// Save persists the store snapshot through the blob store.
func (s *Store) Save(ctx context.Context, blobs contract.BlobStore) error {
	payload, err := s.Snapshot()
	if err != nil {
		return err
	}
	if err := blobs.Put(ctx, s.sessionID, payload); err != nil {
		return fmt.Errorf("save memory for session %q: %w", s.sessionID, err)
	}
	return nil
}

// Load fetches and restores a session's store from the blob store. A missing
// or unreadable snapshot yields a fresh empty store.
func Load(ctx context.Context, blobs contract.BlobStore, sessionID string, opts ...StoreOption) *Store {
	payload, err := blobs.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, contract.ErrBlobNotFound) {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("memory snapshot unavailable, starting with empty store")
		}
		return NewStore(sessionID, opts...)
	}
	return RestoreStore(sessionID, payload, opts...)
}
