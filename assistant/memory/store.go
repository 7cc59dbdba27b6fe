package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultCapacity bounds how many entities a session may hold before
	// the least recently accessed ones are evicted.
	DefaultCapacity = 50

	// DefaultTTL is how long an entity may sit unaccessed before cleanup
	// removes it.
	DefaultTTL = 60 * time.Minute
)

// Store is the per-session entity and tool-execution memory. All methods are
// safe for concurrent use.
type Store struct {
	mu sync.Mutex

	sessionID string
	capacity  int
	ttl       time.Duration
	now       func() time.Time

	entities map[string]*Entity
	byType   map[EntityType][]string

	executions    map[string]*ToolExecutionRecord
	byTool        map[string][]string
	chronological []string

	extractors []Extractor

	createdAt   time.Time
	lastCleanup time.Time
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithCapacity overrides the entity capacity. Non-positive values are ignored.
func WithCapacity(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithTTL overrides the idle-entity lifetime. Non-positive values are ignored.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithExtractors replaces the extractor chain.
func WithExtractors(extractors ...Extractor) StoreOption {
	return func(s *Store) {
		s.extractors = extractors
	}
}

// NewStore creates an empty store for the given session.
func NewStore(sessionID string, opts ...StoreOption) *Store {
	s := &Store{
		sessionID:  sessionID,
		capacity:   DefaultCapacity,
		ttl:        DefaultTTL,
		now:        time.Now,
		entities:   make(map[string]*Entity),
		byType:     make(map[EntityType][]string),
		executions: make(map[string]*ToolExecutionRecord),
		byTool:     make(map[string][]string),
		extractors: DefaultExtractors(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.createdAt = s.now().UTC()
	s.lastCleanup = s.createdAt
	return s
}

// SessionID returns the session this store belongs to.
func (s *Store) SessionID() string { return s.sessionID }

// Capacity returns the configured entity capacity.
func (s *Store) Capacity() int { return s.capacity }

// Len returns the number of live entities.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

// StoreEntity inserts the entity, or merges it into an existing one with the
// same type and id. Merging unions the data fields (incoming values win) and
// refreshes access metadata; identity fields are never changed.
func (s *Store) StoreEntity(e *Entity) *Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeEntityLocked(e)
}

func (s *Store) storeEntityLocked(e *Entity) *Entity {
	now := s.now().UTC()
	key := e.Key()

	if existing, ok := s.entities[key]; ok {
		if existing.Data == nil {
			existing.Data = make(map[string]any, len(e.Data))
		}
		for k, v := range e.Data {
			existing.Data[k] = v
		}
		if e.DisplayName != "" {
			existing.DisplayName = e.DisplayName
		}
		for _, ref := range e.UserReferences {
			existing.AddUserReference(ref)
		}
		if e.Confidence > existing.Confidence {
			existing.Confidence = e.Confidence
		}
		existing.Touch(now)
		return existing
	}

	stored := *e
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.LastAccessed = now
	s.entities[key] = &stored
	s.byType[stored.Type] = append(s.byType[stored.Type], key)

	if len(s.entities) > s.capacity {
		s.evictLocked()
	}
	return s.entities[key]
}

// evictLocked trims the store back to capacity, dropping the least recently
// accessed entities first.
func (s *Store) evictLocked() {
	excess := len(s.entities) - s.capacity
	if excess <= 0 {
		return
	}

	keys := make([]string, 0, len(s.entities))
	for key := range s.entities {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return s.entities[keys[i]].LastAccessed.Before(s.entities[keys[j]].LastAccessed)
	})

	for _, key := range keys[:excess] {
		s.removeEntityLocked(key)
	}
	log.Debug().Str("session_id", s.sessionID).Int("evicted", excess).Msg("entity store evicted least recently used entities")
}

func (s *Store) removeEntityLocked(key string) {
	entity, ok := s.entities[key]
	if !ok {
		return
	}
	delete(s.entities, key)

	keys := s.byType[entity.Type]
	for i, k := range keys {
		if k == key {
			s.byType[entity.Type] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	if len(s.byType[entity.Type]) == 0 {
		delete(s.byType, entity.Type)
	}
}

// GetEntity looks up an entity by type and id, marking it accessed.
func (s *Store) GetEntity(typ EntityType, id string) (*Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[entityKey(typ, id)]
	if !ok {
		return nil, false
	}
	entity.Touch(s.now().UTC())
	return entity, true
}

// FindEntitiesByReference returns entities whose match predicate accepts the
// reference, most frequently and most recently accessed first. An empty typ
// matches all types.
func (s *Store) FindEntitiesByReference(ref string, typ EntityType) []*Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []*Entity
	for _, entity := range s.entities {
		if typ != "" && entity.Type != typ {
			continue
		}
		if entity.MatchesReference(ref) {
			matches = append(matches, entity)
		}
	}
	sortByRelevance(matches)
	return matches
}

// GetRecentEntities returns up to limit entities of the given type, most
// recently accessed first. An empty typ matches all types.
func (s *Store) GetRecentEntities(typ EntityType, limit int) []*Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Entity
	for _, entity := range s.entities {
		if typ != "" && entity.Type != typ {
			continue
		}
		out = append(out, entity)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAccessed.After(out[j].LastAccessed)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortByRelevance(entities []*Entity) {
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].AccessCount != entities[j].AccessCount {
			return entities[i].AccessCount > entities[j].AccessCount
		}
		return entities[i].LastAccessed.After(entities[j].LastAccessed)
	})
}

// ProcessToolResult runs the extractor chain over a raw tool result and
// stores whatever the first capable extractor produces.
func (s *Store) ProcessToolResult(tool string, result map[string]any) []*Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processToolResultLocked(tool, result)
}

func (s *Store) processToolResultLocked(tool string, result map[string]any) []*Entity {
	now := s.now().UTC()
	for _, extractor := range s.extractors {
		if !extractor.CanExtract(tool, result) {
			continue
		}
		extracted := extractor.ExtractEntities(tool, result, now)
		stored := make([]*Entity, 0, len(extracted))
		for _, e := range extracted {
			stored = append(stored, s.storeEntityLocked(e))
		}
		if len(stored) > 0 {
			log.Debug().Str("session_id", s.sessionID).Str("tool", tool).Int("entities", len(stored)).Msg("extracted entities from tool result")
		}
		return stored
	}
	return nil
}

// ProcessToolExecution records a tool call in the audit trail, extracts
// entities from its result when it succeeded, and links the two atomically.
func (s *Store) ProcessToolExecution(tool, userRequest, intent string, params, result map[string]any, duration time.Duration, success bool, errMsg string) *ToolExecutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &ToolExecutionRecord{
		ID:          uuid.NewString(),
		Tool:        tool,
		UserRequest: userRequest,
		Intent:      intent,
		Parameters:  cloneMap(params),
		RawResult:   cloneMap(result),
		Success:     success,
		Error:       errMsg,
		DurationMs:  duration.Milliseconds(),
		Timestamp:   s.now().UTC(),
	}

	if success {
		for _, entity := range s.processToolResultLocked(tool, result) {
			record.AddExtractedEntity(entity.Key())
		}
	}

	s.executions[record.ID] = record
	s.byTool[tool] = append(s.byTool[tool], record.ID)
	s.chronological = append(s.chronological, record.ID)

	if max := 2 * s.capacity; len(s.chronological) > max {
		for _, id := range s.chronological[:len(s.chronological)-max] {
			s.removeExecutionLocked(id)
		}
		s.chronological = append([]string(nil), s.chronological[len(s.chronological)-max:]...)
	}
	return record
}

func (s *Store) removeExecutionLocked(id string) {
	record, ok := s.executions[id]
	if !ok {
		return
	}
	delete(s.executions, id)

	ids := s.byTool[record.Tool]
	for i, existing := range ids {
		if existing == id {
			s.byTool[record.Tool] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byTool[record.Tool]) == 0 {
		delete(s.byTool, record.Tool)
	}
}

// GetToolExecution looks up an execution record by id.
func (s *Store) GetToolExecution(id string) (*ToolExecutionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.executions[id]
	return record, ok
}

// RecentExecutions returns up to limit execution records, newest first,
// optionally filtered to one tool.
func (s *Store) RecentExecutions(tool string, limit int) []*ToolExecutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	if tool != "" {
		ids = s.byTool[tool]
	} else {
		ids = s.chronological
	}

	out := make([]*ToolExecutionRecord, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if record, ok := s.executions[ids[i]]; ok {
			out = append(out, record)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// FindExecutions returns every record matching the query, newest first.
func (s *Store) FindExecutions(q ExecutionQuery) []*ToolExecutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var out []*ToolExecutionRecord
	for i := len(s.chronological) - 1; i >= 0; i-- {
		record, ok := s.executions[s.chronological[i]]
		if !ok {
			continue
		}
		if q.Matches(record, now) {
			out = append(out, record)
		}
	}
	return out
}

// EntityCreationContext returns the execution record that created or last
// updated the given entity, if still retained.
func (s *Store) EntityCreationContext(typ EntityType, id string) (*ToolExecutionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entityKey(typ, id)
	for i := len(s.chronological) - 1; i >= 0; i-- {
		record, ok := s.executions[s.chronological[i]]
		if !ok {
			continue
		}
		for _, extracted := range record.ExtractedEntities {
			if extracted == key {
				return record, true
			}
		}
	}
	return nil, false
}

// CleanupExpired removes entities idle longer than the store TTL and returns
// how many were dropped.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var expired []string
	for key, entity := range s.entities {
		if entity.Expired(now, s.ttl) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		s.removeEntityLocked(key)
	}
	s.lastCleanup = now
	if len(expired) > 0 {
		log.Debug().Str("session_id", s.sessionID).Int("expired", len(expired)).Msg("entity store dropped expired entities")
	}
	return len(expired)
}

// ContextSummary renders a compact view of memory for prompt building.
func (s *Store) ContextSummary() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := make(map[string]int, len(s.byType))
	for typ, keys := range s.byType {
		byType[string(typ)] = len(keys)
	}

	recent := make([]string, 0, 5)
	entities := make([]*Entity, 0, len(s.entities))
	for _, entity := range s.entities {
		entities = append(entities, entity)
	}
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].LastAccessed.After(entities[j].LastAccessed)
	})
	for _, entity := range entities {
		recent = append(recent, string(entity.Type)+": "+entity.DisplayName)
		if len(recent) == 5 {
			break
		}
	}

	return map[string]any{
		"session_id":       s.sessionID,
		"entity_count":     len(s.entities),
		"entities_by_type": byType,
		"execution_count":  len(s.executions),
		"recent_entities":  recent,
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
