package memory

import (
	"strings"
	"time"
)

// EntityType enumerates the kinds of facts the store remembers.
type EntityType string

const (
	EntityCalendarEvent EntityType = "calendar_event"
	EntityContact       EntityType = "contact"
	EntityEmail         EntityType = "email"
	EntityDocument      EntityType = "document"
	EntityPlan          EntityType = "plan"
	EntityTask          EntityType = "task"
	EntityLocation      EntityType = "location"
	EntitySearchResult  EntityType = "search_result"
	EntityGeneric       EntityType = "generic"
)

// Entity is a typed, named fact remembered across a conversation.
type Entity struct {
	ID             string         `json:"id"`
	Type           EntityType     `json:"type"`
	DisplayName    string         `json:"display_name"`
	Data           map[string]any `json:"data,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessed   time.Time      `json:"last_accessed"`
	AccessCount    int            `json:"access_count"`
	SourceTool     string         `json:"source_tool,omitempty"`
	UserReferences []string       `json:"user_references,omitempty"`
	Confidence     float64        `json:"confidence"`
}

// Key returns the store key, namespaced by type so a bare contact address
// cannot collide with an unrelated entity id.
func (e *Entity) Key() string {
	return entityKey(e.Type, e.ID)
}

func entityKey(typ EntityType, id string) string {
	return string(typ) + "/" + id
}

// Touch marks the entity as accessed.
func (e *Entity) Touch(now time.Time) {
	e.LastAccessed = now.UTC()
	e.AccessCount++
}

// AddUserReference records how the user referred to this entity.
func (e *Entity) AddUserReference(ref string) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return
	}
	for _, existing := range e.UserReferences {
		if strings.EqualFold(existing, ref) {
			return
		}
	}
	e.UserReferences = append(e.UserReferences, ref)
}

// MatchesReference reports whether a user reference plausibly names this
// entity: a display-name substring, a previously recorded user reference, or
// a type-specific data field.
func (e *Entity) MatchesReference(ref string) bool {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return false
	}

	if strings.Contains(strings.ToLower(e.DisplayName), ref) {
		return true
	}

	for _, userRef := range e.UserReferences {
		if strings.Contains(strings.ToLower(userRef), ref) {
			return true
		}
	}

	if e.Type == EntityCalendarEvent {
		if strings.Contains(strings.ToLower(stringField(e.Data, "summary")), ref) {
			return true
		}
		if loc := stringField(e.Data, "location"); loc != "" && strings.Contains(strings.ToLower(loc), ref) {
			return true
		}
	}

	return false
}

// Expired reports whether the entity has been idle longer than ttl.
func (e *Entity) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.LastAccessed) > ttl
}

func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}
