package memory

import (
	"fmt"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEntity(typ EntityType, id, name string) *Entity {
	return &Entity{
		ID:          id,
		Type:        typ,
		DisplayName: name,
		Data:        map[string]any{},
		Confidence:  1.0,
	}
}

func TestStoreEntityMergesExisting(t *testing.T) {
	t.Parallel()

	store := NewStore("s1", WithClock(newFakeClock().Now))
	store.StoreEntity(&Entity{
		ID:          "evt-1",
		Type:        EntityCalendarEvent,
		DisplayName: "Dentist",
		Data:        map[string]any{"summary": "Dentist", "location": "Downtown"},
	})
	store.StoreEntity(&Entity{
		ID:          "evt-1",
		Type:        EntityCalendarEvent,
		DisplayName: "Dentist Appointment",
		Data:        map[string]any{"summary": "Dentist Appointment", "start": "2025-06-02T09:00:00Z"},
	})

	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}

	entity, ok := store.GetEntity(EntityCalendarEvent, "evt-1")
	if !ok {
		t.Fatal("GetEntity() did not find merged entity")
	}
	if entity.DisplayName != "Dentist Appointment" {
		t.Fatalf("DisplayName = %q, want %q", entity.DisplayName, "Dentist Appointment")
	}
	if entity.Data["location"] != "Downtown" {
		t.Fatalf("Data[location] = %v, want Downtown", entity.Data["location"])
	}
	if entity.Data["start"] != "2025-06-02T09:00:00Z" {
		t.Fatalf("Data[start] = %v, want merged start", entity.Data["start"])
	}
}

func TestStoreEntityNamespacesByType(t *testing.T) {
	t.Parallel()

	store := NewStore("s1")
	store.StoreEntity(newTestEntity(EntityContact, "shared-id", "Ada Lovelace"))
	store.StoreEntity(newTestEntity(EntityDocument, "shared-id", "Q3 Report"))

	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 distinct entities", store.Len())
	}

	contact, ok := store.GetEntity(EntityContact, "shared-id")
	if !ok || contact.DisplayName != "Ada Lovelace" {
		t.Fatalf("GetEntity(contact) = %v, %v", contact, ok)
	}
	doc, ok := store.GetEntity(EntityDocument, "shared-id")
	if !ok || doc.DisplayName != "Q3 Report" {
		t.Fatalf("GetEntity(document) = %v, %v", doc, ok)
	}
}

func TestGetEntityIncrementsAccessCount(t *testing.T) {
	t.Parallel()

	store := NewStore("s1")
	store.StoreEntity(newTestEntity(EntityContact, "c1", "Ada"))

	for i := 1; i <= 3; i++ {
		entity, ok := store.GetEntity(EntityContact, "c1")
		if !ok {
			t.Fatal("GetEntity() did not find entity")
		}
		if entity.AccessCount != i {
			t.Fatalf("AccessCount after %d lookups = %d", i, entity.AccessCount)
		}
	}
}

func TestEvictionKeepsExactlyCapacity(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore("s1", WithCapacity(5), WithClock(clock.Now))

	for i := 0; i < 8; i++ {
		store.StoreEntity(newTestEntity(EntityGeneric, fmt.Sprintf("g-%d", i), fmt.Sprintf("item %d", i)))
		clock.Advance(time.Second)
	}

	if store.Len() != 5 {
		t.Fatalf("Len() after overflow = %d, want exactly 5", store.Len())
	}

	// Oldest three were evicted, newest five survive.
	for i := 0; i < 3; i++ {
		if _, ok := store.GetEntity(EntityGeneric, fmt.Sprintf("g-%d", i)); ok {
			t.Fatalf("entity g-%d should have been evicted", i)
		}
	}
	for i := 3; i < 8; i++ {
		if _, ok := store.GetEntity(EntityGeneric, fmt.Sprintf("g-%d", i)); !ok {
			t.Fatalf("entity g-%d should have survived eviction", i)
		}
	}
}

func TestEvictionPrefersLeastRecentlyAccessed(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore("s1", WithCapacity(3), WithClock(clock.Now))

	store.StoreEntity(newTestEntity(EntityGeneric, "old", "old"))
	clock.Advance(time.Second)
	store.StoreEntity(newTestEntity(EntityGeneric, "mid", "mid"))
	clock.Advance(time.Second)
	store.StoreEntity(newTestEntity(EntityGeneric, "new", "new"))
	clock.Advance(time.Second)

	// Touching "old" makes "mid" the eviction candidate.
	if _, ok := store.GetEntity(EntityGeneric, "old"); !ok {
		t.Fatal("GetEntity(old) missing")
	}
	clock.Advance(time.Second)
	store.StoreEntity(newTestEntity(EntityGeneric, "extra", "extra"))

	if _, ok := store.GetEntity(EntityGeneric, "mid"); ok {
		t.Fatal("mid should have been evicted as least recently accessed")
	}
	if _, ok := store.GetEntity(EntityGeneric, "old"); !ok {
		t.Fatal("old was touched and should have survived")
	}
}

func TestFindEntitiesByReferenceOrdering(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore("s1", WithClock(clock.Now))

	store.StoreEntity(newTestEntity(EntityCalendarEvent, "a", "team meeting monday"))
	clock.Advance(time.Second)
	store.StoreEntity(newTestEntity(EntityCalendarEvent, "b", "team meeting friday"))
	clock.Advance(time.Second)

	// Access "b" twice so it outranks "a".
	store.GetEntity(EntityCalendarEvent, "b")
	store.GetEntity(EntityCalendarEvent, "b")

	matches := store.FindEntitiesByReference("team meeting", EntityCalendarEvent)
	if len(matches) != 2 {
		t.Fatalf("FindEntitiesByReference() returned %d matches, want 2", len(matches))
	}
	if matches[0].ID != "b" || matches[1].ID != "a" {
		t.Fatalf("match order = [%s %s], want [b a]", matches[0].ID, matches[1].ID)
	}
}

func TestFindEntitiesByReferenceFiltersType(t *testing.T) {
	t.Parallel()

	store := NewStore("s1")
	store.StoreEntity(newTestEntity(EntityCalendarEvent, "a", "project sync"))
	store.StoreEntity(newTestEntity(EntityDocument, "b", "project sync notes"))

	matches := store.FindEntitiesByReference("project sync", EntityDocument)
	if len(matches) != 1 || matches[0].ID != "b" {
		t.Fatalf("FindEntitiesByReference(document) = %v", matches)
	}
}

func TestProcessToolResultFirstExtractorWins(t *testing.T) {
	t.Parallel()

	store := NewStore("s1")
	result := map[string]any{
		"success": true,
		"result": map[string]any{
			"events": []any{
				map[string]any{"id": "evt-9", "summary": "Standup"},
			},
		},
	}

	entities := store.ProcessToolResult("google_calendar", result)
	if len(entities) != 1 {
		t.Fatalf("ProcessToolResult() = %d entities, want 1", len(entities))
	}
	if entities[0].Type != EntityCalendarEvent {
		t.Fatalf("entity type = %s, want calendar_event", entities[0].Type)
	}
}

func TestProcessToolExecutionLinksEntities(t *testing.T) {
	t.Parallel()

	store := NewStore("s1")
	result := map[string]any{
		"success": true,
		"result": map[string]any{
			"event": map[string]any{"id": "evt-1", "summary": "Dentist"},
		},
	}

	record := store.ProcessToolExecution("google_calendar", "book the dentist", "create_event",
		map[string]any{"summary": "Dentist"}, result, 120*time.Millisecond, true, "")

	if record.ID == "" {
		t.Fatal("execution record has empty id")
	}
	if len(record.ExtractedEntities) != 1 {
		t.Fatalf("ExtractedEntities = %v, want one key", record.ExtractedEntities)
	}
	if record.ExtractedEntities[0] != "calendar_event/evt-1" {
		t.Fatalf("linked key = %q", record.ExtractedEntities[0])
	}

	creator, ok := store.EntityCreationContext(EntityCalendarEvent, "evt-1")
	if !ok {
		t.Fatal("EntityCreationContext() did not find creating execution")
	}
	if creator.ID != record.ID {
		t.Fatalf("creator id = %q, want %q", creator.ID, record.ID)
	}
}

func TestProcessToolExecutionFailureExtractsNothing(t *testing.T) {
	t.Parallel()

	store := NewStore("s1")
	record := store.ProcessToolExecution("google_calendar", "book it", "create_event",
		nil, map[string]any{"success": false}, time.Millisecond, false, "quota exceeded")

	if record.Success {
		t.Fatal("record should be marked failed")
	}
	if record.Error != "quota exceeded" {
		t.Fatalf("record error = %q", record.Error)
	}
	if len(record.ExtractedEntities) != 0 {
		t.Fatalf("failed execution extracted entities: %v", record.ExtractedEntities)
	}
	if store.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", store.Len())
	}
}

func TestExecutionHistoryIsBounded(t *testing.T) {
	t.Parallel()

	store := NewStore("s1", WithCapacity(3))
	for i := 0; i < 10; i++ {
		store.ProcessToolExecution("tavily_search", fmt.Sprintf("query %d", i), "",
			nil, map[string]any{"success": false}, time.Millisecond, false, "network error")
	}

	records := store.RecentExecutions("", 0)
	if len(records) != 6 {
		t.Fatalf("retained %d executions, want 6 (twice capacity)", len(records))
	}
	if records[0].UserRequest != "query 9" {
		t.Fatalf("newest record = %q, want query 9", records[0].UserRequest)
	}
}

func TestFindExecutions(t *testing.T) {
	t.Parallel()

	store := NewStore("s1")
	store.ProcessToolExecution("gmail", "check inbox", "read_email",
		nil, map[string]any{"success": false}, time.Millisecond, false, "auth expired")
	store.ProcessToolExecution("tavily_search", "search go", "research",
		nil, map[string]any{"success": true, "result": map[string]any{"results": []any{}}}, time.Millisecond, true, "")

	failed := false
	got := store.FindExecutions(ExecutionQuery{Tool: "gmail", Success: &failed})
	if len(got) != 1 {
		t.Fatalf("FindExecutions(gmail, failed) = %d records, want 1", len(got))
	}
	if got[0].Error != "auth expired" {
		t.Fatalf("record error = %q", got[0].Error)
	}
}

func TestCleanupExpired(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore("s1", WithTTL(10*time.Minute), WithClock(clock.Now))

	store.StoreEntity(newTestEntity(EntityContact, "stale", "Stale"))
	clock.Advance(15 * time.Minute)
	store.StoreEntity(newTestEntity(EntityContact, "fresh", "Fresh"))

	removed := store.CleanupExpired()
	if removed != 1 {
		t.Fatalf("CleanupExpired() = %d, want 1", removed)
	}
	if _, ok := store.GetEntity(EntityContact, "stale"); ok {
		t.Fatal("stale entity should have been removed")
	}
	if _, ok := store.GetEntity(EntityContact, "fresh"); !ok {
		t.Fatal("fresh entity should have survived cleanup")
	}
}
