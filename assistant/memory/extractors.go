package memory

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"time"
)

// Extractor turns a raw tool result into structured entities. Extractors are
// stateless; the store consults them in registration order and the first one
// that can handle a result wins.
type Extractor interface {
	CanExtract(tool string, result map[string]any) bool
	ExtractEntities(tool string, result map[string]any, now time.Time) []*Entity
}

func resultPayload(result map[string]any) map[string]any {
	payload, _ := result["result"].(map[string]any)
	return payload
}

func resultSucceeded(result map[string]any) bool {
	ok, _ := result["success"].(bool)
	return ok
}

// CalendarExtractor reads Google Calendar tool results, in both the list
// shape ("events") and the single-item shape ("event").
type CalendarExtractor struct{}

func (CalendarExtractor) CanExtract(tool string, result map[string]any) bool {
	if tool != "google_calendar" || !resultSucceeded(result) {
		return false
	}
	payload := resultPayload(result)
	if payload == nil {
		return false
	}
	_, hasList := payload["events"]
	_, hasSingle := payload["event"]
	return hasList || hasSingle
}

func (CalendarExtractor) ExtractEntities(tool string, result map[string]any, now time.Time) []*Entity {
	payload := resultPayload(result)
	if payload == nil {
		return nil
	}

	var raw []any
	if list, ok := payload["events"].([]any); ok {
		raw = list
	} else if single, ok := payload["event"].(map[string]any); ok {
		raw = []any{single}
	}

	entities := make([]*Entity, 0, len(raw))
	for _, item := range raw {
		event, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := stringField(event, "id")
		if id == "" {
			continue
		}
		summary := stringField(event, "summary")
		if summary == "" {
			summary = "Untitled Event"
		}
		entities = append(entities, &Entity{
			ID:          id,
			Type:        EntityCalendarEvent,
			DisplayName: summary,
			Data: map[string]any{
				"summary":   summary,
				"start":     event["start"],
				"end":       event["end"],
				"location":  stringField(event, "location"),
				"attendees": event["attendees"],
				"html_link": stringField(event, "htmlLink"),
			},
			CreatedAt:    now.UTC(),
			LastAccessed: now.UTC(),
			SourceTool:   tool,
			Confidence:   1.0,
		})
	}
	return entities
}

var addressPattern = regexp.MustCompile(`^\s*(?:"?([^"<]*)"?\s*)?<([^>]+)>\s*$`)

// parseAddress splits an RFC-style "Name <addr>" header value. A bare
// address yields an empty name.
func parseAddress(value string) (name, addr string) {
	if m := addressPattern.FindStringSubmatch(value); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return "", strings.TrimSpace(value)
}

// MailExtractor reads Gmail tool results, producing an email entity per
// message plus contact entities for every sender and recipient it can parse.
type MailExtractor struct{}

func (MailExtractor) CanExtract(tool string, result map[string]any) bool {
	if tool != "gmail" || !resultSucceeded(result) {
		return false
	}
	payload := resultPayload(result)
	if payload == nil {
		return false
	}
	_, hasList := payload["messages"]
	_, hasSingle := payload["message"]
	return hasList || hasSingle
}

func (MailExtractor) ExtractEntities(tool string, result map[string]any, now time.Time) []*Entity {
	payload := resultPayload(result)
	if payload == nil {
		return nil
	}

	var raw []any
	if list, ok := payload["messages"].([]any); ok {
		raw = list
	} else if single, ok := payload["message"].(map[string]any); ok {
		raw = []any{single}
	}

	var entities []*Entity
	seenContacts := make(map[string]bool)
	for _, item := range raw {
		message, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := stringField(message, "id")
		if id == "" {
			continue
		}
		subject := stringField(message, "subject")
		if subject == "" {
			subject = "(no subject)"
		}
		entities = append(entities, &Entity{
			ID:          id,
			Type:        EntityEmail,
			DisplayName: "Email: " + subject,
			Data: map[string]any{
				"subject":   subject,
				"from":      stringField(message, "from"),
				"to":        stringField(message, "to"),
				"date":      stringField(message, "date"),
				"snippet":   stringField(message, "snippet"),
				"thread_id": stringField(message, "threadId"),
			},
			CreatedAt:    now.UTC(),
			LastAccessed: now.UTC(),
			SourceTool:   tool,
			Confidence:   1.0,
		})

		for _, header := range []string{"from", "to", "cc"} {
			value := stringField(message, header)
			if value == "" {
				continue
			}
			for _, part := range strings.Split(value, ",") {
				name, addr := parseAddress(part)
				if addr == "" || !strings.Contains(addr, "@") {
					continue
				}
				addr = strings.ToLower(addr)
				if seenContacts[addr] {
					continue
				}
				seenContacts[addr] = true

				display := addr
				if name != "" {
					display = fmt.Sprintf("%s (%s)", name, addr)
				}
				entities = append(entities, &Entity{
					ID:          addr,
					Type:        EntityContact,
					DisplayName: display,
					Data: map[string]any{
						"name":  name,
						"email": addr,
					},
					CreatedAt:    now.UTC(),
					LastAccessed: now.UTC(),
					SourceTool:   tool,
					Confidence:   0.9,
				})
			}
		}
	}
	return entities
}

// SearchExtractor reads web search tool results. Search hits carry no
// natural id, so a stable one is derived by hashing the query, url and
// result position together.
type SearchExtractor struct{}

func (SearchExtractor) CanExtract(tool string, result map[string]any) bool {
	if tool != "tavily_search" || !resultSucceeded(result) {
		return false
	}
	payload := resultPayload(result)
	if payload == nil {
		return false
	}
	_, ok := payload["results"]
	return ok
}

func (SearchExtractor) ExtractEntities(tool string, result map[string]any, now time.Time) []*Entity {
	payload := resultPayload(result)
	if payload == nil {
		return nil
	}
	query := stringField(payload, "query")
	raw, _ := payload["results"].([]any)

	entities := make([]*Entity, 0, len(raw))
	for i, item := range raw {
		hit, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title := stringField(hit, "title")
		url := stringField(hit, "url")
		if title == "" || url == "" {
			continue
		}
		entities = append(entities, &Entity{
			ID:          searchResultID(query, url, i),
			Type:        EntitySearchResult,
			DisplayName: title,
			Data: map[string]any{
				"title":          title,
				"url":            url,
				"content":        stringField(hit, "content"),
				"score":          hit["score"],
				"published_date": stringField(hit, "published_date"),
				"query":          query,
				"result_index":   i,
			},
			CreatedAt:    now.UTC(),
			LastAccessed: now.UTC(),
			SourceTool:   tool,
			Confidence:   0.8,
		})
	}
	return entities
}

func searchResultID(query, url string, position int) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", query, url, position)
	return fmt.Sprintf("search_%016x", h.Sum64())
}

// DefaultExtractors returns the built-in extractor chain in precedence order.
func DefaultExtractors() []Extractor {
	return []Extractor{CalendarExtractor{}, MailExtractor{}, SearchExtractor{}}
}
