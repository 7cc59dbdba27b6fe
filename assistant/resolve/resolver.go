// Package resolve maps vague user references ("that meeting", "the email
// from Grace") onto concrete entities remembered by the session store, so
// tools receive real ids instead of guesses.
package resolve

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wilfredeveloper/mypa/assistant/memory"
)

// Strategy names how a reference was resolved.
type Strategy string

const (
	StrategyExplicit     Strategy = "explicit_id"
	StrategyDeictic      Strategy = "deictic"
	StrategyReference    Strategy = "reference_match"
	StrategyTokenOverlap Strategy = "token_overlap"
)

// Resolution is the outcome of resolving one reference.
type Resolution struct {
	Entity     *memory.Entity
	Strategy   Strategy
	Confidence float64
}

// Resolver resolves references against one session's memory store.
type Resolver struct {
	store *memory.Store
}

func New(store *memory.Store) *Resolver {
	return &Resolver{store: store}
}

// paramBinding describes one tool parameter that carries an entity id.
type paramBinding struct {
	param string
	typ   memory.EntityType
}

// toolBindings maps each tool to the id-carrying parameters the resolver may
// fill in. Parameters not listed here are never touched.
var toolBindings = map[string][]paramBinding{
	"google_calendar": {{param: "event_id", typ: memory.EntityCalendarEvent}},
	"gmail": {
		{param: "message_id", typ: memory.EntityEmail},
		{param: "contact_email", typ: memory.EntityContact},
	},
	"google_drive": {{param: "document_id", typ: memory.EntityDocument}},
}

var deicticPronouns = map[string]bool{
	"it": true, "that": true, "this": true, "that one": true, "this one": true,
}

var deicticNouns = map[string]bool{
	"event": true, "meeting": true, "appointment": true, "email": true,
	"message": true, "contact": true, "document": true, "file": true,
	"task": true, "result": true,
}

// isDeictic reports whether a reference points at context rather than naming
// anything ("it", "that meeting", "the email"). Deictic markers count
// anywhere inside the phrase, so an action prefix like "delete the event" or
// "cancel it" is still deictic.
func isDeictic(ref string) bool {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if deicticPronouns[ref] {
		return true
	}

	words := strings.Fields(ref)
	for i := range words {
		words[i] = strings.Trim(words[i], ".,!?;:'\"()")
	}
	if len(words) == 2 && deicticPronouns[words[1]] {
		return true
	}
	for i := 0; i+1 < len(words); i++ {
		det := words[i]
		if (det == "the" || det == "that" || det == "this" || det == "my") && deicticNouns[words[i+1]] {
			return true
		}
	}
	return false
}

// ResolveReference resolves a single user reference to an entity of the
// expected type. It returns nil when nothing matches unambiguously; the
// resolver never fabricates an id.
func (r *Resolver) ResolveReference(ref string, expected memory.EntityType) *Resolution {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}

	// A purely deictic reference resolves only when memory holds exactly
	// one candidate of the expected type. Two candidates is ambiguity, not
	// a coin flip.
	if isDeictic(ref) {
		candidates := r.store.GetRecentEntities(expected, 2)
		if len(candidates) == 1 {
			return &Resolution{Entity: candidates[0], Strategy: StrategyDeictic, Confidence: 0.9}
		}
		return nil
	}

	if matches := r.store.FindEntitiesByReference(ref, expected); len(matches) > 0 {
		return &Resolution{Entity: matches[0], Strategy: StrategyReference, Confidence: 0.8}
	}

	if entity := r.bestTokenOverlap(ref, expected); entity != nil {
		return &Resolution{Entity: entity, Strategy: StrategyTokenOverlap, Confidence: 0.6}
	}

	return nil
}

// bestTokenOverlap compares significant words of the reference against
// significant words of each candidate's display name.
func (r *Resolver) bestTokenOverlap(ref string, expected memory.EntityType) *memory.Entity {
	refTokens := significantTokens(ref)
	if len(refTokens) == 0 {
		return nil
	}

	var best *memory.Entity
	bestOverlap := 0
	for _, entity := range r.store.GetRecentEntities(expected, 0) {
		overlap := 0
		for token := range significantTokens(entity.DisplayName) {
			if refTokens[token] {
				overlap++
			}
		}
		if overlap > bestOverlap {
			best = entity
			bestOverlap = overlap
		}
	}
	return best
}

func significantTokens(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.Trim(word, ".,!?;:'\"()")
		if len(word) > 3 {
			tokens[word] = true
		}
	}
	return tokens
}

// EnhanceToolParameters fills missing id parameters for a tool call by
// resolving references found in the user message. Parameters the caller set
// explicitly are never overwritten. The returned map is a copy; resolution
// provenance is attached under "_context_info" for the caller to log or
// surface, and downstream tools ignore it.
func (r *Resolver) EnhanceToolParameters(tool string, params map[string]any, userMessage string) map[string]any {
	enhanced := make(map[string]any, len(params)+1)
	for k, v := range params {
		enhanced[k] = v
	}

	bindings, ok := toolBindings[tool]
	if !ok {
		return enhanced
	}

	var provenance []map[string]any
	for _, binding := range bindings {
		existing, present := enhanced[binding.param]
		if present {
			s, isStr := existing.(string)
			// Anything that is not a string we leave alone, and a
			// single-token string is treated as an explicit id. Only a
			// blank or a multi-word phrase gets resolved.
			if !isStr {
				continue
			}
			trimmed := strings.TrimSpace(s)
			if trimmed != "" && !strings.ContainsAny(trimmed, " \t") {
				continue
			}
		}

		// The reference is the phrase sitting in the id slot when there
		// is one, otherwise the whole user message.
		ref := userMessage
		if s, ok := params[binding.param].(string); ok && strings.TrimSpace(s) != "" {
			ref = s
		}

		resolution := r.ResolveReference(ref, binding.typ)
		if resolution == nil {
			continue
		}

		enhanced[binding.param] = resolution.Entity.ID
		provenance = append(provenance, map[string]any{
			"parameter":  binding.param,
			"entity":     resolution.Entity.Key(),
			"display":    resolution.Entity.DisplayName,
			"strategy":   string(resolution.Strategy),
			"confidence": resolution.Confidence,
		})
		log.Debug().
			Str("tool", tool).
			Str("parameter", binding.param).
			Str("entity", resolution.Entity.Key()).
			Str("strategy", string(resolution.Strategy)).
			Msg("resolved reference for tool parameter")
	}

	if len(provenance) > 0 {
		enhanced["_context_info"] = provenance
	}
	return enhanced
}

// ConfirmationMessage builds a human confirmation for a destructive call,
// tying the target entity back to the execution that created it.
func (r *Resolver) ConfirmationMessage(tool, action string, params map[string]any) string {
	bindings, ok := toolBindings[tool]
	if !ok {
		return fmt.Sprintf("About to %s via %s.", action, tool)
	}

	for _, binding := range bindings {
		id, ok := params[binding.param].(string)
		if !ok || strings.TrimSpace(id) == "" {
			continue
		}
		entity, found := r.store.GetEntity(binding.typ, id)
		if !found {
			continue
		}

		msg := fmt.Sprintf("About to %s %q", action, entity.DisplayName)
		if record, ok := r.store.EntityCreationContext(binding.typ, id); ok {
			msg += fmt.Sprintf(" (from %s)", record.Summary())
		}
		return msg + "."
	}
	return fmt.Sprintf("About to %s via %s.", action, tool)
}
