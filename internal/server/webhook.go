// ABOUTME: Webhook ingestion endpoint for conversation lifecycle events
// ABOUTME: Decodes envelopes, short-circuits duplicates, and maps outcomes to HTTP

package server

import (
	"encoding/json"
	"net/http"

	"github.com/attendhq/convo-gateway/internal/event"
)

// webhookDetail is the response body shape for every webhook reply.
type webhookDetail struct {
	Detail string `json:"detail"`
}

// handleWebhook ingests one event envelope per request. Successful
// creation events are remembered in the dedupe cache so the fast path
// can reject replays without touching the database; rejected events are
// never remembered so retries after a transient failure still work.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var env event.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		sendDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if key, ok := dedupeKey(&env); ok && s.dedupe.Seen(key) {
		s.logger.Debug("duplicate event short-circuited", "key", key)
		sendDetail(w, http.StatusConflict, duplicateDetail(event.Kind(env.Type)))
		return
	}

	ev, verr := event.Validate(&env)
	if verr != nil {
		sendDetail(w, errorStatus(verr), verr.Detail)
		return
	}

	outcome, perr := s.processor.Process(r.Context(), ev)
	if perr != nil {
		sendDetail(w, errorStatus(perr), perr.Detail)
		return
	}

	if key, ok := dedupeKey(&env); ok {
		s.dedupe.Remember(key)
	}

	sendDetail(w, outcomeStatus(outcome), outcome.String())
}

// dedupeKey derives the idempotency cache key for an envelope. Only
// creation events participate; CLOSE_CONVERSATION must remain
// idempotent with a success response on every delivery.
func dedupeKey(env *event.Envelope) (string, bool) {
	kind := event.Kind(env.Type)
	if kind != event.KindNewConversation && kind != event.KindNewMessage {
		return "", false
	}
	id, ok := env.Data["id"].(string)
	if !ok || id == "" {
		return "", false
	}
	return env.Type + ":" + id, true
}

func duplicateDetail(kind event.Kind) string {
	if kind == event.KindNewMessage {
		return "message already exists (duplicate id)"
	}
	return "conversation already exists (duplicate id)"
}

func outcomeStatus(o event.Outcome) int {
	switch o {
	case event.OutcomeConversationCreated, event.OutcomeMessageCreated:
		return http.StatusCreated
	default:
		return http.StatusOK
	}
}

func errorStatus(e *event.Error) int {
	switch e.Kind {
	case event.KindConflict:
		return http.StatusConflict
	case event.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func sendDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(webhookDetail{Detail: detail})
}
