// ABOUTME: REST API handlers for conversation and message resources
// ABOUTME: Read endpoints hit the store directly; writes route through the processor

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/attendhq/convo-gateway/internal/event"
	"github.com/attendhq/convo-gateway/internal/store"
)

// conversationJSON is the wire form of a conversation. LastMessageAt is
// null until the first message lands.
type conversationJSON struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
	LastMessageAt *string `json:"last_message_at"`
}

type conversationDetailJSON struct {
	conversationJSON
	Messages []messageJSON `json:"messages"`
}

type messageJSON struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Direction      string `json:"direction"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
}

func toConversationJSON(c *store.Conversation) conversationJSON {
	out := conversationJSON{
		ID:        c.ID,
		Status:    c.Status,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if c.LastMessageAt != nil {
		s := c.LastMessageAt.UTC().Format(time.RFC3339Nano)
		out.LastMessageAt = &s
	}
	return out
}

func toMessageJSON(m *store.Message) messageJSON {
	return messageJSON{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Direction:      m.Direction,
		Content:        m.Content,
		Timestamp:      m.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.store.ListConversations(r.Context())
	if err != nil {
		s.logger.Error("listing conversations", "error", err)
		sendDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]conversationJSON, 0, len(convs))
	for _, c := range convs {
		out = append(out, toConversationJSON(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetConversation returns the conversation with its full message
// history, messages ordered by timestamp.
func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conv, err := s.store.GetConversation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		sendDetail(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("fetching conversation", "id", id, "error", err)
		sendDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	msgs, err := s.store.GetMessages(r.Context(), id)
	if err != nil {
		s.logger.Error("fetching messages", "conversation_id", id, "error", err)
		sendDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	detail := conversationDetailJSON{
		conversationJSON: toConversationJSON(conv),
		Messages:         make([]messageJSON, 0, len(msgs)),
	}
	for _, m := range msgs {
		detail.Messages = append(detail.Messages, toMessageJSON(m))
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleDeleteConversation removes an empty conversation. Conversations
// that still hold messages cannot be deleted.
func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.store.DeleteConversation(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		sendDetail(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, store.ErrConversationHasMessages):
		sendDetail(w, http.StatusConflict, "conversation has messages and cannot be deleted")
	case err != nil:
		s.logger.Error("deleting conversation", "id", id, "error", err)
		sendDetail(w, http.StatusInternalServerError, "internal server error")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	convID := r.URL.Query().Get("conversation_id")
	if convID == "" {
		sendDetail(w, http.StatusBadRequest, "conversation_id query parameter is required")
		return
	}

	if _, err := s.store.GetConversation(r.Context(), convID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendDetail(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("fetching conversation", "id", convID, "error", err)
		sendDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	msgs, err := s.store.GetMessages(r.Context(), convID)
	if err != nil {
		s.logger.Error("fetching messages", "conversation_id", convID, "error", err)
		sendDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageJSON(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	msg, err := s.store.GetMessage(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		sendDetail(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		s.logger.Error("fetching message", "id", id, "error", err)
		sendDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toMessageJSON(msg))
}

// createMessageRequest accepts an optional id and timestamp; when absent
// they are generated server-side.
type createMessageRequest struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Direction      string `json:"direction"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
}

// handleCreateMessage posts a message directly, outside the webhook
// flow. It goes through the processor so the same validation, locking,
// and fanout apply.
func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	} else {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			sendDetail(w, http.StatusBadRequest, "invalid ids, message and conversation ids must be valid UUIDs")
			return
		}
		req.ID = parsed.String()
	}

	ts := time.Now().UTC()
	if req.Timestamp != "" {
		parsed, err := event.ParseTimestamp(req.Timestamp)
		if err != nil {
			sendDetail(w, http.StatusBadRequest, "invalid timestamp format, use ISO 8601")
			return
		}
		ts = parsed
	}

	ev := &event.Event{
		Kind:      event.KindNewMessage,
		Timestamp: ts,
		Data: map[string]any{
			"id":              req.ID,
			"conversation_id": req.ConversationID,
			"direction":       req.Direction,
			"content":         req.Content,
		},
	}

	if _, perr := s.processor.Process(r.Context(), ev); perr != nil {
		sendDetail(w, errorStatus(perr), perr.Detail)
		return
	}

	msg, err := s.store.GetMessage(r.Context(), req.ID)
	if err != nil {
		s.logger.Error("fetching created message", "id", req.ID, "error", err)
		sendDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, toMessageJSON(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
