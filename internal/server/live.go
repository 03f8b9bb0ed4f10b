// ABOUTME: Live push endpoints for conversation viewers
// ABOUTME: Streams accepted messages over SSE and WebSocket via the fanout broker

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/attendhq/convo-gateway/internal/store"
)

// handleConversationEvents streams accepted messages for one
// conversation as server-sent events. Only messages accepted after the
// client connects are delivered; history comes from the REST read path.
func (s *Server) handleConversationEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.GetConversation(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendDetail(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("fetching conversation", "id", id, "error", err)
		sendDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		sendDetail(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch, subID := s.broker.Subscribe(r.Context(), id)
	defer s.broker.Unsubscribe(id, subID)

	s.writeSSEEvent(w, "subscribed", map[string]string{"conversation_id": id})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case view, ok := <-ch:
			if !ok {
				return
			}
			s.writeSSEEvent(w, "message", view)
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes one SSE frame.
func (s *Server) writeSSEEvent(w http.ResponseWriter, event string, data interface{}) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

// handleLiveWebSocket is the WebSocket counterpart of the SSE stream.
// Each accepted message is pushed as one JSON text frame.
func (s *Server) handleLiveWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.GetConversation(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendDetail(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("fetching conversation", "id", id, "error", err)
		sendDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.config.CORS.AllowedOrigins,
	})
	if err != nil {
		s.logger.Error("failed to accept WebSocket", "error", err, "conversation_id", id)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			s.logger.Debug("failed to close websocket", "error", closeErr)
		}
	}()

	// The request context is not cancelled on client disconnect once the
	// connection is hijacked, so the drain goroutine cancels for us when
	// its read fails.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, subID := s.broker.Subscribe(ctx, id)
	defer s.broker.Unsubscribe(id, subID)

	s.logger.Debug("live viewer connected", "conversation_id", id, "sub_id", subID)

	// Drain incoming frames so pings and client closes are processed.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case view, ok := <-ch:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, ws, view); err != nil {
				if websocket.CloseStatus(err) == -1 {
					s.logger.Debug("websocket write failed", "error", err)
				}
				return
			}
		}
	}
}
