// ABOUTME: HTML views for browsing conversations and watching them live
// ABOUTME: Renders embedded templates backed by the store read path

package web

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/attendhq/convo-gateway/internal/store"
)

// Views serves the read-only HTML pages under /ui/.
type Views struct {
	store  store.Store
	logger *slog.Logger
}

// NewViews creates the HTML view handlers. Pass nil logger for default.
func NewViews(s store.Store, logger *slog.Logger) *Views {
	if logger == nil {
		logger = slog.Default()
	}
	return &Views{
		store:  s,
		logger: logger.With("component", "web"),
	}
}

// Register mounts the view routes on the router.
func (v *Views) Register(r chi.Router) {
	r.Route("/ui", func(r chi.Router) {
		r.Get("/conversations", v.renderConversationList)
		r.Get("/conversations/{id}", v.renderConversationDetail)
		r.Get("/conversations/{id}/live", v.renderLivePage)
	})
}

type conversationItem struct {
	ID            string
	Status        string
	CreatedAt     string
	LastMessageAt string
}

type conversationListData struct {
	Title         string
	Conversations []conversationItem
}

type messageItem struct {
	ID        string
	Direction string
	Content   string
	Timestamp string
}

type conversationDetailData struct {
	Title        string
	Conversation conversationItem
	Messages     []messageItem
}

type livePageData struct {
	Title          string
	ConversationID string
}

const displayTimeLayout = "2006-01-02 15:04:05 MST"

func toConversationItem(c *store.Conversation) conversationItem {
	item := conversationItem{
		ID:        c.ID,
		Status:    c.Status,
		CreatedAt: c.CreatedAt.UTC().Format(displayTimeLayout),
	}
	if c.LastMessageAt != nil {
		item.LastMessageAt = c.LastMessageAt.UTC().Format(displayTimeLayout)
	}
	return item
}

// renderConversationList renders the conversation index, most recently
// active conversations first.
func (v *Views) renderConversationList(w http.ResponseWriter, r *http.Request) {
	convs, err := v.store.ListConversations(r.Context())
	if err != nil {
		v.logger.Error("listing conversations for view", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	data := conversationListData{
		Title:         "Conversations",
		Conversations: make([]conversationItem, 0, len(convs)),
	}
	for _, c := range convs {
		data.Conversations = append(data.Conversations, toConversationItem(c))
	}

	v.render(w, "conversations.html", data)
}

// renderConversationDetail renders one conversation with its messages.
func (v *Views) renderConversationDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conv, err := v.store.GetConversation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		v.logger.Error("fetching conversation for view", "id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	msgs, err := v.store.GetMessages(r.Context(), id)
	if err != nil {
		v.logger.Error("fetching messages for view", "conversation_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	data := conversationDetailData{
		Title:        "Conversation " + id,
		Conversation: toConversationItem(conv),
		Messages:     make([]messageItem, 0, len(msgs)),
	}
	for _, m := range msgs {
		data.Messages = append(data.Messages, messageItem{
			ID:        m.ID,
			Direction: m.Direction,
			Content:   m.Content,
			Timestamp: m.Timestamp.UTC().Format(displayTimeLayout),
		})
	}

	v.render(w, "conversation_detail.html", data)
}

// renderLivePage renders the live viewer, which connects back over
// WebSocket and appends messages as they are accepted.
func (v *Views) renderLivePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := v.store.GetConversation(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		v.logger.Error("fetching conversation for live view", "id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	v.render(w, "live.html", livePageData{
		Title:          "Live: " + id,
		ConversationID: id,
	})
}

func (v *Views) render(w http.ResponseWriter, page string, data any) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+page))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		v.logger.Error("failed to render page", "page", page, "error", err)
	}
}
