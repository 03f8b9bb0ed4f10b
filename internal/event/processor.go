// ABOUTME: Event processor applying validated webhook events to the store
// ABOUTME: State machine over conversation status with per-conversation serialization

package event

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attendhq/convo-gateway/internal/fanout"
	"github.com/attendhq/convo-gateway/internal/store"
)

// lockStripes is the number of per-conversation mutex stripes.
const lockStripes = 64

// Publisher receives accepted messages for fan-out to live viewers
type Publisher interface {
	Publish(conversationID string, view fanout.MessageView)
}

// Processor applies validated events to the store, exactly once per event
// id, and publishes accepted messages to the fan-out broker. It is safe
// for concurrent use: events touching the same conversation are serialized
// on a striped mutex, and the store's message transaction re-checks status,
// so a NEW_MESSAGE racing a CLOSE_CONVERSATION can never land in a CLOSED
// conversation.
type Processor struct {
	store  store.Store
	broker Publisher
	logger *slog.Logger
	locks  [lockStripes]sync.Mutex
}

// NewProcessor creates a processor. Pass nil logger for default.
func NewProcessor(s store.Store, broker Publisher, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:  s,
		broker: broker,
		logger: logger.With("component", "processor"),
	}
}

// Process applies one validated event and returns its outcome.
// All failures are typed *Error values; see the errors taxonomy.
func (p *Processor) Process(ctx context.Context, ev *Event) (Outcome, *Error) {
	switch ev.Kind {
	case KindNewConversation:
		return p.handleNewConversation(ctx, ev)
	case KindNewMessage:
		return p.handleNewMessage(ctx, ev)
	case KindCloseConversation:
		return p.handleCloseConversation(ctx, ev)
	default:
		// Unreachable after Validate; kept so the switch stays exhaustive
		return 0, validationErr("unsupported event type %q", ev.Kind)
	}
}

// handleNewConversation creates an OPEN conversation with the event's id.
func (p *Processor) handleNewConversation(ctx context.Context, ev *Event) (Outcome, *Error) {
	id, ok := parseIdentifier(ev.Data, "id")
	if !ok {
		return 0, validationErr("invalid conversation id (malformed UUID)")
	}

	unlock := p.lockConversation(id)
	defer unlock()

	conv := &store.Conversation{
		ID:        id,
		Status:    store.StatusOpen,
		CreatedAt: ev.Timestamp,
	}

	err := p.store.CreateConversation(ctx, conv)
	if errors.Is(err, store.ErrConversationExists) {
		return 0, conflictErr("conversation already exists (duplicate id)")
	}
	if err != nil {
		p.logger.Error("creating conversation", "id", id, "error", err)
		return 0, validationErr("could not create conversation")
	}

	p.logger.Info("conversation created", "id", id)
	return OutcomeConversationCreated, nil
}

// handleNewMessage creates a message, bumps last_message_at, and publishes
// the accepted message to live viewers. The three effects are atomic: the
// store transaction covers the first two, and the publish happens only
// after the transaction commits.
func (p *Processor) handleNewMessage(ctx context.Context, ev *Event) (Outcome, *Error) {
	msgID, ok := parseIdentifier(ev.Data, "id")
	if !ok {
		return 0, validationErr("invalid ids, message and conversation ids must be valid UUIDs")
	}
	convID, ok := parseIdentifier(ev.Data, "conversation_id")
	if !ok {
		return 0, validationErr("invalid ids, message and conversation ids must be valid UUIDs")
	}

	direction, _ := ev.Data["direction"].(string)
	content, _ := ev.Data["content"].(string)
	if (direction != store.DirectionSent && direction != store.DirectionReceived) || content == "" {
		return 0, validationErr("direction must be 'SENT' or 'RECEIVED' and content must not be empty")
	}

	unlock := p.lockConversation(convID)
	defer unlock()

	msg := &store.Message{
		ID:             msgID,
		ConversationID: convID,
		Direction:      direction,
		Content:        content,
		Timestamp:      ev.Timestamp,
	}

	switch err := p.store.CreateMessage(ctx, msg); {
	case errors.Is(err, store.ErrNotFound):
		return 0, notFoundErr("conversation not found")
	case errors.Is(err, store.ErrConversationClosed):
		return 0, stateErr("conversation is closed")
	case errors.Is(err, store.ErrMessageExists):
		return 0, conflictErr("message already exists (duplicate id)")
	case err != nil:
		p.logger.Error("creating message", "id", msgID, "conversation_id", convID, "error", err)
		return 0, validationErr("could not create message")
	}

	p.broker.Publish(convID, fanout.MessageView{
		ID:        msgID,
		Direction: direction,
		Content:   content,
		Timestamp: ev.Timestamp.Format(time.RFC3339Nano),
	})

	p.logger.Info("message created", "id", msgID, "conversation_id", convID)
	return OutcomeMessageCreated, nil
}

// handleCloseConversation marks a conversation CLOSED. Idempotent: closing
// an already-closed conversation succeeds again.
func (p *Processor) handleCloseConversation(ctx context.Context, ev *Event) (Outcome, *Error) {
	id, ok := parseIdentifier(ev.Data, "id")
	if !ok {
		return 0, validationErr("invalid conversation id (malformed UUID)")
	}

	unlock := p.lockConversation(id)
	defer unlock()

	err := p.store.CloseConversation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return 0, notFoundErr("conversation not found")
	}
	if err != nil {
		p.logger.Error("closing conversation", "id", id, "error", err)
		return 0, validationErr("could not close conversation")
	}

	p.logger.Info("conversation closed", "id", id)
	return OutcomeConversationClosed, nil
}

// lockConversation serializes event processing for one conversation id.
// Stripes bound the lock table; collisions just over-serialize.
func (p *Processor) lockConversation(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	mu := &p.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// parseIdentifier extracts and validates a UUID field from the event data,
// returning its canonical lowercase form.
func parseIdentifier(data map[string]any, field string) (string, bool) {
	raw, _ := data[field].(string)
	if raw == "" {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
