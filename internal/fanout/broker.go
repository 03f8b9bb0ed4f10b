// ABOUTME: In-memory fan-out broker for live conversation viewers
// ABOUTME: Publishes accepted messages to all subscribers of a conversation id

package fanout

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// MessageView is the payload pushed to live viewers when a message is
// accepted: the wire shape of the webhook's NEW_MESSAGE data with an
// ISO-8601 timestamp.
type MessageView struct {
	ID        string `json:"id"`
	Direction string `json:"direction"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// subscription pairs a delivery channel with a done channel that stops
// the context watcher once the subscription is removed.
type subscription struct {
	ch   chan MessageView
	done chan struct{}
}

// Broker provides in-process pub/sub for accepted messages. Subscribers
// register for a conversation id and receive each message published after
// they joined; there is no replay, missed messages are recovered through
// the REST read path. Holds no durable state.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]*subscription // conversationID -> subID
	logger      *slog.Logger
}

// NewBroker creates a broker. Pass nil logger for default.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]map[string]*subscription),
		logger:      logger.With("component", "fanout"),
	}
}

// Subscribe registers a live viewer for the given conversation id.
// Returns a channel that receives message views and a subscription ID for
// later unsubscription. The subscription is automatically cleaned up when
// ctx is cancelled; Unsubscribe also releases the watcher, so a
// never-cancelled context does not pin a goroutine.
func (b *Broker) Subscribe(ctx context.Context, conversationID string) (<-chan MessageView, string) {
	subID := uuid.New().String()
	sub := &subscription{
		ch:   make(chan MessageView, subscriberBufferSize),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if _, ok := b.subscribers[conversationID]; !ok {
		b.subscribers[conversationID] = make(map[string]*subscription)
	}
	b.subscribers[conversationID][subID] = sub
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		"conversation_id", conversationID,
		"sub_id", subID)

	// Auto-cleanup on context cancellation; exits when the subscription
	// is removed first.
	go func() {
		select {
		case <-ctx.Done():
			b.Unsubscribe(conversationID, subID)
		case <-sub.done:
		}
	}()

	return sub.ch, subID
}

// Publish delivers a message view to every subscriber of the conversation
// registered at the moment of the call. Non-blocking: views are dropped for
// subscribers whose channels are full, so one slow viewer never delays the
// webhook write path or the other viewers.
func (b *Broker) Publish(conversationID string, view MessageView) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs, ok := b.subscribers[conversationID]
	if !ok || len(subs) == 0 {
		return
	}

	// Sends are non-blocking, so holding the read lock here is cheap and
	// guarantees no channel is closed mid-send by a concurrent Unsubscribe.
	for _, sub := range subs {
		select {
		case sub.ch <- view:
			// Sent
		default:
			// Subscriber channel full, drop the view for this subscriber
			b.logger.Debug("dropped message for slow subscriber",
				"conversation_id", conversationID,
				"message_id", view.ID)
		}
	}
}

// Unsubscribe removes a subscription, closes its channel, and stops its
// context watcher. Safe to call multiple times; a no-op if already removed.
func (b *Broker) Unsubscribe(conversationID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[conversationID]
	if !ok {
		return
	}

	sub, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(sub.ch)
	close(sub.done)

	// Clean up empty conversation entries
	if len(subs) == 0 {
		delete(b.subscribers, conversationID)
	}

	b.logger.Debug("subscriber removed",
		"conversation_id", conversationID,
		"sub_id", subID)
}

// SubscriberCount returns the number of live subscribers for a
// conversation.
func (b *Broker) SubscriberCount(conversationID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[conversationID])
}

// Close shuts down the broker, closing all subscriber channels and
// stopping their watchers.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for convID, subs := range b.subscribers {
		for subID, sub := range subs {
			close(sub.ch)
			close(sub.done)
			delete(subs, subID)
		}
		delete(b.subscribers, convID)
	}

	b.logger.Debug("broker closed")
}
