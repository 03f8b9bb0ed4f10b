// ABOUTME: Store interface and data types for convo-gateway persistence
// ABOUTME: Defines Conversation, Message structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrConversationExists is returned when creating a conversation whose id is already taken
var ErrConversationExists = errors.New("conversation already exists")

// ErrMessageExists is returned when creating a message whose id is already taken
var ErrMessageExists = errors.New("message already exists")

// ErrConversationClosed is returned when writing a message into a closed conversation
var ErrConversationClosed = errors.New("conversation is closed")

// ErrConversationHasMessages is returned when deleting a conversation that still has messages
var ErrConversationHasMessages = errors.New("conversation has messages")

// Conversation status values
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Message direction values
const (
	DirectionSent     = "SENT"
	DirectionReceived = "RECEIVED"
)

// Conversation represents a customer-support conversation ingested via webhook.
// The id is supplied by the upstream system, not generated here.
type Conversation struct {
	ID            string
	Status        string // "OPEN" or "CLOSED"
	CreatedAt     time.Time
	LastMessageAt *time.Time // nil until the first message is accepted
}

// Message represents a single message within a conversation.
// Messages are immutable once created.
type Message struct {
	ID             string
	ConversationID string
	Direction      string // "SENT" or "RECEIVED"
	Content        string
	Timestamp      time.Time
}

// Store defines the interface for conversation and message persistence
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ConversationExists(ctx context.Context, id string) (bool, error)
	CloseConversation(ctx context.Context, id string) error
	ListConversations(ctx context.Context) ([]*Conversation, error)

	// DeleteConversation removes a conversation record. It fails with
	// ErrConversationHasMessages while any message still references it;
	// messages are never cascaded.
	DeleteConversation(ctx context.Context, id string) error

	// Messages
	// CreateMessage inserts the message and bumps the owning conversation's
	// last_message_at in a single transaction. The conversation's existence
	// and OPEN status are re-checked inside the transaction.
	CreateMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)
	MessageExists(ctx context.Context, id string) (bool, error)
	GetMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the underlying database.
	Close() error
}
