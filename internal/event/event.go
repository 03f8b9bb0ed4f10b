// ABOUTME: Webhook event envelope and typed event kinds
// ABOUTME: Defines the wire shape of events and the outcomes of processing them

package event

import "time"

// Kind identifies the type of a webhook event
type Kind string

const (
	KindNewConversation   Kind = "NEW_CONVERSATION"
	KindNewMessage        Kind = "NEW_MESSAGE"
	KindCloseConversation Kind = "CLOSE_CONVERSATION"
)

// Envelope is the top-level webhook payload. Data is left untyped because
// its field set depends on the event kind.
type Envelope struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Event is a validated envelope: a known kind with a parsed timestamp.
// The data payload is validated per-kind by the Processor.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Data      map[string]any
}

// Outcome is the typed result of successfully processing one event
type Outcome int

const (
	// OutcomeConversationCreated: a NEW_CONVERSATION event created a conversation
	OutcomeConversationCreated Outcome = iota
	// OutcomeMessageCreated: a NEW_MESSAGE event created a message
	OutcomeMessageCreated
	// OutcomeConversationClosed: a CLOSE_CONVERSATION event closed a conversation
	OutcomeConversationClosed
)

// String returns the human-readable detail for an outcome, matching the
// webhook response bodies.
func (o Outcome) String() string {
	switch o {
	case OutcomeConversationCreated:
		return "Conversation created."
	case OutcomeMessageCreated:
		return "Message created."
	case OutcomeConversationClosed:
		return "Conversation closed."
	default:
		return "unknown outcome"
	}
}
