// Package event implements the webhook event-processing core: structural
// validation of inbound envelopes and the idempotent state machine that
// turns them into persisted conversations and messages.
//
// # Lifecycle
//
// A conversation starts OPEN on NEW_CONVERSATION and moves to CLOSED on
// CLOSE_CONVERSATION; CLOSED is terminal for writes. NEW_MESSAGE is not a
// transition, it is a guarded side effect available only while the
// conversation is OPEN.
//
// # Idempotency
//
// Duplicate NEW_CONVERSATION and NEW_MESSAGE ids are reported as conflicts
// rather than silently absorbed, so callers can tell "already applied"
// apart from "newly applied". CLOSE_CONVERSATION is the one naturally
// idempotent operation and succeeds on every delivery.
//
// # Error handling
//
// Validate and Processor.Process only ever fail with a typed *Error whose
// Kind maps directly onto an HTTP status; no malformed or conflicting
// input can surface as a server fault.
package event
