// Package store provides persistent storage for convo-gateway using SQLite.
//
// # Data Models
//
//   - Conversation: A customer-support conversation with OPEN/CLOSED status,
//     a caller-supplied UUID, and a last_message_at watermark.
//   - Message: An immutable message within a conversation, ordered by its
//     caller-supplied timestamp.
//
// # Write Semantics
//
// Duplicate ids surface as ErrConversationExists / ErrMessageExists rather
// than being silently merged, so the webhook layer can report duplicate
// deliveries as conflicts. CreateMessage runs in a single transaction that
// re-checks the conversation's status, inserts the message, and bumps
// last_message_at; a message can never exist without the watermark
// reflecting it.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Timestamps are stored as fixed-width UTC text so lexicographic ordering
// in SQL matches chronological ordering.
//
// MockStore offers the same semantics in memory for tests.
package store
