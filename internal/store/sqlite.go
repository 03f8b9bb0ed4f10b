// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides conversation/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is the fixed-width UTC layout used for all stored timestamps.
// Zero-padded fractional seconds keep lexicographic ORDER BY chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Wait out writer contention instead of failing with SQLITE_BUSY
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id              TEXT PRIMARY KEY,
			status          TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			last_message_at TEXT,

			CHECK (status IN ('OPEN', 'CLOSED'))
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_last_message
			ON conversations(last_message_at DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			direction       TEXT NOT NULL,
			content         TEXT NOT NULL,
			timestamp       TEXT NOT NULL,

			CHECK (direction IN ('SENT', 'RECEIVED')),
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Ping verifies database connectivity
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateConversation creates a new conversation with the caller-supplied id.
// Returns ErrConversationExists if the id is already taken.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	query := `
		INSERT INTO conversations (id, status, created_at, last_message_at)
		VALUES (?, ?, ?, NULL)
	`

	_, err := s.db.ExecContext(ctx, query,
		conv.ID,
		conv.Status,
		conv.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrConversationExists
		}
		return fmt.Errorf("inserting conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID)
	return nil
}

// GetConversation retrieves a conversation by ID.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	query := `
		SELECT id, status, created_at, last_message_at
		FROM conversations
		WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, id)
	return scanConversation(row)
}

// ConversationExists reports whether a conversation with the given id exists
func (s *SQLiteStore) ConversationExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM conversations WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying conversation existence: %w", err)
	}
	return true, nil
}

// CloseConversation marks a conversation as CLOSED.
// Closing an already-closed conversation succeeds again.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) CloseConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET status = ? WHERE id = ?`, StatusClosed, id)
	if err != nil {
		return fmt.Errorf("closing conversation: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("closed conversation", "id", id)
	return nil
}

// ListConversations returns all conversations ordered by most recent
// activity (last_message_at, then created_at, both descending).
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	query := `
		SELECT id, status, created_at, last_message_at
		FROM conversations
		ORDER BY last_message_at DESC, created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}

	return conversations, rows.Err()
}

// DeleteConversation removes a conversation that has no messages.
// Returns ErrConversationHasMessages if messages still reference it,
// ErrNotFound if it doesn't exist.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, id).Scan(&count)
	if err != nil {
		return fmt.Errorf("counting messages: %w", err)
	}
	if count > 0 {
		return ErrConversationHasMessages
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}

	s.logger.Debug("deleted conversation", "id", id)
	return nil
}

// CreateMessage inserts a message and bumps the owning conversation's
// last_message_at, all in one transaction. The conversation's existence
// and status are re-checked inside the transaction so a racing close
// cannot slip a message into a CLOSED conversation.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM conversations WHERE id = ?`, msg.ConversationID).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying conversation status: %w", err)
	}
	if status == StatusClosed {
		return ErrConversationClosed
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, direction, content, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID,
		msg.ConversationID,
		msg.Direction,
		msg.Content,
		msg.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrMessageExists
		}
		return fmt.Errorf("inserting message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET last_message_at = ? WHERE id = ?`,
		msg.Timestamp.UTC().Format(timeLayout),
		msg.ConversationID,
	)
	if err != nil {
		return fmt.Errorf("updating last_message_at: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing message: %w", err)
	}

	s.logger.Debug("created message", "id", msg.ID, "conversation_id", msg.ConversationID)
	return nil
}

// GetMessage retrieves a message by ID.
// Returns ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	query := `
		SELECT id, conversation_id, direction, content, timestamp
		FROM messages
		WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, id)
	return scanMessage(row)
}

// MessageExists reports whether a message with the given id exists
func (s *SQLiteStore) MessageExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM messages WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying message existence: %w", err)
	}
	return true, nil
}

// GetMessages returns all messages in a conversation ordered by timestamp
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	query := `
		SELECT id, conversation_id, direction, content, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*Conversation, error) {
	var conv Conversation
	var createdAtStr string
	var lastMessageAtStr sql.NullString

	err := row.Scan(&conv.ID, &conv.Status, &createdAtStr, &lastMessageAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	conv.CreatedAt, err = time.Parse(timeLayout, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	if lastMessageAtStr.Valid {
		t, err := time.Parse(timeLayout, lastMessageAtStr.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_message_at: %w", err)
		}
		conv.LastMessageAt = &t
	}

	return &conv, nil
}

func scanMessage(row scanner) (*Message, error) {
	var msg Message
	var timestampStr string

	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.Direction, &msg.Content, &timestampStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	msg.Timestamp, err = time.Parse(timeLayout, timestampStr)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}

	return &msg, nil
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint
// violation. FOREIGN KEY and CHECK failures must not be mistaken for
// duplicate ids.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
