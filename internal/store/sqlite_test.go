// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers conversation lifecycle, message transactions, and ordering

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return s
}

func openConversation(t *testing.T, s Store, id string) *Conversation {
	t.Helper()
	conv := &Conversation{
		ID:        id,
		Status:    StatusOpen,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	return conv
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestCreateAndGetConversation(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := &Conversation{
		ID:        "11111111-1111-1111-1111-111111111111",
		Status:    StatusOpen,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}

	if got.ID != conv.ID {
		t.Errorf("ID mismatch: got %q, want %q", got.ID, conv.ID)
	}
	if got.Status != StatusOpen {
		t.Errorf("Status mismatch: got %q, want %q", got.Status, StatusOpen)
	}
	if !got.CreatedAt.Equal(conv.CreatedAt) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, conv.CreatedAt)
	}
	if got.LastMessageAt != nil {
		t.Errorf("LastMessageAt should be nil on a fresh conversation, got %v", *got.LastMessageAt)
	}
}

func TestCreateConversation_Duplicate(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := openConversation(t, s, "22222222-2222-2222-2222-222222222222")

	dup := &Conversation{
		ID:        conv.ID,
		Status:    StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateConversation(ctx, dup); err != ErrConversationExists {
		t.Errorf("expected ErrConversationExists, got %v", err)
	}

	// Stored record must be unchanged
	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if !got.CreatedAt.Equal(conv.CreatedAt) {
		t.Errorf("duplicate create mutated stored record: got %v, want %v", got.CreatedAt, conv.CreatedAt)
	}
}

func TestGetConversation_NotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	_, err := s.GetConversation(context.Background(), "nonexistent")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCloseConversation(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := openConversation(t, s, "33333333-3333-3333-3333-333333333333")

	if err := s.CloseConversation(ctx, conv.ID); err != nil {
		t.Fatalf("CloseConversation failed: %v", err)
	}

	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.Status != StatusClosed {
		t.Errorf("expected status CLOSED, got %q", got.Status)
	}

	// Closing again succeeds (idempotent)
	if err := s.CloseConversation(ctx, conv.ID); err != nil {
		t.Errorf("re-closing conversation failed: %v", err)
	}
}

func TestCloseConversation_NotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	err := s.CloseConversation(context.Background(), "nonexistent")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateMessage_UpdatesLastMessageAt(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := openConversation(t, s, "44444444-4444-4444-4444-444444444444")

	ts := time.Date(2025, 2, 21, 10, 20, 44, 349308000, time.UTC)
	msg := &Message{
		ID:             "aaaaaaaa-0000-0000-0000-000000000001",
		ConversationID: conv.ID,
		Direction:      DirectionReceived,
		Content:        "Olá! Gostaria de saber sobre os planos.",
		Timestamp:      ts,
	}

	if err := s.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.LastMessageAt == nil {
		t.Fatal("LastMessageAt not set after message creation")
	}
	if !got.LastMessageAt.Equal(ts) {
		t.Errorf("LastMessageAt mismatch: got %v, want %v", *got.LastMessageAt, ts)
	}

	stored, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if stored.Content != msg.Content {
		t.Errorf("Content mismatch: got %q, want %q", stored.Content, msg.Content)
	}
	if !stored.Timestamp.Equal(ts) {
		t.Errorf("Timestamp mismatch: got %v, want %v", stored.Timestamp, ts)
	}
}

func TestCreateMessage_ConversationNotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	msg := &Message{
		ID:             "aaaaaaaa-0000-0000-0000-000000000002",
		ConversationID: "nonexistent",
		Direction:      DirectionSent,
		Content:        "hello",
		Timestamp:      time.Now().UTC(),
	}

	if err := s.CreateMessage(context.Background(), msg); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// No record may exist after the failure
	exists, err := s.MessageExists(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("MessageExists failed: %v", err)
	}
	if exists {
		t.Error("message was created despite missing conversation")
	}
}

func TestCreateMessage_ClosedConversation(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := openConversation(t, s, "55555555-5555-5555-5555-555555555555")
	if err := s.CloseConversation(ctx, conv.ID); err != nil {
		t.Fatalf("CloseConversation failed: %v", err)
	}

	msg := &Message{
		ID:             "aaaaaaaa-0000-0000-0000-000000000003",
		ConversationID: conv.ID,
		Direction:      DirectionSent,
		Content:        "too late",
		Timestamp:      time.Now().UTC(),
	}

	if err := s.CreateMessage(ctx, msg); err != ErrConversationClosed {
		t.Errorf("expected ErrConversationClosed, got %v", err)
	}

	exists, _ := s.MessageExists(ctx, msg.ID)
	if exists {
		t.Error("message was created in a closed conversation")
	}

	// last_message_at must not have been touched
	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.LastMessageAt != nil {
		t.Errorf("LastMessageAt set by a rejected message: %v", *got.LastMessageAt)
	}
}

func TestCreateMessage_Duplicate(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := openConversation(t, s, "66666666-6666-6666-6666-666666666666")

	msg := &Message{
		ID:             "aaaaaaaa-0000-0000-0000-000000000004",
		ConversationID: conv.ID,
		Direction:      DirectionReceived,
		Content:        "first delivery",
		Timestamp:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	retry := &Message{
		ID:             msg.ID,
		ConversationID: conv.ID,
		Direction:      DirectionReceived,
		Content:        "second delivery",
		Timestamp:      time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC),
	}
	if err := s.CreateMessage(ctx, retry); err != ErrMessageExists {
		t.Errorf("expected ErrMessageExists, got %v", err)
	}

	// Watermark must still reflect the first (accepted) delivery
	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if !got.LastMessageAt.Equal(msg.Timestamp) {
		t.Errorf("LastMessageAt changed by rejected duplicate: got %v, want %v",
			*got.LastMessageAt, msg.Timestamp)
	}
}

func TestCreateMessage_CheckViolationIsNotDuplicate(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := openConversation(t, s, "77777777-7777-7777-7777-777777777777")

	// A CHECK constraint failure (bad direction) must surface as a plain
	// error, not masquerade as a duplicate-id conflict.
	msg := &Message{
		ID:             "aaaaaaaa-0000-0000-0000-000000000009",
		ConversationID: conv.ID,
		Direction:      "OUTBOUND",
		Content:        "bad direction",
		Timestamp:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	err := s.CreateMessage(ctx, msg)
	if err == nil {
		t.Fatal("expected error for invalid direction")
	}
	if errors.Is(err, ErrMessageExists) {
		t.Errorf("CHECK violation reported as ErrMessageExists: %v", err)
	}

	// Nothing was written and the watermark is untouched
	if _, err := s.GetMessage(ctx, msg.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for rejected message, got %v", err)
	}
	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.LastMessageAt != nil {
		t.Errorf("LastMessageAt set by rejected message: %v", *got.LastMessageAt)
	}
}

func TestGetMessages_OrderedByTimestamp(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := openConversation(t, s, "77777777-7777-7777-7777-777777777777")

	base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	// Insert out of chronological order
	offsets := []int{5, 0, 10, 2}
	for i, off := range offsets {
		msg := &Message{
			ID:             fmt.Sprintf("bbbbbbbb-0000-0000-0000-00000000000%d", i),
			ConversationID: conv.ID,
			Direction:      DirectionSent,
			Content:        fmt.Sprintf("message %d", i),
			Timestamp:      base.Add(time.Duration(off) * time.Minute),
		}
		if err := s.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("CreateMessage %d failed: %v", i, err)
		}
	}

	messages, err := s.GetMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != len(offsets) {
		t.Fatalf("expected %d messages, got %d", len(offsets), len(messages))
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].Timestamp.Before(messages[i-1].Timestamp) {
			t.Errorf("messages out of order at index %d: %v before %v",
				i, messages[i].Timestamp, messages[i-1].Timestamp)
		}
	}
}

func TestGetMessages_SubSecondOrdering(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := openConversation(t, s, "88888888-8888-8888-8888-888888888888")

	base := time.Date(2025, 4, 1, 9, 0, 44, 0, time.UTC)
	// Fractional-second timestamps must order correctly against whole seconds
	stamps := []time.Time{
		base.Add(349308 * time.Microsecond),
		base,
		base.Add(time.Second),
	}
	for i, ts := range stamps {
		msg := &Message{
			ID:             fmt.Sprintf("cccccccc-0000-0000-0000-00000000000%d", i),
			ConversationID: conv.ID,
			Direction:      DirectionReceived,
			Content:        "tick",
			Timestamp:      ts,
		}
		if err := s.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("CreateMessage %d failed: %v", i, err)
		}
	}

	messages, err := s.GetMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	want := []string{
		"cccccccc-0000-0000-0000-000000000001",
		"cccccccc-0000-0000-0000-000000000000",
		"cccccccc-0000-0000-0000-000000000002",
	}
	for i, id := range want {
		if messages[i].ID != id {
			t.Errorf("position %d: got %q, want %q", i, messages[i].ID, id)
		}
	}
}

func TestListConversations_Ordering(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	older := &Conversation{ID: "dddddddd-0000-0000-0000-000000000001", Status: StatusOpen, CreatedAt: base}
	newer := &Conversation{ID: "dddddddd-0000-0000-0000-000000000002", Status: StatusOpen, CreatedAt: base.Add(time.Hour)}
	for _, c := range []*Conversation{older, newer} {
		if err := s.CreateConversation(ctx, c); err != nil {
			t.Fatalf("CreateConversation failed: %v", err)
		}
	}

	// A message on the older conversation makes it the most recently active
	msg := &Message{
		ID:             "dddddddd-aaaa-0000-0000-000000000001",
		ConversationID: older.ID,
		Direction:      DirectionReceived,
		Content:        "bump",
		Timestamp:      base.Add(2 * time.Hour),
	}
	if err := s.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	conversations, err := s.ListConversations(ctx)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(conversations))
	}
	if conversations[0].ID != older.ID {
		t.Errorf("expected conversation with latest message first, got %q", conversations[0].ID)
	}
}

func TestDeleteConversation(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := openConversation(t, s, "99999999-9999-9999-9999-999999999999")

	msg := &Message{
		ID:             "eeeeeeee-0000-0000-0000-000000000001",
		ConversationID: conv.ID,
		Direction:      DirectionSent,
		Content:        "keep me",
		Timestamp:      time.Now().UTC(),
	}
	if err := s.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	// Deletion is blocked while messages reference the conversation
	if err := s.DeleteConversation(ctx, conv.ID); !errors.Is(err, ErrConversationHasMessages) {
		t.Errorf("expected ErrConversationHasMessages, got %v", err)
	}

	empty := openConversation(t, s, "99999999-9999-9999-9999-000000000000")
	if err := s.DeleteConversation(ctx, empty.ID); err != nil {
		t.Errorf("deleting empty conversation failed: %v", err)
	}
	if _, err := s.GetConversation(ctx, empty.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	if err := s.DeleteConversation(ctx, "nonexistent"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestConcurrentMessageCreates(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := openConversation(t, s, "ffffffff-0000-0000-0000-000000000001")

	// Two racing deliveries of the same message id: exactly one wins
	const id = "ffffffff-aaaa-0000-0000-000000000001"
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(n int) {
			results <- s.CreateMessage(ctx, &Message{
				ID:             id,
				ConversationID: conv.ID,
				Direction:      DirectionSent,
				Content:        fmt.Sprintf("delivery %d", n),
				Timestamp:      time.Now().UTC(),
			})
		}(i)
	}

	var okCount, dupCount int
	for i := 0; i < 2; i++ {
		switch err := <-results; err {
		case nil:
			okCount++
		case ErrMessageExists:
			dupCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || dupCount != 1 {
		t.Errorf("expected exactly one success and one conflict, got %d/%d", okCount, dupCount)
	}
}
