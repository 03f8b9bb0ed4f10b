// ABOUTME: Seed command that populates the database with demo conversations
// ABOUTME: Creates realistic gym customer-support threads for local development

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/attendhq/convo-gateway/internal/store"
)

type seedMessage struct {
	direction     string
	content       string
	minutesOffset int
}

type seedConversation struct {
	status   string
	age      time.Duration
	messages []seedMessage
}

// gymConversations are demo support threads for a gym, the sample data
// this project has always shipped with.
var gymConversations = []seedConversation{
	{
		status: store.StatusClosed,
		age:    48 * time.Hour,
		messages: []seedMessage{
			{store.DirectionReceived, "Hi! I'd like to know about your membership plans.", 0},
			{store.DirectionSent, "Hello! We have 3 plans: Basic ($29/mo), Premium ($49/mo) and VIP ($79/mo).", 2},
			{store.DirectionReceived, "What's the difference between them?", 5},
			{store.DirectionSent, "Basic covers weights and cardio. Premium adds group classes. VIP includes a personal trainer.", 8},
			{store.DirectionReceived, "How many personal training sessions come with VIP?", 12},
			{store.DirectionSent, "8 sessions per month, plus a full fitness assessment.", 15},
			{store.DirectionReceived, "Perfect! I'll think it over and get back to you. Thanks!", 18},
			{store.DirectionSent, "Anytime! We're here when you need us. Have a great day!", 20},
		},
	},
	{
		status: store.StatusOpen,
		age:    32 * time.Hour,
		messages: []seedMessage{
			{store.DirectionReceived, "Good morning! What are your opening hours?", 0},
			{store.DirectionSent, "Good morning! Weekdays 5am-11pm, Saturdays 7am-8pm, Sundays 8am-6pm.", 3},
			{store.DirectionReceived, "And the group classes? Do they have fixed times?", 7},
			{store.DirectionSent, "Yes! Spinning at 7am, noon and 7pm. Zumba at 6pm. Pilates at 9am and 5pm. Yoga at 8am and 8pm.", 10},
			{store.DirectionReceived, "Do I need to book classes or can I just show up?", 15},
			{store.DirectionSent, "Spinning and pilates need booking through the app. Zumba and yoga are first come, first served.", 18},
		},
	},
	{
		status: store.StatusOpen,
		age:    4 * time.Hour,
		messages: []seedMessage{
			{store.DirectionReceived, "Hi! Do you have a pool and sauna?", 0},
			{store.DirectionSent, "Hello! Yes, heated pool and dry sauna. Both included in Premium and VIP plans.", 2},
			{store.DirectionReceived, "What about the weights area? Is it well equipped?", 5},
			{store.DirectionSent, "Over 200 machines! Full weights floor, cardio stations with individual TVs and a functional zone.", 8},
			{store.DirectionReceived, "Nice! And locker rooms?", 12},
			{store.DirectionSent, "Spacious locker rooms with lockers, hot showers and a rest area. Free parking too.", 15},
		},
	},
	{
		status: store.StatusOpen,
		age:    time.Hour,
		messages: []seedMessage{
			{store.DirectionReceived, "Do you offer nutrition counseling?", 0},
			{store.DirectionSent, "Yes! A nutritionist is in 3x a week. Included with VIP, 50% off for other plans.", 3},
			{store.DirectionReceived, "And fitness assessments? How do those work?", 8},
			{store.DirectionSent, "We do bioimpedance, body measurements and a flexibility test. Reassessment every 3 months.", 12},
			{store.DirectionReceived, "Do you have a snack bar or food area?", 16},
			{store.DirectionSent, "We have a snack bar with healthy options: fresh juices, whole-grain sandwiches, salads and supplements.", 20},
		},
	},
}

func runSeed(ctx context.Context) error {
	cfg, err := loadConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	existing, err := st.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}
	if len(existing) > 0 {
		yellow.Printf("  Database already has %d conversation(s).\n", len(existing))
		if !confirm("  Seed anyway? (y/N): ") {
			fmt.Println("  Aborted.")
			return nil
		}
	}

	now := time.Now().UTC()
	var convCount, msgCount int

	for _, sc := range gymConversations {
		convID := uuid.New().String()
		createdAt := now.Add(-sc.age)

		conv := &store.Conversation{
			ID:        convID,
			Status:    store.StatusOpen,
			CreatedAt: createdAt,
		}
		if err := st.CreateConversation(ctx, conv); err != nil {
			return fmt.Errorf("creating conversation: %w", err)
		}
		convCount++

		for _, sm := range sc.messages {
			msg := &store.Message{
				ID:             uuid.New().String(),
				ConversationID: convID,
				Direction:      sm.direction,
				Content:        sm.content,
				Timestamp:      createdAt.Add(time.Duration(sm.minutesOffset) * time.Minute),
			}
			if err := st.CreateMessage(ctx, msg); err != nil {
				return fmt.Errorf("creating message: %w", err)
			}
			msgCount++
		}

		// Close after the messages so the closed-conversation guard
		// does not reject the seed data.
		if sc.status == store.StatusClosed {
			if err := st.CloseConversation(ctx, convID); err != nil {
				return fmt.Errorf("closing conversation: %w", err)
			}
		}

		green.Printf("  ✓ %s (%s, %d messages)\n", convID, sc.status, len(sc.messages))
	}

	fmt.Println()
	green.Printf("  Seeded %d conversations with %d messages.\n", convCount, msgCount)
	return nil
}

func confirm(promptText string) bool {
	fmt.Print(promptText)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(input))
	return answer == "y" || answer == "yes"
}
