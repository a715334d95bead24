package chat

import (
	"context"
	"strings"
)

// WelcomeQuery asks Load to seed an empty session with the greeting pair.
const WelcomeQuery = "welcome"

var welcomeSuggestions = []string{
	"Show me 2 BHK flats in Mumbai under 1 crore",
	"Which projects in Pune have a gym and a pool?",
	"What can I get in Bangalore for 80 lakh?",
	"Are there ready-to-move 3 BHK homes near Thane?",
}

func WelcomePair() (user, assistant Message) {
	user = Message{Role: RoleUser, Content: "Hi"}
	assistant = Message{
		Role: RoleAssistant,
		Content: "Hello! I can help you find a home. Tell me the city or locality, " +
			"your budget and how many bedrooms you need, and I'll look up matching listings.",
		Suggestions: append([]string(nil), welcomeSuggestions...),
	}
	return user, assistant
}

// LoadOrWelcome loads the transcript. An empty session loaded with the
// welcome query gets the greeting pair persisted and returned.
func LoadOrWelcome(ctx context.Context, h History, sessionID, q string) ([]Message, error) {
	msgs, err := h.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 || !strings.EqualFold(strings.TrimSpace(q), WelcomeQuery) {
		return msgs, nil
	}
	u, a := WelcomePair()
	if err := h.Append(ctx, sessionID, u, a); err != nil {
		return nil, err
	}
	return h.Load(ctx, sessionID)
}
