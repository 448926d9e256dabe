package domain

import "time"

// ChatMessage is one message in a community-chat conversation. Bot
// replies carry Bot=true so the debounce guard can tell whether the
// thread already ends with the assistant.
type ChatMessage struct {
	ID             string
	ConversationID string
	UserID         string
	Body           string
	Bot            bool
	CreatedAt      time.Time
}
