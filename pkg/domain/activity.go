package domain

import "time"

// ActivityType categorizes an inbound activity.
type ActivityType string

const (
	ActivityMessage            ActivityType = "message"
	ActivityConversationUpdate ActivityType = "conversationUpdate"
	ActivityEvent              ActivityType = "event"
)

// Activity is one inbound conversational event.
type Activity struct {
	ID             string       `json:"id,omitempty"`
	Type           ActivityType `json:"type"`
	ConversationID string       `json:"conversation_id"`
	From           string       `json:"from,omitempty"`
	Text           string       `json:"text,omitempty"`
	Value          any          `json:"value,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
}

// NewMessage builds a message activity for a conversation.
func NewMessage(conversationID, text string) Activity {
	return Activity{
		Type:           ActivityMessage,
		ConversationID: conversationID,
		Text:           text,
		Timestamp:      time.Now().UTC(),
	}
}
