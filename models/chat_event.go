package models

// ChatEventType identifies what a ChatEvent carries.
type ChatEventType string

const (
	ChatEventMessage ChatEventType = "message"
	ChatEventTyping  ChatEventType = "typing"
)

// ChatEvent is an out-of-band notification for one match, delivered through
// the notification hub.
type ChatEvent struct {
	Type    ChatEventType `json:"type"`
	MatchID string        `json:"matchId"`
	Message *RawMessage   `json:"message,omitempty"`
}
