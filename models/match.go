package models

// Match pairs two users who liked each other
type Match struct {
	MatchID   string   `dynamodbav:"matchId" json:"matchId"`     // Unique matchId
	Users     []string `dynamodbav:"users" json:"users"`         // Both user ids
	Type      string   `dynamodbav:"type" json:"type"`           // "private"
	Status    string   `dynamodbav:"status" json:"status"`       // active, archived
	CreatedAt string   `dynamodbav:"createdAt" json:"createdAt"` // Timestamp of creation
}

// OtherParty describes the person on the other side of a conversation.
type OtherParty struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Online bool   `json:"online"`
}

// ConversationSnapshot is what a transport returns when a conversation is opened.
type ConversationSnapshot struct {
	OtherParty OtherParty   `json:"otherParty"`
	Messages   []RawMessage `json:"messages"`
}
