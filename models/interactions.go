package models

// Interaction records one like or pass from a viewer on a target
type Interaction struct {
	SenderID        string  `dynamodbav:"senderId" json:"senderId"`                   // ✅ Partition Key
	ReceiverID      string  `dynamodbav:"receiverId" json:"receiverId"`               // ✅ Sort Key
	InteractionType string  `dynamodbav:"interactionType" json:"interactionType"`     // like, dislike
	Status          string  `dynamodbav:"status" json:"status"`                       // pending, match
	MatchID         *string `dynamodbav:"matchId,omitempty" json:"matchId,omitempty"` // Assigned when matched
	CreatedAt       string  `dynamodbav:"createdAt" json:"createdAt"`
}

// LikeResult is the backend answer to a like.
type LikeResult struct {
	Matched bool   `json:"matched"`
	MatchID string `json:"matchId,omitempty"`
}
