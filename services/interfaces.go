package services

import (
	"context"

	"vibin_client/models"
)

// CandidateSource is the discovery backend.
type CandidateSource interface {
	Discover(ctx context.Context, viewerID string) ([]models.RawProfile, error)
	Like(ctx context.Context, viewerID, targetID string) (models.LikeResult, error)
	// Pass is best-effort; callers log failures and move on.
	Pass(ctx context.Context, viewerID, targetID string) error
}

// MessageTransport is the chat backend.
type MessageTransport interface {
	LoadConversation(ctx context.Context, matchID, viewerID string) (models.ConversationSnapshot, error)
	SendMessage(ctx context.Context, msg models.OutgoingMessage) (models.RawMessage, error)
}

// ReadReceiptSink is implemented by transports that persist read state.
type ReadReceiptSink interface {
	MarkRead(ctx context.Context, matchID, viewerID string, messageIDs []string) error
}

// Notifier delivers out-of-band chat events for a match. The returned cancel
// func closes the subscription.
type Notifier interface {
	Subscribe(matchID string) (<-chan models.ChatEvent, func())
}
