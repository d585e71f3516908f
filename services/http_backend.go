package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"vibin_client/models"
)

// HTTPBackend talks to a remote vibin API over REST.
type HTTPBackend struct {
	client *resty.Client
	logger zerolog.Logger
}

// NewHTTPBackend creates a backend rooted at baseURL.
func NewHTTPBackend(baseURL string, timeout time.Duration, logger zerolog.Logger) *HTTPBackend {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &HTTPBackend{client: c, logger: logger}
}

type interactionRequest struct {
	SenderID        string `json:"senderId"`
	ReceiverID      string `json:"receiverId"`
	InteractionType string `json:"interactionType"`
}

type markReadRequest struct {
	MatchID    string   `json:"matchId"`
	UserID     string   `json:"userId"`
	MessageIDs []string `json:"messageIds"`
}

type apiError struct {
	Error string `json:"error"`
}

func (b *HTTPBackend) Discover(ctx context.Context, viewerID string) ([]models.RawProfile, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("userId", viewerID).
		Get("/api/profile/suggestions")
	if err := b.check("discover", resp, err); err != nil {
		return nil, err
	}

	var profiles []models.RawProfile
	if err := json.Unmarshal(resp.Body(), &profiles); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return profiles, nil
}

func (b *HTTPBackend) Like(ctx context.Context, viewerID, targetID string) (models.LikeResult, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(&interactionRequest{SenderID: viewerID, ReceiverID: targetID, InteractionType: models.InteractionTypeLike}).
		Post("/api/interactions")
	if err := b.check("like", resp, err); err != nil {
		return models.LikeResult{}, err
	}

	var res models.LikeResult
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return models.LikeResult{}, fmt.Errorf("decode like result: %w", err)
	}
	return res, nil
}

func (b *HTTPBackend) Pass(ctx context.Context, viewerID, targetID string) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(&interactionRequest{SenderID: viewerID, ReceiverID: targetID, InteractionType: models.InteractionTypeDislike}).
		Post("/api/interactions")
	return b.check("pass", resp, err)
}

func (b *HTTPBackend) LoadConversation(ctx context.Context, matchID, viewerID string) (models.ConversationSnapshot, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"matchId": matchID, "userId": viewerID}).
		Get("/api/chat/conversation")
	if err := b.check("load conversation", resp, err); err != nil {
		return models.ConversationSnapshot{}, err
	}

	var snap models.ConversationSnapshot
	if err := json.Unmarshal(resp.Body(), &snap); err != nil {
		return models.ConversationSnapshot{}, fmt.Errorf("decode conversation: %w", err)
	}
	return snap, nil
}

func (b *HTTPBackend) SendMessage(ctx context.Context, out models.OutgoingMessage) (models.RawMessage, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(&out).
		Post("/api/chat/message")
	if err := b.check("send message", resp, err); err != nil {
		return models.RawMessage{}, err
	}

	var raw models.RawMessage
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return models.RawMessage{}, fmt.Errorf("decode sent message: %w", err)
	}
	return raw, nil
}

func (b *HTTPBackend) MarkRead(ctx context.Context, matchID, viewerID string, messageIDs []string) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(&markReadRequest{MatchID: matchID, UserID: viewerID, MessageIDs: messageIDs}).
		Post("/api/chat/messages/mark-as-read")
	return b.check("mark read", resp, err)
}

// check turns a failed call into an error. A 422 means the server holds an
// incomplete record; every other failure is left for the engines to treat as
// the transport being unavailable.
func (b *HTTPBackend) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		b.logger.Error().Err(err).Str("op", op).Msg("❌ request failed")
		return fmt.Errorf("%s request: %w", op, err)
	}
	if resp.IsSuccess() {
		return nil
	}

	msg := resp.String()
	var body apiError
	if json.Unmarshal(resp.Body(), &body) == nil && body.Error != "" {
		msg = body.Error
	}
	b.logger.Warn().Str("op", op).Int("status", resp.StatusCode()).Str("error", msg).Msg("⚠️ request rejected")

	if resp.StatusCode() == http.StatusUnprocessableEntity {
		return fmt.Errorf("%s: %w: %s", op, ErrIncompleteData, msg)
	}
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), msg)
}
