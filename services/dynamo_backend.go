package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"vibin_client/models"
	"vibin_client/utils"
)

// DynamoTables names the tables the backend reads and writes.
type DynamoTables struct {
	Users        string
	Interactions string
	Matches      string
	Messages     string
}

func DefaultDynamoTables() DynamoTables {
	return DynamoTables{
		Users:        models.UserProfilesTable,
		Interactions: models.InteractionsTable,
		Matches:      models.MatchesTable,
		Messages:     models.MessagesTable,
	}
}

// DynamoBackend serves discovery and chat straight from DynamoDB.
//
// Users is keyed by userId, Interactions by (senderId, receiverId), Matches by
// matchId and Messages by (matchId, createdAt).
type DynamoBackend struct {
	Dynamo       *DynamoService
	Tables       DynamoTables
	MessageLimit int32

	now   func() time.Time
	newID func() string
}

func NewDynamoBackend(ds *DynamoService, tables DynamoTables, messageLimit int32) *DynamoBackend {
	return &DynamoBackend{
		Dynamo:       ds,
		Tables:       tables,
		MessageLimit: messageLimit,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// Discover returns every profile the viewer has not acted on yet.
func (b *DynamoBackend) Discover(ctx context.Context, viewerID string) ([]models.RawProfile, error) {
	acted, err := b.interactionsFrom(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	exclude := map[string]struct{}{viewerID: {}}
	for _, in := range acted {
		exclude[in.ReceiverID] = struct{}{}
	}

	var profiles []models.RawProfile
	err = b.Dynamo.ScanWithFilter(ctx, b.Tables.Users, func(item map[string]types.AttributeValue) bool {
		id := utils.ExtractString(item, "userId")
		_, excluded := exclude[id]
		return id != "" && !excluded
	}, nil, &profiles)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate profiles: %w", err)
	}

	b.Dynamo.Logger.Info().Str("viewer_id", viewerID).Int("candidates", len(profiles)).Msg("✅ candidates fetched")
	return profiles, nil
}

// Like records the like and creates a match when the target already liked
// the viewer. Liking again after a match returns the same match.
func (b *DynamoBackend) Like(ctx context.Context, viewerID, targetID string) (models.LikeResult, error) {
	createdAt := b.now().UTC().Format(models.TimestampLayout)

	like := models.Interaction{
		SenderID:        viewerID,
		ReceiverID:      targetID,
		InteractionType: models.InteractionTypeLike,
		Status:          models.StatusPending,
		CreatedAt:       createdAt,
	}

	var reverse models.Interaction
	err := b.Dynamo.GetItem(ctx, b.Tables.Interactions, interactionKey(targetID, viewerID), &reverse)
	switch {
	case errors.Is(err, ErrItemNotFound):
		return models.LikeResult{}, b.Dynamo.PutItem(ctx, b.Tables.Interactions, like)
	case err != nil:
		return models.LikeResult{}, fmt.Errorf("failed to fetch reverse interaction: %w", err)
	case reverse.InteractionType != models.InteractionTypeLike:
		return models.LikeResult{}, b.Dynamo.PutItem(ctx, b.Tables.Interactions, like)
	case reverse.MatchID != nil:
		like.Status = models.StatusMatch
		like.MatchID = reverse.MatchID
		if err := b.Dynamo.PutItem(ctx, b.Tables.Interactions, like); err != nil {
			return models.LikeResult{}, err
		}
		return models.LikeResult{Matched: true, MatchID: *reverse.MatchID}, nil
	}

	matchID := b.newID()
	match := models.Match{
		MatchID:   matchID,
		Users:     []string{viewerID, targetID},
		Type:      models.ChatTypePrivate,
		Status:    models.MatchStatusActive,
		CreatedAt: createdAt,
	}
	if err := b.Dynamo.PutItem(ctx, b.Tables.Matches, match); err != nil {
		return models.LikeResult{}, fmt.Errorf("failed to create match: %w", err)
	}

	like.Status = models.StatusMatch
	like.MatchID = &matchID
	if err := b.Dynamo.PutItem(ctx, b.Tables.Interactions, like); err != nil {
		return models.LikeResult{}, err
	}
	err = b.Dynamo.UpdateItem(ctx, b.Tables.Interactions,
		"SET #status = :status, matchId = :matchId",
		interactionKey(targetID, viewerID),
		map[string]types.AttributeValue{
			":status":  &types.AttributeValueMemberS{Value: models.StatusMatch},
			":matchId": &types.AttributeValueMemberS{Value: matchID},
		},
		map[string]string{"#status": "status"},
	)
	if err != nil {
		return models.LikeResult{}, err
	}

	b.Dynamo.Logger.Info().Str("viewer_id", viewerID).Str("target_id", targetID).Str("match_id", matchID).Msg("💖 match created")
	return models.LikeResult{Matched: true, MatchID: matchID}, nil
}

// Pass records a dislike so the target is not discovered again.
func (b *DynamoBackend) Pass(ctx context.Context, viewerID, targetID string) error {
	return b.Dynamo.PutItem(ctx, b.Tables.Interactions, models.Interaction{
		SenderID:        viewerID,
		ReceiverID:      targetID,
		InteractionType: models.InteractionTypeDislike,
		Status:          models.StatusPending,
		CreatedAt:       b.now().UTC().Format(models.TimestampLayout),
	})
}

// LoadConversation returns the other participant and the latest messages,
// oldest first.
func (b *DynamoBackend) LoadConversation(ctx context.Context, matchID, viewerID string) (models.ConversationSnapshot, error) {
	var match models.Match
	if err := b.Dynamo.GetItem(ctx, b.Tables.Matches, utils.StringKey("matchId", matchID), &match); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return models.ConversationSnapshot{}, fmt.Errorf("%w: match %s not found", ErrIncompleteData, matchID)
		}
		return models.ConversationSnapshot{}, err
	}

	otherID, ok := otherParticipant(match.Users, viewerID)
	if !ok {
		return models.ConversationSnapshot{}, fmt.Errorf("%w: match %s has no other party for %s", ErrIncompleteData, matchID, viewerID)
	}

	var profile models.RawProfile
	if err := b.Dynamo.GetItem(ctx, b.Tables.Users, utils.StringKey("userId", otherID), &profile); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return models.ConversationSnapshot{}, fmt.Errorf("%w: profile %s not found", ErrIncompleteData, otherID)
		}
		return models.ConversationSnapshot{}, err
	}
	age, _ := utils.AgeFromDOB(models.DateOfBirthLayout, profile.DOB, b.now())

	messages, err := b.latestMessages(ctx, matchID)
	if err != nil {
		return models.ConversationSnapshot{}, err
	}

	return models.ConversationSnapshot{
		OtherParty: models.OtherParty{ID: otherID, Name: profile.Name, Age: age, Online: profile.Online},
		Messages:   messages,
	}, nil
}

// SendMessage stores a new message and returns it as stored.
func (b *DynamoBackend) SendMessage(ctx context.Context, out models.OutgoingMessage) (models.RawMessage, error) {
	raw := models.RawMessage{
		MatchID:   out.MatchID,
		CreatedAt: b.now().UTC().Format(models.TimestampLayout),
		MessageID: b.newID(),
		SenderID:  out.AuthorID,
		Kind:      out.Kind,
		Content:   out.Content,
		Duration:  out.Duration,
		AudioKey:  out.AudioKey,
		IsUnread:  true,
	}
	if err := b.Dynamo.PutItem(ctx, b.Tables.Messages, raw); err != nil {
		return models.RawMessage{}, fmt.Errorf("failed to store message: %w", err)
	}
	return raw, nil
}

// MarkRead clears isUnread on the given messages received by viewerID.
func (b *DynamoBackend) MarkRead(ctx context.Context, matchID, viewerID string, messageIDs []string) error {
	want := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = struct{}{}
	}

	items, err := b.queryMessages(ctx, matchID, 0)
	if err != nil {
		return err
	}

	var errs []error
	for _, item := range items {
		id := utils.ExtractString(item, "messageId")
		if _, ok := want[id]; !ok || utils.ExtractString(item, "senderId") == viewerID || !utils.ExtractBool(item, "isUnread") {
			continue
		}
		key := map[string]types.AttributeValue{
			"matchId":   item["matchId"],
			"createdAt": item["createdAt"],
		}
		err := b.Dynamo.UpdateItem(ctx, b.Tables.Messages, "SET isUnread = :false", key,
			map[string]types.AttributeValue{":false": &types.AttributeValueMemberBOOL{Value: false}}, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("message %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// queryMessages returns up to limit raw items, latest first. Zero reads the
// whole partition.
func (b *DynamoBackend) queryMessages(ctx context.Context, matchID string, limit int32) ([]map[string]types.AttributeValue, error) {
	items, err := b.Dynamo.QueryItemsWithOptions(ctx, b.Tables.Messages,
		"#matchId = :pk",
		map[string]types.AttributeValue{":pk": &types.AttributeValueMemberS{Value: matchID}},
		map[string]string{"#matchId": "matchId"},
		limit, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return items, nil
}

func (b *DynamoBackend) latestMessages(ctx context.Context, matchID string) ([]models.RawMessage, error) {
	items, err := b.queryMessages(ctx, matchID, b.MessageLimit)
	if err != nil {
		return nil, err
	}

	var messages []models.RawMessage
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}
	// Latest-first from the query, oldest-first for the timeline.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (b *DynamoBackend) interactionsFrom(ctx context.Context, viewerID string) ([]models.Interaction, error) {
	items, err := b.Dynamo.QueryItemsWithOptions(ctx, b.Tables.Interactions,
		"#senderId = :pk",
		map[string]types.AttributeValue{":pk": &types.AttributeValueMemberS{Value: viewerID}},
		map[string]string{"#senderId": "senderId"},
		0, false)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch interactions: %w", err)
	}
	var acted []models.Interaction
	if err := attributevalue.UnmarshalListOfMaps(items, &acted); err != nil {
		return nil, fmt.Errorf("failed to parse interactions: %w", err)
	}
	return acted, nil
}

func interactionKey(senderID, receiverID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"senderId":   &types.AttributeValueMemberS{Value: senderID},
		"receiverId": &types.AttributeValueMemberS{Value: receiverID},
	}
}

func otherParticipant(users []string, viewerID string) (string, bool) {
	member := false
	other := ""
	for _, u := range users {
		if u == viewerID {
			member = true
		} else if other == "" {
			other = u
		}
	}
	return other, member && other != ""
}

// Seed writes profiles to the Users table.
func (b *DynamoBackend) Seed(ctx context.Context, profiles []models.RawProfile) error {
	items := make([]interface{}, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, p)
	}
	if err := b.Dynamo.BatchPutItems(ctx, b.Tables.Users, items); err != nil {
		return err
	}
	b.Dynamo.Logger.Info().Int("profiles", len(profiles)).Str("table", b.Tables.Users).Msg("🌱 profiles seeded")
	return nil
}
