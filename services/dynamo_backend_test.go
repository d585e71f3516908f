package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibin_client/models"
	"vibin_client/utils"
)

var backendNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestDynamoBackend(t *testing.T) (*DynamoBackend, *fakeDynamo) {
	t.Helper()
	fake := newFakeDynamo()
	b := NewDynamoBackend(&DynamoService{Client: fake, Logger: zerolog.Nop()}, DefaultDynamoTables(), 100)

	tick := backendNow
	b.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	seq := 0
	b.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return b, fake
}

func seedProfiles(t *testing.T, b *DynamoBackend, profiles ...models.RawProfile) {
	t.Helper()
	require.NoError(t, b.Seed(context.Background(), profiles))
}

func TestDynamoBackend_DiscoverExcludesViewerAndActedOn(t *testing.T) {
	b, _ := newTestDynamoBackend(t)
	ctx := context.Background()
	seedProfiles(t, b,
		models.RawProfile{UserID: "viewer", Name: "Viewer", DOB: "1995-01-01"},
		models.RawProfile{UserID: "ana", Name: "Ana", DOB: "1996-02-02"},
		models.RawProfile{UserID: "ben", Name: "Ben", DOB: "1994-03-03"},
		models.RawProfile{UserID: "cleo", Name: "Cleo", DOB: "1993-04-04"},
	)

	require.NoError(t, b.Pass(ctx, "viewer", "ben"))
	_, err := b.Like(ctx, "viewer", "cleo")
	require.NoError(t, err)

	profiles, err := b.Discover(ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "ana", profiles[0].UserID)
	assert.Equal(t, "1996-02-02", profiles[0].DOB)
}

func TestDynamoBackend_LikeWithoutReverseIsPending(t *testing.T) {
	b, fake := newTestDynamoBackend(t)

	res, err := b.Like(context.Background(), "viewer", "ana")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Empty(t, res.MatchID)

	item := fake.item(models.InteractionsTable, interactionKey("viewer", "ana"))
	require.NotNil(t, item)
	assert.Equal(t, models.InteractionTypeLike, utils.ExtractString(item, "interactionType"))
	assert.Equal(t, models.StatusPending, utils.ExtractString(item, "status"))
	assert.Zero(t, fake.count(models.MatchesTable))
}

func TestDynamoBackend_MutualLikeCreatesMatch(t *testing.T) {
	b, fake := newTestDynamoBackend(t)
	ctx := context.Background()

	_, err := b.Like(ctx, "ana", "viewer")
	require.NoError(t, err)

	res, err := b.Like(ctx, "viewer", "ana")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "id-1", res.MatchID)

	var match models.Match
	require.NoError(t, b.Dynamo.GetItem(ctx, models.MatchesTable, utils.StringKey("matchId", "id-1"), &match))
	assert.ElementsMatch(t, []string{"viewer", "ana"}, match.Users)

	reverse := fake.item(models.InteractionsTable, interactionKey("ana", "viewer"))
	assert.Equal(t, models.StatusMatch, utils.ExtractString(reverse, "status"))
	assert.Equal(t, "id-1", utils.ExtractString(reverse, "matchId"))

	again, err := b.Like(ctx, "ana", "viewer")
	require.NoError(t, err)
	assert.Equal(t, res, again)
	assert.Equal(t, 1, fake.count(models.MatchesTable))
}

func TestDynamoBackend_LikeAfterPassDoesNotMatch(t *testing.T) {
	b, fake := newTestDynamoBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Pass(ctx, "ana", "viewer"))
	res, err := b.Like(ctx, "viewer", "ana")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Zero(t, fake.count(models.MatchesTable))
}

func TestDynamoBackend_LikeSurfacesStorageErrors(t *testing.T) {
	b, fake := newTestDynamoBackend(t)
	fake.fail["GetItem"] = errors.New("throttled")

	_, err := b.Like(context.Background(), "viewer", "ana")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	assert.False(t, IsIncompleteData(err))
}

func TestDynamoBackend_ConversationRoundTrip(t *testing.T) {
	b, _ := newTestDynamoBackend(t)
	ctx := context.Background()
	seedProfiles(t, b, models.RawProfile{UserID: "ana", Name: "Ana", DOB: "2000-03-15", Online: true})

	_, err := b.Like(ctx, "ana", "viewer")
	require.NoError(t, err)
	res, err := b.Like(ctx, "viewer", "ana")
	require.NoError(t, err)

	first, err := b.SendMessage(ctx, models.OutgoingMessage{MatchID: res.MatchID, AuthorID: "ana", Kind: models.MessageKindText, Content: "hey"})
	require.NoError(t, err)
	second, err := b.SendMessage(ctx, models.OutgoingMessage{MatchID: res.MatchID, AuthorID: "viewer", Kind: models.MessageKindVoice, Duration: 3.5, AudioKey: "voice/1.m4a"})
	require.NoError(t, err)
	assert.NotEqual(t, first.MessageID, second.MessageID)
	assert.True(t, first.IsUnread)

	snap, err := b.LoadConversation(ctx, res.MatchID, "viewer")
	require.NoError(t, err)
	assert.Equal(t, models.OtherParty{ID: "ana", Name: "Ana", Age: 24, Online: true}, snap.OtherParty)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, first.MessageID, snap.Messages[0].MessageID)
	assert.Equal(t, second.MessageID, snap.Messages[1].MessageID)
	assert.Equal(t, 3.5, snap.Messages[1].Duration)

	// The stored form must hydrate cleanly.
	_, err = messageFromRaw(snap.Messages[0])
	require.NoError(t, err)
}

func TestDynamoBackend_LoadConversationIncomplete(t *testing.T) {
	b, fake := newTestDynamoBackend(t)
	ctx := context.Background()

	_, err := b.LoadConversation(ctx, "missing", "viewer")
	assert.ErrorIs(t, err, ErrIncompleteData)

	require.NoError(t, b.Dynamo.PutItem(ctx, models.MatchesTable, models.Match{MatchID: "m1", Users: []string{"ana", "ben"}}))
	_, err = b.LoadConversation(ctx, "m1", "viewer")
	assert.ErrorIs(t, err, ErrIncompleteData, "viewer is not part of the match")

	_, err = b.LoadConversation(ctx, "m1", "ana")
	assert.ErrorIs(t, err, ErrIncompleteData, "other party has no profile")

	fake.fail["GetItem"] = errors.New("connection reset")
	_, err = b.LoadConversation(ctx, "m1", "ana")
	require.Error(t, err)
	assert.False(t, IsIncompleteData(err))
}

func TestDynamoBackend_MarkReadOnlyTouchesReceivedMessages(t *testing.T) {
	b, fake := newTestDynamoBackend(t)
	ctx := context.Background()

	theirs, err := b.SendMessage(ctx, models.OutgoingMessage{MatchID: "m1", AuthorID: "ana", Kind: models.MessageKindText, Content: "hi"})
	require.NoError(t, err)
	mine, err := b.SendMessage(ctx, models.OutgoingMessage{MatchID: "m1", AuthorID: "viewer", Kind: models.MessageKindText, Content: "yo"})
	require.NoError(t, err)

	require.NoError(t, b.MarkRead(ctx, "m1", "viewer", []string{theirs.MessageID, mine.MessageID}))

	key := func(m models.RawMessage) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{
			"matchId":   &types.AttributeValueMemberS{Value: m.MatchID},
			"createdAt": &types.AttributeValueMemberS{Value: m.CreatedAt},
		}
	}
	assert.False(t, utils.ExtractBool(fake.item(models.MessagesTable, key(theirs)), "isUnread"))
	assert.True(t, utils.ExtractBool(fake.item(models.MessagesTable, key(mine)), "isUnread"))
}

func TestDynamoBackend_SeedBatchesOf25(t *testing.T) {
	b, fake := newTestDynamoBackend(t)

	profiles := make([]models.RawProfile, 30)
	for i := range profiles {
		profiles[i] = models.RawProfile{UserID: fmt.Sprintf("u%02d", i), Name: "U", DOB: "1990-01-01"}
	}
	seedProfiles(t, b, profiles...)

	assert.Equal(t, 2, fake.batches)
	assert.Equal(t, 30, fake.count(models.UserProfilesTable))
}

func TestDynamoBackend_DrivesDiscoveryEngine(t *testing.T) {
	b, _ := newTestDynamoBackend(t)
	seedProfiles(t, b,
		models.RawProfile{UserID: "ana", Name: "Ana", DOB: "1996-02-02"},
		models.RawProfile{UserID: "broken", Name: "", DOB: "1996-02-02"},
	)

	engine := NewDiscoveryEngine(b, "viewer", WithHoldDurations(0, 0), WithDiscoveryLogger(zerolog.Nop()))
	require.NoError(t, engine.Load(context.Background()))

	current, ok := engine.Current()
	require.True(t, ok)
	assert.Equal(t, "ana", current.ID)

	_, err := engine.SubmitLike(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DiscoveryExhausted, engine.State())
}

func TestDynamoBackend_LoadConversationReadsStringUnread(t *testing.T) {
	b, fake := newTestDynamoBackend(t)
	ctx := context.Background()
	seedProfiles(t, b, models.RawProfile{UserID: "ana", Name: "Ana", DOB: "2000-03-15"})
	_, err := b.Like(ctx, "ana", "viewer")
	require.NoError(t, err)
	res, err := b.Like(ctx, "viewer", "ana")
	require.NoError(t, err)

	legacy := func(id string, sec int, unread string) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{
			"matchId":   &types.AttributeValueMemberS{Value: res.MatchID},
			"createdAt": &types.AttributeValueMemberS{Value: backendNow.Add(time.Duration(sec-3600) * time.Second).Format(models.TimestampLayout)},
			"messageId": &types.AttributeValueMemberS{Value: id},
			"senderId":  &types.AttributeValueMemberS{Value: "ana"},
			"content":   &types.AttributeValueMemberS{Value: "from " + id},
			"isUnread":  &types.AttributeValueMemberS{Value: unread},
		}
	}
	fake.mu.Lock()
	fake.put(models.MessagesTable, legacy("old-1", 0, "true"))
	fake.put(models.MessagesTable, legacy("old-2", 1, "false"))
	fake.mu.Unlock()

	snap, err := b.LoadConversation(ctx, res.MatchID, "viewer")
	require.NoError(t, err)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "old-1", snap.Messages[0].MessageID)
	assert.True(t, snap.Messages[0].IsUnread)
	assert.False(t, snap.Messages[1].IsUnread)

	require.NoError(t, b.MarkRead(ctx, res.MatchID, "viewer", []string{"old-1"}))
	snap, err = b.LoadConversation(ctx, res.MatchID, "viewer")
	require.NoError(t, err)
	assert.False(t, snap.Messages[0].IsUnread)
}

func TestDynamoBackend_LoadConversationRejectsBadUnread(t *testing.T) {
	b, fake := newTestDynamoBackend(t)
	fake.mu.Lock()
	fake.put(models.MessagesTable, map[string]types.AttributeValue{
		"matchId":   &types.AttributeValueMemberS{Value: "m1"},
		"createdAt": &types.AttributeValueMemberS{Value: backendNow.Format(models.TimestampLayout)},
		"messageId": &types.AttributeValueMemberS{Value: "x"},
		"isUnread":  &types.AttributeValueMemberS{Value: "maybe"},
	})
	fake.mu.Unlock()

	_, err := b.latestMessages(context.Background(), "m1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maybe")
}

func TestDynamoBackend_DiscoverFollowsInteractionPages(t *testing.T) {
	b, fake := newTestDynamoBackend(t)
	fake.pageSize = 1
	ctx := context.Background()
	seedProfiles(t, b,
		models.RawProfile{UserID: "viewer", Name: "Viewer", DOB: "1995-01-01"},
		models.RawProfile{UserID: "ana", Name: "Ana", DOB: "1996-02-02"},
		models.RawProfile{UserID: "ben", Name: "Ben", DOB: "1994-03-03"},
		models.RawProfile{UserID: "cleo", Name: "Cleo", DOB: "1993-04-04"},
	)
	require.NoError(t, b.Pass(ctx, "viewer", "ben"))
	_, err := b.Like(ctx, "viewer", "cleo")
	require.NoError(t, err)

	profiles, err := b.Discover(ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "ana", profiles[0].UserID)
}

func TestDynamoBackend_MarkReadReachesPastMessageLimit(t *testing.T) {
	b, fake := newTestDynamoBackend(t)
	b.MessageLimit = 2
	fake.pageSize = 2
	ctx := context.Background()

	var sent []models.RawMessage
	for i := 0; i < 5; i++ {
		m, err := b.SendMessage(ctx, models.OutgoingMessage{MatchID: "m1", AuthorID: "ana", Kind: models.MessageKindText, Content: fmt.Sprintf("msg %d", i)})
		require.NoError(t, err)
		sent = append(sent, m)
	}

	latest, err := b.latestMessages(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, sent[3].MessageID, latest[0].MessageID)
	assert.Equal(t, sent[4].MessageID, latest[1].MessageID)

	require.NoError(t, b.MarkRead(ctx, "m1", "viewer", []string{sent[0].MessageID}))
	oldest := fake.item(models.MessagesTable, map[string]types.AttributeValue{
		"matchId":   &types.AttributeValueMemberS{Value: "m1"},
		"createdAt": &types.AttributeValueMemberS{Value: sent[0].CreatedAt},
	})
	assert.False(t, utils.ExtractBool(oldest, "isUnread"))
	assert.True(t, utils.ExtractBool(fake.item(models.MessagesTable, map[string]types.AttributeValue{
		"matchId":   &types.AttributeValueMemberS{Value: "m1"},
		"createdAt": &types.AttributeValueMemberS{Value: sent[1].CreatedAt},
	}), "isUnread"))
}
