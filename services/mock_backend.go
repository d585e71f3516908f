package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vibin_client/models"
)

// EventPublisher fans chat events out to open conversations. *socket.Hub
// implements it.
type EventPublisher interface {
	Publish(ev models.ChatEvent) int
}

type MockOption func(*MockBackend)

func WithMockClock(c clockwork.Clock) MockOption {
	return func(m *MockBackend) { m.clock = c }
}

func WithMockLogger(l zerolog.Logger) MockOption {
	return func(m *MockBackend) { m.logger = l }
}

// WithMockPublisher makes the mock answer sent messages: the other party
// starts typing after half the reply delay and replies after the full delay.
func WithMockPublisher(p EventPublisher, replyDelay time.Duration) MockOption {
	return func(m *MockBackend) {
		m.publisher = p
		m.replyDelay = replyDelay
	}
}

// WithMockMatchRate sets the chance in [0, 1] that a like is mutual.
func WithMockMatchRate(rate float64) MockOption {
	return func(m *MockBackend) { m.matchRate = rate }
}

// MockBackend is an in-memory CandidateSource and MessageTransport with
// generated profiles. The same seed yields the same profiles and outcomes.
type MockBackend struct {
	clock      clockwork.Clock
	logger     zerolog.Logger
	publisher  EventPublisher
	replyDelay time.Duration
	matchRate  float64

	mu        sync.Mutex
	rng       *rand.Rand
	profiles  []models.RawProfile
	byID      map[string]int
	acted     map[string]map[string]string
	matches   map[string]models.Match
	pairs     map[string]string
	messages  map[string][]models.RawMessage
	timers    map[uint64]clockwork.Timer
	nextTimer uint64
	closed    bool
}

// NewMockBackend generates count profiles from seed.
func NewMockBackend(seed int64, count int, opts ...MockOption) *MockBackend {
	m := &MockBackend{
		clock:     clockwork.NewRealClock(),
		logger:    log.Logger.With().Str("component", "mock_backend").Logger(),
		matchRate: 0.5,
		rng:       rand.New(rand.NewSource(seed)),
		byID:      map[string]int{},
		acted:     map[string]map[string]string{},
		matches:   map[string]models.Match{},
		pairs:     map[string]string{},
		messages:  map[string][]models.RawMessage{},
		timers:    map[uint64]clockwork.Timer{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.AddProfiles(GenerateProfiles(m.rng, count, m.clock.Now())...)
	return m
}

// AddProfiles makes profiles discoverable. A known user id is replaced.
func (m *MockBackend) AddProfiles(profiles ...models.RawProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range profiles {
		if i, ok := m.byID[p.UserID]; ok {
			m.profiles[i] = p
			continue
		}
		m.byID[p.UserID] = len(m.profiles)
		m.profiles = append(m.profiles, p)
	}
}

func (m *MockBackend) Discover(ctx context.Context, viewerID string) ([]models.RawProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.RawProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		if p.UserID == viewerID {
			continue
		}
		if _, done := m.acted[viewerID][p.UserID]; done {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *MockBackend) Like(ctx context.Context, viewerID, targetID string) (models.LikeResult, error) {
	if err := ctx.Err(); err != nil {
		return models.LikeResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recordLocked(viewerID, targetID, models.InteractionTypeLike)
	pair := pairKey(viewerID, targetID)
	if id, ok := m.pairs[pair]; ok {
		return models.LikeResult{Matched: true, MatchID: id}, nil
	}

	mutual := m.acted[targetID][viewerID] == models.InteractionTypeLike
	if !mutual && m.rng.Float64() >= m.matchRate {
		return models.LikeResult{}, nil
	}

	id := uuid.NewString()
	m.matches[id] = models.Match{
		MatchID:   id,
		Users:     []string{viewerID, targetID},
		Type:      models.ChatTypePrivate,
		Status:    models.MatchStatusActive,
		CreatedAt: m.clock.Now().UTC().Format(models.TimestampLayout),
	}
	m.pairs[pair] = id
	m.logger.Info().Str("viewer_id", viewerID).Str("target_id", targetID).Str("match_id", id).Msg("💖 mock match")
	return models.LikeResult{Matched: true, MatchID: id}, nil
}

func (m *MockBackend) Pass(ctx context.Context, viewerID, targetID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordLocked(viewerID, targetID, models.InteractionTypeDislike)
	return nil
}

func (m *MockBackend) recordLocked(viewerID, targetID, kind string) {
	if m.acted[viewerID] == nil {
		m.acted[viewerID] = map[string]string{}
	}
	m.acted[viewerID][targetID] = kind
}

func (m *MockBackend) LoadConversation(ctx context.Context, matchID, viewerID string) (models.ConversationSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.ConversationSnapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	match, ok := m.matches[matchID]
	if !ok {
		return models.ConversationSnapshot{}, fmt.Errorf("%w: match %s not found", ErrIncompleteData, matchID)
	}
	otherID, ok := otherParticipant(match.Users, viewerID)
	if !ok {
		return models.ConversationSnapshot{}, fmt.Errorf("%w: match %s has no other party for %s", ErrIncompleteData, matchID, viewerID)
	}
	other := models.OtherParty{ID: otherID, Name: otherID}
	if i, ok := m.byID[otherID]; ok {
		p := m.profiles[i]
		other.Name = p.Name
		other.Online = p.Online
		other.Age, _ = ageOf(p, m.clock.Now())
	}

	return models.ConversationSnapshot{
		OtherParty: other,
		Messages:   append([]models.RawMessage(nil), m.messages[matchID]...),
	}, nil
}

func (m *MockBackend) SendMessage(ctx context.Context, out models.OutgoingMessage) (models.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return models.RawMessage{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	match, ok := m.matches[out.MatchID]
	if !ok {
		return models.RawMessage{}, fmt.Errorf("%w: match %s not found", ErrIncompleteData, out.MatchID)
	}
	raw := m.storeLocked(models.RawMessage{
		MatchID:  out.MatchID,
		SenderID: out.AuthorID,
		Kind:     out.Kind,
		Content:  out.Content,
		Duration: out.Duration,
		AudioKey: out.AudioKey,
	})

	if otherID, ok := otherParticipant(match.Users, out.AuthorID); ok && m.publisher != nil && !m.closed {
		if _, generated := m.byID[otherID]; generated {
			m.scheduleReplyLocked(out.MatchID, otherID, out.Kind)
		}
	}
	return raw, nil
}

func (m *MockBackend) MarkRead(ctx context.Context, matchID, viewerID string, messageIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	want := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages[matchID] {
		msg := &m.messages[matchID][i]
		if _, ok := want[msg.MessageID]; ok && msg.SenderID != viewerID {
			msg.IsUnread = false
		}
	}
	return nil
}

// Close cancels scheduled replies.
func (m *MockBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	return nil
}

func (m *MockBackend) storeLocked(raw models.RawMessage) models.RawMessage {
	raw.MessageID = uuid.NewString()
	raw.CreatedAt = m.clock.Now().UTC().Format(models.TimestampLayout)
	raw.IsUnread = true
	m.messages[raw.MatchID] = append(m.messages[raw.MatchID], raw)
	return raw
}

func (m *MockBackend) scheduleReplyLocked(matchID, authorID string, to models.MessageKind) {
	content := mockReplies[m.rng.Intn(len(mockReplies))]
	if to == models.MessageKindVoice {
		content = mockVoiceReplies[m.rng.Intn(len(mockVoiceReplies))]
	}

	m.afterLocked(m.replyDelay/2, func() {
		m.publisher.Publish(models.ChatEvent{Type: models.ChatEventTyping, MatchID: matchID})
	})
	m.afterLocked(m.replyDelay, func() {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		reply := m.storeLocked(models.RawMessage{
			MatchID:  matchID,
			SenderID: authorID,
			Kind:     models.MessageKindText,
			Content:  content,
		})
		m.mu.Unlock()

		m.publisher.Publish(models.ChatEvent{Type: models.ChatEventMessage, MatchID: matchID, Message: &reply})
		m.logger.Debug().Str("match_id", matchID).Str("message_id", reply.MessageID).Msg("📩 mock reply")
	})
}

// afterLocked runs fn after d unless Close comes first.
func (m *MockBackend) afterLocked(d time.Duration, fn func()) {
	m.nextTimer++
	id := m.nextTimer
	m.timers[id] = m.clock.AfterFunc(d, func() {
		m.mu.Lock()
		_, live := m.timers[id]
		delete(m.timers, id)
		m.mu.Unlock()
		if live {
			fn()
		}
	})
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func ageOf(p models.RawProfile, now time.Time) (int, error) {
	c, err := NewCandidate(p, now)
	return c.Age, err
}

var (
	mockNames = []string{
		"Ava", "Noah", "Mia", "Liam", "Zoe", "Ethan", "Isla", "Mateo",
		"Priya", "Kai", "Lena", "Omar", "Sofia", "Jonah", "Aiko", "Ruben",
	}
	mockColors = []string{"#FF6B6B", "#4ECDC4", "#FFD93D", "#6C5CE7", "#A8E6CF", "#FF8B94"}

	mockCategories = map[string][]string{
		"About me":     {"My simple pleasures", "I geek out on", "A shower thought I recently had"},
		"Let's chat":   {"Let's debate this topic", "Teach me something about", "Ask me about"},
		"Date vibes":   {"My ideal first date", "Green flags I look for", "We'll get along if"},
		"Storytelling": {"Most spontaneous thing I've done", "Two truths and a lie", "Worst idea I've ever had"},
	}
	mockCategoryOrder = []string{"About me", "Let's chat", "Date vibes", "Storytelling"}

	mockAnswers = []string{
		"Sunday markets and strong coffee",
		"Vintage synthesizers",
		"Whether a hot dog is a sandwich",
		"A picnic that turns into a concert",
		"Booked a one-way ticket to Lisbon",
		"Sourdough, obviously",
	}

	mockLifestyle = map[string][]string{
		models.FacetDrinking:  {"Never", "Socially", "Often"},
		models.FacetSmoking:   {"Never", "Sometimes"},
		models.FacetCannabis:  {"Never", "Socially"},
		models.FacetWorkout:   {"Daily", "Often", "Sometimes", "Never"},
		models.FacetPets:      {"Dog", "Cat", "None", "Want one"},
		models.FacetChildren:  {"Want someday", "Don't want", "Have kids", "Not sure"},
		models.FacetDiet:      {"Omnivore", "Vegetarian", "Vegan", "Pescatarian"},
		models.FacetReligion:  {"Agnostic", "Spiritual", "Christian", "Muslim", "Jewish", "Hindu"},
		models.FacetEducation: {"High school", "Bachelors", "Masters", "PhD"},
	}
	mockFacetOrder = []string{
		models.FacetDrinking, models.FacetSmoking, models.FacetCannabis,
		models.FacetWorkout, models.FacetPets, models.FacetChildren,
		models.FacetDiet, models.FacetReligion, models.FacetEducation,
	}

	mockReplies = []string{
		"Haha, tell me more!",
		"That's so funny, I was just thinking the same thing",
		"Okay you have my attention 👀",
		"What are you up to this weekend?",
	}
	mockVoiceReplies = []string{
		"Love your voice!",
		"Okay that voice note made my day",
	}
)

// GenerateProfiles builds n plausible profiles from rng. Ages fall between
// 21 and 40 as of now. Most lifestyle facets are filled in, some are left
// unspecified.
func GenerateProfiles(rng *rand.Rand, n int, now time.Time) []models.RawProfile {
	profiles := make([]models.RawProfile, 0, n)
	for i := 0; i < n; i++ {
		age := 21 + rng.Intn(20)
		dob := now.AddDate(-age, 0, -1-rng.Intn(300))

		var categories []models.RawCategory
		for _, name := range mockCategoryOrder {
			if rng.Intn(3) == 0 {
				continue
			}
			category := models.RawCategory{Name: name, Color: mockColors[rng.Intn(len(mockColors))]}
			for _, q := range mockCategories[name] {
				if rng.Intn(2) == 0 {
					continue
				}
				category.Prompts = append(category.Prompts, models.RawPrompt{
					Question: q,
					Answer:   mockAnswers[rng.Intn(len(mockAnswers))],
					HasAudio: rng.Intn(4) == 0,
				})
			}
			categories = append(categories, category)
		}

		lifestyle := map[string]string{}
		for _, facet := range mockFacetOrder {
			if rng.Intn(4) == 0 {
				continue
			}
			values := mockLifestyle[facet]
			lifestyle[facet] = values[rng.Intn(len(values))]
		}

		profiles = append(profiles, models.RawProfile{
			UserID:     fmt.Sprintf("mock-%03d", i+1),
			Name:       mockNames[rng.Intn(len(mockNames))],
			DOB:        dob.Format(models.DateOfBirthLayout),
			Color:      mockColors[rng.Intn(len(mockColors))],
			Categories: categories,
			Lifestyle:  lifestyle,
			Online:     rng.Intn(2) == 0,
		})
	}
	return profiles
}
