package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vibin_client/models"
)

// localIDPrefix marks ids generated for optimistic sends.
const localIDPrefix = "local-"

// ConversationView is the render-ready state of a conversation.
type ConversationView struct {
	MatchID          string            `json:"matchId"`
	OtherParty       models.OtherParty `json:"otherParty"`
	Messages         []models.Message  `json:"messages"`
	IsTyping         bool              `json:"isTyping"`
	UnreadCount      int               `json:"unreadCount"`
	OtherPartyOnline bool              `json:"otherPartyOnline"`
}

// SendRequest is what the viewer composes.
type SendRequest struct {
	Kind     models.MessageKind `json:"kind"`
	Content  string             `json:"content,omitempty"`
	Duration float64            `json:"duration,omitempty"`
	AudioKey string             `json:"audioKey,omitempty"`
}

func (r SendRequest) normalize() (SendRequest, error) {
	if r.Kind == "" {
		r.Kind = models.MessageKindText
	}
	switch r.Kind {
	case models.MessageKindText:
		if strings.TrimSpace(r.Content) == "" {
			return r, fmt.Errorf("%w: text message needs content", ErrInvalidMessage)
		}
	case models.MessageKindVoice:
		if r.Duration < 0 || math.IsNaN(r.Duration) || math.IsInf(r.Duration, 0) {
			return r, fmt.Errorf("%w: voice duration must be >= 0", ErrInvalidMessage)
		}
	default:
		return r, fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, r.Kind)
	}
	return r, nil
}

// ConversationOption configures a Conversation.
type ConversationOption func(*Conversation)

func WithConversationClock(c clockwork.Clock) ConversationOption {
	return func(cv *Conversation) { cv.clock = c }
}

func WithConversationLogger(l zerolog.Logger) ConversationOption {
	return func(cv *Conversation) { cv.logger = l }
}

// WithConversationObserver registers fn to receive a fresh view after every
// change to the timeline or typing state. fn runs outside the lock.
func WithConversationObserver(fn func(ConversationView)) ConversationOption {
	return func(cv *Conversation) { cv.observer = fn }
}

// WithNotifier subscribes the conversation to out-of-band events for its
// match until Close.
func WithNotifier(n Notifier) ConversationOption {
	return func(cv *Conversation) { cv.notifier = n }
}

// WithTypingTimeout bounds how long a typing notice without a following
// message keeps the indicator on. Zero disables the bound.
func WithTypingTimeout(d time.Duration) ConversationOption {
	return func(cv *Conversation) { cv.typingTimeout = d }
}

// Conversation keeps one match's timeline sorted by timestamp with unique ids
// while merging hydrated, locally sent and incoming messages.
type Conversation struct {
	transport     MessageTransport
	notifier      Notifier
	matchID       string
	viewerID      string
	clock         clockwork.Clock
	logger        zerolog.Logger
	observer      func(ConversationView)
	typingTimeout time.Duration

	// publishMu keeps observer calls in state order.
	publishMu sync.Mutex

	mu           sync.Mutex
	other        models.OtherParty
	messages     []models.Message
	typingNotice bool
	typingTimer  clockwork.Timer
	typingGen    uint64
	arrivals     map[uint64]clockwork.Timer
	nextArrival  uint64
	closed       bool
	unsubscribe  func()
}

// OpenConversation hydrates the conversation for matchID from the transport.
// Any failure, including a malformed message, fails the whole open.
func OpenConversation(ctx context.Context, transport MessageTransport, matchID, viewerID string, opts ...ConversationOption) (*Conversation, error) {
	if matchID == "" || viewerID == "" {
		return nil, fmt.Errorf("%w: match id and viewer id are required", ErrIncompleteData)
	}

	c := &Conversation{
		transport:     transport,
		matchID:       matchID,
		viewerID:      viewerID,
		clock:         clockwork.NewRealClock(),
		logger:        log.Logger.With().Str("component", "conversation").Logger(),
		typingTimeout: 8 * time.Second,
		arrivals:      map[uint64]clockwork.Timer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("match_id", matchID).Str("viewer_id", viewerID).Logger()

	snap, err := transport.LoadConversation(ctx, matchID, viewerID)
	if err != nil {
		c.logger.Error().Err(err).Msg("❌ failed to load conversation")
		return nil, transportError("load conversation "+matchID, err)
	}
	if snap.OtherParty.ID == "" {
		return nil, fmt.Errorf("%w: conversation %s has no other party", ErrIncompleteData, matchID)
	}

	messages := make([]models.Message, 0, len(snap.Messages))
	seen := make(map[string]struct{}, len(snap.Messages))
	for _, raw := range snap.Messages {
		msg, err := messageFromRaw(raw)
		if err != nil {
			return nil, fmt.Errorf("load conversation %s: %w", matchID, err)
		}
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		messages = append(messages, msg)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	c.other = snap.OtherParty
	c.messages = messages

	if c.notifier != nil {
		events, cancel := c.notifier.Subscribe(matchID)
		c.unsubscribe = cancel
		go c.consume(events)
	}

	c.logger.Info().Int("messages", len(messages)).Msg("✅ conversation opened")
	return c, nil
}

func (c *Conversation) MatchID() string { return c.matchID }

// Send appends a pending message right away and then asks the transport to
// deliver it. On success the entry is confirmed in place. On failure the
// entry stays, flagged as failed, and a *SendError is returned.
func (c *Conversation) Send(ctx context.Context, req SendRequest) (models.Message, error) {
	req, err := req.normalize()
	if err != nil {
		return models.Message{}, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return models.Message{}, fmt.Errorf("%w: conversation closed", ErrInvalidState)
	}
	ts := c.clock.Now()
	if n := len(c.messages); n > 0 && ts.Before(c.messages[n-1].Timestamp) {
		ts = c.messages[n-1].Timestamp
	}
	msg := models.Message{
		ID:        localIDPrefix + uuid.NewString(),
		AuthorID:  c.viewerID,
		Kind:      req.Kind,
		Content:   req.Content,
		Duration:  req.Duration,
		AudioKey:  req.AudioKey,
		Timestamp: ts,
		State:     models.DeliveryPending,
		Read:      true,
	}
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	c.publish()
	return c.deliver(ctx, msg)
}

// Resend re-issues a failed message in place. It is only ever user
// initiated.
func (c *Conversation) Resend(ctx context.Context, messageID string) (models.Message, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return models.Message{}, fmt.Errorf("%w: conversation closed", ErrInvalidState)
	}
	idx := c.indexLocked(messageID)
	if idx < 0 || !c.messages[idx].Failed || c.messages[idx].State != models.DeliveryPending {
		c.mu.Unlock()
		return models.Message{}, fmt.Errorf("%w: message %s is not a failed send", ErrInvalidState, messageID)
	}
	c.messages[idx].Failed = false
	msg := c.messages[idx]
	c.mu.Unlock()

	c.publish()
	return c.deliver(ctx, msg)
}

func (c *Conversation) deliver(ctx context.Context, msg models.Message) (models.Message, error) {
	raw, err := c.transport.SendMessage(ctx, models.OutgoingMessage{
		MatchID:  c.matchID,
		AuthorID: c.viewerID,
		Kind:     msg.Kind,
		Content:  msg.Content,
		Duration: msg.Duration,
		AudioKey: msg.AudioKey,
	})

	c.mu.Lock()
	idx := c.indexLocked(msg.ID)
	if c.closed || idx < 0 {
		c.mu.Unlock()
		if err != nil {
			msg.Failed = true
			return msg, &SendError{Message: msg, Err: transportError("send", err)}
		}
		return msg, nil
	}
	if err != nil {
		c.messages[idx].Failed = true
		failed := c.messages[idx]
		c.mu.Unlock()

		messagesSentTotal.WithLabelValues(string(msg.Kind), "error").Inc()
		c.logger.Error().Err(err).Str("message_id", msg.ID).Msg("❌ failed to send message")
		c.publish()
		return failed, &SendError{Message: failed, Err: transportError("send", err)}
	}
	confirmed := c.confirmLocked(idx, raw)
	c.mu.Unlock()

	messagesSentTotal.WithLabelValues(string(msg.Kind), "ok").Inc()
	c.logger.Debug().Str("local_id", msg.ID).Str("message_id", confirmed.ID).Msg("📩 message confirmed")
	c.publish()
	return confirmed, nil
}

// confirmLocked turns the pending entry at idx into its confirmed form without
// moving it. If the confirmed id is already on the timeline (an echo arrived
// first) the pending entry is dropped instead.
func (c *Conversation) confirmLocked(idx int, raw models.RawMessage) models.Message {
	entry := c.messages[idx]
	if raw.MessageID != "" && raw.MessageID != entry.ID {
		if other := c.indexLocked(raw.MessageID); other >= 0 {
			c.messages = append(c.messages[:idx], c.messages[idx+1:]...)
			if other > idx {
				other--
			}
			c.messages[other].State = models.DeliveryConfirmed
			return c.messages[other]
		}
		entry.ID = raw.MessageID
	}
	entry.State = models.DeliveryConfirmed
	entry.Failed = false

	if ts, err := parseTimestamp(raw.CreatedAt); err == nil {
		if idx > 0 && ts.Before(c.messages[idx-1].Timestamp) {
			ts = c.messages[idx-1].Timestamp
		}
		if idx+1 < len(c.messages) && ts.After(c.messages[idx+1].Timestamp) {
			ts = c.messages[idx+1].Timestamp
		}
		entry.Timestamp = ts
	}
	c.messages[idx] = entry
	return entry
}

// ReceiveRemote merges a message pushed by the transport. It is placed by
// timestamp, after any entries with the same timestamp. A known id is a
// no-op. The typing indicator is cleared.
func (c *Conversation) ReceiveRemote(raw models.RawMessage) error {
	msg, err := c.acceptIncoming(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	inserted := c.insertLocked(msg)
	c.clearTypingNoticeLocked()
	c.mu.Unlock()

	if inserted {
		messagesReceivedTotal.WithLabelValues("remote").Inc()
	}
	c.publish()
	return nil
}

// ReceiveSimulated shows the typing indicator for delay and then merges the
// message. A zero delay merges immediately. Close cancels pending arrivals.
// Only the other party can be simulated.
func (c *Conversation) ReceiveSimulated(raw models.RawMessage, delay time.Duration) error {
	msg, err := c.acceptIncoming(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: conversation closed", ErrInvalidState)
	}
	if msg.AuthorID != c.other.ID {
		c.mu.Unlock()
		return fmt.Errorf("%w: simulated message must come from %s, not %s", ErrInvalidMessage, c.other.ID, msg.AuthorID)
	}
	if delay <= 0 {
		inserted := c.insertLocked(msg)
		c.clearTypingNoticeLocked()
		c.mu.Unlock()
		if inserted {
			messagesReceivedTotal.WithLabelValues("simulated").Inc()
		}
		c.publish()
		return nil
	}
	c.nextArrival++
	id := c.nextArrival
	c.arrivals[id] = c.clock.AfterFunc(delay, func() { c.completeArrival(id, msg) })
	c.mu.Unlock()

	c.publish()
	return nil
}

func (c *Conversation) completeArrival(id uint64, msg models.Message) {
	c.mu.Lock()
	if _, ok := c.arrivals[id]; c.closed || !ok {
		c.mu.Unlock()
		return
	}
	delete(c.arrivals, id)
	inserted := c.insertLocked(msg)
	c.clearTypingNoticeLocked()
	c.mu.Unlock()

	if inserted {
		messagesReceivedTotal.WithLabelValues("simulated").Inc()
	}
	c.publish()
}

// NoticeTyping turns the typing indicator on until the next incoming message
// or the typing timeout, whichever comes first.
func (c *Conversation) NoticeTyping() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.typingNotice = true
	c.stopTypingTimerLocked()
	if c.typingTimeout > 0 {
		gen := c.typingGen
		c.typingTimer = c.clock.AfterFunc(c.typingTimeout, func() { c.expireTyping(gen) })
	}
	c.mu.Unlock()

	c.publish()
}

func (c *Conversation) expireTyping(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.typingGen || !c.typingNotice {
		c.mu.Unlock()
		return
	}
	c.typingNotice = false
	c.typingTimer = nil
	c.mu.Unlock()

	c.publish()
}

// MarkRead flags the given other-party messages as read and returns how many
// changed. Already-read ids and the viewer's own messages are ignored, and a
// closed conversation changes nothing. When the transport keeps read
// receipts, the change is forwarded best-effort.
func (c *Conversation) MarkRead(ctx context.Context, messageIDs ...string) int {
	want := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = struct{}{}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	var changed []string
	for i := range c.messages {
		m := &c.messages[i]
		if _, ok := want[m.ID]; !ok || m.AuthorID == c.viewerID || m.Read {
			continue
		}
		m.Read = true
		changed = append(changed, m.ID)
	}
	c.mu.Unlock()

	if len(changed) == 0 {
		return 0
	}
	c.publish()

	if sink, ok := c.transport.(ReadReceiptSink); ok {
		if err := sink.MarkRead(ctx, c.matchID, c.viewerID, changed); err != nil {
			c.logger.Warn().Err(err).Int("count", len(changed)).Msg("⚠️ read receipt not delivered")
		}
	}
	return len(changed)
}

// MarkAllRead marks every other-party message read.
func (c *Conversation) MarkAllRead(ctx context.Context) int {
	c.mu.Lock()
	ids := make([]string, 0, len(c.messages))
	for _, m := range c.messages {
		if m.AuthorID != c.viewerID && !m.Read {
			ids = append(ids, m.ID)
		}
	}
	c.mu.Unlock()
	return c.MarkRead(ctx, ids...)
}

// Messages returns a copy of the timeline, oldest first.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Message(nil), c.messages...)
}

func (c *Conversation) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unreadLocked()
}

func (c *Conversation) IsTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typingLocked()
}

func (c *Conversation) View() ConversationView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Close tears the conversation down: pending arrivals and the typing timeout
// are cancelled, the notifier subscription ends, and late transport results
// are dropped. Close is idempotent.
func (c *Conversation) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for id, t := range c.arrivals {
		t.Stop()
		delete(c.arrivals, id)
	}
	c.stopTypingTimerLocked()
	c.typingNotice = false
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return nil
}

func (c *Conversation) consume(events <-chan models.ChatEvent) {
	for ev := range events {
		switch ev.Type {
		case models.ChatEventTyping:
			c.NoticeTyping()
		case models.ChatEventMessage:
			if ev.Message == nil {
				continue
			}
			if err := c.ReceiveRemote(*ev.Message); err != nil {
				c.logger.Warn().Err(err).Msg("⚠️ dropping incoming message")
			}
		}
	}
}

func (c *Conversation) acceptIncoming(raw models.RawMessage) (models.Message, error) {
	if raw.MatchID != "" && raw.MatchID != c.matchID {
		return models.Message{}, fmt.Errorf("%w: message for match %s delivered to %s", ErrInvalidState, raw.MatchID, c.matchID)
	}
	return messageFromRaw(raw)
}

// insertLocked places msg after the last entry whose timestamp is not later
// than msg's. It reports false if the id is already present.
func (c *Conversation) insertLocked(msg models.Message) bool {
	if c.indexLocked(msg.ID) >= 0 {
		return false
	}
	pos := sort.Search(len(c.messages), func(i int) bool {
		return c.messages[i].Timestamp.After(msg.Timestamp)
	})
	c.messages = append(c.messages, models.Message{})
	copy(c.messages[pos+1:], c.messages[pos:])
	c.messages[pos] = msg
	return true
}

func (c *Conversation) indexLocked(id string) int {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Conversation) clearTypingNoticeLocked() {
	c.typingNotice = false
	c.stopTypingTimerLocked()
}

func (c *Conversation) stopTypingTimerLocked() {
	c.typingGen++
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
}

func (c *Conversation) typingLocked() bool {
	return c.typingNotice || len(c.arrivals) > 0
}

func (c *Conversation) unreadLocked() int {
	n := 0
	for _, m := range c.messages {
		if m.AuthorID != c.viewerID && !m.Read {
			n++
		}
	}
	return n
}

func (c *Conversation) viewLocked() ConversationView {
	return ConversationView{
		MatchID:          c.matchID,
		OtherParty:       c.other,
		Messages:         append([]models.Message{}, c.messages...),
		IsTyping:         c.typingLocked(),
		UnreadCount:      c.unreadLocked(),
		OtherPartyOnline: c.other.Online,
	}
}

func (c *Conversation) publish() {
	if c.observer == nil {
		return
	}
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	v := c.viewLocked()
	c.mu.Unlock()
	c.observer(v)
}

func messageFromRaw(raw models.RawMessage) (models.Message, error) {
	if raw.MessageID == "" || raw.SenderID == "" {
		return models.Message{}, fmt.Errorf("%w: message is missing id or sender", ErrIncompleteData)
	}
	ts, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: message %s: %v", ErrIncompleteData, raw.MessageID, err)
	}
	kind := raw.Kind
	if kind == "" {
		kind = models.MessageKindText
	}
	switch kind {
	case models.MessageKindText:
		if raw.Content == "" {
			return models.Message{}, fmt.Errorf("%w: text message %s has no content", ErrIncompleteData, raw.MessageID)
		}
	case models.MessageKindVoice:
		if raw.Duration < 0 {
			return models.Message{}, fmt.Errorf("%w: voice message %s has negative duration", ErrIncompleteData, raw.MessageID)
		}
	default:
		return models.Message{}, fmt.Errorf("%w: message %s has unknown kind %q", ErrIncompleteData, raw.MessageID, kind)
	}
	return models.Message{
		ID:        raw.MessageID,
		AuthorID:  raw.SenderID,
		Kind:      kind,
		Content:   raw.Content,
		Duration:  raw.Duration,
		AudioKey:  raw.AudioKey,
		Timestamp: ts,
		State:     models.DeliveryConfirmed,
		Read:      !raw.IsUnread,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
