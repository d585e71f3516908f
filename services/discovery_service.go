package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vibin_client/models"
)

// DiscoveryState is the phase of a discovery queue.
type DiscoveryState int

const (
	DiscoveryUninitialized DiscoveryState = iota
	DiscoveryIdle
	DiscoverySubmitting
	DiscoveryHolding
	DiscoveryExhausted
)

func (s DiscoveryState) String() string {
	switch s {
	case DiscoveryUninitialized:
		return "uninitialized"
	case DiscoveryIdle:
		return "idle"
	case DiscoverySubmitting:
		return "submitting"
	case DiscoveryHolding:
		return "holding"
	case DiscoveryExhausted:
		return "exhausted"
	}
	return fmt.Sprintf("DiscoveryState(%d)", int(s))
}

// ActionOutcome is the resolution of a like.
type ActionOutcome struct {
	Matched bool   `json:"matched"`
	MatchID string `json:"matchId,omitempty"`
}

// DiscoveryView is the render-ready state of a queue.
type DiscoveryView struct {
	State        string            `json:"state"`
	Current      *models.Candidate `json:"currentCandidate"`
	IsSubmitting bool              `json:"isSubmitting"`
	IsHolding    bool              `json:"isHolding"`
	HoldMatched  bool              `json:"holdMatched"`
	IsExhausted  bool              `json:"isExhausted"`
	Position     int               `json:"position"`
	Total        int               `json:"total"`
	LastOutcome  *ActionOutcome    `json:"lastOutcome,omitempty"`
}

// DiscoveryOption configures a DiscoveryEngine.
type DiscoveryOption func(*DiscoveryEngine)

// WithDiscoveryClock replaces the wall clock used for hold timers.
func WithDiscoveryClock(c clockwork.Clock) DiscoveryOption {
	return func(e *DiscoveryEngine) { e.clock = c }
}

// WithHoldDurations sets how long a resolved like stays on screen before the
// queue advances. Zero advances immediately.
func WithHoldDurations(match, like time.Duration) DiscoveryOption {
	return func(e *DiscoveryEngine) {
		e.matchHold = match
		e.likeHold = like
	}
}

func WithDiscoveryLogger(l zerolog.Logger) DiscoveryOption {
	return func(e *DiscoveryEngine) { e.logger = l }
}

// WithDiscoveryObserver registers fn to receive a fresh view after every
// state change. fn runs outside the engine lock.
func WithDiscoveryObserver(fn func(DiscoveryView)) DiscoveryOption {
	return func(e *DiscoveryEngine) { e.observer = fn }
}

// DiscoveryEngine drives one viewer's swipe queue:
//
//	Idle(i) -> Submitting(i) -> Holding(i) -> Idle(i+1) | Exhausted
//
// A failed like returns to Idle(i). A pass always advances.
type DiscoveryEngine struct {
	source   CandidateSource
	viewerID string
	clock    clockwork.Clock
	logger   zerolog.Logger
	observer func(DiscoveryView)

	matchHold time.Duration
	likeHold  time.Duration

	// publishMu keeps observer calls in state order.
	publishMu sync.Mutex

	mu          sync.Mutex
	queue       []models.Candidate
	cursor      int
	state       DiscoveryState
	holdMatched bool
	hold        clockwork.Timer
	holdGen     uint64
	lastOutcome *ActionOutcome
	closed      bool
}

// NewDiscoveryEngine returns an uninitialized engine for viewerID. Call Load
// or Initialize before submitting actions.
func NewDiscoveryEngine(source CandidateSource, viewerID string, opts ...DiscoveryOption) *DiscoveryEngine {
	e := &DiscoveryEngine{
		source:   source,
		viewerID: viewerID,
		clock:    clockwork.NewRealClock(),
		logger:   log.Logger.With().Str("component", "discovery").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("viewer_id", viewerID).Logger()
	return e
}

// Load fetches candidates from the source and initializes the queue with the
// ones that convert cleanly. A discover failure leaves the engine
// uninitialized so the caller can try again.
func (e *DiscoveryEngine) Load(ctx context.Context) error {
	e.mu.Lock()
	if err := e.checkInitializableLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	raws, err := e.source.Discover(ctx, e.viewerID)
	if err != nil {
		e.logger.Error().Err(err).Msg("❌ discover failed")
		return transportError("discover candidates", err)
	}

	now := e.clock.Now()
	candidates := make([]models.Candidate, 0, len(raws))
	for _, raw := range raws {
		c, err := NewCandidate(raw, now)
		if err != nil {
			e.logger.Warn().Err(err).Str("user_id", raw.UserID).Msg("⚠️ skipping profile")
			continue
		}
		candidates = append(candidates, c)
	}

	e.logger.Info().Int("fetched", len(raws)).Int("queued", len(candidates)).Msg("✅ discovery queue loaded")
	return e.Initialize(candidates)
}

// Initialize builds the queue at cursor 0. An empty list goes straight to
// Exhausted. Order is kept exactly as given.
func (e *DiscoveryEngine) Initialize(candidates []models.Candidate) error {
	e.mu.Lock()
	if err := e.checkInitializableLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.queue = append([]models.Candidate(nil), candidates...)
	e.cursor = 0
	if len(e.queue) == 0 {
		e.state = DiscoveryExhausted
	} else {
		e.state = DiscoveryIdle
	}
	e.mu.Unlock()

	e.publish()
	return nil
}

func (e *DiscoveryEngine) checkInitializableLocked() error {
	if e.closed {
		return fmt.Errorf("%w: discovery closed", ErrInvalidState)
	}
	if e.state != DiscoveryUninitialized {
		return fmt.Errorf("%w: queue already initialized", ErrInvalidState)
	}
	return nil
}

// Current returns the candidate on screen. It returns false when the queue is
// exhausted or not initialized.
func (e *DiscoveryEngine) Current() (models.Candidate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentLocked()
}

func (e *DiscoveryEngine) currentLocked() (models.Candidate, bool) {
	if e.state == DiscoveryUninitialized || e.state == DiscoveryExhausted {
		return models.Candidate{}, false
	}
	return e.queue[e.cursor], true
}

func (e *DiscoveryEngine) State() DiscoveryState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SubmitPass signals a pass on the current candidate and advances. The pass
// call is best-effort: its failure is logged and never returned.
func (e *DiscoveryEngine) SubmitPass(ctx context.Context) error {
	target, err := e.beginSubmit()
	if err != nil {
		return err
	}

	if err := e.source.Pass(ctx, e.viewerID, target.ID); err != nil {
		discoveryActionsTotal.WithLabelValues("pass", "error").Inc()
		e.logger.Warn().Err(err).Str("target_id", target.ID).Msg("⚠️ pass signal lost, advancing anyway")
	} else {
		discoveryActionsTotal.WithLabelValues("pass", "ok").Inc()
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.advanceLocked()
	e.mu.Unlock()

	e.publish()
	return nil
}

// SubmitLike likes the current candidate. On transport failure the candidate
// stays current and the error is returned. On success the engine holds the
// candidate for the match or like hold before advancing.
func (e *DiscoveryEngine) SubmitLike(ctx context.Context) (ActionOutcome, error) {
	target, err := e.beginSubmit()
	if err != nil {
		return ActionOutcome{}, err
	}

	result, err := e.source.Like(ctx, e.viewerID, target.ID)
	if err == nil && result.Matched && result.MatchID == "" {
		err = fmt.Errorf("%w: match with %s has no match id", ErrIncompleteData, target.ID)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		if err != nil {
			return ActionOutcome{}, transportError("like "+target.ID, err)
		}
		return ActionOutcome{Matched: result.Matched, MatchID: result.MatchID}, nil
	}
	if err != nil {
		e.state = DiscoveryIdle
		e.mu.Unlock()

		discoveryActionsTotal.WithLabelValues("like", "error").Inc()
		e.logger.Error().Err(err).Str("target_id", target.ID).Msg("❌ like failed, candidate kept")
		e.publish()
		return ActionOutcome{}, transportError("like "+target.ID, err)
	}

	outcome := ActionOutcome{Matched: result.Matched, MatchID: result.MatchID}
	e.lastOutcome = &outcome
	delay := e.likeHold
	if outcome.Matched {
		delay = e.matchHold
	}
	if delay <= 0 {
		e.advanceLocked()
	} else {
		e.startHoldLocked(delay, outcome.Matched)
	}
	e.mu.Unlock()

	discoveryActionsTotal.WithLabelValues("like", "ok").Inc()
	if outcome.Matched {
		matchesTotal.Inc()
		e.logger.Info().Str("target_id", target.ID).Str("match_id", outcome.MatchID).Msg("💖 it's a match")
	}
	e.publish()
	return outcome, nil
}

// ContinueFromHold ends a running hold early and advances the queue.
func (e *DiscoveryEngine) ContinueFromHold() error {
	e.mu.Lock()
	if e.closed || e.state != DiscoveryHolding {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("%w: no hold to continue from (state %s)", ErrInvalidState, state)
	}
	e.stopHoldLocked()
	e.advanceLocked()
	e.mu.Unlock()

	e.publish()
	return nil
}

// Close abandons the queue: a running hold is cancelled and results of
// in-flight calls are dropped. Close is idempotent.
func (e *DiscoveryEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.stopHoldLocked()
	return nil
}

// View returns the render-ready state.
func (e *DiscoveryEngine) View() DiscoveryView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *DiscoveryEngine) viewLocked() DiscoveryView {
	v := DiscoveryView{
		State:        e.state.String(),
		IsSubmitting: e.state == DiscoverySubmitting,
		IsHolding:    e.state == DiscoveryHolding,
		HoldMatched:  e.state == DiscoveryHolding && e.holdMatched,
		IsExhausted:  e.state == DiscoveryExhausted,
		Position:     e.cursor,
		Total:        len(e.queue),
	}
	if c, ok := e.currentLocked(); ok {
		v.Current = &c
	}
	if e.lastOutcome != nil {
		o := *e.lastOutcome
		v.LastOutcome = &o
	}
	return v
}

func (e *DiscoveryEngine) beginSubmit() (models.Candidate, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return models.Candidate{}, fmt.Errorf("%w: discovery closed", ErrInvalidState)
	}
	if e.state != DiscoveryIdle {
		state := e.state
		e.mu.Unlock()
		return models.Candidate{}, fmt.Errorf("%w: cannot submit while %s", ErrInvalidState, state)
	}
	e.state = DiscoverySubmitting
	target := e.queue[e.cursor]
	e.mu.Unlock()

	e.publish()
	return target, nil
}

func (e *DiscoveryEngine) startHoldLocked(delay time.Duration, matched bool) {
	e.state = DiscoveryHolding
	e.holdMatched = matched
	e.holdGen++
	gen := e.holdGen
	e.hold = e.clock.AfterFunc(delay, func() { e.finishHold(gen) })
}

func (e *DiscoveryEngine) finishHold(gen uint64) {
	e.mu.Lock()
	if e.closed || gen != e.holdGen || e.state != DiscoveryHolding {
		e.mu.Unlock()
		return
	}
	e.hold = nil
	e.advanceLocked()
	e.mu.Unlock()

	e.publish()
}

func (e *DiscoveryEngine) stopHoldLocked() {
	e.holdGen++
	if e.hold != nil {
		e.hold.Stop()
		e.hold = nil
	}
}

func (e *DiscoveryEngine) advanceLocked() {
	e.cursor++
	e.holdMatched = false
	if e.cursor >= len(e.queue) {
		e.cursor = len(e.queue)
		e.state = DiscoveryExhausted
		e.logger.Info().Int("total", len(e.queue)).Msg("🏁 discovery queue exhausted")
		return
	}
	e.state = DiscoveryIdle
}

func (e *DiscoveryEngine) publish() {
	if e.observer == nil {
		return
	}
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	e.mu.Lock()
	v := e.viewLocked()
	e.mu.Unlock()
	e.observer(v)
}
