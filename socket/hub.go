package socket

import (
	"sync"

	"github.com/rs/zerolog"

	"vibin_client/models"
)

// Hub is an in-process pub/sub of chat events keyed by match id. Publishing
// never blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	buffer int
	logger zerolog.Logger

	mu     sync.Mutex
	subs   map[string]map[uint64]chan models.ChatEvent
	nextID uint64
}

// NewHub creates a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int, logger zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		buffer: buffer,
		logger: logger,
		subs:   map[string]map[uint64]chan models.ChatEvent{},
	}
}

// Subscribe returns the event stream for matchID and a cancel func that
// closes it. Cancel is safe to call more than once.
func (h *Hub) Subscribe(matchID string) (<-chan models.ChatEvent, func()) {
	ch := make(chan models.ChatEvent, h.buffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[matchID] == nil {
		h.subs[matchID] = map[uint64]chan models.ChatEvent{}
	}
	h.subs[matchID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[matchID], id)
			if len(h.subs[matchID]) == 0 {
				delete(h.subs, matchID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish fans ev out to every subscriber of ev.MatchID and returns how many
// received it.
func (h *Hub) Publish(ev models.ChatEvent) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, ch := range h.subs[ev.MatchID] {
		select {
		case ch <- ev:
			delivered++
		default:
			notificationsDroppedTotal.Inc()
			h.logger.Warn().Str("match_id", ev.MatchID).Str("type", string(ev.Type)).Msg("⚠️ subscriber buffer full, event dropped")
		}
	}
	return delivered
}

// Subscribers reports the number of live subscriptions for matchID.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[matchID])
}
