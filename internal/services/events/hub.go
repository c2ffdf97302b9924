package events

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/interfaces"
)

const subscriberBuffer = 64

// Hub is the in-process event fan-out. Delivery is best-effort: a
// subscriber that stops draining its channel loses events rather than
// blocking publishers, since everything flowing through here is advisory
// telemetry.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int]chan interfaces.Event
	nextID      int
	logger      arbor.ILogger
}

var _ interfaces.EventService = (*Hub)(nil)

// NewHub creates an event hub.
func NewHub(logger arbor.ILogger) *Hub {
	return &Hub{
		subscribers: make(map[int]chan interfaces.Event),
		logger:      logger,
	}
}

// Publish fans the event out to all current subscribers, stamping the
// timestamp when the caller left it zero.
func (h *Hub) Publish(event interfaces.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.logger.Debug().
				Int("subscriber", id).
				Str("event_type", string(event.Type)).
				Msg("Subscriber buffer full, dropping event")
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel function. Cancel is idempotent and closes the channel.
func (h *Hub) Subscribe() (<-chan interfaces.Event, func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	ch := make(chan interfaces.Event, subscriberBuffer)
	h.subscribers[id] = ch
	h.mu.Unlock()

	h.logger.Debug().Int("subscriber", id).Msg("Event subscriber registered")

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()
			close(ch)
			h.logger.Debug().Int("subscriber", id).Msg("Event subscriber removed")
		})
	}
	return ch, cancel
}
