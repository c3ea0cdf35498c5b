// Package bus fans state-change envelopes out to live subscribers. Delivery
// is best effort: a failing subscriber is dropped without failing or blocking
// the publish, and late joiners bootstrap from the phase cache.
package bus

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
	"github.com/tiger/traffic-signal-controller/internal/metrics"
)

// Subscriber receives published envelopes. Send must be safe to call from the
// publisher's goroutine; an error marks the subscriber dead.
type Subscriber interface {
	Send(env trafficv1.Envelope) error
}

// Hub is the in-process broadcast bus.
type Hub struct {
	log     *zap.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	subscribers map[string]Subscriber
	order       []string
}

// NewHub constructs an empty hub.
func NewHub(log *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		log:         log,
		metrics:     m,
		subscribers: map[string]Subscriber{},
	}
}

// Subscribe registers a subscriber and returns its handle.
func (h *Hub) Subscribe(s Subscriber) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.subscribers[id] = s
	h.order = append(h.order, id)
	h.metrics.Subscribers.Set(float64(len(h.subscribers)))
	h.mu.Unlock()
	h.log.Debug("subscriber joined", zap.String("subscriber_id", id))
	return id
}

// Unsubscribe removes a subscriber; unknown handles are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	h.removeLocked(id)
	h.mu.Unlock()
}

// Publish delivers an envelope to every live subscriber in subscription
// order. Failed deliveries drop the subscriber silently.
func (h *Hub) Publish(env trafficv1.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var dead []string
	for _, id := range h.order {
		sub, ok := h.subscribers[id]
		if !ok {
			continue
		}
		if err := sub.Send(env); err != nil {
			h.log.Debug("dropping subscriber", zap.String("subscriber_id", id), zap.Error(err))
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		h.removeLocked(id)
	}
	h.metrics.BroadcastsTotal.Inc()
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) removeLocked(id string) {
	if _, ok := h.subscribers[id]; !ok {
		return
	}
	delete(h.subscribers, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	h.metrics.Subscribers.Set(float64(len(h.subscribers)))
}
