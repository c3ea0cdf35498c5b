package bus

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
	"github.com/tiger/traffic-signal-controller/internal/metrics"
)

type recordingSubscriber struct {
	name string
	sink *[]string
	fail bool
}

func (r *recordingSubscriber) Send(env trafficv1.Envelope) error {
	if r.fail {
		return errors.New("gone")
	}
	*r.sink = append(*r.sink, r.name)
	return nil
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	return NewHub(zap.NewNop(), metrics.New(prometheus.NewRegistry()))
}

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	t.Parallel()

	h := newTestHub(t)
	var got []string
	h.Subscribe(&recordingSubscriber{name: "a", sink: &got})
	h.Subscribe(&recordingSubscriber{name: "b", sink: &got})
	h.Subscribe(&recordingSubscriber{name: "c", sink: &got})

	h.Publish(trafficv1.StateUpdateEnvelope(1, trafficv1.SignalState{Status: trafficv1.ColorRed}))

	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("delivery order = %v", got)
	}
}

func TestPublishDropsFailingSubscriber(t *testing.T) {
	t.Parallel()

	h := newTestHub(t)
	var got []string
	h.Subscribe(&recordingSubscriber{name: "a", sink: &got})
	h.Subscribe(&recordingSubscriber{name: "dead", sink: &got, fail: true})
	h.Subscribe(&recordingSubscriber{name: "c", sink: &got})

	env := trafficv1.StateUpdateEnvelope(1, trafficv1.SignalState{Status: trafficv1.ColorGreen})
	h.Publish(env)
	if h.SubscriberCount() != 2 {
		t.Fatalf("subscriber count after drop = %d, want 2", h.SubscriberCount())
	}
	// The failure must not prevent delivery to later subscribers.
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("delivery after failure = %v", got)
	}

	got = got[:0]
	h.Publish(env)
	if len(got) != 2 {
		t.Fatalf("second publish delivered %d, want 2", len(got))
	}
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	h := newTestHub(t)
	var got []string
	id := h.Subscribe(&recordingSubscriber{name: "a", sink: &got})
	h.Subscribe(&recordingSubscriber{name: "b", sink: &got})

	h.Unsubscribe(id)
	if h.SubscriberCount() != 1 {
		t.Fatalf("subscriber count = %d, want 1", h.SubscriberCount())
	}
	h.Unsubscribe(id) // unknown handle is a no-op
	h.Unsubscribe("not-a-handle")

	h.Publish(trafficv1.StateUpdateEnvelope(1, trafficv1.SignalState{Status: trafficv1.ColorRed}))
	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("delivery after unsubscribe = %v", got)
	}
}
