package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ruteri/reputation-registry/events"
)

// EventCounter counts emitted events by type. It is an events.Subscriber.
type EventCounter struct {
	total   *prometheus.CounterVec
	lastSeq prometheus.Gauge
}

// NewEventCounter creates and registers the event collectors.
func NewEventCounter(namespace string, reg prometheus.Registerer) (*EventCounter, error) {
	c := &EventCounter{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Number of registry events emitted, by event type.",
		}, []string{"type"}),
		lastSeq: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_event_seq",
			Help:      "Sequence number of the most recent registry event.",
		}),
	}
	for _, collector := range []prometheus.Collector{c.total, c.lastSeq} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *EventCounter) Deliver(_ context.Context, env events.Envelope) error {
	c.total.WithLabelValues(env.Type).Inc()
	c.lastSeq.Set(float64(env.Seq))
	return nil
}

var _ events.Subscriber = (*EventCounter)(nil)
