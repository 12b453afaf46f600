package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics tracks API requests per operation and response status.
type APIMetrics struct {
	requests *prometheus.CounterVec
}

// NewAPIMetrics creates and registers the API request counter.
func NewAPIMetrics(namespace string, reg prometheus.Registerer) (*APIMetrics, error) {
	m := &APIMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Number of registry API requests, by operation and status code.",
		}, []string{"operation", "status"}),
	}
	if err := reg.Register(m.requests); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveRequest records one handled request. A nil receiver is a no-op.
func (m *APIMetrics) ObserveRequest(operation string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}
