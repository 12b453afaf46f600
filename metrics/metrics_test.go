package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ruteri/reputation-registry/events"
	"github.com/ruteri/reputation-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter, err := NewEventCounter("test", reg)
	require.NoError(t, err)

	log := events.NewLog(events.WithSubscribers(counter))
	ctx := context.Background()
	require.NoError(t, log.Emit(ctx, &interfaces.ProgramInitialized{}))
	require.NoError(t, log.Emit(ctx, &interfaces.ScoreRecorded{Score: 1}))
	require.NoError(t, log.Emit(ctx, &interfaces.ScoreRecorded{Score: 2}))

	assert.Equal(t, 1.0, testutil.ToFloat64(counter.total.WithLabelValues(interfaces.ProgramInitializedType)))
	assert.Equal(t, 2.0, testutil.ToFloat64(counter.total.WithLabelValues(interfaces.ScoreRecordedType)))
	assert.Equal(t, 3.0, testutil.ToFloat64(counter.lastSeq))

	// Registering twice on the same registry fails.
	_, err = NewEventCounter("test", reg)
	require.Error(t, err)
}

func TestAPIMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewAPIMetrics("test", reg)
	require.NoError(t, err)

	m.ObserveRequest("record_score", http.StatusOK)
	m.ObserveRequest("record_score", http.StatusOK)
	m.ObserveRequest("record_score", http.StatusForbidden)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("record_score", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("record_score", "403")))

	var nilMetrics *APIMetrics
	assert.NotPanics(t, func() { nilMetrics.ObserveRequest("config", http.StatusOK) })
}

func TestMetricsHandler(t *testing.T) {
	srv, err := New("reputation_registry", "127.0.0.1:0")
	require.NoError(t, err)

	counter, err := NewEventCounter(srv.Namespace, srv.Registry)
	require.NoError(t, err)
	require.NoError(t, counter.Deliver(context.Background(), events.Envelope{Seq: 7, Type: interfaces.AgentAddedType}))

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `reputation_registry_events_total{type="AgentAdded"} 1`)
	assert.Contains(t, string(body), "reputation_registry_last_event_seq 7")
	assert.Contains(t, string(body), "go_goroutines")
}
