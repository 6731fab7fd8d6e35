package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDispatch(t *testing.T) {
	m := New()
	m.ObserveDispatch(OutcomeDelivered, 20*time.Millisecond)
	m.ObserveDispatch(OutcomeGone, 5*time.Millisecond)
	m.ObserveDispatch(OutcomeDelivered, 10*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.DispatchTotal.WithLabelValues(OutcomeDelivered)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DispatchTotal.WithLabelValues(OutcomeGone)), 0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDispatch(OutcomeError, time.Second)
		m.BoardMessage("in")
		m.BoardConnected(1)
	})
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.BoardMessage("published")
	m.BoardConnected(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pushboard_board_messages_total")
	assert.Contains(t, string(body), "pushboard_board_connections 1")
}
