package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_counters(t *testing.T) {
	m := New()

	m.ObserveOperation("connect", "ok")
	m.ObserveOperation("connect", "ok")
	m.ObserveOperation("connect", "20")
	m.IncHALErrors()
	m.ObserveSettingsReload(true)
	m.ObserveSettingsReload(false)
	m.SetConnectedSinks(2)
	m.SetStatusSubscribers(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("connect", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("connect", "20")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.halErrorsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.settingsReloads.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectedSinks))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.statusSubscribers))
}

func TestRequestMiddleware_counts_errors(t *testing.T) {
	m := New()
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/bad", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal))
}

func TestHandler_serves_registry(t *testing.T) {
	m := New()
	called := false
	rec := httptest.NewRecorder()

	m.Handler(func() {
		called = true
		m.SetConnectedSinks(1)
	}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "videooutput_connected_sinks 1")
}
