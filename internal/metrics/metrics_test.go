package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/api/tasks", 200, 10*time.Millisecond)
	m.ObserveRequest("GET", "/api/tasks", 200, 20*time.Millisecond)
	m.ObserveRequest("GET", "/api/tasks", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/tasks", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/tasks", "404")))
}

func TestRecordActivityAndCascade(t *testing.T) {
	m := New()
	m.RecordActivity("created", "task")
	m.RecordCascade(3, 5, 7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.activities.WithLabelValues("created", "task")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.cascadeDeleted.WithLabelValues("comments")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/", 200, time.Second)
		m.RecordActivity("created", "task")
		m.RecordCascade(1, 1, 1)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordActivity("deleted", "project")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `taskboard_activity_recorded_total{action="deleted",entity_type="project"} 1`)
}

func TestSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
