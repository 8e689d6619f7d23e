package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(commandsReceived.WithLabelValues("start"))
	IncCommand(" START ")
	assert.Equal(t, before+1, testutil.ToFloat64(commandsReceived.WithLabelValues("start")))

	okBefore := testutil.ToFloat64(replies.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(replies.WithLabelValues("error"))
	ObserveReply(nil)
	ObserveReply(errors.New("chat not found"))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(replies.WithLabelValues("ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(replies.WithLabelValues("error")))

	limited := testutil.ToFloat64(rateLimited)
	IncRateLimited()
	assert.Equal(t, limited+1, testutil.ToFloat64(rateLimited))
}

func TestHandlerExposesCollectors(t *testing.T) {
	IncDispatched()
	ObserveLaunchRecorded(nil)
	ObserveJob("launch_report", 150*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bot_updates_dispatched_total")
	assert.Contains(t, rec.Body.String(), `bot_launches_recorded_total{result="ok"}`)
	assert.Contains(t, rec.Body.String(), `bot_job_duration_seconds_count{job="launch_report",result="ok"}`)

	assert.NotPanics(t, MustRegister, "registration is idempotent")
}
