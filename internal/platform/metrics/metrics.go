package metrics

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	commandsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_received_total",
			Help: "Commands routed to a registered handler.",
		},
		[]string{"command"},
	)

	replies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_replies_total",
			Help: "Command replies by result (ok/error).",
		},
		[]string{"result"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_rate_limited_total",
			Help: "Updates dropped by the per-user rate limiter.",
		},
	)

	launchesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_launches_recorded_total",
			Help: "Launch journal writes by result (ok/error).",
		},
		[]string{"result"},
	)

	updatesDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_updates_dispatched_total",
			Help: "Updates handed to dispatcher workers.",
		},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_job_duration_seconds",
			Help:    "Scheduled job run time by job and result (ok/error).",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job", "result"},
	)
)

// MustRegister registers the collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(commandsReceived, replies, rateLimited, launchesRecorded, updatesDispatched, jobDuration)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	MustRegister()
	return promhttp.Handler()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func IncCommand(command string) {
	commandsReceived.WithLabelValues(strings.ToLower(strings.TrimSpace(command))).Inc()
}

func ObserveReply(err error) {
	replies.WithLabelValues(result(err)).Inc()
}

func IncRateLimited() {
	rateLimited.Inc()
}

func ObserveLaunchRecorded(err error) {
	launchesRecorded.WithLabelValues(result(err)).Inc()
}

func IncDispatched() {
	updatesDispatched.Inc()
}

func ObserveJob(name string, d time.Duration, err error) {
	jobDuration.WithLabelValues(name, result(err)).Observe(d.Seconds())
}
