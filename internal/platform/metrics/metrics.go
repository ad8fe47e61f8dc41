package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contest_room"

var (
	// 10ms -> 30s, judge calls include network round trips
	executorBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

	requestBuckets = prometheus.DefBuckets
)

// Metrics groups the collectors the service reports. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	submissions     *prometheus.CounterVec
	scores          prometheus.Histogram
	executorCalls   *prometheus.HistogramVec
	roomsCreated    prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests by route and status",
			Buckets:   requestBuckets,
		}, []string{"method", "route", "status"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Number of code submissions by outcome",
		}, []string{"outcome"}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_score",
			Help:      "Scores of accepted submissions",
			Buckets:   prometheus.LinearBuckets(0, 50, 10),
		}),
		executorCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "executor_call_duration_seconds",
			Help:      "Latency of calls to the code execution service",
			Buckets:   executorBuckets,
		}, []string{"result"}),
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Number of contest rooms created",
		}),
	}
	reg.MustRegister(
		m.requestDuration,
		m.submissions,
		m.scores,
		m.executorCalls,
		m.roomsCreated,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// Submission outcomes.
const (
	OutcomeScored          = "scored"
	OutcomeInvalidRequest  = "invalid_request"
	OutcomeContestOver     = "contest_over"
	OutcomeRoomNotFound    = "room_not_found"
	OutcomeUnknownLanguage = "unknown_language"
	OutcomeExecutorError   = "executor_error"
)

func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveScore(score float64) {
	if m == nil {
		return
	}
	m.scores.Observe(score)
}

func (m *Metrics) ObserveExecutorCall(err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.executorCalls.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) RoomCreated() {
	if m == nil {
		return
	}
	m.roomsCreated.Inc()
}
