package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// correction workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	submissions     prometheus.Counter
	decisions       *prometheus.CounterVec
	markWrites      *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "corrections_submitted_total",
		Help: "Total correction requests submitted",
	})

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "correction_decisions_total",
		Help: "Review decisions recorded, labelled by stage and outcome",
	}, []string{"stage", "outcome"})

	markWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "correction_mark_writes_total",
		Help: "Mark store writes performed by approved corrections",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submissions, decisions, markWrites, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submissions:     submissions,
		decisions:       decisions,
		markWrites:      markWrites,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSubmission counts a filed correction request.
func (m *MetricsService) RecordSubmission() {
	if m == nil {
		return
	}
	m.submissions.Inc()
}

// RecordDecision counts a review decision. Stage is "teacher" or "admin",
// outcome is "approved" or "rejected".
func (m *MetricsService) RecordDecision(stage, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(stage, outcome).Inc()
}

// RecordMarkWrite counts the resolution write, result is "ok" or "failed".
func (m *MetricsService) RecordMarkWrite(result string) {
	if m == nil {
		return
	}
	m.markWrites.WithLabelValues(result).Inc()
}
