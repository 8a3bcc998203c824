package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the gateway.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	submissionTotal *prometheus.CounterVec
	upstreamTotal   *prometheus.CounterVec
}

// Submission path labels.
const (
	SubmissionPathPrimary  = "primary"
	SubmissionPathFallback = "fallback"
)

// NewMetricsService registers core Prometheus collectors.
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

	submissionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outpass_submissions_total",
		Help: "Outpass submissions by mode, write path and outcome",
	}, []string{"mode", "path", "outcome"})

	upstreamTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hostel_core_requests_total",
		Help: "Requests to the hostel-core backend by operation and outcome",
	}, []string{"operation", "outcome"})

	registry.MustRegister(requestDuration, requestTotal, submissionTotal, upstreamTotal)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submissionTotal: submissionTotal,
		upstreamTotal:   upstreamTotal,
	}
}

// Handler returns the Prometheus scrape handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one handled HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": httpStatusLabel(status),
	}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// ObserveSubmission counts a submission attempt outcome per mode and path.
func (s *MetricsService) ObserveSubmission(mode, path, outcome string) {
	if s == nil {
		return
	}
	s.submissionTotal.WithLabelValues(mode, path, outcome).Inc()
}

// ObserveUpstream counts one hostel-core call outcome.
func (s *MetricsService) ObserveUpstream(operation, outcome string) {
	if s == nil {
		return
	}
	s.upstreamTotal.WithLabelValues(operation, outcome).Inc()
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
