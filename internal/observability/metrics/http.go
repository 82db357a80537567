package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics collects serving metrics plus the question-pipeline
// observations the answer flow reports: outcome, faithfulness, evidence
// volume, and which stage produced the SQL plan.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	questionsTotal   *prometheus.CounterVec
	faithfulness     *prometheus.HistogramVec
	evidenceChunks   *prometheus.HistogramVec
	planSourceTotal  *prometheus.CounterVec
	questionDuration *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgarqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgarqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "edgarqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	questionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgarqa",
			Subsystem: "qa",
			Name:      "questions_total",
			Help:      "Total answered questions by outcome.",
		},
		[]string{"service", "outcome"},
	)
	faithfulness := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgarqa",
			Subsystem: "qa",
			Name:      "faithfulness_score",
			Help:      "Distribution of judge faithfulness scores.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)
	evidenceChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgarqa",
			Subsystem: "qa",
			Name:      "evidence_chunks",
			Help:      "Distribution of evidence chunks handed to the generator.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	planSourceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgarqa",
			Subsystem: "qa",
			Name:      "plan_source_total",
			Help:      "SQL plan origin per question: intent, model, fallback, or none.",
		},
		[]string{"service", "source"},
	)
	questionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgarqa",
			Subsystem: "qa",
			Name:      "duration_seconds",
			Help:      "End-to-end question answering duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		questionsTotal,
		faithfulness,
		evidenceChunks,
		planSourceTotal,
		questionDuration,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		questionsTotal:   questionsTotal,
		faithfulness:     faithfulness,
		evidenceChunks:   evidenceChunks,
		planSourceTotal:  planSourceTotal,
		questionDuration: questionDuration,
	}
}

// Registry exposes the underlying registry so related collectors, such as
// index rebuild metrics, can share one scrape endpoint.
func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordQuestion reports one completed question. Outcome is "answered",
// "abstained", or "error"; planSource is empty when no plan executed.
func (m *HTTPServerMetrics) RecordQuestion(service, outcome, planSource string, score float64, evidence int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.questionsTotal.WithLabelValues(service, outcome).Inc()
	m.questionDuration.WithLabelValues(service).Observe(duration.Seconds())

	if outcome != "error" {
		m.faithfulness.WithLabelValues(service).Observe(score)
		m.evidenceChunks.WithLabelValues(service).Observe(float64(evidence))
	}
	if planSource == "" {
		planSource = "none"
	}
	m.planSourceTotal.WithLabelValues(service, planSource).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
