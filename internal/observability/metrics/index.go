package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IndexMetrics tracks retrieval snapshot rebuilds driven by startup and by
// corpus-updated events.
type IndexMetrics struct {
	rebuildsTotal   *prometheus.CounterVec
	rebuildDuration *prometheus.HistogramVec
	corpusChunks    *prometheus.GaugeVec
}

func NewIndexMetrics(registry prometheus.Registerer) *IndexMetrics {
	rebuildsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgarqa",
			Subsystem: "index",
			Name:      "rebuilds_total",
			Help:      "Total index rebuild attempts by status.",
		},
		[]string{"service", "status"},
	)
	rebuildDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgarqa",
			Subsystem: "index",
			Name:      "rebuild_duration_seconds",
			Help:      "Index rebuild duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	corpusChunks := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "edgarqa",
			Subsystem: "index",
			Name:      "corpus_chunks",
			Help:      "Chunks in the active retrieval snapshot.",
		},
		[]string{"service"},
	)

	registry.MustRegister(rebuildsTotal, rebuildDuration, corpusChunks)

	return &IndexMetrics{
		rebuildsTotal:   rebuildsTotal,
		rebuildDuration: rebuildDuration,
		corpusChunks:    corpusChunks,
	}
}

func (m *IndexMetrics) RecordRebuild(service string, err error, chunks int, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.rebuildsTotal.WithLabelValues(service, status).Inc()
	m.rebuildDuration.WithLabelValues(service).Observe(duration.Seconds())
	if err == nil {
		m.corpusChunks.WithLabelValues(service).Set(float64(chunks))
	}
}
