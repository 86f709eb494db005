package importer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the import pipeline.
type Metrics struct {
	Registry           *prometheus.Registry
	JobsTotal          *prometheus.CounterVec
	RowsTotal          *prometheus.CounterVec
	ImageFetchesTotal  *prometheus.CounterVec
	JobDuration        prometheus.Histogram
	ImageFetchDuration prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	jobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_import_jobs_total",
			Help: "Import jobs by terminal status.",
		},
		[]string{"status"},
	)
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_import_rows_total",
			Help: "Processed import rows by outcome.",
		},
		[]string{"outcome"},
	)
	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_import_image_fetches_total",
			Help: "Image downloads by result.",
		},
		[]string{"result"},
	)
	jobDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_import_job_duration_seconds",
			Help:    "Wall time of import jobs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_import_image_fetch_duration_seconds",
			Help:    "Latency of image downloads.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(jobs, rows, fetches, jobDuration, fetchDuration)

	return &Metrics{
		Registry:           registry,
		JobsTotal:          jobs,
		RowsTotal:          rows,
		ImageFetchesTotal:  fetches,
		JobDuration:        jobDuration,
		ImageFetchDuration: fetchDuration,
	}
}

func (m *Metrics) IncJob(status string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncRow(outcome string) {
	if m == nil {
		return
	}
	m.RowsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncImageFetch(result string) {
	if m == nil {
		return
	}
	m.ImageFetchesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveJob(d time.Duration) {
	if m == nil {
		return
	}
	m.JobDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveImageFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.ImageFetchDuration.Observe(d.Seconds())
}
