package shortpost

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of one App. Each App owns its
// registry so several apps (tests) can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	// StepDuration times the publishing steps ("upload", "create") by result.
	StepDuration *prometheus.HistogramVec
	// Submissions counts submit requests by outcome
	// ("published", "failed", "rejected", "limited", "busy").
	Submissions *prometheus.CounterVec
	// FileSelections counts file picks by outcome ("accepted", "rejected").
	FileSelections *prometheus.CounterVec
	// ActiveDrafts is the number of drafts held in memory.
	ActiveDrafts prometheus.Gauge
	// ProgressSubscribers is the number of open progress streams.
	ProgressSubscribers prometheus.Gauge
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shortpost_publish_step_duration_seconds",
				Help:    "Duration of each publishing step in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"step", "result"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shortpost_submissions_total",
				Help: "Submit requests by outcome",
			},
			[]string{"result"},
		),
		FileSelections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shortpost_file_selections_total",
				Help: "Selected files by outcome",
			},
			[]string{"result"},
		),
		ActiveDrafts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shortpost_active_drafts",
			Help: "Drafts currently held in memory",
		}),
		ProgressSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shortpost_progress_subscribers",
			Help: "Open progress event streams",
		}),
	}
	m.Registry.MustRegister(
		m.StepDuration,
		m.Submissions,
		m.FileSelections,
		m.ActiveDrafts,
		m.ProgressSubscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveStep records the duration of a publishing step since start.
func (m *Metrics) ObserveStep(step string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StepDuration.WithLabelValues(step, result).Observe(time.Since(start).Seconds())
}

// CountSubmission increments the submissions counter for result.
func (m *Metrics) CountSubmission(result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
