package wordcorr

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects run counters in a private registry. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	wordsProcessed prometheus.Counter
	candidateOOV   prometheus.Counter
	undefined      *prometheus.CounterVec
	referenceRows  prometheus.Gauge
	referenceOOV   prometheus.Gauge
	duration       prometheus.Gauge
}

// NewMetrics registers the run metrics in a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		wordsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordcorr_words_processed_total",
			Help: "Vocabulary words whose correlations were computed",
		}),
		candidateOOV: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordcorr_candidate_oov_total",
			Help: "Candidate words without a vector",
		}),
		undefined: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wordcorr_undefined_correlations_total",
			Help: "Correlations that were undefined (NaN)",
		}, []string{"column"}),
		referenceRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wordcorr_reference_rows",
			Help: "Rows in the reference dataset",
		}),
		referenceOOV: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wordcorr_reference_oov_rows",
			Help: "Reference rows without a vector",
		}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wordcorr_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
	}
}

// Registry exposes the underlying registry as a gatherer.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) observeReference(idx *ReferenceIndex) {
	if m == nil {
		return
	}
	m.referenceRows.Set(float64(idx.Size()))
	m.referenceOOV.Set(float64(idx.OOVCount()))
}

func (m *Metrics) observeRow(row ResultRow, known bool) {
	if m == nil {
		return
	}
	m.wordsProcessed.Inc()
	if !known {
		m.candidateOOV.Inc()
	}
	for _, c := range ScoreColumns {
		if math.IsNaN(row.Get(c)) {
			m.undefined.WithLabelValues(c.String()).Inc()
		}
	}
}

// ObserveDuration records the wall time of a run.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Set(d.Seconds())
}

// WriteTextfile writes the metrics in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
