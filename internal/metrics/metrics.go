// Package metrics counts extraction and download outcomes for one run and
// exports them in the Prometheus text format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/itemone/internal/fetch"
	"github.com/ppiankov/itemone/internal/model"
)

const (
	Namespace          = "itemone"
	SubsystemExtract   = "extract"
	SubsystemFetch     = "fetch"
	SubsystemRun       = "run"
	RunIDLabel         = "run_id"
	StatusLabel        = "status"
	FetchResultLabel   = "result"
	CommandLabel       = "command"
	defaultVersionInfo = "dev"
)

// Metrics holds the collectors of one run
type Metrics struct {
	registry *prometheus.Registry

	runStart prometheus.Gauge
	runInfo  prometheus.Gauge

	documentsTotal   *prometheus.CounterVec
	documentDuration prometheus.Histogram

	downloadsTotal *prometheus.CounterVec
	downloadBytes  prometheus.Counter
}

// New creates the collectors for a run of command, labelled with runID
func New(runID, command, version string) *Metrics {
	if version == "" {
		version = defaultVersionInfo
	}
	m := &Metrics{registry: prometheus.NewRegistry()}
	constLabels := prometheus.Labels{RunIDLabel: runID}

	m.runStart = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Subsystem:   SubsystemRun,
		Name:        "start_timestamp_seconds",
		Help:        "The time the run started.",
		ConstLabels: constLabels,
	})
	m.runStart.SetToCurrentTime()
	m.registry.MustRegister(m.runStart)

	m.runInfo = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: SubsystemRun,
		Name:      "info",
		Help:      "The command and version of the run.",
		ConstLabels: prometheus.Labels{
			RunIDLabel:   runID,
			CommandLabel: command,
			"version":    version,
		},
	})
	m.runInfo.Set(1)
	m.registry.MustRegister(m.runInfo)

	m.documentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   Namespace,
		Subsystem:   SubsystemExtract,
		Name:        "documents_total",
		Help:        "Documents processed, by outcome status.",
		ConstLabels: constLabels,
	}, []string{StatusLabel})
	m.registry.MustRegister(m.documentsTotal)

	m.documentDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   Namespace,
		Subsystem:   SubsystemExtract,
		Name:        "document_duration_seconds",
		Help:        "Time to read and extract one document.",
		ConstLabels: constLabels,
		Buckets:     []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})
	m.registry.MustRegister(m.documentDuration)

	m.downloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   Namespace,
		Subsystem:   SubsystemFetch,
		Name:        "rows_total",
		Help:        "Rows handled by the fetch step, by result.",
		ConstLabels: constLabels,
	}, []string{FetchResultLabel})
	m.registry.MustRegister(m.downloadsTotal)

	m.downloadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   Namespace,
		Subsystem:   SubsystemFetch,
		Name:        "bytes_total",
		Help:        "Bytes written to the local store.",
		ConstLabels: constLabels,
	})
	m.registry.MustRegister(m.downloadBytes)

	// Pre-create the series so every status shows up, even at zero.
	for _, s := range []model.OutcomeStatus{model.StatusFound, model.StatusNotFound, model.StatusFailed} {
		m.documentsTotal.WithLabelValues(string(s))
	}

	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOutcome records one finished document
func (m *Metrics) ObserveOutcome(status model.OutcomeStatus, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.documentsTotal.WithLabelValues(string(status)).Inc()
	m.documentDuration.Observe(elapsed.Seconds())
}

// ObserveDownload records one row of the fetch step
func (m *Metrics) ObserveDownload(result fetch.Result, bytes int64) {
	if m == nil {
		return
	}
	m.downloadsTotal.WithLabelValues(string(result)).Inc()
	if bytes > 0 {
		m.downloadBytes.Add(float64(bytes))
	}
}

// WriteTextfile writes every metric to path in the node exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
