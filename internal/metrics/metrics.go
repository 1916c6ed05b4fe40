// Package metrics instruments one analysis run. The engine is a batch tool
// with no listening ports, so collectors live in a run-local registry and are
// flushed to a node-exporter textfile at the end of the run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run holds the collectors for a single invocation.
type Run struct {
	registry *prometheus.Registry

	recordsParsed    *prometheus.CounterVec
	linesSkipped     *prometheus.CounterVec
	recordsDiscarded prometheus.Counter
	eventsExtracted  *prometheus.CounterVec
	episodesTotal    *prometheus.CounterVec
	stageSeconds     *prometheus.HistogramVec
}

// NewRun builds a fresh registry with all run collectors attached.
func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		recordsParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trace_engine",
				Name:      "records_parsed_total",
				Help:      "Recognized records per source.",
			},
			[]string{"source"},
		),
		linesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trace_engine",
				Name:      "lines_skipped_total",
				Help:      "Unparseable lines per source.",
			},
			[]string{"source"},
		),
		recordsDiscarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "trace_engine",
				Name:      "records_discarded_total",
				Help:      "Records that yielded no typed event.",
			},
		),
		eventsExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trace_engine",
				Name:      "events_extracted_total",
				Help:      "Typed events produced, partitioned by class.",
			},
			[]string{"class"},
		),
		episodesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trace_engine",
				Name:      "handover_episodes_total",
				Help:      "Classified handover episodes, partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		stageSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "trace_engine",
				Name:      "stage_seconds",
				Help:      "Pipeline stage duration in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"stage"},
		),
	}
	r.registry.MustRegister(
		r.recordsParsed,
		r.linesSkipped,
		r.recordsDiscarded,
		r.eventsExtracted,
		r.episodesTotal,
		r.stageSeconds,
	)
	return r
}

// ObserveSource records one source's parse outcome.
func (r *Run) ObserveSource(sourceID string, records, skipped int) {
	r.recordsParsed.WithLabelValues(sourceID).Add(float64(records))
	r.linesSkipped.WithLabelValues(sourceID).Add(float64(skipped))
}

// ObserveExtraction records extraction totals.
func (r *Run) ObserveExtraction(samples, rrc, mobility, discarded int) {
	r.eventsExtracted.WithLabelValues("metric_sample").Add(float64(samples))
	r.eventsExtracted.WithLabelValues("rrc_message").Add(float64(rrc))
	r.eventsExtracted.WithLabelValues("mobility_event").Add(float64(mobility))
	r.recordsDiscarded.Add(float64(discarded))
}

// ObserveEpisode counts one classified episode.
func (r *Run) ObserveEpisode(outcome string) {
	r.episodesTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records a stage duration.
func (r *Run) ObserveStage(stage string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	r.stageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// WriteTextfile flushes the registry in text exposition format. An empty
// path disables the export.
func (r *Run) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
