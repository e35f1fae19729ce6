// Package metrics defines the Prometheus collectors used by the pipeline and
// exposes helpers for scraping and pushing them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for a build.
type Metrics struct {
	PairsProcessedTotal  *prometheus.CounterVec
	AnswerTokensTotal    *prometheus.CounterVec
	KBFactsLoaded        prometheus.Gauge
	KBLinesSkippedTotal  *prometheus.CounterVec
	VocabSize            prometheus.Gauge
	RetrievedCandidates  prometheus.Histogram
	BuildDurationSeconds prometheus.Gauge
	SinkWritesTotal      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which tests rely on.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PairsProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kbqa_pairs_processed_total",
				Help: "QA pairs turned into examples, by partition (train, test).",
			},
			[]string{"partition"},
		),
		AnswerTokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kbqa_answer_tokens_total",
				Help: "Labelled answer tokens by mode (copy, generate).",
			},
			[]string{"mode"},
		),
		KBFactsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kbqa_kb_facts_loaded",
				Help: "Facts indexed from the KB file.",
			},
		),
		KBLinesSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kbqa_kb_lines_skipped_total",
				Help: "KB lines skipped by reason (short, overlong).",
			},
			[]string{"reason"},
		),
		VocabSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kbqa_vocab_size",
				Help: "Symbol table size including control symbols.",
			},
		),
		RetrievedCandidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kbqa_retrieved_candidates",
				Help:    "Candidate facts gathered per question before capping.",
				Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
			},
		),
		BuildDurationSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kbqa_build_duration_seconds",
				Help: "Wall time of the last dataset build.",
			},
		),
		SinkWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kbqa_sink_writes_total",
				Help: "Sink write operations by sink and status.",
			},
			[]string{"sink", "status"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.PairsProcessedTotal,
			m.AnswerTokensTotal,
			m.KBFactsLoaded,
			m.KBLinesSkippedTotal,
			m.VocabSize,
			m.RetrievedCandidates,
			m.BuildDurationSeconds,
			m.SinkWritesTotal,
		)
	}
	return m
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
