package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	quoteFetches *prometheus.CounterVec
	quoteEmits   *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		quoteFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_quote_fetches_total",
				Help: "Quote poll cycles by ticker and outcome (ok, duplicate, no_data, error)",
			},
			[]string{"ticker", "outcome"},
		),
		quoteEmits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_quote_emits_total",
				Help: "Accepted quotes emitted to subscribers",
			},
			[]string{"ticker"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_last_price",
				Help: "Last accepted price for a ticker",
			},
			[]string{"ticker"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordQuoteFetch records one poll cycle outcome for a ticker.
func (r *Recorder) RecordQuoteFetch(ticker, outcome string) {
	r.quoteFetches.WithLabelValues(ticker, outcome).Inc()
}

// RecordQuoteEmit records an accepted quote emission.
func (r *Recorder) RecordQuoteEmit(ticker string) {
	r.quoteEmits.WithLabelValues(ticker).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last accepted price for a ticker.
func (r *Recorder) RecordLastPrice(ticker string, price float64) {
	r.lastPrice.WithLabelValues(ticker).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
