package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	applogger "StockCast/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	respSize *prometheus.HistogramVec
}

var (
	httpMetricsOnce sync.Once
	httpStats       *httpMetrics
)

func sharedHTTPMetrics() *httpMetrics {
	httpMetricsOnce.Do(func() {
		httpStats = &httpMetrics{
			requests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "stockcast_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"path", "method", "status"},
			),
			duration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "stockcast_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
				},
				[]string{"route", "method", "status", "class"},
			),
			inFlight: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "stockcast_http_in_flight_requests",
					Help: "Current number of in-flight HTTP requests",
				},
				[]string{"route", "method"},
			),
			respSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "stockcast_http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: []float64{200, 500, 1_000, 2_000, 5_000, 10_000, 50_000, 100_000, 500_000, 1_000_000},
				},
				[]string{"route", "method", "status", "class"},
			),
		}
	})
	return httpStats
}

// Metrics is a net/http middleware that records request metrics with low
// cardinality labels. Requests that fail with 5xx or exceed slowThreshold
// are also logged.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) func(http.Handler) http.Handler {
	m := sharedHTTPMetrics()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeLabel(r)
			method := r.Method

			m.inFlight.WithLabelValues(route, method).Inc()
			start := time.Now()

			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			elapsed := time.Since(start)
			status := strconv.Itoa(rw.status)
			class := statusClass(rw.status)

			m.requests.WithLabelValues(route, method, status).Inc()
			m.duration.WithLabelValues(route, method, status, class).Observe(elapsed.Seconds())
			m.respSize.WithLabelValues(route, method, status, class).Observe(float64(rw.written))
			m.inFlight.WithLabelValues(route, method).Dec()

			if l == nil {
				return
			}
			switch {
			case rw.status >= 500:
				l.Error("http request failed",
					applogger.String("route", route),
					applogger.String("method", method),
					applogger.String("status", status),
					applogger.Duration("duration_ms", elapsed),
					applogger.Int("bytes", rw.written),
				)
			case slowThreshold > 0 && elapsed >= slowThreshold:
				l.Warn("http request slow",
					applogger.String("route", route),
					applogger.String("method", method),
					applogger.String("status", status),
					applogger.Duration("duration_ms", elapsed),
					applogger.Int("bytes", rw.written),
				)
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

// routeLabel prefers a route template placed in the request context by the
// mux, falling back to the raw URL path.
func routeLabel(r *http.Request) string {
	if v := r.Context().Value("route"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return r.URL.Path
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
