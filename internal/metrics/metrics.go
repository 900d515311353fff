package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ClientMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewClientMetrics(reg prometheus.Registerer) (*ClientMetrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Total number of backend API requests.",
	}, []string{"resource", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "client",
		Name:      "request_duration_ms",
		Help:      "Backend API request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"resource"})

	for _, c := range []prometheus.Collector{requests, latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &ClientMetrics{Requests: requests, LatencyMS: latency}, nil
}

// Observe records one request. status 0 means the request never got a response.
func (m *ClientMetrics) Observe(resource string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}

	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}

	m.Requests.WithLabelValues(resource, label).Inc()
	m.LatencyMS.WithLabelValues(resource).Observe(float64(elapsed.Microseconds()) / 1000)
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
