package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsCollector struct {
	AppName         string
	RequestDuration *prometheus.HistogramVec
	RequestCounter  *prometheus.CounterVec
	QueueSize       *prometheus.GaugeVec
	RateLimited     *prometheus.CounterVec
}

// NewMetricsCollector registers the collector's metrics with reg.
func NewMetricsCollector(namespace, appName string, reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)
	return &MetricsCollector{
		AppName: appName,
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time spent in the request logger in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
			},
			[]string{"app", "method", "status"},
		),

		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of logged requests",
			},
			[]string{"app", "method", "status"},
		),

		QueueSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_size",
				Help:      "Current size of the queue",
			},
			[]string{"app", "queue"},
		),

		RateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"app", "scope"},
		),
	}
}

func (m *MetricsCollector) ObserveRequest(method, status string, duration time.Duration) {
	labels := prometheus.Labels{
		"app":    m.AppName,
		"method": method,
		"status": status,
	}
	m.RequestCounter.With(labels).Inc()
	m.RequestDuration.With(labels).Observe(duration.Seconds())
}

func (m *MetricsCollector) ObserveQueueSize(queue string, size float64) {
	m.QueueSize.With(prometheus.Labels{
		"app":   m.AppName,
		"queue": queue,
	}).Set(size)
}

func (m *MetricsCollector) IncRateLimited(scope string) {
	m.RateLimited.With(prometheus.Labels{
		"app":   m.AppName,
		"scope": scope,
	}).Inc()
}

// Handler exposes g in the Prometheus text format.
func Handler(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
