// Package metrics holds the Prometheus collectors for the OTP pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticket_otp",
		Name:      "jobs_published_total",
		Help:      "Delivery jobs published, by queue.",
	}, []string{"queue"})

	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticket_otp",
		Name:      "publish_failures_total",
		Help:      "Delivery jobs the broker refused, by queue.",
	}, []string{"queue"})

	DeliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticket_otp",
		Name:      "delivery_attempts_total",
		Help:      "Provider send attempts, by channel and result.",
	}, []string{"channel", "result"})

	DeliveryOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticket_otp",
		Name:      "delivery_outcomes_total",
		Help:      "Terminal delivery outcomes, by channel and status.",
	}, []string{"channel", "status"})

	DeliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ticket_otp",
		Name:      "delivery_duration_seconds",
		Help:      "Time from first attempt to terminal status.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"channel"})

	DeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticket_otp",
		Name:      "dead_lettered_total",
		Help:      "Messages moved to the dead-letter archive, by queue.",
	}, []string{"queue"})

	StatusSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ticket_otp",
		Name:      "status_subscribers",
		Help:      "Open status WebSocket connections.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
