// Package metrics registers the Prometheus collectors for the marketplace.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_orders_created_total",
			Help: "Orders created in pending state",
		},
	)

	settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_settlements_total",
			Help: "Payment captures by result",
		},
		[]string{"provider", "result"},
	)

	settlementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketplace_settlement_duration_seconds",
			Help:    "Time spent in the capture transaction",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	refunds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_refunds_total",
			Help: "Refund operations by stage and result",
		},
		[]string{"stage", "result"},
	)

	scans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_ticket_scans_total",
			Help: "Ticket scans by result",
		},
		[]string{"result"},
	)

	payoutsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_payouts_created_total",
			Help: "Payouts created by origin",
		},
		[]string{"origin"},
	)
)

func OrderCreated() { ordersCreated.Inc() }

// Settlement records a capture attempt.  result is "paid", "already_paid"
// or an error kind.
func Settlement(provider, result string, took time.Duration) {
	settlements.WithLabelValues(provider, result).Inc()
	settlementDuration.Observe(took.Seconds())
}

func Refund(stage, result string) { refunds.WithLabelValues(stage, result).Inc() }

func Scan(result string) { scans.WithLabelValues(result).Inc() }

// PayoutCreated counts payouts; origin is "sweep" or "manual".
func PayoutCreated(origin string, n int) { payoutsCreated.WithLabelValues(origin).Add(float64(n)) }
