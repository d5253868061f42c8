package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcome labels.
const (
	CheckoutResultSuccess       = "success"
	CheckoutResultEmptyCart     = "empty_cart"
	CheckoutResultStockConflict = "stock_conflict"
	CheckoutResultDuplicate     = "duplicate"
	CheckoutResultFailed        = "failed"
)

// CheckoutMetrics counts checkout attempts by outcome and tracks their latency.
type CheckoutMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	revenue  prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on reg. A nil registerer
// yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_attempts_total",
		Help: "Checkout attempts partitioned by outcome.",
	}, []string{"result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_checkout_duration_seconds",
		Help:    "Checkout latency in seconds, partitioned by outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_checkout_revenue_total",
		Help: "Sum of committed order totals.",
	})
	reg.MustRegister(attempts, duration, revenue)
	return &CheckoutMetrics{attempts: attempts, duration: duration, revenue: revenue}
}

// Observe records one checkout attempt.
func (c *CheckoutMetrics) Observe(result string, elapsed time.Duration) {
	if c == nil || c.attempts == nil {
		return
	}
	label := normalizeLabel(result)
	c.attempts.WithLabelValues(label).Inc()
	c.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// AddRevenue accumulates a committed order total.
func (c *CheckoutMetrics) AddRevenue(amount float64) {
	if c == nil || c.revenue == nil || amount <= 0 {
		return
	}
	c.revenue.Add(amount)
}
