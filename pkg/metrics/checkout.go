package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order creation and payment finalization outcomes.
type CheckoutMetrics struct {
	ordersCreated        *prometheus.CounterVec
	finalizations        *prometheus.CounterVec
	finalizationDuration *prometheus.HistogramVec
	stockShortfalls      prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_total",
		Help: "Orders created, partitioned by payment method.",
	}, []string{"method"})
	finalizations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_finalizations_total",
		Help: "Payment finalization attempts, partitioned by outcome.",
	}, []string{"outcome"})
	finalizationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_finalization_duration_seconds",
		Help:    "Duration of payment finalization in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	stockShortfalls := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_stock_shortfalls_total",
		Help: "Paid orders whose stock could not be fully deducted.",
	})
	reg.MustRegister(ordersCreated, finalizations, finalizationDuration, stockShortfalls)
	return &CheckoutMetrics{
		ordersCreated:        ordersCreated,
		finalizations:        finalizations,
		finalizationDuration: finalizationDuration,
		stockShortfalls:      stockShortfalls,
	}
}

// IncOrderCreated increments the order counter for the payment method.
func (c *CheckoutMetrics) IncOrderCreated(method string) {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.WithLabelValues(normalizeLabel(method)).Inc()
}

// ObserveFinalization records one finalization attempt with its outcome.
func (c *CheckoutMetrics) ObserveFinalization(outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	label := normalizeLabel(outcome)
	if c.finalizations != nil {
		c.finalizations.WithLabelValues(label).Inc()
	}
	if c.finalizationDuration != nil {
		c.finalizationDuration.WithLabelValues(label).Observe(duration.Seconds())
	}
}

// IncStockShortfall counts a paid order that could not deduct stock.
func (c *CheckoutMetrics) IncStockShortfall() {
	if c == nil || c.stockShortfalls == nil {
		return
	}
	c.stockShortfalls.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
