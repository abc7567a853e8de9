package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics counts outcomes along the checkout-to-payment pipeline.
type PipelineMetrics struct {
	checkouts *prometheus.CounterVec
	webhooks  *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline counters on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_total",
		Help: "Order-creation attempts by outcome.",
	}, []string{"outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_total",
		Help: "Gateway notifications by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(checkouts, webhooks)
	return &PipelineMetrics{checkouts: checkouts, webhooks: webhooks}
}

// IncCheckout records an order-creation outcome (created, conflict, rejected).
func (m *PipelineMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
}

// IncWebhook records a notification outcome (applied, replay, unverified, unknown_order, anomaly).
func (m *PipelineMetrics) IncWebhook(outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(outcome).Inc()
}
