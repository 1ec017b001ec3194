package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts order outcomes, quotes and rule set cache lookups.
type OrderMetrics struct {
	orders      *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	quotes      *prometheus.CounterVec
	cacheLookup *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_total",
		Help: "Order creation calls by outcome.",
	}, []string{"outcome"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_rejections_total",
		Help: "Rejected order creation calls by reason.",
	}, []string{"reason"})
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotes_total",
		Help: "Quotes served by validity.",
	}, []string{"valid"})
	cacheLookup := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ruleset_cache_lookups_total",
		Help: "Active rule set cache lookups by result.",
	}, []string{"result"})
	reg.MustRegister(orders, rejections, quotes, cacheLookup)
	return &OrderMetrics{
		orders:      orders,
		rejections:  rejections,
		quotes:      quotes,
		cacheLookup: cacheLookup,
	}
}

func (m *OrderMetrics) OrderCommitted() {
	m.incOutcome("committed")
}

func (m *OrderMetrics) OrderReplayed() {
	m.incOutcome("replayed")
}

func (m *OrderMetrics) OrderRejected(reason string) {
	m.incOutcome("rejected")
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *OrderMetrics) QuoteServed(valid bool) {
	if m == nil || m.quotes == nil {
		return
	}
	label := "false"
	if valid {
		label = "true"
	}
	m.quotes.WithLabelValues(label).Inc()
}

// RuleSetCacheLookup records a cache hit or miss.
func (m *OrderMetrics) RuleSetCacheLookup(hit bool) {
	if m == nil || m.cacheLookup == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookup.WithLabelValues(result).Inc()
}

func (m *OrderMetrics) incOutcome(outcome string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(outcome).Inc()
}
