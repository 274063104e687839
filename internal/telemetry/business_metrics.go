package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dukerupert/tramhuong/internal/domain"
)

// BusinessMetrics holds Prometheus metrics for cart and order activity.
// A nil *BusinessMetrics records nothing.
type BusinessMetrics struct {
	CartMutations    *prometheus.CounterVec
	CartValue        prometheus.Histogram
	CartCache        *prometheus.CounterVec
	OrdersCreated    *prometheus.CounterVec
	OrderValue       *prometheus.HistogramVec
	OrderItemCount   prometheus.Histogram
	CheckoutRejected *prometheus.CounterVec
	EventsFailed     *prometheus.CounterVec
}

// VND buckets from 100k to roughly 50M đồng.
var valueBuckets = prometheus.ExponentialBuckets(100_000, 2, 10)

// NewBusinessMetrics creates the metrics and registers them with reg.
func NewBusinessMetrics(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "tramhuong"
	}
	const subsystem = "business"
	factory := promauto.With(reg)

	return &BusinessMetrics{
		CartMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation",
		}, []string{"operation"}),
		CartValue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cart_value_vnd",
			Help:      "Cart total after each mutation in VND",
			Buckets:   valueBuckets,
		}),
		CartCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cart_cache_requests_total",
			Help:      "Cart cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		OrdersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orders_created_total",
			Help:      "Orders placed by payment method",
		}, []string{"payment_method"}),
		OrderValue: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_value_vnd",
			Help:      "Order total in VND",
			Buckets:   valueBuckets,
		}, []string{"payment_method"}),
		OrderItemCount: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_item_count",
			Help:      "Units per order",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		CheckoutRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checkout_rejected_total",
			Help:      "Checkouts refused before an order was created, by reason",
		}, []string{"reason"}),
		EventsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_failed_total",
			Help:      "Events that could not be published, by subject",
		}, []string{"subject"}),
	}
}

func (m *BusinessMetrics) RecordCartMutation(operation string, total int64) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(operation).Inc()
	m.CartValue.Observe(float64(total))
}

func (m *BusinessMetrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CartCache.WithLabelValues(result).Inc()
}

func (m *BusinessMetrics) RecordOrder(o *domain.Order) {
	if m == nil {
		return
	}
	method := string(o.PaymentMethod)
	units := 0
	for _, it := range o.Items {
		units += it.Quantity
	}
	m.OrdersCreated.WithLabelValues(method).Inc()
	m.OrderValue.WithLabelValues(method).Observe(float64(o.TotalAmount))
	m.OrderItemCount.Observe(float64(units))
}

func (m *BusinessMetrics) RecordCheckoutRejected(reason string) {
	if m == nil {
		return
	}
	m.CheckoutRejected.WithLabelValues(reason).Inc()
}

func (m *BusinessMetrics) RecordEventFailure(subject string) {
	if m == nil {
		return
	}
	m.EventsFailed.WithLabelValues(subject).Inc()
}
