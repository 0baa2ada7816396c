package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики оформления покупок и корзины.
type CheckoutMetrics struct {
	// Счётчики исходов оформления
	ordersCompleted  prometheus.Counter
	checkoutFailures *prometheus.CounterVec
	revenueMinor     prometheus.Counter

	// Гистограммы времени выполнения
	checkoutDuration prometheus.Histogram
	stepDuration     *prometheus.HistogramVec

	// Счётчики корзины
	cartItemsAdded prometheus.Counter
	cartRejections *prometheus.CounterVec

	// Счётчик событий, поставленных в outbox
	outboxEnqueued prometheus.Counter

	// Gauge для оформлений в полёте
	activeCheckouts prometheus.Gauge
}

// NewCheckoutMetrics создаёт новый экземпляр метрик оформления.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		ordersCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_orders_completed_total",
			Help: "Total number of orders committed to the ledger",
		}),
		checkoutFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "marketplace_checkout_failures_total",
			Help: "Total number of rejected or failed checkout attempts by reason",
		}, []string{"reason"}),
		revenueMinor: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_revenue_minor_total",
			Help: "Total revenue across completed orders in minor currency units",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "marketplace_checkout_duration_seconds",
			Help:    "Duration of checkout attempts in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "marketplace_checkout_step_duration_seconds",
			Help:    "Duration of individual checkout steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		cartItemsAdded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_cart_items_added_total",
			Help: "Total number of items staged into carts",
		}),
		cartRejections: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "marketplace_cart_rejections_total",
			Help: "Total number of rejected cart additions by reason",
		}, []string{"reason"}),
		outboxEnqueued: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_outbox_enqueued_total",
			Help: "Total number of events enqueued into the transactional outbox",
		}),
		activeCheckouts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "marketplace_active_checkouts",
			Help: "Number of checkout attempts currently in flight",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCompleted увеличивает счётчик зафиксированных заказов.
func (m *CheckoutMetrics) RecordOrderCompleted() {
	m.ordersCompleted.Inc()
}

// RecordCheckoutFailure увеличивает счётчик отказов с меткой причины.
func (m *CheckoutMetrics) RecordCheckoutFailure(reason string) {
	m.checkoutFailures.WithLabelValues(reason).Inc()
}

// RecordRevenue добавляет сумму заказа к суммарной выручке.
func (m *CheckoutMetrics) RecordRevenue(amountMinor int64) {
	m.revenueMinor.Add(float64(amountMinor))
}

// RecordCheckoutDuration записывает время полного оформления.
func (m *CheckoutMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordStepDuration записывает время отдельного шага оформления.
func (m *CheckoutMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordCartItemAdded увеличивает счётчик добавленных в корзину позиций.
func (m *CheckoutMetrics) RecordCartItemAdded() {
	m.cartItemsAdded.Inc()
}

// RecordCartRejection увеличивает счётчик отклонённых добавлений.
func (m *CheckoutMetrics) RecordCartRejection(reason string) {
	m.cartRejections.WithLabelValues(reason).Inc()
}

// RecordOutboxEnqueued увеличивает счётчик поставленных в outbox событий.
func (m *CheckoutMetrics) RecordOutboxEnqueued() {
	m.outboxEnqueued.Inc()
}

// RecordCheckoutInFlightStarted увеличивает количество активных оформлений.
func (m *CheckoutMetrics) RecordCheckoutInFlightStarted() {
	m.activeCheckouts.Inc()
}

// RecordCheckoutInFlightFinished уменьшает количество активных оформлений.
func (m *CheckoutMetrics) RecordCheckoutInFlightFinished() {
	m.activeCheckouts.Dec()
}
