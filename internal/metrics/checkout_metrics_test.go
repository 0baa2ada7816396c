package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewCheckoutMetrics(t *testing.T) {
	metrics := NewCheckoutMetrics()

	if metrics == nil {
		t.Fatal("NewCheckoutMetrics should not return nil")
	}

	if metrics.ordersCompleted == nil {
		t.Error("ordersCompleted counter should not be nil")
	}

	if metrics.checkoutFailures == nil {
		t.Error("checkoutFailures counter vec should not be nil")
	}

	if metrics.revenueMinor == nil {
		t.Error("revenueMinor counter should not be nil")
	}

	if metrics.checkoutDuration == nil {
		t.Error("checkoutDuration histogram should not be nil")
	}

	if metrics.stepDuration == nil {
		t.Error("stepDuration histogram vec should not be nil")
	}

	if metrics.cartItemsAdded == nil {
		t.Error("cartItemsAdded counter should not be nil")
	}

	if metrics.cartRejections == nil {
		t.Error("cartRejections counter vec should not be nil")
	}

	if metrics.outboxEnqueued == nil {
		t.Error("outboxEnqueued counter should not be nil")
	}

	if metrics.activeCheckouts == nil {
		t.Error("activeCheckouts gauge should not be nil")
	}
}

func TestNewCheckoutMetricsReRegister(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newCheckoutMetricsWithRegisterer(reg)
	second := newCheckoutMetricsWithRegisterer(reg)

	// Повторная регистрация должна вернуть уже существующие коллекторы.
	if first.ordersCompleted != second.ordersCompleted {
		t.Error("expected re-registration to reuse the existing counter")
	}

	if first.stepDuration != second.stepDuration {
		t.Error("expected re-registration to reuse the existing histogram vec")
	}
}

func TestRecordOrderCompleted(t *testing.T) {
	reg := prometheus.NewRegistry()

	ordersCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_orders_completed_total",
		Help: "Test counter",
	})

	reg.MustRegister(ordersCompleted)

	metrics := &CheckoutMetrics{
		ordersCompleted: ordersCompleted,
	}

	metrics.RecordOrderCompleted()
	metrics.RecordOrderCompleted()

	metric := &dto.Metric{}
	if err := ordersCompleted.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCheckoutFailure(t *testing.T) {
	reg := prometheus.NewRegistry()

	checkoutFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_checkout_failures_total",
		Help: "Test counter vec",
	}, []string{"reason"})

	reg.MustRegister(checkoutFailures)

	metrics := &CheckoutMetrics{
		checkoutFailures: checkoutFailures,
	}

	metrics.RecordCheckoutFailure("empty_cart")
	metrics.RecordCheckoutFailure("insufficient_budget")
	metrics.RecordCheckoutFailure("insufficient_budget")

	budgetMetric := &dto.Metric{}
	if err := checkoutFailures.WithLabelValues("insufficient_budget").Write(budgetMetric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if budgetMetric.Counter.GetValue() != 2.0 {
		t.Errorf("expected insufficient_budget count 2.0, got %f", budgetMetric.Counter.GetValue())
	}

	cartMetric := &dto.Metric{}
	if err := checkoutFailures.WithLabelValues("empty_cart").Write(cartMetric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if cartMetric.Counter.GetValue() != 1.0 {
		t.Errorf("expected empty_cart count 1.0, got %f", cartMetric.Counter.GetValue())
	}
}

func TestRecordRevenue(t *testing.T) {
	reg := prometheus.NewRegistry()

	revenueMinor := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_revenue_minor_total",
		Help: "Test counter",
	})

	reg.MustRegister(revenueMinor)

	metrics := &CheckoutMetrics{
		revenueMinor: revenueMinor,
	}

	metrics.RecordRevenue(99999)
	metrics.RecordRevenue(2999)

	metric := &dto.Metric{}
	if err := revenueMinor.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 102998.0 {
		t.Errorf("expected revenue 102998.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCheckoutDuration(t *testing.T) {
	reg := prometheus.NewRegistry()

	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_checkout_duration_seconds",
		Help:    "Test histogram",
		Buckets: prometheus.DefBuckets,
	})

	reg.MustRegister(checkoutDuration)

	metrics := &CheckoutMetrics{
		checkoutDuration: checkoutDuration,
	}

	metrics.RecordCheckoutDuration(100 * time.Millisecond)
	metrics.RecordCheckoutDuration(500 * time.Millisecond)
	metrics.RecordCheckoutDuration(1 * time.Second)

	metric := &dto.Metric{}
	if err := checkoutDuration.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("expected 3 samples, got %d", metric.Histogram.GetSampleCount())
	}

	// Сумма выборок примерно 0.1 + 0.5 + 1.0 = 1.6
	sum := metric.Histogram.GetSampleSum()
	if sum < 1.5 || sum > 1.7 {
		t.Errorf("expected sum around 1.6, got %f", sum)
	}
}

func TestRecordStepDuration(t *testing.T) {
	reg := prometheus.NewRegistry()

	stepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_checkout_step_duration_seconds",
		Help:    "Test histogram vec",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"step"})

	reg.MustRegister(stepDuration)

	metrics := &CheckoutMetrics{
		stepDuration: stepDuration,
	}

	metrics.RecordStepDuration("validate", 5*time.Millisecond)
	metrics.RecordStepDuration("decrement", 10*time.Millisecond)
	metrics.RecordStepDuration("debit", 3*time.Millisecond)

	validateMetric := &dto.Metric{}
	observer := stepDuration.WithLabelValues("validate")
	if err := observer.(prometheus.Histogram).Write(validateMetric); err != nil {
		t.Fatalf("failed to write validate metric: %v", err)
	}

	if validateMetric.Histogram.GetSampleCount() != 1 {
		t.Errorf("expected 1 sample for validate, got %d", validateMetric.Histogram.GetSampleCount())
	}
}

func TestRecordCartActivity(t *testing.T) {
	reg := prometheus.NewRegistry()

	cartItemsAdded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_cart_items_added_total",
		Help: "Test counter",
	})
	cartRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_cart_rejections_total",
		Help: "Test counter vec",
	}, []string{"reason"})

	reg.MustRegister(cartItemsAdded, cartRejections)

	metrics := &CheckoutMetrics{
		cartItemsAdded: cartItemsAdded,
		cartRejections: cartRejections,
	}

	metrics.RecordCartItemAdded()
	metrics.RecordCartItemAdded()
	metrics.RecordCartItemAdded()
	metrics.RecordCartRejection("product_unavailable")

	addedMetric := &dto.Metric{}
	if err := cartItemsAdded.Write(addedMetric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if addedMetric.Counter.GetValue() != 3.0 {
		t.Errorf("expected 3 items added, got %f", addedMetric.Counter.GetValue())
	}

	rejectedMetric := &dto.Metric{}
	if err := cartRejections.WithLabelValues("product_unavailable").Write(rejectedMetric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if rejectedMetric.Counter.GetValue() != 1.0 {
		t.Errorf("expected 1 rejection, got %f", rejectedMetric.Counter.GetValue())
	}
}

func TestRecordOutboxEnqueued(t *testing.T) {
	reg := prometheus.NewRegistry()

	outboxEnqueued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_outbox_enqueued_total",
		Help: "Test counter",
	})

	reg.MustRegister(outboxEnqueued)

	metrics := &CheckoutMetrics{
		outboxEnqueued: outboxEnqueued,
	}

	metrics.RecordOutboxEnqueued()
	metrics.RecordOutboxEnqueued()

	metric := &dto.Metric{}
	if err := outboxEnqueued.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestCheckoutInFlightLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()

	activeCheckouts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_active_checkouts",
		Help: "Test gauge",
	})

	reg.MustRegister(activeCheckouts)

	metrics := &CheckoutMetrics{
		activeCheckouts: activeCheckouts,
	}

	metrics.RecordCheckoutInFlightStarted()
	metrics.RecordCheckoutInFlightStarted()
	metrics.RecordCheckoutInFlightFinished()

	gaugeMetric := &dto.Metric{}
	if err := activeCheckouts.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}

	if gaugeMetric.Gauge.GetValue() != 1.0 {
		t.Errorf("expected 1.0 active checkout, got %f", gaugeMetric.Gauge.GetValue())
	}
}
