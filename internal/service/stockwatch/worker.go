package stockwatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
)

const (
	defaultScanInterval      = 30 * time.Second
	defaultLowStockThreshold = 5
)

var (
	productsAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_products_available",
		Help: "Number of catalog products with at least one unit in stock.",
	})
	productsLowStock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_products_low_stock",
		Help: "Number of catalog products below the low-stock threshold.",
	})
	inventoryValueMinor = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_inventory_value_minor",
		Help: "Total value of all catalog stock in minor currency units.",
	})
	stockLowEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_stock_low_events_total",
		Help: "Total number of emitted stock.low events.",
	})
)

// Options задает параметры воркера мониторинга остатков.
type Options struct {
	Logger    *log.Entry
	Interval  time.Duration
	Threshold int
}

// Option настраивает Worker.
type Option func(*Options)

// WithLogger задает logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithInterval задает интервал между сканированиями каталога.
func WithInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = interval
	}
}

// WithThreshold задает порог низкого остатка. Товар с остатком строго ниже
// порога считается low-stock; нулевой остаток — всегда.
func WithThreshold(threshold int) Option {
	return func(opts *Options) {
		opts.Threshold = threshold
	}
}

// Worker периодически сканирует каталог: обновляет инвентарные метрики и
// ставит событие stock.low в outbox в момент, когда остаток товара опускается
// ниже порога. Повторные сканирования того же товара события не дублируют:
// защёлка сбрасывается только после пополнения остатка.
type Worker struct {
	catalog   domain.CatalogRepository
	outbox    domain.OutboxRepository
	logger    *log.Entry
	interval  time.Duration
	threshold int

	// lowSeen помнит товары, по которым событие уже поставлено.
	// Доступ только из горутины Run / вызовов ScanOnce.
	lowSeen map[string]bool
}

// NewWorker создает воркер мониторинга остатков каталога.
func NewWorker(catalog domain.CatalogRepository, outbox domain.OutboxRepository, options ...Option) *Worker {
	opts := Options{
		Interval:  defaultScanInterval,
		Threshold: defaultLowStockThreshold,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "stockwatch-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultScanInterval
	}
	if opts.Threshold <= 0 {
		opts.Threshold = defaultLowStockThreshold
	}

	return &Worker{
		catalog:   catalog,
		outbox:    outbox,
		logger:    logger,
		interval:  opts.Interval,
		threshold: opts.Threshold,
		lowSeen:   make(map[string]bool),
	}
}

// Run запускает периодическое сканирование до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.catalog == nil {
		w.logger.Warn("stockwatch worker is disabled: catalog is nil")
		return
	}

	w.ScanOnce()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ScanOnce()
		}
	}
}

// ScanOnce выполняет одно сканирование каталога: пересчитывает инвентарные
// gauge-метрики и эмитит stock.low по каждому товару, пересёкшему порог вниз
// с момента прошлого сканирования.
func (w *Worker) ScanOnce() {
	products := w.catalog.List()

	var available, low int
	var valueMinor int64
	for _, product := range products {
		if product.InStock() {
			available++
		}
		valueMinor += product.InventoryValueMinor()

		if product.Stock >= w.threshold {
			// Пополнение остатка снимает защёлку: следующее падение ниже
			// порога снова даст событие.
			delete(w.lowSeen, product.ID)
			continue
		}

		low++
		if w.lowSeen[product.ID] {
			continue
		}
		if w.emitStockLow(product) {
			// Защёлка взводится только после успешной постановки: при ошибке
			// outbox событие уйдёт со следующего сканирования.
			w.lowSeen[product.ID] = true
		}
	}

	productsAvailable.Set(float64(available))
	productsLowStock.Set(float64(low))
	inventoryValueMinor.Set(float64(valueMinor))
}

func (w *Worker) emitStockLow(product domain.Product) bool {
	event := kafka.NewStockLowEvent(product.ID, product.SellerID, product.Stock, w.threshold)
	payload, err := json.Marshal(event)
	if err != nil {
		w.logger.WithError(err).WithField("product_id", product.ID).Error("marshal stock.low event failed")
		return false
	}

	_, err = w.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "product",
		AggregateID:   product.ID,
		EventType:     string(kafka.EventTypeStockLow),
		Payload:       payload,
	})
	if err != nil {
		w.logger.WithError(err).WithField("product_id", product.ID).Error("enqueue stock.low event failed")
		return false
	}

	stockLowEventsTotal.Inc()
	w.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"seller_id":  product.SellerID,
		"stock":      product.Stock,
		"threshold":  w.threshold,
	}).Warn("product stock low")

	return true
}
