package checkout

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
)

// Processor описывает интерфейс оформления покупки.
type Processor interface {
	Purchase(customerID string) (domain.Order, error)
}

// processor реализует последовательность шагов оформления:
// Validate → DecrementStock → DebitBudget → Record.
//
// Это единственный компонент, которому разрешено списывать остатки,
// дебетовать бюджеты, фиксировать заказы и опустошать корзины.
type processor struct {
	catalog       domain.CatalogRepository
	customers     domain.CustomerRepository
	carts         domain.CartRepository
	ledger        domain.OrderLedger
	outbox        domain.OutboxRepository
	logger        *log.Entry
	metrics       *metrics.CheckoutMetrics
	kafkaProducer *kafka.Producer // опциональный Kafka producer для event-driven архитектуры
}

// NewProcessor создаёт рабочий экземпляр процессора оформления.
func NewProcessor(
	catalog domain.CatalogRepository,
	customers domain.CustomerRepository,
	carts domain.CartRepository,
	ledger domain.OrderLedger,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Processor {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &processor{
		catalog:   catalog,
		customers: customers,
		carts:     carts,
		ledger:    ledger,
		outbox:    outbox,
		logger:    logger,
		metrics:   metrics.NewCheckoutMetrics(),
	}
}

// NewProcessorWithKafka создаёт процессор с Kafka producer для event-driven архитектуры.
func NewProcessorWithKafka(
	catalog domain.CatalogRepository,
	customers domain.CustomerRepository,
	carts domain.CartRepository,
	ledger domain.OrderLedger,
	outbox domain.OutboxRepository,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) Processor {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &processor{
		catalog:       catalog,
		customers:     customers,
		carts:         carts,
		ledger:        ledger,
		outbox:        outbox,
		logger:        logger,
		metrics:       metrics.NewCheckoutMetrics(),
		kafkaProducer: kafkaProducer,
	}
}

// NewProcessorWithoutMetrics создаёт процессор без метрик (для тестов).
func NewProcessorWithoutMetrics(
	catalog domain.CatalogRepository,
	customers domain.CustomerRepository,
	carts domain.CartRepository,
	ledger domain.OrderLedger,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Processor {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &processor{
		catalog:   catalog,
		customers: customers,
		carts:     carts,
		ledger:    ledger,
		outbox:    outbox,
		logger:    logger,
		metrics:   nil, // Отключаем метрики для тестов
	}
}

// plan — результат фазы проверки: всё, что нужно фазе фиксации. Снимки
// позиций уже пересобраны по живому каталогу.
type plan struct {
	customer   domain.Customer
	items      []domain.OrderItem
	demand     domain.StockDemand
	totalMinor int64
}

// Purchase оформляет содержимое корзины покупателя как одну транзакцию:
// либо фиксируются все эффекты (остатки, бюджет, журнал, история, корзина),
// либо ни одного. Отказ возвращает ровно один из бизнес-сентинелов.
func (p *processor) Purchase(customerID string) (domain.Order, error) {
	start := time.Now()
	if p.metrics != nil {
		p.metrics.RecordCheckoutInFlightStarted()
	}
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordCheckoutDuration(time.Since(start))
			p.metrics.RecordCheckoutInFlightFinished()
		}
	}()

	stepStart := time.Now()
	checkoutPlan, err := p.validate(customerID)
	p.recordStep(domain.CheckoutStepValidate, stepStart)
	if err != nil {
		p.failPurchase(customerID, err)
		return domain.Order{}, err
	}

	order, err := p.commit(checkoutPlan)
	if err != nil {
		p.failPurchase(customerID, err)
		return domain.Order{}, err
	}

	if p.metrics != nil {
		p.metrics.RecordOrderCompleted()
		p.metrics.RecordRevenue(order.TotalMinor)
	}

	p.emitOrderCompleted(order)
	p.publishOrderCompleted(order)

	p.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"total_minor": order.TotalMinor,
		"items":       len(order.Items),
	}).Info("purchase completed")

	return order, nil
}

// validate выполняет фазу проверки. Ничего не мутирует: любой отказ на этом
// этапе оставляет все хранилища нетронутыми.
func (p *processor) validate(customerID string) (plan, error) {
	customer, err := p.customers.Get(customerID)
	if err != nil {
		return plan{}, err
	}

	cartItems := p.carts.Items(customerID)
	if len(cartItems) == 0 {
		return plan{}, domain.ErrEmptyCart
	}

	demand := domain.BuildStockDemand(cartItems)

	// Перечитываем каждый товар из живого каталога: проверяем остаток против
	// суммарной потребности корзины и собираем свежие записи для снимков.
	// Порядок обхода — порядок добавления в корзину, чтобы первый отказ был
	// детерминированным.
	products := make(map[string]domain.Product, len(demand))
	for _, item := range cartItems {
		if _, ok := products[item.ProductID]; ok {
			continue
		}
		product, err := p.catalog.Get(item.ProductID)
		if err != nil {
			return plan{}, fmt.Errorf("%w: %s", domain.ErrProductUnavailable, item.ProductID)
		}
		if need := demand.Units(product.ID); need > product.Stock {
			return plan{}, fmt.Errorf("%w: %s needs %d, stock %d",
				domain.ErrProductUnavailable, product.ID, need, product.Stock)
		}
		products[product.ID] = product
	}

	// Снимки позиций строятся по каталогу, а не по корзине: цене и названию
	// из корзины на этом этапе доверять нельзя.
	items := make([]domain.OrderItem, 0, len(cartItems))
	var total int64
	for _, cartItem := range cartItems {
		snapshot := domain.SnapshotItem(products[cartItem.ProductID])
		items = append(items, snapshot)
		total += snapshot.PriceMinor
	}

	// Предварительная проверка бюджета. Авторитетное решение принимает
	// условное списание в фазе фиксации.
	if customer.BudgetMinor < total {
		return plan{}, fmt.Errorf("%w: need %d, budget %d",
			domain.ErrInsufficientBudget, total, customer.BudgetMinor)
	}

	return plan{
		customer:   customer,
		items:      items,
		demand:     demand,
		totalMinor: total,
	}, nil
}

// commit выполняет фазу фиксации: атомарное списание остатков, условное
// списание бюджета с компенсацией, запись в журнал, историю и очистку корзины.
func (p *processor) commit(checkoutPlan plan) (domain.Order, error) {
	customerID := checkoutPlan.customer.ID

	stepStart := time.Now()
	if err := p.catalog.DecrementStock(checkoutPlan.demand); err != nil {
		// Батч не применился — остатки не изменились.
		p.recordStep(domain.CheckoutStepDecrement, stepStart)
		p.logger.WithError(err).WithField("customer_id", customerID).Warn("stock decrement rejected")
		return domain.Order{}, err
	}
	p.recordStep(domain.CheckoutStepDecrement, stepStart)

	stepStart = time.Now()
	if err := p.customers.DebitBudget(customerID, checkoutPlan.totalMinor); err != nil {
		p.recordStep(domain.CheckoutStepDebit, stepStart)
		p.logger.WithError(err).WithFields(log.Fields{
			"customer_id": customerID,
			"total_minor": checkoutPlan.totalMinor,
		}).Warn("budget debit rejected, compensating stock")
		return domain.Order{}, p.compensateStock(checkoutPlan.demand, err)
	}
	p.recordStep(domain.CheckoutStepDebit, stepStart)

	stepStart = time.Now()
	order := domain.Order{
		CustomerID: customerID,
		Items:      checkoutPlan.items,
		TotalMinor: checkoutPlan.totalMinor,
		Status:     domain.OrderStatusCompleted,
		CreatedAt:  time.Now().UTC(),
	}

	recorded, err := p.ledger.Append(order)
	if err != nil {
		// Запись в журнал не прошла — откатываем оба эффекта фиксации.
		p.recordStep(domain.CheckoutStepRecord, stepStart)
		p.logger.WithError(err).WithField("customer_id", customerID).Error("ledger append failed, compensating")
		return domain.Order{}, p.compensateAll(checkoutPlan, err)
	}

	if err := p.customers.AppendPurchases(customerID, recorded.Items); err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"order_id":    recorded.ID,
			"customer_id": customerID,
		}).Error("append purchase history failed")
	}

	p.carts.Clear(customerID)
	p.recordStep(domain.CheckoutStepRecord, stepStart)

	return recorded, nil
}

// compensateStock возвращает списанные остатки после отказа в дебете бюджета.
// Ошибка компенсации — нарушение внутреннего инварианта: она маскирует
// бизнес-отказ и поднимается как внутренняя, с обеими причинами.
func (p *processor) compensateStock(demand domain.StockDemand, rootErr error) error {
	stepStart := time.Now()
	defer p.recordStep(domain.CheckoutStepRestore, stepStart)

	if restoreErr := p.catalog.RestoreStock(demand); restoreErr != nil {
		p.logger.WithError(restoreErr).Error("stock compensation failed")
		return fmt.Errorf("restore stock after %v: %w", rootErr, restoreErr)
	}
	return rootErr
}

func (p *processor) compensateAll(checkoutPlan plan, rootErr error) error {
	err := p.compensateStock(checkoutPlan.demand, rootErr)
	if creditErr := p.customers.CreditBudget(checkoutPlan.customer.ID, checkoutPlan.totalMinor); creditErr != nil {
		p.logger.WithError(creditErr).WithField("customer_id", checkoutPlan.customer.ID).Error("budget compensation failed")
		return fmt.Errorf("credit budget after %v: %w", err, creditErr)
	}
	return err
}

// failPurchase фиксирует отказ: метрика с причиной, событие checkout.failed
// в outbox и прямая публикация в Kafka, если producer настроен.
func (p *processor) failPurchase(customerID string, cause error) {
	reason := domain.FailureReason(cause)

	if p.metrics != nil {
		p.metrics.RecordCheckoutFailure(reason)
	}

	p.logger.WithError(cause).WithFields(log.Fields{
		"customer_id": customerID,
		"reason":      reason,
	}).Info("purchase rejected")

	event := kafka.NewCheckoutFailedEvent(customerID, reason)
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("marshal checkout.failed event failed")
		return
	}
	p.enqueueEvent(domain.OutboxMessage{
		AggregateType: "customer",
		AggregateID:   customerID,
		EventType:     string(kafka.EventTypeCheckoutFailed),
		Payload:       payload,
	})

	if p.kafkaProducer != nil {
		if err := p.kafkaProducer.PublishEvent(kafka.TopicOrderEvents, customerID, event); err != nil {
			// Kafka опциональный: ошибку логируем, оформление не прерываем.
			p.logger.WithError(err).WithField("customer_id", customerID).Warn("failed to publish checkout.failed to kafka")
		}
	}
}

// emitOrderCompleted ставит событие order.completed в transactional outbox.
func (p *processor) emitOrderCompleted(order domain.Order) {
	event := kafka.NewOrderCompletedEvent(order.ID, order.CustomerID, order.TotalMinor, len(order.Items))
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("order_id", order.ID).Error("marshal order.completed event failed")
		return
	}
	p.enqueueEvent(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     string(kafka.EventTypeOrderCompleted),
		Payload:       payload,
	})
}

func (p *processor) enqueueEvent(msg domain.OutboxMessage) {
	if _, err := p.outbox.Enqueue(msg); err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"aggregate_id": msg.AggregateID,
			"event":        msg.EventType,
		}).Error("enqueue event failed")
		return
	}
	if p.metrics != nil {
		p.metrics.RecordOutboxEnqueued()
	}
}

// publishOrderCompleted публикует событие заказа напрямую в Kafka (если
// producer настроен). Outbox при этом остаётся основным каналом доставки.
func (p *processor) publishOrderCompleted(order domain.Order) {
	if p.kafkaProducer == nil {
		return // Kafka не настроен, пропускаем
	}

	event := kafka.NewOrderCompletedEvent(order.ID, order.CustomerID, order.TotalMinor, len(order.Items))
	key := strconv.FormatInt(order.ID, 10)
	if err := p.kafkaProducer.PublishEvent(kafka.TopicOrderEvents, key, event); err != nil {
		// Логируем ошибку, но не прерываем оформление — Kafka опциональный
		p.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
		}).Warn("failed to publish order.completed to kafka")
	}
}

func (p *processor) recordStep(step domain.CheckoutStep, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordStepDuration(string(step), time.Since(start))
	}
}

var _ Processor = (*processor)(nil)
