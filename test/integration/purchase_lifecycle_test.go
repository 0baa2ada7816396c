package integration

import (
	"context"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/seed"
	"github.com/vladislavdragonenkov/marketplace/internal/service/browse"
	"github.com/vladislavdragonenkov/marketplace/internal/service/cart"
	"github.com/vladislavdragonenkov/marketplace/internal/service/checkout"
	"github.com/vladislavdragonenkov/marketplace/internal/service/outbox"
	"github.com/vladislavdragonenkov/marketplace/internal/service/registry"
	"github.com/vladislavdragonenkov/marketplace/internal/service/reporting"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

// PurchaseLifecycleTestSuite тестирует полный жизненный цикл покупки.
type PurchaseLifecycleTestSuite struct {
	suite.Suite
	catalog   domain.CatalogRepository
	customers domain.CustomerRepository
	sellers   domain.SellerRepository
	carts     domain.CartRepository
	ledger    domain.OrderLedger
	outbox    domain.OutboxRepository

	registry  *registry.Service
	browse    *browse.Service
	cartSvc   *cart.Service
	reporting *reporting.Service
	processor checkout.Processor

	logger *log.Entry
}

func (suite *PurchaseLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	suite.logger = baseLogger.WithField("component", "integration-test")

	suite.catalog = memory.NewCatalogRepository()
	suite.customers = memory.NewCustomerRepository()
	suite.sellers = memory.NewSellerRepository()
	suite.carts = memory.NewCartRepository()
	suite.ledger = memory.NewOrderLedger()
	suite.outbox = memory.NewOutboxRepository()

	suite.registry = registry.New(suite.customers, suite.sellers, suite.catalog, suite.logger)
	suite.browse = browse.New(suite.catalog, suite.customers, suite.logger)
	suite.cartSvc = cart.NewWithoutMetrics(suite.catalog, suite.customers, suite.carts, suite.logger)
	suite.reporting = reporting.New(suite.catalog, suite.customers, suite.sellers, suite.ledger, suite.logger)
	suite.processor = checkout.NewProcessorWithoutMetrics(
		suite.catalog,
		suite.customers,
		suite.carts,
		suite.ledger,
		suite.outbox,
		suite.logger,
	)

	require.NoError(suite.T(), seed.Apply(seed.Default(), suite.registry))
}

func (suite *PurchaseLifecycleTestSuite) TestSuccessfulPurchaseLifecycle() {
	// 1. Витрина видна покупателю, персональная выдача уважает предпочтения
	available := suite.browse.Available()
	require.Len(suite.T(), available, 9)

	personalized, err := suite.browse.ForCustomer("cust-1")
	require.NoError(suite.T(), err)
	require.NotEmpty(suite.T(), personalized)
	for _, product := range personalized {
		require.Contains(suite.T(),
			[]domain.Category{domain.CategoryElectronics, domain.CategoryBooks},
			product.Category,
		)
	}

	// 2. Складываем товары в корзину
	_, err = suite.cartSvc.Add("cust-1", "prod-1") // $999.99
	require.NoError(suite.T(), err)
	_, err = suite.cartSvc.Add("cust-1", "prod-3") // $79.99
	require.NoError(suite.T(), err)

	view, err := suite.cartSvc.View("cust-1")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), view.Items, 2)
	require.Equal(suite.T(), int64(107998), view.TotalMinor())

	// 3. Оформляем покупку
	order, err := suite.processor.Purchase("cust-1")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(1), order.ID)
	require.Equal(suite.T(), domain.OrderStatusCompleted, order.Status)
	require.Equal(suite.T(), int64(107998), order.TotalMinor)
	require.Len(suite.T(), order.Items, 2)

	// 4. Остатки и бюджет списаны атомарно
	prod1, err := suite.catalog.Get("prod-1")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 4, prod1.Stock)

	prod3, err := suite.catalog.Get("prod-3")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 7, prod3.Stock)

	customer, err := suite.customers.Get("cust-1")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(42002), customer.BudgetMinor)

	// 5. Корзина опустошена, журнал пополнен
	view, err = suite.cartSvc.View("cust-1")
	require.NoError(suite.T(), err)
	require.True(suite.T(), view.IsEmpty())

	require.Equal(suite.T(), 1, suite.ledger.Count())
	require.Equal(suite.T(), int64(107998), suite.ledger.TotalRevenueMinor())

	// 6. История покупок и событие заказа
	history, err := suite.reporting.PurchaseHistory("cust-1")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), history, 2)

	orders, err := suite.reporting.OrdersOf("cust-1")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), orders, 1)

	pending, err := suite.outbox.PullPending(10)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), pending, 1)
	require.Equal(suite.T(), string(kafka.EventTypeOrderCompleted), pending[0].EventType)
	require.Equal(suite.T(), "order", pending[0].AggregateType)
}

func (suite *PurchaseLifecycleTestSuite) TestBudgetRejectionKeepsCartForRetry() {
	// Каждая позиция по отдельности вписывается в бюджет, но сумма — нет.
	_, err := suite.registry.RegisterCustomer(domain.Customer{
		ID:          "cust-tight",
		Name:        "Tight Budget",
		BudgetMinor: 10000,
	})
	require.NoError(suite.T(), err)

	_, err = suite.cartSvc.Add("cust-tight", "prod-3") // $79.99
	require.NoError(suite.T(), err)
	_, err = suite.cartSvc.Add("cust-tight", "prod-4") // $29.99, сумма $109.98
	require.NoError(suite.T(), err)

	// 1. Оформление отклонено, состояние не тронуто
	_, err = suite.processor.Purchase("cust-tight")
	require.ErrorIs(suite.T(), err, domain.ErrInsufficientBudget)

	prod3, err := suite.catalog.Get("prod-3")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 8, prod3.Stock)

	customer, err := suite.customers.Get("cust-tight")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(10000), customer.BudgetMinor)

	require.Equal(suite.T(), 0, suite.ledger.Count())

	// 2. Корзина сохранена: покупатель может её поправить
	view, err := suite.cartSvc.View("cust-tight")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), view.Items, 2)

	removed, err := suite.cartSvc.Remove("cust-tight", "prod-4")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 1, removed)

	// 3. Повторное оформление проходит
	order, err := suite.processor.Purchase("cust-tight")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(7999), order.TotalMinor)

	customer, err = suite.customers.Get("cust-tight")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(2001), customer.BudgetMinor)

	// 4. Outbox хранит и отказ, и успех
	pending, err := suite.outbox.PullPending(10)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), pending, 2)

	byType := make(map[string]int)
	for _, msg := range pending {
		byType[msg.EventType]++
	}
	require.Equal(suite.T(), 1, byType[string(kafka.EventTypeCheckoutFailed)])
	require.Equal(suite.T(), 1, byType[string(kafka.EventTypeOrderCompleted)])
}

func (suite *PurchaseLifecycleTestSuite) TestLastUnitContention() {
	// Два покупателя претендуют на последний ноутбук: корзина ничего не
	// резервирует, побеждает тот, кто оформит первым.
	for _, id := range []string{"rich-1", "rich-2"} {
		_, err := suite.registry.RegisterCustomer(domain.Customer{
			ID:          id,
			Name:        "Shopper " + id,
			BudgetMinor: 250000,
		})
		require.NoError(suite.T(), err)
	}

	_, err := suite.cartSvc.Add("rich-1", "prod-2")
	require.NoError(suite.T(), err)
	_, err = suite.cartSvc.Add("rich-2", "prod-2")
	require.NoError(suite.T(), err)

	order, err := suite.processor.Purchase("rich-2")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(199999), order.TotalMinor)

	_, err = suite.processor.Purchase("rich-1")
	require.ErrorIs(suite.T(), err, domain.ErrProductUnavailable)

	// Остаток не ушёл в минус, проигравший не потерял денег
	prod2, err := suite.catalog.Get("prod-2")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 0, prod2.Stock)

	loser, err := suite.customers.Get("rich-1")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(250000), loser.BudgetMinor)

	require.Equal(suite.T(), 1, suite.ledger.Count())
}

func (suite *PurchaseLifecycleTestSuite) TestEmptyCartRejection() {
	_, err := suite.processor.Purchase("cust-1")
	require.ErrorIs(suite.T(), err, domain.ErrEmptyCart)

	require.Equal(suite.T(), 0, suite.ledger.Count())

	// Отказ фиксируется событием даже для пустой корзины
	stats, err := suite.outbox.Stats()
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 1, stats.PendingCount)
}

func (suite *PurchaseLifecycleTestSuite) TestReportingAggregates() {
	_, err := suite.cartSvc.Add("cust-3", "prod-5")
	require.NoError(suite.T(), err)
	_, err = suite.processor.Purchase("cust-3")
	require.NoError(suite.T(), err)

	stats := suite.reporting.Stats()
	require.Equal(suite.T(), 3, stats.Customers)
	require.Equal(suite.T(), 3, stats.Sellers)
	require.Equal(suite.T(), 9, stats.ProductsListed)
	require.Equal(suite.T(), 9, stats.ProductsAvailable)
	require.Equal(suite.T(), 1, stats.OrdersCompleted)
	require.Equal(suite.T(), int64(8999), stats.RevenueMinor)

	// Сводка нетронутого продавца детерминирована
	report, err := suite.reporting.SellerReport("bookworld")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 3, report.ProductCount)
	require.Equal(suite.T(), 33, report.UnitsInStock)
	require.Equal(suite.T(), int64(83967), report.InventoryValueMinor)
	require.Empty(suite.T(), report.LowStock)

	// Последний ноутбук числится в низких остатках
	report, err = suite.reporting.SellerReport("techstore")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), report.LowStock, 1)
	require.Equal(suite.T(), "prod-2", report.LowStock[0].ID)
}

func (suite *PurchaseLifecycleTestSuite) TestOutboxDrainAfterPurchases() {
	// Успешная покупка и отказ кладут по событию; воркер публикует оба.
	_, err := suite.cartSvc.Add("cust-1", "prod-3")
	require.NoError(suite.T(), err)
	_, err = suite.processor.Purchase("cust-1")
	require.NoError(suite.T(), err)

	_, err = suite.processor.Purchase("cust-2") // пустая корзина
	require.ErrorIs(suite.T(), err, domain.ErrEmptyCart)

	publisher := &capturingPublisher{}
	worker := outbox.NewWorker(suite.outbox, publisher,
		outbox.WithLogger(suite.logger),
		outbox.WithBatchSize(10),
	)
	worker.ProcessOnce(context.Background())

	events := publisher.events()
	require.Len(suite.T(), events, 2)

	byType := make(map[string]int)
	for _, event := range events {
		byType[event.EventType]++
	}
	require.Equal(suite.T(), 1, byType[string(kafka.EventTypeOrderCompleted)])
	require.Equal(suite.T(), 1, byType[string(kafka.EventTypeCheckoutFailed)])

	stats, err := suite.outbox.Stats()
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 0, stats.PendingCount)
}

// capturingPublisher копит опубликованные события для проверок.
type capturingPublisher struct {
	mu        sync.Mutex
	published []domain.OutboxMessage
}

func (p *capturingPublisher) Publish(event domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event)
	return nil
}

func (p *capturingPublisher) events() []domain.OutboxMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.OutboxMessage, len(p.published))
	copy(out, p.published)
	return out
}

func TestPurchaseLifecycle(t *testing.T) {
	suite.Run(t, new(PurchaseLifecycleTestSuite))
}
