package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/browse"
	"github.com/vladislavdragonenkov/marketplace/internal/service/cart"
	"github.com/vladislavdragonenkov/marketplace/internal/service/registry"
	"github.com/vladislavdragonenkov/marketplace/internal/service/reporting"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

// Dependencies содержит хранилища и сервисы приложения.
type Dependencies struct {
	Catalog   domain.CatalogRepository
	Customers domain.CustomerRepository
	Sellers   domain.SellerRepository
	Carts     domain.CartRepository
	Ledger    domain.OrderLedger
	Outbox    domain.OutboxRepository

	Registry  *registry.Service
	Browse    *browse.Service
	Cart      *cart.Service
	Reporting *reporting.Service

	Logger *log.Entry
}

// NewDependencies создаёт in-memory хранилища и собирает на них сервисы.
func NewDependencies(logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	catalog := memory.NewCatalogRepository()
	customers := memory.NewCustomerRepository()
	sellers := memory.NewSellerRepository()
	carts := memory.NewCartRepository()
	ledger := memory.NewOrderLedger()
	outbox := memory.NewOutboxRepository()

	return &Dependencies{
		Catalog:   catalog,
		Customers: customers,
		Sellers:   sellers,
		Carts:     carts,
		Ledger:    ledger,
		Outbox:    outbox,
		Registry:  registry.New(customers, sellers, catalog, logger.WithField("component", "registry")),
		Browse:    browse.New(catalog, customers, logger.WithField("component", "browse")),
		Cart:      cart.New(catalog, customers, carts, logger.WithField("component", "cart")),
		Reporting: reporting.New(catalog, customers, sellers, ledger, logger.WithField("component", "reporting")),
		Logger:    logger,
	}
}
