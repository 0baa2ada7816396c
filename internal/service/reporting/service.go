package reporting

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// LowStockThreshold — порог отчёта о низких остатках: low — это строго
// меньше порога, нулевой остаток тоже считается.
const LowStockThreshold = 5

// SellerReport — сводка по продавцу: его записи каталога, стоимость остатка
// и позиции с низким остатком.
type SellerReport struct {
	Seller              domain.Seller
	Products            []domain.Product
	ProductCount        int
	UnitsInStock        int
	InventoryValueMinor int64
	LowStock            []domain.Product
}

// MarketplaceStats — агрегированная статистика маркетплейса.
type MarketplaceStats struct {
	Customers         int
	Sellers           int
	ProductsListed    int
	ProductsAvailable int
	OrdersCompleted   int
	RevenueMinor      int64
}

// Service строит отчёты по живым хранилищам. Ничего не кэшируется: каждый
// вызов пересчитывает сводку заново.
type Service struct {
	catalog   domain.CatalogRepository
	customers domain.CustomerRepository
	sellers   domain.SellerRepository
	ledger    domain.OrderLedger
	logger    *log.Entry
}

// New создаёт сервис отчётности.
func New(
	catalog domain.CatalogRepository,
	customers domain.CustomerRepository,
	sellers domain.SellerRepository,
	ledger domain.OrderLedger,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "reporting")
	}
	return &Service{
		catalog:   catalog,
		customers: customers,
		sellers:   sellers,
		ledger:    ledger,
		logger:    logger,
	}
}

// SellerReport собирает сводку по одному продавцу.
func (s *Service) SellerReport(sellerID string) (SellerReport, error) {
	seller, err := s.sellers.Get(sellerID)
	if err != nil {
		return SellerReport{}, err
	}

	products := s.catalog.ListBySeller(sellerID)

	report := SellerReport{
		Seller:       seller,
		Products:     products,
		ProductCount: len(products),
	}
	for _, product := range products {
		report.UnitsInStock += product.Stock
		report.InventoryValueMinor += product.InventoryValueMinor()
		if product.Stock < LowStockThreshold {
			report.LowStock = append(report.LowStock, product)
		}
	}

	return report, nil
}

// Stats возвращает агрегированную статистику маркетплейса. Выручка — сумма
// итогов завершённых заказов журнала.
func (s *Service) Stats() MarketplaceStats {
	return MarketplaceStats{
		Customers:         len(s.customers.List()),
		Sellers:           len(s.sellers.List()),
		ProductsListed:    len(s.catalog.List()),
		ProductsAvailable: len(s.catalog.Available()),
		OrdersCompleted:   s.ledger.Count(),
		RevenueMinor:      s.ledger.TotalRevenueMinor(),
	}
}

// PurchaseHistory возвращает историю покупок покупателя в порядке совершения.
func (s *Service) PurchaseHistory(customerID string) ([]domain.OrderItem, error) {
	return s.customers.Purchases(customerID)
}

// OrdersOf возвращает заказы покупателя, новые первыми.
func (s *Service) OrdersOf(customerID string) ([]domain.Order, error) {
	if _, err := s.customers.Get(customerID); err != nil {
		return nil, err
	}
	return s.ledger.ListByCustomer(customerID, 0)
}
