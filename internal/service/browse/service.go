package browse

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// Service отвечает за витрину: read-only выборки каталога для показа
// покупателю. Ничего не мутирует и никак не ограничивает покупку —
// персонализация чисто справочная.
type Service struct {
	catalog   domain.CatalogRepository
	customers domain.CustomerRepository
	logger    *log.Entry
}

// New создаёт сервис витрины.
func New(catalog domain.CatalogRepository, customers domain.CustomerRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "browse")
	}
	return &Service{
		catalog:   catalog,
		customers: customers,
		logger:    logger,
	}
}

// Available возвращает все товары с ненулевым остатком.
func (s *Service) Available() []domain.Product {
	return s.catalog.Available()
}

// ByCategory возвращает доступные товары одной категории.
func (s *Service) ByCategory(category domain.Category) ([]domain.Product, error) {
	if !category.Valid() {
		return nil, domain.ErrCategoryInvalid
	}

	var result []domain.Product
	for _, product := range s.catalog.Available() {
		if product.Category == category {
			result = append(result, product)
		}
	}
	return result, nil
}

// ForCustomer возвращает доступные товары, отфильтрованные по предпочтениям
// покупателя и потолку его бюджета. Пустой список предпочтений означает
// «все категории».
func (s *Service) ForCustomer(customerID string) ([]domain.Product, error) {
	customer, err := s.customers.Get(customerID)
	if err != nil {
		return nil, err
	}

	var result []domain.Product
	for _, product := range s.catalog.Available() {
		if len(customer.Preferences) > 0 && !customer.PrefersCategory(product.Category) {
			continue
		}
		if product.PriceMinor > customer.BudgetMinor {
			continue
		}
		result = append(result, product)
	}
	return result, nil
}
