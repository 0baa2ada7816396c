package cart

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
)

// Service — стадия подготовки покупки: укладывает снимки товаров в корзину.
// Проверки здесь точечные по времени и ничего не резервируют: остаток и
// бюджет могут измениться до оформления, авторитетная проверка — в checkout.
type Service struct {
	catalog   domain.CatalogRepository
	customers domain.CustomerRepository
	carts     domain.CartRepository
	logger    *log.Entry
	metrics   *metrics.CheckoutMetrics
}

// New создаёт сервис корзины.
func New(
	catalog domain.CatalogRepository,
	customers domain.CustomerRepository,
	carts domain.CartRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Service{
		catalog:   catalog,
		customers: customers,
		carts:     carts,
		logger:    logger,
		metrics:   metrics.NewCheckoutMetrics(),
	}
}

// NewWithoutMetrics создаёт сервис корзины без метрик (для тестов).
func NewWithoutMetrics(
	catalog domain.CatalogRepository,
	customers domain.CustomerRepository,
	carts domain.CartRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Service{
		catalog:   catalog,
		customers: customers,
		carts:     carts,
		logger:    logger,
		metrics:   nil,
	}
}

// Add кладёт одну единицу товара в корзину покупателя. Допуск проверяется на
// момент вызова: товар известен каталогу и есть в наличии, цена не превышает
// текущий бюджет. Повторные добавления того же товара разрешены даже сверх
// остатка — конфликт проявится при оформлении.
func (s *Service) Add(customerID, productID string) (domain.CartItem, error) {
	customer, err := s.customers.Get(customerID)
	if err != nil {
		return domain.CartItem{}, err
	}

	product, err := s.catalog.Get(productID)
	if err != nil {
		return domain.CartItem{}, s.reject(customerID, fmt.Errorf("%w: %s", domain.ErrProductUnavailable, productID))
	}

	if !s.catalog.HasStock(productID) {
		return domain.CartItem{}, s.reject(customerID, fmt.Errorf("%w: %s is out of stock", domain.ErrProductUnavailable, productID))
	}

	if product.PriceMinor > customer.BudgetMinor {
		return domain.CartItem{}, s.reject(customerID, fmt.Errorf("%w: %s costs %d, budget %d",
			domain.ErrInsufficientBudget, productID, product.PriceMinor, customer.BudgetMinor))
	}

	item := domain.CartItem{
		ProductID:  product.ID,
		Name:       product.Name,
		Category:   product.Category,
		PriceMinor: product.PriceMinor,
		SellerID:   product.SellerID,
		AddedAt:    time.Now().UTC(),
	}
	if err := s.carts.AddItem(customerID, item); err != nil {
		return domain.CartItem{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordCartItemAdded()
	}

	s.logger.WithFields(log.Fields{
		"customer_id": customerID,
		"product_id":  productID,
	}).Debug("item staged into cart")

	return item, nil
}

// Remove убирает из корзины все единицы товара и возвращает их число.
func (s *Service) Remove(customerID, productID string) (int, error) {
	if _, err := s.customers.Get(customerID); err != nil {
		return 0, err
	}

	removed, err := s.carts.RemoveProduct(customerID, productID)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", err, productID)
	}

	s.logger.WithFields(log.Fields{
		"customer_id": customerID,
		"product_id":  productID,
		"removed":     removed,
	}).Debug("items removed from cart")

	return removed, nil
}

// View возвращает текущее содержимое корзины. Сумма — справочная, по ценам
// на момент добавления; оформление её не использует.
func (s *Service) View(customerID string) (domain.Cart, error) {
	if _, err := s.customers.Get(customerID); err != nil {
		return domain.Cart{}, err
	}

	return domain.Cart{
		CustomerID: customerID,
		Items:      s.carts.Items(customerID),
	}, nil
}

// reject фиксирует отклонённое добавление в метриках и логе.
func (s *Service) reject(customerID string, cause error) error {
	if s.metrics != nil {
		s.metrics.RecordCartRejection(domain.FailureReason(cause))
	}
	s.logger.WithError(cause).WithField("customer_id", customerID).Debug("cart add rejected")
	return cause
}
