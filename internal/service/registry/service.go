package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// Service регистрирует покупателей и продавцов и отвечает за справочные
// выборки по ним. Продавец владеет записями каталога по ссылке: регистрация
// продавца засевает каталог его стартовыми товарами.
type Service struct {
	customers domain.CustomerRepository
	sellers   domain.SellerRepository
	catalog   domain.CatalogRepository
	logger    *log.Entry
}

// New создаёт сервис реестра.
func New(
	customers domain.CustomerRepository,
	sellers domain.SellerRepository,
	catalog domain.CatalogRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "registry")
	}
	return &Service{
		customers: customers,
		sellers:   sellers,
		catalog:   catalog,
		logger:    logger,
	}
}

// RegisterCustomer валидирует и сохраняет покупателя. Пустой ID заменяется
// на uuid; повторная регистрация занятого ID отклоняется.
func (s *Service) RegisterCustomer(customer domain.Customer) (domain.Customer, error) {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	if errs := customer.Validate(); len(errs) > 0 {
		return domain.Customer{}, fmt.Errorf("%w: %s", domain.ErrInvalidCustomer, errors.Join(errs...))
	}

	if err := s.customers.Add(customer); err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithFields(log.Fields{
		"customer_id":  customer.ID,
		"budget_minor": customer.BudgetMinor,
	}).Info("customer registered")

	return customer, nil
}

// RegisterSeller сохраняет продавца и засевает каталог его стартовыми
// товарами. Ошибка на одном из товаров прерывает оставшиеся вставки, но уже
// зарегистрированные записи остаются: регистрация не транзакционна и
// рассчитана на одноразовый bootstrap.
func (s *Service) RegisterSeller(seller domain.Seller, products []domain.Product) (domain.Seller, error) {
	if seller.ID == "" {
		seller.ID = uuid.NewString()
	}
	if seller.CreatedAt.IsZero() {
		seller.CreatedAt = time.Now().UTC()
	}
	seller.ProductIDs = nil

	if errs := seller.Validate(); len(errs) > 0 {
		return domain.Seller{}, fmt.Errorf("%w: %s", domain.ErrInvalidSeller, errors.Join(errs...))
	}

	if err := s.sellers.Add(seller); err != nil {
		return domain.Seller{}, err
	}

	for _, product := range products {
		added, err := s.AddProduct(seller.ID, product)
		if err != nil {
			return domain.Seller{}, fmt.Errorf("seed product %q: %w", product.Name, err)
		}
		seller.ProductIDs = append(seller.ProductIDs, added.ID)
	}

	s.logger.WithFields(log.Fields{
		"seller_id": seller.ID,
		"products":  len(seller.ProductIDs),
	}).Info("seller registered")

	return seller, nil
}

// AddProduct регистрирует новую запись каталога от имени продавца.
// SellerID в записи всегда принудительно выставляется на владельца.
func (s *Service) AddProduct(sellerID string, product domain.Product) (domain.Product, error) {
	if _, err := s.sellers.Get(sellerID); err != nil {
		return domain.Product{}, err
	}

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.SellerID = sellerID

	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrInvalidProduct, errors.Join(errs...))
	}

	if err := s.catalog.Add(product); err != nil {
		return domain.Product{}, err
	}

	if err := s.sellers.AttachProduct(sellerID, product.ID); err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"seller_id":   sellerID,
		"product_id":  product.ID,
		"price_minor": product.PriceMinor,
		"stock":       product.Stock,
	}).Debug("product listed")

	return product, nil
}

// Customer возвращает покупателя по идентификатору.
func (s *Service) Customer(id string) (domain.Customer, error) {
	return s.customers.Get(id)
}

// Seller возвращает продавца по идентификатору.
func (s *Service) Seller(id string) (domain.Seller, error) {
	return s.sellers.Get(id)
}

// Customers возвращает всех зарегистрированных покупателей.
func (s *Service) Customers() []domain.Customer {
	return s.customers.List()
}

// Sellers возвращает всех зарегистрированных продавцов.
func (s *Service) Sellers() []domain.Seller {
	return s.sellers.List()
}

// SellerName — справочный хелпер для отображения: неизвестный ID деградирует
// в "unknown" вместо ошибки.
func (s *Service) SellerName(id string) string {
	seller, err := s.sellers.Get(id)
	if err != nil {
		return "unknown"
	}
	return seller.Name
}
