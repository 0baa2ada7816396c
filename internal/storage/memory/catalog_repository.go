package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// catalogRepositoryInMemory — in-memory реализация общего каталога товаров.
// Все операции проходят под одним мьютексом, поэтому батч-списание остатков
// атомарно относительно любых конкурентных чтений и списаний.
type catalogRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewCatalogRepository возвращает in-memory каталог.
func NewCatalogRepository() domain.CatalogRepository {
	return &catalogRepositoryInMemory{
		items: make(map[string]domain.Product),
	}
}

// Add регистрирует товар, если ID ещё не занят.
func (r *catalogRepositoryInMemory) Add(product domain.Product) error {
	if errs := product.Validate(); len(errs) != 0 {
		return fmt.Errorf("invalid product %q: %w", product.ID, errors.Join(errs...))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[product.ID]; exists {
		return domain.ErrProductExists
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[product.ID] = product
	return nil
}

// Get возвращает товар или ErrProductNotFound, если его нет.
func (r *catalogRepositoryInMemory) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// List возвращает все записи каталога в порядке регистрации.
func (r *catalogRepositoryInMemory) List() []domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(domain.Product) bool { return true })
}

// ListBySeller возвращает записи каталога одного продавца.
func (r *catalogRepositoryInMemory) ListBySeller(sellerID string) []domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(p domain.Product) bool { return p.SellerID == sellerID })
}

// Available возвращает товары с остатком не меньше единицы.
func (r *catalogRepositoryInMemory) Available() []domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(p domain.Product) bool { return p.InStock() })
}

// HasStock сообщает, есть ли остаток у товара. Для неизвестного ID — false.
func (r *catalogRepositoryInMemory) HasStock(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	return ok && product.InStock()
}

// DecrementStock списывает остатки по батчу целиком либо не делает ничего.
// Сначала проверяются все позиции, затем применяются все списания: батч,
// где хотя бы одной позиции не хватает остатка, не меняет каталог вовсе.
func (r *catalogRepositoryInMemory) DecrementStock(demand domain.StockDemand) error {
	if len(demand) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, units := range demand {
		if units <= 0 {
			return fmt.Errorf("demand for product %q must be positive, got %d", id, units)
		}
		product, ok := r.items[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrProductUnavailable, id)
		}
		// Потребность сравнивается с единственным текущим остатком: две
		// единицы в батче при остатке 1 отклоняются целиком.
		if product.Stock < units {
			return fmt.Errorf("%w: %s needs %d, stock %d", domain.ErrProductUnavailable, id, units, product.Stock)
		}
	}

	for id, units := range demand {
		product := r.items[id]
		product.Stock -= units
		r.items[id] = product
	}
	return nil
}

// RestoreStock возвращает списанные единицы (компенсация неудачной фиксации).
func (r *catalogRepositoryInMemory) RestoreStock(demand domain.StockDemand) error {
	if len(demand) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, units := range demand {
		if units <= 0 {
			return fmt.Errorf("restore for product %q must be positive, got %d", id, units)
		}
		if _, ok := r.items[id]; !ok {
			return fmt.Errorf("%w: restore for unknown product %s", domain.ErrProductNotFound, id)
		}
	}

	for id, units := range demand {
		product := r.items[id]
		product.Stock += units
		r.items[id] = product
	}
	return nil
}

// collect отбирает записи и сортирует их по моменту регистрации.
// Вызывать только под блокировкой.
func (r *catalogRepositoryInMemory) collect(keep func(domain.Product) bool) []domain.Product {
	result := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		if keep(product) {
			result = append(result, product)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result
}

var _ domain.CatalogRepository = (*catalogRepositoryInMemory)(nil)
