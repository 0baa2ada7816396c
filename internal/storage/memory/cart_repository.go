package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// cartRepositoryInMemory хранит корзины покупателей: по одной на покупателя,
// позиции в порядке добавления.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string][]domain.CartItem
}

// NewCartRepository возвращает in-memory хранилище корзин.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{
		items: make(map[string][]domain.CartItem),
	}
}

// AddItem кладёт одну единицу товара в корзину покупателя.
func (r *cartRepositoryInMemory) AddItem(customerID string, item domain.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[customerID] = append(r.items[customerID], item)
	return nil
}

// RemoveProduct убирает из корзины все единицы товара и возвращает их число.
func (r *cartRepositoryInMemory) RemoveProduct(customerID, productID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.items[customerID]
	kept := current[:0:0]
	removed := 0
	for _, item := range current {
		if item.ProductID == productID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	if removed == 0 {
		return 0, domain.ErrNotInCart
	}

	if len(kept) == 0 {
		delete(r.items, customerID)
	} else {
		r.items[customerID] = kept
	}
	return removed, nil
}

// Items возвращает копию содержимого корзины в порядке добавления.
func (r *cartRepositoryInMemory) Items(customerID string) []domain.CartItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current := r.items[customerID]
	if len(current) == 0 {
		return nil
	}
	result := make([]domain.CartItem, len(current))
	copy(result, current)
	return result
}

// Clear опустошает корзину покупателя.
func (r *cartRepositoryInMemory) Clear(customerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, customerID)
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
