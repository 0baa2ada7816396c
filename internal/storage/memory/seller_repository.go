package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// sellerRepositoryInMemory хранит продавцов и их ссылки на записи каталога.
type sellerRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Seller
}

// NewSellerRepository возвращает in-memory хранилище продавцов.
func NewSellerRepository() domain.SellerRepository {
	return &sellerRepositoryInMemory{
		items: make(map[string]domain.Seller),
	}
}

// Add регистрирует продавца, если ID ещё не занят.
func (r *sellerRepositoryInMemory) Add(seller domain.Seller) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[seller.ID]; exists {
		return domain.ErrSellerExists
	}
	r.items[seller.ID] = cloneSeller(seller)
	return nil
}

// Get возвращает продавца или ErrSellerNotFound.
func (r *sellerRepositoryInMemory) Get(id string) (domain.Seller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seller, ok := r.items[id]
	if !ok {
		return domain.Seller{}, domain.ErrSellerNotFound
	}
	return cloneSeller(seller), nil
}

// List возвращает всех продавцов в порядке регистрации.
func (r *sellerRepositoryInMemory) List() []domain.Seller {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Seller, 0, len(r.items))
	for _, seller := range r.items {
		result = append(result, cloneSeller(seller))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result
}

// AttachProduct привязывает запись каталога к продавцу. Повторная привязка
// того же товара не дублирует ссылку.
func (r *sellerRepositoryInMemory) AttachProduct(sellerID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seller, ok := r.items[sellerID]
	if !ok {
		return domain.ErrSellerNotFound
	}
	if seller.Owns(productID) {
		return nil
	}
	seller.ProductIDs = append(seller.ProductIDs, productID)
	r.items[sellerID] = seller
	return nil
}

// cloneSeller копирует продавца вместе со слайсом ссылок на товары.
func cloneSeller(s domain.Seller) domain.Seller {
	clone := s
	if len(s.ProductIDs) != 0 {
		clone.ProductIDs = make([]string, len(s.ProductIDs))
		copy(clone.ProductIDs, s.ProductIDs)
	}
	return clone
}

var _ domain.SellerRepository = (*sellerRepositoryInMemory)(nil)
