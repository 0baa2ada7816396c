package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// customerRepositoryInMemory хранит покупателей, их бюджеты и историю
// покупок. Бюджетные операции условны и атомарны: баланс не уходит в минус.
type customerRepositoryInMemory struct {
	mu        sync.RWMutex
	items     map[string]domain.Customer
	purchases map[string][]domain.OrderItem
}

// NewCustomerRepository возвращает in-memory хранилище покупателей.
func NewCustomerRepository() domain.CustomerRepository {
	return &customerRepositoryInMemory{
		items:     make(map[string]domain.Customer),
		purchases: make(map[string][]domain.OrderItem),
	}
}

// Add регистрирует покупателя, если ID ещё не занят.
func (r *customerRepositoryInMemory) Add(customer domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[customer.ID]; exists {
		return domain.ErrCustomerExists
	}
	r.items[customer.ID] = cloneCustomer(customer)
	return nil
}

// Get возвращает покупателя или ErrCustomerNotFound.
func (r *customerRepositoryInMemory) Get(id string) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, ok := r.items[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return cloneCustomer(customer), nil
}

// List возвращает всех покупателей в порядке регистрации.
func (r *customerRepositoryInMemory) List() []domain.Customer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Customer, 0, len(r.items))
	for _, customer := range r.items {
		result = append(result, cloneCustomer(customer))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result
}

// DebitBudget списывает сумму, только если бюджета хватает. Проверка и
// списание выполняются под одной блокировкой, поэтому конкурентные покупки
// не могут увести бюджет в минус.
func (r *customerRepositoryInMemory) DebitBudget(id string, amountMinor int64) error {
	if amountMinor < 0 {
		return fmt.Errorf("debit amount must be non-negative, got %d", amountMinor)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	customer, ok := r.items[id]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	if customer.BudgetMinor < amountMinor {
		return fmt.Errorf("%w: need %d, budget %d", domain.ErrInsufficientBudget, amountMinor, customer.BudgetMinor)
	}
	customer.BudgetMinor -= amountMinor
	r.items[id] = customer
	return nil
}

// CreditBudget зачисляет сумму на бюджет покупателя.
func (r *customerRepositoryInMemory) CreditBudget(id string, amountMinor int64) error {
	if amountMinor < 0 {
		return fmt.Errorf("credit amount must be non-negative, got %d", amountMinor)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	customer, ok := r.items[id]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	customer.BudgetMinor += amountMinor
	r.items[id] = customer
	return nil
}

// AppendPurchases дописывает снимки купленных позиций в историю покупок.
func (r *customerRepositoryInMemory) AppendPurchases(id string, items []domain.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrCustomerNotFound
	}
	r.purchases[id] = append(r.purchases[id], items...)
	return nil
}

// Purchases возвращает копию истории покупок в порядке совершения.
func (r *customerRepositoryInMemory) Purchases(id string) ([]domain.OrderItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.items[id]; !ok {
		return nil, domain.ErrCustomerNotFound
	}

	history := r.purchases[id]
	result := make([]domain.OrderItem, len(history))
	copy(result, history)
	return result, nil
}

// cloneCustomer копирует покупателя вместе со слайсом предпочтений.
func cloneCustomer(c domain.Customer) domain.Customer {
	clone := c
	if len(c.Preferences) != 0 {
		clone.Preferences = make([]domain.Category, len(c.Preferences))
		copy(clone.Preferences, c.Preferences)
	}
	return clone
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
