package memory

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// orderLedgerInMemory — журнал заказов только на дозапись. Идентификаторы
// выдаются под блокировкой журнала: строго возрастающие, начиная с 1, без
// пропусков, поэтому заказ с ID n лежит по индексу n-1.
type orderLedgerInMemory struct {
	mu     sync.RWMutex
	orders []domain.Order
}

// NewOrderLedger возвращает in-memory журнал заказов.
func NewOrderLedger() domain.OrderLedger {
	return &orderLedgerInMemory{}
}

// Append присваивает заказу следующий ID, проверяет инварианты и сохраняет
// запись. Заказ с нарушенными инвариантами в журнал не попадает.
func (r *orderLedgerInMemory) Append(order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order.ID = int64(len(r.orders)) + 1
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	if errs := order.ValidateInvariants(); len(errs) != 0 {
		return domain.Order{}, fmt.Errorf("order rejected by ledger: %w", errors.Join(errs...))
	}

	r.orders = append(r.orders, cloneOrder(order))
	return order, nil
}

// Get возвращает заказ или ErrOrderNotFound.
func (r *orderLedgerInMemory) Get(id int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id < 1 || id > int64(len(r.orders)) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(r.orders[id-1]), nil
}

// ListByCustomer возвращает заказы покупателя, новые первыми,
// ограничивая выборку limit (если >0).
func (r *orderLedgerInMemory) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.orders))
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].CustomerID != customerID {
			continue
		}
		result = append(result, cloneOrder(r.orders[i]))
		if limit > 0 && len(result) >= limit {
			break
		}
	}

	return result, nil
}

// List возвращает все заказы в порядке фиксации.
func (r *orderLedgerInMemory) List() []domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		result = append(result, cloneOrder(order))
	}
	return result
}

// Count возвращает число зафиксированных заказов.
func (r *orderLedgerInMemory) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.orders)
}

// TotalRevenueMinor — суммарная выручка по завершённым заказам журнала.
func (r *orderLedgerInMemory) TotalRevenueMinor() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, order := range r.orders {
		if order.Status == domain.OrderStatusCompleted {
			total += order.TotalMinor
		}
	}
	return total
}

// cloneOrder копирует заказ вместе со слайсом позиций.
func cloneOrder(o domain.Order) domain.Order {
	clone := o
	if len(o.Items) != 0 {
		clone.Items = make([]domain.OrderItem, len(o.Items))
		copy(clone.Items, o.Items)
	}
	return clone
}

var _ domain.OrderLedger = (*orderLedgerInMemory)(nil)
