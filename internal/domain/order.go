package domain

import "time"

// OrderStatus описывает жизненный цикл заказа. Набор закрытый: любые другие
// значения отклоняются валидацией.
type OrderStatus string

const (
	// OrderStatusPending — заказ собран, но фиксация ещё не завершена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusCompleted — списание остатков и бюджета выполнено, заказ в журнале.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled — заказ отменён до завершения.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid сообщает, входит ли статус в закрытый набор.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo проверяет допустимость перехода между статусами.
// Разрешены только pending → completed и pending → cancelled; конечные
// статусы переходов не имеют.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s != OrderStatusPending {
		return false
	}
	return next == OrderStatusCompleted || next == OrderStatusCancelled
}

// OrderItem — снимок одной купленной единицы товара на момент фиксации
// заказа. Это копия, а не ссылка в каталог: последующие изменения каталога
// историю не трогают.
type OrderItem struct {
	ProductID string
	Name      string
	Category  Category
	// PriceMinor — цена единицы на момент покупки.
	PriceMinor int64
	SellerID   string
}

// SnapshotItem строит позицию заказа из живой записи каталога.
func SnapshotItem(p Product) OrderItem {
	return OrderItem{
		ProductID:  p.ID,
		Name:       p.Name,
		Category:   p.Category,
		PriceMinor: p.PriceMinor,
		SellerID:   p.SellerID,
	}
}

// Order агрегирует зафиксированную покупку. ID выдаёт журнал заказов:
// монотонно растущий int64, начиная с 1, общий для всех покупателей.
type Order struct {
	ID         int64
	CustomerID string
	Items      []OrderItem
	// TotalMinor — сумма заказа, пересчитанная по каталогу на момент фиксации.
	TotalMinor int64
	Status     OrderStatus
	CreatedAt  time.Time
}

// TransitionTo переводит заказ в следующий статус или возвращает
// ErrInvalidStatusTransition, если переход не разрешён.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return ErrInvalidStatusTransition
	}
	o.Status = next
	return nil
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.ID <= 0 {
		errs = append(errs, ErrOrderIDInvalid)
	}
	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusInvalid)
	}

	// Сверяем сумму заказа с суммой позиций: каждая позиция — одна единица.
	var calc int64
	for _, item := range o.Items {
		if item.PriceMinor <= 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += item.PriceMinor
	}
	if calc != o.TotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
