package domain

import "errors"

var (
	// ErrProductUnavailable — товар неизвестен каталогу или его остаток нулевой
	// на момент решения. Покупателю различимо как «товара нет».
	ErrProductUnavailable = errors.New("product unavailable")
	// ErrInsufficientBudget — бюджета покупателя не хватает на требуемую сумму.
	ErrInsufficientBudget = errors.New("insufficient budget")
	// ErrEmptyCart — попытка оформить заказ с пустой корзиной.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrProductNotFound возвращается, если товара нет в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrCustomerNotFound возвращается, если покупатель не зарегистрирован.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrSellerNotFound возвращается, если продавец не зарегистрирован.
	ErrSellerNotFound = errors.New("seller not found")
	// ErrOrderNotFound возвращается, если заказа нет в журнале.
	ErrOrderNotFound = errors.New("order not found")
	// ErrNotInCart — товара нет в корзине покупателя.
	ErrNotInCart = errors.New("product not in cart")

	// Ошибки повторной регистрации с занятым идентификатором.
	ErrProductExists  = errors.New("product already registered")
	ErrCustomerExists = errors.New("customer already registered")
	ErrSellerExists   = errors.New("seller already registered")

	// Обёртки отказов валидации при регистрации: конкретные замечания
	// приходят внутри через errors.Join.
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidCustomer = errors.New("invalid customer")
	ErrInvalidSeller   = errors.New("invalid seller")

	// Ошибки валидации записей каталога.
	ErrProductNameRequired   = errors.New("product name is required")
	ErrProductPriceInvalid   = errors.New("product price must be greater than zero")
	ErrProductStockNegative  = errors.New("product stock must be non-negative")
	ErrProductSellerRequired = errors.New("product seller_id is required")
	// Ошибка категории вне закрытого набора.
	ErrCategoryInvalid = errors.New("unknown product category")

	// Ошибки валидации покупателя.
	ErrCustomerNameRequired = errors.New("customer name is required")
	ErrBudgetNegative       = errors.New("budget_minor must be non-negative")
	// Ошибка валидации продавца.
	ErrSellerNameRequired = errors.New("seller name is required")

	// Ошибки инвариантов заказа.
	ErrOrderIDInvalid = errors.New("order id must be greater than zero")
	// Ошибка отсутствующего идентификатора покупателя.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка, если цена позиции не положительная.
	ErrItemPriceInvalid = errors.New("item price must be greater than zero")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match items sum")
	// Ошибка статуса вне закрытого набора.
	ErrStatusInvalid = errors.New("unknown order status")
	// Ошибка недопустимого перехода между статусами заказа.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrOutboxMessageNotFound возвращается при обновлении несуществующей записи outbox.
	ErrOutboxMessageNotFound = errors.New("outbox message not found")
)

// IsRejection сообщает, является ли ошибка одним из бизнес-отказов покупки:
// нет товара, не хватает бюджета, пустая корзина.
func IsRejection(err error) bool {
	return errors.Is(err, ErrProductUnavailable) ||
		errors.Is(err, ErrInsufficientBudget) ||
		errors.Is(err, ErrEmptyCart)
}

// IsNotFound сообщает, является ли ошибка отсутствием записи в хранилище.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrSellerNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}

// FailureReason приводит ошибку покупки к стабильной метке для метрик и
// событий. Неизвестные ошибки считаются внутренними.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrProductUnavailable):
		return "product_unavailable"
	case errors.Is(err, ErrInsufficientBudget):
		return "insufficient_budget"
	case errors.Is(err, ErrCustomerNotFound):
		return "customer_not_found"
	default:
		return "internal"
	}
}
