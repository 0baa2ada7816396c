package kafka

import (
	"time"

	"github.com/google/uuid"
)

// EventType определяет тип события
type EventType string

const (
	// События заказов
	EventTypeOrderCompleted EventType = "order.completed"
	EventTypeCheckoutFailed EventType = "checkout.failed"

	// События остатков
	EventTypeStockLow EventType = "stock.low"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "marketplace.order.events"
	TopicStockEvents     = "marketplace.stock.events"
	TopicDeadLetterQueue = "marketplace.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderCompletedEvent публикуется после фиксации заказа в журнале.
type OrderCompletedEvent struct {
	EventID    string    `json:"event_id"`
	EventType  EventType `json:"event_type"`
	OrderID    int64     `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	TotalMinor int64     `json:"total_minor"`
	ItemCount  int       `json:"item_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CheckoutFailedEvent публикуется при отказе в оформлении покупки.
type CheckoutFailedEvent struct {
	EventID    string    `json:"event_id"`
	EventType  EventType `json:"event_type"`
	CustomerID string    `json:"customer_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StockLowEvent публикуется, когда остаток товара опускается ниже порога.
type StockLowEvent struct {
	EventID    string    `json:"event_id"`
	EventType  EventType `json:"event_type"`
	ProductID  string    `json:"product_id"`
	SellerID   string    `json:"seller_id"`
	Stock      int       `json:"stock"`
	Threshold  int       `json:"threshold"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewOrderCompletedEvent создает событие зафиксированного заказа
func NewOrderCompletedEvent(orderID int64, customerID string, totalMinor int64, itemCount int) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		EventID:    uuid.NewString(),
		EventType:  EventTypeOrderCompleted,
		OrderID:    orderID,
		CustomerID: customerID,
		TotalMinor: totalMinor,
		ItemCount:  itemCount,
		OccurredAt: time.Now().UTC(),
	}
}

// NewCheckoutFailedEvent создает событие отказа в оформлении
func NewCheckoutFailedEvent(customerID, reason string) *CheckoutFailedEvent {
	return &CheckoutFailedEvent{
		EventID:    uuid.NewString(),
		EventType:  EventTypeCheckoutFailed,
		CustomerID: customerID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

// NewStockLowEvent создает событие низкого остатка
func NewStockLowEvent(productID, sellerID string, stock, threshold int) *StockLowEvent {
	return &StockLowEvent{
		EventID:    uuid.NewString(),
		EventType:  EventTypeStockLow,
		ProductID:  productID,
		SellerID:   sellerID,
		Stock:      stock,
		Threshold:  threshold,
		OccurredAt: time.Now().UTC(),
	}
}
