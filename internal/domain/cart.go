package domain

import "time"

// CartItem — одна единица товара, отложенная в корзину. Поля со снимком
// цены и названия нужны только для отображения: при оформлении заказа
// всё перечитывается из каталога заново.
type CartItem struct {
	ProductID string
	Name      string
	Category  Category
	// PriceMinor — цена на момент добавления, справочно.
	PriceMinor int64
	SellerID   string
	AddedAt    time.Time
}

// Cart — корзина одного покупателя. Это область подготовки: корзина ничего
// не резервирует и не является источником истины ни по остаткам, ни по ценам.
type Cart struct {
	CustomerID string
	Items      []CartItem
}

// TotalMinor — справочная сумма корзины по ценам на момент добавления.
func (c *Cart) TotalMinor() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.PriceMinor
	}
	return total
}

// IsEmpty сообщает, пуста ли корзина.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// StockDemand — потребность в остатках по товарам: сколько единиц каждого
// товара требует корзина. Единица атомарного списания со склада: батч
// применяется только целиком, когда для каждой позиции need <= stock.
type StockDemand map[string]int

// BuildStockDemand агрегирует позиции корзины в потребность по товарам.
// Каждая позиция корзины — одна единица.
func BuildStockDemand(items []CartItem) StockDemand {
	demand := make(StockDemand, len(items))
	for _, item := range items {
		demand[item.ProductID]++
	}
	return demand
}

// Units возвращает требуемое количество единиц товара.
func (d StockDemand) Units(productID string) int {
	return d[productID]
}
