package domain

// CatalogRepository — авторитетное хранилище товаров и их остатков.
// Остатки уменьшаются только через DecrementStock: других точек списания нет.
type CatalogRepository interface {
	// Add регистрирует новый товар. Возвращает ошибку, если ID уже занят.
	Add(product Product) error
	// Get возвращает товар по идентификатору или ErrProductNotFound.
	Get(id string) (Product, error)
	// List возвращает все записи каталога в детерминированном порядке.
	List() []Product
	// ListBySeller возвращает записи каталога одного продавца.
	ListBySeller(sellerID string) []Product
	// Available возвращает товары, у которых остаток не меньше единицы.
	Available() []Product
	// HasStock сообщает, есть ли остаток у товара. Для неизвестного ID
	// возвращает false, не отличая его от исчерпанного остатка.
	HasStock(id string) bool
	// DecrementStock атомарно списывает остатки по всем позициям батча либо
	// не меняет ничего. Батч применяется, только если для каждой позиции
	// need <= stock; остаток никогда не уходит в минус.
	DecrementStock(demand StockDemand) error
	// RestoreStock возвращает ранее списанные единицы (компенсация).
	RestoreStock(demand StockDemand) error
}

// CustomerRepository хранит покупателей, их бюджеты и историю покупок.
type CustomerRepository interface {
	// Add регистрирует покупателя. Возвращает ошибку, если ID уже занят.
	Add(customer Customer) error
	// Get возвращает покупателя или ErrCustomerNotFound.
	Get(id string) (Customer, error)
	// List возвращает всех покупателей в детерминированном порядке.
	List() []Customer
	// DebitBudget атомарно списывает сумму, если бюджета хватает; иначе
	// возвращает ErrInsufficientBudget и ничего не меняет.
	DebitBudget(id string, amountMinor int64) error
	// CreditBudget зачисляет сумму на бюджет (компенсация или пополнение).
	CreditBudget(id string, amountMinor int64) error
	// AppendPurchases дописывает снимки купленных позиций в историю покупок.
	AppendPurchases(id string, items []OrderItem) error
	// Purchases возвращает историю покупок в порядке совершения.
	Purchases(id string) ([]OrderItem, error)
}

// SellerRepository хранит продавцов и их ссылки на записи каталога.
type SellerRepository interface {
	// Add регистрирует продавца. Возвращает ошибку, если ID уже занят.
	Add(seller Seller) error
	// Get возвращает продавца или ErrSellerNotFound.
	Get(id string) (Seller, error)
	// List возвращает всех продавцов в детерминированном порядке.
	List() []Seller
	// AttachProduct привязывает запись каталога к продавцу (владение по ссылке).
	AttachProduct(sellerID, productID string) error
}

// CartRepository хранит корзины покупателей, по одной на покупателя.
type CartRepository interface {
	// AddItem кладёт одну единицу товара в корзину покупателя.
	AddItem(customerID string, item CartItem) error
	// RemoveProduct убирает из корзины все единицы товара и возвращает их
	// число; для товара, которого в корзине нет, возвращает ErrNotInCart.
	RemoveProduct(customerID, productID string) (int, error)
	// Items возвращает копию содержимого корзины в порядке добавления.
	Items(customerID string) []CartItem
	// Clear опустошает корзину покупателя.
	Clear(customerID string)
}

// OrderLedger — журнал зафиксированных заказов и единственный источник их
// идентификаторов.
type OrderLedger interface {
	// Append присваивает заказу следующий ID (строго возрастающий, начиная
	// с 1), проверяет инварианты и сохраняет запись. Возвращает сохранённую
	// копию заказа.
	Append(order Order) (Order, error)
	// Get возвращает заказ или ErrOrderNotFound.
	Get(id int64) (Order, error)
	// ListByCustomer возвращает заказы покупателя, новые первыми,
	// с опциональным ограничением на количество.
	ListByCustomer(customerID string, limit int) ([]Order, error)
	// List возвращает все заказы в порядке фиксации.
	List() []Order
	// Count возвращает число зафиксированных заказов.
	Count() int
	// TotalRevenueMinor — суммарная выручка по завершённым заказам журнала.
	TotalRevenueMinor() int64
}
