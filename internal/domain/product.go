package domain

import (
	"strings"
	"time"
)

// Product — запись каталога. Цена фиксируется при регистрации и больше не
// меняется; остаток меняется только через методы каталога.
type Product struct {
	ID string
	// Name — человекочитаемое название товара.
	Name     string
	Category Category
	// PriceMinor — цена за единицу в минимальных денежных единицах (центы).
	PriceMinor int64
	// Stock — текущий остаток. Товар с нулевым остатком остаётся в каталоге,
	// но недоступен для покупки.
	Stock int
	// SellerID ссылается на продавца-владельца записи.
	SellerID  string
	CreatedAt time.Time
}

// Validate проверяет инварианты записи каталога и возвращает список замечаний.
func (p *Product) Validate() []error {
	var errs []error

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor <= 0 {
		errs = append(errs, ErrProductPriceInvalid)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrProductStockNegative)
	}
	if p.SellerID == "" {
		errs = append(errs, ErrProductSellerRequired)
	}
	if !p.Category.Valid() {
		errs = append(errs, ErrCategoryInvalid)
	}

	return errs
}

// InStock сообщает, доступна ли хотя бы одна единица товара.
func (p *Product) InStock() bool {
	return p.Stock >= 1
}

// InventoryValueMinor — стоимость остатка записи: цена × остаток.
func (p *Product) InventoryValueMinor() int64 {
	return p.PriceMinor * int64(p.Stock)
}
