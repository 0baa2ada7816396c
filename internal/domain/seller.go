package domain

import (
	"strings"
	"time"
)

// Seller владеет записями каталога по ссылке: ProductIDs указывают в общий
// каталог, копий товара у продавца нет.
type Seller struct {
	ID         string
	Name       string
	ProductIDs []string
	CreatedAt  time.Time
}

// Validate проверяет инварианты продавца и возвращает список замечаний.
func (s *Seller) Validate() []error {
	var errs []error

	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, ErrSellerNameRequired)
	}

	return errs
}

// Owns сообщает, принадлежит ли товар продавцу.
func (s *Seller) Owns(productID string) bool {
	for _, id := range s.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
