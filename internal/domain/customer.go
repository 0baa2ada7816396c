package domain

import (
	"strings"
	"time"
)

// Customer — покупатель с предоплаченным бюджетом. Бюджет никогда не уходит
// в минус: списание при покупке атомарно и условно.
type Customer struct {
	ID   string
	Name string
	// BudgetMinor — остаток бюджета в минимальных денежных единицах.
	BudgetMinor int64
	// Preferences — предпочитаемые категории. Влияют только на
	// персонализированную выдачу каталога, покупку не ограничивают.
	Preferences []Category
	CreatedAt   time.Time
}

// Validate проверяет инварианты покупателя и возвращает список замечаний.
func (c *Customer) Validate() []error {
	var errs []error

	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if c.BudgetMinor < 0 {
		errs = append(errs, ErrBudgetNegative)
	}
	for _, p := range c.Preferences {
		if !p.Valid() {
			errs = append(errs, ErrCategoryInvalid)
			break
		}
	}

	return errs
}

// PrefersCategory сообщает, входит ли категория в предпочтения. Пустой список
// предпочтений означает отсутствие персонального фильтра.
func (c *Customer) PrefersCategory(cat Category) bool {
	for _, p := range c.Preferences {
		if p == cat {
			return true
		}
	}
	return false
}
