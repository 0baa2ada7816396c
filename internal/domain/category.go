package domain

import "strings"

// Category классифицирует товар каталога. Набор категорий закрытый:
// неизвестные значения отклоняются при регистрации товара.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryBooks       Category = "books"
	CategoryHome        Category = "home"
	CategorySports      Category = "sports"
)

// Categories возвращает все категории в каноническом порядке —
// он используется в меню и отчётах, чтобы вывод был детерминированным.
func Categories() []Category {
	return []Category{
		CategoryElectronics,
		CategoryClothing,
		CategoryBooks,
		CategoryHome,
		CategorySports,
	}
}

// ParseCategory приводит пользовательский ввод к категории без учёта
// регистра и пробелов по краям. Возвращает ErrCategoryInvalid для значений
// вне закрытого набора.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrCategoryInvalid
	}
	return c, nil
}

// Valid сообщает, входит ли категория в закрытый набор.
func (c Category) Valid() bool {
	switch c {
	case CategoryElectronics, CategoryClothing, CategoryBooks, CategoryHome, CategorySports:
		return true
	}
	return false
}
