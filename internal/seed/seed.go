package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/registry"
)

// EnvSeedFile — переменная окружения с путём к YAML-файлу стартовых данных.
// Пустое значение означает встроенный набор Default, "none" — пустой маркетплейс.
const EnvSeedFile = "MARKET_SEED_FILE"

// SeedFileNone отключает засев стартовых данных.
const SeedFileNone = "none"

// ProductSeed описывает одну запись каталога в файле стартовых данных.
type ProductSeed struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Category   string `yaml:"category"`
	PriceMinor int64  `yaml:"price_minor"`
	Stock      int    `yaml:"stock"`
}

// SellerSeed описывает продавца вместе с его стартовыми товарами.
type SellerSeed struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Products []ProductSeed `yaml:"products"`
}

// CustomerSeed описывает покупателя со стартовым бюджетом и предпочтениями.
type CustomerSeed struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	BudgetMinor int64    `yaml:"budget_minor"`
	Preferences []string `yaml:"preferences"`
}

// Data — полный набор стартовых данных маркетплейса.
type Data struct {
	Sellers   []SellerSeed   `yaml:"sellers"`
	Customers []CustomerSeed `yaml:"customers"`
}

// Default возвращает встроенный набор: три продавца, девять товаров и три
// покупателя. Ноутбук намеренно засеян единственной единицей, чтобы полное
// исчерпание остатка было достижимо за одну покупку.
func Default() Data {
	return Data{
		Sellers: []SellerSeed{
			{
				ID:   "techstore",
				Name: "TechStore",
				Products: []ProductSeed{
					{ID: "prod-1", Name: "Smartphone", Category: "electronics", PriceMinor: 99999, Stock: 5},
					{ID: "prod-2", Name: "Laptop", Category: "electronics", PriceMinor: 199999, Stock: 1},
					{ID: "prod-3", Name: "Wireless Headphones", Category: "electronics", PriceMinor: 7999, Stock: 8},
				},
			},
			{
				ID:   "fashionhub",
				Name: "FashionHub",
				Products: []ProductSeed{
					{ID: "prod-4", Name: "Jeans", Category: "clothing", PriceMinor: 2999, Stock: 20},
					{ID: "prod-5", Name: "Jacket", Category: "clothing", PriceMinor: 8999, Stock: 10},
					{ID: "prod-6", Name: "Running Shoes", Category: "sports", PriceMinor: 2599, Stock: 30},
				},
			},
			{
				ID:   "bookworld",
				Name: "BookWorld",
				Products: []ProductSeed{
					{ID: "prod-7", Name: "Novel", Category: "books", PriceMinor: 1599, Stock: 15},
					{ID: "prod-8", Name: "Cookbook", Category: "books", PriceMinor: 2499, Stock: 12},
					{ID: "prod-9", Name: "World Atlas", Category: "books", PriceMinor: 4999, Stock: 6},
				},
			},
		},
		Customers: []CustomerSeed{
			{ID: "cust-1", Name: "Ana García", BudgetMinor: 150000, Preferences: []string{"electronics", "books"}},
			{ID: "cust-2", Name: "Carlos López", BudgetMinor: 50000, Preferences: []string{"clothing", "sports"}},
			{ID: "cust-3", Name: "María Rodríguez", BudgetMinor: 300000, Preferences: []string{"electronics", "clothing", "books", "sports"}},
		},
	}
}

// Load читает стартовые данные из YAML-файла и валидирует их.
func Load(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("read seed file: %w", err)
	}

	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return Data{}, fmt.Errorf("parse seed file: %w", err)
	}

	if err := data.Validate(); err != nil {
		return Data{}, fmt.Errorf("seed validation failed: %w", err)
	}

	return data, nil
}

// Resolve выбирает источник стартовых данных: путь к файлу,
// "none" для пустого набора, пустое значение — Default.
func Resolve(path string) (Data, error) {
	switch path {
	case "":
		return Default(), nil
	case SeedFileNone:
		return Data{}, nil
	default:
		return Load(path)
	}
}

// Validate проверяет набор до применения: закрытый список категорий,
// положительные цены, неотрицательные остатки и бюджеты.
func (d Data) Validate() error {
	for _, seller := range d.Sellers {
		if seller.Name == "" {
			return fmt.Errorf("seller %q: name is required", seller.ID)
		}
		for _, product := range seller.Products {
			if product.Name == "" {
				return fmt.Errorf("seller %q: product %q: name is required", seller.Name, product.ID)
			}
			if _, err := domain.ParseCategory(product.Category); err != nil {
				return fmt.Errorf("seller %q: product %q: unknown category %q", seller.Name, product.Name, product.Category)
			}
			if product.PriceMinor <= 0 {
				return fmt.Errorf("seller %q: product %q: price must be positive, got %d", seller.Name, product.Name, product.PriceMinor)
			}
			if product.Stock < 0 {
				return fmt.Errorf("seller %q: product %q: stock must not be negative, got %d", seller.Name, product.Name, product.Stock)
			}
		}
	}

	for _, customer := range d.Customers {
		if customer.Name == "" {
			return fmt.Errorf("customer %q: name is required", customer.ID)
		}
		if customer.BudgetMinor < 0 {
			return fmt.Errorf("customer %q: budget must not be negative, got %d", customer.Name, customer.BudgetMinor)
		}
		for _, preference := range customer.Preferences {
			if _, err := domain.ParseCategory(preference); err != nil {
				return fmt.Errorf("customer %q: unknown preference %q", customer.Name, preference)
			}
		}
	}

	return nil
}

// Apply регистрирует стартовые данные через реестр: продавцы вместе с их
// товарами, затем покупатели. Напрямую в хранилища не пишет.
func Apply(data Data, reg *registry.Service) error {
	for _, sellerSeed := range data.Sellers {
		seller := domain.Seller{
			ID:   sellerSeed.ID,
			Name: sellerSeed.Name,
		}

		products := make([]domain.Product, 0, len(sellerSeed.Products))
		for _, productSeed := range sellerSeed.Products {
			category, err := domain.ParseCategory(productSeed.Category)
			if err != nil {
				return fmt.Errorf("seed product %q: %w", productSeed.Name, err)
			}
			products = append(products, domain.Product{
				ID:         productSeed.ID,
				Name:       productSeed.Name,
				Category:   category,
				PriceMinor: productSeed.PriceMinor,
				Stock:      productSeed.Stock,
			})
		}

		if _, err := reg.RegisterSeller(seller, products); err != nil {
			return fmt.Errorf("seed seller %q: %w", sellerSeed.Name, err)
		}
	}

	for _, customerSeed := range data.Customers {
		preferences := make([]domain.Category, 0, len(customerSeed.Preferences))
		for _, preference := range customerSeed.Preferences {
			category, err := domain.ParseCategory(preference)
			if err != nil {
				return fmt.Errorf("seed customer %q: %w", customerSeed.Name, err)
			}
			preferences = append(preferences, category)
		}

		customer := domain.Customer{
			ID:          customerSeed.ID,
			Name:        customerSeed.Name,
			BudgetMinor: customerSeed.BudgetMinor,
			Preferences: preferences,
		}

		if _, err := reg.RegisterCustomer(customer); err != nil {
			return fmt.Errorf("seed customer %q: %w", customerSeed.Name, err)
		}
	}

	return nil
}
