package browse

import (
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

func newService(t *testing.T) (*Service, domain.CatalogRepository, domain.CustomerRepository) {
	t.Helper()

	catalog := memory.NewCatalogRepository()
	customers := memory.NewCustomerRepository()
	svc := New(catalog, customers, log.New().WithField("test", "browse"))
	return svc, catalog, customers
}

func seedProduct(t *testing.T, catalog domain.CatalogRepository, id string, category domain.Category, priceMinor int64, stock int) {
	t.Helper()

	err := catalog.Add(domain.Product{
		ID:         id,
		Name:       "product " + id,
		Category:   category,
		PriceMinor: priceMinor,
		Stock:      stock,
		SellerID:   "seller-1",
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func TestService_Available(t *testing.T) {
	svc, catalog, _ := newService(t)
	seedProduct(t, catalog, "prod-1", domain.CategoryBooks, 1000, 5)
	seedProduct(t, catalog, "prod-2", domain.CategoryHome, 2000, 0)
	seedProduct(t, catalog, "prod-3", domain.CategorySports, 3000, 1)

	available := svc.Available()
	if len(available) != 2 {
		t.Fatalf("expected 2 available products, got %d", len(available))
	}
	for _, product := range available {
		if product.Stock < 1 {
			t.Fatalf("product %s has no stock", product.ID)
		}
	}
}

func TestService_ByCategory(t *testing.T) {
	svc, catalog, _ := newService(t)
	seedProduct(t, catalog, "prod-1", domain.CategoryBooks, 1000, 5)
	seedProduct(t, catalog, "prod-2", domain.CategoryBooks, 2000, 0)
	seedProduct(t, catalog, "prod-3", domain.CategorySports, 3000, 1)

	books, err := svc.ByCategory(domain.CategoryBooks)
	if err != nil {
		t.Fatalf("by category failed: %v", err)
	}
	if len(books) != 1 || books[0].ID != "prod-1" {
		t.Fatalf("expected only in-stock prod-1, got %+v", books)
	}
}

func TestService_ByCategoryInvalid(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.ByCategory("weapons")
	if !errors.Is(err, domain.ErrCategoryInvalid) {
		t.Fatalf("expected ErrCategoryInvalid, got %v", err)
	}
}

func TestService_ForCustomer(t *testing.T) {
	svc, catalog, customers := newService(t)
	seedProduct(t, catalog, "prod-book", domain.CategoryBooks, 1000, 5)
	seedProduct(t, catalog, "prod-tv", domain.CategoryElectronics, 50000, 5)
	seedProduct(t, catalog, "prod-shirt", domain.CategoryClothing, 2000, 5)

	err := customers.Add(domain.Customer{
		ID:          "cust-1",
		Name:        "Ana",
		BudgetMinor: 10000,
		Preferences: []domain.Category{domain.CategoryBooks, domain.CategoryElectronics},
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	// Книга проходит; телевизор отсечён бюджетом; рубашка — предпочтениями.
	personalized, err := svc.ForCustomer("cust-1")
	if err != nil {
		t.Fatalf("for customer failed: %v", err)
	}
	if len(personalized) != 1 || personalized[0].ID != "prod-book" {
		t.Fatalf("expected only prod-book, got %+v", personalized)
	}
}

func TestService_ForCustomerNoPreferences(t *testing.T) {
	svc, catalog, customers := newService(t)
	seedProduct(t, catalog, "prod-1", domain.CategoryBooks, 1000, 5)
	seedProduct(t, catalog, "prod-2", domain.CategorySports, 2000, 5)

	err := customers.Add(domain.Customer{ID: "cust-1", Name: "Ana", BudgetMinor: 10000})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	// Пустые предпочтения — никакого фильтра по категориям.
	personalized, err := svc.ForCustomer("cust-1")
	if err != nil {
		t.Fatalf("for customer failed: %v", err)
	}
	if len(personalized) != 2 {
		t.Fatalf("expected both products, got %d", len(personalized))
	}
}

func TestService_ForCustomerUnknown(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.ForCustomer("ghost")
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}
