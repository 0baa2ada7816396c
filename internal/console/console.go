package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/browse"
	"github.com/vladislavdragonenkov/marketplace/internal/service/cart"
	"github.com/vladislavdragonenkov/marketplace/internal/service/checkout"
	"github.com/vladislavdragonenkov/marketplace/internal/service/registry"
	"github.com/vladislavdragonenkov/marketplace/internal/service/reporting"
)

// errInputClosed сигнализирует конец ввода (EOF): сессия завершается штатно.
var errInputClosed = errors.New("input closed")

// Session — интерактивная консоль маркетплейса поверх потоков ввода-вывода.
// Работает только через сервисы: ни одно хранилище напрямую не трогает.
type Session struct {
	registry  *registry.Service
	browse    *browse.Service
	carts     *cart.Service
	processor checkout.Processor
	reports   *reporting.Service
	logger    *log.Entry

	scanner *bufio.Scanner
	out     io.Writer
}

// NewSession создаёт консольную сессию поверх произвольных reader/writer.
// В продакшене это stdin/stdout, в тестах — буферы.
func NewSession(
	reg *registry.Service,
	shop *browse.Service,
	carts *cart.Service,
	processor checkout.Processor,
	reports *reporting.Service,
	logger *log.Entry,
	in io.Reader,
	out io.Writer,
) *Session {
	if logger == nil {
		logger = log.New().WithField("component", "console")
	}
	return &Session{
		registry:  reg,
		browse:    shop,
		carts:     carts,
		processor: processor,
		reports:   reports,
		logger:    logger,
		scanner:   bufio.NewScanner(in),
		out:       out,
	}
}

// Run ведёт главное меню до выхода, конца ввода или отмены ctx. Отмена
// проверяется между командами: читающий ввод вызов не прерывается.
func (s *Session) Run(ctx context.Context) error {
	s.printf("=== Marketplace ===")

	err := s.mainLoop(ctx)
	if errors.Is(err, errInputClosed) {
		if scanErr := s.scanner.Err(); scanErr != nil {
			return scanErr
		}
		s.printf("")
		s.printf("Session ended.")
		return nil
	}
	return err
}

func (s *Session) mainLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			s.printf("Shutting down.")
			return nil
		}

		s.printf("")
		s.printf("1. Log in as customer")
		s.printf("2. Seller reports")
		s.printf("3. Marketplace stats")
		s.printf("4. All listings")
		s.printf("0. Exit")

		choice, err := s.prompt("> ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			if err := s.loginFlow(ctx); err != nil {
				return err
			}
		case "2":
			if err := s.sellerReportFlow(); err != nil {
				return err
			}
		case "3":
			s.printStats()
		case "4":
			s.printListings(s.browse.Available())
		case "0", "q", "exit":
			s.printf("Goodbye!")
			return nil
		default:
			s.printf("Unknown option %q", choice)
		}
	}
}

// loginFlow выбирает покупателя из списка и входит в его сессию.
func (s *Session) loginFlow(ctx context.Context) error {
	customers := s.registry.Customers()
	if len(customers) == 0 {
		s.printf("No customers registered.")
		return nil
	}

	s.printf("")
	s.printf("Customers:")
	for i, customer := range customers {
		s.printf("%d. %s (budget %s)", i+1, customer.Name, formatMoney(customer.BudgetMinor))
	}

	choice, err := s.prompt("Select customer: ")
	if err != nil {
		return err
	}

	index, convErr := strconv.Atoi(choice)
	if convErr != nil || index < 1 || index > len(customers) {
		s.printf("Invalid selection %q", choice)
		return nil
	}

	s.logger.WithField("customer_id", customers[index-1].ID).Debug("console login")
	return s.customerLoop(ctx, customers[index-1].ID)
}

// customerLoop ведёт меню покупателя до logout, конца ввода или отмены ctx.
func (s *Session) customerLoop(ctx context.Context, customerID string) error {
	for {
		if ctx.Err() != nil {
			s.printf("Shutting down.")
			return nil
		}

		customer, err := s.registry.Customer(customerID)
		if err != nil {
			s.printf("%s", rejectionMessage(err))
			return nil
		}

		s.printf("")
		s.printf("--- %s (budget %s) ---", customer.Name, formatMoney(customer.BudgetMinor))
		s.printf("1. Browse all products")
		s.printf("2. Browse by category")
		s.printf("3. Recommended for you")
		s.printf("4. View cart")
		s.printf("5. Add product to cart")
		s.printf("6. Remove product from cart")
		s.printf("7. Checkout")
		s.printf("8. Purchase history")
		s.printf("9. Budget")
		s.printf("0. Log out")

		choice, err := s.prompt("> ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			s.printListings(s.browse.Available())
		case "2":
			if err := s.categoryFlow(); err != nil {
				return err
			}
		case "3":
			s.recommendedFlow(customerID)
		case "4":
			s.showCart(customerID)
		case "5":
			if err := s.addFlow(customerID); err != nil {
				return err
			}
		case "6":
			if err := s.removeFlow(customerID); err != nil {
				return err
			}
		case "7":
			s.checkoutFlow(customerID)
		case "8":
			s.showHistory(customerID)
		case "9":
			s.printf("Budget: %s", formatMoney(customer.BudgetMinor))
		case "0":
			s.printf("Logged out.")
			return nil
		default:
			s.printf("Unknown option %q", choice)
		}
	}
}

func (s *Session) categoryFlow() error {
	names := make([]string, 0, len(domain.Categories()))
	for _, category := range domain.Categories() {
		names = append(names, string(category))
	}
	s.printf("Categories: %s", strings.Join(names, ", "))

	choice, err := s.prompt("Category: ")
	if err != nil {
		return err
	}

	category, parseErr := domain.ParseCategory(choice)
	if parseErr != nil {
		s.printf("Unknown category %q", choice)
		return nil
	}

	products, browseErr := s.browse.ByCategory(category)
	if browseErr != nil {
		s.printf("%s", rejectionMessage(browseErr))
		return nil
	}
	s.printListings(products)
	return nil
}

func (s *Session) recommendedFlow(customerID string) {
	products, err := s.browse.ForCustomer(customerID)
	if err != nil {
		s.printf("%s", rejectionMessage(err))
		return
	}
	if len(products) == 0 {
		s.printf("Nothing matches your preferences and budget right now.")
		return
	}
	s.printListings(products)
}

func (s *Session) showCart(customerID string) {
	shoppingCart, err := s.carts.View(customerID)
	if err != nil {
		s.printf("%s", rejectionMessage(err))
		return
	}
	if shoppingCart.IsEmpty() {
		s.printf("Your cart is empty.")
		return
	}

	s.printf("Cart:")
	for _, item := range shoppingCart.Items {
		s.printf("  %s — %s (%s)", item.Name, formatMoney(item.PriceMinor), item.ProductID)
	}
	s.printf("Total: %s", formatMoney(shoppingCart.TotalMinor()))
}

func (s *Session) addFlow(customerID string) error {
	productID, err := s.prompt("Product id: ")
	if err != nil {
		return err
	}
	if productID == "" {
		s.printf("Product id is required.")
		return nil
	}

	item, addErr := s.carts.Add(customerID, productID)
	if addErr != nil {
		s.printf("%s", rejectionMessage(addErr))
		return nil
	}
	s.printf("Added %s (%s) to cart.", item.Name, formatMoney(item.PriceMinor))
	return nil
}

func (s *Session) removeFlow(customerID string) error {
	productID, err := s.prompt("Product id: ")
	if err != nil {
		return err
	}

	removed, removeErr := s.carts.Remove(customerID, productID)
	if removeErr != nil {
		s.printf("%s", rejectionMessage(removeErr))
		return nil
	}
	s.printf("Removed %d unit(s) from cart.", removed)
	return nil
}

func (s *Session) checkoutFlow(customerID string) {
	order, err := s.processor.Purchase(customerID)
	if err != nil {
		s.printf("%s", rejectionMessage(err))
		return
	}

	s.printf("Order #%d confirmed — total %s.", order.ID, formatMoney(order.TotalMinor))
	if customer, getErr := s.registry.Customer(customerID); getErr == nil {
		s.printf("Remaining budget: %s", formatMoney(customer.BudgetMinor))
	}
}

func (s *Session) showHistory(customerID string) {
	items, err := s.reports.PurchaseHistory(customerID)
	if err != nil {
		s.printf("%s", rejectionMessage(err))
		return
	}
	if len(items) == 0 {
		s.printf("No purchases yet.")
		return
	}

	s.printf("Purchase history:")
	var total int64
	for _, item := range items {
		s.printf("  %s — %s", item.Name, formatMoney(item.PriceMinor))
		total += item.PriceMinor
	}
	s.printf("Total spent: %s", formatMoney(total))
}

func (s *Session) sellerReportFlow() error {
	sellers := s.registry.Sellers()
	if len(sellers) == 0 {
		s.printf("No sellers registered.")
		return nil
	}

	s.printf("")
	s.printf("Sellers:")
	for i, seller := range sellers {
		s.printf("%d. %s", i+1, seller.Name)
	}

	choice, err := s.prompt("Select seller: ")
	if err != nil {
		return err
	}

	index, convErr := strconv.Atoi(choice)
	if convErr != nil || index < 1 || index > len(sellers) {
		s.printf("Invalid selection %q", choice)
		return nil
	}

	report, reportErr := s.reports.SellerReport(sellers[index-1].ID)
	if reportErr != nil {
		s.printf("%s", rejectionMessage(reportErr))
		return nil
	}

	s.printf("")
	s.printf("Report for %s:", report.Seller.Name)
	s.printf("  Products listed: %d", report.ProductCount)
	s.printf("  Units in stock: %d", report.UnitsInStock)
	s.printf("  Inventory value: %s", formatMoney(report.InventoryValueMinor))
	for _, product := range report.Products {
		s.printf("  [%s] %s — %s, stock %d", product.ID, product.Name, formatMoney(product.PriceMinor), product.Stock)
	}
	if len(report.LowStock) > 0 {
		s.printf("  Low stock:")
		for _, product := range report.LowStock {
			s.printf("    %s — %d left", product.Name, product.Stock)
		}
	}
	return nil
}

func (s *Session) printStats() {
	stats := s.reports.Stats()
	s.printf("")
	s.printf("Marketplace stats:")
	s.printf("  Customers: %d", stats.Customers)
	s.printf("  Sellers: %d", stats.Sellers)
	s.printf("  Products listed: %d", stats.ProductsListed)
	s.printf("  Products available: %d", stats.ProductsAvailable)
	s.printf("  Orders completed: %d", stats.OrdersCompleted)
	s.printf("  Revenue: %s", formatMoney(stats.RevenueMinor))
}

func (s *Session) printListings(products []domain.Product) {
	if len(products) == 0 {
		s.printf("No products available.")
		return
	}

	s.printf("")
	s.printf("Products (%d):", len(products))
	for _, product := range products {
		s.printf("  [%s] %-24s %-12s %10s  stock %-3d %s",
			product.ID,
			product.Name,
			product.Category,
			formatMoney(product.PriceMinor),
			product.Stock,
			s.registry.SellerName(product.SellerID),
		)
	}
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

// prompt печатает приглашение и читает одну строку. Конец ввода приходит
// как errInputClosed.
func (s *Session) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)
	if !s.scanner.Scan() {
		return "", errInputClosed
	}
	return strings.TrimSpace(s.scanner.Text()), nil
}

// rejectionMessage переводит бизнес-ошибки в сообщения для покупателя.
// Каждый вид отказа покупки различим отдельной формулировкой.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return "Your cart is empty — add products before checking out."
	case errors.Is(err, domain.ErrProductUnavailable):
		return "Product is unavailable or there is not enough stock."
	case errors.Is(err, domain.ErrInsufficientBudget):
		return "Your budget does not cover this purchase."
	case errors.Is(err, domain.ErrNotInCart):
		return "That product is not in your cart."
	case domain.IsNotFound(err):
		return "Not found."
	default:
		return "Something went wrong, please try again."
	}
}

// formatMoney печатает сумму в минорных единицах как $d.cc.
func formatMoney(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s$%d.%02d", sign, minor/100, minor%100)
}
