package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/seed"
	"github.com/vladislavdragonenkov/marketplace/internal/service/cart"
	"github.com/vladislavdragonenkov/marketplace/internal/service/checkout"
	"github.com/vladislavdragonenkov/marketplace/internal/service/registry"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

const (
	outcomeOK       = "ok"
	outcomeInternal = "internal"
)

type config struct {
	shoppers    int
	total       int
	totalSet    bool
	duration    time.Duration
	itemsMax    int
	removeRate  int
	budgetMinor int64
	stockScale  int
	seed        int64
	verbose     bool
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type stepReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Rejected  int64            `json:"rejected"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Outcomes  map[string]int64 `json:"outcomes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time             `json:"started_at"`
	DurationSeconds   float64               `json:"duration_seconds"`
	TotalScenarios    int64                 `json:"total_scenarios"`
	SuccessScenarios  int64                 `json:"success_scenarios"`
	RejectedScenarios int64                 `json:"rejected_scenarios"`
	FailedScenarios   int64                 `json:"failed_scenarios"`
	ErrorRate         float64               `json:"error_rate"`
	RPS               float64               `json:"rps"`
	ScenarioLatencyMs latencySummary        `json:"scenario_latency_ms"`
	Steps             map[string]stepReport `json:"steps"`
	OrdersCompleted   int                   `json:"orders_completed"`
	RevenueMinor      int64                 `json:"revenue_minor"`
	OutboxPending     int                   `json:"outbox_pending"`
	AuditViolations   []string              `json:"audit_violations,omitempty"`
}

type stepStats struct {
	calls     int64
	success   int64
	rejected  int64
	failed    int64
	outcomes  map[string]int64
	latencies []float64
}

type collector struct {
	mu    sync.Mutex
	steps map[string]*stepStats
}

func newCollector() *collector {
	return &collector{
		steps: make(map[string]*stepStats),
	}
}

func (c *collector) record(step string, latency time.Duration, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.steps[step]
	if !ok {
		stats = &stepStats{
			outcomes: make(map[string]int64),
		}
		c.steps[step] = stats
	}

	stats.calls++
	switch outcome {
	case outcomeOK:
		stats.success++
	case outcomeInternal:
		stats.failed++
	default:
		stats.rejected++
	}
	stats.outcomes[outcome]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) snapshot(name string) (stepReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.steps[name]
	if !ok {
		return stepReport{}, false
	}

	outcomesCopy := make(map[string]int64, len(stats.outcomes))
	for outcome, count := range stats.outcomes {
		outcomesCopy[outcome] = count
	}

	return stepReport{
		Calls:     stats.calls,
		Success:   stats.success,
		Rejected:  stats.rejected,
		Failed:    stats.failed,
		ErrorRate: ratio(stats.failed, stats.calls),
		Outcomes:  outcomesCopy,
		LatencyMs: buildLatencySummary(stats.latencies),
	}, true
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Steps:           make(map[string]stepReport, len(c.steps)),
	}

	scenarioStats := c.steps["scenario"]
	if scenarioStats != nil {
		result.TotalScenarios = scenarioStats.calls
		result.SuccessScenarios = scenarioStats.success
		result.RejectedScenarios = scenarioStats.rejected
		result.FailedScenarios = scenarioStats.failed
		result.ErrorRate = ratio(scenarioStats.failed, scenarioStats.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenarioStats.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.steps {
		outcomesCopy := make(map[string]int64, len(stats.outcomes))
		for outcome, count := range stats.outcomes {
			outcomesCopy[outcome] = count
		}
		result.Steps[name] = stepReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Rejected:  stats.rejected,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Outcomes:  outcomesCopy,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

// market — полный набор сервисов и хранилищ одного запуска. Всё живёт
// в памяти процесса: нагрузка идёт напрямую в сервисный слой.
type market struct {
	catalog   domain.CatalogRepository
	customers domain.CustomerRepository
	carts     domain.CartRepository
	ledger    domain.OrderLedger
	outbox    domain.OutboxRepository

	cartSvc   *cart.Service
	processor checkout.Processor

	productIDs []string
	shopperIDs []string

	initialStock       map[string]int
	initialBudgetMinor int64
}

func parseConfig() (config, error) {
	var cfg config
	var durationValue string

	flag.IntVar(&cfg.shoppers, "shoppers", 8, "number of concurrent shoppers, each with its own budget")
	flag.IntVar(&cfg.total, "total", 200, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 30s, 5m)")
	flag.IntVar(&cfg.itemsMax, "items-max", 3, "maximum cart additions per scenario")
	flag.IntVar(&cfg.removeRate, "remove-rate", 10, "probability in percent that a scenario removes a staged product before checkout (0..100)")
	flag.Int64Var(&cfg.budgetMinor, "budget-minor", 25000, "starting budget per shopper in minor units")
	flag.IntVar(&cfg.stockScale, "stock-scale", 10, "multiplier applied to seeded stock levels")
	flag.Int64Var(&cfg.seed, "seed", 0, "random seed; 0 derives one from the clock")
	flag.BoolVar(&cfg.verbose, "v", false, "verbose service logging")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.shoppers <= 0 {
		return cfg, errors.New("shoppers must be > 0")
	}
	if cfg.itemsMax <= 0 {
		return cfg, errors.New("items-max must be > 0")
	}
	if cfg.removeRate < 0 || cfg.removeRate > 100 {
		return cfg, errors.New("remove-rate must be between 0 and 100")
	}
	if cfg.budgetMinor <= 0 {
		return cfg, errors.New("budget-minor must be > 0")
	}
	if cfg.stockScale <= 0 {
		return cfg, errors.New("stock-scale must be > 0")
	}

	return cfg, nil
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	if cfg.seed == 0 {
		cfg.seed = time.Now().UnixNano()
	}

	m, err := buildMarket(cfg, stressLogger(cfg.verbose))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to build market: %v\n", err)
		os.Exit(1)
	}

	startedAt := time.Now()
	col := newCollector()

	jobs := make(chan int, cfg.shoppers*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.shoppers; workerID++ {
		wg.Add(1)
		customerID := m.shopperIDs[workerID]
		rng := rand.New(rand.NewSource(cfg.seed + int64(workerID)))
		go func(customerID string, rng *rand.Rand) {
			defer wg.Done()
			for id := range jobs {
				if runErr := runScenario(m, cfg, customerID, id, rng, col); runErr != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}(customerID, rng)
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	duration := time.Since(startedAt)
	result := col.buildReport(startedAt, duration)
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}

	result.OrdersCompleted = m.ledger.Count()
	result.RevenueMinor = m.ledger.TotalRevenueMinor()
	if stats, statsErr := m.outbox.Stats(); statsErr == nil {
		result.OutboxPending = stats.PendingCount
	}

	var checkoutCalls int64
	if checkoutStats, ok := col.snapshot("checkout"); ok {
		checkoutCalls = checkoutStats.Calls
	}
	result.AuditViolations = auditMarket(m, checkoutCalls)

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 || len(result.AuditViolations) > 0 {
		os.Exit(1)
	}
}

func stressLogger(verbose bool) *log.Entry {
	logger := log.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(log.ErrorLevel)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger.WithField("component", "stress")
}

func buildMarket(cfg config, logger *log.Entry) (*market, error) {
	m := &market{
		catalog:      memory.NewCatalogRepository(),
		customers:    memory.NewCustomerRepository(),
		carts:        memory.NewCartRepository(),
		ledger:       memory.NewOrderLedger(),
		outbox:       memory.NewOutboxRepository(),
		initialStock: make(map[string]int),
	}
	sellers := memory.NewSellerRepository()

	reg := registry.New(m.customers, sellers, m.catalog, logger)

	data := seed.Default()
	for si := range data.Sellers {
		for pi := range data.Sellers[si].Products {
			data.Sellers[si].Products[pi].Stock *= cfg.stockScale
		}
	}
	if err := seed.Apply(data, reg); err != nil {
		return nil, fmt.Errorf("seed market: %w", err)
	}

	for i := 0; i < cfg.shoppers; i++ {
		customer, err := reg.RegisterCustomer(domain.Customer{
			ID:          fmt.Sprintf("shopper-%d", i+1),
			Name:        fmt.Sprintf("Shopper %d", i+1),
			BudgetMinor: cfg.budgetMinor,
		})
		if err != nil {
			return nil, fmt.Errorf("register shopper %d: %w", i+1, err)
		}
		m.shopperIDs = append(m.shopperIDs, customer.ID)
	}

	for _, product := range m.catalog.List() {
		m.productIDs = append(m.productIDs, product.ID)
		m.initialStock[product.ID] = product.Stock
	}
	sort.Strings(m.productIDs)
	if len(m.productIDs) == 0 {
		return nil, errors.New("seeded catalog is empty")
	}

	for _, customer := range m.customers.List() {
		m.initialBudgetMinor += customer.BudgetMinor
	}

	m.cartSvc = cart.New(m.catalog, m.customers, m.carts, logger)
	m.processor = checkout.NewProcessor(m.catalog, m.customers, m.carts, m.ledger, m.outbox, logger)

	return m, nil
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func runScenario(
	m *market,
	cfg config,
	customerID string,
	index int,
	rng *rand.Rand,
	col *collector,
) error {
	scenarioStart := time.Now()
	scenarioOutcome := outcomeOK
	defer func() {
		col.record("scenario", time.Since(scenarioStart), scenarioOutcome)
	}()

	staged := make([]string, 0, cfg.itemsMax)
	additions := 1 + rng.Intn(cfg.itemsMax)
	for i := 0; i < additions; i++ {
		productID := m.productIDs[rng.Intn(len(m.productIDs))]
		start := time.Now()
		_, err := m.cartSvc.Add(customerID, productID)
		outcome := outcomeOf(err)
		col.record("cart.add", time.Since(start), outcome)
		if err != nil {
			if outcome == outcomeInternal {
				scenarioOutcome = outcomeInternal
				return fmt.Errorf("add %s to cart: %w", productID, err)
			}
			continue
		}
		staged = append(staged, productID)
	}

	if len(staged) > 0 && shouldReturnItem(index, cfg.removeRate) {
		productID := staged[rng.Intn(len(staged))]
		start := time.Now()
		_, err := m.cartSvc.Remove(customerID, productID)
		outcome := outcomeOf(err)
		col.record("cart.remove", time.Since(start), outcome)
		if err != nil && outcome == outcomeInternal {
			scenarioOutcome = outcomeInternal
			return fmt.Errorf("remove %s from cart: %w", productID, err)
		}
	}

	start := time.Now()
	_, err := m.processor.Purchase(customerID)
	outcome := outcomeOf(err)
	col.record("checkout", time.Since(start), outcome)
	scenarioOutcome = outcome
	if outcome == outcomeInternal && err != nil {
		return fmt.Errorf("checkout for %s: %w", customerID, err)
	}

	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeOK
	}
	return domain.FailureReason(err)
}

func shouldReturnItem(index, removeRate int) bool {
	if removeRate <= 0 {
		return false
	}
	if removeRate >= 100 {
		return true
	}
	return index%100 < removeRate
}

// auditMarket сверяет витрину после прогона: остатки и бюджеты не ушли
// в минус, журнал заказов плотный, деньги и единицы товара сходятся.
func auditMarket(m *market, checkoutCalls int64) []string {
	var violations []string

	unitsSold := make(map[string]int)
	var orderTotalSum int64
	for i, order := range m.ledger.List() {
		if order.ID != int64(i+1) {
			violations = append(violations, fmt.Sprintf(
				"ledger: order at position %d has id %d, want %d", i, order.ID, i+1))
			break
		}
		if order.TotalMinor < 0 {
			violations = append(violations, fmt.Sprintf(
				"ledger: order %d has negative total %d", order.ID, order.TotalMinor))
		}
		for _, item := range order.Items {
			unitsSold[item.ProductID]++
		}
		orderTotalSum += order.TotalMinor
	}

	if revenue := m.ledger.TotalRevenueMinor(); revenue != orderTotalSum {
		violations = append(violations, fmt.Sprintf(
			"ledger: revenue %d does not match sum of order totals %d", revenue, orderTotalSum))
	}

	remainingStock := make(map[string]int, len(m.initialStock))
	for _, product := range m.catalog.List() {
		if product.Stock < 0 {
			violations = append(violations, fmt.Sprintf(
				"catalog: product %s has negative stock %d", product.ID, product.Stock))
		}
		remainingStock[product.ID] = product.Stock
	}
	for productID, initial := range m.initialStock {
		if remaining := remainingStock[productID]; remaining+unitsSold[productID] != initial {
			violations = append(violations, fmt.Sprintf(
				"catalog: product %s stock mismatch: initial %d, remaining %d, sold %d",
				productID, initial, remaining, unitsSold[productID]))
		}
	}

	var remainingBudget int64
	for _, customer := range m.customers.List() {
		if customer.BudgetMinor < 0 {
			violations = append(violations, fmt.Sprintf(
				"customers: %s has negative budget %d", customer.ID, customer.BudgetMinor))
		}
		remainingBudget += customer.BudgetMinor
	}
	if spent := m.initialBudgetMinor - remainingBudget; spent != orderTotalSum {
		violations = append(violations, fmt.Sprintf(
			"customers: budgets decreased by %d, orders total %d", spent, orderTotalSum))
	}

	// Каждое оформление кладёт ровно одно событие в outbox: order.completed
	// при успехе, checkout.failed при отказе. Воркер здесь не запускается.
	if stats, err := m.outbox.Stats(); err != nil {
		violations = append(violations, fmt.Sprintf("outbox: stats: %v", err))
	} else if int64(stats.PendingCount) != checkoutCalls {
		violations = append(violations, fmt.Sprintf(
			"outbox: %d pending events for %d checkout attempts", stats.PendingCount, checkoutCalls))
	}

	return violations
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local stress reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(result report, cfg config) {
	fmt.Println("Stress run summary")
	fmt.Printf("target=%s shoppers=%d seed=%d total=%d success=%d rejected=%d failed=%d error_rate=%.4f\n",
		runTarget(cfg),
		cfg.shoppers,
		cfg.seed,
		result.TotalScenarios,
		result.SuccessScenarios,
		result.RejectedScenarios,
		result.FailedScenarios,
		result.ErrorRate,
	)
	fmt.Printf("duration=%.2fs rps=%.2f orders=%d revenue_minor=%d outbox_pending=%d\n",
		result.DurationSeconds,
		result.RPS,
		result.OrdersCompleted,
		result.RevenueMinor,
		result.OutboxPending,
	)
	fmt.Printf("scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	stepNames := make([]string, 0, len(result.Steps))
	for name := range result.Steps {
		if name == "scenario" {
			continue
		}
		stepNames = append(stepNames, name)
	}
	sort.Strings(stepNames)
	for _, name := range stepNames {
		stats := result.Steps[name]
		fmt.Printf(
			"%s: calls=%d success=%d rejected=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name,
			stats.Calls,
			stats.Success,
			stats.Rejected,
			stats.Failed,
			stats.ErrorRate,
			stats.LatencyMs.P95,
		)
	}

	if len(result.AuditViolations) == 0 {
		fmt.Println("audit: OK")
		return
	}
	fmt.Printf("audit: %d violation(s)\n", len(result.AuditViolations))
	for _, violation := range result.AuditViolations {
		fmt.Printf("  %s\n", violation)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
