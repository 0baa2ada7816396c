package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

func withCLIArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"stress"}, args...)
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flag.CommandLine = fs

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

func TestParseConfig(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		withCLIArgs(t, []string{
			"-shoppers=3",
			"-total=12",
			"-items-max=2",
			"-remove-rate=25",
			"-budget-minor=5000",
			"-stock-scale=4",
			"-seed=42",
			"-output=/tmp/out.json",
		}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !cfg.totalSet {
				t.Fatalf("expected totalSet=true")
			}
			if cfg.duration != 0 {
				t.Fatalf("expected zero duration, got %s", cfg.duration)
			}
			if cfg.shoppers != 3 || cfg.total != 12 || cfg.itemsMax != 2 {
				t.Fatalf("unexpected numeric config: %+v", cfg)
			}
			if cfg.removeRate != 25 || cfg.budgetMinor != 5000 || cfg.stockScale != 4 {
				t.Fatalf("unexpected scenario config: %+v", cfg)
			}
			if cfg.seed != 42 {
				t.Fatalf("unexpected seed: %d", cfg.seed)
			}
		})
	})

	t.Run("duration mode", func(t *testing.T) {
		withCLIArgs(t, []string{
			"-duration=3s",
			"-shoppers=2",
		}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.duration != 3*time.Second {
				t.Fatalf("unexpected duration: %s", cfg.duration)
			}
			if cfg.totalSet {
				t.Fatalf("expected totalSet=false when -total was not provided")
			}
		})
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name    string
			args    []string
			wantErr string
		}{
			{name: "invalid duration", args: []string{"-duration=bad"}, wantErr: "parse duration"},
			{name: "negative duration", args: []string{"-duration=-1s"}, wantErr: "duration must be >= 0"},
			{name: "empty total", args: []string{"-duration=0s", "-total=0"}, wantErr: "total must be > 0"},
			{name: "zero shoppers", args: []string{"-shoppers=0"}, wantErr: "shoppers must be > 0"},
			{name: "zero items max", args: []string{"-items-max=0"}, wantErr: "items-max must be > 0"},
			{name: "invalid remove rate", args: []string{"-remove-rate=101"}, wantErr: "remove-rate must be between 0 and 100"},
			{name: "zero budget", args: []string{"-budget-minor=0"}, wantErr: "budget-minor must be > 0"},
			{name: "zero stock scale", args: []string{"-stock-scale=0"}, wantErr: "stock-scale must be > 0"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				withCLIArgs(t, tc.args, func() {
					_, err := parseConfig()
					if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
						t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
					}
				})
			})
		}
	})
}

func TestDispatchJobs(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{total: 5})

		var got []int
		for v := range jobs {
			got = append(got, v)
		}
		if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
			t.Fatalf("unexpected jobs sequence: %v", got)
		}
	})

	t.Run("duration mode", func(t *testing.T) {
		jobs := make(chan int, 32)
		done := make(chan struct{})
		go func() {
			dispatchJobs(jobs, config{duration: 20 * time.Millisecond})
			close(done)
		}()

		count := 0
		for range jobs {
			count++
		}
		<-done
		if count == 0 {
			t.Fatalf("expected non-zero jobs for duration mode")
		}
	})

	t.Run("duration with explicit max total", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{duration: time.Second, total: 3, totalSet: true})
		count := 0
		for range jobs {
			count++
		}
		if count != 3 {
			t.Fatalf("expected 3 jobs, got %d", count)
		}
	})
}

func TestCollectorAndReport(t *testing.T) {
	c := newCollector()
	c.record("scenario", 10*time.Millisecond, outcomeOK)
	c.record("scenario", 20*time.Millisecond, "insufficient_budget")
	c.record("scenario", 30*time.Millisecond, outcomeInternal)
	c.record("checkout", 15*time.Millisecond, outcomeOK)

	snap, ok := c.snapshot("scenario")
	if !ok {
		t.Fatalf("scenario snapshot missing")
	}
	if snap.Calls != 3 || snap.Success != 1 || snap.Rejected != 1 || snap.Failed != 1 {
		t.Fatalf("unexpected scenario snapshot: %+v", snap)
	}
	if snap.Outcomes[outcomeOK] != 1 || snap.Outcomes["insufficient_budget"] != 1 || snap.Outcomes[outcomeInternal] != 1 {
		t.Fatalf("unexpected outcomes: %+v", snap.Outcomes)
	}

	r := c.buildReport(time.Now(), 2*time.Second)
	if r.TotalScenarios != 3 || r.RejectedScenarios != 1 || r.FailedScenarios != 1 {
		t.Fatalf("unexpected report totals: %+v", r)
	}
	if r.RPS <= 0 {
		t.Fatalf("expected positive rps, got %f", r.RPS)
	}
	if _, ok := r.Steps["checkout"]; !ok {
		t.Fatalf("expected checkout stats in report")
	}
}

func TestUtilityFunctions(t *testing.T) {
	if got := outcomeOf(nil); got != outcomeOK {
		t.Fatalf("outcomeOf(nil) = %s, want %s", got, outcomeOK)
	}
	if got := outcomeOf(fmt.Errorf("checkout: %w", domain.ErrEmptyCart)); got != "empty_cart" {
		t.Fatalf("unexpected outcome for empty cart: %s", got)
	}
	if got := outcomeOf(domain.ErrInsufficientBudget); got != "insufficient_budget" {
		t.Fatalf("unexpected outcome for budget rejection: %s", got)
	}
	if got := outcomeOf(errors.New("boom")); got != outcomeInternal {
		t.Fatalf("unexpected outcome for unknown error: %s", got)
	}

	if shouldReturnItem(5, 0) {
		t.Fatalf("zero remove rate must never return items")
	}
	if !shouldReturnItem(5, 100) {
		t.Fatalf("full remove rate must always return items")
	}
	if !shouldReturnItem(5, 10) || shouldReturnItem(15, 10) {
		t.Fatalf("unexpected remove decisions for 10%% rate")
	}

	if got := ratio(1, 4); got != 0.25 {
		t.Fatalf("ratio mismatch: %f", got)
	}
	if got := ratio(1, 0); got != 0 {
		t.Fatalf("ratio with zero total must be 0, got %f", got)
	}

	values := []float64{10, 20, 30, 40}
	summary := buildLatencySummary(values)
	if summary.P50 <= 0 || summary.P95 <= 0 || summary.Max != 40 {
		t.Fatalf("unexpected latency summary: %+v", summary)
	}
	if p := percentile(values, 95); p <= 0 {
		t.Fatalf("unexpected percentile: %f", p)
	}

	if got := runTarget(config{total: 50}); got != "count:50" {
		t.Fatalf("unexpected run target: %s", got)
	}
	if got := runTarget(config{duration: 2 * time.Second}); got != "duration:2s" {
		t.Fatalf("unexpected duration run target: %s", got)
	}
	if got := runTarget(config{duration: 2 * time.Second, total: 10, totalSet: true}); got != "duration:2s,max-total:10" {
		t.Fatalf("unexpected capped duration run target: %s", got)
	}
}

func TestBuildMarket(t *testing.T) {
	cfg := config{shoppers: 2, budgetMinor: 5000, stockScale: 2, itemsMax: 3}
	m, err := buildMarket(cfg, stressLogger(false))
	if err != nil {
		t.Fatalf("buildMarket failed: %v", err)
	}

	if len(m.shopperIDs) != 2 {
		t.Fatalf("expected 2 shoppers, got %d", len(m.shopperIDs))
	}
	if len(m.productIDs) != 9 {
		t.Fatalf("expected 9 seeded products, got %d", len(m.productIDs))
	}
	if !slices.IsSorted(m.productIDs) {
		t.Fatalf("product ids must be sorted: %v", m.productIDs)
	}
	if got := m.initialStock["prod-1"]; got != 10 {
		t.Fatalf("expected prod-1 stock scaled to 10, got %d", got)
	}

	// Три посевных покупателя плюс два шопперских бюджета.
	wantBudget := int64(150000+50000+300000) + 2*cfg.budgetMinor
	if m.initialBudgetMinor != wantBudget {
		t.Fatalf("unexpected initial budget: got %d want %d", m.initialBudgetMinor, wantBudget)
	}

	if m.cartSvc == nil || m.processor == nil {
		t.Fatalf("expected services to be wired")
	}
}

func TestRunScenario(t *testing.T) {
	cfg := config{shoppers: 1, budgetMinor: 50000, stockScale: 5, itemsMax: 2, removeRate: 0}
	m, err := buildMarket(cfg, stressLogger(false))
	if err != nil {
		t.Fatalf("buildMarket failed: %v", err)
	}

	col := newCollector()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		if err := runScenario(m, cfg, m.shopperIDs[0], i, rng, col); err != nil {
			t.Fatalf("scenario %d failed: %v", i, err)
		}
	}

	scenarioSnap, ok := col.snapshot("scenario")
	if !ok || scenarioSnap.Calls != 10 {
		t.Fatalf("unexpected scenario stats: %+v", scenarioSnap)
	}
	if scenarioSnap.Failed != 0 {
		t.Fatalf("expected no internal failures, got %+v", scenarioSnap)
	}

	checkoutSnap, ok := col.snapshot("checkout")
	if !ok || checkoutSnap.Calls != 10 {
		t.Fatalf("unexpected checkout stats: %+v", checkoutSnap)
	}
	if _, ok := col.snapshot("cart.add"); !ok {
		t.Fatalf("expected cart.add stats")
	}

	stats, err := m.outbox.Stats()
	if err != nil {
		t.Fatalf("outbox stats: %v", err)
	}
	if int64(stats.PendingCount) != checkoutSnap.Calls {
		t.Fatalf("expected one outbox event per checkout: pending=%d calls=%d",
			stats.PendingCount, checkoutSnap.Calls)
	}

	if violations := auditMarket(m, checkoutSnap.Calls); len(violations) != 0 {
		t.Fatalf("unexpected audit violations: %v", violations)
	}
}

func TestRunScenario_UnknownCustomer(t *testing.T) {
	cfg := config{shoppers: 1, budgetMinor: 5000, stockScale: 1, itemsMax: 1, removeRate: 0}
	m, err := buildMarket(cfg, stressLogger(false))
	if err != nil {
		t.Fatalf("buildMarket failed: %v", err)
	}

	col := newCollector()
	rng := rand.New(rand.NewSource(1))
	if err := runScenario(m, cfg, "ghost", 0, rng, col); err != nil {
		t.Fatalf("missing customer is a rejection, not an internal failure: %v", err)
	}

	snap, ok := col.snapshot("scenario")
	if !ok || snap.Rejected != 1 {
		t.Fatalf("expected rejected scenario, got %+v", snap)
	}
	if snap.Outcomes["customer_not_found"] != 1 {
		t.Fatalf("unexpected outcomes: %+v", snap.Outcomes)
	}
}

func TestAuditMarket(t *testing.T) {
	cfg := config{shoppers: 1, budgetMinor: 10000, stockScale: 1, itemsMax: 1}
	m, err := buildMarket(cfg, stressLogger(false))
	if err != nil {
		t.Fatalf("buildMarket failed: %v", err)
	}

	if _, err := m.cartSvc.Add(m.shopperIDs[0], "prod-3"); err != nil {
		t.Fatalf("stage item: %v", err)
	}
	if _, err := m.processor.Purchase(m.shopperIDs[0]); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	if violations := auditMarket(m, 1); len(violations) != 0 {
		t.Fatalf("clean market must pass audit: %v", violations)
	}

	t.Run("outbox count mismatch", func(t *testing.T) {
		violations := auditMarket(m, 99)
		if len(violations) != 1 || !strings.Contains(violations[0], "outbox") {
			t.Fatalf("expected single outbox violation, got %v", violations)
		}
	})

	t.Run("budget drift", func(t *testing.T) {
		if err := m.customers.CreditBudget(m.shopperIDs[0], 1); err != nil {
			t.Fatalf("credit budget: %v", err)
		}
		violations := auditMarket(m, 1)
		found := false
		for _, v := range violations {
			if strings.Contains(v, "budgets decreased") {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected budget drift violation, got %v", violations)
		}
	})
}

func TestWriteJSONReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	sample := report{TotalScenarios: 2, SuccessScenarios: 2}
	if err := writeJSONReport(path, sample); err != nil {
		t.Fatalf("writeJSONReport error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var decoded report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.TotalScenarios != 2 || decoded.SuccessScenarios != 2 {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}
}

func TestPrintReport(t *testing.T) {
	r := report{
		TotalScenarios:   2,
		SuccessScenarios: 2,
		Steps: map[string]stepReport{
			"scenario": {Calls: 2, Success: 2},
			"checkout": {Calls: 2, Success: 2},
		},
	}

	out := captureStdout(t, func() {
		printReport(r, config{total: 2, shoppers: 1})
	})

	if !strings.Contains(out, "Stress run summary") {
		t.Fatalf("expected summary header, got: %s", out)
	}
	if !strings.Contains(out, "checkout") {
		t.Fatalf("expected step section, got: %s", out)
	}
	if !strings.Contains(out, "audit: OK") {
		t.Fatalf("expected clean audit line, got: %s", out)
	}

	r.AuditViolations = []string{"catalog: product prod-1 has negative stock -1"}
	out = captureStdout(t, func() {
		printReport(r, config{total: 2, shoppers: 1})
	})
	if !strings.Contains(out, "audit: 1 violation(s)") {
		t.Fatalf("expected audit violation line, got: %s", out)
	}
}

func TestMainSmoke(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "main-report.json")

	var out string
	withCLIArgs(t, []string{
		"-shoppers=2",
		"-total=6",
		"-seed=11",
		"-output=" + outPath,
	}, func() {
		out = captureStdout(t, func() {
			main()
		})
	})

	if !strings.Contains(out, "Stress run summary") {
		t.Fatalf("expected summary output, got: %s", out)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("expected report file from main: %v", err)
	}
	var decoded report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.TotalScenarios != 6 {
		t.Fatalf("expected 6 scenarios, got %d", decoded.TotalScenarios)
	}
	if decoded.FailedScenarios != 0 || len(decoded.AuditViolations) != 0 {
		t.Fatalf("healthy run must not fail: %+v", decoded)
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = oldStdout

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read captured output: %v", err)
	}
	_ = r.Close()

	return string(data)
}
