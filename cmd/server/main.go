/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Wire engines and lifecycles
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: payroll.db)
           Use ":memory:" for an in-memory database
  -seed    Seed common rate types on an empty database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/payroll.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

  # Start a fresh database with the common rate types pre-loaded
  ./server -db=":memory:" -seed

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/benefit"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "payroll.db", "SQLite database path")
	seed := flag.Bool("seed", false, "Seed common rate types on an empty database")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if *seed {
		if err := seedPresets(context.Background(), store.RateTypes()); err != nil {
			log.Fatalf("Failed to seed rate types: %v", err)
		}
	}

	handler := newHandler(store)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// seedPresets loads the common rate types into an empty store. A store
// that already holds any rate type is left untouched so re-seeding an
// existing database is a no-op.
func seedPresets(ctx context.Context, repo engine.RateTypeRepository) error {
	existing, err := repo.List(ctx, "")
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Printf("Skipping seed: %d rate types already present", len(existing))
		return nil
	}

	presets := []engine.RateType{
		payroll.FixedAllowance("rt-transport", "transport", "Transportation Allowance", 2000, true),
		payroll.PercentageAllowance("rt-hazard", "hazard", "Hazard Pay", 5),
		payroll.PercentageDeduction("rt-sss", "sss", "Social Security Contribution", 4.5),
		payroll.FixedDeduction("rt-union", "union_dues", "Union Dues", 500),
		payroll.ManualDeduction("rt-loan", "salary_loan", "Salary Loan Repayment"),
		benefit.ThirteenthMonthPay("rt-13th"),
		benefit.FixedBonus("rt-midyear", "midyear_bonus", "Mid-Year Bonus", 10000, 4),
		benefit.RetirementGratuity("rt-gratuity", 10),
		benefit.DiscretionaryAward("rt-award", "service_award", "Service Recognition Award"),
	}
	for _, rt := range presets {
		if err := repo.Put(ctx, rt); err != nil {
			return fmt.Errorf("seed %s: %w", rt.Code, err)
		}
	}
	log.Printf("Seeded %d rate types", len(presets))
	return nil
}

// newHandler wires the engines and lifecycles onto one store.
func newHandler(store *sqlite.Store) *api.Handler {
	resolver := &engine.RateResolver{Overrides: store.Overrides()}

	payrollEngine := &payroll.ItemEngine{
		Employees: store,
		RateTypes: store.RateTypes(),
		Resolver:  resolver,
		Items:     store.PayrollItems(),
	}
	payrollLifecycle := &payroll.Lifecycle{
		Engine:  payrollEngine,
		Items:   store.PayrollItems(),
		Periods: store.Periods(),
	}

	ledger := benefit.NewAdjustmentLedger(store.Adjustments())
	benefitEngine := &benefit.ItemEngine{
		Employees: store,
		RateTypes: store.RateTypes(),
		Resolver:  resolver,
		Items:     store.BenefitItems(),
		Ledger:    ledger,
	}
	benefitLifecycle := &benefit.CycleLifecycle{
		Engine:    benefitEngine,
		Items:     store.BenefitItems(),
		Cycles:    store.Cycles(),
		Employees: store,
	}

	return &api.Handler{
		Employees:     store,
		RateTypes:     store.RateTypes(),
		Overrides:     store.Overrides(),
		Periods:       store.Periods(),
		PayrollItems:  store.PayrollItems(),
		Payroll:       payrollLifecycle,
		Cycles:        store.Cycles(),
		BenefitItems:  store.BenefitItems(),
		Adjustments:   store.Adjustments(),
		BenefitEngine: benefitEngine,
		Benefits:      benefitLifecycle,
		Factory:       factory.NewRateTypeFactory(),
	}
}
