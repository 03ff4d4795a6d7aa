/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/employees/*       Employee and override management
  /api/rate-types/*      Rate type configuration
  /api/periods/*         Payroll period lifecycle
  /api/items/*           Payroll item lifecycle
  /api/cycles/*          Benefit cycle lifecycle
  /api/benefit-items/*   Benefit item lifecycle and adjustments

SECURITY NOTE:
  No authentication middleware. Finalize/release operations carry an
  actor name which the lifecycle's Authorize hook can reject, but the
  name itself is unverified. Front with an authenticating proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/overrides", h.ListOverrides)
			r.Post("/{id}/overrides", h.CreateOverride)
		})

		// Rate type routes
		r.Route("/rate-types", func(r chi.Router) {
			r.Get("/", h.ListRateTypes)
			r.Post("/", h.CreateRateType)
			r.Get("/{id}", h.GetRateType)
		})

		// Payroll period routes
		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.ListPeriods)
			r.Post("/", h.CreatePeriod)
			r.Post("/{id}/process", h.ProcessPeriod)
			r.Get("/{id}/items", h.ListPeriodItems)
			r.Post("/{id}/complete", h.CompletePeriod)
			r.Post("/{id}/pay", h.MarkPeriodPaid)
			r.Delete("/{id}", h.DeletePeriod)
		})

		// Payroll item routes
		r.Route("/items", func(r chi.Router) {
			r.Post("/finalize", h.BulkFinalizeItems)
			r.Post("/pay", h.BulkPayItems)
			r.Get("/{id}", h.GetPayrollItem)
			r.Post("/{id}/recalculate", h.RecalculateItem)
			r.Post("/{id}/finalize", h.FinalizeItem)
			r.Post("/{id}/pay", h.PayItem)
			r.Post("/{id}/reopen", h.ReopenItem)
		})

		// Benefit cycle routes
		r.Route("/cycles", func(r chi.Router) {
			r.Get("/", h.ListCycles)
			r.Post("/", h.CreateCycle)
			r.Get("/{id}", h.GetCycle)
			r.Get("/{id}/items", h.ListCycleItems)
			r.Post("/{id}/calculate", h.CalculateCycle)
			r.Post("/{id}/process", h.ProcessCycle)
			r.Post("/{id}/release", h.ReleaseCycle)
			r.Post("/{id}/cancel", h.CancelCycle)
		})

		// Benefit item routes
		r.Route("/benefit-items", func(r chi.Router) {
			r.Post("/approve", h.BulkApproveBenefitItems)
			r.Post("/pay", h.BulkPayBenefitItems)
			r.Get("/{id}", h.GetBenefitItem)
			r.Post("/{id}/adjustments", h.AddAdjustment)
			r.Post("/{id}/approve", h.ApproveBenefitItem)
			r.Post("/{id}/pay", h.PayBenefitItem)
		})
	})

	return r
}
