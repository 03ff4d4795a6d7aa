/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes payroll and benefit processing via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                    List all employees
    POST   /api/employees                    Create/update employee
    GET    /api/employees/{id}               Get employee details
    GET    /api/employees/{id}/overrides     List rate overrides
    POST   /api/employees/{id}/overrides     Add a rate override

  Rate types:
    GET    /api/rate-types                   List (filter by ?kind=)
    POST   /api/rate-types                   Create from JSON definition
    GET    /api/rate-types/{id}              Get one

  Payroll:
    POST   /api/periods                      Open a period
    GET    /api/periods                      List periods
    POST   /api/periods/{id}/process         Compute a batch of items
    GET    /api/periods/{id}/items           List items in a period
    POST   /api/periods/{id}/complete        Close computation
    POST   /api/periods/{id}/pay             Mark period paid
    DELETE /api/periods/{id}                 Soft-delete a completed period
    GET    /api/items/{id}                   Item with lines
    POST   /api/items/{id}/recalculate       Recompute one item
    POST   /api/items/{id}/finalize          Finalize one item
    POST   /api/items/{id}/pay               Pay one item
    POST   /api/items/{id}/reopen            Finalized -> Draft
    POST   /api/items/finalize               Bulk finalize
    POST   /api/items/pay                    Bulk pay

  Benefits:
    POST   /api/cycles                       Open a cycle
    GET    /api/cycles                       List cycles
    GET    /api/cycles/{id}                  Cycle details
    GET    /api/cycles/{id}/items            Items in a cycle
    POST   /api/cycles/{id}/calculate        Calculate all employees
    POST   /api/cycles/{id}/process          Draft items done -> Completed
    POST   /api/cycles/{id}/release          Release for payment
    POST   /api/cycles/{id}/cancel           Cancel with reason
    GET    /api/benefit-items/{id}           Item with adjustment history
    POST   /api/benefit-items/{id}/adjustments  Append an adjustment
    POST   /api/benefit-items/{id}/approve   Approve one item
    POST   /api/benefit-items/{id}/pay       Pay one item
    POST   /api/benefit-items/approve        Bulk approve
    POST   /api/benefit-items/pay            Bulk pay

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, rate resolution failures
  - 403: Authorization failures
  - 404: Resource not found
  - 409: Conflict (state machine, duplicates, paid items)
  - 500: Internal errors

SECURITY NOTE:
  Authorization hooks exist on finalize/release (Lifecycle.Authorize),
  but there is no authentication middleware. Do not expose publicly.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/benefit"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// EmployeeStore extends the read-only repository with writes. Both the
// memory store and the sqlite store satisfy it.
type EmployeeStore interface {
	engine.EmployeeRepository
	PutEmployee(ctx context.Context, emp engine.Employee) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Employees EmployeeStore
	RateTypes engine.RateTypeRepository
	Overrides engine.RateOverrideRepository

	Periods      payroll.PeriodStore
	PayrollItems payroll.ItemStore
	Payroll      *payroll.Lifecycle

	Cycles        benefit.CycleStore
	BenefitItems  benefit.ItemStore
	Adjustments   benefit.AdjustmentStore
	BenefitEngine *benefit.ItemEngine
	Benefits      *benefit.CycleLifecycle

	Factory *factory.RateTypeFactory
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Employees.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Employees.Get(r.Context(), engine.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates or updates an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	appointed := engine.ParseDate(req.AppointmentDate)
	if appointed.IsZero() {
		writeError(w, http.StatusBadRequest, "Invalid appointment_date format (use YYYY-MM-DD)", nil)
		return
	}
	dailyRate, err := parseMoney(req.DailyRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid daily_rate", err)
		return
	}
	monthlySalary, err := parseMoney(req.MonthlySalary)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid monthly_salary", err)
		return
	}

	status := engine.EmploymentStatus(req.Status)
	if req.Status == "" {
		status = engine.StatusActive
	}

	emp := engine.Employee{
		ID:              engine.EmployeeID(req.ID),
		Name:            req.Name,
		Status:          status,
		AppointmentDate: appointed,
		DailyRate:       dailyRate,
		MonthlySalary:   monthlySalary,
	}
	if err := h.Employees.PutEmployee(r.Context(), emp); err != nil {
		writeDomainError(w, "Failed to store employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// ListOverrides returns an employee's rate overrides.
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.Overrides.ListByEmployee(r.Context(), engine.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to list overrides", err)
		return
	}
	dtos := make([]OverrideDTO, len(overrides))
	for i, ov := range overrides {
		dtos[i] = toOverrideDTO(ov)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateOverride adds a rate override for an employee.
func (h *Handler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	var req CreateOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	from := engine.ParseDate(req.EffectiveFrom)
	if from.IsZero() {
		writeError(w, http.StatusBadRequest, "Invalid effective_from format (use YYYY-MM-DD)", nil)
		return
	}

	ov := engine.RateOverride{
		ID:        engine.OverrideID(uuid.NewString()),
		Employee:  engine.EmployeeID(chi.URLParam(r, "id")),
		RateType:  engine.RateTypeID(req.RateTypeID),
		Amount:    amount,
		Effective: engine.DateRange{Start: from},
		Reason:    req.Reason,
	}
	if req.EffectiveTo != nil {
		to := engine.ParseDate(*req.EffectiveTo)
		if to.IsZero() {
			writeError(w, http.StatusBadRequest, "Invalid effective_to format (use YYYY-MM-DD)", nil)
			return
		}
		ov.Effective.End = &to
	}

	if err := h.Overrides.Put(r.Context(), ov); err != nil {
		writeDomainError(w, "Failed to store override", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOverrideDTO(ov))
}

// =============================================================================
// RATE TYPE HANDLERS
// =============================================================================

// ListRateTypes returns rate types, optionally filtered by kind.
func (h *Handler) ListRateTypes(w http.ResponseWriter, r *http.Request) {
	kind := engine.RateKind(r.URL.Query().Get("kind"))
	rateTypes, err := h.RateTypes.List(r.Context(), kind)
	if err != nil {
		writeDomainError(w, "Failed to list rate types", err)
		return
	}
	dtos := make([]factory.RateTypeJSON, len(rateTypes))
	for i, rt := range rateTypes {
		dtos[i] = h.Factory.ToJSON(rt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRateType returns a single rate type.
func (h *Handler) GetRateType(w http.ResponseWriter, r *http.Request) {
	rt, err := h.RateTypes.Get(r.Context(), engine.RateTypeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get rate type", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Factory.ToJSON(rt))
}

// CreateRateType creates a rate type from its JSON definition.
func (h *Handler) CreateRateType(w http.ResponseWriter, r *http.Request) {
	var rj factory.RateTypeJSON
	if err := json.NewDecoder(r.Body).Decode(&rj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rt, err := h.Factory.FromJSON(rj)
	if err != nil {
		writeDomainError(w, "Invalid rate type", err)
		return
	}
	if err := h.RateTypes.Put(r.Context(), rt); err != nil {
		writeDomainError(w, "Failed to store rate type", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Factory.ToJSON(rt))
}

// =============================================================================
// PAYROLL PERIOD HANDLERS
// =============================================================================

// ListPeriods returns all payroll periods.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Periods.List(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list periods", err)
		return
	}
	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePeriod opens a new payroll period.
func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req CreatePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start := engine.ParseDate(req.StartDate)
	end := engine.ParseDate(req.EndDate)
	if start.IsZero() || end.IsZero() {
		writeError(w, http.StatusBadRequest, "Invalid start_date/end_date format (use YYYY-MM-DD)", nil)
		return
	}
	if req.StandardWorkingDays <= 0 {
		writeError(w, http.StatusBadRequest, "standard_working_days must be positive", nil)
		return
	}

	period := payroll.Period{
		ID:                  engine.PeriodID(uuid.NewString()),
		Year:                req.Year,
		Month:               timeMonth(req.Month),
		PeriodNumber:        req.PeriodNumber,
		StartDate:           start,
		EndDate:             end,
		StandardWorkingDays: req.StandardWorkingDays,
		Status:              payroll.PeriodDraft,
	}
	if err := h.Periods.Create(r.Context(), period); err != nil {
		writeDomainError(w, "Failed to create period", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodDTO(period))
}

// ProcessPeriod computes payroll items for a batch of employees.
func (h *Handler) ProcessPeriod(w http.ResponseWriter, r *http.Request) {
	var req ProcessPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	inputs := make([]payroll.ComputeInput, 0, len(req.Inputs))
	for _, in := range req.Inputs {
		input, err := toComputeInput(in)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid input for "+in.EmployeeID, err)
			return
		}
		inputs = append(inputs, input)
	}

	result, err := h.Payroll.Process(r.Context(), engine.PeriodID(chi.URLParam(r, "id")), inputs)
	if err != nil {
		writeDomainError(w, "Failed to process period", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResultDTO(result))
}

// ListPeriodItems returns all items of a period.
func (h *Handler) ListPeriodItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.PayrollItems.ListByPeriod(r.Context(), engine.PeriodID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to list items", err)
		return
	}
	dtos := make([]PayrollItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toPayrollItemDTO(item, nil)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CompletePeriod closes computation for a period.
func (h *Handler) CompletePeriod(w http.ResponseWriter, r *http.Request) {
	if err := h.Payroll.CompletePeriod(r.Context(), engine.PeriodID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to complete period", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkPeriodPaid marks a fully-paid period as paid.
func (h *Handler) MarkPeriodPaid(w http.ResponseWriter, r *http.Request) {
	if err := h.Payroll.MarkPeriodPaid(r.Context(), engine.PeriodID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to mark period paid", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeletePeriod soft-deletes a completed period.
func (h *Handler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	if err := h.Payroll.DeletePeriod(r.Context(), engine.PeriodID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete period", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYROLL ITEM HANDLERS
// =============================================================================

// GetPayrollItem returns an item with its lines.
func (h *Handler) GetPayrollItem(w http.ResponseWriter, r *http.Request) {
	id := engine.ItemID(chi.URLParam(r, "id"))
	item, err := h.PayrollItems.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get item", err)
		return
	}
	lines, err := h.PayrollItems.Lines(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get lines", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollItemDTO(item, lines))
}

// RecalculateItem recomputes a draft or processed item in place.
func (h *Handler) RecalculateItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Payroll.Recalculate(r.Context(), engine.ItemID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to recalculate item", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollItemDTO(*item, nil))
}

// FinalizeItem transitions an item Processed -> Finalized.
func (h *Handler) FinalizeItem(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	decodeOptional(r, &req)
	if err := h.Payroll.Finalize(r.Context(), engine.ItemID(chi.URLParam(r, "id")), req.Actor); err != nil {
		writeDomainError(w, "Failed to finalize item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PayItem marks a finalized item as paid.
func (h *Handler) PayItem(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Payroll.MarkPaid(r.Context(), engine.ItemID(chi.URLParam(r, "id")), req.PaymentRef); err != nil {
		writeDomainError(w, "Failed to pay item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReopenItem transitions an item Finalized -> Draft for correction.
func (h *Handler) ReopenItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Payroll.Reopen(r.Context(), engine.ItemID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to reopen item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkFinalizeItems finalizes many items best-effort.
func (h *Handler) BulkFinalizeItems(w http.ResponseWriter, r *http.Request) {
	var req BulkItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	result := h.Payroll.BulkFinalize(r.Context(), toItemIDs(req.ItemIDs), req.Actor)
	writeJSON(w, http.StatusOK, toBatchResultDTO(result))
}

// BulkPayItems pays many items best-effort.
func (h *Handler) BulkPayItems(w http.ResponseWriter, r *http.Request) {
	var req BulkItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	result := h.Payroll.BulkMarkPaid(r.Context(), toItemIDs(req.ItemIDs), req.PaymentRef)
	writeJSON(w, http.StatusOK, toBatchResultDTO(result))
}

// =============================================================================
// BENEFIT CYCLE HANDLERS
// =============================================================================

// ListCycles returns all benefit cycles.
func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.Cycles.List(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list cycles", err)
		return
	}
	dtos := make([]CycleDTO, len(cycles))
	for i, c := range cycles {
		dtos[i] = toCycleDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCycle returns a single cycle.
func (h *Handler) GetCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.Cycles.Get(r.Context(), engine.CycleID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get cycle", err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleDTO(cycle))
}

// CreateCycle opens a benefit cycle.
func (h *Handler) CreateCycle(w http.ResponseWriter, r *http.Request) {
	var req CreateCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	applicable := engine.ParseDate(req.ApplicableDate)
	if applicable.IsZero() {
		writeError(w, http.StatusBadRequest, "Invalid applicable_date format (use YYYY-MM-DD)", nil)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	// The benefit type must exist before a cycle can reference it.
	if _, err := h.RateTypes.Get(r.Context(), engine.RateTypeID(req.BenefitTypeID)); err != nil {
		writeDomainError(w, "Unknown benefit type", err)
		return
	}

	cycle := benefit.Cycle{
		ID:             engine.CycleID(uuid.NewString()),
		BenefitTypeID:  engine.RateTypeID(req.BenefitTypeID),
		Year:           req.Year,
		Name:           req.Name,
		ApplicableDate: applicable,
		Status:         benefit.CycleDraft,
	}
	if err := h.Cycles.Create(r.Context(), cycle); err != nil {
		writeDomainError(w, "Failed to create cycle", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCycleDTO(cycle))
}

// CalculateCycle computes benefit items for every employee.
func (h *Handler) CalculateCycle(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Benefits.Calculate(r.Context(), engine.CycleID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to calculate cycle", err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleSummaryDTO(summary))
}

// ProcessCycle transitions a calculated cycle to Completed.
func (h *Handler) ProcessCycle(w http.ResponseWriter, r *http.Request) {
	if err := h.Benefits.Process(r.Context(), engine.CycleID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to process cycle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReleaseCycle releases a completed cycle for payment.
func (h *Handler) ReleaseCycle(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	decodeOptional(r, &req)
	if err := h.Benefits.Release(r.Context(), engine.CycleID(chi.URLParam(r, "id")), req.Actor); err != nil {
		writeDomainError(w, "Failed to release cycle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelCycle cancels a cycle and cascades to its non-paid items.
func (h *Handler) CancelCycle(w http.ResponseWriter, r *http.Request) {
	var req CancelCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	err := h.Benefits.Cancel(r.Context(), engine.CycleID(chi.URLParam(r, "id")), req.Reason, req.AcknowledgePartial)
	if err != nil {
		writeDomainError(w, "Failed to cancel cycle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCycleItems returns all items of a cycle.
func (h *Handler) ListCycleItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.BenefitItems.ListByCycle(r.Context(), engine.CycleID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to list items", err)
		return
	}
	dtos := make([]BenefitItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toBenefitItemDTO(item, nil)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BENEFIT ITEM HANDLERS
// =============================================================================

// GetBenefitItem returns an item with its adjustment history.
func (h *Handler) GetBenefitItem(w http.ResponseWriter, r *http.Request) {
	id := engine.ItemID(chi.URLParam(r, "id"))
	item, err := h.BenefitItems.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get item", err)
		return
	}
	adjustments, err := h.Adjustments.ListByItem(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get adjustments", err)
		return
	}
	writeJSON(w, http.StatusOK, toBenefitItemDTO(item, adjustments))
}

// AddAdjustment appends an adjustment and returns the updated item.
func (h *Handler) AddAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AddAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	item, err := h.BenefitEngine.AddAdjustment(r.Context(),
		engine.ItemID(chi.URLParam(r, "id")),
		benefit.AdjustmentType(req.Type), amount, req.Reason, req.ApprovedBy)
	if err != nil {
		writeDomainError(w, "Failed to add adjustment", err)
		return
	}
	writeJSON(w, http.StatusOK, toBenefitItemDTO(*item, nil))
}

// ApproveBenefitItem transitions an item Calculated -> Approved.
func (h *Handler) ApproveBenefitItem(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	decodeOptional(r, &req)
	if err := h.Benefits.Approve(r.Context(), engine.ItemID(chi.URLParam(r, "id")), req.Actor); err != nil {
		writeDomainError(w, "Failed to approve item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PayBenefitItem marks an approved item as paid.
func (h *Handler) PayBenefitItem(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Benefits.MarkPaid(r.Context(), engine.ItemID(chi.URLParam(r, "id")), req.PaymentRef); err != nil {
		writeDomainError(w, "Failed to pay item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkApproveBenefitItems approves many items best-effort.
func (h *Handler) BulkApproveBenefitItems(w http.ResponseWriter, r *http.Request) {
	var req BulkItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	result := h.Benefits.BulkApprove(r.Context(), toItemIDs(req.ItemIDs), req.Actor)
	writeJSON(w, http.StatusOK, toBenefitBatchResultDTO(result))
}

// BulkPayBenefitItems pays many items best-effort.
func (h *Handler) BulkPayBenefitItems(w http.ResponseWriter, r *http.Request) {
	var req BulkItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	result := h.Benefits.BulkMarkPaid(r.Context(), toItemIDs(req.ItemIDs), req.PaymentRef)
	writeJSON(w, http.StatusOK, toBenefitBatchResultDTO(result))
}

// =============================================================================
// HELPERS
// =============================================================================

func toComputeInput(in ComputeInputDTO) (payroll.ComputeInput, error) {
	input := payroll.ComputeInput{
		EmployeeID:  engine.EmployeeID(in.EmployeeID),
		WorkingDays: in.WorkingDays,
	}
	for _, id := range in.AllowanceTypeIDs {
		input.AllowanceTypeIDs = append(input.AllowanceTypeIDs, engine.RateTypeID(id))
	}
	for _, id := range in.DeductionTypeIDs {
		input.DeductionTypeIDs = append(input.DeductionTypeIDs, engine.RateTypeID(id))
	}
	for _, ml := range in.ManualLines {
		amount, err := parseMoney(ml.Amount)
		if err != nil {
			return input, err
		}
		line := payroll.ManualLine{
			Kind:        payroll.LineKind(ml.Kind),
			Description: ml.Description,
			Amount:      amount,
		}
		if ml.RateTypeID != "" {
			id := engine.RateTypeID(ml.RateTypeID)
			line.RateType = &id
		}
		input.ManualLines = append(input.ManualLines, line)
	}
	return input, nil
}

func toItemIDs(ids []string) []engine.ItemID {
	out := make([]engine.ItemID, len(ids))
	for i, id := range ids {
		out[i] = engine.ItemID(id)
	}
	return out
}

func parseMoney(s string) (engine.Money, error) {
	if s == "" {
		return engine.ZeroMoney(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return engine.Money{}, err
	}
	return engine.Money{Value: d}, nil
}

// decodeOptional decodes a body that is allowed to be absent.
func decodeOptional(r *http.Request, v any) {
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(v)
	}
}

func timeMonth(m int) time.Month {
	if m < 1 || m > 12 {
		return time.January
	}
	return time.Month(m)
}

// writeDomainError maps domain sentinel errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, engine.ErrUnauthorized):
		writeError(w, http.StatusForbidden, message, err)
	case errors.Is(err, engine.ErrValidation),
		errors.Is(err, engine.ErrRateResolution):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, engine.ErrInvalidTransition),
		errors.Is(err, engine.ErrItemLocked),
		errors.Is(err, engine.ErrAlreadyPaid),
		errors.Is(err, engine.ErrDuplicateItem),
		errors.Is(err, engine.ErrHasPaidItems),
		errors.Is(err, engine.ErrIncompleteChildren),
		errors.Is(err, engine.ErrOverlappingOverride):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
