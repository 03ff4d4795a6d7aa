/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  All monetary amounts cross the wire as strings ("22500.00"), never as
  floats. Floats cannot represent most decimal amounts exactly, and a
  payroll API that rounds on serialization is a payroll API that loses
  centavos.

VALIDATION:
  Validation is done in handlers and domain services, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/ratetype.go: RateTypeJSON type
*/
package api

import (
	"time"

	"github.com/warp/payroll-engine/benefit"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// EMPLOYEE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	AppointmentDate string `json:"appointment_date"`
	DailyRate       string `json:"daily_rate"`
	MonthlySalary   string `json:"monthly_salary"`
}

// CreateEmployeeRequest is the request to create or update an employee.
type CreateEmployeeRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	AppointmentDate string `json:"appointment_date"`
	DailyRate       string `json:"daily_rate"`
	MonthlySalary   string `json:"monthly_salary"`
}

// OverrideDTO represents a per-employee rate override.
type OverrideDTO struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	RateTypeID    string  `json:"rate_type_id"`
	Amount        string  `json:"amount"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

// CreateOverrideRequest is the request to add a rate override.
type CreateOverrideRequest struct {
	RateTypeID    string  `json:"rate_type_id"`
	Amount        string  `json:"amount"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

// =============================================================================
// PAYROLL TYPES
// =============================================================================

// PeriodDTO represents a payroll period.
type PeriodDTO struct {
	ID                  string `json:"id"`
	Year                int    `json:"year"`
	Month               int    `json:"month"`
	PeriodNumber        int    `json:"period_number"`
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date"`
	StandardWorkingDays int    `json:"standard_working_days"`
	Status              string `json:"status"`
}

// CreatePeriodRequest is the request to open a payroll period.
type CreatePeriodRequest struct {
	Year                int    `json:"year"`
	Month               int    `json:"month"`
	PeriodNumber        int    `json:"period_number"`
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date"`
	StandardWorkingDays int    `json:"standard_working_days"`
}

// PayrollItemDTO represents one employee's payroll for a period.
type PayrollItemDTO struct {
	ID              string        `json:"id"`
	PeriodID        string        `json:"period_id"`
	EmployeeID      string        `json:"employee_id"`
	WorkingDays     int           `json:"working_days"`
	DailyRate       string        `json:"daily_rate"`
	BasicPay        string        `json:"basic_pay"`
	TotalAllowances string        `json:"total_allowances"`
	TotalDeductions string        `json:"total_deductions"`
	GrossPay        string        `json:"gross_pay"`
	NetPay          string        `json:"net_pay"`
	Status          string        `json:"status"`
	PaymentRef      string        `json:"payment_ref,omitempty"`
	Lines           []ItemLineDTO `json:"lines,omitempty"`
}

// ItemLineDTO represents a single payroll line.
type ItemLineDTO struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	RateTypeID  string `json:"rate_type_id,omitempty"`
	Description string `json:"description"`
	Basis       string `json:"basis,omitempty"`
	Amount      string `json:"amount"`
}

// ComputeInputDTO selects what goes into one employee's payroll item.
type ComputeInputDTO struct {
	EmployeeID       string          `json:"employee_id"`
	WorkingDays      int             `json:"working_days"`
	AllowanceTypeIDs []string        `json:"allowance_type_ids,omitempty"`
	DeductionTypeIDs []string        `json:"deduction_type_ids,omitempty"`
	ManualLines      []ManualLineDTO `json:"manual_lines,omitempty"`
}

// ManualLineDTO is an operator-entered line with a fixed amount.
type ManualLineDTO struct {
	Kind        string `json:"kind"`
	RateTypeID  string `json:"rate_type_id,omitempty"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// ProcessPeriodRequest is the request to compute a batch of items.
type ProcessPeriodRequest struct {
	Inputs []ComputeInputDTO `json:"inputs"`
}

// BatchResultDTO reports a best-effort bulk operation.
type BatchResultDTO struct {
	Succeeded []string     `json:"succeeded"`
	Failed    []FailureDTO `json:"failed"`
}

// FailureDTO is one failed entry in a bulk operation.
type FailureDTO struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkItemsRequest names the items for a bulk lifecycle operation.
type BulkItemsRequest struct {
	ItemIDs    []string `json:"item_ids"`
	Actor      string   `json:"actor,omitempty"`
	PaymentRef string   `json:"payment_ref,omitempty"`
}

// PayRequest carries the payment reference for a single item.
type PayRequest struct {
	PaymentRef string `json:"payment_ref"`
}

// FinalizeRequest names the actor finalizing an item.
type FinalizeRequest struct {
	Actor string `json:"actor,omitempty"`
}

// =============================================================================
// BENEFIT TYPES
// =============================================================================

// CycleDTO represents a benefit cycle.
type CycleDTO struct {
	ID             string `json:"id"`
	BenefitTypeID  string `json:"benefit_type_id"`
	Year           int    `json:"year"`
	Name           string `json:"name"`
	ApplicableDate string `json:"applicable_date"`
	Status         string `json:"status"`
	TotalAmount    string `json:"total_amount"`
	EmployeeCount  int    `json:"employee_count"`
	CancelReason   string `json:"cancel_reason,omitempty"`
}

// CreateCycleRequest is the request to open a benefit cycle.
type CreateCycleRequest struct {
	BenefitTypeID  string `json:"benefit_type_id"`
	Year           int    `json:"year"`
	Name           string `json:"name"`
	ApplicableDate string `json:"applicable_date"`
}

// CycleSummaryDTO reports the outcome of a cycle calculation.
type CycleSummaryDTO struct {
	TotalEmployees      int          `json:"total_employees"`
	EligibleEmployees   int          `json:"eligible_employees"`
	IneligibleEmployees int          `json:"ineligible_employees"`
	TotalAmount         string       `json:"total_amount"`
	AverageBenefit      string       `json:"average_benefit"`
	Failed              []FailureDTO `json:"failed,omitempty"`
}

// BenefitItemDTO represents one employee's benefit in a cycle.
type BenefitItemDTO struct {
	ID               string          `json:"id"`
	CycleID          string          `json:"cycle_id"`
	EmployeeID       string          `json:"employee_id"`
	BaseSalary       string          `json:"base_salary"`
	ServiceMonths    int             `json:"service_months"`
	IsEligible       bool            `json:"is_eligible"`
	EligibilityNotes string          `json:"eligibility_notes,omitempty"`
	CalculatedAmount string          `json:"calculated_amount"`
	AdjustmentAmount string          `json:"adjustment_amount"`
	FinalAmount      string          `json:"final_amount"`
	TaxAmount        string          `json:"tax_amount"`
	NetAmount        string          `json:"net_amount"`
	Status           string          `json:"status"`
	PaymentRef       string          `json:"payment_ref,omitempty"`
	Adjustments      []AdjustmentDTO `json:"adjustments,omitempty"`
}

// AdjustmentDTO represents one adjustment ledger entry.
type AdjustmentDTO struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	Reason     string `json:"reason"`
	ApprovedBy string `json:"approved_by,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// AddAdjustmentRequest is the request to append an adjustment.
type AddAdjustmentRequest struct {
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	Reason     string `json:"reason"`
	ApprovedBy string `json:"approved_by,omitempty"`
}

// CancelCycleRequest is the request to cancel a cycle.
type CancelCycleRequest struct {
	Reason             string `json:"reason"`
	AcknowledgePartial bool   `json:"acknowledge_partial,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e engine.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:              string(e.ID),
		Name:            e.Name,
		Status:          string(e.Status),
		AppointmentDate: e.AppointmentDate.String(),
		DailyRate:       e.DailyRate.String(),
		MonthlySalary:   e.MonthlySalary.String(),
	}
}

func toOverrideDTO(ov engine.RateOverride) OverrideDTO {
	dto := OverrideDTO{
		ID:            string(ov.ID),
		EmployeeID:    string(ov.Employee),
		RateTypeID:    string(ov.RateType),
		Amount:        ov.Amount.String(),
		EffectiveFrom: ov.Effective.Start.String(),
		Reason:        ov.Reason,
	}
	if ov.Effective.End != nil {
		s := ov.Effective.End.String()
		dto.EffectiveTo = &s
	}
	return dto
}

func toPeriodDTO(p payroll.Period) PeriodDTO {
	return PeriodDTO{
		ID:                  string(p.ID),
		Year:                p.Year,
		Month:               int(p.Month),
		PeriodNumber:        p.PeriodNumber,
		StartDate:           p.StartDate.String(),
		EndDate:             p.EndDate.String(),
		StandardWorkingDays: p.StandardWorkingDays,
		Status:              string(p.Status),
	}
}

func toPayrollItemDTO(item payroll.Item, lines []payroll.ItemLine) PayrollItemDTO {
	dto := PayrollItemDTO{
		ID:              string(item.ID),
		PeriodID:        string(item.PeriodID),
		EmployeeID:      string(item.EmployeeID),
		WorkingDays:     item.WorkingDays,
		DailyRate:       item.DailyRate.String(),
		BasicPay:        item.BasicPay.String(),
		TotalAllowances: item.TotalAllowances.String(),
		TotalDeductions: item.TotalDeductions.String(),
		GrossPay:        item.GrossPay.String(),
		NetPay:          item.NetPay.String(),
		Status:          string(item.Status),
		PaymentRef:      item.PaymentRef,
	}
	for _, line := range lines {
		lineDTO := ItemLineDTO{
			ID:          string(line.ID),
			Kind:        string(line.Kind),
			Description: line.Description,
			Basis:       line.Basis,
			Amount:      line.Amount.String(),
		}
		if line.RateType != nil {
			lineDTO.RateTypeID = string(*line.RateType)
		}
		dto.Lines = append(dto.Lines, lineDTO)
	}
	return dto
}

func toCycleDTO(c benefit.Cycle) CycleDTO {
	return CycleDTO{
		ID:             string(c.ID),
		BenefitTypeID:  string(c.BenefitTypeID),
		Year:           c.Year,
		Name:           c.Name,
		ApplicableDate: c.ApplicableDate.String(),
		Status:         string(c.Status),
		TotalAmount:    c.TotalAmount.String(),
		EmployeeCount:  c.EmployeeCount,
		CancelReason:   c.CancelReason,
	}
}

func toBenefitItemDTO(item benefit.Item, adjustments []benefit.Adjustment) BenefitItemDTO {
	dto := BenefitItemDTO{
		ID:               string(item.ID),
		CycleID:          string(item.CycleID),
		EmployeeID:       string(item.EmployeeID),
		BaseSalary:       item.BaseSalary.String(),
		ServiceMonths:    item.ServiceMonths,
		IsEligible:       item.IsEligible,
		EligibilityNotes: item.EligibilityNotes,
		CalculatedAmount: item.CalculatedAmount.String(),
		AdjustmentAmount: item.AdjustmentAmount.String(),
		FinalAmount:      item.FinalAmount.String(),
		TaxAmount:        item.TaxAmount.String(),
		NetAmount:        item.NetAmount.String(),
		Status:           string(item.Status),
		PaymentRef:       item.PaymentRef,
	}
	for _, adj := range adjustments {
		dto.Adjustments = append(dto.Adjustments, AdjustmentDTO{
			ID:         string(adj.ID),
			Type:       string(adj.Type),
			Amount:     adj.Amount.String(),
			Reason:     adj.Reason,
			ApprovedBy: adj.ApprovedBy,
			CreatedAt:  adj.CreatedAt.Format(time.RFC3339),
		})
	}
	return dto
}

func toBatchResultDTO(r *payroll.BatchResult) BatchResultDTO {
	dto := BatchResultDTO{Succeeded: []string{}, Failed: []FailureDTO{}}
	for _, id := range r.Succeeded {
		dto.Succeeded = append(dto.Succeeded, string(id))
	}
	for _, f := range r.Failed {
		dto.Failed = append(dto.Failed, FailureDTO{ID: string(f.ID), Error: f.Err.Error()})
	}
	return dto
}

func toBenefitBatchResultDTO(r *benefit.BatchResult) BatchResultDTO {
	dto := BatchResultDTO{Succeeded: []string{}, Failed: []FailureDTO{}}
	for _, id := range r.Succeeded {
		dto.Succeeded = append(dto.Succeeded, string(id))
	}
	for _, f := range r.Failed {
		dto.Failed = append(dto.Failed, FailureDTO{ID: string(f.ID), Error: f.Err.Error()})
	}
	return dto
}

func toCycleSummaryDTO(s *benefit.CycleSummary) CycleSummaryDTO {
	dto := CycleSummaryDTO{
		TotalEmployees:      s.TotalEmployees,
		EligibleEmployees:   s.EligibleEmployees,
		IneligibleEmployees: s.IneligibleEmployees,
		TotalAmount:         s.TotalAmount.String(),
		AverageBenefit:      s.AverageBenefit.String(),
	}
	for _, f := range s.Failed {
		dto.Failed = append(dto.Failed, FailureDTO{ID: string(f.ID), Error: f.Err.Error()})
	}
	return dto
}
