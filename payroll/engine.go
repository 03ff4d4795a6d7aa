/*
engine.go - Per-employee payroll item computation

PURPOSE:
  ItemEngine computes one employee's payroll item for one period: basic
  pay from daily rate and working days, one line per selected allowance/
  deduction type (resolved via the rate resolver as of the period end),
  manual lines supplied by the caller, and the derived totals.

CONTRACT:
  - Re-invoking Compute for the same (period, employee) while the item is
    Draft/Processed replaces all lines and totals atomically.
  - Identical inputs produce byte-identical lines and totals.
  - A Finalized/Paid item rejects recomputation with ErrItemLocked.
  - Allowances flagged is_prorated are scaled by workingDays/standard.
  - A Manual type with no supplied manual line is omitted, not zero.

SEE ALSO:
  - engine/resolver.go: rate resolution
  - lifecycle.go: state machine wrapping this computation
*/
package payroll

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// COMPUTE INPUT
// =============================================================================

// ComputeInput selects what goes into one employee's item.
type ComputeInput struct {
	EmployeeID       engine.EmployeeID
	WorkingDays      int
	AllowanceTypeIDs []engine.RateTypeID
	DeductionTypeIDs []engine.RateTypeID
	ManualLines      []ManualLine
}

// =============================================================================
// ITEM ENGINE
// =============================================================================

type ItemEngine struct {
	Employees engine.EmployeeRepository
	RateTypes engine.RateTypeRepository
	Resolver  *engine.RateResolver
	Items     ItemStore
}

// Compute calculates and persists the item for (period, input.EmployeeID).
// It returns the stored item with its lines.
func (e *ItemEngine) Compute(ctx context.Context, period Period, input ComputeInput) (*Item, []ItemLine, error) {
	if input.WorkingDays < 0 {
		return nil, nil, &engine.ValidationError{
			Field:  "working_days",
			Detail: fmt.Sprintf("must not be negative, got %d", input.WorkingDays),
		}
	}

	employee, err := e.Employees.Get(ctx, input.EmployeeID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load employee %s: %w", input.EmployeeID, err)
	}

	// Recomputation keeps the existing item's identity and status.
	item := Item{
		ID:         engine.ItemID(uuid.NewString()),
		PeriodID:   period.ID,
		EmployeeID: input.EmployeeID,
		Status:     ItemDraft,
	}
	existing, err := e.Items.Find(ctx, period.ID, input.EmployeeID)
	switch {
	case err == nil:
		if existing.Status.Locked() {
			return nil, nil, fmt.Errorf("item %s is %s: %w", existing.ID, existing.Status, engine.ErrItemLocked)
		}
		item.ID = existing.ID
		item.Status = existing.Status
	case engine.IsNotFound(err):
		// new item
	default:
		return nil, nil, fmt.Errorf("failed to look up existing item: %w", err)
	}

	item.WorkingDays = input.WorkingDays
	item.DailyRate = employee.DailyRate
	item.BasicPay = engine.BasicPay(employee.DailyRate, input.WorkingDays)

	vars := engine.FormulaVariables{WorkingDays: input.WorkingDays}

	var lines []ItemLine
	appendLine := func(kind LineKind, rt *engine.RateTypeID, desc, basis string, amount engine.Money) {
		lines = append(lines, ItemLine{
			// Deterministic line IDs keep recomputation byte-identical.
			ID:          engine.LineID(fmt.Sprintf("%s-line-%d", item.ID, len(lines))),
			ItemID:      item.ID,
			Kind:        kind,
			RateType:    rt,
			Description: desc,
			Basis:       basis,
			Amount:      amount,
		})
	}

	for _, id := range input.AllowanceTypeIDs {
		rt, basis, amount, err := e.resolveType(ctx, employee, id, period.EndDate, vars)
		if err != nil {
			return nil, nil, err
		}
		if amount == nil {
			continue // Manual type without caller input: line omitted
		}
		resolved := *amount
		if rt.IsProrated && input.WorkingDays < period.StandardWorkingDays {
			resolved = engine.ProrateByWorkedFraction(resolved, input.WorkingDays, period.StandardWorkingDays)
			basis = fmt.Sprintf("%s, prorated %d/%d days", basis, input.WorkingDays, period.StandardWorkingDays)
		}
		rtID := rt.ID
		appendLine(LineAllowance, &rtID, rt.Name, basis, resolved.Round2())
	}

	for _, id := range input.DeductionTypeIDs {
		rt, basis, amount, err := e.resolveType(ctx, employee, id, period.EndDate, vars)
		if err != nil {
			return nil, nil, err
		}
		if amount == nil {
			continue
		}
		rtID := rt.ID
		appendLine(LineDeduction, &rtID, rt.Name, basis, amount.Round2())
	}

	for _, ml := range input.ManualLines {
		appendLine(ml.Kind, ml.RateType, ml.Description, "manual", ml.Amount.Round2())
	}

	// Aggregates are exact sums of already-rounded lines. Adjustment lines
	// count toward allowances when positive and deductions when negative.
	totalAllowances := engine.ZeroMoney()
	totalDeductions := engine.ZeroMoney()
	for _, line := range lines {
		switch line.Kind {
		case LineAllowance:
			totalAllowances = totalAllowances.Add(line.Amount)
		case LineDeduction:
			totalDeductions = totalDeductions.Add(line.Amount)
		case LineAdjustment:
			if line.Amount.IsNegative() {
				totalDeductions = totalDeductions.Add(line.Amount.Neg())
			} else {
				totalAllowances = totalAllowances.Add(line.Amount)
			}
		}
	}

	item.TotalAllowances = totalAllowances
	item.TotalDeductions = totalDeductions
	item.GrossPay = item.BasicPay.Add(totalAllowances)
	item.NetPay = item.GrossPay.Sub(totalDeductions)

	if err := e.Items.Replace(ctx, item, lines); err != nil {
		return nil, nil, fmt.Errorf("failed to store item: %w", err)
	}
	return &item, lines, nil
}

// Recompute re-runs the calculation for an existing item, deriving the
// selections from its stored lines. This is the idempotent-recalculation
// path: same rates and employee data yield an identical result.
func (e *ItemEngine) Recompute(ctx context.Context, item Item, period Period) (*Item, []ItemLine, error) {
	if item.Status.Locked() {
		return nil, nil, fmt.Errorf("item %s is %s: %w", item.ID, item.Status, engine.ErrItemLocked)
	}

	lines, err := e.Items.Lines(ctx, item.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load lines: %w", err)
	}

	input := ComputeInput{
		EmployeeID:  item.EmployeeID,
		WorkingDays: item.WorkingDays,
	}
	for _, line := range lines {
		if line.RateType == nil || line.Basis == "manual" {
			input.ManualLines = append(input.ManualLines, ManualLine{
				Kind:        line.Kind,
				RateType:    line.RateType,
				Description: line.Description,
				Amount:      line.Amount,
			})
			continue
		}
		switch line.Kind {
		case LineAllowance:
			input.AllowanceTypeIDs = append(input.AllowanceTypeIDs, *line.RateType)
		case LineDeduction:
			input.DeductionTypeIDs = append(input.DeductionTypeIDs, *line.RateType)
		}
	}

	return e.Compute(ctx, period, input)
}

func (e *ItemEngine) resolveType(
	ctx context.Context,
	employee engine.Employee,
	id engine.RateTypeID,
	asOf engine.Date,
	vars engine.FormulaVariables,
) (engine.RateType, string, *engine.Money, error) {
	rt, err := e.RateTypes.Get(ctx, id)
	if err != nil {
		return engine.RateType{}, "", nil, fmt.Errorf("failed to load rate type %s: %w", id, err)
	}
	if !rt.IsActive {
		// Inactive types are excluded from new computations; historical
		// items keep the lines they were finalized with.
		return rt, "", nil, nil
	}
	amount, basis, err := e.Resolver.Resolve(ctx, employee, rt, asOf, vars)
	if err != nil {
		return rt, "", nil, err
	}
	return rt, basis, amount, nil
}
