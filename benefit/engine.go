/*
engine.go - Per-employee benefit item computation

PURPOSE:
  ItemEngine computes one employee's benefit item for one cycle:
  eligibility first, then the calculated amount via the rate resolver and
  the proration rule, then tax and net. Ineligible employees still get an
  item (is_eligible=false, zero amount, populated notes) so a cycle always
  accounts for every employee it covered.

ADJUSTMENTS:
  AddAdjustment appends to the adjustment ledger and recomputes the
  adjustment-derived fields (final, tax, net). It is permitted while the
  item is Draft/Calculated/Approved - an Approved item still accepts
  corrective adjustments before payment - and rejected with ErrAlreadyPaid
  once the item is Paid or Cancelled. Frozen calculated fields are never
  rewritten.
*/
package benefit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// ITEM ENGINE
// =============================================================================

type ItemEngine struct {
	Employees engine.EmployeeRepository
	RateTypes engine.RateTypeRepository
	Resolver  *engine.RateResolver
	Items     ItemStore
	Ledger    *AdjustmentLedger
}

// ComputeOptions carries caller-supplied context for one computation.
type ComputeOptions struct {
	// ServiceMonthsCap caps computed service months (re-hire adjustment
	// supplied by the caller). Zero means no cap.
	ServiceMonthsCap int
}

// Compute calculates and persists the item for (cycle, employeeID).
func (e *ItemEngine) Compute(ctx context.Context, cycle Cycle, employeeID engine.EmployeeID, opts ComputeOptions) (*Item, error) {
	employee, err := e.Employees.Get(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee %s: %w", employeeID, err)
	}
	benefitType, err := e.RateTypes.Get(ctx, cycle.BenefitTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load benefit type %s: %w", cycle.BenefitTypeID, err)
	}

	item := Item{
		ID:         engine.ItemID(uuid.NewString()),
		CycleID:    cycle.ID,
		EmployeeID: employeeID,
		Status:     ItemDraft,
	}
	existing, err := e.Items.Find(ctx, cycle.ID, employeeID)
	switch {
	case err == nil:
		if existing.Status.Terminal() {
			return nil, fmt.Errorf("item %s is %s: %w", existing.ID, existing.Status, engine.ErrAlreadyPaid)
		}
		item.ID = existing.ID
		item.Status = existing.Status
	case engine.IsNotFound(err):
		// new item
	default:
		return nil, fmt.Errorf("failed to look up existing item: %w", err)
	}

	serviceMonths := employee.ServiceMonthsAsOf(cycle.ApplicableDate)
	if opts.ServiceMonthsCap > 0 && serviceMonths > opts.ServiceMonthsCap {
		serviceMonths = opts.ServiceMonthsCap
	}

	item.BaseSalary = employee.MonthlySalary
	item.ServiceMonths = serviceMonths
	if benefitType.IsTaxable {
		item.TaxRate = benefitType.TaxRate
	} else {
		item.TaxRate = engine.ZeroMoney()
	}

	eligibility := engine.CheckEligibility(employee, benefitType, serviceMonths)
	item.IsEligible = eligibility.Eligible
	item.EligibilityNotes = eligibility.Notes

	calculated := engine.ZeroMoney()
	if eligibility.Eligible {
		vars := engine.FormulaVariables{ServiceMonths: serviceMonths}
		amount, _, err := e.Resolver.Resolve(ctx, employee, benefitType, cycle.ApplicableDate, vars)
		if err != nil {
			return nil, err
		}
		if amount != nil {
			// Manual types stay at zero pending a human-entered adjustment.
			calculated = engine.Prorate(*amount, serviceMonths, benefitType.IsProrated).Round2()
		}
	}
	item.CalculatedAmount = calculated

	// Replay any adjustments surviving from a previous computation of the
	// same item so final/tax/net stay consistent with the ledger.
	adjustment, final := engine.ZeroMoney(), calculated
	if e.Ledger != nil {
		adjustment, final, err = e.Ledger.Replay(ctx, item.ID, calculated)
		if err != nil {
			return nil, err
		}
	}
	item.AdjustmentAmount = adjustment
	item.FinalAmount = final
	item.TaxAmount = taxOn(final, benefitType)
	item.NetAmount = final.Sub(item.TaxAmount)

	if err := e.Items.Replace(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to store item: %w", err)
	}
	return &item, nil
}

// AddAdjustment appends a manual adjustment and recomputes the item's
// final, tax, and net amounts. Permitted while Draft/Calculated/Approved;
// fails with ErrAlreadyPaid on Paid/Cancelled items.
func (e *ItemEngine) AddAdjustment(ctx context.Context, itemID engine.ItemID, adjType AdjustmentType, amount engine.Money, reason, approvedBy string) (*Item, error) {
	item, err := e.Items.Get(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	if !item.Status.AcceptsAdjustments() {
		return nil, fmt.Errorf("item %s is %s: %w", itemID, item.Status, engine.ErrAlreadyPaid)
	}

	if _, err := e.Ledger.Append(ctx, itemID, adjType, amount, reason, approvedBy); err != nil {
		return nil, err
	}

	adjustment, final, err := e.Ledger.Replay(ctx, itemID, item.CalculatedAmount)
	if err != nil {
		return nil, err
	}
	tax := taxRateOn(final, item.TaxRate)
	net := final.Sub(tax)
	if err := e.Items.UpdateAmounts(ctx, itemID, adjustment, final, tax, net); err != nil {
		return nil, fmt.Errorf("failed to update amounts: %w", err)
	}

	item.AdjustmentAmount = adjustment
	item.FinalAmount = final
	item.TaxAmount = tax
	item.NetAmount = net
	return &item, nil
}

func taxOn(final engine.Money, benefitType engine.RateType) engine.Money {
	if !benefitType.IsTaxable {
		return engine.ZeroMoney()
	}
	return taxRateOn(final, benefitType.TaxRate)
}

func taxRateOn(final, ratePercent engine.Money) engine.Money {
	if ratePercent.IsZero() || final.IsNegative() {
		return engine.ZeroMoney()
	}
	return final.Mul(ratePercent.Value).Div(decimal.NewFromInt(100)).Round2()
}
