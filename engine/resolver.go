/*
resolver.go - Effective amount resolution for a rate type

PURPOSE:
  Resolve() answers "how much is this allowance/deduction/benefit worth for
  this employee on this date". Individual overrides win over type defaults;
  otherwise the type's calculation strategy is dispatched on its tag.

RESOLUTION ORDER:
  1. Active RateOverride covering asOf    -> override amount, basis "override"
  2. Fixed                                -> default_amount
  3. Percentage                           -> rate% of the named base
  4. Formula                              -> sandboxed evaluation
  5. Manual                               -> nil (caller supplies the amount;
                                             absence means the line is
                                             OMITTED, not zero)

BASIS STRING:
  Every resolution returns a human-readable basis ("override", "fixed",
  "5% of monthly_salary (30000.00)", ...) stored on the item line for
  audit/explainability.
*/
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE RESOLVER
// =============================================================================

type RateResolver struct {
	Overrides RateOverrideRepository
}

func NewRateResolver(overrides RateOverrideRepository) *RateResolver {
	return &RateResolver{Overrides: overrides}
}

// Resolve returns the effective amount for rateType applied to employee as
// of asOf, plus the calculation basis used. A nil amount with no error
// means the type is Manual and the caller must supply the amount (or omit
// the line).
func (r *RateResolver) Resolve(
	ctx context.Context,
	employee Employee,
	rateType RateType,
	asOf Date,
	vars FormulaVariables,
) (*Money, string, error) {
	if r.Overrides != nil {
		ov, err := r.Overrides.ActiveOverride(ctx, employee.ID, rateType.ID, asOf)
		switch {
		case err == nil:
			amount := ov.Amount
			return &amount, "override", nil
		case errors.Is(err, ErrNotFound):
			// fall through to the type's own strategy
		default:
			return nil, "", fmt.Errorf("failed to look up override: %w", err)
		}
	}

	switch rateType.Calculation {
	case CalcFixed:
		amount := rateType.DefaultAmount
		return &amount, "fixed", nil

	case CalcPercentage:
		return r.resolvePercentage(employee, rateType)

	case CalcFormula:
		amount, err := EvaluateFormula(rateType.ID, rateType.Formula, r.formulaVars(employee, asOf, vars))
		if err != nil {
			return nil, "", err
		}
		return &amount, "formula: " + rateType.Formula, nil

	case CalcManual:
		return nil, "manual", nil

	default:
		return nil, "", &RateResolutionError{
			RateType: rateType.ID,
			Code:     "unknown_calculation_type",
			Detail:   string(rateType.Calculation),
		}
	}
}

func (r *RateResolver) resolvePercentage(employee Employee, rateType RateType) (*Money, string, error) {
	var base Money
	switch rateType.PercentageBase {
	case BaseBasicSalary, BaseMonthlySalary:
		base = employee.MonthlySalary
	case BaseDailyRate:
		base = employee.DailyRate
	case "":
		return nil, "", &RateResolutionError{
			RateType: rateType.ID,
			Code:     "missing_percentage_base",
			Detail:   "percentage type has no percentage_base",
		}
	default:
		return nil, "", &RateResolutionError{
			RateType: rateType.ID,
			Code:     "missing_percentage_base",
			Detail:   "unknown percentage_base " + string(rateType.PercentageBase),
		}
	}

	amount := base.Mul(rateType.PercentageRate.Value).Div(decimal.NewFromInt(100))
	basis := fmt.Sprintf("%s%% of %s (%s)",
		rateType.PercentageRate.Value.String(), rateType.PercentageBase, base)
	return &amount, basis, nil
}

// formulaVars fills the employee-derived variables, keeping any
// caller-supplied context values (working days, leave days).
func (r *RateResolver) formulaVars(employee Employee, asOf Date, vars FormulaVariables) FormulaVariables {
	vars.BasicSalary = employee.MonthlySalary
	vars.MonthlySalary = employee.MonthlySalary
	vars.DailyRate = employee.DailyRate
	if vars.ServiceMonths == 0 {
		vars.ServiceMonths = employee.ServiceMonthsAsOf(asOf)
	}
	return vars
}
