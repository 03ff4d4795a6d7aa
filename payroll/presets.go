/*
presets.go - Pre-built payroll rate types

PURPOSE:
  Ready-to-use allowance/deduction definitions following common HR
  patterns. These are starting points; real deployments configure their
  own codes and amounts (see factory/ for JSON-based definitions).
*/
package payroll

import "github.com/warp/payroll-engine/engine"

// =============================================================================
// COMMON ALLOWANCES
// =============================================================================

// FixedAllowance returns a flat-amount allowance, optionally prorated by
// the worked fraction of the period.
func FixedAllowance(id engine.RateTypeID, code, name string, amount float64, prorated bool) engine.RateType {
	return engine.RateType{
		ID:            id,
		Code:          code,
		Name:          name,
		Kind:          engine.KindAllowance,
		Calculation:   engine.CalcFixed,
		DefaultAmount: engine.NewMoney(amount),
		IsProrated:    prorated,
		Frequency:     engine.FreqPerPeriod,
		IsActive:      true,
	}
}

// PercentageAllowance returns an allowance computed as a percentage of the
// employee's monthly salary.
func PercentageAllowance(id engine.RateTypeID, code, name string, percent float64) engine.RateType {
	return engine.RateType{
		ID:             id,
		Code:           code,
		Name:           name,
		Kind:           engine.KindAllowance,
		Calculation:    engine.CalcPercentage,
		PercentageRate: engine.NewMoney(percent),
		PercentageBase: engine.BaseMonthlySalary,
		Frequency:      engine.FreqPerPeriod,
		IsActive:       true,
	}
}

// =============================================================================
// COMMON DEDUCTIONS
// =============================================================================

// FixedDeduction returns a flat-amount deduction.
func FixedDeduction(id engine.RateTypeID, code, name string, amount float64) engine.RateType {
	return engine.RateType{
		ID:            id,
		Code:          code,
		Name:          name,
		Kind:          engine.KindDeduction,
		Calculation:   engine.CalcFixed,
		DefaultAmount: engine.NewMoney(amount),
		Frequency:     engine.FreqPerPeriod,
		IsActive:      true,
	}
}

// PercentageDeduction returns a deduction computed as a percentage of the
// employee's monthly salary (social contributions, withholding).
func PercentageDeduction(id engine.RateTypeID, code, name string, percent float64) engine.RateType {
	return engine.RateType{
		ID:             id,
		Code:           code,
		Name:           name,
		Kind:           engine.KindDeduction,
		Calculation:    engine.CalcPercentage,
		PercentageRate: engine.NewMoney(percent),
		PercentageBase: engine.BaseMonthlySalary,
		Frequency:      engine.FreqPerPeriod,
		IsActive:       true,
	}
}

// ManualDeduction returns a deduction with no auto-calculation: the caller
// supplies the amount per item, or the line is omitted entirely.
func ManualDeduction(id engine.RateTypeID, code, name string) engine.RateType {
	return engine.RateType{
		ID:          id,
		Code:        code,
		Name:        name,
		Kind:        engine.KindDeduction,
		Calculation: engine.CalcManual,
		Frequency:   engine.FreqPerPeriod,
		IsActive:    true,
	}
}
