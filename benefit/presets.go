/*
presets.go - Pre-built benefit types

PURPOSE:
  Ready-to-use benefit definitions for common cycle patterns: mid-year and
  year-end bonuses, formula-based gratuities, and manual discretionary
  awards. Starting points only; see factory/ for JSON-based definitions.
*/
package benefit

import "github.com/warp/payroll-engine/engine"

// =============================================================================
// COMMON BENEFIT TYPES
// =============================================================================

// FixedBonus returns a flat bonus, prorated by service time for employees
// with under a year of service.
func FixedBonus(id engine.RateTypeID, code, name string, amount float64, minServiceMonths int) engine.RateType {
	return engine.RateType{
		ID:                   id,
		Code:                 code,
		Name:                 name,
		Kind:                 engine.KindBenefit,
		Calculation:          engine.CalcFixed,
		DefaultAmount:        engine.NewMoney(amount),
		IsProrated:           true,
		Frequency:            engine.FreqAnnual,
		IsActive:             true,
		Category:             engine.CategoryRegular,
		MinimumServiceMonths: minServiceMonths,
	}
}

// ThirteenthMonthPay returns the classic one-month-salary annual benefit,
// prorated by months of service within the year.
func ThirteenthMonthPay(id engine.RateTypeID) engine.RateType {
	return engine.RateType{
		ID:                   id,
		Code:                 "13th_month",
		Name:                 "13th Month Pay",
		Kind:                 engine.KindBenefit,
		Calculation:          engine.CalcFormula,
		Formula:              "monthly_salary",
		IsProrated:           true,
		Frequency:            engine.FreqAnnual,
		IsActive:             true,
		Category:             engine.CategoryRegular,
		MinimumServiceMonths: 1,
	}
}

// RetirementGratuity returns a Terminal-category benefit payable only to
// separating/retiring employees, taxed at the given flat rate.
func RetirementGratuity(id engine.RateTypeID, taxPercent float64) engine.RateType {
	return engine.RateType{
		ID:                   id,
		Code:                 "retirement_gratuity",
		Name:                 "Retirement Gratuity",
		Kind:                 engine.KindBenefit,
		Calculation:          engine.CalcFormula,
		Formula:              "monthly_salary * (service_months / 12)",
		Frequency:            engine.FreqOneTime,
		IsActive:             true,
		IsTaxable:            true,
		TaxRate:              engine.NewMoney(taxPercent),
		Category:             engine.CategoryTerminal,
		MinimumServiceMonths: 60,
	}
}

// DiscretionaryAward returns a Manual benefit: calculated amount stays
// zero until a human enters an Override adjustment.
func DiscretionaryAward(id engine.RateTypeID, code, name string) engine.RateType {
	return engine.RateType{
		ID:          id,
		Code:        code,
		Name:        name,
		Kind:        engine.KindBenefit,
		Calculation: engine.CalcManual,
		Frequency:   engine.FreqOneTime,
		IsActive:    true,
		Category:    engine.CategoryRegular,
	}
}
