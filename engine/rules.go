/*
rules.go - Pure calculation rules

PURPOSE:
  Side-effect-free functions implementing the monetary calculation rules
  shared by the payroll and benefit engines: basic pay, service-time and
  worked-fraction proration, and the benefit eligibility predicate.

ROUNDING:
  Every function that produces a line-item amount applies Round2 (banker's)
  at the point of computation. Aggregates are exact sums of already-rounded
  lines - see Money.Round2.

SEE ALSO:
  - types.go: Money and Round2
  - resolver.go: Turns rate configuration into raw amounts
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAY CALCULATION
// =============================================================================

// BasicPay is dailyRate x workingDays, rounded at computation.
func BasicPay(dailyRate Money, workingDays int) Money {
	return dailyRate.Mul(decimal.NewFromInt(int64(workingDays))).Round2()
}

// Prorate scales amount by min(serviceMonths, 12)/12 when isProrated,
// otherwise returns amount unchanged. Used for service-time proration of
// annual benefits.
func Prorate(amount Money, serviceMonths int, isProrated bool) Money {
	if !isProrated {
		return amount
	}
	months := serviceMonths
	if months > 12 {
		months = 12
	}
	if months < 0 {
		months = 0
	}
	return amount.
		Mul(decimal.NewFromInt(int64(months))).
		Div(decimal.NewFromInt(12))
}

// ProrateByWorkedFraction scales amount by workingDays/standardDays.
// Used for payroll allowances flagged is_prorated. A zero or negative
// standard is treated as no proration.
func ProrateByWorkedFraction(amount Money, workingDays, standardDays int) Money {
	if standardDays <= 0 || workingDays >= standardDays {
		return amount
	}
	return amount.
		Mul(decimal.NewFromInt(int64(workingDays))).
		Div(decimal.NewFromInt(int64(standardDays)))
}

// =============================================================================
// BENEFIT ELIGIBILITY
// =============================================================================

// Eligibility is the outcome of the benefit eligibility predicate.
// Ineligible employees still produce an item (is_eligible=false, zero
// amount, populated notes) - items are never silently omitted.
type Eligibility struct {
	Eligible bool
	Notes    string
}

// CheckEligibility applies the benefit eligibility predicate:
// serviceMonths >= the type's minimum AND the employee's status is one the
// type's category allows.
func CheckEligibility(employee Employee, benefitType RateType, serviceMonths int) Eligibility {
	if serviceMonths < benefitType.MinimumServiceMonths {
		return Eligibility{
			Eligible: false,
			Notes: fmt.Sprintf("service of %d month(s) below minimum %d",
				serviceMonths, benefitType.MinimumServiceMonths),
		}
	}

	switch benefitType.Category {
	case CategoryTerminal:
		if !employee.Status.IsSeparating() {
			return Eligibility{
				Eligible: false,
				Notes: fmt.Sprintf("terminal benefit requires a separating status, employee is %s",
					employee.Status),
			}
		}
	default:
		if employee.Status.IsSeparating() {
			return Eligibility{
				Eligible: false,
				Notes:    fmt.Sprintf("employee status %s is no longer on the payroll", employee.Status),
			}
		}
	}

	return Eligibility{Eligible: true}
}
