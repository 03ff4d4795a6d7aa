/*
Package engine provides the core payroll/benefit calculation engine.

PURPOSE:
  This package contains the domain-agnostic building blocks shared by the
  payroll and benefit packages: monetary amounts, calculation rules, rate
  configuration (allowance/deduction/benefit types), and the resolver that
  turns a rate type plus an employee into a concrete amount.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A monetary amount backed by decimal.Decimal (never float64)
  - Round2: Banker's rounding to 2 decimal places, applied per line item
  - Typed IDs: EmployeeID, RateTypeID, etc. prevent mixing identifiers

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere; amounts serialize as fixed-point
     strings, never binary floating point
  2. Deterministic totals: rounding happens at the line item, aggregates are
     exact sums of already-rounded lines
  3. Type Safety: strong typing for IDs

USAGE:
  basic := engine.BasicPay(engine.NewMoney(1500), 15) // 22500.00
  gross := basic.Add(totalAllowances)

SEE ALSO:
  - rules.go: Pure calculation functions (proration, eligibility)
  - resolver.go: Rate resolution (override > type default)
  - formula.go: Sandboxed formula evaluation
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Monetary amount with 2-digit fractional precision
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

// MoneyFromString parses a fixed-point string ("1234.50").
// Returns zero on malformed input.
func MoneyFromString(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money              { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money              { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money    { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money    { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                     { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) IsPositive() bool               { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool             { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool       { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool          { return m.Value.LessThan(o.Value) }

// Round2 rounds to 2 decimal places using banker's (unbiased) rounding.
// This is the ONLY rounding point in the engine: line items are rounded
// here, aggregates are exact sums of rounded lines, so totals reproduce
// deterministically regardless of summation order.
func (m Money) Round2() Money { return Money{Value: m.Value.RoundBank(2)} }

// String renders the amount as a fixed-point string with 2 decimals.
func (m Money) String() string { return m.Value.StringFixed(2) }

// Float64 is for formula variable binding only. Calculations stay decimal.
func (m Money) Float64() float64 {
	f, _ := m.Value.Float64()
	return f
}

// WithinTolerance reports whether two amounts differ by at most 0.01.
func (m Money) WithinTolerance(o Money) bool {
	diff := m.Value.Sub(o.Value).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(0.01))
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RateTypeID string
type OverrideID string
type PeriodID string
type CycleID string
type ItemID string
type LineID string
type AdjustmentID string
