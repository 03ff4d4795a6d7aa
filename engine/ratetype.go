/*
ratetype.go - Rate configuration: allowance/deduction/benefit definitions

PURPOSE:
  A RateType is the configured definition of one allowance, deduction, or
  benefit: its calculation strategy, defaults, and flags. A RateOverride is
  an employee-specific amount superseding the type's default for a date
  range. Both are read-only configuration from the engine's perspective,
  snapshot-consistent as of the calculation's reference date.

CALCULATION TYPES (closed set, one handler per tag in resolver.go):
  Fixed:      default_amount as-is
  Percentage: percentage_rate % of a named base (monthly salary, etc.)
  Formula:    expression over the documented variable set (formula.go)
  Manual:     no auto-calculation; caller supplies the amount or the
              line is omitted entirely

IMMUTABILITY:
  A rate type referenced by a finalized item is immutable; edits apply only
  to future computations. Finalized items carry the resolved amount and the
  calculation basis string, so historical results never depend on current
  configuration.

SEE ALSO:
  - resolver.go: Resolve() dispatching on CalculationType
  - factory/: JSON rate-type definitions
*/
package engine

import "context"

// =============================================================================
// RATE TYPE
// =============================================================================

// RateKind says which side of the ledger a rate type lands on.
type RateKind string

const (
	KindAllowance RateKind = "allowance"
	KindDeduction RateKind = "deduction"
	KindBenefit   RateKind = "benefit"
)

// CalculationType is the closed set of calculation strategies.
type CalculationType string

const (
	CalcFixed      CalculationType = "fixed"
	CalcPercentage CalculationType = "percentage"
	CalcFormula    CalculationType = "formula"
	CalcManual     CalculationType = "manual"
)

// PercentageBase names the employee figure a Percentage type is applied to.
type PercentageBase string

const (
	BaseBasicSalary   PercentageBase = "basic_salary"
	BaseMonthlySalary PercentageBase = "monthly_salary"
	BaseDailyRate     PercentageBase = "daily_rate"
)

// BenefitCategory gates eligibility by employment status.
type BenefitCategory string

const (
	// CategoryRegular benefits go to employees still on the payroll.
	CategoryRegular BenefitCategory = "regular"
	// CategoryTerminal benefits require a separating/retiring status
	// (terminal leave pay, retirement gratuity).
	CategoryTerminal BenefitCategory = "terminal"
)

// Frequency describes how often a rate type normally applies.
type Frequency string

const (
	FreqPerPeriod Frequency = "per_period"
	FreqMonthly   Frequency = "monthly"
	FreqAnnual    Frequency = "annual"
	FreqOneTime   Frequency = "one_time"
)

// RateType is one configured allowance/deduction/benefit definition.
type RateType struct {
	ID   RateTypeID
	Code string // unique
	Name string
	Kind RateKind

	Calculation    CalculationType
	DefaultAmount  Money          // Fixed
	PercentageRate Money          // Percentage: percent value, e.g. 5 means 5%
	PercentageBase PercentageBase // Percentage: required
	Formula        string         // Formula: expression over FormulaVariables

	IsTaxable  bool
	IsProrated bool
	Frequency  Frequency
	IsActive   bool

	// Benefit-only configuration
	Category             BenefitCategory
	MinimumServiceMonths int
	TaxRate              Money // percent applied to final_amount when IsTaxable
}

// =============================================================================
// RATE OVERRIDE
// =============================================================================

// RateOverride is an employee-specific amount superseding the type default
// for a date range. At most one active override may cover any given date
// for the same (employee, rate type) pair.
type RateOverride struct {
	ID        OverrideID
	Employee  EmployeeID
	RateType  RateTypeID
	Amount    Money
	Effective DateRange
	Reason    string
}

// ValidateOverrides rejects overlapping active ranges for the same
// (employee, rate type) pair. Called when an override is registered.
func ValidateOverrides(existing []RateOverride, candidate RateOverride) error {
	for _, ov := range existing {
		if ov.ID == candidate.ID {
			continue
		}
		if ov.Employee != candidate.Employee || ov.RateType != candidate.RateType {
			continue
		}
		if ov.Effective.Overlaps(candidate.Effective) {
			return ErrOverlappingOverride
		}
	}
	return nil
}

// =============================================================================
// REPOSITORY PORTS
// =============================================================================

type RateTypeRepository interface {
	Get(ctx context.Context, id RateTypeID) (RateType, error)
	GetByCode(ctx context.Context, code string) (RateType, error)
	List(ctx context.Context, kind RateKind) ([]RateType, error)
	Put(ctx context.Context, rt RateType) error
}

type RateOverrideRepository interface {
	// ActiveOverride returns the override covering asOf for the pair,
	// or ErrNotFound when none applies.
	ActiveOverride(ctx context.Context, employee EmployeeID, rateType RateTypeID, asOf Date) (RateOverride, error)
	Put(ctx context.Context, ov RateOverride) error
	ListByEmployee(ctx context.Context, employee EmployeeID) ([]RateOverride, error)
}
