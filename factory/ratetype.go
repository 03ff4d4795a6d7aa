/*
Package factory provides JSON to Go rate-type conversion.

PURPOSE:
  Converts JSON rate-type definitions into engine.RateType objects. This
  enables compensation configuration without code changes - HR can define
  allowances, deductions, and benefit types in JSON, and the factory
  creates the proper Go structs.

WHY JSON?
  - Non-developers can modify rate types
  - Easy integration with admin UI
  - Version control for compensation configs
  - Database storage of rate-type definitions

JSON SCHEMA:
  {
    "id": "transport-allowance",
    "code": "TRANSPORT",
    "name": "Transportation Allowance",
    "kind": "allowance",
    "calculation": "fixed",
    "default_amount": "2000",
    "is_prorated": true,
    "frequency": "monthly"
  }

  Percentage types add "percentage_rate" and "percentage_base"; formula
  types add "formula"; benefit types add "category",
  "minimum_service_months", "is_taxable", "tax_rate".

KEY FEATURES:
  - Validates required fields per calculation type
  - Sets sensible defaults (active, monthly frequency)
  - Amounts parsed as exact decimals, never floats

USAGE:
  factory := NewRateTypeFactory()
  rt, err := factory.Parse(jsonString)
  rateTypes.Put(ctx, rt)

SEE ALSO:
  - engine/ratetype.go: RateType definition and calculation types
  - payroll/presets.go, benefit/presets.go: Go-based preset rate types
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RateTypeJSON is the JSON representation of a rate type.
type RateTypeJSON struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`        // allowance, deduction, benefit
	Calculation string `json:"calculation"` // fixed, percentage, formula, manual

	DefaultAmount  string `json:"default_amount,omitempty"`
	PercentageRate string `json:"percentage_rate,omitempty"`
	PercentageBase string `json:"percentage_base,omitempty"` // basic_salary, monthly_salary, daily_rate
	Formula        string `json:"formula,omitempty"`

	IsTaxable  bool   `json:"is_taxable,omitempty"`
	IsProrated bool   `json:"is_prorated,omitempty"`
	Frequency  string `json:"frequency,omitempty"`
	IsActive   *bool  `json:"is_active,omitempty"` // default true

	// Benefit-only configuration
	Category             string `json:"category,omitempty"` // regular, terminal
	MinimumServiceMonths int    `json:"minimum_service_months,omitempty"`
	TaxRate              string `json:"tax_rate,omitempty"` // percent, e.g. "10"
}

// =============================================================================
// RATE TYPE FACTORY
// =============================================================================

// RateTypeFactory converts JSON rate types to Go structs.
type RateTypeFactory struct{}

// NewRateTypeFactory creates a new rate-type factory.
func NewRateTypeFactory() *RateTypeFactory {
	return &RateTypeFactory{}
}

// Parse parses a JSON string into a RateType.
func (f *RateTypeFactory) Parse(jsonStr string) (engine.RateType, error) {
	var rj RateTypeJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return engine.RateType{}, fmt.Errorf("failed to parse rate type JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// FromJSON converts RateTypeJSON to engine.RateType, validating the
// fields required by its calculation type.
func (f *RateTypeFactory) FromJSON(rj RateTypeJSON) (engine.RateType, error) {
	if rj.Code == "" {
		return engine.RateType{}, &engine.ValidationError{Field: "code", Detail: "required"}
	}
	if rj.Name == "" {
		return engine.RateType{}, &engine.ValidationError{Field: "name", Detail: "required"}
	}

	kind, err := parseKind(rj.Kind)
	if err != nil {
		return engine.RateType{}, err
	}
	calc, err := parseCalculation(rj.Calculation)
	if err != nil {
		return engine.RateType{}, err
	}

	rt := engine.RateType{
		ID:                   engine.RateTypeID(rj.ID),
		Code:                 rj.Code,
		Name:                 rj.Name,
		Kind:                 kind,
		Calculation:          calc,
		DefaultAmount:        engine.MoneyFromString(orZero(rj.DefaultAmount)),
		PercentageRate:       engine.MoneyFromString(orZero(rj.PercentageRate)),
		PercentageBase:       engine.PercentageBase(rj.PercentageBase),
		Formula:              rj.Formula,
		IsTaxable:            rj.IsTaxable,
		IsProrated:           rj.IsProrated,
		Frequency:            parseFrequency(rj.Frequency),
		IsActive:             true,
		MinimumServiceMonths: rj.MinimumServiceMonths,
		TaxRate:              engine.MoneyFromString(orZero(rj.TaxRate)),
	}
	if rj.ID == "" {
		rt.ID = engine.RateTypeID(rj.Code)
	}
	if rj.IsActive != nil {
		rt.IsActive = *rj.IsActive
	}

	switch calc {
	case engine.CalcPercentage:
		if rj.PercentageBase == "" {
			return engine.RateType{}, &engine.ValidationError{
				Field: "percentage_base", Detail: "required for percentage calculation"}
		}
	case engine.CalcFormula:
		if rj.Formula == "" {
			return engine.RateType{}, &engine.ValidationError{
				Field: "formula", Detail: "required for formula calculation"}
		}
	}

	if kind == engine.KindBenefit {
		category, err := parseCategory(rj.Category)
		if err != nil {
			return engine.RateType{}, err
		}
		rt.Category = category
	}

	return rt, nil
}

// ToJSON converts a RateType back to its JSON representation.
func (f *RateTypeFactory) ToJSON(rt engine.RateType) RateTypeJSON {
	rj := RateTypeJSON{
		ID:                   string(rt.ID),
		Code:                 rt.Code,
		Name:                 rt.Name,
		Kind:                 string(rt.Kind),
		Calculation:          string(rt.Calculation),
		PercentageBase:       string(rt.PercentageBase),
		Formula:              rt.Formula,
		IsTaxable:            rt.IsTaxable,
		IsProrated:           rt.IsProrated,
		Frequency:            string(rt.Frequency),
		Category:             string(rt.Category),
		MinimumServiceMonths: rt.MinimumServiceMonths,
	}
	if !rt.DefaultAmount.IsZero() {
		rj.DefaultAmount = rt.DefaultAmount.String()
	}
	if !rt.PercentageRate.IsZero() {
		rj.PercentageRate = rt.PercentageRate.String()
	}
	if !rt.TaxRate.IsZero() {
		rj.TaxRate = rt.TaxRate.String()
	}
	if !rt.IsActive {
		active := false
		rj.IsActive = &active
	}
	return rj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseKind(s string) (engine.RateKind, error) {
	switch s {
	case "allowance":
		return engine.KindAllowance, nil
	case "deduction":
		return engine.KindDeduction, nil
	case "benefit":
		return engine.KindBenefit, nil
	default:
		return "", &engine.ValidationError{Field: "kind", Detail: fmt.Sprintf("unknown kind %q", s)}
	}
}

func parseCalculation(s string) (engine.CalculationType, error) {
	switch s {
	case "fixed", "":
		return engine.CalcFixed, nil
	case "percentage":
		return engine.CalcPercentage, nil
	case "formula":
		return engine.CalcFormula, nil
	case "manual":
		return engine.CalcManual, nil
	default:
		return "", &engine.ValidationError{Field: "calculation", Detail: fmt.Sprintf("unknown calculation %q", s)}
	}
}

func parseCategory(s string) (engine.BenefitCategory, error) {
	switch s {
	case "regular", "":
		return engine.CategoryRegular, nil
	case "terminal":
		return engine.CategoryTerminal, nil
	default:
		return "", &engine.ValidationError{Field: "category", Detail: fmt.Sprintf("unknown category %q", s)}
	}
}

func parseFrequency(s string) engine.Frequency {
	switch s {
	case "per_period":
		return engine.FreqPerPeriod
	case "annual":
		return engine.FreqAnnual
	case "one_time":
		return engine.FreqOneTime
	default:
		return engine.FreqMonthly
	}
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
