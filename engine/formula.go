/*
formula.go - Sandboxed formula evaluation for Formula rate types

PURPOSE:
  Formula rate types carry a string expression ("monthly_salary / 12 *
  (service_months / 12)") evaluated against a fixed, documented variable
  set. Evaluation must be deterministic and safe: the CEL environment
  declares ONLY the documented variables and arithmetic - no general
  evaluation, no side effects, no host access.

VARIABLES:
  basic_salary, monthly_salary, daily_rate, service_months, working_days,
  leave_days - all bound as doubles. Referencing anything else fails
  compilation, which surfaces as a RateResolutionError.

ARITHMETIC:
  CEL never coerces between numeric types, so the environment extends the
  four arithmetic operators with (double, int) and (int, double) overloads.
  Without them "monthly_salary / 12" would not compile and formula authors
  would be forced to write float literals everywhere.

CACHING:
  Compiled programs are cached per expression in a sync.Map. Rate formulas
  are few and stable; compiling once per expression keeps batch
  calculations cheap.

SEE ALSO:
  - resolver.go: binds employee figures into FormulaVariables
*/
package engine

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/shopspring/decimal"
)

// =============================================================================
// FORMULA VARIABLES - The fixed variable set formulas may reference
// =============================================================================

type FormulaVariables struct {
	BasicSalary   Money
	MonthlySalary Money
	DailyRate     Money
	ServiceMonths int
	WorkingDays   int
	LeaveDays     int
}

func (v FormulaVariables) bindings() map[string]any {
	return map[string]any{
		"basic_salary":   v.BasicSalary.Float64(),
		"monthly_salary": v.MonthlySalary.Float64(),
		"daily_rate":     v.DailyRate.Float64(),
		"service_months": float64(v.ServiceMonths),
		"working_days":   float64(v.WorkingDays),
		"leave_days":     float64(v.LeaveDays),
	}
}

// =============================================================================
// EVALUATOR
// =============================================================================

var newFormulaEnv = func() (*cel.Env, error) {
	opts := []cel.EnvOption{
		cel.Variable("basic_salary", cel.DoubleType),
		cel.Variable("monthly_salary", cel.DoubleType),
		cel.Variable("daily_rate", cel.DoubleType),
		cel.Variable("service_months", cel.DoubleType),
		cel.Variable("working_days", cel.DoubleType),
		cel.Variable("leave_days", cel.DoubleType),
	}
	opts = append(opts, mixedNumericOps()...)
	return cel.NewEnv(opts...)
}

// mixedNumericOps extends +, -, *, / with (double, int) and (int, double)
// overloads so integer literals mix with the double-typed variables. The
// overload ids do not collide with the standard library's.
func mixedNumericOps() []cel.EnvOption {
	ops := []struct {
		operator string
		id       string
		apply    func(a, b float64) float64
	}{
		{operators.Add, "add", func(a, b float64) float64 { return a + b }},
		{operators.Subtract, "subtract", func(a, b float64) float64 { return a - b }},
		{operators.Multiply, "multiply", func(a, b float64) float64 { return a * b }},
		{operators.Divide, "divide", func(a, b float64) float64 { return a / b }},
	}
	var opts []cel.EnvOption
	for _, op := range ops {
		apply := op.apply
		opts = append(opts, cel.Function(op.operator,
			cel.Overload(op.id+"_double_int",
				[]*cel.Type{cel.DoubleType, cel.IntType}, cel.DoubleType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return types.Double(apply(float64(lhs.(types.Double)), float64(rhs.(types.Int))))
				})),
			cel.Overload(op.id+"_int_double",
				[]*cel.Type{cel.IntType, cel.DoubleType}, cel.DoubleType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return types.Double(apply(float64(lhs.(types.Int)), float64(rhs.(types.Double))))
				})),
		))
	}
	return opts
}

var formulaProgramCache sync.Map

// EvaluateFormula evaluates expr against vars and returns the result as a
// Money (not yet rounded; callers apply Round2 at the line item).
func EvaluateFormula(rateType RateTypeID, expr string, vars FormulaVariables) (Money, error) {
	program, err := compileFormula(rateType, expr)
	if err != nil {
		return Money{}, err
	}

	out, _, err := program.Eval(vars.bindings())
	if err != nil {
		return Money{}, &RateResolutionError{
			RateType: rateType,
			Code:     "bad_formula",
			Detail:   err.Error(),
		}
	}

	switch v := out.Value().(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Money{}, &RateResolutionError{
				RateType: rateType,
				Code:     "bad_formula",
				Detail:   "non-finite result",
			}
		}
		return Money{Value: decimal.NewFromFloat(v)}, nil
	case int64:
		return Money{Value: decimal.NewFromInt(v)}, nil
	default:
		return Money{}, &RateResolutionError{
			RateType: rateType,
			Code:     "bad_formula",
			Detail:   fmt.Sprintf("non-numeric result %T", out.Value()),
		}
	}
}

func compileFormula(rateType RateTypeID, expr string) (cel.Program, error) {
	if expr == "" {
		return nil, &RateResolutionError{
			RateType: rateType,
			Code:     "bad_formula",
			Detail:   "empty formula",
		}
	}
	if cached, ok := formulaProgramCache.Load(expr); ok {
		return cached.(cel.Program), nil
	}

	env, err := newFormulaEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create formula environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		// Only an undeclared reference gets its own code; syntax and type
		// errors are plain bad formulas.
		code := "bad_formula"
		if strings.Contains(issues.Err().Error(), "undeclared reference") {
			code = "undefined_variable"
		}
		return nil, &RateResolutionError{
			RateType: rateType,
			Code:     code,
			Detail:   issues.Err().Error(),
		}
	}
	if ast.OutputType() != cel.DoubleType && ast.OutputType() != cel.IntType {
		return nil, &RateResolutionError{
			RateType: rateType,
			Code:     "bad_formula",
			Detail:   "formula must produce a numeric result",
		}
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, &RateResolutionError{
			RateType: rateType,
			Code:     "bad_formula",
			Detail:   err.Error(),
		}
	}

	formulaProgramCache.Store(expr, program)
	return program, nil
}
