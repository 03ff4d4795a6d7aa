package benefit_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/warp/payroll-engine/benefit"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/engine/store"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

type benefitFixture struct {
	store     *store.Memory
	engine    *benefit.ItemEngine
	lifecycle *benefit.CycleLifecycle
}

func newBenefitFixture(t *testing.T) *benefitFixture {
	t.Helper()
	mem := store.NewMemory()
	itemEngine := &benefit.ItemEngine{
		Employees: mem,
		RateTypes: mem.RateTypes(),
		Resolver:  engine.NewRateResolver(mem.Overrides()),
		Items:     mem.BenefitItems(),
		Ledger:    benefit.NewAdjustmentLedger(mem.Adjustments()),
	}
	return &benefitFixture{
		store:  mem,
		engine: itemEngine,
		lifecycle: &benefit.CycleLifecycle{
			Engine:    itemEngine,
			Items:     mem.BenefitItems(),
			Cycles:    mem.Cycles(),
			Employees: mem,
		},
	}
}

func (f *benefitFixture) addEmployee(t *testing.T, id string, appointed engine.Date, status engine.EmploymentStatus) {
	t.Helper()
	err := f.store.PutEmployee(context.Background(), engine.Employee{
		ID:              engine.EmployeeID(id),
		Name:            "Employee " + id,
		Status:          status,
		AppointmentDate: appointed,
		DailyRate:       engine.MoneyFromString("1500"),
		MonthlySalary:   engine.MoneyFromString("30000"),
	})
	if err != nil {
		t.Fatalf("put employee %s: %v", id, err)
	}
}

func (f *benefitFixture) addBenefitType(t *testing.T, rt engine.RateType) {
	t.Helper()
	if err := f.store.RateTypes().Put(context.Background(), rt); err != nil {
		t.Fatalf("put benefit type %s: %v", rt.ID, err)
	}
}

func (f *benefitFixture) addCycle(t *testing.T, cycle benefit.Cycle) benefit.Cycle {
	t.Helper()
	if err := f.store.Cycles().Create(context.Background(), cycle); err != nil {
		t.Fatalf("create cycle %s: %v", cycle.ID, err)
	}
	return cycle
}

// proratedTwelfth is a formula benefit paying one twelfth of salary per
// full year of service fraction, with a 4-month minimum.
func proratedTwelfth() engine.RateType {
	return engine.RateType{
		ID: "rt-13th", Code: "BONUS-13TH", Name: "Thirteenth Month Pay",
		Kind:        engine.KindBenefit,
		Calculation: engine.CalcFormula,
		Formula:     "basic_salary / 12.0 * (service_months / 12.0)",
		Category:    engine.CategoryRegular,
		IsActive:    true,

		MinimumServiceMonths: 4,
	}
}

func midYearCycle() benefit.Cycle {
	return benefit.Cycle{
		ID:             "cyc-1",
		BenefitTypeID:  "rt-13th",
		Year:           2026,
		Name:           "2026 Mid-Year Bonus",
		ApplicableDate: engine.NewDate(2026, time.June, 15),
		Status:         benefit.CycleDraft,
	}
}

// =============================================================================
// COMPUTATION
// =============================================================================

func TestBenefitCompute_FormulaWithSixMonthsService_ExactAmount(t *testing.T) {
	// GIVEN: salary 30000, appointed six months before the applicable date
	f := newBenefitFixture(t)
	f.addEmployee(t, "emp-1", engine.NewDate(2025, time.December, 15), engine.StatusActive)
	f.addBenefitType(t, proratedTwelfth())
	cycle := f.addCycle(t, midYearCycle())

	// WHEN: computing the item
	item, err := f.engine.Compute(context.Background(), cycle, "emp-1", benefit.ComputeOptions{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// THEN: 30000/12 * 6/12 = 1250.00
	if !item.IsEligible {
		t.Fatalf("expected eligible, notes: %s", item.EligibilityNotes)
	}
	if item.ServiceMonths != 6 {
		t.Errorf("service months = %d, want 6", item.ServiceMonths)
	}
	if got := item.CalculatedAmount.String(); got != "1250.00" {
		t.Errorf("calculated = %s, want 1250.00", got)
	}
	if !item.FinalAmount.Equal(item.CalculatedAmount) {
		t.Errorf("final = %s, want calculated %s", item.FinalAmount, item.CalculatedAmount)
	}
	if !item.NetAmount.Equal(item.FinalAmount) {
		t.Errorf("net = %s, want final (non-taxable)", item.NetAmount)
	}
}

func TestBenefitCompute_BelowMinimumService_ZeroItemWithNotes(t *testing.T) {
	// GIVEN: three months of service against a four-month minimum
	f := newBenefitFixture(t)
	f.addEmployee(t, "emp-1", engine.NewDate(2026, time.March, 15), engine.StatusActive)
	f.addBenefitType(t, proratedTwelfth())
	cycle := f.addCycle(t, midYearCycle())

	// WHEN: computing the item
	item, err := f.engine.Compute(context.Background(), cycle, "emp-1", benefit.ComputeOptions{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// THEN: the item exists, ineligible, zero amount, notes populated
	if item.IsEligible {
		t.Fatal("expected ineligible")
	}
	if !item.CalculatedAmount.IsZero() {
		t.Errorf("calculated = %s, want 0", item.CalculatedAmount)
	}
	if item.EligibilityNotes == "" {
		t.Fatal("expected populated eligibility notes")
	}
	if !strings.Contains(item.EligibilityNotes, "3") || !strings.Contains(item.EligibilityNotes, "4") {
		t.Errorf("notes %q should name actual and required months", item.EligibilityNotes)
	}
}

func TestBenefitCompute_TerminalBenefitActiveEmployee_Ineligible(t *testing.T) {
	f := newBenefitFixture(t)
	f.addEmployee(t, "emp-1", engine.NewDate(2010, time.January, 15), engine.StatusActive)
	f.addBenefitType(t, engine.RateType{
		ID: "rt-gratuity", Code: "GRATUITY", Name: "Retirement Gratuity",
		Kind:        engine.KindBenefit,
		Calculation: engine.CalcFormula,
		Formula:     "monthly_salary * (service_months / 12.0)",
		Category:    engine.CategoryTerminal,
		IsActive:    true,
	})
	cycle := f.addCycle(t, benefit.Cycle{
		ID: "cyc-g", BenefitTypeID: "rt-gratuity", Year: 2026,
		Name:           "2026 Gratuity Run",
		ApplicableDate: engine.NewDate(2026, time.June, 15),
		Status:         benefit.CycleDraft,
	})

	item, err := f.engine.Compute(context.Background(), cycle, "emp-1", benefit.ComputeOptions{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if item.IsEligible {
		t.Fatal("active employee must be ineligible for a terminal benefit")
	}
	if !item.CalculatedAmount.IsZero() {
		t.Errorf("calculated = %s, want 0", item.CalculatedAmount)
	}
}

func TestBenefitCompute_TaxableType_SnapshotsRateAndWithholds(t *testing.T) {
	// GIVEN: a fixed 10000 bonus taxed at 5%
	f := newBenefitFixture(t)
	f.addEmployee(t, "emp-1", engine.NewDate(2020, time.January, 15), engine.StatusActive)
	f.addBenefitType(t, engine.RateType{
		ID: "rt-award", Code: "AWARD", Name: "Performance Award",
		Kind:          engine.KindBenefit,
		Calculation:   engine.CalcFixed,
		DefaultAmount: engine.MoneyFromString("10000"),
		Category:      engine.CategoryRegular,
		IsTaxable:     true,
		TaxRate:       engine.MoneyFromString("5"),
		IsActive:      true,
	})
	cycle := f.addCycle(t, benefit.Cycle{
		ID: "cyc-a", BenefitTypeID: "rt-award", Year: 2026,
		Name:           "2026 Awards",
		ApplicableDate: engine.NewDate(2026, time.June, 15),
		Status:         benefit.CycleDraft,
	})

	// WHEN: computing
	item, err := f.engine.Compute(context.Background(), cycle, "emp-1", benefit.ComputeOptions{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// THEN: tax 500, net 9500, rate snapshot carried on the item
	if got := item.TaxRate.Round2().String(); got != "5.00" {
		t.Errorf("tax rate snapshot = %s, want 5.00", got)
	}
	if got := item.TaxAmount.String(); got != "500.00" {
		t.Errorf("tax = %s, want 500.00", got)
	}
	if got := item.NetAmount.String(); got != "9500.00" {
		t.Errorf("net = %s, want 9500.00", got)
	}
}

func TestBenefitCompute_ManualType_StaysZeroPendingAdjustment(t *testing.T) {
	f := newBenefitFixture(t)
	f.addEmployee(t, "emp-1", engine.NewDate(2020, time.January, 15), engine.StatusActive)
	f.addBenefitType(t, engine.RateType{
		ID: "rt-disc", Code: "DISC", Name: "Discretionary Award",
		Kind: engine.KindBenefit, Calculation: engine.CalcManual,
		Category: engine.CategoryRegular, IsActive: true,
	})
	cycle := f.addCycle(t, benefit.Cycle{
		ID: "cyc-d", BenefitTypeID: "rt-disc", Year: 2026,
		Name:           "2026 Discretionary",
		ApplicableDate: engine.NewDate(2026, time.June, 15),
		Status:         benefit.CycleDraft,
	})

	item, err := f.engine.Compute(context.Background(), cycle, "emp-1", benefit.ComputeOptions{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !item.IsEligible {
		t.Fatalf("expected eligible, notes: %s", item.EligibilityNotes)
	}
	if !item.CalculatedAmount.IsZero() {
		t.Errorf("calculated = %s, want 0 until an adjustment supplies the amount", item.CalculatedAmount)
	}
}

func TestBenefitCompute_ServiceMonthsCap_Applied(t *testing.T) {
	// Re-hired employees can carry a caller-supplied service cap.
	f := newBenefitFixture(t)
	f.addEmployee(t, "emp-1", engine.NewDate(2015, time.June, 15), engine.StatusActive)
	f.addBenefitType(t, proratedTwelfth())
	cycle := f.addCycle(t, midYearCycle())

	item, err := f.engine.Compute(context.Background(), cycle, "emp-1", benefit.ComputeOptions{ServiceMonthsCap: 12})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if item.ServiceMonths != 12 {
		t.Errorf("service months = %d, want capped 12", item.ServiceMonths)
	}
	// 30000/12 * 12/12 = 2500
	if got := item.CalculatedAmount.String(); got != "2500.00" {
		t.Errorf("calculated = %s, want 2500.00", got)
	}
}

func TestBenefitCompute_Twice_SameItemIdentity(t *testing.T) {
	f := newBenefitFixture(t)
	f.addEmployee(t, "emp-1", engine.NewDate(2025, time.December, 15), engine.StatusActive)
	f.addBenefitType(t, proratedTwelfth())
	cycle := f.addCycle(t, midYearCycle())
	ctx := context.Background()

	first, err := f.engine.Compute(ctx, cycle, "emp-1", benefit.ComputeOptions{})
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	second, err := f.engine.Compute(ctx, cycle, "emp-1", benefit.ComputeOptions{})
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("item ID changed on recomputation: %s vs %s", first.ID, second.ID)
	}
	if !first.FinalAmount.Equal(second.FinalAmount) {
		t.Errorf("final changed: %s vs %s", first.FinalAmount, second.FinalAmount)
	}
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

func TestAddAdjustment_Increase_RecomputesDerivedAmounts(t *testing.T) {
	// GIVEN: a computed taxable item (final 10000, 5% tax)
	f := newBenefitFixture(t)
	f.addEmployee(t, "emp-1", engine.NewDate(2020, time.January, 15), engine.StatusActive)
	f.addBenefitType(t, engine.RateType{
		ID: "rt-award", Code: "AWARD", Name: "Performance Award",
		Kind: engine.KindBenefit, Calculation: engine.CalcFixed,
		DefaultAmount: engine.MoneyFromString("10000"),
		Category:      engine.CategoryRegular,
		IsTaxable:     true, TaxRate: engine.MoneyFromString("5"),
		IsActive: true,
	})
	cycle := f.addCycle(t, benefit.Cycle{
		ID: "cyc-a", BenefitTypeID: "rt-award", Year: 2026,
		Name:           "2026 Awards",
		ApplicableDate: engine.NewDate(2026, time.June, 15),
		Status:         benefit.CycleDraft,
	})
	ctx := context.Background()
	item, err := f.engine.Compute(ctx, cycle, "emp-1", benefit.ComputeOptions{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// WHEN: appending a +2000 adjustment
	updated, err := f.engine.AddAdjustment(ctx, item.ID, benefit.AdjustIncrease,
		engine.MoneyFromString("2000"), "exemplary rating", "hr-director")
	if err != nil {
		t.Fatalf("add adjustment: %v", err)
	}

	// THEN: final 12000, tax 600, net 11400; calculated untouched
	if got := updated.CalculatedAmount.String(); got != "10000.00" {
		t.Errorf("calculated = %s, want untouched 10000.00", got)
	}
	if got := updated.AdjustmentAmount.String(); got != "2000.00" {
		t.Errorf("adjustment = %s, want 2000.00", got)
	}
	if got := updated.FinalAmount.String(); got != "12000.00" {
		t.Errorf("final = %s, want 12000.00", got)
	}
	if got := updated.TaxAmount.String(); got != "600.00" {
		t.Errorf("tax = %s, want 600.00", got)
	}
	if got := updated.NetAmount.String(); got != "11400.00" {
		t.Errorf("net = %s, want 11400.00", got)
	}
}

func TestAddAdjustment_PaidItem_Rejected(t *testing.T) {
	// GIVEN: an item advanced through approval to Paid
	f := newBenefitFixture(t)
	f.addEmployee(t, "emp-1", engine.NewDate(2025, time.December, 15), engine.StatusActive)
	f.addBenefitType(t, proratedTwelfth())
	f.addCycle(t, midYearCycle())
	ctx := context.Background()
	summary, err := f.lifecycle.Calculate(ctx, "cyc-1")
	if err != nil || len(summary.Failed) != 0 {
		t.Fatalf("calculate: %v %+v", err, summary)
	}
	item, err := f.store.BenefitItems().Find(ctx, "cyc-1", "emp-1")
	if err != nil {
		t.Fatalf("find item: %v", err)
	}
	if err := f.lifecycle.Approve(ctx, item.ID, "hr-director"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := f.lifecycle.MarkPaid(ctx, item.ID, "DV-2026-100"); err != nil {
		t.Fatalf("pay: %v", err)
	}

	// WHEN/THEN: further adjustments are rejected
	_, err = f.engine.AddAdjustment(ctx, item.ID, benefit.AdjustIncrease,
		engine.MoneyFromString("500"), "too late", "hr-director")
	if !errors.Is(err, engine.ErrAlreadyPaid) {
		t.Fatalf("err = %v, want ErrAlreadyPaid", err)
	}
}

func TestAddAdjustment_ApprovedItem_StillAccepted(t *testing.T) {
	f := newBenefitFixture(t)
	f.addEmployee(t, "emp-1", engine.NewDate(2025, time.December, 15), engine.StatusActive)
	f.addBenefitType(t, proratedTwelfth())
	f.addCycle(t, midYearCycle())
	ctx := context.Background()
	if _, err := f.lifecycle.Calculate(ctx, "cyc-1"); err != nil {
		t.Fatalf("calculate: %v", err)
	}
	item, err := f.store.BenefitItems().Find(ctx, "cyc-1", "emp-1")
	if err != nil {
		t.Fatalf("find item: %v", err)
	}
	if err := f.lifecycle.Approve(ctx, item.ID, "hr-director"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	updated, err := f.engine.AddAdjustment(ctx, item.ID, benefit.AdjustOverride,
		engine.MoneyFromString("2000"), "board resolution", "hr-director")
	if err != nil {
		t.Fatalf("add adjustment: %v", err)
	}
	if got := updated.FinalAmount.String(); got != "2000.00" {
		t.Errorf("final = %s, want overridden 2000.00", got)
	}
}
