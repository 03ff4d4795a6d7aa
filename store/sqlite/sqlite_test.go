package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/benefit"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testEmployee(id string) engine.Employee {
	return engine.Employee{
		ID:              engine.EmployeeID(id),
		Name:            "Employee " + id,
		Status:          engine.StatusActive,
		AppointmentDate: engine.NewDate(2020, time.January, 15),
		DailyRate:       engine.MoneyFromString("1500"),
		MonthlySalary:   engine.MoneyFromString("30000"),
	}
}

func testPeriod(id string) payroll.Period {
	return payroll.Period{
		ID: engine.PeriodID(id), Year: 2026, Month: time.June, PeriodNumber: 1,
		StartDate:           engine.NewDate(2026, time.June, 1),
		EndDate:             engine.NewDate(2026, time.June, 15),
		StandardWorkingDays: 15,
		Status:              payroll.PeriodDraft,
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployeeRoundTrip_AllFieldsSurvive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	emp := testEmployee("emp-1")

	require.NoError(t, store.PutEmployee(ctx, emp))
	got, err := store.Get(ctx, "emp-1")
	require.NoError(t, err)

	assert.Equal(t, emp.Name, got.Name)
	assert.Equal(t, emp.Status, got.Status)
	assert.Equal(t, emp.AppointmentDate.String(), got.AppointmentDate.String())
	assert.True(t, got.DailyRate.Equal(emp.DailyRate))
	assert.True(t, got.MonthlySalary.Equal(emp.MonthlySalary))
}

func TestEmployeePut_SameID_Upserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutEmployee(ctx, testEmployee("emp-1")))

	updated := testEmployee("emp-1")
	updated.MonthlySalary = engine.MoneyFromString("35000")
	require.NoError(t, store.PutEmployee(ctx, updated))

	got, err := store.Get(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "35000.00", got.MonthlySalary.String())

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEmployeeGet_Unknown_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "emp-ghost")
	assert.True(t, engine.IsNotFound(err))
}

// =============================================================================
// RATE TYPES
// =============================================================================

func TestRateTypeRoundTrip_MoneyFieldsExact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	rt := engine.RateType{
		ID: "rt-1", Code: "PERA", Name: "Personnel Allowance",
		Kind: engine.KindAllowance, Calculation: engine.CalcFixed,
		DefaultAmount: engine.MoneyFromString("2000.505"),
		Frequency:     engine.FreqMonthly, IsActive: true,
	}

	require.NoError(t, store.RateTypes().Put(ctx, rt))
	got, err := store.RateTypes().Get(ctx, "rt-1")
	require.NoError(t, err)

	// Amounts are stored as exact decimal text, not rounded.
	assert.True(t, got.DefaultAmount.Equal(rt.DefaultAmount),
		"stored %s, want exact %s", got.DefaultAmount.Value, rt.DefaultAmount.Value)
	assert.Equal(t, rt.Code, got.Code)

	byCode, err := store.RateTypes().GetByCode(ctx, "PERA")
	require.NoError(t, err)
	assert.Equal(t, rt.ID, byCode.ID)
}

func TestRateTypeList_FiltersByKind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.RateTypes().Put(ctx, engine.RateType{
		ID: "rt-a", Code: "A", Name: "Allowance", Kind: engine.KindAllowance,
		Calculation: engine.CalcFixed, IsActive: true,
	}))
	require.NoError(t, store.RateTypes().Put(ctx, engine.RateType{
		ID: "rt-d", Code: "D", Name: "Deduction", Kind: engine.KindDeduction,
		Calculation: engine.CalcFixed, IsActive: true,
	}))

	allowances, err := store.RateTypes().List(ctx, engine.KindAllowance)
	require.NoError(t, err)
	require.Len(t, allowances, 1)
	assert.Equal(t, engine.RateTypeID("rt-a"), allowances[0].ID)

	all, err := store.RateTypes().List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// =============================================================================
// PERIODS
// =============================================================================

func TestPeriodCreate_DuplicateYearMonthNumber_Rejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Periods().Create(ctx, testPeriod("per-1")))

	dup := testPeriod("per-2")
	err := store.Periods().Create(ctx, dup)
	assert.True(t, errors.Is(err, engine.ErrDuplicateItem))
}

func TestPeriodTransition_CompareAndSwap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Periods().Create(ctx, testPeriod("per-1")))

	// Valid CAS: draft -> processing.
	err := store.Periods().Transition(ctx, "per-1",
		[]payroll.PeriodStatus{payroll.PeriodDraft}, payroll.PeriodProcessing)
	require.NoError(t, err)

	// Repeating the same CAS loses: the current status no longer matches.
	err = store.Periods().Transition(ctx, "per-1",
		[]payroll.PeriodStatus{payroll.PeriodDraft}, payroll.PeriodProcessing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrInvalidTransition))
	var transition *engine.TransitionError
	require.True(t, errors.As(err, &transition))
	assert.Equal(t, string(payroll.PeriodProcessing), transition.From)

	// Unknown id stays a not-found, not a transition failure.
	err = store.Periods().Transition(ctx, "per-ghost",
		[]payroll.PeriodStatus{payroll.PeriodDraft}, payroll.PeriodProcessing)
	assert.True(t, engine.IsNotFound(err))
}

func TestPeriodSoftDelete_HiddenAndSlotFreed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Periods().Create(ctx, testPeriod("per-1")))
	require.NoError(t, store.Periods().SoftDelete(ctx, "per-1", time.Now().UTC()))

	_, err := store.Periods().Get(ctx, "per-1")
	assert.True(t, engine.IsNotFound(err))

	periods, err := store.Periods().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, periods)

	// The (year, month, number) slot is reusable after the soft delete.
	require.NoError(t, store.Periods().Create(ctx, testPeriod("per-2")))
}

// =============================================================================
// PAYROLL ITEMS
// =============================================================================

func testPayrollItem(id, period, employee string) payroll.Item {
	return payroll.Item{
		ID:              engine.ItemID(id),
		PeriodID:        engine.PeriodID(period),
		EmployeeID:      engine.EmployeeID(employee),
		WorkingDays:     15,
		DailyRate:       engine.MoneyFromString("1500"),
		BasicPay:        engine.MoneyFromString("22500"),
		TotalAllowances: engine.MoneyFromString("2000"),
		TotalDeductions: engine.MoneyFromString("500"),
		GrossPay:        engine.MoneyFromString("24500"),
		NetPay:          engine.MoneyFromString("24000"),
		Status:          payroll.ItemDraft,
	}
}

func seedPayrollItem(t *testing.T, store *sqlite.Store, id string) payroll.Item {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.PutEmployee(ctx, testEmployee("emp-"+id)))
	item := testPayrollItem(id, "per-1", "emp-"+id)
	require.NoError(t, store.PayrollItems().Replace(ctx, item, nil))
	return item
}

func TestPayrollItemReplace_SecondWriteForSamePair_KeepsFirstID(t *testing.T) {
	// GIVEN: an item stored for (per-1, emp-1)
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Periods().Create(ctx, testPeriod("per-1")))
	require.NoError(t, store.PutEmployee(ctx, testEmployee("emp-1")))
	first := testPayrollItem("item-1", "per-1", "emp-1")
	require.NoError(t, store.PayrollItems().Replace(ctx, first, nil))

	// WHEN: a second write arrives under a fresh ID for the same pair
	second := testPayrollItem("item-2", "per-1", "emp-1")
	second.NetPay = engine.MoneyFromString("23000")
	require.NoError(t, store.PayrollItems().Replace(ctx, second, nil))

	// THEN: the write converges onto the existing row's identity
	items, err := store.PayrollItems().ListByPeriod(ctx, "per-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, engine.ItemID("item-1"), items[0].ID)
	assert.Equal(t, "23000.00", items[0].NetPay.String())
}

func TestPayrollItemReplace_LinesReplacedAtomicallyInOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Periods().Create(ctx, testPeriod("per-1")))
	require.NoError(t, store.PutEmployee(ctx, testEmployee("emp-1")))
	item := testPayrollItem("item-1", "per-1", "emp-1")
	rtID := engine.RateTypeID("rt-transport")

	lines := []payroll.ItemLine{
		{ID: "item-1-line-0", ItemID: "item-1", Kind: payroll.LineAllowance, RateType: &rtID,
			Description: "Transport", Basis: "fixed", Amount: engine.MoneyFromString("2000")},
		{ID: "item-1-line-1", ItemID: "item-1", Kind: payroll.LineDeduction,
			Description: "Union Dues", Basis: "manual", Amount: engine.MoneyFromString("500")},
	}
	require.NoError(t, store.PayrollItems().Replace(ctx, item, lines))

	// Replace with one different line: the old set must be fully gone.
	replacement := []payroll.ItemLine{
		{ID: "item-1-line-0", ItemID: "item-1", Kind: payroll.LineAllowance, RateType: &rtID,
			Description: "Transport", Basis: "fixed", Amount: engine.MoneyFromString("2500")},
	}
	require.NoError(t, store.PayrollItems().Replace(ctx, item, replacement))

	got, err := store.PayrollItems().Lines(ctx, "item-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2500.00", got[0].Amount.String())
	require.NotNil(t, got[0].RateType)
	assert.Equal(t, rtID, *got[0].RateType)
}

func TestPayrollItemMarkPaid_RequiresFinalized(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Periods().Create(ctx, testPeriod("per-1")))
	seedPayrollItem(t, store, "item-1")
	items := store.PayrollItems()

	// Draft item: payment refused.
	err := items.MarkPaid(ctx, "item-1", "DV-2026-001")
	assert.True(t, errors.Is(err, engine.ErrInvalidTransition))

	require.NoError(t, items.Transition(ctx, "item-1",
		[]payroll.ItemStatus{payroll.ItemDraft}, payroll.ItemProcessed))
	require.NoError(t, items.Transition(ctx, "item-1",
		[]payroll.ItemStatus{payroll.ItemProcessed}, payroll.ItemFinalized))

	require.NoError(t, items.MarkPaid(ctx, "item-1", "DV-2026-001"))
	got, err := items.Get(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, payroll.ItemPaid, got.Status)
	assert.Equal(t, "DV-2026-001", got.PaymentRef)
}

// =============================================================================
// BENEFIT CYCLES AND ITEMS
// =============================================================================

func testCycle(id string) benefit.Cycle {
	return benefit.Cycle{
		ID: engine.CycleID(id), BenefitTypeID: "rt-13th", Year: 2026,
		Name:           "2026 Mid-Year Bonus",
		ApplicableDate: engine.NewDate(2026, time.June, 15),
		Status:         benefit.CycleDraft,
		TotalAmount:    engine.ZeroMoney(),
	}
}

func testBenefitItem(id, cycle, employee string) benefit.Item {
	zero := engine.ZeroMoney()
	return benefit.Item{
		ID: engine.ItemID(id), CycleID: engine.CycleID(cycle), EmployeeID: engine.EmployeeID(employee),
		BaseSalary: engine.MoneyFromString("30000"), ServiceMonths: 6, IsEligible: true,
		CalculatedAmount: engine.MoneyFromString("1250"), AdjustmentAmount: zero,
		FinalAmount: engine.MoneyFromString("1250"), TaxAmount: zero,
		NetAmount: engine.MoneyFromString("1250"), TaxRate: zero,
		Status: benefit.ItemCalculated,
	}
}

func TestCycleCreate_DuplicateTypeYearName_Rejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Cycles().Create(ctx, testCycle("cyc-1")))

	err := store.Cycles().Create(ctx, testCycle("cyc-2"))
	assert.True(t, errors.Is(err, engine.ErrDuplicateItem))
}

func TestBenefitItemReplace_SecondWriteForSamePair_KeepsFirstID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Cycles().Create(ctx, testCycle("cyc-1")))
	require.NoError(t, store.PutEmployee(ctx, testEmployee("emp-1")))
	require.NoError(t, store.BenefitItems().Replace(ctx, testBenefitItem("bi-1", "cyc-1", "emp-1")))

	// A recompute arrives carrying a freshly generated id for the same
	// (cycle, employee) pair.
	second := testBenefitItem("bi-other", "cyc-1", "emp-1")
	second.FinalAmount = engine.MoneyFromString("1500")
	second.NetAmount = engine.MoneyFromString("1500")
	require.NoError(t, store.BenefitItems().Replace(ctx, second))

	got, err := store.BenefitItems().Find(ctx, "cyc-1", "emp-1")
	require.NoError(t, err)
	assert.Equal(t, engine.ItemID("bi-1"), got.ID, "existing row id wins")
	assert.Equal(t, "1500.00", got.FinalAmount.String())

	_, err = store.BenefitItems().Get(ctx, "bi-other")
	assert.True(t, engine.IsNotFound(err), "no duplicate row for the pair")
}

func TestBenefitItemReplace_SeparateConnections_ConvergeOnOneRow(t *testing.T) {
	// Two store handles over the same database file stand in for two
	// processes computing the same item concurrently.
	path := filepath.Join(t.TempDir(), "payroll.db")
	first, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })
	second, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	ctx := context.Background()
	require.NoError(t, first.Cycles().Create(ctx, testCycle("cyc-1")))
	require.NoError(t, first.PutEmployee(ctx, testEmployee("emp-1")))
	require.NoError(t, first.BenefitItems().Replace(ctx, testBenefitItem("bi-1", "cyc-1", "emp-1")))

	rival := testBenefitItem("bi-rival", "cyc-1", "emp-1")
	rival.FinalAmount = engine.MoneyFromString("1500")
	rival.NetAmount = engine.MoneyFromString("1500")
	require.NoError(t, second.BenefitItems().Replace(ctx, rival))

	items, err := first.BenefitItems().ListByCycle(ctx, "cyc-1")
	require.NoError(t, err)
	require.Len(t, items, 1, "duplicate insert converged into an update")
	assert.Equal(t, engine.ItemID("bi-1"), items[0].ID)
	assert.Equal(t, "1500.00", items[0].FinalAmount.String())
}

func TestBenefitItemUpdateAmounts_TerminalItem_Rejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Cycles().Create(ctx, testCycle("cyc-1")))
	require.NoError(t, store.PutEmployee(ctx, testEmployee("emp-1")))
	require.NoError(t, store.BenefitItems().Replace(ctx, testBenefitItem("bi-1", "cyc-1", "emp-1")))
	items := store.BenefitItems()

	require.NoError(t, items.Transition(ctx, "bi-1",
		[]benefit.ItemStatus{benefit.ItemCalculated}, benefit.ItemApproved))
	require.NoError(t, items.MarkPaid(ctx, "bi-1", "DV-2026-500"))

	zero := engine.ZeroMoney()
	err := items.UpdateAmounts(ctx, "bi-1", zero, engine.MoneyFromString("2000"), zero, engine.MoneyFromString("2000"))
	assert.True(t, errors.Is(err, engine.ErrAlreadyPaid))
}

func TestBenefitItemCancelNonPaid_PaidItemsSurvive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Cycles().Create(ctx, testCycle("cyc-1")))
	for i, id := range []string{"bi-1", "bi-2", "bi-3"} {
		emp := testEmployee("emp-" + id)
		require.NoError(t, store.PutEmployee(ctx, emp))
		item := testBenefitItem(id, "cyc-1", string(emp.ID))
		require.NoError(t, store.BenefitItems().Replace(ctx, item))
		if i == 0 {
			require.NoError(t, store.BenefitItems().Transition(ctx, item.ID,
				[]benefit.ItemStatus{benefit.ItemCalculated}, benefit.ItemApproved))
			require.NoError(t, store.BenefitItems().MarkPaid(ctx, item.ID, "DV-2026-600"))
		}
	}

	cancelled, err := store.BenefitItems().CancelNonPaid(ctx, "cyc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, cancelled)

	paid, err := store.BenefitItems().Get(ctx, "bi-1")
	require.NoError(t, err)
	assert.Equal(t, benefit.ItemPaid, paid.Status)
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

func TestAdjustmentAppend_ListedInAppendOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.June, 15, 8, 0, 0, 0, time.UTC)
	for i, amount := range []string{"100", "200", "300"} {
		err := store.Adjustments().Append(ctx, benefit.Adjustment{
			ID:         engine.AdjustmentID(string(rune('a' + i))),
			ItemID:     "bi-1",
			Type:       benefit.AdjustIncrease,
			Amount:     engine.MoneyFromString(amount),
			Reason:     "correction",
			ApprovedBy: "hr-director",
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	entries, err := store.Adjustments().ListByItem(ctx, "bi-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "100.00", entries[0].Amount.String())
	assert.Equal(t, "200.00", entries[1].Amount.String())
	assert.Equal(t, "300.00", entries[2].Amount.String())
}
