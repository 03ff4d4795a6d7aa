package payroll_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/payroll"
)

// seedEmployees adds n more employees (emp-2..emp-n+1) alongside the
// fixture's emp-1 and returns compute inputs for all of them.
func (f *payrollFixture) seedEmployees(t *testing.T, n int) []payroll.ComputeInput {
	t.Helper()
	ctx := context.Background()
	inputs := []payroll.ComputeInput{f.standardInput()}
	for i := 2; i <= n+1; i++ {
		id := engine.EmployeeID(fmt.Sprintf("emp-%d", i))
		err := f.store.PutEmployee(ctx, engine.Employee{
			ID:              id,
			Name:            fmt.Sprintf("Employee %d", i),
			Status:          engine.StatusActive,
			AppointmentDate: engine.NewDate(2021, time.March, 1),
			DailyRate:       engine.MoneyFromString("1200"),
			MonthlySalary:   engine.MoneyFromString("24000"),
		})
		if err != nil {
			t.Fatalf("put employee %s: %v", id, err)
		}
		inputs = append(inputs, payroll.ComputeInput{EmployeeID: id, WorkingDays: 15})
	}
	return inputs
}

// processAll runs Process and fails the test on any per-item failure.
func (f *payrollFixture) processAll(t *testing.T, inputs []payroll.ComputeInput) []engine.ItemID {
	t.Helper()
	result, err := f.lifecycle.Process(context.Background(), f.period.ID, inputs)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("process failures: %+v", result.Failed)
	}
	return result.Succeeded
}

// =============================================================================
// PROCESS
// =============================================================================

func TestProcess_DraftPeriod_AdvancesToProcessing(t *testing.T) {
	// GIVEN: a Draft period
	f := newPayrollFixture(t)

	// WHEN: processing one employee
	ids := f.processAll(t, []payroll.ComputeInput{f.standardInput()})

	// THEN: the period is Processing and the item Processed
	if len(ids) != 1 {
		t.Fatalf("succeeded = %d, want 1", len(ids))
	}
	period, err := f.store.Periods().Get(context.Background(), f.period.ID)
	if err != nil {
		t.Fatalf("reload period: %v", err)
	}
	if period.Status != payroll.PeriodProcessing {
		t.Errorf("period status = %s, want processing", period.Status)
	}
	item, err := f.store.PayrollItems().Get(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if item.Status != payroll.ItemProcessed {
		t.Errorf("item status = %s, want processed", item.Status)
	}
}

func TestProcess_OneEmployeeFails_OthersSucceed(t *testing.T) {
	// GIVEN: three employees, one of them unknown
	f := newPayrollFixture(t)
	inputs := f.seedEmployees(t, 1)
	inputs = append(inputs, payroll.ComputeInput{EmployeeID: "emp-missing", WorkingDays: 15})

	// WHEN: processing the batch
	result, err := f.lifecycle.Process(context.Background(), f.period.ID, inputs)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	// THEN: the failure is reported per item, successes stand
	if len(result.Succeeded) != 2 {
		t.Errorf("succeeded = %d, want 2", len(result.Succeeded))
	}
	if len(result.Failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(result.Failed))
	}
	if !engine.IsNotFound(result.Failed[0].Err) {
		t.Errorf("failure err = %v, want not-found", result.Failed[0].Err)
	}
}

func TestProcess_CompletedPeriod_Rejected(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	ids := f.processAll(t, []payroll.ComputeInput{f.standardInput()})
	if err := f.lifecycle.Finalize(ctx, ids[0], "hr-officer"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := f.lifecycle.CompletePeriod(ctx, f.period.ID); err != nil {
		t.Fatalf("complete period: %v", err)
	}

	_, err := f.lifecycle.Process(ctx, f.period.ID, []payroll.ComputeInput{f.standardInput()})
	if !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

// =============================================================================
// ITEM TRANSITIONS
// =============================================================================

func TestFinalize_ProcessedItem_Freezes(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	ids := f.processAll(t, []payroll.ComputeInput{f.standardInput()})

	if err := f.lifecycle.Finalize(ctx, ids[0], "hr-officer"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// Recalculation is now rejected.
	_, err := f.lifecycle.Recalculate(ctx, ids[0])
	if !errors.Is(err, engine.ErrItemLocked) {
		t.Fatalf("err = %v, want ErrItemLocked", err)
	}
}

func TestFinalize_DraftItem_InvalidTransition(t *testing.T) {
	// Finalize skips no states: Draft items must be processed first.
	f := newPayrollFixture(t)
	ctx := context.Background()
	item, _, err := f.engine.Compute(ctx, f.period, f.standardInput())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	err = f.lifecycle.Finalize(ctx, item.ID, "hr-officer")
	if !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestFinalize_UnauthorizedActor_Rejected(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	ids := f.processAll(t, []payroll.ComputeInput{f.standardInput()})

	f.lifecycle.Authorize = func(_ context.Context, actor, _ string) bool {
		return actor == "hr-officer"
	}
	err := f.lifecycle.Finalize(ctx, ids[0], "intern")
	if !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestMarkPaid_WithoutReference_ValidationError(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	ids := f.processAll(t, []payroll.ComputeInput{f.standardInput()})
	if err := f.lifecycle.Finalize(ctx, ids[0], "hr-officer"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	err := f.lifecycle.MarkPaid(ctx, ids[0], "")
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestMarkPaid_SecondAttempt_KeepsOriginalReference(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	ids := f.processAll(t, []payroll.ComputeInput{f.standardInput()})
	if err := f.lifecycle.Finalize(ctx, ids[0], "hr-officer"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := f.lifecycle.MarkPaid(ctx, ids[0], "DV-2026-001"); err != nil {
		t.Fatalf("first pay: %v", err)
	}

	err := f.lifecycle.MarkPaid(ctx, ids[0], "DV-2026-002")
	if !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	item, err := f.store.PayrollItems().Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if item.PaymentRef != "DV-2026-001" {
		t.Errorf("payment ref = %q, want original DV-2026-001", item.PaymentRef)
	}
}

func TestReopen_FinalizedItem_BackToDraft(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	ids := f.processAll(t, []payroll.ComputeInput{f.standardInput()})
	if err := f.lifecycle.Finalize(ctx, ids[0], "hr-officer"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if err := f.lifecycle.Reopen(ctx, ids[0]); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	item, err := f.store.PayrollItems().Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if item.Status != payroll.ItemDraft {
		t.Errorf("status = %s, want draft", item.Status)
	}
}

func TestReopen_PeriodAlreadyPaid_Rejected(t *testing.T) {
	// GIVEN: everything finalized, paid, and the period marked Paid
	f := newPayrollFixture(t)
	ctx := context.Background()
	ids := f.processAll(t, []payroll.ComputeInput{f.standardInput()})
	if err := f.lifecycle.Finalize(ctx, ids[0], "hr-officer"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := f.lifecycle.CompletePeriod(ctx, f.period.ID); err != nil {
		t.Fatalf("complete period: %v", err)
	}
	if err := f.lifecycle.MarkPaid(ctx, ids[0], "DV-2026-001"); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if err := f.lifecycle.MarkPeriodPaid(ctx, f.period.ID); err != nil {
		t.Fatalf("mark period paid: %v", err)
	}

	// WHEN/THEN: reopening anything in a Paid period is rejected
	err := f.lifecycle.Reopen(ctx, ids[0])
	if !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

// =============================================================================
// BULK OPERATIONS
// =============================================================================

func TestBulkMarkPaid_OneAlreadyPaid_FourSucceedOneFails(t *testing.T) {
	// GIVEN: five finalized items, one of them already paid
	f := newPayrollFixture(t)
	ctx := context.Background()
	inputs := f.seedEmployees(t, 4)
	ids := f.processAll(t, inputs)
	if len(ids) != 5 {
		t.Fatalf("processed = %d, want 5", len(ids))
	}
	for _, id := range ids {
		if err := f.lifecycle.Finalize(ctx, id, "hr-officer"); err != nil {
			t.Fatalf("finalize %s: %v", id, err)
		}
	}
	if err := f.lifecycle.MarkPaid(ctx, ids[0], "DV-2026-001"); err != nil {
		t.Fatalf("pre-pay: %v", err)
	}

	// WHEN: bulk-paying all five under a new reference
	result := f.lifecycle.BulkMarkPaid(ctx, ids, "DV-2026-002")

	// THEN: four succeed, one fails, the paid item's reference is untouched
	if len(result.Succeeded) != 4 {
		t.Errorf("succeeded = %d, want 4", len(result.Succeeded))
	}
	if len(result.Failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(result.Failed))
	}
	if result.Failed[0].ID != ids[0] {
		t.Errorf("failed ID = %s, want %s", result.Failed[0].ID, ids[0])
	}
	if !errors.Is(result.Failed[0].Err, engine.ErrInvalidTransition) {
		t.Errorf("failure err = %v, want ErrInvalidTransition", result.Failed[0].Err)
	}
	item, err := f.store.PayrollItems().Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if item.PaymentRef != "DV-2026-001" {
		t.Errorf("payment ref = %q, want original DV-2026-001", item.PaymentRef)
	}
}

func TestBulkFinalize_MixedStates_PartialSuccess(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	inputs := f.seedEmployees(t, 2)
	ids := f.processAll(t, inputs)
	if err := f.lifecycle.Finalize(ctx, ids[0], "hr-officer"); err != nil {
		t.Fatalf("pre-finalize: %v", err)
	}

	result := f.lifecycle.BulkFinalize(ctx, ids, "hr-officer")
	if len(result.Succeeded) != 2 {
		t.Errorf("succeeded = %d, want 2", len(result.Succeeded))
	}
	if len(result.Failed) != 1 {
		t.Errorf("failed = %d, want 1", len(result.Failed))
	}
}

// =============================================================================
// PERIOD TRANSITIONS
// =============================================================================

func TestCompletePeriod_UnfinalizedItems_NamesBlockers(t *testing.T) {
	// GIVEN: two processed items, one finalized
	f := newPayrollFixture(t)
	ctx := context.Background()
	inputs := f.seedEmployees(t, 1)
	ids := f.processAll(t, inputs)
	if err := f.lifecycle.Finalize(ctx, ids[0], "hr-officer"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// WHEN: completing the period
	err := f.lifecycle.CompletePeriod(ctx, f.period.ID)

	// THEN: the error names exactly the unfinalized item
	var incomplete *engine.IncompleteChildrenError
	if !errors.As(err, &incomplete) {
		t.Fatalf("err = %v, want *IncompleteChildrenError", err)
	}
	if len(incomplete.ItemIDs) != 1 || incomplete.ItemIDs[0] != ids[1] {
		t.Errorf("blocking items = %v, want [%s]", incomplete.ItemIDs, ids[1])
	}
}

func TestDeletePeriod_OnlyFromCompleted(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	ids := f.processAll(t, []payroll.ComputeInput{f.standardInput()})

	// Processing period: delete rejected.
	err := f.lifecycle.DeletePeriod(ctx, f.period.ID)
	if !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	if err := f.lifecycle.Finalize(ctx, ids[0], "hr-officer"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := f.lifecycle.CompletePeriod(ctx, f.period.ID); err != nil {
		t.Fatalf("complete period: %v", err)
	}

	// Completed period: soft delete allowed, and the period drops out of Get.
	if err := f.lifecycle.DeletePeriod(ctx, f.period.ID); err != nil {
		t.Fatalf("delete period: %v", err)
	}
	_, err = f.store.Periods().Get(ctx, f.period.ID)
	if !engine.IsNotFound(err) {
		t.Fatalf("get deleted period err = %v, want not-found", err)
	}
}
