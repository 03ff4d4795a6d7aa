/*
lifecycle.go - Benefit cycle state machine and item approval/payment

PURPOSE:
  Enforces the cycle transitions and the item-level approval/payment flow:

    Cycle: Draft -> Processing -> Completed -> Released
           Cancelled from Draft/Processing/Completed (never Released)
    Item:  Draft -> Calculated -> Approved -> Paid

  Each cycle transition requires all child items to be at least as far
  along as the transition demands; otherwise it fails with
  ErrIncompleteChildren and lists the offending item ids.

AGGREGATES:
  total_amount and employee_count are recomputed from child items at
  calculation and transition time - never incremented in place - so they
  cannot drift from the items they summarize.
*/
package benefit

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/engine"
)

// AuthorizeFunc gates approve/release operations. Nil allows everything.
type AuthorizeFunc func(ctx context.Context, actor, operation string) bool

// =============================================================================
// CYCLE LIFECYCLE
// =============================================================================

type CycleLifecycle struct {
	Engine    *ItemEngine
	Items     ItemStore
	Cycles    CycleStore
	Employees engine.EmployeeRepository
	Authorize AuthorizeFunc
}

func (l *CycleLifecycle) authorized(ctx context.Context, actor, operation string) error {
	if l.Authorize == nil {
		return nil
	}
	if !l.Authorize(ctx, actor, operation) {
		return fmt.Errorf("%s by %s: %w", operation, actor, engine.ErrUnauthorized)
	}
	return nil
}

// Calculate runs the item engine for every employee in one batch and
// returns the summary. Allowed from Draft (advances to Processing) and
// from Processing, where re-invocation replaces all items for the cycle.
// Employees are processed independently; per-employee failures are
// collected into the summary and never abort siblings.
func (l *CycleLifecycle) Calculate(ctx context.Context, cycleID engine.CycleID) (*CycleSummary, error) {
	cycle, err := l.Cycles.Get(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cycle: %w", err)
	}
	switch cycle.Status {
	case CycleDraft:
		if err := l.Cycles.Transition(ctx, cycleID, []CycleStatus{CycleDraft}, CycleProcessing); err != nil {
			return nil, err
		}
		cycle.Status = CycleProcessing
	case CycleProcessing:
		// idempotent re-calculation
	default:
		return nil, &engine.TransitionError{ID: string(cycleID), From: string(cycle.Status), To: string(CycleProcessing)}
	}

	employees, err := l.Employees.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	summary := &CycleSummary{
		TotalAmount:    engine.ZeroMoney(),
		AverageBenefit: engine.ZeroMoney(),
	}
	for _, emp := range employees {
		item, err := l.Engine.Compute(ctx, cycle, emp.ID, ComputeOptions{})
		if err != nil {
			summary.Failed = append(summary.Failed, Failure{ID: engine.ItemID(emp.ID), Err: err})
			continue
		}
		summary.TotalEmployees++
		if item.IsEligible {
			summary.EligibleEmployees++
		} else {
			summary.IneligibleEmployees++
		}
		if item.Status == ItemDraft {
			if err := l.Items.Transition(ctx, item.ID, []ItemStatus{ItemDraft}, ItemCalculated); err != nil {
				summary.Failed = append(summary.Failed, Failure{ID: item.ID, Err: err})
				continue
			}
		}
		summary.TotalAmount = summary.TotalAmount.Add(item.FinalAmount)
	}
	if summary.EligibleEmployees > 0 {
		summary.AverageBenefit = summary.TotalAmount.
			Div(decimal.NewFromInt(int64(summary.EligibleEmployees))).
			Round2()
	}

	if err := l.refreshAggregates(ctx, cycleID); err != nil {
		return nil, err
	}
	return summary, nil
}

// Process moves Processing -> Completed once every item is at least
// Calculated.
func (l *CycleLifecycle) Process(ctx context.Context, cycleID engine.CycleID) error {
	if err := l.requireChildren(ctx, cycleID, "calculated", func(s ItemStatus) bool {
		return s != ItemDraft
	}); err != nil {
		return err
	}
	if err := l.Cycles.Transition(ctx, cycleID, []CycleStatus{CycleProcessing}, CycleCompleted); err != nil {
		return err
	}
	return l.refreshAggregates(ctx, cycleID)
}

// Release moves Completed -> Released once every item is Approved or Paid.
func (l *CycleLifecycle) Release(ctx context.Context, cycleID engine.CycleID, actor string) error {
	if err := l.authorized(ctx, actor, "release"); err != nil {
		return err
	}
	if err := l.requireChildren(ctx, cycleID, "approved", func(s ItemStatus) bool {
		return s == ItemApproved || s == ItemPaid || s == ItemCancelled
	}); err != nil {
		return err
	}
	if err := l.Cycles.Transition(ctx, cycleID, []CycleStatus{CycleCompleted}, CycleReleased); err != nil {
		return err
	}
	return l.refreshAggregates(ctx, cycleID)
}

// Cancel cancels a cycle from Draft/Processing/Completed, cascading
// Cancelled to all non-Paid items. When paid items exist the cancellation
// is rejected with ErrHasPaidItems unless the caller explicitly
// acknowledges partial cancellation; paid items are left untouched either
// way.
func (l *CycleLifecycle) Cancel(ctx context.Context, cycleID engine.CycleID, reason string, acknowledgePartial bool) error {
	if reason == "" {
		return &engine.ValidationError{Field: "reason", Detail: "required"}
	}

	items, err := l.Items.ListByCycle(ctx, cycleID)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	paid := 0
	for _, item := range items {
		if item.Status == ItemPaid {
			paid++
		}
	}
	if paid > 0 && !acknowledgePartial {
		return fmt.Errorf("cycle %s has %d paid item(s): %w", cycleID, paid, engine.ErrHasPaidItems)
	}

	from := []CycleStatus{CycleDraft, CycleProcessing, CycleCompleted}
	if err := l.Cycles.Transition(ctx, cycleID, from, CycleCancelled); err != nil {
		return err
	}
	if err := l.Cycles.SetCancelReason(ctx, cycleID, reason); err != nil {
		return err
	}
	if _, err := l.Items.CancelNonPaid(ctx, cycleID); err != nil {
		return fmt.Errorf("failed to cascade cancellation: %w", err)
	}
	return nil
}

// =============================================================================
// ITEM-LEVEL TRANSITIONS
// =============================================================================

// Approve moves one item Calculated -> Approved.
func (l *CycleLifecycle) Approve(ctx context.Context, itemID engine.ItemID, actor string) error {
	if err := l.authorized(ctx, actor, "approve"); err != nil {
		return err
	}
	return l.Items.Transition(ctx, itemID, []ItemStatus{ItemCalculated}, ItemApproved)
}

// MarkPaid moves one item Approved -> Paid, recording the payment
// reference.
func (l *CycleLifecycle) MarkPaid(ctx context.Context, itemID engine.ItemID, paymentRef string) error {
	if paymentRef == "" {
		return &engine.ValidationError{Field: "payment_ref", Detail: "required"}
	}
	return l.Items.MarkPaid(ctx, itemID, paymentRef)
}

// BulkApprove applies Approve per item, best-effort.
func (l *CycleLifecycle) BulkApprove(ctx context.Context, itemIDs []engine.ItemID, actor string) *BatchResult {
	result := &BatchResult{}
	for _, id := range itemIDs {
		if err := l.Approve(ctx, id, actor); err != nil {
			result.Failed = append(result.Failed, Failure{ID: id, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result
}

// BulkMarkPaid applies MarkPaid per item, best-effort. Already-paid items
// fail with ErrInvalidTransition and keep their payment reference.
func (l *CycleLifecycle) BulkMarkPaid(ctx context.Context, itemIDs []engine.ItemID, paymentRef string) *BatchResult {
	result := &BatchResult{}
	for _, id := range itemIDs {
		if err := l.MarkPaid(ctx, id, paymentRef); err != nil {
			result.Failed = append(result.Failed, Failure{ID: id, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result
}

// =============================================================================
// HELPERS
// =============================================================================

func (l *CycleLifecycle) requireChildren(ctx context.Context, cycleID engine.CycleID, required string, ok func(ItemStatus) bool) error {
	items, err := l.Items.ListByCycle(ctx, cycleID)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	var blocking []engine.ItemID
	for _, item := range items {
		if !ok(item.Status) {
			blocking = append(blocking, item.ID)
		}
	}
	if len(blocking) > 0 {
		return &engine.IncompleteChildrenError{
			Parent:   string(cycleID),
			Required: required,
			ItemIDs:  blocking,
		}
	}
	return nil
}

// refreshAggregates recomputes the cycle's derived totals from its items.
func (l *CycleLifecycle) refreshAggregates(ctx context.Context, cycleID engine.CycleID) error {
	items, err := l.Items.ListByCycle(ctx, cycleID)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	total := engine.ZeroMoney()
	count := 0
	for _, item := range items {
		if item.Status == ItemCancelled {
			continue
		}
		total = total.Add(item.FinalAmount)
		count++
	}
	return l.Cycles.UpdateAggregates(ctx, cycleID, total, count)
}
