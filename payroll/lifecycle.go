/*
lifecycle.go - Payroll item state machine and bulk operations

PURPOSE:
  Enforces the legal transitions around the item computation:

    Draft -> Processed -> Finalized -> Paid
                 ^            |
                 +-- reopen --+   (only while the parent period is not Paid)

  recalculate() is not a transition: it refreshes a Draft/Processed item's
  values in place and is rejected from Finalized/Paid.

CONCURRENCY:
  Transitions are compare-and-swap operations in the store. Two concurrent
  finalize calls serialize at the store; the second observes the advanced
  state and fails with ErrInvalidTransition rather than double-applying.

BULK SEMANTICS:
  bulkFinalize/bulkMarkPaid apply the single-item transition per id and
  report per-item success/failure; partial failure never rolls back
  successes.
*/
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/payroll-engine/engine"
)

// AuthorizeFunc is the caller-supplied authorization gate for finalize and
// payment operations. A nil gate allows everything (trusted caller).
type AuthorizeFunc func(ctx context.Context, actor, operation string) bool

// =============================================================================
// LIFECYCLE
// =============================================================================

type Lifecycle struct {
	Engine    *ItemEngine
	Items     ItemStore
	Periods   PeriodStore
	Authorize AuthorizeFunc
}

func (l *Lifecycle) authorized(ctx context.Context, actor, operation string) error {
	if l.Authorize == nil {
		return nil
	}
	if !l.Authorize(ctx, actor, operation) {
		return fmt.Errorf("%s by %s: %w", operation, actor, engine.ErrUnauthorized)
	}
	return nil
}

// Process computes items for a set of employees and moves them to
// Processed. The parent period must be Draft or Processing; a Draft period
// advances to Processing. Employees are processed independently: one
// failure never blocks or invalidates the others.
func (l *Lifecycle) Process(ctx context.Context, periodID engine.PeriodID, inputs []ComputeInput) (*BatchResult, error) {
	period, err := l.Periods.Get(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load period: %w", err)
	}
	switch period.Status {
	case PeriodDraft:
		if err := l.Periods.Transition(ctx, periodID, []PeriodStatus{PeriodDraft}, PeriodProcessing); err != nil {
			return nil, err
		}
		period.Status = PeriodProcessing
	case PeriodProcessing:
		// re-entrant batch
	default:
		return nil, &engine.TransitionError{ID: string(periodID), From: string(period.Status), To: string(PeriodProcessing)}
	}

	result := &BatchResult{}
	for _, input := range inputs {
		item, _, err := l.Engine.Compute(ctx, period, input)
		if err != nil {
			result.Failed = append(result.Failed, Failure{ID: engine.ItemID(input.EmployeeID), Err: err})
			continue
		}
		if item.Status == ItemDraft {
			if err := l.Items.Transition(ctx, item.ID, []ItemStatus{ItemDraft}, ItemProcessed); err != nil {
				result.Failed = append(result.Failed, Failure{ID: item.ID, Err: err})
				continue
			}
		}
		result.Succeeded = append(result.Succeeded, item.ID)
	}
	return result, nil
}

// Recalculate refreshes a Draft/Processed item in place. Not a transition:
// the status is unchanged, the values are recomputed. Rejected from
// Finalized/Paid with ErrItemLocked.
func (l *Lifecycle) Recalculate(ctx context.Context, itemID engine.ItemID) (*Item, error) {
	item, err := l.Items.Get(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	period, err := l.Periods.Get(ctx, item.PeriodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load period: %w", err)
	}
	recomputed, _, err := l.Engine.Recompute(ctx, item, period)
	if err != nil {
		return nil, err
	}
	return recomputed, nil
}

// Finalize freezes a Processed item. Irreversible except via Reopen.
func (l *Lifecycle) Finalize(ctx context.Context, itemID engine.ItemID, actor string) error {
	if err := l.authorized(ctx, actor, "finalize"); err != nil {
		return err
	}
	return l.Items.Transition(ctx, itemID, []ItemStatus{ItemProcessed}, ItemFinalized)
}

// MarkPaid records payment on a Finalized item. Terminal for normal flow.
func (l *Lifecycle) MarkPaid(ctx context.Context, itemID engine.ItemID, paymentRef string) error {
	if paymentRef == "" {
		return &engine.ValidationError{Field: "payment_ref", Detail: "required"}
	}
	return l.Items.MarkPaid(ctx, itemID, paymentRef)
}

// Reopen moves a Finalized item back to Draft. The precondition (parent
// period not yet Paid) is re-validated here, never trusted from the caller.
func (l *Lifecycle) Reopen(ctx context.Context, itemID engine.ItemID) error {
	item, err := l.Items.Get(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to load item: %w", err)
	}
	period, err := l.Periods.Get(ctx, item.PeriodID)
	if err != nil {
		return fmt.Errorf("failed to load period: %w", err)
	}
	if period.Status == PeriodPaid {
		return &engine.TransitionError{ID: string(itemID), From: string(ItemFinalized), To: string(ItemDraft)}
	}
	return l.Items.Transition(ctx, itemID, []ItemStatus{ItemFinalized}, ItemDraft)
}

// =============================================================================
// BULK OPERATIONS - best-effort batch
// =============================================================================

// BulkFinalize applies Finalize per item and reports per-item outcomes.
func (l *Lifecycle) BulkFinalize(ctx context.Context, itemIDs []engine.ItemID, actor string) *BatchResult {
	result := &BatchResult{}
	for _, id := range itemIDs {
		if err := l.Finalize(ctx, id, actor); err != nil {
			result.Failed = append(result.Failed, Failure{ID: id, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result
}

// BulkMarkPaid applies MarkPaid per item and reports per-item outcomes.
// Already-paid items fail with ErrInvalidTransition and keep their
// original payment reference.
func (l *Lifecycle) BulkMarkPaid(ctx context.Context, itemIDs []engine.ItemID, paymentRef string) *BatchResult {
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
// PERIOD TRANSITIONS
// =============================================================================

// CompletePeriod moves Processing -> Completed once every item in the
// period is Finalized or Paid.
func (l *Lifecycle) CompletePeriod(ctx context.Context, periodID engine.PeriodID) error {
	items, err := l.Items.ListByPeriod(ctx, periodID)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	var blocking []engine.ItemID
	for _, item := range items {
		if !item.Status.Locked() {
			blocking = append(blocking, item.ID)
		}
	}
	if len(blocking) > 0 {
		return &engine.IncompleteChildrenError{
			Parent:   string(periodID),
			Required: string(ItemFinalized),
			ItemIDs:  blocking,
		}
	}
	return l.Periods.Transition(ctx, periodID, []PeriodStatus{PeriodProcessing}, PeriodCompleted)
}

// MarkPeriodPaid moves Completed -> Paid once every item is Paid.
func (l *Lifecycle) MarkPeriodPaid(ctx context.Context, periodID engine.PeriodID) error {
	items, err := l.Items.ListByPeriod(ctx, periodID)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	var blocking []engine.ItemID
	for _, item := range items {
		if item.Status != ItemPaid {
			blocking = append(blocking, item.ID)
		}
	}
	if len(blocking) > 0 {
		return &engine.IncompleteChildrenError{
			Parent:   string(periodID),
			Required: string(ItemPaid),
			ItemIDs:  blocking,
		}
	}
	return l.Periods.Transition(ctx, periodID, []PeriodStatus{PeriodCompleted}, PeriodPaid)
}

// DeletePeriod soft-deletes a period. Only permitted from Completed.
func (l *Lifecycle) DeletePeriod(ctx context.Context, periodID engine.PeriodID) error {
	period, err := l.Periods.Get(ctx, periodID)
	if err != nil {
		return fmt.Errorf("failed to load period: %w", err)
	}
	if period.Status != PeriodCompleted {
		return &engine.TransitionError{ID: string(periodID), From: string(period.Status), To: "deleted"}
	}
	return l.Periods.SoftDelete(ctx, periodID, time.Now().UTC())
}
