/*
Package benefit implements benefit-cycle computation and the benefit
item/cycle lifecycles. A cycle is a named batch run of one benefit type for
one year ("2024 Mid-Year Bonus"); each employee gets exactly one item per
cycle, eligible or not.

CYCLE STATE MACHINE:
  Draft -> Processing -> Completed -> Released
  Cancelled reachable from Draft/Processing/Completed (never from Released).

ITEM STATE MACHINE:
  Draft -> Calculated -> Approved -> Paid, with Cancelled as a side exit
  for non-Paid items when the cycle is cancelled.

AMOUNT INVARIANTS:
  final_amount = calculated_amount + sum(Increase) - sum(Decrease),
                 or the latest Override amount when one exists
  net_amount   = final_amount - tax_amount
*/
package benefit

import (
	"context"
	"time"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// BENEFIT CYCLE
// =============================================================================

type CycleStatus string

const (
	CycleDraft      CycleStatus = "draft"
	CycleProcessing CycleStatus = "processing"
	CycleCompleted  CycleStatus = "completed"
	CycleReleased   CycleStatus = "released"
	CycleCancelled  CycleStatus = "cancelled"
)

// Cycle is one batch run of a benefit type. (BenefitType, Year, Name) is
// unique. TotalAmount and EmployeeCount are derived aggregates, recomputed
// from child items at calculation/transition time - never incremented in
// place.
type Cycle struct {
	ID             engine.CycleID
	BenefitTypeID  engine.RateTypeID
	Year           int
	Name           string
	ApplicableDate engine.Date
	Status         CycleStatus
	TotalAmount    engine.Money
	EmployeeCount  int
	CancelReason   string
}

// =============================================================================
// BENEFIT ITEM
// =============================================================================

type ItemStatus string

const (
	ItemDraft      ItemStatus = "draft"
	ItemCalculated ItemStatus = "calculated"
	ItemApproved   ItemStatus = "approved"
	ItemPaid       ItemStatus = "paid"
	ItemCancelled  ItemStatus = "cancelled"
)

// Terminal reports whether the item can no longer change at all.
func (s ItemStatus) Terminal() bool { return s == ItemPaid || s == ItemCancelled }

// AcceptsAdjustments reports whether the item may still receive
// adjustments. An Approved item deliberately still accepts corrective
// adjustments before payment.
func (s ItemStatus) AcceptsAdjustments() bool {
	return s == ItemDraft || s == ItemCalculated || s == ItemApproved
}

// Item is one employee's computed benefit for one cycle. Exactly one
// exists per (cycle, employee); recomputation updates in place.
type Item struct {
	ID               engine.ItemID
	CycleID          engine.CycleID
	EmployeeID       engine.EmployeeID
	BaseSalary       engine.Money
	ServiceMonths    int
	IsEligible       bool
	EligibilityNotes string
	CalculatedAmount engine.Money
	AdjustmentAmount engine.Money // net effect of the adjustment ledger
	FinalAmount      engine.Money
	TaxAmount        engine.Money
	NetAmount        engine.Money
	TaxRate          engine.Money // percent snapshot from the benefit type
	Status           ItemStatus
	PaymentRef       string
}

// =============================================================================
// ADJUSTMENT - Append-only manual correction
// =============================================================================

type AdjustmentType string

const (
	AdjustIncrease AdjustmentType = "increase"
	AdjustDecrease AdjustmentType = "decrease"
	AdjustOverride AdjustmentType = "override"
)

// Adjustment is one append-only ledger entry against a benefit item.
// Entries are never edited or deleted; a wrong adjustment is corrected by
// appending a compensating one.
type Adjustment struct {
	ID         engine.AdjustmentID
	ItemID     engine.ItemID
	Type       AdjustmentType
	Amount     engine.Money
	Reason     string
	ApprovedBy string
	CreatedAt  time.Time
}

// =============================================================================
// CYCLE SUMMARY - Batch calculation outcome
// =============================================================================

type CycleSummary struct {
	TotalEmployees      int
	EligibleEmployees   int
	IneligibleEmployees int
	TotalAmount         engine.Money
	AverageBenefit      engine.Money
	Failed              []Failure
}

type Failure struct {
	ID  engine.ItemID
	Err error
}

// BatchResult reports a best-effort bulk item operation.
type BatchResult struct {
	Succeeded []engine.ItemID
	Failed    []Failure
}

func (r BatchResult) AffectedRows() int { return len(r.Succeeded) }

// =============================================================================
// STORE PORTS
// =============================================================================

type CycleStore interface {
	Get(ctx context.Context, id engine.CycleID) (Cycle, error)
	Create(ctx context.Context, c Cycle) error
	List(ctx context.Context) ([]Cycle, error)

	// Transition is a status compare-and-swap; the second of two
	// concurrent identical transitions observes ErrInvalidTransition.
	Transition(ctx context.Context, id engine.CycleID, from []CycleStatus, to CycleStatus) error

	// UpdateAggregates stores the derived totals computed from child items.
	UpdateAggregates(ctx context.Context, id engine.CycleID, total engine.Money, count int) error

	// SetCancelReason records why a cycle was cancelled.
	SetCancelReason(ctx context.Context, id engine.CycleID, reason string) error
}

type ItemStore interface {
	Find(ctx context.Context, cycle engine.CycleID, employee engine.EmployeeID) (Item, error)
	Get(ctx context.Context, id engine.ItemID) (Item, error)
	ListByCycle(ctx context.Context, cycle engine.CycleID) ([]Item, error)

	// Replace upserts the item; (cycle, employee) uniqueness is enforced
	// by the store and duplicate races convert into updates.
	Replace(ctx context.Context, item Item) error

	// UpdateAmounts rewrites the adjustment-derived fields after a ledger
	// append. Calculated fields of frozen items are never rewritten; only
	// adjustment/final/tax/net move, and only while the status allows it.
	UpdateAmounts(ctx context.Context, id engine.ItemID, adjustment, final, tax, net engine.Money) error

	Transition(ctx context.Context, id engine.ItemID, from []ItemStatus, to ItemStatus) error
	MarkPaid(ctx context.Context, id engine.ItemID, ref string) error

	// CancelNonPaid cascades Cancelled to every non-Paid item of the
	// cycle, returning how many were cancelled. Paid items are untouched.
	CancelNonPaid(ctx context.Context, cycle engine.CycleID) (int, error)
}

type AdjustmentStore interface {
	Append(ctx context.Context, adj Adjustment) error
	ListByItem(ctx context.Context, item engine.ItemID) ([]Adjustment, error)
}
