/*
Package payroll implements per-period payroll computation and the payroll
item lifecycle. It uses the core engine for rate resolution and the pure
calculation rules, and adds the period/item model, the item state machine,
and best-effort bulk operations.

ITEM STATE MACHINE:
  Draft -> Processed -> Finalized -> Paid   (linear, no skipping)
  Finalized -> Draft via reopen, only while the parent period is not Paid.

IDEMPOTENT RECALCULATION:
  Computing an item for a (period, employee) pair that already has one is
  an update-in-place: all lines and totals are replaced atomically.
  Identical inputs produce byte-identical lines and totals; line IDs are
  derived from the item ID and position, never regenerated randomly.
*/
package payroll

import (
	"context"
	"time"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// PAYROLL PERIOD
// =============================================================================

type PeriodStatus string

const (
	PeriodDraft      PeriodStatus = "draft"
	PeriodProcessing PeriodStatus = "processing"
	PeriodCompleted  PeriodStatus = "completed"
	PeriodPaid       PeriodStatus = "paid"
)

// Period is one pay period. (Year, Month, PeriodNumber) is unique.
// Status is monotonic through processing. DeletedAt marks soft deletion,
// permitted only from Completed.
type Period struct {
	ID                  engine.PeriodID
	Year                int
	Month               time.Month
	PeriodNumber        int
	StartDate           engine.Date
	EndDate             engine.Date
	StandardWorkingDays int
	Status              PeriodStatus
	DeletedAt           *time.Time
}

// =============================================================================
// PAYROLL ITEM
// =============================================================================

type ItemStatus string

const (
	ItemDraft     ItemStatus = "draft"
	ItemProcessed ItemStatus = "processed"
	ItemFinalized ItemStatus = "finalized"
	ItemPaid      ItemStatus = "paid"
)

// Locked reports whether the item's calculated fields are frozen.
func (s ItemStatus) Locked() bool { return s == ItemFinalized || s == ItemPaid }

// Item is one employee's computed payroll for one period. Exactly one
// exists per (period, employee); recomputation updates in place.
//
// Invariants: GrossPay = BasicPay + TotalAllowances,
// NetPay = GrossPay - TotalDeductions (within 0.01).
type Item struct {
	ID              engine.ItemID
	PeriodID        engine.PeriodID
	EmployeeID      engine.EmployeeID
	WorkingDays     int
	DailyRate       engine.Money
	BasicPay        engine.Money
	TotalAllowances engine.Money
	TotalDeductions engine.Money
	GrossPay        engine.Money
	NetPay          engine.Money
	Status          ItemStatus
	PaymentRef      string
}

// =============================================================================
// ITEM LINE - One allowance/deduction/adjustment applied to an item
// =============================================================================

type LineKind string

const (
	LineAllowance  LineKind = "allowance"
	LineDeduction  LineKind = "deduction"
	LineAdjustment LineKind = "adjustment"
)

// ItemLine records one applied amount together with the source rate type
// (nil for free-form manual adjustments) and the calculation basis string
// used, for audit/explainability.
type ItemLine struct {
	ID          engine.LineID
	ItemID      engine.ItemID
	Kind        LineKind
	RateType    *engine.RateTypeID
	Description string
	Basis       string
	Amount      engine.Money
}

// ManualLine is a caller-supplied line for Manual rate types or free-form
// adjustments. A Manual type with no supplied line is omitted, not zero.
type ManualLine struct {
	Kind        LineKind
	RateType    *engine.RateTypeID
	Description string
	Amount      engine.Money
}

// =============================================================================
// BATCH RESULT - Best-effort bulk operation outcome
// =============================================================================

type Failure struct {
	ID  engine.ItemID
	Err error
}

// BatchResult reports a best-effort batch: partial failure does not roll
// back successes.
type BatchResult struct {
	Succeeded []engine.ItemID
	Failed    []Failure
}

func (r BatchResult) AffectedRows() int { return len(r.Succeeded) }

// =============================================================================
// STORE PORTS - Implemented by engine/store (memory) and store/sqlite
// =============================================================================

type PeriodStore interface {
	Get(ctx context.Context, id engine.PeriodID) (Period, error)
	Create(ctx context.Context, p Period) error
	List(ctx context.Context) ([]Period, error)

	// Transition performs a compare-and-swap on status: it succeeds only
	// when the current status is one of from. Concurrent callers
	// serialize here; the loser observes ErrInvalidTransition.
	Transition(ctx context.Context, id engine.PeriodID, from []PeriodStatus, to PeriodStatus) error

	// SoftDelete marks the period deleted. Permitted only from Completed.
	SoftDelete(ctx context.Context, id engine.PeriodID, at time.Time) error
}

type ItemStore interface {
	Find(ctx context.Context, period engine.PeriodID, employee engine.EmployeeID) (Item, error)
	Get(ctx context.Context, id engine.ItemID) (Item, error)
	Lines(ctx context.Context, id engine.ItemID) ([]ItemLine, error)
	ListByPeriod(ctx context.Context, period engine.PeriodID) ([]Item, error)

	// Replace upserts the item and atomically replaces all of its lines.
	// The (period, employee) uniqueness invariant is enforced by the store;
	// a concurrent duplicate insert is converted into an update.
	Replace(ctx context.Context, item Item, lines []ItemLine) error

	// Transition is a status compare-and-swap (see PeriodStore.Transition).
	Transition(ctx context.Context, id engine.ItemID, from []ItemStatus, to ItemStatus) error

	// MarkPaid transitions Finalized -> Paid and records the payment
	// reference in the same write.
	MarkPaid(ctx context.Context, id engine.ItemID, ref string) error
}
