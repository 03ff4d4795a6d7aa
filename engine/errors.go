/*
errors.go - Centralized error types for the calculation engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  The payroll and benefit packages wrap these errors with item/cycle
  context; callers branch with errors.Is().

ERROR CATEGORIES:
  1. Calculation errors - abort a single employee's computation in a batch
     (ErrValidation, ErrRateResolution)
  2. Lifecycle errors - abort a single requested transition
     (ErrItemLocked, ErrAlreadyPaid, ErrInvalidTransition,
      ErrIncompleteChildren, ErrHasPaidItems)
  3. Store errors - surfaced from persistence
     (ErrDuplicateItem, ErrNotFound)

PROPAGATION:
  Calculation errors are collected into batch summaries and never abort
  sibling computations. Lifecycle errors are surfaced verbatim with the
  offending id(s) and are never retried automatically. ErrDuplicateItem is
  a benign race on recompute; stores convert it into an update.

USAGE:
  if errors.Is(err, engine.ErrItemLocked) {
      // record is frozen, reject the mutation
  }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed calculation input,
	// e.g. negative working days.
	ErrValidation = errors.New("validation failed")

	// ErrRateResolution is returned when a rate type cannot be resolved:
	// a Formula references an undefined variable, or a Percentage type has
	// no percentage base.
	ErrRateResolution = errors.New("rate resolution failed")

	// ErrItemLocked is returned when a mutation targets a Finalized or
	// Paid payroll item.
	ErrItemLocked = errors.New("item is locked")

	// ErrAlreadyPaid is returned when a mutation targets a Paid or
	// Cancelled benefit item.
	ErrAlreadyPaid = errors.New("item already paid or cancelled")

	// ErrInvalidTransition is returned for an illegal state-machine edge,
	// including the second of two concurrent identical transitions.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrIncompleteChildren is returned when a cycle transition is blocked
	// by child items that have not advanced far enough.
	ErrIncompleteChildren = errors.New("cycle has incomplete child items")

	// ErrHasPaidItems is returned when cancelling a cycle that contains
	// paid items without acknowledging partial cancellation.
	ErrHasPaidItems = errors.New("cycle has paid items")

	// ErrDuplicateItem is returned by stores on a (period|cycle, employee)
	// uniqueness violation. Engines treat it as a benign race and convert
	// the insert into an update.
	ErrDuplicateItem = errors.New("duplicate item for period and employee")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned when the caller-supplied authorization
	// gate rejects a finalize/approve/release operation.
	ErrUnauthorized = errors.New("operation not authorized")

	// ErrOverlappingOverride is returned when two active overrides for the
	// same (employee, rate type) pair have overlapping date ranges.
	ErrOverlappingOverride = errors.New("overlapping rate override")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RateResolutionError reports why a rate type could not be resolved.
type RateResolutionError struct {
	RateType RateTypeID
	Code     string // "undefined_variable", "missing_percentage_base", "bad_formula"
	Detail   string
}

func (e *RateResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve rate type %s: %s (%s)", e.RateType, e.Code, e.Detail)
}

func (e *RateResolutionError) Unwrap() error { return ErrRateResolution }

// TransitionError reports an illegal state-machine edge.
type TransitionError struct {
	ID   string
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition %s from %s to %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// IncompleteChildrenError lists the child items blocking a cycle transition.
type IncompleteChildrenError struct {
	Parent   string // period or cycle id
	Required string
	ItemIDs  []ItemID
}

func (e *IncompleteChildrenError) Error() string {
	return fmt.Sprintf("%s: %d item(s) not yet %s", e.Parent, len(e.ItemIDs), e.Required)
}

func (e *IncompleteChildrenError) Unwrap() error { return ErrIncompleteChildren }

// ValidationError reports malformed calculation input.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsCalculationError reports whether err aborts only one employee's
// computation within a batch (collected, never fatal to siblings).
func IsCalculationError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrRateResolution)
}

// IsLifecycleError reports whether err aborts a single requested transition.
func IsLifecycleError(err error) bool {
	return errors.Is(err, ErrItemLocked) ||
		errors.Is(err, ErrAlreadyPaid) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrIncompleteChildren) ||
		errors.Is(err, ErrHasPaidItems)
}

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
