/*
ledger.go - Append-only adjustment ledger

PURPOSE:
  Manual adjustments to benefit items are never edits: each one is an
  immutable ledger entry, and the item's final amount is a derived value
  replayed from the full entry list. This keeps every correction traceable
  and makes the final amount reproducible from the ledger alone.

FINAL AMOUNT RULE:
  final = calculated + sum(Increase) - sum(Decrease)
  If any Override entries exist, the LATEST Override amount IS the final
  amount and every increase/decrease entry is ignored, whether it was
  appended before or after the override. Entries are kept in append order
  so "latest" is well defined.
*/
package benefit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// ADJUSTMENT LEDGER
// =============================================================================

type AdjustmentLedger struct {
	Store AdjustmentStore
}

func NewAdjustmentLedger(store AdjustmentStore) *AdjustmentLedger {
	return &AdjustmentLedger{Store: store}
}

// Append records one adjustment. Append-only: no update, no delete.
func (l *AdjustmentLedger) Append(ctx context.Context, itemID engine.ItemID, adjType AdjustmentType, amount engine.Money, reason, approvedBy string) (Adjustment, error) {
	switch adjType {
	case AdjustIncrease, AdjustDecrease, AdjustOverride:
	default:
		return Adjustment{}, &engine.ValidationError{Field: "adjustment_type", Detail: string(adjType)}
	}
	if reason == "" {
		return Adjustment{}, &engine.ValidationError{Field: "reason", Detail: "required"}
	}
	if amount.IsNegative() {
		return Adjustment{}, &engine.ValidationError{Field: "amount", Detail: "must not be negative; use a decrease adjustment"}
	}

	adj := Adjustment{
		ID:         engine.AdjustmentID(uuid.NewString()),
		ItemID:     itemID,
		Type:       adjType,
		Amount:     amount.Round2(),
		Reason:     reason,
		ApprovedBy: approvedBy,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.Store.Append(ctx, adj); err != nil {
		return Adjustment{}, fmt.Errorf("failed to append adjustment: %w", err)
	}
	return adj, nil
}

// Replay folds the item's adjustments (in append order) over its
// calculated amount and returns the net adjustment effect and the final
// amount.
func (l *AdjustmentLedger) Replay(ctx context.Context, itemID engine.ItemID, calculated engine.Money) (adjustment, final engine.Money, err error) {
	entries, err := l.Store.ListByItem(ctx, itemID)
	if err != nil {
		return engine.Money{}, engine.Money{}, fmt.Errorf("failed to list adjustments: %w", err)
	}
	final = ApplyAdjustments(calculated, entries)
	return final.Sub(calculated), final, nil
}

// ApplyAdjustments is the pure replay rule. Entries must be in append
// order; the latest Override, if any, is terminal and supersedes every
// increase/decrease entry.
func ApplyAdjustments(calculated engine.Money, entries []Adjustment) engine.Money {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Type == AdjustOverride {
			return entries[i].Amount
		}
	}
	final := calculated
	for _, adj := range entries {
		switch adj.Type {
		case AdjustIncrease:
			final = final.Add(adj.Amount)
		case AdjustDecrease:
			final = final.Sub(adj.Amount)
		}
	}
	return final
}
