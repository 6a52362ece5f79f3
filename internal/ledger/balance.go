package ledger

import (
	"context"
	"fmt"
)

// Calculator derives account balances from the transaction log. Balance is
// never stored as a counter: it is always the fold of the account's
// SUCCESS records, which keeps the record set the single source of truth
// and makes every balance replayable from history.
type Calculator struct {
	store Store
}

// NewCalculator creates a balance calculator over the given store.
func NewCalculator(store Store) *Calculator {
	return &Calculator{store: store}
}

// Balance folds the account's SUCCESS records through the kind sign table.
// PENDING and FAILED records are excluded, so in-flight or rejected
// settlement never affects spendable balance. A negative result is
// possible only if invariants were violated elsewhere; callers should
// treat it as a consistency error.
func (c *Calculator) Balance(ctx context.Context, accountID string) (int64, error) {
	if accountID == "" {
		return 0, fmt.Errorf("account ID is required")
	}

	recs, err := c.store.FindByAccountAndStatus(ctx, accountID, StatusSuccess)
	if err != nil {
		return 0, storeErr("query success records", err)
	}

	var balance int64
	for i := range recs {
		signed, err := recs[i].Signed()
		if err != nil {
			return 0, fmt.Errorf("record %s: %w", recs[i].ID, err)
		}
		balance += signed
	}
	return balance, nil
}
