package ledger

import (
	"context"
	"fmt"
)

// Reader is the caller-facing audit projection over the store. It returns
// records of every status, PENDING and FAILED included, so callers see
// in-flight and rejected settlement attempts. It never writes.
type Reader struct {
	store Store
}

// NewReader creates a history reader over the given store.
func NewReader(store Store) *Reader {
	return &Reader{store: store}
}

// History returns all of the account's records, newest first.
func (r *Reader) History(ctx context.Context, accountID string) ([]Transaction, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account ID is required")
	}

	recs, err := r.store.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, storeErr("query account records", err)
	}
	return recs, nil
}
