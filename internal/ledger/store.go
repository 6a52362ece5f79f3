package ledger

import "context"

// Store is the append-and-query log the ledger is built on. Records are
// append-only: implementations must reject any status update on a record
// that is not PENDING with ErrInvalidStateTransition, and must never
// mutate kind, amount, account or ID after a record is written.
//
// Only the Engine calls Append, AppendPair or UpdateStatus.
type Store interface {
	// Append durably writes one record.
	Append(ctx context.Context, rec Transaction) error

	// AppendPair writes both legs of a transfer as a single atomic
	// operation: either both records become durable or neither does.
	AppendPair(ctx context.Context, debit, credit Transaction) error

	// UpdateStatus moves a PENDING record to a terminal status and
	// stores the settlement reference, if any.
	UpdateStatus(ctx context.Context, id string, status Status, reference string) error

	// FindByAccount returns every record for the account, newest first.
	FindByAccount(ctx context.Context, accountID string) ([]Transaction, error)

	// FindByAccountAndStatus returns the account's records with the
	// given status, newest first.
	FindByAccountAndStatus(ctx context.Context, accountID string, status Status) ([]Transaction, error)
}
