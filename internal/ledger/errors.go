package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBalance is returned when an operation would spend
	// more points than the account's derived balance holds. It is a
	// business-rule failure and is never retried automatically.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrStoreUnavailable wraps failures of the ledger store itself.
	// The operation aborts; no record was durably created.
	ErrStoreUnavailable = errors.New("ledger store unavailable")

	// ErrInvalidStateTransition is returned for a status update on a
	// record that is not PENDING. Records reach exactly one terminal
	// status and never leave it.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrRecordNotFound is returned by stores for unknown record IDs.
	ErrRecordNotFound = errors.New("transaction record not found")

	// ErrInvalidArgument marks rejected operation inputs, before any
	// record is created.
	ErrInvalidArgument = errors.New("invalid argument")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
