package ledger

import (
	"fmt"
	"time"
)

// Kind classifies a point transaction and determines the sign applied
// when its amount is folded into a balance.
type Kind string

const (
	KindEarn     Kind = "EARN"
	KindRedeem   Kind = "REDEEM"
	KindTransfer Kind = "TRANSFER"
	KindTrade    Kind = "TRADE"
	KindPay      Kind = "PAY"
)

// Status tracks a transaction through its lifecycle. EARN, REDEEM and
// TRANSFER are written SUCCESS directly; TRADE and PAY start PENDING and
// move to exactly one terminal status once settlement resolves.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// signs maps each kind to the multiplier applied at balance time.
// TRANSFER legs are stored pre-signed (debit negative, credit positive),
// so the multiplier is 1 and the fold stays a plain sum.
var signs = map[Kind]int64{
	KindEarn:     1,
	KindRedeem:   -1,
	KindTrade:    -1,
	KindPay:      -1,
	KindTransfer: 1,
}

// Sign returns the balance multiplier for k and an error for unknown kinds.
func (k Kind) Sign() (int64, error) {
	s, ok := signs[k]
	if !ok {
		return 0, fmt.Errorf("unknown transaction kind %q", k)
	}
	return s, nil
}

// Valid reports whether k is one of the closed set of kinds.
func (k Kind) Valid() bool {
	_, ok := signs[k]
	return ok
}

// Transaction is the single entity of the ledger: one immutable record of
// points moving in or out of an account. Once written, only Status and
// Reference may change, and only from PENDING to a terminal status.
type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Kind        Kind      `json:"kind"`
	Amount      int64     `json:"amount"`
	Status      Status    `json:"status"`
	Reference   string    `json:"reference,omitempty"`        // settlement network tx hash
	LinkedID    string    `json:"linked_id,omitempty"`        // credit leg -> debit leg
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Signed returns the amount this record contributes to its account's
// balance. Callers must only apply it to SUCCESS records.
func (t *Transaction) Signed() (int64, error) {
	sign, err := t.Kind.Sign()
	if err != nil {
		return 0, err
	}
	return sign * t.Amount, nil
}
