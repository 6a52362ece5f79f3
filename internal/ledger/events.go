package ledger

import "time"

// TopicTransactionSettled receives one event per TRADE/PAY record that
// reaches a terminal status.
const TopicTransactionSettled = "transaction_settled"

// EventPublisher pushes ledger events to interested consumers. Publishing
// is best-effort: a publish failure never rolls back the ledger write it
// describes.
type EventPublisher interface {
	Publish(topic string, event any) error
}

// SettledEvent describes a settlement-backed transaction reaching its
// terminal status.
type SettledEvent struct {
	TransactionID string    `json:"transaction_id"`
	AccountID     string    `json:"account_id"`
	Kind          Kind      `json:"kind"`
	Amount        int64     `json:"amount"`
	Status        Status    `json:"status"`
	Reference     string    `json:"reference,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
