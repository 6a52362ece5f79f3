package ledger

import "context"

// SettlementOp names an operation on the external settlement network.
type SettlementOp string

const (
	OpTrade  SettlementOp = "trade"
	OpPay    SettlementOp = "pay"
	OpAnchor SettlementOp = "anchor"
)

// SettlementStatus is the terminal outcome reported by the settlement
// network. There is no pending value at this boundary: the client blocks
// for the round-trip and maps timeouts and transport failures to FAILED.
type SettlementStatus string

const (
	SettlementSuccess SettlementStatus = "SUCCESS"
	SettlementFailed  SettlementStatus = "FAILED"
)

// SettlementResult carries the network's answer for one submission.
// Reference is set only on success.
type SettlementResult struct {
	Reference   string
	Status      SettlementStatus
	ErrorDetail string
}

// SettlementClient submits operations to the settlement network.
// Submissions are idempotent keyed on transactionID, so a retry after a
// timeout cannot double-settle. Implementations never return a transport
// error: any failure to reach the network resolves to a FAILED result,
// leaving the caller a terminal decision rather than an exception.
type SettlementClient interface {
	Submit(ctx context.Context, op SettlementOp, accountID string, amount int64, transactionID string) SettlementResult
}
