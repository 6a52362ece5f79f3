package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/points-ledger/pkg/audit"
)

// Engine orchestrates every point-moving operation. It is the only
// component that creates transaction records or moves them to a terminal
// status; everything else reads the same store through the Calculator and
// Reader projections.
type Engine struct {
	store      Store
	balances   *Calculator
	history    *Reader
	settlement SettlementClient
	events     EventPublisher
	trail      *audit.Trail
	locks      *accountLocks
	log        zerolog.Logger

	anchorEarns bool
}

// Config wires an Engine. Store and Settlement are required; Events and
// Trail may be nil.
type Config struct {
	Store      Store
	Settlement SettlementClient
	Events     EventPublisher
	Trail      *audit.Trail
	Logger     zerolog.Logger

	// AnchorEarnReceipts submits a best-effort anchor of each EARN
	// receipt to the settlement network. Anchoring never blocks or
	// fails the earn.
	AnchorEarnReceipts bool
}

// NewEngine creates a ledger engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if cfg.Settlement == nil {
		return nil, fmt.Errorf("settlement client is required")
	}

	return &Engine{
		store:       cfg.Store,
		balances:    NewCalculator(cfg.Store),
		history:     NewReader(cfg.Store),
		settlement:  cfg.Settlement,
		events:      cfg.Events,
		trail:       cfg.Trail,
		locks:       newAccountLocks(),
		log:         cfg.Logger,
		anchorEarns: cfg.AnchorEarnReceipts,
	}, nil
}

func newRecord(accountID string, kind Kind, amount int64, status Status, description string) Transaction {
	return Transaction{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		Kind:        kind,
		Amount:      amount,
		Status:      status,
		Description: description,
		Timestamp:   time.Now().UTC(),
	}
}

func validateOp(accountID string, amount int64) error {
	if accountID == "" {
		return fmt.Errorf("%w: account ID is required", ErrInvalidArgument)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	return nil
}

// Earn credits points to an account. There is no sufficiency check; the
// record is written SUCCESS immediately and can only fail on store
// unavailability.
func (e *Engine) Earn(ctx context.Context, accountID string, amount int64, description string) (*Transaction, error) {
	if err := validateOp(accountID, amount); err != nil {
		return nil, err
	}

	rec := newRecord(accountID, KindEarn, amount, StatusSuccess, description)
	if err := e.store.Append(ctx, rec); err != nil {
		return nil, storeErr("append earn record", err)
	}

	e.audit("earn", rec)
	e.log.Info().Str("account", accountID).Int64("amount", amount).Str("tx", rec.ID).Msg("points earned")

	if e.anchorEarns {
		// Best-effort receipt anchor off the request path; the record is
		// already terminal and the outcome is audit-only, so the earn
		// never waits on the settlement round-trip.
		go func() {
			res := e.settlement.Submit(context.WithoutCancel(ctx), OpAnchor, accountID, amount, rec.ID)
			if res.Status != SettlementSuccess {
				e.log.Warn().Str("tx", rec.ID).Str("detail", res.ErrorDetail).Msg("receipt anchor failed")
			}
		}()
	}

	return &rec, nil
}

// Redeem spends points against the account's derived balance. The check
// and the append run under the account's lock, so two concurrent redeems
// cannot both pass against the same funds.
func (e *Engine) Redeem(ctx context.Context, accountID string, amount int64, description string) (*Transaction, error) {
	if err := validateOp(accountID, amount); err != nil {
		return nil, err
	}

	lock := e.locks.get(accountID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.requireBalance(ctx, accountID, amount); err != nil {
		return nil, err
	}

	rec := newRecord(accountID, KindRedeem, amount, StatusSuccess, description)
	if err := e.store.Append(ctx, rec); err != nil {
		return nil, storeErr("append redeem record", err)
	}

	e.audit("redeem", rec)
	e.log.Info().Str("account", accountID).Int64("amount", amount).Str("tx", rec.ID).Msg("points redeemed")
	return &rec, nil
}

// Transfer moves points between two accounts as two linked records of
// equal magnitude and opposite sign: the debit leg is written with a
// negative amount, the credit leg points back at it. Both legs are
// appended atomically, and both account locks are held in a fixed order
// for the duration of the check-and-write.
func (e *Engine) Transfer(ctx context.Context, fromID, toID string, amount int64, description string) (debit, credit *Transaction, err error) {
	if err := validateOp(fromID, amount); err != nil {
		return nil, nil, err
	}
	if toID == "" {
		return nil, nil, fmt.Errorf("%w: destination account ID is required", ErrInvalidArgument)
	}
	if fromID == toID {
		return nil, nil, fmt.Errorf("%w: source and destination accounts must be different", ErrInvalidArgument)
	}

	unlock := e.locks.lockPair(fromID, toID)
	defer unlock()

	if err := e.requireBalance(ctx, fromID, amount); err != nil {
		return nil, nil, err
	}

	d := newRecord(fromID, KindTransfer, -amount, StatusSuccess, description)
	c := newRecord(toID, KindTransfer, amount, StatusSuccess, description)
	c.LinkedID = d.ID
	c.Timestamp = d.Timestamp

	if err := e.store.AppendPair(ctx, d, c); err != nil {
		return nil, nil, storeErr("append transfer legs", err)
	}

	e.audit("transfer", d)
	e.log.Info().
		Str("from", fromID).
		Str("to", toID).
		Int64("amount", amount).
		Str("debit", d.ID).
		Str("credit", c.ID).
		Msg("points transferred")
	return &d, &c, nil
}

// TradeOnBlockchain trades points on the settlement network. A PENDING
// record reserves the intent before the external call; the record always
// reaches a terminal status, FAILED when the network declines or cannot
// be reached.
func (e *Engine) TradeOnBlockchain(ctx context.Context, accountID string, amount int64) (*Transaction, error) {
	return e.settleOp(ctx, KindTrade, OpTrade, accountID, amount, "Trade points on blockchain")
}

// PayWithPoints pays with points over the settlement network, with the
// same reservation discipline as TradeOnBlockchain.
func (e *Engine) PayWithPoints(ctx context.Context, accountID string, amount int64) (*Transaction, error) {
	return e.settleOp(ctx, KindPay, OpPay, accountID, amount, "Pay with points on blockchain")
}

func (e *Engine) settleOp(ctx context.Context, kind Kind, op SettlementOp, accountID string, amount int64, description string) (*Transaction, error) {
	if err := validateOp(accountID, amount); err != nil {
		return nil, err
	}

	lock := e.locks.get(accountID)
	lock.Lock()

	if err := e.requireBalance(ctx, accountID, amount); err != nil {
		lock.Unlock()
		return nil, err
	}

	rec := newRecord(accountID, kind, amount, StatusPending, description)
	if err := e.store.Append(ctx, rec); err != nil {
		lock.Unlock()
		return nil, storeErr("append pending record", err)
	}

	// The PENDING record is durable and visible; release the account so
	// other operations are not blocked on network latency. The narrower
	// race this reopens is accepted: balance only reflects terminal
	// outcomes.
	lock.Unlock()

	e.audit(string(op)+" submitted", rec)

	// The record must reach a terminal status even if the caller
	// disconnects mid-call.
	detached := context.WithoutCancel(ctx)
	res := e.settlement.Submit(detached, op, accountID, amount, rec.ID)

	status, reference := StatusFailed, ""
	if res.Status == SettlementSuccess {
		status, reference = StatusSuccess, res.Reference
	}

	if err := e.store.UpdateStatus(detached, rec.ID, status, reference); err != nil {
		return nil, storeErr("update settlement status", err)
	}
	rec.Status = status
	rec.Reference = reference

	e.audit(string(op)+" settled", rec)
	e.publishSettled(rec)

	if status == StatusFailed {
		e.log.Warn().
			Str("account", accountID).
			Str("tx", rec.ID).
			Str("detail", res.ErrorDetail).
			Msgf("%s settlement failed", op)
	} else {
		e.log.Info().
			Str("account", accountID).
			Str("tx", rec.ID).
			Str("reference", reference).
			Msgf("%s settled", op)
	}
	return &rec, nil
}

// Balance returns the account's current derived balance.
func (e *Engine) Balance(ctx context.Context, accountID string) (int64, error) {
	return e.balances.Balance(ctx, accountID)
}

// History returns the account's full audit trail, all statuses included.
func (e *Engine) History(ctx context.Context, accountID string) ([]Transaction, error) {
	return e.history.History(ctx, accountID)
}

// requireBalance must be called with the account's lock held.
func (e *Engine) requireBalance(ctx context.Context, accountID string, amount int64) error {
	balance, err := e.balances.Balance(ctx, accountID)
	if err != nil {
		return err
	}
	if balance < 0 {
		e.log.Error().Str("account", accountID).Int64("balance", balance).Msg("negative derived balance")
	}
	if balance < amount {
		return fmt.Errorf("%w: account %s has %d, requested %d", ErrInsufficientBalance, accountID, balance, amount)
	}
	return nil
}

func (e *Engine) audit(operation string, rec Transaction) {
	if e.trail == nil {
		return
	}
	e.trail.Record(operation, fmt.Sprintf("tx=%s account=%s kind=%s amount=%d status=%s",
		rec.ID, rec.AccountID, rec.Kind, rec.Amount, rec.Status))
}

func (e *Engine) publishSettled(rec Transaction) {
	if e.events == nil {
		return
	}
	ev := SettledEvent{
		TransactionID: rec.ID,
		AccountID:     rec.AccountID,
		Kind:          rec.Kind,
		Amount:        rec.Amount,
		Status:        rec.Status,
		Reference:     rec.Reference,
		OccurredAt:    time.Now().UTC(),
	}
	if err := e.events.Publish(TopicTransactionSettled, ev); err != nil {
		e.log.Warn().Err(err).Str("tx", rec.ID).Msg("failed to publish settlement event")
	}
}
