package ledger_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/points-ledger/internal/ledger"
	"github.com/example/points-ledger/internal/storage/memory"
	"github.com/example/points-ledger/pkg/audit"
)

type scriptedSettler struct {
	result ledger.SettlementResult
}

func (s *scriptedSettler) Submit(ctx context.Context, op ledger.SettlementOp, accountID string, amount int64, transactionID string) ledger.SettlementResult {
	return s.result
}

// TestEndToEndScenario walks the full earn/transfer/redeem/trade sequence
// against the real memory store.
func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	settler := &scriptedSettler{}
	engine, err := ledger.NewEngine(ledger.Config{
		Store:      memory.New(),
		Settlement: settler,
		Trail:      audit.NewTrail(),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	// Two earns of 100 each.
	_, err = engine.Earn(ctx, "A", 100, "signup")
	require.NoError(t, err)
	_, err = engine.Earn(ctx, "A", 100, "purchase")
	require.NoError(t, err)

	balance, err := engine.Balance(ctx, "A")
	require.NoError(t, err)
	assert.EqualValues(t, 200, balance)

	// Transfer 50 to B.
	debit, credit, err := engine.Transfer(ctx, "A", "B", 50, "gift")
	require.NoError(t, err)
	assert.Equal(t, debit.ID, credit.LinkedID)

	balance, err = engine.Balance(ctx, "A")
	require.NoError(t, err)
	assert.EqualValues(t, 150, balance)
	balance, err = engine.Balance(ctx, "B")
	require.NoError(t, err)
	assert.EqualValues(t, 50, balance)

	// Over-redeem fails and leaves the balance alone.
	_, err = engine.Redeem(ctx, "A", 200, "too much")
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	balance, err = engine.Balance(ctx, "A")
	require.NoError(t, err)
	assert.EqualValues(t, 150, balance)

	// Trade settles successfully.
	settler.result = ledger.SettlementResult{Reference: "0xref", Status: ledger.SettlementSuccess}
	trade, err := engine.TradeOnBlockchain(ctx, "A", 50)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSuccess, trade.Status)
	assert.Equal(t, "0xref", trade.Reference)

	balance, err = engine.Balance(ctx, "A")
	require.NoError(t, err)
	assert.EqualValues(t, 100, balance)

	// History shows everything, newest first.
	history, err := engine.History(ctx, "A")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, ledger.KindTrade, history[0].Kind)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Timestamp.After(history[i-1].Timestamp),
			"history must be ordered newest first")
	}
}
