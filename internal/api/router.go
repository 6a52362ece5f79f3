// Package api exposes the ledger engine over HTTP. It is a thin
// collaborator layer: request decoding, error mapping and logging live
// here, every invariant lives in the engine.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/example/points-ledger/internal/ledger"
)

// Ledger is the caller surface of the engine consumed by this package.
type Ledger interface {
	Earn(ctx context.Context, accountID string, amount int64, description string) (*ledger.Transaction, error)
	Redeem(ctx context.Context, accountID string, amount int64, description string) (*ledger.Transaction, error)
	Transfer(ctx context.Context, fromID, toID string, amount int64, description string) (*ledger.Transaction, *ledger.Transaction, error)
	TradeOnBlockchain(ctx context.Context, accountID string, amount int64) (*ledger.Transaction, error)
	PayWithPoints(ctx context.Context, accountID string, amount int64) (*ledger.Transaction, error)
	Balance(ctx context.Context, accountID string) (int64, error)
	History(ctx context.Context, accountID string) ([]ledger.Transaction, error)
}

var _ Ledger = (*ledger.Engine)(nil)

// SettlementStatuser queries the settlement network for a reference hash.
type SettlementStatuser interface {
	Status(ctx context.Context, reference string) (string, error)
}

// Dependencies wires the router.
type Dependencies struct {
	Logger     zerolog.Logger
	Ledger     Ledger
	Settlement SettlementStatuser // optional
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(CorrelationID)
	r.Use(RequestLogger(deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/points", func(r chi.Router) {
		r.Post("/earn", handleEarn(deps.Ledger))
		r.Post("/redeem", handleRedeem(deps.Ledger))
		r.Post("/transfer", handleTransfer(deps.Ledger))
		r.Post("/trade", handleTrade(deps.Ledger))
		r.Post("/pay", handlePay(deps.Ledger))
		r.Get("/balance", handleBalance(deps.Ledger))
		r.Get("/history", handleHistory(deps.Ledger))
	})

	if deps.Settlement != nil {
		r.Get("/settlement/status", handleSettlementStatus(deps.Settlement))
	}

	return r
}
