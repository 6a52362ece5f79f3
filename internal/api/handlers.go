package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/points-ledger/internal/ledger"
)

type operationRequest struct {
	AccountID   string `json:"account_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
}

type transferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description,omitempty"`
}

type transactionResponse struct {
	Transaction ledger.Transaction `json:"transaction"`
}

type transferResponse struct {
	Debit  ledger.Transaction `json:"debit"`
	Credit ledger.Transaction `json:"credit"`
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func handleEarn(svc Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req operationRequest
		if !decode(w, r, &req) {
			return
		}

		rec, err := svc.Earn(r.Context(), req.AccountID, req.Amount, req.Description)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, transactionResponse{Transaction: *rec})
	}
}

func handleRedeem(svc Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req operationRequest
		if !decode(w, r, &req) {
			return
		}

		rec, err := svc.Redeem(r.Context(), req.AccountID, req.Amount, req.Description)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, transactionResponse{Transaction: *rec})
	}
}

func handleTransfer(svc Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if !decode(w, r, &req) {
			return
		}

		debit, credit, err := svc.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount, req.Description)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, transferResponse{Debit: *debit, Credit: *credit})
	}
}

func handleTrade(svc Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req operationRequest
		if !decode(w, r, &req) {
			return
		}

		rec, err := svc.TradeOnBlockchain(r.Context(), req.AccountID, req.Amount)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		// Terminal outcome is in the record; a declined settlement is a
		// FAILED transaction, not an HTTP error.
		writeJSON(w, r, http.StatusCreated, transactionResponse{Transaction: *rec})
	}
}

func handlePay(svc Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req operationRequest
		if !decode(w, r, &req) {
			return
		}

		rec, err := svc.PayWithPoints(r.Context(), req.AccountID, req.Amount)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, transactionResponse{Transaction: *rec})
	}
}

func handleBalance(svc Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			writeError(w, r, http.StatusBadRequest, "account_id query parameter is required")
			return
		}

		balance, err := svc.Balance(r.Context(), accountID)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{
			"account_id": accountID,
			"balance":    balance,
		})
	}
}

func handleHistory(svc Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			writeError(w, r, http.StatusBadRequest, "account_id query parameter is required")
			return
		}

		records, err := svc.History(r.Context(), accountID)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{
			"account_id":   accountID,
			"transactions": records,
		})
	}
}

func handleSettlementStatus(svc SettlementStatuser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := r.URL.Query().Get("reference")
		if reference == "" {
			writeError(w, r, http.StatusBadRequest, "reference query parameter is required")
			return
		}

		status, err := svc.Status(r.Context(), reference)
		if err != nil {
			writeError(w, r, http.StatusBadGateway, "settlement network unavailable")
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{
			"reference": reference,
			"status":    status,
		})
	}
}
