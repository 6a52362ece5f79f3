// Package settlement adapts the external blockchain settlement network
// behind a request/response contract. The network is a black box here:
// only its endpoints and eventual status matter.
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/points-ledger/internal/ledger"
)

// DefaultTimeout bounds one settlement round-trip. On expiry the
// submission resolves to FAILED rather than leaving the caller blocked.
const DefaultTimeout = 10 * time.Second

// Client talks to the settlement service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

var _ ledger.SettlementClient = (*Client)(nil)

// New creates a client for the settlement service at baseURL. A zero
// timeout falls back to DefaultTimeout.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type submitRequest struct {
	UserID        string `json:"userId"`
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transactionId"`
}

type submitResponse struct {
	TxHash string `json:"txHash"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

var endpoints = map[ledger.SettlementOp]string{
	ledger.OpTrade:  "/blockchain/trade",
	ledger.OpPay:    "/blockchain/pay",
	ledger.OpAnchor: "/blockchain/anchor-receipt",
}

// Submit posts one operation to the settlement network. The service is
// idempotent keyed on transactionID, so a retried call after a timeout
// cannot double-settle. Every transport-level failure maps to a FAILED
// result; Submit never returns an error.
func (c *Client) Submit(ctx context.Context, op ledger.SettlementOp, accountID string, amount int64, transactionID string) ledger.SettlementResult {
	path, ok := endpoints[op]
	if !ok {
		return failed(fmt.Sprintf("unknown settlement operation %q", op))
	}

	body, err := json.Marshal(submitRequest{
		UserID:        accountID,
		Amount:        amount,
		TransactionID: transactionID,
	})
	if err != nil {
		return failed(fmt.Sprintf("encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return failed(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("op", string(op)).Str("tx", transactionID).Msg("settlement request failed")
		return failed(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("op", string(op)).Str("tx", transactionID).Msg("settlement rejected")
		return failed(fmt.Sprintf("settlement service returned %d", resp.StatusCode))
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return failed(fmt.Sprintf("decode response: %v", err))
	}

	if out.Status != string(ledger.SettlementSuccess) {
		return ledger.SettlementResult{Status: ledger.SettlementFailed, ErrorDetail: out.Error}
	}
	return ledger.SettlementResult{Reference: out.TxHash, Status: ledger.SettlementSuccess}
}

// Status queries the network for the state of a settled transaction by
// its reference hash.
func (c *Client) Status(ctx context.Context, reference string) (string, error) {
	endpoint := c.baseURL + "/blockchain/status?txId=" + url.QueryEscape(reference)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build status request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("settlement status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("settlement service returned %d", resp.StatusCode)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode status response: %w", err)
	}
	return out.Status, nil
}

func failed(detail string) ledger.SettlementResult {
	return ledger.SettlementResult{Status: ledger.SettlementFailed, ErrorDetail: detail}
}
