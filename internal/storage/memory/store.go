// Package memory implements the ledger store as an in-process log.
// It backs tests and single-node development deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/points-ledger/internal/ledger"
)

// Store is an in-memory ledger.Store. The record log is append-only;
// status updates rewrite only the status and reference fields in place.
type Store struct {
	mu      sync.Mutex
	records []ledger.Transaction
	index   map[string]int // record ID -> position in records
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{index: make(map[string]int)}
}

var _ ledger.Store = (*Store)(nil)

func (s *Store) Append(ctx context.Context, rec ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(rec)
}

func (s *Store) AppendPair(ctx context.Context, debit, credit ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.appendLocked(debit); err != nil {
		return err
	}
	if err := s.appendLocked(credit); err != nil {
		// Roll the debit leg back so the pair stays atomic.
		delete(s.index, debit.ID)
		s.records = s.records[:len(s.records)-1]
		return err
	}
	return nil
}

func (s *Store) appendLocked(rec ledger.Transaction) error {
	if rec.ID == "" {
		return fmt.Errorf("record ID is required")
	}
	if _, exists := s.index[rec.ID]; exists {
		return fmt.Errorf("duplicate record ID %s", rec.ID)
	}
	s.index[rec.ID] = len(s.records)
	s.records = append(s.records, rec)
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status ledger.Status, reference string) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: target status %s is not terminal", ledger.ErrInvalidStateTransition, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrRecordNotFound, id)
	}
	if s.records[pos].Status != ledger.StatusPending {
		return fmt.Errorf("%w: record %s is %s", ledger.ErrInvalidStateTransition, id, s.records[pos].Status)
	}

	s.records[pos].Status = status
	s.records[pos].Reference = reference
	return nil
}

func (s *Store) FindByAccount(ctx context.Context, accountID string) ([]ledger.Transaction, error) {
	return s.find(accountID, func(ledger.Transaction) bool { return true })
}

func (s *Store) FindByAccountAndStatus(ctx context.Context, accountID string, status ledger.Status) ([]ledger.Transaction, error) {
	return s.find(accountID, func(t ledger.Transaction) bool { return t.Status == status })
}

func (s *Store) find(accountID string, keep func(ledger.Transaction) bool) ([]ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ledger.Transaction
	// Walk newest-insert-first so equal timestamps keep reverse
	// insertion order after the sort.
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].AccountID == accountID && keep(s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
