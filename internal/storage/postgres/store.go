// Package postgres implements the ledger store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/points-ledger/internal/ledger"
)

const queryTimeout = 5 * time.Second

// Store is a PostgreSQL-backed ledger.Store. Writes run under
// SERIALIZABLE isolation with a bounded retry on serialization failures.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store over an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ ledger.Store = (*Store)(nil)

// Connect opens a pool, verifies connectivity and returns a store.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(pool), nil
}

// Close closes the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

const insertRecord = `
	INSERT INTO point_transactions (
		id, account_id, kind, amount, status, reference, linked_id, description, ts
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

func (s *Store) Append(ctx context.Context, rec ledger.Transaction) error {
	return s.withRetry(ctx, func(queryCtx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(queryCtx, insertRecord,
			rec.ID, rec.AccountID, rec.Kind, rec.Amount, rec.Status,
			nullable(rec.Reference), nullable(rec.LinkedID), rec.Description, rec.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
		return nil
	})
}

func (s *Store) AppendPair(ctx context.Context, debit, credit ledger.Transaction) error {
	return s.withRetry(ctx, func(queryCtx context.Context, tx pgx.Tx) error {
		for _, rec := range []ledger.Transaction{debit, credit} {
			_, err := tx.Exec(queryCtx, insertRecord,
				rec.ID, rec.AccountID, rec.Kind, rec.Amount, rec.Status,
				nullable(rec.Reference), nullable(rec.LinkedID), rec.Description, rec.Timestamp)
			if err != nil {
				return fmt.Errorf("failed to insert transfer leg: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status ledger.Status, reference string) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: target status %s is not terminal", ledger.ErrInvalidStateTransition, status)
	}

	return s.withRetry(ctx, func(queryCtx context.Context, tx pgx.Tx) error {
		ct, err := tx.Exec(queryCtx, `
			UPDATE point_transactions
			SET status = $2, reference = $3
			WHERE id = $1 AND status = 'PENDING'
		`, id, status, nullable(reference))
		if err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		if ct.RowsAffected() == 1 {
			return nil
		}

		// Distinguish a missing record from a record already terminal.
		var current ledger.Status
		err = tx.QueryRow(queryCtx,
			`SELECT status FROM point_transactions WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ledger.ErrRecordNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to read record status: %w", err)
		}
		return fmt.Errorf("%w: record %s is %s", ledger.ErrInvalidStateTransition, id, current)
	})
}

func (s *Store) FindByAccount(ctx context.Context, accountID string) ([]ledger.Transaction, error) {
	return s.query(ctx, `
		SELECT id, account_id, kind, amount, status, reference, linked_id, description, ts
		FROM point_transactions
		WHERE account_id = $1
		ORDER BY ts DESC
	`, accountID)
}

func (s *Store) FindByAccountAndStatus(ctx context.Context, accountID string, status ledger.Status) ([]ledger.Transaction, error) {
	return s.query(ctx, `
		SELECT id, account_id, kind, amount, status, reference, linked_id, description, ts
		FROM point_transactions
		WHERE account_id = $1 AND status = $2
		ORDER BY ts DESC
	`, accountID, status)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]ledger.Transaction, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var recs []ledger.Transaction
	for rows.Next() {
		var rec ledger.Transaction
		var reference, linked *string
		err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Kind, &rec.Amount, &rec.Status,
			&reference, &linked, &rec.Description, &rec.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if reference != nil {
			rec.Reference = *reference
		}
		if linked != nil {
			rec.LinkedID = *linked
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return recs, nil
}

// withRetry runs fn in a SERIALIZABLE transaction, retrying bounded times
// on serialization failures the way concurrent writers are expected to
// collide under that isolation level.
func (s *Store) withRetry(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	const maxRetries = 3

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.inTx(ctx, fn)
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "40001" {
			if attempt == maxRetries-1 {
				return fmt.Errorf("failed after %d retries due to serialization failure: %w", maxRetries, err)
			}
			time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
			continue
		}
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := s.pool.Acquire(queryCtx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(queryCtx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(queryCtx)

	if err := fn(queryCtx, tx); err != nil {
		return err
	}

	if err := tx.Commit(queryCtx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
