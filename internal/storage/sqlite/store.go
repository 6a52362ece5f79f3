// Package sqlite implements the ledger store on SQLite for single-binary
// deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/points-ledger/internal/ledger"
)

const schema = `
	CREATE TABLE IF NOT EXISTS point_transactions (
		id          TEXT PRIMARY KEY,
		account_id  TEXT NOT NULL,
		kind        TEXT NOT NULL CHECK (kind IN ('EARN', 'REDEEM', 'TRANSFER', 'TRADE', 'PAY')),
		amount      INTEGER NOT NULL,
		status      TEXT NOT NULL CHECK (status IN ('PENDING', 'SUCCESS', 'FAILED')),
		reference   TEXT,
		linked_id   TEXT,
		description TEXT NOT NULL DEFAULT '',
		ts          TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_point_transactions_account
		ON point_transactions (account_id, status, ts);
`

// Store is a SQLite-backed ledger.Store.
type Store struct {
	db *sql.DB
}

var _ ledger.Store = (*Store)(nil)

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids lock errors
	// under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const insertRecord = `
	INSERT INTO point_transactions (id, account_id, kind, amount, status, reference, linked_id, description, ts)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (s *Store) Append(ctx context.Context, rec ledger.Transaction) error {
	_, err := s.db.ExecContext(ctx, insertRecord,
		rec.ID, rec.AccountID, rec.Kind, rec.Amount, rec.Status,
		nullable(rec.Reference), nullable(rec.LinkedID), rec.Description, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *Store) AppendPair(ctx context.Context, debit, credit ledger.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range []ledger.Transaction{debit, credit} {
		_, err := tx.ExecContext(ctx, insertRecord,
			rec.ID, rec.AccountID, rec.Kind, rec.Amount, rec.Status,
			nullable(rec.Reference), nullable(rec.LinkedID), rec.Description, rec.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert transfer leg: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status ledger.Status, reference string) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: target status %s is not terminal", ledger.ErrInvalidStateTransition, status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE point_transactions
		SET status = ?, reference = ?
		WHERE id = ? AND status = 'PENDING'
	`, status, nullable(reference), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var current ledger.Status
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM point_transactions WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ledger.ErrRecordNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read record status: %w", err)
	}
	return fmt.Errorf("%w: record %s is %s", ledger.ErrInvalidStateTransition, id, current)
}

func (s *Store) FindByAccount(ctx context.Context, accountID string) ([]ledger.Transaction, error) {
	return s.query(ctx, `
		SELECT id, account_id, kind, amount, status, reference, linked_id, description, ts
		FROM point_transactions
		WHERE account_id = ?
		ORDER BY ts DESC, rowid DESC
	`, accountID)
}

func (s *Store) FindByAccountAndStatus(ctx context.Context, accountID string, status ledger.Status) ([]ledger.Transaction, error) {
	return s.query(ctx, `
		SELECT id, account_id, kind, amount, status, reference, linked_id, description, ts
		FROM point_transactions
		WHERE account_id = ? AND status = ?
		ORDER BY ts DESC, rowid DESC
	`, accountID, status)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var recs []ledger.Transaction
	for rows.Next() {
		var rec ledger.Transaction
		var reference, linked sql.NullString
		err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Kind, &rec.Amount, &rec.Status,
			&reference, &linked, &rec.Description, &rec.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Reference = reference.String
		rec.LinkedID = linked.String
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return recs, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
