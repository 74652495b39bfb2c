package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Advisory lock key serializing first-time code allocation. Postgres cannot
// row-lock a row that does not exist yet, so every allocator takes this
// transaction-scoped lock before scanning for the max suffix.
const codeAllocLockID = 0x70726F62 // "prob"

// GetClientCode returns the code assigned to the client, or ErrNotFound.
func (s *PostgresStore) GetClientCode(ctx context.Context, clientID int64) (string, error) {
	const q = `SELECT code FROM clients WHERE client_id = $1;`
	var code string
	err := s.pool.QueryRow(ctx, q, clientID).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get client code: %w", err)
	}
	return code, nil
}

// GetOrCreateClientCode returns the client's code, allocating the next
// sequential one on first contact. Allocation is atomic under concurrent
// callers: the read, the max-suffix scan and the insert all happen inside
// one transaction holding the allocation advisory lock.
func (s *PostgresStore) GetOrCreateClientCode(ctx context.Context, clientID int64) (string, error) {
	var code string
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1);`, codeAllocLockID); err != nil {
			return fmt.Errorf("acquire allocation lock: %w", err)
		}

		err := tx.QueryRow(ctx, `SELECT code FROM clients WHERE client_id = $1 FOR UPDATE;`, clientID).Scan(&code)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("read client code: %w", err)
		}

		rows, err := tx.Query(ctx, `SELECT code FROM clients WHERE code LIKE $1;`, s.prefix+"-%")
		if err != nil {
			return fmt.Errorf("scan existing codes: %w", err)
		}
		var codes []string
		for rows.Next() {
			var c string
			if err := rows.Scan(&c); err != nil {
				rows.Close()
				return fmt.Errorf("scan code: %w", err)
			}
			codes = append(codes, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate codes: %w", err)
		}

		code = FormatClientCode(s.prefix, maxCodeNumber(s.prefix, codes)+1)
		if _, err := tx.Exec(ctx, `INSERT INTO clients (client_id, code) VALUES ($1, $2);`, clientID, code); err != nil {
			return fmt.Errorf("insert client: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}
