package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SetRecipient overwrites the client's shipping contact snapshot.
func (s *PostgresStore) SetRecipient(ctx context.Context, rec Recipient) error {
	const q = `
INSERT INTO recipients (client_id, full_name, phone, city, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (client_id) DO UPDATE SET
    full_name = EXCLUDED.full_name,
    phone = EXCLUDED.phone,
    city = EXCLUDED.city,
    updated_at = NOW();
`
	if _, err := s.pool.Exec(ctx, q, rec.ClientID, rec.FullName, rec.Phone, rec.City); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	return nil
}

// GetRecipient returns the latest recipient snapshot or ErrNotFound.
func (s *PostgresStore) GetRecipient(ctx context.Context, clientID int64) (*Recipient, error) {
	const q = `
SELECT client_id, full_name, phone, city, updated_at
FROM recipients
WHERE client_id = $1;
`
	var rec Recipient
	err := s.pool.QueryRow(ctx, q, clientID).Scan(&rec.ClientID, &rec.FullName, &rec.Phone, &rec.City, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get recipient: %w", err)
	}
	return &rec, nil
}

// NextShipmentSequence returns the client's next 1-based cargo sequence.
// Sequences are independent between clients.
func (s *PostgresStore) NextShipmentSequence(ctx context.Context, clientID int64) (int, error) {
	const q = `SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM shipments WHERE client_id = $1;`
	var next int
	if err := s.pool.QueryRow(ctx, q, clientID).Scan(&next); err != nil {
		return 0, fmt.Errorf("next shipment sequence: %w", err)
	}
	return next, nil
}

// CreateShipment stores a new cargo record and returns its id.
func (s *PostgresStore) CreateShipment(ctx context.Context, sh Shipment) (string, error) {
	if sh.ID == "" {
		sh.ID = uuid.NewString()
	}
	if sh.Status == "" {
		sh.Status = StatusBuilding
	}
	const q = `
INSERT INTO shipments (id, client_id, sequence_number, code, full_name, phone, city, delivery_method, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := s.pool.Exec(ctx, q,
		sh.ID, sh.ClientID, sh.SequenceNumber, sh.Code,
		sh.FullName, sh.Phone, sh.City, sh.DeliveryMethod, sh.Status,
	)
	if err != nil {
		return "", fmt.Errorf("create shipment: %w", err)
	}
	return sh.ID, nil
}

// FindClientByShipmentCode resolves a cargo code to its owner.
func (s *PostgresStore) FindClientByShipmentCode(ctx context.Context, code string) (int64, error) {
	const q = `SELECT client_id FROM shipments WHERE code = $1;`
	var id int64
	err := s.pool.QueryRow(ctx, q, code).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("find client by shipment code: %w", err)
	}
	return id, nil
}

// UpdateShipmentStatus sets the shipment's status. Re-issuing the current
// status is a no-op apart from the timestamp refresh.
func (s *PostgresStore) UpdateShipmentStatus(ctx context.Context, code string, status ShipmentStatus) error {
	const q = `UPDATE shipments SET status = $2, status_updated_at = NOW() WHERE code = $1;`
	ct, err := s.pool.Exec(ctx, q, code, status)
	if err != nil {
		return fmt.Errorf("update shipment status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListShipmentsByStatus returns the client's shipments in sequence order.
func (s *PostgresStore) ListShipmentsByStatus(ctx context.Context, clientID int64, status ShipmentStatus) ([]Shipment, error) {
	const q = `
SELECT id, client_id, sequence_number, code, full_name, phone, city, delivery_method, status, status_updated_at, created_at
FROM shipments
WHERE client_id = $1 AND status = $2
ORDER BY sequence_number ASC;
`
	rows, err := s.pool.Query(ctx, q, clientID, status)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	var shipments []Shipment
	for rows.Next() {
		var sh Shipment
		if err := rows.Scan(&sh.ID, &sh.ClientID, &sh.SequenceNumber, &sh.Code, &sh.FullName, &sh.Phone, &sh.City, &sh.DeliveryMethod, &sh.Status, &sh.StatusUpdatedAt, &sh.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		shipments = append(shipments, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipments: %w", err)
	}
	return shipments, nil
}

// CountShipments returns how many cargo records the client has.
func (s *PostgresStore) CountShipments(ctx context.Context, clientID int64) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM shipments WHERE client_id = $1;`, clientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count shipments: %w", err)
	}
	return n, nil
}

// PurgeShipments deletes the client's cargo history and reports the count.
func (s *PostgresStore) PurgeShipments(ctx context.Context, clientID int64) (int64, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM shipments WHERE client_id = $1;`, clientID)
	if err != nil {
		return 0, fmt.Errorf("purge shipments: %w", err)
	}
	return ct.RowsAffected(), nil
}
