package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// TouchActivity records an inbound interaction: last_activity_at always,
// first_seen_at only on the first one.
func (s *PostgresStore) TouchActivity(ctx context.Context, clientID int64, at time.Time) error {
	const q = `
INSERT INTO activity (client_id, first_seen_at, last_activity_at)
VALUES ($1, $2, $2)
ON CONFLICT (client_id) DO UPDATE SET
    first_seen_at = COALESCE(activity.first_seen_at, EXCLUDED.first_seen_at),
    last_activity_at = EXCLUDED.last_activity_at;
`
	if _, err := s.pool.Exec(ctx, q, clientID, at); err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}
	return nil
}

// AckAddressPrompt marks the client as having completed the address prompt.
func (s *PostgresStore) AckAddressPrompt(ctx context.Context, clientID int64, at time.Time) error {
	return s.setActivityColumn(ctx, clientID, "address_prompt_ack_at", at)
}

// AckSendCargoPrompt marks the client as having completed the send-cargo prompt.
func (s *PostgresStore) AckSendCargoPrompt(ctx context.Context, clientID int64, at time.Time) error {
	return s.setActivityColumn(ctx, clientID, "send_cargo_prompt_ack_at", at)
}

// MarkAddressReminderSent is written only by the reminder scheduler.
func (s *PostgresStore) MarkAddressReminderSent(ctx context.Context, clientID int64, at time.Time) error {
	return s.setActivityColumn(ctx, clientID, "address_reminder_sent_at", at)
}

// MarkSendCargoReminderSent is written only by the reminder scheduler.
func (s *PostgresStore) MarkSendCargoReminderSent(ctx context.Context, clientID int64, at time.Time) error {
	return s.setActivityColumn(ctx, clientID, "send_cargo_reminder_sent_at", at)
}

// MarkInactiveReminderSent is written only by the reminder scheduler.
func (s *PostgresStore) MarkInactiveReminderSent(ctx context.Context, clientID int64, at time.Time) error {
	return s.setActivityColumn(ctx, clientID, "inactive_reminder_sent_at", at)
}

func (s *PostgresStore) setActivityColumn(ctx context.Context, clientID int64, column string, at time.Time) error {
	q := fmt.Sprintf(`
INSERT INTO activity (client_id, %s)
VALUES ($1, $2)
ON CONFLICT (client_id) DO UPDATE SET %s = EXCLUDED.%s;
`, column, column, column)
	if _, err := s.pool.Exec(ctx, q, clientID, at); err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	return nil
}

// GetActivity returns the client's activity row or ErrNotFound.
func (s *PostgresStore) GetActivity(ctx context.Context, clientID int64) (*Activity, error) {
	const q = `
SELECT client_id, first_seen_at, last_activity_at,
       address_prompt_ack_at, send_cargo_prompt_ack_at,
       address_reminder_sent_at, send_cargo_reminder_sent_at, inactive_reminder_sent_at
FROM activity
WHERE client_id = $1;
`
	var a Activity
	err := s.pool.QueryRow(ctx, q, clientID).Scan(
		&a.ClientID, &a.FirstSeenAt, &a.LastActivityAt,
		&a.AddressPromptAckAt, &a.SendCargoPromptAckAt,
		&a.AddressReminderSentAt, &a.SendCargoReminderSentAt, &a.InactiveReminderSentAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return &a, nil
}

// ListAddressReminderDue selects clients first seen before the cutoff who
// never completed the address prompt and were never reminded.
func (s *PostgresStore) ListAddressReminderDue(ctx context.Context, before time.Time) ([]int64, error) {
	const q = `
SELECT client_id FROM activity
WHERE first_seen_at IS NOT NULL AND first_seen_at < $1
  AND address_prompt_ack_at IS NULL
  AND address_reminder_sent_at IS NULL
ORDER BY client_id;
`
	return s.listIDs(ctx, q, before)
}

// ListSendCargoReminderDue mirrors the address reminder with its own
// acknowledgement and marker.
func (s *PostgresStore) ListSendCargoReminderDue(ctx context.Context, before time.Time) ([]int64, error) {
	const q = `
SELECT client_id FROM activity
WHERE first_seen_at IS NOT NULL AND first_seen_at < $1
  AND send_cargo_prompt_ack_at IS NULL
  AND send_cargo_reminder_sent_at IS NULL
ORDER BY client_id;
`
	return s.listIDs(ctx, q, before)
}

// ListInactiveReminderDue selects clients idle since the cutoff. Activity
// after a previous reminder re-arms the condition.
func (s *PostgresStore) ListInactiveReminderDue(ctx context.Context, before time.Time) ([]int64, error) {
	const q = `
SELECT client_id FROM activity
WHERE last_activity_at IS NOT NULL AND last_activity_at < $1
  AND (inactive_reminder_sent_at IS NULL OR inactive_reminder_sent_at < last_activity_at)
ORDER BY client_id;
`
	return s.listIDs(ctx, q, before)
}

func (s *PostgresStore) listIDs(ctx context.Context, q string, args ...any) ([]int64, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan activity id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity ids: %w", err)
	}
	return ids, nil
}
