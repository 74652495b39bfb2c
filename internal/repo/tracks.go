package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AddTrack appends a tracking number to the client's ledger. The caller has
// already normalized and validated the number.
func (s *PostgresStore) AddTrack(ctx context.Context, clientID int64, trackNumber, deliveryMethod string) error {
	const q = `
INSERT INTO tracks (client_id, track_number, delivery_method)
VALUES ($1, $2, $3);
`
	if _, err := s.pool.Exec(ctx, q, clientID, trackNumber, deliveryMethod); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	return nil
}

// ListTracks returns the client's tracks in registration order.
func (s *PostgresStore) ListTracks(ctx context.Context, clientID int64) ([]Track, error) {
	const q = `
SELECT id, client_id, track_number, delivery_method, created_at
FROM tracks
WHERE client_id = $1
ORDER BY id ASC;
`
	rows, err := s.pool.Query(ctx, q, clientID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var t Track
		if err := rows.Scan(&t.ID, &t.ClientID, &t.TrackNumber, &t.DeliveryMethod, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return tracks, nil
}

// FindClientsByTrack returns every client that registered the number. The
// same physical number may appear under several clients; evidence fan-out
// delivers to all of them.
func (s *PostgresStore) FindClientsByTrack(ctx context.Context, trackNumber string) ([]int64, error) {
	const q = `SELECT DISTINCT client_id FROM tracks WHERE track_number = $1 ORDER BY client_id;`
	rows, err := s.pool.Query(ctx, q, trackNumber)
	if err != nil {
		return nil, fmt.Errorf("find clients by track: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan client id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client ids: %w", err)
	}
	return ids, nil
}

// PurgeTracks deletes the client's whole track history and reports how many
// rows went away.
func (s *PostgresStore) PurgeTracks(ctx context.Context, clientID int64) (int64, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM tracks WHERE client_id = $1;`, clientID)
	if err != nil {
		return 0, fmt.Errorf("purge tracks: %w", err)
	}
	return ct.RowsAffected(), nil
}

// AddTrackPhoto stores an evidence photo keyed by the raw track number text.
func (s *PostgresStore) AddTrackPhoto(ctx context.Context, photo TrackPhoto) error {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	const q = `
INSERT INTO track_photos (id, track_number, file_ref, uploaded_by, caption)
VALUES ($1, $2, $3, $4, $5);
`
	if _, err := s.pool.Exec(ctx, q, photo.ID, photo.TrackNumber, photo.FileRef, photo.UploadedBy, photo.Caption); err != nil {
		return fmt.Errorf("add track photo: %w", err)
	}
	return nil
}

// ListTrackPhotos returns stored evidence for the number in upload order.
func (s *PostgresStore) ListTrackPhotos(ctx context.Context, trackNumber string) ([]TrackPhoto, error) {
	const q = `
SELECT id, track_number, file_ref, uploaded_by, caption, created_at
FROM track_photos
WHERE track_number = $1
ORDER BY created_at ASC, id ASC;
`
	rows, err := s.pool.Query(ctx, q, trackNumber)
	if err != nil {
		return nil, fmt.Errorf("list track photos: %w", err)
	}
	defer rows.Close()

	var photos []TrackPhoto
	for rows.Next() {
		var p TrackPhoto
		if err := rows.Scan(&p.ID, &p.TrackNumber, &p.FileRef, &p.UploadedBy, &p.Caption, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan track photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate track photos: %w", err)
	}
	return photos, nil
}
