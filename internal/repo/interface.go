package repo

import (
	"context"
	"errors"
	"io/fs"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store defines the interface for data persistence. Two implementations
// exist: a transactional Postgres store and an in-memory store for
// development and tests. They must answer every query identically,
// differing only in durability and concurrency guarantees.
type Store interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Client codes
	GetClientCode(ctx context.Context, clientID int64) (string, error)
	GetOrCreateClientCode(ctx context.Context, clientID int64) (string, error)

	// Tracks
	AddTrack(ctx context.Context, clientID int64, trackNumber, deliveryMethod string) error
	ListTracks(ctx context.Context, clientID int64) ([]Track, error)
	FindClientsByTrack(ctx context.Context, trackNumber string) ([]int64, error)
	PurgeTracks(ctx context.Context, clientID int64) (int64, error)

	// Evidence photos
	AddTrackPhoto(ctx context.Context, photo TrackPhoto) error
	ListTrackPhotos(ctx context.Context, trackNumber string) ([]TrackPhoto, error)

	// Recipient profile
	SetRecipient(ctx context.Context, rec Recipient) error
	GetRecipient(ctx context.Context, clientID int64) (*Recipient, error)

	// Shipments
	NextShipmentSequence(ctx context.Context, clientID int64) (int, error)
	CreateShipment(ctx context.Context, sh Shipment) (string, error)
	FindClientByShipmentCode(ctx context.Context, code string) (int64, error)
	UpdateShipmentStatus(ctx context.Context, code string, status ShipmentStatus) error
	ListShipmentsByStatus(ctx context.Context, clientID int64, status ShipmentStatus) ([]Shipment, error)
	CountShipments(ctx context.Context, clientID int64) (int, error)
	PurgeShipments(ctx context.Context, clientID int64) (int64, error)

	// Activity ledger
	TouchActivity(ctx context.Context, clientID int64, at time.Time) error
	AckAddressPrompt(ctx context.Context, clientID int64, at time.Time) error
	AckSendCargoPrompt(ctx context.Context, clientID int64, at time.Time) error
	GetActivity(ctx context.Context, clientID int64) (*Activity, error)
	ListAddressReminderDue(ctx context.Context, before time.Time) ([]int64, error)
	ListSendCargoReminderDue(ctx context.Context, before time.Time) ([]int64, error)
	ListInactiveReminderDue(ctx context.Context, before time.Time) ([]int64, error)
	MarkAddressReminderSent(ctx context.Context, clientID int64, at time.Time) error
	MarkSendCargoReminderSent(ctx context.Context, clientID int64, at time.Time) error
	MarkInactiveReminderSent(ctx context.Context, clientID int64, at time.Time) error
}
