package convo

import (
	"context"
	"fmt"
	"time"

	"probuy-bot/internal/cache"
)

// State tags the current position of a conversation. The zero value is
// idle.
type State string

const (
	StateIdle State = ""

	StateAwaitingTrack   State = "awaiting_track"
	StateChoosingMethod  State = "choosing_delivery"
	StateConfirmingTrack State = "confirming_track"

	StateAwaitingRecipient  State = "awaiting_recipient"
	StateChoosingShipMethod State = "choosing_ship_delivery"
	StateConfirmingShipment State = "confirming_shipment"

	StateAwaitingPhotoTrack State = "awaiting_photo_track"
	StateAwaitingOrderText  State = "awaiting_order_text"

	StateStaffAwaitingCode  State = "staff_awaiting_code"
	StateStaffAwaitingMedia State = "staff_awaiting_media"
)

// Session is the ephemeral per-chat state bag. It lives in Redis with a
// TTL: a process restart or an expired key resets the conversation to
// idle, by design.
type Session struct {
	State          State  `json:"state"`
	TrackNumber    string `json:"track_number,omitempty"`
	DeliveryMethod string `json:"delivery_method,omitempty"`
	FullName       string `json:"full_name,omitempty"`
	Phone          string `json:"phone,omitempty"`
	City           string `json:"city,omitempty"`
	ShipmentCode   string `json:"shipment_code,omitempty"`
}

// SessionStore keeps sessions in Redis under a namespace prefix, so the
// staff flow never collides with the same person's client flow.
type SessionStore struct {
	redis  *cache.Redis
	prefix string
	ttl    time.Duration
}

func NewSessionStore(r *cache.Redis, prefix string, ttl time.Duration) *SessionStore {
	return &SessionStore{redis: r, prefix: prefix, ttl: ttl}
}

func (s *SessionStore) key(clientID int64) string {
	return fmt.Sprintf("%s:%d", s.prefix, clientID)
}

// Get returns the stored session, or an idle one when nothing is stored.
func (s *SessionStore) Get(ctx context.Context, clientID int64) (Session, error) {
	var sess Session
	found, err := s.redis.GetJSON(ctx, s.key(clientID), &sess)
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	if !found {
		return Session{State: StateIdle}, nil
	}
	return sess, nil
}

// Put stores the session, refreshing the TTL.
func (s *SessionStore) Put(ctx context.Context, clientID int64, sess Session) error {
	if err := s.redis.SetJSON(ctx, s.key(clientID), sess, s.ttl); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Clear resets the conversation to idle.
func (s *SessionStore) Clear(ctx context.Context, clientID int64) error {
	if err := s.redis.Delete(ctx, s.key(clientID)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
