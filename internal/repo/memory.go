package repo

import (
	"context"
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. It exists for development
// and tests; data disappears on restart. A single mutex serializes every
// operation, which also makes first-contact code allocation a plain
// scan-and-insert.
type MemoryStore struct {
	mu     sync.Mutex
	prefix string

	codes      map[int64]string
	tracks     []Track
	nextTrack  int64
	photos     []TrackPhoto
	recipients map[int64]Recipient
	shipments  []Shipment
	activity   map[int64]*Activity
}

// NewMemory returns an empty in-memory store issuing codes with the prefix.
func NewMemory(codePrefix string) *MemoryStore {
	return &MemoryStore{
		prefix:     codePrefix,
		codes:      map[int64]string{},
		nextTrack:  1,
		recipients: map[int64]Recipient{},
		activity:   map[int64]*Activity{},
	}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) RunMigrations(_ context.Context, _ fs.FS) error { return nil }

func (s *MemoryStore) GetClientCode(_ context.Context, clientID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[clientID]
	if !ok {
		return "", ErrNotFound
	}
	return code, nil
}

func (s *MemoryStore) GetOrCreateClientCode(_ context.Context, clientID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.codes[clientID]; ok {
		return code, nil
	}
	existing := make([]string, 0, len(s.codes))
	for _, c := range s.codes {
		existing = append(existing, c)
	}
	code := FormatClientCode(s.prefix, maxCodeNumber(s.prefix, existing)+1)
	s.codes[clientID] = code
	return code, nil
}

func (s *MemoryStore) AddTrack(_ context.Context, clientID int64, trackNumber, deliveryMethod string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, Track{
		ID:             s.nextTrack,
		ClientID:       clientID,
		TrackNumber:    trackNumber,
		DeliveryMethod: deliveryMethod,
		CreatedAt:      time.Now().UTC(),
	})
	s.nextTrack++
	return nil
}

func (s *MemoryStore) ListTracks(_ context.Context, clientID int64) ([]Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Track
	for _, t := range s.tracks {
		if t.ClientID == clientID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindClientsByTrack(_ context.Context, trackNumber string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int64]bool{}
	var ids []int64
	for _, t := range s.tracks {
		if t.TrackNumber == trackNumber && !seen[t.ClientID] {
			seen[t.ClientID] = true
			ids = append(ids, t.ClientID)
		}
	}
	return ids, nil
}

func (s *MemoryStore) PurgeTracks(_ context.Context, clientID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tracks[:0]
	var deleted int64
	for _, t := range s.tracks {
		if t.ClientID == clientID {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	s.tracks = kept
	return deleted, nil
}

func (s *MemoryStore) AddTrackPhoto(_ context.Context, photo TrackPhoto) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}
	s.photos = append(s.photos, photo)
	return nil
}

func (s *MemoryStore) ListTrackPhotos(_ context.Context, trackNumber string) ([]TrackPhoto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TrackPhoto
	for _, p := range s.photos {
		if p.TrackNumber == trackNumber {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetRecipient(_ context.Context, rec Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.UpdatedAt = time.Now().UTC()
	s.recipients[rec.ClientID] = rec
	return nil
}

func (s *MemoryStore) GetRecipient(_ context.Context, clientID int64) (*Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recipients[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) NextShipmentSequence(_ context.Context, clientID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, sh := range s.shipments {
		if sh.ClientID == clientID && sh.SequenceNumber > max {
			max = sh.SequenceNumber
		}
	}
	return max + 1, nil
}

func (s *MemoryStore) CreateShipment(_ context.Context, sh Shipment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh.ID == "" {
		sh.ID = uuid.NewString()
	}
	if sh.Status == "" {
		sh.Status = StatusBuilding
	}
	now := time.Now().UTC()
	sh.CreatedAt = now
	sh.StatusUpdatedAt = now
	s.shipments = append(s.shipments, sh)
	return sh.ID, nil
}

func (s *MemoryStore) FindClientByShipmentCode(_ context.Context, code string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range s.shipments {
		if sh.Code == code {
			return sh.ClientID, nil
		}
	}
	return 0, ErrNotFound
}

func (s *MemoryStore) UpdateShipmentStatus(_ context.Context, code string, status ShipmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.shipments {
		if s.shipments[i].Code == code {
			s.shipments[i].Status = status
			s.shipments[i].StatusUpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ListShipmentsByStatus(_ context.Context, clientID int64, status ShipmentStatus) ([]Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Shipment
	for _, sh := range s.shipments {
		if sh.ClientID == clientID && sh.Status == status {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (s *MemoryStore) CountShipments(_ context.Context, clientID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sh := range s.shipments {
		if sh.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) PurgeShipments(_ context.Context, clientID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.shipments[:0]
	var deleted int64
	for _, sh := range s.shipments {
		if sh.ClientID == clientID {
			deleted++
			continue
		}
		kept = append(kept, sh)
	}
	s.shipments = kept
	return deleted, nil
}

func (s *MemoryStore) activityRow(clientID int64) *Activity {
	a, ok := s.activity[clientID]
	if !ok {
		a = &Activity{ClientID: clientID}
		s.activity[clientID] = a
	}
	return a
}

func (s *MemoryStore) TouchActivity(_ context.Context, clientID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.activityRow(clientID)
	if a.FirstSeenAt == nil {
		t := at
		a.FirstSeenAt = &t
	}
	t := at
	a.LastActivityAt = &t
	return nil
}

func (s *MemoryStore) AckAddressPrompt(_ context.Context, clientID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := at
	s.activityRow(clientID).AddressPromptAckAt = &t
	return nil
}

func (s *MemoryStore) AckSendCargoPrompt(_ context.Context, clientID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := at
	s.activityRow(clientID).SendCargoPromptAckAt = &t
	return nil
}

func (s *MemoryStore) GetActivity(_ context.Context, clientID int64) (*Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activity[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ListAddressReminderDue(_ context.Context, before time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collectIDs(s.activity, func(a *Activity) bool {
		return a.FirstSeenAt != nil && a.FirstSeenAt.Before(before) &&
			a.AddressPromptAckAt == nil && a.AddressReminderSentAt == nil
	}), nil
}

func (s *MemoryStore) ListSendCargoReminderDue(_ context.Context, before time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collectIDs(s.activity, func(a *Activity) bool {
		return a.FirstSeenAt != nil && a.FirstSeenAt.Before(before) &&
			a.SendCargoPromptAckAt == nil && a.SendCargoReminderSentAt == nil
	}), nil
}

func (s *MemoryStore) ListInactiveReminderDue(_ context.Context, before time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collectIDs(s.activity, func(a *Activity) bool {
		if a.LastActivityAt == nil || !a.LastActivityAt.Before(before) {
			return false
		}
		return a.InactiveReminderSentAt == nil || a.InactiveReminderSentAt.Before(*a.LastActivityAt)
	}), nil
}

func (s *MemoryStore) MarkAddressReminderSent(_ context.Context, clientID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := at
	s.activityRow(clientID).AddressReminderSentAt = &t
	return nil
}

func (s *MemoryStore) MarkSendCargoReminderSent(_ context.Context, clientID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := at
	s.activityRow(clientID).SendCargoReminderSentAt = &t
	return nil
}

func (s *MemoryStore) MarkInactiveReminderSent(_ context.Context, clientID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := at
	s.activityRow(clientID).InactiveReminderSentAt = &t
	return nil
}

func collectIDs(activity map[int64]*Activity, match func(*Activity) bool) []int64 {
	var ids []int64
	for id, a := range activity {
		if match(a) {
			ids = append(ids, id)
		}
	}
	return ids
}
