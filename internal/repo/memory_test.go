package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatClientCode(t *testing.T) {
	assert.Equal(t, "PR-00001", FormatClientCode("PR", 1))
	assert.Equal(t, "EM03-00042", FormatClientCode("EM03", 42))
	assert.Equal(t, "PR-123456", FormatClientCode("PR", 123456))
}

func TestShipmentCode(t *testing.T) {
	assert.Equal(t, "PR-00001-1", ShipmentCode("PR-00001", 1))
	assert.Equal(t, "EM03-00042-12", ShipmentCode("EM03-00042", 12))
}

func TestGetOrCreateClientCode(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("PR")

	code, err := s.GetOrCreateClientCode(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "PR-00001", code)

	// Idempotent per client.
	again, err := s.GetOrCreateClientCode(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, code, again)

	next, err := s.GetOrCreateClientCode(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, "PR-00002", next)

	_, err = s.GetClientCode(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrCreateClientCodeConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("PR")

	const n = 50
	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := s.GetOrCreateClientCode(ctx, int64(1000+i))
			assert.NoError(t, err)
			codes[i] = code
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, n)
}

func TestTracksInsertionOrderAndPurge(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("PR")

	require.NoError(t, s.AddTrack(ctx, 100, "TRACKAAA1", "avia"))
	require.NoError(t, s.AddTrack(ctx, 100, "TRACKBBB2", "rail"))
	require.NoError(t, s.AddTrack(ctx, 200, "TRACKAAA1", "fast_auto"))

	tracks, err := s.ListTracks(ctx, 100)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "TRACKAAA1", tracks[0].TrackNumber)
	assert.Equal(t, "TRACKBBB2", tracks[1].TrackNumber)

	// Duplicate numbers across clients are fine; both owners resolve.
	ids, err := s.FindClientsByTrack(ctx, "TRACKAAA1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{100, 200}, ids)

	deleted, err := s.PurgeTracks(ctx, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	remaining, err := s.ListTracks(ctx, 200)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestTrackPhotosBeforeRegistration(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("PR")

	// Evidence lands before any client registers the number.
	require.NoError(t, s.AddTrackPhoto(ctx, TrackPhoto{TrackNumber: "TRACKAAA1", FileRef: "ref-1", UploadedBy: 900}))

	ids, err := s.FindClientsByTrack(ctx, "TRACKAAA1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.AddTrack(ctx, 100, "TRACKAAA1", "avia"))
	photos, err := s.ListTrackPhotos(ctx, "TRACKAAA1")
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "ref-1", photos[0].FileRef)
	assert.NotEmpty(t, photos[0].ID)
}

func TestRecipientUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("PR")

	_, err := s.GetRecipient(ctx, 100)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetRecipient(ctx, Recipient{ClientID: 100, FullName: "Иванов", Phone: "+7999", City: "Москва"}))
	require.NoError(t, s.SetRecipient(ctx, Recipient{ClientID: 100, FullName: "Петров", Phone: "+7888", City: "Казань"}))

	rec, err := s.GetRecipient(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Петров", rec.FullName)
	assert.Equal(t, "Казань", rec.City)
}

func TestShipmentSequencesPerClient(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("PR")

	for _, clientID := range []int64{100, 200} {
		code, err := s.GetOrCreateClientCode(ctx, clientID)
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			seq, err := s.NextShipmentSequence(ctx, clientID)
			require.NoError(t, err)
			_, err = s.CreateShipment(ctx, Shipment{
				ClientID:       clientID,
				SequenceNumber: seq,
				Code:           ShipmentCode(code, seq),
				Status:         StatusBuilding,
			})
			require.NoError(t, err)
		}
	}

	seq, err := s.NextShipmentSequence(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, seq)

	owner, err := s.FindClientByShipmentCode(ctx, "PR-00002-2")
	require.NoError(t, err)
	assert.EqualValues(t, 200, owner)

	n, err := s.CountShipments(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpdateShipmentStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("PR")

	_, err := s.CreateShipment(ctx, Shipment{ClientID: 100, SequenceNumber: 1, Code: "PR-00001-1"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateShipmentStatus(ctx, "PR-00001-1", StatusShipped))
	// Re-issuing the same status is still a successful update.
	require.NoError(t, s.UpdateShipmentStatus(ctx, "PR-00001-1", StatusShipped))

	shipped, err := s.ListShipmentsByStatus(ctx, 100, StatusShipped)
	require.NoError(t, err)
	assert.Len(t, shipped, 1)

	err = s.UpdateShipmentStatus(ctx, "PR-09999-1", StatusShipped)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActivityMarkers(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("PR")
	now := time.Now().UTC()
	old := now.Add(-10 * 24 * time.Hour)

	// Client seen long ago, never acked the address prompt.
	require.NoError(t, s.TouchActivity(ctx, 100, old))
	// Client seen long ago but acked.
	require.NoError(t, s.TouchActivity(ctx, 200, old))
	require.NoError(t, s.AckAddressPrompt(ctx, 200, old))
	// Fresh client.
	require.NoError(t, s.TouchActivity(ctx, 300, now))

	due, err := s.ListAddressReminderDue(ctx, now.Add(-5*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, due)

	require.NoError(t, s.MarkAddressReminderSent(ctx, 100, now))
	due, err = s.ListAddressReminderDue(ctx, now.Add(-5*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	// FirstSeen is not moved by later touches.
	require.NoError(t, s.TouchActivity(ctx, 100, now))
	act, err := s.GetActivity(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, act.FirstSeenAt)
	assert.True(t, act.FirstSeenAt.Equal(old))
	require.NotNil(t, act.LastActivityAt)
	assert.True(t, act.LastActivityAt.Equal(now))
}

func TestInactiveReminderRearms(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("PR")
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	cutoff := now.Add(-30 * 24 * time.Hour)

	require.NoError(t, s.TouchActivity(ctx, 100, old))
	due, err := s.ListInactiveReminderDue(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, due)

	require.NoError(t, s.MarkInactiveReminderSent(ctx, 100, now))
	due, err = s.ListInactiveReminderDue(ctx, cutoff)
	require.NoError(t, err)
	assert.Empty(t, due)

	// Activity after the reminder re-arms the scan once it goes stale again.
	later := now.Add(time.Hour)
	require.NoError(t, s.TouchActivity(ctx, 100, later))
	due, err = s.ListInactiveReminderDue(ctx, later.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, due)
}
