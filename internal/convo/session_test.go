package convo

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probuy-bot/internal/cache"
)

func newTestRedis(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := cache.New(cache.Config{Addr: mr.Addr()}, logger)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)
	s := NewSessionStore(r, "session", time.Minute)

	// Unknown client starts idle.
	sess, err := s.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, sess.State)

	sess.State = StateConfirmingTrack
	sess.TrackNumber = "LP123456789CN"
	sess.DeliveryMethod = "avia"
	require.NoError(t, s.Put(ctx, 100, sess))

	got, err := s.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	require.NoError(t, s.Clear(ctx, 100))
	got, err = s.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, got.State)

	// TTL expiry resets to idle.
	require.NoError(t, s.Put(ctx, 100, sess))
	mr.FastForward(2 * time.Minute)
	got, err = s.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, got.State)
}

func TestSessionNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRedis(t)
	client := NewSessionStore(r, "session", time.Minute)
	staff := NewSessionStore(r, "staffsession", time.Minute)

	require.NoError(t, client.Put(ctx, 100, Session{State: StateAwaitingTrack}))
	require.NoError(t, staff.Put(ctx, 100, Session{State: StateStaffAwaitingMedia, ShipmentCode: "PR-00001-1"}))

	c, err := client.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingTrack, c.State)

	st, err := staff.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, StateStaffAwaitingMedia, st.State)
}

func TestBatchBuffer(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRedis(t)
	b := NewBatchBuffer(r, time.Minute)

	n, err := b.Len(ctx, 900, "PR-00001-1")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, b.Append(ctx, 900, "PR-00001-1", "ref-a"))
	require.NoError(t, b.Append(ctx, 900, "PR-00001-1", "ref-b"))
	// A different uploader's batch for the same code stays separate.
	require.NoError(t, b.Append(ctx, 901, "PR-00001-1", "ref-x"))

	refs, err := b.Drain(ctx, 900, "PR-00001-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ref-a", "ref-b"}, refs)

	// Drain empties the buffer.
	n, err = b.Len(ctx, 900, "PR-00001-1")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, b.Discard(ctx, 901, "PR-00001-1"))
	n, err = b.Len(ctx, 901, "PR-00001-1")
	require.NoError(t, err)
	assert.Zero(t, n)
}
