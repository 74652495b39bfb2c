package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probuy-bot/internal/convo"
	"probuy-bot/internal/metrics"
	"probuy-bot/internal/repo"
)

type recordingNotifier struct {
	mu    sync.Mutex
	fail  bool
	texts map[int64][]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{texts: map[int64][]string{}}
}

func (n *recordingNotifier) SendText(_ context.Context, clientID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("push down")
	}
	n.texts[clientID] = append(n.texts[clientID], text)
	return nil
}

func (n *recordingNotifier) SendPhoto(context.Context, int64, string, string) error { return nil }

func (n *recordingNotifier) SendPhotoBatch(context.Context, int64, []string, string) error {
	return nil
}

func (n *recordingNotifier) count(clientID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.texts[clientID])
}

var _ convo.Notifier = (*recordingNotifier)(nil)

func newTestScheduler(t *testing.T, store repo.Store, notifier convo.Notifier) *Scheduler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, notifier, metrics.Registry("remindertest"), logger, Config{
		Interval:       time.Hour,
		AddressAfter:   5 * 24 * time.Hour,
		SendCargoAfter: 15 * 24 * time.Hour,
		InactiveAfter:  30 * 24 * time.Hour,
	})
}

func TestScanSendsDueReminders(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory("PR")
	notifier := newRecordingNotifier()
	s := newTestScheduler(t, store, notifier)

	old := time.Now().UTC().Add(-6 * 24 * time.Hour)
	require.NoError(t, store.TouchActivity(ctx, 100, old)) // due for address reminder
	require.NoError(t, store.TouchActivity(ctx, 200, time.Now().UTC()))

	require.NoError(t, s.Scan(ctx))
	assert.Equal(t, 1, notifier.count(100))
	assert.Equal(t, 0, notifier.count(200))

	// The marker suppresses the repeat.
	require.NoError(t, s.Scan(ctx))
	assert.Equal(t, 1, notifier.count(100))
}

func TestScanAckSuppressesAddressReminder(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory("PR")
	notifier := newRecordingNotifier()
	s := newTestScheduler(t, store, notifier)

	old := time.Now().UTC().Add(-6 * 24 * time.Hour)
	require.NoError(t, store.TouchActivity(ctx, 100, old))
	require.NoError(t, store.AckAddressPrompt(ctx, 100, old))

	require.NoError(t, s.Scan(ctx))
	assert.Equal(t, 0, notifier.count(100))
}

func TestScanMarksEvenWhenPushFails(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory("PR")
	notifier := newRecordingNotifier()
	notifier.fail = true
	s := newTestScheduler(t, store, notifier)

	old := time.Now().UTC().Add(-6 * 24 * time.Hour)
	require.NoError(t, store.TouchActivity(ctx, 100, old))

	require.NoError(t, s.Scan(ctx))

	act, err := store.GetActivity(ctx, 100)
	require.NoError(t, err)
	assert.NotNil(t, act.AddressReminderSentAt)

	// Recovered transport does not replay the reminder.
	notifier.mu.Lock()
	notifier.fail = false
	notifier.mu.Unlock()
	require.NoError(t, s.Scan(ctx))
	assert.Equal(t, 0, notifier.count(100))
}

func TestInactiveReminderRearmsAfterActivity(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory("PR")
	notifier := newRecordingNotifier()
	s := newTestScheduler(t, store, notifier)

	now := time.Now().UTC()
	require.NoError(t, store.TouchActivity(ctx, 100, now.Add(-40*24*time.Hour)))
	// Acked prompts so only the inactivity scan fires.
	require.NoError(t, store.AckAddressPrompt(ctx, 100, now))
	require.NoError(t, store.AckSendCargoPrompt(ctx, 100, now))

	require.NoError(t, s.Scan(ctx))
	assert.Equal(t, 1, notifier.count(100))

	require.NoError(t, s.Scan(ctx))
	assert.Equal(t, 1, notifier.count(100))

	// Activity after the last reminder, itself gone stale again, re-arms
	// the scan. Backdate both markers to emulate the elapsed month.
	require.NoError(t, store.MarkInactiveReminderSent(ctx, 100, now.Add(-36*24*time.Hour)))
	require.NoError(t, store.TouchActivity(ctx, 100, now.Add(-35*24*time.Hour)))
	require.NoError(t, s.Scan(ctx))
	assert.Equal(t, 2, notifier.count(100))
}

func TestTriggerForcesImmediateScan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := repo.NewMemory("PR")
	notifier := newRecordingNotifier()
	s := newTestScheduler(t, store, notifier)

	old := time.Now().UTC().Add(-6 * 24 * time.Hour)
	require.NoError(t, store.TouchActivity(ctx, 100, old))

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	s.Trigger()
	require.Eventually(t, func() bool {
		return notifier.count(100) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A pending trigger coalesces; no duplicate send either way thanks to
	// the marker.
	s.Trigger()
	s.Trigger()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, notifier.count(100))

	cancel()
	<-done
}
