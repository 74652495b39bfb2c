// Package reminder runs the periodic engagement scans: clients who never
// filled a recipient profile, clients sitting on tracks without building a
// shipment, and clients who went quiet entirely.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"probuy-bot/internal/convo"
	"probuy-bot/internal/metrics"
	"probuy-bot/internal/repo"
)

const (
	msgAddressReminder   = "👋 Напоминаем: отправьте данные получателя командой /sendcargo, чтобы мы могли оформить ваш груз."
	msgSendCargoReminder = "📦 У вас есть зарегистрированные треки. Когда посылки прибудут на склад, оформите отправку командой /sendcargo."
	msgInactiveReminder  = "😊 Давно вас не видели! Напишите /start, если нужна помощь с посылками."
)

// Config fixes the scan interval and the age thresholds.
type Config struct {
	Interval       time.Duration
	AddressAfter   time.Duration
	SendCargoAfter time.Duration
	InactiveAfter  time.Duration
}

// Scheduler owns the reminder loop. Run blocks until the context is done;
// Trigger forces an immediate scan without waiting for the ticker.
type Scheduler struct {
	store    repo.Store
	notifier convo.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config
	trigger  chan struct{}
}

func New(store repo.Store, notifier convo.Notifier, m *metrics.Metrics, logger *slog.Logger, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Scheduler{
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With("component", "reminder"),
		cfg:      cfg,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate scan. Non-blocking: a pending trigger
// absorbs further requests.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run executes scans at the configured interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("reminder scheduler started", "interval", s.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
		case <-s.trigger:
		}
		if err := s.Scan(ctx); err != nil {
			s.metrics.Errors.WithLabelValues("reminder").Inc()
			s.logger.Error("reminder scan failed", "error", err)
		}
	}
}

// Scan runs the three due-lists once. Each reminder is at-most-once: the
// sent marker is written even when the push fails, so a broken transport
// never turns into a reminder storm later.
func (s *Scheduler) Scan(ctx context.Context) error {
	now := time.Now().UTC()

	if err := s.scanKind(ctx, "address", msgAddressReminder, now,
		func() ([]int64, error) { return s.store.ListAddressReminderDue(ctx, now.Add(-s.cfg.AddressAfter)) },
		s.store.MarkAddressReminderSent,
	); err != nil {
		return err
	}
	if err := s.scanKind(ctx, "send_cargo", msgSendCargoReminder, now,
		func() ([]int64, error) { return s.store.ListSendCargoReminderDue(ctx, now.Add(-s.cfg.SendCargoAfter)) },
		s.store.MarkSendCargoReminderSent,
	); err != nil {
		return err
	}
	return s.scanKind(ctx, "inactive", msgInactiveReminder, now,
		func() ([]int64, error) { return s.store.ListInactiveReminderDue(ctx, now.Add(-s.cfg.InactiveAfter)) },
		s.store.MarkInactiveReminderSent,
	)
}

func (s *Scheduler) scanKind(ctx context.Context, kind, text string, now time.Time,
	list func() ([]int64, error),
	mark func(ctx context.Context, clientID int64, at time.Time) error,
) error {
	ids, err := list()
	if err != nil {
		return fmt.Errorf("list %s due: %w", kind, err)
	}
	for _, clientID := range ids {
		if err := s.notifier.SendText(ctx, clientID, text); err != nil {
			s.metrics.PushFailures.WithLabelValues("reminder").Inc()
			s.logger.Warn("reminder push failed", "kind", kind, "client_id", clientID, "error", err)
		} else {
			s.metrics.RemindersSent.WithLabelValues(kind).Inc()
		}
		if err := mark(ctx, clientID, now); err != nil {
			return fmt.Errorf("mark %s reminder: %w", kind, err)
		}
	}
	if len(ids) > 0 {
		s.logger.Info("reminder scan kind done", "kind", kind, "count", len(ids))
	}
	return nil
}
