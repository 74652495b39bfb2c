package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"probuy-bot/internal/metrics"
	"probuy-bot/internal/repo"
)

const minOrderTextLen = 5

// Config carries the identities and limits the engine routes by. Zero
// manager/warehouse IDs disable the corresponding notifications without
// disabling the flows.
type Config struct {
	ManagerID    int64
	WarehouseID  int64
	StaffIDs     []int64
	MaxBatchSize int
}

// Engine drives the per-chat state machines. All storage writes commit
// before any outbound push: a failed push is logged and counted, never
// rolled back.
type Engine struct {
	store         repo.Store
	sessions      *SessionStore
	staffSessions *SessionStore
	batches       *BatchBuffer
	notifier      Notifier
	metrics       *metrics.Metrics
	logger        *slog.Logger
	cfg           Config

	// locks serializes handling per chat; messages from different chats
	// proceed concurrently.
	locks sync.Map
}

func NewEngine(store repo.Store, sessions, staffSessions *SessionStore, batches *BatchBuffer, notifier Notifier, m *metrics.Metrics, logger *slog.Logger, cfg Config) *Engine {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 10
	}
	return &Engine{
		store:         store,
		sessions:      sessions,
		staffSessions: staffSessions,
		batches:       batches,
		notifier:      notifier,
		metrics:       m,
		logger:        logger.With("component", "convo"),
		cfg:           cfg,
	}
}

// Handle processes one inbound event. Events for the same chat are
// serialized; the transport may call Handle from any goroutine.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	mu, _ := e.locks.LoadOrStore(ev.ClientID, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	e.metrics.IncomingMessages.WithLabelValues(string(ev.Kind)).Inc()

	if e.isStaff(ev.ClientID) {
		handled, err := e.handleStaff(ctx, ev)
		if handled {
			return err
		}
	}

	code, err := e.store.GetOrCreateClientCode(ctx, ev.ClientID)
	if err != nil {
		return fmt.Errorf("resolve client code: %w", err)
	}
	if err := e.store.TouchActivity(ctx, ev.ClientID, time.Now().UTC()); err != nil {
		e.logger.Warn("touch activity failed", "client_id", ev.ClientID, "error", err)
	}

	if ev.Kind != KindText {
		// Client photos carry no workflow meaning.
		e.logger.Debug("ignoring client photo", "client_id", ev.ClientID)
		return nil
	}

	sess, err := e.sessions.Get(ctx, ev.ClientID)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(ev.Text)
	if isCancelWord(text) {
		if err := e.sessions.Clear(ctx, ev.ClientID); err != nil {
			return err
		}
		e.reply(ctx, ev.ClientID, msgCancelled)
		return nil
	}
	if strings.HasPrefix(text, "/") {
		return e.handleCommand(ctx, ev, code, text)
	}
	return e.handleClientState(ctx, ev, code, sess, text)
}

func (e *Engine) isStaff(id int64) bool {
	for _, s := range e.cfg.StaffIDs {
		if s == id {
			return true
		}
	}
	return false
}

func (e *Engine) handleCommand(ctx context.Context, ev Event, code, text string) error {
	cmd, _, _ := strings.Cut(text, " ")
	switch strings.ToLower(cmd) {
	case "/start":
		if err := e.sessions.Clear(ctx, ev.ClientID); err != nil {
			return err
		}
		e.reply(ctx, ev.ClientID, fmt.Sprintf(msgWelcome, code)+"\n\n"+msgHelp)
	case "/mycod":
		e.reply(ctx, ev.ClientID, fmt.Sprintf(msgYourCode, code))
	case "/track":
		if err := e.sessions.Put(ctx, ev.ClientID, Session{State: StateAwaitingTrack}); err != nil {
			return err
		}
		e.reply(ctx, ev.ClientID, msgAskTrack)
	case "/mytracks":
		tracks, err := e.store.ListTracks(ctx, ev.ClientID)
		if err != nil {
			return fmt.Errorf("list tracks: %w", err)
		}
		if len(tracks) == 0 {
			e.reply(ctx, ev.ClientID, msgNoTracks)
			return nil
		}
		e.reply(ctx, ev.ClientID, fmt.Sprintf(msgTrackHistory, formatTrackHistory(tracks)))
	case "/photos":
		if err := e.sessions.Put(ctx, ev.ClientID, Session{State: StateAwaitingPhotoTrack}); err != nil {
			return err
		}
		e.reply(ctx, ev.ClientID, msgAskPhotoTrack)
	case "/sendcargo":
		rec, err := e.store.GetRecipient(ctx, ev.ClientID)
		switch {
		case err == nil:
			// Returning client: reuse the stored profile and go straight
			// to the delivery choice.
			if err := e.sessions.Put(ctx, ev.ClientID, Session{
				State:    StateChoosingShipMethod,
				FullName: rec.FullName,
				Phone:    rec.Phone,
				City:     rec.City,
			}); err != nil {
				return err
			}
			e.reply(ctx, ev.ClientID, fmt.Sprintf(msgRecipientOnFile, rec.FullName, rec.Phone, rec.City, deliveryKeyboard()))
		case errors.Is(err, repo.ErrNotFound):
			if err := e.sessions.Put(ctx, ev.ClientID, Session{State: StateAwaitingRecipient}); err != nil {
				return err
			}
			e.reply(ctx, ev.ClientID, msgAskRecipient)
		default:
			return fmt.Errorf("get recipient: %w", err)
		}
	case "/buy":
		if err := e.sessions.Put(ctx, ev.ClientID, Session{State: StateAwaitingOrderText}); err != nil {
			return err
		}
		e.reply(ctx, ev.ClientID, msgAskOrder)
	case "/manager":
		e.notifyStaff(ctx, e.cfg.ManagerID, "manager",
			fmt.Sprintf(notifyContact, ev.DisplayName, ev.ClientID, code, text))
		e.reply(ctx, ev.ClientID, msgManagerSent)
	case "/cleartracks":
		nTracks, err := e.store.PurgeTracks(ctx, ev.ClientID)
		if err != nil {
			return fmt.Errorf("purge tracks: %w", err)
		}
		nShipments, err := e.store.PurgeShipments(ctx, ev.ClientID)
		if err != nil {
			return fmt.Errorf("purge shipments: %w", err)
		}
		if err := e.sessions.Clear(ctx, ev.ClientID); err != nil {
			return err
		}
		e.reply(ctx, ev.ClientID, fmt.Sprintf(msgHistoryCleared, nTracks, nShipments))
	default:
		e.reply(ctx, ev.ClientID, msgHelp)
	}
	return nil
}

func (e *Engine) handleClientState(ctx context.Context, ev Event, code string, sess Session, text string) error {
	switch sess.State {
	case StateAwaitingTrack:
		tn := NormalizeTrackNumber(text)
		if !IsValidTrackNumber(tn) {
			e.reply(ctx, ev.ClientID, msgInvalidTrack)
			return nil
		}
		sess.TrackNumber = tn
		sess.State = StateChoosingMethod
		if err := e.sessions.Put(ctx, ev.ClientID, sess); err != nil {
			return err
		}
		e.reply(ctx, ev.ClientID, fmt.Sprintf(msgChooseMethod, deliveryKeyboard()))

	case StateChoosingMethod:
		method, ok := parseDeliveryChoice(text)
		if !ok {
			e.reply(ctx, ev.ClientID, fmt.Sprintf(msgUnknownMethod, deliveryKeyboard()))
			return nil
		}
		sess.DeliveryMethod = method
		sess.State = StateConfirmingTrack
		if err := e.sessions.Put(ctx, ev.ClientID, sess); err != nil {
			return err
		}
		e.reply(ctx, ev.ClientID, fmt.Sprintf(msgConfirmTrack, sess.TrackNumber, deliveryLabel(method)))

	case StateConfirmingTrack:
		if !isConfirmWord(text) {
			e.reply(ctx, ev.ClientID, fmt.Sprintf(msgConfirmTrack, sess.TrackNumber, deliveryLabel(sess.DeliveryMethod)))
			return nil
		}
		return e.saveTrack(ctx, ev, code, sess)

	case StateAwaitingRecipient:
		name, phone, city, ok := ParseRecipient(text)
		if !ok {
			e.reply(ctx, ev.ClientID, msgInvalidRecipient)
			return nil
		}
		sess.FullName, sess.Phone, sess.City = name, phone, city
		sess.State = StateChoosingShipMethod
		if err := e.sessions.Put(ctx, ev.ClientID, sess); err != nil {
			return err
		}
		e.reply(ctx, ev.ClientID, fmt.Sprintf(msgChooseMethod, deliveryKeyboard()))

	case StateChoosingShipMethod:
		method, ok := parseDeliveryChoice(text)
		if !ok {
			e.reply(ctx, ev.ClientID, fmt.Sprintf(msgUnknownMethod, deliveryKeyboard()))
			return nil
		}
		sess.DeliveryMethod = method
		sess.State = StateConfirmingShipment
		if err := e.sessions.Put(ctx, ev.ClientID, sess); err != nil {
			return err
		}
		e.reply(ctx, ev.ClientID, fmt.Sprintf(msgConfirmShipment, sess.FullName, sess.Phone, sess.City, deliveryLabel(method)))

	case StateConfirmingShipment:
		if !isConfirmWord(text) {
			e.reply(ctx, ev.ClientID, fmt.Sprintf(msgConfirmShipment, sess.FullName, sess.Phone, sess.City, deliveryLabel(sess.DeliveryMethod)))
			return nil
		}
		return e.createShipment(ctx, ev, code, sess)

	case StateAwaitingPhotoTrack:
		return e.sendTrackPhotos(ctx, ev, text)

	case StateAwaitingOrderText:
		if utf8.RuneCountInString(strings.TrimSpace(text)) < minOrderTextLen {
			e.reply(ctx, ev.ClientID, msgOrderTooShort)
			return nil
		}
		if err := e.sessions.Clear(ctx, ev.ClientID); err != nil {
			return err
		}
		e.notifyStaff(ctx, e.cfg.ManagerID, "manager",
			fmt.Sprintf(notifyOrder, ev.DisplayName, ev.ClientID, code, text))
		e.reply(ctx, ev.ClientID, msgOrderSent)

	default:
		e.reply(ctx, ev.ClientID, msgHelp)
	}
	return nil
}

func (e *Engine) saveTrack(ctx context.Context, ev Event, code string, sess Session) error {
	if err := e.store.AddTrack(ctx, ev.ClientID, sess.TrackNumber, sess.DeliveryMethod); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	if err := e.sessions.Clear(ctx, ev.ClientID); err != nil {
		return err
	}
	tracks, err := e.store.ListTracks(ctx, ev.ClientID)
	if err != nil {
		return fmt.Errorf("list tracks: %w", err)
	}
	history := formatTrackHistory(tracks)
	e.reply(ctx, ev.ClientID, fmt.Sprintf(msgTrackSaved, sess.TrackNumber, deliveryLabel(sess.DeliveryMethod), history))
	e.notifyStaff(ctx, e.cfg.WarehouseID, "warehouse",
		fmt.Sprintf(notifyNewTrack, ev.DisplayName, ev.ClientID, code, sess.TrackNumber, deliveryLabel(sess.DeliveryMethod), history))
	return nil
}

func (e *Engine) createShipment(ctx context.Context, ev Event, code string, sess Session) error {
	now := time.Now().UTC()
	if err := e.store.SetRecipient(ctx, repo.Recipient{
		ClientID:  ev.ClientID,
		FullName:  sess.FullName,
		Phone:     sess.Phone,
		City:      sess.City,
		UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	seq, err := e.store.NextShipmentSequence(ctx, ev.ClientID)
	if err != nil {
		return fmt.Errorf("next shipment sequence: %w", err)
	}
	shipCode := repo.ShipmentCode(code, seq)
	_, err = e.store.CreateShipment(ctx, repo.Shipment{
		ID:              uuid.NewString(),
		ClientID:        ev.ClientID,
		SequenceNumber:  seq,
		Code:            shipCode,
		FullName:        sess.FullName,
		Phone:           sess.Phone,
		City:            sess.City,
		DeliveryMethod:  sess.DeliveryMethod,
		Status:          repo.StatusBuilding,
		StatusUpdatedAt: now,
		CreatedAt:       now,
	})
	if err != nil {
		return fmt.Errorf("create shipment: %w", err)
	}
	if err := e.store.AckAddressPrompt(ctx, ev.ClientID, now); err != nil {
		e.logger.Warn("ack address prompt failed", "client_id", ev.ClientID, "error", err)
	}
	if err := e.store.AckSendCargoPrompt(ctx, ev.ClientID, now); err != nil {
		e.logger.Warn("ack sendcargo prompt failed", "client_id", ev.ClientID, "error", err)
	}
	if err := e.sessions.Clear(ctx, ev.ClientID); err != nil {
		return err
	}
	e.reply(ctx, ev.ClientID, fmt.Sprintf(msgShipmentCreated, shipCode))
	e.notifyStaff(ctx, e.cfg.WarehouseID, "warehouse",
		fmt.Sprintf(notifyNewCargo, shipCode, ev.DisplayName, ev.ClientID, sess.FullName, sess.Phone, sess.City, deliveryLabel(sess.DeliveryMethod)))
	return nil
}

func (e *Engine) sendTrackPhotos(ctx context.Context, ev Event, text string) error {
	tn := NormalizeTrackNumber(text)
	if !IsValidTrackNumber(tn) {
		e.reply(ctx, ev.ClientID, msgInvalidTrack)
		return nil
	}
	if err := e.sessions.Clear(ctx, ev.ClientID); err != nil {
		return err
	}
	photos, err := e.store.ListTrackPhotos(ctx, tn)
	if err != nil {
		return fmt.Errorf("list track photos: %w", err)
	}
	if len(photos) == 0 {
		e.reply(ctx, ev.ClientID, msgNoPhotos)
		return nil
	}
	for _, p := range photos {
		caption := p.Caption
		if caption == "" {
			caption = fmt.Sprintf(msgPhotoCaption, tn)
		}
		if err := e.notifier.SendPhoto(ctx, ev.ClientID, p.FileRef, caption); err != nil {
			e.metrics.PushFailures.WithLabelValues("client").Inc()
			e.logger.Warn("photo push failed", "client_id", ev.ClientID, "error", err)
			continue
		}
		e.metrics.OutgoingMessages.WithLabelValues("photo").Inc()
	}
	return nil
}

// reply sends a text back to the chat, best-effort.
func (e *Engine) reply(ctx context.Context, clientID int64, text string) {
	if err := e.notifier.SendText(ctx, clientID, text); err != nil {
		e.metrics.PushFailures.WithLabelValues("client").Inc()
		e.logger.Warn("reply failed", "client_id", clientID, "error", err)
		return
	}
	e.metrics.OutgoingMessages.WithLabelValues("text").Inc()
}

// notifyStaff pushes a notification to a staff identity. A zero ID means
// the identity is not configured and the notification is skipped.
func (e *Engine) notifyStaff(ctx context.Context, staffID int64, kind, text string) {
	if staffID == 0 {
		e.logger.Debug("staff notification skipped", "kind", kind)
		return
	}
	if err := e.notifier.SendText(ctx, staffID, text); err != nil {
		e.metrics.PushFailures.WithLabelValues(kind).Inc()
		e.logger.Warn("staff notification failed", "kind", kind, "staff_id", staffID, "error", err)
		return
	}
	e.metrics.OutgoingMessages.WithLabelValues("text").Inc()
}

func formatTrackHistory(tracks []repo.Track) string {
	var b strings.Builder
	for i, t := range tracks {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, t.TrackNumber, deliveryLabel(t.DeliveryMethod))
	}
	return strings.TrimSpace(b.String())
}
