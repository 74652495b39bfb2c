package convo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"probuy-bot/internal/repo"
)

// handleStaff routes an event from a staff identity. The boolean reports
// whether the event belonged to a staff flow; unhandled events fall through
// to the regular client handling so staff can use the bot as clients too.
func (e *Engine) handleStaff(ctx context.Context, ev Event) (bool, error) {
	sess, err := e.staffSessions.Get(ctx, ev.ClientID)
	if err != nil {
		return true, err
	}

	if ev.Kind == KindPhoto {
		return e.handleStaffPhoto(ctx, ev, sess)
	}

	text := strings.TrimSpace(ev.Text)

	if isCancelWord(text) && sess.State != StateIdle {
		if sess.ShipmentCode != "" {
			if err := e.batches.Discard(ctx, ev.ClientID, sess.ShipmentCode); err != nil {
				e.logger.Warn("discard media batch failed", "staff_id", ev.ClientID, "error", err)
			}
		}
		if err := e.staffSessions.Clear(ctx, ev.ClientID); err != nil {
			return true, err
		}
		e.reply(ctx, ev.ClientID, msgCancelled)
		return true, nil
	}

	cmd, rest, _ := strings.Cut(text, " ")
	if strings.ToLower(cmd) == "/find" {
		code, ok := FindShipmentCode(rest)
		if !ok {
			if err := e.staffSessions.Put(ctx, ev.ClientID, Session{State: StateStaffAwaitingCode}); err != nil {
				return true, err
			}
			e.reply(ctx, ev.ClientID, msgStaffAskCode)
			return true, nil
		}
		return true, e.startShipmentBatch(ctx, ev, code)
	}

	switch sess.State {
	case StateStaffAwaitingCode:
		code, ok := FindShipmentCode(text)
		if !ok {
			e.reply(ctx, ev.ClientID, msgStaffBadCode)
			return true, nil
		}
		return true, e.startShipmentBatch(ctx, ev, code)

	case StateStaffAwaitingMedia:
		if isDoneWord(text) {
			return true, e.finalizeShipmentBatch(ctx, ev, sess)
		}
		e.reply(ctx, ev.ClientID, fmt.Sprintf(msgStaffMediaPrompt, sess.ShipmentCode))
		return true, nil
	}

	return false, nil
}

func (e *Engine) handleStaffPhoto(ctx context.Context, ev Event, sess Session) (bool, error) {
	if sess.State == StateStaffAwaitingMedia {
		if err := e.batches.Append(ctx, ev.ClientID, sess.ShipmentCode, ev.PhotoRef); err != nil {
			return true, err
		}
		n, err := e.batches.Len(ctx, ev.ClientID, sess.ShipmentCode)
		if err != nil {
			return true, err
		}
		e.reply(ctx, ev.ClientID, fmt.Sprintf(msgStaffPhotoAccepted, n))
		return true, nil
	}

	caption := strings.TrimSpace(ev.Caption)
	if code, ok := FindShipmentCode(caption); ok {
		if err := e.startShipmentBatch(ctx, ev, code); err != nil {
			return true, err
		}
		// The session may not exist when the code was unknown.
		s, err := e.staffSessions.Get(ctx, ev.ClientID)
		if err != nil || s.State != StateStaffAwaitingMedia {
			return true, err
		}
		if err := e.batches.Append(ctx, ev.ClientID, code, ev.PhotoRef); err != nil {
			return true, err
		}
		e.reply(ctx, ev.ClientID, fmt.Sprintf(msgStaffPhotoAccepted, 1))
		return true, nil
	}

	if tn := NormalizeTrackNumber(caption); IsValidTrackNumber(tn) {
		return true, e.storeEvidence(ctx, ev, tn)
	}

	return false, nil
}

func (e *Engine) startShipmentBatch(ctx context.Context, ev Event, code string) error {
	_, err := e.store.FindClientByShipmentCode(ctx, code)
	if errors.Is(err, repo.ErrNotFound) {
		e.reply(ctx, ev.ClientID, fmt.Sprintf(msgStaffUnknownCode, code))
		return nil
	}
	if err != nil {
		return fmt.Errorf("find shipment %s: %w", code, err)
	}
	if err := e.staffSessions.Put(ctx, ev.ClientID, Session{
		State:        StateStaffAwaitingMedia,
		ShipmentCode: code,
	}); err != nil {
		return err
	}
	e.reply(ctx, ev.ClientID, fmt.Sprintf(msgStaffMediaPrompt, code))
	return nil
}

// finalizeShipmentBatch pushes the buffered photos to the shipment's owner
// and flips the shipment to shipped. The status write happens even when the
// push fails: delivery state must reflect the warehouse, not the chat.
func (e *Engine) finalizeShipmentBatch(ctx context.Context, ev Event, sess Session) error {
	n, err := e.batches.Len(ctx, ev.ClientID, sess.ShipmentCode)
	if err != nil {
		return err
	}
	if n == 0 {
		e.reply(ctx, ev.ClientID, msgStaffNoPhotos)
		return nil
	}

	clientID, err := e.store.FindClientByShipmentCode(ctx, sess.ShipmentCode)
	if err != nil {
		return fmt.Errorf("find shipment %s: %w", sess.ShipmentCode, err)
	}
	refs, err := e.batches.Drain(ctx, ev.ClientID, sess.ShipmentCode)
	if err != nil {
		return err
	}
	if len(refs) > e.cfg.MaxBatchSize {
		refs = refs[:e.cfg.MaxBatchSize]
	}

	caption := fmt.Sprintf(msgBatchCaption, sess.ShipmentCode)
	if err := e.notifier.SendPhotoBatch(ctx, clientID, refs, caption); err != nil {
		e.metrics.PushFailures.WithLabelValues("client").Inc()
		e.logger.Warn("batch push failed", "client_id", clientID, "code", sess.ShipmentCode, "error", err)
	} else {
		e.metrics.OutgoingMessages.WithLabelValues("photo").Inc()
	}

	if err := e.store.UpdateShipmentStatus(ctx, sess.ShipmentCode, repo.StatusShipped); err != nil {
		return fmt.Errorf("update shipment status: %w", err)
	}
	if err := e.staffSessions.Clear(ctx, ev.ClientID); err != nil {
		return err
	}
	e.reply(ctx, ev.ClientID, fmt.Sprintf(msgStaffBatchSent, sess.ShipmentCode))
	return nil
}

// storeEvidence records one arrival photo and fans it out to every client
// who registered the track number. Evidence for an unknown number is still
// stored: /photos serves it once the client registers.
func (e *Engine) storeEvidence(ctx context.Context, ev Event, trackNumber string) error {
	// The inbound caption was consumed as the correlation key, so the row
	// carries no caption of its own; delivery synthesizes one.
	if err := e.store.AddTrackPhoto(ctx, repo.TrackPhoto{
		ID:          uuid.NewString(),
		TrackNumber: trackNumber,
		FileRef:     ev.PhotoRef,
		UploadedBy:  ev.ClientID,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("add track photo: %w", err)
	}

	clients, err := e.store.FindClientsByTrack(ctx, trackNumber)
	if err != nil {
		return fmt.Errorf("find clients by track: %w", err)
	}
	delivered := 0
	for _, clientID := range clients {
		if err := e.notifier.SendPhoto(ctx, clientID, ev.PhotoRef, fmt.Sprintf(msgPhotoCaption, trackNumber)); err != nil {
			e.metrics.PushFailures.WithLabelValues("client").Inc()
			e.logger.Warn("evidence push failed", "client_id", clientID, "track", trackNumber, "error", err)
			continue
		}
		delivered++
		e.metrics.EvidenceFanout.Inc()
		e.metrics.OutgoingMessages.WithLabelValues("photo").Inc()
	}

	if delivered == 0 && len(clients) == 0 {
		e.reply(ctx, ev.ClientID, msgStaffFanoutNoClient)
		return nil
	}
	e.reply(ctx, ev.ClientID, fmt.Sprintf(msgStaffFanoutDone, delivered))
	return nil
}
