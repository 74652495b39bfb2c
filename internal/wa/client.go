package wa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"

	"probuy-bot/internal/convo"
	"probuy-bot/internal/metrics"
)

// Config holds configuration to initialise the WhatsApp client.
type Config struct {
	StorePath string
	LogLevel  string
	Metrics   *metrics.Metrics
}

// Handler consumes inbound chat events. The conversation engine implements
// it; the transport never looks inside the event beyond building it.
type Handler interface {
	Handle(ctx context.Context, ev convo.Event) error
}

// Client wraps the WhatsMeow client behind the chat-neutral surfaces the
// rest of the service uses: inbound events go to the Handler, outbound
// pushes come through the convo.Notifier methods.
type Client struct {
	client  *whatsmeow.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	handler Handler
}

// mediaRef is the opaque photo reference the engine stores and replays.
// It captures everything needed to re-send an already uploaded image
// without downloading it.
type mediaRef struct {
	URL           string `json:"url"`
	DirectPath    string `json:"direct_path"`
	MediaKey      []byte `json:"media_key"`
	FileEncSHA256 []byte `json:"file_enc_sha256"`
	FileSHA256    []byte `json:"file_sha256"`
	FileLength    uint64 `json:"file_length"`
	Mimetype      string `json:"mimetype"`
}

func encodeMediaRef(img *waProto.ImageMessage) (string, error) {
	ref := mediaRef{
		URL:           img.GetURL(),
		DirectPath:    img.GetDirectPath(),
		MediaKey:      img.GetMediaKey(),
		FileEncSHA256: img.GetFileEncSHA256(),
		FileSHA256:    img.GetFileSHA256(),
		FileLength:    img.GetFileLength(),
		Mimetype:      img.GetMimetype(),
	}
	data, err := json.Marshal(ref)
	if err != nil {
		return "", fmt.Errorf("encode media ref: %w", err)
	}
	return string(data), nil
}

func decodeMediaRef(s string) (*waProto.ImageMessage, error) {
	var ref mediaRef
	if err := json.Unmarshal([]byte(s), &ref); err != nil {
		return nil, fmt.Errorf("decode media ref: %w", err)
	}
	mime := ref.Mimetype
	if mime == "" {
		mime = "image/jpeg"
	}
	return &waProto.ImageMessage{
		URL:           proto.String(ref.URL),
		DirectPath:    proto.String(ref.DirectPath),
		MediaKey:      ref.MediaKey,
		FileEncSHA256: ref.FileEncSHA256,
		FileSHA256:    ref.FileSHA256,
		FileLength:    proto.Uint64(ref.FileLength),
		Mimetype:      proto.String(mime),
	}, nil
}

// New creates a new WhatsApp client instance backed by an SQLite store.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.StorePath == "" {
		return nil, errors.New("store path is required")
	}

	if err := ensureDir(filepath.Dir(cfg.StorePath)); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}

	storeLogger := waLog.Stdout("whatsmeow/sqlstore", cfg.LogLevel, true)
	container, err := sqlstore.New(ctx, "sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout=10000&_pragma=foreign_keys(ON)", cfg.StorePath), storeLogger)
	if err != nil {
		return nil, fmt.Errorf("create sqlstore: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	waLogger := waLog.Stdout("whatsmeow/client", cfg.LogLevel, true)
	client := whatsmeow.NewClient(deviceStore, waLogger)

	wc := &Client{
		client:  client,
		logger:  logger.With("component", "wa"),
		metrics: cfg.Metrics,
	}
	client.AddEventHandler(wc.handleEvent)

	return wc, nil
}

// SetHandler registers the inbound event consumer.
func (c *Client) SetHandler(h Handler) {
	c.handler = h
}

// Start connects the client and handles login/QR pairing flow.
func (c *Client) Start(ctx context.Context) error {
	if c.client.Store.ID == nil {
		c.logger.Info("pairing required, waiting for QR scan")
		qrChan, err := c.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("get qr channel: %w", err)
		}

		go func() {
			for evt := range qrChan {
				if evt.Event == "code" {
					c.logger.Info("scan the QR code with WhatsApp", "qr", evt.Code)
				} else {
					c.logger.Info("pairing event received", "event", evt.Event)
				}
			}
		}()
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect wa client: %w", err)
	}

	c.logger.Info("whatsapp client connected")
	return nil
}

// Close disconnects the WhatsApp client.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Disconnect()
	}
}

func (c *Client) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		c.handleMessage(v)
	case *events.Connected:
		c.logger.Info("device connected")
	case *events.Disconnected:
		c.logger.Warn("device disconnected")
	}
}

func (c *Client) handleMessage(evt *events.Message) {
	msg := evt.Message
	if msg == nil || evt.Info.IsFromMe || evt.Info.IsGroup {
		return
	}

	clientID, err := strconv.ParseInt(evt.Info.Sender.User, 10, 64)
	if err != nil {
		c.logger.Debug("sender is not a phone number, skipping", "sender", evt.Info.Sender.String())
		return
	}

	ev := convo.Event{
		ClientID:    clientID,
		DisplayName: evt.Info.PushName,
	}

	switch {
	case msg.GetConversation() != "":
		ev.Kind = convo.KindText
		ev.Text = msg.GetConversation()
	case msg.ExtendedTextMessage != nil:
		ev.Kind = convo.KindText
		ev.Text = msg.GetExtendedTextMessage().GetText()
	case msg.ImageMessage != nil:
		ref, err := encodeMediaRef(msg.GetImageMessage())
		if err != nil {
			c.logger.Warn("image ref encode failed", "error", err)
			return
		}
		ev.Kind = convo.KindPhoto
		ev.PhotoRef = ref
		ev.Caption = msg.GetImageMessage().GetCaption()
	default:
		c.logger.Debug("unsupported message type", "from", evt.Info.Sender.String())
		return
	}

	if c.handler == nil {
		return
	}
	go func() {
		if err := c.handler.Handle(context.Background(), ev); err != nil {
			if c.metrics != nil {
				c.metrics.Errors.WithLabelValues("wa").Inc()
			}
			c.logger.Error("event handling failed", "client_id", ev.ClientID, "error", err)
		}
	}()
}

func userJID(clientID int64) types.JID {
	return types.NewJID(strconv.FormatInt(clientID, 10), types.DefaultUserServer)
}

// SendText sends a text message to the chat identified by clientID.
func (c *Client) SendText(ctx context.Context, clientID int64, text string) error {
	message := &waProto.Message{
		Conversation: proto.String(text),
	}
	if _, err := c.client.SendMessage(ctx, userJID(clientID), message); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

// SendPhoto re-sends a previously uploaded image by its stored reference.
func (c *Client) SendPhoto(ctx context.Context, clientID int64, photoRef, caption string) error {
	img, err := decodeMediaRef(photoRef)
	if err != nil {
		return err
	}
	if caption != "" {
		img.Caption = proto.String(caption)
	}
	message := &waProto.Message{ImageMessage: img}
	if _, err := c.client.SendMessage(ctx, userJID(clientID), message); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

// SendPhotoBatch sends the photos in order; the caption rides on the first.
func (c *Client) SendPhotoBatch(ctx context.Context, clientID int64, photoRefs []string, caption string) error {
	for i, ref := range photoRefs {
		withCaption := ""
		if i == 0 {
			withCaption = caption
		}
		if err := c.SendPhoto(ctx, clientID, ref, withCaption); err != nil {
			return fmt.Errorf("send photo %d/%d: %w", i+1, len(photoRefs), err)
		}
	}
	return nil
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}
