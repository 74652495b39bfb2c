package convo

import "context"

// EventKind discriminates inbound chat events.
type EventKind string

const (
	KindText  EventKind = "text"
	KindPhoto EventKind = "photo"
)

// Event is one inbound chat message, already tagged with the verified
// client identity by the transport layer.
type Event struct {
	ClientID    int64
	DisplayName string
	Kind        EventKind
	Text        string
	// PhotoRef is the transport's opaque reference to the uploaded photo;
	// Caption accompanies it.
	PhotoRef string
	Caption  string
}

// Notifier pushes outbound messages. Every implementation is best-effort:
// the engine catches and logs failures, it never rolls back a committed
// write because a push failed.
type Notifier interface {
	SendText(ctx context.Context, clientID int64, text string) error
	SendPhoto(ctx context.Context, clientID int64, photoRef, caption string) error
	SendPhotoBatch(ctx context.Context, clientID int64, photoRefs []string, caption string) error
}
