package repo

import "time"

// ShipmentStatus is the two-value shipment lifecycle. The only legal
// transition is building -> shipped, triggered by the staff finalize flow.
type ShipmentStatus string

const (
	StatusBuilding ShipmentStatus = "building"
	StatusShipped  ShipmentStatus = "shipped"
)

// Track represents one registered tracking number.
type Track struct {
	ID             int64
	ClientID       int64
	TrackNumber    string
	DeliveryMethod string
	CreatedAt      time.Time
}

// TrackPhoto is a staff-uploaded evidence photo. TrackNumber is a free-form
// correlation key, not a foreign key: evidence may arrive before any client
// registers the number.
type TrackPhoto struct {
	ID          string
	TrackNumber string
	FileRef     string
	UploadedBy  int64
	Caption     string
	CreatedAt   time.Time
}

// Recipient is the per-client shipping contact snapshot. Each write fully
// replaces the previous one.
type Recipient struct {
	ClientID  int64
	FullName  string
	Phone     string
	City      string
	UpdatedAt time.Time
}

// Shipment is one outbound cargo record.
type Shipment struct {
	ID              string
	ClientID        int64
	SequenceNumber  int
	Code            string
	FullName        string
	Phone           string
	City            string
	DeliveryMethod  string
	Status          ShipmentStatus
	StatusUpdatedAt time.Time
	CreatedAt       time.Time
}

// Activity holds the per-client engagement timestamps the reminder
// scheduler scans.
type Activity struct {
	ClientID                int64
	FirstSeenAt             *time.Time
	LastActivityAt          *time.Time
	AddressPromptAckAt      *time.Time
	SendCargoPromptAckAt    *time.Time
	AddressReminderSentAt   *time.Time
	SendCargoReminderSentAt *time.Time
	InactiveReminderSentAt  *time.Time
}
