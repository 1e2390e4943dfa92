package model

import "time"

// Timeline event types. Every automated or manual state change appends
// exactly one event so the audit trail mirrors the order in which
// transitions actually committed.
const (
	EventReservationCreated = "reservation_created"
	EventStatusChanged      = "status_changed"
	EventPaymentRecorded    = "payment_recorded"
	EventDocumentReviewed   = "document_reviewed"
	EventReminderSent       = "reminder_sent"
	EventMarkedVencida      = "marked_vencida"
	EventAutoCancelled      = "auto_cancelled"
	EventAdminAlertSent     = "admin_alert_sent"
	EventTripReminderSent   = "trip_reminder_sent"
)

// Actor values recorded on timeline events.
const (
	ActorSystem    = "system"
	ActorScheduler = "scheduler"
	ActorAdmin     = "admin"
)

// TimelineEvent is one append-only audit entry for a reservation. Rows are
// never updated or deleted except by cascade when the reservation itself
// is removed.
type TimelineEvent struct {
	ID            uint64    `json:"id"`
	ReservationID uint64    `json:"reservation_id"`
	EventType     string    `json:"event_type"`
	Description   string    `json:"description"`
	Actor         string    `json:"actor"`
	CreatedAt     time.Time `json:"created_at"`
}
