// Package model defines the domain types of the tour reservation system.
// Status values are closed sets; transitions between reservation statuses
// are only legal when listed in the transition table below.
package model

import "errors"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusApproved  ReservationStatus = "approved"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCompleted ReservationStatus = "completed"
	// StatusVencida marks a reservation whose payment deadline has passed.
	// Seats stay held while vencida; only the cancellation statuses free them.
	StatusVencida   ReservationStatus = "vencida"
	StatusCancelada ReservationStatus = "cancelada"
	StatusCancelled ReservationStatus = "cancelled"
)

// PaymentStatus tracks how much of the total price has been collected.
// It evolves independently of ReservationStatus.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPartial   PaymentStatus = "partial"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// DepartureStatus is the administrative state of a departure.
type DepartureStatus string

const (
	DepartureActive    DepartureStatus = "active"
	DepartureInactive  DepartureStatus = "inactive"
	DepartureCancelled DepartureStatus = "cancelled"
)

// DocumentStatus is the review state of a passenger's travel documents,
// orthogonal to the reservation lifecycle.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
)

// InstallmentStatus is the state of a scheduled partial payment.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

// ErrInvalidTransition is returned when a status change is not listed in
// the transition table. Handlers translate it into HTTP 422.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions lists the legal reservation status changes. An admin may
// set any state to cancelled as a manual override, completed included;
// vencida may be recovered back to approved or confirmed while the grace
// window is open. Cancelada and cancelled accept no further transitions.
var transitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:   {StatusApproved, StatusConfirmed, StatusVencida, StatusCancelada, StatusCancelled},
	StatusApproved:  {StatusConfirmed, StatusVencida, StatusCancelada, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {StatusCancelled},
	StatusVencida:   {StatusApproved, StatusConfirmed, StatusCancelada, StatusCancelled},
}

// ParseReservationStatus validates a raw status string against the closed set.
func ParseReservationStatus(raw string) (ReservationStatus, bool) {
	switch s := ReservationStatus(raw); s {
	case StatusPending, StatusApproved, StatusConfirmed, StatusCompleted,
		StatusVencida, StatusCancelada, StatusCancelled:
		return s, true
	}
	return "", false
}

// ParsePaymentStatus validates a raw payment status string. The legacy
// value "confirmed" is accepted as an alias for completed.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch s := PaymentStatus(raw); s {
	case PaymentPending, PaymentPartial, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return s, true
	}
	if raw == "confirmed" {
		return PaymentCompleted, true
	}
	return "", false
}

// ParseDocumentStatus validates a raw document status string.
func ParseDocumentStatus(raw string) (DocumentStatus, bool) {
	switch s := DocumentStatus(raw); s {
	case DocumentPending, DocumentApproved, DocumentRejected:
		return s, true
	}
	return "", false
}

// CanTransition reports whether moving a reservation from one status to
// another is legal. A no-op transition to the current status is allowed so
// repeated admin calls stay idempotent.
func CanTransition(from, to ReservationStatus) bool {
	if from == to {
		return true
	}
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsCancellation reports whether a status belongs to the cancellation
// class handled by the atomic cancel path.
func (s ReservationStatus) IsCancellation() bool {
	return s == StatusCancelled || s == StatusCancelada || s == StatusVencida
}

// ReleasesSeats reports whether entering this status frees the seats the
// reservation holds. Vencida deliberately does not: it is the soft half of
// the two-phase cancellation, a grace window during which an admin can
// still recover the booking.
func (s ReservationStatus) ReleasesSeats() bool {
	return s == StatusCancelled || s == StatusCancelada
}
