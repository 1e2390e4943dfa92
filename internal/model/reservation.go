package model

import "time"

// AutoCancelGrace is the default window between the payment deadline and
// the moment the sweep hard-cancels an overdue reservation. During the
// window the reservation sits in vencida with its seats still held.
const AutoCancelGrace = 24 * time.Hour

// Reservation is a booking of PassengerCount seats against one departure.
// The buyer does not need an account; UserID is set only when the booking
// was made while logged in. PassengerCount is permanently bound to the
// seats reserved in the departure: cancellation releases exactly that many.
//
// LastReminderSent stores the smallest days-before-deadline tier already
// notified (nil = none yet). The scheduler only ever tightens it toward
// the deadline, which is what keeps payment reminders single-shot per tier.
type Reservation struct {
	ID               uint64
	Reference        string // public lookup code (uuid), safe to share with the buyer
	DepartureID      uint64
	UserID           *uint64
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	PassengerCount   uint32
	TotalPriceCents  uint32
	Status           ReservationStatus
	PaymentStatus    PaymentStatus
	PaymentDueDate   *time.Time
	AutoCancelAt     *time.Time
	LastReminderSent *int
	AdminAlertSent   bool
	TripReminderSent bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Passenger belongs to exactly one reservation and is cascade-deleted with
// it. Document review runs its own pending/approved/rejected workflow,
// independent of the reservation status.
type Passenger struct {
	ID             uint64
	ReservationID  uint64
	FullName       string
	DocumentType   string
	DocumentNumber string
	BirthDate      *time.Time
	DocumentStatus DocumentStatus
	CreatedAt      time.Time
}

// ComputePaymentDueDate returns departureDate minus deadlineDays, the last
// day on which payment may still arrive.
func ComputePaymentDueDate(departureDate time.Time, deadlineDays uint32) time.Time {
	return departureDate.AddDate(0, 0, -int(deadlineDays))
}

// ComputeAutoCancelAt returns the instant the auto-cancellation sweep may
// hard-cancel: the payment deadline plus the grace window.
func ComputeAutoCancelAt(paymentDueDate time.Time, grace time.Duration) time.Time {
	return paymentDueDate.Add(grace)
}

// DaysUntil returns the whole number of days from now until t, floored.
// A deadline 36 hours away counts as 1 day; a deadline in the past is
// negative.
func DaysUntil(now, t time.Time) int {
	diff := t.Sub(now)
	days := int(diff.Hours() / 24)
	if diff < 0 && diff.Hours()/24 != float64(days) {
		days--
	}
	return days
}
