package model

import "time"

// Departure is one dated occurrence of a tour with its own price and seat
// inventory. ReservedSeats is the hot counter of the whole system: every
// mutation goes through the departure repository's conditional updates,
// never through a plain field write, so 0 <= ReservedSeats <= TotalSeats
// holds under concurrent bookings.
type Departure struct {
	ID                  uint64
	TourID              uint64
	DepartureDate       time.Time
	ReturnDate          *time.Time
	TotalSeats          uint32
	ReservedSeats       uint32
	PriceCents          uint32
	PaymentDeadlineDays uint32
	Status              DepartureStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SeatsAvailable returns the remaining capacity of the departure.
func (d *Departure) SeatsAvailable() uint32 {
	if d.ReservedSeats >= d.TotalSeats {
		return 0
	}
	return d.TotalSeats - d.ReservedSeats
}

// PaymentDueDate derives the payment deadline from the departure date:
// exactly PaymentDeadlineDays before departure.
func (d *Departure) PaymentDueDate() time.Time {
	return ComputePaymentDueDate(d.DepartureDate, d.PaymentDeadlineDays)
}
