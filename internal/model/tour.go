package model

import "time"

// Tour is a sellable product template. Departures are scheduled instances
// of a tour and carry their own seat inventory and price; the tour only
// provides defaults and marketing copy.
//
// ReservedSeats is a legacy aggregate kept for older reports; per-departure
// counters are authoritative.
type Tour struct {
	ID                   uint64
	Title                string
	Description          string
	Location             string
	BasePriceCents       uint32
	DurationDays         uint32
	MaxPassengers        uint32
	ReservedSeats        uint32
	MinDepositPercentage *uint32 // overrides the global deposit rule when set
	ImageURL             *string
	IsFeatured           bool
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
