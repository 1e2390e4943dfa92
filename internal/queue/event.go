// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationBookedEvent is published after a booking commits. It carries
// enough context for downstream consumers to log or notify without
// querying the primary database.
type ReservationBookedEvent struct {
	ReservationID   uint64 `json:"reservation_id"`
	Reference       string `json:"reference"`
	DepartureID     uint64 `json:"departure_id"`
	TourTitle       string `json:"tour_title"`
	DepartureDate   string `json:"departure_date"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	PassengerCount  uint32 `json:"passenger_count"`
	TotalPriceCents uint32 `json:"total_price_cents"`
	BookedAt        string `json:"booked_at"`
}

// ReservationCancelledEvent is published after a seat-releasing
// cancellation commits, whether triggered by an admin or by the
// auto-cancellation sweep.
type ReservationCancelledEvent struct {
	ReservationID  uint64 `json:"reservation_id"`
	Reference      string `json:"reference"`
	DepartureID    uint64 `json:"departure_id"`
	Status         string `json:"status"`
	PassengerCount uint32 `json:"passenger_count"`
	SeatsReleased  bool   `json:"seats_released"`
	Actor          string `json:"actor"`
	CancelledAt    string `json:"cancelled_at"`
}
