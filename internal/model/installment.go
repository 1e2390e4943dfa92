package model

import "time"

// PaymentInstallment is a scheduled partial payment toward a reservation's
// total price. Installments are recorded manually by back-office staff;
// there is no payment gateway. The sum of paid installments is reconciled
// against the reservation total when deciding the payment status.
type PaymentInstallment struct {
	ID               uint64
	ReservationID    uint64
	AmountDueCents   uint32
	DueDate          time.Time
	Status           InstallmentStatus
	PaidAt           *time.Time
	PaymentMethod    *string
	PaymentReference *string
	ExchangeRate     *float64 // rate applied when the payment arrived in another currency
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
