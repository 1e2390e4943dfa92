package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from ReservationStatus
		to   ReservationStatus
		ok   bool
	}{
		{"pending to approved", StatusPending, StatusApproved, true},
		{"pending to confirmed", StatusPending, StatusConfirmed, true},
		{"pending to vencida", StatusPending, StatusVencida, true},
		{"approved to vencida", StatusApproved, StatusVencida, true},
		{"vencida to cancelada", StatusVencida, StatusCancelada, true},
		{"vencida recovered to approved", StatusVencida, StatusApproved, true},
		{"confirmed to completed", StatusConfirmed, StatusCompleted, true},
		{"admin cancel from confirmed", StatusConfirmed, StatusCancelled, true},
		{"admin override cancels completed", StatusCompleted, StatusCancelled, true},
		{"same status is a no-op", StatusApproved, StatusApproved, true},

		{"completed cannot reopen", StatusCompleted, StatusPending, false},
		{"completed cannot go cancelada", StatusCompleted, StatusCancelada, false},
		{"cancelada is terminal", StatusCancelada, StatusPending, false},
		{"cancelled is terminal", StatusCancelled, StatusApproved, false},
		{"cancelada cannot be renamed cancelled", StatusCancelada, StatusCancelled, false},
		{"confirmed cannot regress", StatusConfirmed, StatusPending, false},
		{"confirmed cannot go vencida", StatusConfirmed, StatusVencida, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to))
		})
	}
}

func TestReleasesSeats(t *testing.T) {
	// Vencida is the soft half of the two-phase cancellation: seats must
	// stay held until the hard cancel.
	assert.False(t, StatusVencida.ReleasesSeats())
	assert.True(t, StatusCancelada.ReleasesSeats())
	assert.True(t, StatusCancelled.ReleasesSeats())
	assert.False(t, StatusPending.ReleasesSeats())
	assert.False(t, StatusCompleted.ReleasesSeats())
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, StatusVencida.IsCancellation())
	assert.True(t, StatusCancelada.IsCancellation())
	assert.True(t, StatusCancelled.IsCancellation())
	assert.False(t, StatusApproved.IsCancellation())
}

func TestParseReservationStatus(t *testing.T) {
	s, ok := ParseReservationStatus("vencida")
	require.True(t, ok)
	assert.Equal(t, StatusVencida, s)

	_, ok = ParseReservationStatus("expired")
	assert.False(t, ok)
}

func TestParsePaymentStatus_ConfirmedAlias(t *testing.T) {
	s, ok := ParsePaymentStatus("confirmed")
	require.True(t, ok)
	assert.Equal(t, PaymentCompleted, s)
}

func TestDeadlineArithmetic(t *testing.T) {
	departure := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)

	due := ComputePaymentDueDate(departure, 30)
	assert.Equal(t, time.Date(2026, 2, 13, 8, 0, 0, 0, time.UTC), due)

	cancelAt := ComputeAutoCancelAt(due, AutoCancelGrace)
	assert.Equal(t, due.Add(24*time.Hour), cancelAt)
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want int
	}{
		{"exactly 7 days", now.AddDate(0, 0, 7), 7},
		{"36 hours floors to 1", now.Add(36 * time.Hour), 1},
		{"same instant", now, 0},
		{"later today", now.Add(6 * time.Hour), 0},
		{"yesterday", now.Add(-30 * time.Hour), -2},
		{"one hour ago", now.Add(-time.Hour), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(now, tt.t))
		})
	}
}

func TestParseSendTime(t *testing.T) {
	m, err := ParseSendTime("09:00")
	require.NoError(t, err)
	assert.Equal(t, 540, m)

	m, err = ParseSendTime("23:59")
	require.NoError(t, err)
	assert.Equal(t, 1439, m)

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd"} {
		_, err := ParseSendTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestDepartureSeatsAvailable(t *testing.T) {
	d := Departure{TotalSeats: 10, ReservedSeats: 4}
	assert.Equal(t, uint32(6), d.SeatsAvailable())

	d.ReservedSeats = 10
	assert.Equal(t, uint32(0), d.SeatsAvailable())
}
