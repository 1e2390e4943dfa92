package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutasur/tour-reservation/internal/model"
)

func newMockReservationRepo(t *testing.T) (*ReservationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewReservationRepo(db, NewDepartureRepo(db), NewTimelineRepo(db)), mock
}

// lockedRow scripts the FOR UPDATE read CancelAtomic starts with.
func lockedRow(status model.ReservationStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "reference", "departure_id", "user_id", "customer_name", "customer_email",
		"customer_phone", "passenger_count", "total_price_cents", "status", "payment_status",
		"payment_due_date", "auto_cancel_at", "last_reminder_sent", "admin_alert_sent",
		"trip_reminder_sent", "created_at", "updated_at",
	}).AddRow(
		1, "a3f9c2d4", 5, nil, "Ana Quispe", "ana@example.com",
		"+51 999 000 111", 2, 360000, string(status), "completed",
		nil, nil, nil, false,
		false, now, now,
	)
}

func TestCancelAtomicCompletedOverride(t *testing.T) {
	// An admin may force-cancel even a completed reservation; the write
	// releases its seats in the same transaction.
	repo, mock := newMockReservationRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM reservations WHERE id = (.+) FOR UPDATE").
		WillReturnRows(lockedRow(model.StatusCompleted))
	mock.ExpectExec("UPDATE reservations SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE departures SET reserved_seats = GREATEST").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reservation_timeline_events").
		WithArgs(uint64(1), model.EventStatusChanged, sqlmock.AnyArg(), model.ActorAdmin).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectCommit()

	res, err := repo.CancelAtomic(context.Background(), 1, model.StatusCancelled, nil, model.ActorAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, res.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAtomicSchedulerWritesAutoCancelledEvent(t *testing.T) {
	repo, mock := newMockReservationRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM reservations WHERE id = (.+) FOR UPDATE").
		WillReturnRows(lockedRow(model.StatusVencida))
	mock.ExpectExec("UPDATE reservations SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE departures SET reserved_seats = GREATEST").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reservation_timeline_events").
		WithArgs(uint64(1), model.EventAutoCancelled, sqlmock.AnyArg(), model.ActorScheduler).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	res, err := repo.CancelAtomic(context.Background(), 1, model.StatusCancelada, nil, model.ActorScheduler)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelada, res.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAtomicSameStatusIsIdempotent(t *testing.T) {
	repo, mock := newMockReservationRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM reservations WHERE id = (.+) FOR UPDATE").
		WillReturnRows(lockedRow(model.StatusCancelada))
	mock.ExpectRollback()

	res, err := repo.CancelAtomic(context.Background(), 1, model.StatusCancelada, nil, model.ActorAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelada, res.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAtomicRejectsRenamingTerminalCancel(t *testing.T) {
	// cancelada relabelled as cancelled must surface as an invalid
	// transition, not a success that changed nothing.
	repo, mock := newMockReservationRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM reservations WHERE id = (.+) FOR UPDATE").
		WillReturnRows(lockedRow(model.StatusCancelada))
	mock.ExpectRollback()

	_, err := repo.CancelAtomic(context.Background(), 1, model.StatusCancelled, nil, model.ActorAdmin)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}
