package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// beginMockTx hands the test a live *sql.Tx over a mocked connection so
// the Tx-scoped counter mutations can run against scripted results.
func beginMockTx(t *testing.T) (*sql.Tx, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)
	return tx, mock
}

func TestReserveSeatsTxInsufficientCapacity(t *testing.T) {
	tx, mock := beginMockTx(t)
	mock.ExpectExec("UPDATE departures SET reserved_seats = reserved_seats").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewDepartureRepo(nil)
	err := repo.ReserveSeatsTx(context.Background(), tx, 7, 3)
	assert.ErrorIs(t, err, ErrInsufficientCapacity)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveSeatsTxSuccess(t *testing.T) {
	tx, mock := beginMockTx(t)
	mock.ExpectExec("UPDATE departures SET reserved_seats = reserved_seats").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	repo := NewDepartureRepo(nil)
	assert.NoError(t, repo.ReserveSeatsTx(context.Background(), tx, 7, 3))

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSeatsTxFlooredNoop(t *testing.T) {
	// A release on a counter already at zero changes no rows; that must
	// not be mistaken for a missing departure and sink the caller's
	// cancel transaction.
	tx, mock := beginMockTx(t)
	mock.ExpectExec("UPDATE departures SET reserved_seats = GREATEST").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM departures").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	repo := NewDepartureRepo(nil)
	assert.NoError(t, repo.ReleaseSeatsTx(context.Background(), tx, 7, 2))

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSeatsTxMissingDeparture(t *testing.T) {
	tx, mock := beginMockTx(t)
	mock.ExpectExec("UPDATE departures SET reserved_seats = GREATEST").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM departures").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	repo := NewDepartureRepo(nil)
	err := repo.ReleaseSeatsTx(context.Background(), tx, 404, 2)
	assert.ErrorIs(t, err, ErrDepartureNotFound)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSeatsTxChangedRows(t *testing.T) {
	tx, mock := beginMockTx(t)
	mock.ExpectExec("UPDATE departures SET reserved_seats = GREATEST").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	repo := NewDepartureRepo(nil)
	assert.NoError(t, repo.ReleaseSeatsTx(context.Background(), tx, 7, 2))

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
