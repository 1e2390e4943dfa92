package repository

import (
	"context"
	"database/sql"

	"github.com/rutasur/tour-reservation/internal/model"
)

// PassengerRepo reads passengers and drives their document review
// workflow. Passenger rows are created inside the reservation's atomic
// insert and cascade-deleted with it.
type PassengerRepo struct {
	db *sql.DB
}

// NewPassengerRepo returns a PassengerRepo bound to the given database.
func NewPassengerRepo(db *sql.DB) *PassengerRepo { return &PassengerRepo{db: db} }

// ListByReservation returns a reservation's passengers in insertion order.
func (r *PassengerRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Passenger, error) {
	const q = `SELECT id, reservation_id, full_name, document_type, document_number, birth_date,
		document_status, created_at
		FROM passengers WHERE reservation_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Passenger, 0)
	for rows.Next() {
		var p model.Passenger
		var birth sql.NullTime
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.FullName, &p.DocumentType,
			&p.DocumentNumber, &birth, &p.DocumentStatus, &p.CreatedAt); err != nil {
			return nil, err
		}
		if birth.Valid {
			t := birth.Time
			p.BirthDate = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateDocumentStatus moves a passenger through the document review
// workflow, independent of the reservation lifecycle. Returns the owning
// reservation's id so the caller can record the review in its timeline.
func (r *PassengerRepo) UpdateDocumentStatus(ctx context.Context, passengerID uint64, status model.DocumentStatus) (uint64, error) {
	var reservationID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT reservation_id FROM passengers WHERE id = ?`, passengerID).Scan(&reservationID)
	if err != nil {
		return 0, err
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE passengers SET document_status = ? WHERE id = ?`, status, passengerID); err != nil {
		return 0, err
	}
	return reservationID, nil
}
