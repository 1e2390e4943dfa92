package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rutasur/tour-reservation/internal/model"
)

// DepartureRepo manages departures and owns the seat inventory invariant
// 0 <= reserved_seats <= total_seats. The two counter mutations,
// ReserveSeatsTx and ReleaseSeatsTx, are conditional single-statement
// updates so the check and the increment commit together; no code path
// may write reserved_seats directly.
type DepartureRepo struct {
	db *sql.DB
}

// NewDepartureRepo returns a DepartureRepo bound to the given database.
func NewDepartureRepo(db *sql.DB) *DepartureRepo { return &DepartureRepo{db: db} }

const departureCols = `id, tour_id, departure_date, return_date, total_seats, reserved_seats,
	price_cents, payment_deadline_days, status, created_at, updated_at`

func scanDeparture(row interface{ Scan(...any) error }) (*model.Departure, error) {
	var d model.Departure
	var ret sql.NullTime
	if err := row.Scan(&d.ID, &d.TourID, &d.DepartureDate, &ret, &d.TotalSeats, &d.ReservedSeats,
		&d.PriceCents, &d.PaymentDeadlineDays, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if ret.Valid {
		t := ret.Time
		d.ReturnDate = &t
	}
	return &d, nil
}

// Create inserts a new departure and populates the generated ID and
// DB-default fields on the passed struct. The handler validates that the
// departure date is in the future and total_seats is positive.
func (r *DepartureRepo) Create(ctx context.Context, d *model.Departure) error {
	const q = `INSERT INTO departures
		(tour_id, departure_date, return_date, total_seats, price_cents, payment_deadline_days, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	status := d.Status
	if status == "" {
		status = model.DepartureActive
	}
	res, err := r.db.ExecContext(ctx, q, d.TourID, d.DepartureDate, d.ReturnDate,
		d.TotalSeats, d.PriceCents, d.PaymentDeadlineDays, status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*d = *fresh
	return nil
}

// GetByID returns a departure or ErrDepartureNotFound.
func (r *DepartureRepo) GetByID(ctx context.Context, id uint64) (*model.Departure, error) {
	d, err := scanDeparture(r.db.QueryRowContext(ctx,
		`SELECT `+departureCols+` FROM departures WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrDepartureNotFound
	}
	return d, err
}

// ListByTour returns all departures of a tour, soonest first.
func (r *DepartureRepo) ListByTour(ctx context.Context, tourID uint64) ([]model.Departure, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+departureCols+` FROM departures WHERE tour_id = ? ORDER BY departure_date`, tourID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDepartures(rows)
}

// ListActive returns active future departures for the public catalog.
func (r *DepartureRepo) ListActive(ctx context.Context) ([]model.Departure, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+departureCols+` FROM departures
		 WHERE status = ? AND departure_date > UTC_TIMESTAMP()
		 ORDER BY departure_date`, model.DepartureActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDepartures(rows)
}

func collectDepartures(rows *sql.Rows) ([]model.Departure, error) {
	out := make([]model.Departure, 0)
	for rows.Next() {
		d, err := scanDeparture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Update edits mutable departure fields. Capacity can only shrink down
// to the current reserved count; violating that returns ErrConflict. The
// check and the write run in one conditional statement so a concurrent
// booking cannot slip between them.
func (r *DepartureRepo) Update(ctx context.Context, d *model.Departure) error {
	const q = `UPDATE departures
		SET departure_date = ?, return_date = ?, total_seats = ?, price_cents = ?,
		    payment_deadline_days = ?, status = ?
		WHERE id = ? AND ? >= reserved_seats`
	res, err := r.db.ExecContext(ctx, q, d.DepartureDate, d.ReturnDate, d.TotalSeats,
		d.PriceCents, d.PaymentDeadlineDays, d.Status, d.ID, d.TotalSeats)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Zero rows means the departure is missing, the new capacity is
		// below the reserved count, or the update was a no-op. Reload to
		// tell the cases apart (MySQL reports no-op updates as 0 rows).
		cur, err := r.GetByID(ctx, d.ID)
		if err != nil {
			return err
		}
		if d.TotalSeats < cur.ReservedSeats {
			return ErrConflict
		}
	}
	return nil
}

// Delete removes a departure. Deletion is blocked while any seats are
// reserved; the guard lives in the WHERE clause for the same reason the
// capacity check does.
func (r *DepartureRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM departures WHERE id = ? AND reserved_seats = 0`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// ReserveSeatsTx atomically claims count seats on an active departure.
// The capacity precondition sits in the WHERE clause, so under concurrent
// bookings the database serializes the read-check-increment and the loser
// simply matches zero rows, which is reported as ErrInsufficientCapacity.
func (r *DepartureRepo) ReserveSeatsTx(ctx context.Context, tx *sql.Tx, departureID uint64, count uint32) error {
	const q = `UPDATE departures
		SET reserved_seats = reserved_seats + ?
		WHERE id = ? AND status = ? AND reserved_seats + ? <= total_seats`
	res, err := tx.ExecContext(ctx, q, count, departureID, model.DepartureActive, count)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientCapacity
	}
	return nil
}

// ReleaseSeatsTx returns count seats to the pool, floored at zero. It
// must run in the same transaction as the status write that triggered
// the release; the caller owns the commit.
func (r *DepartureRepo) ReleaseSeatsTx(ctx context.Context, tx *sql.Tx, departureID uint64, count uint32) error {
	const q = `UPDATE departures
		SET reserved_seats = GREATEST(CAST(reserved_seats AS SIGNED) - ?, 0)
		WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, count, departureID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// The driver reports changed rows, so a release on a counter
		// already at zero matches nothing. Only a missing departure may
		// fail the caller's transaction.
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM departures WHERE id = ?`, departureID).Scan(&one)
		if err == sql.ErrNoRows {
			return ErrDepartureNotFound
		}
		return err
	}
	return nil
}

// HasReservations reports whether any departure of the tour still carries
// reserved seats. Used to block tour deletion.
func (r *DepartureRepo) HasReservations(ctx context.Context, tourID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM departures WHERE tour_id = ? AND reserved_seats > 0`, tourID).Scan(&n)
	return n > 0, err
}

// NextDeparture returns the soonest active departure of a tour after the
// given instant, or ErrDepartureNotFound when none is scheduled.
func (r *DepartureRepo) NextDeparture(ctx context.Context, tourID uint64, after time.Time) (*model.Departure, error) {
	d, err := scanDeparture(r.db.QueryRowContext(ctx,
		`SELECT `+departureCols+` FROM departures
		 WHERE tour_id = ? AND departure_date > ? AND status = ?
		 ORDER BY departure_date LIMIT 1`, tourID, after, model.DepartureActive))
	if err == sql.ErrNoRows {
		return nil, ErrDepartureNotFound
	}
	return d, err
}
