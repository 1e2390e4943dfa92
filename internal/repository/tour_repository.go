package repository

import (
	"context"
	"database/sql"

	"github.com/rutasur/tour-reservation/internal/model"
)

// TourRepo manages the sellable tour catalog. Inventory lives on
// departures; the tour's own reserved_seats column is a legacy aggregate
// that is read but never used for capacity decisions.
type TourRepo struct {
	db *sql.DB
}

// NewTourRepo returns a TourRepo bound to the given database.
func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{db: db} }

const tourCols = `id, title, description, location, base_price_cents, duration_days,
	max_passengers, reserved_seats, min_deposit_percentage, image_url,
	is_featured, is_active, created_at, updated_at`

func scanTour(row interface{ Scan(...any) error }) (*model.Tour, error) {
	var t model.Tour
	var deposit sql.NullInt64
	var image sql.NullString
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Location, &t.BasePriceCents,
		&t.DurationDays, &t.MaxPassengers, &t.ReservedSeats, &deposit, &image,
		&t.IsFeatured, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if deposit.Valid {
		v := uint32(deposit.Int64)
		t.MinDepositPercentage = &v
	}
	if image.Valid {
		s := image.String
		t.ImageURL = &s
	}
	return &t, nil
}

// Create inserts a tour and populates its generated ID.
func (r *TourRepo) Create(ctx context.Context, t *model.Tour) error {
	const q = `INSERT INTO tours
		(title, description, location, base_price_cents, duration_days, max_passengers,
		 min_deposit_percentage, image_url, is_featured, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.Title, t.Description, t.Location, t.BasePriceCents,
		t.DurationDays, t.MaxPassengers, t.MinDepositPercentage, t.ImageURL, t.IsFeatured, t.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID returns a tour or ErrTourNotFound.
func (r *TourRepo) GetByID(ctx context.Context, id uint64) (*model.Tour, error) {
	t, err := scanTour(r.db.QueryRowContext(ctx,
		`SELECT `+tourCols+` FROM tours WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrTourNotFound
	}
	return t, err
}

// ListActive returns the public catalog, featured tours first.
func (r *TourRepo) ListActive(ctx context.Context) ([]model.Tour, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tourCols+` FROM tours WHERE is_active = 1 ORDER BY is_featured DESC, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTours(rows)
}

// List returns every tour for the back office.
func (r *TourRepo) List(ctx context.Context) ([]model.Tour, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tourCols+` FROM tours ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTours(rows)
}

func collectTours(rows *sql.Rows) ([]model.Tour, error) {
	out := make([]model.Tour, 0)
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Update rewrites a tour's editable fields.
func (r *TourRepo) Update(ctx context.Context, t *model.Tour) error {
	const q = `UPDATE tours
		SET title = ?, description = ?, location = ?, base_price_cents = ?, duration_days = ?,
		    max_passengers = ?, min_deposit_percentage = ?, image_url = ?, is_featured = ?, is_active = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, t.Title, t.Description, t.Location, t.BasePriceCents,
		t.DurationDays, t.MaxPassengers, t.MinDepositPercentage, t.ImageURL, t.IsFeatured, t.IsActive, t.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a tour. The handler blocks deletion while any departure
// of the tour still has reservations.
func (r *TourRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tours WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTourNotFound
	}
	return nil
}
