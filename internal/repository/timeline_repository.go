package repository

import (
	"context"
	"database/sql"

	"github.com/rutasur/tour-reservation/internal/model"
)

// TimelineRepo appends and reads the per-reservation audit trail. Rows
// are append-only; there is intentionally no update or delete method.
type TimelineRepo struct {
	db *sql.DB
}

// NewTimelineRepo returns a TimelineRepo bound to the given database.
func NewTimelineRepo(db *sql.DB) *TimelineRepo { return &TimelineRepo{db: db} }

// CreateTx appends an event within the caller's transaction, so the event
// commits together with the state change it describes.
func (r *TimelineRepo) CreateTx(ctx context.Context, tx *sql.Tx, ev *model.TimelineEvent) error {
	const q = `INSERT INTO reservation_timeline_events (reservation_id, event_type, description, actor)
		VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, ev.ReservationID, ev.EventType, ev.Description, ev.Actor)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// Create appends an event outside any transaction, used for observations
// that do not accompany a state write (for example a notification that
// was dispatched after commit).
func (r *TimelineRepo) Create(ctx context.Context, ev *model.TimelineEvent) error {
	const q = `INSERT INTO reservation_timeline_events (reservation_id, event_type, description, actor)
		VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, ev.ReservationID, ev.EventType, ev.Description, ev.Actor)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// ListByReservation returns the full trail oldest first, matching the
// order in which the transitions committed.
func (r *TimelineRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.TimelineEvent, error) {
	const q = `SELECT id, reservation_id, event_type, description, actor, created_at
		FROM reservation_timeline_events WHERE reservation_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TimelineEvent, 0)
	for rows.Next() {
		var ev model.TimelineEvent
		if err := rows.Scan(&ev.ID, &ev.ReservationID, &ev.EventType, &ev.Description, &ev.Actor, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
