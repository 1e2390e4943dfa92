package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rutasur/tour-reservation/internal/model"
)

// ReservationRepo provides persistence for reservations, their passengers
// and the automation fields the scheduler drives. The two operations that
// touch inventory, CreateAtomic and CancelAtomic, run the status write and
// the seat counter update inside one transaction; a crash between the two
// is therefore not possible.
type ReservationRepo struct {
	db         *sql.DB
	departures *DepartureRepo
	timeline   *TimelineRepo
}

// NewReservationRepo returns a ReservationRepo bound to the given database
// and collaborating repositories.
func NewReservationRepo(db *sql.DB, departures *DepartureRepo, timeline *TimelineRepo) *ReservationRepo {
	return &ReservationRepo{db: db, departures: departures, timeline: timeline}
}

const reservationCols = `id, reference, departure_id, user_id, customer_name, customer_email,
	customer_phone, passenger_count, total_price_cents, status, payment_status,
	payment_due_date, auto_cancel_at, last_reminder_sent, admin_alert_sent,
	trip_reminder_sent, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var (
		res      model.Reservation
		userID   sql.NullInt64
		due      sql.NullTime
		cancelAt sql.NullTime
		lastRem  sql.NullInt64
		status   string
		payment  string
	)
	err := row.Scan(&res.ID, &res.Reference, &res.DepartureID, &userID, &res.CustomerName,
		&res.CustomerEmail, &res.CustomerPhone, &res.PassengerCount, &res.TotalPriceCents,
		&status, &payment, &due, &cancelAt, &lastRem, &res.AdminAlertSent,
		&res.TripReminderSent, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	res.PaymentStatus = model.PaymentStatus(payment)
	if userID.Valid {
		u := uint64(userID.Int64)
		res.UserID = &u
	}
	if due.Valid {
		t := due.Time
		res.PaymentDueDate = &t
	}
	if cancelAt.Valid {
		t := cancelAt.Time
		res.AutoCancelAt = &t
	}
	if lastRem.Valid {
		n := int(lastRem.Int64)
		res.LastReminderSent = &n
	}
	return &res, nil
}

// CreateAtomic books a reservation in a single transaction: it claims the
// seats through the departure repository's conditional update, inserts
// the reservation row and its passengers, and appends the creation
// timeline event. If the seats vanished between the handler's pre-check
// and this call, the conditional update matches no rows and the whole
// transaction rolls back with ErrInsufficientCapacity. This is the one
// place overbooking is structurally prevented; a separate check-then-write
// would reintroduce the race.
func (r *ReservationRepo) CreateAtomic(ctx context.Context, res *model.Reservation, passengers []model.Passenger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := r.departures.ReserveSeatsTx(ctx, tx, res.DepartureID, res.PassengerCount); err != nil {
		return err
	}

	const q = `INSERT INTO reservations
		(reference, departure_id, user_id, customer_name, customer_email, customer_phone,
		 passenger_count, total_price_cents, status, payment_status, payment_due_date, auto_cancel_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	ins, err := tx.ExecContext(ctx, q, res.Reference, res.DepartureID, res.UserID,
		res.CustomerName, res.CustomerEmail, res.CustomerPhone, res.PassengerCount,
		res.TotalPriceCents, res.Status, res.PaymentStatus, res.PaymentDueDate, res.AutoCancelAt)
	if err != nil {
		return err
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)

	if len(passengers) > 0 {
		query := `INSERT INTO passengers
			(reservation_id, full_name, document_type, document_number, birth_date, document_status) VALUES `
		args := make([]interface{}, 0, len(passengers)*6)
		for i := range passengers {
			p := &passengers[i]
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?)"
			status := p.DocumentStatus
			if status == "" {
				status = model.DocumentPending
			}
			args = append(args, res.ID, p.FullName, p.DocumentType, p.DocumentNumber, p.BirthDate, status)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if err := r.timeline.CreateTx(ctx, tx, &model.TimelineEvent{
		ReservationID: res.ID,
		EventType:     model.EventReservationCreated,
		Description:   fmt.Sprintf("reservation created for %d passenger(s)", res.PassengerCount),
		Actor:         model.ActorSystem,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	// Populate timestamps and defaults for the response.
	fresh, err := r.GetByID(ctx, res.ID)
	if err != nil {
		return err
	}
	*res = *fresh
	return nil
}

// GetByID returns a reservation or ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// GetByReference looks a reservation up by its public reference code.
func (r *ReservationRepo) GetByReference(ctx context.Context, reference string) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE reference = ?`, reference))
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// ListFilter narrows admin reservation listings.
type ListFilter struct {
	Status      string
	DepartureID uint64
}

// List returns reservations newest first, optionally filtered by status
// and departure.
func (r *ReservationRepo) List(ctx context.Context, f ListFilter) ([]model.Reservation, error) {
	q := `SELECT ` + reservationCols + ` FROM reservations`
	conds := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.DepartureID != 0 {
		conds = append(conds, "departure_id = ?")
		args = append(args, f.DepartureID)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// lockByID loads a reservation inside a transaction with a row lock, so
// concurrent status changes on the same reservation serialize.
func (r *ReservationRepo) lockByID(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ? FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// UpdateStatus performs a transition that does not touch inventory, such
// as pending to approved or a payment status change. Cancellation-class
// targets must go through CancelAtomic instead. The transition is
// validated against the model's table under a row lock and a timeline
// event is appended in the same transaction.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus, payment *model.PaymentStatus, actor string) (*model.Reservation, error) {
	if status.IsCancellation() {
		return nil, model.ErrInvalidTransition
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cur, err := r.lockByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(cur.Status, status) {
		return nil, model.ErrInvalidTransition
	}

	newPayment := cur.PaymentStatus
	if payment != nil {
		newPayment = *payment
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = ?, payment_status = ? WHERE id = ?`,
		status, newPayment, id); err != nil {
		return nil, err
	}
	if err := r.timeline.CreateTx(ctx, tx, &model.TimelineEvent{
		ReservationID: id,
		EventType:     model.EventStatusChanged,
		Description:   fmt.Sprintf("status %s -> %s (payment %s)", cur.Status, status, newPayment),
		Actor:         actor,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	cur.Status = status
	cur.PaymentStatus = newPayment
	return cur, nil
}

// CancelAtomic applies a cancellation-class status. The status write and,
// when the target status releases seats, the inventory decrement commit
// in one transaction. Vencida is handled here too but deliberately leaves
// the counter untouched: seats are only freed at the cancelada/cancelled
// step. Repeating a cancel with the same target status is a no-op on
// inventory, which makes double cancellation safe.
func (r *ReservationRepo) CancelAtomic(ctx context.Context, id uint64, status model.ReservationStatus, payment *model.PaymentStatus, actor string) (*model.Reservation, error) {
	if !status.IsCancellation() {
		return nil, model.ErrInvalidTransition
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cur, err := r.lockByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if cur.Status == status {
		// Idempotent: no second status write, no second seat release.
		return cur, nil
	}
	// Anything else is validated against the table, so cancelling an
	// already cancelada/cancelled row under a different name is a 422
	// rather than a success that changed nothing. The completed to
	// cancelled override is listed there explicitly.
	if !model.CanTransition(cur.Status, status) {
		return nil, model.ErrInvalidTransition
	}

	newPayment := cur.PaymentStatus
	if payment != nil {
		newPayment = *payment
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = ?, payment_status = ? WHERE id = ?`,
		status, newPayment, id); err != nil {
		return nil, err
	}

	eventType := model.EventStatusChanged
	desc := fmt.Sprintf("status %s -> %s", cur.Status, status)
	if status.ReleasesSeats() {
		// Release exactly the seats this reservation claimed at creation.
		if err := r.departures.ReleaseSeatsTx(ctx, tx, cur.DepartureID, cur.PassengerCount); err != nil {
			return nil, err
		}
		desc = fmt.Sprintf("status %s -> %s, released %d seat(s)", cur.Status, status, cur.PassengerCount)
		if actor == model.ActorScheduler {
			eventType = model.EventAutoCancelled
		}
	} else if status == model.StatusVencida {
		eventType = model.EventMarkedVencida
		desc = "payment deadline passed, reservation marked vencida (seats held)"
	}

	if err := r.timeline.CreateTx(ctx, tx, &model.TimelineEvent{
		ReservationID: id,
		EventType:     eventType,
		Description:   desc,
		Actor:         actor,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	cur.Status = status
	cur.PaymentStatus = newPayment
	return cur, nil
}

// AwaitingPayment returns reservations the reminder job must consider:
// still pending or approved, payment not yet complete, with a payment
// deadline set.
func (r *ReservationRepo) AwaitingPayment(ctx context.Context) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reservationCols+` FROM reservations
		 WHERE status IN (?, ?) AND payment_status IN (?, ?) AND payment_due_date IS NOT NULL
		 ORDER BY payment_due_date`,
		model.StatusPending, model.StatusApproved, model.PaymentPending, model.PaymentPartial)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// Overdue returns reservations whose payment deadline has passed but that
// have not been soft-locked yet.
func (r *ReservationRepo) Overdue(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reservationCols+` FROM reservations
		 WHERE status IN (?, ?) AND payment_status IN (?, ?)
		   AND payment_due_date IS NOT NULL AND payment_due_date < ?
		 ORDER BY payment_due_date`,
		model.StatusPending, model.StatusApproved, model.PaymentPending, model.PaymentPartial, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// Expired returns vencida reservations whose grace window has closed and
// that are ready for the hard cancel.
func (r *ReservationRepo) Expired(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reservationCols+` FROM reservations
		 WHERE status = ? AND auto_cancel_at IS NOT NULL AND auto_cancel_at <= ?
		 ORDER BY auto_cancel_at`,
		model.StatusVencida, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// TripReservation pairs a reservation with its departure date for the
// trip reminder job.
type TripReservation struct {
	model.Reservation
	DepartureDate time.Time
}

// UpcomingTrips returns confirmed, fully paid reservations that have not
// yet received their trip reminder.
func (r *ReservationRepo) UpcomingTrips(ctx context.Context) ([]TripReservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT res.id, res.reference, res.departure_id, res.user_id, res.customer_name,
		        res.customer_email, res.customer_phone, res.passenger_count, res.total_price_cents,
		        res.status, res.payment_status, res.payment_due_date, res.auto_cancel_at,
		        res.last_reminder_sent, res.admin_alert_sent, res.trip_reminder_sent,
		        res.created_at, res.updated_at, d.departure_date
		 FROM reservations res
		 JOIN departures d ON d.id = res.departure_id
		 WHERE res.status = ? AND res.payment_status = ? AND res.trip_reminder_sent = 0`,
		model.StatusConfirmed, model.PaymentCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]TripReservation, 0)
	for rows.Next() {
		var tr TripReservation
		var (
			userID   sql.NullInt64
			due      sql.NullTime
			cancelAt sql.NullTime
			lastRem  sql.NullInt64
		)
		if err := rows.Scan(&tr.ID, &tr.Reference, &tr.DepartureID, &userID, &tr.CustomerName,
			&tr.CustomerEmail, &tr.CustomerPhone, &tr.PassengerCount, &tr.TotalPriceCents,
			&tr.Status, &tr.PaymentStatus, &due, &cancelAt, &lastRem, &tr.AdminAlertSent,
			&tr.TripReminderSent, &tr.CreatedAt, &tr.UpdatedAt, &tr.DepartureDate); err != nil {
			return nil, err
		}
		if userID.Valid {
			u := uint64(userID.Int64)
			tr.UserID = &u
		}
		if due.Valid {
			t := due.Time
			tr.PaymentDueDate = &t
		}
		if cancelAt.Valid {
			t := cancelAt.Time
			tr.AutoCancelAt = &t
		}
		if lastRem.Valid {
			n := int(lastRem.Int64)
			tr.LastReminderSent = &n
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// SetLastReminderSent advances the reminder ratchet and records the send
// in the timeline. The WHERE clause keeps the ratchet monotonic even if
// two scheduler passes overlap: the tier may only move closer to the
// deadline.
func (r *ReservationRepo) SetLastReminderSent(ctx context.Context, id uint64, days int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET last_reminder_sent = ?
		 WHERE id = ? AND (last_reminder_sent IS NULL OR last_reminder_sent > ?)`,
		days, id, days)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Another pass already tightened the ratchet; nothing to record.
		return nil
	}
	if err := r.timeline.CreateTx(ctx, tx, &model.TimelineEvent{
		ReservationID: id,
		EventType:     model.EventReminderSent,
		Description:   fmt.Sprintf("payment reminder sent (%d days before deadline)", days),
		Actor:         model.ActorScheduler,
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetAdminAlertSent flips the one-shot admin expiry alert flag.
func (r *ReservationRepo) SetAdminAlertSent(ctx context.Context, id uint64) error {
	return r.setFlag(ctx, id, "admin_alert_sent", model.EventAdminAlertSent,
		"admin notified: payment deadline approaching")
}

// SetTripReminderSent flips the one-shot trip reminder flag.
func (r *ReservationRepo) SetTripReminderSent(ctx context.Context, id uint64) error {
	return r.setFlag(ctx, id, "trip_reminder_sent", model.EventTripReminderSent,
		"trip reminder sent to customer")
}

func (r *ReservationRepo) setFlag(ctx context.Context, id uint64, column, eventType, desc string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET `+column+` = 1 WHERE id = ? AND `+column+` = 0`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if err := r.timeline.CreateTx(ctx, tx, &model.TimelineEvent{
		ReservationID: id,
		EventType:     eventType,
		Description:   desc,
		Actor:         model.ActorScheduler,
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
