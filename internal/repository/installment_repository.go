package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rutasur/tour-reservation/internal/model"
)

// InstallmentRepo manages scheduled partial payments. Payments are
// recorded manually by back-office staff; recording one reconciles the
// paid total against the reservation price and moves the reservation's
// payment status in the same transaction.
type InstallmentRepo struct {
	db       *sql.DB
	timeline *TimelineRepo
}

// NewInstallmentRepo returns an InstallmentRepo bound to the given
// database and timeline repository.
func NewInstallmentRepo(db *sql.DB, timeline *TimelineRepo) *InstallmentRepo {
	return &InstallmentRepo{db: db, timeline: timeline}
}

const installmentCols = `id, reservation_id, amount_due_cents, due_date, status, paid_at,
	payment_method, payment_reference, exchange_rate, created_at, updated_at`

func scanInstallment(row interface{ Scan(...any) error }) (*model.PaymentInstallment, error) {
	var in model.PaymentInstallment
	var paidAt sql.NullTime
	var method, reference sql.NullString
	var rate sql.NullFloat64
	if err := row.Scan(&in.ID, &in.ReservationID, &in.AmountDueCents, &in.DueDate, &in.Status,
		&paidAt, &method, &reference, &rate, &in.CreatedAt, &in.UpdatedAt); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		t := paidAt.Time
		in.PaidAt = &t
	}
	if method.Valid {
		s := method.String
		in.PaymentMethod = &s
	}
	if reference.Valid {
		s := reference.String
		in.PaymentReference = &s
	}
	if rate.Valid {
		f := rate.Float64
		in.ExchangeRate = &f
	}
	return &in, nil
}

// Create inserts a pending installment for a reservation.
func (r *InstallmentRepo) Create(ctx context.Context, in *model.PaymentInstallment) error {
	const q = `INSERT INTO payment_installments (reservation_id, amount_due_cents, due_date, status)
		VALUES (?, ?, ?, ?)`
	status := in.Status
	if status == "" {
		status = model.InstallmentPending
	}
	res, err := r.db.ExecContext(ctx, q, in.ReservationID, in.AmountDueCents, in.DueDate, status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	in.ID = uint64(id)
	in.Status = status
	return nil
}

// ListByReservation returns a reservation's installments by due date.
func (r *InstallmentRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.PaymentInstallment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+installmentCols+` FROM payment_installments WHERE reservation_id = ? ORDER BY due_date`,
		reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PaymentInstallment, 0)
	for rows.Next() {
		in, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

// PaymentDetails carries the manually recorded payment metadata.
type PaymentDetails struct {
	Method       string
	Reference    string
	ExchangeRate *float64
}

// RecordPayment marks an installment paid and reconciles the
// reservation's payment status against the sum of paid installments, all
// in one transaction. The reservation becomes partial when anything has
// been paid and completed once the paid total covers the full price.
func (r *InstallmentRepo) RecordPayment(ctx context.Context, installmentID uint64, det PaymentDetails, now time.Time) (*model.PaymentInstallment, error) {
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

	in, err := scanInstallment(tx.QueryRowContext(ctx,
		`SELECT `+installmentCols+` FROM payment_installments WHERE id = ? FOR UPDATE`, installmentID))
	if err == sql.ErrNoRows {
		return nil, ErrInstallmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if in.Status == model.InstallmentPaid {
		return nil, ErrConflict
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE payment_installments
		 SET status = ?, paid_at = ?, payment_method = ?, payment_reference = ?, exchange_rate = ?
		 WHERE id = ?`,
		model.InstallmentPaid, now, det.Method, det.Reference, det.ExchangeRate, installmentID); err != nil {
		return nil, err
	}

	var paidCents, totalCents uint64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(pi.amount_due_cents), 0), r.total_price_cents
		 FROM reservations r
		 LEFT JOIN payment_installments pi ON pi.reservation_id = r.id AND pi.status = ?
		 WHERE r.id = ?
		 GROUP BY r.total_price_cents`,
		model.InstallmentPaid, in.ReservationID).Scan(&paidCents, &totalCents); err != nil {
		return nil, err
	}

	paymentStatus := model.PaymentPartial
	if paidCents >= totalCents {
		paymentStatus = model.PaymentCompleted
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET payment_status = ? WHERE id = ?`,
		paymentStatus, in.ReservationID); err != nil {
		return nil, err
	}

	if err := r.timeline.CreateTx(ctx, tx, &model.TimelineEvent{
		ReservationID: in.ReservationID,
		EventType:     model.EventPaymentRecorded,
		Description: fmt.Sprintf("installment %d paid via %s, payment status now %s",
			in.ID, det.Method, paymentStatus),
		Actor: model.ActorSystem,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	in.Status = model.InstallmentPaid
	in.PaidAt = &now
	in.PaymentMethod = &det.Method
	in.PaymentReference = &det.Reference
	in.ExchangeRate = det.ExchangeRate
	return in, nil
}

// MarkOverdue flags pending installments whose due date has passed. Run
// from the scheduler tick; safe to repeat.
func (r *InstallmentRepo) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_installments SET status = ? WHERE status = ? AND due_date < ?`,
		model.InstallmentOverdue, model.InstallmentPending, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
