package repository

import (
	"context"
	"time"

	"github.com/rutasur/tour-reservation/internal/model"
)

// AutomationStore bundles the repositories the scheduler needs behind one
// value. Transitions go through ReservationRepo.CancelAtomic so the seat
// accounting rules hold for automated changes exactly as for manual ones.
type AutomationStore struct {
	Reservations *ReservationRepo
	Installments *InstallmentRepo
	Rules        *ReminderRuleRepo
	Users        *UserRepo

	// FallbackAdmin is used for expiry alerts when no admin user exists.
	FallbackAdmin string
}

func NewAutomationStore(res *ReservationRepo, ins *InstallmentRepo, rules *ReminderRuleRepo, users *UserRepo) *AutomationStore {
	return &AutomationStore{Reservations: res, Installments: ins, Rules: rules, Users: users}
}

func (s *AutomationStore) AwaitingPayment(ctx context.Context) ([]model.Reservation, error) {
	return s.Reservations.AwaitingPayment(ctx)
}

func (s *AutomationStore) Overdue(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	return s.Reservations.Overdue(ctx, now)
}

func (s *AutomationStore) Expired(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	return s.Reservations.Expired(ctx, now)
}

func (s *AutomationStore) UpcomingTrips(ctx context.Context) ([]TripReservation, error) {
	return s.Reservations.UpcomingTrips(ctx)
}

func (s *AutomationStore) EnabledRules(ctx context.Context) ([]model.ReminderRule, error) {
	return s.Rules.ListEnabled(ctx)
}

func (s *AutomationStore) AdminEmails(ctx context.Context) ([]string, error) {
	emails, err := s.Users.AdminEmails(ctx)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 && s.FallbackAdmin != "" {
		emails = []string{s.FallbackAdmin}
	}
	return emails, nil
}

// MarkInstallmentsOverdue flags pending installments whose due date has
// passed so the admin list surfaces them.
func (s *AutomationStore) MarkInstallmentsOverdue(ctx context.Context, now time.Time) (int64, error) {
	return s.Installments.MarkOverdue(ctx, now)
}

// MarkVencida soft-locks an overdue reservation. Seats stay held because
// vencida is not a seat-releasing status.
func (s *AutomationStore) MarkVencida(ctx context.Context, id uint64) error {
	_, err := s.Reservations.CancelAtomic(ctx, id, model.StatusVencida, nil, model.ActorScheduler)
	return err
}

// CancelExpired hard-cancels a vencida reservation after its grace window
// and releases its seats in the same transaction.
func (s *AutomationStore) CancelExpired(ctx context.Context, id uint64) error {
	failed := model.PaymentFailed
	_, err := s.Reservations.CancelAtomic(ctx, id, model.StatusCancelada, &failed, model.ActorScheduler)
	return err
}

func (s *AutomationStore) SetLastReminderSent(ctx context.Context, id uint64, days int) error {
	return s.Reservations.SetLastReminderSent(ctx, id, days)
}

func (s *AutomationStore) SetAdminAlertSent(ctx context.Context, id uint64) error {
	return s.Reservations.SetAdminAlertSent(ctx, id)
}

func (s *AutomationStore) SetTripReminderSent(ctx context.Context, id uint64) error {
	return s.Reservations.SetTripReminderSent(ctx, id)
}
