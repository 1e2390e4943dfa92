// Package scheduler drives the time-based reservation automation: payment
// reminders, the two-phase overdue sweep, admin expiry alerts and trip
// reminders. One periodic tick runs all four jobs; every job is guarded
// by persisted ratchet fields so re-running it is always safe.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rutasur/tour-reservation/internal/model"
	"github.com/rutasur/tour-reservation/internal/repository"
)

// Storage is the persistence surface the automation jobs need. The
// repository.AutomationStore implements it against MySQL; tests swap in
// an in-memory fake.
type Storage interface {
	AwaitingPayment(ctx context.Context) ([]model.Reservation, error)
	Overdue(ctx context.Context, now time.Time) ([]model.Reservation, error)
	Expired(ctx context.Context, now time.Time) ([]model.Reservation, error)
	UpcomingTrips(ctx context.Context) ([]repository.TripReservation, error)
	EnabledRules(ctx context.Context) ([]model.ReminderRule, error)
	AdminEmails(ctx context.Context) ([]string, error)

	MarkVencida(ctx context.Context, id uint64) error
	CancelExpired(ctx context.Context, id uint64) error
	MarkInstallmentsOverdue(ctx context.Context, now time.Time) (int64, error)
	SetLastReminderSent(ctx context.Context, id uint64, days int) error
	SetAdminAlertSent(ctx context.Context, id uint64) error
	SetTripReminderSent(ctx context.Context, id uint64) error
}

// Notifier dispatches customer and admin email for automated transitions.
// Delivery failures never roll back a state change that already committed.
type Notifier interface {
	SendPaymentReminder(ctx context.Context, res model.Reservation, rule model.ReminderRule) error
	SendOverdueNotice(ctx context.Context, res model.Reservation) error
	SendCancellationNotice(ctx context.Context, res model.Reservation) error
	SendAdminReservationExpiring(ctx context.Context, admins []string, res model.Reservation, daysLeft int) error
	SendTripReminder(ctx context.Context, res model.Reservation, departureDate time.Time) error
}

// Events publishes domain events for transitions the automation commits,
// mirroring what the admin cancel route publishes. A nil Events disables
// publishing; delivery failures never undo a committed transition.
type Events interface {
	ReservationAutoCancelled(ctx context.Context, res *model.Reservation) error
}

// Scheduler runs the four automation jobs on a fixed interval.
type Scheduler struct {
	store  Storage
	notify Notifier
	events Events
	logger *log.Logger

	tick             time.Duration
	adminAlertDays   int
	tripReminderDays int
}

// Options tunes the scheduler. Zero values fall back to the defaults
// used in production (5 minute tick, alerts at 3 days, trips at 7).
type Options struct {
	Tick             time.Duration
	AdminAlertDays   int
	TripReminderDays int
	Events           Events
	Logger           *log.Logger
}

func New(store Storage, notify Notifier, opts Options) *Scheduler {
	s := &Scheduler{
		store:            store,
		notify:           notify,
		events:           opts.Events,
		logger:           opts.Logger,
		tick:             opts.Tick,
		adminAlertDays:   opts.AdminAlertDays,
		tripReminderDays: opts.TripReminderDays,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.tick <= 0 {
		s.tick = 5 * time.Minute
	}
	if s.adminAlertDays <= 0 {
		s.adminAlertDays = 3
	}
	if s.tripReminderDays <= 0 {
		s.tripReminderDays = 7
	}
	return s
}

// Run blocks until ctx is cancelled. The first pass happens immediately
// so transitions missed during downtime are caught up at startup.
func (s *Scheduler) Run(ctx context.Context) {
	s.RunOnce(ctx, time.Now().UTC())
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.RunOnce(ctx, time.Now().UTC())
		}
	}
}

// RunOnce executes a single pass of all four jobs. A failure in one job
// is logged and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) {
	s.runJob(ctx, "payment_reminders", func() error { return s.paymentReminders(ctx, now) })
	s.runJob(ctx, "auto_cancel_sweep", func() error { return s.autoCancelSweep(ctx, now) })
	s.runJob(ctx, "admin_expiry_alerts", func() error { return s.adminExpiryAlerts(ctx, now) })
	s.runJob(ctx, "trip_reminders", func() error { return s.tripReminders(ctx, now) })
}

func (s *Scheduler) runJob(ctx context.Context, name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("scheduler: job %s panicked: %v", name, r)
		}
	}()
	if ctx.Err() != nil {
		return
	}
	if err := fn(); err != nil {
		s.logger.Printf("scheduler: job %s failed: %v", name, err)
	}
}

// paymentReminders walks reservations still awaiting payment and fires the
// reminder tier due now, if any. The ratchet only advances after a
// successful send, so a failed delivery is retried on a later tick.
func (s *Scheduler) paymentReminders(ctx context.Context, now time.Time) error {
	rules, err := s.store.EnabledRules(ctx)
	if err != nil {
		return fmt.Errorf("load reminder rules: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}
	pending, err := s.store.AwaitingPayment(ctx)
	if err != nil {
		return fmt.Errorf("load pending reservations: %w", err)
	}
	for i := range pending {
		res := pending[i]
		if res.UserID == nil || res.PaymentDueDate == nil {
			continue
		}
		rule := SelectRule(now, res.LastReminderSent, *res.PaymentDueDate, rules)
		if rule == nil {
			continue
		}
		if err := s.notify.SendPaymentReminder(ctx, res, *rule); err != nil {
			s.logger.Printf("scheduler: reminder for reservation %d failed: %v", res.ID, err)
			continue
		}
		if err := s.store.SetLastReminderSent(ctx, res.ID, rule.DaysBeforeDeadline); err != nil {
			s.logger.Printf("scheduler: ratchet update for reservation %d failed: %v", res.ID, err)
		}
	}
	return nil
}

// autoCancelSweep runs the two-phase cancellation. Phase one soft-locks
// overdue reservations as vencida without touching seats. Phase two hard
// cancels vencida reservations whose grace window closed, releasing seats.
func (s *Scheduler) autoCancelSweep(ctx context.Context, now time.Time) error {
	if n, err := s.store.MarkInstallmentsOverdue(ctx, now); err != nil {
		s.logger.Printf("scheduler: mark overdue installments failed: %v", err)
	} else if n > 0 {
		s.logger.Printf("scheduler: %d installments marked overdue", n)
	}

	overdue, err := s.store.Overdue(ctx, now)
	if err != nil {
		return fmt.Errorf("load overdue reservations: %w", err)
	}
	for i := range overdue {
		res := overdue[i]
		if err := s.store.MarkVencida(ctx, res.ID); err != nil {
			s.logger.Printf("scheduler: mark vencida %d failed: %v", res.ID, err)
			continue
		}
		if err := s.notify.SendOverdueNotice(ctx, res); err != nil {
			s.logger.Printf("scheduler: overdue notice for %d failed: %v", res.ID, err)
		}
	}

	expired, err := s.store.Expired(ctx, now)
	if err != nil {
		return fmt.Errorf("load expired reservations: %w", err)
	}
	for i := range expired {
		res := expired[i]
		if err := s.store.CancelExpired(ctx, res.ID); err != nil {
			s.logger.Printf("scheduler: cancel %d failed: %v", res.ID, err)
			continue
		}
		if s.events != nil {
			if err := s.events.ReservationAutoCancelled(ctx, &res); err != nil {
				s.logger.Printf("scheduler: cancelled event for %d failed: %v", res.ID, err)
			}
		}
		if err := s.notify.SendCancellationNotice(ctx, res); err != nil {
			s.logger.Printf("scheduler: cancellation notice for %d failed: %v", res.ID, err)
		}
	}
	return nil
}

// adminExpiryAlerts notifies admins once when a reservation is exactly
// adminAlertDays from its payment deadline. A pass that skips the exact
// day (scheduler downtime) skips the alert; the one-shot flag keeps the
// alert from repeating when the day is hit by several ticks.
func (s *Scheduler) adminExpiryAlerts(ctx context.Context, now time.Time) error {
	pending, err := s.store.AwaitingPayment(ctx)
	if err != nil {
		return fmt.Errorf("load pending reservations: %w", err)
	}
	var admins []string
	for i := range pending {
		res := pending[i]
		if res.AdminAlertSent || res.PaymentDueDate == nil {
			continue
		}
		if model.DaysUntil(now, *res.PaymentDueDate) != s.adminAlertDays {
			continue
		}
		if admins == nil {
			admins, err = s.store.AdminEmails(ctx)
			if err != nil {
				return fmt.Errorf("load admin emails: %w", err)
			}
			if len(admins) == 0 {
				return nil
			}
		}
		if err := s.notify.SendAdminReservationExpiring(ctx, admins, res, s.adminAlertDays); err != nil {
			s.logger.Printf("scheduler: admin alert for %d failed: %v", res.ID, err)
			continue
		}
		if err := s.store.SetAdminAlertSent(ctx, res.ID); err != nil {
			s.logger.Printf("scheduler: admin alert flag for %d failed: %v", res.ID, err)
		}
	}
	return nil
}

// tripReminders notifies confirmed, fully paid customers once, exactly
// tripReminderDays before departure.
func (s *Scheduler) tripReminders(ctx context.Context, now time.Time) error {
	trips, err := s.store.UpcomingTrips(ctx)
	if err != nil {
		return fmt.Errorf("load upcoming trips: %w", err)
	}
	for i := range trips {
		tr := trips[i]
		if tr.TripReminderSent {
			continue
		}
		if model.DaysUntil(now, tr.DepartureDate) != s.tripReminderDays {
			continue
		}
		if err := s.notify.SendTripReminder(ctx, tr.Reservation, tr.DepartureDate); err != nil {
			s.logger.Printf("scheduler: trip reminder for %d failed: %v", tr.ID, err)
			continue
		}
		if err := s.store.SetTripReminderSent(ctx, tr.ID); err != nil {
			s.logger.Printf("scheduler: trip reminder flag for %d failed: %v", tr.ID, err)
		}
	}
	return nil
}
