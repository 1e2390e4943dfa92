package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutasur/tour-reservation/internal/model"
	"github.com/rutasur/tour-reservation/internal/repository"
)

// fakeStore is an in-memory Storage. Mutations record the ids they were
// called with so tests can assert on exactly which reservations moved.
type fakeStore struct {
	pending []model.Reservation
	overdue []model.Reservation
	expired []model.Reservation
	trips   []repository.TripReservation
	rules   []model.ReminderRule
	admins  []string

	markedVencida  []uint64
	cancelled      []uint64
	reminderSet    map[uint64]int
	adminAlertSet  []uint64
	tripFlagSet    []uint64
	adminEmailErr  error
	markVencidaErr map[uint64]error
	cancelErr      map[uint64]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{reminderSet: map[uint64]int{}}
}

func (f *fakeStore) AwaitingPayment(context.Context) ([]model.Reservation, error) {
	return f.pending, nil
}
func (f *fakeStore) Overdue(context.Context, time.Time) ([]model.Reservation, error) {
	return f.overdue, nil
}
func (f *fakeStore) Expired(context.Context, time.Time) ([]model.Reservation, error) {
	return f.expired, nil
}
func (f *fakeStore) UpcomingTrips(context.Context) ([]repository.TripReservation, error) {
	return f.trips, nil
}
func (f *fakeStore) EnabledRules(context.Context) ([]model.ReminderRule, error) {
	return f.rules, nil
}
func (f *fakeStore) AdminEmails(context.Context) ([]string, error) {
	return f.admins, f.adminEmailErr
}
func (f *fakeStore) MarkInstallmentsOverdue(context.Context, time.Time) (int64, error) {
	return 0, nil
}
func (f *fakeStore) MarkVencida(_ context.Context, id uint64) error {
	if err := f.markVencidaErr[id]; err != nil {
		return err
	}
	f.markedVencida = append(f.markedVencida, id)
	return nil
}
func (f *fakeStore) CancelExpired(_ context.Context, id uint64) error {
	if err := f.cancelErr[id]; err != nil {
		return err
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}
func (f *fakeStore) SetLastReminderSent(_ context.Context, id uint64, days int) error {
	f.reminderSet[id] = days
	return nil
}
func (f *fakeStore) SetAdminAlertSent(_ context.Context, id uint64) error {
	f.adminAlertSet = append(f.adminAlertSet, id)
	return nil
}
func (f *fakeStore) SetTripReminderSent(_ context.Context, id uint64) error {
	f.tripFlagSet = append(f.tripFlagSet, id)
	return nil
}

// fakeNotifier records every send and can fail selectively by id.
type fakeNotifier struct {
	reminders     []uint64
	overdue       []uint64
	cancellations []uint64
	adminAlerts   []uint64
	tripReminders []uint64
	failReminder  map[uint64]error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failReminder: map[uint64]error{}}
}

func (n *fakeNotifier) SendPaymentReminder(_ context.Context, res model.Reservation, _ model.ReminderRule) error {
	if err := n.failReminder[res.ID]; err != nil {
		return err
	}
	n.reminders = append(n.reminders, res.ID)
	return nil
}
func (n *fakeNotifier) SendOverdueNotice(_ context.Context, res model.Reservation) error {
	n.overdue = append(n.overdue, res.ID)
	return nil
}
func (n *fakeNotifier) SendCancellationNotice(_ context.Context, res model.Reservation) error {
	n.cancellations = append(n.cancellations, res.ID)
	return nil
}
func (n *fakeNotifier) SendAdminReservationExpiring(_ context.Context, _ []string, res model.Reservation, _ int) error {
	n.adminAlerts = append(n.adminAlerts, res.ID)
	return nil
}
func (n *fakeNotifier) SendTripReminder(_ context.Context, res model.Reservation, _ time.Time) error {
	n.tripReminders = append(n.tripReminders, res.ID)
	return nil
}

// fakeEvents records cancel events and can fail selectively by id.
type fakeEvents struct {
	cancelled []uint64
	fail      map[uint64]error
}

func (e *fakeEvents) ReservationAutoCancelled(_ context.Context, res *model.Reservation) error {
	if err := e.fail[res.ID]; err != nil {
		return err
	}
	e.cancelled = append(e.cancelled, res.ID)
	return nil
}

func quietScheduler(store Storage, notify Notifier) *Scheduler {
	return New(store, notify, Options{Logger: log.New(io.Discard, "", 0)})
}

func pendingReservation(id, userID uint64, due time.Time) model.Reservation {
	return model.Reservation{
		ID:             id,
		UserID:         &userID,
		Status:         model.StatusPending,
		PaymentStatus:  model.PaymentPending,
		PaymentDueDate: &due,
	}
}

func TestPaymentRemindersRatchetAdvancesOnlyOnSuccess(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 5, 0, 0, time.UTC)
	due := now.AddDate(0, 0, 7)

	store := newFakeStore()
	store.rules = []model.ReminderRule{rule(1, 7, "09:00")}
	store.pending = []model.Reservation{
		pendingReservation(10, 1, due),
		pendingReservation(11, 2, due),
	}

	notify := newFakeNotifier()
	notify.failReminder[11] = errors.New("smtp down")

	s := quietScheduler(store, notify)
	s.RunOnce(context.Background(), now)

	assert.Equal(t, []uint64{10}, notify.reminders)
	assert.Equal(t, map[uint64]int{10: 7}, store.reminderSet,
		"the ratchet must not advance for the failed delivery")

	// Next tick retries the failed one without repeating the sent one.
	delete(notify.failReminder, 11)
	sent := 7
	store.pending[0].LastReminderSent = &sent
	s.RunOnce(context.Background(), now.Add(5*time.Minute))

	assert.Equal(t, []uint64{10, 11}, notify.reminders)
	assert.Equal(t, 7, store.reminderSet[11])
}

func TestPaymentRemindersSkipAnonymousAndUndated(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, 7)

	store := newFakeStore()
	store.rules = []model.ReminderRule{rule(1, 7, "09:00")}
	anon := model.Reservation{ID: 20, Status: model.StatusPending, PaymentDueDate: &due}
	uid := uint64(5)
	undated := model.Reservation{ID: 21, UserID: &uid, Status: model.StatusPending}
	store.pending = []model.Reservation{anon, undated}

	notify := newFakeNotifier()
	quietScheduler(store, notify).RunOnce(context.Background(), now)

	assert.Empty(t, notify.reminders)
	assert.Empty(t, store.reminderSet)
}

func TestAutoCancelSweepRunsBothPhases(t *testing.T) {
	now := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.overdue = []model.Reservation{{ID: 30}, {ID: 31}}
	store.expired = []model.Reservation{{ID: 40}}

	notify := newFakeNotifier()
	quietScheduler(store, notify).RunOnce(context.Background(), now)

	assert.Equal(t, []uint64{30, 31}, store.markedVencida)
	assert.Equal(t, []uint64{30, 31}, notify.overdue)
	assert.Equal(t, []uint64{40}, store.cancelled)
	assert.Equal(t, []uint64{40}, notify.cancellations)
}

func TestAutoCancelSweepContinuesPastFailures(t *testing.T) {
	store := newFakeStore()
	store.overdue = []model.Reservation{{ID: 30}, {ID: 31}}
	store.markVencidaErr = map[uint64]error{30: errors.New("row locked")}

	notify := newFakeNotifier()
	quietScheduler(store, notify).RunOnce(context.Background(), time.Now().UTC())

	assert.Equal(t, []uint64{31}, store.markedVencida,
		"a failed transition must not block the rest of the sweep")
	assert.Equal(t, []uint64{31}, notify.overdue,
		"no notice goes out for a transition that did not commit")
}

func TestAutoCancelSweepPublishesCancelledEvents(t *testing.T) {
	store := newFakeStore()
	store.overdue = []model.Reservation{{ID: 11}}
	store.expired = []model.Reservation{{ID: 21}, {ID: 22}, {ID: 23}}
	store.cancelErr = map[uint64]error{21: errors.New("row locked")}

	notify := newFakeNotifier()
	events := &fakeEvents{fail: map[uint64]error{23: errors.New("broker down")}}
	s := New(store, notify, Options{Logger: log.New(io.Discard, "", 0), Events: events})
	s.RunOnce(context.Background(), time.Now().UTC())

	// Only committed hard cancels are published: 21 never cancelled, 11
	// only went vencida. A failed publish on 23 neither undoes the
	// cancel nor suppresses the customer notice.
	assert.Equal(t, []uint64{22}, events.cancelled)
	assert.Equal(t, []uint64{22, 23}, store.cancelled)
	assert.Equal(t, []uint64{22, 23}, notify.cancellations)
}

func TestAdminExpiryAlertsFireOnExactDayOnce(t *testing.T) {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.admins = []string{"ops@rutasur.example"}

	exact := now.AddDate(0, 0, 3)
	far := now.AddDate(0, 0, 5)
	store.pending = []model.Reservation{
		pendingReservation(50, 1, exact),
		pendingReservation(51, 2, far),
		func() model.Reservation {
			r := pendingReservation(52, 3, exact)
			r.AdminAlertSent = true
			return r
		}(),
	}

	notify := newFakeNotifier()
	quietScheduler(store, notify).RunOnce(context.Background(), now)

	assert.Equal(t, []uint64{50}, notify.adminAlerts)
	assert.Equal(t, []uint64{50}, store.adminAlertSet)
}

func TestAdminExpiryAlertsSkipWhenNoRecipients(t *testing.T) {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.pending = []model.Reservation{pendingReservation(50, 1, now.AddDate(0, 0, 3))}

	notify := newFakeNotifier()
	quietScheduler(store, notify).RunOnce(context.Background(), now)

	assert.Empty(t, notify.adminAlerts)
	assert.Empty(t, store.adminAlertSet, "the one-shot flag stays clear so a later pass can alert")
}

func TestTripRemindersExactDay(t *testing.T) {
	now := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.trips = []repository.TripReservation{
		{Reservation: model.Reservation{ID: 60}, DepartureDate: now.AddDate(0, 0, 7)},
		{Reservation: model.Reservation{ID: 61}, DepartureDate: now.AddDate(0, 0, 8)},
		{Reservation: model.Reservation{ID: 62, TripReminderSent: true}, DepartureDate: now.AddDate(0, 0, 7)},
	}

	notify := newFakeNotifier()
	quietScheduler(store, notify).RunOnce(context.Background(), now)

	assert.Equal(t, []uint64{60}, notify.tripReminders)
	assert.Equal(t, []uint64{60}, store.tripFlagSet)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := newFakeStore()
	notify := newFakeNotifier()
	s := New(store, notify, Options{Tick: time.Millisecond, Logger: log.New(io.Discard, "", 0)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestRunOnceRecoversFromPanickingJob(t *testing.T) {
	// One now for fixture and pass, so the exact-day check is stable.
	now := time.Now().UTC()
	store := newFakeStore()
	store.trips = []repository.TripReservation{
		{Reservation: model.Reservation{ID: 70}, DepartureDate: now.AddDate(0, 0, 7)},
	}
	notify := newFakeNotifier()

	s := quietScheduler(panickingStore{store}, notify)
	require.NotPanics(t, func() {
		s.RunOnce(context.Background(), now)
	})
	// The trip job still ran even though the reminder job blew up.
	assert.Equal(t, []uint64{70}, notify.tripReminders)
}

// panickingStore fails the reminder job loudly while delegating the rest.
type panickingStore struct{ *fakeStore }

func (panickingStore) EnabledRules(context.Context) ([]model.ReminderRule, error) {
	panic("bad rule row")
}
