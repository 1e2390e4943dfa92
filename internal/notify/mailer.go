// Package notify delivers customer and admin email for reservation
// events over plain SMTP.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/rutasur/tour-reservation/internal/model"
)

// Mailer sends reservation email through an SMTP relay. When Host is
// empty the mailer logs instead of sending, which keeps local setups and
// tests working without a mail server.
type Mailer struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
	Logger   *log.Logger
}

func NewMailer(host, port, user, password, from string) *Mailer {
	return &Mailer{Host: host, Port: port, User: user, Password: password, From: from}
}

func (m *Mailer) send(to []string, subject, body string) error {
	if m.Host == "" {
		m.logf("mail (dry run) to=%s subject=%q", strings.Join(to, ","), subject)
		return nil
	}
	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Password, m.Host)
	}
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		strings.Join(to, ", "), subject, body))
	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)
	if err := smtp.SendMail(addr, auth, m.From, to, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (m *Mailer) logf(format string, args ...interface{}) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// SendPaymentReminder tells the customer how long is left to pay.
func (m *Mailer) SendPaymentReminder(_ context.Context, res model.Reservation, rule model.ReminderRule) error {
	due := ""
	if res.PaymentDueDate != nil {
		due = res.PaymentDueDate.Format("2006-01-02")
	}
	body := fmt.Sprintf(
		"Hello %s,\n\nYour reservation %s is awaiting payment. The payment deadline is %s (%d days away).\n\nPlease complete your payment to keep your seats.\n",
		res.CustomerName, res.Reference, due, rule.DaysBeforeDeadline)
	return m.send([]string{res.CustomerEmail},
		fmt.Sprintf("Payment reminder for reservation %s", res.Reference), body)
}

// SendOverdueNotice tells the customer their reservation is on hold. The
// seats are still theirs until the grace window closes.
func (m *Mailer) SendOverdueNotice(_ context.Context, res model.Reservation) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nThe payment deadline for reservation %s has passed and it is now on hold. Your seats remain reserved for a short grace period. Contact us to complete payment and keep your booking.\n",
		res.CustomerName, res.Reference)
	return m.send([]string{res.CustomerEmail},
		fmt.Sprintf("Reservation %s is overdue", res.Reference), body)
}

// SendCancellationNotice tells the customer the reservation was cancelled
// and the seats released.
func (m *Mailer) SendCancellationNotice(_ context.Context, res model.Reservation) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nReservation %s has been cancelled because payment was not received in time. The reserved seats have been released.\n",
		res.CustomerName, res.Reference)
	return m.send([]string{res.CustomerEmail},
		fmt.Sprintf("Reservation %s cancelled", res.Reference), body)
}

// SendAdminReservationExpiring warns the back office about a reservation
// close to its payment deadline.
func (m *Mailer) SendAdminReservationExpiring(_ context.Context, admins []string, res model.Reservation, daysLeft int) error {
	if len(admins) == 0 {
		return nil
	}
	due := ""
	if res.PaymentDueDate != nil {
		due = res.PaymentDueDate.Format("2006-01-02")
	}
	body := fmt.Sprintf(
		"Reservation %s (%s, %d passengers) is %d days from its payment deadline (%s) and still unpaid.\n",
		res.Reference, res.CustomerName, res.PassengerCount, daysLeft, due)
	return m.send(admins,
		fmt.Sprintf("Reservation %s expires in %d days", res.Reference, daysLeft), body)
}

// SendTripReminder tells a paid customer their departure is coming up.
func (m *Mailer) SendTripReminder(_ context.Context, res model.Reservation, departureDate time.Time) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour trip for reservation %s departs on %s. We look forward to seeing you.\n",
		res.CustomerName, res.Reference, departureDate.Format("2006-01-02"))
	return m.send([]string{res.CustomerEmail},
		fmt.Sprintf("Your trip on %s", departureDate.Format("2006-01-02")), body)
}
