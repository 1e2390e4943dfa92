package scheduler

import (
	"time"

	"github.com/rutasur/tour-reservation/internal/model"
)

// sendWindowMinutes is how far from a rule's configured send time the
// scheduler tick may land and still fire the reminder. The window is
// circular over the day so a 23:30 rule matches a 00:10 tick.
const sendWindowMinutes = 60

// SelectRule picks the reminder tier due for a reservation right now, or
// nil. rules must be enabled rules sorted by DaysBeforeDeadline descending.
//
// A rule matches when its threshold has been reached (daysUntilDue is at
// or inside the threshold), it is strictly closer to the deadline than the
// last tier already sent, and now falls within the send window of its
// configured time. Among matches the one nearest the deadline wins, so a
// reservation created late skips straight to the tightest applicable tier.
func SelectRule(now time.Time, lastSent *int, dueDate time.Time, rules []model.ReminderRule) *model.ReminderRule {
	daysUntilDue := model.DaysUntil(now, dueDate)
	var selected *model.ReminderRule
	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled {
			continue
		}
		if daysUntilDue > rule.DaysBeforeDeadline {
			continue
		}
		if lastSent != nil && rule.DaysBeforeDeadline >= *lastSent {
			continue
		}
		minute, err := rule.SendMinute()
		if err != nil {
			continue
		}
		if !withinSendWindow(now, minute) {
			continue
		}
		selected = rule
	}
	return selected
}

// withinSendWindow reports whether now is inside the circular send window
// around sendMinute (minutes after midnight).
func withinSendWindow(now time.Time, sendMinute int) bool {
	nowMinute := now.Hour()*60 + now.Minute()
	delta := nowMinute - sendMinute
	if delta < 0 {
		delta = -delta
	}
	if wrapped := 24*60 - delta; wrapped < delta {
		delta = wrapped
	}
	return delta <= sendWindowMinutes
}
