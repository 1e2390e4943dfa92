package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutasur/tour-reservation/internal/model"
)

func rule(id uint64, days int, sendTime string) model.ReminderRule {
	return model.ReminderRule{ID: id, DaysBeforeDeadline: days, SendTime: sendTime, Enabled: true}
}

func intPtr(v int) *int { return &v }

func TestSelectRule(t *testing.T) {
	// Three tiers sorted descending, all sending at 09:00 UTC.
	tiers := []model.ReminderRule{
		rule(1, 7, "09:00"),
		rule(2, 3, "09:00"),
		rule(3, 1, "09:00"),
	}
	due := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		lastSent *int
		rules    []model.ReminderRule
		wantID   uint64 // 0 means nil
	}{
		{
			name:   "fires at configured time on the threshold day",
			now:    time.Date(2026, 3, 13, 9, 5, 0, 0, time.UTC), // 7 days out, 09:05
			rules:  []model.ReminderRule{rule(1, 7, "09:00")},
			wantID: 1,
		},
		{
			name:   "outside the send window nothing fires",
			now:    time.Date(2026, 3, 13, 11, 30, 0, 0, time.UTC),
			rules:  []model.ReminderRule{rule(1, 7, "09:00")},
			wantID: 0,
		},
		{
			name:   "too early before the threshold",
			now:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), // 10 days out
			rules:  tiers,
			wantID: 0,
		},
		{
			name:   "nearest matching tier wins when several apply",
			now:    time.Date(2026, 3, 18, 9, 30, 0, 0, time.UTC), // floors to 1 day out
			rules:  []model.ReminderRule{rule(1, 7, "09:00"), rule(2, 3, "09:00")},
			wantID: 2, // both thresholds reached, the day-3 tier is nearer the deadline
		},
		{
			name:     "ratchet blocks the tier already sent",
			now:      time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC),
			lastSent: intPtr(7),
			rules:    tiers,
			wantID:   0,
		},
		{
			name:     "late booking skips straight past higher tiers",
			now:      time.Date(2026, 3, 19, 9, 10, 0, 0, time.UTC), // 1 day out, nothing sent
			rules:    tiers,
			wantID:   3,
		},
		{
			name:     "ratchet allows strictly lower tiers only",
			now:      time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC), // 3 days out
			lastSent: intPtr(7),
			rules:    tiers,
			wantID:   2,
		},
		{
			name:   "disabled rules never match",
			now:    time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC),
			rules:  []model.ReminderRule{{ID: 1, DaysBeforeDeadline: 7, SendTime: "09:00", Enabled: false}},
			wantID: 0,
		},
		{
			name:   "malformed send time is skipped",
			now:    time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC),
			rules:  []model.ReminderRule{rule(1, 7, "9am"), rule(2, 7, "09:30")},
			wantID: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectRule(tt.now, tt.lastSent, due, tt.rules)
			if tt.wantID == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestWithinSendWindowWrapsMidnight(t *testing.T) {
	late := time.Date(2026, 3, 13, 0, 10, 0, 0, time.UTC)

	assert.True(t, withinSendWindow(late, 23*60+30), "00:10 is 40 minutes past a 23:30 rule")
	assert.False(t, withinSendWindow(late, 22*60), "00:10 is over two hours past a 22:00 rule")

	edge := time.Date(2026, 3, 13, 10, 0, 0, 0, time.UTC)
	assert.True(t, withinSendWindow(edge, 9*60), "the window is inclusive at exactly one hour")
	assert.False(t, withinSendWindow(edge, 8*60+59))
}
