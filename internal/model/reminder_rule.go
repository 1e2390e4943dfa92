package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReminderRule is an admin-configured payment reminder tier. Rules are
// evaluated in descending DaysBeforeDeadline order so the furthest-out
// threshold is considered first and the nearest unvisited one wins.
type ReminderRule struct {
	ID                 uint64
	DaysBeforeDeadline int
	SendTime           string // "HH:MM", wall clock in UTC
	TemplateType       string
	Enabled            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SendMinute returns the rule's send time as minutes after midnight.
func (r *ReminderRule) SendMinute() (int, error) {
	return ParseSendTime(r.SendTime)
}

// ParseSendTime validates an "HH:MM" string and converts it to minutes
// after midnight.
func ParseSendTime(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid send time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid send time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid send time %q", s)
	}
	return h*60 + m, nil
}
