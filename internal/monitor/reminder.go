package monitor

import (
	"fmt"
	"strings"
	"time"
)

// ReminderPolicy decides when a sustained outage is re-announced.
type ReminderPolicy string

const (
	// ReminderModulo re-notifies when the accumulated offline time is an
	// exact multiple of the cadence. Poll intervals that do not divide the
	// cadence may never line up.
	ReminderModulo ReminderPolicy = "modulo"
	// ReminderElapsed re-notifies once at least one cadence of offline time
	// has accumulated since the previous reminder (or the outage start).
	ReminderElapsed ReminderPolicy = "elapsed"
)

func ParseReminderPolicy(s string) (ReminderPolicy, error) {
	switch p := ReminderPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", ReminderModulo:
		return ReminderModulo, nil
	case ReminderElapsed:
		return ReminderElapsed, nil
	default:
		return "", fmt.Errorf("unknown reminder mode %q (want modulo or elapsed)", s)
	}
}

// Due reports whether a reminder is owed now. offline is the accumulated
// offline time, lastReminder the offline time at the previous reminder.
func (p ReminderPolicy) Due(offline, lastReminder, cadence time.Duration) bool {
	if cadence <= 0 || offline <= 0 {
		return false
	}
	switch p {
	case ReminderElapsed:
		return offline-lastReminder >= cadence
	default:
		return offline%cadence == 0
	}
}
