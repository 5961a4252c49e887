package analytics

import (
	"fmt"
	"strings"
	"time"
)

// Window is a reporting time window anchored to the local calendar of
// the store (day and month boundaries use local midnight, not UTC).
type Window string

const (
	WindowToday     Window = "today"
	WindowLast7Days Window = "last7days"
	WindowThisMonth Window = "this_month"
	WindowAllTime   Window = "all_time"
)

// ParseWindow normalizes a user-supplied window label. An empty label
// defaults to all_time.
func ParseWindow(raw string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all", "all_time", "alltime":
		return WindowAllTime, nil
	case "today":
		return WindowToday, nil
	case "last7days", "last_7_days", "7d":
		return WindowLast7Days, nil
	case "this_month", "thismonth", "month":
		return WindowThisMonth, nil
	default:
		return "", fmt.Errorf("unknown window %q", raw)
	}
}

// Range returns the [from, to) bounds of the window evaluated at now,
// in now's location. A zero bound means unbounded on that side. The
// start is inclusive and the end exclusive: a sale stamped exactly at
// local midnight of today belongs to today, one stamped a millisecond
// earlier does not.
func (w Window) Range(now time.Time) (from time.Time, to time.Time) {
	loc := now.Location()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch w {
	case WindowToday:
		return midnight, midnight.AddDate(0, 0, 1)
	case WindowLast7Days:
		return midnight.AddDate(0, 0, -6), midnight.AddDate(0, 0, 1)
	case WindowThisMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return first, first.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}
	}
}

// InRange reports whether t falls inside the half-open interval
// [from, to), treating a zero bound as unbounded.
func InRange(t time.Time, from time.Time, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
