// Package timeutil provides calendar-aware time helpers for LingoQuest.
// Login streaks depend on calendar-day boundaries rather than raw 24-hour
// windows, so every comparison here normalizes to a single location first.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// StartOfDay returns the start of the day (00:00:00) for t in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the end of the day (23:59:59.999999999) for t in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// SameCalendarDay reports whether a and b fall on the same calendar day.
// b is converted into a's location before comparing, so a login at 23:50
// and another at 00:10 the next day are different days even though they
// are 20 minutes apart.
func SameCalendarDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// HoursBetween returns the number of hours elapsed from earlier to later
// as a float. Negative if later precedes earlier.
func HoursBetween(earlier, later time.Time) float64 {
	return later.Sub(earlier).Hours()
}

// CalendarDaysBetween returns the number of calendar-day boundaries crossed
// between a and b (0 for the same day, 1 for adjacent days, and so on).
func CalendarDaysBetween(a, b time.Time) int {
	start := StartOfDay(a)
	end := StartOfDay(b.In(a.Location()))
	days := int(end.Sub(start).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// IsNextCalendarDay reports whether b falls on the calendar day immediately
// after a's calendar day.
func IsNextCalendarDay(a, b time.Time) bool {
	return CalendarDaysBetween(a, b) == 1 && b.In(a.Location()).After(a)
}
