package pkg

import (
	"time"
)

// StartOfDay returns local midnight of t in loc. A nil loc means UTC.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DaysAgo returns the start of the day n days before t.
func DaysAgo(t time.Time, n int, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, -n)
}
