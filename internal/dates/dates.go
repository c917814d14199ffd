// Package dates implements calendar-day bucketing for funnel counters.
//
// The business day boundary is anchored to the shop's local timezone, not
// UTC midnight, so every conversion from a timestamp to a day goes through
// DayOf with the configured location. Days travel through the rest of the
// code as YYYY-MM-DD strings.
package dates

import (
	"fmt"
	"time"
)

// Layout is the wire and storage format for a calendar day.
const Layout = "2006-01-02"

// DayOf buckets a timestamp into a calendar day in the given location.
// Naive use of t.Format would bucket by the timestamp's own zone; events
// near midnight are exactly where that goes wrong.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(Layout)
}

// Today returns the current calendar day in the given location.
func Today(loc *time.Location) string {
	return DayOf(time.Now(), loc)
}

// Yesterday returns the most recent fully elapsed day in the given location.
func Yesterday(loc *time.Location) string {
	return AddDays(Today(loc), -1)
}

// Parse validates a YYYY-MM-DD day string.
func Parse(day string) (time.Time, error) {
	t, err := time.Parse(Layout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", day, err)
	}
	return t, nil
}

// AddDays shifts a day string by n calendar days. The input must already be
// a valid day; callers validate with Parse at the boundary.
func AddDays(day string, n int) string {
	t, err := Parse(day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, n).Format(Layout)
}

// Range expands an inclusive [start, end] day range. An end before start
// yields an empty range, not an error.
func Range(start, end string) ([]string, error) {
	from, err := Parse(start)
	if err != nil {
		return nil, err
	}
	to, err := Parse(end)
	if err != nil {
		return nil, err
	}

	var days []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(Layout))
	}
	return days, nil
}
