package scheduler

import (
	"sort"
	"time"
)

// weekdayAbbreviations maps weekdays to the short Polish labels printed in
// rosters and assignment summaries.
var weekdayAbbreviations = map[time.Weekday]string{
	time.Monday:    "Pn",
	time.Tuesday:   "Wt",
	time.Wednesday: "Śr",
	time.Thursday:  "Cz",
	time.Friday:    "Pt",
	time.Saturday:  "So",
	time.Sunday:    "Nd",
}

// WeekdayAbbreviation returns the fixed short label for a weekday.
func WeekdayAbbreviation(day time.Weekday) string {
	return weekdayAbbreviations[day]
}

// MondayIndex returns the position of the weekday in a Monday-first week.
// In Go, Monday == 1 and Sunday == 0.
func MondayIndex(day time.Weekday) int {
	return (int(day) + 6) % 7
}

// SortWeekdays returns a copy of days ordered Monday first.
func SortWeekdays(days []time.Weekday) []time.Weekday {
	out := make([]time.Weekday, len(days))
	copy(out, days)
	sort.Slice(out, func(i, j int) bool {
		return MondayIndex(out[i]) < MondayIndex(out[j])
	})
	return out
}

// NormalizeDate truncates a timestamp to the calendar date it falls on in UTC.
func NormalizeDate(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// DateInRange reports whether date falls within [from, to], all bounds inclusive.
func DateInRange(date, from, to time.Time) bool {
	return !date.Before(from) && !date.After(to)
}

// RangesOverlap reports whether [aFrom, aTo] and [bFrom, bTo] share at least
// one day. Both ranges are inclusive.
func RangesOverlap(aFrom, aTo, bFrom, bTo time.Time) bool {
	return !aFrom.After(bTo) && !aTo.Before(bFrom)
}

// IsFullWeek reports whether from is a Monday and to the Sunday six days
// later, so that [from, to] covers exactly one calendar week.
func IsFullWeek(from, to time.Time) bool {
	if from.Weekday() != time.Monday {
		return false
	}
	return NormalizeDate(from).AddDate(0, 0, 6).Equal(NormalizeDate(to))
}
