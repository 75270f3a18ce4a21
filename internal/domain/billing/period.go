package billing

import "time"

// Period is one closed billing interval. Start and End are both included.
type Period struct {
	Start time.Time
	End   time.Time
}

// DateOnly truncates a timestamp to a calendar date at UTC midnight.
// All billing arithmetic works on dates, never clock times.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddCalendarMonth advances a date by one calendar month, clamping the day
// to the last valid day of the target month. Jan 31 becomes Feb 28 (or 29 in
// a leap year), and December rolls over into January of the next year.
// time.AddDate is deliberately avoided here: it normalizes Jan 31 + 1 month
// to Mar 2/3 instead of clamping.
func AddCalendarMonth(d time.Time) time.Time {
	year, month := d.Year(), d.Month()
	if month == time.December {
		year++
		month = time.January
	} else {
		month++
	}
	day := d.Day()
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// PeriodStartingAt returns the one-month billing period opening on start:
// [start, start+1 calendar month - 1 day].
func PeriodStartingAt(start time.Time) Period {
	start = DateOnly(start)
	return Period{
		Start: start,
		End:   AddCalendarMonth(start).AddDate(0, 0, -1),
	}
}

// NextPeriodAfter returns the period immediately following a bill that
// closed on end: it opens the next day.
func NextPeriodAfter(end time.Time) Period {
	return PeriodStartingAt(DateOnly(end).AddDate(0, 0, 1))
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the following month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SameDate reports whether two timestamps fall on the same calendar date
func SameDate(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}
