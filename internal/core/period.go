package core

import "time"

const (
	Daily   Interval = "daily"
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
	Yearly  Interval = "yearly"
)

// Interval is a recurrence or budgeting period length.
type Interval string

// Validate accepts the four known intervals.
func (i Interval) Validate() error {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidInterval
	}
}

// Advance moves t forward by n intervals. Month and year steps clamp the day to the
// last day of the target month, so Jan 31 + 1 month is Feb 28/29.
func (i Interval) Advance(t time.Time, n int) time.Time {
	switch i {
	case Daily:
		return t.AddDate(0, 0, n)
	case Weekly:
		return t.AddDate(0, 0, 7*n)
	case Monthly:
		return addMonthsClamped(t, n)
	case Yearly:
		return addMonthsClamped(t, 12*n)
	default:
		return t
	}
}

// Window returns the [from, to) period that contains now for a schedule anchored at
// start. When now precedes start the first period is returned.
func (i Interval) Window(start, now time.Time) (from, to time.Time) {
	if i.Validate() != nil {
		return start, start
	}
	if now.Before(start) {
		return start, i.Advance(start, 1)
	}

	var k int
	switch i {
	case Daily:
		k = int(now.Sub(start).Hours() / 24)
	case Weekly:
		k = int(now.Sub(start).Hours() / (24 * 7))
	case Monthly:
		k = (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	case Yearly:
		k = now.Year() - start.Year()
	}
	// Estimates can be off by one around DST shifts and short months.
	for k > 0 && i.Advance(start, k).After(now) {
		k--
	}
	for !i.Advance(start, k+1).After(now) {
		k++
	}
	return i.Advance(start, k), i.Advance(start, k+1)
}

func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(first.Year(), first.Month(), t.Location())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// NewDate creates a midnight UTC time from year, month, day.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns [first day of month, first day of next month) in UTC.
func MonthRange(year, month int) (from, to time.Time) {
	from = NewDate(year, month, 1)
	return from, from.AddDate(0, 1, 0)
}

// InRange reports whether t lies in [from, to).
func InRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
