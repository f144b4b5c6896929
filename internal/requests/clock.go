package requests

import "time"

// Clock supplies the current time. Injecting it keeps the month/year
// comparisons in the default-status policy deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// isPastOrCurrentMonth reports whether (month, year) is not after the
// clock's current calendar month.
func isPastOrCurrentMonth(clock Clock, month, year int) bool {
	now := clock.Now()
	if year != now.Year() {
		return year < now.Year()
	}
	return time.Month(month) <= now.Month()
}
