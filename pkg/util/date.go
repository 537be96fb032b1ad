package util

import "time"

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NextTradingDay advances t by one calendar day and then past any weekend:
// Saturday lands on Monday (+2), Sunday lands on Monday (+1). Public holidays
// are intentionally not modeled.
func NextTradingDay(t time.Time) time.Time {
	t = t.AddDate(0, 0, 1)
	switch t.Weekday() {
	case time.Saturday:
		t = t.AddDate(0, 0, 2)
	case time.Sunday:
		t = t.AddDate(0, 0, 1)
	}
	return t
}
