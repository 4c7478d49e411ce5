package clock

import "time"

// Clock abstracts time.Now so calendar-date boundaries can be tested without
// waiting for midnight.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a clock backed by time.Now.
func System() Clock { return systemClock{} }

// Fixed returns a clock frozen at t. Test use only.
func Fixed(t time.Time) Clock { return fixedClock{t: t} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

// Date formats t's calendar date in loc as YYYY-MM-DD, the key format used by
// the daily usage ledger.
func Date(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
