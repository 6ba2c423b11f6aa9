// Package streak tracks consecutive calendar days with activity.
package streak

import (
	"time"

	"github.com/abhisek/lingua/internal/store"
)

// DateLayout is the calendar date format stored in last_activity_date.
const DateLayout = "2006-01-02"

// State classifies a streak record relative to today.
type State string

const (
	StateNoActivity State = "no_activity"
	StateActive     State = "active"
	StateLapsed     State = "lapsed"
)

// Day returns the calendar date of t in loc.
func Day(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// Yesterday returns the calendar date before t in loc.
func Yesterday(t time.Time, loc *time.Location) string {
	return t.In(loc).AddDate(0, 0, -1).Format(DateLayout)
}

// StateOf reports whether rec is still live on the day of now.
// Activity today or yesterday keeps a streak active; anything older is lapsed.
func StateOf(rec store.StreakRecord, now time.Time, loc *time.Location) State {
	switch {
	case rec.LastActivityDate == "":
		return StateNoActivity
	case rec.LastActivityDate < Yesterday(now, loc):
		return StateLapsed
	default:
		return StateActive
	}
}

// Advance applies one activity on the day of now. It is idempotent per
// calendar day: a second call on the same day returns rec unchanged and false.
func Advance(rec store.StreakRecord, now time.Time, loc *time.Location) (store.StreakRecord, bool) {
	today := Day(now, loc)
	if rec.LastActivityDate == today {
		return rec, false
	}

	next := rec
	if rec.LastActivityDate == Yesterday(now, loc) {
		next.CurrentStreak++
	} else {
		next.CurrentStreak = 1
	}
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	next.LastActivityDate = today
	return next, true
}

// Effective returns rec as it should be displayed on the day of now.
// A lapsed streak reads as zero; the bool reports that the stored row is
// out of date and should be corrected.
func Effective(rec store.StreakRecord, now time.Time, loc *time.Location) (store.StreakRecord, bool) {
	if StateOf(rec, now, loc) != StateLapsed || rec.CurrentStreak == 0 {
		return rec, false
	}
	rec.CurrentStreak = 0
	return rec, true
}
