package alarmlib

import "time"

// GuardInterval is the minimum lead time applied when now falls inside the
// window being resolved.
const GuardInterval = 60 * time.Second

// Window is a [Start, End) range of absolute instants.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Resolve computes the next eligible window for a daily time range on the
// given weekdays. The second result is false when days is empty.
//
// Today counts as eligible. A range whose end clock-precedes its start ends
// on the following day. If the window for the chosen day has already ended
// the next eligible day is used instead. If now is inside the window its
// start is moved to now+GuardInterval; when that leaves nothing of the
// window the next eligible day is used.
func Resolve(now time.Time, start, end TimeOfDay, days WeekdaySet) (Window, bool) {
	if days.Empty() {
		return Window{}, false
	}
	day, _ := nextEligibleDay(startOfDay(now), days)
	w := anchor(day, start, end)

	if !w.End.After(now) || (!w.Start.After(now) && !now.Add(GuardInterval).Before(w.End)) {
		day, _ = nextEligibleDay(addDays(day, 1), days)
		w = anchor(day, start, end)
	}
	if !w.Start.After(now) {
		w.Start = now.Add(GuardInterval)
	}
	return w, true
}

// nextEligibleDay returns the first midnight at or after from whose weekday
// is in days, searching at most a week ahead.
func nextEligibleDay(from time.Time, days WeekdaySet) (time.Time, bool) {
	for i := 0; i < 7; i++ {
		d := addDays(from, i)
		if days.Has(d.Weekday()) {
			return d, true
		}
	}
	return from, false
}

func anchor(day time.Time, start, end TimeOfDay) Window {
	w := Window{Start: start.On(day), End: end.On(day)}
	if end.Before(start) {
		w.End = end.On(addDays(day, 1))
	}
	return w
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// addDays moves n calendar days, keeping local midnight across DST changes.
func addDays(day time.Time, n int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, day.Location())
}
