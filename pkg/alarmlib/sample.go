package alarmlib

import (
	"math/rand/v2"
	"time"
)

// Sample draws an instant uniformly from [w.Start, w.End). A zero length
// window yields its start. A nil r uses the global source.
func Sample(w Window, r *rand.Rand) time.Time {
	span := w.Duration()
	if span <= 0 {
		return w.Start
	}
	var off int64
	if r != nil {
		off = r.Int64N(int64(span))
	} else {
		off = rand.Int64N(int64(span))
	}
	return w.Start.Add(time.Duration(off))
}

// NextOccurrence resolves the next window of the alarm and samples an
// instant in it. The second result is false when the alarm has no eligible
// day.
func NextOccurrence(a *Alarm, now time.Time, r *rand.Rand) (time.Time, bool) {
	w, ok := a.Window(now)
	if !ok {
		return time.Time{}, false
	}
	return Sample(w, r), true
}
