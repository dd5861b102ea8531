package scheduler

import "time"

// Event is one pending timer entry.
type Event struct {
	// ID owns the entry. At most one entry per ID is pending.
	ID string
	// At is when the entry fires.
	At time.Time
	// CronExpr, when set, re-arms the entry at the next cron tick after it
	// fires.
	CronExpr string
}

// TriggerFunc receives fired entries. It runs on the scheduler goroutine and
// may call Arm and Cancel; those take effect before the next entry fires.
type TriggerFunc func(id string, at time.Time)
