// Package scheduler is a timer authority: a single goroutine that owns at
// most one pending timer per id, kept in a min-heap ordered by trigger
// instant. Arming an id replaces whatever was pending for it, so a burst of
// re-arms can never leave two live timers for the same id.
//
// The loop sleeps at most 60 seconds at a time so that wall-clock jumps
// (system suspend, NTP steps, DST changes) are noticed promptly; overdue
// entries fire as soon as the loop wakes.
//
// Both the foreground session and the background daemon run one Scheduler
// each. Neither persists it: the heap is rebuilt from the alarm list.
package scheduler
