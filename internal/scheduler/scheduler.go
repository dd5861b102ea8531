package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

const maxSleepCap = 60 * time.Second

// timeNow is swapped by tests.
var timeNow = time.Now

type opKind int

const (
	opArm opKind = iota
	opCancel
	opCancelAll
	opQuery
)

type op struct {
	kind  opKind
	event Event
	reply chan []Event
}

// Scheduler is an active object owning a heap of pending timers.
// Arm and Cancel never block: operations are queued in call order and
// applied by the scheduler goroutine before it fires anything else.
type Scheduler struct {
	mu      sync.Mutex
	pending []op
	wake    chan struct{}
	ctx     context.Context
	done    chan struct{}
}

// New creates and starts a new Scheduler.
// The onTrigger callback is invoked when a pending entry fires.
// The scheduler goroutine exits when ctx is cancelled.
func New(ctx context.Context, onTrigger TriggerFunc) *Scheduler {
	s := &Scheduler{
		wake: make(chan struct{}, 1),
		ctx:  ctx,
		done: make(chan struct{}),
	}
	go s.run(onTrigger)
	return s
}

// Arm cancels any pending entry for id and arms a new one at at.
func (s *Scheduler) Arm(id string, at time.Time) {
	s.enqueue(op{kind: opArm, event: Event{ID: id, At: at}})
}

// ArmCron arms a recurring entry for id at the next tick of expr.
func (s *Scheduler) ArmCron(id, expr string) error {
	next, err := nextCronOccurrence(expr, timeNow())
	if err != nil {
		return fmt.Errorf("cron %q: %w", expr, err)
	}
	s.enqueue(op{kind: opArm, event: Event{ID: id, At: next, CronExpr: expr}})
	return nil
}

// Cancel drops the pending entry for id, if any.
func (s *Scheduler) Cancel(id string) {
	s.enqueue(op{kind: opCancel, event: Event{ID: id}})
}

// CancelAll drops every pending entry.
func (s *Scheduler) CancelAll() {
	s.enqueue(op{kind: opCancelAll})
}

// Pending returns the pending entries, earliest first. It returns nil once
// the scheduler has stopped.
func (s *Scheduler) Pending() []Event {
	reply := make(chan []Event, 1)
	s.enqueue(op{kind: opQuery, reply: reply})
	select {
	case events := <-reply:
		return events
	case <-s.done:
		return nil
	}
}

// Done is closed when the scheduler goroutine has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) enqueue(o op) {
	s.mu.Lock()
	s.pending = append(s.pending, o)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run is the core scheduler goroutine implementing the active-object pattern.
// It maintains a min-heap of events and sleeps with a 60s max-sleep-cap.
// For recurring events (CronExpr != ""), after firing it computes the next
// occurrence and re-adds it to the heap automatically.
func (s *Scheduler) run(onTrigger TriggerFunc) {
	defer close(s.done)
	h := &eventHeap{}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			// No events, block until an op arrives
			return nil
		}
		dur := (*h)[0].At.Sub(timeNow())
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		case <-timerCh:
		}
		s.apply(h)
		// Fire everything due, re-applying ops queued by each callback so a
		// cancel issued while firing one entry is honoured for the next.
		for h.Len() > 0 && !(*h)[0].At.After(timeNow()) {
			if s.ctx.Err() != nil {
				return
			}
			event := heapPop(h)
			onTrigger(event.ID, event.At)
			if event.CronExpr != "" {
				if next, err := nextCronOccurrence(event.CronExpr, timeNow()); err == nil {
					heapPush(h, Event{ID: event.ID, At: next, CronExpr: event.CronExpr})
				}
			}
			s.apply(h)
		}
		timerCh = resetTimer()
	}
}

func (s *Scheduler) apply(h *eventHeap) {
	s.mu.Lock()
	ops := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, o := range ops {
		switch o.kind {
		case opArm:
			heapRemoveByID(h, o.event.ID)
			heapPush(h, o.event)
		case opCancel:
			heapRemoveByID(h, o.event.ID)
		case opCancelAll:
			*h = (*h)[:0]
		case opQuery:
			events := append([]Event(nil), (*h)...)
			sort.Slice(events, func(i, j int) bool { return events[i].At.Before(events[j].At) })
			o.reply <- events
		}
	}
}

// nextCronOccurrence returns the next time the cron expression fires strictly
// after start. Uses gronx.NextTickAfter with inclRefTime=false.
func nextCronOccurrence(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}

// ValidateCron checks that expr parses and fires at least once within a year.
func ValidateCron(expr string) error {
	if !gronx.IsValid(expr) {
		return fmt.Errorf("invalid cron expression %q", expr)
	}
	if !hasOccurrenceWithinYear(expr, timeNow()) {
		return fmt.Errorf("cron expression %q never fires within a year", expr)
	}
	return nil
}

// hasOccurrenceWithinYear checks if a cron expression has any occurrence
// within 1 year from the given time. Returns false for invalid expressions
// or if no occurrence exists within the 1-year window.
func hasOccurrenceWithinYear(expr string, from time.Time) bool {
	next, err := gronx.NextTickAfter(expr, from, false)
	if err != nil {
		return false
	}
	return next.Before(from.Add(365 * 24 * time.Hour))
}
