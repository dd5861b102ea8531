package engine

import (
	"sort"
	"time"
)

// claimRetention bounds how long delivered occurrences are remembered.
const claimRetention = 48 * time.Hour

type claimKey struct {
	id string
	at int64
}

// ringGate holds the delivery ledger and the exclusive ring channel.
type ringGate struct {
	claimed map[claimKey]time.Time
	current *RingEvent
	// queue is ordered by occurrence instant
	queue []RingEvent
}

func newRingGate() *ringGate {
	return &ringGate{claimed: make(map[claimKey]time.Time)}
}

// claim records the occurrence (id, at) as delivered. It returns false when
// it was delivered before.
func (g *ringGate) claim(id string, at, now time.Time) bool {
	g.prune(now)
	k := claimKey{id: id, at: at.UnixNano()}
	if _, ok := g.claimed[k]; ok {
		return false
	}
	g.claimed[k] = now
	return true
}

func (g *ringGate) delivered(id string, at time.Time) bool {
	_, ok := g.claimed[claimKey{id: id, at: at.UnixNano()}]
	return ok
}

func (g *ringGate) prune(now time.Time) {
	for k, t := range g.claimed {
		if now.Sub(t) > claimRetention {
			delete(g.claimed, k)
		}
	}
}

func (g *ringGate) busy() bool {
	return g.current != nil
}

func (g *ringGate) holder() string {
	if g.current == nil {
		return ""
	}
	return g.current.AlarmID
}

func (g *ringGate) take(ev RingEvent) {
	g.current = &ev
}

func (g *ringGate) release() {
	g.current = nil
}

func (g *ringGate) enqueue(ev RingEvent) {
	i := sort.Search(len(g.queue), func(i int) bool {
		return g.queue[i].At.After(ev.At)
	})
	g.queue = append(g.queue, RingEvent{})
	copy(g.queue[i+1:], g.queue[i:])
	g.queue[i] = ev
}

func (g *ringGate) pop() (RingEvent, bool) {
	if len(g.queue) == 0 {
		return RingEvent{}, false
	}
	ev := g.queue[0]
	g.queue = g.queue[1:]
	return ev, true
}

func (g *ringGate) remove(id string) bool {
	for i, ev := range g.queue {
		if ev.AlarmID == id {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (g *ringGate) queued() []RingEvent {
	return append([]RingEvent(nil), g.queue...)
}
