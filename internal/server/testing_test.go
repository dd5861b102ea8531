package server

import (
	"context"
	"sync"

	"github.com/randalarm/randalarm/internal/background"
	"github.com/randalarm/randalarm/pkg/alarmlib"
)

type push struct {
	method string
	params any
}

type fakeBackend struct {
	mu      sync.Mutex
	updates [][]*alarmlib.Alarm
	replay  []push
	updated chan struct{}
	// hold, when set, delays Replay until it is closed
	hold chan struct{}
}

func newFakeBackend(replay ...push) *fakeBackend {
	return &fakeBackend{replay: replay, updated: make(chan struct{}, 8)}
}

func (b *fakeBackend) UpdateAlarms(alarms []*alarmlib.Alarm) {
	b.mu.Lock()
	b.updates = append(b.updates, alarms)
	b.mu.Unlock()
	b.updated <- struct{}{}
}

func (b *fakeBackend) Replay(p background.Pusher) {
	if b.hold != nil {
		<-b.hold
	}
	for _, m := range b.replay {
		_ = p.Notify(context.Background(), m.method, m.params)
	}
}

func (b *fakeBackend) last() []*alarmlib.Alarm {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.updates) == 0 {
		return nil
	}
	return b.updates[len(b.updates)-1]
}
