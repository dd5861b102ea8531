package alarmcli

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/randalarm/randalarm/pkg/logger"
)

type linkEvents struct {
	mu          sync.Mutex
	connects    int
	disconnects []string
	signal      chan struct{}
}

func newLinkEvents() *linkEvents {
	return &linkEvents{signal: make(chan struct{}, 16)}
}

func (e *linkEvents) onConnect() {
	e.mu.Lock()
	e.connects++
	e.mu.Unlock()
	e.signal <- struct{}{}
}

func (e *linkEvents) onDisconnect(reason string) {
	e.mu.Lock()
	e.disconnects = append(e.disconnects, reason)
	e.mu.Unlock()
	select {
	case e.signal <- struct{}{}:
	default:
	}
}

func (e *linkEvents) wait(t *testing.T) {
	t.Helper()
	select {
	case <-e.signal:
	case <-time.After(3 * time.Second):
		t.Fatal("no link event")
	}
}

func TestLink_PushesSnapshotsAfterConnect(t *testing.T) {
	f := newDaemonFixture(t)
	ev := newLinkEvents()
	l := NewLink(LinkConfig{
		URI:          f.uri,
		Secret:       testSecret,
		OnConnect:    ev.onConnect,
		OnDisconnect: ev.onDisconnect,
		Log:          logger.NewMockLogger(),
	})

	first, second := testAlarm(), testAlarm()
	l.PushSnapshot([]*alarmlib.Alarm{first})
	l.PushSnapshot([]*alarmlib.Alarm{first, second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ev.wait(t)
	select {
	case <-f.backend.updated:
	case <-time.After(3 * time.Second):
		t.Fatal("snapshot not delivered")
	}
	if got := f.backend.last(); len(got) != 2 {
		t.Fatalf("latest snapshot should win, got %d alarms", len(got))
	}
	if n := f.backend.count(); n != 1 {
		t.Fatalf("queued snapshots should coalesce, got %d updates", n)
	}
	if !l.Connected() {
		t.Fatal("expected link to report connected")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if l.Connected() {
		t.Fatal("expected link to report disconnected")
	}
}

func TestLink_ReportsUnreachableAndRetries(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ev := newLinkEvents()
	l := NewLink(LinkConfig{
		URI:          &DaemonURI{Scheme: SchemeWS, Address: addr},
		Secret:       testSecret,
		OnConnect:    ev.onConnect,
		OnDisconnect: ev.onDisconnect,
		MinBackoff:   10 * time.Millisecond,
		MaxBackoff:   20 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ev.wait(t)
	ev.wait(t)
	cancel()
	<-done

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if ev.connects != 0 {
		t.Fatalf("unexpected connect")
	}
	if len(ev.disconnects) < 2 {
		t.Fatalf("expected repeated dial failures, got %v", ev.disconnects)
	}
}

func TestLink_ReconnectsAfterLoss(t *testing.T) {
	f := newDaemonFixture(t)
	ev := newLinkEvents()
	l := NewLink(LinkConfig{
		URI:          f.uri,
		Secret:       testSecret,
		OnConnect:    ev.onConnect,
		OnDisconnect: ev.onDisconnect,
		MinBackoff:   10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	ev.wait(t)
	waitSessions(t, f, 1)
	f.drop()

	deadline := time.After(5 * time.Second)
	for {
		ev.mu.Lock()
		connects, lost := ev.connects, len(ev.disconnects)
		ev.mu.Unlock()
		if connects >= 2 && lost >= 1 {
			return
		}
		select {
		case <-ev.signal:
		case <-deadline:
			t.Fatalf("expected reconnect, got connects=%d disconnects=%d", connects, lost)
		}
	}
}

func TestLink_SyncedAfterReplay(t *testing.T) {
	at := time.Date(2024, 1, 2, 7, 13, 0, 0, time.UTC)
	a := testAlarm()
	a.NextFire = &at
	f := newDaemonFixture(t, replayed{string(common.ALARM_TRIGGERED), &common.AlarmTriggeredParams{Alarm: a}})

	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}
	d := NewDispatcher(nil)
	d.AddHandler(common.ALARM_TRIGGERED, NewTriggeredHandler(func(*common.AlarmTriggeredParams) error {
		record("replay")
		return nil
	}))
	synced := make(chan struct{}, 4)
	var l *Link
	l = NewLink(LinkConfig{
		URI:        f.uri,
		Secret:     testSecret,
		Dispatcher: d,
		OnConnect:  func() { l.PushSnapshot([]*alarmlib.Alarm{a}) },
		OnSynced: func() {
			record("synced")
			synced <- struct{}{}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	select {
	case <-synced:
	case <-time.After(3 * time.Second):
		t.Fatal("snapshot never synced")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) < 2 || order[0] != "replay" || order[1] != "synced" {
		t.Fatalf("expected the replay before the sync, got %v", order)
	}
}
