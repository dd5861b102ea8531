package alarmcli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/randalarm/randalarm/internal/background"
	"github.com/randalarm/randalarm/internal/server"
	"github.com/randalarm/randalarm/pkg/alarmlib"
)

const testSecret = "cli-test-secret"

type replayed struct {
	method string
	params any
}

type fakeBackend struct {
	mu      sync.Mutex
	updates [][]*alarmlib.Alarm
	replay  []replayed
	updated chan struct{}
}

func (b *fakeBackend) UpdateAlarms(alarms []*alarmlib.Alarm) {
	b.mu.Lock()
	b.updates = append(b.updates, alarms)
	b.mu.Unlock()
	select {
	case b.updated <- struct{}{}:
	default:
	}
}

func (b *fakeBackend) Replay(p background.Pusher) {
	for _, r := range b.replay {
		_ = p.Notify(context.Background(), r.method, r.params)
	}
}

func (b *fakeBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.updates)
}

func (b *fakeBackend) last() []*alarmlib.Alarm {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.updates) == 0 {
		return nil
	}
	return b.updates[len(b.updates)-1]
}

// daemonFixture runs the daemon's RPC handler on an httptest server.
type daemonFixture struct {
	backend *fakeBackend
	hub     *server.SessionHub
	http    *httptest.Server
	uri     *DaemonURI

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// drop ends every open session. Hijacked connections are not tracked by
// httptest, so sessions run under a fixture context instead.
func (f *daemonFixture) drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancel()
	f.ctx, f.cancel = context.WithCancel(context.Background())
}

func (f *daemonFixture) sessionContext() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctx
}

func newDaemonFixture(t *testing.T, replay ...replayed) *daemonFixture {
	t.Helper()
	b := &fakeBackend{replay: replay, updated: make(chan struct{}, 16)}
	n := server.NewSessionHub(nil)
	rs := server.NewRPCServer(&server.RPCConfig{Secret: testSecret}, b, n, nil)
	f := &daemonFixture{backend: b, hub: n}
	f.ctx, f.cancel = context.WithCancel(context.Background())
	h := rs.Handler()
	f.http = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(f.sessionContext()))
	}))
	f.uri = &DaemonURI{Scheme: SchemeWS, Address: strings.TrimPrefix(f.http.URL, "http://")}
	t.Cleanup(func() {
		f.drop()
		f.http.Close()
	})
	return f
}

func testAlarm() *alarmlib.Alarm {
	return alarmlib.NewAlarm(alarmlib.DefaultSettings(alarmlib.DefaultSounds[0].File))
}
