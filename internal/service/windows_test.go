//go:build windows

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/windows/svc"
)

type fakeRunner struct {
	mu       sync.Mutex
	running  bool
	startErr error
	cancel   context.CancelFunc
	shutdown bool
}

func (r *fakeRunner) Start(ctx context.Context) error {
	if r.startErr != nil {
		return r.startErr
	}
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.running, r.cancel = true, cancel
	r.mu.Unlock()
	<-ctx.Done()
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return ctx.Err()
}

func (r *fakeRunner) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdown = true
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

func (r *fakeRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// collect reads states until Stopped.
func collect(t *testing.T, changes <-chan svc.Status) []svc.State {
	t.Helper()
	var states []svc.State
	timeout := time.After(2 * time.Second)
	for {
		select {
		case st := <-changes:
			states = append(states, st.State)
			if st.State == svc.Stopped {
				return states
			}
		case <-timeout:
			t.Fatalf("timed out, states so far %v", states)
		}
	}
}

func TestWindowsHandler_StopLifecycle(t *testing.T) {
	r := &fakeRunner{}
	h := NewWindowsHandler(r, nil)
	changes := make(chan svc.Status, 10)
	requests := make(chan svc.ChangeRequest, 2)

	type result struct {
		code uint32
	}
	done := make(chan result, 1)
	go func() {
		_, code := h.Execute(nil, requests, changes)
		done <- result{code}
	}()
	time.Sleep(100 * time.Millisecond)
	requests <- svc.ChangeRequest{Cmd: svc.Interrogate}
	requests <- svc.ChangeRequest{Cmd: svc.Stop}

	want := []svc.State{svc.StartPending, svc.Running, svc.Running, svc.StopPending, svc.Stopped}
	got := collect(t, changes)
	if len(got) != len(want) {
		t.Fatalf("states %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("state[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if res := <-done; res.code != 0 {
		t.Errorf("exit code %d", res.code)
	}
	if !r.shutdown {
		t.Error("runner was not shut down")
	}
}

func TestWindowsHandler_StartFailure(t *testing.T) {
	h := NewWindowsHandler(&fakeRunner{startErr: errors.New("address in use")}, nil)
	changes := make(chan svc.Status, 10)
	_, code := h.Execute(nil, make(chan svc.ChangeRequest), changes)
	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	got := collect(t, changes)
	if len(got) != 2 || got[0] != svc.StartPending || got[1] != svc.Stopped {
		t.Errorf("states %v", got)
	}
}
