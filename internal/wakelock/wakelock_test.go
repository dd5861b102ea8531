package wakelock

import (
	"errors"
	"testing"

	"github.com/randalarm/randalarm/pkg/logger"
)

type fakeInhibitor struct {
	next     int
	taken    []int
	released []int
	fail     error
	closed   bool
}

func (f *fakeInhibitor) Inhibit(what, who, why, mode string) (int, error) {
	if f.fail != nil {
		return -1, f.fail
	}
	if what != "idle:sleep" || mode != "block" {
		return -1, errors.New("unexpected inhibitor")
	}
	f.next++
	f.taken = append(f.taken, f.next)
	return f.next, nil
}

func (f *fakeInhibitor) Release(fd int) error {
	f.released = append(f.released, fd)
	return nil
}

func (f *fakeInhibitor) Close() error {
	f.closed = true
	return nil
}

func TestLock_SetTransitions(t *testing.T) {
	inh := &fakeInhibitor{}
	k := newLock(inh, logger.NewMockLogger())

	steps := []struct {
		active   bool
		taken    int
		released int
	}{
		{true, 1, 0},
		{true, 1, 0},
		{false, 1, 1},
		{false, 1, 1},
		{true, 2, 1},
	}
	for i, s := range steps {
		if err := k.Set(s.active); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if len(inh.taken) != s.taken || len(inh.released) != s.released {
			t.Fatalf("step %d: taken=%v released=%v", i, inh.taken, inh.released)
		}
		if k.Held() != s.active {
			t.Fatalf("step %d: Held() = %v", i, k.Held())
		}
	}
	if inh.released[0] != inh.taken[0] {
		t.Fatalf("released fd %d, took %d", inh.released[0], inh.taken[0])
	}

	if err := k.Close(); err != nil {
		t.Fatal(err)
	}
	if !inh.closed || len(inh.released) != 2 || k.Held() {
		t.Fatal("Close must release the held inhibitor")
	}
}

func TestLock_InhibitFailure(t *testing.T) {
	inh := &fakeInhibitor{fail: errors.New("no logind")}
	l := logger.NewMockLogger()
	k := newLock(inh, l)
	if err := k.Set(true); err == nil {
		t.Fatal("expected an error")
	}
	if k.Held() {
		t.Fatal("failed inhibit must not count as held")
	}
	if len(l.Warnings()) != 1 {
		t.Fatalf("expected one warning, got %v", l.Warnings())
	}
}

func TestLock_NoPlatformSupport(t *testing.T) {
	k := newLock(nil, nil)
	if err := k.Set(true); err != nil {
		t.Fatal(err)
	}
	if k.Held() {
		t.Fatal("nothing can be held without an inhibitor")
	}
	if err := k.Close(); err != nil {
		t.Fatal(err)
	}
}
