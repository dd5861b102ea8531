package notify

import (
	"errors"
	"sync"

	"github.com/randalarm/randalarm/pkg/alarmlib"
)

// Multi fans notifications out to several backends and merges their
// actions.
type Multi struct {
	backends []Notifier
	actions  chan Action
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewMulti combines the available backends. With none available it
// returns Nop.
func NewMulti(backends ...Notifier) Notifier {
	var live []Notifier
	for _, b := range backends {
		if b != nil && b.Available() {
			live = append(live, b)
		}
	}
	if len(live) == 0 {
		return Nop{}
	}
	m := &Multi{
		backends: live,
		actions:  make(chan Action, 16),
		done:     make(chan struct{}),
	}
	for _, b := range live {
		m.wg.Add(1)
		go m.forward(b.Actions())
	}
	return m
}

func (m *Multi) forward(in <-chan Action) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case a, ok := <-in:
			if !ok {
				return
			}
			select {
			case m.actions <- a:
			case <-m.done:
				return
			}
		}
	}
}

func (m *Multi) Available() bool { return true }

// Show succeeds if at least one backend showed the notification.
func (m *Multi) Show(a *alarmlib.Alarm) error {
	var errs []error
	for _, b := range m.backends {
		if err := b.Show(a); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(m.backends) {
		return errors.Join(errs...)
	}
	return nil
}

func (m *Multi) Close(alarmID string) error {
	var errs []error
	for _, b := range m.backends {
		if err := b.Close(alarmID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Actions() <-chan Action { return m.actions }

func (m *Multi) Shutdown() error {
	m.once.Do(func() { close(m.done) })
	var errs []error
	for _, b := range m.backends {
		if err := b.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	m.wg.Wait()
	return errors.Join(errs...)
}
