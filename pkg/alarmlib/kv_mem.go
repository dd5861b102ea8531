package alarmlib

import "sync"

// MemKV is an in-process KV used by tests and by one-shot commands run with
// the memory driver.
type MemKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	closed bool
}

func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string][]byte)}
}

func (m *MemKV) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrStorageNotReady
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemKV) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStorageNotReady
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemKV) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
