package alarmlib

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/randalarm/randalarm/pkg/logger"
)

// Fixed storage keys.
const (
	KeyAlarms       = "alarms"
	KeyCustomSounds = "customAlarmSounds"
)

// KV is a minimal key/value store holding opaque serialized records.
type KV interface {
	// Get returns ErrKeyNotFound when nothing was stored under key.
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Close() error
}

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
	DriverMemory   = "memory"
)

// OpenKV opens a key/value backend by driver name.
func OpenKV(driver, dsn string) (KV, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
		return OpenSQL(driver, dsn)
	case DriverBolt:
		return OpenBolt(dsn)
	case DriverMemory:
		return NewMemKV(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// Storage persists the alarm list and the custom sound catalog. Loads are
// best-effort: unreadable or corrupt records are logged and treated as no
// saved data.
type Storage struct {
	kv  KV
	log logger.Logger
}

func NewStorage(kv KV, l logger.Logger) *Storage {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Storage{kv: kv, log: l}
}

// LoadAlarms returns the saved alarms, or an empty list.
func (s *Storage) LoadAlarms() []*Alarm {
	var alarms []*Alarm
	if !s.load(KeyAlarms, &alarms) {
		return []*Alarm{}
	}
	out := alarms[:0]
	for _, a := range alarms {
		if a == nil || a.ID == "" {
			s.log.Warning("storage: dropping saved alarm without id")
			continue
		}
		if a.State == "" {
			a.State = StateIdle
		}
		out = append(out, a)
	}
	return out
}

func (s *Storage) SaveAlarms(alarms []*Alarm) error {
	return s.save(KeyAlarms, alarms)
}

// LoadSounds returns the saved custom sounds, or an empty list.
func (s *Storage) LoadSounds() []Sound {
	var sounds []Sound
	if !s.load(KeyCustomSounds, &sounds) {
		return []Sound{}
	}
	return sounds
}

func (s *Storage) SaveSounds(sounds []Sound) error {
	return s.save(KeyCustomSounds, sounds)
}

func (s *Storage) Close() error {
	return s.kv.Close()
}

func (s *Storage) load(key string, v any) bool {
	data, err := s.kv.Get(key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.log.Warning("storage: failed to read %q, starting empty: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warning("storage: failed to decode %q, starting empty: %v", key, err)
		return false
	}
	return true
}

func (s *Storage) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Put(key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
