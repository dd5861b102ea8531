//go:build windows

package service

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

var (
	ErrServiceExists         = errors.New("service already exists")
	ErrServiceNotFound       = errors.New("service not found")
	ErrServiceAlreadyRunning = errors.New("service is already running")
	ErrServiceNotRunning     = errors.New("service is not running")
)

// Start types, as SERVICE_START_TYPE.
const (
	StartTypeAutomatic uint32 = windows.SERVICE_AUTO_START
	StartTypeManual    uint32 = windows.SERVICE_DEMAND_START
)

// Status is a service state, as SERVICE_STATUS.dwCurrentState.
type Status uint32

const (
	StatusStopped      = Status(svc.Stopped)
	StatusStartPending = Status(svc.StartPending)
	StatusStopPending  = Status(svc.StopPending)
	StatusRunning      = Status(svc.Running)
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStartPending:
		return "starting"
	case StatusStopPending:
		return "stopping"
	case StatusRunning:
		return "running"
	default:
		return fmt.Sprintf("state %d", uint32(s))
	}
}

// Config describes the service to install.
type Config struct {
	DisplayName string
	Description string
	StartType   uint32
	// Args follow the executable on every start.
	Args []string
}

// SCM is the part of the service control manager the Manager uses.
type SCM interface {
	OpenService(name string) (Service, error)
	CreateService(name, exePath string, c Config) (Service, error)
	Close() error
}

// Service is one installed service.
type Service interface {
	Start() error
	Stop() error
	Delete() error
	Status() (Status, error)
	Close() error
}

// Manager installs and controls one named service.
type Manager struct {
	scm  SCM
	name string
}

func NewManager(scm SCM, name string) *Manager {
	return &Manager{scm: scm, name: name}
}

func (m *Manager) Install(exePath string, c Config) error {
	s, err := m.scm.CreateService(m.name, exePath, c)
	if err != nil {
		return err
	}
	return s.Close()
}

// Uninstall stops the service if it runs and removes it.
func (m *Manager) Uninstall() error {
	s, err := m.scm.OpenService(m.name)
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := s.Status()
	if err != nil {
		return err
	}
	if st == StatusRunning {
		if err := s.Stop(); err != nil {
			return err
		}
	}
	return s.Delete()
}

func (m *Manager) Start() error {
	s, err := m.scm.OpenService(m.name)
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := s.Status()
	if err != nil {
		return err
	}
	if st == StatusRunning {
		return ErrServiceAlreadyRunning
	}
	return s.Start()
}

func (m *Manager) Stop() error {
	s, err := m.scm.OpenService(m.name)
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := s.Status()
	if err != nil {
		return err
	}
	if st == StatusStopped {
		return ErrServiceNotRunning
	}
	return s.Stop()
}

func (m *Manager) Status() (Status, error) {
	s, err := m.scm.OpenService(m.name)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	return s.Status()
}

// ConnectSCM opens the local service control manager.
func ConnectSCM() (SCM, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect to service control manager: %w", err)
	}
	return &scm{m: m}, nil
}

type scm struct {
	m *mgr.Mgr
}

func (c *scm) OpenService(name string) (Service, error) {
	s, err := c.m.OpenService(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrServiceNotFound, name, err)
	}
	return &service{s: s}, nil
}

// CreateService is atomic on the SCM side; a failed create leaves nothing
// to clean up.
func (c *scm) CreateService(name, exePath string, cfg Config) (Service, error) {
	if s, err := c.m.OpenService(name); err == nil {
		s.Close()
		return nil, ErrServiceExists
	}
	s, err := c.m.CreateService(name, exePath, mgr.Config{
		DisplayName:  cfg.DisplayName,
		Description:  cfg.Description,
		StartType:    cfg.StartType,
		ServiceType:  windows.SERVICE_WIN32_OWN_PROCESS,
		ErrorControl: windows.SERVICE_ERROR_NORMAL,
	}, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("create service %s: %w", name, err)
	}
	return &service{s: s}, nil
}

func (c *scm) Close() error {
	return c.m.Disconnect()
}

type service struct {
	s *mgr.Service
}

func (s *service) Start() error {
	return s.s.Start()
}

func (s *service) Stop() error {
	_, err := s.s.Control(svc.Stop)
	return err
}

func (s *service) Delete() error {
	return s.s.Delete()
}

func (s *service) Status() (Status, error) {
	st, err := s.s.Query()
	if err != nil {
		return 0, err
	}
	return Status(st.State), nil
}

func (s *service) Close() error {
	return s.s.Close()
}
