package logger

import "errors"

// MultiLogger writes every line to each of its backends in order.
type MultiLogger struct {
	loggers []Logger
}

// Tee combines the non-nil backends. The Windows daemon tees its log file
// into the Event Log. A single backend is returned as is.
func Tee(backends ...Logger) Logger {
	var ls []Logger
	for _, l := range backends {
		if l != nil {
			ls = append(ls, l)
		}
	}
	switch len(ls) {
	case 0:
		return NewNopLogger()
	case 1:
		return ls[0]
	}
	return &MultiLogger{loggers: ls}
}

func (m *MultiLogger) Info(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Info(format, args...)
	}
}

func (m *MultiLogger) Warning(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Warning(format, args...)
	}
}

func (m *MultiLogger) Error(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Error(format, args...)
	}
}

// Close closes every backend and joins their errors.
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		errs = append(errs, l.Close())
	}
	return errors.Join(errs...)
}

var _ Logger = (*MultiLogger)(nil)
