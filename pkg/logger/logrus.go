package logger

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log formats accepted by NewLogrus.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// LogrusLogger adapts a logrus entry to Logger. Components get their own
// entry through WithComponent so every line carries a component field.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus builds a logrus-backed logger writing to out. An unknown level
// falls back to info and is reported once through the new logger.
func NewLogrus(out io.Writer, level, format string) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(out)

	if strings.ToLower(format) == FormatJSON {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
		l.Warnf("invalid log level %q, defaulting to info", level)
	} else {
		l.SetLevel(lvl)
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// WithComponent returns a logger tagging every line with component.
func (l *LogrusLogger) WithComponent(component string) *LogrusLogger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

func (l *LogrusLogger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *LogrusLogger) Warning(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *LogrusLogger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Close is a no-op; the output writer belongs to the caller.
func (l *LogrusLogger) Close() error {
	return nil
}

var _ Logger = (*LogrusLogger)(nil)

// Component tags l with a component name when the backend supports it and
// returns l unchanged otherwise. A MultiLogger tags each of its backends.
func Component(l Logger, name string) Logger {
	switch v := l.(type) {
	case *LogrusLogger:
		return v.WithComponent(name)
	case *MultiLogger:
		tagged := make([]Logger, len(v.loggers))
		for i, b := range v.loggers {
			tagged[i] = Component(b, name)
		}
		return &MultiLogger{loggers: tagged}
	}
	return l
}
