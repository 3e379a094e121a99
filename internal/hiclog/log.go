// Package hiclog exposes logging as a callback trait so the core packages
// are never bound to one logging library (design note: "the source has a
// process-wide logger; expose it as a callback trait"). The default
// implementation is backed by logrus; callers may substitute their own by
// implementing Logger and passing it where a Logger is accepted (for
// example tmpdir.Dir.SetLogger).
package hiclog

import "github.com/sirupsen/logrus"

// Logger is the minimal surface the core needs from a logging backend.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type logrusLogger struct {
	*logrus.Logger
}

func (l logrusLogger) Debugf(format string, args ...interface{}) { l.Logger.Debugf(format, args...) }
func (l logrusLogger) Warnf(format string, args ...interface{})  { l.Logger.Warnf(format, args...) }
func (l logrusLogger) Errorf(format string, args ...interface{}) { l.Logger.Errorf(format, args...) }

// NewDefault returns the default logrus-backed Logger, logging at Info
// level and above to stderr (logrus's own default).
func NewDefault() Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return logrusLogger{l}
}

// noop discards everything; used where a caller does not care to plug in
// a Logger (e.g. short-lived test fixtures).
type noop struct{}

func (noop) Debugf(string, ...interface{}) {}
func (noop) Warnf(string, ...interface{})  {}
func (noop) Errorf(string, ...interface{}) {}

// Noop returns a Logger that discards all messages.
func Noop() Logger { return noop{} }
