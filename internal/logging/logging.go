// Package logging configures the process logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus logger: JSON in production, text otherwise.
func New(level string, production bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if production {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Discard is a logger for tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}
