// Package applog scopes structured logging per component.
//
// Every component receives an already-scoped *logrus.Entry at
// construction; nothing outside this package touches the root logger.
package applog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var root = newRoot()

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the root logger's verbosity. Call once at startup.
func SetLevel(level logrus.Level) {
	root.SetLevel(level)
}

// For returns a component-scoped entry, e.g. applog.For("upload").
func For(component string) *logrus.Entry {
	return root.WithField("component", component)
}
