// Package log builds the structured logger and keeps a per-run journal of
// resolution outcomes.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a JSON logger tagged with service. The level comes from level,
// then LOG_LEVEL, and defaults to info.
func New(service, level string, out io.Writer) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	levelStr := strings.TrimSpace(level)
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	lvl, err := logrus.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log.WithField("service", service)
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}
