// Package logger is a thin logrus front end. Calls come in two flavours:
// plain printf-style (Info) and module-tagged (InfoX), which adds a
// "module" field so output from one component can be filtered.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Level  string    // debug, info, warn, error
	Format string    // text or json
	Output io.Writer // defaults to stderr
}

var std = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Init reconfigures the process logger.
func Init(opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		lv, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		level = lv
	}
	switch strings.ToLower(opts.Format) {
	case "", "text":
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		std.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("logger: unknown format %q", opts.Format)
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	std.SetOutput(out)
	std.SetLevel(level)
	return nil
}

// L returns the underlying logger.
func L() *logrus.Logger { return std }

func WithFields(fields logrus.Fields) *logrus.Entry { return std.WithFields(fields) }

func Debug(format string, args ...any) { std.Debugf(format, args...) }
func Info(format string, args ...any)  { std.Infof(format, args...) }
func Warn(format string, args ...any)  { std.Warnf(format, args...) }
func Error(format string, args ...any) { std.Errorf(format, args...) }

func DebugX(module, format string, args ...any) {
	std.WithField("module", module).Debugf(format, args...)
}

func InfoX(module, format string, args ...any) {
	std.WithField("module", module).Infof(format, args...)
}

func WarnX(module, format string, args ...any) {
	std.WithField("module", module).Warnf(format, args...)
}

func ErrorX(module, format string, args ...any) {
	std.WithField("module", module).Errorf(format, args...)
}
