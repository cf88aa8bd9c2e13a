// Package logging sets up the process logger. Loggers travel through
// context.Context so every layer logs with the same options.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // optional path; rotated with lumberjack
}

// New builds a logger writing to w and, when opts.File is set, to a
// rotating file as well.
func New(w io.Writer, opts Options) *log.Logger {
	if strings.TrimSpace(opts.File) != "" {
		w = io.MultiWriter(w, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           ParseLevel(opts.Level),
	})
	if strings.EqualFold(opts.Format, "json") {
		l.SetFormatter(log.JSONFormatter)
	}
	return l
}

// Default is the stderr logger at info level.
func Default() *log.Logger {
	return New(os.Stderr, Options{Level: "info"})
}

// ParseLevel maps a level name to a log.Level; unknown names are info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Component returns a sub-logger tagged with a component name.
func Component(l *log.Logger, name string) *log.Logger {
	return l.With("component", name)
}

type ctxKey int

const loggerKey ctxKey = 0

// WithLogger attaches l to ctx.
func WithLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger attached to ctx, or log.Default().
func FromContext(ctx context.Context) *log.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
			return l
		}
	}
	return log.Default()
}
