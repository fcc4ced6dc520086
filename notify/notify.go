// Package notify renders the console's voice and toast output as log records.
package notify

import (
	"context"
	"io"
	"log/slog"

	"github.com/cloudx-io/auctionconsole/core"
)

// Logger writes every announcement to a slog.Logger. With a bell writer
// set, each bid sound also rings the terminal bell.
type Logger struct {
	logger *slog.Logger
	bell   io.Writer
}

type Option func(*Logger)

// WithBell rings w on every bid sound.
func WithBell(w io.Writer) Option {
	return func(l *Logger) {
		l.bell = w
	}
}

func New(logger *slog.Logger, opts ...Option) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{logger: logger.With("component", "notify")}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Logger) Speak(text string) {
	l.logger.Info("announce", "text", text)
}

func (l *Logger) Notify(kind core.NoticeKind, message string) {
	level := slog.LevelInfo
	if kind == core.NoticeError {
		level = slog.LevelError
	}
	l.logger.Log(context.Background(), level, message, "notice", kind)
}

func (l *Logger) PlayBidSound() {
	l.logger.Debug("bid sound")
	if l.bell == nil {
		return
	}
	if _, err := l.bell.Write([]byte{'\a'}); err != nil {
		l.logger.Debug("failed to ring bell", "error", err)
	}
}
