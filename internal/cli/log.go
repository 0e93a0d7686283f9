package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w at the given level, with
// "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// quietLogger returns a copy of l that only reports warnings and errors.
// It is used while the live search view owns the terminal.
func quietLogger(l *log.Logger) *log.Logger {
	q := l.With()
	if l.GetLevel() < log.WarnLevel {
		q.SetLevel(log.WarnLevel)
	}
	return q
}

// step tracks the start time of an operation and logs its completion.
// Not safe for concurrent use.
type step struct {
	logger *log.Logger
	start  time.Time
}

func newStep(l *log.Logger) *step {
	return &step{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time and any extra key-value pairs.
func (s *step) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(s.start).Round(time.Millisecond))
	s.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context carrying l.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger stored by withLogger, or
// log.Default() when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
