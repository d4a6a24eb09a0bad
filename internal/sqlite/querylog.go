package sqlite

import (
	"context"
	"log/slog"
	"time"
)

// QueryEvent carries the facts about one executed statement.
type QueryEvent struct {
	SQL      string        // statement text with bound values substituted
	Elapsed  time.Duration // wall-clock time from prepare to last row
	Success  bool
	Selected bool  // Rows counts selected rows when true, affected rows otherwise
	Rows     int64 // row count, see Selected
	Err      error // failure cause when Success is false
}

// QueryLogger receives one event per executed statement. Implementations
// must not call back into the Conn.
type QueryLogger interface {
	LogQuery(QueryEvent)
}

// QueryLoggerFunc adapts a function to QueryLogger.
type QueryLoggerFunc func(QueryEvent)

func (f QueryLoggerFunc) LogQuery(e QueryEvent) { f(e) }

type discardQueryLogger struct{}

func (discardQueryLogger) LogQuery(QueryEvent) {}

// SlogQueryLogger writes query events as structured slog records: debug on
// success, error on failure.
type SlogQueryLogger struct {
	Logger *slog.Logger
}

// NewSlogQueryLogger returns a QueryLogger writing to logger.
func NewSlogQueryLogger(logger *slog.Logger) *SlogQueryLogger {
	return &SlogQueryLogger{Logger: logger}
}

func (l *SlogQueryLogger) LogQuery(e QueryEvent) {
	count := "affected"
	if e.Selected {
		count = "selected"
	}
	attrs := []slog.Attr{
		slog.String("sql", e.SQL),
		slog.Float64("elapsed_ms", float64(e.Elapsed.Microseconds())/1000),
		slog.Int64(count, e.Rows),
	}
	if !e.Success {
		if e.Err != nil {
			attrs = append(attrs, slog.String("error", e.Err.Error()))
		}
		l.Logger.LogAttrs(context.Background(), slog.LevelError, "query failed", attrs...)
		return
	}
	l.Logger.LogAttrs(context.Background(), slog.LevelDebug, "query", attrs...)
}
