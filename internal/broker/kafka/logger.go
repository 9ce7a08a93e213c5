package kafka

import (
	"context"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// slogLogger forwards franz-go client logs to slog. Client info chatter is
// demoted to debug so it does not drown the benchmark reports.
type slogLogger struct {
	l *slog.Logger
}

func newLogger(l *slog.Logger) kgo.Logger {
	return &slogLogger{l: l.With("component", "kafka")}
}

func (s *slogLogger) Level() kgo.LogLevel {
	ctx := context.Background()
	switch {
	case s.l.Enabled(ctx, slog.LevelDebug):
		return kgo.LogLevelDebug
	case s.l.Enabled(ctx, slog.LevelWarn):
		return kgo.LogLevelWarn
	case s.l.Enabled(ctx, slog.LevelError):
		return kgo.LogLevelError
	default:
		return kgo.LogLevelNone
	}
}

func (s *slogLogger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	s.l.Log(context.Background(), toSlog(level), msg, keyvals...)
}

func toSlog(level kgo.LogLevel) slog.Level {
	switch level {
	case kgo.LogLevelError:
		return slog.LevelError
	case kgo.LogLevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}
