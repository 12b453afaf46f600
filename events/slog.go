package events

import (
	"context"
	"log/slog"
)

// LogSink writes every envelope to a structured logger.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a subscriber logging at info level.
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Deliver logs the envelope.
func (s *LogSink) Deliver(ctx context.Context, env Envelope) error {
	s.log.InfoContext(ctx, "Event emitted",
		slog.Uint64("seq", env.Seq),
		slog.String("type", env.Type),
		slog.Any("event", env.Event))
	return nil
}
