package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/forge/internal/logging"
	"github.com/aretw0/forge/pkg/domain"
)

// LoggingListener writes every block transition to a slog.Logger.
type LoggingListener struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLoggingListener logs at info level. A nil logger discards events.
func NewLoggingListener(logger *slog.Logger) *LoggingListener {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LoggingListener{logger: logger, level: slog.LevelInfo}
}

// AtLevel returns a copy that logs at level.
func (l *LoggingListener) AtLevel(level slog.Level) *LoggingListener {
	c := *l
	c.level = level
	return &c
}

func (l *LoggingListener) OnStateChanged(ctx context.Context, e domain.StateChangeEvent) error {
	level := l.level
	if e.New == domain.StateFailed && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "block state changed",
		"block_id", e.BlockID,
		"block_type", e.BlockTypeID,
		"old", e.Old,
		"new", e.New,
	)
	return nil
}
