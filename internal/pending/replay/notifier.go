package replay

import (
	"context"
	"log/slog"
)

// LogNotifier writes aggregate notifications to the log. It stands in for a
// real user-facing sink when the service runs headless.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, level Level, title, message string) {
	if n.Logger == nil {
		return
	}
	switch level {
	case LevelError:
		n.Logger.ErrorContext(ctx, title, "notice", message)
	case LevelWarning:
		n.Logger.WarnContext(ctx, title, "notice", message)
	default:
		n.Logger.InfoContext(ctx, title, "notice", message)
	}
}
