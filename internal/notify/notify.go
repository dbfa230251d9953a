// internal/notify/notify.go
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNotify wraps every delivery failure.
var ErrNotify = errors.New("notify: delivery failed")

// Notifier delivers one Markdown message. Delivery is fire-and-forget;
// retries, if any, are the implementation's business.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Log writes messages to the logger instead of a chat.
// Used when no bot token is configured.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, text string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification", "text", text)
	return nil
}
