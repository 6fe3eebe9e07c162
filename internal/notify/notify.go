// Package notify abstracts outbound user notification delivery. The gate
// decides that and what to send; transport belongs to an external dispatcher.
package notify

import (
	"context"
	"log/slog"

	"bankguard/internal/platform/privacy"
)

// Notifier delivers user-facing messages. Implementations must be safe for
// concurrent use.
type Notifier interface {
	SendEmail(ctx context.Context, address, subject, body string) error
	SendSMS(ctx context.Context, number, text string) error
}

// LogNotifier writes notifications to the log instead of delivering them.
// Used in dev mode and tests.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendEmail(ctx context.Context, address, subject, body string) error {
	n.logger.InfoContext(ctx, "email notification",
		"to", privacy.MaskEmail(address),
		"subject", subject,
		"body_len", len(body),
	)
	return nil
}

func (n *LogNotifier) SendSMS(ctx context.Context, number, text string) error {
	n.logger.InfoContext(ctx, "sms notification",
		"to", number,
		"text_len", len(text),
	)
	return nil
}
