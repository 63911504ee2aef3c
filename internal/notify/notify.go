// Package notify delivers order messages to the shop.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// ErrDeliveryFailed is matched by every error a Notifier returns when the
// message may not have reached its destination.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// Notifier sends a text payload to a destination (a phone number, a chat id).
// A nil error means the collaborator accepted the message.
type Notifier interface {
	Send(ctx context.Context, payload, destination string) error
}

// LogNotifier writes messages to the log instead of sending them.
// It is used when no messaging credentials are configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// Send logs the payload and always succeeds.
func (n LogNotifier) Send(ctx context.Context, payload, destination string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "order notification (not sent, log only)",
		"destination", destination,
		"bytes", len(payload),
		"payload", payload,
	)
	return nil
}
