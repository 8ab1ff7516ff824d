package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier writes confirmations to the log instead of sending mail. Used in dev.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier { return &LogNotifier{logger: logger} }

func (n *LogNotifier) SendRegistrationConfirmation(ctx context.Context, in RegistrationConfirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := RenderConfirmation(in)
	n.logger.InfoContext(ctx, "notification.registration_confirmation",
		"email", in.Email,
		"subject", msg.Subject,
		"event_id", in.EventID,
		"registration_id", in.RegistrationID,
	)
	return nil
}
