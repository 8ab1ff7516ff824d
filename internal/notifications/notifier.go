package notifications

import (
	"context"
	"time"
)

type RegistrationConfirmation struct {
	Email          string
	Name           string
	RegistrationID string
	EventID        string
	EventTitle     string
	EventSlug      string
	EventStart     time.Time
	EventAddress   string
}

type Notifier interface {
	SendRegistrationConfirmation(ctx context.Context, in RegistrationConfirmation) error
}
