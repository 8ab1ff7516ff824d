package notifications

import (
	"context"
	"time"

	"github.com/crosslove/eventhub/internal/breaker"
	"github.com/crosslove/eventhub/internal/observability"
)

type ProtectedNotifierConfig struct {
	Channel string        // metrics label, e.g. "ses" or "log"
	Timeout time.Duration // hard timeout per send
	Breaker breaker.Config
}

// ProtectedNotifier bounds each send with a timeout and stops calling a provider that
// keeps failing until its cooldown has passed.
type ProtectedNotifier struct {
	inner   Notifier
	cfg     ProtectedNotifierConfig
	breaker *breaker.Breaker
	prom    *observability.Prom
}

func NewProtectedNotifier(inner Notifier, cfg ProtectedNotifierConfig, prom *observability.Prom) *ProtectedNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Channel == "" {
		cfg.Channel = "default"
	}

	return &ProtectedNotifier{
		inner:   inner,
		cfg:     cfg,
		breaker: breaker.New(cfg.Breaker),
		prom:    prom,
	}
}

func (n *ProtectedNotifier) SendRegistrationConfirmation(ctx context.Context, in RegistrationConfirmation) error {
	err := n.breaker.Do(func() error {
		sendCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()

		return n.inner.SendRegistrationConfirmation(sendCtx, in)
	})

	switch {
	case err == nil:
		n.prom.IncNotification(n.cfg.Channel, "sent")
	case err == breaker.ErrOpen:
		n.prom.IncNotification(n.cfg.Channel, "circuit_open")
	default:
		n.prom.IncNotification(n.cfg.Channel, "error")
	}

	return err
}
