package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/crosslove/eventhub/internal/domain/registration"
	"github.com/crosslove/eventhub/internal/domain/user"
	"github.com/crosslove/eventhub/internal/geocoding"
	"github.com/crosslove/eventhub/internal/jobs"
	"github.com/crosslove/eventhub/internal/notifications"
)

type RegistrationGetter interface {
	GetByID(ctx context.Context, id string) (registration.Registration, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type EventGetter interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

type EventLocator interface {
	EventGetter
	SetCoordinates(ctx context.Context, id string, lat, lng float64, now time.Time) error
}

// ConfirmationHandler mails the participant once a registration is committed. A
// registration cancelled or removed before the job runs is skipped.
type ConfirmationHandler struct {
	Registrations RegistrationGetter
	Users         UserGetter
	Events        EventGetter
	Notifier      notifications.Notifier
	Logger        *slog.Logger
}

func (h ConfirmationHandler) Handle(ctx context.Context, payload any) error {
	p, ok := payload.(jobs.RegistrationConfirmationPayload)
	if !ok {
		return Permanent(jobs.ErrPayloadTypeMismatch)
	}

	reg, err := h.Registrations.GetByID(ctx, p.RegistrationID)
	if errors.Is(err, registration.ErrNotFound) {
		h.Logger.InfoContext(ctx, "confirmation skipped, registration gone", "registration_id", p.RegistrationID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load registration: %w", err)
	}
	if !reg.IsActive() {
		h.Logger.InfoContext(ctx, "confirmation skipped, registration cancelled", "registration_id", reg.ID)
		return nil
	}

	u, err := h.Users.GetByID(ctx, reg.UserID)
	if errors.Is(err, user.ErrNotFound) {
		return Permanent(err)
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	ev, err := h.Events.GetByID(ctx, reg.EventID)
	if errors.Is(err, event.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}

	return h.Notifier.SendRegistrationConfirmation(ctx, notifications.RegistrationConfirmation{
		Email:          u.Email,
		Name:           u.FullName(),
		RegistrationID: reg.ID,
		EventID:        ev.ID,
		EventTitle:     ev.Title,
		EventSlug:      ev.Slug,
		EventStart:     ev.DateStart,
		EventAddress:   ev.FullAddress(),
	})
}

// GeocodeHandler fills coordinates of an event saved while the geocoder was down. The
// full address is tried first, then the city alone.
type GeocodeHandler struct {
	Events   EventLocator
	Geocoder geocoding.Geocoder
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h GeocodeHandler) Handle(ctx context.Context, payload any) error {
	p, ok := payload.(jobs.GeocodeEventPayload)
	if !ok {
		return Permanent(jobs.ErrPayloadTypeMismatch)
	}

	ev, err := h.Events.GetByID(ctx, p.EventID)
	if errors.Is(err, event.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	if ev.HasCoordinates() {
		return nil
	}

	coords, err := h.Geocoder.Geocode(ctx, ev.FullAddress())
	if err != nil {
		return err
	}
	if coords == nil {
		coords, err = geocoding.GeocodeCity(ctx, h.Geocoder, ev.City, ev.Country)
		if err != nil {
			return err
		}
	}
	if coords == nil {
		h.Logger.InfoContext(ctx, "geocode gave no result", "event_id", ev.ID, "address", ev.FullAddress())
		return nil
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return h.Events.SetCoordinates(ctx, ev.ID, coords.Lat, coords.Lng, now())
}
