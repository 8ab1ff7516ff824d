package memory

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/crosslove/eventhub/internal/domain/job"
	"github.com/crosslove/eventhub/internal/domain/registration"
	"github.com/crosslove/eventhub/internal/domain/validation"
	"github.com/crosslove/eventhub/internal/jobs"
)

type RegistrationsRepo struct {
	s *Store
}

// Register holds the store lock across the capacity check and the write, which gives the
// same guarantee as the row lock in postgres.
func (r *RegistrationsRepo) Register(_ context.Context, userID, eventID, whatsapp string, now time.Time) (registration.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ev, ok := r.s.events[eventID]
	if !ok {
		return registration.Registration{}, event.ErrNotFound
	}
	ev = r.s.hydrate(ev)

	var existing *registration.Registration
	for _, reg := range r.s.registrations {
		if reg.UserID == userID && reg.EventID == eventID {
			found := reg
			existing = &found
			break
		}
	}

	reg, _, err := registration.Admit(ev, existing, userID, whatsapp, now)
	if err != nil {
		return registration.Registration{}, err
	}

	j, err := job.New(job.CreateRequest{
		Type: jobs.JobRegistrationConfirmation,
		Payload: jobs.RegistrationConfirmationPayload{
			RegistrationID: reg.ID,
			UserID:         reg.UserID,
			EventID:        reg.EventID,
		},
		IdempotencyKey: "registration:confirm:" + reg.ID + ":" + strconv.FormatInt(reg.RegisteredAt.Unix(), 10),
	}, now)
	if err != nil {
		return registration.Registration{}, err
	}

	r.s.registrations[reg.ID] = reg
	r.s.enqueue(j)

	return reg, nil
}

func (r *RegistrationsRepo) Cancel(_ context.Context, registrationID, actorID string, now time.Time) (registration.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reg, ok := r.s.registrations[registrationID]
	if !ok {
		return registration.Registration{}, registration.ErrNotFound
	}
	if reg.UserID != actorID {
		return registration.Registration{}, registration.ErrForbidden
	}

	ev, ok := r.s.events[reg.EventID]
	if !ok {
		return registration.Registration{}, event.ErrNotFound
	}

	if err := registration.CheckCancel(reg, ev, now); err != nil {
		return registration.Registration{}, err
	}

	reg.Cancel()
	r.s.registrations[reg.ID] = reg
	return reg, nil
}

func (r *RegistrationsRepo) AdminDelete(_ context.Context, eventID, registrationID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reg, ok := r.s.registrations[registrationID]
	if !ok || reg.EventID != eventID {
		return registration.ErrNotFound
	}

	delete(r.s.registrations, registrationID)
	return nil
}

func (r *RegistrationsRepo) GetByID(_ context.Context, registrationID string) (registration.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	reg, ok := r.s.registrations[registrationID]
	if !ok {
		return registration.Registration{}, registration.ErrNotFound
	}
	return reg, nil
}

func (r *RegistrationsRepo) participants(eventID string, keep func(registration.Registration) bool) ([]registration.Participant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.events[eventID]; !ok {
		return nil, event.ErrNotFound
	}

	out := make([]registration.Participant, 0)
	for _, reg := range r.s.registrations {
		if reg.EventID != eventID || (keep != nil && !keep(reg)) {
			continue
		}
		u := r.s.users[reg.UserID]
		out = append(out, registration.Participant{
			Registration: reg,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			Email:        u.Email,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *RegistrationsRepo) ListByEvent(_ context.Context, eventID string) ([]registration.Participant, error) {
	return r.participants(eventID, nil)
}

func (r *RegistrationsRepo) ListLocations(_ context.Context, eventID string) ([]registration.Participant, error) {
	return r.participants(eventID, registration.Registration.HasLocation)
}

func (r *RegistrationsRepo) ListByUser(_ context.Context, userID string, now time.Time) ([]registration.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]registration.Booking, 0)
	for _, reg := range r.s.registrations {
		if reg.UserID != userID {
			continue
		}
		ev, ok := r.s.events[reg.EventID]
		if !ok {
			continue
		}
		out = append(out, registration.Booking{
			Registration:   reg,
			EventTitle:     ev.Title,
			EventSlug:      ev.Slug,
			EventDateStart: ev.DateStart,
			EventDateEnd:   ev.DateEnd,
			EventCity:      ev.City,
			CanCancel:      reg.IsActive() && ev.IsUpcoming(now),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.After(out[j].RegisteredAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *RegistrationsRepo) UpdateLocation(_ context.Context, registrationID, actorID string, req registration.UpdateLocationRequest, now time.Time) (registration.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reg, ok := r.s.registrations[registrationID]
	if !ok {
		return registration.Registration{}, registration.ErrNotFound
	}
	if reg.UserID != actorID {
		return registration.Registration{}, registration.ErrForbidden
	}
	if req.Latitude == nil || req.Longitude == nil {
		return registration.Registration{}, validation.New("latitude", "required", "is required")
	}

	if err := reg.ShareLocation(*req.Latitude, *req.Longitude, req.WhatsappNumber, now); err != nil {
		return registration.Registration{}, err
	}

	r.s.registrations[reg.ID] = reg
	return reg, nil
}
