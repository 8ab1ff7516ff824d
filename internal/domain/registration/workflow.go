package registration

import (
	"time"

	"github.com/crosslove/eventhub/internal/domain/event"
)

// CheckRegister validates a new registration for ev. existing is the caller's current row
// for the same event, if any; a cancelled row may be reactivated.
// ev.ParticipantCount must be the live count, read under the same lock as the insert.
func CheckRegister(ev event.Event, existing *Registration, now time.Time) error {
	if existing != nil && existing.IsActive() {
		return ErrAlreadyRegistered
	}

	switch ev.ComputedStatus(now) {
	case event.ComputedUpcoming:
		return nil
	case event.ComputedFull:
		return ErrEventFull
	default:
		return ErrEventNotOpen
	}
}

// CheckCancel allows cancelling an active registration until the event starts.
func CheckCancel(reg Registration, ev event.Event, now time.Time) error {
	if reg.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if !ev.IsUpcoming(now) {
		return ErrCancellationClosed
	}
	return nil
}

// Reactivate turns a cancelled row back into a confirmed registration.
func (r *Registration) Reactivate(whatsapp string, now time.Time) {
	r.Status = StatusConfirmed
	r.RegisteredAt = now.UTC()
	if whatsapp != "" {
		r.WhatsappNumber = whatsapp
	}
}

func (r *Registration) Cancel() {
	r.Status = StatusCancelled
}

// Admit runs the register checks and returns the row to persist. reactivated is true
// when a cancelled row was brought back instead of creating a new one.
func Admit(ev event.Event, existing *Registration, userID, whatsapp string, now time.Time) (reg Registration, reactivated bool, err error) {
	if err = CheckRegister(ev, existing, now); err != nil {
		return
	}

	if existing != nil {
		reg = *existing
		reg.Reactivate(whatsapp, now)
		reactivated = true
	} else {
		reg = NewConfirmed(userID, ev.ID, whatsapp, now)
	}

	err = reg.Validate()
	return
}
