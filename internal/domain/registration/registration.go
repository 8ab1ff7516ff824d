package registration

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/crosslove/eventhub/internal/domain/validation"
	"github.com/google/uuid"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusWaiting   Status = "waiting"
	StatusCancelled Status = "cancelled"
)

// ParseStatus accepts the legacy "pending" spelling for the waiting list.
func ParseStatus(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "confirmed":
		return StatusConfirmed, true
	case "waiting", "pending":
		return StatusWaiting, true
	case "cancelled":
		return StatusCancelled, true
	default:
		return "", false
	}
}

func (s Status) Label() string {
	switch s {
	case StatusConfirmed:
		return "Confirmée"
	case StatusCancelled:
		return "Annulée"
	case StatusWaiting:
		return "Liste d'attente"
	default:
		return "Inconnu"
	}
}

type Registration struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	EventID        string    `json:"eventId"`
	RegisteredAt   time.Time `json:"registeredAt"`
	Status         Status    `json:"status"`
	WhatsappNumber string    `json:"whatsappNumber,omitempty" validate:"omitempty,whatsapp"`

	Latitude          *float64   `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude         *float64   `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	LocationUpdatedAt *time.Time `json:"locationUpdatedAt,omitempty"`
}

var (
	ErrAlreadyRegistered  = errors.New("registration already exists")
	ErrEventFull          = errors.New("event is full")
	ErrEventNotOpen       = errors.New("event is not open for registration")
	ErrAlreadyCancelled   = errors.New("registration already cancelled")
	ErrCancellationClosed = errors.New("event has already started")
	ErrNotFound           = errors.New("registration not found")
	ErrForbidden          = errors.New("registration belongs to another user")
)

type CreateRegistrationRequest struct {
	WhatsappNumber string `json:"whatsappNumber" binding:"omitempty,min=10,max=16"`
}

type UpdateLocationRequest struct {
	Latitude       *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude      *float64 `json:"longitude" binding:"required,min=-180,max=180"`
	WhatsappNumber *string  `json:"whatsappNumber" binding:"omitempty,min=10,max=16"`
}

func (r Registration) StatusLabel() string {
	return r.Status.Label()
}

// IsActive reports whether the registration holds a seat.
func (r Registration) IsActive() bool {
	return r.Status != StatusCancelled
}

func (r Registration) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

func (r Registration) Validate() error {
	return validation.Struct(r)
}

// ShareLocation stores the participant's position, and optionally a new contact number.
func (r *Registration) ShareLocation(lat, lng float64, whatsapp *string, now time.Time) error {
	next := *r
	next.Latitude = &lat
	next.Longitude = &lng
	if whatsapp != nil {
		next.WhatsappNumber = strings.TrimSpace(*whatsapp)
	}
	t := now.UTC()
	next.LocationUpdatedAt = &t

	if err := next.Validate(); err != nil {
		return err
	}

	*r = next
	return nil
}

// WhatsappLocationLink opens a WhatsApp chat with the participant, prefilled with the event title.
// It is empty when no number was given.
func (r Registration) WhatsappLocationLink(eventTitle string) string {
	digits := strings.Map(func(c rune) rune {
		if c >= '0' && c <= '9' {
			return c
		}
		return -1
	}, r.WhatsappNumber)

	if digits == "" || eventTitle == "" {
		return ""
	}

	text := "Bonjour, je vous contacte au sujet de l'événement « " + eventTitle + " »."
	return "https://wa.me/" + digits + "?text=" + url.QueryEscape(text)
}

func NewConfirmed(userID, eventID, whatsapp string, now time.Time) Registration {
	return Registration{
		ID:             uuid.NewString(),
		UserID:         userID,
		EventID:        eventID,
		RegisteredAt:   now.UTC(),
		Status:         StatusConfirmed,
		WhatsappNumber: strings.TrimSpace(whatsapp),
	}
}
