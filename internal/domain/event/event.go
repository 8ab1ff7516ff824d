package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/crosslove/eventhub/internal/domain/slug"
	"github.com/crosslove/eventhub/internal/domain/validation"
)

// Status is the stored lifecycle flag. Everything else is derived from dates and seats.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

type ComputedStatus string

const (
	ComputedCancelled ComputedStatus = "cancelled"
	ComputedPast      ComputedStatus = "past"
	ComputedOngoing   ComputedStatus = "ongoing"
	ComputedFull      ComputedStatus = "full"
	ComputedUpcoming  ComputedStatus = "upcoming"
)

var statusLabels = map[ComputedStatus]string{
	ComputedCancelled: "Annulé",
	ComputedPast:      "Terminé",
	ComputedOngoing:   "En cours",
	ComputedFull:      "Complet",
	ComputedUpcoming:  "À venir",
}

func (s ComputedStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "Inconnu"
}

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required,min=5,max=160"`
	Slug        string    `json:"slug"`
	Description string    `json:"description" validate:"required,min=20"`
	Image       string    `json:"image,omitempty" validate:"max=255"`
	DateStart   time.Time `json:"dateStart" validate:"required"`
	DateEnd     time.Time `json:"dateEnd" validate:"required,gtfield=DateStart"`
	Address     string    `json:"address" validate:"required,max=160"`
	PostalCode  string    `json:"postalCode" validate:"required,len=5,digits"`
	City        string    `json:"city" validate:"required,min=2,max=100"`
	Country     string    `json:"country" validate:"required,max=100"`
	Organizer   string    `json:"organizer" validate:"required,min=2,max=160"`

	// nil means unlimited
	MaxParticipants *int     `json:"maxParticipants" validate:"omitempty,min=0"`
	Latitude        *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude       *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`

	CategoryID   *string `json:"categoryId,omitempty"`
	CategoryName string  `json:"category,omitempty"`
	CreatedBy    string  `json:"createdBy"`
	Status       Status  `json:"status" validate:"oneof=active cancelled"`

	// live count of non-cancelled registrations, filled by repositories
	ParticipantCount int `json:"participantCount"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

var (
	ErrNotFound  = errors.New("event not found")
	ErrSlugTaken = errors.New("event slug already used")
)

// ComputeSlug derives the slug from the title once, suffixed with the id so duplicate
// titles stay unique. A slug that is already set is never overwritten.
func (e *Event) ComputeSlug() {
	e.Slug = slug.Compute(e.Title, e.Slug, e.ID)
}

func (e Event) FullAddress() string {
	return fmt.Sprintf("%s, %s %s, %s", e.Address, e.PostalCode, e.City, e.Country)
}

// AvailableSeats is nil for events without a participant limit.
func (e Event) AvailableSeats() *int {
	if e.MaxParticipants == nil {
		return nil
	}
	left := *e.MaxParticipants - e.ParticipantCount
	return &left
}

func (e Event) IsFull() bool {
	return e.MaxParticipants != nil && e.ParticipantCount >= *e.MaxParticipants
}

func (e Event) IsCancelled() bool {
	return e.Status == StatusCancelled
}

func (e Event) IsUpcoming(now time.Time) bool {
	return e.DateStart.After(now)
}

func (e Event) IsPast(now time.Time) bool {
	return e.DateEnd.Before(now)
}

func (e Event) IsOngoing(now time.Time) bool {
	return !e.DateStart.After(now) && !e.DateEnd.Before(now)
}

// ComputedStatus evaluates in order: cancelled, past, ongoing, full, upcoming.
func (e Event) ComputedStatus(now time.Time) ComputedStatus {
	switch {
	case e.IsCancelled():
		return ComputedCancelled
	case e.IsPast(now):
		return ComputedPast
	case e.IsOngoing(now):
		return ComputedOngoing
	case e.IsFull():
		return ComputedFull
	default:
		return ComputedUpcoming
	}
}

func (e Event) StatusLabel(now time.Time) string {
	return e.ComputedStatus(now).Label()
}

// CanRegister is true only for upcoming events with seats left. A cancelled event is
// never open, even when its dates are still in the future.
func (e Event) CanRegister(now time.Time) bool {
	return e.ComputedStatus(now) == ComputedUpcoming && !e.IsFull()
}

// DurationInHours counts whole minutes between start and end.
func (e Event) DurationInHours() float64 {
	minutes := int64(e.DateEnd.Sub(e.DateStart) / time.Minute)
	return float64(minutes) / 60
}

func (e Event) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}

func (e *Event) SetCoordinates(lat, lng float64) {
	e.Latitude = &lat
	e.Longitude = &lng
}

func (e Event) Validate() error {
	return validation.Struct(e)
}

// Touch records a modification.
func (e *Event) Touch(now time.Time) {
	t := now.UTC()
	e.UpdatedAt = &t
}

func (e *Event) Cancel(now time.Time) {
	e.Status = StatusCancelled
	e.Touch(now)
}
