package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type CreateEventRequest struct {
	Title           string    `json:"title" binding:"required,min=5,max=160"`
	Description     string    `json:"description" binding:"required,min=20"`
	Image           string    `json:"image" binding:"omitempty,max=255"`
	DateStart       time.Time `json:"dateStart" binding:"required"`
	DateEnd         time.Time `json:"dateEnd" binding:"required"`
	Address         string    `json:"address" binding:"required,max=160"`
	PostalCode      string    `json:"postalCode" binding:"required,len=5"`
	City            string    `json:"city" binding:"required,min=2,max=100"`
	Country         string    `json:"country" binding:"required,max=100"`
	Organizer       string    `json:"organizer" binding:"required,min=2,max=160"`
	MaxParticipants *int      `json:"maxParticipants" binding:"omitempty,min=0"`
	CategoryID      *string   `json:"categoryId" binding:"omitempty,uuid"`
}

// a full update payload; the slug and the creator never change
type UpdateEventRequest CreateEventRequest

type SortKey string

const (
	SortByDate  SortKey = "date"
	SortByTitle SortKey = "title"
)

// ParseSort falls back to date ordering for unknown keys.
func ParseSort(raw string) SortKey {
	if SortKey(strings.ToLower(strings.TrimSpace(raw))) == SortByTitle {
		return SortByTitle
	}
	return SortByDate
}

// ListFilter drives the public listing: a search term wins over a category, which wins over sort.
type ListFilter struct {
	Search   string
	Category string
	Sort     SortKey
}

func NewFromCreateRequest(req CreateEventRequest, createdBy string, now time.Time) Event {
	e := Event{
		ID:        uuid.NewString(),
		CreatedBy: createdBy,
		Status:    StatusActive,
		CreatedAt: now.UTC(),
	}
	e.apply(req)
	e.ComputeSlug()

	return e
}

// ApplyUpdate copies the editable fields and refreshes UpdatedAt.
func (e *Event) ApplyUpdate(req UpdateEventRequest, now time.Time) {
	e.apply(CreateEventRequest(req))
	e.Touch(now)
}

func (e *Event) apply(req CreateEventRequest) {
	e.Title = strings.TrimSpace(req.Title)
	e.Description = strings.TrimSpace(req.Description)
	e.Image = req.Image
	e.DateStart = req.DateStart.UTC()
	e.DateEnd = req.DateEnd.UTC()
	e.Address = strings.TrimSpace(req.Address)
	e.PostalCode = strings.TrimSpace(req.PostalCode)
	e.City = strings.TrimSpace(req.City)
	e.Country = strings.TrimSpace(req.Country)
	e.Organizer = strings.TrimSpace(req.Organizer)
	e.MaxParticipants = req.MaxParticipants
	e.CategoryID = req.CategoryID
}

// AddressChanged reports whether req moves the event, which invalidates its coordinates.
func (e Event) AddressChanged(req UpdateEventRequest) bool {
	return strings.TrimSpace(req.Address) != e.Address ||
		strings.TrimSpace(req.PostalCode) != e.PostalCode ||
		strings.TrimSpace(req.City) != e.City ||
		strings.TrimSpace(req.Country) != e.Country
}
