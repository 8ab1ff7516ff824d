package registration

import (
	"strings"
	"time"
)

// Participant is a registration joined with its user, for admin listings.
type Participant struct {
	Registration
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (p Participant) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Booking is a registration joined with its event, for the owner's listing.
type Booking struct {
	Registration
	EventTitle     string    `json:"eventTitle"`
	EventSlug      string    `json:"eventSlug"`
	EventDateStart time.Time `json:"eventDateStart"`
	EventDateEnd   time.Time `json:"eventDateEnd"`
	EventCity      string    `json:"eventCity"`
	CanCancel      bool      `json:"canCancel"`
}

// LocationPin is one participant position on the admin map.
type LocationPin struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Whatsapp     string     `json:"whatsapp"`
	WhatsappLink string     `json:"whatsappLink"`
	Lat          float64    `json:"lat"`
	Lng          float64    `json:"lng"`
	UpdatedAt    *time.Time `json:"updatedAt"`
	Status       Status     `json:"status"`
}

// Pins keeps the participants that shared a position.
func Pins(participants []Participant, eventTitle string) []LocationPin {
	out := make([]LocationPin, 0, len(participants))
	for _, p := range participants {
		if !p.HasLocation() {
			continue
		}
		out = append(out, LocationPin{
			ID:           p.ID,
			Name:         p.FullName(),
			Whatsapp:     p.WhatsappNumber,
			WhatsappLink: p.WhatsappLocationLink(eventTitle),
			Lat:          *p.Latitude,
			Lng:          *p.Longitude,
			UpdatedAt:    p.LocationUpdatedAt,
			Status:       p.Status,
		})
	}
	return out
}
