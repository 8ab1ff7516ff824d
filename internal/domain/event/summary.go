package event

import (
	"math"
	"time"
)

const (
	summaryCap           = 5
	summaryDescriptionLn = 150
)

type SummaryItem struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DateStart        time.Time `json:"dateStart"`
	DateEnd          time.Time `json:"dateEnd"`
	City             string    `json:"city"`
	Country          string    `json:"country"`
	Address          string    `json:"address"`
	Organizer        string    `json:"organizer"`
	Category         *string   `json:"category"`
	ParticipantCount int       `json:"participantCount"`
	MaxParticipants  *int      `json:"maxParticipants"`
	AvailableSeats   *int      `json:"availableSeats"`
}

type SummaryBucket struct {
	Count  int           `json:"count"`
	Events []SummaryItem `json:"events"`
}

type Summary struct {
	Past     SummaryBucket `json:"past"`
	Ongoing  SummaryBucket `json:"ongoing"`
	Upcoming SummaryBucket `json:"upcoming"`
}

type Detail struct {
	SummaryItem
	Slug        string         `json:"slug"`
	Status      ComputedStatus `json:"status"`
	StatusLabel string         `json:"statusLabel"`
	CanRegister bool           `json:"canRegister"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
}

type CalendarEntry struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Slug   string         `json:"slug"`
	Start  time.Time      `json:"start"`
	End    time.Time      `json:"end"`
	City   string         `json:"city"`
	Status ComputedStatus `json:"status"`
}

type DashboardStats struct {
	TotalEvents        int `json:"totalEvents"`
	UpcomingEvents     int `json:"upcomingEvents"`
	TotalRegistrations int `json:"totalRegistrations"`
	// percentage of capped seats taken, 0 when no event has a limit
	FillRate int `json:"fillRate"`
}

// excerpt keeps the first n runes and always ends with an ellipsis
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "…"
}

func (e Event) categoryName() *string {
	if e.CategoryName == "" {
		return nil
	}
	name := e.CategoryName
	return &name
}

func (e Event) item(description string) SummaryItem {
	return SummaryItem{
		ID:               e.ID,
		Title:            e.Title,
		Description:      description,
		DateStart:        e.DateStart,
		DateEnd:          e.DateEnd,
		City:             e.City,
		Country:          e.Country,
		Address:          e.FullAddress(),
		Organizer:        e.Organizer,
		Category:         e.categoryName(),
		ParticipantCount: e.ParticipantCount,
		MaxParticipants:  e.MaxParticipants,
		AvailableSeats:   e.AvailableSeats(),
	}
}

// BuildSummary partitions active events by date. Input is expected in dateStart order;
// past and upcoming are capped while counts always cover every event.
func BuildSummary(events []Event, now time.Time) Summary {
	s := Summary{
		Past:     SummaryBucket{Events: make([]SummaryItem, 0)},
		Ongoing:  SummaryBucket{Events: make([]SummaryItem, 0)},
		Upcoming: SummaryBucket{Events: make([]SummaryItem, 0)},
	}

	for _, e := range events {
		if e.IsCancelled() {
			continue
		}

		it := e.item(excerpt(e.Description, summaryDescriptionLn))

		switch {
		case e.IsPast(now):
			s.Past.Count++
			if len(s.Past.Events) < summaryCap {
				s.Past.Events = append(s.Past.Events, it)
			}
		case e.IsOngoing(now):
			s.Ongoing.Count++
			s.Ongoing.Events = append(s.Ongoing.Events, it)
		default:
			s.Upcoming.Count++
			if len(s.Upcoming.Events) < summaryCap {
				s.Upcoming.Events = append(s.Upcoming.Events, it)
			}
		}
	}

	return s
}

func BuildDetail(e Event, now time.Time) Detail {
	status := e.ComputedStatus(now)

	return Detail{
		SummaryItem: e.item(e.Description),
		Slug:        e.Slug,
		Status:      status,
		StatusLabel: status.Label(),
		CanRegister: e.CanRegister(now),
		Latitude:    e.Latitude,
		Longitude:   e.Longitude,
	}
}

func BuildCalendar(events []Event, now time.Time) []CalendarEntry {
	out := make([]CalendarEntry, 0, len(events))
	for _, e := range events {
		out = append(out, CalendarEntry{
			ID:     e.ID,
			Title:  e.Title,
			Slug:   e.Slug,
			Start:  e.DateStart,
			End:    e.DateEnd,
			City:   e.City,
			Status: e.ComputedStatus(now),
		})
	}
	return out
}

// BuildDashboard aggregates admin figures. ParticipantCount must already be filled.
func BuildDashboard(events []Event, now time.Time) DashboardStats {
	var stats DashboardStats
	var seats, taken int

	for _, e := range events {
		stats.TotalEvents++
		stats.TotalRegistrations += e.ParticipantCount

		if e.IsUpcoming(now) && !e.IsCancelled() {
			stats.UpcomingEvents++
		}
		if e.MaxParticipants != nil {
			seats += *e.MaxParticipants
			taken += e.ParticipantCount
		}
	}

	if seats > 0 {
		stats.FillRate = int(math.Round(float64(taken) / float64(seats) * 100))
	}

	return stats
}
