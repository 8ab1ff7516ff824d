// Package memory keeps every repository in process maps behind one lock. It backs tests
// and local runs without a database, with the same semantics as the postgres package.
package memory

import (
	"sync"

	"github.com/crosslove/eventhub/internal/domain/category"
	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/crosslove/eventhub/internal/domain/job"
	"github.com/crosslove/eventhub/internal/domain/registration"
	"github.com/crosslove/eventhub/internal/domain/user"
)

type Store struct {
	mu            sync.RWMutex
	users         map[string]user.User
	categories    map[string]category.Category
	events        map[string]event.Event
	registrations map[string]registration.Registration
	jobs          map[string]job.Job
}

func NewStore() *Store {
	return &Store{
		users:         make(map[string]user.User),
		categories:    make(map[string]category.Category),
		events:        make(map[string]event.Event),
		registrations: make(map[string]registration.Registration),
		jobs:          make(map[string]job.Job),
	}
}

func (s *Store) Users() *UsersRepo                 { return &UsersRepo{s: s} }
func (s *Store) Categories() *CategoriesRepo       { return &CategoriesRepo{s: s} }
func (s *Store) Events() *EventsRepo               { return &EventsRepo{s: s} }
func (s *Store) Registrations() *RegistrationsRepo { return &RegistrationsRepo{s: s} }
func (s *Store) Jobs() *JobsRepo                   { return &JobsRepo{s: s} }

// participantCount must be called with the lock held.
func (s *Store) participantCount(eventID string) int {
	n := 0
	for _, r := range s.registrations {
		if r.EventID == eventID && r.IsActive() {
			n++
		}
	}
	return n
}

// hydrate fills the derived columns a SQL join would provide. Lock must be held.
func (s *Store) hydrate(e event.Event) event.Event {
	e.ParticipantCount = s.participantCount(e.ID)
	e.CategoryName = ""
	if e.CategoryID != nil {
		if c, ok := s.categories[*e.CategoryID]; ok {
			e.CategoryName = c.Name
		}
	}
	return e
}
