package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/crosslove/eventhub/internal/domain/category"
	"github.com/crosslove/eventhub/internal/domain/event"
)

type EventsRepo struct {
	s *Store
}

// checkWrite must be called with the lock held.
func (r *EventsRepo) checkWrite(e event.Event) error {
	for id, existing := range r.s.events {
		if id != e.ID && existing.Slug == e.Slug {
			return event.ErrSlugTaken
		}
	}
	if e.CategoryID != nil {
		if _, ok := r.s.categories[*e.CategoryID]; !ok {
			return category.ErrNotFound
		}
	}
	return nil
}

func (r *EventsRepo) Create(_ context.Context, e event.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkWrite(e); err != nil {
		return err
	}

	e.ParticipantCount = 0
	e.CategoryName = ""
	r.s.events[e.ID] = e
	return nil
}

func (r *EventsRepo) GetByID(_ context.Context, id string) (event.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return r.s.hydrate(e), nil
}

func (r *EventsRepo) GetBySlug(_ context.Context, slug string) (event.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.events {
		if e.Slug == slug {
			return r.s.hydrate(e), nil
		}
	}
	return event.Event{}, event.ErrNotFound
}

func (r *EventsRepo) Update(_ context.Context, e event.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.events[e.ID]
	if !ok {
		return event.ErrNotFound
	}
	if err := r.checkWrite(e); err != nil {
		return err
	}

	e.Slug = current.Slug
	e.CreatedBy = current.CreatedBy
	e.CreatedAt = current.CreatedAt
	r.s.events[e.ID] = e
	return nil
}

func (r *EventsRepo) mutate(id string, fn func(e *event.Event)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return event.ErrNotFound
	}

	fn(&e)
	r.s.events[id] = e
	return nil
}

func (r *EventsRepo) SetStatus(_ context.Context, id string, status event.Status, now time.Time) error {
	return r.mutate(id, func(e *event.Event) {
		e.Status = status
		e.Touch(now)
	})
}

func (r *EventsRepo) SetCoordinates(_ context.Context, id string, lat, lng float64, now time.Time) error {
	return r.mutate(id, func(e *event.Event) {
		e.SetCoordinates(lat, lng)
		e.Touch(now)
	})
}

// Delete removes the event and cascades to its registrations.
func (r *EventsRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[id]; !ok {
		return event.ErrNotFound
	}

	delete(r.s.events, id)
	for regID, reg := range r.s.registrations {
		if reg.EventID == id {
			delete(r.s.registrations, regID)
		}
	}
	return nil
}

func (r *EventsRepo) filter(keep func(e event.Event) bool, less func(a, b event.Event) bool) []event.Event {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]event.Event, 0)
	for _, e := range r.s.events {
		e = r.s.hydrate(e)
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byDateStart(a, b event.Event) bool {
	if !a.DateStart.Equal(b.DateStart) {
		return a.DateStart.Before(b.DateStart)
	}
	return a.ID < b.ID
}

func byTitle(a, b event.Event) bool {
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.ID < b.ID
}

func (r *EventsRepo) FindAllSorted(_ context.Context, key event.SortKey) ([]event.Event, error) {
	less := byDateStart
	if key == event.SortByTitle {
		less = byTitle
	}
	return r.filter(nil, less), nil
}

func (r *EventsRepo) Search(_ context.Context, term string) ([]event.Event, error) {
	needle := strings.ToLower(term)
	return r.filter(func(e event.Event) bool {
		return strings.Contains(strings.ToLower(e.Title), needle) ||
			strings.Contains(strings.ToLower(e.Description), needle)
	}, byDateStart), nil
}

func (r *EventsRepo) FindByCategory(_ context.Context, nameOrSlug string) ([]event.Event, error) {
	r.s.mu.RLock()
	ids := make(map[string]bool)
	for id, c := range r.s.categories {
		if c.Name == nameOrSlug || c.Slug == nameOrSlug {
			ids[id] = true
		}
	}
	r.s.mu.RUnlock()

	return r.filter(func(e event.Event) bool {
		return e.CategoryID != nil && ids[*e.CategoryID]
	}, byDateStart), nil
}

func (r *EventsRepo) FindAllCategories(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, e := range r.s.events {
		if e.CategoryID == nil {
			continue
		}
		c, ok := r.s.categories[*e.CategoryID]
		if !ok || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		names = append(names, c.Name)
	}

	sort.Strings(names)
	return names, nil
}

func (r *EventsRepo) ListActive(_ context.Context) ([]event.Event, error) {
	return r.filter(func(e event.Event) bool { return !e.IsCancelled() }, byDateStart), nil
}

func (r *EventsRepo) ListMissingCoordinates(_ context.Context, limit int) ([]event.Event, error) {
	out := r.filter(func(e event.Event) bool { return !e.HasCoordinates() }, func(a, b event.Event) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *EventsRepo) ListByCreatedDesc(_ context.Context) ([]event.Event, error) {
	return r.filter(nil, func(a, b event.Event) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	}), nil
}
