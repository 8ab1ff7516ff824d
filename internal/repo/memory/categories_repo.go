package memory

import (
	"context"
	"sort"

	"github.com/crosslove/eventhub/internal/domain/category"
)

type CategoriesRepo struct {
	s *Store
}

// nameTaken must be called with the lock held.
func (r *CategoriesRepo) nameTaken(c category.Category) bool {
	for id, existing := range r.s.categories {
		if id != c.ID && (existing.Name == c.Name || existing.Slug == c.Slug) {
			return true
		}
	}
	return false
}

func (r *CategoriesRepo) eventCount(id string) int {
	n := 0
	for _, e := range r.s.events {
		if e.CategoryID != nil && *e.CategoryID == id {
			n++
		}
	}
	return n
}

func (r *CategoriesRepo) Create(_ context.Context, c category.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.nameTaken(c) {
		return category.ErrNameTaken
	}

	c.EventCount = 0
	r.s.categories[c.ID] = c
	return nil
}

func (r *CategoriesRepo) GetByID(_ context.Context, id string) (category.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return category.Category{}, category.ErrNotFound
	}

	c.EventCount = r.eventCount(id)
	return c, nil
}

func (r *CategoriesRepo) List(_ context.Context) ([]category.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]category.Category, 0, len(r.s.categories))
	for id, c := range r.s.categories {
		c.EventCount = r.eventCount(id)
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CategoriesRepo) Rename(_ context.Context, id, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.categories[id]
	if !ok {
		return category.ErrNotFound
	}

	c.Rename(name)
	if r.nameTaken(c) {
		return category.ErrNameTaken
	}

	r.s.categories[id] = c
	return nil
}

func (r *CategoriesRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return category.ErrNotFound
	}
	if r.eventCount(id) > 0 {
		return category.ErrInUse
	}

	delete(r.s.categories, id)
	return nil
}
