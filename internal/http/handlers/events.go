package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/crosslove/eventhub/internal/cache"
	"github.com/crosslove/eventhub/internal/config"
	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/gin-gonic/gin"
)

type EventFinder interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	GetBySlug(ctx context.Context, slug string) (event.Event, error)
	FindAllSorted(ctx context.Context, key event.SortKey) ([]event.Event, error)
	Search(ctx context.Context, term string) ([]event.Event, error)
	FindByCategory(ctx context.Context, nameOrSlug string) ([]event.Event, error)
	FindAllCategories(ctx context.Context) ([]string, error)
	ListActive(ctx context.Context) ([]event.Event, error)
}

// ReadCache holds the short lived copies of public reads. Admin writes call Invalidate.
type ReadCache struct {
	Events *cache.Cache[[]event.Event]
	Names  *cache.Cache[[]string]
}

func NewReadCache(ttl time.Duration) *ReadCache {
	return &ReadCache{
		Events: cache.New[[]event.Event](ttl),
		Names:  cache.New[[]string](ttl),
	}
}

func (c *ReadCache) Invalidate() {
	if c == nil {
		return
	}
	c.Events.Clear()
	c.Names.Clear()
}

func (c *ReadCache) events(key string, load func() ([]event.Event, error)) ([]event.Event, error) {
	if c == nil {
		return load()
	}
	v, _, err := c.Events.GetOrLoad(key, load)
	return v, err
}

func (c *ReadCache) names(key string, load func() ([]string, error)) ([]string, error) {
	if c == nil {
		return load()
	}
	v, _, err := c.Names.GetOrLoad(key, load)
	return v, err
}

// EventView is an event with the fields derived at read time.
type EventView struct {
	event.Event
	ComputedStatus  event.ComputedStatus `json:"computedStatus"`
	StatusLabel     string               `json:"statusLabel"`
	AvailableSeats  *int                 `json:"availableSeats"`
	CanRegister     bool                 `json:"canRegister"`
	DurationInHours float64              `json:"durationInHours"`
}

func NewEventView(e event.Event, now time.Time) EventView {
	status := e.ComputedStatus(now)
	return EventView{
		Event:           e,
		ComputedStatus:  status,
		StatusLabel:     status.Label(),
		AvailableSeats:  e.AvailableSeats(),
		CanRegister:     e.CanRegister(now),
		DurationInHours: e.DurationInHours(),
	}
}

func viewsOf(events []event.Event, now time.Time) []EventView {
	out := make([]EventView, 0, len(events))
	for _, e := range events {
		out = append(out, NewEventView(e, now))
	}
	return out
}

type EventsHandler struct {
	repo   EventFinder
	cache  *ReadCache
	logger *slog.Logger
	now    func() time.Time
}

func NewEventsHandler(repo EventFinder, rc *ReadCache, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{repo: repo, cache: rc, logger: logger, now: time.Now}
}

// ListEvents applies at most one of search, category or sort, in that order of precedence.
func (h *EventsHandler) ListEvents(ctx *gin.Context) {
	search := strings.TrimSpace(ctx.Query("search"))
	category := strings.TrimSpace(ctx.Query("category"))
	sort := event.ParseSort(ctx.Query("sort"))

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	key := cache.EventsListKey(search, category, string(sort))
	events, err := h.cache.events(key, func() ([]event.Event, error) {
		switch {
		case search != "":
			return h.repo.Search(cctx, search)
		case category != "":
			return h.repo.FindByCategory(cctx, category)
		default:
			return h.repo.FindAllSorted(cctx, sort)
		}
	})
	if err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "list events failed", "err", err)
		RespondInternal(ctx, "Could not list events")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": viewsOf(events, h.now()),
		"count": len(events),
		"filters": gin.H{
			"search":   search,
			"category": category,
			"sort":     sort,
		},
	})
}

func (h *EventsHandler) ListCategories(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	names, err := h.cache.names(cache.CategoriesKey, func() ([]string, error) {
		return h.repo.FindAllCategories(cctx)
	})
	if err != nil {
		RespondInternal(ctx, "Could not list categories")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"categories": names})
}

func (h *EventsHandler) Calendar(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	events, err := h.cache.events(cache.CalendarKey, func() ([]event.Event, error) {
		return h.repo.ListActive(cctx)
	})
	if err != nil {
		RespondInternal(ctx, "Could not load calendar")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"events": event.BuildCalendar(events, h.now())})
}

func (h *EventsHandler) GetBySlug(ctx *gin.Context) {
	slug := strings.TrimSpace(ctx.Param("slug"))
	if slug == "" {
		RespondNotFound(ctx, "Event not found")
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	e, err := h.repo.GetBySlug(cctx, slug)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not load event")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, NewEventView(e, h.now()))
}
