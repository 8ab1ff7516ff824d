package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/crosslove/eventhub/internal/cache"
	"github.com/crosslove/eventhub/internal/config"
	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/crosslove/eventhub/internal/domain/registration"
	"github.com/gin-gonic/gin"
)

type ActiveEventLister interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	ListActive(ctx context.Context) ([]event.Event, error)
}

type LocationLister interface {
	ListLocations(ctx context.Context, eventID string) ([]registration.Participant, error)
}

type faqEntry struct {
	Question string `json:"question"`
	Key      string `json:"key"`
}

// questions the chat widget offers next to the summary
var summaryFAQ = []faqEntry{
	{Question: "Quels sont les événements à venir ?", Key: "upcoming"},
	{Question: "Y a-t-il des événements en cours ?", Key: "ongoing"},
	{Question: "Quels événements sont passés ?", Key: "past"},
	{Question: "Comment m'inscrire à un événement ?", Key: "register"},
}

// APIHandler serves the read API consumed by the front-end widgets.
type APIHandler struct {
	events    ActiveEventLister
	locations LocationLister
	cache     *ReadCache
	now       func() time.Time
}

func NewAPIHandler(events ActiveEventLister, locations LocationLister, rc *ReadCache) *APIHandler {
	return &APIHandler{events: events, locations: locations, cache: rc, now: time.Now}
}

func (h *APIHandler) Summary(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	events, err := h.cache.events(cache.SummaryKey, func() ([]event.Event, error) {
		return h.events.ListActive(cctx)
	})
	if err != nil {
		RespondInternal(ctx, "Could not build summary")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"success": true,
		"data":    event.BuildSummary(events, h.now()),
		"faq":     summaryFAQ,
	})
}

func (h *APIHandler) loadEvent(ctx *gin.Context) (event.Event, bool) {
	id, ok := uuidParam(ctx, "id", "event")
	if !ok {
		return event.Event{}, false
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	e, err := h.events.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return event.Event{}, false
		}
		RespondInternal(ctx, "Could not load event")
		return event.Event{}, false
	}
	return e, true
}

func (h *APIHandler) Detail(ctx *gin.Context) {
	e, ok := h.loadEvent(ctx)
	if !ok {
		return
	}

	RespondDataWithETag(ctx, http.StatusOK, event.BuildDetail(e, h.now()))
}

// ParticipantLocations is admin only: it exposes the positions participants shared.
func (h *APIHandler) ParticipantLocations(ctx *gin.Context) {
	e, ok := h.loadEvent(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	participants, err := h.locations.ListLocations(cctx, e.ID)
	if err != nil {
		RespondInternal(ctx, "Could not list participant locations")
		return
	}

	pins := registration.Pins(participants, e.Title)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"event": gin.H{
			"id":      e.ID,
			"title":   e.Title,
			"address": e.FullAddress(),
			"lat":     e.Latitude,
			"lng":     e.Longitude,
		},
		"participants":             pins,
		"totalParticipants":        e.ParticipantCount,
		"participantsWithLocation": len(pins),
	})
}
