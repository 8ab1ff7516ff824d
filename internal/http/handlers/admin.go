package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/crosslove/eventhub/internal/config"
	"github.com/crosslove/eventhub/internal/domain/category"
	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/crosslove/eventhub/internal/domain/job"
	"github.com/crosslove/eventhub/internal/domain/registration"
	"github.com/crosslove/eventhub/internal/geocoding"
	"github.com/crosslove/eventhub/internal/jobs"
	"github.com/gin-gonic/gin"
)

type EventAdminStore interface {
	Create(ctx context.Context, e event.Event) error
	GetByID(ctx context.Context, id string) (event.Event, error)
	Update(ctx context.Context, e event.Event) error
	SetStatus(ctx context.Context, id string, status event.Status, now time.Time) error
	Delete(ctx context.Context, id string) error
	ListByCreatedDesc(ctx context.Context) ([]event.Event, error)
}

type ParticipantStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]registration.Participant, error)
	AdminDelete(ctx context.Context, eventID, registrationID string) error
}

type JobsCreator interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type AdminHandler struct {
	events       EventAdminStore
	participants ParticipantStore
	jobs         JobsCreator
	geocoder     geocoding.Geocoder
	cache        *ReadCache
	logger       *slog.Logger
	now          func() time.Time
}

type AdminDeps struct {
	Events       EventAdminStore
	Participants ParticipantStore
	Jobs         JobsCreator
	// optional; events are saved without coordinates when nil
	Geocoder geocoding.Geocoder
	Cache    *ReadCache
	Logger   *slog.Logger
}

func NewAdminHandler(d AdminDeps) *AdminHandler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		events:       d.Events,
		participants: d.Participants,
		jobs:         d.Jobs,
		geocoder:     d.Geocoder,
		cache:        d.Cache,
		logger:       logger,
		now:          time.Now,
	}
}

const dashboardRecent = 5

func (h *AdminHandler) Dashboard(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	events, err := h.events.ListByCreatedDesc(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not load dashboard")
		return
	}

	now := h.now()
	recent := events
	if len(recent) > dashboardRecent {
		recent = recent[:dashboardRecent]
	}

	ctx.JSON(http.StatusOK, gin.H{
		"stats":        event.BuildDashboard(events, now),
		"recentEvents": viewsOf(recent, now),
	})
}

func (h *AdminHandler) ListEvents(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	events, err := h.events.ListByCreatedDesc(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": viewsOf(events, h.now()),
		"count": len(events),
	})
}

// locate fills coordinates from the geocoder. When nothing comes back a job retries
// later, so a provider outage never blocks the save.
func (h *AdminHandler) locate(ctx context.Context, e *event.Event) (retry bool) {
	if c := geocoding.SoftGeocode(ctx, h.geocoder, h.logger, e.FullAddress()); c != nil {
		e.SetCoordinates(c.Lat, c.Lng)
		return false
	}
	return h.geocoder != nil
}

func (h *AdminHandler) enqueueGeocode(ctx context.Context, eventID string) {
	if h.jobs == nil {
		return
	}

	_, err := h.jobs.Create(ctx, job.CreateRequest{
		Type:           jobs.JobGeocodeEvent,
		Payload:        jobs.GeocodeEventPayload{EventID: eventID},
		IdempotencyKey: "event:geocode:" + eventID + ":" + h.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "enqueue geocode job failed", "event_id", eventID, "err", err)
	}
}

func respondEventWriteError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, event.ErrNotFound):
		RespondNotFound(ctx, "Event not found")
	case errors.Is(err, event.ErrSlugTaken):
		RespondConflict(ctx, "slug_taken", "An event with this slug already exists.")
	case errors.Is(err, category.ErrNotFound):
		RespondError(ctx, http.StatusBadRequest, "unknown_category", "Category does not exist.", nil)
	default:
		RespondInternal(ctx, "Could not save event")
	}
}

func (h *AdminHandler) CreateEvent(ctx *gin.Context) {
	adminID, ok := actor(ctx)
	if !ok {
		return
	}

	var req event.CreateEventRequest
	if !BindJSON(ctx, &req) {
		return
	}

	e := event.NewFromCreateRequest(req, adminID, h.now())
	if err := e.Validate(); err != nil {
		RespondValidation(ctx, err)
		return
	}

	// geocoding runs before the DB timeout starts; the geocoder bounds its own calls
	retry := h.locate(ctx.Request.Context(), &e)

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.events.Create(cctx, e); err != nil {
		respondEventWriteError(ctx, err)
		return
	}

	if retry {
		h.enqueueGeocode(cctx, e.ID)
	}
	h.cache.Invalidate()

	ctx.JSON(http.StatusCreated, NewEventView(e, h.now()))
}

func (h *AdminHandler) UpdateEvent(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id", "event")
	if !ok {
		return
	}

	var req event.UpdateEventRequest
	if !BindJSON(ctx, &req) {
		return
	}

	rctx, rcancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	e, err := h.events.GetByID(rctx, id)
	rcancel()
	if err != nil {
		respondEventWriteError(ctx, err)
		return
	}

	moved := e.AddressChanged(req)
	e.ApplyUpdate(req, h.now())
	if err := e.Validate(); err != nil {
		RespondValidation(ctx, err)
		return
	}

	retry := false
	if moved || !e.HasCoordinates() {
		e.Latitude, e.Longitude = nil, nil
		retry = h.locate(ctx.Request.Context(), &e)
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.events.Update(cctx, e); err != nil {
		respondEventWriteError(ctx, err)
		return
	}

	if retry {
		h.enqueueGeocode(cctx, e.ID)
	}
	h.cache.Invalidate()

	ctx.JSON(http.StatusOK, NewEventView(e, h.now()))
}

// CancelEvent keeps the event and its registrations but closes it for good.
func (h *AdminHandler) CancelEvent(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id", "event")
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	e, err := h.events.GetByID(cctx, id)
	if err != nil {
		respondEventWriteError(ctx, err)
		return
	}
	if e.IsCancelled() {
		RespondConflict(ctx, "already_cancelled", "This event is already cancelled.")
		return
	}

	now := h.now()
	if err := h.events.SetStatus(cctx, id, event.StatusCancelled, now); err != nil {
		respondEventWriteError(ctx, err)
		return
	}
	e.Cancel(now)
	h.cache.Invalidate()

	ctx.JSON(http.StatusOK, NewEventView(e, now))
}

func (h *AdminHandler) DeleteEvent(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id", "event")
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.events.Delete(cctx, id); err != nil {
		respondEventWriteError(ctx, err)
		return
	}
	h.cache.Invalidate()

	ctx.Status(http.StatusNoContent)
}

type participantView struct {
	registration.Participant
	FullName    string `json:"fullName"`
	StatusLabel string `json:"statusLabel"`
}

func (h *AdminHandler) Participants(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id", "event")
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	list, err := h.participants.ListByEvent(cctx, id)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not list participants")
		return
	}

	out := make([]participantView, 0, len(list))
	active := 0
	for _, p := range list {
		if p.IsActive() {
			active++
		}
		out = append(out, participantView{Participant: p, FullName: p.FullName(), StatusLabel: p.StatusLabel()})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"eventId":      id,
		"count":        len(out),
		"activeCount":  active,
		"participants": out,
	})
}

func (h *AdminHandler) DeleteRegistration(ctx *gin.Context) {
	eventID, ok := uuidParam(ctx, "id", "event")
	if !ok {
		return
	}
	regID, ok := uuidParam(ctx, "registrationId", "registration")
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.participants.AdminDelete(cctx, eventID, regID); err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			RespondNotFound(ctx, "Registration not found")
			return
		}
		RespondInternal(ctx, "Could not delete registration")
		return
	}
	h.cache.Invalidate()

	ctx.Status(http.StatusNoContent)
}
