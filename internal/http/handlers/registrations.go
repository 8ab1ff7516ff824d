package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/crosslove/eventhub/internal/config"
	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/crosslove/eventhub/internal/domain/registration"
	"github.com/crosslove/eventhub/internal/domain/validation"
	"github.com/crosslove/eventhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

type RegistrationStore interface {
	Register(ctx context.Context, userID, eventID, whatsapp string, now time.Time) (registration.Registration, error)
	Cancel(ctx context.Context, registrationID, actorID string, now time.Time) (registration.Registration, error)
	GetByID(ctx context.Context, registrationID string) (registration.Registration, error)
	ListByUser(ctx context.Context, userID string, now time.Time) ([]registration.Booking, error)
	UpdateLocation(ctx context.Context, registrationID, actorID string, req registration.UpdateLocationRequest, now time.Time) (registration.Registration, error)
}

type RegistrationHandler struct {
	repo   RegistrationStore
	cache  *ReadCache
	prom   *observability.Prom
	logger *slog.Logger
	now    func() time.Time
}

func NewRegistrationHandler(repo RegistrationStore, rc *ReadCache, prom *observability.Prom, logger *slog.Logger) *RegistrationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationHandler{repo: repo, cache: rc, prom: prom, logger: logger, now: time.Now}
}

// respondRegistrationError maps workflow errors to the API taxonomy and returns the
// metric label for the outcome.
func respondRegistrationError(ctx *gin.Context, err error) string {
	switch {
	case errors.Is(err, registration.ErrAlreadyRegistered):
		RespondConflict(ctx, "already_registered", "You are already registered for this event.")
		return "duplicate"
	case errors.Is(err, registration.ErrEventFull):
		RespondConflict(ctx, "event_full", "This event is already at full capacity.")
		return "full"
	case errors.Is(err, registration.ErrEventNotOpen):
		RespondConflict(ctx, "registration_closed", "This event is not open for registration.")
		return "closed"
	case errors.Is(err, registration.ErrCancellationClosed):
		RespondConflict(ctx, "cancellation_closed", "The event has already started.")
		return "closed"
	case errors.Is(err, registration.ErrAlreadyCancelled):
		RespondConflict(ctx, "already_cancelled", "This registration is already cancelled.")
		return "duplicate"
	case errors.Is(err, registration.ErrForbidden):
		RespondForbidden(ctx, "This registration belongs to another user.")
		return "forbidden"
	case errors.Is(err, registration.ErrNotFound):
		RespondNotFound(ctx, "Registration not found")
		return "not_found"
	case errors.Is(err, event.ErrNotFound):
		RespondNotFound(ctx, "Event not found")
		return "not_found"
	case errors.Is(err, validation.ErrValidation):
		RespondValidation(ctx, err)
		return "invalid"
	default:
		RespondInternal(ctx, "Could not process registration")
		return "error"
	}
}

func (h *RegistrationHandler) Register(ctx *gin.Context) {
	eventID, ok := uuidParam(ctx, "id", "event")
	if !ok {
		return
	}

	userID, ok := actor(ctx)
	if !ok {
		return
	}

	// the body is optional; it only carries a contact number
	var req registration.CreateRegistrationRequest
	if ctx.Request.ContentLength > 0 && !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	reg, err := h.repo.Register(cctx, userID, eventID, strings.TrimSpace(req.WhatsappNumber), h.now())
	if err != nil {
		result := respondRegistrationError(ctx, err)
		h.prom.IncRegistration(result)
		if result == "error" {
			h.logger.ErrorContext(ctx.Request.Context(), "register failed", "event_id", eventID, "err", err)
		}
		return
	}

	h.prom.IncRegistration("ok")
	h.cache.Invalidate()

	ctx.JSON(http.StatusCreated, gin.H{
		"registration": reg,
		"statusLabel":  reg.StatusLabel(),
		"message":      "Inscription confirmée",
	})
}

func (h *RegistrationHandler) Cancel(ctx *gin.Context) {
	regID, ok := uuidParam(ctx, "id", "registration")
	if !ok {
		return
	}

	userID, ok := actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	reg, err := h.repo.Cancel(cctx, regID, userID, h.now())
	if err != nil {
		if respondRegistrationError(ctx, err) == "error" {
			h.logger.ErrorContext(ctx.Request.Context(), "cancel registration failed", "registration_id", regID, "err", err)
		}
		return
	}

	h.cache.Invalidate()

	ctx.JSON(http.StatusOK, gin.H{
		"registration": reg,
		"statusLabel":  reg.StatusLabel(),
	})
}

func (h *RegistrationHandler) UpdateLocation(ctx *gin.Context) {
	regID, ok := uuidParam(ctx, "id", "registration")
	if !ok {
		return
	}

	userID, ok := actor(ctx)
	if !ok {
		return
	}

	var req registration.UpdateLocationRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	reg, err := h.repo.UpdateLocation(cctx, regID, userID, req, h.now())
	if err != nil {
		respondRegistrationError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":      true,
		"registration": reg,
	})
}

func (h *RegistrationHandler) Mine(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	bookings, err := h.repo.ListByUser(cctx, userID, h.now())
	if err != nil {
		RespondInternal(ctx, "Could not list registrations")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"count":         len(bookings),
		"registrations": bookings,
	})
}

// TicketContent is what the QR code of a registration encodes.
func TicketContent(reg registration.Registration) string {
	return "eventhub:registration:" + reg.ID + ":event:" + reg.EventID
}

// QRCode renders the ticket of an active registration as a PNG.
func (h *RegistrationHandler) QRCode(ctx *gin.Context) {
	regID, ok := uuidParam(ctx, "id", "registration")
	if !ok {
		return
	}

	userID, ok := actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	reg, err := h.repo.GetByID(cctx, regID)
	if err != nil {
		respondRegistrationError(ctx, err)
		return
	}
	if reg.UserID != userID {
		respondRegistrationError(ctx, registration.ErrForbidden)
		return
	}
	if !reg.IsActive() {
		RespondConflict(ctx, "already_cancelled", "This registration is cancelled.")
		return
	}

	png, err := qrcode.Encode(TicketContent(reg), qrcode.Medium, 256)
	if err != nil {
		RespondInternal(ctx, "Could not render ticket")
		return
	}

	ctx.Header("Cache-Control", "private, max-age=300")
	ctx.Data(http.StatusOK, "image/png", png)
}
