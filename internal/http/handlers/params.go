package handlers

import (
	"net/http"
	"time"

	"github.com/crosslove/eventhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const storeTimeout = 2 * time.Second

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// uuidParam reads a path parameter and answers 400 when it is not a UUID.
func uuidParam(ctx *gin.Context, name, label string) (string, bool) {
	v := ctx.Param(name)
	if !isUUID(v) {
		RespondError(ctx, http.StatusBadRequest, "invalid_id", label+" id must be a valid UUID", nil)
		return "", false
	}
	return v, true
}

// actor returns the authenticated user id, answering 401 when it is missing.
func actor(ctx *gin.Context) (string, bool) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok || userID == "" {
		RespondUnauthorized(ctx, "Missing identity")
		return "", false
	}
	return userID, true
}
