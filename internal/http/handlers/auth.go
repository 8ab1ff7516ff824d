package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/crosslove/eventhub/internal/config"
	"github.com/crosslove/eventhub/internal/domain/user"
	"github.com/crosslove/eventhub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) error
}

type TokenIssuer interface {
	GenerateAccessToken(userID, email string, roles []string) (string, error)
	AccessTTL() time.Duration
}

type AuthHandler struct {
	users UserStore
	jwt   TokenIssuer
	now   func() time.Time
}

func NewAuthHandler(users UserStore, jwt TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt, now: time.Now}
}

type tokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresIn   int       `json:"expiresIn"`
	User        user.User `json:"user"`
}

func (h *AuthHandler) issue(ctx *gin.Context, status int, u user.User) {
	token, err := h.jwt.GenerateAccessToken(u.ID, u.Email, u.Roles.List())
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(status, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.jwt.AccessTTL().Seconds()),
		User:        u,
	})
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignupRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			RespondBadRequest(ctx, "Password too short", nil)
			return
		}
		RespondInternal(ctx, "Could not create user")
		return
	}

	u := user.New(req.Email, hash, req.FirstName, req.LastName, h.now())
	if err := u.Validate(); err != nil {
		RespondValidation(ctx, err)
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.users.Create(cctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	h.issue(ctx, http.StatusCreated, u)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondError(ctx, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect.", nil)
			return
		}
		RespondInternal(ctx, "Could not log in")
		return
	}

	if err := security.CheckPassword(found.PasswordHash, req.Password); err != nil {
		RespondError(ctx, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect.", nil)
		return
	}

	h.issue(ctx, http.StatusOK, found)
}
