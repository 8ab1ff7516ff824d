package user

import (
	"errors"
	"strings"
	"time"

	"github.com/crosslove/eventhub/internal/domain/validation"
	"github.com/google/uuid"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email" validate:"required,email,max=180"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	FirstName    string    `json:"firstName" validate:"required,min=2,max=100"`
	LastName     string    `json:"lastName" validate:"required,min=1,max=100"`
	Roles        Roles     `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already used")
)

type SignupRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"firstName" binding:"required,min=2,max=100"`
	LastName  string `json:"lastName" binding:"required,min=1,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (u User) IsAdmin() bool {
	return u.Roles.Has(RoleAdmin)
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) Validate() error {
	return validation.Struct(u)
}

// New builds a plain user; the password must already be hashed.
func New(email, passwordHash, firstName, lastName string, now time.Time) User {
	return User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		CreatedAt:    now.UTC(),
	}
}
