package db

import (
	"context"
	"errors"
	"time"

	"github.com/crosslove/eventhub/internal/config"
	"github.com/crosslove/eventhub/internal/domain/user"
	"github.com/crosslove/eventhub/internal/security"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) error
	UpdateRoles(ctx context.Context, id string, roles user.Roles) error
}

// EnsureAdminUser creates the configured admin, or grants the admin role to an existing
// account with that email. It is a no-op when no admin credentials are configured.
func EnsureAdminUser(ctx context.Context, users AdminStore, cfg config.Config) (created bool, err error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	existing, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		if existing.IsAdmin() {
			return false, nil
		}
		existing.Roles.Add(user.RoleAdmin)
		return false, users.UpdateRoles(ctx, existing.ID, existing.Roles)
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return false, err
	}

	u := user.New(cfg.AdminEmail, hash, cfg.AdminFirstName, cfg.AdminLastName, time.Now())
	u.Roles.Add(user.RoleAdmin)

	if err = u.Validate(); err != nil {
		return false, err
	}

	if err = users.Create(ctx, u); err != nil {
		return false, err
	}

	return true, nil
}
