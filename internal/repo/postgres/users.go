package postgres

import (
	"context"
	"errors"

	"github.com/crosslove/eventhub/internal/domain/user"
	"github.com/crosslove/eventhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const userSelect = `SELECT id, email, password_hash, first_name, last_name, roles, created_at FROM users`

func (r *UsersRepo) getOne(ctx context.Context, op, where string, arg any) (user.User, error) {
	var u user.User
	var roles []string

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx, userSelect+where, arg).Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.FirstName,
			&u.LastName,
			&roles,
			&u.CreatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	u.Roles = user.NewRoles(roles...)
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", ` WHERE email = lower($1)`, email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", ` WHERE id = $1`, id)
}

// Create stores only the extra roles; ROLE_USER is implied.
func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, roles, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Roles.Extra(), u.CreatedAt,
		)
		return err
	})
	if isUnique(err, "users_email_uniq") {
		return user.ErrEmailTaken
	}
	return err
}

func (r *UsersRepo) UpdateRoles(ctx context.Context, id string, roles user.Roles) error {
	var tag pgconn.CommandTag

	err := r.observe("users.update_roles", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `UPDATE users SET roles = $2 WHERE id = $1`, id, roles.Extra())
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}
