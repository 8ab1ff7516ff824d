package postgres

import (
	"context"
	"errors"

	"github.com/crosslove/eventhub/internal/domain/category"
	"github.com/crosslove/eventhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoriesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCategoriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *CategoriesRepo {
	return &CategoriesRepo{pool: pool, prom: prom}
}

func (r *CategoriesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func mapCategoryWriteErr(err error) error {
	if isUnique(err, "categories_name_uniq") || isUnique(err, "categories_slug_uniq") {
		return category.ErrNameTaken
	}
	return err
}

func (r *CategoriesRepo) Create(ctx context.Context, c category.Category) error {
	err := r.observe("categories.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO categories (id, name, slug) VALUES ($1, $2, $3)`,
			c.ID, c.Name, c.Slug,
		)
		return err
	})
	return mapCategoryWriteErr(err)
}

func (r *CategoriesRepo) GetByID(ctx context.Context, id string) (category.Category, error) {
	var c category.Category

	err := r.observe("categories.get_by_id", func() error {
		return r.pool.QueryRow(ctx, `
		SELECT c.id, c.name, c.slug,
		       (SELECT COUNT(*) FROM events e WHERE e.category_id = c.id)
		FROM categories c
		WHERE c.id = $1`, id).Scan(&c.ID, &c.Name, &c.Slug, &c.EventCount)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return category.Category{}, category.ErrNotFound
		}
		return category.Category{}, err
	}

	return c, nil
}

func (r *CategoriesRepo) List(ctx context.Context) ([]category.Category, error) {
	var rows pgx.Rows

	err := r.observe("categories.list", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, `
		SELECT c.id, c.name, c.slug, COUNT(e.id)
		FROM categories c
		LEFT JOIN events e ON e.category_id = c.id
		GROUP BY c.id, c.name, c.slug
		ORDER BY c.name ASC`)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]category.Category, 0)
	for rows.Next() {
		var c category.Category
		if err = rows.Scan(&c.ID, &c.Name, &c.Slug, &c.EventCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

// Rename changes the name only; the slug computed at creation is kept.
func (r *CategoriesRepo) Rename(ctx context.Context, id, name string) error {
	var tag pgconn.CommandTag

	err := r.observe("categories.rename", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `UPDATE categories SET name = $2 WHERE id = $1`, id, name)
		return err
	})
	if err != nil {
		return mapCategoryWriteErr(err)
	}

	if tag.RowsAffected() == 0 {
		return category.ErrNotFound
	}
	return nil
}

// Delete refuses categories that still have events.
func (r *CategoriesRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("categories.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
		return err
	})
	if err != nil {
		if isForeignKey(err) {
			return category.ErrInUse
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		return category.ErrNotFound
	}
	return nil
}
