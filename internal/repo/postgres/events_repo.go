package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/crosslove/eventhub/internal/domain/category"
	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/crosslove/eventhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *EventsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// participant_count only counts seats held by non-cancelled registrations
const eventSelect = `
	SELECT e.id, e.title, e.slug, e.description, e.image,
	       e.date_start, e.date_end,
	       e.address, e.postal_code, e.city, e.country, e.organizer,
	       e.max_participants, e.latitude, e.longitude,
	       e.category_id, COALESCE(c.name, ''),
	       e.created_by, e.status, e.created_at, e.updated_at,
	       (SELECT COUNT(*) FROM registrations r
	         WHERE r.event_id = e.id AND r.status <> 'cancelled') AS participant_count
	FROM events e
	LEFT JOIN categories c ON c.id = e.category_id
`

func scanEvent(row pgx.Row) (event.Event, error) {
	var e event.Event
	var status string

	err := row.Scan(
		&e.ID, &e.Title, &e.Slug, &e.Description, &e.Image,
		&e.DateStart, &e.DateEnd,
		&e.Address, &e.PostalCode, &e.City, &e.Country, &e.Organizer,
		&e.MaxParticipants, &e.Latitude, &e.Longitude,
		&e.CategoryID, &e.CategoryName,
		&e.CreatedBy, &status, &e.CreatedAt, &e.UpdatedAt,
		&e.ParticipantCount,
	)
	if err != nil {
		return event.Event{}, err
	}

	e.Status = event.Status(status)
	return e, nil
}

func (r *EventsRepo) queryEvents(ctx context.Context, op, q string, args ...any) ([]event.Event, error) {
	var rows pgx.Rows

	err := r.observe(op, func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, q, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]event.Event, 0)
	for rows.Next() {
		e, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, e)
	}

	if err = rows.Err(); err != nil {
		if r.prom != nil {
			r.prom.DbErrorsTotal.WithLabelValues(op, "rows_err").Inc()
		}
		return nil, err
	}

	return out, nil
}

func (r *EventsRepo) getOne(ctx context.Context, op, where string, arg any) (event.Event, error) {
	var e event.Event

	err := r.observe(op, func() error {
		var scanErr error
		e, scanErr = scanEvent(r.pool.QueryRow(ctx, eventSelect+where, arg))
		return scanErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

func mapEventWriteErr(err error) error {
	switch {
	case isUnique(err, "events_slug_uniq"):
		return event.ErrSlugTaken
	case isForeignKey(err):
		return category.ErrNotFound
	default:
		return err
	}
}

func (r *EventsRepo) Create(ctx context.Context, e event.Event) error {
	err := r.observe("events.create", func() error {
		_, err := r.pool.Exec(ctx, `
		INSERT INTO events (
			id, title, slug, description, image, date_start, date_end,
			address, postal_code, city, country, organizer,
			max_participants, latitude, longitude, category_id,
			created_by, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
			e.ID, e.Title, e.Slug, e.Description, e.Image, e.DateStart, e.DateEnd,
			e.Address, e.PostalCode, e.City, e.Country, e.Organizer,
			e.MaxParticipants, e.Latitude, e.Longitude, e.CategoryID,
			e.CreatedBy, string(e.Status), e.CreatedAt, e.UpdatedAt,
		)
		return err
	})

	return mapEventWriteErr(err)
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	return r.getOne(ctx, "events.get_by_id", ` WHERE e.id = $1`, id)
}

func (r *EventsRepo) GetBySlug(ctx context.Context, slug string) (event.Event, error) {
	return r.getOne(ctx, "events.get_by_slug", ` WHERE e.slug = $1`, slug)
}

// Update writes every editable column. Slug, creator and creation time never change.
func (r *EventsRepo) Update(ctx context.Context, e event.Event) error {
	var tag pgconn.CommandTag

	err := r.observe("events.update", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `
		UPDATE events
		SET title = $2,
		    description = $3,
		    image = $4,
		    date_start = $5,
		    date_end = $6,
		    address = $7,
		    postal_code = $8,
		    city = $9,
		    country = $10,
		    organizer = $11,
		    max_participants = $12,
		    latitude = $13,
		    longitude = $14,
		    category_id = $15,
		    status = $16,
		    updated_at = $17
		WHERE id = $1`,
			e.ID, e.Title, e.Description, e.Image, e.DateStart, e.DateEnd,
			e.Address, e.PostalCode, e.City, e.Country, e.Organizer,
			e.MaxParticipants, e.Latitude, e.Longitude, e.CategoryID,
			string(e.Status), e.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return mapEventWriteErr(err)
	}

	if tag.RowsAffected() == 0 {
		return event.ErrNotFound
	}
	return nil
}

func (r *EventsRepo) exec(ctx context.Context, op, q string, args ...any) error {
	var tag pgconn.CommandTag

	err := r.observe(op, func() error {
		var err error
		tag, err = r.pool.Exec(ctx, q, args...)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return event.ErrNotFound
	}
	return nil
}

func (r *EventsRepo) SetStatus(ctx context.Context, id string, status event.Status, now time.Time) error {
	return r.exec(ctx, "events.set_status",
		`UPDATE events SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), now.UTC())
}

func (r *EventsRepo) SetCoordinates(ctx context.Context, id string, lat, lng float64, now time.Time) error {
	return r.exec(ctx, "events.set_coordinates",
		`UPDATE events SET latitude = $2, longitude = $3, updated_at = $4 WHERE id = $1`, id, lat, lng, now.UTC())
}

// Delete removes the event; its registrations go with it through the foreign key.
func (r *EventsRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, "events.delete", `DELETE FROM events WHERE id = $1`, id)
}

func (r *EventsRepo) FindAllSorted(ctx context.Context, key event.SortKey) ([]event.Event, error) {
	order := ` ORDER BY e.date_start ASC, e.id ASC`
	if key == event.SortByTitle {
		order = ` ORDER BY e.title ASC, e.id ASC`
	}
	return r.queryEvents(ctx, "events.find_all_sorted", eventSelect+order)
}

// Search matches title or description, case-insensitively.
func (r *EventsRepo) Search(ctx context.Context, term string) ([]event.Event, error) {
	return r.queryEvents(ctx, "events.search", eventSelect+`
		WHERE e.title ILIKE $1 OR e.description ILIKE $1
		ORDER BY e.date_start ASC, e.id ASC`, likePattern(term))
}

// FindByCategory matches the category name or slug exactly.
func (r *EventsRepo) FindByCategory(ctx context.Context, nameOrSlug string) ([]event.Event, error) {
	return r.queryEvents(ctx, "events.find_by_category", eventSelect+`
		WHERE c.name = $1 OR c.slug = $1
		ORDER BY e.date_start ASC, e.id ASC`, nameOrSlug)
}

// FindAllCategories lists names of categories that have at least one event.
func (r *EventsRepo) FindAllCategories(ctx context.Context) ([]string, error) {
	var rows pgx.Rows
	op := "events.find_all_categories"

	err := r.observe(op, func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, `
		SELECT DISTINCT c.name
		FROM categories c
		JOIN events e ON e.category_id = c.id
		ORDER BY c.name ASC`)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var n string
		if err = rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}

	return names, rows.Err()
}

func (r *EventsRepo) ListActive(ctx context.Context) ([]event.Event, error) {
	return r.queryEvents(ctx, "events.list_active", eventSelect+`
		WHERE e.status = 'active'
		ORDER BY e.date_start ASC, e.id ASC`)
}

func (r *EventsRepo) ListMissingCoordinates(ctx context.Context, limit int) ([]event.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryEvents(ctx, "events.list_missing_coordinates", eventSelect+`
		WHERE e.latitude IS NULL OR e.longitude IS NULL
		ORDER BY e.created_at ASC, e.id ASC
		LIMIT $1`, limit)
}

func (r *EventsRepo) ListByCreatedDesc(ctx context.Context) ([]event.Event, error) {
	return r.queryEvents(ctx, "events.list_by_created_desc", eventSelect+`
		ORDER BY e.created_at DESC, e.id DESC`)
}
