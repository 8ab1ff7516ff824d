package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/crosslove/eventhub/internal/domain/job"
	"github.com/crosslove/eventhub/internal/domain/registration"
	"github.com/crosslove/eventhub/internal/domain/validation"
	"github.com/crosslove/eventhub/internal/jobs"
	"github.com/crosslove/eventhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RegistrationsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
	jobs *JobsRepo
}

func NewRegistrationsRepo(pool *pgxpool.Pool, prom *observability.Prom, jobsRepo *JobsRepo) *RegistrationsRepo {
	return &RegistrationsRepo{
		pool: pool,
		prom: prom,
		jobs: jobsRepo,
	}
}

func (repo *RegistrationsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

const registrationColumns = `
	r.id, r.user_id, r.event_id, r.registered_at, r.status, r.whatsapp_number,
	r.latitude, r.longitude, r.location_updated_at`

func registrationDest(r *registration.Registration, status *string) []any {
	return []any{
		&r.ID, &r.UserID, &r.EventID, &r.RegisteredAt, status, &r.WhatsappNumber,
		&r.Latitude, &r.Longitude, &r.LocationUpdatedAt,
	}
}

func scanRegistration(row pgx.Row) (registration.Registration, error) {
	var r registration.Registration
	var status string

	if err := row.Scan(registrationDest(&r, &status)...); err != nil {
		return registration.Registration{}, err
	}

	r.Status = registration.Status(status)
	return r, nil
}

// lockEvent takes the row lock that serialises seat allocation, then reads the event with
// a fresh snapshot so the participant count includes every committed registration.
func (repo *RegistrationsRepo) lockEvent(ctx context.Context, tx pgx.Tx, op, eventID string) (event.Event, error) {
	var ev event.Event

	err := repo.observe(op, func() error {
		var id string
		if err := tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&id); err != nil {
			return err
		}

		var err error
		ev, err = scanEvent(tx.QueryRow(ctx, eventSelect+` WHERE e.id = $1`, eventID))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return event.Event{}, event.ErrNotFound
	}

	return ev, err
}

// Register allocates a seat in one transaction: lock the event, count live seats, check
// for an existing row, insert or reactivate, then enqueue the confirmation job.
func (repo *RegistrationsRepo) Register(ctx context.Context, userID, eventID, whatsapp string, now time.Time) (reg registration.Registration, err error) {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ev, err := repo.lockEvent(ctx, tx, "registrations.register.lock_event", eventID)
	if err != nil {
		return
	}

	var existing *registration.Registration

	err = repo.observe("registrations.register.existing", func() error {
		found, scanErr := scanRegistration(tx.QueryRow(ctx, `
			SELECT `+registrationColumns+`
			FROM registrations r
			WHERE r.user_id = $1 AND r.event_id = $2
			FOR UPDATE`, userID, eventID))
		if scanErr != nil {
			return scanErr
		}
		existing = &found
		return nil
	})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return
	}

	reg, reactivated, err := registration.Admit(ev, existing, userID, whatsapp, now)
	if err != nil {
		return
	}

	if reactivated {
		err = repo.observe("registrations.register.reactivate", func() error {
			_, e := tx.Exec(ctx, `
			UPDATE registrations
			SET status = $2, registered_at = $3, whatsapp_number = $4
			WHERE id = $1`, reg.ID, string(reg.Status), reg.RegisteredAt, reg.WhatsappNumber)
			return e
		})
	} else {
		err = repo.observe("registrations.register.insert", func() error {
			_, e := tx.Exec(ctx, `
			INSERT INTO registrations (id, user_id, event_id, registered_at, status, whatsapp_number)
			VALUES ($1, $2, $3, $4, $5, $6)`,
				reg.ID, reg.UserID, reg.EventID, reg.RegisteredAt, string(reg.Status), reg.WhatsappNumber)
			return e
		})
	}
	if err != nil {
		if isUnique(err, "registrations_user_event_uniq") {
			err = registration.ErrAlreadyRegistered
		}
		return
	}

	if repo.jobs != nil {
		_, err = repo.jobs.CreateTx(ctx, tx, job.CreateRequest{
			Type: jobs.JobRegistrationConfirmation,
			Payload: jobs.RegistrationConfirmationPayload{
				RegistrationID: reg.ID,
				UserID:         reg.UserID,
				EventID:        reg.EventID,
			},
			// a reactivated row gets a fresh confirmation
			IdempotencyKey: "registration:confirm:" + reg.ID + ":" + strconv.FormatInt(reg.RegisteredAt.Unix(), 10),
		})
		if err != nil {
			return
		}
	}

	err = tx.Commit(ctx)
	return
}

// Cancel flips the caller's own registration to cancelled while the event is upcoming.
func (repo *RegistrationsRepo) Cancel(ctx context.Context, registrationID, actorID string, now time.Time) (reg registration.Registration, err error) {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = repo.observe("registrations.cancel.load", func() error {
		var scanErr error
		reg, scanErr = scanRegistration(tx.QueryRow(ctx, `
			SELECT `+registrationColumns+`
			FROM registrations r
			WHERE r.id = $1
			FOR UPDATE`, registrationID))
		return scanErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = registration.ErrNotFound
		}
		return
	}

	if reg.UserID != actorID {
		err = registration.ErrForbidden
		return
	}

	ev, err := repo.lockEvent(ctx, tx, "registrations.cancel.lock_event", reg.EventID)
	if err != nil {
		return
	}

	if err = registration.CheckCancel(reg, ev, now); err != nil {
		return
	}

	reg.Cancel()

	err = repo.observe("registrations.cancel.update", func() error {
		_, e := tx.Exec(ctx, `UPDATE registrations SET status = $2 WHERE id = $1`, reg.ID, string(reg.Status))
		return e
	})
	if err != nil {
		return
	}

	err = tx.Commit(ctx)
	return
}

// AdminDelete hard-removes a registration regardless of the event dates.
func (repo *RegistrationsRepo) AdminDelete(ctx context.Context, eventID, registrationID string) (err error) {
	var tag pgconn.CommandTag

	err = repo.observe("registrations.admin_delete", func() error {
		var e error
		tag, e = repo.pool.Exec(ctx, `DELETE FROM registrations WHERE id = $1 AND event_id = $2`, registrationID, eventID)
		return e
	})
	if err != nil {
		return
	}

	if tag.RowsAffected() == 0 {
		err = registration.ErrNotFound
	}
	return
}

func (repo *RegistrationsRepo) GetByID(ctx context.Context, registrationID string) (registration.Registration, error) {
	var reg registration.Registration

	err := repo.observe("registrations.get_by_id", func() error {
		var scanErr error
		reg, scanErr = scanRegistration(repo.pool.QueryRow(ctx, `
			SELECT `+registrationColumns+`
			FROM registrations r
			WHERE r.id = $1`, registrationID))
		return scanErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registration.Registration{}, registration.ErrNotFound
		}
		return registration.Registration{}, err
	}

	return reg, nil
}

func (repo *RegistrationsRepo) listParticipants(ctx context.Context, op, extra string, eventID string) (out []registration.Participant, err error) {
	var rows pgx.Rows

	err = repo.observe(op, func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, `
		SELECT `+registrationColumns+`, u.first_name, u.last_name, u.email
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1`+extra+`
		ORDER BY r.registered_at ASC, r.id ASC`, eventID)
		return qerr
	})
	if err != nil {
		return
	}
	defer rows.Close()

	out = make([]registration.Participant, 0)
	for rows.Next() {
		var p registration.Participant
		var status string

		dest := append(registrationDest(&p.Registration, &status), &p.FirstName, &p.LastName, &p.Email)
		if err = rows.Scan(dest...); err != nil {
			return
		}

		p.Status = registration.Status(status)
		out = append(out, p)
	}

	if err = rows.Err(); err != nil {
		if repo.prom != nil {
			repo.prom.DbErrorsTotal.WithLabelValues(op, "rows_err").Inc()
		}
		return
	}

	// an empty list for an unknown event is a 404, not an empty roster
	if len(out) == 0 {
		var dummy string

		err = repo.observe(op+".check_event_exists", func() error {
			return repo.pool.QueryRow(ctx, `SELECT id FROM events WHERE id = $1`, eventID).Scan(&dummy)
		})
		if errors.Is(err, pgx.ErrNoRows) {
			err = event.ErrNotFound
		}
	}

	return
}

func (repo *RegistrationsRepo) ListByEvent(ctx context.Context, eventID string) ([]registration.Participant, error) {
	return repo.listParticipants(ctx, "registrations.list_by_event", "", eventID)
}

// ListLocations returns the participants that shared a position.
func (repo *RegistrationsRepo) ListLocations(ctx context.Context, eventID string) ([]registration.Participant, error) {
	return repo.listParticipants(ctx, "registrations.list_locations",
		` AND r.latitude IS NOT NULL AND r.longitude IS NOT NULL`, eventID)
}

// ListByUser returns the user's registrations, newest first, with the event they refer to.
func (repo *RegistrationsRepo) ListByUser(ctx context.Context, userID string, now time.Time) (out []registration.Booking, err error) {
	var rows pgx.Rows
	op := "registrations.list_by_user"

	err = repo.observe(op, func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, `
		SELECT `+registrationColumns+`, e.title, e.slug, e.date_start, e.date_end, e.city
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1
		ORDER BY r.registered_at DESC, r.id DESC`, userID)
		return qerr
	})
	if err != nil {
		return
	}
	defer rows.Close()

	out = make([]registration.Booking, 0)
	for rows.Next() {
		var b registration.Booking
		var status string

		dest := append(registrationDest(&b.Registration, &status),
			&b.EventTitle, &b.EventSlug, &b.EventDateStart, &b.EventDateEnd, &b.EventCity)
		if err = rows.Scan(dest...); err != nil {
			return
		}

		b.Status = registration.Status(status)
		b.CanCancel = b.IsActive() && b.EventDateStart.After(now)
		out = append(out, b)
	}

	err = rows.Err()
	return
}

// UpdateLocation lets the owner share a position and contact number.
func (repo *RegistrationsRepo) UpdateLocation(ctx context.Context, registrationID, actorID string, req registration.UpdateLocationRequest, now time.Time) (reg registration.Registration, err error) {
	reg, err = repo.GetByID(ctx, registrationID)
	if err != nil {
		return
	}

	if reg.UserID != actorID {
		err = registration.ErrForbidden
		return
	}

	if req.Latitude == nil || req.Longitude == nil {
		err = validation.New("latitude", "required", "is required")
		return
	}

	if err = reg.ShareLocation(*req.Latitude, *req.Longitude, req.WhatsappNumber, now); err != nil {
		return
	}

	var tag pgconn.CommandTag
	err = repo.observe("registrations.update_location", func() error {
		var e error
		tag, e = repo.pool.Exec(ctx, `
		UPDATE registrations
		SET latitude = $2, longitude = $3, whatsapp_number = $4, location_updated_at = $5
		WHERE id = $1`, reg.ID, reg.Latitude, reg.Longitude, reg.WhatsappNumber, reg.LocationUpdatedAt)
		return e
	})
	if err != nil {
		return
	}

	if tag.RowsAffected() == 0 {
		err = registration.ErrNotFound
	}
	return
}
