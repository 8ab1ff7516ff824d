package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/crosslove/eventhub/internal/domain/job"
	"github.com/crosslove/eventhub/internal/domain/user"
	"github.com/crosslove/eventhub/internal/jobs"
)

type roleStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	UpdateRoles(ctx context.Context, id string, roles user.Roles) error
}

type missingCoordinatesLister interface {
	ListMissingCoordinates(ctx context.Context, limit int) ([]event.Event, error)
}

type jobsCreator interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

// setAdmin grants or revokes the admin role. Existing tokens keep their old roles
// until they expire.
func setAdmin(ctx context.Context, users roleStore, email string, grant bool) (user.User, error) {
	u, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return user.User{}, fmt.Errorf("find %s: %w", email, err)
	}

	if grant {
		u.Roles.Add(user.RoleAdmin)
	} else {
		u.Roles.Remove(user.RoleAdmin)
	}

	if err := users.UpdateRoles(ctx, u.ID, u.Roles); err != nil {
		return user.User{}, fmt.Errorf("update roles: %w", err)
	}
	return u, nil
}

// backfillGeocodes queues one geocode job per event lacking coordinates. The key is
// per day so a rerun the same day does not queue duplicates.
func backfillGeocodes(ctx context.Context, events missingCoordinatesLister, queue jobsCreator, limit int, now time.Time, log *slog.Logger) (int, error) {
	list, err := events.ListMissingCoordinates(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}

	day := now.UTC().Format("2006-01-02")
	queued := 0

	for _, e := range list {
		if e.IsCancelled() {
			continue
		}

		_, err := queue.Create(ctx, job.CreateRequest{
			Type:           jobs.JobGeocodeEvent,
			Payload:        jobs.GeocodeEventPayload{EventID: e.ID},
			IdempotencyKey: "event:geocode:" + e.ID + ":backfill:" + day,
		})
		if err != nil {
			return queued, fmt.Errorf("queue %s: %w", e.ID, err)
		}

		log.InfoContext(ctx, "geocode queued", "event_id", e.ID, "address", e.FullAddress())
		queued++
	}

	return queued, nil
}
