package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/crosslove/eventhub/internal/domain/category"
	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/crosslove/eventhub/internal/geocoding"
	"github.com/crosslove/eventhub/internal/http/handlers"
	"github.com/crosslove/eventhub/internal/jobs"
	"github.com/crosslove/eventhub/internal/repo/memory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdminRouter(s *memory.Store, g geocoding.Geocoder) *gin.Engine {
	h := handlers.NewAdminHandler(handlers.AdminDeps{
		Events:       s.Events(),
		Participants: s.Registrations(),
		Jobs:         s.Jobs(),
		Geocoder:     g,
	})
	c := handlers.NewCategoriesHandler(s.Categories(), nil)

	r := gin.New()
	r.Use(as("admin-1", "ROLE_ADMIN"))
	r.GET("/admin/dashboard", h.Dashboard)
	r.GET("/admin/events", h.ListEvents)
	r.POST("/admin/events", h.CreateEvent)
	r.PUT("/admin/events/:id", h.UpdateEvent)
	r.DELETE("/admin/events/:id", h.DeleteEvent)
	r.POST("/admin/events/:id/cancel", h.CancelEvent)
	r.GET("/admin/events/:id/participants", h.Participants)
	r.DELETE("/admin/events/:id/registrations/:registrationId", h.DeleteRegistration)
	r.GET("/categories", c.List)
	r.POST("/admin/categories", c.Create)
	r.PUT("/admin/categories/:id", c.Update)
	r.DELETE("/admin/categories/:id", c.Delete)
	return r
}

func eventBody(title, city string, start, end time.Time, extra string) string {
	return fmt.Sprintf(`{
		"title": %q,
		"description": "Distribution de repas chauds et de couvertures.",
		"dateStart": %q,
		"dateEnd": %q,
		"address": "1 place Kléber",
		"postalCode": "67000",
		"city": %q,
		"country": "France",
		"organizer": "CrossLove"%s
	}`, title, start.Format(time.RFC3339), end.Format(time.RFC3339), city, extra)
}

func TestCreateEvent_GeocodesAddress(t *testing.T) {
	s := memory.NewStore()
	g := &fakeGeocoder{coords: &geocoding.Coordinates{Lat: 48.58, Lng: 7.75}}
	r := setupAdminRouter(s, g)

	start := time.Now().Add(24 * time.Hour)
	w := do(t, r, http.MethodPost, "/admin/events", eventBody("Mon Événement Humanitaire", "Strasbourg", start, start.Add(3*time.Hour), `, "maxParticipants": 30`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	view := decode[handlers.EventView](t, w)
	assert.Equal(t, "mon-evenement-humanitaire-"+view.ID, view.Slug)
	assert.Equal(t, "admin-1", view.CreatedBy)
	require.NotNil(t, view.Latitude)
	assert.InDelta(t, 48.58, *view.Latitude, 1e-9)
	assert.Equal(t, []string{"1 place Kléber, 67000 Strasbourg, France"}, g.calls)
	assert.Empty(t, s.Jobs().List())

	stored, err := s.Events().GetByID(context.Background(), view.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasCoordinates())
}

func TestCreateEvent_GeocoderDownStillSaves(t *testing.T) {
	s := memory.NewStore()
	r := setupAdminRouter(s, &fakeGeocoder{err: errors.New("nominatim status 503")})

	start := time.Now().Add(24 * time.Hour)
	w := do(t, r, http.MethodPost, "/admin/events", eventBody("Collecte de vêtements", "Strasbourg", start, start.Add(time.Hour), ""))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	view := decode[handlers.EventView](t, w)
	assert.Nil(t, view.Latitude)

	queued := s.Jobs().List()
	require.Len(t, queued, 1)
	assert.Equal(t, jobs.JobGeocodeEvent, queued[0].Type)
}

func TestCreateEvent_NoGeocoderNoJob(t *testing.T) {
	s := memory.NewStore()
	r := setupAdminRouter(s, nil)

	start := time.Now().Add(24 * time.Hour)
	w := do(t, r, http.MethodPost, "/admin/events", eventBody("Collecte de vêtements", "Strasbourg", start, start.Add(time.Hour), ""))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Empty(t, s.Jobs().List())
}

func TestCreateEvent_Validation(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)

	tests := []struct {
		name      string
		body      string
		wantField string
		wantRule  string
	}{
		{
			name:      "end_before_start",
			body:      eventBody("Collecte de vêtements", "Strasbourg", start, start.Add(-time.Hour), ""),
			wantField: "dateEnd",
			wantRule:  "gtfield",
		},
		{
			name:      "short_title",
			body:      eventBody("Go", "Strasbourg", start, start.Add(time.Hour), ""),
			wantField: "title",
			wantRule:  "min",
		},
		{
			name:      "short_city",
			body:      eventBody("Collecte de vêtements", "S", start, start.Add(time.Hour), ""),
			wantField: "city",
			wantRule:  "min",
		},
		{
			name:      "unknown_category_format",
			body:      eventBody("Collecte de vêtements", "Strasbourg", start, start.Add(time.Hour), `, "categoryId": "food"`),
			wantField: "categoryId",
			wantRule:  "uuid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupAdminRouter(memory.NewStore(), nil)

			w := do(t, r, http.MethodPost, "/admin/events", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			resp := decode[apiError](t, w)
			assert.Equal(t, "invalid_request", resp.Error.Code)

			rules := map[string]string{}
			for _, f := range resp.Error.Details.Fields {
				rules[f.Field] = f.Rule
			}
			assert.Equal(t, tt.wantRule, rules[tt.wantField], rules)
		})
	}
}

func TestCreateEvent_PostalCodeDigits(t *testing.T) {
	r := setupAdminRouter(memory.NewStore(), nil)
	start := time.Now().Add(24 * time.Hour)

	body := eventBody("Collecte de vêtements", "Strasbourg", start, start.Add(time.Hour), "")
	body = strings.Replace(body, `"67000"`, `"67A00"`, 1)

	w := do(t, r, http.MethodPost, "/admin/events", body)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	fields := decode[apiError](t, w).Error.Details.Fields
	require.Len(t, fields, 1)
	assert.Equal(t, "postalCode", fields[0].Field)
	assert.Equal(t, "digits", fields[0].Rule)
}

func TestCreateEvent_UnknownCategory(t *testing.T) {
	r := setupAdminRouter(memory.NewStore(), nil)
	start := time.Now().Add(24 * time.Hour)

	w := do(t, r, http.MethodPost, "/admin/events", eventBody("Collecte de vêtements", "Strasbourg", start, start.Add(time.Hour), `, "categoryId": "`+uuid.NewString()+`"`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unknown_category", errCode(t, w))
}

func TestUpdateEvent_AddressChangeRegeocodes(t *testing.T) {
	s := memory.NewStore()
	start := time.Now().Add(24 * time.Hour)

	e := newEvent("Collecte de vêtements", start, nil)
	e.SetCoordinates(1, 1)
	seed(t, s, e)

	g := &fakeGeocoder{coords: &geocoding.Coordinates{Lat: 48.8566, Lng: 2.3522}}
	r := setupAdminRouter(s, g)

	// same address: coordinates stay, no lookup
	w := do(t, r, http.MethodPut, "/admin/events/"+e.ID, eventBody("Collecte de vêtements chauds", "Strasbourg", start, start.Add(time.Hour), ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, g.calls)

	view := decode[handlers.EventView](t, w)
	assert.Equal(t, e.Slug, view.Slug, "slug is stable across renames")
	assert.InDelta(t, 1.0, *view.Latitude, 1e-9)

	w = do(t, r, http.MethodPut, "/admin/events/"+e.ID, eventBody("Collecte de vêtements chauds", "Paris", start, start.Add(time.Hour), ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, g.calls, 1)

	stored, err := s.Events().GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris", stored.City)
	assert.InDelta(t, 48.8566, *stored.Latitude, 1e-9)
	require.NotNil(t, stored.UpdatedAt)
}

func TestUpdateEvent_NotFound(t *testing.T) {
	r := setupAdminRouter(memory.NewStore(), nil)
	start := time.Now().Add(24 * time.Hour)

	w := do(t, r, http.MethodPut, "/admin/events/"+uuid.NewString(), eventBody("Collecte de vêtements", "Strasbourg", start, start.Add(time.Hour), ""))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelEvent(t *testing.T) {
	s := memory.NewStore()
	e := seed(t, s, newEvent("Collecte de vêtements", time.Now().Add(24*time.Hour), nil))
	r := setupAdminRouter(s, nil)

	w := do(t, r, http.MethodPost, "/admin/events/"+e.ID+"/cancel", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	view := decode[handlers.EventView](t, w)
	assert.Equal(t, event.ComputedCancelled, view.ComputedStatus)
	assert.False(t, view.CanRegister)

	w = do(t, r, http.MethodPost, "/admin/events/"+e.ID+"/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	_, err := s.Registrations().Register(context.Background(), "u1", e.ID, "", time.Now())
	assert.Error(t, err, "cancelled events refuse registrations")
}

func TestDeleteEvent(t *testing.T) {
	s := memory.NewStore()
	e := seed(t, s, newEvent("Collecte de vêtements", time.Now().Add(24*time.Hour), nil))
	r := setupAdminRouter(s, nil)

	w := do(t, r, http.MethodDelete, "/admin/events/"+e.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodDelete, "/admin/events/"+e.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParticipantsAndAdminDelete(t *testing.T) {
	s := memory.NewStore()
	now := time.Now()
	e := seed(t, s, newEvent("Collecte de vêtements", now.Add(24*time.Hour), intPtr(3)))

	keep, err := s.Registrations().Register(context.Background(), "u1", e.ID, "", now)
	require.NoError(t, err)
	drop, err := s.Registrations().Register(context.Background(), "u2", e.ID, "", now)
	require.NoError(t, err)
	_, err = s.Registrations().Cancel(context.Background(), keep.ID, "u1", now)
	require.NoError(t, err)

	r := setupAdminRouter(s, nil)

	w := do(t, r, http.MethodGet, "/admin/events/"+e.ID+"/participants", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Count       int `json:"count"`
		ActiveCount int `json:"activeCount"`
	}](t, w)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 1, resp.ActiveCount)

	w = do(t, r, http.MethodDelete, "/admin/events/"+e.ID+"/registrations/"+drop.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodDelete, "/admin/events/"+e.ID+"/registrations/"+drop.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/admin/events/"+uuid.NewString()+"/participants", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboard(t *testing.T) {
	s := memory.NewStore()
	now := time.Now()
	capped := seed(t, s, newEvent("Repas", now.Add(24*time.Hour), intPtr(4)))
	seed(t, s, newEvent("Ancien repas", now.Add(-72*time.Hour), nil))

	_, err := s.Registrations().Register(context.Background(), "u1", capped.ID, "", now)
	require.NoError(t, err)

	w := do(t, setupAdminRouter(s, nil), http.MethodGet, "/admin/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Stats        event.DashboardStats `json:"stats"`
		RecentEvents []handlers.EventView `json:"recentEvents"`
	}](t, w)

	assert.Equal(t, 2, resp.Stats.TotalEvents)
	assert.Equal(t, 1, resp.Stats.UpcomingEvents)
	assert.Equal(t, 1, resp.Stats.TotalRegistrations)
	assert.Equal(t, 25, resp.Stats.FillRate)
	assert.Len(t, resp.RecentEvents, 2)
}

func TestCategories_CRUD(t *testing.T) {
	s := memory.NewStore()
	r := setupAdminRouter(s, nil)

	w := do(t, r, http.MethodPost, "/admin/categories", `{"name":"Aide Alimentaire"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[category.Category](t, w)
	assert.Equal(t, "aide-alimentaire", created.Slug)

	w = do(t, r, http.MethodPost, "/admin/categories", `{"name":"Aide Alimentaire"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "name_taken", errCode(t, w))

	w = do(t, r, http.MethodPut, "/admin/categories/"+created.ID, `{"name":"Repas"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	renamed := decode[category.Category](t, w)
	assert.Equal(t, "Repas", renamed.Name)
	assert.Equal(t, "aide-alimentaire", renamed.Slug)

	e := newEvent("Collecte de vêtements", time.Now().Add(time.Hour), nil)
	e.CategoryID = &created.ID
	seed(t, s, e)

	w = do(t, r, http.MethodDelete, "/admin/categories/"+created.ID, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "category_in_use", errCode(t, w))

	w = do(t, r, http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []category.Category `json:"items"`
	}](t, w)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Items[0].EventCount)

	w = do(t, r, http.MethodPost, "/admin/categories", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
