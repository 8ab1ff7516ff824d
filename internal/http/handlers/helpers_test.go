package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/crosslove/eventhub/internal/domain/event"
	"github.com/crosslove/eventhub/internal/geocoding"
	"github.com/crosslove/eventhub/internal/http/handlers"
	"github.com/crosslove/eventhub/internal/http/middlewares"
	"github.com/crosslove/eventhub/internal/repo/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
	handlers.RegisterBindingRules()
}

type apiError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
		Details   struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

// as stands in for the auth middleware.
func as(userID string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(middlewares.CtxUserID, userID)
			c.Set(middlewares.CtxRoles, append([]string{"ROLE_USER"}, roles...))
		}
		c.Next()
	}
}

func do(t *testing.T, r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apiError](t, w).Error.Code
}

func intPtr(v int) *int { return &v }

func newEvent(title string, start time.Time, max *int) event.Event {
	return event.NewFromCreateRequest(event.CreateEventRequest{
		Title:           title,
		Description:     "Distribution de repas chauds et de couvertures.",
		DateStart:       start,
		DateEnd:         start.Add(2 * time.Hour),
		Address:         "1 place Kléber",
		PostalCode:      "67000",
		City:            "Strasbourg",
		Country:         "France",
		Organizer:       "CrossLove",
		MaxParticipants: max,
	}, "admin-1", time.Now())
}

func seed(t *testing.T, s *memory.Store, e event.Event) event.Event {
	t.Helper()
	require.NoError(t, s.Events().Create(context.Background(), e))
	return e
}

type fakeGeocoder struct {
	mu     sync.Mutex
	coords *geocoding.Coordinates
	err    error
	calls  []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (*geocoding.Coordinates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, address)
	return f.coords, f.err
}
