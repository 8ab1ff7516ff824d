package geocoding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/crosslove/eventhub/internal/breaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNominatim_ParsesFirstResult(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`[{"lat":"48.8686","lon":"2.3314","display_name":"Paris"}]`))
	}))
	defer srv.Close()

	c := NewNominatimClient(NominatimConfig{BaseURL: srv.URL, UserAgent: "eventhub-test/1.0"}, nil)

	coords, err := c.Geocode(context.Background(), "10 Rue de la Paix, 75002 Paris, France")
	require.NoError(t, err)
	require.NotNil(t, coords)

	assert.InDelta(t, 48.8686, coords.Lat, 1e-9)
	assert.InDelta(t, 2.3314, coords.Lng, 1e-9)
	assert.Equal(t, "eventhub-test/1.0", gotUA)
	assert.Contains(t, gotQuery, "format=json")
	assert.Contains(t, gotQuery, "limit=1")
	assert.Contains(t, gotQuery, "q=10+Rue+de+la+Paix")
}

func TestNominatim_EmptyResultIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewNominatimClient(NominatimConfig{BaseURL: srv.URL}, nil)

	coords, err := c.Geocode(context.Background(), "nowhere")
	assert.NoError(t, err)
	assert.Nil(t, coords)
}

func TestNominatim_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewNominatimClient(NominatimConfig{BaseURL: srv.URL}, nil)

	_, err := c.Geocode(context.Background(), "Paris")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNominatim_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewNominatimClient(NominatimConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, nil)

	_, err := c.Geocode(context.Background(), "Paris")
	assert.Error(t, err)
}

type stubGeocoder struct {
	mu     sync.Mutex
	calls  int
	coords *Coordinates
	err    error
}

func (s *stubGeocoder) Geocode(_ context.Context, _ string) (*Coordinates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.coords, s.err
}

type mapStore struct {
	m       map[string][]byte
	readErr error
}

func newMapStore() *mapStore { return &mapStore{m: map[string][]byte{}} }

func (s *mapStore) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	if s.readErr != nil {
		return false, s.readErr
	}
	raw, ok := s.m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (s *mapStore) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.m[key] = raw
	return nil
}

func TestCachedGeocoder_HitsCacheOnSecondCall(t *testing.T) {
	inner := &stubGeocoder{coords: &Coordinates{Lat: 48.58, Lng: 7.75}}
	g := NewCachedGeocoder(inner, newMapStore(), 0, quietLogger(), nil)

	first, err := g.Geocode(context.Background(), "Strasbourg, France")
	require.NoError(t, err)
	second, err := g.Geocode(context.Background(), "  strasbourg,   FRANCE ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedGeocoder_MissNotCached(t *testing.T) {
	inner := &stubGeocoder{}
	store := newMapStore()
	g := NewCachedGeocoder(inner, store, time.Hour, quietLogger(), nil)

	_, _ = g.Geocode(context.Background(), "Atlantis")
	_, _ = g.Geocode(context.Background(), "Atlantis")

	assert.Equal(t, 2, inner.calls)
	assert.Empty(t, store.m)
}

func TestCachedGeocoder_BrokenCacheFallsThrough(t *testing.T) {
	inner := &stubGeocoder{coords: &Coordinates{Lat: 1, Lng: 2}}
	store := newMapStore()
	store.readErr = errors.New("redis down")
	g := NewCachedGeocoder(inner, store, time.Hour, quietLogger(), nil)

	coords, err := g.Geocode(context.Background(), "Lyon")
	require.NoError(t, err)
	assert.Equal(t, &Coordinates{Lat: 1, Lng: 2}, coords)
}

func TestProtectedGeocoder_OpensAfterFailures(t *testing.T) {
	inner := &stubGeocoder{err: errors.New("upstream down")}
	g := NewProtectedGeocoder(inner, time.Second, breaker.Config{FailureThreshold: 2, Cooldown: time.Hour}, nil)

	_, _ = g.Geocode(context.Background(), "Paris")
	_, _ = g.Geocode(context.Background(), "Paris")
	_, err := g.Geocode(context.Background(), "Paris")

	assert.ErrorIs(t, err, breaker.ErrOpen)
	assert.Equal(t, 2, inner.calls)
}

func TestSoftGeocode_SwallowsErrors(t *testing.T) {
	inner := &stubGeocoder{err: errors.New("upstream down")}

	assert.Nil(t, SoftGeocode(context.Background(), inner, quietLogger(), "Paris"))
	assert.Nil(t, SoftGeocode(context.Background(), nil, quietLogger(), "Paris"))
	assert.Nil(t, SoftGeocode(context.Background(), inner, quietLogger(), "   "))
	assert.Equal(t, 1, inner.calls)
}

func TestGeocodeCity_JoinsCityAndCountry(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`[{"lat":"45.76","lon":"4.83"}]`))
	}))
	defer srv.Close()

	c := NewNominatimClient(NominatimConfig{BaseURL: srv.URL}, nil)
	coords, err := GeocodeCity(context.Background(), c, "Lyon", "France")

	require.NoError(t, err)
	require.NotNil(t, coords)
	assert.Equal(t, "Lyon, France", got)
}

func TestNew_CachesThroughChain(t *testing.T) {
	var (
		mu   sync.Mutex
		hits int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		_, _ = w.Write([]byte(`[{"lat":"48.58","lon":"7.75"}]`))
	}))
	defer srv.Close()

	g := New(NominatimConfig{BaseURL: srv.URL, Timeout: time.Second}, newMapStore(), quietLogger(), nil)

	for i := 0; i < 3; i++ {
		coords, err := g.Geocode(context.Background(), "1 place Kléber, 67000 Strasbourg, France")
		require.NoError(t, err)
		require.NotNil(t, coords)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits)
}
