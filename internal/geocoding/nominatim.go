package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/crosslove/eventhub/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// NominatimClient queries an OpenStreetMap Nominatim search endpoint.
type NominatimClient struct {
	cfg  NominatimConfig
	http *http.Client
	prom *observability.Prom
}

func NewNominatimClient(cfg NominatimConfig, prom *observability.Prom) *NominatimClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	return &NominatimClient{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		prom: prom,
	}
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (c *NominatimClient) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	start := time.Now()
	coords, err := c.lookup(ctx, address)

	if c.prom != nil {
		c.prom.GeocodeDuration.WithLabelValues("nominatim").Observe(time.Since(start).Seconds())
	}
	switch {
	case err != nil:
		c.prom.ObserveGeocode("upstream", "error")
	case coords == nil:
		c.prom.ObserveGeocode("upstream", "miss")
	default:
		c.prom.ObserveGeocode("upstream", "hit")
	}

	return coords, err
}

func (c *NominatimClient) lookup(ctx context.Context, address string) (*Coordinates, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("nominatim status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&places); err != nil {
		return nil, fmt.Errorf("nominatim decode: %w", err)
	}
	if len(places) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim lat: %w", err)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim lon: %w", err)
	}

	return &Coordinates{Lat: lat, Lng: lng}, nil
}
