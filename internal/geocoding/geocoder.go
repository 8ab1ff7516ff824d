// Package geocoding turns postal addresses into coordinates through an external
// provider. Lookups never fail the caller's operation: SoftGeocode logs and returns nil.
package geocoding

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/crosslove/eventhub/internal/breaker"
	"github.com/crosslove/eventhub/internal/observability"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder returns nil coordinates and a nil error when the address is unknown.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Coordinates, error)
}

// New wires the production chain: Nominatim behind a timeout and circuit breaker, with
// successful lookups cached in store. A nil store disables caching.
func New(cfg NominatimConfig, store JSONStore, logger *slog.Logger, prom *observability.Prom) Geocoder {
	var g Geocoder = NewProtectedGeocoder(NewNominatimClient(cfg, prom), cfg.Timeout, breaker.Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	}, prom)

	if store != nil {
		g = NewCachedGeocoder(g, store, DefaultCacheTTL, logger, prom)
	}
	return g
}

func GeocodeCity(ctx context.Context, g Geocoder, city, country string) (*Coordinates, error) {
	return g.Geocode(ctx, city+", "+country)
}

// SoftGeocode swallows provider errors.
func SoftGeocode(ctx context.Context, g Geocoder, logger *slog.Logger, address string) *Coordinates {
	if g == nil || strings.TrimSpace(address) == "" {
		return nil
	}

	coords, err := g.Geocode(ctx, address)
	if err != nil {
		logger.WarnContext(ctx, "geocode failed", "address", address, "err", err)
		return nil
	}
	if coords == nil {
		logger.InfoContext(ctx, "geocode no result", "address", address)
	}
	return coords
}

func normalize(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
