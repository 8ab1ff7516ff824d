package geocoding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/crosslove/eventhub/internal/observability"
)

const DefaultCacheTTL = 30 * 24 * time.Hour

// JSONStore is satisfied by redisclient.Client.
type JSONStore interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// CachedGeocoder remembers successful lookups. Misses and errors are not stored so a
// corrected address or a recovered provider is picked up on the next call.
type CachedGeocoder struct {
	inner  Geocoder
	store  JSONStore
	ttl    time.Duration
	logger *slog.Logger
	prom   *observability.Prom
}

func NewCachedGeocoder(inner Geocoder, store JSONStore, ttl time.Duration, logger *slog.Logger, prom *observability.Prom) *CachedGeocoder {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedGeocoder{inner: inner, store: store, ttl: ttl, logger: logger, prom: prom}
}

func cacheKey(address string) string {
	sum := sha256.Sum256([]byte(normalize(address)))
	return "geocode:v1:" + hex.EncodeToString(sum[:])
}

func (g *CachedGeocoder) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	key := cacheKey(address)

	var cached Coordinates
	found, err := g.store.GetJSON(ctx, key, &cached)
	if err != nil {
		// a broken cache must not block lookups
		g.logger.WarnContext(ctx, "geocode cache read failed", "err", err)
	} else if found {
		g.prom.ObserveGeocode("cache", "hit")
		return &cached, nil
	}

	coords, err := g.inner.Geocode(ctx, address)
	if err != nil || coords == nil {
		return coords, err
	}

	if err := g.store.SetJSON(ctx, key, coords, g.ttl); err != nil {
		g.logger.WarnContext(ctx, "geocode cache write failed", "err", err)
	}
	return coords, nil
}
