package geocoding

import (
	"context"
	"errors"
	"time"

	"github.com/crosslove/eventhub/internal/breaker"
	"github.com/crosslove/eventhub/internal/observability"
)

type ProtectedGeocoder struct {
	inner   Geocoder
	timeout time.Duration
	breaker *breaker.Breaker
	prom    *observability.Prom
}

func NewProtectedGeocoder(inner Geocoder, timeout time.Duration, cfg breaker.Config, prom *observability.Prom) *ProtectedGeocoder {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ProtectedGeocoder{inner: inner, timeout: timeout, breaker: breaker.New(cfg), prom: prom}
}

func (g *ProtectedGeocoder) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	var coords *Coordinates

	err := g.breaker.Do(func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		var err error
		coords, err = g.inner.Geocode(callCtx, address)
		return err
	})
	if errors.Is(err, breaker.ErrOpen) {
		g.prom.ObserveGeocode("upstream", "open")
	}

	return coords, err
}
