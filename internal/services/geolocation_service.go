package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/fleet-locator/internal/store"
	"github.com/benmeehan/fleet-locator/pkg/geolocate"
	"github.com/benmeehan/fleet-locator/pkg/location"
	"github.com/rs/zerolog"
)

// GeolocationService looks up clients without coordinates of their own
// through the access points their wireless scanners report.
type GeolocationService struct {
	interval time.Duration

	store      *store.Store
	resolver   *location.Resolver
	geolocator geolocate.Geolocator
	logger     zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewGeolocationService creates a new GeolocationService instance.
func NewGeolocationService(interval time.Duration, st *store.Store, resolver *location.Resolver,
	geolocator geolocate.Geolocator, logger zerolog.Logger) *GeolocationService {
	return &GeolocationService{
		interval:   interval,
		store:      st,
		resolver:   resolver,
		geolocator: geolocator,
		logger:     logger,
	}
}

// Start runs a lookup pass immediately and then every interval.
func (g *GeolocationService) Start() error {
	if g.running {
		g.logger.Warn().Msg("GeolocationService is already running")
		return errors.New("geolocation service is already running")
	}

	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.running = true

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()

		g.GeolocateAll(g.ctx)
		for {
			select {
			case <-ticker.C:
				g.GeolocateAll(g.ctx)
			case <-g.ctx.Done():
				g.logger.Info().Msg("GeolocationService is stopping")
				return
			}
		}
	}()

	g.logger.Info().Dur("interval", g.interval).Msg("GeolocationService started")
	return nil
}

// Stop gracefully stops the GeolocationService.
func (g *GeolocationService) Stop() error {
	if !g.running {
		g.logger.Warn().Msg("GeolocationService is not running")
		return errors.New("geolocation service is not running")
	}

	g.cancel()
	g.wg.Wait()

	g.running = false
	g.logger.Info().Msg("GeolocationService stopped")
	return nil
}

// GeolocateAll looks up every client that has no externally-geolocated
// coordinates yet and returns how many were stored.
func (g *GeolocationService) GeolocateAll(ctx context.Context) int {
	stored := 0
	for _, id := range g.store.ClientIDs() {
		if ctx.Err() != nil {
			break
		}
		client, ok := g.store.Client(id)
		if !ok || (client.ExternalGeo != nil && client.ExternalGeo.Valid()) {
			continue
		}

		aps := g.accessPoints(id)
		if len(aps) == 0 {
			continue
		}

		coords, err := g.geolocator.Geolocate(ctx, aps)
		if err != nil {
			if errors.Is(err, geolocate.ErrNoAccessPoints) {
				g.logger.Debug().Str("client_id", id).Msg("Not enough access points to geolocate client")
			} else {
				g.logger.Error().Err(err).Str("client_id", id).Msg("Failed to geolocate client")
			}
			continue
		}

		g.store.SetExternalGeo(id, coords)
		stored++
		g.logger.Info().
			Str("client_id", id).
			Float64("lat", coords.Lat).
			Float64("lng", coords.Lng).
			Msg("Client geolocated from wifi access points")
	}
	return stored
}

// accessPoints collects access points from the wireless scanners of a
// client, deduplicated by BSSID.
func (g *GeolocationService) accessPoints(clientID string) []geolocate.AccessPoint {
	seen := make(map[string]struct{})
	var aps []geolocate.AccessPoint
	for _, d := range g.store.DevicesFor(clientID) {
		if d.Latest == nil || g.resolver.Classify(d.TypeLabel) != location.WirelessScanner {
			continue
		}
		for _, ap := range geolocate.AccessPoints(d.Latest.Data) {
			if _, dup := seen[ap.BSSID]; dup {
				continue
			}
			seen[ap.BSSID] = struct{}{}
			aps = append(aps, ap)
		}
	}
	return aps
}
