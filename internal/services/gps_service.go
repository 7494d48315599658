package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/fleet-locator/internal/store"
	"github.com/benmeehan/fleet-locator/pkg/gps"
	"github.com/benmeehan/fleet-locator/pkg/location"
	"github.com/rs/zerolog"
)

// gpsTypeLabel is the device type recorded for host receiver readings.
const gpsTypeLabel = "gps"

// FixReader reads one position fix from a receiver.
type FixReader interface {
	ReadFix(ctx context.Context) (location.Payload, error)
}

// GPSService polls a GPS receiver attached to this host and records its
// fixes as readings of a local positioning device.
type GPSService struct {
	clientID string
	deviceID string
	interval time.Duration

	reader FixReader
	store  *store.Store
	logger zerolog.Logger
	now    func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewGPSService creates a new GPSService instance.
func NewGPSService(clientID, deviceID string, interval time.Duration, reader FixReader,
	st *store.Store, logger zerolog.Logger) *GPSService {
	return &GPSService{
		clientID: clientID,
		deviceID: deviceID,
		interval: interval,
		reader:   reader,
		store:    st,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins polling the receiver.
func (g *GPSService) Start() error {
	if g.running {
		g.logger.Warn().Msg("GPSService is already running")
		return errors.New("gps service is already running")
	}

	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.running = true

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := g.Poll(g.ctx); err != nil && !errors.Is(err, context.Canceled) {
					if errors.Is(err, gps.ErrNoFix) {
						g.logger.Debug().Msg("GPS receiver has no fix")
					} else {
						g.logger.Error().Err(err).Msg("Failed to read GPS fix")
					}
				}
			case <-g.ctx.Done():
				g.logger.Info().Msg("GPSService is stopping")
				return
			}
		}
	}()

	g.logger.Info().
		Str("client_id", g.clientID).
		Str("device_id", g.deviceID).
		Dur("interval", g.interval).
		Msg("GPSService started")
	return nil
}

// Stop gracefully stops the GPSService.
func (g *GPSService) Stop() error {
	if !g.running {
		g.logger.Warn().Msg("GPSService is not running")
		return errors.New("gps service is not running")
	}

	g.cancel()
	g.wg.Wait()

	g.running = false
	g.logger.Info().Msg("GPSService stopped")
	return nil
}

// Poll reads one fix and stores it.
func (g *GPSService) Poll(ctx context.Context) error {
	payload, err := g.reader.ReadFix(ctx)
	if err != nil {
		return err
	}

	g.store.UpsertReading(g.deviceID, location.Reading{
		TypeLabel: gpsTypeLabel,
		ClientID:  g.clientID,
		Timestamp: g.now().UTC(),
		Data:      payload,
	})
	g.logger.Debug().Str("device_id", g.deviceID).Msg("GPS fix stored")
	return nil
}
