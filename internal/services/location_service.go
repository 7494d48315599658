package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/fleet-locator/internal/models"
	"github.com/benmeehan/fleet-locator/internal/observability"
	"github.com/benmeehan/fleet-locator/internal/store"
	"github.com/benmeehan/fleet-locator/internal/utils"
	"github.com/benmeehan/fleet-locator/pkg/location"
	"github.com/benmeehan/fleet-locator/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// LocationSink receives every resolved location, e.g. a time-series writer.
type LocationSink interface {
	WriteLocation(r location.Resolved, at time.Time) bool
}

// LocationService periodically resolves the location of every known client
// and publishes it to the MQTT broker.
type LocationService struct {
	// Configuration fields
	topic    string
	interval time.Duration
	qos      int
	retained bool

	// Dependencies
	mqttClient mqtt.MQTTClient
	store      *store.Store
	resolver   *location.Resolver
	sink       LocationSink
	metrics    *observability.ResolverMetrics
	logger     zerolog.Logger
	workerPool *utils.WorkerPool
	now        func() time.Time

	// Internal state management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	stopped bool
}

// NewLocationService creates a new LocationService instance. sink and
// metrics may be nil.
func NewLocationService(topic string, interval time.Duration, qos int, retained bool, workers int,
	mqttClient mqtt.MQTTClient, st *store.Store, resolver *location.Resolver, sink LocationSink,
	metrics *observability.ResolverMetrics, logger zerolog.Logger) *LocationService {
	return &LocationService{
		topic:      topic,
		interval:   interval,
		qos:        qos,
		retained:   retained,
		mqttClient: mqttClient,
		store:      st,
		resolver:   resolver,
		sink:       sink,
		metrics:    metrics,
		logger:     logger,
		workerPool: utils.NewWorkerPool(workers),
		now:        time.Now,
	}
}

// Start initiates the LocationService, periodically publishing resolved locations.
func (l *LocationService) Start() error {
	if l.stopped {
		return errors.New("location service cannot be restarted")
	}
	if l.running {
		l.logger.Warn().Msg("LocationService is already running")
		return errors.New("location service is already running")
	}

	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.running = true

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := l.PublishAll(l.ctx); err != nil {
					l.logger.Error().Err(err).Msg("Failed to publish client locations")
				}
			case <-l.ctx.Done():
				l.logger.Info().Msg("LocationService is stopping")
				return
			}
		}
	}()

	l.logger.Info().
		Str("topic", l.topic).
		Dur("interval", l.interval).
		Int("qos", l.qos).
		Msg("LocationService started")
	return nil
}

// Stop gracefully stops the LocationService, ensuring all goroutines are terminated.
// The worker pool is released, so a stopped service cannot be restarted.
func (l *LocationService) Stop() error {
	if !l.running {
		l.logger.Warn().Msg("LocationService is not running")
		return errors.New("location service is not running")
	}

	l.cancel()
	l.wg.Wait()
	l.workerPool.Shutdown()

	l.running = false
	l.stopped = true
	l.logger.Info().Msg("LocationService stopped")
	return nil
}

// Resolve returns the current location of one client.
func (l *LocationService) Resolve(clientID string) (location.Resolved, bool) {
	client, ok := l.store.Client(clientID)
	if !ok {
		return location.Resolved{}, false
	}
	return l.resolver.Resolve(client, l.store.DevicesFor(clientID)), true
}

// ResolveAll resolves every known client on the worker pool. Results are
// ordered by client id.
func (l *LocationService) ResolveAll(ctx context.Context) ([]location.Resolved, error) {
	ids := l.store.ClientIDs()
	results := make([]location.Resolved, len(ids))
	var wg sync.WaitGroup

	for i, id := range ids {
		i, id := i, id
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		err := l.workerPool.Submit(func() {
			defer wg.Done()
			r, ok := l.Resolve(id)
			if !ok {
				r = location.Resolved{ClientID: id, Source: location.Unknown}
			}
			results[i] = r
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}

	wg.Wait()
	return results, nil
}

// PublishAll resolves every client and publishes each result. Failures to
// publish one client do not stop the others.
func (l *LocationService) PublishAll(ctx context.Context) error {
	results, err := l.ResolveAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve client locations: %w", err)
	}

	var errs []error
	for _, r := range results {
		if err := l.PublishLocation(r); err != nil {
			errs = append(errs, err)
		}
	}
	l.logger.Debug().Int("clients", len(results)).Int("failed", len(errs)).Msg("Location pass finished")
	return errors.Join(errs...)
}

// PublishLocation publishes r to <topic>/<client_id> and forwards it to the sink.
func (l *LocationService) PublishLocation(r location.Resolved) error {
	now := l.now().UTC()
	l.metrics.ObserveResolution(r)
	if l.sink != nil {
		l.sink.WriteLocation(r, now)
	}

	message := models.NewLocationMessage(uuid.NewString(), r, now)
	payload, err := json.Marshal(message)
	if err != nil {
		l.logger.Error().Err(err).Msg("Failed to serialize location message")
		return err
	}

	topic := l.topic + "/" + r.ClientID
	token := l.mqttClient.Publish(topic, byte(l.qos), l.retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing location for %s", r.ClientID)
	}
	if err := token.Error(); err != nil {
		l.logger.Error().
			Err(err).
			Str("topic", topic).
			Msg("Failed to publish location message to MQTT")
		return err
	}

	l.logger.Info().
		Str("client_id", r.ClientID).
		Str("source", message.Source).
		Str("topic", topic).
		Msg("Location published successfully")
	return nil
}
