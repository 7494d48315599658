package service_registry

import (
	"errors"
	"fmt"

	"github.com/benmeehan/fleet-locator/internal/observability"
	"github.com/benmeehan/fleet-locator/internal/services"
	"github.com/benmeehan/fleet-locator/internal/store"
	"github.com/benmeehan/fleet-locator/internal/utils"
	"github.com/benmeehan/fleet-locator/pkg/geolocate"
	"github.com/benmeehan/fleet-locator/pkg/gps"
	"github.com/benmeehan/fleet-locator/pkg/location"
	"github.com/benmeehan/fleet-locator/pkg/mqtt"
	"github.com/rs/zerolog"
)

// Service is the interface for all plug-in services
type Service interface {
	Start() error
	Stop() error
}

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services    map[string]Service // Stores registered services
	serviceKeys []string           // Maintains order of service registration
	mqttClient  mqtt.MQTTClient
	store       *store.Store
	resolver    *location.Resolver
	sink        services.LocationSink
	metrics     *observability.ResolverMetrics
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
// sink and metrics may be nil.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, st *store.Store, resolver *location.Resolver,
	sink services.LocationSink, metrics *observability.ResolverMetrics, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]Service),
		mqttClient: mqttClient,
		store:      st,
		resolver:   resolver,
		sink:       sink,
		metrics:    metrics,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Service returns the registered service called name.
func (sr *ServiceRegistry) Service(name string) (Service, bool) {
	svc, ok := sr.services[name]
	return svc, ok
}

// Names returns the registered service names in registration order.
func (sr *ServiceRegistry) Names() []string {
	return append([]string(nil), sr.serviceKeys...)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
// Readings are ingested before anything resolves them, so the order matters.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (Service, error)
	}{
		{
			name:    "ingest",
			enabled: config.Services.Ingest.Enabled,
			constructor: func() (Service, error) {
				return services.NewIngestService(
					config.Services.Ingest.TelemetryTopic,
					config.Services.Ingest.ClientTopic,
					config.Services.Ingest.QOS,
					sr.mqttClient,
					sr.store,
					sr.metrics,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "gps",
			enabled: config.Services.GPS.Enabled,
			constructor: func() (Service, error) {
				return services.NewGPSService(
					config.Services.GPS.ClientID,
					config.Services.GPS.DeviceID,
					config.Services.GPS.Interval,
					gps.NewSerialReader(config.Services.GPS.Port, config.Services.GPS.BaudRate),
					sr.store,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "geolocation",
			enabled: config.Services.Geolocation.Enabled,
			constructor: func() (Service, error) {
				geolocator, err := geolocate.NewClient(config.Services.Geolocation.MapsAPIKey, config.Services.Geolocation.Timeout)
				if err != nil {
					sr.Logger.Error().Err(err).Msg("failed to create Google Geolocation client")
					return nil, err
				}
				return services.NewGeolocationService(
					config.Services.Geolocation.Interval,
					sr.store,
					sr.resolver,
					geolocator,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "location",
			enabled: config.Services.Location.Enabled,
			constructor: func() (Service, error) {
				return services.NewLocationService(
					config.Services.Location.Topic,
					config.Services.Location.Interval,
					config.Services.Location.QOS,
					config.Services.Location.Retained,
					config.Services.Location.Workers,
					sr.mqttClient,
					sr.store,
					sr.resolver,
					sr.sink,
					sr.metrics,
					sr.Logger,
				), nil
			},
		},
	}

	// Register services in the predefined order
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}
