package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benmeehan/fleet-locator/internal/api"
	"github.com/benmeehan/fleet-locator/internal/models"
	"github.com/benmeehan/fleet-locator/internal/observability"
	"github.com/benmeehan/fleet-locator/internal/service_registry"
	"github.com/benmeehan/fleet-locator/internal/services"
	"github.com/benmeehan/fleet-locator/internal/sink"
	"github.com/benmeehan/fleet-locator/internal/store"
	"github.com/benmeehan/fleet-locator/internal/utils"
	"github.com/benmeehan/fleet-locator/pkg/file"
	"github.com/benmeehan/fleet-locator/pkg/location"
	"github.com/benmeehan/fleet-locator/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	envPath := flag.String("env", ".env", "path to an optional .env file with secrets")
	flag.Parse()

	// Bootstrap logger until the configured one is available
	log := utils.NewLogger("info", "json", os.Stdout)

	if err := utils.LoadEnvFile(*envPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to load environment file")
	}

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = utils.NewLogger(config.Logging.Level, config.Logging.Format, os.Stdout)

	st := store.New()
	if err := loadSnapshot(config.Store.SnapshotFile, fileClient, st); err != nil {
		log.Fatal().Err(err).Str("file", config.Store.SnapshotFile).Msg("Failed to load store snapshot")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewResolverMetrics(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	resolver := location.NewResolver(log.With().Str("component", "resolver").Logger())

	// Generate a unique MQTT Client ID by appending a UUID
	config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
	log.Info().Str("client_id", config.MQTT.ClientID).Msg("Using MQTT Client ID")

	// Initialize the shared MQTT connection
	mqttClient := mqtt.NewMqttService(fileClient)
	if config.MQTT.Broker != "" {
		err = mqttClient.Initialize(mqtt.Options{
			Broker:        config.MQTT.Broker,
			ClientID:      config.MQTT.ClientID,
			Username:      config.MQTT.Username,
			Password:      config.MQTT.Password,
			CACertificate: config.MQTT.CACertificate,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
		}
	}

	var locationSink services.LocationSink
	influx, err := sink.Connect(sink.Config{
		Enabled:       config.InfluxDB.Enabled,
		URL:           config.InfluxDB.URL,
		Token:         config.InfluxDB.Token,
		Org:           config.InfluxDB.Org,
		Bucket:        config.InfluxDB.Bucket,
		BatchSize:     config.InfluxDB.BatchSize,
		FlushInterval: config.InfluxDB.FlushInterval,
	}, log)
	switch {
	case errors.Is(err, sink.ErrDisabled):
		log.Info().Msg("InfluxDB sink disabled")
	case err != nil:
		log.Fatal().Err(err).Msg("Failed to connect to InfluxDB")
	default:
		locationSink = influx
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, st, resolver, locationSink, metrics, log)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	var server *http.Server
	if config.API.Enabled {
		apiServer := api.NewServer(st, resolver, reg, log)
		server = &http.Server{
			Addr:              config.API.ListenAddress,
			Handler:           apiServer.Handler(config.API.AllowedOrigins),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("address", server.Addr).Msg("HTTP API listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP API stopped unexpectedly")
			}
		}()
	}

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down HTTP API")
		}
		cancel()
	}
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Some services failed to stop")
	}
	if influx != nil {
		if err := influx.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close InfluxDB sink")
		}
	}
	if err := saveSnapshot(config.Store.SnapshotFile, fileClient, st); err != nil {
		log.Error().Err(err).Msg("Failed to save store snapshot")
	}
	mqttClient.Disconnect(250)
}

// loadSnapshot seeds st from path when the file exists.
func loadSnapshot(path string, fileClient file.FileOperations, st *store.Store) error {
	if path == "" {
		return nil
	}
	exists, err := fileClient.IsFileExists(path)
	if err != nil || !exists {
		return err
	}
	var snapshot models.Snapshot
	if err := fileClient.ReadJsonFile(path, &snapshot); err != nil {
		return err
	}
	st.Load(snapshot.Clients, snapshot.Devices)
	return nil
}

// saveSnapshot writes the current store contents to path.
func saveSnapshot(path string, fileClient file.FileOperations, st *store.Store) error {
	if path == "" {
		return nil
	}
	var snapshot models.Snapshot
	for _, id := range st.ClientIDs() {
		if c, ok := st.Client(id); ok {
			snapshot.Clients = append(snapshot.Clients, c)
		}
	}
	snapshot.Devices = st.Devices()
	return fileClient.WriteJsonFile(path, snapshot)
}
