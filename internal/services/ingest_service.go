package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/fleet-locator/internal/models"
	"github.com/benmeehan/fleet-locator/internal/observability"
	"github.com/benmeehan/fleet-locator/internal/store"
	"github.com/benmeehan/fleet-locator/pkg/location"
	"github.com/benmeehan/fleet-locator/pkg/mqtt"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const subscribeTimeout = 10 * time.Second

// IngestService subscribes to device telemetry and client records and keeps
// the store up to date.
type IngestService struct {
	telemetryTopic string
	clientTopic    string
	qos            int

	mqttClient mqtt.MQTTClient
	store      *store.Store
	metrics    *observability.ResolverMetrics
	logger     zerolog.Logger
	now        func() time.Time

	running bool
}

// NewIngestService creates a new IngestService instance.
func NewIngestService(telemetryTopic, clientTopic string, qos int, mqttClient mqtt.MQTTClient,
	st *store.Store, metrics *observability.ResolverMetrics, logger zerolog.Logger) *IngestService {
	return &IngestService{
		telemetryTopic: telemetryTopic,
		clientTopic:    clientTopic,
		qos:            qos,
		mqttClient:     mqttClient,
		store:          st,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

// Start subscribes to the telemetry and client topics.
func (s *IngestService) Start() error {
	if s.running {
		s.logger.Warn().Msg("IngestService is already running")
		return errors.New("ingest service is already running")
	}

	if err := s.subscribe(s.telemetryTopic, s.onTelemetry); err != nil {
		return err
	}
	if err := s.subscribe(s.clientTopic, s.onClient); err != nil {
		s.mqttClient.Unsubscribe(s.telemetryTopic)
		return err
	}

	s.running = true
	s.logger.Info().
		Str("telemetry_topic", s.telemetryTopic).
		Str("client_topic", s.clientTopic).
		Int("qos", s.qos).
		Msg("IngestService started")
	return nil
}

// Stop unsubscribes from both topics.
func (s *IngestService) Stop() error {
	if !s.running {
		s.logger.Warn().Msg("IngestService is not running")
		return errors.New("ingest service is not running")
	}

	token := s.mqttClient.Unsubscribe(s.telemetryTopic, s.clientTopic)
	if token.WaitTimeout(subscribeTimeout) && token.Error() != nil {
		s.logger.Error().Err(token.Error()).Msg("Failed to unsubscribe")
		return token.Error()
	}

	s.running = false
	s.logger.Info().Msg("IngestService stopped")
	return nil
}

func (s *IngestService) subscribe(topic string, handler MQTT.MessageHandler) error {
	token := s.mqttClient.Subscribe(topic, byte(s.qos), handler)
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("timed out subscribing to %s", topic)
	}
	if err := token.Error(); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe")
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return nil
}

func (s *IngestService) onTelemetry(_ MQTT.Client, msg MQTT.Message) {
	if err := s.HandleTelemetry(msg.Payload()); err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("Dropping telemetry message")
	}
}

func (s *IngestService) onClient(_ MQTT.Client, msg MQTT.Message) {
	if err := s.HandleClient(msg.Payload()); err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("Dropping client message")
	}
}

// HandleTelemetry decodes one device reading and records it.
func (s *IngestService) HandleTelemetry(payload []byte) error {
	var msg models.TelemetryMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.metrics.ObserveIngest("invalid")
		return fmt.Errorf("failed to parse telemetry message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		s.metrics.ObserveIngest("invalid")
		return fmt.Errorf("invalid telemetry message: %w", err)
	}

	if !s.store.UpsertReading(msg.DeviceID, msg.Reading(s.now().UTC())) {
		s.metrics.ObserveIngest("stale")
		s.logger.Debug().Str("device_id", msg.DeviceID).Msg("Ignoring stale reading")
		return nil
	}

	s.metrics.ObserveIngest("accepted")
	s.logger.Debug().
		Str("device_id", msg.DeviceID).
		Str("device_type", msg.DeviceType).
		Str("client_id", msg.ClientID).
		Msg("Reading stored")
	return nil
}

// HandleClient decodes one client record and records it.
func (s *IngestService) HandleClient(payload []byte) error {
	var msg models.ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to parse client message: %w", err)
	}
	if msg.ClientID == "" {
		return errors.New("invalid client message: client_id is required")
	}
	if msg.ExternalGeo != nil && !msg.ExternalGeo.Valid() {
		msg.ExternalGeo = nil
	}

	s.store.UpsertClient(location.Client{
		ID:          msg.ClientID,
		Name:        msg.Name,
		ExternalGeo: msg.ExternalGeo,
	})
	s.logger.Debug().Str("client_id", msg.ClientID).Msg("Client record stored")
	return nil
}
