package services_test

import (
	"errors"
	"testing"

	"github.com/benmeehan/fleet-locator/internal/mocks"
	"github.com/benmeehan/fleet-locator/internal/observability"
	"github.com/benmeehan/fleet-locator/internal/services"
	"github.com/benmeehan/fleet-locator/internal/store"
	"github.com/benmeehan/fleet-locator/pkg/location"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newIngest(t *testing.T, client *mocks.MQTTClient) (*services.IngestService, *store.Store, *observability.ResolverMetrics) {
	t.Helper()
	metrics, err := observability.NewResolverMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	st := store.New()
	return services.NewIngestService("telemetry/#", "clients/#", 1, client, st, metrics, zerolog.Nop()), st, metrics
}

// TestIngestService_Start_Success tests subscribing to both topics and the
// handlers receiving messages.
func TestIngestService_Start_Success(t *testing.T) {
	mockMQTT := new(mocks.MQTTClient)
	var handlers = map[string]MQTT.MessageHandler{}
	mockMQTT.On("Subscribe", mock.Anything, byte(1), mock.Anything).
		Run(func(args mock.Arguments) {
			handlers[args.String(0)] = args.Get(2).(MQTT.MessageHandler)
		}).
		Return(mocks.CompletedToken())
	mockMQTT.On("Unsubscribe", []string{"telemetry/#", "clients/#"}).Return(mocks.CompletedToken())

	svc, st, _ := newIngest(t, mockMQTT)

	err := svc.Start()
	require.NoError(t, err)

	err = svc.Start()
	assert.EqualError(t, err, "ingest service is already running")

	require.Contains(t, handlers, "telemetry/#")
	handlers["telemetry/#"](nil, mocks.NewMessage("telemetry/dish-1",
		[]byte(`{"device_id":"dish-1","device_type":"starlink","client_id":"c1","timestamp":"2026-10-01T12:00:00Z","data":{"starlink":{"latitude":1.5,"longitude":2.5}}}`)))
	handlers["clients/#"](nil, mocks.NewMessage("clients/c1", []byte(`{"client_id":"c1","name":"Field Van"}`)))

	d, ok := st.Device("dish-1")
	require.True(t, ok)
	assert.Equal(t, "starlink", d.TypeLabel)
	c, ok := st.Client("c1")
	require.True(t, ok)
	assert.Equal(t, "Field Van", c.Name)

	require.NoError(t, svc.Stop())
	assert.EqualError(t, svc.Stop(), "ingest service is not running")
	mockMQTT.AssertExpectations(t)
}

// TestIngestService_Start_SubscribeError tests that a failed subscription
// aborts the start and releases the first one.
func TestIngestService_Start_SubscribeError(t *testing.T) {
	mockMQTT := new(mocks.MQTTClient)
	mockMQTT.On("Subscribe", "telemetry/#", byte(1), mock.Anything).Return(mocks.CompletedToken())
	mockMQTT.On("Subscribe", "clients/#", byte(1), mock.Anything).Return(mocks.FailedToken(errors.New("not authorized")))
	mockMQTT.On("Unsubscribe", []string{"telemetry/#"}).Return(mocks.CompletedToken())

	svc, _, _ := newIngest(t, mockMQTT)

	err := svc.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authorized")
	mockMQTT.AssertExpectations(t)
}

func TestIngestService_HandleTelemetry(t *testing.T) {
	svc, st, metrics := newIngest(t, new(mocks.MQTTClient))

	err := svc.HandleTelemetry([]byte(`{"device_id":"gps-1","device_type":"gps","client_id":"c1","timestamp":"2026-10-01T12:00:00Z","data":{"lat":52.1,"lng":4.3}}`))
	require.NoError(t, err)

	// Older reading is ignored.
	err = svc.HandleTelemetry([]byte(`{"device_id":"gps-1","device_type":"gps","client_id":"c1","timestamp":"2026-10-01T11:00:00Z","data":{"lat":0,"lng":0}}`))
	require.NoError(t, err)

	d, ok := st.Device("gps-1")
	require.True(t, ok)
	assert.Equal(t, 52.1, d.Latest.Data["lat"])
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Ingested.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Ingested.WithLabelValues("stale")))
}

func TestIngestService_HandleTelemetry_MissingTimestamp(t *testing.T) {
	svc, st, _ := newIngest(t, new(mocks.MQTTClient))

	require.NoError(t, svc.HandleTelemetry([]byte(`{"device_id":"gps-1","device_type":"gps","client_id":"c1","data":{}}`)))

	d, ok := st.Device("gps-1")
	require.True(t, ok)
	assert.False(t, d.Latest.Timestamp.IsZero())
}

func TestIngestService_HandleTelemetry_Invalid(t *testing.T) {
	svc, st, metrics := newIngest(t, new(mocks.MQTTClient))

	assert.Error(t, svc.HandleTelemetry([]byte(`not json`)))
	assert.Error(t, svc.HandleTelemetry([]byte(`{"device_type":"gps","client_id":"c1"}`)))
	assert.Error(t, svc.HandleTelemetry([]byte(`{"device_id":"gps-1","device_type":"gps"}`)))

	assert.Empty(t, st.Devices())
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Ingested.WithLabelValues("invalid")))
}

func TestIngestService_HandleClient(t *testing.T) {
	svc, st, _ := newIngest(t, new(mocks.MQTTClient))

	require.NoError(t, svc.HandleClient([]byte(`{"client_id":"c1","name":"Van","external_geo":{"lat":52.37,"lng":4.89,"city":"Amsterdam"}}`)))

	c, ok := st.Client("c1")
	require.True(t, ok)
	require.NotNil(t, c.ExternalGeo)
	assert.Equal(t, "Amsterdam", c.ExternalGeo.City)

	// An update without geo keeps the stored one.
	require.NoError(t, svc.HandleClient([]byte(`{"client_id":"c1","name":"Van 2"}`)))
	c, _ = st.Client("c1")
	assert.Equal(t, "Van 2", c.Name)
	assert.Equal(t, &location.Coordinates{Lat: 52.37, Lng: 4.89, City: "Amsterdam"}, c.ExternalGeo)

	assert.Error(t, svc.HandleClient([]byte(`{"name":"nobody"}`)))
	assert.Error(t, svc.HandleClient([]byte(`{`)))
}
