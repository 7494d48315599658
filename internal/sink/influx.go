package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/fleet-locator/pkg/location"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

var (
	// ErrDisabled indicates the InfluxDB sink is disabled in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")
)

const (
	measurement           = "client_location"
	defaultConnectTimeout = 10 * time.Second
)

// Config holds the InfluxDB connection settings.
type Config struct {
	Enabled       bool
	URL           string
	Token         string
	Org           string
	Bucket        string
	BatchSize     int
	FlushInterval int // seconds
}

// pointWriter is the subset of api.WriteAPI used by InfluxWriter.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// InfluxWriter writes resolved client locations as time-series points.
// Writes are non-blocking and batched.
type InfluxWriter struct {
	client influxdb2.Client
	writer pointWriter
	logger zerolog.Logger
}

// Connect creates the client, verifies the server with a ping and sets up
// the batched write API. Async write errors are logged.
func Connect(cfg Config, logger zerolog.Logger) (*InfluxWriter, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	// #nosec G115 -- config defaults guarantee positive values
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(cfg.BatchSize)).
			SetFlushInterval(uint(cfg.FlushInterval)*1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			logger.Error().Err(err).Msg("InfluxDB write failed")
		}
	}()

	return &InfluxWriter{client: client, writer: writeAPI, logger: logger}, nil
}

// NewInfluxWriter wraps an existing writer; used when the client is managed elsewhere.
func NewInfluxWriter(w pointWriter, logger zerolog.Logger) *InfluxWriter {
	return &InfluxWriter{writer: w, logger: logger}
}

// WriteLocation queues a point for r. Unknown results carry no coordinates
// and are skipped; false is returned for them.
func (w *InfluxWriter) WriteLocation(r location.Resolved, at time.Time) bool {
	if !r.Known() {
		return false
	}
	c := r.Candidate

	tags := map[string]string{
		"client_id": r.ClientID,
		"source":    r.Source.String(),
	}
	if c.DeviceID != "" {
		tags["device_id"] = c.DeviceID
	}

	fields := map[string]interface{}{
		"lat":        c.Lat,
		"lng":        c.Lng,
		"candidates": r.Candidates,
	}
	if c.Altitude != nil {
		fields["altitude"] = *c.Altitude
	}
	if c.Accuracy != nil {
		fields["accuracy"] = *c.Accuracy
	}

	w.writer.WritePoint(write.NewPoint(measurement, tags, fields, at))
	return true
}

// Close flushes pending points and closes the client.
func (w *InfluxWriter) Close() error {
	w.writer.Flush()
	if w.client != nil {
		w.client.Close()
	}
	return nil
}
