package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/benmeehan/fleet-locator/pkg/file"
	"github.com/joho/godotenv"
)

// Config represents the structure of the configuration file.
type Config struct {
	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID prefix
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate, empty for plain TCP
		Username      string `yaml:"username"`       // Broker username
		Password      string `yaml:"password"`       // Broker password, overridden by MQTT_PASSWORD
	} `yaml:"mqtt"`

	Logging struct {
		Level  string `yaml:"level"`  // debug, info, warn, error
		Format string `yaml:"format"` // json or console
	} `yaml:"logging"`

	Store struct {
		SnapshotFile string `yaml:"snapshot_file"` // Optional JSON file seeding clients and devices
	} `yaml:"store"`

	Services struct {
		Ingest struct {
			Enabled        bool   `yaml:"enabled"`         // Enable/disable telemetry ingestion
			TelemetryTopic string `yaml:"telemetry_topic"` // Topic filter for device readings
			ClientTopic    string `yaml:"client_topic"`    // Topic filter for client records
			QOS            int    `yaml:"qos"`             // MQTT QoS level for subscriptions
		} `yaml:"ingest"`

		Location struct {
			Enabled  bool          `yaml:"enabled"`  // Enable/disable periodic resolution
			Topic    string        `yaml:"topic"`    // Topic prefix for resolved locations
			Interval time.Duration `yaml:"interval"` // Interval between resolution passes
			QOS      int           `yaml:"qos"`      // MQTT QoS level for location messages
			Retained bool          `yaml:"retained"` // Publish location messages as retained
			Workers  int           `yaml:"workers"`  // Number of concurrent resolutions
		} `yaml:"location_service"`

		Geolocation struct {
			Enabled    bool          `yaml:"enabled"`      // Enable/disable Wi-Fi based geolocation
			MapsAPIKey string        `yaml:"maps_api_key"` // Google maps API key, overridden by MAPS_API_KEY
			Interval   time.Duration `yaml:"interval"`     // Interval between geolocation passes
			Timeout    time.Duration `yaml:"timeout"`      // Timeout per geolocation request
		} `yaml:"geolocation"`

		GPS struct {
			Enabled  bool          `yaml:"enabled"`         // Enable/disable the host GPS receiver
			ClientID string        `yaml:"client_id"`       // Client the host receiver belongs to
			DeviceID string        `yaml:"device_id"`       // Device id used for its readings
			Port     string        `yaml:"gps_device_port"` // UNIX port where the GPS sensor is mounted
			BaudRate int           `yaml:"gps_baud_rate"`   // The baud rate for the GPS sensor
			Interval time.Duration `yaml:"interval"`        // Interval between fixes
		} `yaml:"gps"`
	} `yaml:"services"`

	API struct {
		Enabled        bool     `yaml:"enabled"`         // Enable/disable the HTTP read API
		ListenAddress  string   `yaml:"listen_address"`  // Address the API listens on
		AllowedOrigins []string `yaml:"allowed_origins"` // CORS origins allowed to call the API
	} `yaml:"api"`

	InfluxDB struct {
		Enabled       bool   `yaml:"enabled"`        // Enable/disable the location sink
		URL           string `yaml:"url"`            // InfluxDB server URL
		Token         string `yaml:"token"`          // API token, overridden by INFLUXDB_TOKEN
		Org           string `yaml:"org"`            // Organization name
		Bucket        string `yaml:"bucket"`         // Bucket for location points
		BatchSize     int    `yaml:"batch_size"`     // Points per write batch
		FlushInterval int    `yaml:"flush_interval"` // Flush interval in seconds
	} `yaml:"influxdb"`
}

// LoadConfig loads the YAML configuration from the specified file, applies
// defaults and environment overrides, and validates the result.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
	}

	config.setDefaults()
	config.applyEnv(os.Getenv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// LoadEnvFile loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "fleet-locator"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Services.Ingest.TelemetryTopic == "" {
		c.Services.Ingest.TelemetryTopic = "telemetry/#"
	}
	if c.Services.Ingest.ClientTopic == "" {
		c.Services.Ingest.ClientTopic = "clients/#"
	}
	if c.Services.Location.Topic == "" {
		c.Services.Location.Topic = "locations"
	}
	if c.Services.Location.Interval <= 0 {
		c.Services.Location.Interval = 30 * time.Second
	}
	if c.Services.Location.Workers <= 0 {
		c.Services.Location.Workers = 4
	}
	if c.Services.Geolocation.Interval <= 0 {
		c.Services.Geolocation.Interval = 5 * time.Minute
	}
	if c.Services.Geolocation.Timeout <= 0 {
		c.Services.Geolocation.Timeout = 10 * time.Second
	}
	if c.Services.GPS.DeviceID == "" {
		c.Services.GPS.DeviceID = "host-gps"
	}
	if c.Services.GPS.BaudRate <= 0 {
		c.Services.GPS.BaudRate = 9600
	}
	if c.Services.GPS.Interval <= 0 {
		c.Services.GPS.Interval = 10 * time.Second
	}
	if c.API.ListenAddress == "" {
		c.API.ListenAddress = ":8081"
	}
	if c.InfluxDB.BatchSize <= 0 {
		c.InfluxDB.BatchSize = 100
	}
	if c.InfluxDB.FlushInterval <= 0 {
		c.InfluxDB.FlushInterval = 10
	}
}

// applyEnv overrides secrets with environment values when set.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}
	if v := getenv("MAPS_API_KEY"); v != "" {
		c.Services.Geolocation.MapsAPIKey = v
	}
	if v := getenv("INFLUXDB_TOKEN"); v != "" {
		c.InfluxDB.Token = v
	}
}

// Validate checks that every enabled component has what it needs.
func (c *Config) Validate() error {
	var errs []error
	if c.MQTT.Broker == "" && (c.Services.Ingest.Enabled || c.Services.Location.Enabled) {
		errs = append(errs, errors.New("mqtt.broker is required when ingest or location service is enabled"))
	}
	if c.Services.Ingest.QOS < 0 || c.Services.Ingest.QOS > 2 {
		errs = append(errs, fmt.Errorf("services.ingest.qos must be 0, 1 or 2, got %d", c.Services.Ingest.QOS))
	}
	if c.Services.Location.QOS < 0 || c.Services.Location.QOS > 2 {
		errs = append(errs, fmt.Errorf("services.location_service.qos must be 0, 1 or 2, got %d", c.Services.Location.QOS))
	}
	if c.Services.Geolocation.Enabled && c.Services.Geolocation.MapsAPIKey == "" {
		errs = append(errs, errors.New("services.geolocation.maps_api_key is required when geolocation is enabled"))
	}
	if c.Services.GPS.Enabled {
		if c.Services.GPS.Port == "" {
			errs = append(errs, errors.New("services.gps.gps_device_port is required when gps is enabled"))
		}
		if c.Services.GPS.ClientID == "" {
			errs = append(errs, errors.New("services.gps.client_id is required when gps is enabled"))
		}
	}
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, errors.New("influxdb.url and influxdb.bucket are required when influxdb is enabled"))
	}
	return errors.Join(errs...)
}
