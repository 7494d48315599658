package models

import (
	"errors"
	"time"

	"github.com/benmeehan/fleet-locator/pkg/location"
)

// TelemetryMessage is one device reading as received over MQTT.
type TelemetryMessage struct {
	DeviceID   string           `json:"device_id"`
	DeviceType string           `json:"device_type"`
	ClientID   string           `json:"client_id"`
	Timestamp  time.Time        `json:"timestamp"`
	Data       location.Payload `json:"data"`
}

// Validate checks the fields needed to attribute the reading.
func (m TelemetryMessage) Validate() error {
	if m.DeviceID == "" {
		return errors.New("device_id is required")
	}
	if m.ClientID == "" {
		return errors.New("client_id is required")
	}
	return nil
}

// Reading converts the message into an engine reading. A missing timestamp
// is replaced with receivedAt.
func (m TelemetryMessage) Reading(receivedAt time.Time) location.Reading {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = receivedAt
	}
	return location.Reading{
		TypeLabel: m.DeviceType,
		ClientID:  m.ClientID,
		Timestamp: ts,
		Data:      m.Data,
	}
}

// ClientMessage announces or updates a client record.
type ClientMessage struct {
	ClientID    string                `json:"client_id"`
	Name        string                `json:"name,omitempty"`
	ExternalGeo *location.Coordinates `json:"external_geo,omitempty"`
}

// Snapshot is the on-disk seed format for the store.
type Snapshot struct {
	Clients []location.Client      `json:"clients"`
	Devices []location.DeviceGroup `json:"devices"`
}
