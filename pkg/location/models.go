// Package location resolves where a client is physically located from the
// heterogeneous payloads its devices report.
package location

import (
	"math"
	"time"
)

// Payload is the opaque nested data carried by one device reading, as decoded from JSON.
type Payload map[string]any

// Reading is one reported payload from a device.
type Reading struct {
	TypeLabel string    `json:"type"`
	ClientID  string    `json:"client_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      Payload   `json:"data"`
}

// LatLng is a cached coordinate pair attached to a device group.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both coordinates are finite.
func (p LatLng) Valid() bool {
	return isFinite(p.Lat) && isFinite(p.Lng)
}

// DeviceGroup is the latest known state of one reporting device.
type DeviceGroup struct {
	DeviceID  string   `json:"device_id"`
	TypeLabel string   `json:"type"`
	ClientID  string   `json:"client_id"`
	Latest    *Reading `json:"latest,omitempty"`
	Location  *LatLng  `json:"location,omitempty"`
}

// Coordinates is what an extractor pulls out of a payload.
type Coordinates struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Altitude *float64 `json:"altitude,omitempty"`
	Accuracy *float64 `json:"accuracy,omitempty"`
	City     string   `json:"city,omitempty"`
	Country  string   `json:"country,omitempty"`
}

// Valid reports whether both coordinates are finite.
func (c Coordinates) Valid() bool {
	return isFinite(c.Lat) && isFinite(c.Lng)
}

// Candidate is a structurally valid coordinate tagged with the device it came from.
type Candidate struct {
	Coordinates
	Source    SourceCategory `json:"source"`
	DeviceID  string         `json:"device_id,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
	Raw       Payload        `json:"-"`
}

// Client is the part of a client record the resolver consumes.
type Client struct {
	ID          string       `json:"client_id"`
	Name        string       `json:"name,omitempty"`
	ExternalGeo *Coordinates `json:"external_geo,omitempty"`
}

// Resolved is the final answer for a client. When nothing could be determined
// Candidate is nil and Source is Unknown.
type Resolved struct {
	ClientID   string         `json:"client_id"`
	Source     SourceCategory `json:"source"`
	Candidate  *Candidate     `json:"location,omitempty"`
	Candidates int            `json:"candidates"`
}

// Known reports whether a location was determined.
func (r Resolved) Known() bool {
	return r.Candidate != nil && r.Source != Unknown
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
