package models

import (
	"time"

	"github.com/benmeehan/fleet-locator/pkg/location"
)

// LocationMessage is published for every resolved client location.
type LocationMessage struct {
	ResolutionID string     `json:"resolution_id"`
	ClientID     string     `json:"client_id"`
	Timestamp    time.Time  `json:"timestamp"`
	Source       string     `json:"source"`
	Known        bool       `json:"known"`
	DeviceID     string     `json:"device_id,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	Altitude     *float64   `json:"altitude,omitempty"`
	Accuracy     *float64   `json:"accuracy,omitempty"`
	City         string     `json:"city,omitempty"`
	Country      string     `json:"country,omitempty"`
	ReadingTime  *time.Time `json:"reading_time,omitempty"`
	Candidates   int        `json:"candidates"`
}

// NewLocationMessage flattens a resolved location for publishing.
func NewLocationMessage(id string, r location.Resolved, now time.Time) LocationMessage {
	msg := LocationMessage{
		ResolutionID: id,
		ClientID:     r.ClientID,
		Timestamp:    now,
		Source:       r.Source.String(),
		Known:        r.Known(),
		Candidates:   r.Candidates,
	}
	if c := r.Candidate; c != nil {
		lat, lng := c.Lat, c.Lng
		msg.Latitude = &lat
		msg.Longitude = &lng
		msg.Altitude = c.Altitude
		msg.Accuracy = c.Accuracy
		msg.City = c.City
		msg.Country = c.Country
		msg.DeviceID = c.DeviceID
		if !c.Timestamp.IsZero() {
			ts := c.Timestamp
			msg.ReadingTime = &ts
		}
	}
	return msg
}
