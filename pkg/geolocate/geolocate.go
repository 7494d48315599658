package geolocate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benmeehan/fleet-locator/pkg/location"
	"googlemaps.github.io/maps"
)

// ErrNoAccessPoints is returned when too few valid access points are known
// for a lookup. The Geolocation API needs at least two.
var ErrNoAccessPoints = errors.New("not enough wifi access points for geolocation")

const (
	minAccessPoints = 2
	defaultTimeout  = 10 * time.Second
)

// AccessPoint is one Wi-Fi network seen by a scanner.
type AccessPoint struct {
	BSSID  string
	Signal float64
}

// Geolocator resolves a set of access points to coordinates.
type Geolocator interface {
	Geolocate(ctx context.Context, aps []AccessPoint) (location.Coordinates, error)
}

// mapsAPI is the subset of *maps.Client used here.
type mapsAPI interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
}

// Client uses the Google Maps Geolocation API.
type Client struct {
	api     mapsAPI
	timeout time.Duration
}

// NewClient creates a Client authenticated with apiKey.
func NewClient(apiKey string, timeout time.Duration) (*Client, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return newClient(c, timeout), nil
}

func newClient(api mapsAPI, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{api: api, timeout: timeout}
}

// Geolocate looks up the position of the given access points. Only the
// access points are considered, never the caller's own IP address.
func (c *Client) Geolocate(ctx context.Context, aps []AccessPoint) (location.Coordinates, error) {
	wifiAPs := make([]maps.WiFiAccessPoint, 0, len(aps))
	for _, ap := range aps {
		if !isValidMAC(ap.BSSID) {
			continue
		}
		wifiAPs = append(wifiAPs, maps.WiFiAccessPoint{
			MACAddress:     strings.ToLower(ap.BSSID),
			SignalStrength: ap.Signal,
		})
	}
	if len(wifiAPs) < minAccessPoints {
		return location.Coordinates{}, ErrNoAccessPoints
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.Geolocate(ctx, &maps.GeolocationRequest{
		ConsiderIP:       false,
		WiFiAccessPoints: wifiAPs,
	})
	if err != nil {
		return location.Coordinates{}, fmt.Errorf("geolocation request failed: %w", err)
	}

	accuracy := resp.Accuracy
	return location.Coordinates{
		Lat:      resp.Location.Lat,
		Lng:      resp.Location.Lng,
		Accuracy: &accuracy,
	}, nil
}

// AccessPoints collects the access points listed in a wireless scanner
// payload under "networks" or "access_points". Entries use "bssid" or "mac"
// for the address and "signal" or "rssi" for the strength.
func AccessPoints(p location.Payload) []AccessPoint {
	var aps []AccessPoint
	for _, key := range []string{"networks", "access_points"} {
		list, ok := p[key].([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			bssid := firstString(entry, "bssid", "mac")
			if !isValidMAC(bssid) {
				continue
			}
			aps = append(aps, AccessPoint{
				BSSID:  bssid,
				Signal: firstNumber(entry, "signal", "rssi"),
			})
		}
	}
	return aps
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstNumber(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}
	return 0
}

// isValidMAC checks if the MAC address is in a valid format (e.g., "00:14:22:01:23:45").
func isValidMAC(mac string) bool {
	parts := strings.Split(mac, ":")
	if len(parts) != 6 {
		return false
	}
	for _, part := range parts {
		if len(part) != 2 {
			return false
		}
		if _, err := strconv.ParseUint(part, 16, 8); err != nil {
			return false
		}
	}
	return true
}
