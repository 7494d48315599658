package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrich(t *testing.T) {
	cached := device("gps-1", "gps", Payload{"lat": 1.0, "lng": 1.0})
	cached.Location = &LatLng{Lat: 50.0, Lng: 8.0}
	devices := []DeviceGroup{
		cached,
		device("dish-1", "starlink", Payload{"starlink": map[string]any{"gps_latitude": 37.7, "gps_longitude": -122.4}}),
		device("wifi-1", "wifi", Payload{"ssid": "lab"}),
		{DeviceID: "empty-1", TypeLabel: "gps"},
	}

	got := Enrich(devices)

	require.Len(t, got, 4)
	assert.Equal(t, &LatLng{Lat: 50.0, Lng: 8.0}, got[0].Location)
	require.NotNil(t, got[1].Location)
	assert.Equal(t, LatLng{Lat: 37.7, Lng: -122.4}, *got[1].Location)
	assert.Nil(t, got[2].Location)
	assert.Nil(t, got[3].Location)

	// Input is left untouched.
	assert.Nil(t, devices[1].Location)
}

func TestEnrich_NeverOverwritesCachedLocation(t *testing.T) {
	d := device("gps-1", "gps", Payload{"lat": 10.0, "lng": 20.0})
	d.Location = &LatLng{Lat: 1.0, Lng: 2.0}

	got := Enrich([]DeviceGroup{d})

	assert.Equal(t, 1.0, got[0].Location.Lat)
	assert.Equal(t, 2.0, got[0].Location.Lng)
}

func TestEnrich_Empty(t *testing.T) {
	assert.Empty(t, Enrich(nil))
}
