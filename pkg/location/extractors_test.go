package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSatelliteLink(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		lat     float64
		lng     float64
	}{
		{
			name:    "nested gps_latitude/gps_longitude",
			payload: Payload{"starlink": map[string]any{"gps_latitude": 37.7, "gps_longitude": -122.4}},
			lat:     37.7, lng: -122.4,
		},
		{
			name:    "nested direct coordinates",
			payload: Payload{"starlink": map[string]any{"latitude": 10.0, "longitude": 11.0}},
			lat:     10.0, lng: 11.0,
		},
		{
			name: "dish_gps under starlink",
			payload: Payload{"starlink": map[string]any{
				"uptime":   1200,
				"dish_gps": map[string]any{"lat": 12.0, "lon": 13.0},
			}},
			lat: 12.0, lng: 13.0,
		},
		{
			name:    "top-level gps_latitude/gps_longitude",
			payload: Payload{"gps_latitude": 14.0, "gps_longitude": 15.0},
			lat:     14.0, lng: 15.0,
		},
		{
			name:    "dish_location",
			payload: Payload{"dish_location": map[string]any{"lat": 16.0, "lng": 17.0}},
			lat:     16.0, lng: 17.0,
		},
		{
			name:    "device_info",
			payload: Payload{"device_info": map[string]any{"location": map[string]any{"lat": 18.0, "lng": 19.0}}},
			lat:     18.0, lng: 19.0,
		},
		{
			name:    "generic fallback",
			payload: Payload{"position": map[string]any{"latitude": 20.0, "longitude": 21.0}},
			lat:     20.0, lng: 21.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := ExtractSatelliteLink(tt.payload)
			require.True(t, ok)
			assert.Equal(t, tt.lat, c.Lat)
			assert.Equal(t, tt.lng, c.Lng)
		})
	}
}

func TestExtractSatelliteLink_NestedBeforeTopLevel(t *testing.T) {
	c, ok := ExtractSatelliteLink(Payload{
		"gps_latitude": 1.0, "gps_longitude": 1.0,
		"starlink": map[string]any{"gps_latitude": 2.0, "gps_longitude": 2.0},
	})
	require.True(t, ok)
	assert.Equal(t, 2.0, c.Lat)
}

func TestExtractPositioningReceiver(t *testing.T) {
	c, ok := ExtractPositioningReceiver(Payload{"gps": map[string]any{"latitude": 1.5, "longitude": 2.5, "altitude": 100.0}})
	require.True(t, ok)
	assert.Equal(t, 1.5, c.Lat)
	require.NotNil(t, c.Altitude)
	assert.Equal(t, 100.0, *c.Altitude)

	c, ok = ExtractPositioningReceiver(Payload{"gnss": map[string]any{"lat": 3.5, "lon": 4.5}})
	require.True(t, ok)
	assert.Equal(t, 4.5, c.Lng)

	c, ok = ExtractPositioningReceiver(Payload{"fix": 3, "lat": 5.0, "lon": 6.0})
	require.True(t, ok)
	assert.Equal(t, 5.0, c.Lat)

	_, ok = ExtractPositioningReceiver(Payload{"gps": map[string]any{"satellites": 0}})
	assert.False(t, ok)
}

func TestExtractEnvironmentalProbe(t *testing.T) {
	c, ok := ExtractEnvironmentalProbe(Payload{
		"temperature": 21.3,
		"environment": map[string]any{"lat": 7.0, "lng": 8.0},
	})
	require.True(t, ok)
	assert.Equal(t, 7.0, c.Lat)

	c, ok = ExtractEnvironmentalProbe(Payload{
		"sensors": map[string]any{
			"humidity": 40,
			"gps":      map[string]any{"latitude": 9.0, "longitude": 10.0},
		},
	})
	require.True(t, ok)
	assert.Equal(t, 10.0, c.Lng)
}

func TestExtractLongRangeRadio(t *testing.T) {
	c, ok := ExtractLongRangeRadio(Payload{"lora": map[string]any{"position": map[string]any{"latitude": 1.0, "longitude": 2.0}}})
	require.True(t, ok)
	assert.Equal(t, 1.0, c.Lat)

	c, ok = ExtractLongRangeRadio(Payload{"rssi": -110, "gateway": map[string]any{"latitude": 3.0, "longitude": 4.0}})
	require.True(t, ok)
	assert.Equal(t, 3.0, c.Lat)
}

func TestExtractAircraftReceiver(t *testing.T) {
	payload := Payload{
		"aircraft": []any{
			map[string]any{"hex": "a1b2c3", "lat": 40.1, "lon": -73.9},
			map[string]any{"hex": "d4e5f6", "lat": 40.5, "lon": -74.2},
		},
		"receiver_location": map[string]any{"lat": 40.64, "lon": -73.78},
	}

	c, ok := ExtractAircraftReceiver(payload)
	require.True(t, ok)
	assert.Equal(t, 40.64, c.Lat)
	assert.Equal(t, -73.78, c.Lng)

	c, ok = ExtractAircraftReceiver(Payload{"station_location": map[string]any{"latitude": 1.0, "longitude": 2.0}})
	require.True(t, ok)
	assert.Equal(t, 2.0, c.Lng)

	_, ok = ExtractAircraftReceiver(Payload{"aircraft": payload["aircraft"]})
	assert.False(t, ok)
}

func TestExtractorFor_GenericCategories(t *testing.T) {
	p := Payload{"starlink": map[string]any{"gps_latitude": 1.0, "gps_longitude": 2.0}}

	for _, c := range []SourceCategory{WirelessScanner, ShortRangeScanner, SystemTelemetry, ExternallyGeolocated, Unknown} {
		_, ok := ExtractorFor(c)(p)
		assert.False(t, ok, c.String())
	}

	_, ok := ExtractorFor(SatelliteLink)(p)
	assert.True(t, ok)
}
