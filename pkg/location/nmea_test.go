package location

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sentence appends the NMEA checksum to body.
func sentence(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, sum)
}

func TestParseNMEA_GGA(t *testing.T) {
	c, ok := ParseNMEA(sentence("GPGGA,034225.077,3356.4650,S,15124.5567,E,1,03,9.7,-25.0,M,21.0,M,,0000"))
	require.True(t, ok)
	assert.InDelta(t, -33.941083, c.Lat, 1e-5)
	assert.InDelta(t, 151.409278, c.Lng, 1e-5)
	require.NotNil(t, c.Altitude)
	require.NotNil(t, c.Accuracy)
	assert.Equal(t, -25.0, *c.Altitude)
	assert.Equal(t, 9.7, *c.Accuracy)
}

func TestParseNMEA_Invalid(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"no fix", sentence("GPGGA,034225.077,3356.4650,S,15124.5567,E,0,00,,,M,,M,,0000")},
		{"void RMC", sentence("GPRMC,220516,V,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W")},
		{"bad checksum", "$GPGGA,034225.077,3356.4650,S,15124.5567,E,1,03,9.7,-25.0,M,21.0,M,,0000*00"},
		{"unsupported sentence", sentence("GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1")},
		{"garbage", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseNMEA(tt.line)
			assert.False(t, ok)
		})
	}
}

func TestExtractNMEA(t *testing.T) {
	rmc := sentence("GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W")
	noFix := sentence("GPGGA,034225.077,3356.4650,S,15124.5567,E,0,00,,,M,,M,,0000")

	c, ok := ExtractNMEA(Payload{"nmea": []any{noFix, 42, rmc}})
	require.True(t, ok)
	assert.InDelta(t, 51.563667, c.Lat, 1e-5)
	assert.InDelta(t, -0.704, c.Lng, 1e-5)

	c, ok = ExtractNMEA(Payload{"nmea": rmc})
	require.True(t, ok)
	assert.InDelta(t, 51.563667, c.Lat, 1e-5)

	_, ok = ExtractNMEA(Payload{"nmea": noFix})
	assert.False(t, ok)
	_, ok = ExtractNMEA(Payload{})
	assert.False(t, ok)
}

func TestExtractPositioningReceiver_NMEAFallback(t *testing.T) {
	rmc := sentence("GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W")

	c, ok := ExtractPositioningReceiver(Payload{"nmea": rmc})
	require.True(t, ok)
	assert.InDelta(t, 51.563667, c.Lat, 1e-5)

	// Structured fields take precedence over sentences.
	c, ok = ExtractPositioningReceiver(Payload{"nmea": rmc, "gps": map[string]any{"lat": 1.0, "lng": 2.0}})
	require.True(t, ok)
	assert.Equal(t, 1.0, c.Lat)
}
