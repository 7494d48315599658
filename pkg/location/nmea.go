package location

import (
	"github.com/adrianmo/go-nmea"
)

// ExtractNMEA looks for raw NMEA sentences under the "nmea" key, either a
// single sentence or a list, and returns the first valid fix. GGA sentences
// with no fix and RMC sentences flagged void are skipped.
func ExtractNMEA(p Payload) (Coordinates, bool) {
	for _, line := range nmeaLines(p["nmea"]) {
		if c, ok := ParseNMEA(line); ok {
			return c, true
		}
	}
	return Coordinates{}, false
}

// ParseNMEA converts one GGA or RMC sentence into coordinates.
func ParseNMEA(line string) (Coordinates, bool) {
	sentence, err := nmea.Parse(line)
	if err != nil {
		return Coordinates{}, false
	}

	var c Coordinates
	switch s := sentence.(type) {
	case nmea.GGA:
		if s.FixQuality == nmea.Invalid || s.FixQuality == "" {
			return Coordinates{}, false
		}
		alt, hdop := s.Altitude, s.HDOP
		c = Coordinates{Lat: s.Latitude, Lng: s.Longitude, Altitude: &alt, Accuracy: &hdop}
	case nmea.RMC:
		if s.Validity != nmea.ValidRMC {
			return Coordinates{}, false
		}
		c = Coordinates{Lat: s.Latitude, Lng: s.Longitude}
	default:
		return Coordinates{}, false
	}

	if !c.Valid() {
		return Coordinates{}, false
	}
	return c, true
}

func nmeaLines(v any) []string {
	switch lines := v.(type) {
	case string:
		return []string{lines}
	case []string:
		return lines
	case []any:
		out := make([]string, 0, len(lines))
		for _, l := range lines {
			if s, ok := l.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
