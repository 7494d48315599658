package location

// Extractor pulls a coordinate out of one device payload.
type Extractor func(Payload) (Coordinates, bool)

// ExtractorFor returns the extractor for category. Categories without
// idiomatic nesting use Extract directly.
func ExtractorFor(category SourceCategory) Extractor {
	switch category {
	case SatelliteLink:
		return ExtractSatelliteLink
	case PositioningReceiver:
		return ExtractPositioningReceiver
	case EnvironmentalProbe:
		return ExtractEnvironmentalProbe
	case LongRangeRadio:
		return ExtractLongRangeRadio
	case AircraftTracking:
		return ExtractAircraftReceiver
	default:
		return Extract
	}
}

// ExtractSatelliteLink handles dish payloads such as
// {"starlink": {"gps_latitude": 37.7, "gps_longitude": -122.4}}.
func ExtractSatelliteLink(p Payload) (Coordinates, bool) {
	for _, key := range []string{"starlink", "satellite"} {
		dish, ok := sub(p, key)
		if !ok {
			continue
		}
		if c, ok := Extract(dish); ok {
			return c, true
		}
		if c, ok := gpsPrefixed(dish); ok {
			return c, true
		}
		if gps, ok := sub(dish, "dish_gps"); ok {
			if c, ok := Extract(gps); ok {
				return c, true
			}
			if c, ok := gpsPrefixed(gps); ok {
				return c, true
			}
		}
	}
	if c, ok := gpsPrefixed(p); ok {
		return c, true
	}
	if c, ok := extractSub(p, "dish_location"); ok {
		return c, true
	}
	if c, ok := extractSub(p, "device_info"); ok {
		return c, true
	}
	return Extract(p)
}

// ExtractPositioningReceiver handles GPS/GNSS receivers. Raw NMEA sentences
// are only consulted when no structured shape matched.
func ExtractPositioningReceiver(p Payload) (Coordinates, bool) {
	if c, ok := extractSub(p, "gps"); ok {
		return c, true
	}
	if c, ok := extractSub(p, "gnss"); ok {
		return c, true
	}
	if c, ok := Extract(p); ok {
		return c, true
	}
	return ExtractNMEA(p)
}

func ExtractEnvironmentalProbe(p Payload) (Coordinates, bool) {
	for _, key := range []string{"environmental", "environment"} {
		if c, ok := extractSub(p, key); ok {
			return c, true
		}
	}
	if sensors, ok := sub(p, "sensors"); ok {
		if c, ok := extractSub(sensors, "gps"); ok {
			return c, true
		}
	}
	return Extract(p)
}

func ExtractLongRangeRadio(p Payload) (Coordinates, bool) {
	if c, ok := extractSub(p, "lora"); ok {
		return c, true
	}
	if c, ok := extractSub(p, "gateway"); ok {
		return c, true
	}
	return Extract(p)
}

// ExtractAircraftReceiver looks for the receiver's own fixed position. The
// same payload usually carries tracked aircraft positions, which must not be
// mistaken for the receiver's location.
func ExtractAircraftReceiver(p Payload) (Coordinates, bool) {
	for _, key := range []string{"receiver_location", "adsb", "station_location"} {
		if c, ok := extractSub(p, key); ok {
			return c, true
		}
	}
	return Extract(p)
}

func extractSub(p Payload, key string) (Coordinates, bool) {
	nested, ok := sub(p, key)
	if !ok {
		return Coordinates{}, false
	}
	return Extract(nested)
}

// gpsPrefixed matches gps_latitude/gps_longitude and gps_lat/gps_lon.
func gpsPrefixed(p Payload) (Coordinates, bool) {
	c, ok := pair(p, "gps_latitude", "gps_longitude")
	if !ok {
		c, ok = pair(p, "gps_lat", "gps_lon")
	}
	if !ok {
		return Coordinates{}, false
	}
	c.Altitude = optNumber(p, "gps_altitude")
	return c, true
}
