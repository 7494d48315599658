package location

import (
	"encoding/json"
	"math"
)

// Shape identifies which recognized payload layout produced a coordinate.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeDirect
	ShapeLatLon
	ShapeLocation
	ShapeGPSLocation
	ShapeLocationDetail
	ShapeCoordinates
	ShapePosition
)

var shapeNames = [...]string{
	ShapeNone:           "none",
	ShapeDirect:         "latitude/longitude",
	ShapeLatLon:         "lat/lon",
	ShapeLocation:       "location",
	ShapeGPSLocation:    "gps_location",
	ShapeLocationDetail: "location_detail",
	ShapeCoordinates:    "coordinates",
	ShapePosition:       "position",
}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return "invalid"
}

// Match is the result of a successful shape check.
type Match struct {
	Shape       Shape
	Coordinates Coordinates
}

type shapeCheck struct {
	shape Shape
	match func(Payload) (Coordinates, bool)
}

// shapeChain is tried in order; the first structural match wins.
var shapeChain = []shapeCheck{
	{ShapeDirect, matchDirect},
	{ShapeLatLon, matchLatLon},
	{ShapeLocation, matchLocation},
	{ShapeGPSLocation, matchGPSLocation},
	{ShapeLocationDetail, matchLocationDetail},
	{ShapeCoordinates, matchCoordinates},
	{ShapePosition, matchPosition},
}

// ExtractShape runs the shape chain over p and reports which shape matched.
func ExtractShape(p Payload) (Match, bool) {
	if len(p) == 0 {
		return Match{}, false
	}
	for _, check := range shapeChain {
		if c, ok := check.match(p); ok {
			return Match{Shape: check.shape, Coordinates: c}, true
		}
	}
	return Match{}, false
}

// Extract returns the first structurally valid coordinate pair in p.
// Non-numeric, NaN and infinite values never match.
func Extract(p Payload) (Coordinates, bool) {
	m, ok := ExtractShape(p)
	return m.Coordinates, ok
}

func matchDirect(p Payload) (Coordinates, bool) {
	c, ok := pair(p, "latitude", "longitude")
	if !ok {
		return Coordinates{}, false
	}
	c.Altitude = optNumber(p, "altitude")
	c.Accuracy = optNumber(p, "accuracy")
	return c, true
}

func matchLatLon(p Payload) (Coordinates, bool) {
	if c, ok := pair(p, "lat", "lon"); ok {
		return c, true
	}
	return pair(p, "lat", "lng")
}

func matchLocation(p Payload) (Coordinates, bool) {
	loc, ok := sub(p, "location")
	if !ok {
		return Coordinates{}, false
	}
	return eitherPair(loc)
}

func matchGPSLocation(p Payload) (Coordinates, bool) {
	loc, ok := sub(p, "gps_location")
	if !ok {
		return Coordinates{}, false
	}
	c, ok := pair(loc, "latitude", "longitude")
	if !ok {
		return Coordinates{}, false
	}
	c.Altitude = optNumber(loc, "altitude")
	c.Accuracy = optNumber(loc, "accuracy")
	return c, true
}

func matchLocationDetail(p Payload) (Coordinates, bool) {
	loc, ok := sub(p, "location_detail")
	if !ok {
		return Coordinates{}, false
	}
	c, ok := pair(loc, "latitude", "longitude")
	if !ok {
		return Coordinates{}, false
	}
	c.City = optString(loc, "city")
	c.Country = optString(loc, "country")
	return c, true
}

func matchCoordinates(p Payload) (Coordinates, bool) {
	loc, ok := sub(p, "coordinates")
	if !ok {
		return Coordinates{}, false
	}
	return eitherPair(loc)
}

func matchPosition(p Payload) (Coordinates, bool) {
	loc, ok := sub(p, "position")
	if !ok {
		return Coordinates{}, false
	}
	return pair(loc, "latitude", "longitude")
}

func eitherPair(p Payload) (Coordinates, bool) {
	if c, ok := pair(p, "latitude", "longitude"); ok {
		return c, true
	}
	return pair(p, "lat", "lng")
}

func pair(p Payload, latKey, lngKey string) (Coordinates, bool) {
	lat, ok := number(p[latKey])
	if !ok {
		return Coordinates{}, false
	}
	lng, ok := number(p[lngKey])
	if !ok {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lng: lng}, true
}

// sub returns the nested object stored under key, if any.
func sub(p Payload, key string) (Payload, bool) {
	switch v := p[key].(type) {
	case map[string]any:
		return Payload(v), true
	case Payload:
		return v, true
	default:
		return nil, false
	}
}

// number accepts only finite numeric values.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func optNumber(p Payload, key string) *float64 {
	if f, ok := number(p[key]); ok {
		return &f
	}
	return nil
}

func optString(p Payload, key string) string {
	s, _ := p[key].(string)
	return s
}
