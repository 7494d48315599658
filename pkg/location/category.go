package location

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SourceCategory is the trust class of a device type.
type SourceCategory int

const (
	Unknown SourceCategory = iota
	SatelliteLink
	PositioningReceiver
	LongRangeRadio
	EnvironmentalProbe
	SystemTelemetry
	WirelessScanner
	ShortRangeScanner
	ExternallyGeolocated
	AircraftTracking
)

// Priority returns the rank of the category; lower is more trustworthy.
// Every category must have an explicit case here.
func (c SourceCategory) Priority() int {
	switch c {
	case SatelliteLink:
		return 1
	case PositioningReceiver:
		return 2
	case LongRangeRadio:
		return 3
	case EnvironmentalProbe:
		return 4
	case SystemTelemetry:
		return 5
	case WirelessScanner:
		return 6
	case ShortRangeScanner:
		return 7
	case ExternallyGeolocated:
		return 8
	case AircraftTracking:
		// Aircraft receivers report other objects' positions.
		return 99
	default:
		return 100
	}
}

// Less orders categories by priority.
func (c SourceCategory) Less(other SourceCategory) bool {
	return c.Priority() < other.Priority()
}

var categoryNames = map[SourceCategory]string{
	Unknown:              "unknown",
	SatelliteLink:        "satellite_link",
	PositioningReceiver:  "gps",
	LongRangeRadio:       "long_range_radio",
	EnvironmentalProbe:   "environmental_probe",
	SystemTelemetry:      "system_telemetry",
	WirelessScanner:      "wifi_scanner",
	ShortRangeScanner:    "bluetooth_scanner",
	ExternallyGeolocated: "external_geolocation",
	AircraftTracking:     "aircraft_tracking",
}

func (c SourceCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("SourceCategory(%d)", int(c))
}

// ParseSourceCategory is the inverse of String.
func ParseSourceCategory(s string) (SourceCategory, error) {
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return Unknown, fmt.Errorf("unknown source category %q", s)
}

func (c SourceCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *SourceCategory) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSourceCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// KeywordRule maps a set of label substrings to a category.
type KeywordRule struct {
	Category SourceCategory
	Keywords []string
}

// DefaultKeywordTable is the classification table. Keyword sets must stay
// disjoint across rules. Rules are checked in order; aircraft tracking comes
// first so a label such as "adsb-gps" is never ranked as a positioning receiver.
var DefaultKeywordTable = []KeywordRule{
	{Category: AircraftTracking, Keywords: []string{"adsb", "ads-b", "aircraft", "dump1090", "readsb"}},
	{Category: SatelliteLink, Keywords: []string{"starlink", "satellite", "vsat", "iridium"}},
	{Category: PositioningReceiver, Keywords: []string{"gps", "gnss"}},
	{Category: LongRangeRadio, Keywords: []string{"lora", "meshtastic"}},
	{Category: EnvironmentalProbe, Keywords: []string{"environment", "weather", "air_quality"}},
	{Category: SystemTelemetry, Keywords: []string{"system", "sysmon", "host_metrics"}},
	{Category: WirelessScanner, Keywords: []string{"wifi", "wi-fi", "wlan", "kismet"}},
	{Category: ShortRangeScanner, Keywords: []string{"bluetooth", "btle", "ble_"}},
}

// Classifier maps free-text device type labels to source categories.
type Classifier struct {
	rules []KeywordRule
}

// NewClassifier builds a classifier over the given table. Keywords are
// lower-cased; an error is returned if two rules share a keyword.
func NewClassifier(table []KeywordRule) (*Classifier, error) {
	seen := make(map[string]SourceCategory)
	rules := make([]KeywordRule, 0, len(table))
	for _, rule := range table {
		if rule.Category == Unknown {
			return nil, fmt.Errorf("keyword rule %v may not target the unknown category", rule.Keywords)
		}
		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if prev, ok := seen[kw]; ok {
				return nil, fmt.Errorf("keyword %q assigned to both %s and %s", kw, prev, rule.Category)
			}
			seen[kw] = rule.Category
			keywords = append(keywords, kw)
		}
		rules = append(rules, KeywordRule{Category: rule.Category, Keywords: keywords})
	}
	return &Classifier{rules: rules}, nil
}

var defaultClassifier = mustClassifier(DefaultKeywordTable)

func mustClassifier(table []KeywordRule) *Classifier {
	c, err := NewClassifier(table)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the category for label, or ExternallyGeolocated when no
// keyword matches.
func (c *Classifier) Classify(label string) SourceCategory {
	label = strings.ToLower(label)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(label, kw) {
				return rule.Category
			}
		}
	}
	return ExternallyGeolocated
}

// Classify uses the default keyword table.
func Classify(label string) SourceCategory {
	return defaultClassifier.Classify(label)
}
